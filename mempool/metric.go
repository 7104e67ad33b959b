package mempool

import (
	"sync"

	jsoniter "github.com/json-iterator/go"
)

// MetricLabel is the label of the mempool metric in the node's MetricSet.
const MetricLabel = "mempool"

func newMemMetric() *memMetric {
	return &memMetric{}
}

type memMetric struct {
	mtx           sync.RWMutex
	TxsNum        int   `json:"txs_num"`         // txs waiting for a block
	TotalTxsBytes int64 `json:"total_txs_bytes"` // size of the waiting txs
	CommittedNum  int64 `json:"committed_txs_num"`
	RejectedNum   int64 `json:"rejected_txs_num"` // failed the pre-check, now or on recheck
}

func (mm *memMetric) JSONString() string {
	mm.mtx.RLock()
	defer mm.mtx.RUnlock()
	s, _ := jsoniter.MarshalToString(mm)
	return s
}

func (mm *memMetric) MarkTxsNum(txsNum int, totalTxsBytes int64) {
	mm.mtx.Lock()
	defer mm.mtx.Unlock()
	mm.TxsNum = txsNum
	mm.TotalTxsBytes = totalTxsBytes
}

func (mm *memMetric) MarkCommitted(n int) {
	mm.mtx.Lock()
	defer mm.mtx.Unlock()
	mm.CommittedNum += int64(n)
}

func (mm *memMetric) MarkRejected() {
	mm.mtx.Lock()
	defer mm.mtx.Unlock()
	mm.RejectedNum++
}
