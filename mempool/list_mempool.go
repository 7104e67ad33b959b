package mempool

import (
	"container/list"
	"crypto/sha256"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	cfg "github.com/tendermint/tendermint/config"
	"github.com/tendermint/tendermint/libs/clist"
	"github.com/tendermint/tendermint/libs/log"
	tmtypes "github.com/tendermint/tendermint/types"

	"github.com/Tanuj-solulab/learning-service-real-estate/libs/metric"
)

const (
	TxKeySize = 32
)

var _ Mempool = (*ListMempool)(nil)

func NewListMempool(config *cfg.MempoolConfig, height int64, options ...ListMempoolOption) *ListMempool {
	mem := &ListMempool{
		height:  height,
		config:  config,
		txs:     clist.New(),
		logger:  log.NewNopLogger(),
		metrics: newMemMetric(),
	}

	if config.CacheSize > 0 {
		mem.cache = newMapTxCache(config.CacheSize)
	} else {
		mem.cache = nopTxCache{}
	}

	for _, option := range options {
		option(mem)
	}

	return mem
}

// ListMempool is an ordered in-memory pool of payload txs.
type ListMempool struct {
	// Atomic integers
	height   int64 // the last block Update()'d to
	txsBytes int64 // total size of mempool, in bytes

	config *cfg.MempoolConfig

	updateMtx sync.RWMutex
	preCheck  PreCheckFunc

	txs    *clist.CList
	txsMap sync.Map

	// Keep a cache of already-seen txs.
	// This reduces the pressure on the proxyApp.
	cache txCache

	logger  log.Logger
	metrics *memMetric
}

type ListMempoolOption func(mem *ListMempool)

func SetPreCheck(precheck PreCheckFunc) ListMempoolOption {
	return func(mem *ListMempool) {
		mem.preCheck = precheck
	}
}

func SetMetricSet(ms *metric.MetricSet) ListMempoolOption {
	return func(mem *ListMempool) {
		if err := ms.SetMetrics(MetricLabel, mem.metrics); err != nil {
			panic(err)
		}
	}
}

func (mem *ListMempool) SetLogger(logger log.Logger) {
	mem.logger = logger
}

// CheckTx adds tx unless it was seen before, is too large, does not fit or
// fails the pre-check.
func (mem *ListMempool) CheckTx(tx tmtypes.Tx, txInfo TxInfo) error {
	mem.updateMtx.RLock()
	defer mem.updateMtx.RUnlock()

	if len(tx) > mem.config.MaxTxBytes {
		return errors.Wrapf(ErrTxTooLarge, "%d > %d bytes", len(tx), mem.config.MaxTxBytes)
	}
	if mem.Size() >= mem.config.Size || int64(len(tx))+mem.TxsBytes() > mem.config.MaxTxsBytes {
		return errors.Wrapf(ErrMempoolIsFull, "%d txs, %d bytes", mem.Size(), mem.TxsBytes())
	}

	if mem.preCheck != nil {
		if err := mem.preCheck(tx); err != nil {
			mem.metrics.MarkRejected()
			return errors.Wrap(ErrPreCheck, err.Error())
		}
	}

	if _, ok := mem.txsMap.Load(TxKey(tx)); ok {
		return ErrTxInMap
	}
	if !mem.cache.Push(tx) {
		return ErrTxInCache
	}

	memTx := &mempoolTx{
		height: atomic.LoadInt64(&mem.height),
		tx:     tx,
	}
	memTx.senders.Store(txInfo.SenderID, struct{}{})

	mem.logger.Debug("added tx", "hash", tx.Hash(), "sender", txInfo.SenderID)
	mem.addTx(memTx)
	mem.metrics.MarkTxsNum(mem.Size(), mem.TxsBytes())
	return nil
}

func (mem *ListMempool) ReapMaxTxs(max int) tmtypes.Txs {
	mem.updateMtx.RLock()
	defer mem.updateMtx.RUnlock()

	if max < 0 {
		max = mem.txs.Len()
	}
	txs := make(tmtypes.Txs, 0, max)
	for e := mem.txs.Front(); e != nil && len(txs) < max; e = e.Next() {
		txs = append(txs, e.Value.(*mempoolTx).tx)
	}
	return txs
}

// Lock locks the updateMtx write lock.
func (mem *ListMempool) Lock() {
	mem.updateMtx.Lock()
}

// Unlock releases the updateMtx write lock.
func (mem *ListMempool) Unlock() {
	mem.updateMtx.Unlock()
}

func (mem *ListMempool) Update(height int64, txs tmtypes.Txs) error {
	atomic.StoreInt64(&mem.height, height)

	for _, tx := range txs {
		// committed txs stay in the cache so they are never re-added
		_ = mem.cache.Push(tx)
		if e, ok := mem.txsMap.Load(TxKey(tx)); ok {
			mem.removeTx(tx, e.(*clist.CElement))
		}
	}
	mem.metrics.MarkCommitted(len(txs))

	if mem.preCheck != nil && mem.config.Recheck {
		mem.recheckTxs()
	}
	mem.metrics.MarkTxsNum(mem.Size(), mem.TxsBytes())
	return nil
}

// recheckTxs drops the txs the pre-check now rejects, e.g. payloads for a
// round that has ended.
func (mem *ListMempool) recheckTxs() {
	for e := mem.txs.Front(); e != nil; {
		next := e.Next()
		memTx := e.Value.(*mempoolTx)
		if err := mem.preCheck(memTx.tx); err != nil {
			mem.logger.Debug("dropping tx on recheck", "hash", memTx.tx.Hash(), "err", err)
			mem.removeTx(memTx.tx, e)
			mem.metrics.MarkRejected()
		}
		e = next
	}
}

func (mem *ListMempool) Flush() {
	mem.updateMtx.Lock()
	defer mem.updateMtx.Unlock()

	atomic.StoreInt64(&mem.txsBytes, 0)
	mem.cache.Reset()

	for e := mem.txs.Front(); e != nil; e = e.Next() {
		mem.txs.Remove(e)
		e.DetachPrev()
	}

	mem.txsMap.Range(func(key, _ interface{}) bool {
		mem.txsMap.Delete(key)
		return true
	})
	mem.metrics.MarkTxsNum(0, 0)
}

func (mem *ListMempool) Size() int {
	return mem.txs.Len()
}

func (mem *ListMempool) TxsBytes() int64 {
	return atomic.LoadInt64(&mem.txsBytes)
}

// addTx appends memTx to the list and updates txsMap and the total size.
func (mem *ListMempool) addTx(memTx *mempoolTx) {
	e := mem.txs.PushBack(memTx)
	mem.txsMap.Store(TxKey(memTx.tx), e)
	atomic.AddInt64(&mem.txsBytes, int64(len(memTx.tx)))
}

func (mem *ListMempool) removeTx(tx tmtypes.Tx, elem *clist.CElement) {
	mem.txs.Remove(elem)
	elem.DetachPrev()
	mem.txsMap.Delete(TxKey(tx))
	atomic.AddInt64(&mem.txsBytes, int64(-len(tx)))
}

func (mem *ListMempool) TxsWaitChan() <-chan struct{} {
	return mem.txs.WaitChan()
}

func (mem *ListMempool) TxsFront() *clist.CElement {
	return mem.txs.Front()
}

// ------------------------------

type txCache interface {
	Reset()
	Push(tx tmtypes.Tx) bool
	Remove(tx tmtypes.Tx)
}

// mapTxCache is an LRU set of tx keys.
type mapTxCache struct {
	mtx      sync.Mutex
	size     int
	cacheMap map[[TxKeySize]byte]*list.Element
	list     *list.List
}

func newMapTxCache(cacheSize int) *mapTxCache {
	return &mapTxCache{
		size:     cacheSize,
		cacheMap: make(map[[TxKeySize]byte]*list.Element, cacheSize),
		list:     list.New(),
	}
}

func (cache *mapTxCache) Reset() {
	cache.mtx.Lock()
	defer cache.mtx.Unlock()
	cache.cacheMap = make(map[[TxKeySize]byte]*list.Element, cache.size)
	cache.list.Init()
}

// Push adds tx and returns false if it was already cached.
func (cache *mapTxCache) Push(tx tmtypes.Tx) bool {
	cache.mtx.Lock()
	defer cache.mtx.Unlock()

	txHash := TxKey(tx)
	if moved, exists := cache.cacheMap[txHash]; exists {
		cache.list.MoveToBack(moved)
		return false
	}

	if cache.list.Len() >= cache.size {
		popped := cache.list.Front()
		if popped != nil {
			poppedTxHash := popped.Value.([TxKeySize]byte)
			delete(cache.cacheMap, poppedTxHash)
			cache.list.Remove(popped)
		}
	}
	e := cache.list.PushBack(txHash)
	cache.cacheMap[txHash] = e
	return true
}

func (cache *mapTxCache) Remove(tx tmtypes.Tx) {
	cache.mtx.Lock()
	defer cache.mtx.Unlock()
	txHash := TxKey(tx)
	if e, ok := cache.cacheMap[txHash]; ok {
		cache.list.Remove(e)
		delete(cache.cacheMap, txHash)
	}
}

type nopTxCache struct{}

func (nopTxCache) Reset()               {}
func (nopTxCache) Push(tmtypes.Tx) bool { return true }
func (nopTxCache) Remove(tmtypes.Tx)    {}

type mempoolTx struct {
	height int64

	tx      tmtypes.Tx
	senders sync.Map
}

// Height returns the height for this transaction
func (memTx *mempoolTx) Height() int64 {
	return atomic.LoadInt64(&memTx.height)
}

// ------------------------------

// TxKey is the fixed length array hash used as the key in maps.
func TxKey(tx tmtypes.Tx) [TxKeySize]byte {
	return sha256.Sum256(tx)
}
