package mempool

import (
	"crypto/rand"
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cfg "github.com/tendermint/tendermint/config"
	"github.com/tendermint/tendermint/libs/log"
	tmtypes "github.com/tendermint/tendermint/types"

	"github.com/Tanuj-solulab/learning-service-real-estate/libs/metric"
)

type cleanupFunc func()

// ----- utility func -----

func newMempool(options ...ListMempoolOption) (*ListMempool, cleanupFunc) {
	return newMempoolWithConfig(cfg.ResetTestRoot("mempool_test"), options...)
}

func newMempoolWithConfig(config *cfg.Config, options ...ListMempoolOption) (*ListMempool, cleanupFunc) {
	mempool := NewListMempool(config.Mempool, 0, options...)
	mempool.SetLogger(log.TestingLogger())
	return mempool, func() { os.RemoveAll(config.RootDir) }
}

// checkTxs adds count random txs.
func checkTxs(t *testing.T, mempool Mempool, count int, peerID uint16) tmtypes.Txs {
	txs := make(tmtypes.Txs, count)
	txinfo := TxInfo{
		SenderID: peerID,
	}
	for i := 0; i < count; i++ {
		txBytes := make([]byte, 20)
		_, err := rand.Read(txBytes)
		if err != nil {
			t.Error(err)
		}
		txs[i] = txBytes
		if err := mempool.CheckTx(txs[i], txinfo); err != nil {
			t.Fatalf("checkTx failed: %v while checking #%d tx", err, i)
		}
	}

	return txs
}

// ----- tests -----

func TestBasicMempool(t *testing.T) {
	mem, cleanup := newMempool()
	defer cleanup()

	txs := checkTxs(t, mem, 1, UnknownPeerID)
	assert.Equal(t, 1, mem.Size())
	assert.Equal(t, int64(20), mem.TxsBytes())

	mem.Flush()
	assert.Equal(t, 0, mem.Size())
	assert.Equal(t, int64(0), mem.TxsBytes())

	// flushing resets the cache
	require.NoError(t, mem.CheckTx(txs[0], TxInfo{SenderID: UnknownPeerID}))
	mem.Flush()
}

func TestCheckTxDuplicate(t *testing.T) {
	mem, cleanup := newMempool()
	defer cleanup()

	txs := checkTxs(t, mem, 1, UnknownPeerID)
	err := mem.CheckTx(txs[0], TxInfo{SenderID: 1})
	assert.True(t, errors.Is(err, ErrTxInMap), "the same tx can be added twice")

	mem.Lock()
	require.NoError(t, mem.Update(1, txs))
	mem.Unlock()
	assert.Equal(t, 0, mem.Size())

	err = mem.CheckTx(txs[0], TxInfo{SenderID: 1})
	assert.True(t, errors.Is(err, ErrTxInCache), "a committed tx can be added again")
}

func TestCheckTxLimits(t *testing.T) {
	config := cfg.ResetTestRoot("mempool_test")
	config.Mempool.Size = 2
	config.Mempool.MaxTxBytes = 30
	mem, cleanup := newMempoolWithConfig(config)
	defer cleanup()

	err := mem.CheckTx(make([]byte, 31), TxInfo{})
	assert.True(t, errors.Is(err, ErrTxTooLarge))

	checkTxs(t, mem, 2, UnknownPeerID)
	err = mem.CheckTx([]byte("one too many"), TxInfo{})
	assert.True(t, errors.Is(err, ErrMempoolIsFull))
}

func TestReapAndUpdate(t *testing.T) {
	mem, cleanup := newMempool()
	defer cleanup()

	txs := checkTxs(t, mem, 5, UnknownPeerID)
	assert.Equal(t, txs[:2], mem.ReapMaxTxs(2))
	assert.Equal(t, txs, mem.ReapMaxTxs(-1))
	assert.Equal(t, 5, mem.Size(), "reaping does not remove txs")

	mem.Lock()
	require.NoError(t, mem.Update(1, txs[1:3]))
	mem.Unlock()

	assert.Equal(t, tmtypes.Txs{txs[0], txs[3], txs[4]}, mem.ReapMaxTxs(-1))
	assert.Equal(t, int64(60), mem.TxsBytes())
}

func TestPreCheckAndRecheck(t *testing.T) {
	rejected := map[string]bool{}
	precheck := func(tx tmtypes.Tx) error {
		if rejected[string(tx)] {
			return errors.New("stale")
		}
		return nil
	}
	ms := metric.NewMetricSet()
	mem, cleanup := newMempool(SetPreCheck(precheck), SetMetricSet(ms))
	defer cleanup()

	rejected["old"] = true
	err := mem.CheckTx([]byte("old"), TxInfo{})
	assert.True(t, errors.Is(err, ErrPreCheck))

	require.NoError(t, mem.CheckTx([]byte("a"), TxInfo{}))
	require.NoError(t, mem.CheckTx([]byte("b"), TxInfo{}))

	// "a" becomes stale once the block is committed
	rejected["a"] = true
	mem.Lock()
	require.NoError(t, mem.Update(1, nil))
	mem.Unlock()
	assert.Equal(t, tmtypes.Txs{[]byte("b")}, mem.ReapMaxTxs(-1))

	assert.True(t, ms.HasMetrics(MetricLabel))
	assert.JSONEq(t,
		`{"txs_num":1,"total_txs_bytes":1,"committed_txs_num":0,"rejected_txs_num":2}`,
		mem.metrics.JSONString())
}

func TestMapTxCache(t *testing.T) {
	cache := newMapTxCache(2)
	assert.True(t, cache.Push([]byte("a")))
	assert.False(t, cache.Push([]byte("a")))
	assert.True(t, cache.Push([]byte("b")))
	// evicts "a"
	assert.True(t, cache.Push([]byte("c")))
	assert.True(t, cache.Push([]byte("a")))

	cache.Remove([]byte("a"))
	assert.True(t, cache.Push([]byte("a")))

	cache.Reset()
	assert.True(t, cache.Push([]byte("b")))
}
