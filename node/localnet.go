package node

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	abcitypes "github.com/tendermint/tendermint/abci/types"
	cfg "github.com/tendermint/tendermint/config"
	"github.com/tendermint/tendermint/libs/log"
	"github.com/tendermint/tendermint/libs/service"
	tmproto "github.com/tendermint/tendermint/proto/tendermint/types"
	tmtypes "github.com/tendermint/tendermint/types"
	tmdb "github.com/tendermint/tm-db"

	"github.com/Tanuj-solulab/learning-service-real-estate/behaviour"
	"github.com/Tanuj-solulab/learning-service-real-estate/consensus"
	cstypes "github.com/Tanuj-solulab/learning-service-real-estate/consensus/types"
	"github.com/Tanuj-solulab/learning-service-real-estate/libs/metric"
	"github.com/Tanuj-solulab/learning-service-real-estate/mempool"
	"github.com/Tanuj-solulab/learning-service-real-estate/state"
	"github.com/Tanuj-solulab/learning-service-real-estate/store"
	"github.com/Tanuj-solulab/learning-service-real-estate/types"
)

var (
	ErrReplicaDivergence = errors.New("replicas committed different documents")
	ErrNoAgents          = errors.New("local net needs at least one agent")
)

// ContextProvider builds the behaviour context of one agent.
type ContextProvider func(agent types.PrivAgent) *behaviour.Context

// LocalNet runs one replica of the application per agent in process. The
// agents share a mempool and blocks are produced on demand, so every replica
// sees the same txs at the same block times.
type LocalNet struct {
	service.BaseService

	chainID      string
	genesisTime  time.Time
	roundTimeout time.Duration
	actTimeout   time.Duration
	memConfig    *cfg.MempoolConfig
	metricSet    *metric.MetricSet

	agents  []types.PrivAgent
	apps    []*consensus.Application
	drivers []*behaviour.Driver
	mempool *mempool.ListMempool

	mtx       sync.Mutex
	height    int64
	blockTime time.Time
}

type LocalNetOption func(*LocalNet)

func SetRoundTimeout(timeout time.Duration) LocalNetOption {
	return func(ln *LocalNet) { ln.roundTimeout = timeout }
}

func SetDriverActTimeout(timeout time.Duration) LocalNetOption {
	return func(ln *LocalNet) { ln.actTimeout = timeout }
}

func SetGenesisTime(t time.Time) LocalNetOption {
	return func(ln *LocalNet) { ln.genesisTime = t }
}

func SetMempoolConfig(config *cfg.MempoolConfig) LocalNetOption {
	return func(ln *LocalNet) { ln.memConfig = config }
}

// SetLocalNetMetricSet registers the JSON metrics of the first replica and
// of the mempool in ms.
func SetLocalNetMetricSet(ms *metric.MetricSet) LocalNetOption {
	return func(ln *LocalNet) { ln.metricSet = ms }
}

func NewLocalNet(
	chainID string,
	agents []types.PrivAgent,
	setup *state.SynchronizedData,
	contextFor ContextProvider,
	logger log.Logger,
	options ...LocalNetOption,
) (*LocalNet, error) {
	if len(agents) == 0 {
		return nil, ErrNoAgents
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	ln := &LocalNet{
		chainID:      chainID,
		genesisTime:  time.Unix(1700000000, 0).UTC(),
		roundTimeout: consensus.DefaultRoundTimeout,
		actTimeout:   behaviour.DefaultActTimeout,
		memConfig:    cfg.TestMempoolConfig(),
		agents:       agents,
	}
	ln.BaseService = *service.NewBaseService(logger, "LocalNet", ln)
	for _, option := range options {
		option(ln)
	}
	ln.blockTime = ln.genesisTime

	for i := range agents {
		appOptions := []consensus.ApplicationOption{
			consensus.SetStore(store.NewKVStoreWithDB(tmdb.NewMemDB(), logger.With("module", "store", "agent", i))),
		}
		if i == 0 && ln.metricSet != nil {
			appOptions = append(appOptions, consensus.SetMetricSet(ln.metricSet))
		}
		app, err := consensus.NewApplication(
			consensus.NewLearningAbciApp(ln.roundTimeout),
			chainID,
			setup,
			logger.With("module", "consensus", "agent", i),
			appOptions...,
		)
		if err != nil {
			return nil, err
		}
		ln.apps = append(ln.apps, app)
	}

	memOptions := []mempool.ListMempoolOption{mempool.SetPreCheck(appPreCheck(ln.apps[0]))}
	if ln.metricSet != nil {
		memOptions = append(memOptions, mempool.SetMetricSet(ln.metricSet))
	}
	ln.mempool = mempool.NewListMempool(ln.memConfig, 0, memOptions...)
	ln.mempool.SetLogger(logger.With("module", "mempool"))

	for i, agent := range agents {
		driver, err := behaviour.NewDriver(
			ln.apps[i],
			behaviour.LearningBehaviours(contextFor(agent)),
			agent,
			NewMempoolBroadcaster(ln.mempool, uint16(i+1)),
			behaviour.SetActTimeout(ln.actTimeout),
		)
		if err != nil {
			return nil, err
		}
		driver.SetLogger(logger.With("module", "behaviour", "agent", i))
		ln.drivers = append(ln.drivers, driver)
	}
	return ln, nil
}

// OnStart initialises every replica at the genesis time and starts the
// agents.
func (ln *LocalNet) OnStart() error {
	for _, app := range ln.apps {
		app.InitChain(abcitypes.RequestInitChain{ChainId: ln.chainID, Time: ln.genesisTime})
	}
	for i, driver := range ln.drivers {
		if err := driver.Start(); err != nil {
			return errors.Wrapf(err, "start agent %d", i)
		}
	}
	return nil
}

func (ln *LocalNet) OnStop() {
	for i, driver := range ln.drivers {
		if err := driver.Stop(); err != nil {
			ln.Logger.Error("failed to stop agent", "agent", i, "err", err)
		}
	}
}

// ProduceBlock commits every tx in the mempool on every replica, with the
// given block time, and returns them.
func (ln *LocalNet) ProduceBlock(blockTime time.Time) (tmtypes.Txs, error) {
	ln.mtx.Lock()
	defer ln.mtx.Unlock()

	if blockTime.Before(ln.blockTime) {
		blockTime = ln.blockTime
	}
	ln.height++
	ln.blockTime = blockTime

	txs := ln.mempool.ReapMaxTxs(-1)
	header := tmproto.Header{ChainID: ln.chainID, Height: ln.height, Time: blockTime}

	var appHash []byte
	for i, app := range ln.apps {
		app.BeginBlock(abcitypes.RequestBeginBlock{Header: header})
		for _, tx := range txs {
			app.DeliverTx(abcitypes.RequestDeliverTx{Tx: tx})
		}
		app.EndBlock(abcitypes.RequestEndBlock{Height: ln.height})
		res := app.Commit()

		if i == 0 {
			appHash = res.Data
		} else if !bytes.Equal(appHash, res.Data) {
			return txs, errors.Wrapf(ErrReplicaDivergence, "height %d, agent %d", ln.height, i)
		}
	}

	ln.mempool.Lock()
	err := ln.mempool.Update(ln.height, txs)
	ln.mempool.Unlock()

	ln.Logger.Debug("produced block", "height", ln.height, "txs", len(txs), "time", blockTime)
	return txs, err
}

// NextBlock produces a block interval after the previous one.
func (ln *LocalNet) NextBlock(interval time.Duration) (tmtypes.Txs, error) {
	ln.mtx.Lock()
	next := ln.blockTime.Add(interval)
	ln.mtx.Unlock()
	return ln.ProduceBlock(next)
}

func (ln *LocalNet) Height() int64 {
	ln.mtx.Lock()
	defer ln.mtx.Unlock()
	return ln.height
}

func (ln *LocalNet) Apps() []*consensus.Application {
	return ln.apps
}

func (ln *LocalNet) Drivers() []*behaviour.Driver {
	return ln.drivers
}

func (ln *LocalNet) Mempool() *mempool.ListMempool {
	return ln.mempool
}

// RoundState returns the active round of the first replica.
func (ln *LocalNet) RoundState() cstypes.RoundState {
	return ln.apps[0].RoundState()
}

//-----------------------------------------------------------------------------

// MempoolBroadcaster hands payload txs to an in-process mempool.
type MempoolBroadcaster struct {
	mem      mempool.Mempool
	senderID uint16
}

var _ behaviour.Broadcaster = (*MempoolBroadcaster)(nil)

func NewMempoolBroadcaster(mem mempool.Mempool, senderID uint16) *MempoolBroadcaster {
	return &MempoolBroadcaster{mem: mem, senderID: senderID}
}

func (mb *MempoolBroadcaster) BroadcastTx(ctx context.Context, tx []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mb.mem.CheckTx(tmtypes.Tx(tx), mempool.TxInfo{SenderID: mb.senderID})
}

// appPreCheck admits txs the application would accept in the active round.
func appPreCheck(app abcitypes.Application) mempool.PreCheckFunc {
	return func(tx tmtypes.Tx) error {
		res := app.CheckTx(abcitypes.RequestCheckTx{Tx: tx})
		if res.Code != consensus.CodeTypeOK {
			return errors.Errorf("code %d: %s", res.Code, res.Log)
		}
		return nil
	}
}
