package node

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	abciserver "github.com/tendermint/tendermint/abci/server"
	tmcfg "github.com/tendermint/tendermint/config"
	"github.com/tendermint/tendermint/libs/log"
	"github.com/tendermint/tendermint/libs/service"
	nm "github.com/tendermint/tendermint/node"
	"github.com/tendermint/tendermint/p2p"
	tmprivval "github.com/tendermint/tendermint/privval"
	"github.com/tendermint/tendermint/proxy"
	rpclocal "github.com/tendermint/tendermint/rpc/client/local"
	rpcserver "github.com/tendermint/tendermint/rpc/jsonrpc/server"
	tmdb "github.com/tendermint/tm-db"

	"github.com/Tanuj-solulab/learning-service-real-estate/behaviour"
	"github.com/Tanuj-solulab/learning-service-real-estate/config"
	"github.com/Tanuj-solulab/learning-service-real-estate/consensus"
	"github.com/Tanuj-solulab/learning-service-real-estate/contracts"
	"github.com/Tanuj-solulab/learning-service-real-estate/libs/metric"
	"github.com/Tanuj-solulab/learning-service-real-estate/pricefeed"
	"github.com/Tanuj-solulab/learning-service-real-estate/privval"
	"github.com/Tanuj-solulab/learning-service-real-estate/rpc"
	"github.com/Tanuj-solulab/learning-service-real-estate/state"
	"github.com/Tanuj-solulab/learning-service-real-estate/store"
	"github.com/Tanuj-solulab/learning-service-real-estate/types"
)

const dialTimeout = 10 * time.Second

// Provider takes a config and a logger and returns a ready to go Node.
type Provider func(*config.Config, *tmcfg.Config, log.Logger) (*Node, error)

// DefaultNewNode returns a node for the agent whose key is in
// config.AgentKeyFile(), generating the key on first use.
func DefaultNewNode(conf *config.Config, tmConf *tmcfg.Config, logger log.Logger) (*Node, error) {
	pv, err := privval.LoadOrGenFilePV(conf.AgentKeyFile())
	if err != nil {
		return nil, err
	}
	return NewNode(conf, tmConf, pv, logger)
}

// Node is one agent: the replicated application, the replication engine (in
// process, or reached through an ABCI socket) and the behaviour driver.
type Node struct {
	service.BaseService

	// config
	config   *config.Config
	tmConfig *tmcfg.Config

	privAgent *privval.FilePV

	// storage
	stateStore  *store.KVStore
	blobs       store.BlobStore
	redisClient *goredis.Client

	// services
	ledgerClient *ethclient.Client
	app          *consensus.Application
	tmNode       *nm.Node
	abciServer   service.Service
	broadcaster  behaviour.Broadcaster
	wsBroadcast  *behaviour.WSBroadcaster
	driver       *behaviour.Driver

	metricSet   *metric.MetricSet
	rpcListener net.Listener
}

// NewNode wires an agent. tmConf is only read in embedded mode.
func NewNode(conf *config.Config, tmConf *tmcfg.Config, pv *privval.FilePV, logger log.Logger) (*Node, error) {
	if err := conf.ValidateBasic(); err != nil {
		return nil, err
	}

	n := &Node{
		config:    conf,
		tmConfig:  tmConf,
		privAgent: pv,
		metricSet: metric.NewMetricSet(),
	}
	n.BaseService = *service.NewBaseService(logger, "Node", n)

	setup, err := MakeSetupData(conf.Params)
	if err != nil {
		return nil, err
	}
	if !isParticipant(setup, pv.GetAddress()) {
		logger.Error("agent is not listed in all_participants, its payloads will be rejected", "address", pv.GetAddress())
	}
	if blobsUnreachable(conf) {
		logger.Error("blob backend is local to this agent, peers can't read the snapshots it agrees on",
			"backend", conf.Blob.Backend)
	}

	if err := n.createStores(logger); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	ledger, client, err := contracts.DialLedger(ctx, conf.Ledger.RPCAddress, logger.With("module", "contracts"))
	if err != nil {
		return nil, err
	}
	n.ledgerClient = client

	var appMetrics *consensus.Metrics
	if conf.RPC.Prometheus {
		appMetrics = consensus.PrometheusMetrics(conf.RPC.Namespace, "chain_id", conf.Params.ChainID)
	} else {
		appMetrics = consensus.NopMetrics()
	}
	n.app, err = consensus.NewApplication(
		consensus.NewLearningAbciApp(conf.Params.RoundTimeout),
		"",
		setup,
		logger.With("module", "consensus"),
		consensus.SetStore(n.stateStore),
		consensus.SetMetrics(appMetrics),
		consensus.SetMetricSet(n.metricSet),
	)
	if err != nil {
		return nil, err
	}

	switch conf.ABCI {
	case config.ABCIEmbedded:
		if err := n.createTendermintNode(logger.With("module", "tendermint")); err != nil {
			return nil, err
		}
		n.broadcaster = behaviour.NewClientBroadcaster(rpclocal.New(n.tmNode))
	case config.ABCISocket:
		n.abciServer, err = abciserver.NewServer(conf.ProxyApp, "socket", n.app)
		if err != nil {
			return nil, err
		}
		n.abciServer.SetLogger(logger.With("module", "abci-server"))
		n.wsBroadcast = behaviour.NewWSBroadcaster(conf.TendermintRPC)
		n.wsBroadcast.SetLogger(logger.With("module", "broadcast"))
		n.broadcaster = n.wsBroadcast
	}

	low, high, err := conf.Params.BuyRange()
	if err != nil {
		return nil, err
	}
	bctx := &behaviour.Context{
		AgentAddress: pv.GetAddress(),
		Params: behaviour.Params{
			RealEstateContractAddress: conf.Params.RealEstateContractAddress,
			RealEstateToken:           conf.Params.RealEstateToken,
			MultisendAddress:          conf.Params.MultisendAddress,
			ChainID:                   conf.Params.ChainID,
			BuyPriceLow:               low,
			BuyPriceHigh:              high,
		},
		PriceFeed: pricefeed.NewClient(
			conf.Params.PriceTemplate,
			conf.Params.PriceAPIKey,
			logger.With("module", "pricefeed"),
			pricefeed.WithJSONPath(conf.Params.PriceJSONPath),
		),
		Blobs:     n.blobs,
		Contracts: ledger,
		Logger:    logger.With("module", "behaviour"),
	}

	bench := behaviour.NewBenchmarkTool()
	if err := n.metricSet.SetMetrics(behaviour.BenchmarkLabel, bench); err != nil {
		return nil, err
	}
	n.driver, err = behaviour.NewDriver(n.app, behaviour.LearningBehaviours(bctx), pv, n.broadcaster,
		behaviour.SetBenchmarkTool(bench))
	if err != nil {
		return nil, err
	}
	n.driver.SetLogger(logger.With("module", "driver"))

	rpc.SetEnvironment(&rpc.Environment{
		App:         n.app,
		Store:       n.stateStore,
		Broadcaster: n.broadcaster,
		MetricSet:   n.metricSet,
	})
	return n, nil
}

func (n *Node) createStores(logger log.Logger) error {
	var err error
	if n.config.DBBackend == string(tmdb.MemDBBackend) {
		n.stateStore = store.NewKVStoreWithDB(tmdb.NewMemDB(), logger.With("module", "store"))
	} else {
		n.stateStore, err = store.NewKVStore("agent", n.config.DBDir(), logger.With("module", "store"))
		if err != nil {
			return err
		}
	}

	switch n.config.Blob.Backend {
	case config.BlobBackendRedis:
		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		defer cancel()
		n.redisClient, err = store.NewRedisClient(ctx, n.config.Blob.RedisAddress)
		if err != nil {
			return err
		}
		n.blobs = store.NewRedisBlobStore(n.redisClient, n.config.Blob.RedisTTL)
	default:
		n.blobs = n.stateStore.Blobs()
	}
	return nil
}

func (n *Node) createTendermintNode(logger log.Logger) error {
	if n.tmConfig == nil {
		return errors.New("embedded mode needs a tendermint config")
	}
	nodeKey, err := p2p.LoadOrGenNodeKey(n.tmConfig.NodeKeyFile())
	if err != nil {
		return errors.Wrap(err, "failed to load or gen node key")
	}
	n.tmNode, err = nm.NewNode(
		n.tmConfig,
		tmprivval.LoadOrGenFilePV(n.tmConfig.PrivValidatorKeyFile(), n.tmConfig.PrivValidatorStateFile()),
		nodeKey,
		proxy.NewLocalClientCreator(n.app),
		nm.DefaultGenesisDocProviderFunc(n.tmConfig),
		nm.DefaultDBProvider,
		nm.DefaultMetricsProvider(n.tmConfig.Instrumentation),
		logger,
	)
	return err
}

// MakeSetupData builds the document the first round starts from.
func MakeSetupData(params *config.ParamsConfig) (*state.SynchronizedData, error) {
	raw, err := params.Participants()
	if err != nil {
		return nil, err
	}
	participants, err := types.ParseAddresses(raw)
	if err != nil {
		return nil, err
	}
	safe, err := types.NewAddress(params.SafeContractAddress)
	if err != nil {
		return nil, err
	}
	return state.MakeSetupData(participants, safe, params.ConsensusThreshold)
}

// blobsUnreachable is true when several agents share the setup but the
// snapshot store is not shared between them.
func blobsUnreachable(conf *config.Config) bool {
	participants, err := conf.Params.Participants()
	return err == nil && len(participants) > 1 && !conf.Blob.Shared()
}

func isParticipant(data *state.SynchronizedData, addr types.Address) bool {
	all, err := data.AllParticipants()
	if err != nil {
		return false
	}
	for _, p := range all {
		if p.Equal(addr) {
			return true
		}
	}
	return false
}

func (n *Node) OnStart() error {
	// the application must be served before the driver submits anything
	if n.tmNode != nil {
		if err := n.tmNode.Start(); err != nil {
			return err
		}
	}
	if n.abciServer != nil {
		if err := n.abciServer.Start(); err != nil {
			return err
		}
	}
	if n.wsBroadcast != nil {
		if err := n.wsBroadcast.Start(); err != nil {
			return err
		}
	}

	if err := n.startRPC(); err != nil {
		return err
	}
	if err := n.driver.Start(); err != nil {
		return err
	}
	n.Logger.Info("agent started", "address", n.privAgent.GetAddress(), "abci", n.config.ABCI)
	return nil
}

func (n *Node) OnStop() {
	if err := n.driver.Stop(); err != nil {
		n.Logger.Error("Error stopping driver", "err", err)
	}
	if n.wsBroadcast != nil {
		n.wsBroadcast.Stop()
	}
	if n.abciServer != nil {
		if err := n.abciServer.Stop(); err != nil {
			n.Logger.Error("Error stopping abci server", "err", err)
		}
	}
	if n.tmNode != nil {
		if err := n.tmNode.Stop(); err != nil {
			n.Logger.Error("Error stopping tendermint", "err", err)
		}
		n.tmNode.Wait()
	}
	if n.rpcListener != nil {
		if err := n.rpcListener.Close(); err != nil {
			n.Logger.Error("Error closing RPC listener", "err", err)
		}
	}
	if n.redisClient != nil {
		n.redisClient.Close()
	}
	if n.ledgerClient != nil {
		n.ledgerClient.Close()
	}
	if err := n.stateStore.Close(); err != nil {
		n.Logger.Error("Error closing store", "err", err)
	}
}

func (n *Node) startRPC() error {
	rpcLogger := n.Logger.With("module", "rpc-server")
	mux := http.NewServeMux()
	wm := rpcserver.NewWebsocketManager(rpc.Routes)
	wm.SetLogger(rpcLogger.With("protocol", "websocket"))
	mux.HandleFunc("/websocket", wm.WebsocketHandler)
	rpcserver.RegisterRPCFuncs(mux, rpc.Routes, rpcLogger)
	if n.config.RPC.Prometheus {
		mux.Handle("/metrics", promhttp.Handler())
	}

	rpcConfig := rpcserver.DefaultConfig()
	listener, err := rpcserver.Listen(n.config.RPC.ListenAddress, rpcConfig)
	if err != nil {
		return err
	}
	n.rpcListener = listener
	go func() {
		if err := rpcserver.Serve(listener, mux, rpcLogger, rpcConfig); err != nil &&
			!strings.Contains(err.Error(), "use of closed network connection") {
			rpcLogger.Error("Error serving RPC", "err", err)
		}
	}()
	return nil
}

func (n *Node) Application() *consensus.Application {
	return n.app
}

func (n *Node) Driver() *behaviour.Driver {
	return n.driver
}

func (n *Node) MetricSet() *metric.MetricSet {
	return n.metricSet
}

func (n *Node) PrivAgent() *privval.FilePV {
	return n.privAgent
}

// RPCAddress returns the address the agent RPC listens on, once started.
func (n *Node) RPCAddress() string {
	if n.rpcListener == nil {
		return ""
	}
	return n.rpcListener.Addr().String()
}
