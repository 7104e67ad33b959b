package consensus

import (
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	abcitypes "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/libs/events"
	"github.com/tendermint/tendermint/libs/log"

	cstypes "github.com/Tanuj-solulab/learning-service-real-estate/consensus/types"
	"github.com/Tanuj-solulab/learning-service-real-estate/libs/metric"
	"github.com/Tanuj-solulab/learning-service-real-estate/state"
	"github.com/Tanuj-solulab/learning-service-real-estate/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// EventNewRound is fired on the event switch with a RoundState each time
	// a round instance starts.
	EventNewRound = "NewRound"

	AppVersion uint64 = 1
)

// ABCI response codes
const (
	CodeTypeOK uint32 = iota
	CodeTypeEncodingError
	CodeTypeBadSignature
	CodeTypeStaleRound
	CodeTypeInvalidPayload
	CodeTypeUnknownQuery
)

var (
	ErrStaleRound = errors.New("payload for another round")
)

// Application runs the round machine on top of the replication engine.
// Payloads arrive as signed transactions; EndBlock closes rounds; block time
// drives timeouts.
type Application struct {
	abcitypes.BaseApplication

	mtx    sync.Mutex
	logger log.Logger

	app   *AbciApp
	setup *state.SynchronizedData

	round          Round
	roundStartTime time.Time
	lastEvent      types.Event
	timeouts       *Timeouts

	state     state.State
	height    int64
	blockTime time.Time

	store       state.Store
	eventSwitch events.EventSwitch
	metrics     *Metrics
	csMetric    *consensusMetric
}

type ApplicationOption func(*Application)

func SetStore(store state.Store) ApplicationOption {
	return func(a *Application) {
		a.store = store
	}
}

func SetMetrics(metrics *Metrics) ApplicationOption {
	return func(a *Application) {
		a.metrics = metrics
	}
}

func SetEventSwitch(evsw events.EventSwitch) ApplicationOption {
	return func(a *Application) {
		a.eventSwitch = evsw
	}
}

// SetMetricSet registers the JSON round metric in ms.
func SetMetricSet(ms *metric.MetricSet) ApplicationOption {
	return func(a *Application) {
		if err := ms.SetMetrics(MetricLabel, a.csMetric); err != nil {
			a.logger.Error("failed to register round metric", "err", err)
		}
	}
}

// NewApplication validates the protocol graph and the setup document and
// prepares the initial round. Both checks are fatal configuration errors.
func NewApplication(
	app *AbciApp,
	chainID string,
	setup *state.SynchronizedData,
	logger log.Logger,
	options ...ApplicationOption,
) (*Application, error) {
	if err := app.Validate(); err != nil {
		return nil, err
	}
	if err := app.CheckPreConditions(setup); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	a := &Application{
		logger:      logger,
		app:         app,
		setup:       setup,
		timeouts:    NewTimeouts(),
		state:       state.MakeGenesisState(chainID, setup),
		eventSwitch: events.NewEventSwitch(),
		metrics:     NopMetrics(),
		csMetric:    newConsensusMetric(),
	}
	for _, option := range options {
		option(a)
	}

	round, err := app.NewRound(app.InitialRound, setup, 0, a.logger)
	if err != nil {
		return nil, err
	}
	a.round = round
	return a, nil
}

func (a *Application) SetLogger(logger log.Logger) {
	a.logger = logger
}

func (a *Application) EventSwitch() events.EventSwitch {
	return a.eventSwitch
}

// RoundState returns a snapshot of the active round.
func (a *Application) RoundState() cstypes.RoundState {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	return a.roundStateLocked()
}

// SynchronizedData returns the document the active round works on.
func (a *Application) SynchronizedData() *state.SynchronizedData {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	return a.round.SynchronizedData()
}

// State returns a copy of the last committed state.
func (a *Application) State() state.State {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	return a.state.Copy()
}

func (a *Application) roundStateLocked() cstypes.RoundState {
	rs := a.round.RoundState()
	rs.Height = a.height
	rs.StartTime = a.roundStartTime
	rs.LastEvent = a.lastEvent
	return rs
}

// ---------------------- ABCI ----------------------

// Info reports height 0: the round machine is rebuilt by replaying blocks.
func (a *Application) Info(req abcitypes.RequestInfo) abcitypes.ResponseInfo {
	return abcitypes.ResponseInfo{
		Data:       "learning_abci",
		AppVersion: AppVersion,
	}
}

func (a *Application) InitChain(req abcitypes.RequestInitChain) abcitypes.ResponseInitChain {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	if req.ChainId != "" {
		a.state.ChainID = req.ChainId
	}
	a.blockTime = req.Time
	a.startRound(a.round)
	a.logger.Info("chain initialised", "chain_id", a.state.ChainID, "round", a.round.Type())
	return abcitypes.ResponseInitChain{}
}

func (a *Application) CheckTx(req abcitypes.RequestCheckTx) abcitypes.ResponseCheckTx {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	_, _, code, err := a.validateTx(req.Tx)
	if err != nil {
		return abcitypes.ResponseCheckTx{Code: code, Log: err.Error()}
	}
	return abcitypes.ResponseCheckTx{Code: CodeTypeOK, GasWanted: 1}
}

func (a *Application) BeginBlock(req abcitypes.RequestBeginBlock) abcitypes.ResponseBeginBlock {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	a.height = req.Header.Height
	a.blockTime = req.Header.Time
	a.metrics.Height.Set(float64(a.height))
	a.csMetric.MarkHeight(a.height)

	for {
		ti, ok := a.timeouts.PopExpired(a.blockTime)
		if !ok {
			break
		}
		if ti.RoundCount != a.round.Count() || a.round.IsFinal() {
			continue
		}
		a.logger.Info("round timed out", "round", a.round.Type(), "count", ti.RoundCount, "event", ti.Event)
		a.metrics.Timeouts.Add(1)
		a.transition(a.round.SynchronizedData(), ti.Event)
	}
	return abcitypes.ResponseBeginBlock{}
}

func (a *Application) DeliverTx(req abcitypes.RequestDeliverTx) abcitypes.ResponseDeliverTx {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	tx, payload, code, err := a.validateTx(req.Tx)
	if err == nil {
		err = a.round.ProcessPayload(tx.Sender, payload)
		code = CodeTypeInvalidPayload
	}
	if err != nil {
		a.logger.Info("rejected payload", "round", a.round.Type(), "err", err)
		return abcitypes.ResponseDeliverTx{Code: code, Log: err.Error()}
	}
	a.metrics.Submissions.Set(float64(a.round.RoundState().Submitted))
	return abcitypes.ResponseDeliverTx{Code: CodeTypeOK}
}

func (a *Application) EndBlock(req abcitypes.RequestEndBlock) abcitypes.ResponseEndBlock {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	if a.round.IsFinal() {
		return abcitypes.ResponseEndBlock{}
	}
	result, err := a.round.EndBlock()
	if err != nil {
		// the round stays open until its timeout
		a.logger.Error("failed to end round", "round", a.round.Type(), "err", err)
		return abcitypes.ResponseEndBlock{}
	}
	if result != nil {
		a.transition(result.Data, result.Event)
	}
	return abcitypes.ResponseEndBlock{}
}

func (a *Application) Commit() abcitypes.ResponseCommit {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	data := a.round.SynchronizedData()
	a.state = state.State{
		ChainID:         a.state.ChainID,
		LastBlockHeight: a.height,
		LastBlockTime:   a.blockTime,
		RoundType:       a.round.Type().String(),
		RoundCount:      a.round.Count(),
		Data:            data,
		AppHash:         data.Document().Hash(),
	}
	if a.store != nil {
		if err := a.store.SaveState(a.state); err != nil {
			a.logger.Error("failed to save state", "height", a.height, "err", err)
		}
	}
	return abcitypes.ResponseCommit{Data: a.state.AppHash}
}

// Query serves "/document" (Height selects a committed version) and "/round".
func (a *Application) Query(req abcitypes.RequestQuery) abcitypes.ResponseQuery {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	var (
		bz  []byte
		err error
	)
	switch req.Path {
	case "/document", "document":
		doc := a.round.SynchronizedData().Document()
		if req.Height > 0 && a.store != nil {
			doc, err = a.store.LoadDocument(req.Height)
			if err != nil {
				return abcitypes.ResponseQuery{Code: CodeTypeUnknownQuery, Log: err.Error(), Height: req.Height}
			}
		}
		bz, err = doc.MarshalJSON()
	case "/round", "round":
		bz, err = json.Marshal(a.roundStateLocked())
	default:
		return abcitypes.ResponseQuery{Code: CodeTypeUnknownQuery, Log: "unknown path " + req.Path}
	}
	if err != nil {
		return abcitypes.ResponseQuery{Code: CodeTypeEncodingError, Log: err.Error()}
	}
	return abcitypes.ResponseQuery{Code: CodeTypeOK, Value: bz, Height: a.height}
}

// ---------------------- round machine ----------------------

func (a *Application) validateTx(bz []byte) (*types.Tx, types.Payload, uint32, error) {
	tx, err := types.DecodeTx(bz)
	if err != nil {
		a.rejected("encoding")
		return nil, nil, CodeTypeEncodingError, err
	}
	if err := tx.VerifySignature(); err != nil {
		a.rejected("signature")
		return nil, nil, CodeTypeBadSignature, err
	}
	if tx.RoundCount != a.round.Count() {
		a.rejected("stale_round")
		return nil, nil, CodeTypeStaleRound, errors.Wrapf(ErrStaleRound, "got %d, active %d", tx.RoundCount, a.round.Count())
	}
	payload, err := tx.Payload()
	if err != nil {
		a.rejected("payload")
		return nil, nil, CodeTypeEncodingError, err
	}
	if err := a.round.CheckPayload(tx.Sender, payload); err != nil {
		a.rejected("payload")
		return nil, nil, CodeTypeInvalidPayload, err
	}
	return tx, payload, CodeTypeOK, nil
}

func (a *Application) rejected(reason string) {
	a.metrics.RejectedPayloads.With("reason", reason).Add(1)
	a.csMetric.MarkRejected()
}

// transition ends the active round with event and starts its successor on
// data. The successor is always a fresh instance, also when it has the same
// type.
func (a *Application) transition(data *state.SynchronizedData, event types.Event) {
	current := a.round
	next, ok := a.app.Next(current.Type(), event)
	if !ok {
		a.logger.Error("no transition", "round", current.Type(), "event", event)
		return
	}
	round, err := a.app.NewRound(next, data, current.Count()+1, a.logger)
	if err != nil {
		a.logger.Error("failed to create round", "round", next, "err", err)
		return
	}

	a.metrics.RoundsEnded.With("round_type", current.Type().String(), "event", event.String()).Add(1)
	a.metrics.RoundDuration.Observe(a.blockTime.Sub(a.roundStartTime).Seconds())
	a.csMetric.MarkEvent(event)
	a.lastEvent = event
	a.logger.Info("round ended", "round", current.Type(), "count", current.Count(), "event", event, "next", next)

	a.round = round
	a.timeouts.DropBefore(round.Count())
	a.startRound(round)

	if round.IsFinal() {
		if missing := a.app.CheckPostConditions(next, data); len(missing) > 0 {
			a.logger.Info("final round reached without post-condition keys", "round", next, "missing", missing)
		}
	}
}

func (a *Application) startRound(round Round) {
	a.roundStartTime = a.blockTime
	if !round.IsFinal() {
		for event, d := range a.app.EventToTimeout {
			a.timeouts.Add(a.blockTime.Add(d), event, round.Count())
		}
	}
	a.metrics.RoundCount.Set(float64(round.Count()))
	a.metrics.Submissions.Set(0)
	a.csMetric.MarkRound(round.Type(), round.Count(), a.roundStartTime, round.IsFinal())
	a.eventSwitch.FireEvent(EventNewRound, a.roundStateLocked())
}
