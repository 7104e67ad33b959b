package behaviour

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/tendermint/tendermint/libs/events"
	"github.com/tendermint/tendermint/libs/log"
	"github.com/tendermint/tendermint/libs/service"

	"github.com/Tanuj-solulab/learning-service-real-estate/consensus"
	cstypes "github.com/Tanuj-solulab/learning-service-real-estate/consensus/types"
	"github.com/Tanuj-solulab/learning-service-real-estate/state"
	"github.com/Tanuj-solulab/learning-service-real-estate/types"
)

const (
	driverListenerID = "behaviour-driver"

	DefaultActTimeout = 20 * time.Second
)

var (
	ErrDuplicateBehaviour = errors.New("two behaviours match the same round")
)

// RoundSource is the view of the replicated application the driver needs.
// *consensus.Application implements it.
type RoundSource interface {
	RoundState() cstypes.RoundState
	SynchronizedData() *state.SynchronizedData
	EventSwitch() events.EventSwitch
}

// DriverOption sets an optional parameter on the Driver.
type DriverOption func(*Driver)

func SetBenchmarkTool(bt *BenchmarkTool) DriverOption {
	return func(d *Driver) { d.benchmark = bt }
}

func SetActTimeout(timeout time.Duration) DriverOption {
	return func(d *Driver) { d.actTimeout = timeout }
}

// Driver runs the behaviour matching the active round, once per round
// instance, and submits its payload. It then waits for the round to end.
type Driver struct {
	service.BaseService

	source      RoundSource
	behaviours  map[consensus.RoundType]Behaviour
	privAgent   types.PrivAgent
	broadcaster Broadcaster
	benchmark   *BenchmarkTool
	actTimeout  time.Duration

	mtx       sync.Mutex
	latest    cstypes.RoundState
	hasLatest bool
	newRound  chan struct{}

	// count of the last round instance acted in
	lastActed int64
	waiting   func()
	submitted int

	ctx    context.Context
	cancel context.CancelFunc
}

func NewDriver(
	source RoundSource,
	behaviours []Behaviour,
	privAgent types.PrivAgent,
	broadcaster Broadcaster,
	options ...DriverOption,
) (*Driver, error) {
	d := &Driver{
		source:      source,
		behaviours:  make(map[consensus.RoundType]Behaviour, len(behaviours)),
		privAgent:   privAgent,
		broadcaster: broadcaster,
		benchmark:   NewBenchmarkTool(),
		actTimeout:  DefaultActTimeout,
		newRound:    make(chan struct{}, 1),
		lastActed:   -1,
	}
	for _, b := range behaviours {
		if _, ok := d.behaviours[b.MatchingRound()]; ok {
			return nil, errors.Wrapf(ErrDuplicateBehaviour, "%s", b.MatchingRound())
		}
		d.behaviours[b.MatchingRound()] = b
	}
	d.BaseService = *service.NewBaseService(nil, "Driver", d)
	for _, option := range options {
		option(d)
	}
	return d, nil
}

// SetLogger implements Service.
func (d *Driver) SetLogger(logger log.Logger) {
	d.BaseService.Logger = logger
}

func (d *Driver) BenchmarkTool() *BenchmarkTool {
	return d.benchmark
}

// Submitted returns how many payloads were handed to the broadcaster.
func (d *Driver) Submitted() int {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return d.submitted
}

func (d *Driver) OnStart() error {
	d.ctx, d.cancel = context.WithCancel(context.Background())

	err := d.source.EventSwitch().AddListenerForEvent(driverListenerID, consensus.EventNewRound,
		func(data events.EventData) {
			rs, ok := data.(cstypes.RoundState)
			if !ok {
				return
			}
			d.notify(rs)
		})
	if err != nil {
		return err
	}
	d.notify(d.source.RoundState())

	go d.receiveRoutine()
	d.Logger.Info("behaviour driver started", "behaviours", len(d.behaviours))
	return nil
}

func (d *Driver) OnStop() {
	d.source.EventSwitch().RemoveListener(driverListenerID)
	d.cancel()
}

// notify records rs as the latest round and wakes the receive routine. It
// never blocks, since the event switch calls it inside the application.
func (d *Driver) notify(rs cstypes.RoundState) {
	d.mtx.Lock()
	if !d.hasLatest || rs.RoundCount >= d.latest.RoundCount {
		d.latest, d.hasLatest = rs, true
	}
	d.mtx.Unlock()

	select {
	case d.newRound <- struct{}{}:
	default:
	}
}

func (d *Driver) receiveRoutine() {
	for {
		select {
		case <-d.Quit():
			d.Logger.Info("receiveRoutine quit.")
			return
		case <-d.newRound:
			d.mtx.Lock()
			rs := d.latest
			d.mtx.Unlock()
			d.handleRound(rs)
		}
	}
}

func (d *Driver) handleRound(rs cstypes.RoundState) {
	if rs.RoundCount <= d.lastActed {
		return
	}
	d.endWait()

	if rs.IsFinal() {
		d.Logger.Info("terminal round reached", "round", rs.RoundType, "count", rs.RoundCount)
		d.lastActed = rs.RoundCount
		return
	}
	b, ok := d.behaviours[consensus.RoundType(rs.RoundType)]
	if !ok {
		d.Logger.Error("no behaviour matches round", "round", rs.RoundType)
		return
	}
	d.lastActed = rs.RoundCount

	logger := d.Logger.With("behaviour", b.BehaviourID(), "count", rs.RoundCount)
	measure := d.benchmark.Measure(b.BehaviourID())

	stopLocal := measure.Local()
	ctx, cancel := context.WithTimeout(d.ctx, d.actTimeout)
	defer cancel()
	payload, err := b.AsyncAct(ctx, d.source.SynchronizedData())
	stopLocal()
	if err != nil {
		logger.Error("behaviour failed, not submitting", "err", err)
		return
	}

	if current := d.source.RoundState(); current.RoundCount != rs.RoundCount {
		logger.Info("round ended while acting", "current", current.RoundCount)
		return
	}
	if err := d.submit(ctx, rs.RoundCount, payload); err != nil {
		logger.Error("failed to submit payload", "err", err)
		return
	}
	logger.Info("payload submitted", "kind", payload.Kind())

	d.mtx.Lock()
	d.submitted++
	d.waiting = measure.Consensus()
	d.mtx.Unlock()
}

func (d *Driver) submit(ctx context.Context, count int64, payload types.Payload) error {
	tx, err := types.NewTx(d.privAgent.GetAddress(), count, payload)
	if err != nil {
		return err
	}
	if err := d.privAgent.SignTx(tx); err != nil {
		return err
	}
	bz, err := tx.Bytes()
	if err != nil {
		return err
	}
	return d.broadcaster.BroadcastTx(ctx, bz)
}

// endWait stops the consensus timer of the previous submission.
func (d *Driver) endWait() {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	if d.waiting != nil {
		d.waiting()
		d.waiting = nil
	}
}
