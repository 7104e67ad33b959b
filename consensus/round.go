package consensus

import (
	"github.com/pkg/errors"
	"github.com/tendermint/tendermint/libs/log"

	cstypes "github.com/Tanuj-solulab/learning-service-real-estate/consensus/types"
	"github.com/Tanuj-solulab/learning-service-real-estate/state"
	"github.com/Tanuj-solulab/learning-service-real-estate/types"
)

var (
	ErrPayloadKindMismatch = errors.New("payload kind does not match round")
	ErrDegenerateRound     = errors.New("final round accepts no payloads")
)

// RoundType names a round of the application.
type RoundType string

func (rt RoundType) String() string {
	return string(rt)
}

// RoundResult is what a round emits when it ends.
type RoundResult struct {
	Data  *state.SynchronizedData
	Event types.Event
}

// Round is one phase of the protocol. Rounds have no timers: timeouts are
// injected by the application from block time.
type Round interface {
	Type() RoundType
	Count() int64
	PayloadKind() types.PayloadKind
	IsFinal() bool

	SynchronizedData() *state.SynchronizedData

	// CheckPayload validates a payload without recording it.
	CheckPayload(sender types.Address, payload types.Payload) error

	// ProcessPayload records a payload. Identical resubmissions are no-ops.
	ProcessPayload(sender types.Address, payload types.Payload) error

	// EndBlock returns a result once the round is decided, nil otherwise.
	EndBlock() (*RoundResult, error)

	// PossibleEvents lists every event EndBlock can emit.
	PossibleEvents() []types.Event

	// RoundState returns a snapshot for observers.
	RoundState() cstypes.RoundState
}

// Selector turns the most voted payload into the next document and event.
type Selector func(data *state.SynchronizedData, mostVoted types.Payload, collection state.Collection) (*RoundResult, error)

// CollectSameConfig describes a collect-same-until-threshold round.
type CollectSameConfig struct {
	Type        RoundType
	PayloadKind types.PayloadKind

	DoneEvent       types.Event
	NoMajorityEvent types.Event

	// CollectionKey stores every submission; empty skips it.
	CollectionKey string
	// SelectionKeys are zipped with the most voted payload's attributes.
	SelectionKeys []string

	// Selector replaces the default selection; it must list the events it
	// may emit in SelectorEvents.
	Selector       Selector
	SelectorEvents []types.Event
}

func (cfg *CollectSameConfig) possibleEvents() []types.Event {
	events := []types.Event{cfg.DoneEvent, cfg.NoMajorityEvent}
	for _, e := range cfg.SelectorEvents {
		if !containsEvent(events, e) {
			events = append(events, e)
		}
	}
	return events
}

// CollectSameUntilThresholdRound ends when ceil(2n/3) participants sent the
// same payload, or when no payload can reach that count anymore.
type CollectSameUntilThresholdRound struct {
	cfg   *CollectSameConfig
	count int64
	data  *state.SynchronizedData

	collection *cstypes.PayloadCollection
	threshold  int

	logger log.Logger
}

var _ Round = (*CollectSameUntilThresholdRound)(nil)

func NewCollectSameUntilThresholdRound(
	cfg *CollectSameConfig,
	data *state.SynchronizedData,
	count int64,
	logger log.Logger,
) (*CollectSameUntilThresholdRound, error) {
	participants, err := data.Participants()
	if err != nil {
		return nil, errors.Wrapf(err, "round %s", cfg.Type)
	}
	threshold, err := data.ConsensusThreshold()
	if err != nil {
		return nil, errors.Wrapf(err, "round %s", cfg.Type)
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &CollectSameUntilThresholdRound{
		cfg:        cfg,
		count:      count,
		data:       data,
		collection: cstypes.NewPayloadCollection(participants),
		threshold:  threshold,
		logger:     logger.With("round", cfg.Type, "count", count),
	}, nil
}

func (r *CollectSameUntilThresholdRound) Type() RoundType                { return r.cfg.Type }
func (r *CollectSameUntilThresholdRound) Count() int64                   { return r.count }
func (r *CollectSameUntilThresholdRound) PayloadKind() types.PayloadKind { return r.cfg.PayloadKind }
func (r *CollectSameUntilThresholdRound) IsFinal() bool                  { return false }
func (r *CollectSameUntilThresholdRound) Threshold() int                 { return r.threshold }

func (r *CollectSameUntilThresholdRound) SynchronizedData() *state.SynchronizedData {
	return r.data
}

func (r *CollectSameUntilThresholdRound) PossibleEvents() []types.Event {
	return r.cfg.possibleEvents()
}

func (r *CollectSameUntilThresholdRound) CheckPayload(sender types.Address, payload types.Payload) error {
	if payload.Kind() != r.cfg.PayloadKind {
		return errors.Wrapf(ErrPayloadKindMismatch, "round %s expects %s, got %s", r.cfg.Type, r.cfg.PayloadKind, payload.Kind())
	}
	_, err := r.collection.Check(sender, payload)
	return err
}

func (r *CollectSameUntilThresholdRound) ProcessPayload(sender types.Address, payload types.Payload) error {
	if err := r.CheckPayload(sender, payload); err != nil {
		return err
	}
	added, err := r.collection.Add(sender, payload)
	if err != nil {
		return err
	}
	if !added {
		r.logger.Debug("ignored duplicate payload", "sender", sender)
		return nil
	}
	r.logger.Debug("added payload", "sender", sender, "submitted", r.collection.Len())
	return nil
}

func (r *CollectSameUntilThresholdRound) IsThresholdReached() bool {
	return r.collection.IsThresholdReached(r.threshold)
}

func (r *CollectSameUntilThresholdRound) IsMajorityPossible() bool {
	return r.collection.IsMajorityPossible(r.threshold)
}

func (r *CollectSameUntilThresholdRound) MostVotedPayload() types.Payload {
	p, _ := r.collection.MostVoted()
	return p
}

func (r *CollectSameUntilThresholdRound) EndBlock() (*RoundResult, error) {
	if r.IsThresholdReached() {
		mostVoted := r.MostVotedPayload()
		if r.cfg.Selector != nil {
			return r.cfg.Selector(r.data, mostVoted, r.collection.Collection())
		}
		return r.selectMostVoted(mostVoted)
	}
	if !r.IsMajorityPossible() {
		return &RoundResult{Data: r.data, Event: r.cfg.NoMajorityEvent}, nil
	}
	return nil, nil
}

func (r *CollectSameUntilThresholdRound) selectMostVoted(mostVoted types.Payload) (*RoundResult, error) {
	attrs := mostVoted.Attributes()
	if len(attrs) != len(r.cfg.SelectionKeys) {
		return nil, errors.Errorf("round %s: %d selection keys for %d attributes", r.cfg.Type, len(r.cfg.SelectionKeys), len(attrs))
	}
	update := make(map[string]interface{}, len(attrs)+1)
	if r.cfg.CollectionKey != "" {
		update[r.cfg.CollectionKey] = r.collection.Collection()
	}
	for i, key := range r.cfg.SelectionKeys {
		update[key] = attrs[i]
	}
	data, err := r.data.Update(update)
	if err != nil {
		return nil, err
	}
	return &RoundResult{Data: data, Event: r.cfg.DoneEvent}, nil
}

func (r *CollectSameUntilThresholdRound) RoundState() cstypes.RoundState {
	return cstypes.RoundState{
		RoundType:      r.cfg.Type.String(),
		RoundCount:     r.count,
		Step:           cstypes.RoundStepCollect,
		Submitted:      r.collection.Len(),
		NbParticipants: r.collection.NbParticipants(),
		Threshold:      r.threshold,
	}
}

// DegenerateRound is a terminal round.
type DegenerateRound struct {
	roundType RoundType
	count     int64
	data      *state.SynchronizedData
}

var _ Round = (*DegenerateRound)(nil)

func NewDegenerateRound(roundType RoundType, data *state.SynchronizedData, count int64) *DegenerateRound {
	return &DegenerateRound{roundType: roundType, count: count, data: data}
}

func (r *DegenerateRound) Type() RoundType                           { return r.roundType }
func (r *DegenerateRound) Count() int64                              { return r.count }
func (r *DegenerateRound) PayloadKind() types.PayloadKind            { return "" }
func (r *DegenerateRound) IsFinal() bool                             { return true }
func (r *DegenerateRound) SynchronizedData() *state.SynchronizedData { return r.data }
func (r *DegenerateRound) PossibleEvents() []types.Event             { return nil }
func (r *DegenerateRound) EndBlock() (*RoundResult, error)           { return nil, nil }

func (r *DegenerateRound) CheckPayload(sender types.Address, payload types.Payload) error {
	return errors.Wrapf(ErrDegenerateRound, "%s", r.roundType)
}

func (r *DegenerateRound) ProcessPayload(sender types.Address, payload types.Payload) error {
	return r.CheckPayload(sender, payload)
}

func (r *DegenerateRound) RoundState() cstypes.RoundState {
	return cstypes.RoundState{
		RoundType:  r.roundType.String(),
		RoundCount: r.count,
		Step:       cstypes.RoundStepFinal,
	}
}

func containsEvent(events []types.Event, e types.Event) bool {
	for _, known := range events {
		if known == e {
			return true
		}
	}
	return false
}
