package consensus

import (
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/Tanuj-solulab/learning-service-real-estate/state"
	"github.com/Tanuj-solulab/learning-service-real-estate/types"
)

var (
	ErrInvalidTransitionTable = errors.New("invalid transition table")
	ErrPreConditionViolated   = errors.New("pre-condition violated")
	ErrUnknownRound           = errors.New("unknown round")
)

const DefaultRoundTimeout = 30 * time.Second

// TransitionFunction maps a round and the event it emitted to the next round.
type TransitionFunction map[RoundType]map[types.Event]RoundType

// AbciApp is the static protocol graph of the application.
type AbciApp struct {
	InitialRound  RoundType
	InitialStates []RoundType
	FinalStates   []RoundType
	Transitions   TransitionFunction

	// EventToTimeout lists the events injected when a round outlives the
	// given block-time duration.
	EventToTimeout map[types.Event]time.Duration

	// PreConditions are keys that must not exist when an initial round
	// starts; PostConditions are keys a final round must find written.
	PreConditions  map[RoundType][]string
	PostConditions map[RoundType][]string

	CrossPeriodPersistedKeys []string

	Rounds map[RoundType]*RoundSpec
}

// NewLearningAbciApp returns the real estate buying protocol.
func NewLearningAbciApp(roundTimeout time.Duration) *AbciApp {
	if roundTimeout <= 0 {
		roundTimeout = DefaultRoundTimeout
	}
	decision := collectSameSpec(decisionMakingConfig)
	decision.WrittenKeys = decisionPropertyKeys

	return &AbciApp{
		InitialRound:  APICheckRound,
		InitialStates: []RoundType{APICheckRound},
		FinalStates:   []RoundType{FinishedDecisionMakingRound, FinishedTxPreparationRound},
		Transitions: TransitionFunction{
			APICheckRound: {
				types.EventNoMajority:   APICheckRound,
				types.EventRoundTimeout: APICheckRound,
				types.EventDone:         DecisionMakingRound,
			},
			DecisionMakingRound: {
				types.EventNoMajority:   DecisionMakingRound,
				types.EventRoundTimeout: DecisionMakingRound,
				types.EventDone:         FinishedDecisionMakingRound,
				types.EventError:        FinishedDecisionMakingRound,
				types.EventTransact:     TxPreparationRound,
			},
			TxPreparationRound: {
				types.EventNoMajority:   TxPreparationRound,
				types.EventRoundTimeout: TxPreparationRound,
				types.EventDone:         FinishedTxPreparationRound,
			},
			FinishedDecisionMakingRound: {},
			FinishedTxPreparationRound:  {},
		},
		EventToTimeout: map[types.Event]time.Duration{
			types.EventRoundTimeout: roundTimeout,
		},
		PreConditions: map[RoundType][]string{
			APICheckRound: {},
		},
		PostConditions: map[RoundType][]string{
			FinishedDecisionMakingRound: {},
			FinishedTxPreparationRound:  {state.KeyMostVotedTxHash},
		},
		Rounds: map[RoundType]*RoundSpec{
			APICheckRound:               collectSameSpec(apiCheckConfig),
			DecisionMakingRound:         decision,
			TxPreparationRound:          collectSameSpec(txPreparationConfig),
			FinishedDecisionMakingRound: degenerateSpec(FinishedDecisionMakingRound),
			FinishedTxPreparationRound:  degenerateSpec(FinishedTxPreparationRound),
		},
	}
}

func (app *AbciApp) IsFinal(rt RoundType) bool {
	return containsRound(app.FinalStates, rt)
}

// Next looks up the successor of rt on event.
func (app *AbciApp) Next(rt RoundType, event types.Event) (RoundType, bool) {
	next, ok := app.Transitions[rt][event]
	return next, ok
}

// NewRound instantiates rt.
func (app *AbciApp) NewRound(rt RoundType, data *state.SynchronizedData, count int64, logger log.Logger) (Round, error) {
	spec, ok := app.Rounds[rt]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownRound, "%s", rt)
	}
	return spec.New(data, count, logger)
}

// Validate checks the protocol graph. Any error is a configuration error.
func (app *AbciApp) Validate() error {
	fail := func(format string, args ...interface{}) error {
		return errors.Wrapf(ErrInvalidTransitionTable, format, args...)
	}

	if !containsRound(app.InitialStates, app.InitialRound) {
		return fail("initial round %s is not an initial state", app.InitialRound)
	}
	for _, rt := range append(append([]RoundType{}, app.InitialStates...), app.FinalStates...) {
		if _, ok := app.Transitions[rt]; !ok {
			return fail("round %s has no transition row", rt)
		}
	}

	for _, rt := range app.sortedRounds() {
		row := app.Transitions[rt]
		spec, ok := app.Rounds[rt]
		if !ok || spec.New == nil {
			return fail("round %s has no factory", rt)
		}

		for event, target := range row {
			if _, ok := app.Transitions[target]; !ok {
				return fail("round %s routes %s to unknown round %s", rt, event, target)
			}
		}

		if app.IsFinal(rt) {
			if len(row) != 0 {
				return fail("final round %s has outgoing transitions", rt)
			}
			continue
		}
		if len(row) == 0 {
			return fail("round %s is not final but has no transitions", rt)
		}
		for _, required := range []types.Event{types.EventDone, types.EventNoMajority, types.EventRoundTimeout} {
			if _, ok := row[required]; !ok {
				return fail("round %s has no transition for %s", rt, required)
			}
		}
		for _, event := range spec.Events {
			if _, ok := row[event]; !ok {
				return fail("round %s can emit %s but has no transition for it", rt, event)
			}
		}
		for event := range row {
			_, isTimeout := app.EventToTimeout[event]
			if !containsEvent(spec.Events, event) && !isTimeout {
				return fail("round %s never emits %s", rt, event)
			}
		}
	}

	for rt := range app.Rounds {
		if _, ok := app.Transitions[rt]; !ok {
			return fail("round %s is not in the transition function", rt)
		}
	}

	if err := app.validateReachability(); err != nil {
		return err
	}
	return app.validateConditions()
}

func (app *AbciApp) validateReachability() error {
	seen := map[RoundType]bool{}
	queue := append([]RoundType{}, app.InitialStates...)
	for len(queue) > 0 {
		rt := queue[0]
		queue = queue[1:]
		if seen[rt] {
			continue
		}
		seen[rt] = true
		for _, next := range app.Transitions[rt] {
			queue = append(queue, next)
		}
	}
	for _, rt := range app.sortedRounds() {
		if !seen[rt] {
			return errors.Wrapf(ErrInvalidTransitionTable, "round %s is unreachable", rt)
		}
	}
	return nil
}

func (app *AbciApp) validateConditions() error {
	for _, rt := range app.InitialStates {
		if _, ok := app.PreConditions[rt]; !ok {
			return errors.Wrapf(ErrInvalidTransitionTable, "initial round %s has no pre-conditions entry", rt)
		}
	}
	for _, rt := range app.FinalStates {
		if _, ok := app.PostConditions[rt]; !ok {
			return errors.Wrapf(ErrInvalidTransitionTable, "final round %s has no post-conditions entry", rt)
		}
	}

	written := map[string]bool{}
	for _, spec := range app.Rounds {
		for _, key := range spec.WrittenKeys {
			written[key] = true
		}
	}
	pre := map[string]bool{}
	for _, keys := range app.PreConditions {
		for _, key := range keys {
			pre[key] = true
		}
	}
	for rt, keys := range app.PostConditions {
		if !app.IsFinal(rt) {
			return errors.Wrapf(ErrInvalidTransitionTable, "post-conditions for non final round %s", rt)
		}
		for _, key := range keys {
			if pre[key] {
				return errors.Wrapf(ErrInvalidTransitionTable, "key %q is both a pre- and a post-condition", key)
			}
			if !written[key] {
				return errors.Wrapf(ErrInvalidTransitionTable, "post-condition %q of %s is written by no round", key, rt)
			}
		}
	}
	return nil
}

// CheckPreConditions verifies that the setup document does not carry any
// key the initial round is supposed to produce.
func (app *AbciApp) CheckPreConditions(data *state.SynchronizedData) error {
	for _, key := range app.PreConditions[app.InitialRound] {
		if data.Document().Has(key) {
			return errors.Wrapf(ErrPreConditionViolated, "key %q already set before %s", key, app.InitialRound)
		}
	}
	return nil
}

// CheckPostConditions reports keys a final round expected but did not find.
func (app *AbciApp) CheckPostConditions(rt RoundType, data *state.SynchronizedData) []string {
	var missing []string
	for _, key := range app.PostConditions[rt] {
		if !data.Document().Has(key) {
			missing = append(missing, key)
		}
	}
	return missing
}

func (app *AbciApp) sortedRounds() []RoundType {
	rounds := make([]RoundType, 0, len(app.Transitions))
	for rt := range app.Transitions {
		rounds = append(rounds, rt)
	}
	sort.Slice(rounds, func(i, j int) bool { return rounds[i] < rounds[j] })
	return rounds
}

func containsRound(rounds []RoundType, rt RoundType) bool {
	for _, r := range rounds {
		if r == rt {
			return true
		}
	}
	return false
}
