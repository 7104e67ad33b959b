package consensus

import (
	"github.com/pkg/errors"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/Tanuj-solulab/learning-service-real-estate/state"
	"github.com/Tanuj-solulab/learning-service-real-estate/types"
)

const (
	APICheckRound               = RoundType("api_check_round")
	DecisionMakingRound         = RoundType("decision_making_round")
	TxPreparationRound          = RoundType("tx_preparation_round")
	FinishedDecisionMakingRound = RoundType("finished_decision_making_round")
	FinishedTxPreparationRound  = RoundType("finished_tx_preparation_round")
)

var (
	apiCheckConfig = &CollectSameConfig{
		Type:            APICheckRound,
		PayloadKind:     types.PayloadAPICheck,
		DoneEvent:       types.EventDone,
		NoMajorityEvent: types.EventNoMajority,
		CollectionKey:   state.KeyParticipantToPriceRound,
		SelectionKeys:   []string{state.KeyPrice, state.KeyIPFSHash},
	}

	decisionMakingConfig = &CollectSameConfig{
		Type:            DecisionMakingRound,
		PayloadKind:     types.PayloadDecisionMaking,
		DoneEvent:       types.EventDone,
		NoMajorityEvent: types.EventNoMajority,
		Selector:        selectDecision,
		SelectorEvents:  []types.Event{types.EventDone, types.EventTransact, types.EventError},
	}

	txPreparationConfig = &CollectSameConfig{
		Type:            TxPreparationRound,
		PayloadKind:     types.PayloadTxPreparation,
		DoneEvent:       types.EventDone,
		NoMajorityEvent: types.EventNoMajority,
		CollectionKey:   state.KeyParticipantToTxRound,
		SelectionKeys:   []string{state.KeyTxSubmitter, state.KeyMostVotedTxHash},
		Selector:        selectTxPreparation,
		SelectorEvents:  []types.Event{types.EventDone},
	}
)

// decisionPropertyKeys are the only decision fields merged into the document.
var decisionPropertyKeys = []string{state.KeyPropertyID, state.KeyPropertyValue}

// selectDecision routes on the event carried by the agreed decision and
// merges the selected property. Malformed content routes to ERROR.
func selectDecision(data *state.SynchronizedData, mostVoted types.Payload, _ state.Collection) (*RoundResult, error) {
	payload, ok := mostVoted.(*types.DecisionMakingPayload)
	if !ok {
		return nil, errors.Wrapf(ErrPayloadKindMismatch, "%T", mostVoted)
	}
	event, property, err := types.ParseDecision(payload.Content)
	if err != nil {
		return &RoundResult{Data: data, Event: types.EventError}, nil
	}

	switch event {
	case types.EventDone:
		return &RoundResult{Data: data, Event: types.EventDone}, nil
	case types.EventTransact:
	default:
		return &RoundResult{Data: data, Event: types.EventError}, nil
	}

	update := make(map[string]interface{}, len(decisionPropertyKeys))
	for _, key := range decisionPropertyKeys {
		raw, ok := property[key]
		if !ok {
			return &RoundResult{Data: data, Event: types.EventError}, nil
		}
		update[key] = raw
	}
	next, err := data.Update(update)
	if err != nil {
		return nil, err
	}
	return &RoundResult{Data: next, Event: types.EventTransact}, nil
}

// selectTxPreparation writes the agreed settlement payload. An agreed empty
// payload ends the round with the document unchanged.
func selectTxPreparation(data *state.SynchronizedData, mostVoted types.Payload, collection state.Collection) (*RoundResult, error) {
	payload, ok := mostVoted.(*types.TxPreparationPayload)
	if !ok {
		return nil, errors.Wrapf(ErrPayloadKindMismatch, "%T", mostVoted)
	}
	if payload.IsEmpty() {
		return &RoundResult{Data: data, Event: types.EventDone}, nil
	}
	next, err := data.Update(map[string]interface{}{
		state.KeyParticipantToTxRound: collection,
		state.KeyTxSubmitter:          payload.TxSubmitter,
		state.KeyMostVotedTxHash:      payload.TxHash,
	})
	if err != nil {
		return nil, err
	}
	return &RoundResult{Data: next, Event: types.EventDone}, nil
}

// RoundFactory creates a fresh instance of a round.
type RoundFactory func(data *state.SynchronizedData, count int64, logger log.Logger) (Round, error)

// RoundSpec describes a round of an AbciApp.
type RoundSpec struct {
	New         RoundFactory
	Events      []types.Event
	WrittenKeys []string
}

func collectSameSpec(cfg *CollectSameConfig) *RoundSpec {
	written := make([]string, 0, len(cfg.SelectionKeys)+1)
	if cfg.CollectionKey != "" {
		written = append(written, cfg.CollectionKey)
	}
	written = append(written, cfg.SelectionKeys...)
	return &RoundSpec{
		New: func(data *state.SynchronizedData, count int64, logger log.Logger) (Round, error) {
			return NewCollectSameUntilThresholdRound(cfg, data, count, logger)
		},
		Events:      cfg.possibleEvents(),
		WrittenKeys: written,
	}
}

func degenerateSpec(roundType RoundType) *RoundSpec {
	return &RoundSpec{
		New: func(data *state.SynchronizedData, count int64, _ log.Logger) (Round, error) {
			return NewDegenerateRound(roundType, data, count), nil
		},
	}
}
