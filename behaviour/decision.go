package behaviour

import (
	"context"

	"github.com/Tanuj-solulab/learning-service-real-estate/consensus"
	"github.com/Tanuj-solulab/learning-service-real-estate/state"
	"github.com/Tanuj-solulab/learning-service-real-estate/types"
)

const DecisionMakingBehaviourID = "decision_making_behaviour"

// DecisionMakingBehaviour picks the first snapshotted property whose value
// lies strictly inside the buy range.
type DecisionMakingBehaviour struct {
	*Context
}

var _ Behaviour = (*DecisionMakingBehaviour)(nil)

func NewDecisionMakingBehaviour(c *Context) *DecisionMakingBehaviour {
	return &DecisionMakingBehaviour{Context: c}
}

func (b *DecisionMakingBehaviour) BehaviourID() string { return DecisionMakingBehaviourID }
func (b *DecisionMakingBehaviour) MatchingRound() consensus.RoundType {
	return consensus.DecisionMakingRound
}

func (b *DecisionMakingBehaviour) AsyncAct(ctx context.Context, data *state.SynchronizedData) (types.Payload, error) {
	event, property := b.decide(ctx, data)
	b.logger().Info("decision", "event", event, "property", property)
	return types.NewDecisionMakingPayload(event, property)
}

func (b *DecisionMakingBehaviour) decide(ctx context.Context, data *state.SynchronizedData) (types.Event, map[string]interface{}) {
	logger := b.logger()
	hash := data.IPFSHash()
	if hash == nil {
		logger.Info("no property snapshot agreed, holding")
		return types.EventDone, nil
	}

	var listing types.PropertyListing
	if err := b.Blobs.Get(ctx, *hash, &listing); err != nil {
		logger.Error("failed to read property snapshot", "hash", *hash, "err", err)
		return types.EventDone, nil
	}

	logger.Debug("buying range", "low", b.Params.BuyPriceLow, "high", b.Params.BuyPriceHigh)
	for _, property := range listing.Properties {
		value, err := property.Value()
		if err != nil {
			logger.Error("skipping malformed property", "err", err)
			continue
		}
		if !b.Params.inBuyRange(value) {
			continue
		}
		id, err := property.ID()
		if err != nil {
			continue
		}
		raw, _ := property.RawValue()
		return types.EventTransact, map[string]interface{}{
			state.KeyPropertyID:    id,
			state.KeyPropertyValue: raw,
		}
	}

	logger.Info("no property within the buying range, holding")
	return types.EventDone, nil
}
