package behaviour

import (
	"context"

	"github.com/Tanuj-solulab/learning-service-real-estate/consensus"
	"github.com/Tanuj-solulab/learning-service-real-estate/contracts"
	"github.com/Tanuj-solulab/learning-service-real-estate/state"
	"github.com/Tanuj-solulab/learning-service-real-estate/types"
)

const (
	APICheckBehaviourID = "api_check_behaviour"

	propertiesForSaleKey = "Properties for sale: "
)

// APICheckBehaviour observes the token price and snapshots the properties
// listed for sale into the blob store.
type APICheckBehaviour struct {
	*Context
}

var _ Behaviour = (*APICheckBehaviour)(nil)

func NewAPICheckBehaviour(c *Context) *APICheckBehaviour {
	return &APICheckBehaviour{Context: c}
}

func (b *APICheckBehaviour) BehaviourID() string                { return APICheckBehaviourID }
func (b *APICheckBehaviour) MatchingRound() consensus.RoundType { return consensus.APICheckRound }

func (b *APICheckBehaviour) AsyncAct(ctx context.Context, data *state.SynchronizedData) (types.Payload, error) {
	price := b.PriceFeed.GetPrice(ctx)
	ipfsHash := b.snapshotProperties(ctx)

	b.logger().Info("observation", "price", fmtFloat(price), "ipfs_hash", fmtString(ipfsHash))
	return types.NewAPICheckPayload(price, ipfsHash), nil
}

// snapshotProperties stores the listed properties and returns the blob hash,
// or nil if either the contract read or the upload failed.
func (b *APICheckBehaviour) snapshotProperties(ctx context.Context) *string {
	logger := b.logger()
	res, err := b.Contracts.GetResponse(ctx, contracts.Request{
		Performative:    contracts.GetState,
		ContractID:      contracts.RealEstateSolution,
		ContractAddress: b.Params.RealEstateContractAddress,
		Callable:        contracts.GetPropertiesForSale,
		ChainID:         b.Params.ChainID,
	})
	if err != nil {
		logger.Error("failed to read properties for sale", "err", err)
		return nil
	}
	if res.Performative != contracts.State {
		logger.Error("unexpected response to get_properties_for_sale",
			"want", contracts.State, "got", res.Performative, "body", res.Body)
		return nil
	}
	properties, ok := res.Body[contracts.BodyData]
	if !ok {
		logger.Error("properties response has no data")
		return nil
	}

	hash, err := b.Blobs.Put(ctx, types.ListedPropertiesFile, map[string]interface{}{
		propertiesForSaleKey: properties,
	})
	if err != nil {
		logger.Error("failed to store property snapshot", "err", err)
		return nil
	}
	return &hash
}
