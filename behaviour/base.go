package behaviour

import (
	"context"
	"math/big"
	"strconv"

	"github.com/tendermint/tendermint/libs/log"

	"github.com/Tanuj-solulab/learning-service-real-estate/consensus"
	"github.com/Tanuj-solulab/learning-service-real-estate/contracts"
	"github.com/Tanuj-solulab/learning-service-real-estate/state"
	"github.com/Tanuj-solulab/learning-service-real-estate/store"
	"github.com/Tanuj-solulab/learning-service-real-estate/types"
)

// Behaviour produces the payload of one agent for the round it matches.
// AsyncAct absorbs external failures into sentinel payloads; an error means
// nothing should be submitted.
type Behaviour interface {
	BehaviourID() string
	MatchingRound() consensus.RoundType
	AsyncAct(ctx context.Context, data *state.SynchronizedData) (types.Payload, error)
}

// PriceFeed returns the observed price, or nil when it is unavailable.
type PriceFeed interface {
	GetPrice(ctx context.Context) *float64
}

// Params are the agent parameters the behaviours read.
type Params struct {
	RealEstateContractAddress string
	RealEstateToken           string
	MultisendAddress          string
	ChainID                   string

	// a property is bought when BuyPriceLow < value < BuyPriceHigh
	BuyPriceLow  *big.Int
	BuyPriceHigh *big.Int
}

func (p Params) inBuyRange(value *big.Int) bool {
	return p.BuyPriceLow.Cmp(value) < 0 && value.Cmp(p.BuyPriceHigh) < 0
}

// Context is shared by all behaviours of one agent.
type Context struct {
	AgentAddress types.Address
	Params       Params

	PriceFeed PriceFeed
	Blobs     store.BlobStore
	Contracts contracts.API

	Logger log.Logger
}

func (c *Context) logger() log.Logger {
	if c.Logger == nil {
		return log.NewNopLogger()
	}
	return c.Logger
}

// LearningBehaviours returns the behaviours of the learning app in round
// order.
func LearningBehaviours(c *Context) []Behaviour {
	return []Behaviour{
		NewAPICheckBehaviour(c),
		NewDecisionMakingBehaviour(c),
		NewTxPreparationBehaviour(c),
	}
}

func fmtFloat(f *float64) string {
	if f == nil {
		return "null"
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func fmtString(s *string) string {
	if s == nil {
		return "null"
	}
	return *s
}
