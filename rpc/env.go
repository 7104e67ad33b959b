package rpc

import (
	"github.com/Tanuj-solulab/learning-service-real-estate/behaviour"
	"github.com/Tanuj-solulab/learning-service-real-estate/consensus"
	"github.com/Tanuj-solulab/learning-service-real-estate/libs/metric"
	"github.com/Tanuj-solulab/learning-service-real-estate/state"
)

var (
	env *Environment
)

func SetEnvironment(e *Environment) {
	env = e
}

// Environment contains objects and interfaces used by the RPC.
type Environment struct {
	App         *consensus.Application
	Store       state.Store
	Broadcaster behaviour.Broadcaster

	MetricSet *metric.MetricSet
}
