package state

import (
	"time"
)

// MakeGenesisState returns the state before the first block.
func MakeGenesisState(chainID string, setup *SynchronizedData) State {
	return State{
		ChainID: chainID,
		Data:    setup,
		AppHash: setup.Document().Hash(),
	}
}

// State is the application state after the last committed block.
// The synchronized document inside is immutable; Copy is shallow for it.
type State struct {
	ChainID string

	LastBlockHeight int64
	LastBlockTime   time.Time

	// active round when the block was committed
	RoundType  string
	RoundCount int64

	Data    *SynchronizedData
	AppHash []byte
}

func (state *State) Copy() State {
	newState := State{
		ChainID:         state.ChainID,
		LastBlockHeight: state.LastBlockHeight,
		LastBlockTime:   state.LastBlockTime,
		RoundType:       state.RoundType,
		RoundCount:      state.RoundCount,
		Data:            state.Data,
		AppHash:         make([]byte, len(state.AppHash)),
	}
	copy(newState.AppHash, state.AppHash)
	return newState
}

func (state *State) IsEmpty() bool {
	return state.Data == nil
}
