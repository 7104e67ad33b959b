package types

import (
	"time"

	"github.com/Tanuj-solulab/learning-service-real-estate/types"
)

//-----------------------------------------------------------------------------
// RoundStepType enum type

// RoundStepType enumerates the state of the active round
type RoundStepType uint8

const (
	RoundStepCollect = RoundStepType(0x01) // accepting payloads
	RoundStepFinal   = RoundStepType(0x02) // terminal round, no payloads
)

func (rs RoundStepType) String() string {
	switch rs {
	case RoundStepCollect:
		return "RoundStepCollect"
	case RoundStepFinal:
		return "RoundStepFinal"
	default:
		return "RoundStepUnknown"
	}
}

// RoundState is a snapshot of the active round, for the driver and RPC.
type RoundState struct {
	Height     int64         `json:"height"`
	RoundType  string        `json:"round_type"`
	RoundCount int64         `json:"round_count"`
	Step       RoundStepType `json:"step"`
	StartTime  time.Time     `json:"start_time"`

	Submitted      int `json:"submitted"`
	NbParticipants int `json:"nb_participants"`
	Threshold      int `json:"threshold"`

	// event that ended the previous round
	LastEvent types.Event `json:"last_event"`
}

func (rs RoundState) IsFinal() bool {
	return rs.Step == RoundStepFinal
}
