package consensus

import (
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/Tanuj-solulab/learning-service-real-estate/types"
)

// MetricLabel is the label of the round metric in the node's MetricSet.
const MetricLabel = "rounds"

func newConsensusMetric() *consensusMetric {
	return &consensusMetric{
		Events: make(map[string]int64),
	}
}

// consensusMetric is the JSON view of the round machine served over RPC.
type consensusMetric struct {
	mtx sync.RWMutex

	Height         int64     `json:"height"`
	RoundType      string    `json:"current_round"`
	RoundCount     int64     `json:"current_round_count"`
	RoundStartTime time.Time `json:"round_start_time"`
	LastEvent      string    `json:"last_event"`
	IsFinal        bool      `json:"is_final"`

	Events   map[string]int64 `json:"events"`
	Rejected int64            `json:"rejected_payloads"`
	Timeouts int64            `json:"timeouts"`
}

func (cm *consensusMetric) JSONString() string {
	cm.mtx.RLock()
	defer cm.mtx.RUnlock()
	s, _ := jsoniter.MarshalToString(cm)
	return s
}

func (cm *consensusMetric) MarkHeight(height int64) {
	cm.mtx.Lock()
	defer cm.mtx.Unlock()
	cm.Height = height
}

func (cm *consensusMetric) MarkRound(roundType RoundType, count int64, start time.Time, final bool) {
	cm.mtx.Lock()
	defer cm.mtx.Unlock()
	cm.RoundType = roundType.String()
	cm.RoundCount = count
	cm.RoundStartTime = start
	cm.IsFinal = final
}

func (cm *consensusMetric) MarkEvent(event types.Event) {
	cm.mtx.Lock()
	defer cm.mtx.Unlock()
	cm.LastEvent = event.String()
	cm.Events[event.String()]++
	if event == types.EventRoundTimeout {
		cm.Timeouts++
	}
}

func (cm *consensusMetric) MarkRejected() {
	cm.mtx.Lock()
	defer cm.mtx.Unlock()
	cm.Rejected++
}
