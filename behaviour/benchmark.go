package behaviour

import (
	"sort"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	metrics "github.com/rcrowley/go-metrics"
)

// BenchmarkLabel is the label of the benchmark tool in the node's MetricSet.
const BenchmarkLabel = "behaviours"

const (
	localSuffix     = ".local"
	consensusSuffix = ".consensus"

	sampleSize = 1028
)

// BenchmarkTool times every behaviour twice: the local act and the wait for
// the round it submitted to end.
type BenchmarkTool struct {
	registry metrics.Registry
}

func NewBenchmarkTool() *BenchmarkTool {
	return &BenchmarkTool{registry: metrics.NewRegistry()}
}

// Measurement holds the durations of one behaviour, in nanoseconds. No
// timers here: a go-metrics timer starts a meter goroutine that never exits.
type Measurement struct {
	local     metrics.Histogram
	consensus metrics.Histogram
}

func (bt *BenchmarkTool) Measure(behaviourID string) *Measurement {
	return &Measurement{
		local:     bt.histogram(behaviourID + localSuffix),
		consensus: bt.histogram(behaviourID + consensusSuffix),
	}
}

func (bt *BenchmarkTool) histogram(name string) metrics.Histogram {
	return bt.registry.GetOrRegister(name, func() metrics.Histogram {
		return metrics.NewHistogram(metrics.NewUniformSample(sampleSize))
	}).(metrics.Histogram)
}

// Local starts timing the act; call the returned func when it is done.
func (m *Measurement) Local() func() {
	start := time.Now()
	return func() { m.local.Update(int64(time.Since(start))) }
}

// Consensus starts timing the wait for the round end.
func (m *Measurement) Consensus() func() {
	start := time.Now()
	return func() { m.consensus.Update(int64(time.Since(start))) }
}

// BenchmarkItem summarises one timer, durations in seconds.
type BenchmarkItem struct {
	Count int64   `json:"count"`
	Mean  float64 `json:"mean"`
	Max   float64 `json:"max"`
}

// Data returns behaviour id -> "local"/"consensus" -> summary.
func (bt *BenchmarkTool) Data() map[string]map[string]BenchmarkItem {
	out := make(map[string]map[string]BenchmarkItem)
	bt.registry.Each(func(name string, i interface{}) {
		hist, ok := i.(metrics.Histogram)
		if !ok {
			return
		}
		var id, kind string
		switch {
		case strings.HasSuffix(name, localSuffix):
			id, kind = strings.TrimSuffix(name, localSuffix), "local"
		case strings.HasSuffix(name, consensusSuffix):
			id, kind = strings.TrimSuffix(name, consensusSuffix), "consensus"
		default:
			return
		}
		snap := hist.Snapshot()
		if out[id] == nil {
			out[id] = make(map[string]BenchmarkItem)
		}
		out[id][kind] = BenchmarkItem{
			Count: snap.Count(),
			Mean:  snap.Mean() / float64(time.Second),
			Max:   float64(snap.Max()) / float64(time.Second),
		}
	})
	return out
}

// BehaviourIDs lists the measured behaviours.
func (bt *BenchmarkTool) BehaviourIDs() []string {
	data := bt.Data()
	ids := make([]string, 0, len(data))
	for id := range data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (bt *BenchmarkTool) JSONString() string {
	s, _ := jsoniter.MarshalToString(bt.Data())
	return s
}
