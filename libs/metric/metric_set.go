package metric

import (
	"sort"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var (
	ErrMetricLabelExist = errors.New("metric label already exist")
)

func NewMetricSet() *MetricSet {
	return &MetricSet{
		metrics: make(map[string]MetricItem),
	}
}

type MetricSet struct {
	mtx     sync.RWMutex
	metrics map[string]MetricItem
}

// SetMetrics registers item under label. A label can be registered once.
func (ms *MetricSet) SetMetrics(label string, item MetricItem) error {
	ms.mtx.Lock()
	defer ms.mtx.Unlock()

	if _, existed := ms.metrics[label]; existed {
		return errors.Wrapf(ErrMetricLabelExist, "%s", label)
	}
	ms.metrics[label] = item
	return nil
}

func (ms *MetricSet) HasMetrics(label string) bool {
	ms.mtx.RLock()
	_, existed := ms.metrics[label]
	ms.mtx.RUnlock()
	return existed
}

func (ms *MetricSet) GetMetrics(label string) MetricItem {
	ms.mtx.RLock()
	defer ms.mtx.RUnlock()
	return ms.metrics[label]
}

// GetAlllabels returns the registered labels in order.
func (ms *MetricSet) GetAlllabels() []string {
	ms.mtx.RLock()
	keys := make([]string, 0, len(ms.metrics))
	for k := range ms.metrics {
		keys = append(keys, k)
	}
	ms.mtx.RUnlock()

	sort.Strings(keys)
	return keys
}

func (ms *MetricSet) GetAllMetrics() []MetricItem {
	labels := ms.GetAlllabels()

	ms.mtx.RLock()
	defer ms.mtx.RUnlock()
	vals := make([]MetricItem, 0, len(labels))
	for _, label := range labels {
		vals = append(vals, ms.metrics[label])
	}
	return vals
}

// Snapshot returns every item keyed by label, each as raw JSON.
func (ms *MetricSet) Snapshot() map[string]jsoniter.RawMessage {
	ms.mtx.RLock()
	defer ms.mtx.RUnlock()

	out := make(map[string]jsoniter.RawMessage, len(ms.metrics))
	for label, item := range ms.metrics {
		s := item.JSONString()
		if !jsoniter.Valid([]byte(s)) {
			s, _ = jsoniter.MarshalToString(s)
		}
		out[label] = jsoniter.RawMessage(s)
	}
	return out
}
