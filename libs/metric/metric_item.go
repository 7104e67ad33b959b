package metric

// MetricItem is the JSON view of one module's metrics. Every module that
// serves metrics over RPC registers one item under its own label.
type MetricItem interface {
	JSONString() string
}

type mockMetricItem struct {
	name string
}

func (mock *mockMetricItem) JSONString() string {
	return mock.name
}
