package metrics

// NopMetrics discards all metrics. Used when no metrics listener is configured.
type NopMetrics struct{}

// NewNop creates a no-op collector
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// IncrementAutoAllocationCounter discards the allocation.
func (n *NopMetrics) IncrementAutoAllocationCounter() {}

// RecordRun discards the run result.
func (n *NopMetrics) RecordRun(_ string, _ int, _ error) {}
