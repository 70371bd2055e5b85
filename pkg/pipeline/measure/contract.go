package measure

import "time"

// Measure collects one Metric per step.
type Measure interface {
	AddMetric(name string, concurrent int) Metric
	GetMetric(name string) Metric
	AllMetrics() map[string]Metric
}

// Metric accumulates the timings of one step.
type Metric interface {
	AddDuration(elapsed time.Duration)
	AddTransportDuration(inputStepName string, elapsed time.Duration)
	AVGDuration() time.Duration
	AVGTransportDuration() map[string]time.Duration
	SetTotalDuration(endDuration time.Duration)
	GetTotalDuration() time.Duration
	Count() int64
}
