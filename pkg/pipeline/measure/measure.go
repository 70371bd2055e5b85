// Package measure records how long pipeline steps spend computing and
// waiting on their input.
package measure

import (
	"sync"
)

type DefaultMeasure struct {
	mu    sync.RWMutex
	steps map[string]Metric
}

func NewDefaultMeasure() *DefaultMeasure {
	return &DefaultMeasure{
		steps: make(map[string]Metric),
	}
}

// AddMetric registers a step. Registering a name twice keeps the first metric.
func (m *DefaultMeasure) AddMetric(name string, concurrent int) Metric {
	m.mu.Lock()
	defer m.mu.Unlock()

	if mt, ok := m.steps[name]; ok {
		return mt
	}
	if concurrent < 1 {
		concurrent = 1
	}
	mt := &DefaultMetric{
		allTransports: make(map[string]*transportInfo),
		concurrent:    concurrent,
	}
	m.steps[name] = mt

	return mt
}

// GetMetric returns nil for unknown steps.
func (m *DefaultMeasure) GetMetric(name string) Metric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mt, ok := m.steps[name]
	if !ok {
		return nil
	}

	return mt
}

// AllMetrics returns a snapshot of the registered metrics.
func (m *DefaultMeasure) AllMetrics() map[string]Metric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	res := make(map[string]Metric, len(m.steps))
	for name, mt := range m.steps {
		res[name] = mt
	}

	return res
}

var _ Measure = (*DefaultMeasure)(nil)
