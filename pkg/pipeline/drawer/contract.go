package drawer

import (
	"time"

	"github.com/dominikbraun/graph"

	"github.com/askiada/go-reduction/pkg/pipeline/measure"
)

// Drawer renders a graph of steps.
type Drawer interface {
	// AddStep adds a step. Options set DOT attributes on the step node.
	AddStep(name string, options ...func(*graph.VertexProperties)) error
	// AddLink adds a link from parent to child.
	AddLink(parentName, childName string, options ...func(*graph.EdgeProperties)) error
	// SetTotalTime labels the step with the time it took to finish.
	SetTotalTime(stepName string, total time.Duration) error
	// AddMeasure labels steps and links with the timings in measure.
	AddMeasure(measure measure.Measure) error
	// Draw writes the graph.
	Draw() error
}
