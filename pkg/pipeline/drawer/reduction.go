package drawer

import (
	"io"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	"gopkg.in/go-playground/colors.v1" //nolint

	"github.com/askiada/go-reduction/pkg/pipeline/model"
	"github.com/askiada/go-reduction/pkg/reduction"
)

// shapeColours fills each node with the colour of the data it produces.
var shapeColours = map[reduction.Shape][3]uint8{
	reduction.ShapeNone:     {211, 211, 211},
	reduction.ShapeDetector: {173, 216, 230},
	reduction.ShapeIQ:       {255, 182, 193},
}

// Reduction writes the assembled steps as a chain from start to end. Nodes are
// named after their role and labelled with the step implementation, edges
// carry the shape flowing between steps.
func Reduction(w io.Writer, steps []*reduction.Step) error {
	d := NewDOTDrawer(w)
	err := d.AddStep(model.StartStep.Name)
	if err != nil {
		return err
	}

	prev := model.StartStep.Name
	shape := reduction.ShapeNone
	for _, step := range steps {
		rgb := shapeColours[step.Output()]
		fill, err := colors.RGB(rgb[0], rgb[1], rgb[2])
		if err != nil {
			return errors.Wrap(err, "unable to get colour")
		}
		name := string(step.Role)
		err = d.AddStep(name,
			graph.VertexAttribute("style", "filled"),
			graph.VertexAttribute("fillcolor", fill.ToHEX().String()),
			graph.VertexAttribute("tooltip", step.Name),
		)
		if err != nil {
			return err
		}
		err = d.AddLink(prev, name, edgeLabel(shape)...)
		if err != nil {
			return err
		}
		if step.Output() != reduction.ShapeNone {
			shape = step.Output()
		}
		prev = name
	}

	err = d.AddStep(model.EndStep.Name)
	if err != nil {
		return err
	}
	err = d.AddLink(prev, model.EndStep.Name, edgeLabel(shape)...)
	if err != nil {
		return err
	}

	return d.Draw()
}

func edgeLabel(shape reduction.Shape) []func(*graph.EdgeProperties) {
	if shape == reduction.ShapeNone {
		return nil
	}

	return []func(*graph.EdgeProperties){graph.EdgeAttribute("label", shape.String())}
}
