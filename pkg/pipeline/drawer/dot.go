package drawer

import (
	"fmt"
	"io"
	"os"
	"slices"
	"text/template"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	"gopkg.in/go-playground/colors.v1" //nolint

	"github.com/askiada/go-reduction/internal/store"
	"github.com/askiada/go-reduction/pkg/pipeline/measure"
)

const xlabel = "xlabel"

// DOTDrawer writes a graphviz description of the steps. Nodes and edges are
// written in name order so the output is stable between runs.
type DOTDrawer struct {
	graph graph.Graph[string, string]
	store store.CustomStore[string, string]
	open  func() (io.WriteCloser, error)
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

func newDOTDrawer(open func() (io.WriteCloser, error)) *DOTDrawer {
	st := store.NewMemoryStore[string, string]()

	return &DOTDrawer{
		graph: graph.NewWithStore(graph.StringHash, st, graph.Directed()),
		store: st,
		open:  open,
	}
}

// NewDOTDrawer returns a drawer writing to w.
func NewDOTDrawer(w io.Writer) *DOTDrawer {
	return newDOTDrawer(func() (io.WriteCloser, error) {
		return nopCloser{w}, nil
	})
}

// NewFileDrawer returns a drawer that creates fileName on Draw.
func NewFileDrawer(fileName string) *DOTDrawer {
	return newDOTDrawer(func() (io.WriteCloser, error) {
		file, err := os.Create(fileName)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to create file %s", fileName)
		}

		return file, nil
	})
}

func (d *DOTDrawer) AddStep(name string, options ...func(*graph.VertexProperties)) error {
	err := d.graph.AddVertex(name, options...)
	if err != nil {
		return errors.Wrapf(err, "unable to add vertex %s", name)
	}

	return nil
}

func (d *DOTDrawer) AddLink(parentName, childName string, options ...func(*graph.EdgeProperties)) error {
	err := d.graph.AddEdge(parentName, childName, options...)
	if err != nil {
		return errors.Wrapf(err, "unable to add edge from %s to %s", parentName, childName)
	}

	return nil
}

func (d *DOTDrawer) SetTotalTime(stepName string, total time.Duration) error {
	err := d.store.UpdateVertex(stepName, graph.VertexAttribute(xlabel, total.String()))
	if err != nil {
		return errors.Wrapf(err, "unable to label vertex %s", stepName)
	}

	return nil
}

func (d *DOTDrawer) Draw() error {
	wrt, err := d.open()
	if err != nil {
		return err
	}

	err = dot(d.graph, wrt)
	if err != nil {
		_ = wrt.Close()

		return errors.Wrap(err, "unable to write dot description")
	}

	return errors.Wrap(wrt.Close(), "unable to close dot output")
}

const maxRGB = 240

// durationColours maps each duration to a colour between blue for the
// fastest and red for the slowest.
func durationColours(durations []time.Duration) (map[time.Duration]string, error) {
	res := make(map[time.Duration]string, len(durations))
	if len(durations) == 0 {
		return res, nil
	}
	minValue, maxValue := slices.Min(durations), slices.Max(durations)
	for _, curr := range durations {
		fraction := 1.0
		if maxValue > minValue {
			fraction = float64(curr-minValue) / float64(maxValue-minValue)
		}
		red := maxRGB * fraction
		colour, err := colors.RGB(uint8(red), 0, uint8(maxRGB-red))
		if err != nil {
			return nil, errors.Wrap(err, "unable to get colour")
		}
		res[curr] = colour.ToHEX().String()
	}

	return res, nil
}

// AddMeasure labels each step with its average computation time and each
// link with its average transport time, coloured by how slow it is.
func (d *DOTDrawer) AddMeasure(msr measure.Measure) error {
	metrics := msr.AllMetrics()
	durations := []time.Duration{}
	for _, mt := range metrics {
		for _, elapsed := range mt.AVGTransportDuration() {
			if elapsed > 0 {
				durations = append(durations, elapsed)
			}
		}
	}
	palette, err := durationColours(durations)
	if err != nil {
		return err
	}

	for name, mt := range metrics {
		label := ""
		if avg := mt.AVGDuration(); avg != 0 {
			label = avg.String()
		}
		if total := mt.GetTotalDuration(); total > 0 {
			if label != "" {
				label += ", "
			}
			label += "end: " + total.String()
		}
		if label != "" {
			err := d.store.UpdateVertex(name, graph.VertexAttribute(xlabel, label))
			if err != nil {
				return errors.Wrapf(err, "unable to label vertex %s", name)
			}
		}

		for inputStep, elapsed := range mt.AVGTransportDuration() {
			if elapsed == 0 {
				continue
			}
			err := d.graph.UpdateEdge(inputStep, name,
				graph.EdgeAttribute("label", elapsed.String()),
				graph.EdgeAttribute("fontcolor", "blue"),
				graph.EdgeAttribute("color", palette[elapsed]),
			)
			if err != nil {
				return errors.Wrapf(err, "unable to update edge from %s to %s", inputStep, name)
			}
		}
	}

	return nil
}

//nolint:lll //this is a template
const dotTemplate = `strict {{.GraphType}} {
{{- range $k, $v := .Attributes}}
	{{$k}}="{{$v}}";
{{- end}}
{{- range $s := .Statements}}
	"{{.Source}}" {{if .Target}}{{$.EdgeOperator}} "{{.Target}}" [ {{range $k, $v := .EdgeAttributes}}{{$k}}="{{$v}}", {{end}}weight={{.EdgeWeight}} ]{{else}}[ {{range $k, $v := .HTMLAttributes}}{{$k}}={{$v}}, {{end}}{{range $k, $v := .SourceAttributes}}{{$k}}="{{$v}}", {{end}}weight={{.SourceWeight}} ]{{end}};
{{- end}}
}
`

type description struct {
	GraphType    string
	Attributes   map[string]string
	EdgeOperator string
	Statements   []statement
}

type statement struct {
	Source           string
	Target           string
	SourceAttributes map[string]string
	HTMLAttributes   map[string]string
	EdgeAttributes   map[string]string
	SourceWeight     int
	EdgeWeight       int
}

// GraphAttribute sets a graph level DOT attribute.
func GraphAttribute(key, value string) func(*description) {
	return func(d *description) {
		d.Attributes[key] = value
	}
}

func dot(g graph.Graph[string, string], wrt io.Writer, options ...func(*description)) error {
	desc, err := generateDOT(g, options...)
	if err != nil {
		return errors.Wrap(err, "failed to generate DOT description")
	}

	return renderDOT(wrt, desc)
}

func generateDOT(gra graph.Graph[string, string], options ...func(*description)) (description, error) {
	desc := description{
		GraphType:    "graph",
		Attributes:   make(map[string]string),
		EdgeOperator: "--",
		Statements:   make([]statement, 0),
	}
	for _, option := range options {
		option(&desc)
	}
	if gra.Traits().IsDirected {
		desc.GraphType = "digraph"
		desc.EdgeOperator = "->"
	}

	adjacencyMap, err := gra.AdjacencyMap()
	if err != nil {
		return desc, errors.Wrap(err, "unable to get adjacency map")
	}
	vertices := make([]string, 0, len(adjacencyMap))
	for vertex := range adjacencyMap {
		vertices = append(vertices, vertex)
	}
	slices.Sort(vertices)

	for _, vertex := range vertices {
		_, props, err := gra.VertexWithProperties(vertex)
		if err != nil {
			return desc, errors.Wrap(err, "unable to get vertex properties")
		}

		attributes := make(map[string]string, len(props.Attributes))
		htmlAttributes := make(map[string]string)
		for k, v := range props.Attributes {
			if k == xlabel {
				htmlAttributes["label"] = fmt.Sprintf(`<%s <BR /> <FONT POINT-SIZE="12">%s</FONT>>`, vertex, v)

				continue
			}
			attributes[k] = v
		}
		desc.Statements = append(desc.Statements, statement{
			Source:           vertex,
			SourceWeight:     props.Weight,
			SourceAttributes: attributes,
			HTMLAttributes:   htmlAttributes,
		})

		targets := make([]string, 0, len(adjacencyMap[vertex]))
		for target := range adjacencyMap[vertex] {
			targets = append(targets, target)
		}
		slices.Sort(targets)
		for _, target := range targets {
			edge := adjacencyMap[vertex][target]
			desc.Statements = append(desc.Statements, statement{
				Source:         vertex,
				Target:         target,
				EdgeWeight:     edge.Properties.Weight,
				EdgeAttributes: edge.Properties.Attributes,
			})
		}
	}

	return desc, nil
}

func renderDOT(wrt io.Writer, desc description) error {
	tpl, err := template.New("dotTemplate").Parse(dotTemplate)
	if err != nil {
		return errors.Wrap(err, "failed to parse template")
	}

	err = tpl.Execute(wrt, desc)
	if err != nil {
		return errors.Wrap(err, "unable to execute template")
	}

	return nil
}

var _ Drawer = (*DOTDrawer)(nil)
