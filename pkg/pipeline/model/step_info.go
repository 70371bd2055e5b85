package model

type StepType string

const (
	RootStepType   StepType = "root"
	NormalStepType StepType = "step"
	SinkStepType   StepType = "sink"
)

// StepInfo describes a step to the pipeline options.
type StepInfo struct {
	Type       StepType
	Name       string
	Concurrent int
}

// StartStep and EndStep bound every pipeline. Root steps hang off StartStep
// and sinks feed EndStep.
var (
	StartStep = &StepInfo{Name: "start"}
	EndStep   = &StepInfo{Name: "end"}
)

// Step is the output side of a pipeline stage.
type Step[O any] struct {
	Output chan O
	// KeepOpen leaves Output open when the step returns, the caller closes it.
	KeepOpen bool
	Details  *StepInfo
}
