package measure

import (
	"time"

	"github.com/askiada/go-reduction/pkg/pipeline/model"
)

type pipelineMeasure struct {
	Measure
}

func (pm *pipelineMeasure) New() error {
	pm.AddMetric(model.StartStep.Name, 1)
	pm.AddMetric(model.EndStep.Name, 1)

	return nil
}

func (pm *pipelineMeasure) PrepareStep(_, step *model.StepInfo) error {
	pm.AddMetric(step.Name, step.Concurrent)

	return nil
}

func (pm *pipelineMeasure) PrepareSink(_, step *model.StepInfo) error {
	pm.AddMetric(step.Name, step.Concurrent)

	return nil
}

func (pm *pipelineMeasure) Finish() error {
	return nil
}

func (pm *pipelineMeasure) record(parentStep, step *model.StepInfo, iterationDuration, computationDuration time.Duration) {
	mt := pm.GetMetric(step.Name)
	if mt == nil {
		return
	}
	mt.AddDuration(computationDuration)
	mt.AddTransportDuration(parentStep.Name, iterationDuration)
}

func (pm *pipelineMeasure) OnStepOutput(parentStep, step *model.StepInfo, iterationDuration, computationDuration time.Duration) error {
	pm.record(parentStep, step, iterationDuration, computationDuration)

	return nil
}

func (pm *pipelineMeasure) OnSinkOutput(parentStep, step *model.StepInfo, iterationDuration, computationDuration time.Duration) error {
	pm.record(parentStep, step, iterationDuration, computationDuration)

	return nil
}

// AfterSink stores the time from pipeline creation to the sink draining, on
// the sink and on the end step.
func (pm *pipelineMeasure) AfterSink(step *model.StepInfo, totalDuration time.Duration) error {
	if mt := pm.GetMetric(step.Name); mt != nil {
		mt.SetTotalDuration(totalDuration)
	}
	if end := pm.GetMetric(model.EndStep.Name); end != nil && end.GetTotalDuration() < totalDuration {
		end.SetTotalDuration(totalDuration)
	}

	return nil
}

// PipelineMeasure records step timings into measure.
func PipelineMeasure(measure Measure) model.PipelineOption {
	return &pipelineMeasure{measure}
}
