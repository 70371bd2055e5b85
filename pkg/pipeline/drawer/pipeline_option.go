package drawer

import (
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-reduction/pkg/pipeline/measure"
	"github.com/askiada/go-reduction/pkg/pipeline/model"
)

type pipelineDrawer struct {
	Drawer
	m         measure.Measure
	startTime time.Time
}

func (pd *pipelineDrawer) New() error {
	err := pd.AddStep(model.StartStep.Name)
	if err != nil {
		return errors.Wrap(err, "unable to add start step to drawer")
	}
	err = pd.AddStep(model.EndStep.Name)
	if err != nil {
		return errors.Wrap(err, "unable to add end step to drawer")
	}

	return nil
}

func (pd *pipelineDrawer) PrepareStep(parentStep, step *model.StepInfo) error {
	err := pd.AddStep(step.Name)
	if err != nil {
		return err
	}

	return pd.AddLink(parentStep.Name, step.Name)
}

func (pd *pipelineDrawer) PrepareSink(parentStep, step *model.StepInfo) error {
	err := pd.PrepareStep(parentStep, step)
	if err != nil {
		return err
	}

	return pd.AddLink(step.Name, model.EndStep.Name)
}

func (pd *pipelineDrawer) Finish() error {
	if pd.m != nil {
		err := pd.AddMeasure(pd.m)
		if err != nil {
			return errors.Wrap(err, "unable to add measure")
		}
	}
	err := pd.SetTotalTime(model.EndStep.Name, time.Since(pd.startTime))
	if err != nil {
		return errors.Wrap(err, "unable to set total time")
	}

	err = pd.Draw()
	if err != nil {
		return errors.Wrap(err, "unable to draw pipeline")
	}

	return nil
}

func (pd *pipelineDrawer) OnStepOutput(_, _ *model.StepInfo, _, _ time.Duration) error {
	return nil
}

func (pd *pipelineDrawer) OnSinkOutput(_, _ *model.StepInfo, _, _ time.Duration) error {
	return nil
}

func (pd *pipelineDrawer) AfterSink(_ *model.StepInfo, _ time.Duration) error {
	return nil
}

// PipelineDrawer draws the pipeline once it finishes. When measure is not
// nil, its timings label the drawing. Pass the same measure to
// measure.PipelineMeasure ahead of this option.
func PipelineDrawer(drawer Drawer, measure measure.Measure) model.PipelineOption {
	return &pipelineDrawer{drawer, measure, time.Now()}
}
