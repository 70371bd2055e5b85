// Package pipeline connects processing steps with channels.
//
// A pipeline starts with root steps that produce values, passes them through
// one-to-one steps that may run several goroutines each, and ends in sinks.
// Every step runs in its own goroutine as soon as it is added; Run waits for
// all of them. The first error cancels the whole pipeline and is returned by
// Run prefixed with the name of the failing step.
//
// Options implementing model.PipelineOption observe the pipeline as it is
// built and run. The measure and drawer sub packages provide timings and a
// DOT rendering of the step graph.
package pipeline
