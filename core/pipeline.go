package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/santiagomed/assetpipe/logger"

	"golang.org/x/sync/errgroup"
)

type Status int

const (
	StatusSucceeded Status = iota
	StatusWarned
	StatusFailed
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusWarned:
		return "warned"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// StepResult is the explicit outcome of one step.
type StepResult struct {
	Step     StepType
	Kind     Kind
	Stage    string
	Status   Status
	Duration time.Duration
	// Err is set for warned and failed steps.
	Err error
}

// Report collects step outcomes in stage order.
type Report struct {
	Results []StepResult
}

// Result returns the outcome recorded for step t.
func (r *Report) Result(t StepType) (StepResult, bool) {
	for _, res := range r.Results {
		if res.Step == t {
			return res, true
		}
	}
	return StepResult{}, false
}

func (r *Report) filter(status Status) []StepResult {
	var out []StepResult
	for _, res := range r.Results {
		if res.Status == status {
			out = append(out, res)
		}
	}
	return out
}

func (r *Report) Failed() []StepResult   { return r.filter(StatusFailed) }
func (r *Report) Warnings() []StepResult { return r.filter(StatusWarned) }

// Err joins the errors of all failed steps, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, res.Err)
	}
	return errors.Join(errs...)
}

type StepPublisher interface {
	StepStarted(step StepType)
	PublishStep(result StepResult)
	Error(step StepType, err error)
}

type DefaultStepPublisher struct{}

func (p *DefaultStepPublisher) StepStarted(step StepType) {}

func (p *DefaultStepPublisher) PublishStep(result StepResult) {}

func (p *DefaultStepPublisher) Error(step StepType, err error) {}

// Pipeline runs a Graph stage by stage. Steps of one stage run concurrently;
// a stage starts only once every step of the previous stage has finished, and
// a failed stage stops the run.
type Pipeline struct {
	graph       *Graph
	state       *State
	publisher   StepPublisher
	concurrency int
}

func NewPipeline(g *Graph, state *State, pub StepPublisher) *Pipeline {
	if pub == nil {
		pub = &DefaultStepPublisher{}
	}
	if state.Logger == nil {
		state.Logger = logger.NewNullLogger()
	}
	return &Pipeline{graph: g, state: state, publisher: pub}
}

// SetConcurrency caps the number of steps of a stage running at once.
// Zero or less means no cap.
func (p *Pipeline) SetConcurrency(n int) {
	p.concurrency = n
}

// Execute runs every stage in order. The returned report always covers every
// step of the graph; steps of stages that never started are skipped. The
// error is the joined *StepError of the failed stage or the context error.
func (p *Pipeline) Execute(ctx context.Context) (*Report, error) {
	log := p.state.Logger
	report := &Report{}
	log.Info("Starting pipeline execution")

	for i, stage := range p.graph.Stages {
		if err := ctx.Err(); err != nil {
			log.Info("Pipeline execution cancelled")
			p.skip(report, p.graph.Stages[i:])
			return report, err
		}

		log.Debug(fmt.Sprintf("Starting stage %s with %d steps", stage.Name, len(stage.Steps)))
		startTime := time.Now()
		results := p.runStage(ctx, stage)
		report.Results = append(report.Results, results...)

		// Earlier stages all succeeded, so the report only fails on this one.
		if err := report.Err(); err != nil {
			log.Error(fmt.Sprintf("Stage %s failed, aborting remaining stages", stage.Name))
			p.skip(report, p.graph.Stages[i+1:])
			return report, err
		}
		log.Debug(fmt.Sprintf("Stage %s completed in %v", stage.Name, time.Since(startTime)))
	}

	log.Info("Pipeline execution completed")
	return report, nil
}

func (p *Pipeline) runStage(ctx context.Context, stage Stage) []StepResult {
	results := make([]StepResult, len(stage.Steps))

	var g errgroup.Group
	if p.concurrency > 0 {
		g.SetLimit(p.concurrency)
	}
	for i, step := range stage.Steps {
		g.Go(func() error {
			results[i] = p.runStep(ctx, stage.Name, step)
			return nil
		})
	}
	// Failures are carried in the results; siblings are never cancelled.
	_ = g.Wait()
	return results
}

func (p *Pipeline) runStep(ctx context.Context, stageName string, step Step) StepResult {
	stepType := step.Type()
	state := *p.state
	state.Logger = p.state.Logger.WithField("step", stepType.String())

	p.publisher.StepStarted(stepType)
	state.Logger.Debug(fmt.Sprintf("Executing %s step", step.Kind()))

	startTime := time.Now()
	err := step.Execute(ctx, &state)
	result := StepResult{
		Step:     stepType,
		Kind:     step.Kind(),
		Stage:    stageName,
		Duration: time.Since(startTime),
	}

	switch {
	case err == nil:
		result.Status = StatusSucceeded
		state.Logger.Debug(fmt.Sprintf("Step %v completed in %v", stepType, result.Duration))
		p.publisher.PublishStep(result)
	case errors.Is(err, ErrSourceNotFound) && p.graph.IsOptional(stepType):
		result.Status = StatusWarned
		result.Err = asStepError(step, err)
		state.Logger.Warn(fmt.Sprintf("Skipping optional step: %v", result.Err))
		p.publisher.PublishStep(result)
	default:
		result.Status = StatusFailed
		result.Err = asStepError(step, err)
		state.Logger.Error(fmt.Sprintf("Error executing step %v: %v", stepType, result.Err))
		p.publisher.Error(stepType, result.Err)
	}
	return result
}

func (p *Pipeline) skip(report *Report, stages []Stage) {
	for _, stage := range stages {
		for _, step := range stage.Steps {
			report.Results = append(report.Results, StepResult{
				Step:   step.Type(),
				Kind:   step.Kind(),
				Stage:  stage.Name,
				Status: StatusSkipped,
			})
		}
	}
}
