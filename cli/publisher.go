package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/santiagomed/assetpipe/core"
	"github.com/santiagomed/assetpipe/logger"
)

var (
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFBA08"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	faintStyle = lipgloss.NewStyle().Faint(true)
	nameStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
)

// ConsolePublisher prints one line per step event.
type ConsolePublisher struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsolePublisher(out io.Writer) *ConsolePublisher {
	return &ConsolePublisher{out: out}
}

func (p *ConsolePublisher) StepStarted(step core.StepType) {
	p.printf("%s %s\n", faintStyle.Render("•"), faintStyle.Render(step.String()))
}

func (p *ConsolePublisher) PublishStep(result core.StepResult) {
	switch result.Status {
	case core.StatusWarned:
		p.printf("%s %s: %v\n", warnStyle.Render("!"), result.Step, result.Err)
	default:
		p.printf("%s %s %s\n", okStyle.Render("✓"), result.Step, faintStyle.Render(result.Duration.Round(time.Millisecond).String()))
	}
}

func (p *ConsolePublisher) Error(step core.StepType, err error) {
	p.printf("%s %s\n", errorStyle.Render("✗"), errorStyle.Render(err.Error()))
}

func (p *ConsolePublisher) printf(format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

// CliStepPublisher forwards step events over channels to the progress view.
type CliStepPublisher struct {
	startChan chan core.StepType
	stepChan  chan core.StepResult
	errorChan chan stepErrorMsg
	done      chan struct{}
	closeOnce sync.Once
	logger    logger.Logger
}

func NewCliStepPublisher(logger logger.Logger) *CliStepPublisher {
	return &CliStepPublisher{
		startChan: make(chan core.StepType, 100),
		stepChan:  make(chan core.StepResult, 100),
		errorChan: make(chan stepErrorMsg, 10),
		done:      make(chan struct{}),
		logger:    logger,
	}
}

func (p *CliStepPublisher) StepStarted(step core.StepType) {
	select {
	case p.startChan <- step:
	default:
		p.logger.Warn(fmt.Sprintf("Failed to publish start of step: %v. Channel full.", step))
	}
}

func (p *CliStepPublisher) PublishStep(result core.StepResult) {
	select {
	case p.stepChan <- result:
		p.logger.Debug(fmt.Sprintf("Successfully published step: %v", result.Step))
	default:
		p.logger.Warn(fmt.Sprintf("Failed to publish step: %v. Channel full.", result.Step))
	}
}

func (p *CliStepPublisher) Error(step core.StepType, err error) {
	select {
	case p.errorChan <- stepErrorMsg{step: step, err: err}:
		p.logger.Debug(fmt.Sprintf("Successfully published error for step: %v", step))
	default:
		p.logger.Warn(fmt.Sprintf("Failed to publish error for step: %v. Channel full.", step))
	}
}

// Close stops listeners once the run is over.
func (p *CliStepPublisher) Close() {
	p.closeOnce.Do(func() { close(p.done) })
}
