package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/list"
	"github.com/santiagomed/assetpipe/core"
	"github.com/santiagomed/assetpipe/logger"
)

type stepState int

const (
	pending stepState = iota
	running
	succeeded
	warned
	failed
	skipped
)

type stepErrorMsg struct {
	step core.StepType
	err  error
}

type runFinishedMsg struct {
	report *core.Report
	err    error
}

type progressModel struct {
	spinner     spinner.Model
	steps       []core.StepType
	states      map[core.StepType]stepState
	publisher   *CliStepPublisher
	run         tea.Cmd
	cancel      context.CancelFunc
	report      *core.Report
	err         error
	interrupted bool
	logger      logger.Logger
}

func newProgressModel(ctx context.Context, engine *Engine, steps []core.StepType, l logger.Logger) (progressModel, error) {
	plan, err := engine.Plan(steps...)
	if err != nil {
		return progressModel{}, err
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("202"))

	publisher := NewCliStepPublisher(l)
	runCtx, cancel := context.WithCancel(ctx)

	m := progressModel{
		spinner:   s,
		steps:     plan.Steps(),
		states:    make(map[core.StepType]stepState),
		publisher: publisher,
		cancel:    cancel,
		logger:    l,
	}
	m.run = func() tea.Msg {
		defer publisher.Close()
		report, err := engine.Run(runCtx, publisher, steps...)
		return runFinishedMsg{report: report, err: err}
	}
	return m, nil
}

func (m progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.run, m.listenForNextStep)
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			m.logger.Debug("User interrupted the build")
			m.interrupted = true
			m.cancel()
		}
		return m, nil
	case core.StepType:
		m.states[msg] = running
		return m, m.listenForNextStep
	case core.StepResult:
		if msg.Status == core.StatusWarned {
			m.states[msg.Step] = warned
		} else {
			m.states[msg.Step] = succeeded
		}
		return m, m.listenForNextStep
	case stepErrorMsg:
		m.states[msg.step] = failed
		return m, m.listenForNextStep
	case runFinishedMsg:
		m.report, m.err = msg.report, msg.err
		if m.report != nil {
			for _, step := range m.steps {
				if res, ok := m.report.Result(step); ok {
					m.states[step] = stateOf(res.Status)
				}
			}
		}
		m.cancel()
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m progressModel) View() string {
	enumerator := func(l list.Items, i int) string {
		switch m.states[m.steps[i]] {
		case running:
			return m.spinner.View()
		case succeeded:
			return okStyle.Render("✓")
		case warned:
			return warnStyle.Render("!")
		case failed:
			return errorStyle.Render("✗")
		case skipped:
			return faintStyle.Render("-")
		default:
			return faintStyle.Render("·")
		}
	}

	l := list.New().Enumerator(enumerator)
	for _, step := range m.steps {
		l.Item(step.String())
	}

	out := fmt.Sprint(l) + "\n"
	if m.interrupted && m.report == nil {
		out += faintStyle.Render("Interrupted. Waiting for running steps...") + "\n"
	}
	return out
}

// listenForNextStep turns the next publisher event into a message. It returns
// nil once the run is over.
func (m progressModel) listenForNextStep() tea.Msg {
	select {
	case step := <-m.publisher.startChan:
		return step
	case result := <-m.publisher.stepChan:
		return result
	case msg := <-m.publisher.errorChan:
		return msg
	case <-m.publisher.done:
		return nil
	}
}

func stateOf(status core.Status) stepState {
	switch status {
	case core.StatusSucceeded:
		return succeeded
	case core.StatusWarned:
		return warned
	case core.StatusFailed:
		return failed
	default:
		return skipped
	}
}

// runWithProgress renders a live step list while the build runs.
func runWithProgress(ctx context.Context, engine *Engine, steps []core.StepType, opts []tea.ProgramOption, l logger.Logger) (*core.Report, error) {
	model, err := newProgressModel(ctx, engine, steps, l)
	if err != nil {
		return nil, err
	}
	defer model.cancel()

	final, err := tea.NewProgram(model, opts...).Run()
	if err != nil {
		return nil, fmt.Errorf("error running progress view: %w", err)
	}
	fm := final.(progressModel)
	return fm.report, fm.err
}
