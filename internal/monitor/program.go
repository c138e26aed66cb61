package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/iksnae/completeness-tracker/internal"
)

// DefaultInterval is the polling cadence of both monitors
const DefaultInterval = internal.DefaultPollInterval

// pollTarget is the view-specific half of a polling program
type pollTarget interface {
	poll(ctx context.Context) any
	apply(msg any)
	handleKey(key string) (quit, pollNow bool)
	shouldPoll() bool
	render(s styles) string
}

type tickMsg time.Time

type readMsg struct {
	seq    uint64
	result any
}

// readSeq orders reads so a slow read never overwrites a newer one
type readSeq struct {
	issued  uint64
	applied uint64
}

type model struct {
	ctx      context.Context
	target   pollTarget
	interval time.Duration
	styles   styles
	seq      *readSeq
}

func newModel(ctx context.Context, target pollTarget, interval time.Duration) model {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return model{ctx: ctx, target: target, interval: interval, styles: newStyles(), seq: &readSeq{}}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.read(), m.tick())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if m.target.shouldPoll() {
			return m, tea.Batch(m.read(), m.tick())
		}
		return m, m.tick()
	case readMsg:
		if msg.seq <= m.seq.applied {
			return m, nil
		}
		m.seq.applied = msg.seq
		m.target.apply(msg.result)
		return m, nil
	case tea.KeyMsg:
		quit, pollNow := m.target.handleKey(msg.String())
		if quit {
			return m, tea.Quit
		}
		if pollNow {
			return m, m.read()
		}
		return m, nil
	default:
		return m, nil
	}
}

func (m model) View() string {
	return m.target.render(m.styles) + "\n"
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) read() tea.Cmd {
	m.seq.issued++
	target, ctx, seq := m.target, m.ctx, m.seq.issued
	return func() tea.Msg {
		return readMsg{seq: seq, result: target.poll(ctx)}
	}
}

// Options configures a monitor program
type Options struct {
	Interval time.Duration
	Input    io.Reader
	Output   io.Writer
	// AltScreen takes over the whole terminal while the monitor runs
	AltScreen bool
}

func run(ctx context.Context, target pollTarget, opts Options) error {
	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.Input != nil {
		programOpts = append(programOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		programOpts = append(programOpts, tea.WithOutput(opts.Output))
	}
	if opts.AltScreen {
		programOpts = append(programOpts, tea.WithAltScreen())
	}

	p := tea.NewProgram(newModel(ctx, target, opts.Interval), programOpts...)
	finalModel, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	if _, ok := finalModel.(model); !ok {
		return fmt.Errorf("unexpected final monitor model type %T", finalModel)
	}
	return nil
}

// RunCompleteness runs the live completeness monitor until the user quits
func RunCompleteness(ctx context.Context, monitor *CompletenessMonitor, opts Options) error {
	internal.LogInfo("Monitoring completeness for session %s", monitor.SessionID())
	return run(ctx, monitor, opts)
}

// RunProfile runs the live profile viewer until the user quits
func RunProfile(ctx context.Context, viewer *ProfileViewer, opts Options) error {
	internal.LogInfo("Monitoring profile for session %s", viewer.sessionID)
	return run(ctx, viewer, opts)
}
