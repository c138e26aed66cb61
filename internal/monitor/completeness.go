package monitor

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/completeness-tracker/internal"
)

// State is the interaction state of the completeness monitor
type State int

const (
	// StatePolling refreshes on every tick and accepts a topic number
	StatePolling State = iota
	// StateAwaitingResume shows a recommended prompt and suspends polling until any key
	StateAwaitingResume
)

func (s State) String() string {
	if s == StateAwaitingResume {
		return "awaiting-resume"
	}
	return "polling"
}

const (
	awaitingData = "awaiting data..."
	topicColumn  = 24
	arrowScale   = 5
)

// barScore stands in for a numeric score when a snapshot only carries a level
var barScore = map[internal.Level]int{
	internal.LevelNone:     0,
	internal.LevelPartial:  25,
	internal.LevelMostly:   70,
	internal.LevelComplete: 100,
}

// SnapshotReader reads a session's Completeness Ledger
type SnapshotReader interface {
	ReadSnapshots(ctx context.Context, sessionID string) ([]internal.Snapshot, error)
}

// snapshotsMsg carries the result of one ledger read
type snapshotsMsg struct {
	snapshots []internal.Snapshot
	err       error
}

// CompletenessMonitor is the pure state of the live completeness view.
// Reads happen outside; Apply folds their results in.
type CompletenessMonitor struct {
	reader    SnapshotReader
	sessionID string
	prompts   *internal.PromptBook

	state    State
	statuses []internal.TopicStatus
	seenData bool
	lastErr  error
	selected internal.Topic
	hint     string
}

// NewCompletenessMonitor creates a monitor for one resolved session
func NewCompletenessMonitor(reader SnapshotReader, sessionID string, prompts *internal.PromptBook) *CompletenessMonitor {
	if prompts == nil {
		prompts = internal.DefaultPromptBook()
	}
	return &CompletenessMonitor{
		reader:    reader,
		sessionID: sessionID,
		prompts:   prompts,
		statuses:  internal.SummarizeCoverage(nil),
	}
}

// SessionID returns the monitored session
func (m *CompletenessMonitor) SessionID() string { return m.sessionID }

// State returns the current interaction state
func (m *CompletenessMonitor) State() State { return m.state }

// Statuses returns the last successfully computed topic statuses
func (m *CompletenessMonitor) Statuses() []internal.TopicStatus { return m.statuses }

// Degraded reports whether the last read failed
func (m *CompletenessMonitor) Degraded() bool { return m.lastErr != nil }

// ShouldPoll reports whether a tick should trigger a read
func (m *CompletenessMonitor) ShouldPoll() bool { return m.state == StatePolling }

// Poll reads the ledger once and applies the result
func (m *CompletenessMonitor) Poll(ctx context.Context) error {
	snapshots, err := m.reader.ReadSnapshots(ctx, m.sessionID)
	m.Apply(snapshots, err)
	return err
}

func (m *CompletenessMonitor) poll(ctx context.Context) any {
	snapshots, err := m.reader.ReadSnapshots(ctx, m.sessionID)
	return snapshotsMsg{snapshots: snapshots, err: err}
}

// apply drops results that land while a prompt is shown; resuming reads again.
func (m *CompletenessMonitor) apply(msg any) {
	if m.state == StateAwaitingResume {
		return
	}
	if result, ok := msg.(snapshotsMsg); ok {
		m.Apply(result.snapshots, result.err)
	}
}

// Apply folds one read result into the monitor. A failed read keeps the
// previous statuses and marks the view degraded.
func (m *CompletenessMonitor) Apply(snapshots []internal.Snapshot, err error) {
	if err != nil {
		m.lastErr = err
		internal.LogWarn("Failed to read completeness ledger for session %s: %v", m.sessionID, err)
		return
	}
	m.lastErr = nil
	m.seenData = len(snapshots) > 0
	m.statuses = internal.SummarizeCoverage(snapshots)
}

// HandleKey applies one key press. It reports whether the program should
// quit and whether an immediate poll is due.
func (m *CompletenessMonitor) HandleKey(key string) (quit, pollNow bool) {
	if key == "ctrl+c" {
		return true, false
	}

	if m.state == StateAwaitingResume {
		m.state = StatePolling
		m.selected = ""
		m.hint = ""
		return false, true
	}

	switch strings.ToLower(key) {
	case "q", "esc":
		return true, false
	}

	n, err := strconv.Atoi(key)
	if err != nil {
		m.hint = "Please enter a number between 1 and 8, or q to quit."
		return false, false
	}
	topic, ok := internal.TopicByNumber(n)
	if !ok {
		m.hint = "Please enter a number between 1 and 8."
		return false, false
	}

	m.selected = topic
	m.hint = ""
	m.state = StateAwaitingResume
	return false, false
}

func (m *CompletenessMonitor) handleKey(key string) (bool, bool) { return m.HandleKey(key) }

func (m *CompletenessMonitor) shouldPoll() bool { return m.ShouldPoll() }

// View renders the monitor. It depends only on the monitor state.
func (m *CompletenessMonitor) View() string {
	return m.render(newStyles())
}

func (m *CompletenessMonitor) render(s styles) string {
	lines := []string{
		s.title.Render("Completeness"),
		s.header.Render("session: " + m.sessionID),
	}
	if m.lastErr != nil {
		lines = append(lines, s.warning.Render(fmt.Sprintf("⚠ read failed, showing last known state: %v", m.lastErr)))
	}

	if !m.seenData {
		lines = append(lines, s.empty.Render(awaitingData))
	} else {
		for i, status := range m.statuses {
			lines = append(lines, renderTopicRow(i+1, status, s))
		}
	}

	switch m.state {
	case StateAwaitingResume:
		lines = append(lines, m.renderPrompt(s))
	default:
		footer := "Help me explore a specific topic (enter number 1-8), q to quit"
		if m.hint != "" {
			footer = m.hint
		}
		lines = append(lines, s.hint.Render(footer))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *CompletenessMonitor) renderPrompt(s styles) string {
	prompt, ok := m.prompts.Lookup(m.selected)
	if !ok {
		return s.prompt.Render(fmt.Sprintf("No recommended prompt found for topic '%s'.", m.selected)) + "\n" +
			s.hint.Render("Press any key to continue monitoring...")
	}
	return s.prompt.Render(fmt.Sprintf("Recommended prompt for %s:\n%s", m.selected, prompt)) + "\n" +
		s.hint.Render("Copy the prompt above, then press any key to continue monitoring...")
}

func renderTopicRow(index int, status internal.TopicStatus, s styles) string {
	label := fmt.Sprintf("%d. %s", index, status.Topic)
	label = s.topic.Render(fmt.Sprintf("%-*s", topicColumn, label))
	if !status.Seen {
		return fmt.Sprintf("%s %s", label, s.unknown.Render("| -"))
	}

	score := barScore[status.Level]
	number := ""
	if status.Score != nil {
		score = *status.Score
		number = " " + strconv.Itoa(score)
	}
	level := s.level.Render(fmt.Sprintf("%-8s", status.Level))
	return fmt.Sprintf("%s %s %s%s %s", label, level, s.bar.Render(FormatArrow(score)), number, renderTrend(status, s))
}

func renderTrend(status internal.TopicStatus, s styles) string {
	switch {
	case status.FirstSeen:
		return s.fresh.Render("new")
	case status.Trend == internal.TrendUp:
		return s.up.Render("▲")
	case status.Trend == internal.TrendDown:
		return s.down.Render("▼")
	case status.Trend == internal.TrendNeutral:
		return s.neutral.Render("=")
	default:
		return s.unknown.Render("?")
	}
}

// FormatArrow draws a bar with one segment per five points: "|", "|>", "|=>", ...
func FormatArrow(score int) string {
	if score <= 0 {
		return "|"
	}
	segments := (score + arrowScale/2) / arrowScale
	switch segments {
	case 0:
		return "|"
	case 1:
		return "|>"
	default:
		return "|" + strings.Repeat("=", segments-1) + ">"
	}
}
