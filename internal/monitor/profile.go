package monitor

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/completeness-tracker/internal"
)

// FactReader reads a session's Information Ledger
type FactReader interface {
	ReadFacts(ctx context.Context, sessionID string) ([]internal.Fact, error)
}

type factsMsg struct {
	facts []internal.Fact
	err   error
}

// ProfileViewer is the pure state of the live profile view
type ProfileViewer struct {
	reader    FactReader
	sessionID string

	// shown holds every fact displayed so far, in display order
	shown   []internal.Fact
	seen    map[string]bool
	groups  []internal.TopicGroup
	lastErr error
}

// NewProfileViewer creates a viewer for one resolved session
func NewProfileViewer(reader FactReader, sessionID string) *ProfileViewer {
	return &ProfileViewer{reader: reader, sessionID: sessionID, seen: make(map[string]bool)}
}

// Groups returns the last successfully grouped facts
func (v *ProfileViewer) Groups() []internal.TopicGroup { return v.groups }

// Degraded reports whether the last read failed
func (v *ProfileViewer) Degraded() bool { return v.lastErr != nil }

// Poll reads the ledger once and applies the result
func (v *ProfileViewer) Poll(ctx context.Context) error {
	facts, err := v.reader.ReadFacts(ctx, v.sessionID)
	v.Apply(facts, err)
	return err
}

// Apply folds one read result into the viewer. Facts already shown stay
// shown even when the ledger comes back shorter than before.
func (v *ProfileViewer) Apply(facts []internal.Fact, err error) {
	if err != nil {
		v.lastErr = err
		internal.LogWarn("Failed to read information ledger for session %s: %v", v.sessionID, err)
		return
	}
	v.lastErr = nil

	if len(facts) < len(v.shown) {
		internal.LogWarn("Information ledger for session %s shrank from %d to %d facts; keeping shown facts", v.sessionID, len(v.shown), len(facts))
	}

	added := 0
	for _, fact := range facts {
		key := factKey(fact)
		if v.seen[key] {
			continue
		}
		v.seen[key] = true
		v.shown = append(v.shown, fact)
		added++
	}
	if added > 0 || v.groups == nil {
		v.groups = internal.GroupProfile(v.shown)
	}
}

func factKey(fact internal.Fact) string {
	if fact.ID != "" {
		return fact.ID
	}
	return fmt.Sprintf("%d/%s/%s", fact.Seq, fact.Topic, fact.Value)
}

func (v *ProfileViewer) poll(ctx context.Context) any {
	facts, err := v.reader.ReadFacts(ctx, v.sessionID)
	return factsMsg{facts: facts, err: err}
}

func (v *ProfileViewer) apply(msg any) {
	if result, ok := msg.(factsMsg); ok {
		v.Apply(result.facts, result.err)
	}
}

func (v *ProfileViewer) handleKey(key string) (bool, bool) {
	switch strings.ToLower(key) {
	case "q", "esc", "ctrl+c":
		return true, false
	}
	return false, false
}

func (v *ProfileViewer) shouldPoll() bool { return true }

// View renders the grouped profile
func (v *ProfileViewer) View() string {
	return v.render(newStyles())
}

func (v *ProfileViewer) render(s styles) string {
	lines := []string{
		s.title.Render("Profile"),
		s.header.Render("session: " + v.sessionID),
	}
	if v.lastErr != nil {
		lines = append(lines, s.warning.Render("⚠ read failed, showing last known state: "+v.lastErr.Error()))
	}

	if len(v.groups) == 0 {
		lines = append(lines, s.empty.Render(awaitingData))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, group := range v.groups {
		lines = append(lines, s.title.Render(string(group.Topic)))
		for _, sub := range group.Subtopics {
			lines = append(lines, "    "+s.subtopic.Render(sub.Subtopic))
			for _, fact := range sub.Facts {
				lines = append(lines, "        "+s.label.Render(internal.FormatLabel(fact.FactType)+":")+" "+s.value.Render(fact.Value))
			}
		}
		lines = append(lines, "")
	}
	lines = append(lines, s.hint.Render("q to quit"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
