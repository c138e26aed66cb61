package internal

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestShowProgress(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		fn      func() error
		wantErr bool
	}{
		{name: "successful function", fn: func() error { return nil }},
		{name: "function with error", fn: func() error { return errors.New("test error") }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ShowProgress(ctx, "Exporting", tt.fn)
			if (err != nil) != tt.wantErr {
				t.Errorf("ShowProgress() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRunProgress(t *testing.T) {
	var out bytes.Buffer
	calls := 0
	err := runProgress(context.Background(), &out, "Exporting", func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("runProgress() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}

	wantErr := errors.New("disk full")
	err = runProgress(context.Background(), &bytes.Buffer{}, "Exporting", func() error { return wantErr })
	if !errors.Is(err, wantErr) {
		t.Errorf("runProgress() error = %v, want %v", err, wantErr)
	}
}

func TestProgressModelView(t *testing.T) {
	m := newProgressModel("Exporting", nil)
	if !strings.Contains(m.View(), "Exporting") {
		t.Errorf("View() = %q, want message", m.View())
	}

	updated, _ := m.Update(progressDoneMsg{err: errors.New("boom")})
	done := updated.(progressModel)
	if !done.done || done.err == nil {
		t.Fatalf("model after done msg = %+v", done)
	}
	if !strings.Contains(done.View(), "✗") {
		t.Errorf("View() = %q, want failure mark", done.View())
	}
}

func TestIsTerminal(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("a buffer is not a terminal")
	}
}
