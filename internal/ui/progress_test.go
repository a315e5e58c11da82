package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
)

func TestApplyEventTracksJobs(t *testing.T) {
	events := make(chan Event)
	m := NewProgressModel("work", []string{"countdown"}, events).(*progressModel)

	m.applyEvent(Event{Job: "countdown", Status: StatusRunning, Done: 3, Total: 10})
	m.applyEvent(Event{Job: "fetch", Status: StatusDone})
	if len(m.items) != 2 {
		t.Fatalf("items = %d, want 2", len(m.items))
	}
	if got := m.percent(); got < 0.64 || got > 0.66 {
		t.Errorf("percent = %v, want 0.65", got)
	}

	view := m.View()
	for _, want := range []string{"work", "countdown", "3/10", "fetch", "running", "done"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestClosedEventsQuit(t *testing.T) {
	events := make(chan Event)
	close(events)
	m := NewProgressModel("work", nil, events).(*progressModel)
	msg := m.listenForEvent()()
	if _, ok := msg.(doneMsg); !ok {
		t.Fatalf("msg = %T, want doneMsg", msg)
	}
	model, cmd := m.Update(msg)
	if cmd == nil || !model.(*progressModel).done {
		t.Fatal("model did not finish")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected quit")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"a rather long job name", 10, "a rathe..."},
		{"abcdef", 3, "abc"},
		{"any", 0, "any"},
		{"结果结果结果", 8, "结果..."},
	}
	for _, tt := range tests {
		got := truncate(tt.in, tt.width)
		if got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
		if tt.width > 0 && runewidth.StringWidth(got) > tt.width {
			t.Errorf("truncate(%q, %d) is %d cells wide", tt.in, tt.width, runewidth.StringWidth(got))
		}
	}
}
