package trace

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestLevelGatesScopes(t *testing.T) {
	cases := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeRuntime, false},
		{LevelError, ScopeRuntime, true},
		{LevelError, ScopeTask, false},
		{LevelTask, ScopeTask, true},
		{LevelTask, ScopeOp, false},
		{LevelOp, ScopeOp, true},
		{LevelOp, ScopeCallback, false},
		{LevelDebug, ScopeCallback, true},
	}
	for _, tc := range cases {
		if got := tc.level.ShouldEmit(tc.scope); got != tc.want {
			t.Errorf("%s.ShouldEmit(%s) = %v, want %v", tc.level, tc.scope, got, tc.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"off", "error", "task", "op", "debug"} {
		l, err := ParseLevel(s)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", s, err)
		}
		if l.String() != s {
			t.Fatalf("round trip %q -> %q", s, l.String())
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestStreamTracerText(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelTask, FormatText)

	span := Begin(tr, ScopeTask, "task:echo", 0)
	Point(tr, ScopeOp, "op:timer", span.ID(), "filtered")
	span.WithExtra("result", "ok").End("done")

	out := buf.String()
	if !strings.Contains(out, "→ task:echo") || !strings.Contains(out, "← task:echo (done) {result=ok}") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if strings.Contains(out, "op:timer") {
		t.Fatalf("op scope should be filtered at task level:\n%s", out)
	}
}

func TestRingDumpMsgpack(t *testing.T) {
	ring := NewRingTracer(2, LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		Point(ring, ScopeCallback, name, 0, "")
	}

	var buf bytes.Buffer
	if err := ring.Dump(&buf, FormatMsgpack); err != nil {
		t.Fatalf("dump: %v", err)
	}
	events, err := LoadDump(&buf)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(events) != 2 || events[0].Name != "b" || events[1].Name != "c" {
		t.Fatalf("ring kept wrong events: %+v", events)
	}
}

func TestMultiTracerFindsRing(t *testing.T) {
	ring := NewRingTracer(8, LevelOp)
	m := NewMultiTracer(LevelOp, NewStreamTracer(&bytes.Buffer{}, LevelOp, FormatNDJSON), ring)
	Point(m, ScopeOp, "op:write", 0, "")
	if m.Ring() != ring || len(ring.Snapshot()) != 1 {
		t.Fatalf("multi tracer did not reach ring")
	}
}

func TestContextPropagation(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatalf("expected Nop by default")
	}
	ring := NewRingTracer(4, LevelDebug)
	ctx := WithParentSpan(WithTracer(context.Background(), ring), 9)
	if FromContext(ctx) != ring || ParentSpan(ctx) != 9 {
		t.Fatalf("context lost tracer or span")
	}
}
