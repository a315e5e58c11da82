package observ

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Stats counts runtime activity. All fields are safe for concurrent use; the pool
// and sender goroutines update some of them off the loop goroutine.
type Stats struct {
	TasksStarted   atomic.Uint64
	TasksFinished  atomic.Uint64
	TasksDestroyed atomic.Uint64
	Suspends       atomic.Uint64
	Resumes        atomic.Uint64

	Callbacks  atomic.Uint64 // reactor callbacks run on the loop
	Iterations atomic.Uint64 // loop iterations
	Posts      atomic.Uint64 // closures posted through the ingress queue

	OpsArmed     atomic.Uint64
	OpsAbandoned atomic.Uint64
	OpsCancelled atomic.Uint64
	OpsLate      atomic.Uint64 // completions that arrived after abandonment

	WorkQueued   atomic.Uint64
	WorkFinished atomic.Uint64
}

// Snapshot is a plain copy of Stats.
type Snapshot struct {
	TasksStarted   uint64 `json:"tasks_started"`
	TasksFinished  uint64 `json:"tasks_finished"`
	TasksDestroyed uint64 `json:"tasks_destroyed"`
	Suspends       uint64 `json:"suspends"`
	Resumes        uint64 `json:"resumes"`
	Callbacks      uint64 `json:"callbacks"`
	Iterations     uint64 `json:"iterations"`
	Posts          uint64 `json:"posts"`
	OpsArmed       uint64 `json:"ops_armed"`
	OpsAbandoned   uint64 `json:"ops_abandoned"`
	OpsCancelled   uint64 `json:"ops_cancelled"`
	OpsLate        uint64 `json:"ops_late"`
	WorkQueued     uint64 `json:"work_queued"`
	WorkFinished   uint64 `json:"work_finished"`
}

// Snapshot copies the counters. A nil Stats yields zeros.
func (s *Stats) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	return Snapshot{
		TasksStarted:   s.TasksStarted.Load(),
		TasksFinished:  s.TasksFinished.Load(),
		TasksDestroyed: s.TasksDestroyed.Load(),
		Suspends:       s.Suspends.Load(),
		Resumes:        s.Resumes.Load(),
		Callbacks:      s.Callbacks.Load(),
		Iterations:     s.Iterations.Load(),
		Posts:          s.Posts.Load(),
		OpsArmed:       s.OpsArmed.Load(),
		OpsAbandoned:   s.OpsAbandoned.Load(),
		OpsCancelled:   s.OpsCancelled.Load(),
		OpsLate:        s.OpsLate.Load(),
		WorkQueued:     s.WorkQueued.Load(),
		WorkFinished:   s.WorkFinished.Load(),
	}
}

// Summary renders the snapshot in the same layout as Timer.Summary.
func (s Snapshot) Summary() string {
	rows := []struct {
		name string
		v    uint64
	}{
		{"tasks", s.TasksStarted},
		{"finished", s.TasksFinished},
		{"destroyed", s.TasksDestroyed},
		{"suspends", s.Suspends},
		{"resumes", s.Resumes},
		{"callbacks", s.Callbacks},
		{"iterations", s.Iterations},
		{"posts", s.Posts},
		{"ops armed", s.OpsArmed},
		{"abandoned", s.OpsAbandoned},
		{"cancelled", s.OpsCancelled},
		{"late", s.OpsLate},
		{"work", s.WorkQueued},
		{"work done", s.WorkFinished},
	}
	var sb strings.Builder
	sb.WriteString("stats:\n")
	for _, r := range rows {
		fmt.Fprintf(&sb, "  %-12s %9d\n", r.name, r.v)
	}
	return sb.String()
}
