package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"awaitrt/internal/coro"
	"awaitrt/internal/ui"
)

const countdownJob = "countdown"

// progressUI decides from a --ui value whether the progress UI takes over out.
// "auto" picks it only when out is a terminal.
func progressUI(value string, out io.Writer) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "", "auto":
		f, ok := out.(*os.File)
		return ok && isTerminal(f), nil
	}
	return false, fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
}

// runWithUI runs the loop on its own goroutine while the progress UI owns the
// terminal. Quitting the UI early stops the loop.
func runWithUI(ctx context.Context, out io.Writer, title string, jobs []string, events chan ui.Event, run func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		err := run(ctx)
		close(events)
		done <- err
	}()

	model := ui.NewProgressModel(title, jobs, events)
	program := tea.NewProgram(model, tea.WithOutput(out))
	_, uiErr := program.Run()
	cancel()
	err := <-done
	if uiErr != nil {
		return uiErr
	}
	return err
}

// progressSink turns countdown steps into UI events. Sends give up once ctx is done.
func progressSink(ctx context.Context, events chan<- ui.Event, job string, total int) func(left int) {
	return func(left int) {
		ev := ui.Event{Job: job, Status: ui.StatusRunning, Done: total - left + 1, Total: total}
		if left <= 1 {
			ev.Status = ui.StatusDone
		}
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}
}

func runWorkWithUI(ctx context.Context, env *runtimeEnv, from int, delay time.Duration) error {
	events := make(chan ui.Event, 64)
	var result int
	err := runWithUI(ctx, env.out, "awaitrt work", []string{countdownJob}, events, func(ctx context.Context) error {
		task := coro.Start(env.sched, "countdown", countdownBody(env, from, delay, progressSink(ctx, events, countdownJob, from)))
		if err := env.run(ctx, "work"); err != nil {
			return err
		}
		n, err := taskResult(task)
		if err != nil {
			return err
		}
		result = n
		return nil
	})
	if err != nil {
		return err
	}
	env.p.Fprintf(env.out, "work finished %d\n", result)
	return nil
}
