package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"awaitrt/internal/aio"
	"awaitrt/internal/coro"
)

var (
	timerAfter  time.Duration
	timerRepeat time.Duration
	timerCount  int
)

func init() {
	timerCmd.Flags().DurationVar(&timerAfter, "after", time.Second, "first expiry")
	timerCmd.Flags().DurationVar(&timerRepeat, "repeat", 0, "interval between later expiries")
	timerCmd.Flags().IntVar(&timerCount, "count", 1, "expiries to wait for")
}

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Arm a timer and await its ticks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if timerCount < 1 {
			return fmt.Errorf("--count must be at least 1, got %d", timerCount)
		}
		if timerCount > 1 && timerRepeat <= 0 {
			return errors.New("--count above 1 needs --repeat")
		}

		env, cleanup, err := setupRuntime(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		task := coro.Start(env.sched, "timer", tickBody(env, timerAfter, timerRepeat, timerCount))
		if err := env.run(cmd.Context(), "timer"); err != nil {
			return err
		}
		_, err = taskResult(task)
		return err
	},
}

// tickBody awaits count expiries of one timer and prints each.
func tickBody(env *runtimeEnv, after, repeat time.Duration, count int) func(co *coro.Co) (int, error) {
	return func(co *coro.Co) (int, error) {
		t := aio.NewTimer(env.loop)
		defer t.Close()

		start := env.loop.Now()
		env.p.Fprintf(env.out, "timer start\n")
		if err := t.Start(after, repeat); err != nil {
			return 0, err
		}
		for i := 1; i <= count; i++ {
			coro.Await(co, t)
			env.p.Fprintf(env.out, "tick %d after %v\n", i, env.loop.Now().Sub(start).Round(time.Millisecond))
		}
		return count, nil
	}
}
