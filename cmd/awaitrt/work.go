package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"awaitrt/internal/bridge"
	"awaitrt/internal/coro"
)

var (
	workFrom  int
	workDelay time.Duration
	workUI    string
)

func init() {
	workCmd.Flags().IntVar(&workFrom, "from", 10, "countdown start")
	workCmd.Flags().DurationVar(&workDelay, "delay", 200*time.Millisecond, "pause between countdown steps")
	workCmd.Flags().StringVar(&workUI, "ui", "auto", "progress UI (auto|on|off)")
}

var workCmd = &cobra.Command{
	Use:   "work",
	Short: "Offload a countdown to the worker pool and follow its progress",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if workFrom < 1 {
			return fmt.Errorf("--from must be at least 1, got %d", workFrom)
		}
		env, cleanup, err := setupRuntime(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		useUI, err := progressUI(workUI, env.out)
		if err != nil {
			return err
		}
		if useUI {
			return runWorkWithUI(cmd.Context(), env, workFrom, workDelay)
		}
		report := func(left int) { env.p.Fprintf(env.out, "progress %d\n", left) }
		task := coro.Start(env.sched, "countdown", countdownBody(env, workFrom, workDelay, report))
		if err := env.run(cmd.Context(), "work"); err != nil {
			return err
		}
		n, err := taskResult(task)
		if err != nil {
			return err
		}
		env.p.Fprintf(env.out, "work finished %d\n", n)
		return nil
	},
}

// countdownBody counts from down to 1 on a pool goroutine. Every step is posted
// through a notification channel and handed to report on the loop goroutine.
// The work yields 100.
func countdownBody(env *runtimeEnv, from int, delay time.Duration, report func(left int)) func(co *coro.Co) (int, error) {
	return func(co *coro.Co) (int, error) {
		progress, err := bridge.NewChannel[int](env.loop)
		if err != nil {
			return 0, err
		}
		defer progress.Close()
		sender := progress.Sender()

		work := bridge.Offload(env.loop, func(ctx context.Context) (int, error) {
			step := time.NewTimer(delay)
			defer step.Stop()
			for left := from; left > 0; left-- {
				select {
				case <-ctx.Done():
					return 0, ctx.Err()
				case <-step.C:
				}
				if err := sender.Send(left); err != nil {
					return 0, err
				}
				step.Reset(delay)
			}
			return 100, nil
		})
		defer work.Close()

		coro.SpawnFunc(co, "progress", func(co *coro.Co) error {
			for {
				left := coro.Await(co, progress)
				report(left)
				if left <= 1 {
					return nil
				}
			}
		})
		return coro.Try(co, coro.Await(co, work)), nil
	}
}
