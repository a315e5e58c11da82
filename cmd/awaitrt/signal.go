package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"awaitrt/internal/aio"
	"awaitrt/internal/coro"
)

var signalCount int

func init() {
	signalCmd.Flags().IntVar(&signalCount, "count", 1, "deliveries to wait for per signal")
}

var signalCmd = &cobra.Command{
	Use:   "signal [names...]",
	Short: "Wait for signals (default INT)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if signalCount < 1 {
			return fmt.Errorf("--count must be at least 1, got %d", signalCount)
		}
		if len(args) == 0 {
			args = []string{"INT"}
		}

		env, cleanup, err := setupRuntime(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		var tasks []*coro.Task[int]
		for _, name := range args {
			sig, err := aio.ParseSignal(name)
			if err != nil {
				return err
			}
			s := aio.NewSignal(env.loop)
			if err := s.Start(sig); err != nil {
				s.Close()
				return fmt.Errorf("signal %s: %w", name, err)
			}
			tasks = append(tasks, coro.Start(env.sched, "signal:"+aio.SignalName(sig), func(co *coro.Co) (int, error) {
				defer s.Close()
				for i := 1; i <= signalCount; i++ {
					got := coro.Await(co, s)
					env.p.Fprintf(env.out, "got %s (%d/%d)\n", aio.SignalName(got), i, signalCount)
				}
				return signalCount, nil
			}))
		}
		env.p.Fprintf(env.errOut, "waiting for %d signals\n", len(tasks))

		if err := env.run(cmd.Context(), "signal"); err != nil {
			return err
		}
		for _, t := range tasks {
			if _, err := taskResult(t); err != nil {
				return err
			}
		}
		return nil
	},
}
