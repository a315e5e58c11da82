package main

import (
	"github.com/spf13/cobra"

	"awaitrt/internal/aio"
	"awaitrt/internal/coro"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <host> [service]",
	Short: "Resolve a host name on the worker pool",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		host, service := args[0], ""
		if len(args) > 1 {
			service = args[1]
		}

		env, cleanup, err := setupRuntime(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		task := coro.Start(env.sched, "resolve", func(co *coro.Co) (int, error) {
			lookup := aio.Resolve(env.loop, host, service)
			defer lookup.Close()
			addrs := coro.Try(co, coro.Await(co, lookup))
			for _, a := range addrs {
				if service == "" {
					env.p.Fprintf(env.out, "%v\n", a.Addr())
					continue
				}
				env.p.Fprintf(env.out, "%v\n", a)
			}
			return len(addrs), nil
		})
		if err := env.run(cmd.Context(), "resolve"); err != nil {
			return err
		}
		n, err := taskResult(task)
		if err != nil {
			return err
		}
		env.p.Fprintf(env.errOut, "%d addresses for %s\n", n, host)
		return nil
	},
}
