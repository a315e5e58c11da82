package main

import (
	"errors"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"awaitrt/internal/aio"
	"awaitrt/internal/coro"
)

var (
	demoHost   string
	demoPort   string
	demoListen string
	demoDelay  time.Duration
)

func init() {
	demoCmd.Flags().StringVar(&demoHost, "host", "example.com", "host to fetch from")
	demoCmd.Flags().StringVar(&demoPort, "port", "80", "port to fetch from")
	demoCmd.Flags().StringVar(&demoListen, "listen", "127.0.0.1:8080", "echo server address")
	demoCmd.Flags().DurationVar(&demoDelay, "delay", 2*time.Second, "pause between countdown steps")
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a fetch, an echo server, a timer and offloaded work together until SIGINT",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, cleanup, err := setupRuntime(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		fetch := coro.Start(env.sched, "fetch", fetchBody(env, demoHost, demoPort, "/", io.Discard))
		root := coro.StartFunc(env.sched, "main", func(co *coro.Co) error {
			tcp, ln, err := listen(env, demoListen)
			if err != nil {
				return err
			}
			defer tcp.Close()
			coro.SpawnFunc(co, "accept", acceptBody(env, tcp, ln))

			report := func(left int) { env.p.Fprintf(env.out, "printing progress %d\n", left) }
			work := coro.Spawn(co, "work", countdownBody(env, 10, demoDelay, report))
			coro.SpawnFunc(co, "work-result", func(co *coro.Co) error {
				n := coro.Try(co, coro.Await(co, work))
				env.p.Fprintf(env.out, "work finished %d\n", n)
				return nil
			})

			sig, err := awaitInterrupt(co, env)
			if err != nil {
				return err
			}
			env.p.Fprintf(env.out, "got %s, cancelling server and work\n", aio.SignalName(sig))
			return nil
		})
		timer := coro.Start(env.sched, "timer", tickBody(env, time.Second, 0, 1))

		env.p.Fprintf(env.out, "loop run\n")
		if err := env.run(cmd.Context(), "demo"); err != nil {
			return err
		}

		out := env.out
		_, fetchErr := taskResult(fetch)
		printTaskStatus(out, "fetch", fetch.Done(), fetchErr)
		_, mainErr := taskResult(root)
		printTaskStatus(out, "main", root.Done(), mainErr)
		_, timerErr := taskResult(timer)
		printTaskStatus(out, "timer", timer.Done(), timerErr)
		return nil
	},
}

var (
	okColor      = color.New(color.FgGreen, color.Bold)
	failedColor  = color.New(color.FgRed, color.Bold)
	pendingColor = color.New(color.FgYellow, color.Bold)
)

func printTaskStatus(out io.Writer, name string, done bool, err error) {
	switch {
	case !done:
		pendingColor.Fprintf(out, "%-8s unfinished\n", name)
	case errors.Is(err, coro.ErrDestroyed):
		pendingColor.Fprintf(out, "%-8s cancelled\n", name)
	case err != nil:
		failedColor.Fprintf(out, "%-8s failed: %v\n", name, err)
	default:
		okColor.Fprintf(out, "%-8s ok\n", name)
	}
}
