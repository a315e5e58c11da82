package main

import (
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"

	"awaitrt/internal/aio"
	"awaitrt/internal/coro"
	"awaitrt/internal/outcome"
	"awaitrt/internal/reactor"
)

var serveCmd = &cobra.Command{
	Use:   "serve [addr]",
	Short: "Run a TCP echo server until interrupted",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := "127.0.0.1:8080"
		if len(args) > 0 {
			addr = args[0]
		}

		env, cleanup, err := setupRuntime(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		task := coro.StartFunc(env.sched, "serve", func(co *coro.Co) error {
			tcp, ln, err := listen(env, addr)
			if err != nil {
				return err
			}
			defer tcp.Close()
			coro.SpawnFunc(co, "accept", acceptBody(env, tcp, ln))

			sig, err := awaitInterrupt(co, env)
			if err != nil {
				return err
			}
			env.p.Fprintf(env.errOut, "got %s, stopping server\n", aio.SignalName(sig))
			return nil
		})
		if err := env.run(cmd.Context(), "serve"); err != nil {
			return err
		}
		_, err = taskResult(task)
		return err
	},
}

// awaitInterrupt suspends until SIGINT arrives.
func awaitInterrupt(co *coro.Co, env *runtimeEnv) (os.Signal, error) {
	sig := aio.NewSignal(env.loop)
	defer sig.Close()
	if err := sig.Start(os.Interrupt); err != nil {
		return nil, err
	}
	return coro.Await(co, sig), nil
}

func listen(env *runtimeEnv, addr string) (*aio.TCP, *aio.Listener, error) {
	tcp := aio.NewTCP(env.loop)
	if err := tcp.Bind(addr); err != nil {
		return nil, nil, err
	}
	ln, err := tcp.Listen(env.cfg.Reactor.Backlog)
	if err != nil {
		_ = tcp.Close()
		return nil, nil, err
	}
	env.p.Fprintf(env.errOut, "listening on %v\n", ln.Addr())
	return tcp, ln, nil
}

// acceptBody accepts connections forever, echoing each on its own task.
func acceptBody(env *runtimeEnv, tcp *aio.TCP, ln *aio.Listener) func(co *coro.Co) error {
	return func(co *coro.Co) error {
		for {
			if err := coro.Await(co, ln); err != nil {
				env.p.Fprintf(env.errOut, "accept: %v\n", err)
				continue
			}
			client := aio.NewTCP(env.loop)
			if err := tcp.Accept(client); err != nil {
				if !errors.Is(err, reactor.ErrWouldBlock) {
					env.p.Fprintf(env.errOut, "accept: %v\n", err)
				}
				continue
			}
			coro.SpawnFunc(co, "client", echoBody(env, client))
		}
	}
}

// echoBody writes every chunk back to the peer until it hangs up.
func echoBody(env *runtimeEnv, client *aio.TCP) func(co *coro.Co) error {
	return func(co *coro.Co) error {
		defer client.Close()
		peer := client.RemoteAddr()
		env.p.Fprintf(env.errOut, "client %v connected\n", peer)

		r := client.Read()
		total := 0
		for {
			chunk, err := coro.Await(co, r).Get()
			if err != nil {
				env.p.Fprintf(env.errOut, "client %v gone after %d bytes\n", peer, total)
				if errors.Is(err, io.EOF) {
					return nil
				}
				return outcome.Cause(err)
			}
			coro.Try(co, coro.Await(co, client.Write(chunk)))
			total += len(chunk)
		}
	}
}
