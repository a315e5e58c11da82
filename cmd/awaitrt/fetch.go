package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"awaitrt/internal/aio"
	"awaitrt/internal/coro"
	"awaitrt/internal/outcome"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <host> [port] [path]",
	Short: "Fetch a page over HTTP/1.0 and print the response",
	Args:  cobra.RangeArgs(1, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		host, port, path := args[0], "80", "/"
		if len(args) > 1 {
			port = args[1]
		}
		if len(args) > 2 {
			path = args[2]
		}

		env, cleanup, err := setupRuntime(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		task := coro.Start(env.sched, "fetch", fetchBody(env, host, port, path, env.out))
		if err := env.run(cmd.Context(), "fetch"); err != nil {
			return err
		}
		n, err := taskResult(task)
		if err != nil {
			return err
		}
		env.p.Fprintf(env.errOut, "read %d bytes from %s\n", n, host)
		return nil
	},
}

func httpRequest(host, path string) []byte {
	return fmt.Appendf(nil, "GET %s HTTP/1.0\r\nHost: %s\r\nConnection: close\r\n\r\n", path, host)
}

// fetchBody resolves host, connects, sends one request and copies the response
// to sink until the peer closes. It yields the number of bytes read.
func fetchBody(env *runtimeEnv, host, port, path string, sink io.Writer) func(co *coro.Co) (int, error) {
	return func(co *coro.Co) (int, error) {
		lookup := aio.Resolve(env.loop, host, port)
		defer lookup.Close()
		addrs := coro.Await(co, lookup)

		tcp := aio.NewTCP(env.loop)
		defer tcp.Close()
		conn := tcp.ConnectTo(addrs)
		defer conn.Close()
		coro.Try(co, coro.Await(co, conn))
		env.p.Fprintf(env.errOut, "connected to %v\n", tcp.RemoteAddr())

		w := tcp.Write(httpRequest(host, path))
		defer w.Close()
		coro.Try(co, coro.Await(co, w))

		r := tcp.Read()
		total := 0
		for {
			chunk, err := coro.Await(co, r).Get()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return total, nil
				}
				return total, outcome.Cause(err)
			}
			total += len(chunk)
			if _, err := sink.Write(chunk); err != nil {
				return total, err
			}
		}
	}
}
