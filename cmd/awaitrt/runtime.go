package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"awaitrt/internal/config"
	"awaitrt/internal/coro"
	"awaitrt/internal/observ"
	"awaitrt/internal/outcome"
	"awaitrt/internal/prof"
	"awaitrt/internal/reactor"
	"awaitrt/internal/trace"
)

// runtimeEnv is one loop and its scheduler, built from the config file and flags.
type runtimeEnv struct {
	cfg    config.Config
	tracer trace.Tracer
	stats  *observ.Stats
	phases *observ.Timer
	loop   *reactor.Loop
	sched  *coro.Scheduler
	out    io.Writer
	errOut io.Writer
	p      *message.Printer
}

// setupRuntime loads the configuration, sets up tracing and creates the loop and
// scheduler. The cleanup destroys remaining tasks, closes the loop and prints
// the --stats and --timings reports.
func setupRuntime(cmd *cobra.Command) (*runtimeEnv, func(), error) {
	phases := observ.NewTimer()
	setup := phases.Begin("setup")

	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	cfg, err := config.Resolve(path, ".")
	if err != nil {
		return nil, nil, err
	}

	profiles, err := readProfileFlags(cmd)
	if err != nil {
		return nil, nil, err
	}
	session, err := prof.Start(profiles)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start profiling: %w", err)
	}

	tracer, traceCleanup, err := setupTracing(cmd, cfg.Trace)
	if err != nil {
		_ = session.Stop()
		return nil, nil, err
	}

	stats := &observ.Stats{}
	env := &runtimeEnv{
		cfg:    cfg,
		tracer: tracer,
		stats:  stats,
		phases: phases,
		loop:   reactor.New(cfg.Reactor, reactor.WithTracer(tracer), reactor.WithStats(stats)),
		sched:  coro.NewScheduler(coro.WithTracer(tracer), coro.WithStats(stats)),
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
		p:      message.NewPrinter(language.English),
	}
	phases.End(setup, cfg.Path)

	cleanup := func() {
		shutdown := phases.Begin("shutdown")
		env.sched.Shutdown()
		_ = env.loop.Close() //nolint:errcheck
		phases.End(shutdown, "")
		traceCleanup()
		if err := session.Stop(); err != nil {
			fmt.Fprintf(env.errOut, "profile: %v\n", err)
		}
		env.report(cmd)
	}
	return env, cleanup, nil
}

func readProfileFlags(cmd *cobra.Command) (prof.Options, error) {
	flags := cmd.Root().PersistentFlags()
	var opts prof.Options
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"cpuprofile", &opts.CPU},
		{"memprofile", &opts.Mem},
		{"exec-trace", &opts.ExecTrace},
	} {
		v, err := flags.GetString(f.name)
		if err != nil {
			return prof.Options{}, fmt.Errorf("failed to get %s flag: %w", f.name, err)
		}
		*f.dst = v
	}
	return opts, nil
}

// run drives the loop until it has nothing left to do or ctx is cancelled.
func (e *runtimeEnv) run(ctx context.Context, phase string) error {
	idx := e.phases.Begin(phase)
	before := e.stats.Iterations.Load()
	err := e.loop.Run(ctx)
	e.phases.End(idx, e.p.Sprintf("%d iterations", e.stats.Iterations.Load()-before))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (e *runtimeEnv) report(cmd *cobra.Command) {
	flags := cmd.Root().PersistentFlags()
	showStats, _ := flags.GetBool("stats")     //nolint:errcheck
	showTimings, _ := flags.GetBool("timings") //nolint:errcheck
	printReport(e.errOut, e.phases, e.stats, showTimings, showStats)
}

// taskResult returns what t produced. A task the loop left suspended is an error.
func taskResult[T any](t *coro.Task[T]) (T, error) {
	if !t.Done() {
		var zero T
		return zero, fmt.Errorf("task %s did not finish", t.Name())
	}
	v, err := t.Outcome().Get()
	if err != nil {
		return v, fmt.Errorf("%s: %w", t.Name(), outcome.Cause(err))
	}
	return v, nil
}
