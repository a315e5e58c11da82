package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"awaitrt/internal/config"
	"awaitrt/internal/trace"
)

// applyTraceFlags overrides cfg with the trace flags that were set on the command
// line. It returns the --trace-dump path.
func applyTraceFlags(cmd *cobra.Command, cfg *trace.Config) (string, error) {
	flags := cmd.Root().PersistentFlags()
	get := func(name string) (string, bool, error) {
		v, err := flags.GetString(name)
		if err != nil {
			return "", false, fmt.Errorf("failed to get %s flag: %w", name, err)
		}
		return v, flags.Changed(name), nil
	}

	output, outputSet, err := get("trace")
	if err != nil {
		return "", err
	}
	if outputSet {
		cfg.OutputPath = config.OutputPath(output)
	}

	levelStr, levelSet, err := get("trace-level")
	if err != nil {
		return "", err
	}
	if levelSet {
		if cfg.Level, err = trace.ParseLevel(levelStr); err != nil {
			return "", fmt.Errorf("invalid trace level: %w", err)
		}
	}

	modeStr, modeSet, err := get("trace-mode")
	if err != nil {
		return "", err
	}
	if modeSet {
		if cfg.Mode, err = trace.ParseMode(modeStr); err != nil {
			return "", fmt.Errorf("invalid trace mode: %w", err)
		}
	}

	formatStr, formatSet, err := get("trace-format")
	if err != nil {
		return "", err
	}
	if formatSet {
		if cfg.Format, err = trace.ParseFormat(formatStr); err != nil {
			return "", err
		}
	}

	dump, _, err := get("trace-dump")
	if err != nil {
		return "", err
	}

	// Asking for an output or a dump without a level means task tracing.
	if !levelSet && cfg.Level == trace.LevelOff && (outputSet || dump != "") {
		cfg.Level = trace.LevelTask
	}
	if dump != "" && !modeSet && cfg.Mode == trace.ModeStream {
		cfg.Mode = trace.ModeRing
		if outputSet {
			cfg.Mode = trace.ModeBoth
		}
	}
	return dump, nil
}

// setupTracing merges the trace flags into cfg and initializes the tracer.
// It returns the tracer and a cleanup function that dumps the ring when asked,
// then flushes and closes.
func setupTracing(cmd *cobra.Command, cfg trace.Config) (trace.Tracer, func(), error) {
	dump, err := applyTraceFlags(cmd, &cfg)
	if err != nil {
		return nil, nil, err
	}

	tracer, err := trace.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(trace.WithTracer(ctx, tracer))

	heartbeat := trace.StartHeartbeat(tracer, cfg.Heartbeat)

	cleanup := func() {
		heartbeat.Stop()

		if dump != "" {
			if err := dumpRing(tracer, dump, cfg.Format); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", err)
			}
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return tracer, cleanup, nil
}

func ringOf(t trace.Tracer) *trace.RingTracer {
	switch v := t.(type) {
	case *trace.RingTracer:
		return v
	case *trace.MultiTracer:
		return v.Ring()
	}
	return nil
}

func dumpRing(tracer trace.Tracer, path string, format trace.Format) error {
	ring := ringOf(tracer)
	if ring == nil {
		return errors.New("tracer keeps no ring buffer")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := ring.Dump(f, trace.FormatFor(path, format)); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
