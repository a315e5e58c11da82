// Package config loads awaitrt.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fortio.org/safecast"
	"github.com/BurntSushi/toml"

	"awaitrt/internal/reactor"
	"awaitrt/internal/trace"
)

// FileName is the configuration file looked up by Find.
const FileName = "awaitrt.toml"

// Config is the effective runtime configuration.
type Config struct {
	Path    string // file it was loaded from, empty for defaults
	Reactor reactor.Config
	Trace   trace.Config
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Reactor: reactor.DefaultConfig(),
		Trace: trace.Config{
			Level:      trace.LevelOff,
			Mode:       trace.ModeStream,
			Format:     trace.FormatAuto,
			OutputPath: "-",
			RingSize:   4096,
		},
	}
}

type fileConfig struct {
	Loop struct {
		IngressBatch int64 `toml:"ingress_batch"`
	} `toml:"loop"`
	Pool struct {
		Workers int64 `toml:"workers"`
	} `toml:"pool"`
	Stream struct {
		ReadBuffer int64 `toml:"read_buffer"`
		Backlog    int64 `toml:"backlog"`
	} `toml:"stream"`
	Trace struct {
		Level     string `toml:"level"`
		Mode      string `toml:"mode"`
		Format    string `toml:"format"`
		Output    string `toml:"output"`
		RingSize  int64  `toml:"ring_size"`
		Heartbeat string `toml:"heartbeat"`
	} `toml:"trace"`
}

// Find walks up from startDir looking for FileName.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load decodes path over the defaults. Keys that are absent keep their default.
func Load(path string) (Config, error) {
	var fc fileConfig
	meta, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}

	cfg := Default()
	cfg.Path = path

	positive := func(val int64, section, key string, dst *int) error {
		if !meta.IsDefined(section, key) {
			return nil
		}
		n, err := safecast.Conv[int](val)
		if err != nil || n <= 0 {
			return fmt.Errorf("%s: [%s].%s must be a positive integer, got %d", path, section, key, val)
		}
		*dst = n
		return nil
	}
	for _, p := range []struct {
		val          int64
		section, key string
		dst          *int
	}{
		{fc.Loop.IngressBatch, "loop", "ingress_batch", &cfg.Reactor.IngressBatch},
		{fc.Pool.Workers, "pool", "workers", &cfg.Reactor.PoolSize},
		{fc.Stream.ReadBuffer, "stream", "read_buffer", &cfg.Reactor.ReadBufferSize},
		{fc.Stream.Backlog, "stream", "backlog", &cfg.Reactor.Backlog},
		{fc.Trace.RingSize, "trace", "ring_size", &cfg.Trace.RingSize},
	} {
		if err := positive(p.val, p.section, p.key, p.dst); err != nil {
			return Config{}, err
		}
	}

	if meta.IsDefined("trace", "level") {
		if cfg.Trace.Level, err = trace.ParseLevel(fc.Trace.Level); err != nil {
			return Config{}, fmt.Errorf("%s: [trace].level: %w", path, err)
		}
	}
	if meta.IsDefined("trace", "mode") {
		if cfg.Trace.Mode, err = trace.ParseMode(fc.Trace.Mode); err != nil {
			return Config{}, fmt.Errorf("%s: [trace].mode: %w", path, err)
		}
	}
	if meta.IsDefined("trace", "format") {
		if cfg.Trace.Format, err = trace.ParseFormat(fc.Trace.Format); err != nil {
			return Config{}, fmt.Errorf("%s: [trace].format: %w", path, err)
		}
	}
	if meta.IsDefined("trace", "output") {
		cfg.Trace.OutputPath = OutputPath(fc.Trace.Output)
	}
	if meta.IsDefined("trace", "heartbeat") {
		d, err := time.ParseDuration(strings.TrimSpace(fc.Trace.Heartbeat))
		if err != nil || d < 0 {
			return Config{}, fmt.Errorf("%s: [trace].heartbeat: invalid duration %q", path, fc.Trace.Heartbeat)
		}
		cfg.Trace.Heartbeat = d
	}
	return cfg, nil
}

// OutputPath maps the stderr spellings to "-".
func OutputPath(s string) string {
	switch strings.TrimSpace(s) {
	case "", "-", "stderr":
		return "-"
	}
	return strings.TrimSpace(s)
}

// Resolve loads explicit when set, otherwise the nearest FileName above dir,
// otherwise the defaults.
func Resolve(explicit, dir string) (Config, error) {
	if explicit != "" {
		return Load(explicit)
	}
	path, ok, err := Find(dir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}
