package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"awaitrt/internal/trace"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadOverridesDefinedKeysOnly(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
[pool]
workers = 8

[stream]
read_buffer = 1024

[trace]
level = "op"
mode = "both"
format = "ndjson"
output = "stderr"
heartbeat = "250ms"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Default()
	if cfg.Reactor.PoolSize != 8 || cfg.Reactor.ReadBufferSize != 1024 {
		t.Errorf("reactor = %+v", cfg.Reactor)
	}
	if cfg.Reactor.Backlog != def.Reactor.Backlog || cfg.Reactor.IngressBatch != def.Reactor.IngressBatch {
		t.Errorf("undefined keys changed: %+v", cfg.Reactor)
	}
	if cfg.Trace.Level != trace.LevelOp || cfg.Trace.Mode != trace.ModeBoth || cfg.Trace.Format != trace.FormatNDJSON {
		t.Errorf("trace = %+v", cfg.Trace)
	}
	if cfg.Trace.OutputPath != "-" || cfg.Trace.Heartbeat != 250*time.Millisecond {
		t.Errorf("trace output/heartbeat = %q %v", cfg.Trace.OutputPath, cfg.Trace.Heartbeat)
	}
	if cfg.Path != path {
		t.Errorf("Path = %q", cfg.Path)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"zero workers", "[pool]\nworkers = 0\n", "[pool].workers"},
		{"negative backlog", "[stream]\nbacklog = -1\n", "[stream].backlog"},
		{"bad level", "[trace]\nlevel = \"loud\"\n", "[trace].level"},
		{"bad mode", "[trace]\nmode = \"disk\"\n", "[trace].mode"},
		{"bad heartbeat", "[trace]\nheartbeat = \"soon\"\n", "[trace].heartbeat"},
		{"unknown key", "[pool]\nthreads = 2\n", "unknown key pool.threads"},
		{"not toml", "[pool\n", "failed to parse TOML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.body)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestResolveFindsFileInParent(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "[loop]\ningress_batch = 16\n")
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg, err := Resolve("", sub)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Reactor.IngressBatch != 16 {
		t.Errorf("IngressBatch = %d", cfg.Reactor.IngressBatch)
	}
}

func TestResolveWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Resolve("", t.TempDir())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Path != "" && !strings.HasSuffix(cfg.Path, FileName) {
		t.Errorf("Path = %q", cfg.Path)
	}
}

func TestOutputPath(t *testing.T) {
	for in, want := range map[string]string{"": "-", "stderr": "-", " trace.ndjson ": "trace.ndjson"} {
		if got := OutputPath(in); got != want {
			t.Errorf("OutputPath(%q) = %q, want %q", in, got, want)
		}
	}
}
