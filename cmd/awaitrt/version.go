package main

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"awaitrt/internal/config"
	"awaitrt/internal/version"
)

// buildFacts is what the version command reports: how the binary was built and
// the runtime a loop started from this directory would get.
type buildFacts struct {
	Tool       string `json:"tool"`
	Version    string `json:"version"`
	Commit     string `json:"git_commit,omitempty"`
	Built      string `json:"build_date,omitempty"`
	Go         string `json:"go"`
	Platform   string `json:"platform"`
	GoMaxProcs int    `json:"gomaxprocs"`
	Pool       int    `json:"pool_workers"`
	Config     string `json:"config,omitempty"`
}

var (
	versionFormat string
	versionShort  bool
)

func init() {
	versionCmd.Flags().StringVar(&versionFormat, "format", "pretty", "output format (pretty|json)")
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "print the version number only")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show build and runtime facts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format := strings.ToLower(strings.TrimSpace(versionFormat))
		if format != "pretty" && format != "json" {
			return fmt.Errorf("unsupported format %q (must be pretty or json)", versionFormat)
		}
		path, err := cmd.Flags().GetString("config")
		if err != nil {
			return fmt.Errorf("failed to get config flag: %w", err)
		}
		cfg, err := config.Resolve(path, ".")
		if err != nil {
			return err
		}
		facts := gatherFacts(cfg, readBuildStamp())

		out := cmd.OutOrStdout()
		switch {
		case versionShort:
			_, err = fmt.Fprintln(out, facts.Version)
		case format == "json":
			err = writeFactsJSON(out, facts)
		default:
			err = writeFacts(out, facts)
		}
		return err
	},
}

// buildStamp holds what the linker flags or the module build info recorded.
type buildStamp struct {
	version, commit, built string
}

func readBuildStamp() buildStamp {
	st := buildStamp{
		version: strings.TrimSpace(version.Version),
		commit:  strings.TrimSpace(version.GitCommit),
		built:   strings.TrimSpace(version.BuildDate),
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, kv := range info.Settings {
			switch {
			case kv.Key == "vcs.revision" && st.commit == "":
				st.commit = kv.Value
			case kv.Key == "vcs.time" && st.built == "":
				st.built = kv.Value
			}
		}
	}
	if st.version == "" {
		st.version = "dev"
	}
	return st
}

func gatherFacts(cfg config.Config, st buildStamp) buildFacts {
	return buildFacts{
		Tool:       "awaitrt",
		Version:    st.version,
		Commit:     st.commit,
		Built:      st.built,
		Go:         runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
		GoMaxProcs: runtime.GOMAXPROCS(0),
		Pool:       cfg.Reactor.Effective().PoolSize,
		Config:     cfg.Path,
	}
}

func writeFacts(out io.Writer, f buildFacts) error {
	v := f.Version
	if v == version.Version {
		v = version.Colored()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "awaitrt %s\n", v)
	if f.Commit != "" {
		fmt.Fprintf(&b, "commit      %s\n", f.Commit)
	}
	if f.Built != "" {
		fmt.Fprintf(&b, "built       %s\n", f.Built)
	}
	fmt.Fprintf(&b, "go          %s %s\n", f.Go, f.Platform)
	fmt.Fprintf(&b, "gomaxprocs  %d\n", f.GoMaxProcs)
	source := "defaults"
	if f.Config != "" {
		source = f.Config
	}
	fmt.Fprintf(&b, "pool        %d workers (%s)\n", f.Pool, source)
	_, err := io.WriteString(out, b.String())
	return err
}

func writeFactsJSON(out io.Writer, f buildFacts) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(f)
}
