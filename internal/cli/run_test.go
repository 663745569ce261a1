package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ahmed-madyan/surge/internal/config"
)

func TestRootSubcommands(t *testing.T) {
	have := make(map[string]bool)
	for _, c := range RootCmd.Commands() {
		have[c.Name()] = true
	}

	for _, want := range []string{"run", "probe"} {
		if !have[want] {
			t.Errorf("RootCmd is missing subcommand %q", want)
		}
	}
}

func TestQuickConfig(t *testing.T) {
	cfg := quickConfig("http://localhost:9999")

	if cfg.Target.BaseURL != "http://localhost:9999" {
		t.Errorf("BaseURL = %q, want the given URL", cfg.Target.BaseURL)
	}
	if len(cfg.Requests) != 1 || cfg.Requests[0].Method != "GET" || cfg.Requests[0].Path != "/" {
		t.Errorf("quick config should probe GET /: %+v", cfg.Requests)
	}

	// The default profile shape: spike, ramp up, steady, stress ramp. The
	// step parameters are environment-tunable, the shape is not.
	want := []string{config.StepSpike, config.StepRampUp, config.StepSteady, config.StepStressRamp}
	if len(cfg.Profile) != len(want) {
		t.Fatalf("Profile has %d steps, want %d", len(cfg.Profile), len(want))
	}
	for i, kind := range want {
		if cfg.Profile[i].Kind != kind {
			t.Errorf("Profile[%d].Kind = %q, want %q", i, cfg.Profile[i].Kind, kind)
		}
	}
}

func TestResolveConfig(t *testing.T) {
	t.Run("no inputs", func(t *testing.T) {
		cfg, err := resolveConfig(runFlags{})
		if err != nil {
			t.Fatalf("resolveConfig() error = %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when neither --config nor --url is set")
		}
	})

	t.Run("quick mode", func(t *testing.T) {
		cfg, err := resolveConfig(runFlags{URL: "http://localhost:1"})
		if err != nil {
			t.Fatalf("resolveConfig() error = %v", err)
		}
		if cfg == nil || cfg.Target.BaseURL != "http://localhost:1" {
			t.Errorf("quick mode config not built: %+v", cfg)
		}
	})

	t.Run("flag overrides", func(t *testing.T) {
		cfg, err := resolveConfig(runFlags{
			URL:    "http://localhost:1",
			Runner: config.RunnerConcurrent,
			Output: "out/report.json",
		})
		if err != nil {
			t.Fatalf("resolveConfig() error = %v", err)
		}
		if cfg.Runner != config.RunnerConcurrent {
			t.Errorf("Runner = %q, want %q", cfg.Runner, config.RunnerConcurrent)
		}
		if cfg.Report.Output != "out/report.json" {
			t.Errorf("Report.Output = %q, want the flag value", cfg.Report.Output)
		}
	})

	t.Run("config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.yaml")
		doc := `name: file test
target:
  baseUrl: http://localhost:8080
profile:
  - kind: steady
    users: 2
    duration: 1s
requests:
  - method: GET
    path: /ping
`
		if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
			t.Fatalf("writing config: %v", err)
		}

		cfg, err := resolveConfig(runFlags{ConfigFile: path})
		if err != nil {
			t.Fatalf("resolveConfig() error = %v", err)
		}
		if cfg.Name != "file test" {
			t.Errorf("Name = %q, want %q", cfg.Name, "file test")
		}
		if len(cfg.Profile) != 1 {
			t.Errorf("file profile should not be replaced by defaults, got %d steps", len(cfg.Profile))
		}
	})

	t.Run("missing config file", func(t *testing.T) {
		if _, err := resolveConfig(runFlags{ConfigFile: "does-not-exist.yaml"}); err == nil {
			t.Error("expected an error for a missing config file")
		}
	})
}

func TestLogConfigFromFlags(t *testing.T) {
	base := config.LogConfig{Level: "info", Format: "console", Output: "stdout"}

	tests := []struct {
		name        string
		flags       runFlags
		interactive bool
		wantLevel   string
		wantOutput  string
		wantFile    string
	}{
		{"file config wins when no flags", runFlags{}, false, "info", "stdout", ""},
		{"interactive defaults to warn", runFlags{}, true, "warn", "stdout", ""},
		{"verbose lowers to debug", runFlags{Verbose: true}, true, "debug", "stdout", ""},
		{"quiet raises to error", runFlags{Quiet: true}, false, "error", "stdout", ""},
		{"explicit level wins over verbose", runFlags{Verbose: true, LogLevel: "warn"}, false, "warn", "stdout", ""},
		{"log file adds a file sink", runFlags{LogFile: "surge.log"}, false, "info", "both", "surge.log"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := logConfigFromFlags(base, tt.flags, tt.interactive)
			if got.Level != tt.wantLevel {
				t.Errorf("Level = %q, want %q", got.Level, tt.wantLevel)
			}
			if got.Output != tt.wantOutput {
				t.Errorf("Output = %q, want %q", got.Output, tt.wantOutput)
			}
			if got.FilePath != tt.wantFile {
				t.Errorf("FilePath = %q, want %q", got.FilePath, tt.wantFile)
			}
		})
	}
}

func TestRunCommandFlags(t *testing.T) {
	for _, name := range []string{"config", "url", "runner", "output", "quiet", "verbose", "log-level", "log-file"} {
		if runCmd.Flags().Lookup(name) == nil {
			t.Errorf("run command is missing flag --%s", name)
		}
	}
}
