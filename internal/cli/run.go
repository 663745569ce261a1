package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahmed-madyan/surge/internal/config"
	"github.com/ahmed-madyan/surge/internal/engine"
	"github.com/ahmed-madyan/surge/internal/logging"
	"github.com/ahmed-madyan/surge/internal/output"
	"github.com/ahmed-madyan/surge/internal/report"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a load test",
	Long: `Execute a load test, driving virtual users through the configured ramp
profile against the target.

Config file mode:
  surge run --config test.yaml

Quick mode (default profile, tunable through SURGE_* variables):
  surge run --url https://api.example.com

The default profile spikes to 1 user, ramps to 20 over 10s, holds 5 users
for 5s, then stress-ramps from 5 to 15 over 10s. Interrupting a run with
Ctrl-C stops it gracefully and reports the partial results.`,
	Run: func(cmd *cobra.Command, args []string) {
		runLoadTest(cmd, args)
	},
}

func init() {
	runCmd.Flags().StringP("config", "c", "", "Path to a YAML or JSON test definition")
	runCmd.Flags().StringP("url", "u", "", "Target base URL (quick mode, no config file)")
	runCmd.Flags().String("runner", "", "Schedule runner: sync or concurrent")
	runCmd.Flags().StringP("output", "o", "", "Write a JSON report to this path")
	runCmd.Flags().BoolP("quiet", "q", false, "Only print the final verdict line")
	runCmd.Flags().BoolP("verbose", "v", false, "Verbose logging")
	runCmd.Flags().String("log-level", "", "Log level: debug, info, warn or error")
	runCmd.Flags().String("log-file", "", "Also write logs to this file")
}

// runFlags carries the run command's flag values.
type runFlags struct {
	ConfigFile string
	URL        string
	Runner     string
	Output     string
	Quiet      bool
	Verbose    bool
	LogLevel   string
	LogFile    string
}

func readRunFlags(cmd *cobra.Command) runFlags {
	var f runFlags
	f.ConfigFile, _ = cmd.Flags().GetString("config")
	f.URL, _ = cmd.Flags().GetString("url")
	f.Runner, _ = cmd.Flags().GetString("runner")
	f.Output, _ = cmd.Flags().GetString("output")
	f.Quiet, _ = cmd.Flags().GetBool("quiet")
	f.Verbose, _ = cmd.Flags().GetBool("verbose")
	f.LogLevel, _ = cmd.Flags().GetString("log-level")
	f.LogFile, _ = cmd.Flags().GetString("log-file")
	return f
}

// runLoadTest runs a load test from the resolved configuration.
func runLoadTest(cmd *cobra.Command, args []string) {
	flags := readRunFlags(cmd)

	cfg, err := resolveConfig(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if cfg == nil {
		fmt.Fprintln(os.Stderr, "Error: either --config or --url is required")
		cmd.Help()
		os.Exit(1)
	}

	console := output.NewConsole(output.Config{Quiet: flags.Quiet})

	log := logging.New(logConfigFromFlags(cfg.Log, flags, console.IsTTY()))
	defer func() { _ = log.Sync() }()

	eng, err := engine.NewEngine(cfg, engine.WithLogger(log))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating engine: %v\n", err)
		os.Exit(1)
	}

	runnerMode := cfg.Runner
	if runnerMode == "" {
		runnerMode = config.RunnerSync
	}

	sched := eng.Schedule()
	console.PrintHeader(cfg.Name, runnerMode, sched.Len(), sched.MaxUsers(),
		time.Duration(sched.Duration()*float64(time.Second)))

	// Ctrl-C stops the run gracefully; the engine reports partial results.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	var result *engine.Result
	var runErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		result, runErr = eng.Run(ctx)
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	updateTicker := time.NewTicker(time.Second)
	defer updateTicker.Stop()

progressLoop:
	for {
		select {
		case <-updateTicker.C:
			if !eng.IsRunning() {
				continue
			}
			stats := output.StatsFromSnapshot(eng.Snapshot(), eng.Progress(), sched.MaxUsers())
			if console.IsTTY() {
				console.Update(stats)
			} else {
				console.PrintPlainUpdate(stats)
			}
		case <-done:
			break progressLoop
		}
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error running test: %v\n", runErr)
		os.Exit(1)
	}

	console.PrintSummary(result)

	if path := cfg.Report.Output; path != "" {
		if err := report.WriteJSON(result, path); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
			os.Exit(1)
		}
		console.PrintReportLocation(path)
	}
}

// resolveConfig turns the command flags into a runnable config. A nil config
// with a nil error means neither --config nor --url was given.
func resolveConfig(f runFlags) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case f.ConfigFile != "":
		loaded, err := config.Load(f.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case f.URL != "":
		cfg = quickConfig(f.URL)
	default:
		return nil, nil
	}

	if f.Runner != "" {
		cfg.Runner = f.Runner
	}
	if f.Output != "" {
		cfg.Report.Output = f.Output
	}
	return cfg, nil
}

// quickConfig builds a config for --url runs: the environment-tunable default
// profile against the given target, one GET / per iteration.
func quickConfig(url string) *config.Config {
	cfg := config.Default()
	cfg.Name = "quick run"
	cfg.Target.BaseURL = url
	cfg.Requests = []config.RequestConfig{{Name: "quick", Method: "GET", Path: "/"}}
	return cfg
}

// logConfigFromFlags merges the config file's log section with the command's
// logging flags. An explicit --log-level wins; --verbose lowers the level to
// debug and --quiet raises it to error. Interactive runs without either log
// at warn so engine chatter does not tear the live progress line.
func logConfigFromFlags(lc config.LogConfig, f runFlags, interactive bool) logging.Config {
	out := logging.Config{
		Level:      lc.Level,
		Format:     lc.Format,
		Output:     lc.Output,
		FilePath:   lc.FilePath,
		MaxSizeMB:  lc.MaxSizeMB,
		MaxBackups: lc.MaxBackups,
		MaxAgeDays: lc.MaxAgeDays,
	}

	switch {
	case f.LogLevel != "":
		out.Level = f.LogLevel
	case f.Verbose:
		out.Level = "debug"
	case f.Quiet:
		out.Level = "error"
	case interactive:
		out.Level = "warn"
	}

	if f.LogFile != "" {
		out.FilePath = f.LogFile
		switch out.Output {
		case "", "stdout":
			out.Output = "both"
		}
	}

	return out
}
