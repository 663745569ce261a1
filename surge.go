// Package surge runs phase-based HTTP load tests programmatically.
//
// A test is described by a configuration: the target, a load profile built
// from spike, ramp-up, steady and stress-ramp phases, and the requests each
// virtual user performs per iteration. The same configuration drives the CLI
// and this package.
//
// # Quick Start
//
// Load a test definition and run it:
//
//	cfg, _ := surge.LoadConfig("test.yaml")
//	result, _ := surge.Run(context.Background(), surge.Options{Config: cfg})
//
//	fmt.Printf("Requests: %d\n", result.Metrics.TotalRequests)
//	fmt.Printf("P95: %v\n", result.Metrics.Latency.P95)
//
// # Programmatic Configuration
//
// Configurations can also be built in code:
//
//	cfg := &surge.Config{
//	    Name:   "smoke",
//	    Target: surge.TargetConfig{BaseURL: "https://api.example.com"},
//	    Profile: []surge.StepConfig{
//	        {Kind: "rampUp", To: 20, Duration: "30s"},
//	        {Kind: "steady", Users: 20, Duration: "1m"},
//	    },
//	    Requests: []surge.RequestConfig{
//	        {Method: "GET", Path: "/health"},
//	    },
//	}
//
// # Live Metrics
//
// For progress reporting during a run, create a Runner and poll it from
// another goroutine:
//
//	runner, _ := surge.NewRunner(cfg)
//	go func() {
//	    for runner.Running() {
//	        snap := runner.Metrics()
//	        fmt.Printf("%.0f%% %.1f rps\n", runner.Progress()*100, snap.RPS)
//	        time.Sleep(time.Second)
//	    }
//	}()
//	result, _ := runner.Run(ctx)
//
// The phase scheduling primitives are exposed by the loadshape package for
// programs that drive their own workers.
package surge

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ahmed-madyan/surge/internal/config"
	"github.com/ahmed-madyan/surge/internal/engine"
	"github.com/ahmed-madyan/surge/internal/metrics"
	"github.com/ahmed-madyan/surge/internal/report"
)

// Aliases let callers name configuration and result types without reaching
// into internal packages.
type (
	Config        = config.Config
	TargetConfig  = config.TargetConfig
	StepConfig    = config.StepConfig
	RequestConfig = config.RequestConfig
	ChecksConfig  = config.ChecksConfig
	PacingConfig  = config.PacingConfig
	Result        = engine.Result
	Snapshot      = metrics.Snapshot
	LatencyStats  = metrics.LatencyStats
)

// LoadConfig reads a test definition from a YAML or JSON file and applies
// the SURGE_* environment overlay.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultConfig returns the built-in profile: a spike, a ramp-up, a short
// plateau and a stress ramp, each step tunable through SURGE_* variables.
func DefaultConfig() *Config {
	return config.Default()
}

// Options configures a Run call.
type Options struct {
	// Config is the test definition. It wins over ConfigFile when both are
	// set.
	Config *Config

	// ConfigFile is the path of a YAML or JSON test definition.
	ConfigFile string

	// Logger receives run progress. The run is silent when nil.
	Logger *zap.SugaredLogger

	// ReportPath, when set, is where the JSON run report is written after
	// the test finishes.
	ReportPath string
}

// Run executes one load test end to end: it resolves the configuration,
// builds the engine, runs the schedule and optionally writes the report.
//
// Cancelling the context stops the run gracefully; the partial result is
// returned with Interrupted set.
func Run(ctx context.Context, opts Options) (*Result, error) {
	cfg := opts.Config
	if cfg == nil {
		if opts.ConfigFile == "" {
			return nil, errors.New("either Config or ConfigFile must be set")
		}
		loaded, err := config.Load(opts.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	var engineOpts []engine.Option
	if opts.Logger != nil {
		engineOpts = append(engineOpts, engine.WithLogger(opts.Logger))
	}

	eng, err := engine.NewEngine(cfg, engineOpts...)
	if err != nil {
		return nil, err
	}

	result, err := eng.Run(ctx)
	if err != nil {
		return nil, err
	}

	if opts.ReportPath != "" {
		if err := report.WriteJSON(result, opts.ReportPath); err != nil {
			return result, err
		}
	}

	return result, nil
}

// Runner executes a configured load test and exposes live metrics while it
// runs.
type Runner struct {
	engine *engine.Engine
}

// NewRunner validates the configuration and builds a runner for it.
func NewRunner(cfg *Config) (*Runner, error) {
	eng, err := engine.NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	return &Runner{engine: eng}, nil
}

// Run executes the test to completion. See Run for cancellation semantics.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	return r.engine.Run(ctx)
}

// Metrics returns a snapshot of the metrics collected so far. It can be
// called from any goroutine while the test runs.
func (r *Runner) Metrics() *Snapshot {
	return r.engine.Snapshot()
}

// Progress reports schedule completion in the range 0 to 1.
func (r *Runner) Progress() float64 {
	return r.engine.Progress()
}

// Running reports whether the test is currently executing.
func (r *Runner) Running() bool {
	return r.engine.IsRunning()
}

// WriteReport persists a finished run as an indented JSON file.
func WriteReport(result *Result, path string) error {
	return report.WriteJSON(result, path)
}
