package config

// Step kinds accepted in a profile. Kind matching is case-insensitive and
// ignores dashes and underscores, so "rampUp", "ramp_up" and "RAMP-UP" all
// name the same step.
const (
	StepSpike      = "spike"
	StepRampUp     = "rampUp"
	StepSteady     = "steady"
	StepStressRamp = "stressRamp"
)

// Pacing kinds.
const (
	PacingNone     = "none"
	PacingConstant = "constant"
	PacingRandom   = "random"
)

// Runner modes.
const (
	RunnerSync       = "sync"
	RunnerConcurrent = "concurrent"
)

// Config is the top-level test definition loaded from a YAML or JSON file,
// with the SURGE_* environment overlay applied on top.
type Config struct {
	Name     string                 `json:"name" yaml:"name"`
	Target   TargetConfig           `json:"target" yaml:"target"`
	Profile  []StepConfig           `json:"profile,omitempty" yaml:"profile,omitempty"`
	Requests []RequestConfig        `json:"requests,omitempty" yaml:"requests,omitempty"`
	Schemas  map[string]interface{} `json:"schemas,omitempty" yaml:"schemas,omitempty"`
	Pacing   PacingConfig           `json:"pacing,omitempty" yaml:"pacing,omitempty"`
	Runner   string                 `json:"runner,omitempty" yaml:"runner,omitempty"`
	Log      LogConfig              `json:"log,omitempty" yaml:"log,omitempty"`
	Report   ReportConfig           `json:"report,omitempty" yaml:"report,omitempty"`
}

// TargetConfig names the system under test.
type TargetConfig struct {
	BaseURL string            `json:"baseUrl" yaml:"baseUrl"`
	Timeout string            `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// StepConfig is one step of the load profile. Which fields apply depends on
// the kind: spike uses Users; steady uses Users and Duration; rampUp uses To
// and Duration; stressRamp uses From, To and Duration.
type StepConfig struct {
	Kind     string `json:"kind" yaml:"kind"`
	Users    int    `json:"users,omitempty" yaml:"users,omitempty"`
	From     int    `json:"from,omitempty" yaml:"from,omitempty"`
	To       int    `json:"to,omitempty" yaml:"to,omitempty"`
	Duration string `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// RequestConfig defines one request a virtual user performs per iteration.
type RequestConfig struct {
	Name     string            `json:"name,omitempty" yaml:"name,omitempty"`
	Method   string            `json:"method" yaml:"method"`
	Path     string            `json:"path" yaml:"path"`
	Headers  map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Params   map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
	Body     string            `json:"body,omitempty" yaml:"body,omitempty"`
	JSON     interface{}       `json:"json,omitempty" yaml:"json,omitempty"`
	Validate *ChecksConfig     `json:"validate,omitempty" yaml:"validate,omitempty"`
}

// ChecksConfig is the validate block attached to a request.
type ChecksConfig struct {
	Status   []int                  `json:"status,omitempty" yaml:"status,omitempty"`
	Headers  map[string]string      `json:"headers,omitempty" yaml:"headers,omitempty"`
	JSONPath map[string]interface{} `json:"jsonPath,omitempty" yaml:"jsonPath,omitempty"`
	Schema   string                 `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// PacingConfig controls the wait between VU iterations.
type PacingConfig struct {
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"`
	Min  string `json:"min,omitempty" yaml:"min,omitempty"`
	Max  string `json:"max,omitempty" yaml:"max,omitempty"`
}

// LogConfig mirrors logging.Config with file-friendly field names.
type LogConfig struct {
	Level      string `json:"level,omitempty" yaml:"level,omitempty"`
	Format     string `json:"format,omitempty" yaml:"format,omitempty"`
	Output     string `json:"output,omitempty" yaml:"output,omitempty"`
	FilePath   string `json:"filePath,omitempty" yaml:"filePath,omitempty"`
	MaxSizeMB  int    `json:"maxSizeMb,omitempty" yaml:"maxSizeMb,omitempty"`
	MaxBackups int    `json:"maxBackups,omitempty" yaml:"maxBackups,omitempty"`
	MaxAgeDays int    `json:"maxAgeDays,omitempty" yaml:"maxAgeDays,omitempty"`
}

// ReportConfig controls where the run report lands.
type ReportConfig struct {
	Output string `json:"output,omitempty" yaml:"output,omitempty"`
}
