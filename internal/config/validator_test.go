package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Name:   "test",
		Target: TargetConfig{BaseURL: "https://api.example.com", Timeout: "10s"},
		Profile: []StepConfig{
			{Kind: StepSpike, Users: 1},
			{Kind: StepSteady, Users: 5, Duration: "5s"},
		},
		Requests: []RequestConfig{
			{Name: "list", Method: "GET", Path: "/users"},
		},
		Pacing: PacingConfig{Kind: PacingNone},
		Runner: RunnerSync,
		Log:    LogConfig{Level: "info", Format: "console", Output: "stdout"},
	}
}

func fieldsOf(errs []ValidationError) []string {
	fields := make([]string, len(errs))
	for i, e := range errs {
		fields[i] = e.Field
	}
	return fields
}

func expectField(t *testing.T, errs []ValidationError, field string) {
	t.Helper()
	for _, e := range errs {
		if e.Field == field {
			return
		}
	}
	t.Errorf("Expected a validation error for %s, got %v", field, fieldsOf(errs))
}

func TestValidateConfigValid(t *testing.T) {
	if errs := ValidateConfig(validConfig()); len(errs) != 0 {
		t.Errorf("Expected no errors, got %v", errs)
	}
}

func TestValidateTarget(t *testing.T) {
	cfg := validConfig()
	cfg.Target.BaseURL = ""
	expectField(t, ValidateConfig(cfg), "target.baseUrl")

	cfg = validConfig()
	cfg.Target.BaseURL = "ftp://files.example.com"
	expectField(t, ValidateConfig(cfg), "target.baseUrl")

	cfg = validConfig()
	cfg.Target.Timeout = "eventually"
	expectField(t, ValidateConfig(cfg), "target.timeout")
}

func TestValidateProfile(t *testing.T) {
	cfg := validConfig()
	cfg.Profile = []StepConfig{{Kind: StepSpike, Users: -1}}
	expectField(t, ValidateConfig(cfg), "profile[0].users")

	cfg = validConfig()
	cfg.Profile = []StepConfig{{Kind: StepRampUp, To: 10}}
	expectField(t, ValidateConfig(cfg), "profile[0].duration")

	cfg = validConfig()
	cfg.Profile = []StepConfig{{Kind: StepSteady, Users: 5, Duration: "0s"}}
	expectField(t, ValidateConfig(cfg), "profile[0].duration")

	cfg = validConfig()
	cfg.Profile = []StepConfig{{Kind: StepStressRamp, From: -2, To: 10, Duration: "5s"}}
	expectField(t, ValidateConfig(cfg), "profile[0].from")

	cfg = validConfig()
	cfg.Profile = []StepConfig{{Kind: "sawtooth"}}
	expectField(t, ValidateConfig(cfg), "profile[0].kind")
}

func TestValidateProfileAcceptsSeparatorVariants(t *testing.T) {
	cfg := validConfig()
	cfg.Profile = []StepConfig{
		{Kind: "ramp_up", To: 10, Duration: "5s"},
		{Kind: "Stress-Ramp", From: 1, To: 2, Duration: "5s"},
	}
	if errs := ValidateConfig(cfg); len(errs) != 0 {
		t.Errorf("Expected no errors for kind spelling variants, got %v", errs)
	}
}

func TestValidateRequests(t *testing.T) {
	cfg := validConfig()
	cfg.Requests = []RequestConfig{{Method: "GET"}}
	expectField(t, ValidateConfig(cfg), "requests[0].path")

	cfg = validConfig()
	cfg.Requests = []RequestConfig{{Path: "/users"}}
	expectField(t, ValidateConfig(cfg), "requests[0].method")

	cfg = validConfig()
	cfg.Requests = []RequestConfig{{Method: "YEET", Path: "/users"}}
	expectField(t, ValidateConfig(cfg), "requests[0].method")

	cfg = validConfig()
	cfg.Requests = []RequestConfig{
		{Method: "POST", Path: "/users", Body: `{"a":1}`, JSON: map[string]interface{}{"a": 1}},
	}
	expectField(t, ValidateConfig(cfg), "requests[0]")
}

func TestValidateRequestsDuplicateNames(t *testing.T) {
	cfg := validConfig()
	cfg.Requests = []RequestConfig{
		{Name: "same", Method: "GET", Path: "/a"},
		{Name: "same", Method: "GET", Path: "/b"},
	}
	expectField(t, ValidateConfig(cfg), "requests[1].name")

	// Unnamed requests collide on their derived "METHOD path" label too.
	cfg = validConfig()
	cfg.Requests = []RequestConfig{
		{Method: "GET", Path: "/users"},
		{Method: "get", Path: "/users"},
	}
	expectField(t, ValidateConfig(cfg), "requests[1].name")
}

func TestValidateRequestsSchemaReference(t *testing.T) {
	cfg := validConfig()
	cfg.Requests = []RequestConfig{{
		Method:   "GET",
		Path:     "/users",
		Validate: &ChecksConfig{Schema: "user"},
	}}
	expectField(t, ValidateConfig(cfg), "requests[0].validate.schema")

	cfg.Schemas = map[string]interface{}{
		"user": map[string]interface{}{"type": "object"},
	}
	if errs := ValidateConfig(cfg); len(errs) != 0 {
		t.Errorf("Expected no errors once the schema exists, got %v", errs)
	}
}

func TestValidatePacing(t *testing.T) {
	cfg := validConfig()
	cfg.Pacing = PacingConfig{Kind: PacingConstant}
	expectField(t, ValidateConfig(cfg), "pacing.min")

	cfg = validConfig()
	cfg.Pacing = PacingConfig{Kind: PacingRandom, Min: "2s", Max: "1s"}
	expectField(t, ValidateConfig(cfg), "pacing.max")

	cfg = validConfig()
	cfg.Pacing = PacingConfig{Kind: "fibonacci"}
	expectField(t, ValidateConfig(cfg), "pacing.kind")

	cfg = validConfig()
	cfg.Pacing = PacingConfig{Kind: PacingRandom, Min: "500ms", Max: "2s"}
	if errs := ValidateConfig(cfg); len(errs) != 0 {
		t.Errorf("Expected no errors for valid random pacing, got %v", errs)
	}
}

func TestValidateRunner(t *testing.T) {
	cfg := validConfig()
	cfg.Runner = "turbo"
	expectField(t, ValidateConfig(cfg), "runner")

	for _, ok := range []string{"", RunnerSync, RunnerConcurrent} {
		if errs := validateRunner(ok); len(errs) != 0 {
			t.Errorf("Runner %q should be valid, got %v", ok, errs)
		}
	}
}

func TestValidateLog(t *testing.T) {
	cfg := validConfig()
	cfg.Log = LogConfig{Level: "loud"}
	expectField(t, ValidateConfig(cfg), "log.level")

	cfg = validConfig()
	cfg.Log = LogConfig{Format: "xml"}
	expectField(t, ValidateConfig(cfg), "log.format")

	cfg = validConfig()
	cfg.Log = LogConfig{Output: "file"}
	expectField(t, ValidateConfig(cfg), "log.filePath")
}

func TestValidationErrorMessage(t *testing.T) {
	err := ValidationError{Field: "target.baseUrl", Message: "baseUrl is required"}
	if got := err.Error(); !strings.HasPrefix(got, "target.baseUrl: ") {
		t.Errorf("Unexpected error format: %q", got)
	}
}

func TestRequestDisplayName(t *testing.T) {
	named := RequestConfig{Name: "list-users", Method: "get", Path: "/users"}
	if got := named.DisplayName(); got != "list-users" {
		t.Errorf("Expected the explicit name, got %q", got)
	}

	unnamed := RequestConfig{Method: "get", Path: "/users"}
	if got := unnamed.DisplayName(); got != "GET /users" {
		t.Errorf("Expected the derived name, got %q", got)
	}
}
