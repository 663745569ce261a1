package config

import (
	"fmt"
	"strings"
)

// ValidationError pinpoints a bad config value by field path.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns the error message.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var validMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// ValidateConfig checks every section and returns all problems found.
func ValidateConfig(cfg *Config) []ValidationError {
	var errs []ValidationError

	errs = append(errs, validateTarget(&cfg.Target)...)
	errs = append(errs, validateProfile(cfg.Profile)...)
	errs = append(errs, validateRequests(cfg)...)
	errs = append(errs, validatePacing(&cfg.Pacing)...)
	errs = append(errs, validateRunner(cfg.Runner)...)
	errs = append(errs, validateLog(&cfg.Log)...)

	return errs
}

func validateTarget(target *TargetConfig) []ValidationError {
	var errs []ValidationError

	if target.BaseURL == "" {
		errs = append(errs, ValidationError{
			Field:   "target.baseUrl",
			Message: "baseUrl is required (set it in the file, via SURGE_BASE_URL, or with --url)",
		})
	} else if !strings.HasPrefix(target.BaseURL, "http://") && !strings.HasPrefix(target.BaseURL, "https://") {
		errs = append(errs, ValidationError{
			Field:   "target.baseUrl",
			Message: fmt.Sprintf("baseUrl must start with http:// or https://, got %q", target.BaseURL),
		})
	}

	if target.Timeout != "" {
		if _, err := ParseDuration(target.Timeout); err != nil {
			errs = append(errs, ValidationError{
				Field:   "target.timeout",
				Message: fmt.Sprintf("invalid duration %q", target.Timeout),
			})
		}
	}

	return errs
}

func validateProfile(steps []StepConfig) []ValidationError {
	var errs []ValidationError

	for i, step := range steps {
		field := fmt.Sprintf("profile[%d]", i)
		switch normalizeKind(step.Kind) {
		case "spike":
			if step.Users < 0 {
				errs = append(errs, ValidationError{Field: field + ".users", Message: "users cannot be negative"})
			}
		case "rampup":
			if step.To < 0 {
				errs = append(errs, ValidationError{Field: field + ".to", Message: "to cannot be negative"})
			}
			errs = append(errs, validateStepDuration(field, step.Duration)...)
		case "steady":
			if step.Users < 0 {
				errs = append(errs, ValidationError{Field: field + ".users", Message: "users cannot be negative"})
			}
			errs = append(errs, validateStepDuration(field, step.Duration)...)
		case "stressramp":
			if step.From < 0 {
				errs = append(errs, ValidationError{Field: field + ".from", Message: "from cannot be negative"})
			}
			if step.To < 0 {
				errs = append(errs, ValidationError{Field: field + ".to", Message: "to cannot be negative"})
			}
			errs = append(errs, validateStepDuration(field, step.Duration)...)
		default:
			errs = append(errs, ValidationError{
				Field:   field + ".kind",
				Message: fmt.Sprintf("unknown kind %q (want spike, rampUp, steady or stressRamp)", step.Kind),
			})
		}
	}

	return errs
}

func validateStepDuration(field, duration string) []ValidationError {
	if duration == "" {
		return []ValidationError{{Field: field + ".duration", Message: "duration is required"}}
	}
	d, err := ParseDuration(duration)
	if err != nil {
		return []ValidationError{{Field: field + ".duration", Message: fmt.Sprintf("invalid duration %q", duration)}}
	}
	if d <= 0 {
		return []ValidationError{{Field: field + ".duration", Message: "duration must be positive"}}
	}
	return nil
}

func validateRequests(cfg *Config) []ValidationError {
	var errs []ValidationError

	seen := map[string]bool{}
	for i, req := range cfg.Requests {
		field := fmt.Sprintf("requests[%d]", i)

		if req.Path == "" {
			errs = append(errs, ValidationError{Field: field + ".path", Message: "path is required"})
		}

		if req.Method == "" {
			errs = append(errs, ValidationError{Field: field + ".method", Message: "method is required"})
		} else if !validMethods[strings.ToUpper(req.Method)] {
			errs = append(errs, ValidationError{
				Field:   field + ".method",
				Message: fmt.Sprintf("invalid method: %s", req.Method),
			})
		}

		if req.Body != "" && req.JSON != nil {
			errs = append(errs, ValidationError{Field: field, Message: "body and json are mutually exclusive"})
		}

		name := req.DisplayName()
		if seen[name] {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("duplicate request name %q", name),
			})
		}
		seen[name] = true

		if req.Validate != nil && req.Validate.Schema != "" {
			if _, ok := cfg.Schemas[req.Validate.Schema]; !ok {
				errs = append(errs, ValidationError{
					Field:   field + ".validate.schema",
					Message: fmt.Sprintf("schema not found: %s", req.Validate.Schema),
				})
			}
		}
	}

	return errs
}

func validatePacing(pacing *PacingConfig) []ValidationError {
	var errs []ValidationError

	switch normalizeKind(pacing.Kind) {
	case "", "none":
	case "constant":
		if pacing.Min == "" {
			errs = append(errs, ValidationError{Field: "pacing.min", Message: "constant pacing requires min"})
		} else if _, err := ParseDuration(pacing.Min); err != nil {
			errs = append(errs, ValidationError{Field: "pacing.min", Message: fmt.Sprintf("invalid duration %q", pacing.Min)})
		}
	case "random":
		min, minErr := ParseDuration(pacing.Min)
		max, maxErr := ParseDuration(pacing.Max)
		if pacing.Min == "" || minErr != nil {
			errs = append(errs, ValidationError{Field: "pacing.min", Message: fmt.Sprintf("invalid duration %q", pacing.Min)})
		}
		if pacing.Max == "" || maxErr != nil {
			errs = append(errs, ValidationError{Field: "pacing.max", Message: fmt.Sprintf("invalid duration %q", pacing.Max)})
		}
		if minErr == nil && maxErr == nil && max < min {
			errs = append(errs, ValidationError{Field: "pacing.max", Message: "max must be >= min"})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "pacing.kind",
			Message: fmt.Sprintf("unknown kind %q (want none, constant or random)", pacing.Kind),
		})
	}

	return errs
}

func validateRunner(runner string) []ValidationError {
	switch runner {
	case "", RunnerSync, RunnerConcurrent:
		return nil
	}
	return []ValidationError{{
		Field:   "runner",
		Message: fmt.Sprintf("unknown runner %q (want sync or concurrent)", runner),
	}}
}

func validateLog(log *LogConfig) []ValidationError {
	var errs []ValidationError

	switch log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{Field: "log.level", Message: fmt.Sprintf("unknown level %q", log.Level)})
	}
	switch log.Format {
	case "", "json", "console":
	default:
		errs = append(errs, ValidationError{Field: "log.format", Message: fmt.Sprintf("unknown format %q", log.Format)})
	}
	switch log.Output {
	case "", "stdout", "file", "both":
	default:
		errs = append(errs, ValidationError{Field: "log.output", Message: fmt.Sprintf("unknown output %q", log.Output)})
	}
	if (log.Output == "file" || log.Output == "both") && log.FilePath == "" {
		errs = append(errs, ValidationError{Field: "log.filePath", Message: "filePath is required for file output"})
	}

	return errs
}

// DisplayName returns the metrics label for a request: the configured name,
// or "METHOD path" when none was given.
func (r RequestConfig) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return strings.ToUpper(r.Method) + " " + r.Path
}
