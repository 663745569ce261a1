package engine

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/ahmed-madyan/surge/internal/config"
	"github.com/ahmed-madyan/surge/internal/httpclient"
	"github.com/ahmed-madyan/surge/internal/validation"
)

// Scenario is the unit of work a virtual user repeats: an ordered list of
// requests, each optionally paired with response validation.
type Scenario struct {
	Name     string
	Requests []*ScenarioRequest
}

// ScenarioRequest is one prepared request within a scenario. The Request is
// built once and shared read-only across all virtual users.
//
// When Validator is set it decides request success, replacing the default
// status-class check. This lets a scenario treat an expected 404 as a pass.
type ScenarioRequest struct {
	Name      string
	Request   *httpclient.Request
	Validator *validation.Validator
}

// BuildScenario prepares the scenario from configuration: requests are
// converted to httpclient templates and validation blocks are compiled.
func BuildScenario(cfg *config.Config) (*Scenario, error) {
	if len(cfg.Requests) == 0 {
		return nil, fmt.Errorf("configuration defines no requests")
	}

	scenario := &Scenario{Name: cfg.Name}

	for i := range cfg.Requests {
		rc := &cfg.Requests[i]
		name := rc.DisplayName()

		req := httpclient.NewRequest(rc.Method, rc.Path).WithName(name)
		if len(rc.Headers) > 0 {
			req.WithHeaders(rc.Headers)
		}
		for key, value := range rc.Params {
			req.WithQueryParam(key, value)
		}
		if rc.Body != "" {
			req.WithBody(rc.Body)
		}
		if rc.JSON != nil {
			req.WithJSON(rc.JSON)
		}

		var validator *validation.Validator
		if rc.Validate != nil {
			v, err := validation.FromConfig(rc.Validate, cfg.Schemas)
			if err != nil {
				return nil, fmt.Errorf("request %s: %w", name, err)
			}
			validator = v
		}

		scenario.Requests = append(scenario.Requests, &ScenarioRequest{
			Name:      name,
			Request:   req,
			Validator: validator,
		})
	}

	return scenario, nil
}

// Pacing is the resolved wait applied between iterations of one virtual
// user. The zero value means no pacing.
type Pacing struct {
	Kind string
	Min  time.Duration
	Max  time.Duration
}

func pacingFromConfig(cfg config.PacingConfig) (Pacing, error) {
	switch cfg.Kind {
	case "", config.PacingNone:
		return Pacing{Kind: config.PacingNone}, nil

	case config.PacingConstant:
		min, err := config.ParseDuration(cfg.Min)
		if err != nil {
			return Pacing{}, fmt.Errorf("pacing min: %w", err)
		}
		return Pacing{Kind: config.PacingConstant, Min: min}, nil

	case config.PacingRandom:
		min, err := config.ParseDuration(cfg.Min)
		if err != nil {
			return Pacing{}, fmt.Errorf("pacing min: %w", err)
		}
		max, err := config.ParseDuration(cfg.Max)
		if err != nil {
			return Pacing{}, fmt.Errorf("pacing max: %w", err)
		}
		return Pacing{Kind: config.PacingRandom, Min: min, Max: max}, nil

	default:
		return Pacing{}, fmt.Errorf("unknown pacing kind %q", cfg.Kind)
	}
}

// next returns the wait before the following iteration, zero for no pacing.
func (p Pacing) next() time.Duration {
	switch p.Kind {
	case config.PacingConstant:
		return p.Min
	case config.PacingRandom:
		if diff := p.Max - p.Min; diff > 0 {
			return p.Min + time.Duration(rand.Int63n(int64(diff)))
		}
		return p.Min
	default:
		return 0
	}
}
