// Package config defines the application configuration, its defaults and
// validation.  No I/O lives in this file; loading is in loader.go.
package config

import (
	"fmt"
	"time"

	"github.com/ivszhuravlev/rt-bioeval/internal/domain/dvh"
	"github.com/ivszhuravlev/rt-bioeval/internal/domain/radiobiology"
	"github.com/ivszhuravlev/rt-bioeval/internal/infrastructure/monitoring/logging"
	"github.com/ivszhuravlev/rt-bioeval/pkg/errors"
)

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
}

// PipelineConfig holds batch analysis parameters.
type PipelineConfig struct {
	// InputDir holds the DVH export files, OutputDir receives results.
	InputDir  string `mapstructure:"input_dir"`
	OutputDir string `mapstructure:"output_dir"`

	// Patients restricts the run to the listed patient IDs.  Empty means
	// discover every patient whose files match DiscoveryGlob.
	Patients []string `mapstructure:"patients"`

	// DiscoveryGlob matches DVH files during patient discovery; the
	// patient ID is the file name segment before the first underscore.
	DiscoveryGlob string `mapstructure:"discovery_glob"`

	// Concurrency caps the number of patients processed in parallel.
	Concurrency int `mapstructure:"concurrency"`
}

// AnalysisConfig holds the structure role mapping and the model parameter
// sets.  Parameter maps mirror the YAML layout: one flat map per role, with
// numeric model parameters plus an optional "endpoint" string for NTCP
// models.
type AnalysisConfig struct {
	StructureMapping map[string][]string               `mapstructure:"structure_mapping"`
	TCP              map[string]map[string]interface{} `mapstructure:"tcp"`
	NTCP             map[string]map[string]interface{} `mapstructure:"ntcp"`
}

// Config is the root configuration.
type Config struct {
	Log      logging.LogConfig `mapstructure:"log"`
	Server   ServerConfig      `mapstructure:"server"`
	Pipeline PipelineConfig    `mapstructure:"pipeline"`
	Analysis AnalysisConfig    `mapstructure:"analysis"`
}

// RoleMapping converts the configured structure mapping into the domain
// type, falling back to the built-in mapping when none is configured.
func (a *AnalysisConfig) RoleMapping() dvh.RoleMapping {
	if len(a.StructureMapping) == 0 {
		return dvh.DefaultRoleMapping()
	}
	m := make(dvh.RoleMapping, len(a.StructureMapping))
	for role, names := range a.StructureMapping {
		m[role] = append([]string(nil), names...)
	}
	return m
}

// TargetParams builds the validated logistic TCP parameters for the target
// role from the configured parameter set.
func (a *AnalysisConfig) TargetParams() (radiobiology.LogisticParams, error) {
	raw, ok := a.TCP[dvh.RoleTarget]
	if !ok {
		return radiobiology.LogisticParams{}, errors.Configuration(
			"tcp parameter set for the target role is missing").
			WithDetail("role=" + dvh.RoleTarget)
	}
	set, _, err := toParamSet(raw)
	if err != nil {
		return radiobiology.LogisticParams{}, err
	}
	params, err := radiobiology.LogisticParamsFromSet(set)
	if err != nil {
		return radiobiology.LogisticParams{}, err
	}
	return params, params.Validate()
}

// OrganParams builds the validated probit NTCP parameters for every
// configured organ-at-risk role.
func (a *AnalysisConfig) OrganParams() (map[string]radiobiology.ProbitParams, error) {
	organs := make(map[string]radiobiology.ProbitParams, len(a.NTCP))
	for role, raw := range a.NTCP {
		set, endpoint, err := toParamSet(raw)
		if err != nil {
			return nil, err
		}
		params, err := radiobiology.ProbitParamsFromSet(set)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeUnknown,
				"bad NTCP parameter set").WithDetail("role=" + role)
		}
		params.Endpoint = endpoint
		if err := params.Validate(); err != nil {
			return nil, errors.Wrap(err, errors.CodeUnknown,
				"bad NTCP parameter set").WithDetail("role=" + role)
		}
		organs[role] = params
	}
	return organs, nil
}

// toParamSet splits a raw YAML parameter map into numeric model parameters
// and the optional endpoint descriptor.
func toParamSet(raw map[string]interface{}) (radiobiology.ParamSet, string, error) {
	set := make(radiobiology.ParamSet, len(raw))
	endpoint := ""
	for key, value := range raw {
		if key == "endpoint" {
			s, ok := value.(string)
			if !ok {
				return nil, "", errors.Configuration("endpoint must be a string").
					WithDetailf("got %T", value)
			}
			endpoint = s
			continue
		}
		switch v := value.(type) {
		case float64:
			set[key] = v
		case float32:
			set[key] = float64(v)
		case int:
			set[key] = float64(v)
		case int64:
			set[key] = float64(v)
		default:
			return nil, "", errors.Configuration("model parameter must be numeric").
				WithDetailf("key=%s got %T", key, value)
		}
	}
	return set, endpoint, nil
}

func (s *ServerConfig) validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", s.Port)
	}
	switch s.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode %q must be debug, release or test", s.Mode)
	}
	return nil
}

func (p *PipelineConfig) validate() error {
	if p.Concurrency < 1 {
		return fmt.Errorf("pipeline.concurrency %d must be at least 1", p.Concurrency)
	}
	if p.InputDir == "" {
		return fmt.Errorf("pipeline.input_dir must not be empty")
	}
	if p.OutputDir == "" {
		return fmt.Errorf("pipeline.output_dir must not be empty")
	}
	return nil
}

// Validate checks the whole configuration, including that every model
// parameter set converts into a valid typed record, so that a broken
// config fails at startup rather than mid-run.
func (c *Config) Validate() error {
	if err := c.Server.validate(); err != nil {
		return err
	}
	if err := c.Pipeline.validate(); err != nil {
		return err
	}
	if _, err := c.Analysis.TargetParams(); err != nil {
		return err
	}
	if _, err := c.Analysis.OrganParams(); err != nil {
		return err
	}
	return nil
}
