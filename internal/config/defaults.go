package config

import (
	"time"

	"github.com/ivszhuravlev/rt-bioeval/internal/domain/dvh"
)

// Default model parameters, taken from the published LKB fits for
// conventionally fractionated lung cancer RT and the Niemierko logistic
// fit for NSCLC tumor control.
func defaultTCP() map[string]map[string]interface{} {
	return map[string]map[string]interface{}{
		dvh.RoleTarget: {
			"a":        -10.0,
			"tcd50_gy": 51.24,
			"gamma50":  0.83,
		},
	}
}

func defaultNTCP() map[string]map[string]interface{} {
	return map[string]map[string]interface{}{
		dvh.RoleLung: {
			"n":        0.87,
			"m":        0.18,
			"td50_gy":  24.5,
			"endpoint": "pneumonitis grade >=2",
		},
		dvh.RoleHeart: {
			"n":        0.35,
			"m":        0.10,
			"td50_gy":  48.0,
			"endpoint": "pericarditis",
		},
		dvh.RoleEsophagus: {
			"n":        0.06,
			"m":        0.11,
			"td50_gy":  68.0,
			"endpoint": "clinical stricture/perforation",
		},
		dvh.RoleSpinalCord: {
			"n":        0.05,
			"m":        0.175,
			"td50_gy":  66.5,
			"endpoint": "myelitis/necrosis",
		},
	}
}

// ApplyDefaults fills every unset field of cfg in place.  Loading always
// runs it before validation, so a zero Config plus defaults is valid.
func ApplyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 32 << 20
	}

	if cfg.Pipeline.InputDir == "" {
		cfg.Pipeline.InputDir = "input"
	}
	if cfg.Pipeline.OutputDir == "" {
		cfg.Pipeline.OutputDir = "output"
	}
	if cfg.Pipeline.DiscoveryGlob == "" {
		cfg.Pipeline.DiscoveryGlob = "*_DVH_*.txt"
	}
	if cfg.Pipeline.Concurrency == 0 {
		cfg.Pipeline.Concurrency = 4
	}

	if len(cfg.Analysis.StructureMapping) == 0 {
		mapping := dvh.DefaultRoleMapping()
		cfg.Analysis.StructureMapping = make(map[string][]string, len(mapping))
		for role, names := range mapping {
			cfg.Analysis.StructureMapping[role] = append([]string(nil), names...)
		}
	}
	if len(cfg.Analysis.TCP) == 0 {
		cfg.Analysis.TCP = defaultTCP()
	}
	if len(cfg.Analysis.NTCP) == 0 {
		cfg.Analysis.NTCP = defaultNTCP()
	}
}
