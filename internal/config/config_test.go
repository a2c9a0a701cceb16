package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivszhuravlev/rt-bioeval/internal/domain/dvh"
)

func defaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

func TestDefaultsValidate(t *testing.T) {
	cfg := defaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Pipeline.Concurrency)
	assert.Equal(t, "*_DVH_*.txt", cfg.Pipeline.DiscoveryGlob)
}

func TestDefaultModelParams(t *testing.T) {
	cfg := defaultConfig()

	target, err := cfg.Analysis.TargetParams()
	require.NoError(t, err)
	assert.Equal(t, -10.0, target.A)
	assert.Equal(t, 51.24, target.TCD50Gy)

	organs, err := cfg.Analysis.OrganParams()
	require.NoError(t, err)
	require.Contains(t, organs, dvh.RoleLung)
	lung := organs[dvh.RoleLung]
	assert.Equal(t, 0.87, lung.N)
	assert.Equal(t, 0.18, lung.M)
	assert.Equal(t, 24.5, lung.TD50Gy)
	assert.Equal(t, "pneumonitis grade >=2", lung.Endpoint)

	for _, role := range []string{dvh.RoleHeart, dvh.RoleEsophagus, dvh.RoleSpinalCord} {
		assert.Contains(t, organs, role)
	}
}

func TestDefaultRoleMapping(t *testing.T) {
	cfg := defaultConfig()
	mapping := cfg.Analysis.RoleMapping()
	assert.Equal(t, []string{"PTV_6600", "PTV_6000", "PTV"}, mapping[dvh.RoleTarget])
}

func TestCustomRoleMapping(t *testing.T) {
	cfg := defaultConfig()
	cfg.Analysis.StructureMapping = map[string][]string{
		dvh.RoleTarget: {"GTV"},
	}
	mapping := cfg.Analysis.RoleMapping()
	assert.Equal(t, []string{"GTV"}, mapping[dvh.RoleTarget])
	assert.NotContains(t, mapping, dvh.RoleLung)
}

func TestValidateRejectsBadServer(t *testing.T) {
	cfg := defaultConfig()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.Server.Mode = "production"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadPipeline(t *testing.T) {
	cfg := defaultConfig()
	cfg.Pipeline.Concurrency = -1
	assert.Error(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.Pipeline.InputDir = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadModels(t *testing.T) {
	cfg := defaultConfig()
	delete(cfg.Analysis.TCP, dvh.RoleTarget)
	assert.Error(t, cfg.Validate())

	cfg = defaultConfig()
	delete(cfg.Analysis.NTCP[dvh.RoleLung], "td50_gy")
	assert.Error(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.Analysis.NTCP[dvh.RoleLung]["m"] = "steep"
	assert.Error(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.Analysis.NTCP[dvh.RoleLung]["endpoint"] = 42
	assert.Error(t, cfg.Validate())
}

func TestParamSetAcceptsIntegers(t *testing.T) {
	cfg := defaultConfig()
	cfg.Analysis.TCP[dvh.RoleTarget] = map[string]interface{}{
		"a":        -10,
		"tcd50_gy": 60,
		"gamma50":  2,
	}
	target, err := cfg.Analysis.TargetParams()
	require.NoError(t, err)
	assert.Equal(t, -10.0, target.A)
	assert.Equal(t, 60.0, target.TCD50Gy)
}
