package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yash/flightinsight/internal/insight"
	"github.com/yash/flightinsight/pkg/models"
)

func load(t *testing.T, path string) *Settings {
	t.Helper()
	v, err := New()
	require.NoError(t, err)
	s, err := Load(v, path)
	require.NoError(t, err)
	return s
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flightinsight.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	s := load(t, "")

	assert.Equal(t, "0.0.0.0:8080", s.Server.Address())
	assert.Equal(t, 30*time.Second, s.Fetch.Timeout)
	assert.Equal(t, 5*time.Minute, s.Cache.TTL)
	assert.Equal(t, "https://opensky-network.org/api", s.OpenSky.BaseURL)
	assert.Equal(t, "http://api.aviationstack.com/v1", s.AviationStack.BaseURL)
	assert.Equal(t, insight.DefaultModel, s.Gemini.Model)
	assert.InDelta(t, 0.7, s.Gemini.Temperature, 1e-6)
	assert.Equal(t, int32(1000), s.Gemini.MaxOutputTokens)
	assert.Equal(t, "info", s.Log.Level)
	assert.Equal(t, models.SourcePosition, s.Defaults.SourceValue())
	assert.Equal(t, models.Last24Hours, s.Defaults.TimeRangeValue())
	assert.Equal(t, insight.DefaultKinds(), s.Defaults.Kinds())
}

func TestConfigFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
cache:
  ttl: 1m
gemini:
  model: gemini-2.0-flash
  max_output_tokens: 512
defaults:
  source: aviationstack
  country: Australia
  time_range: 7d
  analyses: [peak_hours, aircraft_types]
log:
  format: json
`)
	s := load(t, path)

	assert.Equal(t, 9090, s.Server.Port)
	assert.Equal(t, time.Minute, s.Cache.TTL)
	assert.Equal(t, "gemini-2.0-flash", s.Gemini.Model)
	assert.Equal(t, int32(512), s.Gemini.MaxOutputTokens)
	assert.Equal(t, models.SourceSchedule, s.Defaults.SourceValue())
	assert.Equal(t, "Australia", s.Defaults.Country)
	assert.Equal(t, models.Last7Days, s.Defaults.TimeRangeValue())
	assert.Equal(t, []insight.Kind{insight.PeakHours, insight.AircraftTypes}, s.Defaults.Kinds())
	assert.Equal(t, "json", s.Log.Format)
}

func TestExplicitConfigFileMustExist(t *testing.T) {
	v, err := New()
	require.NoError(t, err)
	_, err = Load(v, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AVIATIONSTACK_API_KEY", "av-key")
	t.Setenv("GEMINI_API_KEY", "gm-key")
	t.Setenv("FLIGHTINSIGHT_SERVER_PORT", "7070")
	t.Setenv("FLIGHTINSIGHT_LOG_LEVEL", "debug")
	t.Setenv("FLIGHTINSIGHT_DEFAULTS_COUNTRY", "Germany")

	s := load(t, "")
	assert.Equal(t, "av-key", s.AviationStack.APIKey)
	assert.Equal(t, "gm-key", s.Gemini.APIKey)
	assert.Equal(t, 7070, s.Server.Port)
	assert.Equal(t, "debug", s.Log.Level)
	assert.Equal(t, "Germany", s.Defaults.Country)
}

func TestEnvironmentWinsOverFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	t.Setenv("FLIGHTINSIGHT_SERVER_PORT", "7070")
	assert.Equal(t, 7070, load(t, path).Server.Port)
}

func TestInvalidEnvironmentReported(t *testing.T) {
	t.Setenv("FLIGHTINSIGHT_SERVER_PORT", "99999")
	t.Setenv("FLIGHTINSIGHT_LOG_FORMAT", "xml")

	_, err := New()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FLIGHTINSIGHT_SERVER_PORT")
	assert.Contains(t, err.Error(), "FLIGHTINSIGHT_LOG_FORMAT")
}

func TestValidateRejectsBadValues(t *testing.T) {
	path := writeConfig(t, `
gemini:
  temperature: 3
defaults:
  source: flightradar
  time_range: 90d
  analyses: [weather]
runtime:
  memory_mode: tiny
`)
	v, err := New()
	require.NoError(t, err)
	_, err = Load(v, path)
	require.Error(t, err)
	for _, want := range []string{"gemini.temperature", "defaults.source", "defaults.time_range", "defaults.analyses", "runtime.memory_mode"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestEnvValidators(t *testing.T) {
	assert.NoError(t, validateEnvDuration("90s"))
	assert.Error(t, validateEnvDuration("-1s"))
	assert.Error(t, validateEnvDuration("soon"))
	assert.NoError(t, validateEnvURL("http://localhost:8081/api"))
	assert.Error(t, validateEnvURL("ftp://example.com"))
	assert.NoError(t, validateEnvTemperature("0.2"))
	assert.Error(t, validateEnvTemperature("2.5"))
	assert.NoError(t, validateLogLevel("WARN"))
	assert.Error(t, validateLogLevel("verbose"))
}

// ---------------------------------------------------------------------------
// Runtime
// ---------------------------------------------------------------------------

func TestParseMemoryMode(t *testing.T) {
	tests := []struct {
		in   string
		want MemoryMode
		ok   bool
	}{
		{"", MemoryModeNormal, true},
		{"normal", MemoryModeNormal, true},
		{"Reduced", MemoryModeReduced, true},
		{"aggressive", MemoryModeAggressive, true},
		{"tiny", MemoryModeNormal, false},
	}
	for _, tt := range tests {
		got, ok := ParseMemoryMode(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
	assert.Equal(t, "aggressive", MemoryModeAggressive.String())
	assert.Equal(t, "unknown", MemoryMode(9).String())
}

func TestRuntimeEffective(t *testing.T) {
	eff := RuntimeSettings{MemoryMode: "reduced"}.Effective()
	assert.Equal(t, RuntimeSettings{MemoryMode: "reduced", MemoryLimitMB: 512, GCPercent: 50, MaxProcs: 1}, eff)

	eff = RuntimeSettings{MemoryMode: "aggressive", GCPercent: 30}.Effective()
	assert.Equal(t, 256, eff.MemoryLimitMB)
	assert.Equal(t, 30, eff.GCPercent)

	eff = RuntimeSettings{}.Effective()
	assert.Equal(t, RuntimeSettings{MemoryMode: "normal"}, eff)
}

func TestMonitorInterval(t *testing.T) {
	assert.Equal(t, 5*time.Second, RuntimeSettings{}.MonitorInterval())
	assert.Equal(t, 3*time.Second, RuntimeSettings{MemoryMode: "reduced"}.MonitorInterval())
	assert.Equal(t, 2*time.Second, RuntimeSettings{MemoryMode: "aggressive"}.MonitorInterval())
}
