// Package config loads flightinsight settings from defaults, an optional
// YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/yash/flightinsight/internal/cache"
	"github.com/yash/flightinsight/internal/ingestion"
	"github.com/yash/flightinsight/internal/insight"
	"github.com/yash/flightinsight/pkg/models"
)

// EnvPrefix prefixes every environment variable except the two API keys.
const EnvPrefix = "FLIGHTINSIGHT"

// Settings is the complete application configuration.
type Settings struct {
	Server        ServerSettings        `mapstructure:"server"`
	Fetch         FetchSettings         `mapstructure:"fetch"`
	Cache         CacheSettings         `mapstructure:"cache"`
	OpenSky       OpenSkySettings       `mapstructure:"opensky"`
	AviationStack AviationStackSettings `mapstructure:"aviationstack"`
	Gemini        GeminiSettings        `mapstructure:"gemini"`
	Log           LogSettings           `mapstructure:"log"`
	Defaults      DefaultSettings       `mapstructure:"defaults"`
	Runtime       RuntimeSettings       `mapstructure:"runtime"`
}

type ServerSettings struct {
	Addr            string        `mapstructure:"addr"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address is addr:port.
func (s ServerSettings) Address() string {
	return fmt.Sprintf("%s:%d", s.Addr, s.Port)
}

type FetchSettings struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type CacheSettings struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type OpenSkySettings struct {
	BaseURL string `mapstructure:"base_url"`
}

type AviationStackSettings struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

type GeminiSettings struct {
	APIKey          string  `mapstructure:"api_key"`
	Model           string  `mapstructure:"model"`
	Temperature     float32 `mapstructure:"temperature"`
	MaxOutputTokens int32   `mapstructure:"max_output_tokens"`
}

type LogSettings struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"` // empty logs to stderr
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// DefaultSettings are the preselected dashboard inputs.
type DefaultSettings struct {
	Source    string   `mapstructure:"source"`
	Country   string   `mapstructure:"country"`
	TimeRange string   `mapstructure:"time_range"`
	Analyses  []string `mapstructure:"analyses"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 3*time.Minute) // insight generation is slow
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("fetch.timeout", ingestion.DefaultTimeout)
	v.SetDefault("cache.ttl", cache.DefaultTTL)

	v.SetDefault("opensky.base_url", ingestion.DefaultOpenSkyURL)
	v.SetDefault("aviationstack.base_url", ingestion.DefaultAviationStackURL)
	v.SetDefault("aviationstack.api_key", "")

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", insight.DefaultModel)
	v.SetDefault("gemini.temperature", 0.7)
	v.SetDefault("gemini.max_output_tokens", 1000)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("defaults.source", models.SourcePosition.String())
	v.SetDefault("defaults.country", "United States")
	v.SetDefault("defaults.time_range", models.Last24Hours.String())
	v.SetDefault("defaults.analyses", []string{string(insight.RoutePopularity), string(insight.DemandTrends)})

	v.SetDefault("runtime.memory_mode", MemoryModeNormal.String())
	v.SetDefault("runtime.memory_limit_mb", 0)
	v.SetDefault("runtime.gc_percent", 0)
	v.SetDefault("runtime.max_procs", 0)
}

// New returns a viper instance with defaults and environment bindings
// installed. Callers may bind command-line flags to it before Load.
func New() (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindEnvVars(v); err != nil {
		return v, err
	}
	return v, nil
}

// Load reads the config file, if any, and decodes v into Settings. An
// explicit path must exist; otherwise flightinsight.yaml is looked up in the
// working directory and the user config directory.
func Load(v *viper.Viper, path string) (*Settings, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("flightinsight")
		v.SetConfigType("yaml")
		for _, dir := range configPaths() {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func configPaths() []string {
	paths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "flightinsight"))
	}
	return paths
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// Validate checks value ranges and enumerations.
func (s *Settings) Validate() error {
	var errs []error

	if s.Server.Port < 1 || s.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", s.Server.Port))
	}
	if s.Fetch.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("fetch.timeout must be positive, got %s", s.Fetch.Timeout))
	}
	if s.Cache.TTL <= 0 {
		errs = append(errs, fmt.Errorf("cache.ttl must be positive, got %s", s.Cache.TTL))
	}
	if s.Gemini.Temperature < 0 || s.Gemini.Temperature > 2 {
		errs = append(errs, fmt.Errorf("gemini.temperature must be between 0 and 2, got %g", s.Gemini.Temperature))
	}
	if s.Gemini.MaxOutputTokens < 0 {
		errs = append(errs, fmt.Errorf("gemini.max_output_tokens must not be negative, got %d", s.Gemini.MaxOutputTokens))
	}
	if err := validateLogLevel(s.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if err := validateLogFormat(s.Log.Format); err != nil {
		errs = append(errs, err)
	}
	if _, ok := models.ParseSource(s.Defaults.Source); !ok {
		errs = append(errs, fmt.Errorf("defaults.source: unknown source %q", s.Defaults.Source))
	}
	if _, ok := models.ParseTimeRange(s.Defaults.TimeRange); !ok {
		errs = append(errs, fmt.Errorf("defaults.time_range: unknown time range %q", s.Defaults.TimeRange))
	}
	if _, err := insight.ParseKinds(s.Defaults.Analyses); err != nil {
		errs = append(errs, fmt.Errorf("defaults.analyses: %w", err))
	}
	if _, ok := ParseMemoryMode(s.Runtime.MemoryMode); !ok {
		errs = append(errs, fmt.Errorf("runtime.memory_mode: unknown mode %q", s.Runtime.MemoryMode))
	}

	return errors.Join(errs...)
}

// SourceValue returns the parsed default source. Validate has already
// rejected unknown names.
func (d DefaultSettings) SourceValue() models.Source {
	src, _ := models.ParseSource(d.Source)
	return src
}

// TimeRangeValue returns the parsed default time range.
func (d DefaultSettings) TimeRangeValue() models.TimeRange {
	tr, _ := models.ParseTimeRange(d.TimeRange)
	return tr
}

// Kinds returns the parsed default analyses.
func (d DefaultSettings) Kinds() []insight.Kind {
	kinds, err := insight.ParseKinds(d.Analyses)
	if err != nil {
		return insight.DefaultKinds()
	}
	return kinds
}
