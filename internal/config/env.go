package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding maps a config key to an explicit environment variable.
type envBinding struct {
	ConfigKey string
	EnvVar    string
	Validate  func(string) error
}

// getEnvBindings lists variables whose names do not follow the
// FLIGHTINSIGHT_ prefix rule, plus prefixed ones that get validated early.
func getEnvBindings() []envBinding {
	return []envBinding{
		// Credentials keep their upstream names
		{"aviationstack.api_key", "AVIATIONSTACK_API_KEY", nil},
		{"gemini.api_key", "GEMINI_API_KEY", nil},

		{"server.port", "FLIGHTINSIGHT_SERVER_PORT", validateEnvPort},
		{"fetch.timeout", "FLIGHTINSIGHT_FETCH_TIMEOUT", validateEnvDuration},
		{"cache.ttl", "FLIGHTINSIGHT_CACHE_TTL", validateEnvDuration},
		{"opensky.base_url", "FLIGHTINSIGHT_OPENSKY_BASE_URL", validateEnvURL},
		{"aviationstack.base_url", "FLIGHTINSIGHT_AVIATIONSTACK_BASE_URL", validateEnvURL},
		{"gemini.temperature", "FLIGHTINSIGHT_GEMINI_TEMPERATURE", validateEnvTemperature},
		{"log.level", "FLIGHTINSIGHT_LOG_LEVEL", validateLogLevel},
		{"log.format", "FLIGHTINSIGHT_LOG_FORMAT", validateLogFormat},
	}
}

// bindEnvVars binds every entry of getEnvBindings and validates values that
// are set. All problems are reported together.
func bindEnvVars(v *viper.Viper) error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}
		if binding.Validate == nil {
			continue
		}
		if value := os.Getenv(binding.EnvVar); value != "" {
			if err := binding.Validate(value); err != nil {
				warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, value, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Validators
// ---------------------------------------------------------------------------

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %s", d)
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	return nil
}

func validateEnvTemperature(value string) error {
	t, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return fmt.Errorf("invalid temperature: %w", err)
	}
	if t < 0 || t > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %g", t)
	}
	return nil
}

func validateLogLevel(value string) error {
	var l slog.Level
	if err := l.UnmarshalText([]byte(value)); err != nil {
		return fmt.Errorf("log level must be debug, info, warn or error, got %q", value)
	}
	return nil
}

func validateLogFormat(value string) error {
	switch strings.ToLower(value) {
	case "text", "json":
		return nil
	}
	return fmt.Errorf("log format must be text or json, got %q", value)
}
