package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yash/flightinsight/internal/cache"
	"github.com/yash/flightinsight/internal/config"
	"github.com/yash/flightinsight/internal/ingestion"
	"github.com/yash/flightinsight/internal/insight"
	"github.com/yash/flightinsight/internal/logging"
	"github.com/yash/flightinsight/internal/session"
)

// app carries state shared by every subcommand.
type app struct {
	v          *viper.Viper
	envErr     error
	configPath string
	debug      bool
	flagKeys   map[string]string // flag name -> config key

	settings  *config.Settings
	logger    *slog.Logger
	logCloser io.Closer
}

func newRootCommand() *cobra.Command {
	a := &app{}
	a.v, a.envErr = config.New()

	root := &cobra.Command{
		Use:           "flightinsight",
		Short:         "Flight market dashboard backend",
		Long:          "Fetches flight positions or schedules, summarizes them and generates market insights.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.logCloser != nil {
				return a.logCloser.Close()
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "Path to a YAML config file (default: ./flightinsight.yaml if present)")
	pf.BoolVarP(&a.debug, "debug", "d", false, "Enable debug logging")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("log-format", "", "Log format: text or json")
	pf.String("log-file", "", "Write logs to a rotating file instead of stderr")
	a.bindFlag("log-level", "log.level")
	a.bindFlag("log-format", "log.format")
	a.bindFlag("log-file", "log.file")

	root.AddCommand(newServeCommand(a), newFetchCommand(a))
	return root
}

// bindFlag maps a flag onto a config key. viper only prefers a flag over
// file and environment when it was set on the command line.
func (a *app) bindFlag(flag, key string) {
	if a.flagKeys == nil {
		a.flagKeys = make(map[string]string)
	}
	a.flagKeys[flag] = key
}

func (a *app) initialize(cmd *cobra.Command) error {
	if a.envErr != nil {
		return a.envErr
	}
	for name, key := range a.flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue // belongs to another subcommand
		}
		if err := a.v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag --%s: %w", name, err)
		}
	}

	s, err := config.Load(a.v, a.configPath)
	if err != nil {
		return err
	}
	a.settings = s

	logger, closer, err := logging.Setup(logging.Options{
		Level:      s.Log.Level,
		Format:     s.Log.Format,
		Debug:      a.debug,
		File:       s.Log.File,
		MaxSizeMB:  s.Log.MaxSizeMB,
		MaxBackups: s.Log.MaxBackups,
		MaxAgeDays: s.Log.MaxAgeDays,
	})
	if err != nil {
		return err
	}
	a.logger, a.logCloser = logger, closer

	eff := s.Runtime.Apply()
	a.logger.Debug("runtime configured",
		"memory_mode", eff.MemoryMode,
		"memory_limit_mb", eff.MemoryLimitMB,
		"gc_percent", eff.GCPercent,
		"max_procs", eff.MaxProcs)
	if used := a.v.ConfigFileUsed(); used != "" {
		a.logger.Info("config loaded", "file", used)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Wiring
// ---------------------------------------------------------------------------

func (a *app) newPipeline() *ingestion.Pipeline {
	s := a.settings
	opensky := ingestion.NewOpenSkyClient(
		ingestion.WithBaseURL(s.OpenSky.BaseURL),
		ingestion.WithTimeout(s.Fetch.Timeout),
		ingestion.WithLogger(logging.Component(a.logger, "opensky")),
	)
	aviationstack := ingestion.NewAviationStackClient(
		ingestion.WithBaseURL(s.AviationStack.BaseURL),
		ingestion.WithTimeout(s.Fetch.Timeout),
		ingestion.WithAPIKey(s.AviationStack.APIKey),
		ingestion.WithLogger(logging.Component(a.logger, "aviationstack")),
	)
	return ingestion.NewPipeline(opensky, aviationstack,
		ingestion.WithCache(cache.New[ingestion.FetchResult](s.Cache.TTL)),
		ingestion.WithPipelineLogger(logging.Component(a.logger, "pipeline")),
	)
}

// newGenerator returns a generator backed by Gemini when a key is
// configured. A client that cannot be created degrades to local fallbacks.
func (a *app) newGenerator(ctx context.Context) *insight.Generator {
	s := a.settings
	logger := logging.Component(a.logger, "insight")
	if s.Gemini.APIKey == "" {
		logger.Warn("Gemini API key not found, insights use local summaries", "env", "GEMINI_API_KEY")
		return insight.NewGenerator(nil, logger)
	}
	model, err := insight.NewGeminiGenerator(ctx, insight.GeminiConfig{
		APIKey:          s.Gemini.APIKey,
		Model:           s.Gemini.Model,
		Temperature:     s.Gemini.Temperature,
		MaxOutputTokens: s.Gemini.MaxOutputTokens,
	})
	if err != nil {
		logger.Error("Gemini client unavailable, insights use local summaries", "error", err)
		return insight.NewGenerator(nil, logger)
	}
	logger.Info("Gemini client ready", "model", model.Model())
	return insight.NewGenerator(model, logger)
}

func (a *app) newSession(ctx context.Context, p *ingestion.Pipeline) *session.Session {
	return session.New(p, a.newGenerator(ctx), logging.Component(a.logger, "session"))
}
