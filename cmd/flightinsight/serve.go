package main

import (
	"github.com/spf13/cobra"

	"github.com/yash/flightinsight/internal/logging"
	"github.com/yash/flightinsight/internal/memory"
	"github.com/yash/flightinsight/internal/server"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard HTTP API",
		Long:  "Serves the dashboard API. Data is fetched on demand through POST /api/v1/fetch and held in memory.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s := a.settings
			pipeline := a.newPipeline()

			eff := s.Runtime.Effective()
			memLogger := logging.Component(a.logger, "memory")
			mon := memory.New(memory.Config{
				LimitMB:  eff.MemoryLimitMB,
				Interval: eff.MonitorInterval(),
			}, memLogger)
			mon.AddListener(memory.ShedOnPressure(pipeline, memLogger))
			mon.Start(ctx)
			defer mon.Stop()

			srv := server.New(server.Config{
				Addr:            s.Server.Address(),
				ReadTimeout:     s.Server.ReadTimeout,
				WriteTimeout:    s.Server.WriteTimeout,
				ShutdownTimeout: s.Server.ShutdownTimeout,
				Credentials: server.Credentials{
					AviationStack: s.AviationStack.APIKey != "",
					Gemini:        s.Gemini.APIKey != "",
				},
				Defaults: server.Defaults{
					Source:    s.Defaults.SourceValue(),
					Country:   s.Defaults.Country,
					TimeRange: s.Defaults.TimeRangeValue(),
					Analyses:  s.Defaults.Kinds(),
				},
				Memory: mon,
			}, a.newSession(ctx, pipeline), logging.Component(a.logger, "server"))

			a.logger.Info("flightinsight starting", "version", server.Version, "addr", s.Server.Address())
			err := srv.Run(ctx)
			a.logger.Info("flightinsight stopped")
			return err
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default 0.0.0.0)")
	cmd.Flags().IntP("port", "p", 0, "Listen port (default 8080)")
	a.bindFlag("addr", "server.addr")
	a.bindFlag("port", "server.port")
	return cmd
}
