// cmd/contract-qa/serve.go
package main

import (
	"contract-qa/internal/common/config"
	"contract-qa/internal/ingest"
	"contract-qa/internal/server"

	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, zapLog, err := setup(ctx)
			if err != nil {
				return err
			}
			defer zapLog.Sync()
			defer app.Close()

			cfg := app.Config
			if err := app.Service.Restore(ctx); err != nil {
				app.Logger.Warn("initial store build failed", map[string]interface{}{"error": err.Error()})
			}

			srv := server.New(server.Config{
				Address:         cfg.Server.Address,
				ReadTimeout:     config.GetDuration(cfg.Server.ReadTimeout),
				WriteTimeout:    config.GetDuration(cfg.Server.WriteTimeout),
				ShutdownTimeout: config.GetDuration(cfg.Server.ShutdownTimeout),
			}, app.Service, app.Logger)

			if watch || cfg.Ingestion.Watch {
				watcher, err := ingest.NewWatcher(app.Ingestor.Supports, config.GetDuration(cfg.Ingestion.WatchDebounce), app.Logger)
				if err != nil {
					return err
				}
				go func() {
					if err := app.Service.Watch(ctx, watcher); err != nil {
						app.Logger.Error("document watcher stopped", map[string]interface{}{"error": err.Error()})
					}
				}()
			}

			err = srv.ListenAndServe(ctx)
			app.Logger.Info("server stopped", nil)
			return err
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "rebuild the store when the documents directory changes")
	return cmd
}
