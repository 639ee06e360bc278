// cmd/contract-qa/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"contract-qa/internal/bootstrap"
	"contract-qa/internal/common/config"
	"contract-qa/internal/common/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "contract-qa",
		Short:         "Question answering over ingested customer contracts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: configs/config.yaml)")

	root.AddCommand(newServeCmd(), newIngestCmd(), newAskCmd(), newWorkerCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// setup loads configuration and wires the application. The returned zap
// logger must be synced by the caller.
func setup(ctx context.Context) (*bootstrap.App, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("config load failed: %w", err)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.NewZapAdapter(zapLog).With(map[string]interface{}{
		"service":     cfg.App.Name,
		"environment": cfg.App.Environment,
	})

	app, err := bootstrap.New(ctx, cfg, log, bootstrap.Options{})
	if err != nil {
		zapLog.Sync()
		return nil, nil, err
	}
	return app, zapLog, nil
}
