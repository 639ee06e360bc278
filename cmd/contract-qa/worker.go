// cmd/contract-qa/worker.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"contract-qa/internal/bootstrap"
	"contract-qa/internal/common/camunda"
	"contract-qa/internal/common/config"
	analyzecontract "contract-qa/internal/workers/contract-qa/analyze-contract"
	retrievepassages "contract-qa/internal/workers/contract-qa/retrieve-passages"
	routequery "contract-qa/internal/workers/contract-qa/route-query"
	runturn "contract-qa/internal/workers/contract-qa/run-turn"
	summarizecontract "contract-qa/internal/workers/contract-qa/summarize-contract"
	"contract-qa/pkg/registry"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newWorkerCmd() *cobra.Command {
	var registryPath string

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Serve the pipeline stages as Zeebe job workers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := registry.Default()
			if registryPath != "" {
				var err error
				if reg, err = registry.LoadRegistry(registryPath); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			app, zapLog, err := setup(ctx)
			if err != nil {
				return err
			}
			defer zapLog.Sync()
			defer app.Close()

			if err := app.Service.Restore(ctx); err != nil {
				app.Logger.Warn("initial store build failed", map[string]interface{}{"error": err.Error()})
			}

			client, err := camunda.NewClient(app.Config.Camunda)
			if err != nil {
				return err
			}
			defer client.Close()

			handlers := map[string]camunda.JobHandler{
				runturn.TaskType:           app.Stages.Turn,
				routequery.TaskType:        app.Stages.Route,
				retrievepassages.TaskType:  app.Stages.Retrieve,
				analyzecontract.TaskType:   app.Stages.Analyze,
				summarizecontract.TaskType: app.Stages.Summarize,
			}

			var workers []*camunda.Worker
			for _, activity := range reg.Activities {
				handler, ok := handlers[activity.TaskType]
				if !ok {
					return fmt.Errorf("no handler for task type %s", activity.TaskType)
				}
				wcfg := app.Config.Worker(activity.TaskType)
				if !wcfg.Enabled {
					app.Logger.Info("worker disabled", map[string]interface{}{"taskType": activity.TaskType})
					continue
				}
				workers = append(workers, camunda.NewWorker(
					client.Zeebe(),
					activity.TaskType,
					wcfg.MaxJobsActive,
					config.GetDuration(wcfg.Timeout),
					handler,
					app.Logger,
				))
			}
			app.Logger.Info("workers registered", map[string]interface{}{"count": len(workers)})

			health := healthServer(app, client)
			go func() {
				app.Logger.Info("health/metrics server listening", map[string]interface{}{"address": app.Config.Server.Address})
				if err := health.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					app.Logger.Error("health/metrics server failed", map[string]interface{}{"error": err.Error()})
				}
			}()

			<-ctx.Done()
			app.Logger.Info("shutdown signal received, stopping workers", nil)

			for _, w := range workers {
				w.Stop()
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(app.Config.Server.ShutdownTimeout))
			defer cancel()
			return health.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&registryPath, "registry", "", "activity registry JSON limiting which job types are served")
	return cmd
}

func healthServer(app *bootstrap.App, client *camunda.Client) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy")
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := client.HealthCheck(ctx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "broker_unavailable")
			return
		}
		if !app.Store.Ready() {
			writeStatus(w, http.StatusServiceUnavailable, "not_ready")
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{Addr: app.Config.Server.Address, Handler: mux}
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	})
}
