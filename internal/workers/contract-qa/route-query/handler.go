// internal/workers/contract-qa/route-query/handler.go
package routequery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "contract-qa/internal/common/errors"
	"contract-qa/internal/common/genai"
	"contract-qa/internal/common/logger"
	"contract-qa/internal/common/observability"
	"contract-qa/internal/models"
	"contract-qa/internal/prompts"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "contract-qa-route"

// Handler classifies the latest user message into a routing decision. It
// never fails: a model error or an unrecognized reply becomes
// DecisionRetriever.
type Handler struct {
	config    *Config
	generator genai.Generator
	prompts   prompts.Set
	obs       *observability.Observability
	logger    logger.Logger
}

func NewHandler(config *Config, generator genai.Generator, set prompts.Set, obs *observability.Observability, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		generator: generator,
		prompts:   set,
		obs:       obs,
		logger:    log.With(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx := context.Background()
	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		apperrors.NewErrorHandler(h.logger).HandleJobError(ctx, client, job,
			apperrors.NewInvalidRequestError(fmt.Sprintf("parse input: %v", err)))
		return err
	}

	output := h.Execute(ctx, &input)

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		return fmt.Errorf("set variables: %w", err)
	}
	_, err = cmd.Send(ctx)
	return err
}

// Route is the orchestrator-facing form of Execute.
func (h *Handler) Route(ctx context.Context, message string) models.Decision {
	return h.Execute(ctx, &Input{Message: message}).Decision
}

func (h *Handler) Execute(ctx context.Context, input *Input) *Output {
	start := time.Now()
	ctx, span := h.obs.StartSpan(ctx, "router")
	defer span.End()
	defer func() { h.obs.RecordStageDuration(ctx, "router", time.Since(start)) }()

	ctx, cancel := genai.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	reply, err := h.generator.Generate(ctx, h.prompts.RouterPrompt(input.Message))
	if err != nil {
		h.obs.RecordRouterFallback(ctx)
		h.logger.Warn("router call failed, using default route", map[string]interface{}{
			"error":    err.Error(),
			"decision": models.DecisionRetriever.String(),
		})
		return &Output{Decision: models.DecisionRetriever, Fallback: true}
	}

	decision, ok := models.ParseDecision(reply)
	if !ok {
		h.obs.RecordRouterFallback(ctx)
		h.logger.Warn("unrecognized router reply, using default route", map[string]interface{}{
			"errorCode": string(apperrors.ErrCodeMalformedRouterReply),
			"reply":     reply,
			"decision":  decision.String(),
		})
	}

	h.logger.Info("routing decision", map[string]interface{}{
		"decision": decision.String(),
		"reply":    reply,
		"fallback": !ok,
	})
	return &Output{Decision: decision, RawReply: reply, Fallback: !ok}
}
