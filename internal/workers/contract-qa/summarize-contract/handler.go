// internal/workers/contract-qa/summarize-contract/handler.go
package summarizecontract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "contract-qa/internal/common/errors"
	"contract-qa/internal/common/genai"
	"contract-qa/internal/common/logger"
	"contract-qa/internal/common/observability"
	"contract-qa/internal/prompts"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "contract-qa-summarize"

type Handler struct {
	config    *Config
	generator genai.Generator
	prompts   prompts.Set
	budget    *prompts.Budget
	obs       *observability.Observability
	logger    logger.Logger
}

func NewHandler(config *Config, generator genai.Generator, set prompts.Set, budget *prompts.Budget, obs *observability.Observability, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		generator: generator,
		prompts:   set,
		budget:    budget,
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
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil || strings.TrimSpace(input.Text) == "" {
		if err == nil {
			err = fmt.Errorf("text is required")
		}
		apperrors.NewErrorHandler(h.logger).HandleJobError(ctx, client, job,
			apperrors.NewInvalidRequestError(fmt.Sprintf("parse input: %v", err)))
		return err
	}

	output := &Output{Summary: h.Summarize(ctx, input.Text)}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		return fmt.Errorf("set variables: %w", err)
	}
	_, err = cmd.Send(ctx)
	return err
}

// Summarize makes one model call and returns the reply verbatim. The input
// is cut to the token budget first; the word limit in the template is
// advisory and not checked here.
func (h *Handler) Summarize(ctx context.Context, text string) string {
	start := time.Now()
	ctx, span := h.obs.StartSpan(ctx, "summarizer")
	defer span.End()
	defer func() { h.obs.RecordStageDuration(ctx, "summarizer", time.Since(start)) }()

	ctx, cancel := genai.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	if cut := h.budget.Truncate(text); cut != text {
		h.logger.Warn("summary input truncated to token budget", map[string]interface{}{
			"inputChars": len(text),
			"keptChars":  len(cut),
		})
		text = cut
	}

	summary, err := h.generator.Generate(ctx, h.prompts.SummarizerPrompt(text))
	if err != nil {
		h.logger.Error("summarization failed", map[string]interface{}{"error": err.Error()})
		return fmt.Sprintf("Error summarizing contract: %s", err.Error())
	}

	h.logger.Info("summary generated", map[string]interface{}{
		"inputChars": len(text),
		"words":      len(strings.Fields(summary)),
	})
	return summary
}
