// internal/workers/contract-qa/analyze-contract/handler.go
package analyzecontract

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
	"contract-qa/internal/models"
	"contract-qa/internal/prompts"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "contract-qa-analyze"

// NotSpecified opens every answer given without supporting passages.
const NotSpecified = "Not specified in the contracts."

type Handler struct {
	config    *Config
	generator genai.Generator
	prompts   prompts.Set
	budget    *prompts.Budget
	obs       *observability.Observability
	logger    logger.Logger
}

// NewHandler takes an optional budget; nil passes the retrieval through
// untrimmed.
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

func (h *Handler) Analyze(ctx context.Context, question string, r *models.Retrieval) string {
	return h.Execute(ctx, &Input{Question: question, Retrieval: r}).Answer
}

// Execute answers from the retrieved passages. Without evidence it answers
// "not specified" and skips the model call. A failed model call becomes the
// answer text.
func (h *Handler) Execute(ctx context.Context, input *Input) *Output {
	start := time.Now()
	ctx, span := h.obs.StartSpan(ctx, "analyst")
	defer span.End()
	defer func() { h.obs.RecordStageDuration(ctx, "analyst", time.Since(start)) }()

	r := input.Retrieval
	if h.config.CustomerFilter {
		r = filterCustomer(input.Question, r, h.config.KnownCustomers)
	}

	if !r.HasEvidence() {
		h.logger.Info("no evidence, answering not specified", map[string]interface{}{
			"status": string(statusOf(r)),
		})
		return &Output{Answer: NotSpecified + " " + r.Render()}
	}

	r = h.budget.Fit(r)

	ctx, cancel := genai.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	answer, err := h.generator.Generate(ctx, h.prompts.AnalystPrompt(input.Question, r.Render()))
	if err != nil {
		h.logger.Error("analysis failed", map[string]interface{}{"error": err.Error()})
		return &Output{Answer: fmt.Sprintf("Error analyzing contract: %s", err.Error()), Evidence: len(r.Passages)}
	}

	h.logger.Info("analysis completed", map[string]interface{}{
		"evidence":  len(r.Passages),
		"customers": r.Customers(),
	})
	return &Output{Answer: answer, Evidence: len(r.Passages)}
}

func statusOf(r *models.Retrieval) models.RetrievalStatus {
	if r == nil {
		return models.RetrievalEmpty
	}
	return r.Status
}

// filterCustomer keeps only the passages of the single known customer named
// in question. A question naming no customer, or several, is left alone.
func filterCustomer(question string, r *models.Retrieval, known []string) *models.Retrieval {
	if !r.HasEvidence() {
		return r
	}
	lower := strings.ToLower(question)
	var named []string
	for _, c := range known {
		if strings.Contains(lower, strings.ToLower(c)) {
			named = append(named, c)
		}
	}
	if len(named) != 1 {
		return r
	}

	out := *r
	out.Passages = nil
	for _, p := range r.Passages {
		if strings.EqualFold(p.CustomerTag, named[0]) {
			out.Passages = append(out.Passages, p)
		}
	}
	if len(out.Passages) == 0 {
		out.Status = models.RetrievalEmpty
	}
	return &out
}
