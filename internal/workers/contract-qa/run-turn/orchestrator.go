// internal/workers/contract-qa/run-turn/orchestrator.go
package runturn

import (
	"context"
	"strings"
	"time"

	apperrors "contract-qa/internal/common/errors"
	"contract-qa/internal/common/logger"
	"contract-qa/internal/common/observability"
	"contract-qa/internal/models"
)

type Router interface {
	Route(ctx context.Context, message string) models.Decision
}

type Retriever interface {
	Retrieve(ctx context.Context, query string) *models.Retrieval
}

type Analyst interface {
	Analyze(ctx context.Context, question string, r *models.Retrieval) string
}

type Summarizer interface {
	Summarize(ctx context.Context, text string) string
}

// Orchestrator runs one turn of the pipeline:
//
//	supervisor -> retriever -> analyst -> end
//	supervisor -> analyst -> end
//	supervisor -> summarizer -> end
//	supervisor -> end
//
// There are no back edges, so a turn makes at most two hops after the
// supervisor and appends at most two turns after the user message.
type Orchestrator struct {
	router     Router
	retriever  Retriever
	analyst    Analyst
	summarizer Summarizer
	obs        *observability.Observability
	logger     logger.Logger
}

func NewOrchestrator(router Router, retriever Retriever, analyst Analyst, summarizer Summarizer, obs *observability.Observability, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		router:     router,
		retriever:  retriever,
		analyst:    analyst,
		summarizer: summarizer,
		obs:        obs,
		logger:     log.With(map[string]interface{}{"component": "orchestrator"}),
	}
}

// RunTurn appends message to transcript and runs the state machine. The
// input transcript is not modified. Stage failures surface as turn text;
// the only error is an empty message.
func (o *Orchestrator) RunTurn(ctx context.Context, transcript models.Transcript, message string) (*Result, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.NewInvalidRequestError("message is required")
	}

	start := time.Now()
	ctx, span := o.obs.StartSpan(ctx, "run_turn")
	defer span.End()

	t := transcript.Append(models.UserTurn(message))
	decision := o.router.Route(ctx, message)
	result := &Result{Decision: decision, Start: len(transcript)}

	switch decision {
	case models.DecisionEnd:

	case models.DecisionRetriever:
		r := o.retriever.Retrieve(ctx, message)
		t = t.Append(models.RetrievalTurn(r))
		result.Retrieval = r
		result.Answer = o.analyst.Analyze(ctx, message, r)
		t = t.Append(models.AssistantTurn(result.Answer))

	case models.DecisionAnalyst:
		var r *models.Retrieval
		if turn, ok := t.LatestRetrieval(); ok {
			r = turn.Retrieval
		}
		result.Answer = o.analyst.Analyze(ctx, message, r)
		t = t.Append(models.AssistantTurn(result.Answer))

	case models.DecisionSummarizer:
		last, _ := t.Last()
		result.Answer = o.summarizer.Summarize(ctx, last.Content)
		t = t.Append(models.AssistantTurn(result.Answer))
	}

	result.Transcript = t

	status := "ok"
	if result.Retrieval != nil {
		status = string(result.Retrieval.Status)
	}
	o.obs.RecordTurn(ctx, decision.String(), status)
	o.obs.RecordStageDuration(ctx, "turn", time.Since(start))
	o.logger.Info("turn completed", map[string]interface{}{
		"decision": decision.String(),
		"status":   status,
		"appended": len(t) - len(transcript) - 1,
		"duration": time.Since(start).String(),
	})
	return result, nil
}
