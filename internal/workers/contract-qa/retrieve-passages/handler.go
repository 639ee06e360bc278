// internal/workers/contract-qa/retrieve-passages/handler.go
package retrievepassages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "contract-qa/internal/common/errors"
	"contract-qa/internal/common/genai"
	"contract-qa/internal/common/logger"
	"contract-qa/internal/common/observability"
	"contract-qa/internal/models"
	"contract-qa/internal/storage/passages"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "contract-qa-retrieve"

// Searcher is the read side of the passage store.
type Searcher interface {
	Ready() bool
	Search(ctx context.Context, query string, k int) ([]models.ScoredPassage, error)
}

type Handler struct {
	config *Config
	store  Searcher
	obs    *observability.Observability
	logger logger.Logger
}

func NewHandler(config *Config, store Searcher, obs *observability.Observability, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		store:  store,
		obs:    obs,
		logger: log.With(map[string]interface{}{"taskType": TaskType}),
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

	r := h.Retrieve(ctx, input.Query)
	output := &Output{
		Retrieval:   r,
		Retrieved:   r.Render(),
		Customers:   r.Customers(),
		Fingerprint: r.Fingerprint(),
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		return fmt.Errorf("set variables: %w", err)
	}
	_, err = cmd.Send(ctx)
	return err
}

// Retrieve runs one similarity search. Every outcome, including an unbuilt
// store and a failed search, is reported through the Retrieval status
// rather than an error. Results are never cached.
func (h *Handler) Retrieve(ctx context.Context, query string) *models.Retrieval {
	start := time.Now()
	ctx, span := h.obs.StartSpan(ctx, "retriever")
	defer span.End()
	defer func() { h.obs.RecordStageDuration(ctx, "retriever", time.Since(start)) }()

	r := &models.Retrieval{Query: query}

	if !h.store.Ready() {
		r.Status = models.RetrievalNotReady
		h.logger.Info("passage store not built", nil)
		return r
	}

	ctx, cancel := genai.WithTimeout(ctx, h.config.SearchTimeout)
	defer cancel()

	hits, err := h.store.Search(ctx, query, h.config.TopK)
	switch {
	case errors.Is(err, passages.ErrNotReady):
		// cleared between the readiness check and the search
		r.Status = models.RetrievalNotReady
		return r
	case err != nil:
		stdErr := apperrors.NewSearchFailedError(err)
		if apperrors.IsTimeout(err) || ctx.Err() == context.DeadlineExceeded {
			stdErr = apperrors.NewSearchTimeoutError()
		}
		r.Status = models.RetrievalFailed
		r.Error = stdErr.Details
		h.logger.Error("similarity search failed", map[string]interface{}{
			"errorCode": string(stdErr.Code),
			"error":     err.Error(),
		})
		return r
	}

	if len(hits) == 0 {
		r.Status = models.RetrievalEmpty
		h.logger.Info("no relevant passages", map[string]interface{}{"query": query})
		return r
	}

	r.Status = models.RetrievalOK
	r.Passages = hits
	h.logger.Info("passages retrieved", map[string]interface{}{
		"count":     len(hits),
		"topScore":  hits[0].Score,
		"customers": r.Customers(),
	})
	return r
}
