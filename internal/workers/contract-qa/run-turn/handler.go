// internal/workers/contract-qa/run-turn/handler.go
package runturn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	apperrors "contract-qa/internal/common/errors"
	"contract-qa/internal/common/logger"
	"contract-qa/internal/common/validation"
	"contract-qa/internal/models"
	"contract-qa/internal/storage/sessions"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "contract-qa-turn"

// Handler runs turns against stored sessions. Turns of one session are
// serialized; different sessions run concurrently.
type Handler struct {
	config       *Config
	orchestrator *Orchestrator
	sessions     models.SessionRepository
	locks        *sessionLocks
	logger       logger.Logger
}

func NewHandler(config *Config, orchestrator *Orchestrator, repo models.SessionRepository, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		orchestrator: orchestrator,
		sessions:     repo,
		locks:        newSessionLocks(),
		logger:       log.With(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	errHandler := apperrors.NewErrorHandler(h.logger)

	input, err := h.parseInput(job)
	if err != nil {
		errHandler.HandleJobError(ctx, client, job, err)
		return err
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		errHandler.HandleJobError(ctx, client, job, err)
		return err
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		return fmt.Errorf("set variables: %w", err)
	}
	_, err = cmd.Send(ctx)
	return err
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	var vars map[string]interface{}
	if err := json.Unmarshal([]byte(job.Variables), &vars); err != nil {
		return nil, apperrors.NewInvalidRequestError(fmt.Sprintf("parse input: %v", err))
	}
	if result := validation.TurnJob.Validate(vars); !result.Valid {
		return nil, apperrors.NewInvalidRequestError(strings.Join(result.GetErrorMessages(), "; "))
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return nil, apperrors.NewInvalidRequestError(fmt.Sprintf("decode input: %v", err))
	}
	return &input, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	result, session, err := h.Converse(ctx, input.SessionID, input.Message)
	if err != nil {
		return nil, err
	}
	return &Output{
		Answer:    result.Answer,
		Decision:  result.Decision,
		SessionID: session.ID,
		TurnCount: len(session.Transcript),
	}, nil
}

// Converse loads the session (creating it on first use), runs one turn and
// saves the grown transcript.
func (h *Handler) Converse(ctx context.Context, sessionID, message string) (*Result, *models.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, nil, apperrors.NewInvalidRequestError("sessionId is required")
	}

	unlock := h.locks.lock(sessionID)
	defer unlock()

	session, err := h.sessions.Load(ctx, sessionID)
	switch {
	case errors.Is(err, sessions.ErrNotFound):
		session = models.NewSession(sessionID, h.config.SessionTTL)
	case err != nil:
		return nil, nil, apperrors.NewSessionStoreError(err)
	}

	result, err := h.orchestrator.RunTurn(ctx, session.Transcript, message)
	if err != nil {
		return nil, nil, err
	}

	session.Transcript = result.Transcript
	session.UpdateActivity(h.config.SessionTTL)
	if err := h.sessions.Save(ctx, session); err != nil {
		return nil, nil, apperrors.NewSessionStoreError(err)
	}
	return result, session, nil
}

// sessionLocks hands out one mutex per session id and forgets it once no
// turn holds or waits for it.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sessionLock)}
}

func (s *sessionLocks) lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}
