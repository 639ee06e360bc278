// Package contractqa is the application layer shared by the HTTP server, the
// CLI and the workflow workers.
package contractqa

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperrors "contract-qa/internal/common/errors"
	"contract-qa/internal/common/logger"
	"contract-qa/internal/common/metrics"
	"contract-qa/internal/ingest"
	"contract-qa/internal/models"
	"contract-qa/internal/prompts"
	"contract-qa/internal/storage/archive"
	"contract-qa/internal/storage/passages"
	"contract-qa/internal/storage/sessions"
	runturn "contract-qa/internal/workers/contract-qa/run-turn"

	"github.com/google/uuid"
)

// Archiver persists exported conversations.
type Archiver interface {
	Save(ctx context.Context, rec archive.Record) error
}

type Service struct {
	store        *passages.Store
	ingestor     *ingest.Ingestor
	turns        *runturn.Handler
	sessions     models.SessionRepository
	archive      Archiver
	prompts      prompts.Set
	documentsDir string
	logger       logger.Logger
}

// Options wires a Service. Archive is optional.
type Options struct {
	Store        *passages.Store
	Ingestor     *ingest.Ingestor
	Turns        *runturn.Handler
	Sessions     models.SessionRepository
	Archive      Archiver
	Prompts      prompts.Set
	DocumentsDir string
	Logger       logger.Logger
}

func New(opts Options) *Service {
	return &Service{
		store:        opts.Store,
		ingestor:     opts.Ingestor,
		turns:        opts.Turns,
		sessions:     opts.Sessions,
		archive:      opts.Archive,
		prompts:      opts.Prompts,
		documentsDir: opts.DocumentsDir,
		logger:       opts.Logger.With(map[string]interface{}{"component": "service"}),
	}
}

// TurnResponse is what callers render after a turn.
type TurnResponse struct {
	SessionID string            `json:"sessionId"`
	Decision  models.Decision   `json:"decision"`
	Answer    string            `json:"answer"`
	Turns     []models.Turn     `json:"turns"`
	TurnCount int               `json:"turnCount"`
	Retrieval *models.Retrieval `json:"retrieval,omitempty"`
}

// Ask runs one turn in sessionID, creating the session when it is new.
func (s *Service) Ask(ctx context.Context, sessionID, message string) (*TurnResponse, error) {
	result, session, err := s.turns.Converse(ctx, sessionID, message)
	if err != nil {
		return nil, err
	}
	s.refreshSessionGauge(ctx)

	return &TurnResponse{
		SessionID: session.ID,
		Decision:  result.Decision,
		Answer:    result.Answer,
		Turns:     result.Turns(),
		TurnCount: len(session.Transcript),
		Retrieval: result.Retrieval,
	}, nil
}

// NewSessionID returns a fresh random session id.
func NewSessionID() string {
	return uuid.NewString()
}

// QuickAction asks the fixed question for action in a new session.
func (s *Service) QuickAction(ctx context.Context, action string) (*TurnResponse, error) {
	question, ok := QuickActions[action]
	if !ok {
		return nil, apperrors.NewInvalidRequestError(fmt.Sprintf("unknown quick action %q", action))
	}
	return s.Ask(ctx, NewSessionID(), question)
}

// SummarizeAll samples the first passages in ingestion order and asks for a
// summary of all contracts in a new session.
func (s *Service) SummarizeAll(ctx context.Context) (*TurnResponse, error) {
	if !s.store.Ready() {
		return nil, apperrors.NewStoreNotReadyError()
	}
	return s.Ask(ctx, NewSessionID(), summarizeAllMessage(s.store.Passages(summarySamplePassages)))
}

func summarizeAllMessage(sample []models.Passage) string {
	texts := make([]string, len(sample))
	for i, p := range sample {
		texts[i] = p.Text
	}
	joined := []rune(strings.Join(texts, "\n\n"))
	if len(joined) > summarySampleChars {
		joined = joined[:summarySampleChars]
	}
	return summarizeAllPrefix + string(joined)
}

func (s *Service) Session(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.sessions.Load(ctx, id)
	if errors.Is(err, sessions.ErrNotFound) {
		return nil, apperrors.NewSessionNotFoundError(id)
	}
	if err != nil {
		return nil, apperrors.NewSessionStoreError(err)
	}
	return session, nil
}

func (s *Service) DeleteSession(ctx context.Context, id string) error {
	err := s.sessions.Delete(ctx, id)
	if errors.Is(err, sessions.ErrNotFound) {
		return apperrors.NewSessionNotFoundError(id)
	}
	if err != nil {
		return apperrors.NewSessionStoreError(err)
	}
	s.refreshSessionGauge(ctx)
	return nil
}

// Export returns the session as an archive record and, when an archive is
// configured, stores it there too.
func (s *Service) Export(ctx context.Context, id string) (*archive.Record, error) {
	session, err := s.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	rec := archive.Record{
		SessionID:  session.ID,
		ExportedAt: time.Now().UTC(),
		TurnCount:  len(session.Transcript),
		Transcript: session.Transcript,
	}
	if s.archive != nil {
		if err := s.archive.Save(ctx, rec); err != nil {
			return nil, apperrors.NewArchiveFailedError(err)
		}
	}
	return &rec, nil
}

// Rebuild re-ingests the documents directory and replaces the store.
func (s *Service) Rebuild(ctx context.Context) (*ingest.Report, error) {
	report, err := s.ingestor.IngestDir(ctx, s.documentsDir)
	if err != nil {
		return nil, err
	}
	return report, s.build(ctx, report)
}

// IngestFiles replaces the store with passages from paths only.
func (s *Service) IngestFiles(ctx context.Context, paths []string) (*ingest.Report, error) {
	report := s.ingestor.IngestFiles(ctx, paths)
	return report, s.build(ctx, report)
}

// Upload is one uploaded document.
type Upload struct {
	Name string
	Body io.Reader
}

// AddDocuments writes uploads into the documents directory and rebuilds the
// store from it. Unsupported files are reported as skipped and not written.
func (s *Service) AddDocuments(ctx context.Context, uploads []Upload) (*ingest.Report, error) {
	if err := os.MkdirAll(s.documentsDir, 0o755); err != nil {
		return nil, apperrors.NewIngestFailedError(s.documentsDir, err)
	}

	var skipped []ingest.FileReport
	for _, u := range uploads {
		name := filepath.Base(u.Name)
		if name == "." || name == string(filepath.Separator) || strings.HasPrefix(name, ".") || !s.ingestor.Supports(name) {
			skipped = append(skipped, ingest.FileReport{
				Source: name,
				Status: "skipped",
				Error:  apperrors.NewUnsupportedFormatError(name).Error(),
			})
			continue
		}
		if err := writeFile(filepath.Join(s.documentsDir, name), u.Body); err != nil {
			return nil, apperrors.NewIngestFailedError(name, err)
		}
	}

	report, err := s.Rebuild(ctx)
	if err != nil {
		return nil, err
	}
	report.Files = append(report.Files, skipped...)
	return report, nil
}

func writeFile(path string, body io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (s *Service) build(ctx context.Context, report *ingest.Report) error {
	if _, err := s.store.Build(ctx, report.Passages); err != nil {
		return apperrors.NewIngestFailedError("store", err)
	}
	return nil
}

// Restore loads the persisted snapshot, falling back to a rebuild from the
// documents directory when there is none.
func (s *Service) Restore(ctx context.Context) error {
	ok, err := s.store.Restore(ctx)
	if err != nil {
		s.logger.Warn("snapshot restore failed, rebuilding", map[string]interface{}{"error": err.Error()})
	}
	if ok {
		return nil
	}
	if s.documentsDir == "" {
		return nil
	}
	if _, err := os.Stat(s.documentsDir); os.IsNotExist(err) {
		return nil
	}
	_, err = s.Rebuild(ctx)
	return err
}

// Watch rebuilds the store whenever the documents directory changes. It
// blocks until ctx is done.
func (s *Service) Watch(ctx context.Context, watcher *ingest.Watcher) error {
	return watcher.Run(ctx, s.documentsDir, func(ctx context.Context) {
		if _, err := s.Rebuild(ctx); err != nil {
			s.logger.Error("rebuild after change failed", map[string]interface{}{"error": err.Error()})
		}
	})
}

// Stats describes the store and, when sessionID is set, that session.
type Stats struct {
	Ready       bool     `json:"ready"`
	Passages    int      `json:"passages"`
	SourceFiles []string `json:"sourceFiles"`
	Customers   []string `json:"customers"`
	Sessions    int      `json:"sessions"`
	Messages    int      `json:"messages,omitempty"`
}

func (s *Service) Stats(ctx context.Context, sessionID string) (*Stats, error) {
	all := s.store.Passages(0)
	stats := &Stats{
		Ready:       s.store.Ready(),
		Passages:    len(all),
		SourceFiles: distinct(all, func(p models.Passage) string { return p.SourceFile }),
		Customers:   distinct(all, func(p models.Passage) string { return p.CustomerTag }),
	}

	n, err := s.sessions.Count(ctx)
	if err != nil {
		return nil, apperrors.NewSessionStoreError(err)
	}
	stats.Sessions = n

	if sessionID != "" {
		session, err := s.Session(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		stats.Messages = len(session.Transcript)
	}
	return stats, nil
}

func distinct(ps []models.Passage, key func(models.Passage) string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, p := range ps {
		k := key(p)
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

func (s *Service) Prompts() prompts.Set {
	return s.prompts
}

func (s *Service) DocumentsDir() string {
	return s.documentsDir
}

func (s *Service) Ready() bool {
	return s.store.Ready()
}

func (s *Service) refreshSessionGauge(ctx context.Context) {
	if n, err := s.sessions.Count(ctx); err == nil {
		metrics.ActiveSessions.Set(float64(n))
	}
}
