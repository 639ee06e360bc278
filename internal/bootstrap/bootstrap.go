// Package bootstrap assembles the pipeline, its stores and the backing
// service connections from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"contract-qa/internal/common/config"
	"contract-qa/internal/common/database"
	"contract-qa/internal/common/genai"
	"contract-qa/internal/common/logger"
	"contract-qa/internal/common/observability"
	"contract-qa/internal/contractqa"
	"contract-qa/internal/embedding"
	"contract-qa/internal/ingest"
	"contract-qa/internal/models"
	"contract-qa/internal/prompts"
	"contract-qa/internal/storage/archive"
	"contract-qa/internal/storage/passages"
	"contract-qa/internal/storage/sessions"
	analyzecontract "contract-qa/internal/workers/contract-qa/analyze-contract"
	retrievepassages "contract-qa/internal/workers/contract-qa/retrieve-passages"
	routequery "contract-qa/internal/workers/contract-qa/route-query"
	runturn "contract-qa/internal/workers/contract-qa/run-turn"
	summarizecontract "contract-qa/internal/workers/contract-qa/summarize-contract"

	"github.com/avast/retry-go/v4"
)

// Stages are the job handlers, one per pipeline step.
type Stages struct {
	Route     *routequery.Handler
	Retrieve  *retrievepassages.Handler
	Analyze   *analyzecontract.Handler
	Summarize *summarizecontract.Handler
	Turn      *runturn.Handler
}

type App struct {
	Config        *config.Config
	Logger        logger.Logger
	Observability *observability.Observability
	Store         *passages.Store
	Ingestor      *ingest.Ingestor
	Stages        Stages
	Service       *contractqa.Service

	closers []func() error
}

// Options replaces parts of the wiring, mainly for tests.
type Options struct {
	Generator genai.Generator
	// Attempts bounds connection retries per backing service.
	Attempts uint
	Delay    time.Duration
}

func New(ctx context.Context, cfg *config.Config, log logger.Logger, opts Options) (*App, error) {
	if opts.Attempts == 0 {
		opts.Attempts = 10
	}
	if opts.Delay == 0 {
		opts.Delay = 2 * time.Second
	}

	app := &App{Config: cfg, Logger: log}
	app.Observability = observability.New(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint)

	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	generator := opts.Generator
	if generator == nil {
		g, err := genai.NewGenerator(cfg.LLM)
		if err != nil {
			return nil, err
		}
		generator = g
	}

	set, err := prompts.Load(cfg.Pipeline.PromptsFile)
	if err != nil {
		return nil, err
	}
	set = set.WithSummaryWordLimit(cfg.Pipeline.SummaryWordLimit)

	budget, err := prompts.NewBudget(cfg.Pipeline.TokenEncoding, cfg.Pipeline.MaxContextTokens)
	if err != nil {
		return nil, err
	}

	if err := app.buildStore(ctx, opts); err != nil {
		return nil, err
	}

	repo, err := app.buildSessions(ctx, opts)
	if err != nil {
		return nil, err
	}

	var archiver contractqa.Archiver
	if cfg.Sessions.Archive {
		a, err := app.buildArchive(ctx, opts)
		if err != nil {
			return nil, err
		}
		archiver = a
	}

	app.Ingestor = ingest.NewIngestor(
		ingest.NewSplitter(cfg.Ingestion.ChunkSize, cfg.Ingestion.ChunkOverlap),
		ingest.NewTagger(cfg.Ingestion.KnownCustomers, cfg.Ingestion.CustomerOverride),
		cfg.Ingestion.MaxFileSizeBytes(),
		log,
		ingest.TextLoader{},
		ingest.CSVLoader{},
		ingest.XLSXLoader{},
		ingest.NewPDFLoader(cfg.Ingestion.PDFServiceURL),
	)

	llmTimeout := cfg.LLM.TimeoutDuration()
	obs := app.Observability
	app.Stages.Route = routequery.NewHandler(&routequery.Config{Timeout: llmTimeout}, generator, set, obs, log)
	app.Stages.Retrieve = retrievepassages.NewHandler(&retrievepassages.Config{
		TopK:          cfg.Retrieval.TopK,
		SearchTimeout: cfg.Retrieval.SearchTimeoutDuration(),
	}, app.Store, obs, log)
	app.Stages.Analyze = analyzecontract.NewHandler(&analyzecontract.Config{
		Timeout:        llmTimeout,
		CustomerFilter: cfg.Pipeline.CustomerFilter,
		KnownCustomers: cfg.Ingestion.KnownCustomers,
	}, generator, set, budget, obs, log)
	app.Stages.Summarize = summarizecontract.NewHandler(&summarizecontract.Config{Timeout: 2 * llmTimeout}, generator, set, budget, obs, log)

	orchestrator := runturn.NewOrchestrator(app.Stages.Route, app.Stages.Retrieve, app.Stages.Analyze, app.Stages.Summarize, obs, log)
	turnCfg := runturn.LoadConfig()
	turnCfg.SessionTTL = config.GetDuration(cfg.Sessions.TTL)
	app.Stages.Turn = runturn.NewHandler(turnCfg, orchestrator, repo, log)

	app.Service = contractqa.New(contractqa.Options{
		Store:        app.Store,
		Ingestor:     app.Ingestor,
		Turns:        app.Stages.Turn,
		Sessions:     repo,
		Archive:      archiver,
		Prompts:      set,
		DocumentsDir: cfg.Ingestion.DocumentsDir,
		Logger:       log,
	})

	ok = true
	return app, nil
}

func (a *App) buildStore(ctx context.Context, opts Options) error {
	cfg := a.Config

	var embedder embedding.Embedder = embedding.NewTFIDF(0)
	if cfg.Embedding.Provider != "tfidf" {
		remote, err := genai.NewRemoteEmbedder(cfg.Embedding)
		if err != nil {
			return err
		}
		embedder = embedding.NewRemote(cfg.Embedding.Provider+":"+cfg.Embedding.Model, remote)
	}

	var index passages.Index = passages.NewMemoryIndex()
	if cfg.Retrieval.Backend == "elasticsearch" {
		var es *database.ElasticsearchClient
		err := connect(ctx, a.Logger, "elasticsearch", opts, func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		})
		if err != nil {
			return err
		}
		index = passages.NewElasticsearchIndex(es.Client, es.Index)
	}

	var snapshot passages.Snapshot
	if cfg.Retrieval.PersistDir != "" {
		sqlite, err := database.NewSQLite(filepath.Clean(cfg.Retrieval.PersistDir))
		if err != nil {
			return err
		}
		a.closers = append(a.closers, sqlite.Close)
		s := passages.NewSQLiteSnapshot(sqlite.DB)
		if err := s.Init(ctx); err != nil {
			return err
		}
		snapshot = s
	}

	a.Store = passages.NewStore(embedder, index, snapshot, a.Logger)
	return nil
}

func (a *App) buildSessions(ctx context.Context, opts Options) (models.SessionRepository, error) {
	cfg := a.Config
	if cfg.Sessions.Backend != "redis" {
		return sessions.NewMemoryStore(), nil
	}

	rc := database.NewRedis(cfg.Database.Redis)
	a.closers = append(a.closers, rc.Close)
	if err := connect(ctx, a.Logger, "redis", opts, func() error { return rc.Ping(ctx) }); err != nil {
		return nil, err
	}
	return sessions.NewRedisStore(rc.Client, config.GetDuration(cfg.Sessions.TTL)), nil
}

func (a *App) buildArchive(ctx context.Context, opts Options) (*archive.PostgresArchive, error) {
	pg, err := database.NewPostgres(a.Config.Database.Postgres)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, pg.Close)
	if err := connect(ctx, a.Logger, "postgres", opts, func() error { return pg.Ping(ctx) }); err != nil {
		return nil, err
	}

	arch := archive.NewPostgresArchive(pg.DB)
	if err := arch.Init(ctx); err != nil {
		return nil, err
	}
	return arch, nil
}

// connect retries fn with exponential backoff until the service answers.
func connect(ctx context.Context, log logger.Logger, name string, opts Options, fn func() error) error {
	err := retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(opts.Attempts),
		retry.Delay(opts.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn(name+" connection failed, retrying", map[string]interface{}{
				"attempt":     n + 1,
				"maxAttempts": opts.Attempts,
				"error":       err.Error(),
			})
		}),
	)
	if err != nil {
		return fmt.Errorf("%s connection failed after %d attempts: %w", name, opts.Attempts, err)
	}
	log.Info(name+" connected", nil)
	return nil
}

// Close releases backing connections and flushes telemetry.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("close failed", map[string]interface{}{"error": err.Error()})
		}
	}
	a.closers = nil
	if a.Observability != nil {
		a.Observability.Shutdown()
	}
}
