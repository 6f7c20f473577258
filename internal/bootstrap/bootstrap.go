// Package bootstrap composes the application graph shared by the api and
// worker binaries.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/boobootoo2/medbilldozer-sub001/internal/classify"
	"github.com/boobootoo2/medbilldozer-sub001/internal/config"
	"github.com/boobootoo2/medbilldozer-sub001/internal/core/domain"
	"github.com/boobootoo2/medbilldozer-sub001/internal/core/ports"
	"github.com/boobootoo2/medbilldozer-sub001/internal/core/usecase"
	"github.com/boobootoo2/medbilldozer-sub001/internal/extraction"
	"github.com/boobootoo2/medbilldozer-sub001/internal/infrastructure/extractor"
	"github.com/boobootoo2/medbilldozer-sub001/internal/infrastructure/extractor/pdftext"
	"github.com/boobootoo2/medbilldozer-sub001/internal/infrastructure/extractor/plaintext"
	"github.com/boobootoo2/medbilldozer-sub001/internal/infrastructure/llm/ollama"
	"github.com/boobootoo2/medbilldozer-sub001/internal/infrastructure/queue/nats"
	"github.com/boobootoo2/medbilldozer-sub001/internal/infrastructure/repository/postgres"
	"github.com/boobootoo2/medbilldozer-sub001/internal/infrastructure/resilience"
	"github.com/boobootoo2/medbilldozer-sub001/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue    ports.MessageQueue
	Docs     ports.DocumentRepository
	Batches  ports.BatchRepository
	Storage  ports.ObjectStorage
	SubmitUC ports.BatchIngestor
	ReportUC ports.ReportService

	// AnalyzeUC is assembled by NewWorker; the api binary leaves it nil.
	AnalyzeUC ports.BatchAnalyzer

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	docs := postgres.NewDocumentRepository(db)
	if err := docs.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	batches := postgres.NewBatchRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, cfg.NATSQueueGroup, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultPolicy()),
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	submitUC := usecase.NewSubmitBatchUseCase(docs, batches, storage, queue)
	reportUC := usecase.NewReportUseCase(docs, batches)

	return &App{
		Config:   cfg,
		Queue:    queue,
		Docs:     docs,
		Batches:  batches,
		Storage:  storage,
		SubmitUC: submitUC,
		ReportUC: reportUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

// NewWorker builds the shared graph plus the analysis pipeline: text
// extraction, signal-table classification, per-category extraction runners,
// and the explicit provider table.
func NewWorker(ctx context.Context, cfg config.Config, observer usecase.PipelineObserver) (*App, error) {
	app, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	classifier, err := classify.New()
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("load classifier signals: %w", err)
	}

	textRouter := extractor.NewRouter(
		plaintext.NewExtractor(app.Storage),
		pdftext.NewExtractor(app.Storage),
	)

	llmExec := resilience.NewExecutor(resilience.DefaultPolicy())
	client := ollama.New(cfg.OllamaURL, cfg.OllamaRatePerSecond, cfg.OllamaRateBurst, llmExec)

	runners := make(map[domain.DocType]ports.StructuredPromptRunner, len(cfg.OllamaModelOverrides))
	for docType, model := range cfg.OllamaModelOverrides {
		runners[domain.DocType(docType)] = ollama.NewRunner(client, model)
	}
	fallback := ollama.NewRunner(client, cfg.OllamaModel)
	orchestrator := extraction.NewOrchestrator(runners, fallback,
		time.Duration(cfg.ExtractTimeoutSeconds)*time.Second)

	providers := make([]ports.AnalysisProvider, 0, len(cfg.AnalysisModels))
	for _, model := range cfg.AnalysisModels {
		providers = append(providers, ollama.NewProvider(client, model, ""))
	}
	table := usecase.NewProviderTable(providers...)

	app.AnalyzeUC = usecase.NewAnalyzeBatchUseCase(
		app.Docs,
		app.Batches,
		textRouter,
		classifier,
		orchestrator,
		table,
		cfg.WorkerCount,
		time.Duration(cfg.ProviderTimeoutSeconds)*time.Second,
		observer,
	)
	return app, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
