package ports

import (
	"context"
	"io"

	"github.com/boobootoo2/medbilldozer-sub001/internal/core/domain"
)

// StructuredPromptRunner is the low-level extraction collaborator contract:
// run one prompt, return raw response text. It may fail on transport; the
// extraction orchestrator owns the repair cascade on top of it.
type StructuredPromptRunner interface {
	RunStructuredPrompt(ctx context.Context, prompt string, maxOutputTokens int) (string, error)
}

// AnalysisProvider is an interchangeable external analysis collaborator.
// Providers are kept in an explicit table built at bootstrap and selected
// after a health check; there is no global registry.
type AnalysisProvider interface {
	Name() string
	HealthCheck(ctx context.Context) bool
	AnalyzeDocument(ctx context.Context, rawText string, facts domain.FactSet) ([]domain.Issue, error)
}

// DocumentRepository persists document state through the pipeline stages.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListByBatch(ctx context.Context, batchID string) ([]domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SaveAnalysis(ctx context.Context, doc *domain.Document) error
}

// BatchRepository persists batch lifecycle and the reconciliation report.
type BatchRepository interface {
	CreateBatch(ctx context.Context, batch *domain.Batch) error
	GetBatch(ctx context.Context, id string) (*domain.Batch, error)
	UpdateBatchStatus(ctx context.Context, id string, status domain.BatchStatus, errMessage string) error
	SaveReport(ctx context.Context, batchID string, coverage []domain.CoverageRow, totalSavingsCents int64) error
	GetReport(ctx context.Context, batchID string) ([]domain.CoverageRow, int64, error)
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes batch analysis events.
type MessageQueue interface {
	PublishBatchSubmitted(ctx context.Context, batchID string) error
	SubscribeBatchSubmitted(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored source document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}
