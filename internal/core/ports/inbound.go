package ports

import (
	"context"
	"io"

	"github.com/boobootoo2/medbilldozer-sub001/internal/core/domain"
)

// DocumentUpload is one submitted document in an ordered batch.
type DocumentUpload struct {
	Filename string
	MimeType string
	Body     io.Reader
}

// BatchIngestor accepts an ordered batch of billing documents and queues it
// for analysis.
type BatchIngestor interface {
	Submit(ctx context.Context, uploads []DocumentUpload) (*domain.Batch, []domain.Document, error)
}

// BatchAnalyzer runs the full analysis pipeline for a submitted batch.
type BatchAnalyzer interface {
	AnalyzeBatch(ctx context.Context, batchID string) error
}

// ReportService reads analysis output.
type ReportService interface {
	Report(ctx context.Context, batchID string) (*domain.BatchReport, error)
	Document(ctx context.Context, id string) (*domain.Document, error)
}
