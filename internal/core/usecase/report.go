package usecase

import (
	"context"
	"fmt"

	"github.com/boobootoo2/medbilldozer-sub001/internal/core/domain"
	"github.com/boobootoo2/medbilldozer-sub001/internal/core/ports"
)

// ReportUseCase assembles the batch report from persisted state.
type ReportUseCase struct {
	docs    ports.DocumentRepository
	batches ports.BatchRepository
}

func NewReportUseCase(docs ports.DocumentRepository, batches ports.BatchRepository) *ReportUseCase {
	return &ReportUseCase{docs: docs, batches: batches}
}

func (uc *ReportUseCase) Report(ctx context.Context, batchID string) (*domain.BatchReport, error) {
	batch, err := uc.batches.GetBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("fetch batch: %w", err)
	}
	docs, err := uc.docs.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("list batch documents: %w", err)
	}
	rows, total, err := uc.batches.GetReport(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("fetch batch report: %w", err)
	}
	return &domain.BatchReport{
		Batch:             *batch,
		Documents:         docs,
		Coverage:          rows,
		TotalSavingsCents: total,
	}, nil
}

func (uc *ReportUseCase) Document(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := uc.docs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}
	return doc, nil
}
