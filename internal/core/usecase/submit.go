package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/boobootoo2/medbilldozer-sub001/internal/core/domain"
	"github.com/boobootoo2/medbilldozer-sub001/internal/core/ports"
)

// SubmitBatchUseCase accepts an ordered batch of billing documents, stores
// the raw sources, records batch and document rows, and queues the batch
// for analysis.
type SubmitBatchUseCase struct {
	docs    ports.DocumentRepository
	batches ports.BatchRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewSubmitBatchUseCase(
	docs ports.DocumentRepository,
	batches ports.BatchRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *SubmitBatchUseCase {
	return &SubmitBatchUseCase{docs: docs, batches: batches, storage: storage, queue: queue}
}

func (uc *SubmitBatchUseCase) Submit(ctx context.Context, uploads []ports.DocumentUpload) (*domain.Batch, []domain.Document, error) {
	if len(uploads) == 0 {
		return nil, nil, domain.WrapError(domain.ErrInvalidInput, "submit batch", fmt.Errorf("empty batch"))
	}

	now := time.Now().UTC()
	batch := &domain.Batch{
		ID:        uuid.NewString(),
		Status:    domain.BatchSubmitted,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.batches.CreateBatch(ctx, batch); err != nil {
		return nil, nil, fmt.Errorf("create batch: %w", err)
	}

	docs := make([]domain.Document, 0, len(uploads))
	for _, upload := range uploads {
		id := uuid.NewString()
		storageKey := fmt.Sprintf("%s/%s_%s", batch.ID, id, sanitizeFilename(upload.Filename))

		if err := uc.storage.Save(ctx, storageKey, upload.Body); err != nil {
			return nil, nil, fmt.Errorf("save source document: %w", err)
		}

		doc := domain.Document{
			ID:          id,
			BatchID:     batch.ID,
			Position:    len(docs),
			Filename:    upload.Filename,
			MimeType:    upload.MimeType,
			StoragePath: storageKey,
			DocType:     domain.DocTypeUnknown,
			Facts:       domain.NewFactSet(),
			Issues:      []domain.Issue{},
			Status:      domain.StatusReceived,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := uc.docs.Create(ctx, &doc); err != nil {
			return nil, nil, fmt.Errorf("create document record: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := uc.queue.PublishBatchSubmitted(ctx, batch.ID); err != nil {
		return nil, nil, fmt.Errorf("publish batch event: %w", err)
	}
	return batch, docs, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return -1
		}
	}, base)
	if base == "" {
		return "document"
	}
	return base
}
