package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/boobootoo2/medbilldozer-sub001/internal/classify"
	"github.com/boobootoo2/medbilldozer-sub001/internal/core/domain"
	"github.com/boobootoo2/medbilldozer-sub001/internal/core/ports"
	"github.com/boobootoo2/medbilldozer-sub001/internal/coverage"
	"github.com/boobootoo2/medbilldozer-sub001/internal/detect"
	"github.com/boobootoo2/medbilldozer-sub001/internal/extraction"
	"github.com/boobootoo2/medbilldozer-sub001/internal/ledger"
)

// DocumentClassifier scores raw text into a billing category.
type DocumentClassifier interface {
	Classify(text string) domain.Classification
}

// FactExtractor is the extraction orchestrator contract: total, never
// errors, always a complete FactSet.
type FactExtractor interface {
	Extract(ctx context.Context, text string, docType domain.DocType) (extraction.Result, extraction.Outcome)
}

// PipelineObserver receives pipeline observability events. Implementations
// must be safe for concurrent use.
type PipelineObserver interface {
	ExtractionOutcome(docType domain.DocType, stage extraction.RepairStage, retried, failed bool)
	IssuesDetected(issueType domain.IssueType, count int)
	SavingsAccumulated(cents int64)
}

type noopObserver struct{}

func (noopObserver) ExtractionOutcome(domain.DocType, extraction.RepairStage, bool, bool) {}
func (noopObserver) IssuesDetected(domain.IssueType, int)                                 {}
func (noopObserver) SavingsAccumulated(int64)                                             {}

// AnalyzeBatchUseCase drives the full pipeline for one batch: classify,
// extract, normalize, and detect per document with bounded concurrency,
// then deduplicate, cross-check, and reconcile across the batch.
type AnalyzeBatchUseCase struct {
	docs       ports.DocumentRepository
	batches    ports.BatchRepository
	text       ports.TextExtractor
	classifier DocumentClassifier
	extractor  FactExtractor
	providers  *ProviderTable

	workers         int
	providerTimeout time.Duration
	observer        PipelineObserver
}

func NewAnalyzeBatchUseCase(
	docs ports.DocumentRepository,
	batches ports.BatchRepository,
	text ports.TextExtractor,
	classifier DocumentClassifier,
	extractor FactExtractor,
	providers *ProviderTable,
	workers int,
	providerTimeout time.Duration,
	observer PipelineObserver,
) *AnalyzeBatchUseCase {
	if workers <= 0 {
		workers = 4
	}
	if providerTimeout <= 0 {
		providerTimeout = 90 * time.Second
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &AnalyzeBatchUseCase{
		docs:            docs,
		batches:         batches,
		text:            text,
		classifier:      classifier,
		extractor:       extractor,
		providers:       providers,
		workers:         workers,
		providerTimeout: providerTimeout,
		observer:        observer,
	}
}

type documentResult struct {
	doc          *domain.Document
	transactions []domain.NormalizedTransaction
	completed    bool
}

// AnalyzeBatch runs the pipeline. Per-document failures isolate: a failed
// document keeps status extraction_failed with zero issues while its
// siblings proceed. Only repository-level failures abort the batch.
func (uc *AnalyzeBatchUseCase) AnalyzeBatch(ctx context.Context, batchID string) error {
	if _, err := uc.batches.GetBatch(ctx, batchID); err != nil {
		return fmt.Errorf("fetch batch: %w", err)
	}
	if err := uc.batches.UpdateBatchStatus(ctx, batchID, domain.BatchAnalyzing, ""); err != nil {
		return fmt.Errorf("set batch status=analyzing: %w", err)
	}

	docs, err := uc.docs.ListByBatch(ctx, batchID)
	if err != nil {
		uc.markBatchFailed(ctx, batchID, err)
		return fmt.Errorf("list batch documents: %w", err)
	}

	results := uc.fanOut(ctx, docs)

	if err := ctx.Err(); err != nil {
		uc.markBatchFailed(ctx, batchID, err)
		return fmt.Errorf("batch cancelled: %w", err)
	}

	if err := uc.reconcile(ctx, batchID, results); err != nil {
		uc.markBatchFailed(ctx, batchID, err)
		return err
	}
	return uc.batches.UpdateBatchStatus(ctx, batchID, domain.BatchComplete, "")
}

// fanOut processes documents concurrently up to the worker bound. Results
// land in per-index slots; a cancelled document leaves its slot marked
// incomplete so it is never committed to the shared dedup map.
func (uc *AnalyzeBatchUseCase) fanOut(ctx context.Context, docs []domain.Document) []documentResult {
	results := make([]documentResult, len(docs))
	sem := make(chan struct{}, uc.workers)
	var wg sync.WaitGroup

	for i := range docs {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			if ctx.Err() != nil {
				return
			}
			results[idx] = uc.analyzeDocument(ctx, &docs[idx])
		}(i)
	}
	wg.Wait()
	return results
}

func (uc *AnalyzeBatchUseCase) analyzeDocument(ctx context.Context, doc *domain.Document) documentResult {
	if err := uc.docs.UpdateStatus(ctx, doc.ID, domain.StatusAnalyzing, ""); err != nil {
		slog.Error("update_status_failed", "document_id", doc.ID, "error", err)
	}

	text, err := uc.text.Extract(ctx, doc)
	if err != nil {
		return uc.failDocument(ctx, doc, fmt.Errorf("extract source text: %w", err))
	}

	scan := classify.Scan(text)
	if scan.Empty {
		doc.DocType = domain.DocTypeUnknown
		doc.Facts = domain.NewFactSet()
		doc.Issues = []domain.Issue{}
		doc.Status = domain.StatusAnalyzed
		return uc.persistAnalysis(ctx, doc, nil)
	}

	cls := uc.classifier.Classify(text)
	doc.DocType = cls.DocType
	doc.Confidence = cls.Confidence

	result, outcome := uc.extractor.Extract(ctx, text, cls.DocType)
	uc.observer.ExtractionOutcome(cls.DocType, outcome.Stage, outcome.Retried, outcome.Failed)
	if outcome.Failed {
		doc.Facts = result.Facts
		return uc.failDocument(ctx, doc, fmt.Errorf("extraction: %s", outcome.Reason))
	}

	doc.Facts = result.Facts
	doc.LineItems = result.LineItems

	transactions := ledger.NormalizeTransactions(doc)
	issues := detect.Document(doc, transactions)
	issues = detect.MergeIssues(issues, uc.externalIssues(ctx, text, doc))
	for _, issue := range issues {
		uc.observer.IssuesDetected(issue.Type, 1)
	}

	doc.Issues = issues
	doc.Status = domain.StatusAnalyzed
	return uc.persistAnalysis(ctx, doc, transactions)
}

// externalIssues consults every healthy analysis provider. Provider errors
// and timeouts degrade to an empty contribution; they never fail the
// document.
func (uc *AnalyzeBatchUseCase) externalIssues(ctx context.Context, text string, doc *domain.Document) []domain.Issue {
	var out []domain.Issue
	for _, provider := range uc.providers.Healthy(ctx) {
		callCtx, cancel := context.WithTimeout(ctx, uc.providerTimeout)
		issues, err := provider.AnalyzeDocument(callCtx, text, doc.Facts)
		cancel()
		if err != nil {
			slog.Warn("analysis_provider_failed", "provider", provider.Name(), "document_id", doc.ID, "error", err)
			continue
		}
		for i := range issues {
			issues[i].Source = domain.IssueSourceExternal
		}
		out = detect.MergeIssues(out, issues)
	}
	return out
}

func (uc *AnalyzeBatchUseCase) persistAnalysis(ctx context.Context, doc *domain.Document, txs []domain.NormalizedTransaction) documentResult {
	doc.UpdatedAt = time.Now().UTC()
	if err := uc.docs.SaveAnalysis(ctx, doc); err != nil {
		slog.Error("save_analysis_failed", "document_id", doc.ID, "error", err)
		return documentResult{doc: doc}
	}
	return documentResult{doc: doc, transactions: txs, completed: true}
}

func (uc *AnalyzeBatchUseCase) failDocument(ctx context.Context, doc *domain.Document, cause error) documentResult {
	slog.Warn("document_analysis_failed", "document_id", doc.ID, "error", cause)
	doc.Issues = []domain.Issue{}
	doc.Status = domain.StatusExtractionFailed
	doc.Error = cause.Error()
	doc.UpdatedAt = time.Now().UTC()
	if err := uc.docs.SaveAnalysis(ctx, doc); err != nil {
		slog.Error("save_failed_document", "document_id", doc.ID, "error", err)
	}
	// A failed document still appears in output; it contributes nothing to
	// the dedup map.
	return documentResult{doc: doc, completed: true}
}

// reconcile is the fan-in barrier: dedup across the batch, cross-document
// conflict detection, then the coverage matrix and totals.
func (uc *AnalyzeBatchUseCase) reconcile(ctx context.Context, batchID string, results []documentResult) error {
	dedup := ledger.NewDedup()
	byID := make(map[string]*domain.Document, len(results))
	for _, res := range results {
		if !res.completed {
			continue
		}
		byID[res.doc.ID] = res.doc
		dedup.Add(res.transactions)
	}

	for _, conflict := range dedup.Conflicts() {
		issues := detect.Conflicts([]domain.FingerprintConflict{conflict})
		// Attach to the later-seen document; its statement disagrees with
		// the kept representative.
		conflictDoc := byID[conflict.Conflicting.SourceDocumentID]
		if conflictDoc == nil {
			continue
		}
		for _, issue := range issues {
			uc.observer.IssuesDetected(issue.Type, 1)
		}
		conflictDoc.Issues = detect.MergeIssues(conflictDoc.Issues, issues)
		if err := uc.docs.SaveAnalysis(ctx, conflictDoc); err != nil {
			slog.Error("save_conflict_issue", "document_id", conflictDoc.ID, "error", err)
		}
	}

	var total int64
	for _, res := range results {
		if res.completed {
			total += detect.SumSavings(res.doc.Issues)
		}
	}
	uc.observer.SavingsAccumulated(total)

	rows := coverage.Build(dedup.Observations())
	if err := uc.batches.SaveReport(ctx, batchID, rows, total); err != nil {
		return fmt.Errorf("save batch report: %w", err)
	}
	return nil
}

func (uc *AnalyzeBatchUseCase) markBatchFailed(ctx context.Context, batchID string, cause error) {
	if err := uc.batches.UpdateBatchStatus(ctx, batchID, domain.BatchFailed, cause.Error()); err != nil {
		slog.Error("mark_batch_failed", "batch_id", batchID, "error", err)
	}
}
