package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/boobootoo2/medbilldozer-sub001/internal/classify"
	"github.com/boobootoo2/medbilldozer-sub001/internal/core/domain"
	"github.com/boobootoo2/medbilldozer-sub001/internal/extraction"
	"github.com/boobootoo2/medbilldozer-sub001/internal/normalize"
)

type docRepoFake struct {
	mu    sync.Mutex
	docs  map[string]*domain.Document
	order []string
}

func newDocRepoFake(docs ...domain.Document) *docRepoFake {
	f := &docRepoFake{docs: map[string]*domain.Document{}}
	for i := range docs {
		d := docs[i]
		f.docs[d.ID] = &d
		f.order = append(f.order, d.ID)
	}
	return f
}

func (f *docRepoFake) Create(_ context.Context, doc *domain.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *doc
	f.docs[doc.ID] = &copied
	f.order = append(f.order, doc.ID)
	return nil
}

func (f *docRepoFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get document", errors.New(id))
	}
	copied := *doc
	return &copied, nil
}

func (f *docRepoFake) ListByBatch(_ context.Context, batchID string) ([]domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Document
	for _, id := range f.order {
		if f.docs[id].BatchID == batchID {
			out = append(out, *f.docs[id])
		}
	}
	return out, nil
}

func (f *docRepoFake) UpdateStatus(_ context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.docs[id]; ok {
		doc.Status = status
		doc.Error = errMessage
	}
	return nil
}

func (f *docRepoFake) SaveAnalysis(_ context.Context, doc *domain.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *doc
	f.docs[doc.ID] = &copied
	return nil
}

type batchRepoFake struct {
	mu       sync.Mutex
	batch    *domain.Batch
	statuses []domain.BatchStatus
	coverage []domain.CoverageRow
	total    int64
	saved    bool
}

func (f *batchRepoFake) CreateBatch(_ context.Context, b *domain.Batch) error {
	f.batch = b
	return nil
}

func (f *batchRepoFake) GetBatch(_ context.Context, id string) (*domain.Batch, error) {
	if f.batch == nil || f.batch.ID != id {
		return nil, domain.WrapError(domain.ErrNotFound, "get batch", errors.New(id))
	}
	return f.batch, nil
}

func (f *batchRepoFake) UpdateBatchStatus(_ context.Context, _ string, status domain.BatchStatus, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *batchRepoFake) SaveReport(_ context.Context, _ string, rows []domain.CoverageRow, total int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.coverage = rows
	f.total = total
	f.saved = true
	return nil
}

func (f *batchRepoFake) GetReport(context.Context, string) ([]domain.CoverageRow, int64, error) {
	return f.coverage, f.total, nil
}

// textFake serves raw text keyed by storage path.
type textFake struct {
	texts map[string]string
	errs  map[string]error
}

func (f *textFake) Extract(_ context.Context, doc *domain.Document) (string, error) {
	if err := f.errs[doc.StoragePath]; err != nil {
		return "", err
	}
	return f.texts[doc.StoragePath], nil
}

// extractorFake returns scripted extraction results keyed by a text marker.
type extractorFake struct {
	mu      sync.Mutex
	results map[string]extraction.Result
	fail    map[string]bool
	calls   int
}

func (f *extractorFake) Extract(_ context.Context, text string, _ domain.DocType) (extraction.Result, extraction.Outcome) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	for marker, shouldFail := range f.fail {
		if shouldFail && strings.Contains(text, marker) {
			return extraction.Result{Facts: domain.NewFactSet()}, extraction.Outcome{Stage: extraction.StageFailed, Failed: true, Retried: true, Reason: "scripted failure"}
		}
	}
	for marker, result := range f.results {
		if strings.Contains(text, marker) {
			return result, extraction.Outcome{Stage: extraction.StageNone}
		}
	}
	return extraction.Result{Facts: domain.NewFactSet()}, extraction.Outcome{Stage: extraction.StageNone}
}

type providerFake struct {
	name    string
	healthy bool
	issues  []domain.Issue
	err     error
}

func (f *providerFake) Name() string                          { return f.name }
func (f *providerFake) HealthCheck(context.Context) bool      { return f.healthy }
func (f *providerFake) AnalyzeDocument(context.Context, string, domain.FactSet) ([]domain.Issue, error) {
	return f.issues, f.err
}

func billResult(provider, date string, items ...domain.LineItem) extraction.Result {
	return extraction.Result{
		Facts: normalize.Facts(domain.FactSet{
			domain.FactPatientID:     "MRN-1",
			domain.FactProviderName:  provider,
			domain.FactDateOfService: date,
		}),
		LineItems: items,
	}
}

func pipelineDoc(id, batchID, path string) domain.Document {
	return domain.Document{
		ID:          id,
		BatchID:     batchID,
		StoragePath: path,
		Facts:       domain.NewFactSet(),
		Status:      domain.StatusReceived,
	}
}

const officeVisitBill = `STATEMENT
99213 Office visit
Amount Due: $150.00
Patient responsibility applies`

const officeVisitEOB = `EXPLANATION OF BENEFITS
THIS IS NOT A BILL
Claim Number: XYZ1
Allowed Amount: $150.00  Plan Paid: $120.00`

func mustClassifier(t *testing.T) *classify.Classifier {
	t.Helper()
	c, err := classify.New()
	if err != nil {
		t.Fatalf("classifier: %v", err)
	}
	return c
}

func TestAnalyzeBatchHappyPath(t *testing.T) {
	item := domain.LineItem{Date: "2026-01-10", Code: "99213", Description: "Office Visit", Units: 1, UnitPrice: 150, Total: 150}

	docs := newDocRepoFake(
		pipelineDoc("doc-1", "batch-1", "bill"),
		pipelineDoc("doc-2", "batch-1", "eob"),
	)
	batches := &batchRepoFake{batch: &domain.Batch{ID: "batch-1", Status: domain.BatchSubmitted}}
	text := &textFake{texts: map[string]string{"bill": officeVisitBill, "eob": officeVisitEOB}}
	ext := &extractorFake{results: map[string]extraction.Result{
		"STATEMENT":   billResult("Acme Clinic", "2026-01-10", item),
		"EXPLANATION": billResult("Acme Clinic", "2026-01-10", item),
	}}

	uc := NewAnalyzeBatchUseCase(docs, batches, text, mustClassifier(t), ext, NewProviderTable(), 2, time.Second, nil)
	if err := uc.AnalyzeBatch(context.Background(), "batch-1"); err != nil {
		t.Fatalf("AnalyzeBatch: %v", err)
	}

	doc1, _ := docs.GetByID(context.Background(), "doc-1")
	if doc1.Status != domain.StatusAnalyzed {
		t.Errorf("doc-1 status = %s", doc1.Status)
	}
	if doc1.DocType != domain.DocTypeMedicalBill {
		t.Errorf("doc-1 type = %s", doc1.DocType)
	}
	doc2, _ := docs.GetByID(context.Background(), "doc-2")
	if doc2.DocType != domain.DocTypeInsuranceEOB {
		t.Errorf("doc-2 type = %s", doc2.DocType)
	}

	if !batches.saved {
		t.Fatalf("report not saved")
	}
	// Same charge from a bill and an EOB: one row, receipt + insurance
	// populated, FSA column visibly absent.
	if len(batches.coverage) != 1 {
		t.Fatalf("coverage rows = %d, want 1", len(batches.coverage))
	}
	row := batches.coverage[0]
	if row.ReceiptCents == nil || row.InsuranceCents == nil || row.FSACents != nil {
		t.Errorf("coverage columns wrong: %+v", row)
	}
	if row.Status != domain.CoverageUnreconciled {
		t.Errorf("row status = %s", row.Status)
	}

	last := batches.statuses[len(batches.statuses)-1]
	if last != domain.BatchComplete {
		t.Errorf("final batch status = %s", last)
	}
}

func TestAnalyzeBatchFailureIsolation(t *testing.T) {
	item := domain.LineItem{Date: "2026-01-10", Code: "99213", Description: "Office Visit", Units: 1, UnitPrice: 150, Total: 150}

	var seed []domain.Document
	text := &textFake{texts: map[string]string{}}
	for i := 1; i <= 5; i++ {
		path := fmt.Sprintf("doc%d", i)
		seed = append(seed, pipelineDoc(fmt.Sprintf("doc-%d", i), "batch-1", path))
		text.texts[path] = fmt.Sprintf("%s\nmarker-%d", officeVisitBill, i)
	}
	docs := newDocRepoFake(seed...)
	batches := &batchRepoFake{batch: &domain.Batch{ID: "batch-1"}}
	ext := &extractorFake{
		results: map[string]extraction.Result{"STATEMENT": billResult("Acme Clinic", "2026-01-10", item)},
		fail:    map[string]bool{"marker-2": true},
	}

	uc := NewAnalyzeBatchUseCase(docs, batches, text, mustClassifier(t), ext, NewProviderTable(), 3, time.Second, nil)
	if err := uc.AnalyzeBatch(context.Background(), "batch-1"); err != nil {
		t.Fatalf("AnalyzeBatch: %v", err)
	}

	for i := 1; i <= 5; i++ {
		doc, _ := docs.GetByID(context.Background(), fmt.Sprintf("doc-%d", i))
		if i == 2 {
			if doc.Status != domain.StatusExtractionFailed {
				t.Errorf("doc-2 status = %s, want extraction_failed", doc.Status)
			}
			if len(doc.Issues) != 0 {
				t.Errorf("doc-2 issues = %+v, want none", doc.Issues)
			}
			continue
		}
		if doc.Status != domain.StatusAnalyzed {
			t.Errorf("doc-%d status = %s, want analyzed", i, doc.Status)
		}
	}

	last := batches.statuses[len(batches.statuses)-1]
	if last != domain.BatchComplete {
		t.Errorf("final batch status = %s", last)
	}
}

func TestAnalyzeBatchMergesExternalIssues(t *testing.T) {
	item := domain.LineItem{Date: "2026-01-10", Code: "99213", Description: "Office Visit", Units: 1, UnitPrice: 150, Total: 150}
	docs := newDocRepoFake(pipelineDoc("doc-1", "batch-1", "bill"))
	batches := &batchRepoFake{batch: &domain.Batch{ID: "batch-1"}}
	text := &textFake{texts: map[string]string{"bill": officeVisitBill}}
	ext := &extractorFake{results: map[string]extraction.Result{"STATEMENT": billResult("Acme Clinic", "2026-01-10", item, item)}}

	external := domain.Issue{Type: "surprise_billing", Summary: "possible balance bill", Code: "99213", Date: "2026-01-10", MaxSavingsCents: 2000, Confidence: 0.5}
	providers := NewProviderTable(
		&providerFake{name: "healthy", healthy: true, issues: []domain.Issue{external}},
		&providerFake{name: "down", healthy: false, issues: []domain.Issue{{Type: "never_seen"}}},
		&providerFake{name: "broken", healthy: true, err: errors.New("boom")},
	)

	uc := NewAnalyzeBatchUseCase(docs, batches, text, mustClassifier(t), ext, providers, 1, time.Second, nil)
	if err := uc.AnalyzeBatch(context.Background(), "batch-1"); err != nil {
		t.Fatalf("AnalyzeBatch: %v", err)
	}

	doc, _ := docs.GetByID(context.Background(), "doc-1")
	var haveDup, haveExternal bool
	for _, issue := range doc.Issues {
		switch issue.Type {
		case domain.IssueDuplicateCharge:
			haveDup = true
			if issue.MaxSavingsCents != 15000 {
				t.Errorf("duplicate savings = %d", issue.MaxSavingsCents)
			}
		case "surprise_billing":
			haveExternal = true
			if issue.Source != domain.IssueSourceExternal {
				t.Errorf("external issue source = %s", issue.Source)
			}
		case "never_seen":
			t.Errorf("unhealthy provider was consulted")
		}
	}
	if !haveDup || !haveExternal {
		t.Fatalf("issues = %+v, want deterministic + external", doc.Issues)
	}

	if batches.total != 15000+2000 {
		t.Errorf("total savings = %d, want 17000", batches.total)
	}
}

func TestAnalyzeBatchEmptyDocumentShortCircuits(t *testing.T) {
	docs := newDocRepoFake(pipelineDoc("doc-1", "batch-1", "empty"))
	batches := &batchRepoFake{batch: &domain.Batch{ID: "batch-1"}}
	text := &textFake{texts: map[string]string{"empty": "   \n  "}}
	ext := &extractorFake{}

	uc := NewAnalyzeBatchUseCase(docs, batches, text, mustClassifier(t), ext, NewProviderTable(), 1, time.Second, nil)
	if err := uc.AnalyzeBatch(context.Background(), "batch-1"); err != nil {
		t.Fatalf("AnalyzeBatch: %v", err)
	}

	if ext.calls != 0 {
		t.Errorf("extractor called %d times for an empty document", ext.calls)
	}
	doc, _ := docs.GetByID(context.Background(), "doc-1")
	if doc.Status != domain.StatusAnalyzed || doc.DocType != domain.DocTypeUnknown {
		t.Errorf("doc = %+v", doc)
	}
}

func TestAnalyzeBatchUnknownBatch(t *testing.T) {
	uc := NewAnalyzeBatchUseCase(newDocRepoFake(), &batchRepoFake{}, &textFake{}, mustClassifier(t), &extractorFake{}, NewProviderTable(), 1, time.Second, nil)
	if err := uc.AnalyzeBatch(context.Background(), "missing"); err == nil {
		t.Fatalf("expected error for unknown batch")
	}
}
