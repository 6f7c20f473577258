// Package postgres persists documents, batches, and reconciliation reports.
// Analysis payloads (facts, line items, issues, coverage) live in JSONB
// columns: the pipeline is the only writer and always rewrites the whole
// payload, so relational decomposition would buy nothing.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/boobootoo2/medbilldozer-sub001/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS batches (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	error_message TEXT,
	coverage JSONB,
	total_savings_cents BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	batch_id TEXT NOT NULL REFERENCES batches(id),
	position INTEGER NOT NULL DEFAULT 0,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	doc_type TEXT NOT NULL DEFAULT 'generic',
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	facts JSONB NOT NULL DEFAULT '{}'::jsonb,
	line_items JSONB NOT NULL DEFAULT '[]'::jsonb,
	issues JSONB NOT NULL DEFAULT '[]'::jsonb,
	status TEXT NOT NULL,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_batch_id ON documents(batch_id, position);
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	factsJSON, lineItemsJSON, issuesJSON, err := marshalAnalysis(doc)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO documents (
	id, batch_id, position, filename, mime_type, storage_path, doc_type, confidence, facts, line_items, issues, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
`,
		doc.ID, doc.BatchID, doc.Position, doc.Filename, doc.MimeType, doc.StoragePath, string(doc.DocType), doc.Confidence,
		factsJSON, lineItemsJSON, issuesJSON, string(doc.Status), doc.Error, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

const documentColumns = `id, batch_id, position, filename, mime_type, storage_path, doc_type, confidence, facts, line_items, issues, status, error_message, created_at, updated_at`

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE id = $1
`, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get document", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return doc, nil
}

// ListByBatch returns the batch's documents in submission order. All rows
// of one batch share a created_at, so position is the only usable sort key.
func (r *DocumentRepository) ListByBatch(ctx context.Context, batchID string) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE batch_id = $1
ORDER BY position, id
`, batchID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document status rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, "update document status", fmt.Errorf("id=%s", id))
	}
	return nil
}

// SaveAnalysis rewrites the full analysis payload for one document.
func (r *DocumentRepository) SaveAnalysis(ctx context.Context, doc *domain.Document) error {
	factsJSON, lineItemsJSON, issuesJSON, err := marshalAnalysis(doc)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET doc_type = $2, confidence = $3, facts = $4, line_items = $5, issues = $6, status = $7, error_message = $8, updated_at = $9
WHERE id = $1
`, doc.ID, string(doc.DocType), doc.Confidence, factsJSON, lineItemsJSON, issuesJSON,
		string(doc.Status), doc.Error, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("save analysis rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, "save analysis", fmt.Errorf("id=%s", doc.ID))
	}
	return nil
}

func marshalAnalysis(doc *domain.Document) (facts, lineItems, issues []byte, err error) {
	factSet := doc.Facts
	if factSet == nil {
		factSet = domain.FactSet{}
	}
	facts, err = json.Marshal(factSet)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal facts: %w", err)
	}

	items := doc.LineItems
	if items == nil {
		items = []domain.LineItem{}
	}
	lineItems, err = json.Marshal(items)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal line items: %w", err)
	}

	docIssues := doc.Issues
	if docIssues == nil {
		docIssues = []domain.Issue{}
	}
	issues, err = json.Marshal(docIssues)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal issues: %w", err)
	}
	return facts, lineItems, issues, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var docType, status string
	var factsRaw, lineItemsRaw, issuesRaw []byte

	err := row.Scan(
		&doc.ID, &doc.BatchID, &doc.Position, &doc.Filename, &doc.MimeType, &doc.StoragePath, &docType, &doc.Confidence,
		&factsRaw, &lineItemsRaw, &issuesRaw, &status, &doc.Error, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(factsRaw, &doc.Facts); err != nil {
		return nil, fmt.Errorf("unmarshal facts: %w", err)
	}
	if err := json.Unmarshal(lineItemsRaw, &doc.LineItems); err != nil {
		return nil, fmt.Errorf("unmarshal line items: %w", err)
	}
	if err := json.Unmarshal(issuesRaw, &doc.Issues); err != nil {
		return nil, fmt.Errorf("unmarshal issues: %w", err)
	}
	doc.DocType = domain.DocType(docType)
	doc.Status = domain.DocumentStatus(status)
	return &doc, nil
}
