package domain

import "time"

type CoverageStatus string

const (
	CoverageMatched        CoverageStatus = "matched"
	CoverageUnreconciled   CoverageStatus = "unreconciled"
	CoverageAmountMismatch CoverageStatus = "amount_mismatch"
)

// CoverageRow compares what a receipt, a reimbursement account, and an
// insurer report for the same charge. Nil amount columns are visible gaps,
// never dropped rows.
type CoverageRow struct {
	Description    string         `json:"description"`
	Date           string         `json:"date"`
	ReceiptCents   *int64         `json:"receipt_cents"`
	FSACents       *int64         `json:"fsa_cents"`
	InsuranceCents *int64         `json:"insurance_cents"`
	ReceiptDocID   string         `json:"receipt_doc_id,omitempty"`
	FSADocID       string         `json:"fsa_doc_id,omitempty"`
	InsuranceDocID string         `json:"insurance_doc_id,omitempty"`
	Status         CoverageStatus `json:"status"`
}

type BatchStatus string

const (
	BatchSubmitted BatchStatus = "submitted"
	BatchAnalyzing BatchStatus = "analyzing"
	BatchComplete  BatchStatus = "complete"
	BatchFailed    BatchStatus = "failed"
)

type Batch struct {
	ID        string      `json:"id"`
	Status    BatchStatus `json:"status"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// BatchReport is the full analysis output for one batch: every document in
// submission order, the reconciliation matrix, and aggregate savings.
type BatchReport struct {
	Batch             Batch         `json:"batch"`
	Documents         []Document    `json:"documents"`
	Coverage          []CoverageRow `json:"coverage"`
	TotalSavingsCents int64         `json:"total_savings_cents"`
}
