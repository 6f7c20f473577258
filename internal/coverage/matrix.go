// Package coverage reconciles receipts, reimbursement-account claims, and
// insurance claims across a batch into comparison rows. The builder reads
// the batch's transaction observations and mutates nothing upstream.
package coverage

import (
	"sort"

	"github.com/boobootoo2/medbilldozer-sub001/internal/core/domain"
)

// matchToleranceCents is how far two sources may disagree before a row is an
// amount mismatch rather than a match.
const matchToleranceCents = 100

type column int

const (
	columnReceipt column = iota
	columnFSA
	columnInsurance
)

// sourceColumn maps an originating document category onto a matrix column.
// Exhaustive over the closed DocType set.
func sourceColumn(t domain.DocType) column {
	switch t {
	case domain.DocTypeFSAClaim:
		return columnFSA
	case domain.DocTypeInsuranceEOB:
		return columnInsurance
	case domain.DocTypePharmacyReceipt, domain.DocTypeMedicalBill, domain.DocTypeDentalBill, domain.DocTypeUnknown:
		return columnReceipt
	default:
		return columnReceipt
	}
}

type rowKey struct {
	description string
	date        string
}

// Build groups transactions by (normalized description, date) and populates
// whichever amount columns the contributing documents provide. Rows are
// never dropped for missing columns; gaps stay visible. Output order is
// deterministic: by date, then description.
func Build(txs []domain.NormalizedTransaction) []domain.CoverageRow {
	rows := make(map[rowKey]*domain.CoverageRow)
	var keys []rowKey

	for _, tx := range txs {
		key := rowKey{description: tx.Description, date: tx.DateOfService}
		row, ok := rows[key]
		if !ok {
			row = &domain.CoverageRow{Description: tx.Description, Date: tx.DateOfService}
			rows[key] = row
			keys = append(keys, key)
		}
		amount := tx.BilledAmountCents
		switch sourceColumn(tx.SourceDocType) {
		case columnReceipt:
			if row.ReceiptCents == nil {
				row.ReceiptCents = &amount
				row.ReceiptDocID = tx.SourceDocumentID
			}
		case columnFSA:
			if row.FSACents == nil {
				row.FSACents = &amount
				row.FSADocID = tx.SourceDocumentID
			}
		case columnInsurance:
			if row.InsuranceCents == nil {
				row.InsuranceCents = &amount
				row.InsuranceDocID = tx.SourceDocumentID
			}
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].date != keys[j].date {
			return keys[i].date < keys[j].date
		}
		return keys[i].description < keys[j].description
	})

	out := make([]domain.CoverageRow, 0, len(keys))
	for _, key := range keys {
		row := rows[key]
		row.Status = status(row)
		out = append(out, *row)
	}
	return out
}

// status derives the reconciliation state of one row. Materially divergent
// amounts win over everything; a full three-way consistent row is matched;
// anything short of all three sources stays unreconciled so the gap is
// visible.
func status(row *domain.CoverageRow) domain.CoverageStatus {
	present := []*int64{}
	for _, v := range []*int64{row.ReceiptCents, row.FSACents, row.InsuranceCents} {
		if v != nil {
			present = append(present, v)
		}
	}

	for i := 1; i < len(present); i++ {
		diff := *present[i] - *present[0]
		if diff < 0 {
			diff = -diff
		}
		if diff > matchToleranceCents {
			return domain.CoverageAmountMismatch
		}
	}
	if len(present) == 3 {
		return domain.CoverageMatched
	}
	return domain.CoverageUnreconciled
}
