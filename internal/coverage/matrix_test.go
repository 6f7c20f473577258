package coverage

import (
	"testing"

	"github.com/boobootoo2/medbilldozer-sub001/internal/core/domain"
)

func tx(docID string, docType domain.DocType, desc, date string, cents int64) domain.NormalizedTransaction {
	return domain.NormalizedTransaction{
		CanonicalID:       docID + "|" + desc,
		SourceDocumentID:  docID,
		SourceDocType:     docType,
		Description:       desc,
		DateOfService:     date,
		BilledAmountCents: cents,
	}
}

func TestTwoSourceRowStaysUnreconciled(t *testing.T) {
	rows := Build([]domain.NormalizedTransaction{
		tx("receipt-1", domain.DocTypeMedicalBill, "office visit", "2026-01-10", 10000),
		tx("eob-1", domain.DocTypeInsuranceEOB, "office visit", "2026-01-10", 10000),
	})

	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	row := rows[0]
	if row.ReceiptCents == nil || *row.ReceiptCents != 10000 {
		t.Errorf("ReceiptCents = %v", row.ReceiptCents)
	}
	if row.InsuranceCents == nil || *row.InsuranceCents != 10000 {
		t.Errorf("InsuranceCents = %v", row.InsuranceCents)
	}
	if row.FSACents != nil {
		t.Errorf("FSACents should be absent, got %v", *row.FSACents)
	}
	if row.Status != domain.CoverageUnreconciled {
		t.Errorf("Status = %s, want %s", row.Status, domain.CoverageUnreconciled)
	}
	if row.ReceiptDocID != "receipt-1" || row.InsuranceDocID != "eob-1" {
		t.Errorf("provenance columns wrong: %+v", row)
	}
}

func TestThreeConsistentSourcesMatch(t *testing.T) {
	rows := Build([]domain.NormalizedTransaction{
		tx("receipt-1", domain.DocTypePharmacyReceipt, "amoxicillin 500mg", "2026-02-01", 2450),
		tx("fsa-1", domain.DocTypeFSAClaim, "amoxicillin 500mg", "2026-02-01", 2450),
		tx("eob-1", domain.DocTypeInsuranceEOB, "amoxicillin 500mg", "2026-02-01", 2400),
	})
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Status != domain.CoverageMatched {
		t.Fatalf("Status = %s, want matched (within tolerance)", rows[0].Status)
	}
}

func TestMateriallyDifferentAmountsMismatch(t *testing.T) {
	rows := Build([]domain.NormalizedTransaction{
		tx("receipt-1", domain.DocTypeMedicalBill, "x-ray", "2026-03-05", 20000),
		tx("eob-1", domain.DocTypeInsuranceEOB, "x-ray", "2026-03-05", 12500),
	})
	if rows[0].Status != domain.CoverageAmountMismatch {
		t.Fatalf("Status = %s, want %s", rows[0].Status, domain.CoverageAmountMismatch)
	}
}

func TestSingleSourceRowIsKept(t *testing.T) {
	rows := Build([]domain.NormalizedTransaction{
		tx("fsa-1", domain.DocTypeFSAClaim, "contact lenses", "2026-04-01", 8900),
	})
	if len(rows) != 1 {
		t.Fatalf("row with one source must not be dropped")
	}
	if rows[0].Status != domain.CoverageUnreconciled {
		t.Fatalf("Status = %s", rows[0].Status)
	}
}

func TestRowsSortedByDateThenDescription(t *testing.T) {
	rows := Build([]domain.NormalizedTransaction{
		tx("d1", domain.DocTypeMedicalBill, "zzz panel", "2026-01-02", 100),
		tx("d2", domain.DocTypeMedicalBill, "aaa panel", "2026-01-02", 100),
		tx("d3", domain.DocTypeMedicalBill, "visit", "2026-01-01", 100),
	})
	if len(rows) != 3 {
		t.Fatalf("got %d rows", len(rows))
	}
	if rows[0].Description != "visit" || rows[1].Description != "aaa panel" || rows[2].Description != "zzz panel" {
		t.Fatalf("order wrong: %+v", rows)
	}
}
