package detect

import (
	"testing"

	"github.com/boobootoo2/medbilldozer-sub001/internal/core/domain"
	"github.com/boobootoo2/medbilldozer-sub001/internal/ledger"
	"github.com/boobootoo2/medbilldozer-sub001/internal/normalize"
)

func docWithItems(facts domain.FactSet, items ...domain.LineItem) *domain.Document {
	return &domain.Document{
		ID:        "doc-1",
		DocType:   domain.DocTypeMedicalBill,
		Facts:     normalize.Facts(facts),
		LineItems: items,
	}
}

func TestDuplicateChargeWithinOneDocument(t *testing.T) {
	item := domain.LineItem{Date: "2026-01-10", Code: "99213", Description: "Office Visit", Units: 1, UnitPrice: 150, Total: 150}
	doc := docWithItems(domain.FactSet{
		domain.FactPatientID:    "MRN-1",
		domain.FactProviderName: "Acme Clinic",
	}, item, item)

	issues := Document(doc, ledger.NormalizeTransactions(doc))
	if len(issues) != 1 {
		t.Fatalf("got %d issues, want 1: %+v", len(issues), issues)
	}
	issue := issues[0]
	if issue.Type != domain.IssueDuplicateCharge {
		t.Errorf("Type = %s", issue.Type)
	}
	if issue.MaxSavingsCents != 15000 {
		t.Errorf("MaxSavingsCents = %d, want 15000", issue.MaxSavingsCents)
	}
	if issue.Confidence < domain.ConfidenceHigh {
		t.Errorf("Confidence = %f, want high", issue.Confidence)
	}
	if issue.Source != domain.IssueSourceDeterministic {
		t.Errorf("Source = %s", issue.Source)
	}
}

func TestArithmeticMismatch(t *testing.T) {
	doc := docWithItems(domain.FactSet{domain.FactProviderName: "Acme Clinic"},
		domain.LineItem{Date: "2026-01-10", Code: "85025", Description: "CBC panel", Units: 3, UnitPrice: 20, Total: 75},
	)

	issues := Document(doc, ledger.NormalizeTransactions(doc))
	if len(issues) != 1 {
		t.Fatalf("got %d issues, want 1: %+v", len(issues), issues)
	}
	if issues[0].Type != domain.IssueArithmeticMismatch {
		t.Fatalf("Type = %s", issues[0].Type)
	}
	if issues[0].MaxSavingsCents != 1500 {
		t.Errorf("MaxSavingsCents = %d, want 1500", issues[0].MaxSavingsCents)
	}
}

func TestArithmeticConsistentLineProducesNoIssue(t *testing.T) {
	doc := docWithItems(domain.FactSet{domain.FactProviderName: "Acme Clinic"},
		domain.LineItem{Date: "2026-01-10", Code: "85025", Description: "CBC panel", Units: 3, UnitPrice: 25, Total: 75},
	)
	if issues := Document(doc, ledger.NormalizeTransactions(doc)); len(issues) != 0 {
		t.Fatalf("unexpected issues: %+v", issues)
	}
}

func TestDemographicConflictOnSex(t *testing.T) {
	doc := docWithItems(domain.FactSet{
		domain.FactProviderName: "Acme Clinic",
		domain.FactPatientSex:   "M",
	}, domain.LineItem{Date: "2026-01-10", Code: "59400", Description: "OB care", Units: 1, UnitPrice: 2400, Total: 2400})

	issues := Document(doc, ledger.NormalizeTransactions(doc))
	if len(issues) != 1 || issues[0].Type != domain.IssueDemographicConflict {
		t.Fatalf("got %+v, want one demographic conflict", issues)
	}
	if issues[0].MaxSavingsCents != 240000 {
		t.Errorf("MaxSavingsCents = %d", issues[0].MaxSavingsCents)
	}
}

func TestDemographicConflictOnAge(t *testing.T) {
	doc := docWithItems(domain.FactSet{
		domain.FactProviderName: "Acme Clinic",
		domain.FactPatientDOB:   "1980-06-15",
	}, domain.LineItem{Date: "2026-01-10", Code: "90460", Description: "Vaccine admin", Units: 1, UnitPrice: 45, Total: 45})

	issues := Document(doc, ledger.NormalizeTransactions(doc))
	if len(issues) != 1 || issues[0].Type != domain.IssueDemographicConflict {
		t.Fatalf("got %+v, want one demographic conflict", issues)
	}
}

func TestConflictsBecomeIssues(t *testing.T) {
	issues := Conflicts([]domain.FingerprintConflict{{
		CanonicalID: "abc",
		Kept:        domain.NormalizedTransaction{SourceDocumentID: "doc-1", Code: "99213", UnitPriceCents: 15000},
		Conflicting: domain.NormalizedTransaction{SourceDocumentID: "doc-2", Code: "99213", UnitPriceCents: 17500},
	}})
	if len(issues) != 1 || issues[0].Type != domain.IssueFingerprintConflict {
		t.Fatalf("got %+v", issues)
	}
}

func TestMergeIssuesDropsDuplicateFindings(t *testing.T) {
	det := domain.Issue{Type: domain.IssueDuplicateCharge, Code: "99213", Date: "2026-01-10", MaxSavingsCents: 15000, Source: domain.IssueSourceDeterministic}
	ext := domain.Issue{Type: domain.IssueDuplicateCharge, Code: "99213", Date: "2026-01-10", MaxSavingsCents: 15000, Source: domain.IssueSourceExternal}
	other := domain.Issue{Type: domain.IssueArithmeticMismatch, Code: "85025", Date: "2026-01-10", MaxSavingsCents: 500, Source: domain.IssueSourceExternal}

	merged := MergeIssues([]domain.Issue{det}, []domain.Issue{ext, other})
	if len(merged) != 2 {
		t.Fatalf("got %d issues, want 2: %+v", len(merged), merged)
	}
	if SumSavings(merged) != 15500 {
		t.Errorf("SumSavings = %d, want 15500", SumSavings(merged))
	}
}

func TestPanickingRuleDoesNotBlockOthers(t *testing.T) {
	saved := documentRules
	defer func() { documentRules = saved }()

	documentRules = append([]documentRule{{
		name: "always_panics",
		run: func(*domain.Document, []domain.NormalizedTransaction) []domain.Issue {
			panic("boom")
		},
	}}, saved...)

	item := domain.LineItem{Date: "2026-01-10", Code: "99213", Description: "Office Visit", Units: 1, UnitPrice: 150, Total: 150}
	doc := docWithItems(domain.FactSet{domain.FactProviderName: "Acme Clinic"}, item, item)

	issues := Document(doc, ledger.NormalizeTransactions(doc))
	if len(issues) != 1 || issues[0].Type != domain.IssueDuplicateCharge {
		t.Fatalf("remaining rules did not run: %+v", issues)
	}
}
