// Package detect is the deterministic issue rule engine. Rules are evaluated
// independently and side-effect free: a panicking rule is recovered and
// logged, and the remaining rules still run.
package detect

import (
	"fmt"
	"log/slog"

	"github.com/boobootoo2/medbilldozer-sub001/internal/core/domain"
	"github.com/boobootoo2/medbilldozer-sub001/internal/normalize"
)

// arithmeticToleranceCents absorbs rounding differences between a stated
// total and units times unit price.
const arithmeticToleranceCents = 1

type documentRule struct {
	name string
	run  func(doc *domain.Document, txs []domain.NormalizedTransaction) []domain.Issue
}

var documentRules = []documentRule{
	{name: "duplicate_charge", run: duplicateCharges},
	{name: "arithmetic_mismatch", run: arithmeticMismatches},
	{name: "demographic_conflict", run: demographicConflicts},
}

// Document evaluates every per-document rule against one document's
// normalized facts and transactions.
func Document(doc *domain.Document, txs []domain.NormalizedTransaction) []domain.Issue {
	var issues []domain.Issue
	for _, rule := range documentRules {
		issues = append(issues, runRule(rule, doc, txs)...)
	}
	return issues
}

func runRule(rule documentRule, doc *domain.Document, txs []domain.NormalizedTransaction) (issues []domain.Issue) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("detection_rule_panic", "rule", rule.name, "document_id", doc.ID, "panic", r)
			issues = nil
		}
	}()
	return rule.run(doc, txs)
}

// duplicateCharges flags fingerprints that occur more than once within a
// single document. Each extra occurrence is recoverable in full.
func duplicateCharges(doc *domain.Document, txs []domain.NormalizedTransaction) []domain.Issue {
	seen := make(map[string]domain.NormalizedTransaction, len(txs))
	var issues []domain.Issue
	for _, tx := range txs {
		first, dup := seen[tx.CanonicalID]
		if !dup {
			seen[tx.CanonicalID] = tx
			continue
		}
		issues = append(issues, domain.Issue{
			Type:    domain.IssueDuplicateCharge,
			Summary: fmt.Sprintf("charge %s on %s appears twice in the same document", displayCode(first), first.DateOfService),
			Evidence: fmt.Sprintf("two line items with identical provider, date, code, units, and amount $%s",
				normalize.CentsToDollars(first.BilledAmountCents)),
			Code:              first.Code,
			Date:              first.DateOfService,
			RecommendedAction: "ask the provider to remove the repeated line item",
			MaxSavingsCents:   first.BilledAmountCents,
			Confidence:        domain.ConfidenceHigh,
			Source:            domain.IssueSourceDeterministic,
		})
	}
	return issues
}

func displayCode(tx domain.NormalizedTransaction) string {
	if tx.Code != "" {
		return tx.Code
	}
	return tx.Description
}

// arithmeticMismatches flags line items whose stated total disagrees with
// units times unit price.
func arithmeticMismatches(doc *domain.Document, _ []domain.NormalizedTransaction) []domain.Issue {
	var issues []domain.Issue
	for _, item := range doc.LineItems {
		if item.Units <= 0 || item.UnitPrice <= 0 || item.Total <= 0 {
			continue
		}
		expected := normalize.DollarsToCents(item.UnitPrice) * int64(item.Units)
		stated := normalize.DollarsToCents(item.Total)
		diff := stated - expected
		if diff < 0 {
			diff = -diff
		}
		if diff <= arithmeticToleranceCents {
			continue
		}
		issues = append(issues, domain.Issue{
			Type: domain.IssueArithmeticMismatch,
			Summary: fmt.Sprintf("stated total $%s does not equal %d x $%s",
				normalize.CentsToDollars(stated), item.Units, normalize.CentsToDollars(normalize.DollarsToCents(item.UnitPrice))),
			Evidence:          fmt.Sprintf("line item %q", item.Description),
			Code:              normalize.Code(item.Code),
			Date:              normalize.Date(item.Date),
			RecommendedAction: "request an itemized recalculation",
			MaxSavingsCents:   diff,
			Confidence:        domain.ConfidenceHigh,
			Source:            domain.IssueSourceDeterministic,
		})
	}
	return issues
}

// demographicConflicts flags procedures whose known applicability
// contradicts the patient facts.
func demographicConflicts(doc *domain.Document, txs []domain.NormalizedTransaction) []domain.Issue {
	sex := doc.Facts.Get(domain.FactPatientSex)
	var issues []domain.Issue
	for _, tx := range txs {
		constraint, known := demographicConstraints[tx.Code]
		if !known {
			continue
		}
		reason := ""
		if constraint.Sex != "" && sex != "" && sex != constraint.Sex {
			reason = fmt.Sprintf("%s is billable only for %s patients, patient is %s", tx.Code, constraint.Sex, sex)
		}
		if reason == "" && (constraint.MinAge >= 0 || constraint.MaxAge >= 0) {
			if age, ok := normalize.PatientAgeAt(doc.Facts, tx.DateOfService); ok {
				if constraint.MinAge >= 0 && age < constraint.MinAge {
					reason = fmt.Sprintf("%s (%s) requires age >= %d, patient is %d", tx.Code, constraint.Label, constraint.MinAge, age)
				}
				if constraint.MaxAge >= 0 && age > constraint.MaxAge {
					reason = fmt.Sprintf("%s (%s) requires age <= %d, patient is %d", tx.Code, constraint.Label, constraint.MaxAge, age)
				}
			}
		}
		if reason == "" {
			continue
		}
		issues = append(issues, domain.Issue{
			Type:              domain.IssueDemographicConflict,
			Summary:           reason,
			Evidence:          fmt.Sprintf("billed %s on %s", constraint.Label, tx.DateOfService),
			Code:              tx.Code,
			Date:              tx.DateOfService,
			RecommendedAction: "verify the billed code against the visit record",
			MaxSavingsCents:   tx.BilledAmountCents,
			Confidence:        domain.ConfidenceHigh,
			Source:            domain.IssueSourceDeterministic,
		})
	}
	return issues
}

// Conflicts converts dedup fingerprint conflicts into issues. Product
// decision: the conflict is flagged as an anomaly and the first-seen
// representative stays authoritative.
func Conflicts(conflicts []domain.FingerprintConflict) []domain.Issue {
	var issues []domain.Issue
	for _, c := range conflicts {
		issues = append(issues, domain.Issue{
			Type: domain.IssueFingerprintConflict,
			Summary: fmt.Sprintf("documents %s and %s report the same charge with different unit prices",
				c.Kept.SourceDocumentID, c.Conflicting.SourceDocumentID),
			Evidence: fmt.Sprintf("$%s vs $%s per unit for code %s",
				normalize.CentsToDollars(c.Kept.UnitPriceCents), normalize.CentsToDollars(c.Conflicting.UnitPriceCents), c.Kept.Code),
			Code:              c.Kept.Code,
			Date:              c.Kept.DateOfService,
			RecommendedAction: "reconcile the two statements with the provider",
			Confidence:        domain.ConfidenceMedium,
			Source:            domain.IssueSourceDeterministic,
		})
	}
	return issues
}

// MergeIssues appends external issues onto deterministic ones, dropping
// findings already reported with the same (type, code, date, amount) key.
func MergeIssues(base []domain.Issue, extra []domain.Issue) []domain.Issue {
	seen := make(map[string]struct{}, len(base))
	for _, issue := range base {
		seen[issue.Key()] = struct{}{}
	}
	out := base
	for _, issue := range extra {
		if _, dup := seen[issue.Key()]; dup {
			continue
		}
		seen[issue.Key()] = struct{}{}
		out = append(out, issue)
	}
	return out
}

// SumSavings totals estimated savings across issues.
func SumSavings(issues []domain.Issue) int64 {
	var total int64
	for _, issue := range issues {
		total += issue.MaxSavingsCents
	}
	return total
}
