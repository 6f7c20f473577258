// Package ledger converts raw line items into canonical transactions and
// merges duplicates observed across documents.
package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/boobootoo2/medbilldozer-sub001/internal/core/domain"
	"github.com/boobootoo2/medbilldozer-sub001/internal/normalize"
)

// Fingerprint hashes the canonical transaction tuple. Fields are written
// with null separators so no concatenation of values can collide with
// another field split. Deterministic: equal normalized tuples always hash
// equal; any differing field changes the digest.
func Fingerprint(patientID, provider, date, code string, units int, amountCents int64) string {
	h := sha256.New()
	for _, field := range []string{
		patientID,
		provider,
		date,
		code,
		strconv.Itoa(units),
		normalize.CentsToDollars(amountCents),
	} {
		h.Write([]byte(field))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// NormalizeTransactions builds canonical transactions from a document's line
// items, using its FactSet for patient identity. Line items with no parsable
// amount still produce a transaction with a zero amount; absence stays
// visible downstream.
func NormalizeTransactions(doc *domain.Document) []domain.NormalizedTransaction {
	patientID := patientIdentity(doc.Facts)
	out := make([]domain.NormalizedTransaction, 0, len(doc.LineItems))

	for _, item := range doc.LineItems {
		provider := normalize.Text(doc.Facts.Get(domain.FactProviderName))
		date := normalize.Date(item.Date)
		if date == "" {
			date = doc.Facts.Get(domain.FactDateOfService)
		}
		code := normalize.Code(item.Code)
		units := item.Units
		if units <= 0 {
			units = 1
		}
		amount := normalize.DollarsToCents(item.Total)

		out = append(out, domain.NormalizedTransaction{
			CanonicalID:       Fingerprint(patientID, provider, date, code, units, amount),
			SourceDocumentID:  doc.ID,
			SourceDocType:     doc.DocType,
			ProviderName:      provider,
			DateOfService:     date,
			Code:              code,
			Description:       normalize.Text(item.Description),
			Units:             units,
			BilledAmountCents: amount,
			UnitPriceCents:    normalize.DollarsToCents(item.UnitPrice),
		})
	}
	return out
}

func patientIdentity(facts domain.FactSet) string {
	if id := facts.Get(domain.FactPatientID); id != "" {
		return id
	}
	return facts.Get(domain.FactPatientName)
}
