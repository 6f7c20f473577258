package domain

// NormalizedTransaction is one charge in canonical form. CanonicalID is a
// deterministic fingerprint of the normalized tuple (patient, provider, date,
// code, units, amount); equal ids mean the same transaction observed in
// multiple documents. Instances are never mutated after creation.
type NormalizedTransaction struct {
	CanonicalID       string  `json:"canonical_id"`
	SourceDocumentID  string  `json:"source_document_id"`
	SourceDocType     DocType `json:"source_doc_type"`
	ProviderName      string  `json:"provider_name"`
	DateOfService     string  `json:"date_of_service"`
	Code              string  `json:"code"`
	Description       string  `json:"description"`
	Units             int     `json:"units"`
	BilledAmountCents int64   `json:"billed_amount_cents"`

	// UnitPriceCents is outside the fingerprint tuple; divergence between
	// duplicates is a FingerprintConflict, not a merge.
	UnitPriceCents int64 `json:"unit_price_cents"`
}

// FingerprintConflict records two transactions that share a CanonicalID but
// disagree on an amount outside the fingerprint tuple. Never resolved
// silently; surfaced to the issue detector as a candidate.
type FingerprintConflict struct {
	CanonicalID string
	Kept        NormalizedTransaction
	Conflicting NormalizedTransaction
}
