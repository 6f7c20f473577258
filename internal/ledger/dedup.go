package ledger

import "github.com/boobootoo2/medbilldozer-sub001/internal/core/domain"

// Dedup owns the canonical transaction map for one batch: a single
// representative per fingerprint plus the ordered provenance of source
// documents. The first-seen transaction stays the representative; later
// duplicates only add provenance. Divergence on non-fingerprint fields is
// kept as a conflict candidate, never resolved silently.
type Dedup struct {
	order           []string
	representatives map[string]domain.NormalizedTransaction
	provenance      map[string][]string
	conflicts       []domain.FingerprintConflict
	observations    []domain.NormalizedTransaction
}

func NewDedup() *Dedup {
	return &Dedup{
		representatives: make(map[string]domain.NormalizedTransaction),
		provenance:      make(map[string][]string),
	}
}

// Add merges one document's transactions into the batch map.
func (d *Dedup) Add(txs []domain.NormalizedTransaction) {
	for _, tx := range txs {
		d.observations = append(d.observations, tx)
		kept, seen := d.representatives[tx.CanonicalID]
		if !seen {
			d.order = append(d.order, tx.CanonicalID)
			d.representatives[tx.CanonicalID] = tx
			d.provenance[tx.CanonicalID] = []string{tx.SourceDocumentID}
			continue
		}

		d.provenance[tx.CanonicalID] = appendDocID(d.provenance[tx.CanonicalID], tx.SourceDocumentID)
		if tx.UnitPriceCents != kept.UnitPriceCents {
			d.conflicts = append(d.conflicts, domain.FingerprintConflict{
				CanonicalID: tx.CanonicalID,
				Kept:        kept,
				Conflicting: tx,
			})
		}
	}
}

// Transactions returns the representatives in first-seen order.
func (d *Dedup) Transactions() []domain.NormalizedTransaction {
	out := make([]domain.NormalizedTransaction, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.representatives[id])
	}
	return out
}

// Provenance returns the ordered contributing document ids for a
// fingerprint.
func (d *Dedup) Provenance(canonicalID string) []string {
	return d.provenance[canonicalID]
}

func (d *Dedup) Conflicts() []domain.FingerprintConflict {
	return d.conflicts
}

// Observations returns every transaction added to the map, in insertion
// order, including duplicates folded into an existing representative.
// Coverage reconciliation needs the full set: a receipt and an insurance
// claim for the same charge share a fingerprint, but each still counts as
// an observation in its own source column.
func (d *Dedup) Observations() []domain.NormalizedTransaction {
	return d.observations
}

func appendDocID(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
