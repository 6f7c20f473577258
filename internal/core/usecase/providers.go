package usecase

import (
	"context"
	"log/slog"

	"github.com/boobootoo2/medbilldozer-sub001/internal/core/ports"
)

// ProviderTable is the explicit registry of external analysis providers.
// It is built once at bootstrap and passed by reference; provider
// substitution in tests is plain construction, no globals.
type ProviderTable struct {
	providers []ports.AnalysisProvider
}

// NewProviderTable builds the table, keeping the first provider registered
// under each name. The configured model list can repeat an entry; consulting
// the same provider twice would double its findings.
func NewProviderTable(providers ...ports.AnalysisProvider) *ProviderTable {
	t := &ProviderTable{}
	for _, p := range providers {
		if _, exists := t.Lookup(p.Name()); exists {
			slog.Warn("analysis_provider_duplicate", "provider", p.Name())
			continue
		}
		t.providers = append(t.providers, p)
	}
	return t
}

// Healthy returns the providers currently eligible for routing, in table
// order. An unhealthy provider is skipped and logged, never an error.
func (t *ProviderTable) Healthy(ctx context.Context) []ports.AnalysisProvider {
	if t == nil {
		return nil
	}
	out := make([]ports.AnalysisProvider, 0, len(t.providers))
	for _, p := range t.providers {
		if !p.HealthCheck(ctx) {
			slog.Warn("analysis_provider_unhealthy", "provider", p.Name())
			continue
		}
		out = append(out, p)
	}
	return out
}

// Lookup finds a provider by name.
func (t *ProviderTable) Lookup(name string) (ports.AnalysisProvider, bool) {
	if t == nil {
		return nil, false
	}
	for _, p := range t.providers {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}
