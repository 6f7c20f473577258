package ollama

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/boobootoo2/medbilldozer-sub001/internal/core/domain"
	"github.com/boobootoo2/medbilldozer-sub001/internal/extraction"
	"github.com/boobootoo2/medbilldozer-sub001/internal/normalize"
)

// Provider runs a billing-review prompt against one model and maps the
// findings onto the shared issue shape. It degrades rather than fails: a
// response that survives no repair stage yields zero issues, not an error.
type Provider struct {
	client       *Client
	model        string
	name         string
	healthWindow time.Duration
}

func NewProvider(client *Client, model, name string) *Provider {
	if strings.TrimSpace(name) == "" {
		name = "ollama/" + model
	}
	return &Provider{
		client:       client,
		model:        model,
		name:         name,
		healthWindow: 5 * time.Second,
	}
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.healthWindow)
	defer cancel()
	if err := p.client.ping(ctx); err != nil {
		slog.Warn("provider_health_check_failed", "provider", p.name, "error", err)
		return false
	}
	return true
}

func (p *Provider) AnalyzeDocument(ctx context.Context, rawText string, facts domain.FactSet) ([]domain.Issue, error) {
	raw, err := p.client.generate(ctx, p.model, buildAnalysisPrompt(rawText, facts), 2048)
	if err != nil {
		return nil, err
	}

	repaired, stage := extraction.Repair(raw, "issues")
	if stage == extraction.StageFailed {
		slog.Warn("provider_response_unusable", "provider", p.name)
		return nil, nil
	}

	var payload struct {
		Issues []struct {
			Type              string  `json:"type"`
			Summary           string  `json:"summary"`
			Evidence          string  `json:"evidence"`
			RecommendedAction string  `json:"recommended_action"`
			EstimatedSavings  any     `json:"estimated_savings"`
			Confidence        float64 `json:"confidence"`
		} `json:"issues"`
	}
	if err := json.Unmarshal(repaired, &payload); err != nil {
		// Repair produced a salvage array rather than the full object.
		var bare []json.RawMessage
		if json.Unmarshal(repaired, &bare) != nil {
			return nil, nil
		}
		wrapped := append([]byte(`{"issues":`), repaired...)
		wrapped = append(wrapped, '}')
		if json.Unmarshal(wrapped, &payload) != nil {
			return nil, nil
		}
	}

	issues := make([]domain.Issue, 0, len(payload.Issues))
	for _, finding := range payload.Issues {
		summary := strings.TrimSpace(finding.Summary)
		if summary == "" {
			continue
		}
		issues = append(issues, domain.Issue{
			Type:              issueType(finding.Type),
			Summary:           summary,
			Evidence:          strings.TrimSpace(finding.Evidence),
			RecommendedAction: strings.TrimSpace(finding.RecommendedAction),
			MaxSavingsCents:   savingsCents(finding.EstimatedSavings),
			Confidence:        confidence(finding.Confidence),
			Source:            domain.IssueSourceExternal,
		})
	}
	return issues, nil
}

func issueType(raw string) domain.IssueType {
	t := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), " ", "_")
	if t == "" {
		t = "external_finding"
	}
	return domain.IssueType(t)
}

func savingsCents(v any) int64 {
	switch s := v.(type) {
	case float64:
		return normalize.DollarsToCents(s)
	case string:
		cents, ok := normalize.Money(s)
		if !ok {
			return 0
		}
		return cents
	default:
		return 0
	}
}

func confidence(v float64) float64 {
	if v <= 0 || v > 1 {
		return domain.ConfidenceMedium
	}
	return v
}
