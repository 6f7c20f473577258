package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/boobootoo2/medbilldozer-sub001/internal/core/domain"
	"github.com/boobootoo2/medbilldozer-sub001/internal/core/ports"
	"github.com/boobootoo2/medbilldozer-sub001/internal/normalize"
)

// Outcome records, per document, how extraction went: which repair stage
// produced parseable output, whether the degraded retry was needed, and the
// failure reason when everything was lost.
type Outcome struct {
	Stage   RepairStage
	Retried bool
	Failed  bool
	Reason  string
}

// Result is a complete extraction: the FactSet always carries every schema
// key, even when the collaborator returned garbage.
type Result struct {
	Facts     domain.FactSet
	LineItems []domain.LineItem
}

const (
	defaultOutputBudget = 1024
	retryOutputBudget   = 2048
)

// Orchestrator routes a classified document to its extraction collaborator
// and guarantees a complete FactSet back. It never returns an error: total
// failure degrades to an all-absent FactSet with the reason in the Outcome.
type Orchestrator struct {
	runners  map[domain.DocType]ports.StructuredPromptRunner
	fallback ports.StructuredPromptRunner
	timeout  time.Duration
}

func NewOrchestrator(
	runners map[domain.DocType]ports.StructuredPromptRunner,
	fallback ports.StructuredPromptRunner,
	timeout time.Duration,
) *Orchestrator {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Orchestrator{runners: runners, fallback: fallback, timeout: timeout}
}

func (o *Orchestrator) runner(docType domain.DocType) ports.StructuredPromptRunner {
	if r, ok := o.runners[docType]; ok && r != nil {
		return r
	}
	return o.fallback
}

// Extract implements the contract extract(document_text, doc_type) ->
// FactSet. One attempt with the full prompt, a repair cascade over the
// response, then a single degraded retry before giving up.
func (o *Orchestrator) Extract(ctx context.Context, text string, docType domain.DocType) (Result, Outcome) {
	runner := o.runner(docType)
	if runner == nil {
		return allAbsent(), Outcome{Stage: StageFailed, Failed: true, Reason: "no extractor registered"}
	}

	result, outcome, ok := o.attempt(ctx, runner, buildExtractionPrompt(text, docType), defaultOutputBudget)
	if ok {
		return result, outcome
	}
	firstReason := outcome.Reason

	result, outcome, ok = o.attempt(ctx, runner, buildRetryPrompt(text, docType), retryOutputBudget)
	outcome.Retried = true
	if ok {
		return result, outcome
	}

	slog.Warn("extraction_failed", "doc_type", docType, "first_reason", firstReason, "retry_reason", outcome.Reason)
	return allAbsent(), Outcome{
		Stage:   StageFailed,
		Retried: true,
		Failed:  true,
		Reason:  fmt.Sprintf("attempt: %s; retry: %s", firstReason, outcome.Reason),
	}
}

func (o *Orchestrator) attempt(
	ctx context.Context,
	runner ports.StructuredPromptRunner,
	prompt string,
	outputBudget int,
) (Result, Outcome, bool) {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	raw, err := runner.RunStructuredPrompt(callCtx, prompt, outputBudget)
	if err != nil {
		return Result{}, Outcome{Stage: StageFailed, Reason: fmt.Sprintf("collaborator: %v", err)}, false
	}

	data, stage := Repair(raw, "line_items")
	if stage == StageFailed {
		return Result{}, Outcome{Stage: StageFailed, Reason: "unrepairable structured output"}, false
	}

	result, ok := decodePayload(data)
	if !ok {
		return Result{}, Outcome{Stage: stage, Reason: "repaired output had unusable shape"}, false
	}
	return result, Outcome{Stage: stage}, true
}

func allAbsent() Result {
	return Result{Facts: domain.NewFactSet()}
}

// decodePayload tolerates the shape drift LLMs produce: facts values that
// are numbers, line item numerics as strings, or a flat object with fact
// keys at the top level.
func decodePayload(data []byte) (Result, bool) {
	var root map[string]any
	if err := json.Unmarshal(data, &root); err != nil {
		return Result{}, false
	}

	rawFacts, _ := root["facts"].(map[string]any)
	if rawFacts == nil {
		rawFacts = root
	}
	facts := domain.FactSet{}
	for _, key := range domain.FactKeys() {
		facts[key] = asString(rawFacts[string(key)])
	}

	var items []domain.LineItem
	if rawItems, ok := root["line_items"].([]any); ok {
		for _, entry := range rawItems {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			items = append(items, domain.LineItem{
				Date:        asString(m["date"]),
				Code:        asString(m["code"]),
				Description: asString(m["description"]),
				Units:       int(asFloat(m["units"])),
				UnitPrice:   asFloat(m["unit_price"]),
				Total:       asFloat(m["total"]),
			})
		}
	}

	return Result{Facts: normalize.Facts(facts), LineItems: items}, true
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
