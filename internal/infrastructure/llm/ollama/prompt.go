package ollama

import (
	"strings"

	"github.com/boobootoo2/medbilldozer-sub001/internal/core/domain"
)

const maxAnalysisChars = 6000

func buildAnalysisPrompt(text string, facts domain.FactSet) string {
	snippet := text
	if len(snippet) > maxAnalysisChars {
		snippet = snippet[:maxAnalysisChars]
	}

	var known strings.Builder
	for _, key := range domain.FactKeys() {
		if value := facts.Get(key); value != "" {
			known.WriteString(string(key))
			known.WriteString(": ")
			known.WriteString(value)
			known.WriteString("\n")
		}
	}

	return `You are a medical billing auditor. Review the document below for
billing problems: duplicate charges, upcoding, unbundling, amounts that do
not add up, and services inconsistent with the patient profile.

Return strict JSON only, shaped as:
{"issues": [{"type": "...", "summary": "...", "evidence": "...",
"recommended_action": "...", "estimated_savings": "...", "confidence": 0.0}]}
Use an empty issues array when the document looks clean. No markdown.

Known facts:
` + known.String() + `
Document:
` + snippet
}
