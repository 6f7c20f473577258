package extraction

import (
	"strings"

	"github.com/boobootoo2/medbilldozer-sub001/internal/core/domain"
)

const maxPromptChars = 6000

func factKeyList() string {
	keys := domain.FactKeys()
	names := make([]string, len(keys))
	for i, key := range keys {
		names[i] = string(key)
	}
	return strings.Join(names, ", ")
}

func buildExtractionPrompt(text string, docType domain.DocType) string {
	snippet := text
	if len(snippet) > maxPromptChars {
		snippet = snippet[:maxPromptChars]
	}

	return `You are a healthcare billing fact extractor reading a ` + docTypeLabel(docType) + `.
Return one strict JSON object with exactly two keys:
"facts": object with exactly these keys (use "" when a value is not present): ` + factKeyList() + `.
"line_items": array of objects with keys date (string), code (string), description (string), units (number), unit_price (number), total (number).
No markdown, no commentary, no extra keys.

Document:
` + snippet
}

// buildRetryPrompt is the degraded request used after an unrepairable
// response: schema only, shorter document, larger output allowance.
func buildRetryPrompt(text string, docType domain.DocType) string {
	snippet := text
	if len(snippet) > maxPromptChars/2 {
		snippet = snippet[:maxPromptChars/2]
	}

	return `Return only JSON: {"facts": {` + factKeyList() + `}, "line_items": []}.
Fill values from this ` + docTypeLabel(docType) + `; use "" for anything missing.

` + snippet
}

func docTypeLabel(t domain.DocType) string {
	switch t {
	case domain.DocTypeInsuranceEOB:
		return "health insurance explanation of benefits"
	case domain.DocTypePharmacyReceipt:
		return "pharmacy receipt"
	case domain.DocTypeDentalBill:
		return "dental bill"
	case domain.DocTypeFSAClaim:
		return "FSA reimbursement claim"
	case domain.DocTypeMedicalBill:
		return "medical bill"
	case domain.DocTypeUnknown:
		return "billing document"
	default:
		return "billing document"
	}
}
