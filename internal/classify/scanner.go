package classify

import (
	"regexp"
	"strings"
)

// Scan produces cheap heuristic features used for extractor routing and for
// short-circuiting empty documents. Pure and deterministic.
type ScanResult struct {
	HasProcedureCodes bool
	HasDentalCodes    bool
	HasRxMarkers      bool
	CharCount         int
	LineCount         int
	Empty             bool
}

var (
	cptToken = regexp.MustCompile(`\b\d{5}\b`)
	cdtToken = regexp.MustCompile(`\bD\d{4}\b`)
	rxToken  = regexp.MustCompile(`(?i)(\brx\b|\brefill\b|\bNDC\b|\bpharmacy\b)`)
)

func Scan(text string) ScanResult {
	trimmed := strings.TrimSpace(text)
	return ScanResult{
		HasProcedureCodes: cptToken.MatchString(text),
		HasDentalCodes:    cdtToken.MatchString(text),
		HasRxMarkers:      rxToken.MatchString(text),
		CharCount:         len(text),
		LineCount:         strings.Count(text, "\n") + 1,
		Empty:             trimmed == "",
	}
}
