// Package classify assigns a billing document category from raw text using
// a declarative regex signal table. Classification is pure and
// deterministic: the same text always yields the same result, and no input
// can make it fail.
package classify

import (
	_ "embed"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/boobootoo2/medbilldozer-sub001/internal/core/domain"
)

//go:embed signals.yaml
var signalsYAML []byte

type Classifier struct {
	signals map[domain.DocType][]*regexp.Regexp
}

// New compiles the embedded signal table. A broken table is a build defect,
// so compilation errors abort bootstrap.
func New() (*Classifier, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(signalsYAML, &raw); err != nil {
		return nil, fmt.Errorf("parse signal table: %w", err)
	}

	signals := make(map[domain.DocType][]*regexp.Regexp, len(raw))
	for category, patterns := range raw {
		docType := domain.DocType(category)
		if !knownDocType(docType) {
			return nil, fmt.Errorf("signal table references unknown category %q", category)
		}
		for _, pattern := range patterns {
			re, err := regexp.Compile(`(?i)` + pattern)
			if err != nil {
				return nil, fmt.Errorf("compile signal %q for %s: %w", pattern, category, err)
			}
			signals[docType] = append(signals[docType], re)
		}
	}
	return &Classifier{signals: signals}, nil
}

// Classify scores text against every category and picks the winner. A zero
// score across the board yields DocTypeUnknown with confidence 0. Confidence
// is the winning score over the number of signals for that category,
// clamped to [0,1].
func (c *Classifier) Classify(text string) domain.Classification {
	scores := make(map[domain.DocType]int, len(c.signals))
	for docType, patterns := range c.signals {
		for _, re := range patterns {
			if re.MatchString(text) {
				scores[docType]++
			}
		}
	}

	winner := domain.DocTypeUnknown
	best := 0
	// Priority order decides ties deterministically.
	for _, docType := range domain.DocTypePriority {
		if scores[docType] > best {
			winner = docType
			best = scores[docType]
		}
	}

	if best == 0 {
		return domain.Classification{DocType: domain.DocTypeUnknown, Confidence: 0, Scores: scores}
	}

	confidence := float64(best) / float64(len(c.signals[winner]))
	if confidence > 1 {
		confidence = 1
	}
	return domain.Classification{DocType: winner, Confidence: confidence, Scores: scores}
}

func knownDocType(t domain.DocType) bool {
	switch t {
	case domain.DocTypeInsuranceEOB, domain.DocTypePharmacyReceipt, domain.DocTypeDentalBill,
		domain.DocTypeFSAClaim, domain.DocTypeMedicalBill, domain.DocTypeUnknown:
		return true
	default:
		return false
	}
}
