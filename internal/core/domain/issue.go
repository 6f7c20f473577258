package domain

import "strconv"

type IssueType string

const (
	IssueDuplicateCharge     IssueType = "duplicate_charge"
	IssueArithmeticMismatch  IssueType = "arithmetic_mismatch"
	IssueDemographicConflict IssueType = "demographic_conflict"
	IssueFingerprintConflict IssueType = "fingerprint_conflict"
)

// IssueSource distinguishes the deterministic rule engine from external
// analysis collaborators. The Issue shape is identical either way; callers
// never branch on origin except for display.
type IssueSource string

const (
	IssueSourceDeterministic IssueSource = "deterministic"
	IssueSourceExternal      IssueSource = "external"
)

const (
	ConfidenceHigh   = 0.9
	ConfidenceMedium = 0.6
)

type Issue struct {
	Type              IssueType   `json:"type"`
	Summary           string      `json:"summary"`
	Evidence          string      `json:"evidence,omitempty"`
	Code              string      `json:"code,omitempty"`
	Date              string      `json:"date,omitempty"`
	RecommendedAction string      `json:"recommended_action,omitempty"`
	MaxSavingsCents   int64       `json:"max_savings_cents"`
	Confidence        float64     `json:"confidence"`
	Source            IssueSource `json:"source"`
}

// Key identifies an issue for merge purposes: issues equal on
// (type, code, date, savings) are the same finding reported twice.
func (i Issue) Key() string {
	return string(i.Type) + "|" + i.Code + "|" + i.Date + "|" + strconv.FormatInt(i.MaxSavingsCents, 10)
}
