package normalize

import (
	"fmt"
	"strings"

	"github.com/boobootoo2/medbilldozer-sub001/internal/core/domain"
)

// Facts canonicalizes a raw FactSet into a complete one: every schema key
// present, every value normalized or absent. Idempotent and total.
func Facts(raw domain.FactSet) domain.FactSet {
	out := domain.NewFactSet()
	for _, key := range domain.FactKeys() {
		out[key] = factValue(key, raw[key])
	}
	return out
}

func factValue(key domain.FactKey, raw string) string {
	switch key {
	case domain.FactPatientDOB, domain.FactDateOfService:
		return Date(raw)
	case domain.FactTimeOfService:
		return Clock(raw)
	case domain.FactProcedureCode, domain.FactClaimNumber, domain.FactPatientID:
		return Code(raw)
	case domain.FactBilledAmount, domain.FactInsurancePaid, domain.FactPatientOwed:
		cents, ok := Money(raw)
		if !ok {
			return ""
		}
		return CentsToDollars(cents)
	case domain.FactPatientSex:
		return sex(raw)
	default:
		return Text(raw)
	}
}

func sex(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "m", "male":
		return "male"
	case "f", "female":
		return "female"
	default:
		return ""
	}
}

// PatientAgeAt returns the patient age in whole years at a canonical service
// date, or false when either date is absent.
func PatientAgeAt(facts domain.FactSet, serviceDate string) (int, bool) {
	dob := facts.Get(domain.FactPatientDOB)
	if dob == "" || serviceDate == "" {
		return 0, false
	}
	var dy, dm, dd, sy, sm, sd int
	if _, err := fmt.Sscanf(dob, "%d-%d-%d", &dy, &dm, &dd); err != nil {
		return 0, false
	}
	if _, err := fmt.Sscanf(serviceDate, "%d-%d-%d", &sy, &sm, &sd); err != nil {
		return 0, false
	}
	age := sy - dy
	if sm < dm || (sm == dm && sd < dd) {
		age--
	}
	if age < 0 {
		return 0, false
	}
	return age, true
}
