package domain

// FactKey enumerates the closed fact schema (version 1). Every extractor,
// local or external, must emit exactly this key set; the empty string marks
// an explicitly absent value. Partial maps are never produced.
type FactKey string

const (
	FactPatientName   FactKey = "patient_name"
	FactPatientID     FactKey = "patient_id"
	FactPatientDOB    FactKey = "patient_dob"
	FactPatientSex    FactKey = "patient_sex"
	FactProviderName  FactKey = "provider_name"
	FactDateOfService FactKey = "date_of_service"
	FactTimeOfService FactKey = "time_of_service"
	FactProcedureCode FactKey = "procedure_code"
	FactBilledAmount  FactKey = "billed_amount"
	FactInsurancePaid FactKey = "insurance_paid"
	FactPatientOwed   FactKey = "patient_owed"
	FactClaimNumber   FactKey = "claim_number"
)

const FactSchemaVersion = 1

// FactKeys returns the schema keys in their canonical order.
func FactKeys() []FactKey {
	return []FactKey{
		FactPatientName,
		FactPatientID,
		FactPatientDOB,
		FactPatientSex,
		FactProviderName,
		FactDateOfService,
		FactTimeOfService,
		FactProcedureCode,
		FactBilledAmount,
		FactInsurancePaid,
		FactPatientOwed,
		FactClaimNumber,
	}
}

type FactSet map[FactKey]string

// NewFactSet returns a complete FactSet with every schema key absent.
func NewFactSet() FactSet {
	fs := make(FactSet, len(FactKeys()))
	for _, key := range FactKeys() {
		fs[key] = ""
	}
	return fs
}

// Complete returns a copy of fs that carries every schema key. Keys outside
// the schema are dropped; missing keys become absent.
func (fs FactSet) Complete() FactSet {
	out := NewFactSet()
	for _, key := range FactKeys() {
		if v, ok := fs[key]; ok {
			out[key] = v
		}
	}
	return out
}

func (fs FactSet) Get(key FactKey) string {
	return fs[key]
}

func (fs FactSet) Has(key FactKey) bool {
	return fs[key] != ""
}
