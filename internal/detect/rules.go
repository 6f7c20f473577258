package detect

// demographicConstraint restricts a procedure code to a patient sex and/or
// age range. An empty sex or a -1 bound means unconstrained.
type demographicConstraint struct {
	Sex    string
	MinAge int
	MaxAge int
	Label  string
}

// Known sex/age-restricted procedure codes. Not a medical ruleset; only the
// contradictions that are safe to flag mechanically.
var demographicConstraints = map[string]demographicConstraint{
	"59400": {Sex: "female", MinAge: -1, MaxAge: -1, Label: "routine obstetric care"},
	"58150": {Sex: "female", MinAge: -1, MaxAge: -1, Label: "total abdominal hysterectomy"},
	"76801": {Sex: "female", MinAge: -1, MaxAge: -1, Label: "obstetric ultrasound"},
	"55700": {Sex: "male", MinAge: -1, MaxAge: -1, Label: "prostate biopsy"},
	"55250": {Sex: "male", MinAge: -1, MaxAge: -1, Label: "vasectomy"},
	"84153": {Sex: "male", MinAge: -1, MaxAge: -1, Label: "PSA screening"},
	"90460": {MinAge: 0, MaxAge: 18, Label: "immunization administration through age 18"},
	"99381": {MinAge: 0, MaxAge: 1, Label: "infant preventive visit"},
	"99387": {MinAge: 65, MaxAge: -1, Label: "preventive visit, 65 and older"},
}
