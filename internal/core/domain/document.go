package domain

import "time"

type DocumentStatus string

const (
	StatusReceived         DocumentStatus = "received"
	StatusAnalyzing        DocumentStatus = "analyzing"
	StatusAnalyzed         DocumentStatus = "analyzed"
	StatusExtractionFailed DocumentStatus = "extraction_failed"
)

// DocType is the closed set of billing document categories. Routing code
// switches exhaustively over these values; DocTypeUnknown is the explicit
// fallback variant, never a zero-value accident.
type DocType string

const (
	DocTypeInsuranceEOB    DocType = "insurance_eob"
	DocTypePharmacyReceipt DocType = "pharmacy_receipt"
	DocTypeDentalBill      DocType = "dental_bill"
	DocTypeFSAClaim        DocType = "fsa_claim"
	DocTypeMedicalBill     DocType = "medical_bill"
	DocTypeUnknown         DocType = "generic"
)

// DocTypePriority is the fixed tie-break order when two categories score
// equally: most specific document type first, generic last.
var DocTypePriority = []DocType{
	DocTypeInsuranceEOB,
	DocTypePharmacyReceipt,
	DocTypeDentalBill,
	DocTypeFSAClaim,
	DocTypeMedicalBill,
	DocTypeUnknown,
}

type Document struct {
	ID          string         `json:"id"`
	BatchID     string         `json:"batch_id"`
	Position    int            `json:"position"`
	Filename    string         `json:"filename"`
	MimeType    string         `json:"mime_type"`
	StoragePath string         `json:"storage_path"`
	DocType     DocType        `json:"doc_type"`
	Confidence  float64        `json:"confidence"`
	Facts       FactSet        `json:"facts"`
	LineItems   []LineItem     `json:"line_items,omitempty"`
	Issues      []Issue        `json:"issues"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// LineItem is one raw charge as extracted from a document, before
// normalization. Monetary values are dollars as reported by the source.
type LineItem struct {
	Date        string  `json:"date"`
	Code        string  `json:"code"`
	Description string  `json:"description"`
	Units       int     `json:"units"`
	UnitPrice   float64 `json:"unit_price"`
	Total       float64 `json:"total"`
}

type Classification struct {
	DocType    DocType         `json:"doc_type"`
	Confidence float64         `json:"confidence"`
	Scores     map[DocType]int `json:"scores,omitempty"`
}
