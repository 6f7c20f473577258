// Package httpadapter exposes batch submission and report retrieval over
// HTTP. Handlers translate between transport and the usecases; no analysis
// logic lives here.
package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/boobootoo2/medbilldozer-sub001/internal/core/domain"
	"github.com/boobootoo2/medbilldozer-sub001/internal/core/ports"
)

const maxUploadBytes = 64 << 20

type Router struct {
	ingestor  ports.BatchIngestor
	reports   ports.ReportService
	submitted func(documentCount int)
}

func NewRouter(ingestor ports.BatchIngestor, reports ports.ReportService) *Router {
	return &Router{
		ingestor: ingestor,
		reports:  reports,
	}
}

// OnBatchSubmitted registers an optional hook fired after each accepted
// submission, used for ingest metrics.
func (rt *Router) OnBatchSubmitted(fn func(documentCount int)) {
	rt.submitted = fn
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/batches", rt.submitBatch)
	mux.HandleFunc("/v1/batches/", rt.getBatchReport)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)
	return requestIDMiddleware(accessLogMiddleware(mux))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// submitBatch accepts a multipart form with one or more "files" parts.
// Part order is submission order and is preserved through the pipeline.
func (rt *Router) submitBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorMessage(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeErrorMessage(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}
	fileHeaders := r.MultipartForm.File["files"]
	if len(fileHeaders) == 0 {
		writeErrorMessage(w, r, http.StatusBadRequest, "multipart field 'files' is required")
		return
	}

	uploads := make([]ports.DocumentUpload, 0, len(fileHeaders))
	closers := make([]func() error, 0, len(fileHeaders))
	defer func() {
		for _, closeFn := range closers {
			_ = closeFn()
		}
	}()
	for _, header := range fileHeaders {
		file, err := header.Open()
		if err != nil {
			writeErrorMessage(w, r, http.StatusBadRequest, "unreadable upload: "+header.Filename)
			return
		}
		closers = append(closers, file.Close)
		uploads = append(uploads, ports.DocumentUpload{
			Filename: header.Filename,
			MimeType: header.Header.Get("Content-Type"),
			Body:     file,
		})
	}

	batch, docs, err := rt.ingestor.Submit(r.Context(), uploads)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if rt.submitted != nil {
		rt.submitted(len(docs))
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"batch":     batch,
		"documents": docs,
	})
}

func (rt *Router) getBatchReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorMessage(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/batches/")
	if id == "" || strings.Contains(id, "/") {
		writeErrorMessage(w, r, http.StatusBadRequest, "batch id is required")
		return
	}

	report, err := rt.reports.Report(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorMessage(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" || strings.Contains(id, "/") {
		writeErrorMessage(w, r, http.StatusBadRequest, "document id is required")
		return
	}

	doc, err := rt.reports.Document(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse{
		Document:          doc,
		FactSchemaVersion: domain.FactSchemaVersion,
	})
}

// documentResponse stamps the closed fact-key schema version onto the wire
// document, so consumers can detect a key-set change without diffing keys.
type documentResponse struct {
	*domain.Document
	FactSchemaVersion int `json:"fact_schema_version"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeErrorMessage(w, r, mapErrorToHTTPStatus(err), err.Error())
}

// Error bodies carry the request id so clients can quote it when reporting
// a failed submission.
func writeErrorMessage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"error":      msg,
		"request_id": RequestIDFromContext(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
