// Package extractor routes text extraction by MIME type.
package extractor

import (
	"context"
	"strings"

	"github.com/boobootoo2/medbilldozer-sub001/internal/core/domain"
	"github.com/boobootoo2/medbilldozer-sub001/internal/core/ports"
)

// Router picks an extractor per document MIME type, defaulting to the
// plain-text extractor for everything it does not recognize.
type Router struct {
	plain ports.TextExtractor
	pdf   ports.TextExtractor
}

func NewRouter(plain, pdf ports.TextExtractor) *Router {
	return &Router{plain: plain, pdf: pdf}
}

func (r *Router) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	mime := strings.ToLower(strings.TrimSpace(doc.MimeType))
	if idx := strings.Index(mime, ";"); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}
	if mime == "application/pdf" && r.pdf != nil {
		return r.pdf.Extract(ctx, doc)
	}
	return r.plain.Extract(ctx, doc)
}
