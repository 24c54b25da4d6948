package extraction

import (
	"context"
	"log/slog"
)

// minNativeTextLen is the shortest PDF text layer worth trusting. A receipt
// shorter than this is almost certainly a scanned image wrapped in a PDF.
const minNativeTextLen = 50

// Hybrid tries the cheap path first: native PDF text when the input is a
// PDF, falling back to the OCR extractor when the text layer is missing or
// too short. Images always go to OCR.
type Hybrid struct {
	pdf Extractor
	ocr Extractor
}

// NewHybrid combines a PDF text extractor with an OCR extractor.
func NewHybrid(pdf, ocr Extractor) *Hybrid {
	return &Hybrid{pdf: pdf, ocr: ocr}
}

// Extract routes by MIME type.
func (h *Hybrid) Extract(ctx context.Context, data []byte, mimeType string) (string, error) {
	if mimeType == "application/pdf" {
		text, err := h.pdf.Extract(ctx, data, mimeType)
		if err == nil && len(text) >= minNativeTextLen {
			return text, nil
		}
		if err != nil {
			slog.Warn("native PDF text extraction failed, falling back to OCR", "error", err)
		} else {
			slog.Debug("PDF text layer too short, falling back to OCR", "length", len(text))
		}
	}
	return h.ocr.Extract(ctx, data, mimeType)
}

// Close closes both underlying extractors, reporting the first error.
func (h *Hybrid) Close() error {
	pdfErr := h.pdf.Close()
	if err := h.ocr.Close(); err != nil {
		return err
	}
	return pdfErr
}
