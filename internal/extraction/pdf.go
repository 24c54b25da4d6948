package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// PDFText extracts the native text layer of a PDF. Bank-generated PIX
// receipts almost always carry one, which makes this path free compared to a
// vision-model call.
type PDFText struct{}

// Extract concatenates the text of every page.
func (PDFText) Extract(_ context.Context, data []byte, _ string) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	var b strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			return "", fmt.Errorf("extracting text from page %d: %w", i, err)
		}
		b.WriteString(text)
	}
	return strings.TrimSpace(b.String()), nil
}

// Close is a no-op; documents are opened per call.
func (PDFText) Close() error {
	return nil
}
