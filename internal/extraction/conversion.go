package extraction

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// renderPDF rasterizes the first page of a PDF to PNG. PIX receipts are
// single page, so one render is enough for OCR.
func renderPDF(pdfData []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// reencodePNG converts any supported image format to PNG.
func reencodePNG(imageData []byte, mimeType string) ([]byte, error) {
	var img image.Image
	var err error

	if isHEICData(imageData) || isHEICMime(mimeType) {
		// iPhone uploads; Go's standard image package has no HEIC support.
		img, err = heic.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC image: %w", err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("decoding image: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// toPNG normalizes any receipt input (PDF, JPEG, HEIC, ...) to PNG bytes
// ready to hand to a vision model.
func toPNG(data []byte, mimeType string) ([]byte, error) {
	mime := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case mime == "application/pdf":
		return renderPDF(data)
	case mime == "image/png" && !isHEICData(data):
		return data, nil
	default:
		return reencodePNG(data, mime)
	}
}

// isHEICData checks for the ftyp box brands used by HEIC/HEIF files.
func isHEICData(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}

func isHEICMime(mimeType string) bool {
	mime := strings.ToLower(strings.TrimSpace(mimeType))
	return strings.Contains(mime, "heic") || strings.Contains(mime, "heif")
}
