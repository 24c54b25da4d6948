package fingerprint

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"
)

// ErrInvalidReceipt is returned when the submitted bytes cannot be
// fingerprinted at all (for example, an empty download).
var ErrInvalidReceipt = errors.New("invalid receipt: unreadable input")

// Signal names reported in Fingerprint.Degraded when a collaborator fails.
const (
	SignalText       = "text"
	SignalPerceptual = "perceptual"
)

// Fingerprint holds the duplicate-detection signals derived from one receipt.
// ExtractedText is the raw extractor output; comparisons normalize it with
// NormalizeText so the extraction runs only once per receipt.
type Fingerprint struct {
	ContentHash    string    `json:"content_hash"`
	ExtractedText  string    `json:"extracted_text"`
	PerceptualHash uint64    `json:"perceptual_hash"`
	HasPerceptual  bool      `json:"has_perceptual"`
	ReceivedAt     time.Time `json:"received_at"`

	// Degraded lists the signals that could not be computed. The remaining
	// signals still participate in duplicate checks.
	Degraded []string `json:"degraded,omitempty"`
}

// Record is a committed fingerprint with the Telegram user that first
// submitted the receipt.
type Record struct {
	ContentHash    string    `json:"content_hash"`
	ExtractedText  string    `json:"extracted_text"`
	PerceptualHash uint64    `json:"perceptual_hash"`
	HasPerceptual  bool      `json:"has_perceptual"`
	ReceivedAt     time.Time `json:"received_at"`
	UserID         int64     `json:"user_id"`
	UserName       string    `json:"user_name"`
}

// Record builds a store record attributing the fingerprint to a user.
func (f *Fingerprint) Record(userID int64, userName string) *Record {
	return &Record{
		ContentHash:    f.ContentHash,
		ExtractedText:  f.ExtractedText,
		PerceptualHash: f.PerceptualHash,
		HasPerceptual:  f.HasPerceptual,
		ReceivedAt:     f.ReceivedAt,
		UserID:         userID,
		UserName:       userName,
	}
}

// Method classifies a duplicate verdict.
type Method string

const (
	MethodUnique Method = "unique"
	MethodExact  Method = "sha256"
	MethodText   Method = "ocr"
	MethodVisual Method = "phash"
)

// Verdict is the result of a duplicate check. Match is set for every method
// except MethodUnique; Distance is set only for MethodVisual.
type Verdict struct {
	Method   Method
	Match    *Record
	Distance int
}

// IsDuplicate reports whether the verdict identifies a previously seen receipt.
func (v *Verdict) IsDuplicate() bool {
	return v.Method != MethodUnique
}

// Store is the collection of fingerprints of previously accepted receipts.
// The deduplicator only reads from it; appending is the caller's decision.
type Store interface {
	// LookupByContentHash returns the record with the given content hash,
	// or nil if none exists.
	LookupByContentHash(hash string) (*Record, error)

	// AllRecords returns every stored record.
	AllRecords() ([]*Record, error)

	// Append stores a record for future duplicate checks.
	Append(record *Record) error
}

// TextExtractor recovers text from a receipt (OCR for images, text layer for
// PDFs).
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, mimeType string) (string, error)
}

// PerceptualHasher summarizes an image's visual structure as a 64-bit hash.
type PerceptualHasher interface {
	Hash(data []byte) (uint64, error)
}

// NormalizeText folds extracted text for comparison: lowercase, letters and
// digits only. OCR of the same receipt re-exported or re-scanned differs in
// whitespace and punctuation far more often than in the characters that
// matter.
func NormalizeText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
