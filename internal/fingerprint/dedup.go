package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultThreshold is the maximum Hamming distance between perceptual hashes
// for two images to be considered the same receipt.
const DefaultThreshold = 5

// Deduplicator decides whether a newly received receipt was already seen.
// It is stateless: every call works only on its inputs and the caller-owned
// store, and it never appends to the store itself.
type Deduplicator struct {
	extractor TextExtractor
	hasher    PerceptualHasher
	threshold int
	now       func() time.Time
}

// NewDeduplicator creates a Deduplicator. A threshold <= 0 selects
// DefaultThreshold.
func NewDeduplicator(extractor TextExtractor, hasher PerceptualHasher, threshold int) *Deduplicator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Deduplicator{
		extractor: extractor,
		hasher:    hasher,
		threshold: threshold,
		now:       time.Now,
	}
}

// Compute derives the duplicate-detection signals from raw receipt bytes.
// The content hash is always computed; text and perceptual signals degrade
// gracefully when their collaborators fail. Empty input is fatal.
func (d *Deduplicator) Compute(ctx context.Context, raw []byte, mimeType string) (*Fingerprint, error) {
	if len(raw) == 0 {
		return nil, ErrInvalidReceipt
	}

	sum := sha256.Sum256(raw)
	fp := &Fingerprint{
		ContentHash: hex.EncodeToString(sum[:]),
		ReceivedAt:  d.now(),
	}

	mime := normalizeMime(mimeType)

	text, err := d.extractor.Extract(ctx, raw, mime)
	if err != nil {
		slog.Warn("text extraction degraded",
			"content_hash", fp.ContentHash[:16],
			"mime_type", mime,
			"error", err,
		)
		fp.Degraded = append(fp.Degraded, SignalText)
	} else {
		fp.ExtractedText = text
	}

	if strings.HasPrefix(mime, "image/") {
		hash, err := d.hasher.Hash(raw)
		if err != nil {
			slog.Warn("perceptual hash degraded",
				"content_hash", fp.ContentHash[:16],
				"error", err,
			)
			fp.Degraded = append(fp.Degraded, SignalPerceptual)
		} else {
			fp.PerceptualHash = hash
			fp.HasPerceptual = true
		}
	}

	return fp, nil
}

// Check compares a fingerprint against the store: exact content hash first,
// then normalized text, then perceptual distance. When several records fall
// within the perceptual threshold the closest wins, ties going to the
// earliest ReceivedAt. Check never modifies the store.
func (d *Deduplicator) Check(fp *Fingerprint, store Store) (*Verdict, error) {
	match, err := store.LookupByContentHash(fp.ContentHash)
	if err != nil {
		return nil, fmt.Errorf("looking up content hash: %w", err)
	}
	if match != nil {
		return &Verdict{Method: MethodExact, Match: match}, nil
	}

	records, err := store.AllRecords()
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}

	if norm := NormalizeText(fp.ExtractedText); norm != "" {
		for _, r := range records {
			if NormalizeText(r.ExtractedText) == norm {
				return &Verdict{Method: MethodText, Match: r}, nil
			}
		}
	}

	if fp.HasPerceptual {
		var (
			best     *Record
			bestDist int
		)
		for _, r := range records {
			if !r.HasPerceptual {
				continue
			}
			dist := hammingDistance(fp.PerceptualHash, r.PerceptualHash)
			if dist > d.threshold {
				continue
			}
			if best == nil || dist < bestDist || (dist == bestDist && r.ReceivedAt.Before(best.ReceivedAt)) {
				best = r
				bestDist = dist
			}
		}
		if best != nil {
			return &Verdict{Method: MethodVisual, Match: best, Distance: bestDist}, nil
		}
	}

	return &Verdict{Method: MethodUnique}, nil
}

func normalizeMime(mimeType string) string {
	mime := strings.ToLower(strings.TrimSpace(mimeType))
	if mime == "" {
		mime = "image/jpeg"
	}
	return mime
}
