package receipt

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/joaovictorb912-source/fluxo-cash-bot-only/internal/backend"
	"github.com/joaovictorb912-source/fluxo-cash-bot-only/internal/fingerprint"
	"github.com/joaovictorb912-source/fluxo-cash-bot-only/internal/ledger"
	"github.com/joaovictorb912-source/fluxo-cash-bot-only/internal/pix"
)

// IDGenerator generates unique IDs for receipts
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates IDs using UnixNano timestamp
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Deduper is the duplicate-detection contract consumed by the service.
type Deduper interface {
	Compute(ctx context.Context, raw []byte, mimeType string) (*fingerprint.Fingerprint, error)
	Check(fp *fingerprint.Fingerprint, store fingerprint.Store) (*fingerprint.Verdict, error)
}

// Submission is one receipt file sent by a Telegram user.
type Submission struct {
	Filename    string
	Data        []byte
	ContentType string
	UserID      int64
	UserName    string
}

// Result is the outcome of processing one submission. When the verdict
// flags a duplicate, nothing was committed and Receipt is nil. Otherwise
// Processed/Failed carry the backend's per-file verdicts.
type Result struct {
	Verdict   *fingerprint.Verdict
	Receipt   *Receipt
	Processed []backend.ProcessedFile
	Failed    []backend.FailedFile
}

// Accepted reports whether the backend credited at least one file.
func (r *Result) Accepted() bool {
	return !r.Verdict.IsDuplicate() && len(r.Processed) > 0
}

// Service processes receipt submissions: fingerprinting, duplicate
// rejection, PIX data extraction, backend forwarding and bookkeeping.
type Service struct {
	dedup       Deduper
	prints      fingerprint.Store
	db          DB
	storage     Storage
	uploader    backend.Uploader
	ledger      ledger.Ledger
	idGenerator IDGenerator
	timeSource  TimeSource
	locks       keyedMutex
}

// NewService creates a Service with default ID generator and time source.
// ledger may be nil when bookkeeping is not configured.
func NewService(dedup Deduper, prints fingerprint.Store, db DB, storage Storage, uploader backend.Uploader, ldg ledger.Ledger) *Service {
	return NewServiceWithDeps(dedup, prints, db, storage, uploader, ldg, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a Service with custom dependencies for testing.
func NewServiceWithDeps(dedup Deduper, prints fingerprint.Store, db DB, storage Storage, uploader backend.Uploader, ldg ledger.Ledger, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		dedup:       dedup,
		prints:      prints,
		db:          db,
		storage:     storage,
		uploader:    uploader,
		ledger:      ldg,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// Process runs one submission through the full pipeline. The check-then-append
// window on the fingerprint store is serialized per content hash, so the same
// receipt arriving twice concurrently cannot both pass as unique.
func (s *Service) Process(ctx context.Context, sub Submission) (*Result, error) {
	fp, err := s.dedup.Compute(ctx, sub.Data, sub.ContentType)
	if err != nil {
		return nil, fmt.Errorf("computing fingerprint: %w", err)
	}

	unlock := s.locks.lock(fp.ContentHash)
	defer unlock()

	verdict, err := s.dedup.Check(fp, s.prints)
	if err != nil {
		return nil, fmt.Errorf("checking duplicate: %w", err)
	}
	if verdict.IsDuplicate() {
		slog.Info("duplicate receipt rejected",
			"method", verdict.Method,
			"user_id", sub.UserID,
			"original_user_id", verdict.Match.UserID,
		)
		return &Result{Verdict: verdict}, nil
	}

	// The fingerprint carries the raw extractor output, so the statement
	// parse reuses it instead of paying for a second extraction.
	stmt := pix.ParseStatement(fp.ExtractedText)

	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(sub.Filename)), sub.Data)
	if err != nil {
		return nil, fmt.Errorf("archiving file: %w", err)
	}

	uploadResult, err := s.uploader.Upload(ctx, backend.UploadRequest{
		Filename: sub.Filename,
		Data:     sub.Data,
		UserID:   sub.UserID,
		UserName: sub.UserName,
		SHA256:   fp.ContentHash,
		OCRHash:  textHash(fp.ExtractedText),
		PHash:    perceptualHashString(fp),
	})
	if err != nil {
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("forwarding to backend: %w", err)
	}

	if len(uploadResult.Processed) == 0 {
		// Rejected by the backend: no fingerprint committed, so a corrected
		// re-send of the same file is not flagged as duplicate.
		s.storage.Delete(savedPath)
		return &Result{Verdict: verdict, Failed: uploadResult.Failed}, nil
	}

	amountCents := stmt.AmountCents
	if v := creditedCents(uploadResult.Processed); v > 0 {
		amountCents = v
	}

	rcpt := &Receipt{
		ID:          id,
		UserID:      sub.UserID,
		UserName:    sub.UserName,
		AmountCents: amountCents,
		SenderKey:   pix.NormalizeKey(stmt.SenderKey),
		ReceiverKey: pix.NormalizeKey(stmt.ReceiverKey),
		Beneficiary: stmt.Beneficiary,
		EndToEnd:    stmt.EndToEnd,
		Date:        stmt.Date,
		ContentHash: fp.ContentHash,
		Filename:    savedPath,
		ContentType: sub.ContentType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.SaveReceipt(rcpt); err != nil {
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("saving receipt: %w", err)
	}

	if err := s.prints.Append(fp.Record(sub.UserID, sub.UserName)); err != nil {
		return nil, fmt.Errorf("recording fingerprint: %w", err)
	}

	if s.ledger != nil {
		entry := ledger.Entry{
			Date:        rcpt.Date,
			UserID:      rcpt.UserID,
			UserName:    rcpt.UserName,
			AmountCents: rcpt.AmountCents,
			SenderKey:   rcpt.SenderKey,
			ReceiverKey: rcpt.ReceiverKey,
			EndToEnd:    rcpt.EndToEnd,
			ContentHash: rcpt.ContentHash,
		}
		if err := s.ledger.Append(ctx, entry); err != nil {
			slog.Warn("ledger append failed", "receipt_id", rcpt.ID, "error", err)
		}
	}

	return &Result{
		Verdict:   verdict,
		Receipt:   rcpt,
		Processed: uploadResult.Processed,
		Failed:    uploadResult.Failed,
	}, nil
}

// GetReceipt retrieves a receipt by ID.
func (s *Service) GetReceipt(id string) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return receipt, nil
}

// ListReceipts returns all receipts.
func (s *Service) ListReceipts() ([]*Receipt, error) {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	return receipts, nil
}

func creditedCents(processed []backend.ProcessedFile) int64 {
	var total float64
	for _, p := range processed {
		total += p.Value
	}
	return int64(math.Round(total * 100))
}

func textHash(text string) string {
	norm := fingerprint.NormalizeText(text)
	if norm == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:])
}

func perceptualHashString(fp *fingerprint.Fingerprint) string {
	if !fp.HasPerceptual {
		return ""
	}
	return fmt.Sprintf("%016x", fp.PerceptualHash)
}

var (
	filenameSpecials  = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	filenameSpaceRuns = regexp.MustCompile(`\s+`)
)

// sanitizeFilename cleans up a filename by removing special characters and
// truncating length; phone-generated names get absurdly long.
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	base = filenameSpecials.ReplaceAllString(base, "")
	base = filenameSpaceRuns.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	const maxLen = 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}
	if base == "" {
		base = "comprovante"
	}

	return base + ext
}

// keyedMutex serializes critical sections per key. Entries are removed once
// the last holder releases.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*lockEntry)
	}
	entry := k.locks[key]
	if entry == nil {
		entry = &lockEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
