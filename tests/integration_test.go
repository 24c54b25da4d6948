package tests

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/joaovictorb912-source/fluxo-cash-bot-only/internal/backend"
	"github.com/joaovictorb912-source/fluxo-cash-bot-only/internal/fingerprint"
	"github.com/joaovictorb912-source/fluxo-cash-bot-only/internal/receipt"
)

func TestIntegration(t *testing.T) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	RegisterFailHandler(Fail)
	RunSpecs(t, "Integration Suite")
}

// MockExtractor stands in for the OCR model; the text is mutable so each
// submission can carry different content.
type MockExtractor struct {
	text string
}

func (m *MockExtractor) Extract(ctx context.Context, data []byte, mimeType string) (string, error) {
	return m.text, nil
}

// MockHasher stands in for image decoding; the hash is mutable per submission.
type MockHasher struct {
	hash uint64
}

func (m *MockHasher) Hash(data []byte) (uint64, error) {
	return m.hash, nil
}

var _ = Describe("Integration", func() {
	var (
		tempDir   string
		prints    *fingerprint.BoltStore
		db        receipt.DB
		store     receipt.Storage
		extractor *MockExtractor
		hasher    *MockHasher
		dedup     *fingerprint.Deduplicator
		ghServer  *ghttp.Server
		service   *receipt.Service
		err       error
	)

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()

		prints, err = fingerprint.NewBoltStore(filepath.Join(tempDir, "fingerprints.db"))
		Expect(err).NotTo(HaveOccurred())

		db, err = receipt.NewBoltDB(filepath.Join(tempDir, "receipts.db"))
		Expect(err).NotTo(HaveOccurred())

		store, err = receipt.NewLocalStorage(filepath.Join(tempDir, "comprovantes"))
		Expect(err).NotTo(HaveOccurred())

		extractor = &MockExtractor{text: "Valor: R$ 100,00\nE11111111111111111111111111111111"}
		hasher = &MockHasher{hash: 0xf0f0f0f0f0f0f0f0}
		dedup = fingerprint.NewDeduplicator(extractor, hasher, 5)

		ghServer = ghttp.NewServer()

		service = receipt.NewService(
			dedup, prints, db, store,
			backend.NewClient(ghServer.URL()), nil,
		)
	})

	AfterEach(func() {
		if ghServer != nil {
			ghServer.Close()
		}
		if db != nil {
			db.Close()
		}
		if prints != nil {
			prints.Close()
		}
	})

	acceptNext := func() {
		ghServer.AppendHandlers(ghttp.CombineHandlers(
			ghttp.VerifyRequest("POST", "/telegram/upload"),
			ghttp.RespondWithJSONEncoded(http.StatusOK, backend.UploadResult{
				Processed: []backend.ProcessedFile{{Value: 100.00}},
			}),
		))
	}

	rejectNext := func(message string) {
		ghServer.AppendHandlers(ghttp.CombineHandlers(
			ghttp.VerifyRequest("POST", "/telegram/upload"),
			ghttp.RespondWithJSONEncoded(http.StatusOK, backend.UploadResult{
				Failed: []backend.FailedFile{{Error: message}},
			}),
		))
	}

	submit := func(data []byte) *receipt.Result {
		result, procErr := service.Process(context.Background(), receipt.Submission{
			Filename:    "comprovante.jpg",
			Data:        data,
			ContentType: "image/jpeg",
			UserID:      42,
			UserName:    "Alice",
		})
		Expect(procErr).NotTo(HaveOccurred())
		return result
	}

	It("accepts a new receipt and commits it end to end", func() {
		acceptNext()

		result := submit([]byte("receipt one"))

		Expect(result.Accepted()).To(BeTrue())
		Expect(result.Verdict.Method).To(Equal(fingerprint.MethodUnique))
		Expect(result.Receipt.AmountCents).To(Equal(int64(10000)))

		By("archiving the file")
		_, err = store.Get(result.Receipt.Filename)
		Expect(err).NotTo(HaveOccurred())

		By("persisting the receipt record")
		saved, getErr := db.GetReceipt(result.Receipt.ID)
		Expect(getErr).NotTo(HaveOccurred())
		Expect(saved.UserID).To(Equal(int64(42)))

		By("committing the fingerprint")
		record, lookupErr := prints.LookupByContentHash(result.Receipt.ContentHash)
		Expect(lookupErr).NotTo(HaveOccurred())
		Expect(record).NotTo(BeNil())
		Expect(record.UserName).To(Equal("Alice"))
	})

	It("rejects the same bytes as an exact duplicate", func() {
		acceptNext()
		submit([]byte("receipt one"))

		result := submit([]byte("receipt one"))

		Expect(result.Verdict.Method).To(Equal(fingerprint.MethodExact))
		Expect(result.Verdict.Match.UserName).To(Equal("Alice"))
		Expect(result.Receipt).To(BeNil())
		Expect(ghServer.ReceivedRequests()).To(HaveLen(1))
	})

	It("rejects a re-export with the same text as a text duplicate", func() {
		acceptNext()
		submit([]byte("receipt one"))

		// Different bytes, far-off perceptual hash, same statement text.
		hasher.hash = 0x0f0f0f0f0f0f0f0f
		result := submit([]byte("receipt one, re-exported"))

		Expect(result.Verdict.Method).To(Equal(fingerprint.MethodText))
		Expect(result.Receipt).To(BeNil())
	})

	It("rejects a re-scan that only looks the same as a visual duplicate", func() {
		acceptNext()
		submit([]byte("receipt one"))

		// Different bytes and text, perceptual hash two bits away.
		extractor.text = "completely different ocr output"
		hasher.hash = 0xf0f0f0f0f0f0f0f3
		result := submit([]byte("receipt one, re-scanned"))

		Expect(result.Verdict.Method).To(Equal(fingerprint.MethodVisual))
		Expect(result.Verdict.Distance).To(Equal(2))
		Expect(result.Receipt).To(BeNil())
	})

	It("lets a backend-rejected receipt be re-sent", func() {
		rejectNext("cliente nao encontrado")
		first := submit([]byte("receipt one"))

		Expect(first.Accepted()).To(BeFalse())
		Expect(first.Failed).To(HaveLen(1))

		By("committing no fingerprint on rejection")
		records, listErr := prints.AllRecords()
		Expect(listErr).NotTo(HaveOccurred())
		Expect(records).To(BeEmpty())

		By("accepting the identical re-send once the client is registered")
		acceptNext()
		second := submit([]byte("receipt one"))
		Expect(second.Accepted()).To(BeTrue())
	})
})
