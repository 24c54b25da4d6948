package fingerprint

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BoltStore", func() {
	var (
		tmpDir string
		dbPath string
		store  *BoltStore
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "fingerprints.db")
		var err error
		store, err = NewBoltStore(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if store != nil {
			store.Close()
		}
	})

	Describe("Append", func() {
		var (
			record *Record
			err    error
		)

		BeforeEach(func() {
			record = &Record{
				ContentHash:    "abc123",
				ExtractedText:  "valor5000",
				PerceptualHash: 0xdeadbeef,
				HasPerceptual:  true,
				ReceivedAt:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
				UserID:         42,
				UserName:       "Alice",
			}
		})

		JustBeforeEach(func() {
			err = store.Append(record)
		})

		When("appending succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should make the record findable by content hash", func() {
				found, lookupErr := store.LookupByContentHash("abc123")
				Expect(lookupErr).NotTo(HaveOccurred())
				Expect(found).NotTo(BeNil())
				Expect(found.UserID).To(Equal(int64(42)))
				Expect(found.UserName).To(Equal("Alice"))
				Expect(found.PerceptualHash).To(Equal(uint64(0xdeadbeef)))
			})
		})
	})

	Describe("LookupByContentHash", func() {
		When("the hash is unknown", func() {
			It("should return nil without an error", func() {
				found, err := store.LookupByContentHash("missing")
				Expect(err).NotTo(HaveOccurred())
				Expect(found).To(BeNil())
			})
		})
	})

	Describe("AllRecords", func() {
		When("the store is empty", func() {
			It("should return no records", func() {
				records, err := store.AllRecords()
				Expect(err).NotTo(HaveOccurred())
				Expect(records).To(BeEmpty())
			})
		})

		When("records have been appended", func() {
			BeforeEach(func() {
				Expect(store.Append(&Record{ContentHash: "h1", ExtractedText: "a", UserID: 1})).To(Succeed())
				Expect(store.Append(&Record{ContentHash: "h2", ExtractedText: "b", UserID: 2})).To(Succeed())
			})

			It("should return all of them", func() {
				records, err := store.AllRecords()
				Expect(err).NotTo(HaveOccurred())
				Expect(records).To(HaveLen(2))
			})
		})

		When("the store is reopened", func() {
			BeforeEach(func() {
				Expect(store.Append(&Record{ContentHash: "persisted", UserID: 5})).To(Succeed())
				Expect(store.Close()).To(Succeed())

				var err error
				store, err = NewBoltStore(dbPath)
				Expect(err).NotTo(HaveOccurred())
			})

			It("should keep the records", func() {
				found, err := store.LookupByContentHash("persisted")
				Expect(err).NotTo(HaveOccurred())
				Expect(found).NotTo(BeNil())
				Expect(found.UserID).To(Equal(int64(5)))
			})
		})
	})
})
