package fingerprint

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const fingerprintBucket = "fingerprints"

// BoltStore implements the Store interface using BoltDB, keyed by content
// hash.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (or creates) a fingerprint store at the given path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(fingerprintBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// LookupByContentHash returns the record for a content hash, or nil if the
// hash has not been seen.
func (b *BoltStore) LookupByContentHash(hash string) (*Record, error) {
	var record *Record
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(fingerprintBucket))
		data := bucket.Get([]byte(hash))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return nil, fmt.Errorf("looking up fingerprint: %w", err)
	}
	return record, nil
}

// AllRecords returns every stored fingerprint record.
func (b *BoltStore) AllRecords() ([]*Record, error) {
	records := make([]*Record, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(fingerprintBucket))
		return bucket.ForEach(func(k, v []byte) error {
			var record Record
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("unmarshaling record: %w", err)
			}
			records = append(records, &record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Append stores a record under its content hash.
func (b *BoltStore) Append(record *Record) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(fingerprintBucket))
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshaling record: %w", err)
		}
		return bucket.Put([]byte(record.ContentHash), data)
	})
}

// Close closes the underlying database.
func (b *BoltStore) Close() error {
	return b.db.Close()
}
