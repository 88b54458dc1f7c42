package cache

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"

	bolt "go.etcd.io/bbolt"

	goextract "github.com/soundprediction/go-extract"
)

var entriesBucket = []byte("annotated_documents")

// encodeEntryGob gob-encodes a CacheEntry for storage in a single BoltDB
// value, per SPEC_FULL.md's BoltStore wire format.
func encodeEntryGob(entry goextract.CacheEntry) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entry); err != nil {
		return nil, fmt.Errorf("encode cache entry: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeEntryGob(data []byte) (goextract.CacheEntry, error) {
	var entry goextract.CacheEntry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entry); err != nil {
		return goextract.CacheEntry{}, fmt.Errorf("decode cache entry: %w", err)
	}
	return entry, nil
}

// BoltStore is a single-file embedded results cache, suited to one
// process.
type BoltStore struct {
	DB *bolt.DB
}

// NewBoltStore opens (creating if necessary) a BoltDB file at path and
// ensures its bucket exists.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(entriesBucket)
		return err
	}); err != nil {
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &BoltStore{DB: db}, nil
}

// Get implements goextract.CacheStore.
func (b *BoltStore) Get(_ context.Context, documentID string) (goextract.CacheEntry, bool, error) {
	var entry goextract.CacheEntry
	found := false

	err := b.DB.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(entriesBucket)
		data := bucket.Get([]byte(documentID))
		if data == nil {
			return nil
		}
		decoded, err := decodeEntryGob(data)
		if err != nil {
			return err
		}
		entry = decoded
		found = true
		return nil
	})
	if err != nil {
		return goextract.CacheEntry{}, false, err
	}
	return entry, found, nil
}

// Put implements goextract.CacheStore.
func (b *BoltStore) Put(_ context.Context, documentID string, entry goextract.CacheEntry) error {
	data, err := encodeEntryGob(entry)
	if err != nil {
		return err
	}
	return b.DB.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(entriesBucket)
		if bucket == nil {
			return fmt.Errorf("bucket not found")
		}
		return bucket.Put([]byte(documentID), data)
	})
}

// Close releases the underlying BoltDB file handle.
func (b *BoltStore) Close() error {
	return b.DB.Close()
}
