package kv

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

const statusBucket = "status"

// BoltBackend persists values in a single bbolt bucket
type BoltBackend struct {
	db *bbolt.DB
}

// OpenBolt opens or creates a bbolt-backed Store at path
func OpenBolt(path string) (*Store, error) {
	b, err := OpenBoltBackend(path)
	if err != nil {
		return nil, err
	}
	return New(b), nil
}

// OpenBoltBackend opens or creates the bbolt file at path
func OpenBoltBackend(path string) (*BoltBackend, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("kv path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open kv store: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(statusBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create status bucket: %w", err)
	}

	return &BoltBackend{db: db}, nil
}

func (b *BoltBackend) Get(key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(statusBucket))
		if bucket == nil {
			return fmt.Errorf("status bucket is missing")
		}
		raw := bucket.Get([]byte(key))
		if raw != nil {
			value = string(raw)
			found = true
		}
		return nil
	})
	return value, found, err
}

func (b *BoltBackend) Put(key, value string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(statusBucket))
		if bucket == nil {
			return fmt.Errorf("status bucket is missing")
		}
		return bucket.Put([]byte(key), []byte(value))
	})
}

func (b *BoltBackend) Delete(key string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(statusBucket))
		if bucket == nil {
			return fmt.Errorf("status bucket is missing")
		}
		return bucket.Delete([]byte(key))
	})
}

func (b *BoltBackend) Keys() ([]string, error) {
	var keys []string
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(statusBucket))
		if bucket == nil {
			return fmt.Errorf("status bucket is missing")
		}
		return bucket.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

// Close closes the bbolt file
func (b *BoltBackend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}
