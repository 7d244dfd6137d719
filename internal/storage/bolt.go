package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const boltBucketState = "state" // key: storage key -> raw value

// Bolt is a Store backed by a single bbolt file.
type Bolt struct {
	db *bbolt.DB
}

var _ Store = (*Bolt)(nil)

// NewBolt opens (or creates) the state file at path.
func NewBolt(path string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open state file %s: %w", path, err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltBucketState))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init state bucket: %w", err)
	}

	return &Bolt{db: db}, nil
}

func (b *Bolt) Get(key string) (string, error) {
	var (
		value string
		found bool
	)

	err := b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(boltBucketState)).Get([]byte(key))
		if v != nil {
			value, found = string(v), true
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if !found {
		return "", ErrNotFound
	}
	return value, nil
}

func (b *Bolt) Set(key, value string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(boltBucketState)).Put([]byte(key), []byte(value))
	})
}

func (b *Bolt) Delete(key string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(boltBucketState)).Delete([]byte(key))
	})
}

func (b *Bolt) Close() error {
	return b.db.Close()
}
