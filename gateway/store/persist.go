package store

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// Persist is a namespaced JSON key-value store on top of bbolt. Each
// namespace maps to one bucket; values are JSON-serialized.
type Persist struct {
	db *bolt.DB
}

// OpenPersist opens (or creates) the store file at path.
func OpenPersist(path string) (*Persist, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	return &Persist{db: db}, nil
}

// Close closes the underlying file.
func (p *Persist) Close() error {
	return p.db.Close()
}

// Get decodes the value at namespace/key into out. Returns false when the
// key is absent; a present-but-corrupt value is an error.
func (p *Persist) Get(namespace, key string, out any) (bool, error) {
	var raw []byte
	err := p.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(namespace))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode %s/%s: %w", namespace, key, err)
	}
	return true, nil
}

// Set JSON-encodes val and writes it under namespace/key.
func (p *Persist) Set(namespace, key string, val any) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", namespace, key, err)
	}
	return p.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(namespace))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), raw)
	})
}
