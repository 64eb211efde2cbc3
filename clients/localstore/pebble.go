package localstore

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/pebble"
)

var keyPrefix = []byte("kv:")

// PebbleStore keeps values in an embedded pebble database
type PebbleStore struct {
	db *pebble.DB
}

// OpenPebble opens (or creates) the database at path
func OpenPebble(path string) (*PebbleStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open local state: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Get(key string, out any) (bool, error) {
	value, closer, err := s.db.Get(storageKey(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	defer closer.Close()

	// value is only valid until closer is closed
	data := make([]byte, len(value))
	copy(data, value)
	return true, decode(key, data, out)
}

func (s *PebbleStore) Set(key string, value any) error {
	data, err := encode(key, value)
	if err != nil {
		return err
	}
	if err := s.db.Set(storageKey(key), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *PebbleStore) Remove(key string) error {
	if err := s.db.Delete(storageKey(key), pebble.Sync); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// Keys lists stored keys starting with prefix
func (s *PebbleStore) Keys(prefix string) ([]string, error) {
	it, err := s.db.NewIter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate local state: %w", err)
	}
	defer it.Close()

	full := storageKey(prefix)
	var keys []string
	for ok := it.SeekGE(full); ok; ok = it.Next() {
		k := it.Key()
		if !bytes.HasPrefix(k, full) {
			break
		}
		keys = append(keys, string(k[len(keyPrefix):]))
	}
	return keys, nil
}

func (s *PebbleStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func storageKey(key string) []byte {
	return append(append([]byte{}, keyPrefix...), key...)
}
