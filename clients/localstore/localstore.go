// Package localstore persists small pieces of client state (credentials, last
// location, UI preferences) as JSON values under string keys.
package localstore

import (
	"encoding/json"
	"fmt"

	"github.com/samber/mo"
)

const (
	KeyCredentials             = "auth.credentials"
	KeyLastLocation            = "ui.last_location"
	KeySidebar                 = "ui.sidebar"
	KeyVoicePreferences        = "prefs.voice"
	KeyNotificationPreferences = "prefs.notifications"
)

// Store is an opaque key/value store with JSON (de)serialization
type Store interface {
	// Get decodes the value at key into out and reports whether it existed
	Get(key string, out any) (bool, error)
	Set(key string, value any) error
	Remove(key string) error
	Close() error
}

// Lookup reads a typed value, returning None when the key is absent
func Lookup[T any](s Store, key string) (mo.Option[T], error) {
	var value T
	found, err := s.Get(key, &value)
	if err != nil {
		return mo.None[T](), err
	}
	if !found {
		return mo.None[T](), nil
	}
	return mo.Some(value), nil
}

func encode(key string, value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return data, nil
}

func decode(key string, data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}
