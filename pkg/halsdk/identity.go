package halsdk

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Identity is a single client identity record.
type Identity struct {
	SecretKey string `json:"secretKey"`
}

// Identities resolves client identifiers to shared secrets. Records are
// loaded lazily from a JSON file on the first lookup and served from memory
// afterwards; the file maps identifier -> {"secretKey": ...}. Many
// identifiers may share one store.
type Identities struct {
	location string

	mu      sync.Mutex
	loaded  bool
	loadErr error
	records map[string]Identity
}

// NewIdentities creates a credential store backed by the JSON file at
// location. The file is not touched until the first lookup.
func NewIdentities(location string) *Identities {
	return &Identities{location: location}
}

// SecretKey resolves an identifier to its shared secret. It returns
// ErrIdentityNotFound when the identifier is absent or has no secret, and a
// *ConfigError when the backing location cannot be read. The latter is a
// configuration fault and is never retried: the failed load is cached for
// the life of the store.
func (s *Identities) SecretKey(identifier string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		s.load()
	}
	if s.loadErr != nil {
		return "", s.loadErr
	}

	record, ok := s.records[identifier]
	if !ok || record.SecretKey == "" {
		return "", fmt.Errorf("%w: %s", ErrIdentityNotFound, identifier)
	}
	return record.SecretKey, nil
}

func (s *Identities) load() {
	s.loaded = true

	raw, err := os.ReadFile(s.location)
	if err != nil {
		s.loadErr = &ConfigError{Location: s.location, Err: err}
		return
	}

	var records map[string]Identity
	if err := json.Unmarshal(raw, &records); err != nil {
		s.loadErr = &ConfigError{Location: s.location, Err: err}
		return
	}
	s.records = records
}
