// Package tokenstore keeps the session bearer token in a durable slot that
// survives process restarts.
//
// Stores never report failures to callers. If the medium is unavailable a
// Read returns absent and a Write is dropped, so the session degrades to
// anonymous; the failure is logged at warn level.
package tokenstore

import (
	"fmt"
	"sync"

	"github.com/zeebo/blake3"
)

// TokenKey is the fixed key the token is stored under.
const TokenKey = "token"

// Store is a single durable slot holding the bearer token.
type Store interface {
	// Write replaces the stored token.
	Write(token string)
	// Read returns the stored token and whether one is present.
	Read() (string, bool)
	// Clear removes the stored token. Clearing an empty slot is a no-op.
	Clear()
}

// MemoryStore is a Store that lives only as long as the process. It backs
// tests and the storage.ephemeral setting.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Write replaces the stored token.
func (m *MemoryStore) Write(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
}

// Read returns the stored token.
func (m *MemoryStore) Read() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, m.token != ""
}

// Clear removes the stored token.
func (m *MemoryStore) Clear() {
	m.Write("")
}

// Fingerprint returns a short blake3 digest of token for log correlation.
// The raw token never appears in logs.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	hasher := blake3.New()
	_, _ = hasher.Write([]byte(token)) //nolint:errcheck // hash writes never fail
	return fmt.Sprintf("%x", hasher.Sum(nil))[:12]
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*FileStore)(nil)
)
