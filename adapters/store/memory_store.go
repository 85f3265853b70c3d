package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/team-hex/hexcert/core"
	"github.com/team-hex/hexcert/internal/eth"
	"github.com/team-hex/hexcert/ports"
)

// MemoryRevocationStore is an in-memory implementation of the
// RevocationStore interface.
type MemoryRevocationStore struct {
	invalidatedTokens map[string]time.Time
	mu                sync.RWMutex
}

// NewMemoryRevocationStore creates a new in-memory revocation store
func NewMemoryRevocationStore() ports.RevocationStore {
	return &MemoryRevocationStore{
		invalidatedTokens: make(map[string]time.Time),
	}
}

// InvalidateToken marks a token as invalidated
func (s *MemoryRevocationStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiryTime := time.Now().Add(expiry)
	s.invalidatedTokens[tokenID] = expiryTime

	// Drop the record once the underlying token itself has expired.
	go func() {
		time.Sleep(expiry)

		s.mu.Lock()
		defer s.mu.Unlock()

		if storedExpiry, exists := s.invalidatedTokens[tokenID]; exists && !storedExpiry.After(expiryTime) {
			delete(s.invalidatedTokens, tokenID)
		}
	}()

	return nil
}

// IsTokenInvalidated checks if a token is invalidated
func (s *MemoryRevocationStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiryTime, exists := s.invalidatedTokens[tokenID]
	if !exists {
		return false, nil
	}

	if time.Now().After(expiryTime) {
		return false, nil
	}

	return true, nil
}

type nonceEntry struct {
	address   string
	expiresAt time.Time
}

// MemoryNonceStore is an in-memory implementation of the NonceStore
// interface. Consume is atomic under the store lock.
type MemoryNonceStore struct {
	nonces map[string]nonceEntry
	mu     sync.Mutex
}

// NewMemoryNonceStore creates a new in-memory nonce store
func NewMemoryNonceStore() ports.NonceStore {
	return &MemoryNonceStore{
		nonces: make(map[string]nonceEntry),
	}
}

// Put binds a challenge hash to the claimed address for the given TTL
func (s *MemoryNonceStore) Put(ctx context.Context, hash, address string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nonces[hash] = nonceEntry{
		address:   eth.NormalizeAddress(address),
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Consume removes the challenge hash and returns its bound address. A hash
// can be consumed at most once.
func (s *MemoryNonceStore) Consume(ctx context.Context, hash string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.nonces[hash]
	if !exists {
		return "", core.ErrNonceConsumed
	}
	delete(s.nonces, hash)

	if time.Now().After(entry.expiresAt) {
		return "", core.ErrNonceConsumed
	}
	return entry.address, nil
}

// MemoryUserStore is an in-memory implementation of the UserStore interface.
type MemoryUserStore struct {
	users map[string]*core.User
	mu    sync.RWMutex
}

// NewMemoryUserStore creates a new in-memory user store
func NewMemoryUserStore() ports.UserStore {
	return &MemoryUserStore{
		users: make(map[string]*core.User),
	}
}

// FindOrCreate returns the user for the address, creating it if absent
func (s *MemoryUserStore) FindOrCreate(ctx context.Context, address string) (*core.User, error) {
	key := eth.NormalizeAddress(address)

	s.mu.Lock()
	defer s.mu.Unlock()

	if user, exists := s.users[key]; exists {
		record := *user
		return &record, nil
	}

	user := &core.User{
		ID:        uuid.New().String(),
		Address:   key,
		CreatedAt: time.Now(),
	}
	s.users[key] = user

	record := *user
	return &record, nil
}

// FindByAddress returns the user for the address
func (s *MemoryUserStore) FindByAddress(ctx context.Context, address string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[eth.NormalizeAddress(address)]
	if !exists {
		return nil, core.ErrUserNotFound
	}

	record := *user
	return &record, nil
}

// MemoryStateStore is an in-memory implementation of the StateStore
// interface, holding the latest snapshot only.
type MemoryStateStore struct {
	snapshot []byte
	mu       sync.RWMutex
}

// NewMemoryStateStore creates a new in-memory state store
func NewMemoryStateStore() ports.StateStore {
	return &MemoryStateStore{}
}

// Save stores the latest snapshot
func (s *MemoryStateStore) Save(ctx context.Context, snapshot []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot = make([]byte, len(snapshot))
	copy(s.snapshot, snapshot)
	return nil
}

// Load returns the latest snapshot, or nil when none has been saved
func (s *MemoryStateStore) Load(ctx context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snapshot == nil {
		return nil, nil
	}

	snapshot := make([]byte, len(s.snapshot))
	copy(snapshot, s.snapshot)
	return snapshot, nil
}
