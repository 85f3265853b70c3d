package ports

import (
	"context"
	"time"

	"github.com/team-hex/hexcert/core"
)

// RevocationStore records invalidated refresh-token ids. It is consulted
// before any identity re-verification; an unreachable store must be treated
// as "revoked" by callers (fail closed).
type RevocationStore interface {
	InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error
	IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error)
}

// NonceStore holds issued challenge hashes until they are consumed or expire.
// Consume must be atomic: concurrent verifications of the same challenge may
// succeed at most once.
type NonceStore interface {
	// Put binds a challenge hash to the claimed address for the given TTL.
	Put(ctx context.Context, hash, address string, ttl time.Duration) error

	// Consume removes the challenge hash and returns the address it was
	// bound to. Returns core.ErrNonceConsumed if the hash is unknown,
	// already used, or expired.
	Consume(ctx context.Context, hash string) (string, error)
}

// UserStore persists account records keyed by lowercased wallet address.
type UserStore interface {
	// FindOrCreate returns the user for the address, creating it if absent.
	FindOrCreate(ctx context.Context, address string) (*core.User, error)

	// FindByAddress returns core.ErrUserNotFound when no record exists.
	FindByAddress(ctx context.Context, address string) (*core.User, error)
}

// StateStore persists the certificate factory's state snapshot. The factory
// serializes all mutations, so a single whole-state blob is sufficient.
type StateStore interface {
	Save(ctx context.Context, snapshot []byte) error

	// Load returns nil with no error when no snapshot has been saved yet.
	Load(ctx context.Context) ([]byte, error)
}
