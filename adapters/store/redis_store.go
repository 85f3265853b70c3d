package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/team-hex/hexcert/core"
	"github.com/team-hex/hexcert/internal/eth"
	"github.com/team-hex/hexcert/ports"
)

// RedisRevocationStore is a Redis implementation of the RevocationStore
// interface.
type RedisRevocationStore struct {
	client *redis.Client
	prefix string
}

// NewRedisRevocationStore creates a new Redis revocation store
func NewRedisRevocationStore(client *redis.Client) ports.RevocationStore {
	return &RedisRevocationStore{
		client: client,
		prefix: "hexcert:invalidated:",
	}
}

// InvalidateToken marks a token as invalidated in Redis
func (s *RedisRevocationStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	key := s.prefix + tokenID

	if err := s.client.Set(ctx, key, "1", expiry).Err(); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	return nil
}

// IsTokenInvalidated checks if a token is invalidated in Redis
func (s *RedisRevocationStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	key := s.prefix + tokenID

	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token invalidation: %w", err)
	}

	return val > 0, nil
}

// RedisNonceStore is a Redis implementation of the NonceStore interface.
// GETDEL makes consumption atomic across instances.
type RedisNonceStore struct {
	client *redis.Client
	prefix string
}

// NewRedisNonceStore creates a new Redis nonce store
func NewRedisNonceStore(client *redis.Client) ports.NonceStore {
	return &RedisNonceStore{
		client: client,
		prefix: "hexcert:nonce:",
	}
}

// Put binds a challenge hash to the claimed address for the given TTL
func (s *RedisNonceStore) Put(ctx context.Context, hash, address string, ttl time.Duration) error {
	key := s.prefix + hash

	if err := s.client.Set(ctx, key, eth.NormalizeAddress(address), ttl).Err(); err != nil {
		return fmt.Errorf("failed to store nonce: %w", err)
	}

	return nil
}

// Consume removes the challenge hash and returns its bound address
func (s *RedisNonceStore) Consume(ctx context.Context, hash string) (string, error) {
	key := s.prefix + hash

	address, err := s.client.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", core.ErrNonceConsumed
	}
	if err != nil {
		return "", fmt.Errorf("failed to consume nonce: %w", err)
	}

	return address, nil
}

// RedisUserStore is a Redis implementation of the UserStore interface,
// storing user records as JSON keyed by lowercased wallet address.
type RedisUserStore struct {
	client *redis.Client
	prefix string
}

// NewRedisUserStore creates a new Redis user store
func NewRedisUserStore(client *redis.Client) ports.UserStore {
	return &RedisUserStore{
		client: client,
		prefix: "hexcert:user:",
	}
}

// FindOrCreate returns the user for the address, creating it if absent.
// SetNX keeps concurrent creations of the same address from racing.
func (s *RedisUserStore) FindOrCreate(ctx context.Context, address string) (*core.User, error) {
	key := s.prefix + eth.NormalizeAddress(address)

	user := &core.User{
		ID:        uuid.New().String(),
		Address:   eth.NormalizeAddress(address),
		CreatedAt: time.Now(),
	}
	payload, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("failed to encode user: %w", err)
	}

	created, err := s.client.SetNX(ctx, key, payload, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	if created {
		return user, nil
	}

	return s.get(ctx, key)
}

// FindByAddress returns the user for the address
func (s *RedisUserStore) FindByAddress(ctx context.Context, address string) (*core.User, error) {
	return s.get(ctx, s.prefix+eth.NormalizeAddress(address))
}

func (s *RedisUserStore) get(ctx context.Context, key string) (*core.User, error) {
	payload, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	user := &core.User{}
	if err := json.Unmarshal(payload, user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}

	return user, nil
}

// RedisStateStore is a Redis implementation of the StateStore interface,
// holding the factory snapshot under a single key.
type RedisStateStore struct {
	client *redis.Client
	key    string
}

// NewRedisStateStore creates a new Redis state store
func NewRedisStateStore(client *redis.Client) ports.StateStore {
	return &RedisStateStore{
		client: client,
		key:    "hexcert:factory:state",
	}
}

// Save stores the latest snapshot
func (s *RedisStateStore) Save(ctx context.Context, snapshot []byte) error {
	if err := s.client.Set(ctx, s.key, snapshot, 0).Err(); err != nil {
		return fmt.Errorf("failed to persist snapshot: %w", err)
	}

	return nil
}

// Load returns the latest snapshot, or nil when none has been saved
func (s *RedisStateStore) Load(ctx context.Context) ([]byte, error) {
	snapshot, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	return snapshot, nil
}
