package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/team-hex/hexcert/core"
)

func TestMemoryNonceStoreSingleUse(t *testing.T) {
	s := NewMemoryNonceStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "0xhash", "0xAbCd", time.Minute))

	address, err := s.Consume(ctx, "0xhash")
	require.NoError(t, err)
	assert.Equal(t, "0xabcd", address)

	// Second consumption fails.
	_, err = s.Consume(ctx, "0xhash")
	assert.ErrorIs(t, err, core.ErrNonceConsumed)

	// Unknown hashes fail.
	_, err = s.Consume(ctx, "0xother")
	assert.ErrorIs(t, err, core.ErrNonceConsumed)
}

func TestMemoryNonceStoreExpiry(t *testing.T) {
	s := NewMemoryNonceStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "0xhash", "0xabcd", -time.Second))

	_, err := s.Consume(ctx, "0xhash")
	assert.ErrorIs(t, err, core.ErrNonceConsumed)
}

func TestMemoryRevocationStore(t *testing.T) {
	s := NewMemoryRevocationStore()
	ctx := context.Background()

	invalidated, err := s.IsTokenInvalidated(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, invalidated)

	require.NoError(t, s.InvalidateToken(ctx, "jti-1", time.Minute))

	invalidated, err = s.IsTokenInvalidated(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, invalidated)

	// An invalidation record that outlived its token no longer matters.
	require.NoError(t, s.InvalidateToken(ctx, "jti-2", -time.Second))
	invalidated, err = s.IsTokenInvalidated(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, invalidated)
}

func TestMemoryUserStore(t *testing.T) {
	s := NewMemoryUserStore()
	ctx := context.Background()

	_, err := s.FindByAddress(ctx, "0xAAA0000000000000000000000000000000000001")
	assert.ErrorIs(t, err, core.ErrUserNotFound)

	created, err := s.FindOrCreate(ctx, "0xAAA0000000000000000000000000000000000001")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	// Lookups are case-insensitive on the address.
	found, err := s.FindByAddress(ctx, "0xaaa0000000000000000000000000000000000001")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	again, err := s.FindOrCreate(ctx, "0xAAA0000000000000000000000000000000000001")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
}

func TestMemoryStateStore(t *testing.T) {
	s := NewMemoryStateStore()
	ctx := context.Background()

	snapshot, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, snapshot)

	require.NoError(t, s.Save(ctx, []byte(`{"v":1}`)))
	require.NoError(t, s.Save(ctx, []byte(`{"v":2}`)))

	snapshot, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"v":2}`), snapshot)
}
