package service

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/team-hex/hexcert/adapters/store"
	"github.com/team-hex/hexcert/adapters/tokenizer"
	"github.com/team-hex/hexcert/core"
	"github.com/team-hex/hexcert/internal/eth"
)

func newTestService(t *testing.T) *AuthService {
	t.Helper()

	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return NewAuthService(
		tokenizer.NewJWTTokenizer(signKey),
		store.NewMemoryRevocationStore(),
		store.NewMemoryNonceStore(),
		store.NewMemoryUserStore(),
		nil,
		logger,
	)
}

func TestCreateChallenge(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	challenge, err := s.CreateChallenge(ctx, address)
	require.NoError(t, err)

	assert.Contains(t, challenge.Message, challenge.Hash)
	assert.Contains(t, challenge.Message, "Team Hex dApp")
	assert.True(t, strings.HasPrefix(challenge.Hash, "0x"))
	assert.Len(t, challenge.Hash, 66)

	// The hash binds the nonce to the claimed address.
	assert.Equal(t, eth.PackedHash(challenge.Nonce, address).Hex(), challenge.Hash)

	// Two challenges for the same address never collide.
	other, err := s.CreateChallenge(ctx, address)
	require.NoError(t, err)
	assert.NotEqual(t, challenge.Hash, other.Hash)
}

func TestCreateChallengeInvalidAddress(t *testing.T) {
	s := newTestService(t)

	_, err := s.CreateChallenge(context.Background(), "not-an-address")
	assert.ErrorIs(t, err, core.ErrInvalidAddress)
	_, err = s.CreateChallenge(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrInvalidAddress)
}

func TestVerifySignatureEndToEnd(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	challenge, err := s.CreateChallenge(ctx, address)
	require.NoError(t, err)

	signature, err := eth.SignPersonal(challenge.Message, key)
	require.NoError(t, err)

	assert.True(t, s.VerifySignature(ctx, challenge.Message, signature, address))
}

func TestVerifySignatureCaseInsensitive(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	challenge, err := s.CreateChallenge(ctx, strings.ToLower(address))
	require.NoError(t, err)
	signature, err := eth.SignPersonal(challenge.Message, key)
	require.NoError(t, err)

	// Claimed address cased differently from the one the challenge was
	// issued for still verifies.
	shouted := "0x" + strings.ToUpper(strings.TrimPrefix(address, "0x"))
	assert.True(t, s.VerifySignature(ctx, challenge.Message, signature, shouted))
}

func TestVerifySignatureWrongKey(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	otherKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	challenge, err := s.CreateChallenge(ctx, address)
	require.NoError(t, err)

	signature, err := eth.SignPersonal(challenge.Message, otherKey)
	require.NoError(t, err)

	assert.False(t, s.VerifySignature(ctx, challenge.Message, signature, address))
}

func TestVerifySignatureReplay(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	challenge, err := s.CreateChallenge(ctx, address)
	require.NoError(t, err)
	signature, err := eth.SignPersonal(challenge.Message, key)
	require.NoError(t, err)

	assert.True(t, s.VerifySignature(ctx, challenge.Message, signature, address))

	// The nonce is single-use: the same signed message cannot be replayed.
	assert.False(t, s.VerifySignature(ctx, challenge.Message, signature, address))
}

func TestVerifySignatureWrongClaimedAddress(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	otherKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()
	otherAddress := crypto.PubkeyToAddress(otherKey.PublicKey).Hex()

	// Challenge issued for one address cannot be verified against another,
	// even when that other address signed it.
	challenge, err := s.CreateChallenge(ctx, address)
	require.NoError(t, err)
	signature, err := eth.SignPersonal(challenge.Message, otherKey)
	require.NoError(t, err)

	assert.False(t, s.VerifySignature(ctx, challenge.Message, signature, otherAddress))
}

func TestVerifySignatureMalformedMessage(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	assert.False(t, s.VerifySignature(ctx, "no nonce here", "0x00", address))
	assert.False(t, s.VerifySignature(ctx, "Nonce: deadbeef", "0x00", address))
}

func TestLoginRefreshLogout(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	challenge, err := s.CreateChallenge(ctx, address)
	require.NoError(t, err)
	signature, err := eth.SignPersonal(challenge.Message, key)
	require.NoError(t, err)

	access, refresh, err := s.Login(ctx, challenge.Message, signature, address)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)

	// Login provisions the user record.
	user, err := s.GetUser(ctx, address)
	require.NoError(t, err)
	assert.Equal(t, eth.NormalizeAddress(address), user.Address)

	session, err := s.ValidateAccessToken(ctx, access)
	require.NoError(t, err)
	assert.Equal(t, eth.NormalizeAddress(address), session.Address)

	// Rotation invalidates the old refresh token.
	newAccess, newRefresh, err := s.Refresh(ctx, refresh)
	require.NoError(t, err)
	_, _, err = s.Refresh(ctx, refresh)
	assert.ErrorIs(t, err, core.ErrTokenInvalidated)

	// The old access token dies with its refresh token.
	_, err = s.ValidateAccessToken(ctx, access)
	assert.ErrorIs(t, err, core.ErrTokenInvalidated)

	_, err = s.ValidateAccessToken(ctx, newAccess)
	require.NoError(t, err)

	// Logout kills the new pair too.
	require.NoError(t, s.Logout(ctx, newRefresh))
	_, err = s.ValidateAccessToken(ctx, newAccess)
	assert.ErrorIs(t, err, core.ErrTokenInvalidated)
}

func TestLoginInvalidSignature(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	challenge, err := s.CreateChallenge(ctx, address)
	require.NoError(t, err)

	_, _, err = s.Login(ctx, challenge.Message, "0xgarbage", address)
	assert.ErrorIs(t, err, core.ErrInvalidSignature)
}

// erroringRevocationStore simulates an unreachable revocation store.
type erroringRevocationStore struct{}

func (erroringRevocationStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	return errors.New("store down")
}

func (erroringRevocationStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	return false, errors.New("store down")
}

func TestValidateAccessTokenFailsClosed(t *testing.T) {
	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	s := NewAuthService(
		tokenizer.NewJWTTokenizer(signKey),
		erroringRevocationStore{},
		store.NewMemoryNonceStore(),
		store.NewMemoryUserStore(),
		nil,
		logger,
	)
	ctx := context.Background()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	challenge, err := s.CreateChallenge(ctx, address)
	require.NoError(t, err)
	signature, err := eth.SignPersonal(challenge.Message, key)
	require.NoError(t, err)

	access, _, err := s.Login(ctx, challenge.Message, signature, address)
	require.NoError(t, err)

	// An unreachable revocation store must deny access, not allow it.
	_, err = s.ValidateAccessToken(ctx, access)
	assert.Error(t, err)
}

func TestRegisterUser(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, err := s.RegisterUser(ctx, "nope")
	assert.ErrorIs(t, err, core.ErrInvalidAddress)

	address := "0xbD6e2111fa9ea5B70D9F2832925391031Ce275f4"
	first, err := s.RegisterUser(ctx, address)
	require.NoError(t, err)

	// Registration is find-or-create.
	second, err := s.RegisterUser(ctx, strings.ToLower(address))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}
