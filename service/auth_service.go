package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/team-hex/hexcert/core"
	"github.com/team-hex/hexcert/internal/eth"
	"github.com/team-hex/hexcert/ports"
)

// signingMessage is the fixed template wallets sign. {NONCE_VALUE} is
// replaced with the packed keccak hash binding the nonce to the claimed
// address.
const signingMessage = `Team Hex dApp

  We authorize universities with verified kyc to mint and issue certificates seamlessly.

  Nonce: {NONCE_VALUE}
`

const nonceValuePlaceholder = "{NONCE_VALUE}"

// LogoutEvent notifies other instances that a session ended.
type LogoutEvent struct {
	Address string `json:"address"`
	TokenID string `json:"token_id"`
}

// AuthService handles the passwordless authentication flow: nonce challenges,
// signature verification, session tokens, and revocation.
type AuthService struct {
	tokenizer   ports.Tokenizer
	revocations ports.RevocationStore
	nonces      ports.NonceStore
	users       ports.UserStore
	eventPub    ports.EventPublisher
	log         *logrus.Entry

	challengeTTL time.Duration
	accessTTL    time.Duration
	refreshTTL   time.Duration
}

// NewAuthService creates a new authentication service
func NewAuthService(
	tokenizer ports.Tokenizer,
	revocations ports.RevocationStore,
	nonces ports.NonceStore,
	users ports.UserStore,
	eventPub ports.EventPublisher,
	logger *logrus.Logger,
) *AuthService {
	return &AuthService{
		tokenizer:    tokenizer,
		revocations:  revocations,
		nonces:       nonces,
		users:        users,
		eventPub:     eventPub,
		log:          logger.WithField("component", "auth"),
		challengeTTL: 5 * time.Minute,
		accessTTL:    5 * time.Minute,
		refreshTTL:   5 * 24 * time.Hour, // 5 days
	}
}

// CreateChallenge generates a new authentication challenge for the claimed
// address. The nonce is cryptographically random and single-use; its hash is
// bound to the claimed address in the nonce store until consumed or expired.
func (s *AuthService) CreateChallenge(ctx context.Context, address string) (*core.Challenge, error) {
	if !common.IsHexAddress(address) {
		return nil, core.ErrInvalidAddress
	}

	nonceBytes := make([]byte, 32)
	if _, err := rand.Read(nonceBytes); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	nonce := hexutil.Encode(nonceBytes)

	// Same packing as the contract side: keccak256 over the tightly
	// concatenated nonce and address strings, so the nonce cannot be
	// replayed against a different claimed address.
	hash := eth.PackedHash(nonce, address).Hex()

	if err := s.nonces.Put(ctx, hash, address, s.challengeTTL); err != nil {
		return nil, fmt.Errorf("failed to store nonce: %w", err)
	}

	now := time.Now()
	return &core.Challenge{
		ID:        uuid.New().String(),
		Address:   eth.NormalizeAddress(address),
		Nonce:     nonce,
		Hash:      hash,
		Message:   strings.Replace(signingMessage, nonceValuePlaceholder, hash, 1),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.challengeTTL),
	}, nil
}

// VerifySignature checks that signature over message was produced by the
// claimed address and that the embedded challenge is live. The challenge is
// consumed on any verification attempt, so a signed message cannot be
// replayed. Malformed input yields false, never an error surfaced as a
// signature panic; an unreachable nonce store fails closed.
func (s *AuthService) VerifySignature(ctx context.Context, message, signature, claimedAddress string) bool {
	if !common.IsHexAddress(claimedAddress) {
		return false
	}

	hash, ok := extractNonceValue(message)
	if !ok {
		return false
	}

	boundAddress, err := s.nonces.Consume(ctx, hash)
	if err != nil {
		if !errors.Is(err, core.ErrNonceConsumed) {
			s.log.WithError(err).Error("nonce store unavailable, failing closed")
		}
		return false
	}
	if !eth.AddressesEqual(boundAddress, claimedAddress) {
		return false
	}

	return eth.VerifyPersonalSignature(message, signature, claimedAddress)
}

// Login verifies the signed challenge, provisions the user record, and
// issues a new access/refresh token pair.
func (s *AuthService) Login(ctx context.Context, message, signature, address string) (string, string, error) {
	if !s.VerifySignature(ctx, message, signature, address) {
		return "", "", core.ErrInvalidSignature
	}

	if _, err := s.users.FindOrCreate(ctx, address); err != nil {
		return "", "", fmt.Errorf("failed to provision user: %w", err)
	}

	now := time.Now()
	session := &core.Session{
		ID:            uuid.New().String(),
		Address:       eth.NormalizeAddress(address),
		IssuedAt:      now,
		RefreshExpiry: now.Add(s.refreshTTL),
		AccessExpiry:  now.Add(s.accessTTL),
		RefreshID:     uuid.New().String(),
	}

	accessToken, err := s.tokenizer.SessionToAccessToken(session)
	if err != nil {
		return "", "", fmt.Errorf("failed to create access token: %w", err)
	}

	refreshToken, err := s.tokenizer.SessionToRefreshToken(session)
	if err != nil {
		return "", "", fmt.Errorf("failed to create refresh token: %w", err)
	}

	return accessToken, refreshToken, nil
}

// Refresh rotates the refresh token and issues new access and refresh tokens
func (s *AuthService) Refresh(ctx context.Context, refreshTokenStr string) (string, string, error) {
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if err != nil {
		return "", "", fmt.Errorf("invalid refresh token: %w", err)
	}

	if time.Now().After(session.RefreshExpiry) {
		return "", "", core.ErrTokenExpired
	}

	invalidated, err := s.revocations.IsTokenInvalidated(ctx, session.RefreshID)
	if err != nil {
		return "", "", fmt.Errorf("failed to check token invalidation: %w", err)
	}
	if invalidated {
		return "", "", core.ErrTokenInvalidated
	}

	// Invalidate the old refresh token for the remainder of its lifetime.
	remainingTime := time.Until(session.RefreshExpiry)
	if err := s.revocations.InvalidateToken(ctx, session.RefreshID, remainingTime); err != nil {
		return "", "", fmt.Errorf("failed to invalidate old token: %w", err)
	}

	now := time.Now()
	newSession := &core.Session{
		ID:            uuid.New().String(),
		Address:       session.Address,
		IssuedAt:      now,
		RefreshExpiry: now.Add(s.refreshTTL),
		AccessExpiry:  now.Add(s.accessTTL),
		RefreshID:     uuid.New().String(),
	}

	accessToken, err := s.tokenizer.SessionToAccessToken(newSession)
	if err != nil {
		return "", "", fmt.Errorf("failed to create new access token: %w", err)
	}

	refreshToken, err := s.tokenizer.SessionToRefreshToken(newSession)
	if err != nil {
		return "", "", fmt.Errorf("failed to create new refresh token: %w", err)
	}

	return accessToken, refreshToken, nil
}

// Logout invalidates a refresh token
func (s *AuthService) Logout(ctx context.Context, refreshTokenStr string) error {
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if err != nil {
		return fmt.Errorf("invalid refresh token: %w", err)
	}

	// Even an expired token gets an invalidation record, so it can't be
	// reused if clocks are slightly out of sync.
	var remainingTime time.Duration
	if time.Now().After(session.RefreshExpiry) {
		remainingTime = time.Hour
	} else {
		remainingTime = time.Until(session.RefreshExpiry)
	}

	if err := s.revocations.InvalidateToken(ctx, session.RefreshID, remainingTime); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	if s.eventPub != nil {
		event := LogoutEvent{Address: session.Address, TokenID: session.RefreshID}
		if err := s.eventPub.Publish(ctx, ports.TopicLogout, event); err != nil {
			// The token is already invalidated in the store, which is
			// the critical part.
			s.log.WithError(err).Warn("failed to publish logout event")
		}
	}

	return nil
}

// ValidateAccessToken parses an access token and re-checks the revocation
// store before trusting it. Store errors fail closed: the caller receives an
// error, not a valid session.
func (s *AuthService) ValidateAccessToken(ctx context.Context, accessToken string) (*core.Session, error) {
	session, err := s.tokenizer.AccessTokenToSession(accessToken)
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}

	if time.Now().After(session.AccessExpiry) {
		return nil, core.ErrTokenExpired
	}

	// Revocation is checked first, independently of any signature replay:
	// invalidating a refresh token kills its access tokens too.
	if session.RefreshID != "" {
		invalidated, err := s.revocations.IsTokenInvalidated(ctx, session.RefreshID)
		if err != nil {
			return nil, fmt.Errorf("failed to check token invalidation: %w", err)
		}
		if invalidated {
			return nil, core.ErrTokenInvalidated
		}
	}

	return session, nil
}

// GetUser returns the persisted account record for an address.
func (s *AuthService) GetUser(ctx context.Context, address string) (*core.User, error) {
	return s.users.FindByAddress(ctx, address)
}

// RegisterUser finds or creates the account record for an address.
func (s *AuthService) RegisterUser(ctx context.Context, address string) (*core.User, error) {
	if !common.IsHexAddress(address) {
		return nil, core.ErrInvalidAddress
	}
	return s.users.FindOrCreate(ctx, address)
}

// extractNonceValue pulls the bound challenge hash out of a signed message.
func extractNonceValue(message string) (string, bool) {
	idx := strings.LastIndex(message, "Nonce:")
	if idx < 0 {
		return "", false
	}
	value := strings.TrimSpace(message[idx+len("Nonce:"):])
	if !strings.HasPrefix(value, "0x") || len(value) != 66 {
		return "", false
	}
	return value, true
}
