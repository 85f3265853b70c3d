package core

import "errors"

var (
	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenInvalidated = errors.New("token has been invalidated")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidChallenge = errors.New("invalid challenge")
	ErrInvalidAddress   = errors.New("invalid wallet address")
	ErrNonceConsumed    = errors.New("challenge nonce already used or expired")

	// Registry and issuance errors.
	ErrNotAdmin            = errors.New("caller does not have the admin capability")
	ErrNotAuthorizedIssuer = errors.New("caller is not a currently-authorized university registrant")
	ErrUniversityExists    = errors.New("university id is already registered")
	ErrUniversityNotFound  = errors.New("university id is not registered")
	ErrRegistrantTaken     = errors.New("registrant is already assigned to an active university")
	ErrCertificateNotFound = errors.New("certificate was never minted")
	ErrNotCertificateOwner = errors.New("caller does not own the certificate")
	ErrUserNotFound        = errors.New("user not found")
)
