package core

import "time"

// Challenge represents a signing challenge bound to a claimed wallet address.
type Challenge struct {
	ID        string    // Unique identifier for the challenge
	Address   string    // Claimed wallet address, lowercased
	Nonce     string    // Hex-encoded random nonce
	Hash      string    // keccak256(nonce, address), the value embedded in Message
	Message   string    // Human-readable text the wallet signs
	IssuedAt  time.Time // When the challenge was created
	ExpiresAt time.Time // When the challenge expires
}

// Session represents an authenticated user session.
type Session struct {
	ID            string    // Unique session identifier
	Address       string    // Wallet address of the user, lowercased
	IssuedAt      time.Time // When the session was created
	RefreshExpiry time.Time // When the refresh capability expires
	AccessExpiry  time.Time // When the access capability expires
	RefreshID     string    // Unique identifier for the refresh token
}

// User is a persisted account record keyed by wallet address.
type User struct {
	ID        string    `json:"id"`
	Address   string    `json:"wallet_address"`
	CreatedAt time.Time `json:"created_at"`
}
