// Package eth wraps the secp256k1 primitives the authentication flow needs:
// the packed-keccak challenge hash and personal-message signature recovery.
package eth

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the length of a [R || S || V] secp256k1 signature.
const SignatureLength = 65

// PackedHash computes keccak256 over the tight concatenation of the given
// strings, matching Solidity's abi.encodePacked of string arguments.
func PackedHash(parts ...string) common.Hash {
	data := make([][]byte, len(parts))
	for i, p := range parts {
		data[i] = []byte(p)
	}
	return crypto.Keccak256Hash(data...)
}

// PersonalDigest returns the EIP-191 digest a wallet signs for the given
// human-readable message ("\x19Ethereum Signed Message:\n" + len + message).
func PersonalDigest(message string) common.Hash {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return crypto.Keccak256Hash([]byte(prefixed))
}

// RecoverAddress recovers the address that produced the given hex-encoded
// personal-message signature over message.
func RecoverAddress(message, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("decode signature: %w", err)
	}
	if len(sig) != SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes, got %d", SignatureLength, len(sig))
	}

	// Wallets emit V as 27/28; crypto.SigToPub expects 0/1.
	sigCopy := make([]byte, SignatureLength)
	copy(sigCopy, sig)
	if sigCopy[64] >= 27 {
		sigCopy[64] -= 27
	}

	pub, err := crypto.SigToPub(PersonalDigest(message).Bytes(), sigCopy)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", err)
	}

	return crypto.PubkeyToAddress(*pub), nil
}

// VerifyPersonalSignature reports whether signature over message was produced
// by the claimed address. Addresses are compared case-insensitively, and a
// malformed signature yields false rather than an error.
func VerifyPersonalSignature(message, signature, claimedAddress string) bool {
	if !common.IsHexAddress(claimedAddress) {
		return false
	}
	recovered, err := RecoverAddress(message, signature)
	if err != nil {
		return false
	}
	return AddressesEqual(recovered.Hex(), claimedAddress)
}

// SignPersonal signs the personal-message digest of message with key and
// returns the hex-encoded [R || S || V=27/28] signature, the format wallets
// produce.
func SignPersonal(message string, key *ecdsa.PrivateKey) (string, error) {
	sig, err := crypto.Sign(PersonalDigest(message).Bytes(), key)
	if err != nil {
		return "", fmt.Errorf("sign message: %w", err)
	}
	sig[64] += 27
	return hexutil.Encode(sig), nil
}

// AddressesEqual compares two hex addresses case-insensitively.
func AddressesEqual(a, b string) bool {
	return strings.EqualFold(a, b)
}

// NormalizeAddress lowercases a hex address to its canonical comparison form.
func NormalizeAddress(address string) string {
	return strings.ToLower(address)
}
