// Package internal holds shared helpers for code generation and secret
// hashing used by the stores and the controller.
package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"math/big"
	"strconv"
)

const (
	otpMin  = 100000
	otpSpan = 900000
)

// NewVerificationCode returns a uniformly random six-digit code in
// [100000, 999999]. The low bound guarantees no leading zero, so the code
// survives any numeric round-trip in the calling layer.
func NewVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpSpan))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+otpMin, 10), nil
}

// HashSecret hashes a verification code or other short secret for storage.
// Plaintext secrets are never written to the backing store.
func HashSecret(secret string) [32]byte {
	return sha256.Sum256([]byte(secret))
}
