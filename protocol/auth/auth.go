// Package auth provides the GUI RPC challenge-response primitives.
//
// It intentionally avoids transport concerns; the session package drives the exchange.
package auth

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"errors"

	"github.com/google/uuid"
)

var ErrUnauthorized = errors.New("auth: unauthorized")

// NonceHash answers a daemon nonce: lowercase hex of md5(nonce + password).
func NonceHash(password, nonce string) string {
	sum := md5.Sum([]byte(nonce + password))
	return hex.EncodeToString(sum[:])
}

// NewNonce issues a one-time challenge for the responder side of the handshake.
func NewNonce() string {
	return uuid.NewString()
}

// Verifier checks a nonce_hash answer on the responder side.
type Verifier interface {
	Verify(nonce, hash string) error
}

// StaticPassword verifies answers against one shared password.
type StaticPassword struct {
	Password string
}

func (s StaticPassword) Verify(nonce, hash string) error {
	return VerifyNonceHash(s.Password, nonce, hash)
}

// FuncVerifier adapts a function into a Verifier.
type FuncVerifier func(nonce, hash string) error

func (f FuncVerifier) Verify(nonce, hash string) error {
	return f(nonce, hash)
}

func VerifyNonceHash(password, nonce, hash string) error {
	if nonce == "" {
		return ErrUnauthorized
	}
	want := NonceHash(password, nonce)
	if subtle.ConstantTimeCompare([]byte(want), []byte(hash)) != 1 {
		return ErrUnauthorized
	}
	return nil
}
