// Package license verifies license tokens submitted for a fingerprint.
//
// The shipped verifier accepts any non-empty token. Substituting a real
// signature check means providing another Verifier; the gate state machine
// only depends on the interface.
package license

import (
	"context"
	"errors"
)

var (
	// ErrEmptyToken is returned for an empty token.
	ErrEmptyToken = errors.New("license token is empty")

	// ErrRejected is returned by verifiers that refuse a token.
	ErrRejected = errors.New("license token rejected")
)

// Verifier decides whether a token satisfies the gate for a fingerprint.
type Verifier interface {
	Verify(ctx context.Context, fingerprint, token string) error
}

// AcceptAny accepts every non-empty token, permanently, for any fingerprint.
type AcceptAny struct{}

// Verify returns ErrEmptyToken for "" and nil otherwise.
func (AcceptAny) Verify(ctx context.Context, fingerprint, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	return nil
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, fingerprint, token string) error

// Verify calls f.
func (f VerifierFunc) Verify(ctx context.Context, fingerprint, token string) error {
	return f(ctx, fingerprint, token)
}
