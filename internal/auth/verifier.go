package auth

import (
	"context"
	"time"

	"github.com/flagforge/api/internal/model"
)

// RevocationStatus is the typed outcome of a ledger insert. Distinguishing
// the duplicate case lets a second logout answer "already logged out"
// instead of pretending to succeed, without treating it as an error.
type RevocationStatus int

const (
	RevocationAdded RevocationStatus = iota
	RevocationDuplicate
)

// RevocationLedger is the append-only denylist of revoked token strings.
// Implementations must enforce uniqueness in the store itself so that two
// concurrent Revoke calls for the same string resolve to exactly one
// RevocationAdded; application-level locking is not good enough.
type RevocationLedger interface {
	Revoke(ctx context.Context, token string) (RevocationStatus, error)
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// IdentityResolver maps a verified subject claim to a live account.
// Resolution is by immutable id; a missing row is ErrUnknownSubject.
type IdentityResolver interface {
	Resolve(ctx context.Context, accountID int64) (*model.User, error)
}

// Verifier runs the per-request verification pipeline. The check order is
// fixed and short-circuits at the first failure:
//
//	parse -> revocation -> expiry -> identity
//
// Revocation is checked before expiry on purpose: a revoked-but-unexpired
// token is the ordinary logout case and must keep reporting ErrTokenRevoked
// rather than racing the clock, and a token an operator already killed
// should not leak expiry timing.
type Verifier struct {
	codec    *Codec
	ledger   RevocationLedger
	resolver IdentityResolver
	now      func() time.Time
}

func NewVerifier(codec *Codec, ledger RevocationLedger, resolver IdentityResolver) *Verifier {
	return &Verifier{
		codec:    codec,
		ledger:   ledger,
		resolver: resolver,
		now:      time.Now,
	}
}

// WithClock overrides the wall clock, for tests.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	v.now = now
	return v
}

// Verify is read-only: it either returns the live account the token speaks
// for, or one of ErrMalformedToken, ErrTokenRevoked, ErrTokenExpired,
// ErrUnknownSubject. Any other error is a store fault, not a rejection.
func (v *Verifier) Verify(ctx context.Context, token string) (*model.User, error) {
	claims, err := v.codec.Parse(token)
	if err != nil {
		return nil, err
	}

	revoked, err := v.ledger.IsRevoked(ctx, token)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(v.now()) {
		return nil, ErrTokenExpired
	}

	return v.resolver.Resolve(ctx, claims.AccountID)
}

// Revoke inserts the exact token string into the ledger. Idempotent from
// the caller's side: retrying a timed-out revocation is always safe. Only
// this token dies; other tokens for the same account stay valid.
func (v *Verifier) Revoke(ctx context.Context, token string) (RevocationStatus, error) {
	return v.ledger.Revoke(ctx, token)
}
