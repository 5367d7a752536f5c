package auth

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the signed token payload: the immutable account id as subject
// plus the registered timestamp claims. The subject is the id, not the
// username, so renaming an account leaves its sessions intact.
type Claims struct {
	AccountID int64 `json:"accountId"`
	jwt.RegisteredClaims
}

// Codec signs and verifies bearer tokens with a single HS256 key. The key
// is injected at construction, never read from ambient state, so tests can
// run isolated codecs with distinct keys side by side.
//
// Parse deliberately does NOT check expiry: the session verifier owns the
// expiry policy, the codec owns the wire format.
type Codec struct {
	secret []byte
	issuer string
}

func NewCodec(secret []byte) *Codec {
	return &Codec{secret: secret, issuer: "flagforge"}
}

// GenerateSecret returns a random 256-bit signing key, used when no
// operator-supplied secret is configured. Tokens signed with it are only
// verifiable by this process instance for its lifetime.
func GenerateSecret() ([]byte, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

func (c *Codec) Issue(accountID int64, now time.Time, lifetime time.Duration) (string, error) {
	claims := Claims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(accountID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    c.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Parse decodes and signature-checks a token string. Any structural
// failure, signature mismatch, or unexpected algorithm comes back as
// ErrMalformedToken; expired-but-well-formed tokens parse successfully.
func (c *Codec) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return c.secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if !token.Valid {
		return nil, ErrMalformedToken
	}

	return claims, nil
}
