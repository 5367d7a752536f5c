package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// Hash schemes selectable via PASSWORD_HASH_SCHEME. Exactly one scheme is
// active for the process lifetime; stored hashes are never migrated.
const (
	SchemeArgon2id = "argon2id"
	SchemeBcrypt   = "bcrypt"
)

// MaxPasswordLen is checked by callers before Hash. Bcrypt truncates at 72
// bytes, so anything longer must be rejected up front rather than silently
// collapsing distinct passwords into one.
const MaxPasswordLen = 70

// Hasher is the one-way password primitive. Hash takes a context because
// the KDF is deliberately expensive and calls queue behind a concurrency
// limit; Verify is cheap enough to run inline.
type Hasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(plaintext, stored string) bool
}

// NewHasher selects the process-wide scheme.
func NewHasher(scheme string) (Hasher, error) {
	switch scheme {
	case SchemeArgon2id:
		return NewArgon2Hasher(Argon2Params{}), nil
	case SchemeBcrypt:
		return NewBcryptHasher(bcrypt.DefaultCost), nil
	default:
		return nil, fmt.Errorf("unknown password hash scheme %q", scheme)
	}
}

// Argon2Params controls the argon2id cost. The zero value selects the
// defaults below; tests use cheaper settings.
type Argon2Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

func (p Argon2Params) withDefaults() Argon2Params {
	if p.Time == 0 {
		p.Time = 3
	}
	if p.Memory == 0 {
		p.Memory = 64 * 1024
	}
	if p.Threads == 0 {
		p.Threads = uint8(runtime.NumCPU())
	}
	if p.KeyLen == 0 {
		p.KeyLen = 32
	}
	if p.SaltLen == 0 {
		p.SaltLen = 16
	}
	return p
}

// Argon2Hasher hashes with argon2id and encodes in the PHC string format.
// A weighted semaphore bounds how many hashes run at once: each call burns
// Memory KiB and saturates Threads cores, and an unbounded burst of logins
// must not starve every other request in the process.
type Argon2Hasher struct {
	params Argon2Params
	sem    *semaphore.Weighted
}

func NewArgon2Hasher(params Argon2Params) *Argon2Hasher {
	return &Argon2Hasher{
		params: params.withDefaults(),
		sem:    semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}
}

func (h *Argon2Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordLen {
		return "", ErrPasswordTooLong
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(plaintext), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.params.Memory, h.params.Time, h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

func (h *Argon2Hasher) Verify(plaintext, stored string) bool {
	var (
		version                uint32
		memory, time           uint32
		threads                uint8
		saltB64, keyB64, ident string
	)
	parts := strings.Split(stored, "$")
	if len(parts) != 6 {
		return false
	}
	ident = parts[1]
	if ident != "argon2id" {
		return false
	}
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false
	}
	saltB64, keyB64 = parts[4], parts[5]
	salt, err := base64.RawStdEncoding.DecodeString(saltB64)
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(keyB64)
	if err != nil {
		return false
	}

	got := argon2.IDKey([]byte(plaintext), salt, time, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}

// BcryptHasher wraps x/crypto/bcrypt. Bcrypt is self-salting and
// self-describing, so there is no format handling to do here.
type BcryptHasher struct {
	cost int
	sem  *semaphore.Weighted
}

func NewBcryptHasher(cost int) *BcryptHasher {
	return &BcryptHasher{
		cost: cost,
		sem:  semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}
}

func (h *BcryptHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordLen {
		return "", ErrPasswordTooLong
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	out, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (h *BcryptHasher) Verify(plaintext, stored string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(plaintext)) == nil
}
