package auth

import "errors"

// Every rejection the auth core can produce. All of these are expected,
// user-facing outcomes; handlers map them to HTTP statuses. Anything else
// coming out of this package is an internal fault.
var (
	// ErrInvalidCredentials covers both "no such account" and "wrong
	// password" so a login response never confirms that a username exists.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrMalformedToken: structurally invalid, bad signature, or an
	// algorithm other than the one configured.
	ErrMalformedToken = errors.New("malformed or improperly signed token")

	ErrTokenRevoked = errors.New("token has been revoked")
	ErrTokenExpired = errors.New("token has expired")

	// ErrUnknownSubject: the token verified but its subject no longer
	// resolves to a live account (deleted after issuance).
	ErrUnknownSubject = errors.New("token subject does not resolve to an account")

	// ErrAlreadyRevoked is the soft conflict returned when a token is
	// logged out twice. Not a fault: the second caller learns the token
	// was already dead.
	ErrAlreadyRevoked = errors.New("token already revoked")

	ErrDuplicateIdentity = errors.New("username or email already in use")

	ErrPasswordTooLong = errors.New("password exceeds maximum length")
)
