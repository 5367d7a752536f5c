package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/flagforge/api/internal/auth"
	"github.com/flagforge/api/internal/model"
	"github.com/gin-gonic/gin"
)

// Context keys set by RequireAuth.
const (
	userKey  = "authUser"
	tokenKey = "authToken"
)

// CurrentUser returns the account RequireAuth resolved for this request.
func CurrentUser(c *gin.Context) (*model.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*model.User)
	return user, ok
}

// BearerToken returns the exact token string the request authenticated
// with. Logout needs it verbatim: the revocation ledger is keyed by the
// serialized string, not by the subject.
func BearerToken(c *gin.Context) (string, bool) {
	v, ok := c.Get(tokenKey)
	if !ok {
		return "", false
	}
	token, ok := v.(string)
	return token, ok
}

// RequireAuth runs the session verifier as a precondition for every
// protected route and stores the resolved account in the request context.
func RequireAuth(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authenticate(c, verifier)
	}
}

// RequireAdmin is RequireAuth plus an admin-flag check.
func RequireAdmin(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, verifier) {
			return
		}
		user, _ := CurrentUser(c)
		if user == nil || !user.Admin {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			c.Abort()
		}
	}
}

// authenticate verifies the bearer token and stores the resolved account.
// On failure it aborts the request and reports false.
func authenticate(c *gin.Context, verifier *auth.Verifier) bool {
	token, ok := extractBearer(c)
	if !ok {
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "bearer token required"})
		c.Abort()
		return false
	}

	user, err := verifier.Verify(c.Request.Context(), token)
	if err != nil {
		status, msg := rejectionResponse(err)
		if status == http.StatusUnauthorized {
			c.Header("WWW-Authenticate", "Bearer")
		}
		c.JSON(status, gin.H{"error": msg})
		c.Abort()
		return false
	}

	c.Set(userKey, user)
	c.Set(tokenKey, token)
	return true
}

func extractBearer(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// rejectionResponse maps the auth taxonomy to HTTP. The coarse reason is
// reported; nothing finer leaks.
func rejectionResponse(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrMalformedToken):
		return http.StatusUnauthorized, "invalid token"
	case errors.Is(err, auth.ErrTokenRevoked):
		return http.StatusUnauthorized, "token revoked"
	case errors.Is(err, auth.ErrTokenExpired):
		return http.StatusUnauthorized, "token expired"
	case errors.Is(err, auth.ErrUnknownSubject):
		return http.StatusUnauthorized, "invalid token"
	default:
		return http.StatusInternalServerError, "verification failed"
	}
}
