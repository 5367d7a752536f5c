package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/steinfletcher/apitest"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t)

	apitest.New().
		Handler(ts.router).
		Post("/api/auth/register").
		JSON(`{"username":"alice","password":"pw123","email":"alice@example.com"}`).
		Expect(t).
		Status(http.StatusCreated).
		End()

	token := ts.login(t, "alice", "pw123")

	apitest.New().
		Handler(ts.router).
		Get("/api/auth/me").
		Header("Authorization", bearer(token)).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal(`$.username`, "alice")).
		Assert(jsonpath.Equal(`$.email`, "alice@example.com")).
		Assert(jsonpath.Equal(`$.admin`, false)).
		End()

	apitest.New().
		Handler(ts.router).
		Delete("/api/auth/logout").
		Header("Authorization", bearer(token)).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal(`$.message`, "token revoked")).
		End()

	// The revoked token must be rejected everywhere from now on, including
	// a repeated logout with the same token.
	apitest.New().
		Handler(ts.router).
		Get("/api/auth/me").
		Header("Authorization", bearer(token)).
		Expect(t).
		Status(http.StatusUnauthorized).
		Assert(jsonpath.Equal(`$.error`, "token revoked")).
		End()

	apitest.New().
		Handler(ts.router).
		Delete("/api/auth/logout").
		Header("Authorization", bearer(token)).
		Expect(t).
		Status(http.StatusUnauthorized).
		Assert(jsonpath.Equal(`$.error`, "token revoked")).
		End()

	// Logging in again issues a fresh, working session.
	fresh := ts.login(t, "alice", "pw123")
	require.NotEqual(t, token, fresh)

	apitest.New().
		Handler(ts.router).
		Get("/api/auth/me").
		Header("Authorization", bearer(fresh)).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal(`$.username`, "alice")).
		End()
}

func TestRegister_Duplicate(t *testing.T) {
	ts := newTestServer(t)

	payload := `{"username":"alice","password":"pw123","email":"alice@example.com"}`
	apitest.New().
		Handler(ts.router).
		Post("/api/auth/register").
		JSON(payload).
		Expect(t).
		Status(http.StatusCreated).
		End()

	apitest.New().
		Handler(ts.router).
		Post("/api/auth/register").
		JSON(payload).
		Expect(t).
		Status(http.StatusConflict).
		End()
}

func TestRegister_Validation(t *testing.T) {
	ts := newTestServer(t)

	cases := map[string]string{
		"missing fields": `{"username":"alice"}`,
		"bad email":      `{"username":"alice","password":"pw123","email":"not-an-email"}`,
		"long username":  `{"username":"` + strings.Repeat("a", 26) + `","password":"pw123","email":"a@example.com"}`,
		"long password":  `{"username":"alice","password":"` + strings.Repeat("p", 71) + `","email":"a@example.com"}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			apitest.New().
				Handler(ts.router).
				Post("/api/auth/register").
				JSON(payload).
				Expect(t).
				Status(http.StatusBadRequest).
				End()
		})
	}
}

// Unknown usernames and wrong passwords must be indistinguishable to the
// caller, so login failures never confirm that an account exists.
func TestLogin_UniformRejection(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "alice", "pw123", false)

	do := func(payload string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		ts.router.ServeHTTP(w, req)
		return w
	}

	wrongPassword := do(`{"username":"alice","password":"nope"}`)
	unknownUser := do(`{"username":"nobody","password":"nope"}`)

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownUser.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownUser.Body.String())
	assert.Equal(t, "Bearer", wrongPassword.Header().Get("WWW-Authenticate"))
}

func TestMe_RejectsBadTokens(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser(t, "alice", "pw123", false)

	expired, err := ts.codec.Issue(user.ID, time.Now(), -time.Minute)
	require.NoError(t, err)

	valid := ts.login(t, "alice", "pw123")
	tampered := valid[:len(valid)-1]
	if strings.HasSuffix(valid, "A") {
		tampered += "B"
	} else {
		tampered += "A"
	}

	cases := []struct {
		name  string
		token string
		want  string
	}{
		{"expired", expired, "token expired"},
		{"tampered", tampered, "invalid token"},
		{"garbage", "not-a-token", "invalid token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			apitest.New().
				Handler(ts.router).
				Get("/api/auth/me").
				Header("Authorization", bearer(tc.token)).
				Expect(t).
				Status(http.StatusUnauthorized).
				Assert(jsonpath.Equal(`$.error`, tc.want)).
				End()
		})
	}
}

func TestMe_MissingHeader(t *testing.T) {
	ts := newTestServer(t)

	apitest.New().
		Handler(ts.router).
		Get("/api/auth/me").
		Expect(t).
		Status(http.StatusUnauthorized).
		Assert(jsonpath.Equal(`$.error`, "bearer token required")).
		End()
}

// A syntactically valid token whose subject no longer exists gets the same
// coarse rejection as a forged one.
func TestMe_DeletedAccount(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser(t, "ghost", "pw123", false)
	token := ts.login(t, "ghost", "pw123")

	require.NoError(t, ts.db.Delete(user).Error)

	apitest.New().
		Handler(ts.router).
		Get("/api/auth/me").
		Header("Authorization", bearer(token)).
		Expect(t).
		Status(http.StatusUnauthorized).
		Assert(jsonpath.Equal(`$.error`, "invalid token")).
		End()
}

// Rotating the password is not revocation: sessions resolve by account id,
// so outstanding tokens keep working.
func TestChangePassword_KeepsSessionsAlive(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "alice", "pw123", false)
	token := ts.login(t, "alice", "pw123")

	apitest.New().
		Handler(ts.router).
		Put("/api/users/password").
		Header("Authorization", bearer(token)).
		JSON(`{"newPassword":"pw456"}`).
		Expect(t).
		Status(http.StatusOK).
		End()

	apitest.New().
		Handler(ts.router).
		Get("/api/auth/me").
		Header("Authorization", bearer(token)).
		Expect(t).
		Status(http.StatusOK).
		End()

	apitest.New().
		Handler(ts.router).
		Post("/api/auth/login").
		JSON(`{"username":"alice","password":"pw123"}`).
		Expect(t).
		Status(http.StatusUnauthorized).
		End()

	ts.login(t, "alice", "pw456")
}

// Renaming an account must not kill its sessions either: the subject claim
// is the immutable id, not the username.
func TestRename_KeepsSessionsAlive(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser(t, "alice", "pw123", false)
	token := ts.login(t, "alice", "pw123")

	require.NoError(t, ts.db.Model(user).Update("username", "alice2").Error)

	apitest.New().
		Handler(ts.router).
		Get("/api/auth/me").
		Header("Authorization", bearer(token)).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal(`$.username`, "alice2")).
		End()
}
