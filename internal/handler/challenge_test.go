package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"testing"

	"github.com/steinfletcher/apitest"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"
)

func (ts *testServer) createChallenge(t *testing.T, adminToken, name, flag string, points int) {
	t.Helper()
	apitest.New().
		Handler(ts.router).
		Post("/api/challenges").
		Header("Authorization", bearer(adminToken)).
		JSON(`{"name":"` + name + `","description":"d","flag":"` + flag + `","points":` + strconv.Itoa(points) + `}`).
		Expect(t).
		Status(http.StatusCreated).
		End()
}

func TestChallengeCreate_AdminOnly(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "admin", "adminpw", true)
	ts.createUser(t, "alice", "pw123", false)

	apitest.New().
		Handler(ts.router).
		Post("/api/challenges").
		Header("Authorization", bearer(ts.login(t, "alice", "pw123"))).
		JSON(`{"name":"warmup","flag":"flag{x}","points":50}`).
		Expect(t).
		Status(http.StatusForbidden).
		End()

	adminToken := ts.login(t, "admin", "adminpw")
	ts.createChallenge(t, adminToken, "warmup", "flag{x}", 50)

	// Challenge names are unique.
	apitest.New().
		Handler(ts.router).
		Post("/api/challenges").
		Header("Authorization", bearer(adminToken)).
		JSON(`{"name":"warmup","flag":"flag{y}","points":100}`).
		Expect(t).
		Status(http.StatusConflict).
		End()
}

// The listing never exposes the flag itself, only its digest.
func TestChallengeList_HidesFlag(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "admin", "adminpw", true)
	ts.createUser(t, "alice", "pw123", false)
	ts.createChallenge(t, ts.login(t, "admin", "adminpw"), "warmup", "flag{secret}", 50)

	digest := sha256.Sum256([]byte("flag{secret}"))

	apitest.New().
		Handler(ts.router).
		Get("/api/challenges").
		Header("Authorization", bearer(ts.login(t, "alice", "pw123"))).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal(`$.challenges[0].name`, "warmup")).
		Assert(jsonpath.Equal(`$.challenges[0].flagHash`, hex.EncodeToString(digest[:]))).
		Assert(jsonpath.NotPresent(`$.challenges[0].flag`)).
		End()
}

func TestSolveFlow(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "admin", "adminpw", true)
	ts.createUser(t, "alice", "pw123", false)
	ts.createChallenge(t, ts.login(t, "admin", "adminpw"), "warmup", "flag{x}", 50)

	token := ts.login(t, "alice", "pw123")

	// No team yet: submissions are refused.
	apitest.New().
		Handler(ts.router).
		Post("/api/challenges/1/solve").
		Header("Authorization", bearer(token)).
		JSON(`{"flag":"flag{x}"}`).
		Expect(t).
		Status(http.StatusForbidden).
		End()

	apitest.New().
		Handler(ts.router).
		Post("/api/teams").
		Header("Authorization", bearer(token)).
		JSON(`{"name":"hackers","password":"teampw"}`).
		Expect(t).
		Status(http.StatusCreated).
		End()

	// Team membership is re-resolved per request from the token, so the
	// same token works after joining.
	apitest.New().
		Handler(ts.router).
		Post("/api/challenges/1/solve").
		Header("Authorization", bearer(token)).
		JSON(`{"flag":"flag{wrong}"}`).
		Expect(t).
		Status(http.StatusForbidden).
		Assert(jsonpath.Equal(`$.error`, "flag does not match for challenge")).
		End()

	apitest.New().
		Handler(ts.router).
		Post("/api/challenges/1/solve").
		Header("Authorization", bearer(token)).
		JSON(`{"flag":"flag{x}"}`).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal(`$.message`, "challenge solved")).
		End()

	// One solve per team per challenge.
	apitest.New().
		Handler(ts.router).
		Post("/api/challenges/1/solve").
		Header("Authorization", bearer(token)).
		JSON(`{"flag":"flag{x}"}`).
		Expect(t).
		Status(http.StatusConflict).
		Assert(jsonpath.Equal(`$.error`, "already solved")).
		End()

	apitest.New().
		Handler(ts.router).
		Get("/api/challenges/1/solves").
		Header("Authorization", bearer(token)).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Len(`$.solves`, 1)).
		Assert(jsonpath.Equal(`$.solves[0].teamName`, "hackers")).
		End()

	apitest.New().
		Handler(ts.router).
		Get("/api/challenges").
		Header("Authorization", bearer(token)).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal(`$.challenges[0].solveCount`, float64(1))).
		End()
}

func TestSolve_UnknownChallenge(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "alice", "pw123", false)
	token := ts.login(t, "alice", "pw123")

	apitest.New().
		Handler(ts.router).
		Post("/api/teams").
		Header("Authorization", bearer(token)).
		JSON(`{"name":"hackers","password":"teampw"}`).
		Expect(t).
		Status(http.StatusCreated).
		End()

	apitest.New().
		Handler(ts.router).
		Post("/api/challenges/999/solve").
		Header("Authorization", bearer(token)).
		JSON(`{"flag":"flag{x}"}`).
		Expect(t).
		Status(http.StatusNotFound).
		End()
}

func TestChallengeUpdate(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "admin", "adminpw", true)
	adminToken := ts.login(t, "admin", "adminpw")
	ts.createChallenge(t, adminToken, "warmup", "flag{x}", 50)
	ts.createUser(t, "alice", "pw123", false)

	apitest.New().
		Handler(ts.router).
		Put("/api/challenges/1").
		Header("Authorization", bearer(adminToken)).
		JSON(`{"points":75}`).
		Expect(t).
		Status(http.StatusOK).
		End()

	apitest.New().
		Handler(ts.router).
		Get("/api/challenges").
		Header("Authorization", bearer(ts.login(t, "alice", "pw123"))).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal(`$.challenges[0].points`, float64(75))).
		Assert(jsonpath.Equal(`$.challenges[0].name`, "warmup")).
		End()

	apitest.New().
		Handler(ts.router).
		Put("/api/challenges/999").
		Header("Authorization", bearer(adminToken)).
		JSON(`{"points":75}`).
		Expect(t).
		Status(http.StatusNotFound).
		End()
}
