package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/flagforge/api/internal/auth"
	"github.com/flagforge/api/internal/model"
	"github.com/flagforge/api/internal/storage"
	"github.com/flagforge/api/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// Cheap argon2 parameters so the suite is not dominated by the KDF.
var testHashParams = auth.Argon2Params{Time: 1, Memory: 64, Threads: 1, KeyLen: 32, SaltLen: 16}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	codec  *auth.Codec
	hasher auth.Hasher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Team{},
		&model.Challenge{},
		&model.ChallengeFile{},
		&model.Solve{},
		&model.RevokedToken{},
		&model.Announcement{},
	))

	hasher := auth.NewArgon2Hasher(testHashParams)
	codec := auth.NewCodec([]byte("test-secret"))
	verifier := auth.NewVerifier(codec, store.NewLedger(db), store.NewAccounts(db))

	fileStore, err := storage.NewLocalStore(filepath.Join(t.TempDir(), "files"))
	require.NoError(t, err)

	router := NewRouter(RouterConfig{
		DB:            db,
		Hasher:        hasher,
		Codec:         codec,
		Verifier:      verifier,
		Store:         fileStore,
		TokenLifetime: time.Hour,
		ScoreboardTTL: time.Second,
		Logger:        zerolog.Nop(),
	})

	return &testServer{router: router, db: db, codec: codec, hasher: hasher}
}

func (ts *testServer) createUser(t *testing.T, username, password string, admin bool) *model.User {
	t.Helper()
	hash, err := ts.hasher.Hash(context.Background(), password)
	require.NoError(t, err)
	user := &model.User{
		Username: username,
		Email:    username + "@example.com",
		PassHash: hash,
		Admin:    admin,
	}
	require.NoError(t, ts.db.Create(user).Error)
	return user
}

func (ts *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"password":%q}`, username, password)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	require.Equal(t, "bearer", resp.TokenType)
	return resp.AccessToken
}

func bearer(token string) string {
	return "Bearer " + token
}
