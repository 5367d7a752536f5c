package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/flagforge/api/internal/auth"
	"github.com/flagforge/api/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Team{},
		&model.RevokedToken{},
	))
	return db
}

func TestLedger_RevokeThenDuplicate(t *testing.T) {
	t.Parallel()

	ledger := NewLedger(testDB(t))
	ctx := context.Background()

	status, err := ledger.Revoke(ctx, "token-a")
	require.NoError(t, err)
	assert.Equal(t, auth.RevocationAdded, status)

	status, err = ledger.Revoke(ctx, "token-a")
	require.NoError(t, err)
	assert.Equal(t, auth.RevocationDuplicate, status)
}

func TestLedger_IsRevoked(t *testing.T) {
	t.Parallel()

	ledger := NewLedger(testDB(t))
	ctx := context.Background()

	revoked, err := ledger.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.False(t, revoked)

	_, err = ledger.Revoke(ctx, "token-a")
	require.NoError(t, err)

	revoked, err = ledger.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = ledger.IsRevoked(ctx, "token-b")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestLedger_ConcurrentRevoke(t *testing.T) {
	t.Parallel()

	ledger := NewLedger(testDB(t))
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan auth.RevocationStatus, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, err := ledger.Revoke(ctx, "contended-token")
			assert.NoError(t, err)
			results <- status
		}()
	}
	wg.Wait()
	close(results)

	added := 0
	for status := range results {
		if status == auth.RevocationAdded {
			added++
		}
	}
	assert.Equal(t, 1, added)
}
