package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/welltrack/welltrack-api/internal/database/testutil"
	"github.com/welltrack/welltrack-api/internal/models"
)

type testClock struct {
	mu      sync.Mutex
	current time.Time
}

func newTestClock() *testClock {
	return &testClock{current: time.Date(2025, 12, 8, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	c.mu.Unlock()
}

func setupCredentialStore(t *testing.T) (*gorm.DB, *CredentialStore, *testClock) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	clock := newTestClock()
	store, err := NewCredentialStore(db, CredentialConfig{
		MaxFailedAttempts: 3,
		LockoutDuration:   10 * time.Minute,
		Clock:             clock.Now,
	})
	require.NoError(t, err)
	return db, store, clock
}

func setupLedger(t *testing.T) (*gorm.DB, *RefreshTokenLedger, *JWTService, *testClock) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	clock := newTestClock()
	issuer, err := NewJWTService(JWTConfig{Secret: "ledger-secret", Clock: clock.Now})
	require.NoError(t, err)
	ledger, err := NewRefreshTokenLedger(db, issuer, clock.Now)
	require.NoError(t, err)
	return db, ledger, issuer, clock
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	user := &models.User{Name: "Test", Email: email, PasswordHash: "x", EmailConfirmed: true}
	require.NoError(t, db.WithContext(context.Background()).Create(user).Error)
	return user
}
