package services

import (
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/welltrack/welltrack-api/internal/auth"
	"github.com/welltrack/welltrack-api/internal/database/testutil"
	"github.com/welltrack/welltrack-api/internal/models"
	"github.com/welltrack/welltrack-api/internal/realtime"
	"github.com/welltrack/welltrack-api/pkg/mail"
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

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

type accountFixture struct {
	db          *gorm.DB
	clock       *testClock
	mailer      *mail.Recorder
	credentials *auth.CredentialStore
	codes       *OTPLedger
	tokens      *auth.RefreshTokenLedger
	issuer      *auth.JWTService
	svc         *AccountService
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	clock := newTestClock()

	credentials, err := auth.NewCredentialStore(db, auth.CredentialConfig{
		MaxFailedAttempts: 5,
		LockoutDuration:   15 * time.Minute,
		Clock:             clock.Now,
	})
	require.NoError(t, err)

	codes, err := NewOTPLedger(db, WithOTPClock(clock.Now))
	require.NoError(t, err)

	issuer, err := auth.NewJWTService(auth.JWTConfig{
		Secret:   "account-secret",
		Issuer:   "welltrack",
		Audience: "welltrack-web",
		Clock:    clock.Now,
	})
	require.NoError(t, err)

	tokens, err := auth.NewRefreshTokenLedger(db, issuer, clock.Now)
	require.NoError(t, err)

	recorder := mail.NewRecorder()
	svc, err := NewAccountService(credentials, codes, tokens, issuer, recorder, WithAccountClock(clock.Now))
	require.NoError(t, err)

	return &accountFixture{
		db:          db,
		clock:       clock,
		mailer:      recorder,
		credentials: credentials,
		codes:       codes,
		tokens:      tokens,
		issuer:      issuer,
		svc:         svc,
	}
}

var mailedCode = regexp.MustCompile(`<b>(\d{6})</b>`)

// lastCode extracts the code from the most recent mail.
func (f *accountFixture) lastCode(t *testing.T) string {
	t.Helper()

	msg, ok := f.mailer.Last()
	require.True(t, ok, "expected a mail to be sent")
	match := mailedCode.FindStringSubmatch(msg.HTML)
	require.Len(t, match, 2, "mail body carries a code: %q", msg.HTML)
	return match[1]
}

func wrongCode(code string) string {
	if code == "111111" {
		return "222222"
	}
	return "111111"
}

// seedUser inserts a confirmed user without going through registration.
func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	user := &models.User{Name: email, Email: email, PasswordHash: "x", EmailConfirmed: true}
	require.NoError(t, db.Create(user).Error)
	return user
}

type sentMessage struct {
	stream  string
	userID  string
	message realtime.Message
}

// recordingHub captures broadcasts in place of a websocket hub.
type recordingHub struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (h *recordingHub) BroadcastToUser(stream, userID string, message realtime.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	message.Stream = stream
	h.sent = append(h.sent, sentMessage{stream: stream, userID: userID, message: message})
}

func (h *recordingHub) BroadcastStream(stream string, message realtime.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	message.Stream = stream
	h.sent = append(h.sent, sentMessage{stream: stream, message: message})
}

func (h *recordingHub) messages() []sentMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]sentMessage(nil), h.sent...)
}
