package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/welltrack/welltrack-api/internal/api"
	"github.com/welltrack/welltrack-api/internal/app"
	"github.com/welltrack/welltrack-api/internal/app/maintenance"
	"github.com/welltrack/welltrack-api/internal/app/reminders"
	iauth "github.com/welltrack/welltrack-api/internal/auth"
	sharedtestutil "github.com/welltrack/welltrack-api/internal/database/testutil"
	"github.com/welltrack/welltrack-api/internal/middleware"
	"github.com/welltrack/welltrack-api/internal/realtime"
	"github.com/welltrack/welltrack-api/internal/services"
	"github.com/welltrack/welltrack-api/pkg/mail"
	"github.com/welltrack/welltrack-api/pkg/response"
)

// DefaultMotivation is returned by the stub motivation service.
const DefaultMotivation = "Small steps every day add up."

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T        *testing.T
	DB       *gorm.DB
	Router   *gin.Engine
	JWT      *iauth.JWTService
	Mailer   *mail.Recorder
	Hub      *realtime.Hub
	Accounts *services.AccountService
	Config   *app.Config
}

// EnvOption adjusts the configuration before the router is built.
type EnvOption func(*app.Config)

// WithRateLimit enables the auth route limiter.
func WithRateLimit(requests int, window time.Duration) EnvOption {
	return func(cfg *app.Config) {
		cfg.Server.RateLimit = app.RateLimitConfig{Requests: requests, Window: window}
	}
}

// NewEnv provisions a fresh handler test environment with migrations and seed data applied.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithSeedData())
	clock := func() time.Time { return time.Now().UTC() }

	motivation := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"message": DefaultMotivation})
	}))
	t.Cleanup(motivation.Close)

	cfg := &app.Config{
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret:   "test-suite-super-secret-key-32-bytes!!",
				Issuer:   "test-suite",
				Audience: "test-clients",
				TTL:      time.Hour,
			},
			Lockout: app.LockoutSettings{MaxFailedAttempts: 5, Duration: 15 * time.Minute},
		},
		Monitoring: app.MonitoringConfig{Prometheus: app.PrometheusConfig{Enabled: true}},
		Motivation: app.MotivationConfig{BaseURL: motivation.URL},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	jwtCfg := cfg.Auth.JWTServiceConfig()
	jwtCfg.Clock = clock
	jwtSvc, err := iauth.NewJWTService(jwtCfg)
	require.NoError(t, err)

	credCfg := cfg.Auth.CredentialConfig()
	credCfg.Clock = clock
	credentials, err := iauth.NewCredentialStore(db, credCfg)
	require.NoError(t, err)

	codes, err := services.NewOTPLedger(db, services.WithOTPClock(clock))
	require.NoError(t, err)

	tokens, err := iauth.NewRefreshTokenLedger(db, jwtSvc, clock)
	require.NoError(t, err)

	recorder := mail.NewRecorder()
	accounts, err := services.NewAccountService(credentials, codes, tokens, jwtSvc, recorder, services.WithAccountClock(clock))
	require.NoError(t, err)

	hub := realtime.NewHub()
	wellness, err := services.NewWellnessService(db, clock)
	require.NoError(t, err)
	notifications, err := services.NewNotificationService(db, hub, clock)
	require.NoError(t, err)
	motivationSvc, err := services.NewMotivationService(db, hub, services.MotivationConfig{
		BaseURL: cfg.Motivation.BaseURL,
		Clock:   clock,
	})
	require.NoError(t, err)

	sweeper, err := reminders.NewSweeper(db, wellness, notifications, reminders.Config{}, reminders.WithNow(clock))
	require.NoError(t, err)
	cleaner := maintenance.NewCleaner(tokens, credentials, maintenance.WithNow(clock))

	router, err := api.NewRouter(cfg, api.Dependencies{
		DB:            db,
		JWT:           jwtSvc,
		Accounts:      accounts,
		Wellness:      wellness,
		Notifications: notifications,
		Motivation:    motivationSvc,
		Hub:           hub,
		Sweeper:       sweeper,
		Cleaner:       cleaner,
		RateStore:     middleware.NewMemoryRateStore(),
	})
	require.NoError(t, err)

	return &Env{
		T:        t,
		DB:       db,
		Router:   router,
		JWT:      jwtSvc,
		Mailer:   recorder,
		Hub:      hub,
		Accounts: accounts,
		Config:   cfg,
	}
}

var mailedCode = regexp.MustCompile(`<b>(\d{6})</b>`)

// LastMailedCode extracts the one-time code from the most recent mail.
func (e *Env) LastMailedCode() string {
	e.T.Helper()

	msg, ok := e.Mailer.Last()
	require.True(e.T, ok, "expected a mail to be sent")
	match := mailedCode.FindStringSubmatch(msg.HTML)
	require.Len(e.T, match, 2, "mail body carries a code: %q", msg.HTML)
	return match[1]
}

// RegisterUser registers an account through the API and returns its id.
func (e *Env) RegisterUser(email, password string) string {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/auth/register", map[string]string{
		"name":     "Test User",
		"email":    email,
		"password": password,
	}, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	var data struct {
		UserID string `json:"user_id"`
	}
	DecodeInto(e.T, DecodeResponse(e.T, w).Data, &data)
	require.NotEmpty(e.T, data.UserID)
	return data.UserID
}

// CreateVerifiedUser registers and verifies a fresh account with a random email.
func (e *Env) CreateVerifiedUser(password string) (userID, email string) {
	e.T.Helper()

	email = "user-" + uuid.NewString()[:8] + "@example.com"
	userID = e.RegisterUser(email, password)
	code := e.LastMailedCode()

	w := e.Request(http.MethodPost, "/api/auth/verify-email?userId="+userID+"&code="+code, nil, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())
	return userID, email
}

// CreateAdmin seeds a confirmed administrator.
func (e *Env) CreateAdmin(email, password string) {
	e.T.Helper()

	_, err := e.Accounts.SeedAdmin(context.Background(), "Administrator", email, password)
	require.NoError(e.T, err)
}

// TokenPair mirrors the handler login response payload.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// Login signs in and returns the issued token pair.
func (e *Env) Login(email, password string) TokenPair {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result TokenPair
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.AccessToken)
	require.NotEmpty(e.T, result.RefreshToken)
	require.Greater(e.T, result.ExpiresIn, 0)
	return result
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	TraceID string              `json:"trace_id"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	buf := bytes.NewBuffer(nil)
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
