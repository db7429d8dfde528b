package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	iauth "github.com/welltrack/welltrack-api/internal/auth"
	"github.com/welltrack/welltrack-api/pkg/logger"
)

const (
	defaultTokenRetention = 7 * 24 * time.Hour
	defaultTokenSpec      = "@daily"
)

// Cleaner purges refresh tokens and password reset tokens that can no longer be used.
// One-time codes are kept as history.
type Cleaner struct {
	tokens      *iauth.RefreshTokenLedger
	credentials *iauth.CredentialStore
	cron        *cron.Cron
	now         func() time.Time
	log         *zap.Logger
	retention   time.Duration
	schedule    string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for cleanup cutoffs.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithRetention keeps revoked and expired rows for d before deleting them.
func WithRetention(d time.Duration) Option {
	return func(cleaner *Cleaner) {
		if d >= 0 {
			cleaner.retention = d
		}
	}
}

// WithSchedule overrides the cron expression of the cleanup job.
func WithSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.schedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner. A nil store skips its part of the cleanup.
func NewCleaner(tokens *iauth.RefreshTokenLedger, credentials *iauth.CredentialStore, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		tokens:      tokens,
		credentials: credentials,
		now:         time.Now,
		retention:   defaultTokenRetention,
		schedule:    defaultTokenSpec,
		log:         logger.WithModule("maintenance"),
	}
	for _, opt := range opts {
		opt(cleaner)
	}
	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return cleaner
}

// Start registers the cleanup job and launches the scheduler.
func (c *Cleaner) Start() error {
	if c.tokens == nil && c.credentials == nil {
		return nil
	}

	if _, err := c.cron.AddFunc(c.schedule, func() {
		if err := c.RunOnce(context.Background()); err != nil {
			c.log.Warn("token cleanup failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	c.cron.Start()
	return nil
}

// Stop halts the scheduler. The returned context is done once running jobs finish.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// Stats reports how many rows a cleanup pass removed.
type Stats struct {
	RefreshTokens  int64 `json:"refresh_tokens"`
	PasswordResets int64 `json:"password_resets"`
}

// RunOnce executes every cleanup routine, collecting failures instead of stopping at the first.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	_, err := c.Run(ctx)
	return err
}

// Run is RunOnce with the removal counts.
func (c *Cleaner) Run(ctx context.Context) (Stats, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		stats Stats
		errs  error
	)

	if c.tokens != nil {
		removed, err := c.tokens.CleanupExpired(ctx, c.retention)
		errs = multierr.Append(errs, err)
		stats.RefreshTokens = removed
	}

	if c.credentials != nil {
		removed, err := c.credentials.CleanupResetTokens(ctx, c.now().Add(-c.retention))
		errs = multierr.Append(errs, err)
		stats.PasswordResets = removed
	}

	if errs == nil && (stats.RefreshTokens > 0 || stats.PasswordResets > 0) {
		c.log.Info("tokens cleaned up",
			zap.Int64("refresh_tokens", stats.RefreshTokens),
			zap.Int64("password_resets", stats.PasswordResets))
	}
	return stats, errs
}
