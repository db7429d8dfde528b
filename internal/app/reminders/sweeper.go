// Package reminders runs the periodic wellness sweep that nudges users about hydration and steps.
package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/welltrack/welltrack-api/internal/models"
	"github.com/welltrack/welltrack-api/internal/services"
	"github.com/welltrack/welltrack-api/pkg/logger"
	"github.com/welltrack/welltrack-api/pkg/metrics"
)

const (
	defaultSchedule        = "@every 30m"
	defaultHydrationWindow = 4 * time.Hour
	defaultStepGoal        = 3000

	hydrationMessage = "You haven’t drunk water in the last 4 hours 💧"
	lowStepsMessage  = "Today you walked less than usual 🚶"
)

// Config tunes the sweep.
type Config struct {
	Schedule        string
	HydrationWindow time.Duration
	StepGoal        int
}

// Stats summarises one sweep.
type Stats struct {
	Users     int `json:"users"`
	Hydration int `json:"hydration_reminders"`
	LowSteps  int `json:"low_steps_warnings"`
	Failed    int `json:"failed"`
}

// Sweeper checks every confirmed user's wellness logs and files reminders.
type Sweeper struct {
	db            *gorm.DB
	wellness      *services.WellnessService
	notifications *services.NotificationService
	cfg           Config
	cron          *cron.Cron
	now           func() time.Time
	log           *zap.Logger
}

// Option customises the Sweeper.
type Option func(*Sweeper)

// WithCron injects a preconfigured cron instance.
func WithCron(c *cron.Cron) Option {
	return func(s *Sweeper) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithNow overrides the sweep clock.
func WithNow(now func() time.Time) Option {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSweeper constructs a Sweeper. Zero config values fall back to a 30 minute schedule,
// a 4 hour hydration window and a 3000 step goal.
func NewSweeper(db *gorm.DB, wellness *services.WellnessService, notifications *services.NotificationService, cfg Config, opts ...Option) (*Sweeper, error) {
	if db == nil || wellness == nil || notifications == nil {
		return nil, errors.New("reminders: db, wellness and notification services are required")
	}
	if cfg.Schedule == "" {
		cfg.Schedule = defaultSchedule
	}
	if cfg.HydrationWindow <= 0 {
		cfg.HydrationWindow = defaultHydrationWindow
	}
	if cfg.StepGoal <= 0 {
		cfg.StepGoal = defaultStepGoal
	}

	s := &Sweeper{
		db:            db,
		wellness:      wellness,
		notifications: notifications,
		cfg:           cfg,
		now:           time.Now,
		log:           logger.WithModule("reminders"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cron == nil {
		s.cron = cron.New(cron.WithLogger(cron.DiscardLogger), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	}
	return s, nil
}

// Start schedules the sweep.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		stats, err := s.Sweep(context.Background())
		if err != nil {
			s.log.Warn("reminder sweep finished with errors", zap.Int("failed", stats.Failed), zap.Error(err))
			return
		}
		s.log.Debug("reminder sweep finished",
			zap.Int("users", stats.Users),
			zap.Int("hydration", stats.Hydration),
			zap.Int("low_steps", stats.LowSteps))
	}); err != nil {
		return fmt.Errorf("reminders: schedule %q: %w", s.cfg.Schedule, err)
	}
	s.cron.Start()
	return nil
}

// Stop halts the scheduler. The returned context is done once a running sweep finishes.
func (s *Sweeper) Stop() context.Context {
	return s.cron.Stop()
}

// Sweep evaluates every confirmed user once. A failing user is logged and skipped.
func (s *Sweeper) Sweep(ctx context.Context) (Stats, error) {
	var stats Stats

	var userIDs []string
	if err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email_confirmed = ?", true).
		Order("created_at").
		Pluck("id", &userIDs).Error; err != nil {
		return stats, fmt.Errorf("reminders: list users: %w", err)
	}

	var errs error
	now := s.now()
	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return stats, multierr.Append(errs, err)
		}
		stats.Users++
		if err := s.checkUser(ctx, userID, now, &stats); err != nil {
			stats.Failed++
			s.log.Warn("reminder check failed", zap.String("user_id", userID), zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}
	return stats, errs
}

func (s *Sweeper) checkUser(ctx context.Context, userID string, now time.Time, stats *Stats) error {
	last, err := s.wellness.LastHydrationAt(ctx, userID)
	if err != nil {
		return err
	}
	if last == nil || now.Sub(*last) > s.cfg.HydrationWindow {
		if err := s.notify(ctx, userID, models.NotificationHydrationReminder, hydrationMessage); err != nil {
			return err
		}
		stats.Hydration++
	}

	steps, err := s.wellness.StepsOn(ctx, userID, now)
	if err != nil {
		return err
	}
	if steps < s.cfg.StepGoal {
		if err := s.notify(ctx, userID, models.NotificationLowStepsWarning, lowStepsMessage); err != nil {
			return err
		}
		stats.LowSteps++
	}
	return nil
}

func (s *Sweeper) notify(ctx context.Context, userID, kind, message string) error {
	if _, err := s.notifications.Create(ctx, services.CreateNotificationInput{
		UserID:  userID,
		Type:    kind,
		Message: message,
	}); err != nil {
		return err
	}
	metrics.RemindersSent.WithLabelValues(kind).Inc()
	return nil
}
