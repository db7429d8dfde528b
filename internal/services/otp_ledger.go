package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/welltrack/welltrack-api/internal/models"
	"github.com/welltrack/welltrack-api/pkg/crypto"
	"github.com/welltrack/welltrack-api/pkg/metrics"
)

const (
	defaultOTPTTL    = 15 * time.Minute
	defaultOTPDigits = 6
)

// ErrOTPNotFound indicates there is no usable code for the lookup.
var ErrOTPNotFound = errors.New("otp: no active code")

// OTPOption customises the OTPLedger.
type OTPOption func(*OTPLedger)

// WithOTPTTL overrides how long issued codes remain valid.
func WithOTPTTL(d time.Duration) OTPOption {
	return func(l *OTPLedger) {
		if d > 0 {
			l.ttl = d
		}
	}
}

// WithOTPClock injects a custom time source.
func WithOTPClock(clock func() time.Time) OTPOption {
	return func(l *OTPLedger) {
		if clock != nil {
			l.now = clock
		}
	}
}

// OTPLedger issues and looks up one-time codes. Codes are never deleted; newer codes
// take priority over older ones that are still within their validity window.
type OTPLedger struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// NewOTPLedger constructs a ledger backed by db.
func NewOTPLedger(db *gorm.DB, opts ...OTPOption) (*OTPLedger, error) {
	if db == nil {
		return nil, errors.New("otp ledger: db is required")
	}

	ledger := &OTPLedger{db: db, ttl: defaultOTPTTL, now: time.Now}
	for _, opt := range opts {
		opt(ledger)
	}
	return ledger, nil
}

// TTL reports how long issued codes stay valid.
func (l *OTPLedger) TTL() time.Duration {
	return l.ttl
}

// Issue creates a fresh code for userID and purpose.
func (l *OTPLedger) Issue(ctx context.Context, userID string, purpose models.OTPPurpose) (*models.OneTimeCode, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("otp ledger: user id is required")
	}
	if !purpose.Valid() {
		return nil, fmt.Errorf("otp ledger: unknown purpose %q", purpose)
	}

	code, err := crypto.GenerateNumericCode(defaultOTPDigits)
	if err != nil {
		return nil, fmt.Errorf("otp ledger: generate code: %w", err)
	}

	now := l.now()
	record := &models.OneTimeCode{
		UserID:    userID,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: now.Add(l.ttl),
	}
	record.CreatedAt = now

	if err := l.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, fmt.Errorf("otp ledger: store code: %w", err)
	}

	metrics.OTPIssued.WithLabelValues(string(purpose)).Inc()
	return record, nil
}

// Latest returns the newest unconsumed, unexpired code for userID and purpose.
func (l *OTPLedger) Latest(ctx context.Context, userID string, purpose models.OTPPurpose) (*models.OneTimeCode, error) {
	var code models.OneTimeCode
	err := l.db.WithContext(ctx).
		Where("user_id = ? AND purpose = ? AND consumed_at IS NULL AND expires_at > ?", userID, purpose, l.now()).
		Order("created_at DESC").
		Take(&code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOTPNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("otp ledger: find code: %w", err)
	}
	return &code, nil
}

// LatestUnverified returns Latest only while it has not passed the reset pre-check.
// Older codes stay superseded even when the newest one is already verified.
func (l *OTPLedger) LatestUnverified(ctx context.Context, userID string, purpose models.OTPPurpose) (*models.OneTimeCode, error) {
	code, err := l.Latest(ctx, userID, purpose)
	if err != nil {
		return nil, err
	}
	if code.VerifiedAt != nil {
		return nil, ErrOTPNotFound
	}
	return code, nil
}

// Consume marks code as used. A code can only be consumed once.
func (l *OTPLedger) Consume(ctx context.Context, code *models.OneTimeCode) error {
	now := l.now()
	result := l.db.WithContext(ctx).
		Model(&models.OneTimeCode{}).
		Where("id = ? AND consumed_at IS NULL", code.ID).
		Update("consumed_at", now)
	if result.Error != nil {
		return fmt.Errorf("otp ledger: consume code: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrOTPNotFound
	}
	code.ConsumedAt = &now
	return nil
}

// MarkVerified stamps a successful pre-check without consuming the code.
func (l *OTPLedger) MarkVerified(ctx context.Context, code *models.OneTimeCode) error {
	now := l.now()
	result := l.db.WithContext(ctx).
		Model(&models.OneTimeCode{}).
		Where("id = ? AND verified_at IS NULL AND consumed_at IS NULL", code.ID).
		Update("verified_at", now)
	if result.Error != nil {
		return fmt.Errorf("otp ledger: mark verified: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrOTPNotFound
	}
	code.VerifiedAt = &now
	return nil
}
