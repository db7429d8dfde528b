package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/welltrack/welltrack-api/internal/models"
	"github.com/welltrack/welltrack-api/pkg/metrics"
)

var (
	// ErrRefreshTokenNotFound indicates that no refresh token matches the supplied value.
	ErrRefreshTokenNotFound = errors.New("refresh token: not found")
	// ErrRefreshTokenInactive marks a token that is revoked, expired or lost a concurrent rotation.
	ErrRefreshTokenInactive = errors.New("refresh token: inactive")
)

// RefreshTokenLedger persists refresh tokens and maintains their rotation chain.
type RefreshTokenLedger struct {
	db     *gorm.DB
	issuer *JWTService
	now    func() time.Time
}

// NewRefreshTokenLedger builds a ledger. The issuer mints successors during rotation.
func NewRefreshTokenLedger(db *gorm.DB, issuer *JWTService, clock func() time.Time) (*RefreshTokenLedger, error) {
	if db == nil {
		return nil, errors.New("refresh token ledger: db is required")
	}
	if issuer == nil {
		return nil, errors.New("refresh token ledger: issuer is required")
	}
	if clock == nil {
		clock = time.Now
	}
	return &RefreshTokenLedger{db: db, issuer: issuer, now: clock}, nil
}

// Store persists a token produced by JWTService.CreateRefreshToken.
func (l *RefreshTokenLedger) Store(ctx context.Context, token *models.RefreshToken) error {
	if token == nil || token.Token == "" || token.UserID == "" {
		return errors.New("refresh token ledger: token and user id are required")
	}
	if err := l.db.WithContext(ctx).Create(token).Error; err != nil {
		return fmt.Errorf("refresh token ledger: store: %w", err)
	}
	return nil
}

// Find loads a token by its opaque value.
func (l *RefreshTokenLedger) Find(ctx context.Context, value string) (*models.RefreshToken, error) {
	return findRefreshToken(l.db.WithContext(ctx), value)
}

func findRefreshToken(db *gorm.DB, value string) (*models.RefreshToken, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, ErrRefreshTokenNotFound
	}

	var token models.RefreshToken
	err := db.Where("token = ?", value).Take(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRefreshTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("refresh token ledger: find: %w", err)
	}
	return &token, nil
}

// Rotate revokes the active token value and persists its successor in one transaction.
// The revocation only applies while revoked_at is still NULL, so of two concurrent
// rotations of the same token exactly one succeeds and the other gets ErrRefreshTokenInactive.
func (l *RefreshTokenLedger) Rotate(ctx context.Context, value, ipAddress string) (*models.RefreshToken, error) {
	var successor *models.RefreshToken

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := findRefreshToken(tx, value)
		if err != nil {
			return err
		}

		now := l.now()
		if !current.IsActive(now) {
			return ErrRefreshTokenInactive
		}

		next, err := l.issuer.CreateRefreshToken(ipAddress, current.UserID)
		if err != nil {
			return err
		}

		result := tx.Model(&models.RefreshToken{}).
			Where("token = ? AND revoked_at IS NULL", current.Token).
			Updates(map[string]any{
				"revoked_at":        now,
				"revoked_by_ip":     ipAddress,
				"replaced_by_token": next.Token,
			})
		if result.Error != nil {
			return fmt.Errorf("refresh token ledger: revoke current: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrRefreshTokenInactive
		}

		if err := tx.Create(next).Error; err != nil {
			return fmt.Errorf("refresh token ledger: store successor: %w", err)
		}

		successor = next
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrRefreshTokenNotFound) || errors.Is(err, ErrRefreshTokenInactive) {
			metrics.TokenRotations.WithLabelValues("rejected").Inc()
		}
		return nil, err
	}

	metrics.TokenRotations.WithLabelValues("rotated").Inc()
	return successor, nil
}

// Revoke marks an active token as revoked. Absent and already inactive tokens yield
// ErrRefreshTokenNotFound and ErrRefreshTokenInactive respectively.
func (l *RefreshTokenLedger) Revoke(ctx context.Context, value, ipAddress string) error {
	current, err := l.Find(ctx, value)
	if err != nil {
		return err
	}

	now := l.now()
	if !current.IsActive(now) {
		return ErrRefreshTokenInactive
	}

	result := l.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("token = ? AND revoked_at IS NULL", current.Token).
		Updates(map[string]any{
			"revoked_at":    now,
			"revoked_by_ip": ipAddress,
		})
	if result.Error != nil {
		return fmt.Errorf("refresh token ledger: revoke: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRefreshTokenInactive
	}
	return nil
}

// RevokeAllForUser revokes every active token belonging to userID.
func (l *RefreshTokenLedger) RevokeAllForUser(ctx context.Context, userID, ipAddress string) (int64, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, errors.New("refresh token ledger: user id is required")
	}

	now := l.now()
	result := l.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, now).
		Updates(map[string]any{
			"revoked_at":    now,
			"revoked_by_ip": ipAddress,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("refresh token ledger: revoke user tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CleanupExpired deletes tokens that expired or were revoked more than retention ago.
func (l *RefreshTokenLedger) CleanupExpired(ctx context.Context, retention time.Duration) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if retention < 0 {
		retention = 0
	}

	cutoff := l.now().Add(-retention)
	result := l.db.WithContext(ctx).
		Where("expires_at < ?", cutoff).
		Or("revoked_at IS NOT NULL AND revoked_at < ?", cutoff).
		Delete(&models.RefreshToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("refresh token ledger: cleanup: %w", result.Error)
	}
	return result.RowsAffected, nil
}
