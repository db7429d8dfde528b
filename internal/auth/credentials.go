package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/welltrack/welltrack-api/internal/models"
	"github.com/welltrack/welltrack-api/pkg/crypto"
)

const (
	defaultMaxFailedAttempts = 5
	defaultLockoutDuration   = 15 * time.Minute
	defaultResetTokenTTL     = 15 * time.Minute
	resetTokenBytes          = 32
)

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("credentials: user not found")
	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("credentials: email already registered")
	// ErrInvalidResetToken marks an unknown, used or expired password reset token.
	ErrInvalidResetToken = errors.New("credentials: invalid password reset token")
)

// CredentialConfig defines tunable behaviour for the credential store.
type CredentialConfig struct {
	MaxFailedAttempts int
	LockoutDuration   time.Duration
	ResetTokenTTL     time.Duration
	Policy            *PasswordPolicy
	Clock             func() time.Time
}

// CreateUserInput captures the details required to create a user.
type CreateUserInput struct {
	Name           string
	Email          string
	Password       string
	EmailConfirmed bool
}

// CredentialStore owns user identity rows: password hashes, confirmation and lockout state.
type CredentialStore struct {
	db         *gorm.DB
	now        func() time.Time
	maxFailed  int
	lockoutFor time.Duration
	resetTTL   time.Duration
	policy     PasswordPolicy
}

// NewCredentialStore builds a store with sane defaults.
func NewCredentialStore(db *gorm.DB, cfg CredentialConfig) (*CredentialStore, error) {
	if db == nil {
		return nil, errors.New("credential store: db is required")
	}

	store := &CredentialStore{
		db:         db,
		now:        time.Now,
		maxFailed:  cfg.MaxFailedAttempts,
		lockoutFor: cfg.LockoutDuration,
		resetTTL:   cfg.ResetTokenTTL,
		policy:     DefaultPasswordPolicy(),
	}
	if cfg.Clock != nil {
		store.now = cfg.Clock
	}
	if store.maxFailed <= 0 {
		store.maxFailed = defaultMaxFailedAttempts
	}
	if store.lockoutFor <= 0 {
		store.lockoutFor = defaultLockoutDuration
	}
	if store.resetTTL <= 0 {
		store.resetTTL = defaultResetTokenTTL
	}
	if cfg.Policy != nil {
		store.policy = *cfg.Policy
	}
	return store, nil
}

// MaxFailedAttempts is the number of consecutive failures that engage the lockout.
func (s *CredentialStore) MaxFailedAttempts() int {
	return s.maxFailed
}

// NormalizeEmail lowercases and trims an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts a new user. A taken email wins over a weak password; otherwise a
// *PasswordPolicyError lists every violated rule.
func (s *CredentialStore) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	email := NormalizeEmail(input.Email)
	if email == "" {
		return nil, errors.New("credential store: email is required")
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("credential store: check email: %w", err)
	}
	if existing > 0 {
		return nil, ErrEmailTaken
	}

	if err := s.policy.Check(input.Password); err != nil {
		return nil, err
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("credential store: hash password: %w", err)
	}

	user := &models.User{
		Name:           strings.TrimSpace(input.Name),
		Email:          email,
		PasswordHash:   hashed,
		EmailConfirmed: input.EmailConfirmed,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("credential store: create user: %w", err)
	}

	return user, nil
}

// FindByEmail loads a user and their roles by email.
func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrUserNotFound
	}
	return s.find(ctx, "email = ?", email)
}

// FindByID loads a user and their roles by id.
func (s *CredentialStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrUserNotFound
	}
	return s.find(ctx, "id = ?", id)
}

func (s *CredentialStore) find(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Roles").Where(query, arg).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("credential store: query user: %w", err)
	}
	return &user, nil
}

// CheckPassword reports whether password matches the stored hash.
func (s *CredentialStore) CheckPassword(user *models.User, password string) bool {
	if user == nil || password == "" {
		return false
	}
	return crypto.VerifyPassword(user.PasswordHash, password)
}

// IsLockedOut reports whether the user's lockout is currently in force.
func (s *CredentialStore) IsLockedOut(user *models.User) bool {
	return user != nil && user.Lockout.Active(s.now())
}

// RecordFailure counts a failed sign-in and reports whether it engaged the lockout.
func (s *CredentialStore) RecordFailure(ctx context.Context, user *models.User) (bool, error) {
	locked := user.Lockout.RecordFailure(s.now(), s.maxFailed, s.lockoutFor)
	if err := s.saveLockout(ctx, user); err != nil {
		return false, err
	}
	return locked, nil
}

// RecordSuccess clears the failure count and stamps the login.
func (s *CredentialStore) RecordSuccess(ctx context.Context, user *models.User, ipAddress string) error {
	now := s.now()
	user.Lockout.RecordSuccess()
	user.LastLoginAt = &now
	user.LastLoginIP = strings.TrimSpace(ipAddress)

	err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]any{
		"failed_attempts": user.Lockout.FailedAttempts,
		"locked_until":    nil,
		"last_login_at":   now,
		"last_login_ip":   user.LastLoginIP,
	}).Error
	if err != nil {
		return fmt.Errorf("credential store: record success: %w", err)
	}
	return nil
}

func (s *CredentialStore) saveLockout(ctx context.Context, user *models.User) error {
	updates := map[string]any{
		"failed_attempts": user.Lockout.FailedAttempts,
		"locked_until":    nil,
	}
	if user.Lockout.LockedUntil != nil {
		updates["locked_until"] = *user.Lockout.LockedUntil
	}

	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("credential store: update lockout: %w", err)
	}
	return nil
}

// Confirm marks the user's email as confirmed.
func (s *CredentialStore) Confirm(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Update("email_confirmed", true).Error; err != nil {
		return fmt.Errorf("credential store: confirm email: %w", err)
	}
	user.EmailConfirmed = true
	return nil
}

// EnsureRole returns the named role, creating it when absent.
func (s *CredentialStore) EnsureRole(ctx context.Context, name string) (*models.Role, error) {
	role := models.Role{Name: name, IsSystem: true}
	if err := s.db.WithContext(ctx).Where(models.Role{Name: name}).Attrs(role).FirstOrCreate(&role).Error; err != nil {
		return nil, fmt.Errorf("credential store: ensure role %q: %w", name, err)
	}
	return &role, nil
}

// AddToRole assigns role to user. Assigning an existing role is a no-op.
func (s *CredentialStore) AddToRole(ctx context.Context, user *models.User, role *models.Role) error {
	for _, existing := range user.Roles {
		if existing.ID == role.ID {
			return nil
		}
	}
	if err := s.db.WithContext(ctx).Model(user).Association("Roles").Append(role); err != nil {
		return fmt.Errorf("credential store: add role %q: %w", role.Name, err)
	}
	return nil
}

// Roles returns the role names assigned to user.
func (s *CredentialStore) Roles(ctx context.Context, user *models.User) ([]string, error) {
	var roles []models.Role
	if err := s.db.WithContext(ctx).Model(user).Association("Roles").Find(&roles); err != nil {
		return nil, fmt.Errorf("credential store: load roles: %w", err)
	}
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, role.Name)
	}
	return names, nil
}

// GeneratePasswordResetToken issues a single-use token authorising one password change.
func (s *CredentialStore) GeneratePasswordResetToken(ctx context.Context, user *models.User) (string, error) {
	token, err := crypto.GenerateToken(resetTokenBytes)
	if err != nil {
		return "", fmt.Errorf("credential store: generate reset token: %w", err)
	}

	record := &models.PasswordResetToken{
		UserID:    user.ID,
		TokenHash: crypto.HashToken(token),
		ExpiresAt: s.now().Add(s.resetTTL),
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return "", fmt.Errorf("credential store: store reset token: %w", err)
	}
	return token, nil
}

// ResetPassword applies newPassword when token is a live reset token for user.
// The token is spent and the hash replaced in the same transaction.
func (s *CredentialStore) ResetPassword(ctx context.Context, user *models.User, token, newPassword string) error {
	if err := s.policy.Check(newPassword); err != nil {
		return err
	}

	hashed, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("credential store: hash password: %w", err)
	}

	now := s.now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.PasswordResetToken{}).
			Where("user_id = ? AND token_hash = ? AND used_at IS NULL AND expires_at > ?", user.ID, crypto.HashToken(token), now).
			Update("used_at", now)
		if result.Error != nil {
			return fmt.Errorf("credential store: spend reset token: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrInvalidResetToken
		}

		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Update("password_hash", hashed).Error; err != nil {
			return fmt.Errorf("credential store: update password: %w", err)
		}
		user.PasswordHash = hashed
		return nil
	})
}

// CleanupResetTokens deletes reset tokens that were used or expired before cutoff.
func (s *CredentialStore) CleanupResetTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at < ?", cutoff).
		Or("used_at IS NOT NULL AND used_at < ?", cutoff).
		Delete(&models.PasswordResetToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("credential store: cleanup reset tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}
