package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/welltrack/welltrack-api/internal/auth"
	"github.com/welltrack/welltrack-api/internal/models"
	appErrors "github.com/welltrack/welltrack-api/pkg/errors"
	"github.com/welltrack/welltrack-api/pkg/logger"
	"github.com/welltrack/welltrack-api/pkg/mail"
	"github.com/welltrack/welltrack-api/pkg/metrics"
)

const (
	verificationSubject = "Your WellTrack OTP"
	resetSubject        = "Reset Your Password"
)

// RegisterInput carries a registration request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// LoginInput carries a sign-in request.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult holds the credentials minted by a successful sign-in or refresh.
type LoginResult struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// Profile is the public view of the signed-in user.
type Profile struct {
	ID             string   `json:"id"`
	Email          string   `json:"email"`
	Name           string   `json:"name"`
	EmailConfirmed bool     `json:"email_confirmed"`
	Roles          []string `json:"roles"`
}

// AccountOption customises the AccountService.
type AccountOption func(*AccountService)

// WithAccountClock injects a custom time source.
func WithAccountClock(clock func() time.Time) AccountOption {
	return func(s *AccountService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithAccountLogger overrides the service logger.
func WithAccountLogger(log *zap.Logger) AccountOption {
	return func(s *AccountService) {
		if log != nil {
			s.log = log
		}
	}
}

// AccountService drives the account lifecycle: registration, email verification, sign-in
// with lockout, refresh token rotation and the password reset flow.
type AccountService struct {
	credentials *auth.CredentialStore
	codes       *OTPLedger
	tokens      *auth.RefreshTokenLedger
	issuer      *auth.JWTService
	mailer      mail.Mailer
	log         *zap.Logger
	now         func() time.Time
}

// NewAccountService wires the account lifecycle service.
func NewAccountService(credentials *auth.CredentialStore, codes *OTPLedger, tokens *auth.RefreshTokenLedger, issuer *auth.JWTService, mailer mail.Mailer, opts ...AccountOption) (*AccountService, error) {
	switch {
	case credentials == nil:
		return nil, errors.New("account service: credential store is required")
	case codes == nil:
		return nil, errors.New("account service: otp ledger is required")
	case tokens == nil:
		return nil, errors.New("account service: refresh token ledger is required")
	case issuer == nil:
		return nil, errors.New("account service: token issuer is required")
	case mailer == nil:
		return nil, errors.New("account service: mailer is required")
	}

	svc := &AccountService{
		credentials: credentials,
		codes:       codes,
		tokens:      tokens,
		issuer:      issuer,
		mailer:      mailer,
		log:         logger.WithModule("account"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Register creates an unverified user in the "User" role and mails an email verification code.
func (s *AccountService) Register(ctx context.Context, input RegisterInput, ipAddress string) (string, error) {
	user, err := s.credentials.Create(ctx, auth.CreateUserInput{
		Name:     input.Name,
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		var policyErr *auth.PasswordPolicyError
		switch {
		case errors.Is(err, auth.ErrEmailTaken):
			return "", appErrors.NewConflict("Email is already registered")
		case errors.As(err, &policyErr):
			return "", appErrors.NewBadRequest(strings.Join(policyErr.Reasons(), "; "))
		}
		return "", fmt.Errorf("register: %w", err)
	}

	role, err := s.credentials.EnsureRole(ctx, models.RoleUser)
	if err != nil {
		return "", fmt.Errorf("register: %w", err)
	}
	if err := s.credentials.AddToRole(ctx, user, role); err != nil {
		return "", fmt.Errorf("register: %w", err)
	}

	s.log.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("email", logger.MaskEmail(user.Email)),
		zap.String("ip", ipAddress))

	if err := s.sendCode(ctx, user, models.OTPPurposeEmailVerification); err != nil {
		return "", err
	}
	return user.ID, nil
}

// VerifyEmailOtp confirms the user's email when code matches their newest active verification code.
func (s *AccountService) VerifyEmailOtp(ctx context.Context, userID, code string) error {
	user, err := s.credentials.FindByID(ctx, userID)
	if errors.Is(err, auth.ErrUserNotFound) {
		return appErrors.ErrInvalidOTP
	}
	if err != nil {
		return fmt.Errorf("verify email: %w", err)
	}

	otp, err := s.matchCode(ctx, s.codes.Latest, user.ID, models.OTPPurposeEmailVerification, code)
	if err != nil {
		return err
	}

	if err := s.codes.Consume(ctx, otp); err != nil {
		if errors.Is(err, ErrOTPNotFound) {
			return appErrors.ErrInvalidOTP
		}
		return fmt.Errorf("verify email: %w", err)
	}
	if err := s.credentials.Confirm(ctx, user); err != nil {
		return fmt.Errorf("verify email: %w", err)
	}
	return nil
}

// Login checks credentials under the lockout policy and mints an access and refresh token.
func (s *AccountService) Login(ctx context.Context, input LoginInput, ipAddress string) (*LoginResult, error) {
	user, err := s.credentials.FindByEmail(ctx, input.Email)
	if errors.Is(err, auth.ErrUserNotFound) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		// Same count a fresh account reports after its first miss.
		return nil, s.invalidCredentials(max(0, s.credentials.MaxFailedAttempts()-1))
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	if s.credentials.IsLockedOut(user) {
		metrics.AuthAttempts.WithLabelValues("locked").Inc()
		return nil, lockedOut(*user.Lockout.LockedUntil)
	}

	if !s.credentials.CheckPassword(user, input.Password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		locked, err := s.credentials.RecordFailure(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("login: %w", err)
		}
		if locked {
			s.log.Warn("account locked",
				zap.String("user_id", user.ID),
				zap.String("ip", ipAddress),
				zap.Time("locked_until", *user.Lockout.LockedUntil))
			return nil, lockedOut(*user.Lockout.LockedUntil)
		}
		return nil, s.invalidCredentials(user.Lockout.AttemptsLeft(s.credentials.MaxFailedAttempts()))
	}

	if err := s.credentials.RecordSuccess(ctx, user, ipAddress); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	if !user.EmailConfirmed {
		metrics.AuthAttempts.WithLabelValues("unconfirmed").Inc()
		return nil, appErrors.ErrEmailNotVerified
	}

	access, err := s.issuer.CreateAccessToken(user, user.RoleNames())
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	refresh, err := s.issuer.CreateRefreshToken(ipAddress, user.ID)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if err := s.tokens.Store(ctx, refresh); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	return &LoginResult{
		UserID:       user.ID,
		AccessToken:  access,
		RefreshToken: refresh.Token,
		ExpiresIn:    s.issuer.AccessTokenTTL(),
	}, nil
}

func (s *AccountService) invalidCredentials(attemptsLeft int) error {
	return appErrors.ErrInvalidCredentials.WithMessage(
		fmt.Sprintf("Invalid credentials. %d attempt(s) left before lockout.", attemptsLeft))
}

func lockedOut(until time.Time) error {
	return appErrors.ErrAccountLocked.WithMessage(
		fmt.Sprintf("Account is locked until %s", until.UTC().Format(time.RFC3339)))
}

// RefreshToken rotates token and returns a new access token. The successor refresh token is
// recorded in the ledger; use RefreshTokenPair to receive it.
func (s *AccountService) RefreshToken(ctx context.Context, token, ipAddress string) (string, error) {
	result, err := s.RefreshTokenPair(ctx, token, ipAddress)
	if err != nil {
		return "", err
	}
	return result.AccessToken, nil
}

// RefreshTokenPair rotates token and returns both the new access token and its successor.
func (s *AccountService) RefreshTokenPair(ctx context.Context, token, ipAddress string) (*LoginResult, error) {
	successor, err := s.tokens.Rotate(ctx, token, ipAddress)
	if err != nil {
		if errors.Is(err, auth.ErrRefreshTokenNotFound) || errors.Is(err, auth.ErrRefreshTokenInactive) {
			return nil, appErrors.ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("refresh token: %w", err)
	}

	user, err := s.credentials.FindByID(ctx, successor.UserID)
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	access, err := s.issuer.CreateAccessToken(user, user.RoleNames())
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}

	return &LoginResult{
		UserID:       user.ID,
		AccessToken:  access,
		RefreshToken: successor.Token,
		ExpiresIn:    s.issuer.AccessTokenTTL(),
	}, nil
}

// RevokeRefreshToken revokes an active refresh token.
func (s *AccountService) RevokeRefreshToken(ctx context.Context, token, ipAddress string) error {
	err := s.tokens.Revoke(ctx, token, ipAddress)
	if errors.Is(err, auth.ErrRefreshTokenNotFound) || errors.Is(err, auth.ErrRefreshTokenInactive) {
		return appErrors.NewNotFound("Refresh token not found or already inactive")
	}
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// SendPasswordResetOtp mails a password reset code to a registered email.
func (s *AccountService) SendPasswordResetOtp(ctx context.Context, email string) error {
	user, err := s.lookupForMail(ctx, email)
	if err != nil {
		return err
	}
	return s.sendCode(ctx, user, models.OTPPurposePasswordReset)
}

// ResendEmailOtp mails a fresh email verification code.
func (s *AccountService) ResendEmailOtp(ctx context.Context, email string) error {
	user, err := s.lookupForMail(ctx, email)
	if err != nil {
		return err
	}
	return s.sendCode(ctx, user, models.OTPPurposeEmailVerification)
}

func (s *AccountService) lookupForMail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.credentials.FindByEmail(ctx, email)
	if errors.Is(err, auth.ErrUserNotFound) {
		return nil, appErrors.NewNotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

// ResetPassword applies newPassword when code matches the newest active reset code.
// Unknown emails, missing codes and mismatches return false without touching the password.
func (s *AccountService) ResetPassword(ctx context.Context, email, code, newPassword string) (bool, error) {
	user, err := s.credentials.FindByEmail(ctx, email)
	if errors.Is(err, auth.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reset password: %w", err)
	}

	otp, err := s.matchCode(ctx, s.codes.Latest, user.ID, models.OTPPurposePasswordReset, code)
	if err != nil {
		if appErrors.KindOf(err) == appErrors.KindValidation {
			return false, nil
		}
		return false, err
	}

	if err := s.codes.Consume(ctx, otp); err != nil {
		if errors.Is(err, ErrOTPNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("reset password: %w", err)
	}

	token, err := s.credentials.GeneratePasswordResetToken(ctx, user)
	if err != nil {
		return false, fmt.Errorf("reset password: %w", err)
	}

	err = s.credentials.ResetPassword(ctx, user, token, newPassword)
	var policyErr *auth.PasswordPolicyError
	switch {
	case err == nil:
		s.log.Info("password reset", zap.String("user_id", user.ID))
		return true, nil
	case errors.As(err, &policyErr), errors.Is(err, auth.ErrInvalidResetToken):
		return false, nil
	default:
		return false, fmt.Errorf("reset password: %w", err)
	}
}

// VerifyPasswordResetOtp checks a reset code ahead of ResetPassword without consuming it.
func (s *AccountService) VerifyPasswordResetOtp(ctx context.Context, email, code string) (bool, error) {
	user, err := s.credentials.FindByEmail(ctx, email)
	if errors.Is(err, auth.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("verify reset code: %w", err)
	}

	otp, err := s.matchCode(ctx, s.codes.LatestUnverified, user.ID, models.OTPPurposePasswordReset, code)
	if err != nil {
		if appErrors.KindOf(err) == appErrors.KindValidation {
			return false, nil
		}
		return false, err
	}

	if err := s.codes.MarkVerified(ctx, otp); err != nil {
		if errors.Is(err, ErrOTPNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("verify reset code: %w", err)
	}
	return true, nil
}

// Me returns the profile of userID.
func (s *AccountService) Me(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.credentials.FindByID(ctx, userID)
	if errors.Is(err, auth.ErrUserNotFound) {
		return nil, appErrors.NewNotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	return &Profile{
		ID:             user.ID,
		Email:          user.Email,
		Name:           user.Name,
		EmailConfirmed: user.EmailConfirmed,
		Roles:          user.RoleNames(),
	}, nil
}

// SeedAdmin creates a confirmed administrator when email is set and not yet registered.
// It returns true when a user was created.
func (s *AccountService) SeedAdmin(ctx context.Context, name, email, password string) (bool, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return false, nil
	}

	created := false
	user, err := s.credentials.FindByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrUserNotFound):
		created = true
		user, err = s.credentials.Create(ctx, auth.CreateUserInput{
			Name:           name,
			Email:          email,
			Password:       password,
			EmailConfirmed: true,
		})
		if err != nil {
			return false, fmt.Errorf("seed admin: %w", err)
		}
	default:
		return false, fmt.Errorf("seed admin: %w", err)
	}
	for _, roleName := range []string{models.RoleAdmin, models.RoleUser} {
		role, err := s.credentials.EnsureRole(ctx, roleName)
		if err != nil {
			return false, fmt.Errorf("seed admin: %w", err)
		}
		if err := s.credentials.AddToRole(ctx, user, role); err != nil {
			return false, fmt.Errorf("seed admin: %w", err)
		}
	}
	return created, nil
}

type codeLookup func(ctx context.Context, userID string, purpose models.OTPPurpose) (*models.OneTimeCode, error)

// matchCode loads the newest candidate code and compares it with the submitted one.
// Older codes are never tried, so issuing a new code shadows earlier ones.
func (s *AccountService) matchCode(ctx context.Context, lookup codeLookup, userID string, purpose models.OTPPurpose, code string) (*models.OneTimeCode, error) {
	otp, err := lookup(ctx, userID, purpose)
	if errors.Is(err, ErrOTPNotFound) {
		return nil, appErrors.ErrInvalidOTP
	}
	if err != nil {
		return nil, fmt.Errorf("match code: %w", err)
	}
	if otp.Code != strings.TrimSpace(code) {
		return nil, appErrors.ErrInvalidOTP
	}
	return otp, nil
}

func (s *AccountService) sendCode(ctx context.Context, user *models.User, purpose models.OTPPurpose) error {
	otp, err := s.codes.Issue(ctx, user.ID, purpose)
	if err != nil {
		return fmt.Errorf("issue code: %w", err)
	}

	minutes := int(s.codes.TTL().Minutes())
	label := "verification"
	subject := verificationSubject
	if purpose == models.OTPPurposePasswordReset {
		label = "reset"
		subject = resetSubject
	}
	msg := mail.Message{
		To:      []string{user.Email},
		Subject: subject,
		HTML:    fmt.Sprintf("Your %s code is: <b>%s</b>. It expires in %d minutes.", label, otp.Code, minutes),
		Text:    fmt.Sprintf("Your %s code is: %s. It expires in %d minutes.", label, otp.Code, minutes),
	}

	err = s.mailer.Send(ctx, msg)
	switch {
	case err == nil:
	case errors.Is(err, mail.ErrSMTPDisabled):
		s.log.Warn("smtp disabled, code not delivered",
			zap.String("user_id", user.ID),
			zap.String("purpose", string(purpose)))
	default:
		return appErrors.NewExternalService("Failed to send email", err)
	}
	return nil
}
