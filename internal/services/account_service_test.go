package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/welltrack/welltrack-api/internal/auth"
	"github.com/welltrack/welltrack-api/internal/models"
	appErrors "github.com/welltrack/welltrack-api/pkg/errors"
	"github.com/welltrack/welltrack-api/pkg/mail"
)

const (
	aliceEmail    = "alice@example.com"
	alicePassword = "Str0ng!Pw"
)

func registerAlice(t *testing.T, f *accountFixture) string {
	t.Helper()

	userID, err := f.svc.Register(context.Background(), RegisterInput{Name: "Alice", Email: aliceEmail, Password: alicePassword}, "198.51.100.4")
	require.NoError(t, err)
	return userID
}

func verifiedAlice(t *testing.T, f *accountFixture) string {
	t.Helper()

	userID := registerAlice(t, f)
	require.NoError(t, f.svc.VerifyEmailOtp(context.Background(), userID, f.lastCode(t)))
	return userID
}

func TestNewAccountServiceRequiresDependencies(t *testing.T) {
	_, err := NewAccountService(nil, nil, nil, nil, nil)
	require.Error(t, err)
}

func TestAccountLifecycleScenario(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	userID := registerAlice(t, f)
	require.NotEmpty(t, userID)

	msg, ok := f.mailer.Last()
	require.True(t, ok)
	require.Equal(t, []string{aliceEmail}, msg.To)
	require.Equal(t, "Your WellTrack OTP", msg.Subject)
	require.Contains(t, msg.Text, "It expires in 15 minutes.")
	require.Contains(t, msg.HTML, "It expires in 15 minutes.")

	require.NoError(t, f.svc.VerifyEmailOtp(ctx, userID, f.lastCode(t)))

	login, err := f.svc.Login(ctx, LoginInput{Email: aliceEmail, Password: alicePassword}, "198.51.100.4")
	require.NoError(t, err)
	require.Equal(t, userID, login.UserID)
	require.NotEmpty(t, login.AccessToken)
	require.NotEmpty(t, login.RefreshToken)

	claims, err := f.issuer.ValidateAccessToken(login.AccessToken)
	require.NoError(t, err)
	require.Equal(t, userID, claims.UserID())
	require.Equal(t, aliceEmail, claims.UniqueName)
	require.Equal(t, []string{models.RoleUser}, claims.Roles)

	f.clock.Advance(time.Minute)
	access, err := f.svc.RefreshToken(ctx, login.RefreshToken, "198.51.100.4")
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEqual(t, login.AccessToken, access)

	r1, err := f.tokens.Find(ctx, login.RefreshToken)
	require.NoError(t, err)
	require.False(t, r1.IsActive(f.clock.Now()))
	require.NotNil(t, r1.ReplacedByToken)

	r2, err := f.tokens.Find(ctx, *r1.ReplacedByToken)
	require.NoError(t, err)
	require.True(t, r2.IsActive(f.clock.Now()))
	require.Equal(t, userID, r2.UserID)

	err = f.svc.RevokeRefreshToken(ctx, login.RefreshToken, "198.51.100.4")
	require.Equal(t, appErrors.KindNotFound, appErrors.KindOf(err))
	require.Contains(t, err.Error(), "not found or already inactive")

	require.NoError(t, f.svc.RevokeRefreshToken(ctx, r2.Token, "198.51.100.4"))
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	f := newAccountFixture(t)
	registerAlice(t, f)

	_, err := f.svc.Register(context.Background(), RegisterInput{Name: "Other", Email: "ALICE@example.com", Password: "An0ther!Pw"}, "10.0.0.1")
	require.Equal(t, appErrors.KindConflict, appErrors.KindOf(err))

	_, err = f.svc.Register(context.Background(), RegisterInput{Name: "Other", Email: aliceEmail, Password: "weak"}, "10.0.0.1")
	require.Equal(t, appErrors.KindConflict, appErrors.KindOf(err), "taken email wins over a weak password")

	var count int64
	require.NoError(t, f.db.Model(&models.User{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestRegisterWeakPasswordAggregatesReasons(t *testing.T) {
	f := newAccountFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{Name: "Bob", Email: "bob@example.com", Password: "password"}, "10.0.0.1")
	require.Equal(t, appErrors.KindValidation, appErrors.KindOf(err))
	require.Contains(t, err.Error(), "digit")
	require.Contains(t, err.Error(), "uppercase")
	require.Contains(t, err.Error(), "non-alphanumeric")

	_, ok := f.mailer.Last()
	require.False(t, ok)
}

func TestRegisterAssignsUserRole(t *testing.T) {
	f := newAccountFixture(t)
	userID := registerAlice(t, f)

	profile, err := f.svc.Me(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, []string{models.RoleUser}, profile.Roles)
	require.False(t, profile.EmailConfirmed)
	require.Equal(t, "Alice", profile.Name)
}

func TestRegisterMailFailureIsExternal(t *testing.T) {
	f := newAccountFixture(t)
	f.mailer.FailWith(errors.New("smtp: dial: connection refused"))

	_, err := f.svc.Register(context.Background(), RegisterInput{Name: "Alice", Email: aliceEmail, Password: alicePassword}, "10.0.0.1")
	require.Equal(t, appErrors.KindExternalService, appErrors.KindOf(err))
	require.NotContains(t, appErrors.FromError(err).Message, "connection refused")
}

func TestRegisterWithDisabledSMTPSucceeds(t *testing.T) {
	f := newAccountFixture(t)
	f.mailer.FailWith(mail.ErrSMTPDisabled)

	userID, err := f.svc.Register(context.Background(), RegisterInput{Name: "Alice", Email: aliceEmail, Password: alicePassword}, "10.0.0.1")
	require.NoError(t, err)
	require.NotEmpty(t, userID)
}

func TestVerifyEmailOtpConfirmsOnce(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()
	userID := registerAlice(t, f)
	code := f.lastCode(t)

	err := f.svc.VerifyEmailOtp(ctx, userID, wrongCode(code))
	require.ErrorIs(t, err, appErrors.ErrInvalidOTP)

	require.NoError(t, f.svc.VerifyEmailOtp(ctx, userID, code))
	user, err := f.credentials.FindByID(ctx, userID)
	require.NoError(t, err)
	require.True(t, user.EmailConfirmed)

	err = f.svc.VerifyEmailOtp(ctx, userID, code)
	require.Equal(t, appErrors.KindValidation, appErrors.KindOf(err), "a consumed code cannot be replayed")

	require.ErrorIs(t, f.svc.VerifyEmailOtp(ctx, "unknown-user", code), appErrors.ErrInvalidOTP)
}

func TestVerifyEmailOtpNewestCodeWins(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()
	userID := registerAlice(t, f)
	first := f.lastCode(t)

	f.clock.Advance(time.Minute)
	require.NoError(t, f.svc.ResendEmailOtp(ctx, aliceEmail))
	second := f.lastCode(t)

	if first != second {
		require.ErrorIs(t, f.svc.VerifyEmailOtp(ctx, userID, first), appErrors.ErrInvalidOTP)
	}
	require.NoError(t, f.svc.VerifyEmailOtp(ctx, userID, second))
}

func TestVerifyEmailOtpExpired(t *testing.T) {
	f := newAccountFixture(t)
	userID := registerAlice(t, f)
	code := f.lastCode(t)

	f.clock.Advance(16 * time.Minute)
	require.ErrorIs(t, f.svc.VerifyEmailOtp(context.Background(), userID, code), appErrors.ErrInvalidOTP)
}

func TestLoginBeforeConfirmationFails(t *testing.T) {
	f := newAccountFixture(t)
	registerAlice(t, f)

	_, err := f.svc.Login(context.Background(), LoginInput{Email: aliceEmail, Password: alicePassword}, "10.0.0.1")
	require.ErrorIs(t, err, appErrors.ErrEmailNotVerified)
	require.Equal(t, appErrors.KindUnauthorized, appErrors.KindOf(err))

	var count int64
	require.NoError(t, f.db.Model(&models.RefreshToken{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestLoginUnknownEmailMatchesBadPasswordShape(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()
	verifiedAlice(t, f)

	_, unknownErr := f.svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: alicePassword}, "10.0.0.1")
	require.ErrorIs(t, unknownErr, appErrors.ErrInvalidCredentials)

	_, badErr := f.svc.Login(ctx, LoginInput{Email: aliceEmail, Password: "Wr0ng!Pw"}, "10.0.0.1")
	require.ErrorIs(t, badErr, appErrors.ErrInvalidCredentials)

	require.Equal(t, "Invalid credentials. 4 attempt(s) left before lockout.", appErrors.FromError(badErr).Message)
	require.Equal(t, appErrors.FromError(badErr).Message, appErrors.FromError(unknownErr).Message)
	require.Equal(t, appErrors.FromError(badErr).StatusCode, appErrors.FromError(unknownErr).StatusCode)
}

func TestLoginLockout(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()
	verifiedAlice(t, f)

	for i := 1; i < 5; i++ {
		_, err := f.svc.Login(ctx, LoginInput{Email: aliceEmail, Password: "Wr0ng!Pw"}, "10.0.0.1")
		require.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
		require.Contains(t, err.Error(), fmt.Sprintf("%d attempt(s) left", 5-i))
	}

	_, err := f.svc.Login(ctx, LoginInput{Email: aliceEmail, Password: "Wr0ng!Pw"}, "10.0.0.1")
	require.ErrorIs(t, err, appErrors.ErrAccountLocked)
	until := f.clock.Now().Add(15 * time.Minute).UTC().Format(time.RFC3339)
	require.Contains(t, err.Error(), until)

	_, err = f.svc.Login(ctx, LoginInput{Email: aliceEmail, Password: alicePassword}, "10.0.0.1")
	require.ErrorIs(t, err, appErrors.ErrAccountLocked, "correct password is refused while locked")

	f.clock.Advance(14 * time.Minute)
	_, err = f.svc.Login(ctx, LoginInput{Email: aliceEmail, Password: alicePassword}, "10.0.0.1")
	require.ErrorIs(t, err, appErrors.ErrAccountLocked)

	f.clock.Advance(2 * time.Minute)
	result, err := f.svc.Login(ctx, LoginInput{Email: aliceEmail, Password: alicePassword}, "10.0.0.1")
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)

	user, err := f.credentials.FindByEmail(ctx, aliceEmail)
	require.NoError(t, err)
	require.Zero(t, user.Lockout.FailedAttempts)
}

func TestLoginSuccessResetsFailures(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()
	verifiedAlice(t, f)

	_, err := f.svc.Login(ctx, LoginInput{Email: aliceEmail, Password: "Wr0ng!Pw"}, "10.0.0.1")
	require.Error(t, err)
	_, err = f.svc.Login(ctx, LoginInput{Email: aliceEmail, Password: alicePassword}, "10.0.0.1")
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, LoginInput{Email: aliceEmail, Password: "Wr0ng!Pw"}, "10.0.0.1")
	require.Contains(t, err.Error(), "4 attempt(s) left")
}

func TestRefreshTokenReplayFails(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()
	verifiedAlice(t, f)

	login, err := f.svc.Login(ctx, LoginInput{Email: aliceEmail, Password: alicePassword}, "10.0.0.1")
	require.NoError(t, err)

	pair, err := f.svc.RefreshTokenPair(ctx, login.RefreshToken, "10.0.0.1")
	require.NoError(t, err)
	require.NotEqual(t, login.RefreshToken, pair.RefreshToken)

	_, err = f.svc.RefreshToken(ctx, login.RefreshToken, "10.0.0.1")
	require.ErrorIs(t, err, appErrors.ErrInvalidRefreshToken)

	_, err = f.svc.RefreshToken(ctx, "does-not-exist", "10.0.0.1")
	require.ErrorIs(t, err, appErrors.ErrInvalidRefreshToken)

	access, err := f.svc.RefreshToken(ctx, pair.RefreshToken, "10.0.0.1")
	require.NoError(t, err)
	require.NotEmpty(t, access)
}

func TestRefreshTokenExpired(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()
	verifiedAlice(t, f)

	login, err := f.svc.Login(ctx, LoginInput{Email: aliceEmail, Password: alicePassword}, "10.0.0.1")
	require.NoError(t, err)

	f.clock.Advance(31 * 24 * time.Hour)
	_, err = f.svc.RefreshToken(ctx, login.RefreshToken, "10.0.0.1")
	require.ErrorIs(t, err, appErrors.ErrInvalidRefreshToken)

	err = f.svc.RevokeRefreshToken(ctx, login.RefreshToken, "10.0.0.1")
	require.Equal(t, appErrors.KindNotFound, appErrors.KindOf(err))
}

func TestSendPasswordResetOtp(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()
	verifiedAlice(t, f)

	err := f.svc.SendPasswordResetOtp(ctx, "nobody@example.com")
	require.Equal(t, appErrors.KindNotFound, appErrors.KindOf(err))

	require.NoError(t, f.svc.SendPasswordResetOtp(ctx, aliceEmail))
	msg, ok := f.mailer.Last()
	require.True(t, ok)
	require.Equal(t, "Reset Your Password", msg.Subject)
	require.True(t, strings.HasPrefix(msg.HTML, "Your reset code is: <b>"))

	err = f.svc.ResendEmailOtp(ctx, "nobody@example.com")
	require.Equal(t, appErrors.KindNotFound, appErrors.KindOf(err))
}

func TestResetPasswordFlow(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()
	verifiedAlice(t, f)

	require.NoError(t, f.svc.SendPasswordResetOtp(ctx, aliceEmail))
	code := f.lastCode(t)

	before, err := f.credentials.FindByEmail(ctx, aliceEmail)
	require.NoError(t, err)

	ok, err := f.svc.ResetPassword(ctx, aliceEmail, wrongCode(code), "N3w!Passw0rd")
	require.NoError(t, err)
	require.False(t, ok)

	unchanged, err := f.credentials.FindByEmail(ctx, aliceEmail)
	require.NoError(t, err)
	require.Equal(t, before.PasswordHash, unchanged.PasswordHash)

	ok, err = f.svc.ResetPassword(ctx, "nobody@example.com", code, "N3w!Passw0rd")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = f.svc.VerifyPasswordResetOtp(ctx, aliceEmail, code)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = f.svc.VerifyPasswordResetOtp(ctx, aliceEmail, code)
	require.NoError(t, err)
	require.False(t, ok, "the pre-check only passes once")

	ok, err = f.svc.ResetPassword(ctx, aliceEmail, code, "N3w!Passw0rd")
	require.NoError(t, err)
	require.True(t, ok, "a pre-checked code can still reset the password")

	_, err = f.svc.Login(ctx, LoginInput{Email: aliceEmail, Password: alicePassword}, "10.0.0.1")
	require.Error(t, err)
	_, err = f.svc.Login(ctx, LoginInput{Email: aliceEmail, Password: "N3w!Passw0rd"}, "10.0.0.1")
	require.NoError(t, err)

	ok, err = f.svc.ResetPassword(ctx, aliceEmail, code, "An0ther!Pw")
	require.NoError(t, err)
	require.False(t, ok, "reset codes are single use")
}

func TestVerifyPasswordResetOtpRejectsSupersededCode(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()
	verifiedAlice(t, f)

	require.NoError(t, f.svc.SendPasswordResetOtp(ctx, aliceEmail))
	first := f.lastCode(t)
	second := first
	for second == first {
		f.clock.Advance(time.Minute)
		require.NoError(t, f.svc.SendPasswordResetOtp(ctx, aliceEmail))
		second = f.lastCode(t)
	}

	ok, err := f.svc.VerifyPasswordResetOtp(ctx, aliceEmail, second)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = f.svc.VerifyPasswordResetOtp(ctx, aliceEmail, first)
	require.NoError(t, err)
	require.False(t, ok, "a newer code supersedes the older one")

	var verified int64
	require.NoError(t, f.db.Model(&models.OneTimeCode{}).Where("verified_at IS NOT NULL").Count(&verified).Error)
	require.EqualValues(t, 1, verified)
}

func TestResetPasswordIgnoresVerificationCodes(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()
	registerAlice(t, f)
	verificationCode := f.lastCode(t)

	ok, err := f.svc.ResetPassword(ctx, aliceEmail, verificationCode, "N3w!Passw0rd")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = f.svc.VerifyPasswordResetOtp(ctx, aliceEmail, verificationCode)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestResetPasswordPolicyRejectionReturnsFalse(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()
	verifiedAlice(t, f)

	require.NoError(t, f.svc.SendPasswordResetOtp(ctx, aliceEmail))
	code := f.lastCode(t)

	ok, err := f.svc.ResetPassword(ctx, aliceEmail, code, "weak")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = f.svc.Login(ctx, LoginInput{Email: aliceEmail, Password: alicePassword}, "10.0.0.1")
	require.NoError(t, err)
}

func TestMeUnknownUser(t *testing.T) {
	f := newAccountFixture(t)
	_, err := f.svc.Me(context.Background(), "missing")
	require.Equal(t, appErrors.KindNotFound, appErrors.KindOf(err))
}

func TestSeedAdmin(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	created, err := f.svc.SeedAdmin(ctx, "", "", "")
	require.NoError(t, err)
	require.False(t, created)

	created, err = f.svc.SeedAdmin(ctx, "Admin", "admin@welltrack.app", "Adm1n!Pass")
	require.NoError(t, err)
	require.True(t, created)

	created, err = f.svc.SeedAdmin(ctx, "Admin", "admin@welltrack.app", "Adm1n!Pass")
	require.NoError(t, err)
	require.False(t, created)

	result, err := f.svc.Login(ctx, LoginInput{Email: "admin@welltrack.app", Password: "Adm1n!Pass"}, "127.0.0.1")
	require.NoError(t, err)
	claims, err := f.issuer.ValidateAccessToken(result.AccessToken)
	require.NoError(t, err)
	require.True(t, claims.HasRole(models.RoleAdmin))
	require.True(t, claims.HasRole(models.RoleUser))

	_, err = f.svc.SeedAdmin(ctx, "Admin", "weak@welltrack.app", "weak")
	var policyErr *auth.PasswordPolicyError
	require.True(t, errors.As(err, &policyErr))
}
