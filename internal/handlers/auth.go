package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/welltrack/welltrack-api/internal/services"
	"github.com/welltrack/welltrack-api/pkg/errors"
	"github.com/welltrack/welltrack-api/pkg/response"
)

const invalidOTPMessage = "Invalid or expired OTP."

// AuthHandler exposes the account lifecycle over HTTP.
type AuthHandler struct {
	accounts *services.AccountService
}

func NewAuthHandler(accounts *services.AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

type registerRequest struct {
	Name     string `json:"name" validate:"max=128"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required,notblank"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required,notblank"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type verifyResetRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

type resetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func newTokenResponse(result *services.LoginResult) tokenResponse {
	return tokenResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(result.ExpiresIn.Seconds()),
	}
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	userID, err := h.accounts.Register(requestContext(c), services.RegisterInput{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
	}, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user_id": userID,
		"message": "Registered. Check email for OTP to verify.",
	})
}

// POST /api/auth/verify-email?userId=&code=
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("userId"))
	code := strings.TrimSpace(c.Query("code"))
	if userID == "" || code == "" {
		response.Error(c, errors.NewBadRequest("userId and code are required"))
		return
	}

	if err := h.accounts.VerifyEmailOtp(requestContext(c), userID, code); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "Email verified")
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.accounts.Login(requestContext(c), services.LoginInput{
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
	}, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, newTokenResponse(result))
}

// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.accounts.RefreshTokenPair(requestContext(c), strings.TrimSpace(req.RefreshToken), c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, newTokenResponse(result))
}

// POST /api/auth/revoke
func (h *AuthHandler) Revoke(c *gin.Context) {
	var req refreshRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.accounts.RevokeRefreshToken(requestContext(c), strings.TrimSpace(req.RefreshToken), c.ClientIP()); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "Revoked")
}

// POST /api/auth/forgot-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req emailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.accounts.SendPasswordResetOtp(requestContext(c), strings.TrimSpace(req.Email)); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "OTP sent to email.")
}

// POST /api/auth/verify-reset-otp
func (h *AuthHandler) VerifyResetOtp(c *gin.Context) {
	var req verifyResetRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ok, err := h.accounts.VerifyPasswordResetOtp(requestContext(c), strings.TrimSpace(req.Email), strings.TrimSpace(req.Code))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !ok {
		response.Error(c, errors.ErrInvalidOTP.WithMessage(invalidOTPMessage))
		return
	}
	response.Message(c, "OTP verified successfully.")
}

// POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ok, err := h.accounts.ResetPassword(requestContext(c), strings.TrimSpace(req.Email), strings.TrimSpace(req.Code), req.NewPassword)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !ok {
		response.Error(c, errors.ErrInvalidOTP.WithMessage(invalidOTPMessage))
		return
	}
	response.Message(c, "Password reset successful.")
}

// POST /api/auth/resend-otp
func (h *AuthHandler) ResendOtp(c *gin.Context) {
	var req emailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.accounts.ResendEmailOtp(requestContext(c), strings.TrimSpace(req.Email)); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "OTP resent successfully.")
}

// POST /api/auth/resend-reset-otp
func (h *AuthHandler) ResendResetOtp(c *gin.Context) {
	var req emailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.accounts.SendPasswordResetOtp(requestContext(c), strings.TrimSpace(req.Email)); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "Password reset OTP resent successfully")
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	profile, err := h.accounts.Me(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, profile)
}
