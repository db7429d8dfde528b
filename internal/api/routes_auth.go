package api

import (
	"github.com/gin-gonic/gin"

	"github.com/welltrack/welltrack-api/internal/handlers"
)

func registerAuthRoutes(public *gin.RouterGroup, protected *gin.RouterGroup, handler *handlers.AuthHandler) {
	{
		public.POST("/register", handler.Register)
		public.POST("/verify-email", handler.VerifyEmail)
		public.POST("/login", handler.Login)
		public.POST("/refresh", handler.Refresh)
		public.POST("/revoke", handler.Revoke)
		public.POST("/forgot-password", handler.ForgotPassword)
		public.POST("/verify-reset-otp", handler.VerifyResetOtp)
		public.POST("/reset-password", handler.ResetPassword)
		public.POST("/resend-otp", handler.ResendOtp)
		public.POST("/resend-reset-otp", handler.ResendResetOtp)
	}

	protected.GET("/auth/me", handler.Me)
}
