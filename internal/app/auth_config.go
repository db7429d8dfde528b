package app

import (
	"github.com/welltrack/welltrack-api/internal/auth"
)

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	refresh := c.Session.RefreshTTL
	if refresh <= 0 {
		refresh = auth.DefaultRefreshTokenTTL
	}

	return auth.JWTConfig{
		Secret:          c.JWT.Secret,
		Issuer:          c.JWT.Issuer,
		Audience:        c.JWT.Audience,
		AccessTokenTTL:  ttl,
		RefreshTokenTTL: refresh,
	}
}

// CredentialConfig converts AuthConfig into credential store parameters.
// Zero values fall back to the store's defaults.
func (c AuthConfig) CredentialConfig() auth.CredentialConfig {
	cfg := auth.CredentialConfig{
		MaxFailedAttempts: c.Lockout.MaxFailedAttempts,
		LockoutDuration:   c.Lockout.Duration,
	}

	if c.Password != (PasswordSettings{}) {
		policy := auth.PasswordPolicy{
			MinLength:              c.Password.MinLength,
			RequireDigit:           c.Password.RequireDigit,
			RequireLowercase:       c.Password.RequireLowercase,
			RequireUppercase:       c.Password.RequireUppercase,
			RequireNonAlphanumeric: c.Password.RequireNonAlphanumeric,
		}
		cfg.Policy = &policy
	}
	return cfg
}
