package models

import "time"

// OTPPurpose discriminates what a one-time code authorises.
type OTPPurpose string

const (
	OTPPurposeEmailVerification OTPPurpose = "EmailVerification"
	OTPPurposePasswordReset     OTPPurpose = "PasswordReset"
)

// Valid reports whether p is a known purpose.
func (p OTPPurpose) Valid() bool {
	return p == OTPPurposeEmailVerification || p == OTPPurposePasswordReset
}

// OneTimeCode is a six digit code mailed to a user. Rows are kept after use.
type OneTimeCode struct {
	BaseModel

	UserID     string     `gorm:"type:uuid;not null;index:idx_otp_lookup,priority:1" json:"user_id"`
	User       *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Code       string     `gorm:"type:varchar(6);not null" json:"-"`
	Purpose    OTPPurpose `gorm:"type:varchar(32);not null;index:idx_otp_lookup,priority:2" json:"purpose"`
	ExpiresAt  time.Time  `gorm:"index" json:"expires_at"`
	VerifiedAt *time.Time `json:"verified_at"`
	ConsumedAt *time.Time `json:"consumed_at"`
}

// Usable reports whether the code is unconsumed and unexpired at now.
func (c *OneTimeCode) Usable(now time.Time) bool {
	return c.ConsumedAt == nil && now.Before(c.ExpiresAt)
}
