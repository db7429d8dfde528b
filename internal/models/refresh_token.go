package models

import "time"

// RefreshToken is an opaque long-lived credential. Rotated tokens point at their successor.
type RefreshToken struct {
	BaseModel

	Token           string     `gorm:"uniqueIndex;not null" json:"-"`
	UserID          string     `gorm:"type:uuid;not null;index" json:"user_id"`
	User            *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedByIP     string     `gorm:"type:varchar(64)" json:"created_by_ip"`
	ExpiresAt       time.Time  `gorm:"index" json:"expires_at"`
	RevokedAt       *time.Time `gorm:"index" json:"revoked_at"`
	RevokedByIP     string     `gorm:"type:varchar(64)" json:"revoked_by_ip"`
	ReplacedByToken *string    `json:"-"`
}

// IsExpired reports whether the token is past its expiry at now.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsActive reports whether the token is neither revoked nor expired at now.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return t.RevokedAt == nil && !t.IsExpired(now)
}
