package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification types produced by the reminder sweep.
const (
	NotificationHydrationReminder = "HydrationReminder"
	NotificationLowStepsWarning   = "LowStepsWarning"
)

// Notification is a persisted reminder pushed to a user.
type Notification struct {
	BaseModel

	UserID   string         `gorm:"type:uuid;index" json:"user_id"`
	User     *User          `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Type     string         `gorm:"type:varchar(64);not null" json:"type"`
	Message  string         `gorm:"type:text" json:"message"`
	Metadata datatypes.JSON `json:"metadata"`

	IsRead bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt *time.Time `json:"read_at"`
}
