package models

import "time"

// HydrationEntry logs water intake for a user.
type HydrationEntry struct {
	BaseModel

	UserID string    `gorm:"type:uuid;not null;index:idx_hydration_user_date,priority:1" json:"user_id"`
	User   *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Liters float64   `gorm:"not null" json:"water_intake_liters"`
	Date   time.Time `gorm:"not null;index:idx_hydration_user_date,priority:2" json:"date"`
}

// StepEntry logs walked steps for a user.
type StepEntry struct {
	BaseModel

	UserID       string    `gorm:"type:uuid;not null;index:idx_steps_user_date,priority:1" json:"user_id"`
	User         *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Steps        int       `gorm:"not null" json:"steps"`
	ActivityType string    `gorm:"type:varchar(50);default:'Walking'" json:"activity_type"`
	Date         time.Time `gorm:"not null;index:idx_steps_user_date,priority:2" json:"date"`
}

// SleepEntry logs one night of sleep. Hours is derived from BedTime and WakeUpTime.
type SleepEntry struct {
	BaseModel

	UserID     string    `gorm:"type:uuid;not null;index:idx_sleep_user_date,priority:1" json:"user_id"`
	User       *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	BedTime    time.Time `gorm:"not null" json:"bed_time"`
	WakeUpTime time.Time `gorm:"not null" json:"wake_up_time"`
	Hours      float64   `gorm:"not null" json:"hours"`
	Quality    string    `gorm:"type:varchar(50);not null" json:"quality"`
	Date       time.Time `gorm:"not null;index:idx_sleep_user_date,priority:2" json:"date"`
}

// MoodEntry logs how a user felt, with optional notes.
type MoodEntry struct {
	BaseModel

	UserID string    `gorm:"type:uuid;not null;index:idx_mood_user_date,priority:1" json:"user_id"`
	User   *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Mood   string    `gorm:"type:varchar(50);not null" json:"mood"`
	Notes  string    `gorm:"type:varchar(250)" json:"notes"`
	Date   time.Time `gorm:"not null;index:idx_mood_user_date,priority:2" json:"date"`
}
