package models

// DailyMotivation caches the motivational message for one UTC date (YYYY-MM-DD).
type DailyMotivation struct {
	BaseModel

	Date    string `gorm:"type:varchar(10);uniqueIndex;not null" json:"date"`
	Message string `gorm:"type:text;not null" json:"message"`
}
