package database

import (
	"gorm.io/gorm"

	"github.com/welltrack/welltrack-api/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.OneTimeCode{},
		&models.RefreshToken{},
		&models.PasswordResetToken{},
		&models.HydrationEntry{},
		&models.StepEntry{},
		&models.SleepEntry{},
		&models.MoodEntry{},
		&models.Notification{},
		&models.DailyMotivation{},
		&models.SystemSetting{},
	)
}

// SeedData populates the default roles.
func SeedData(db *gorm.DB) error {
	roles := []models.Role{
		{
			Name:        models.RoleAdmin,
			Description: "Full system access",
			IsSystem:    true,
		},
		{
			Name:        models.RoleUser,
			Description: "Standard user access",
			IsSystem:    true,
		},
	}

	for _, role := range roles {
		if err := db.Where(models.Role{Name: role.Name}).Attrs(role).FirstOrCreate(&models.Role{}).Error; err != nil {
			return err
		}
	}

	return nil
}
