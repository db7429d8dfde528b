package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/welltrack/welltrack-api/internal/models"
	apperrors "github.com/welltrack/welltrack-api/pkg/errors"
)

const maxSleepHours = 24

// SleepInput describes a night of sleep. WakeUpTime at or before BedTime is read as the next day.
type SleepInput struct {
	BedTime    time.Time `json:"bed_time"`
	WakeUpTime time.Time `json:"wake_up_time"`
	Quality    string    `json:"quality" validate:"notblank,max=50"`
	Date       time.Time `json:"date"`
}

// MoodInput describes a mood check-in.
type MoodInput struct {
	Mood  string    `json:"mood" validate:"notblank,max=50"`
	Notes string    `json:"notes" validate:"max=250"`
	Date  time.Time `json:"date"`
}

// SleepHours returns the hours between bed and wake, rounded to two decimals.
// A wake time at or before bed time rolls over to the following day.
func SleepHours(bed, wake time.Time) float64 {
	if !wake.After(bed) {
		wake = wake.AddDate(0, 0, 1)
	}
	return math.Round(wake.Sub(bed).Hours()*100) / 100
}

func (in SleepInput) hours() (float64, error) {
	if err := validateInput(in); err != nil {
		return 0, err
	}
	if in.BedTime.IsZero() || in.WakeUpTime.IsZero() {
		return 0, apperrors.NewBadRequest("bed_time and wake_up_time are required")
	}
	hours := SleepHours(in.BedTime, in.WakeUpTime)
	if hours > maxSleepHours {
		return 0, apperrors.NewBadRequest(fmt.Sprintf("sleep cannot exceed %d hours", maxSleepHours))
	}
	return hours, nil
}

// ListSleep returns the user's sleep entries, newest date first.
func (s *WellnessService) ListSleep(ctx context.Context, userID string) ([]models.SleepEntry, error) {
	var entries []models.SleepEntry
	if err := s.listOwned(ctx, userID, &entries); err != nil {
		return nil, fmt.Errorf("wellness service: list sleep: %w", err)
	}
	return entries, nil
}

// GetSleep loads one sleep entry owned by userID.
func (s *WellnessService) GetSleep(ctx context.Context, userID, id string) (*models.SleepEntry, error) {
	var entry models.SleepEntry
	if err := s.findOwned(ctx, userID, id, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// CreateSleep logs a night of sleep. A zero date means now.
func (s *WellnessService) CreateSleep(ctx context.Context, userID string, input SleepInput) (*models.SleepEntry, error) {
	hours, err := input.hours()
	if err != nil {
		return nil, err
	}

	entry := models.SleepEntry{
		UserID:     userID,
		BedTime:    input.BedTime.UTC(),
		WakeUpTime: input.WakeUpTime.UTC(),
		Hours:      hours,
		Quality:    strings.TrimSpace(input.Quality),
		Date:       s.dateOrNow(input.Date),
	}
	if err := s.db.WithContext(ensureContext(ctx)).Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("wellness service: create sleep: %w", err)
	}
	return &entry, nil
}

// UpdateSleep replaces the values of an owned sleep entry and recomputes its hours.
func (s *WellnessService) UpdateSleep(ctx context.Context, userID, id string, input SleepInput) (*models.SleepEntry, error) {
	hours, err := input.hours()
	if err != nil {
		return nil, err
	}

	entry, err := s.GetSleep(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	entry.BedTime = input.BedTime.UTC()
	entry.WakeUpTime = input.WakeUpTime.UTC()
	entry.Hours = hours
	entry.Quality = strings.TrimSpace(input.Quality)
	if !input.Date.IsZero() {
		entry.Date = input.Date.UTC()
	}

	if err := s.db.WithContext(ensureContext(ctx)).Model(entry).
		Updates(map[string]any{
			"bed_time":     entry.BedTime,
			"wake_up_time": entry.WakeUpTime,
			"hours":        entry.Hours,
			"quality":      entry.Quality,
			"date":         entry.Date,
		}).Error; err != nil {
		return nil, fmt.Errorf("wellness service: update sleep: %w", err)
	}
	return entry, nil
}

// DeleteSleep removes an owned sleep entry.
func (s *WellnessService) DeleteSleep(ctx context.Context, userID, id string) error {
	return s.deleteOwned(ctx, userID, id, &models.SleepEntry{})
}

// ListMood returns the user's mood entries, newest date first.
func (s *WellnessService) ListMood(ctx context.Context, userID string) ([]models.MoodEntry, error) {
	var entries []models.MoodEntry
	if err := s.listOwned(ctx, userID, &entries); err != nil {
		return nil, fmt.Errorf("wellness service: list mood: %w", err)
	}
	return entries, nil
}

// GetMood loads one mood entry owned by userID.
func (s *WellnessService) GetMood(ctx context.Context, userID, id string) (*models.MoodEntry, error) {
	var entry models.MoodEntry
	if err := s.findOwned(ctx, userID, id, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// CreateMood logs a mood check-in. A zero date means now.
func (s *WellnessService) CreateMood(ctx context.Context, userID string, input MoodInput) (*models.MoodEntry, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	entry := models.MoodEntry{
		UserID: userID,
		Mood:   strings.TrimSpace(input.Mood),
		Notes:  strings.TrimSpace(input.Notes),
		Date:   s.dateOrNow(input.Date),
	}
	if err := s.db.WithContext(ensureContext(ctx)).Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("wellness service: create mood: %w", err)
	}
	return &entry, nil
}

// UpdateMood replaces the values of an owned mood entry. Omitted notes clear the stored notes.
func (s *WellnessService) UpdateMood(ctx context.Context, userID, id string, input MoodInput) (*models.MoodEntry, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	entry, err := s.GetMood(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	entry.Mood = strings.TrimSpace(input.Mood)
	entry.Notes = strings.TrimSpace(input.Notes)
	if !input.Date.IsZero() {
		entry.Date = input.Date.UTC()
	}

	if err := s.db.WithContext(ensureContext(ctx)).Model(entry).
		Updates(map[string]any{"mood": entry.Mood, "notes": entry.Notes, "date": entry.Date}).Error; err != nil {
		return nil, fmt.Errorf("wellness service: update mood: %w", err)
	}
	return entry, nil
}

// DeleteMood removes an owned mood entry.
func (s *WellnessService) DeleteMood(ctx context.Context, userID, id string) error {
	return s.deleteOwned(ctx, userID, id, &models.MoodEntry{})
}
