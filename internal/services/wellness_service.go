package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/welltrack/welltrack-api/internal/models"
	apperrors "github.com/welltrack/welltrack-api/pkg/errors"
	"github.com/welltrack/welltrack-api/pkg/validator"
)

// DefaultActivityType is stored when a step entry names no activity.
const DefaultActivityType = "Walking"

// HydrationInput describes a water intake entry.
type HydrationInput struct {
	Liters float64   `json:"water_intake_liters" validate:"gte=0.1,lte=10"`
	Date   time.Time `json:"date"`
}

// StepsInput describes a step count entry.
type StepsInput struct {
	Steps        int       `json:"steps" validate:"gte=0,lte=100000"`
	ActivityType string    `json:"activity_type" validate:"max=50"`
	Date         time.Time `json:"date"`
}

// WellnessService records the wellness logs of a user. Every query is scoped to the owning user.
type WellnessService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewWellnessService constructs a WellnessService.
func NewWellnessService(db *gorm.DB, clock func() time.Time) (*WellnessService, error) {
	if db == nil {
		return nil, errors.New("wellness service: db is required")
	}
	if clock == nil {
		clock = time.Now
	}
	return &WellnessService{db: db, now: clock}, nil
}

// ListHydration returns the user's hydration entries, newest date first.
func (s *WellnessService) ListHydration(ctx context.Context, userID string) ([]models.HydrationEntry, error) {
	var entries []models.HydrationEntry
	if err := s.listOwned(ctx, userID, &entries); err != nil {
		return nil, fmt.Errorf("wellness service: list hydration: %w", err)
	}
	return entries, nil
}

// GetHydration loads one hydration entry owned by userID.
func (s *WellnessService) GetHydration(ctx context.Context, userID, id string) (*models.HydrationEntry, error) {
	var entry models.HydrationEntry
	if err := s.findOwned(ctx, userID, id, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// CreateHydration logs water intake. A zero date means now.
func (s *WellnessService) CreateHydration(ctx context.Context, userID string, input HydrationInput) (*models.HydrationEntry, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	entry := models.HydrationEntry{
		UserID: userID,
		Liters: input.Liters,
		Date:   s.dateOrNow(input.Date),
	}
	if err := s.db.WithContext(ensureContext(ctx)).Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("wellness service: create hydration: %w", err)
	}
	return &entry, nil
}

// UpdateHydration replaces the values of an owned hydration entry.
func (s *WellnessService) UpdateHydration(ctx context.Context, userID, id string, input HydrationInput) (*models.HydrationEntry, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	entry, err := s.GetHydration(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	entry.Liters = input.Liters
	if !input.Date.IsZero() {
		entry.Date = input.Date.UTC()
	}

	if err := s.db.WithContext(ensureContext(ctx)).Model(entry).
		Updates(map[string]any{"liters": entry.Liters, "date": entry.Date}).Error; err != nil {
		return nil, fmt.Errorf("wellness service: update hydration: %w", err)
	}
	return entry, nil
}

// DeleteHydration removes an owned hydration entry.
func (s *WellnessService) DeleteHydration(ctx context.Context, userID, id string) error {
	return s.deleteOwned(ctx, userID, id, &models.HydrationEntry{})
}

// ListSteps returns the user's step entries, newest date first.
func (s *WellnessService) ListSteps(ctx context.Context, userID string) ([]models.StepEntry, error) {
	var entries []models.StepEntry
	if err := s.listOwned(ctx, userID, &entries); err != nil {
		return nil, fmt.Errorf("wellness service: list steps: %w", err)
	}
	return entries, nil
}

// GetSteps loads one step entry owned by userID.
func (s *WellnessService) GetSteps(ctx context.Context, userID, id string) (*models.StepEntry, error) {
	var entry models.StepEntry
	if err := s.findOwned(ctx, userID, id, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// CreateSteps logs a step count. A zero date means now.
func (s *WellnessService) CreateSteps(ctx context.Context, userID string, input StepsInput) (*models.StepEntry, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	entry := models.StepEntry{
		UserID:       userID,
		Steps:        input.Steps,
		ActivityType: defaultIfEmpty(strings.TrimSpace(input.ActivityType), DefaultActivityType),
		Date:         s.dateOrNow(input.Date),
	}
	if err := s.db.WithContext(ensureContext(ctx)).Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("wellness service: create steps: %w", err)
	}
	return &entry, nil
}

// UpdateSteps replaces the values of an owned step entry.
func (s *WellnessService) UpdateSteps(ctx context.Context, userID, id string, input StepsInput) (*models.StepEntry, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	entry, err := s.GetSteps(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	entry.Steps = input.Steps
	entry.ActivityType = defaultIfEmpty(strings.TrimSpace(input.ActivityType), DefaultActivityType)
	if !input.Date.IsZero() {
		entry.Date = input.Date.UTC()
	}

	if err := s.db.WithContext(ensureContext(ctx)).Model(entry).
		Updates(map[string]any{"steps": entry.Steps, "activity_type": entry.ActivityType, "date": entry.Date}).Error; err != nil {
		return nil, fmt.Errorf("wellness service: update steps: %w", err)
	}
	return entry, nil
}

// DeleteSteps removes an owned step entry.
func (s *WellnessService) DeleteSteps(ctx context.Context, userID, id string) error {
	return s.deleteOwned(ctx, userID, id, &models.StepEntry{})
}

// LastHydrationAt returns the date of the user's most recent hydration entry, or nil.
func (s *WellnessService) LastHydrationAt(ctx context.Context, userID string) (*time.Time, error) {
	var entry models.HydrationEntry
	err := s.db.WithContext(ensureContext(ctx)).
		Where("user_id = ?", userID).
		Order("date DESC").
		Limit(1).
		Find(&entry).Error
	if err != nil {
		return nil, fmt.Errorf("wellness service: last hydration: %w", err)
	}
	if entry.ID == "" {
		return nil, nil
	}
	return &entry.Date, nil
}

// StepsOn sums the user's steps logged on the UTC calendar day containing day.
func (s *WellnessService) StepsOn(ctx context.Context, userID string, day time.Time) (int, error) {
	from := startOfDay(day)
	var total int64
	err := s.db.WithContext(ensureContext(ctx)).
		Model(&models.StepEntry{}).
		Where("user_id = ? AND date >= ? AND date < ?", userID, from, from.AddDate(0, 0, 1)).
		Select("COALESCE(SUM(steps), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("wellness service: sum steps: %w", err)
	}
	return int(total), nil
}

func (s *WellnessService) dateOrNow(date time.Time) time.Time {
	if date.IsZero() {
		return s.now().UTC()
	}
	return date.UTC()
}

func (s *WellnessService) listOwned(ctx context.Context, userID string, dest any) error {
	return s.db.WithContext(ensureContext(ctx)).
		Where("user_id = ?", userID).
		Order("date DESC").
		Find(dest).Error
}

func (s *WellnessService) findOwned(ctx context.Context, userID, id string, dest any) error {
	err := s.db.WithContext(ensureContext(ctx)).
		Where("id = ? AND user_id = ?", id, userID).
		First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NewNotFound("Entry not found")
	}
	if err != nil {
		return fmt.Errorf("wellness service: load entry: %w", err)
	}
	return nil
}

func (s *WellnessService) deleteOwned(ctx context.Context, userID, id string, model any) error {
	result := s.db.WithContext(ensureContext(ctx)).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(model)
	if result.Error != nil {
		return fmt.Errorf("wellness service: delete entry: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFound("Entry not found")
	}
	return nil
}

func validateInput(input any) error {
	if err := validator.ValidateStruct(input); err != nil {
		return apperrors.NewBadRequest(err.Error())
	}
	return nil
}
