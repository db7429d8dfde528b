package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/welltrack/welltrack-api/internal/models"
	"github.com/welltrack/welltrack-api/internal/realtime"
	apperrors "github.com/welltrack/welltrack-api/pkg/errors"
	"github.com/welltrack/welltrack-api/pkg/logger"
)

const (
	motivationPath         = "/motivation/daily"
	motivationDateLayout   = "2006-01-02"
	defaultMotivationLimit = 10 * time.Second
	maxMotivationBody      = 64 << 10
)

// MotivationConfig configures the upstream motivation generator.
type MotivationConfig struct {
	BaseURL string
	Timeout time.Duration
	Client  *http.Client
	Clock   func() time.Time
}

// DailyMotivationDTO is the message of the day.
type DailyMotivationDTO struct {
	Date    string `json:"date"`
	Message string `json:"message"`
}

// MotivationService serves one motivational message per UTC date, generating it on first request.
type MotivationService struct {
	db      *gorm.DB
	hub     Broadcaster
	client  *http.Client
	baseURL string
	now     func() time.Time
	log     *zap.Logger
}

// NewMotivationService constructs a MotivationService. hub may be nil.
func NewMotivationService(db *gorm.DB, hub Broadcaster, cfg MotivationConfig) (*MotivationService, error) {
	if db == nil {
		return nil, errors.New("motivation service: db is required")
	}

	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultMotivationLimit
		}
		client = &http.Client{Timeout: timeout}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &MotivationService{
		db:      db,
		hub:     hub,
		client:  client,
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		now:     clock,
		log:     logger.WithModule("motivation"),
	}, nil
}

// Today returns the cached message for the current UTC date, fetching and broadcasting it on a miss.
func (s *MotivationService) Today(ctx context.Context) (*DailyMotivationDTO, error) {
	ctx = ensureContext(ctx)
	today := s.now().UTC().Format(motivationDateLayout)

	cached, err := s.load(ctx, today)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return cached, nil
	}

	if s.baseURL == "" {
		return nil, apperrors.NewBadRequest("Motivation service base URL is not configured")
	}

	message, err := s.fetch(ctx)
	if err != nil {
		s.log.Error("daily motivation generation failed", zap.String("date", today), zap.Error(err))
		return nil, err
	}

	record := models.DailyMotivation{Date: today, Message: message}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// another request stored today's message first
			if cached, loadErr := s.load(ctx, today); loadErr == nil && cached != nil {
				return cached, nil
			}
		}
		return nil, fmt.Errorf("motivation service: store: %w", err)
	}

	dto := &DailyMotivationDTO{Date: today, Message: message}
	s.log.Info("daily motivation generated", zap.String("date", today))
	if s.hub != nil {
		s.hub.BroadcastStream(realtime.StreamMotivation, realtime.Message{Event: "motivation.daily", Data: dto})
	}
	return dto, nil
}

func (s *MotivationService) load(ctx context.Context, date string) (*DailyMotivationDTO, error) {
	var record models.DailyMotivation
	err := s.db.WithContext(ctx).Where("date = ?", date).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("motivation service: load: %w", err)
	}
	return &DailyMotivationDTO{Date: record.Date, Message: record.Message}, nil
}

func (s *MotivationService) fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+motivationPath, nil)
	if err != nil {
		return "", apperrors.NewExternalService("Failed to generate daily motivation", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", apperrors.NewExternalService("Failed to generate daily motivation", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apperrors.NewExternalService(
			fmt.Sprintf("Motivation service failed with status %d", resp.StatusCode), nil)
	}

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxMotivationBody)).Decode(&payload); err != nil {
		return "", apperrors.NewExternalService("Invalid motivation response", err)
	}
	message := strings.TrimSpace(payload.Message)
	if message == "" {
		return "", apperrors.NewExternalService("Invalid motivation response", errors.New("empty message"))
	}
	return message, nil
}
