package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/welltrack/welltrack-api/internal/api"
	"github.com/welltrack/welltrack-api/internal/app"
	"github.com/welltrack/welltrack-api/internal/app/maintenance"
	"github.com/welltrack/welltrack-api/internal/app/reminders"
	iauth "github.com/welltrack/welltrack-api/internal/auth"
	"github.com/welltrack/welltrack-api/internal/database"
	"github.com/welltrack/welltrack-api/internal/middleware"
	"github.com/welltrack/welltrack-api/internal/realtime"
	"github.com/welltrack/welltrack-api/internal/services"
	"github.com/welltrack/welltrack-api/pkg/logger"
	"github.com/welltrack/welltrack-api/pkg/mail"
)

// utcNow is the clock shared by every service. Stored timestamps are compared as UTC.
func utcNow() time.Time {
	return time.Now().UTC()
}

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB       *gorm.DB
	Hub      *realtime.Hub
	Accounts *services.AccountService
	Cleaner  *maintenance.Cleaner
	Sweeper  *reminders.Sweeper
	Router   *gin.Engine
}

// bootstrapRuntime initialises the database, services, background jobs and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, generatedSecret bool, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mode
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	cfg.Auth.JWT.Secret, err = database.ResolveJWTSecret(ctx, stack.DB, cfg.Auth.JWT.Secret, generatedSecret)
	if err != nil {
		return nil, fmt.Errorf("resolve jwt secret: %w", err)
	}

	jwtCfg := cfg.Auth.JWTServiceConfig()
	jwtCfg.Clock = utcNow
	jwtSvc, err := iauth.NewJWTService(jwtCfg)
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	credCfg := cfg.Auth.CredentialConfig()
	credCfg.Clock = utcNow
	credentials, err := iauth.NewCredentialStore(stack.DB, credCfg)
	if err != nil {
		return nil, fmt.Errorf("initialise credential store: %w", err)
	}

	codes, err := services.NewOTPLedger(stack.DB, services.WithOTPClock(utcNow), services.WithOTPTTL(cfg.Auth.OTP.TTL))
	if err != nil {
		return nil, fmt.Errorf("initialise otp ledger: %w", err)
	}

	tokens, err := iauth.NewRefreshTokenLedger(stack.DB, jwtSvc, utcNow)
	if err != nil {
		return nil, fmt.Errorf("initialise refresh token ledger: %w", err)
	}

	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise mailer: %w", err)
	}
	if !cfg.Email.SMTP.Enabled {
		log.Warn("smtp disabled; one-time codes will not be delivered")
	}

	stack.Accounts, err = services.NewAccountService(credentials, codes, tokens, jwtSvc, mailer, services.WithAccountClock(utcNow))
	if err != nil {
		return nil, fmt.Errorf("initialise account service: %w", err)
	}

	if err := seedAdmin(ctx, stack.Accounts, cfg.Admin, log); err != nil {
		return nil, err
	}

	stack.Hub = realtime.NewHub()

	wellness, err := services.NewWellnessService(stack.DB, utcNow)
	if err != nil {
		return nil, fmt.Errorf("initialise wellness service: %w", err)
	}
	notifications, err := services.NewNotificationService(stack.DB, stack.Hub, utcNow)
	if err != nil {
		return nil, fmt.Errorf("initialise notification service: %w", err)
	}
	motivation, err := services.NewMotivationService(stack.DB, stack.Hub, services.MotivationConfig{
		BaseURL: cfg.Motivation.BaseURL,
		Timeout: cfg.Motivation.Timeout,
		Clock:   utcNow,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise motivation service: %w", err)
	}

	stack.Cleaner = maintenance.NewCleaner(tokens, credentials,
		maintenance.WithNow(utcNow),
		maintenance.WithRetention(cfg.Auth.Session.Retention),
		maintenance.WithSchedule(cfg.Auth.Session.CleanupSchedule),
	)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	stack.Sweeper, err = reminders.NewSweeper(stack.DB, wellness, notifications, reminders.Config{
		Schedule:        cfg.Reminders.Schedule,
		HydrationWindow: cfg.Reminders.HydrationWindow,
		StepGoal:        cfg.Reminders.StepGoal,
	}, reminders.WithNow(utcNow))
	if err != nil {
		return nil, fmt.Errorf("initialise reminder sweep: %w", err)
	}
	if cfg.Reminders.Enabled {
		if err := stack.Sweeper.Start(); err != nil {
			return nil, fmt.Errorf("start reminder sweep: %w", err)
		}
	}

	stack.Router, err = api.NewRouter(cfg, api.Dependencies{
		DB:            stack.DB,
		JWT:           jwtSvc,
		Accounts:      stack.Accounts,
		Wellness:      wellness,
		Notifications: notifications,
		Motivation:    motivation,
		Hub:           stack.Hub,
		Sweeper:       stack.Sweeper,
		Cleaner:       stack.Cleaner,
		RateStore:     middleware.NewMemoryRateStore(),
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

func seedAdmin(ctx context.Context, accounts *services.AccountService, cfg app.AdminConfig, log *zap.Logger) error {
	email := strings.TrimSpace(cfg.Email)
	if email == "" {
		return nil
	}
	created, err := accounts.SeedAdmin(ctx, cfg.Name, email, cfg.Password)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		log.Info("administrator created", zap.String("email", logger.MaskEmail(email)))
	}
	return nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Sweeper != nil {
		<-s.Sweeper.Stop().Done()
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if stopCtx != nil {
			<-stopCtx.Done()
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver:          strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:            strings.TrimSpace(cfg.Database.Path),
		DSN:             strings.TrimSpace(cfg.Database.DSN),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	var auth app.DBAuthConfig
	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
		return dbCfg
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		auth = cfg.Database.Postgres
	case "mysql", "mariadb":
		dbCfg.Driver = "mysql"
		auth = cfg.Database.MySQL
	default:
		// Leave driver as-is to surface unsupported driver error during open.
		return dbCfg
	}

	dbCfg.Host = strings.TrimSpace(auth.Host)
	dbCfg.Port = auth.Port
	dbCfg.Name = strings.TrimSpace(auth.Database)
	dbCfg.User = strings.TrimSpace(auth.Username)
	dbCfg.Password = auth.Password
	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if err := database.Close(db); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
