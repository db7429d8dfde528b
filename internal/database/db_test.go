package database

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/welltrack/welltrack-api/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := Open(Config{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = Close(db)
	})
	return db
}

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Ping(db))
	require.NoError(t, db.Exec("SELECT 1").Error)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.ErrorContains(t, err, "unsupported database driver")
}

func TestAutoMigrateAndSeedIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, AutoMigrateAndSeed(db))
	require.NoError(t, AutoMigrateAndSeed(db))

	var roles []models.Role
	require.NoError(t, db.Order("name").Find(&roles).Error)
	require.Len(t, roles, 2)
	require.Equal(t, models.RoleAdmin, roles[0].Name)
	require.Equal(t, models.RoleUser, roles[1].Name)

	migrator := db.Migrator()
	for _, table := range []interface{}{
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
	} {
		require.True(t, migrator.HasTable(table), "expected table for %T", table)
	}
	require.True(t, migrator.HasColumn(&models.User{}, "failed_attempts"))
	require.True(t, migrator.HasColumn(&models.User{}, "locked_until"))
}

func TestAutoMigrateAndSeedRejectsNil(t *testing.T) {
	require.Error(t, AutoMigrateAndSeed(nil))
}

func TestBuildPostgresDSN(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{User: "welltrack", Name: "welltrack"})
	require.NoError(t, err)
	require.Equal(t, "postgres://welltrack@localhost:5432/welltrack?TimeZone=UTC&application_name=welltrack-api&sslmode=disable", dsn)

	dsn, err = buildPostgresDSN(Config{
		User:     "user",
		Name:     "db",
		Host:     "db.internal",
		Port:     6543,
		Password: "p@ss",
		Options:  map[string]string{"sslmode": "require"},
	})
	require.NoError(t, err)

	parsed, err := pgconn.ParseConfig(dsn)
	require.NoError(t, err)
	require.Equal(t, "db.internal", parsed.Host)
	require.EqualValues(t, 6543, parsed.Port)
	require.Equal(t, "user", parsed.User)
	require.Equal(t, "p@ss", parsed.Password)
	require.Equal(t, "db", parsed.Database)
	require.Equal(t, "welltrack-api", parsed.RuntimeParams["application_name"])
	require.NotNil(t, parsed.TLSConfig)

	_, err = buildPostgresDSN(Config{})
	require.Error(t, err)

	dsn, err = buildPostgresDSN(Config{DSN: "postgres://override"})
	require.NoError(t, err)
	require.Equal(t, "postgres://override", dsn)
}

func TestBuildMySQLDSN(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{User: "welltrack", Password: "secret", Name: "welltrack"})
	require.NoError(t, err)

	parsed, err := mysqldriver.ParseDSN(dsn)
	require.NoError(t, err)
	require.Equal(t, "welltrack", parsed.User)
	require.Equal(t, "secret", parsed.Passwd)
	require.Equal(t, "127.0.0.1:3306", parsed.Addr)
	require.Equal(t, "welltrack", parsed.DBName)
	require.True(t, parsed.ParseTime)
	require.Contains(t, dsn, "charset=utf8mb4")

	_, err = buildMySQLDSN(Config{Name: "db"})
	require.Error(t, err)
}

func TestBuildSQLiteDSN(t *testing.T) {
	dsn, err := buildSQLiteDSN(Config{})
	require.NoError(t, err)
	require.Equal(t, "file::memory:?_busy_timeout=5000&_foreign_keys=1&cache=shared", dsn)

	path := filepath.Join(t.TempDir(), "nested", "welltrack.sqlite")
	dsn, err = buildSQLiteDSN(Config{Path: path})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(dsn, "file:"+filepath.ToSlash(path)+"?"))
	require.Contains(t, dsn, "_journal_mode=WAL")
	require.DirExists(t, filepath.Dir(path))

	dsn, err = buildSQLiteDSN(Config{DSN: " file:custom.db "})
	require.NoError(t, err)
	require.Equal(t, "file:custom.db", dsn)
}

func TestSystemSettings(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))
	ctx := context.Background()

	value, err := GetSystemSetting(ctx, db, "missing")
	require.NoError(t, err)
	require.Empty(t, value)

	require.NoError(t, UpsertSystemSetting(ctx, db, "sample", "v1"))
	require.NoError(t, UpsertSystemSetting(ctx, db, "sample", "v2"))
	value, err = GetSystemSetting(ctx, db, "sample")
	require.NoError(t, err)
	require.Equal(t, "v2", value)

	require.Error(t, UpsertSystemSetting(ctx, db, "  ", "x"))
}

func TestResolveJWTSecret(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))
	ctx := context.Background()

	secret, err := ResolveJWTSecret(ctx, db, "configured", false)
	require.NoError(t, err)
	require.Equal(t, "configured", secret)

	secret, err = ResolveJWTSecret(ctx, db, "generated-1", true)
	require.NoError(t, err)
	require.Equal(t, "generated-1", secret)

	secret, err = ResolveJWTSecret(ctx, db, "generated-2", true)
	require.NoError(t, err)
	require.Equal(t, "generated-1", secret, "a stored secret outlives restarts")

	_, err = ResolveJWTSecret(ctx, db, "", true)
	require.Error(t, err)
}

func TestGetSystemSettingWrapsDriverErrors(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormConfig())
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "system_settings"`)).
		WillReturnError(errors.New("connection reset"))

	_, err = GetSystemSetting(context.Background(), db, JWTSecretSetting)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "connection reset"))
	require.NoError(t, mock.ExpectationsWereMet())
}
