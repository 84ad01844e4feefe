package db

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/felicity-dev/felicity/internal/config"
	"github.com/felicity-dev/felicity/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the configured database. The returned handle is owned by
// the caller, who must Close it on shutdown.
func Open(cfg config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.DatabaseDriver {
	case "postgres", "postgresql":
		dialector = postgres.Open(cfg.DatabaseURL)
	case "mysql":
		dialector = mysql.Open(cfg.DatabaseURL)
	case "sqlite":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "felicity.db"
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.DatabaseDriver)
	}

	logLevel := logger.Warn
	if !cfg.Debug() {
		logLevel = logger.Error
	}

	gormLogger := logger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logLevel,
		IgnoreRecordNotFoundError: true,
	})

	database, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger,
	})

	if err != nil {
		return nil, err
	}

	if cfg.DatabaseDriver == "sqlite" {
		sqlDB, err := database.DB()
		if err != nil {
			return nil, err
		}
		// sqlite allows a single writer; serializing on one connection keeps
		// conditional updates from failing with SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	}

	return database, nil
}

// Close releases the underlying connection pool.
func Close(database *gorm.DB) error {
	sqlDB, err := database.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func MigrateDatabase(database *gorm.DB) error {
	models := []interface{}{
		&models.Account{},
		&models.Follow{},
		&models.Event{},
		&models.MerchVariant{},
		&models.Registration{},
		&models.DiscussionMessage{},
		&models.MessageReaction{},
		&models.AnnouncementCursor{},
		&models.Team{},
		&models.TeamMember{},
		&models.PasswordResetRequest{},
		&models.Notification{},
	}

	for _, model := range models {
		if err := database.AutoMigrate(model); err != nil {
			return fmt.Errorf("migrate %T: %w", model, err)
		}
	}

	return nil
}

// IsDuplicateKey reports whether err is a unique constraint violation.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}
