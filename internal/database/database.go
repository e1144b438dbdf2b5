package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"newsbrief/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Stores holds one gorm handle per single-file store. The five files are
// independent databases with no cross-store transactionality.
type Stores struct {
	Cache      *gorm.DB
	Users      *gorm.DB
	Search     *gorm.DB
	RateLimits *gorm.DB
	Analytics  *gorm.DB
}

// Open creates the data directory, opens the five sqlite files and runs
// migrations. Handles are meant to be constructed once at startup and passed
// into the stores that need them.
func Open(dataDir string, debug bool) (*Stores, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	logMode := logger.Silent
	if debug {
		logMode = logger.Info
	}

	open := func(name string) (*gorm.DB, error) {
		db, err := gorm.Open(sqlite.Open(filepath.Join(dataDir, name)), &gorm.Config{
			Logger: logger.Default.LogMode(logMode),
		})
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// sqlite serializes writers; a single connection avoids SQLITE_BUSY
		// under concurrent handlers.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetConnMaxLifetime(time.Hour)
		return db, nil
	}

	var s Stores
	var err error

	if s.Cache, err = open("cache.db"); err != nil {
		return nil, err
	}
	if err = s.Cache.AutoMigrate(&models.CacheEntry{}, &models.CacheStats{}); err != nil {
		return nil, fmt.Errorf("migrate cache store: %w", err)
	}

	if s.Users, err = open("users.db"); err != nil {
		return nil, err
	}
	if err = s.Users.AutoMigrate(
		&models.User{},
		&models.UserSession{},
		&models.UserPreference{},
		&models.ReadingHistory{},
	); err != nil {
		return nil, fmt.Errorf("migrate user store: %w", err)
	}

	if s.Search, err = open("search_index.db"); err != nil {
		return nil, err
	}
	if err = s.Search.AutoMigrate(
		&models.SearchDocument{},
		&models.SearchHistory{},
		&models.PopularSearch{},
	); err != nil {
		return nil, fmt.Errorf("migrate search store: %w", err)
	}

	if s.RateLimits, err = open("rate_limits.db"); err != nil {
		return nil, err
	}
	if err = s.RateLimits.AutoMigrate(&models.RateLimitRecord{}, &models.SecurityEvent{}); err != nil {
		return nil, fmt.Errorf("migrate rate limit store: %w", err)
	}

	if s.Analytics, err = open("news_analytics.db"); err != nil {
		return nil, err
	}
	if err = s.Analytics.AutoMigrate(&models.ArticleAnalysis{}, &models.UserInteraction{}); err != nil {
		return nil, fmt.Errorf("migrate analytics store: %w", err)
	}

	return &s, nil
}
