package database

import (
	"fmt"
	"os"
	"time"

	"github.com/beladevo/redirector/config"
	"github.com/beladevo/redirector/logger"
	"github.com/beladevo/redirector/models/campaign"
	"github.com/beladevo/redirector/models/logentry"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitDB opens the configured database, runs migrations and creates the
// query indexes. Both listeners share the returned handle.
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := buildDialector(cfg)
	if err != nil {
		return nil, err
	}

	DB, err = gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		logger.Error("Failed to connect to the database", err)
		return nil, err
	}
	logger.Success("Successfully connected to the database")

	sqlDB, err := DB.DB()
	if err != nil {
		return nil, err
	}
	// SQLite serializes writers anyway; the pool mostly serves concurrent
	// dashboard reads.
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := autoMigrate(DB); err != nil {
		logger.Error("Failed to run migrations", err)
		return nil, err
	}
	logger.Success("All migrations completed successfully")

	if err := createIndexes(DB); err != nil {
		logger.Error("Failed to create indexes", err)
		return nil, err
	}
	logger.Success("All indexes created successfully")

	return DB, nil
}

func buildDialector(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DBDriver {
	case "postgres":
		host := os.Getenv("DB_HOST")
		port := os.Getenv("DB_PORT")
		database := os.Getenv("DB_DATABASE")
		user := os.Getenv("DB_USERNAME")
		password := os.Getenv("DB_PASSWORD")
		sslmode := os.Getenv("DB_SSLMODE")
		if sslmode == "" {
			sslmode = "disable"
		}
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, database, sslmode)
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(cfg.DatabasePath), nil
	default:
		return nil, fmt.Errorf("unsupported db_driver %q", cfg.DBDriver)
	}
}

func autoMigrate(db *gorm.DB) error {
	models := []interface{}{
		&logentry.LogEntry{},
		&campaign.Campaign{},
	}
	for _, model := range models {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}
	return nil
}

// createIndexes adds the composite indexes behind the common dashboard
// filters. The statements are valid on both sqlite and postgres.
func createIndexes(db *gorm.DB) error {
	statements := []string{
		"CREATE INDEX IF NOT EXISTS idx_logs_timestamp_campaign ON logs(timestamp, campaign)",
		"CREATE INDEX IF NOT EXISTS idx_logs_ip_campaign ON logs(ip, campaign)",
		"CREATE INDEX IF NOT EXISTS idx_logs_method_campaign ON logs(method, campaign)",
		"CREATE INDEX IF NOT EXISTS idx_logs_path_campaign ON logs(path, campaign)",
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// GetDB returns the shared database instance.
func GetDB() *gorm.DB {
	return DB
}
