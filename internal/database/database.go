package database

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// GormConfig is shared by every dialector so error translation and UTC
// timestamps behave the same in production and tests.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
}

func Connect(cfg *config.Config) error {
	var err error
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), GormConfig())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	slog.Info("database connected")
	return nil
}

// Models lists every table owned by the service.
func Models() []interface{} {
	return []interface{}{
		&models.Report{},
		&models.Vote{},
		&models.Comment{},
		&models.AbuseReport{},
		&models.ClassifierSignal{},
		&models.GeofenceZone{},
		&models.UserLocationSample{},
		&models.SystemLog{},
	}
}

// Migrate runs AutoMigrate for all service models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

func Close() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
