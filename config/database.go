package config

import (
	"fmt"
	"log/slog"
	"time"

	"salonsync-backend/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// ConnectDB opens the postgres connection and tunes the pool
func ConnectDB(settings DatabaseSettings) error {
	db, err := gorm.Open(postgres.Open(settings.URL), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(settings.MaxOpenConns)
	sqlDB.SetMaxIdleConns(settings.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(settings.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(time.Minute)

	DB = db
	slog.Info("database connected", "maxOpenConns", settings.MaxOpenConns)
	return nil
}

// Migrate creates or updates every table the API uses
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Salon{},
		&models.Staff{},
		&models.Client{},
		&models.Service{},
		&models.Appointment{},
		&models.AppointmentService{},
		&models.Sale{},
		&models.SaleItem{},
		&models.GiftCard{},
		&models.GiftCardTransaction{},
		&models.WaitlistEntry{},
		&models.MediaSet{},
		&models.SocialPost{},
		&models.ReminderTemplate{},
		&models.ReminderLog{},
	)
}

// PingDB reports whether the database answers
func PingDB() error {
	if DB == nil {
		return fmt.Errorf("database not initialised")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
