package db

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	maxAttempts = 10
	retryDelay  = 2 * time.Second
)

// Open connects to postgres, retrying while the database container comes up.
func Open(dsn string, log logrus.FieldLogger) (*gorm.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Warn),
			TranslateError: true,
		})
		if err == nil {
			sqlDB, derr := gdb.DB()
			if derr == nil {
				if derr = sqlDB.Ping(); derr == nil {
					sqlDB.SetMaxOpenConns(20)
					sqlDB.SetMaxIdleConns(5)
					sqlDB.SetConnMaxLifetime(30 * time.Minute)
					log.WithField("attempt", attempt).Info("database connected")
					return gdb, nil
				}
			}
			err = derr
		}
		lastErr = err
		log.WithError(err).WithField("attempt", attempt).Warn("database not ready, retrying")
		time.Sleep(retryDelay)
	}
	return nil, fmt.Errorf("connect database after %d attempts: %w", maxAttempts, lastErr)
}
