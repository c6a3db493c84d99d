package datastore

import (
	"log"
	"os"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cfornesa/ethics-risk-audit-assistant/internal/logging"
)

// createGormLogger configures and returns a new GORM logger instance.
func createGormLogger() gormlogger.Interface {
	return gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold: 200 * time.Millisecond,
			LogLevel:      gormlogger.Warn,
			Colorful:      true,
		},
	)
}

// performAutoMigration runs gorm's AutoMigrate for all models.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&Project{}, &Item{}); err != nil {
		return dbError(err, "auto-migration")
	}

	if debug {
		logging.Debug("Database connection initialized",
			"type", dbType, "connection", connectionInfo)
	}
	return nil
}
