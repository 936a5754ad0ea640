package database

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"PayGate/internal/config"
	"PayGate/internal/store"
)

var DB *gorm.DB

// Connect opens the SQL database selected by STORE_DRIVER. The bolt driver has
// no SQL connection and is handled by Open.
func Connect(cfg config.StoreConfig) error {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case config.DriverPostgres:
		dsn, err := cfg.PostgresDSN()
		if err != nil {
			return err
		}
		if cfg.DatabaseURL != "" {
			log.Println("Using DATABASE_URL")
		} else {
			log.Println("Using individual database environment variables")
		}
		dialector = postgres.Open(dsn)
	case config.DriverSQLite:
		log.Printf("Using sqlite database at %s", cfg.SQLitePath)
		dialector = sqlite.Open(cfg.SQLitePath + "?_busy_timeout=5000")
	default:
		return fmt.Errorf("driver %q has no SQL connection", cfg.Driver)
	}

	var err error
	DB, err = gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Database connected successfully")
	return nil
}

// Open connects, migrates and returns the configured store.
func Open(cfg config.StoreConfig) (store.Store, error) {
	if cfg.Driver == config.DriverBolt {
		s, err := store.NewBoltStore(cfg.BoltPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open bolt store: %w", err)
		}
		log.Printf("Using bolt store at %s", cfg.BoltPath)
		return s, nil
	}

	if err := Connect(cfg); err != nil {
		return nil, err
	}
	if err := Migrate(); err != nil {
		Close()
		return nil, err
	}
	return store.NewGormStore(DB), nil
}

func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
