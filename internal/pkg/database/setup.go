package database

import (
	"fmt"
	"log"
	"time"

	"github.com/702ron/product-api-site-sub000/app/models"
	"github.com/702ron/product-api-site-sub000/internal/pkg/env"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

// SetupDatabase opens the configured database, retrying while it comes up.
// DB_DRIVER=sqlite is meant for local development; production runs MySQL
// with the schema managed by cmd/migrate.
func SetupDatabase() *gorm.DB {
	var err error
	for i := 0; i < maxRetries; i++ {
		db, oerr := Open()
		if oerr == nil {
			return db
		}
		err = oerr

		log.Printf("Failed to connect to database (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			log.Printf("Retrying in %v...", retryDelay)
			time.Sleep(retryDelay)
		}
	}

	panic(err)
}

// Open makes a single connection attempt with the configured driver and
// applies AutoMigrate when DB_AUTO_MIGRATE=true or the driver is sqlite.
func Open() (*gorm.DB, error) {
	driver := env.GetEnv("DB_DRIVER", "mysql")

	var db *gorm.DB
	var err error
	switch driver {
	case "sqlite":
		db, err = OpenSQLite(env.GetEnv("DB_PATH", "product_api.db"))
	default:
		db, err = openMySQL()
	}
	if err != nil {
		return nil, err
	}

	if env.GetEnv("DB_AUTO_MIGRATE", "false") == "true" || driver == "sqlite" {
		if err := Migrate(db); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}
	return db, nil
}

func openMySQL() (*gorm.DB, error) {
	// "user:pass@tcp(127.0.0.1:3306)/dbname?charset=utf8mb4&parseTime=True&loc=Local"
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		env.GetEnv("DB_USER", ""),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", ""),
	)

	return gorm.Open(mysql.New(mysql.Config{
		DSN:                       dsn,  // data source name
		DefaultStringSize:         256,  // default size for string fields
		DontSupportRenameIndex:    true, // drop & create when rename index, rename index not supported before MySQL 5.7, MariaDB
		DontSupportRenameColumn:   true, // `change` when rename column, rename column not supported before MySQL 8, MariaDB
		SkipInitializeWithVersion: false,
	}), &gorm.Config{})
}

// OpenSQLite opens a SQLite database. SQLite has no row-level locks, so the
// pool is pinned to one connection to serialize ledger transactions.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Migrate creates or updates the tables for every persisted model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.CreditTransaction{},
		&models.ConversionCacheEntry{},
	)
}
