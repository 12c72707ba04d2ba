package database

import (
	"context"
	"database/sql"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/charmntreats/internal/models"
)

// Connect opens the primary database and runs migrations. An unreachable
// database is not fatal: the returned handle keeps failing and the order and
// customer repositories fall back to local storage until it recovers. The
// second result reports whether migrations ran; when false, callers should
// start RetryMigrate.
func Connect(dsn string) (*gorm.DB, bool) {
	if err := ensureDatabase(dsn); err != nil {
		log.Printf("[Database] could not ensure database exists: %v", err)
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Warn),
		DisableAutomaticPing: true,
	})
	if err != nil {
		log.Fatalf("failed to configure database: %v", err)
	}

	if err := Migrate(conn); err != nil {
		log.Printf("[Database] migration failed, running in degraded mode: %v", err)
		return conn, false
	}

	return conn, true
}

// RetryMigrate runs Migrate every interval until it succeeds once or ctx is
// cancelled. It blocks; run it in its own goroutine.
func RetryMigrate(ctx context.Context, conn *gorm.DB, interval time.Duration) bool {
	return retryMigrate(ctx, conn, interval, Migrate)
}

func retryMigrate(ctx context.Context, conn *gorm.DB, interval time.Duration, migrate func(*gorm.DB) error) bool {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := migrate(conn.WithContext(ctx)); err != nil {
				log.Printf("[Database] migration retry failed: %v", err)
				continue
			}
			log.Printf("[Database] migrations applied, primary store is back")
			return true
		case <-ctx.Done():
			return false
		}
	}
}

// Migrate creates or updates every table the storefront uses.
func Migrate(conn *gorm.DB) error {
	migrations := []interface{}{
		&models.Order{},
		&models.OrderItem{},
		&models.Account{},
		&models.CustomerProfile{},
		&models.OTPRecord{},
		&models.Product{},
		&models.BlogCategory{},
		&models.BlogPost{},
		&models.BlogComment{},
		&models.Testimonial{},
	}

	for _, migration := range migrations {
		if err := conn.AutoMigrate(migration); err != nil {
			return err
		}
	}

	return nil
}

func ensureDatabase(dsn string) error {
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return nil
	}

	parsed, err := url.Parse(dsn)
	if err != nil {
		return err
	}

	dbName := strings.TrimPrefix(parsed.Path, "/")
	if dbName == "" {
		return nil
	}

	parsed.Path = "/postgres"
	masterDSN := parsed.String()

	sqlDB, err := sql.Open("postgres", masterDSN)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return err
	}

	var exists bool
	if err := sqlDB.QueryRow("SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", dbName).Scan(&exists); err != nil {
		return err
	}

	if exists {
		return nil
	}

	_, err = sqlDB.Exec("CREATE DATABASE " + pq.QuoteIdentifier(dbName))
	return err
}
