package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/ds124wfegd/hotel-booking/config"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	_ "github.com/lib/pq"
)

func NewPostgresDB(cfg *config.DatabaseConfig) (*sqlx.DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.WithField("host", cfg.Host).Info("Successfully connected to PostgreSQL")
	return db, nil
}

// RunMigrations creates the schema if it does not exist. Constraint names are
// referenced by the repository error mapping and must not change.
func RunMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			id BIGSERIAL PRIMARY KEY,
			room_number VARCHAR(20) NOT NULL,
			room_type VARCHAR(20) NOT NULL DEFAULT 'STANDARD',
			base_price NUMERIC(10,2) NOT NULL,
			max_guests INTEGER NOT NULL DEFAULT 2,
			floor INTEGER NOT NULL DEFAULT 1,
			status VARCHAR(20) NOT NULL DEFAULT 'AVAILABLE',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT rooms_room_number_key UNIQUE (room_number),
			CONSTRAINT rooms_base_price_check CHECK (base_price > 0),
			CONSTRAINT rooms_status_check CHECK (status IN ('AVAILABLE', 'OCCUPIED', 'MAINTENANCE')),
			CONSTRAINT rooms_room_type_check CHECK (room_type IN ('ECONOMY', 'STANDARD', 'DELUXE'))
		)`,

		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			email VARCHAR(255) NOT NULL,
			first_name VARCHAR(100) NOT NULL DEFAULT '',
			last_name VARCHAR(100) NOT NULL DEFAULT '',
			phone VARCHAR(32) NOT NULL DEFAULT '',
			role VARCHAR(20) NOT NULL DEFAULT 'CUSTOMER',
			password_hash VARCHAR(255) NOT NULL DEFAULT '',
			is_registered BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT users_email_key UNIQUE (email),
			CONSTRAINT users_role_check CHECK (role IN ('CUSTOMER', 'STAFF', 'ADMIN'))
		)`,

		`CREATE TABLE IF NOT EXISTS bookings (
			booking_code VARCHAR(32) PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			room_id BIGINT NOT NULL REFERENCES rooms(id),
			check_in_date DATE NOT NULL,
			check_out_date DATE NOT NULL,
			special_requests TEXT,
			status VARCHAR(20) NOT NULL DEFAULT 'ACTIVE',
			total_price NUMERIC(12,2) NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT bookings_dates_check CHECK (check_out_date > check_in_date),
			CONSTRAINT bookings_status_check CHECK (status IN ('ACTIVE', 'COMPLETED', 'CANCELLED'))
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_bookings_room_active ON bookings(room_id, check_in_date, check_out_date) WHERE status = 'ACTIVE'`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_user_id ON bookings(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status_check_out ON bookings(status, check_out_date)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_check_in ON bookings(check_in_date)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	logrus.Info("Database migrations completed successfully")
	return nil
}
