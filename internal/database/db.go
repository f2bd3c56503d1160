package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings. The venue has a handful of operators; keep it small.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// schema creates the single table the service needs. event_date is a DATE
// so that ordering and year/month grouping happen on the calendar date
// without any timezone conversion.
const schema = `CREATE TABLE IF NOT EXISTS reservations (
    id                CHAR(36)      NOT NULL PRIMARY KEY,
    client_name       VARCHAR(255)  NOT NULL,
    event_date        DATE          NOT NULL,
    reservation_value DECIMAL(12,2) NOT NULL,
    advance_payment   DECIMAL(12,2) NULL,
    table_quantity    INT UNSIGNED  NULL,
    guests            INT UNSIGNED  NULL,
    phone             VARCHAR(40)   NOT NULL,
    notes             TEXT          NULL,
    status            ENUM('pending','confirmed') NOT NULL DEFAULT 'pending',
    created_at        DATETIME(3)   NOT NULL,
    KEY idx_reservations_event_date (event_date, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// Migrate creates the reservations table when it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate reservations: %w", err)
	}
	return nil
}
