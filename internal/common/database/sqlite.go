// internal/common/database/sqlite.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"gbif-workers/internal/common/config"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteClient is a read-only handle on the GADM GeoPackage.
type SQLiteClient struct {
	DB *sql.DB
}

// NewSQLite opens the GeoPackage at cfg.Path read-only.
func NewSQLite(cfg config.GADMConfig) (*SQLiteClient, error) {
	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, fmt.Errorf("gadm geopackage: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+cfg.Path+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &SQLiteClient{DB: db}, nil
}

// Ping tests the database connection
func (c *SQLiteClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Close closes the database connection
func (c *SQLiteClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
