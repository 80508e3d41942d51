package config

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// SetupDatabase initializes the database connection
func SetupDatabase(cfg *Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	if err := CreateTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

var tables = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id VARCHAR(128) PRIMARY KEY,
		email VARCHAR(255) NOT NULL,
		name VARCHAR(255) NOT NULL DEFAULT '',
		photo_url TEXT NOT NULL DEFAULT '',
		points_balance BIGINT NOT NULL DEFAULT 0 CHECK (points_balance >= 0),
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS items (
		id VARCHAR(36) PRIMARY KEY,
		owner_id VARCHAR(128) NOT NULL REFERENCES accounts(id),
		title VARCHAR(200) NOT NULL,
		description TEXT NOT NULL,
		category VARCHAR(64) NOT NULL,
		size VARCHAR(32) NOT NULL,
		condition VARCHAR(64) NOT NULL,
		images TEXT[] NOT NULL DEFAULT '{}',
		status VARCHAR(20) NOT NULL,
		points_value BIGINT NOT NULL CHECK (points_value >= 0),
		version BIGINT NOT NULL DEFAULT 1,
		swapped_by VARCHAR(128) REFERENCES accounts(id),
		swapped_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS swap_transactions (
		id VARCHAR(36) PRIMARY KEY,
		item_id VARCHAR(36) NOT NULL REFERENCES items(id),
		from_account_id VARCHAR(128) NOT NULL,
		to_account_id VARCHAR(128) NOT NULL,
		points_amount BIGINT NOT NULL,
		status VARCHAR(20) NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		resolved_at TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id VARCHAR(36) PRIMARY KEY,
		account_id VARCHAR(128) NOT NULL REFERENCES accounts(id),
		delta BIGINT NOT NULL,
		reason VARCHAR(32) NOT NULL,
		related_item_id VARCHAR(36) REFERENCES items(id),
		swap_id VARCHAR(36),
		note TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
	// A swapped item carries exactly one spend and one earn entry
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_ledger_entries_swap
		ON ledger_entries(related_item_id, reason)
		WHERE reason IN ('swap_spend', 'swap_earn')`,
}

var indexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_items_status ON items(status)",
	"CREATE INDEX IF NOT EXISTS idx_items_owner ON items(owner_id)",
	"CREATE INDEX IF NOT EXISTS idx_ledger_entries_account ON ledger_entries(account_id, created_at)",
	"CREATE INDEX IF NOT EXISTS idx_swaps_from ON swap_transactions(from_account_id)",
	"CREATE INDEX IF NOT EXISTS idx_swaps_to ON swap_transactions(to_account_id)",
}

// CreateTables creates the necessary tables in the database
func CreateTables(db *sqlx.DB) error {
	for _, stmt := range tables {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			log.Printf("Warning: Failed to create index: %v", err)
		}
	}

	return nil
}
