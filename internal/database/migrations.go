package database

import (
	"context"
	"fmt"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id CHAR(36) NOT NULL PRIMARY KEY,
		email VARCHAR(255) NOT NULL,
		name VARCHAR(255) NOT NULL DEFAULT '',
		password_hash VARCHAR(255) NOT NULL,
		role VARCHAR(16) NOT NULL DEFAULT 'user',
		plan VARCHAR(16) NOT NULL DEFAULT 'free',
		credits BIGINT NOT NULL DEFAULT 0,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		UNIQUE KEY uq_accounts_email (email),
		CONSTRAINT chk_accounts_credits CHECK (credits >= 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS usage_logs (
		id CHAR(36) NOT NULL PRIMARY KEY,
		account_id CHAR(36) NOT NULL,
		operation VARCHAR(64) NOT NULL,
		credits_used BIGINT NOT NULL,
		model VARCHAR(64) NOT NULL,
		success TINYINT(1) NOT NULL DEFAULT 1,
		created_at DATETIME(6) NOT NULL,
		KEY idx_usage_logs_account (account_id, created_at),
		CONSTRAINT fk_usage_logs_account FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS generated_assets (
		id CHAR(36) NOT NULL PRIMARY KEY,
		account_id CHAR(36) NOT NULL,
		operation VARCHAR(32) NOT NULL,
		model VARCHAR(128) NOT NULL,
		prompt TEXT NOT NULL,
		negative_prompt TEXT NULL,
		url TEXT NOT NULL,
		thumbnail_url TEXT NULL,
		original_url TEXT NULL,
		content_type VARCHAR(16) NOT NULL,
		width INT NOT NULL DEFAULT 0,
		height INT NOT NULL DEFAULT 0,
		duration INT NULL,
		aspect_ratio VARCHAR(16) NULL,
		credits_used BIGINT NOT NULL DEFAULT 0,
		created_at DATETIME(6) NOT NULL,
		KEY idx_generated_assets_account (account_id, created_at),
		CONSTRAINT fk_generated_assets_account FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id TEXT NOT NULL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user',
		plan TEXT NOT NULL DEFAULT 'free',
		credits INTEGER NOT NULL DEFAULT 0 CHECK (credits >= 0),
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS usage_logs (
		id TEXT NOT NULL PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		operation TEXT NOT NULL,
		credits_used INTEGER NOT NULL,
		model TEXT NOT NULL,
		success INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_usage_logs_account ON usage_logs(account_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS generated_assets (
		id TEXT NOT NULL PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		operation TEXT NOT NULL,
		model TEXT NOT NULL,
		prompt TEXT NOT NULL,
		negative_prompt TEXT,
		url TEXT NOT NULL,
		thumbnail_url TEXT,
		original_url TEXT,
		content_type TEXT NOT NULL,
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0,
		duration INTEGER,
		aspect_ratio TEXT,
		credits_used INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_generated_assets_account ON generated_assets(account_id, created_at)`,
}

// Migrate creates any missing tables. It is safe to run on every start.
func (db *DB) Migrate(ctx context.Context) error {
	schema := mysqlSchema
	if db.Driver == DriverSQLite {
		schema = sqliteSchema
	}

	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d failed: %w", i+1, err)
		}
	}
	return nil
}
