package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/01moynul/palett-api/internal/credits"
	"github.com/01moynul/palett-api/internal/models"
)

// LedgerStore implements credits.Store on top of SQL. It is the only code
// path that changes accounts.credits after an account is created.
type LedgerStore struct {
	db *sql.DB // nil when bound to a transaction
	q  Querier
}

// NewLedgerStore binds a store to the connection pool.
func NewLedgerStore(db *DB) *LedgerStore {
	return &LedgerStore{db: db.DB, q: db.DB}
}

var _ credits.Store = (*LedgerStore)(nil)

// DecrementCredits is the compare-and-decrement primitive. The balance check
// and the write happen in one statement, so concurrent callers can never
// take the balance below zero.
func (s *LedgerStore) DecrementCredits(ctx context.Context, accountID string, n int64) (int64, error) {
	query := `
		UPDATE accounts
		SET credits = credits - ?, updated_at = ?
		WHERE id = ? AND credits >= ?`

	result, err := s.q.ExecContext(ctx, query, n, time.Now().UTC(), accountID, n)
	if err != nil {
		return 0, fmt.Errorf("decrement credits: %w", err)
	}
	return result.RowsAffected()
}

// IncrementCredits adds n to the balance unconditionally.
func (s *LedgerStore) IncrementCredits(ctx context.Context, accountID string, n int64) (int64, error) {
	query := `
		UPDATE accounts
		SET credits = credits + ?, updated_at = ?
		WHERE id = ?`

	result, err := s.q.ExecContext(ctx, query, n, time.Now().UTC(), accountID)
	if err != nil {
		return 0, fmt.Errorf("increment credits: %w", err)
	}
	return result.RowsAffected()
}

// Credits reads the current balance.
func (s *LedgerStore) Credits(ctx context.Context, accountID string) (int64, bool, error) {
	var balance int64
	err := s.q.QueryRowContext(ctx, "SELECT credits FROM accounts WHERE id = ?", accountID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("read credits: %w", err)
	}
	return balance, true, nil
}

// InsertUsage appends one usage record.
func (s *LedgerStore) InsertUsage(ctx context.Context, rec *models.UsageRecord) error {
	query := `
		INSERT INTO usage_logs
		(id, account_id, operation, credits_used, model, success, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.q.ExecContext(ctx, query,
		rec.ID, rec.AccountID, rec.Operation, rec.CreditsUsed, rec.Model, rec.Success, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}
	return nil
}

// InTx runs fn in a transaction. Nested calls reuse the open transaction.
func (s *LedgerStore) InTx(ctx context.Context, fn func(credits.Store) error) error {
	if s.db == nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // no-op after Commit

	if err := fn(&LedgerStore{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListUsage returns the account's most recent usage records, newest first.
func (s *LedgerStore) ListUsage(ctx context.Context, accountID string, limit int) ([]models.UsageRecord, error) {
	query := `
		SELECT id, account_id, operation, credits_used, model, success, created_at
		FROM usage_logs
		WHERE account_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	rows, err := s.q.QueryContext(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}
	defer rows.Close()

	records := []models.UsageRecord{}
	for rows.Next() {
		var rec models.UsageRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.AccountID,
			&rec.Operation,
			&rec.CreditsUsed,
			&rec.Model,
			&rec.Success,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan usage record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CreditsSpentSince sums the credits the account spent from since onwards.
func (s *LedgerStore) CreditsSpentSince(ctx context.Context, accountID string, since time.Time) (int64, error) {
	var total int64
	query := `
		SELECT COALESCE(SUM(credits_used), 0)
		FROM usage_logs
		WHERE account_id = ? AND created_at >= ?`

	if err := s.q.QueryRowContext(ctx, query, accountID, since.UTC()).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum usage: %w", err)
	}
	return total, nil
}
