package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/01moynul/palett-api/internal/models"
	"github.com/go-sql-driver/mysql"
)

// ErrDuplicateEmail is returned when an account with the same email exists.
var ErrDuplicateEmail = errors.New("account email already registered")

// AccountStore reads and creates accounts. It never updates credits; that
// column belongs to the ledger.
type AccountStore struct {
	q Querier
}

func NewAccountStore(db *DB) *AccountStore {
	return &AccountStore{q: db.DB}
}

const accountColumns = `id, email, name, password_hash, role, plan, credits, created_at, updated_at`

// CreateAccount inserts a new account with its opening balance.
func (s *AccountStore) CreateAccount(ctx context.Context, a *models.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.q.ExecContext(ctx, query,
		a.ID, a.Email, a.Name, a.PasswordHash, a.Role, a.Plan, a.Credits, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// GetAccountByID returns nil, nil when no account matches.
func (s *AccountStore) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	return s.getAccount(ctx, "id", id)
}

// GetAccountByEmail returns nil, nil when no account matches.
func (s *AccountStore) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.getAccount(ctx, "email", strings.ToLower(email))
}

func (s *AccountStore) getAccount(ctx context.Context, column, value string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + column + ` = ?`

	var a models.Account
	err := s.q.QueryRowContext(ctx, query, value).Scan(
		&a.ID,
		&a.Email,
		&a.Name,
		&a.PasswordHash,
		&a.Role,
		&a.Plan,
		&a.Credits,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &a, nil
}

// UpdateProfile rewrites the non-balance fields of an account.
func (s *AccountStore) UpdateProfile(ctx context.Context, a *models.Account) error {
	query := `
		UPDATE accounts
		SET name = ?, password_hash = ?, role = ?, plan = ?, updated_at = ?
		WHERE id = ?`

	result, err := s.q.ExecContext(ctx, query, a.Name, a.PasswordHash, a.Role, a.Plan, a.UpdatedAt, a.ID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// isDuplicateKey recognizes unique violations from both drivers.
func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
