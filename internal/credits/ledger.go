// Package credits gates paid operations on an account's credit balance.
//
// The Ledger charges an account before a paid external call and appends one
// usage record per successful charge. Atomicity comes entirely from the
// store's conditional decrement, so any number of API instances may charge
// the same account concurrently without over-debiting it.
package credits

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/01moynul/palett-api/internal/models"
	"github.com/google/uuid"
)

// Store is the persistence collaborator. Implementations must make
// DecrementCredits a single compare-and-decrement statement.
type Store interface {
	// DecrementCredits subtracts n where the balance is at least n and
	// returns the number of rows it changed.
	DecrementCredits(ctx context.Context, accountID string, n int64) (int64, error)
	// IncrementCredits adds n unconditionally and returns the rows changed.
	IncrementCredits(ctx context.Context, accountID string, n int64) (int64, error)
	// Credits reads the balance. found is false for unknown accounts.
	Credits(ctx context.Context, accountID string) (balance int64, found bool, err error)
	// InsertUsage appends an audit record.
	InsertUsage(ctx context.Context, rec *models.UsageRecord) error
	// InTx runs fn against a transactional view of the store. A non-nil
	// return from fn rolls everything back.
	InTx(ctx context.Context, fn func(Store) error) error
}

// Charge describes one deduction request.
type Charge struct {
	AccountID string
	Operation Operation
	Model     Model
	Quantity  int64
}

// Status tells a Deduct caller which way the charge went.
type Status int

const (
	StatusCharged Status = iota
	StatusInsufficient
)

func (s Status) String() string {
	switch s {
	case StatusCharged:
		return "charged"
	case StatusInsufficient:
		return "insufficient"
	default:
		return "unknown"
	}
}

// Result is the outcome of a Deduct call that reached the store.
type Result struct {
	Status  Status
	Balance int64 // balance after the debit; zero on shortfall
	Charged int64
	Usage   *models.UsageRecord

	// Shortfall is set when Status is StatusInsufficient.
	Shortfall *InsufficientCreditsError
}

// OK reports whether the account was charged.
func (r Result) OK() bool { return r.Status == StatusCharged }

// Err returns the shortfall as an error, or nil when the charge went through.
func (r Result) Err() error {
	if r.Shortfall != nil {
		return r.Shortfall
	}
	return nil
}

// Ledger charges and credits accounts through an injected Store.
type Ledger struct {
	store Store
	costs CostTable
	now   func() time.Time
	newID func() string
}

// Option customizes a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source used for usage records.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDGenerator overrides usage record id generation.
func WithIDGenerator(fn func() string) Option {
	return func(l *Ledger) { l.newID = fn }
}

// New builds a Ledger. A nil table means DefaultCostTable.
func New(store Store, costs CostTable, opts ...Option) *Ledger {
	if costs == nil {
		costs = DefaultCostTable()
	}
	l := &Ledger{
		store: store,
		costs: costs,
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Costs returns a copy of the active cost table.
func (l *Ledger) Costs() CostTable {
	return l.costs.Clone()
}

// Cost resolves the price of one unit of op on model.
func (l *Ledger) Cost(op Operation, model Model) int64 {
	return l.costs.Resolve(op, model)
}

// errShortfall aborts the deduct transaction without being a storage fault.
var errShortfall = errors.New("shortfall")

// Deduct charges cost*quantity to the account. It is not idempotent: every
// call that succeeds debits the account and writes one usage record. A
// shortfall is reported through Result, never through the error, which is
// reserved for *PersistenceUnavailableError.
func (l *Ledger) Deduct(ctx context.Context, c Charge) (Result, error) {
	quantity := c.Quantity
	if quantity < 1 {
		quantity = 1
	}
	unit := l.Cost(c.Operation, c.Model)
	opName := usageOperation(c.Operation, c.Model)

	// No balance can cover a total that does not fit in int64.
	if quantity > math.MaxInt64/unit {
		return Result{
			Status: StatusInsufficient,
			Shortfall: &InsufficientCreditsError{
				AccountID: c.AccountID,
				Operation: opName,
				Required:  math.MaxInt64,
			},
		}, nil
	}
	amount := unit * quantity

	rec := &models.UsageRecord{
		ID:          l.newID(),
		AccountID:   c.AccountID,
		Operation:   opName,
		CreditsUsed: amount,
		Model:       usageModel(c.Model),
		Success:     true,
		CreatedAt:   l.now(),
	}

	var balance int64
	err := l.store.InTx(ctx, func(tx Store) error {
		n, err := tx.DecrementCredits(ctx, c.AccountID, amount)
		if err != nil {
			return err
		}
		if n == 0 {
			return errShortfall
		}
		if err := tx.InsertUsage(ctx, rec); err != nil {
			return err
		}
		balance, _, err = tx.Credits(ctx, c.AccountID)
		return err
	})

	switch {
	case errors.Is(err, errShortfall):
		return Result{
			Status: StatusInsufficient,
			Shortfall: &InsufficientCreditsError{
				AccountID: c.AccountID,
				Operation: opName,
				Required:  amount,
			},
		}, nil
	case err != nil:
		return Result{}, unavailable("deduct", err)
	}

	return Result{
		Status:  StatusCharged,
		Balance: balance,
		Charged: amount,
		Usage:   rec,
	}, nil
}

// AddCredits tops an account up by amount and returns the new balance.
// No usage record is written; top-up bookkeeping belongs to billing.
func (l *Ledger) AddCredits(ctx context.Context, accountID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	var balance int64
	err := l.store.InTx(ctx, func(tx Store) error {
		n, err := tx.IncrementCredits(ctx, accountID, amount)
		if err != nil {
			return unavailable("add credits", err)
		}
		if n == 0 {
			return ErrAccountNotFound
		}
		balance, _, err = tx.Credits(ctx, accountID)
		if err != nil {
			return unavailable("add credits", err)
		}
		return nil
	})
	if err != nil {
		var pe *PersistenceUnavailableError
		if errors.Is(err, ErrAccountNotFound) || errors.As(err, &pe) {
			return 0, err
		}
		return 0, unavailable("add credits", err)
	}
	return balance, nil
}

// Balance returns the account's spendable credits. Unknown accounts read as
// zero; only storage faults are errors.
func (l *Ledger) Balance(ctx context.Context, accountID string) (int64, error) {
	balance, found, err := l.store.Credits(ctx, accountID)
	if err != nil {
		return 0, unavailable("balance", err)
	}
	if !found {
		return 0, nil
	}
	return balance, nil
}

func usageOperation(op Operation, model Model) string {
	if model == NoModel {
		return string(op)
	}
	return string(op) + "_" + strings.ToUpper(string(model))
}

func usageModel(model Model) string {
	if model == NoModel {
		return "unknown"
	}
	return string(model)
}
