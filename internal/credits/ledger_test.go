package credits_test

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/01moynul/palett-api/internal/credits"
	"github.com/01moynul/palett-api/internal/database"
	"github.com/01moynul/palett-api/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db     *database.DB
	store  *database.LedgerStore
	ledger *credits.Ledger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Options{
		Driver: database.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "ledger.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))

	store := database.NewLedgerStore(db)
	return &fixture{db: db, store: store, ledger: credits.New(store, nil)}
}

func (f *fixture) account(t *testing.T, balance int64) string {
	t.Helper()
	now := time.Now().UTC()
	acc := &models.Account{
		ID:           uuid.NewString(),
		Email:        uuid.NewString() + "@example.com",
		Name:         "Test",
		PasswordHash: "x",
		Role:         models.RoleUser,
		Plan:         models.PlanFree,
		Credits:      balance,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, database.NewAccountStore(f.db).CreateAccount(context.Background(), acc))
	return acc.ID
}

func (f *fixture) usage(t *testing.T, accountID string) []models.UsageRecord {
	t.Helper()
	records, err := f.store.ListUsage(context.Background(), accountID, 100)
	require.NoError(t, err)
	return records
}

func TestDeduct_SufficientBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.account(t, 10)

	res, err := f.ledger.Deduct(ctx, credits.Charge{AccountID: id, Operation: credits.TextToVideo, Model: credits.Kling})
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.NoError(t, res.Err())
	assert.Equal(t, int64(4), res.Charged)
	assert.Equal(t, int64(6), res.Balance)

	records := f.usage(t, id)
	require.Len(t, records, 1)
	assert.Equal(t, "TEXT_TO_VIDEO_KLING", records[0].Operation)
	assert.Equal(t, "KLING", records[0].Model)
	assert.Equal(t, int64(4), records[0].CreditsUsed)
	assert.True(t, records[0].Success)
}

func TestDeduct_WithoutModelRecordsUnknown(t *testing.T) {
	f := newFixture(t)
	id := f.account(t, 5)

	res, err := f.ledger.Deduct(context.Background(), credits.Charge{AccountID: id, Operation: credits.TextToImage})
	require.NoError(t, err)
	require.True(t, res.OK())

	records := f.usage(t, id)
	require.Len(t, records, 1)
	assert.Equal(t, "TEXT_TO_IMAGE", records[0].Operation)
	assert.Equal(t, "unknown", records[0].Model)
}

func TestDeduct_Quantity(t *testing.T) {
	f := newFixture(t)
	id := f.account(t, 10)

	res, err := f.ledger.Deduct(context.Background(), credits.Charge{
		AccountID: id, Operation: credits.ImageToImage, Quantity: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(6), res.Charged)
	assert.Equal(t, int64(4), res.Balance)
	assert.Equal(t, int64(6), f.usage(t, id)[0].CreditsUsed)
}

func TestDeduct_InsufficientBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.account(t, 3)

	res, err := f.ledger.Deduct(ctx, credits.Charge{AccountID: id, Operation: credits.TextToVideo, Model: credits.Kling})
	require.NoError(t, err)
	assert.Equal(t, credits.StatusInsufficient, res.Status)
	require.NotNil(t, res.Shortfall)
	assert.Equal(t, int64(4), res.Shortfall.Required)
	assert.True(t, errors.Is(res.Err(), credits.ErrInsufficientCredits))

	balance, err := f.ledger.Balance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(3), balance)
	assert.Empty(t, f.usage(t, id))
}

func TestDeduct_MissingAccount(t *testing.T) {
	f := newFixture(t)

	res, err := f.ledger.Deduct(context.Background(), credits.Charge{AccountID: "missing", Operation: credits.TextToImage})
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Empty(t, f.usage(t, "missing"))
}

func TestDeduct_EndToEndScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.account(t, 10)

	for i := 0; i < 3; i++ {
		res, err := f.ledger.Deduct(ctx, credits.Charge{AccountID: id, Operation: credits.TextToImage})
		require.NoError(t, err)
		require.True(t, res.OK())
	}
	balance, err := f.ledger.Balance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(7), balance)

	records := f.usage(t, id)
	require.Len(t, records, 3)
	for _, rec := range records {
		assert.Equal(t, int64(1), rec.CreditsUsed)
	}

	res, err := f.ledger.Deduct(ctx, credits.Charge{AccountID: id, Operation: credits.TextToVideo, Model: credits.Kling})
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Equal(t, int64(3), res.Balance)

	res, err = f.ledger.Deduct(ctx, credits.Charge{AccountID: id, Operation: credits.TextToVideo, Model: credits.Kling})
	require.NoError(t, err)
	assert.Equal(t, credits.StatusInsufficient, res.Status)

	balance, err = f.ledger.Balance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(3), balance)
	assert.Len(t, f.usage(t, id), 4)
}

func TestDeduct_ConcurrentCallsNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const balance, callers = 7, 20
	id := f.account(t, balance)

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		charged      int
		insufficient int
		failures     []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.ledger.Deduct(ctx, credits.Charge{AccountID: id, Operation: credits.TextToImage})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				failures = append(failures, err)
			case res.OK():
				charged++
			default:
				insufficient++
			}
		}()
	}
	wg.Wait()

	require.Empty(t, failures)
	assert.Equal(t, balance, charged)
	assert.Equal(t, callers-balance, insufficient)

	final, err := f.ledger.Balance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(0), final)
	assert.Len(t, f.usage(t, id), balance)
}

func TestDeduct_OverflowingQuantityIsInsufficient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.account(t, 10)

	res, err := f.ledger.Deduct(ctx, credits.Charge{
		AccountID: id,
		Operation: credits.ImageToImage,
		Quantity:  math.MaxInt64 - 2,
	})
	require.NoError(t, err)
	assert.False(t, res.OK())
	require.NotNil(t, res.Shortfall)
	assert.Equal(t, int64(math.MaxInt64), res.Shortfall.Required)

	balance, err := f.ledger.Balance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(10), balance)
	assert.Empty(t, f.usage(t, id))
}

// recordingStore keeps balances in memory and logs every primitive call.
type recordingStore struct {
	balances map[string]int64
	calls    []string
}

func (s *recordingStore) DecrementCredits(_ context.Context, id string, n int64) (int64, error) {
	s.calls = append(s.calls, "DecrementCredits")
	if s.balances[id] < n {
		return 0, nil
	}
	s.balances[id] -= n
	return 1, nil
}

func (s *recordingStore) IncrementCredits(_ context.Context, id string, n int64) (int64, error) {
	s.calls = append(s.calls, "IncrementCredits")
	s.balances[id] += n
	return 1, nil
}

func (s *recordingStore) Credits(_ context.Context, id string) (int64, bool, error) {
	s.calls = append(s.calls, "Credits")
	b, ok := s.balances[id]
	return b, ok, nil
}

func (s *recordingStore) InsertUsage(context.Context, *models.UsageRecord) error {
	s.calls = append(s.calls, "InsertUsage")
	return nil
}

func (s *recordingStore) InTx(_ context.Context, fn func(credits.Store) error) error {
	return fn(s)
}

func TestDeduct_DecrementsBeforeReadingBalance(t *testing.T) {
	store := &recordingStore{balances: map[string]int64{"a": 5}}
	ledger := credits.New(store, nil)
	ctx := context.Background()

	res, err := ledger.Deduct(ctx, credits.Charge{AccountID: "a", Operation: credits.TextToVideo, Model: credits.Kling})
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Equal(t, int64(1), res.Balance)
	assert.Equal(t, []string{"DecrementCredits", "InsertUsage", "Credits"}, store.calls)

	store.calls = nil
	res, err = ledger.Deduct(ctx, credits.Charge{AccountID: "a", Operation: credits.TextToVideo, Model: credits.Kling})
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Equal(t, []string{"DecrementCredits"}, store.calls)
	assert.Equal(t, int64(1), store.balances["a"])
}

func TestAddCredits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, start := range []int64{0, 3, 1000} {
		id := f.account(t, start)
		balance, err := f.ledger.AddCredits(ctx, id, 50)
		require.NoError(t, err)
		assert.Equal(t, start+50, balance)
		assert.Empty(t, f.usage(t, id), "top-ups are not usage")
	}
}

func TestAddCredits_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.account(t, 1)

	_, err := f.ledger.AddCredits(ctx, id, 0)
	assert.ErrorIs(t, err, credits.ErrInvalidAmount)

	_, err = f.ledger.AddCredits(ctx, "missing", 10)
	assert.ErrorIs(t, err, credits.ErrAccountNotFound)
}

func TestBalance_UnknownAccountIsZero(t *testing.T) {
	f := newFixture(t)

	balance, err := f.ledger.Balance(context.Background(), uuid.NewString())
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

// brokenStore fails every primitive.
type brokenStore struct{ err error }

func (s brokenStore) DecrementCredits(context.Context, string, int64) (int64, error) { return 0, s.err }
func (s brokenStore) IncrementCredits(context.Context, string, int64) (int64, error) { return 0, s.err }
func (s brokenStore) Credits(context.Context, string) (int64, bool, error)            { return 0, false, s.err }
func (s brokenStore) InsertUsage(context.Context, *models.UsageRecord) error          { return s.err }
func (s brokenStore) InTx(_ context.Context, fn func(credits.Store) error) error      { return fn(s) }

func TestLedger_StorageFaultsAreRetryable(t *testing.T) {
	cause := errors.New("connection refused")
	ledger := credits.New(brokenStore{err: cause}, nil)
	ctx := context.Background()

	_, err := ledger.Deduct(ctx, credits.Charge{AccountID: "a", Operation: credits.TextToImage})
	var pe *credits.PersistenceUnavailableError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, cause)
	assert.True(t, credits.IsRetryable(err))
	assert.False(t, errors.Is(err, credits.ErrInsufficientCredits))

	_, err = ledger.Balance(ctx, "a")
	assert.True(t, credits.IsRetryable(err))

	_, err = ledger.AddCredits(ctx, "a", 5)
	assert.True(t, credits.IsRetryable(err))
}

func TestDeduct_UsageRecordUsesInjectedClockAndIDs(t *testing.T) {
	f := newFixture(t)
	id := f.account(t, 10)
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	ledger := credits.New(f.store, nil,
		credits.WithClock(func() time.Time { return at }),
		credits.WithIDGenerator(func() string { return "usage-1" }),
	)

	res, err := ledger.Deduct(context.Background(), credits.Charge{AccountID: id, Operation: credits.Upscale})
	require.NoError(t, err)
	assert.Equal(t, "usage-1", res.Usage.ID)
	assert.True(t, at.Equal(res.Usage.CreatedAt))

	records := f.usage(t, id)
	require.Len(t, records, 1)
	assert.Equal(t, "usage-1", records[0].ID)
	assert.True(t, at.Equal(records[0].CreatedAt))
}
