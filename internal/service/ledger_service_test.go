package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/lending-engine/internal/config"
	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/repository"
	customError "github.com/segyhp/lending-engine/pkg/errors"
)

func TestLedger_CreditDebitBalance(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "ledger@example.com")

	env.deposit(t, user.UserID, "100.00")
	_, err := env.ledger.Debit(env.ctx, domain.LedgerEntry{
		UserID:      user.UserID,
		Amount:      decimal.RequireFromString("30.25"),
		Source:      domain.TransactionSourceRepayment,
		Description: "manual debit",
	})
	require.NoError(t, err)

	assert.Equal(t, "69.75", env.balance(t, user.UserID))
	assert.Equal(t, "69.75", env.cachedBalance(t, user.UserID))

	txs, err := env.ledger.ListTransactions(env.ctx, user.UserID, 0)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, domain.TransactionTypeDebit, txs[0].Type)
	assert.Equal(t, domain.TransactionTypeCredit, txs[1].Type)
	assert.True(t, txs[0].CreatedAt.After(txs[1].CreatedAt))
}

func TestLedger_InvalidAmount(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "amounts@example.com")

	for _, amount := range []string{"0", "-5", "0.001", "10.005"} {
		t.Run(amount, func(t *testing.T) {
			_, err := env.ledger.Credit(env.ctx, domain.LedgerEntry{
				UserID: user.UserID,
				Amount: decimal.RequireFromString(amount),
				Source: domain.TransactionSourceDeposit,
			})
			assert.ErrorIs(t, err, customError.ErrValidation)
		})
	}

	assert.Equal(t, "0.00", env.balance(t, user.UserID))
}

func TestLedger_InsufficientFunds(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "broke@example.com")
	env.deposit(t, user.UserID, "5.00")

	_, err := env.ledger.Debit(env.ctx, domain.LedgerEntry{
		UserID: user.UserID,
		Amount: decimal.RequireFromString("5.01"),
		Source: domain.TransactionSourceRepayment,
	})
	assert.ErrorIs(t, err, customError.ErrInsufficientFunds)
	assert.Equal(t, customError.KindInsufficient, customError.KindOf(err))

	assert.Equal(t, "5.00", env.balance(t, user.UserID))

	// Draining to exactly zero is allowed.
	_, err = env.ledger.Debit(env.ctx, domain.LedgerEntry{
		UserID: user.UserID,
		Amount: decimal.RequireFromString("5.00"),
		Source: domain.TransactionSourceRepayment,
	})
	require.NoError(t, err)
	assert.Equal(t, "0.00", env.balance(t, user.UserID))
}

func TestLedger_IdempotentCredit(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "idem@example.com")
	key := "deposit-abc"

	first, err := env.ledger.Deposit(env.ctx, user.UserID, decimal.NewFromInt(25), &key)
	require.NoError(t, err)
	second, err := env.ledger.Deposit(env.ctx, user.UserID, decimal.NewFromInt(25), &key)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "25.00", env.balance(t, user.UserID))

	txs, err := env.ledger.ListTransactions(env.ctx, user.UserID, 10)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestLedger_AmountAboveCap(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "whale@example.com")

	for _, amount := range []string{"1000000.01", "200000000000000000", "100000000000000000"} {
		t.Run(amount, func(t *testing.T) {
			_, err := env.ledger.Deposit(env.ctx, user.UserID, decimal.RequireFromString(amount), nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, customError.ErrValidation)

			var be *customError.BusinessError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, customError.ErrCodeInvalidAmount, be.Code)
		})
	}
	assert.Equal(t, "0.00", env.balance(t, user.UserID))

	env.deposit(t, user.UserID, "1000000")
	assert.Equal(t, "1000000.00", env.balance(t, user.UserID))
	assert.Equal(t, "1000000.00", env.cachedBalance(t, user.UserID))
}

func TestLedger_BalanceStaysInCentsRange(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "overflow@example.com")
	ledger := NewLedgerService(env.store, config.BusinessConfig{
		MaxEntryAmount: decimal.RequireFromString("90000000000000000"),
	}, nil)

	big := decimal.RequireFromString("90000000000000000")
	_, err := ledger.Deposit(env.ctx, user.UserID, big, nil)
	require.NoError(t, err)

	_, err = ledger.Deposit(env.ctx, user.UserID, big, nil)
	assert.ErrorIs(t, err, customError.ErrValidation)

	assert.Equal(t, "90000000000000000.00", env.balance(t, user.UserID))
	assert.Equal(t, "90000000000000000.00", env.cachedBalance(t, user.UserID))
}

// lostRaceUoW fails every transaction with the unique violation a concurrent
// writer holding the same idempotency key would cause.
type lostRaceUoW struct {
	*repository.Store
	winner *domain.Transaction
}

func (u lostRaceUoW) WithinTx(ctx context.Context, fn func(r repository.Repos) error) error {
	return u.Store.WithinTx(ctx, func(r repository.Repos) error {
		loser := *u.winner
		loser.ID = uuid.New()
		return r.Transactions.Create(ctx, &loser)
	})
}

func TestLedger_LostRaceChecksOperation(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "racer@example.com")
	key := "race-key"

	winner := &domain.Transaction{
		ID:             uuid.New(),
		UserID:         user.UserID,
		Type:           domain.TransactionTypeCredit,
		Source:         domain.TransactionSourceDeposit,
		Amount:         decimal.NewFromInt(5),
		IdempotencyKey: &key,
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, env.store.Repos().Transactions.Create(env.ctx, winner))

	ledger := NewLedgerService(lostRaceUoW{Store: env.store, winner: winner}, testPolicy(), nil)

	_, err := ledger.Debit(env.ctx, domain.LedgerEntry{
		UserID:         user.UserID,
		Amount:         decimal.NewFromInt(5),
		Source:         domain.TransactionSourceRepayment,
		IdempotencyKey: &key,
	})
	require.Error(t, err)
	var be *customError.BusinessError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, customError.ErrCodeIdempotencyReused, be.Code)

	tx, err := ledger.Deposit(env.ctx, user.UserID, decimal.NewFromInt(5), &key)
	require.NoError(t, err)
	assert.Equal(t, winner.ID, tx.ID)
}

func TestLedger_IdempotencyKeyReusedForOtherOperation(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "reuse@example.com")
	key := "shared-key"

	_, err := env.ledger.Deposit(env.ctx, user.UserID, decimal.NewFromInt(25), &key)
	require.NoError(t, err)

	_, err = env.ledger.Debit(env.ctx, domain.LedgerEntry{
		UserID:         user.UserID,
		Amount:         decimal.NewFromInt(5),
		Source:         domain.TransactionSourceRepayment,
		IdempotencyKey: &key,
	})
	assert.ErrorIs(t, err, customError.ErrValidation)
	assert.Equal(t, "25.00", env.balance(t, user.UserID))
}

func TestLedger_UnknownWallet(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.ledger.GetBalance(env.ctx, uuid.New())
	assert.ErrorIs(t, err, customError.ErrNotFound)

	_, err = env.ledger.Deposit(env.ctx, uuid.New(), decimal.NewFromInt(1), nil)
	assert.ErrorIs(t, err, customError.ErrNotFound)

	_, err = env.ledger.ListTransactions(env.ctx, uuid.New(), 10)
	assert.ErrorIs(t, err, customError.ErrNotFound)
}

func TestLedger_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "race@example.com")
	env.deposit(t, user.UserID, "100.00")

	const workers = 20
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		succeeded    int
		insufficient int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.ledger.Debit(env.ctx, domain.LedgerEntry{
				UserID: user.UserID,
				Amount: decimal.NewFromInt(10),
				Source: domain.TransactionSourceRepayment,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case customError.KindOf(err) == customError.KindInsufficient:
				insufficient++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 10, insufficient)
	assert.Equal(t, "0.00", env.balance(t, user.UserID))
	assert.Equal(t, "0.00", env.cachedBalance(t, user.UserID))
}

func TestLedger_ConcurrentSameKeyAppliesOnce(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "twins@example.com")
	key := "same-key"

	const workers = 10
	ids := make([]uuid.UUID, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tx, err := env.ledger.Deposit(env.ctx, user.UserID, decimal.NewFromInt(7), &key)
			if assert.NoError(t, err) {
				ids[i] = tx.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, "7.00", env.balance(t, user.UserID))
}

func TestLedger_TimestampsStrictlyIncrease(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "clock@example.com")

	frozen := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	env.ledger.now = func() time.Time { return frozen }

	for i := 0; i < 3; i++ {
		env.deposit(t, user.UserID, "1.00")
	}

	txs, err := env.ledger.ListTransactions(env.ctx, user.UserID, 10)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.True(t, txs[2].CreatedAt.Equal(frozen))
	assert.True(t, txs[1].CreatedAt.Equal(frozen.Add(time.Microsecond)))
	assert.True(t, txs[0].CreatedAt.Equal(frozen.Add(2*time.Microsecond)))
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, DefaultTransactionLimit},
		{-3, 1},
		{1, 1},
		{250, 250},
		{500, 500},
		{501, MaxTransactionLimit},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampLimit(tt.in), "limit %d", tt.in)
	}
}
