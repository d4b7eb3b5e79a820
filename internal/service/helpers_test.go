package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/lending-engine/internal/auth"
	"github.com/segyhp/lending-engine/internal/config"
	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/mocks"
	"github.com/segyhp/lending-engine/internal/repository"
)

// testEnv wires every service against a fresh in-memory store.
type testEnv struct {
	ctx        context.Context
	store      *repository.Store
	publisher  *mocks.MockPublisher
	ledger     *LedgerService
	loans      *LoanService
	approval   *ApprovalService
	repayments *RepaymentService
	auth       *AuthService
	reconciler *ReconcileService
	admin      domain.Identity
}

func testPolicy() config.BusinessConfig {
	return config.BusinessConfig{
		DefaultInterestRate: decimal.NewFromInt(12),
		MaxLoanAmount:       decimal.NewFromInt(500000),
		MaxEntryAmount:      decimal.NewFromInt(1000000),
		MinTenureMonths:     1,
		MaxTenureMonths:     60,
		MaxActiveLoans:      2,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	store, err := repository.Open(ctx, repository.Options{
		Driver:      "sqlite",
		URL:         ":memory:",
		TxTimeout:   5 * time.Second,
		AutoMigrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher := &mocks.MockPublisher{}
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	ledger := NewLedgerService(store, testPolicy(), logger)
	loans := NewLoanService(store, testPolicy(), publisher, logger)
	env := &testEnv{
		ctx:        ctx,
		store:      store,
		publisher:  publisher,
		ledger:     ledger,
		loans:      loans,
		approval:   NewApprovalService(store, ledger, publisher, logger),
		repayments: NewRepaymentService(store, ledger, loans, publisher, logger),
		auth:       NewAuthService(store, auth.NewTokenManager("0123456789abcdef0123456789abcdef", "test", time.Hour), logger),
		reconciler: NewReconcileService(store, logger),
	}

	admin, err := env.auth.CreateUser(ctx, "Admin", "admin@example.com", "admin-password", domain.RoleAdmin)
	require.NoError(t, err)
	env.admin = domain.Identity{UserID: admin.ID, Role: domain.RoleAdmin}

	return env
}

func (e *testEnv) newUser(t *testing.T, email string) domain.Identity {
	t.Helper()
	user, err := e.auth.CreateUser(e.ctx, "Borrower", email, "borrower-password", domain.RoleUser)
	require.NoError(t, err)
	return domain.Identity{UserID: user.ID, Role: domain.RoleUser}
}

func (e *testEnv) deposit(t *testing.T, userID uuid.UUID, amount string) {
	t.Helper()
	_, err := e.ledger.Deposit(e.ctx, userID, decimal.RequireFromString(amount), nil)
	require.NoError(t, err)
}

// activeLoan applies for and approves a loan, disbursing its principal.
func (e *testEnv) activeLoan(t *testing.T, userID uuid.UUID, principal string, tenure int, rate string) *domain.Loan {
	t.Helper()
	r := decimal.RequireFromString(rate)
	loan, err := e.loans.Apply(e.ctx, userID, decimal.RequireFromString(principal), tenure, &r)
	require.NoError(t, err)

	loan, err = e.approval.Decide(e.ctx, e.admin, loan.ID, true, nil)
	require.NoError(t, err)
	return loan
}

func (e *testEnv) balance(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	balance, err := e.ledger.GetBalance(e.ctx, userID)
	require.NoError(t, err)
	return balance.StringFixed(2)
}

// cachedBalance reads the wallet row, which must always mirror the ledger.
func (e *testEnv) cachedBalance(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	wallet, err := e.store.Repos().Wallets.Get(e.ctx, userID)
	require.NoError(t, err)
	return wallet.Balance.StringFixed(2)
}

func (e *testEnv) publishedCount(eventType string) int {
	n := 0
	for _, call := range e.publisher.Calls {
		if call.Method == "Publish" && call.Arguments.String(1) == eventType {
			n++
		}
	}
	return n
}
