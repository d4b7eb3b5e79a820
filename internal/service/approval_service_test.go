package service

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/events"
	customError "github.com/segyhp/lending-engine/pkg/errors"
)

func applyPending(t *testing.T, env *testEnv, userID uuid.UUID, principal string) *domain.Loan {
	t.Helper()
	loan, err := env.loans.Apply(env.ctx, userID, decimal.RequireFromString(principal), 12, nil)
	require.NoError(t, err)
	return loan
}

func TestApproval_ApproveDisbursesPrincipal(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "approve@example.com")
	pending := applyPending(t, env, user.UserID, "25000")

	loan, err := env.approval.Decide(env.ctx, env.admin, pending.ID, true, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.LoanStatusActive, loan.Status)
	require.NotNil(t, loan.DecidedBy)
	assert.Equal(t, env.admin.UserID, *loan.DecidedBy)
	assert.NotNil(t, loan.DecidedAt)
	assert.Equal(t, "25000.00", env.balance(t, user.UserID))
	assert.Equal(t, "25000.00", env.cachedBalance(t, user.UserID))

	txs, err := env.ledger.ListTransactions(env.ctx, user.UserID, 10)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.TransactionSourceDisbursement, txs[0].Source)
	require.NotNil(t, txs[0].LoanID)
	assert.Equal(t, loan.ID, *txs[0].LoanID)
	assert.Nil(t, txs[0].IdempotencyKey)

	assert.Equal(t, 1, env.publishedCount(events.LoanApproved))
}

func TestApproval_UserKeysCannotBlockDisbursement(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "squatter@example.com")
	pending := applyPending(t, env, user.UserID, "2000")

	keys := []string{"disbursement:" + pending.ID.String(), pending.ID.String()}
	for _, key := range keys {
		key := key
		_, err := env.ledger.Deposit(env.ctx, user.UserID, decimal.NewFromInt(1), &key)
		require.NoError(t, err)
	}

	loan, err := env.approval.Decide(env.ctx, env.admin, pending.ID, true, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusActive, loan.Status)
	assert.Equal(t, "2002.00", env.balance(t, user.UserID))
}

func TestApproval_RejectLeavesWalletAlone(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "reject@example.com")
	pending := applyPending(t, env, user.UserID, "25000")

	loan, err := env.approval.Decide(env.ctx, env.admin, pending.ID, false, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.LoanStatusRejected, loan.Status)
	require.NotNil(t, loan.RejectionReason)
	assert.Equal(t, domain.DefaultRejectionReason, *loan.RejectionReason)
	assert.Equal(t, "0.00", env.balance(t, user.UserID))
	assert.Equal(t, 1, env.publishedCount(events.LoanRejected))

	stored, err := env.loans.Get(env.ctx, user, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusRejected, stored.Status)
}

func TestApproval_DecideTwice(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "twice@example.com")
	pending := applyPending(t, env, user.UserID, "1000")

	_, err := env.approval.Decide(env.ctx, env.admin, pending.ID, true, nil)
	require.NoError(t, err)

	_, err = env.approval.Decide(env.ctx, env.admin, pending.ID, true, nil)
	assert.ErrorIs(t, err, customError.ErrInvalidState)

	reason := "changed my mind"
	_, err = env.approval.Decide(env.ctx, env.admin, pending.ID, false, &reason)
	assert.ErrorIs(t, err, customError.ErrInvalidState)

	assert.Equal(t, "1000.00", env.balance(t, user.UserID))
}

func TestApproval_RequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "sneaky@example.com")
	pending := applyPending(t, env, user.UserID, "1000")

	_, err := env.approval.Decide(env.ctx, user, pending.ID, true, nil)
	assert.ErrorIs(t, err, customError.ErrForbidden)

	stored, err := env.loans.Get(env.ctx, user, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusPending, stored.Status)
}

func TestApproval_UnknownLoan(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.approval.Decide(env.ctx, env.admin, uuid.New(), true, nil)
	assert.ErrorIs(t, err, customError.ErrNotFound)
}

func TestApproval_ConcurrentApproveDisbursesOnce(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "concurrent@example.com")
	pending := applyPending(t, env, user.UserID, "5000")

	const workers = 5
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.approval.Decide(env.ctx, env.admin, pending.ID, true, nil)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, customError.ErrInvalidState)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, "5000.00", env.balance(t, user.UserID))
}
