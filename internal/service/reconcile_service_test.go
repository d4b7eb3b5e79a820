package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile_CleanLedger(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "clean@example.com")
	loan := env.activeLoan(t, user.UserID, "1000", 6, "12")
	_, err := env.repayments.Pay(env.ctx, user.UserID, loan.ID, decimal.NewFromInt(100), "clean-1")
	require.NoError(t, err)

	report, err := env.reconciler.Run(env.ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, report.WalletsChecked)
	assert.Equal(t, 1, report.LoansChecked)
	assert.Empty(t, report.Discrepancies)
}

func TestReconcile_DetectsTampering(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "tamper@example.com")
	loan := env.activeLoan(t, user.UserID, "1000", 6, "12")

	db := env.store.DB()
	_, err := db.Exec(db.Rebind("UPDATE wallets SET balance_cents = 1 WHERE user_id = ?"), user.UserID.String())
	require.NoError(t, err)
	_, err = db.Exec(db.Rebind("UPDATE loans SET outstanding_cents = 1 WHERE id = ?"), loan.ID.String())
	require.NoError(t, err)

	report, err := env.reconciler.Run(env.ctx)
	require.NoError(t, err)

	kinds := map[string]bool{}
	for _, d := range report.Discrepancies {
		kinds[d.Kind] = true
		assert.Equal(t, user.UserID, d.UserID)
	}
	assert.True(t, kinds[DiscrepancyWalletCache])
	assert.True(t, kinds[DiscrepancyOutstanding])
	assert.False(t, kinds[DiscrepancyDisbursement])
}
