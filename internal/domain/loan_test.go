package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customError "github.com/segyhp/lending-engine/pkg/errors"
)

func newLoan(status LoanStatus, outstanding string) *Loan {
	return &Loan{
		ID:                uuid.New(),
		UserID:            uuid.New(),
		PrincipalAmount:   decimal.NewFromInt(50000),
		TenureMonths:      6,
		InterestRate:      decimal.NewFromInt(12),
		OutstandingAmount: decimal.RequireFromString(outstanding),
		Status:            status,
	}
}

func TestLoanStatus_Transitions(t *testing.T) {
	tests := []struct {
		from LoanStatus
		to   LoanStatus
		ok   bool
	}{
		{LoanStatusPending, LoanStatusActive, true},
		{LoanStatusPending, LoanStatusRejected, true},
		{LoanStatusPending, LoanStatusClosed, false},
		{LoanStatusActive, LoanStatusClosed, true},
		{LoanStatusActive, LoanStatusRejected, false},
		{LoanStatusActive, LoanStatusPending, false},
		{LoanStatusClosed, LoanStatusActive, false},
		{LoanStatusRejected, LoanStatusActive, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to))
		})
	}

	assert.True(t, LoanStatusClosed.IsTerminal())
	assert.True(t, LoanStatusRejected.IsTerminal())
	assert.False(t, LoanStatusPending.IsTerminal())
	assert.False(t, LoanStatus("APPROVED").Valid())
}

func TestLoan_Approve(t *testing.T) {
	loan := newLoan(LoanStatusPending, "51764.52")
	admin := uuid.New()
	at := time.Now().UTC()

	require.NoError(t, loan.Approve(admin, at))
	assert.Equal(t, LoanStatusActive, loan.Status)
	require.NotNil(t, loan.DecidedAt)
	assert.Equal(t, at, *loan.DecidedAt)
	assert.Equal(t, admin, *loan.DecidedBy)
	assert.Nil(t, loan.RejectionReason)

	err := loan.Approve(admin, at)
	assert.ErrorIs(t, err, customError.ErrInvalidState)
}

func TestLoan_Reject(t *testing.T) {
	loan := newLoan(LoanStatusPending, "51764.52")

	require.NoError(t, loan.Reject(uuid.New(), "", time.Now()))
	assert.Equal(t, LoanStatusRejected, loan.Status)
	require.NotNil(t, loan.RejectionReason)
	assert.Equal(t, DefaultRejectionReason, *loan.RejectionReason)

	err := loan.Reject(uuid.New(), "again", time.Now())
	assert.ErrorIs(t, err, customError.ErrInvalidState)
	assert.Equal(t, DefaultRejectionReason, *loan.RejectionReason)
}

func TestLoan_ReduceOutstanding(t *testing.T) {
	tests := []struct {
		name        string
		status      LoanStatus
		outstanding string
		amount      string
		closed      bool
		remaining   string
		wantErr     error
	}{
		{name: "partial", status: LoanStatusActive, outstanding: "100.00", amount: "40.00", remaining: "60.00"},
		{name: "exact closes", status: LoanStatusActive, outstanding: "100.00", amount: "100.00", closed: true, remaining: "0"},
		{name: "overpayment", status: LoanStatusActive, outstanding: "100.00", amount: "100.01", remaining: "100.00", wantErr: customError.ErrOverpayment},
		{name: "zero amount", status: LoanStatusActive, outstanding: "100.00", amount: "0", remaining: "100.00", wantErr: customError.ErrValidation},
		{name: "sub-cent amount", status: LoanStatusActive, outstanding: "100.00", amount: "0.001", remaining: "100.00", wantErr: customError.ErrValidation},
		{name: "pending loan", status: LoanStatusPending, outstanding: "100.00", amount: "10", remaining: "100.00", wantErr: customError.ErrInvalidState},
		{name: "closed loan", status: LoanStatusClosed, outstanding: "0", amount: "10", remaining: "0", wantErr: customError.ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan := newLoan(tt.status, tt.outstanding)

			closed, err := loan.ReduceOutstanding(decimal.RequireFromString(tt.amount), time.Now())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, tt.closed, closed)
			assert.True(t, loan.OutstandingAmount.Equal(decimal.RequireFromString(tt.remaining)),
				"remaining: expected %s, got %s", tt.remaining, loan.OutstandingAmount)
			if tt.closed {
				assert.Equal(t, LoanStatusClosed, loan.Status)
			}
		})
	}
}
