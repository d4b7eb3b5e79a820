package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeCredit TransactionType = "CREDIT"
	TransactionTypeDebit  TransactionType = "DEBIT"
)

type TransactionSource string

const (
	TransactionSourceDisbursement TransactionSource = "DISBURSEMENT"
	TransactionSourceRepayment    TransactionSource = "REPAYMENT"
	TransactionSourceDeposit      TransactionSource = "DEPOSIT"
)

// Valid reports whether s is a known source.
func (s TransactionSource) Valid() bool {
	switch s {
	case TransactionSourceDisbursement, TransactionSourceRepayment, TransactionSourceDeposit:
		return true
	}
	return false
}

// Wallet is the lockable account row of a user. Balance is a cache of the
// ledger sum, maintained under the row lock and audited by the reconciler.
type Wallet struct {
	UserID    uuid.UUID       `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Transaction is an immutable ledger entry.
type Transaction struct {
	ID             uuid.UUID         `json:"id"`
	UserID         uuid.UUID         `json:"user_id"`
	Type           TransactionType   `json:"type"`
	Source         TransactionSource `json:"source"`
	Amount         decimal.Decimal   `json:"amount"`
	LoanID         *uuid.UUID        `json:"loan_id,omitempty"`
	Description    string            `json:"description"`
	IdempotencyKey *string           `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// LedgerEntry is the input of a credit or debit.
type LedgerEntry struct {
	UserID         uuid.UUID
	Amount         decimal.Decimal
	Source         TransactionSource
	Description    string
	LoanID         *uuid.UUID
	IdempotencyKey *string
}

// DTOs for requests and responses

type DepositRequest struct {
	Amount         decimal.Decimal `json:"amount" validate:"required,gt=0"`
	IdempotencyKey *string         `json:"idempotency_key,omitempty" validate:"omitempty,min=1,max=128"`
}
