package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repayment records the outcome of one successful payment so that a retry
// with the same idempotency key can be answered without recomputation.
type Repayment struct {
	ID               uuid.UUID       `json:"id"`
	LoanID           uuid.UUID       `json:"loan_id"`
	UserID           uuid.UUID       `json:"user_id"`
	TransactionID    uuid.UUID       `json:"transaction_id"`
	Amount           decimal.Decimal `json:"amount"`
	IdempotencyKey   string          `json:"idempotency_key"`
	OutstandingAfter decimal.Decimal `json:"outstanding_after"`
	LoanClosed       bool            `json:"loan_closed"`
	CreatedAt        time.Time       `json:"created_at"`
}

// PaymentResult is what a repayment call returns, the first time and on
// every replay.
type PaymentResult struct {
	Transaction *Transaction
	Repayment   *Repayment
	Loan        *Loan
	LoanClosed  bool
	Replayed    bool
}

// DTOs for requests and responses

type MakePaymentRequest struct {
	LoanID         uuid.UUID       `json:"loan_id" validate:"required"`
	Amount         decimal.Decimal `json:"amount" validate:"required,gt=0"`
	IdempotencyKey string          `json:"idempotency_key" validate:"required,min=1,max=128"`
}
