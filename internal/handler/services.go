package handler

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/pkg/emi"
)

// AuthService is the part of service.AuthService the API uses.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*domain.TokenResponse, error)
	Login(ctx context.Context, email, password string) (*domain.TokenResponse, error)
	Authenticate(token string) (domain.Identity, error)
	Me(ctx context.Context, caller domain.Identity) (*domain.User, error)
}

// WalletService is the part of service.LedgerService the API uses.
type WalletService interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Transaction, error)
	Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, idempotencyKey *string) (*domain.Transaction, error)
}

type LoanService interface {
	CalculateEMI(principal decimal.Decimal, tenureMonths int, rate *decimal.Decimal) (emi.Quote, error)
	Apply(ctx context.Context, userID uuid.UUID, principal decimal.Decimal, tenureMonths int, rate *decimal.Decimal) (*domain.Loan, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Loan, error)
	ListPending(ctx context.Context, caller domain.Identity) ([]*domain.Loan, error)
	Get(ctx context.Context, caller domain.Identity, loanID uuid.UUID) (*domain.Loan, error)
	Schedule(ctx context.Context, caller domain.Identity, loanID uuid.UUID) (*domain.ScheduleResponse, error)
}

type ApprovalService interface {
	Decide(ctx context.Context, admin domain.Identity, loanID uuid.UUID, approved bool, reason *string) (*domain.Loan, error)
}

type RepaymentService interface {
	Pay(ctx context.Context, userID, loanID uuid.UUID, amount decimal.Decimal, idempotencyKey string) (*domain.PaymentResult, error)
	ListForLoan(ctx context.Context, caller domain.Identity, loanID uuid.UUID) ([]*domain.Repayment, error)
}
