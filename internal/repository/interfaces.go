package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/lending-engine/internal/domain"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// Create inserts a new user; the email must be unique
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by id
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by lower-cased email
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// WalletRepository defines the interface for wallet account operations
type WalletRepository interface {
	// Create inserts an empty wallet for a user
	Create(ctx context.Context, wallet *domain.Wallet) error

	// Get retrieves a wallet without locking it
	Get(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)

	// GetForUpdate retrieves a wallet and locks its row until the
	// transaction ends
	GetForUpdate(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)

	// UpdateBalance stores the cached balance of a locked wallet
	UpdateBalance(ctx context.Context, userID uuid.UUID, balance decimal.Decimal, at time.Time) error

	// List returns wallets ordered by user id, starting after the given id
	List(ctx context.Context, after uuid.UUID, limit int) ([]*domain.Wallet, error)
}

// TransactionRepository defines the interface for the append-only ledger.
// Entries are never updated or deleted.
type TransactionRepository interface {
	// Create appends a ledger entry
	Create(ctx context.Context, tx *domain.Transaction) error

	// GetByID retrieves a ledger entry by id
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)

	// FindByIdempotencyKey returns nil when no entry carries the key
	FindByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*domain.Transaction, error)

	// Balance sums credits minus debits for a user
	Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)

	// LatestCreatedAt returns the timestamp of the newest entry of a user
	LatestCreatedAt(ctx context.Context, userID uuid.UUID) (time.Time, bool, error)

	// ListByUser returns entries most recent first
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Transaction, error)

	// SumByLoan totals the entries of one source linked to a loan
	SumByLoan(ctx context.Context, loanID uuid.UUID, source domain.TransactionSource) (decimal.Decimal, error)
}

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// Create creates a new loan
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByID retrieves a loan by its id
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// GetForUpdate retrieves a loan and locks its row
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// Update stores the mutable fields of a loan
	Update(ctx context.Context, loan *domain.Loan) error

	// ListByUser returns a user's loans, newest first
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Loan, error)

	// ListByStatus returns loans in a status, oldest first
	ListByStatus(ctx context.Context, status domain.LoanStatus) ([]*domain.Loan, error)

	// CountByUserAndStatus counts a user's loans in a status
	CountByUserAndStatus(ctx context.Context, userID uuid.UUID, status domain.LoanStatus) (int, error)
}

// RepaymentRepository defines the interface for repayment records
type RepaymentRepository interface {
	// Create records a completed repayment
	Create(ctx context.Context, repayment *domain.Repayment) error

	// FindByIdempotencyKey returns nil when the user has no repayment with the key
	FindByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*domain.Repayment, error)

	// ListByLoan returns the repayments of a loan, oldest first
	ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.Repayment, error)

	// SumByLoan totals the repayments of a loan
	SumByLoan(ctx context.Context, loanID uuid.UUID) (decimal.Decimal, error)
}
