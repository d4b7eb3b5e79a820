package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/pkg/emi"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, name, email, password string) (*domain.TokenResponse, error) {
	args := m.Called(ctx, name, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TokenResponse), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*domain.TokenResponse, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TokenResponse), args.Error(1)
}

func (m *MockAuthService) Authenticate(token string) (domain.Identity, error) {
	args := m.Called(token)
	return args.Get(0).(domain.Identity), args.Error(1)
}

func (m *MockAuthService) Me(ctx context.Context, caller domain.Identity) (*domain.User, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type MockWalletService struct {
	mock.Mock
}

func (m *MockWalletService) GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockWalletService) ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Transaction, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Transaction), args.Error(1)
}

func (m *MockWalletService) Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, idempotencyKey *string) (*domain.Transaction, error) {
	args := m.Called(ctx, userID, amount, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

type MockLoanService struct {
	mock.Mock
}

func (m *MockLoanService) Apply(ctx context.Context, userID uuid.UUID, principal decimal.Decimal, tenureMonths int, rate *decimal.Decimal) (*domain.Loan, error) {
	args := m.Called(ctx, userID, principal, tenureMonths, rate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Loan, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Loan), args.Error(1)
}

func (m *MockLoanService) ListPending(ctx context.Context, caller domain.Identity) ([]*domain.Loan, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Loan), args.Error(1)
}

func (m *MockLoanService) Get(ctx context.Context, caller domain.Identity, loanID uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, caller, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanService) Schedule(ctx context.Context, caller domain.Identity, loanID uuid.UUID) (*domain.ScheduleResponse, error) {
	args := m.Called(ctx, caller, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScheduleResponse), args.Error(1)
}

func (m *MockLoanService) CalculateEMI(principal decimal.Decimal, tenureMonths int, rate *decimal.Decimal) (emi.Quote, error) {
	args := m.Called(principal, tenureMonths, rate)
	return args.Get(0).(emi.Quote), args.Error(1)
}

type MockApprovalService struct {
	mock.Mock
}

func (m *MockApprovalService) Decide(ctx context.Context, admin domain.Identity, loanID uuid.UUID, approved bool, reason *string) (*domain.Loan, error) {
	args := m.Called(ctx, admin, loanID, approved, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

type MockRepaymentService struct {
	mock.Mock
}

func (m *MockRepaymentService) Pay(ctx context.Context, userID, loanID uuid.UUID, amount decimal.Decimal, idempotencyKey string) (*domain.PaymentResult, error) {
	args := m.Called(ctx, userID, loanID, amount, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentResult), args.Error(1)
}

func (m *MockRepaymentService) ListForLoan(ctx context.Context, caller domain.Identity, loanID uuid.UUID) ([]*domain.Repayment, error) {
	args := m.Called(ctx, caller, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Repayment), args.Error(1)
}
