package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/lending-engine/internal/config"
	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/events"
	"github.com/segyhp/lending-engine/internal/repository"
	"github.com/segyhp/lending-engine/pkg/emi"
	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/utils"
)

// LoanEvent is the payload of loan lifecycle events.
type LoanEvent struct {
	LoanID            uuid.UUID         `json:"loan_id"`
	UserID            uuid.UUID         `json:"user_id"`
	Status            domain.LoanStatus `json:"status"`
	PrincipalAmount   string            `json:"principal_amount"`
	OutstandingAmount string            `json:"outstanding_amount"`
	DecidedBy         *uuid.UUID        `json:"decided_by,omitempty"`
	RejectionReason   *string           `json:"rejection_reason,omitempty"`
}

func newLoanEvent(loan *domain.Loan) LoanEvent {
	return LoanEvent{
		LoanID:            loan.ID,
		UserID:            loan.UserID,
		Status:            loan.Status,
		PrincipalAmount:   utils.FormatMoney(loan.PrincipalAmount),
		OutstandingAmount: utils.FormatMoney(loan.OutstandingAmount),
		DecidedBy:         loan.DecidedBy,
		RejectionReason:   loan.RejectionReason,
	}
}

// LoanService owns loan records and their lifecycle.
type LoanService struct {
	uow       repository.UnitOfWork
	policy    config.BusinessConfig
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewLoanService(uow repository.UnitOfWork, policy config.BusinessConfig, publisher events.Publisher, logger *slog.Logger) *LoanService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoanService{
		uow:       uow,
		policy:    policy,
		publisher: publisher,
		logger:    logger.With("component", "loans"),
		now:       utcNow,
	}
}

func (s *LoanService) rateOrDefault(rate *decimal.Decimal) decimal.Decimal {
	if rate == nil {
		return s.policy.DefaultInterestRate
	}
	return *rate
}

// CalculateEMI quotes a loan without persisting anything.
func (s *LoanService) CalculateEMI(principal decimal.Decimal, tenureMonths int, rate *decimal.Decimal) (emi.Quote, error) {
	if !utils.IsMoney(principal) {
		return emi.Quote{}, customError.WrapInvalidInput("principal_amount must have at most 2 decimal places")
	}
	return emi.Calculate(principal, tenureMonths, s.rateOrDefault(rate))
}

// Apply records a PENDING loan for the user.
func (s *LoanService) Apply(ctx context.Context, userID uuid.UUID, principal decimal.Decimal, tenureMonths int, rate *decimal.Decimal) (*domain.Loan, error) {
	annualRate := s.rateOrDefault(rate)

	// 1. Validate the application
	if !principal.IsPositive() || !utils.IsMoney(principal) {
		return nil, customError.WrapInvalidApplication("principal_amount must be positive with at most 2 decimal places")
	}
	if tenureMonths <= 0 {
		return nil, customError.WrapInvalidApplication("tenure_months must be positive")
	}
	if !annualRate.IsPositive() {
		return nil, customError.WrapInvalidApplication("interest_rate must be positive")
	}

	// 2. Eligibility
	if principal.GreaterThan(s.policy.MaxLoanAmount) {
		return nil, customError.WrapInvalidApplication(
			fmt.Sprintf("principal_amount must not exceed %s", utils.FormatMoney(s.policy.MaxLoanAmount)))
	}
	if tenureMonths < s.policy.MinTenureMonths || tenureMonths > s.policy.MaxTenureMonths {
		return nil, customError.WrapInvalidApplication(
			fmt.Sprintf("tenure_months must be between %d and %d", s.policy.MinTenureMonths, s.policy.MaxTenureMonths))
	}

	// 3. Quote
	quote, err := emi.Calculate(principal, tenureMonths, annualRate)
	if err != nil {
		if customError.KindOf(err) == customError.KindInternal {
			s.logger.ErrorContext(ctx, "emi quote failed", "error", err)
		}
		return nil, err
	}

	now := s.now()
	loan := &domain.Loan{
		ID:                uuid.New(),
		UserID:            userID,
		PrincipalAmount:   quote.Principal,
		TenureMonths:      tenureMonths,
		InterestRate:      annualRate,
		EMIAmount:         quote.EMIAmount,
		TotalAmount:       quote.TotalAmount,
		OutstandingAmount: quote.TotalAmount,
		Status:            domain.LoanStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	// 4. Persist
	err = s.uow.WithinTx(ctx, func(r repository.Repos) error {
		if _, err := r.Users.GetByID(ctx, userID); err != nil {
			return err
		}
		active, err := r.Loans.CountByUserAndStatus(ctx, userID, domain.LoanStatusActive)
		if err != nil {
			return err
		}
		if active >= s.policy.MaxActiveLoans {
			return customError.WrapInvalidApplication(
				fmt.Sprintf("at most %d active loans are allowed", s.policy.MaxActiveLoans))
		}
		return r.Loans.Create(ctx, loan)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "loan applied",
		"loan_id", loan.ID, "user_id", userID, "principal", utils.FormatMoney(loan.PrincipalAmount),
		"tenure_months", tenureMonths, "interest_rate", annualRate.String(), "emi", utils.FormatMoney(loan.EMIAmount))
	publish(ctx, s.publisher, s.logger, events.LoanApplied, newLoanEvent(loan))

	return loan, nil
}

// ListForUser returns the user's loans, newest first.
func (s *LoanService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Loan, error) {
	loans, err := s.uow.Repos().Loans.ListByUser(ctx, userID)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	return loans, nil
}

// ListPending returns every PENDING loan, oldest first. Admin only.
func (s *LoanService) ListPending(ctx context.Context, caller domain.Identity) ([]*domain.Loan, error) {
	if !caller.IsAdmin() {
		return nil, customError.WrapAdminRequired()
	}
	loans, err := s.uow.Repos().Loans.ListByStatus(ctx, domain.LoanStatusPending)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	return loans, nil
}

// Get returns a loan visible to the caller: its owner or an admin.
func (s *LoanService) Get(ctx context.Context, caller domain.Identity, loanID uuid.UUID) (*domain.Loan, error) {
	loan, err := s.uow.Repos().Loans.GetByID(ctx, loanID)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if !loan.IsOwnedBy(caller.UserID) && !caller.IsAdmin() {
		return nil, customError.WrapLoanForbidden(loanID.String())
	}
	return loan, nil
}

// Schedule returns the amortization schedule of a loan, dated from its
// disbursement, or from its application while still pending.
func (s *LoanService) Schedule(ctx context.Context, caller domain.Identity, loanID uuid.UUID) (*domain.ScheduleResponse, error) {
	loan, err := s.Get(ctx, caller, loanID)
	if err != nil {
		return nil, err
	}

	quote, err := emi.Calculate(loan.PrincipalAmount, loan.TenureMonths, loan.InterestRate)
	if err != nil {
		return nil, err
	}

	start := loan.CreatedAt
	if loan.DecidedAt != nil {
		start = *loan.DecidedAt
	}

	return &domain.ScheduleResponse{
		LoanID:   loan.ID,
		Quote:    quote,
		Schedule: emi.Schedule(quote, start),
	}, nil
}

// ReduceOutstanding applies a repayment amount to a loan inside the
// caller's transaction. It reports whether the loan was closed.
func (s *LoanService) ReduceOutstanding(ctx context.Context, r repository.Repos, loanID uuid.UUID, amount decimal.Decimal) (*domain.Loan, bool, error) {
	loan, err := r.Loans.GetForUpdate(ctx, loanID)
	if err != nil {
		return nil, false, err
	}

	closed, err := loan.ReduceOutstanding(amount, s.now())
	if err != nil {
		return nil, false, err
	}
	if err := r.Loans.Update(ctx, loan); err != nil {
		return nil, false, err
	}

	if closed {
		s.logger.InfoContext(ctx, "loan closed", "loan_id", loan.ID, "user_id", loan.UserID)
	}
	return loan, closed, nil
}
