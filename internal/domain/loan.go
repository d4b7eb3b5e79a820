package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/utils"
)

// LoanStatus is a state of the loan lifecycle.
type LoanStatus string

const (
	LoanStatusPending  LoanStatus = "PENDING"
	LoanStatusActive   LoanStatus = "ACTIVE"
	LoanStatusRejected LoanStatus = "REJECTED"
	LoanStatusClosed   LoanStatus = "CLOSED"
)

// DefaultRejectionReason is recorded when an admin rejects without a reason.
const DefaultRejectionReason = "Rejected by administrator"

// loanTransitions is the complete lifecycle. Statuses without an entry are
// terminal.
var loanTransitions = map[LoanStatus][]LoanStatus{
	LoanStatusPending: {LoanStatusActive, LoanStatusRejected},
	LoanStatusActive:  {LoanStatusClosed},
}

// Valid reports whether s is a known status.
func (s LoanStatus) Valid() bool {
	switch s {
	case LoanStatusPending, LoanStatusActive, LoanStatusRejected, LoanStatusClosed:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s LoanStatus) IsTerminal() bool {
	return len(loanTransitions[s]) == 0
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s LoanStatus) CanTransitionTo(next LoanStatus) bool {
	for _, allowed := range loanTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Loan represents a loan entity
type Loan struct {
	ID                uuid.UUID       `json:"id"`
	UserID            uuid.UUID       `json:"user_id"`
	PrincipalAmount   decimal.Decimal `json:"principal_amount"`
	TenureMonths      int             `json:"tenure_months"`
	InterestRate      decimal.Decimal `json:"interest_rate"`
	EMIAmount         decimal.Decimal `json:"emi_amount"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	OutstandingAmount decimal.Decimal `json:"outstanding_amount"`
	Status            LoanStatus      `json:"status"`
	RejectionReason   *string         `json:"rejection_reason,omitempty"`
	DecidedBy         *uuid.UUID      `json:"decided_by,omitempty"`
	DecidedAt         *time.Time      `json:"decided_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// IsOwnedBy reports whether userID applied for the loan.
func (l *Loan) IsOwnedBy(userID uuid.UUID) bool {
	return l.UserID == userID
}

func (l *Loan) transitionTo(next LoanStatus, at time.Time) error {
	if !l.Status.CanTransitionTo(next) {
		return customError.WrapInvalidTransition(string(l.Status), string(next))
	}
	l.Status = next
	l.UpdatedAt = at
	return nil
}

// Approve activates a pending loan.
func (l *Loan) Approve(adminID uuid.UUID, at time.Time) error {
	if l.Status != LoanStatusPending {
		return customError.WrapLoanNotPending(l.ID.String(), string(l.Status))
	}
	if err := l.transitionTo(LoanStatusActive, at); err != nil {
		return err
	}
	l.DecidedBy = &adminID
	l.DecidedAt = &at
	return nil
}

// Reject closes a pending loan without disbursement. An empty reason is
// replaced by DefaultRejectionReason.
func (l *Loan) Reject(adminID uuid.UUID, reason string, at time.Time) error {
	if l.Status != LoanStatusPending {
		return customError.WrapLoanNotPending(l.ID.String(), string(l.Status))
	}
	if err := l.transitionTo(LoanStatusRejected, at); err != nil {
		return err
	}
	if reason == "" {
		reason = DefaultRejectionReason
	}
	l.RejectionReason = &reason
	l.DecidedBy = &adminID
	l.DecidedAt = &at
	return nil
}

// ReduceOutstanding subtracts amount from the outstanding balance and closes
// the loan when it reaches exactly zero. Amounts above the outstanding
// balance are rejected, never clamped. It reports whether this call closed
// the loan.
func (l *Loan) ReduceOutstanding(amount decimal.Decimal, at time.Time) (bool, error) {
	if l.Status != LoanStatusActive {
		return false, customError.WrapLoanNotActive(l.ID.String(), string(l.Status))
	}
	if !amount.IsPositive() || !utils.IsMoney(amount) {
		return false, customError.WrapInvalidAmount("repayment amount must be a positive amount with at most 2 decimals")
	}
	if amount.GreaterThan(l.OutstandingAmount) {
		return false, customError.WrapOverpayment(utils.FormatMoney(amount), utils.FormatMoney(l.OutstandingAmount))
	}

	l.OutstandingAmount = l.OutstandingAmount.Sub(amount)
	l.UpdatedAt = at

	if !l.OutstandingAmount.IsZero() {
		return false, nil
	}
	if err := l.transitionTo(LoanStatusClosed, at); err != nil {
		return false, err
	}
	return true, nil
}

// DTOs for requests and responses

type ApplyLoanRequest struct {
	PrincipalAmount decimal.Decimal  `json:"principal_amount" validate:"required,gt=0"`
	TenureMonths    int              `json:"tenure_months" validate:"required,gt=0"`
	InterestRate    *decimal.Decimal `json:"interest_rate,omitempty" validate:"omitempty,gte=0"`
}

type CalculateEMIRequest struct {
	PrincipalAmount decimal.Decimal  `json:"principal_amount" validate:"required,gt=0"`
	TenureMonths    int              `json:"tenure_months" validate:"required,gt=0"`
	InterestRate    *decimal.Decimal `json:"interest_rate,omitempty" validate:"omitempty,gte=0"`
}

type DecideLoanRequest struct {
	LoanID          uuid.UUID `json:"loan_id" validate:"required"`
	Approved        *bool     `json:"approved" validate:"required"`
	RejectionReason *string   `json:"rejection_reason,omitempty" validate:"omitempty,max=500"`
}
