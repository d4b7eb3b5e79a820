package handler

import (
	"time"

	"github.com/google/uuid"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/pkg/emi"
	"github.com/segyhp/lending-engine/pkg/response"
)

type balanceView struct {
	Balance response.Amount `json:"balance"`
}

type transactionView struct {
	ID             uuid.UUID                `json:"id"`
	Type           domain.TransactionType   `json:"type"`
	Source         domain.TransactionSource `json:"source"`
	Amount         response.Amount          `json:"amount"`
	LoanID         *uuid.UUID               `json:"loan_id,omitempty"`
	Description    string                   `json:"description"`
	IdempotencyKey *string                  `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
}

func newTransactionView(tx *domain.Transaction) transactionView {
	return transactionView{
		ID:             tx.ID,
		Type:           tx.Type,
		Source:         tx.Source,
		Amount:         response.Money(tx.Amount),
		LoanID:         tx.LoanID,
		Description:    tx.Description,
		IdempotencyKey: tx.IdempotencyKey,
		CreatedAt:      tx.CreatedAt,
	}
}

func newTransactionViews(txs []*domain.Transaction) []transactionView {
	views := make([]transactionView, 0, len(txs))
	for _, tx := range txs {
		views = append(views, newTransactionView(tx))
	}
	return views
}

type loanView struct {
	ID                uuid.UUID         `json:"id"`
	UserID            uuid.UUID         `json:"user_id"`
	PrincipalAmount   response.Amount   `json:"principal_amount"`
	TenureMonths      int               `json:"tenure_months"`
	InterestRate      response.Amount   `json:"interest_rate"`
	EMIAmount         response.Amount   `json:"emi_amount"`
	TotalAmount       response.Amount   `json:"total_amount"`
	OutstandingAmount response.Amount   `json:"outstanding_amount"`
	Status            domain.LoanStatus `json:"status"`
	RejectionReason   *string           `json:"rejection_reason,omitempty"`
	DecidedBy         *uuid.UUID        `json:"decided_by,omitempty"`
	DecidedAt         *time.Time        `json:"decided_at,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

func newLoanView(l *domain.Loan) loanView {
	return loanView{
		ID:                l.ID,
		UserID:            l.UserID,
		PrincipalAmount:   response.Money(l.PrincipalAmount),
		TenureMonths:      l.TenureMonths,
		InterestRate:      response.Money(l.InterestRate),
		EMIAmount:         response.Money(l.EMIAmount),
		TotalAmount:       response.Money(l.TotalAmount),
		OutstandingAmount: response.Money(l.OutstandingAmount),
		Status:            l.Status,
		RejectionReason:   l.RejectionReason,
		DecidedBy:         l.DecidedBy,
		DecidedAt:         l.DecidedAt,
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
	}
}

func newLoanViews(loans []*domain.Loan) []loanView {
	views := make([]loanView, 0, len(loans))
	for _, l := range loans {
		views = append(views, newLoanView(l))
	}
	return views
}

type quoteView struct {
	PrincipalAmount response.Amount `json:"principal_amount"`
	TenureMonths    int             `json:"tenure_months"`
	InterestRate    response.Amount `json:"interest_rate"`
	EMIAmount       response.Amount `json:"emi_amount"`
	TotalInterest   response.Amount `json:"total_interest"`
	TotalAmount     response.Amount `json:"total_amount"`
}

func newQuoteView(q emi.Quote) quoteView {
	return quoteView{
		PrincipalAmount: response.Money(q.Principal),
		TenureMonths:    q.TenureMonths,
		InterestRate:    response.Money(q.InterestRate),
		EMIAmount:       response.Money(q.EMIAmount),
		TotalInterest:   response.Money(q.TotalInterest),
		TotalAmount:     response.Money(q.TotalAmount),
	}
}

type installmentView struct {
	Month     int             `json:"month"`
	DueDate   time.Time       `json:"due_date"`
	Payment   response.Amount `json:"payment"`
	Principal response.Amount `json:"principal"`
	Interest  response.Amount `json:"interest"`
	Balance   response.Amount `json:"balance"`
}

type scheduleView struct {
	LoanID   uuid.UUID         `json:"loan_id"`
	Quote    quoteView         `json:"quote"`
	Schedule []installmentView `json:"schedule"`
}

func newScheduleView(s *domain.ScheduleResponse) scheduleView {
	rows := make([]installmentView, 0, len(s.Schedule))
	for _, row := range s.Schedule {
		rows = append(rows, installmentView{
			Month:     row.Month,
			DueDate:   row.DueDate,
			Payment:   response.Money(row.Payment),
			Principal: response.Money(row.Principal),
			Interest:  response.Money(row.Interest),
			Balance:   response.Money(row.Balance),
		})
	}
	return scheduleView{LoanID: s.LoanID, Quote: newQuoteView(s.Quote), Schedule: rows}
}

type repaymentView struct {
	ID               uuid.UUID       `json:"id"`
	LoanID           uuid.UUID       `json:"loan_id"`
	TransactionID    uuid.UUID       `json:"transaction_id"`
	Amount           response.Amount `json:"amount"`
	IdempotencyKey   string          `json:"idempotency_key"`
	OutstandingAfter response.Amount `json:"outstanding_after"`
	LoanClosed       bool            `json:"loan_closed"`
	CreatedAt        time.Time       `json:"created_at"`
}

func newRepaymentView(r *domain.Repayment) repaymentView {
	return repaymentView{
		ID:               r.ID,
		LoanID:           r.LoanID,
		TransactionID:    r.TransactionID,
		Amount:           response.Money(r.Amount),
		IdempotencyKey:   r.IdempotencyKey,
		OutstandingAfter: response.Money(r.OutstandingAfter),
		LoanClosed:       r.LoanClosed,
		CreatedAt:        r.CreatedAt,
	}
}

type paymentView struct {
	Transaction    transactionView `json:"transaction"`
	Repayment      repaymentView   `json:"repayment"`
	LoanClosed     bool            `json:"loan_closed"`
	NewOutstanding response.Amount `json:"new_outstanding"`
	Replayed       bool            `json:"replayed"`
}

func newPaymentView(p *domain.PaymentResult) paymentView {
	return paymentView{
		Transaction:    newTransactionView(p.Transaction),
		Repayment:      newRepaymentView(p.Repayment),
		LoanClosed:     p.LoanClosed,
		NewOutstanding: response.Money(p.Repayment.OutstandingAfter),
		Replayed:       p.Replayed,
	}
}
