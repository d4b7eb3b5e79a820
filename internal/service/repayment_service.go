package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/events"
	"github.com/segyhp/lending-engine/internal/repository"
	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/utils"
)

// RepaymentEvent is the payload of repayment.completed and loan.closed.
type RepaymentEvent struct {
	RepaymentID      uuid.UUID `json:"repayment_id"`
	LoanID           uuid.UUID `json:"loan_id"`
	UserID           uuid.UUID `json:"user_id"`
	TransactionID    uuid.UUID `json:"transaction_id"`
	Amount           string    `json:"amount"`
	OutstandingAfter string    `json:"outstanding_after"`
	LoanClosed       bool      `json:"loan_closed"`
}

// RepaymentService applies payments against active loans exactly once per
// idempotency key.
type RepaymentService struct {
	uow       repository.UnitOfWork
	ledger    *LedgerService
	loans     *LoanService
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewRepaymentService(uow repository.UnitOfWork, ledger *LedgerService, loans *LoanService, publisher events.Publisher, logger *slog.Logger) *RepaymentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RepaymentService{
		uow:       uow,
		ledger:    ledger,
		loans:     loans,
		publisher: publisher,
		logger:    logger.With("component", "repayments"),
		now:       utcNow,
	}
}

// Pay debits the user's wallet and reduces the loan's outstanding amount in
// one transaction. Repeating a call with the same key returns the first
// result without mutating anything.
func (s *RepaymentService) Pay(ctx context.Context, userID, loanID uuid.UUID, amount decimal.Decimal, idempotencyKey string) (*domain.PaymentResult, error) {
	key := strings.TrimSpace(idempotencyKey)
	if key == "" {
		return nil, customError.WrapIdempotencyKeyRequired()
	}

	// 1. Fast path for retries
	prior, err := s.uow.Repos().Repayments.FindByIdempotencyKey(ctx, userID, key)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if prior != nil {
		return s.replay(ctx, s.uow.Repos(), prior, loanID, amount)
	}

	// 2. Apply under the loan lock
	var result *domain.PaymentResult
	err = s.uow.WithinTx(ctx, func(r repository.Repos) error {
		loan, err := r.Loans.GetForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		if !loan.IsOwnedBy(userID) {
			return customError.WrapLoanForbidden(loanID.String())
		}

		prior, err := r.Repayments.FindByIdempotencyKey(ctx, userID, key)
		if err != nil {
			return err
		}
		if prior != nil {
			result, err = s.replay(ctx, r, prior, loanID, amount)
			return err
		}

		if loan.Status != domain.LoanStatusActive {
			return customError.WrapLoanNotActive(loan.ID.String(), string(loan.Status))
		}
		if !amount.IsPositive() || !utils.IsMoney(amount) {
			return customError.WrapInvalidAmount("amount must be positive with at most 2 decimal places")
		}
		if amount.GreaterThan(loan.OutstandingAmount) {
			return customError.WrapOverpayment(utils.FormatMoney(amount), utils.FormatMoney(loan.OutstandingAmount))
		}

		debit, err := s.ledger.DebitTx(ctx, r, domain.LedgerEntry{
			UserID:         userID,
			Amount:         amount,
			Source:         domain.TransactionSourceRepayment,
			Description:    "Loan repayment",
			LoanID:         &loan.ID,
			IdempotencyKey: &key,
		})
		if err != nil {
			return err
		}

		updated, closed, err := s.loans.ReduceOutstanding(ctx, r, loan.ID, amount)
		if err != nil {
			return err
		}

		repayment := &domain.Repayment{
			ID:               uuid.New(),
			LoanID:           loan.ID,
			UserID:           userID,
			TransactionID:    debit.ID,
			Amount:           debit.Amount,
			IdempotencyKey:   key,
			OutstandingAfter: updated.OutstandingAmount,
			LoanClosed:       closed,
			CreatedAt:        s.now(),
		}
		if err := r.Repayments.Create(ctx, repayment); err != nil {
			return err
		}

		result = &domain.PaymentResult{
			Transaction: debit,
			Repayment:   repayment,
			Loan:        updated,
			LoanClosed:  closed,
		}
		return nil
	})
	if err != nil {
		// 3. A concurrent twin with the same key won the race
		if repository.IsUniqueViolation(err) {
			winner, findErr := s.uow.Repos().Repayments.FindByIdempotencyKey(ctx, userID, key)
			if findErr == nil && winner != nil {
				return s.replay(ctx, s.uow.Repos(), winner, loanID, amount)
			}
		}
		return nil, err
	}

	if result.Replayed {
		return result, nil
	}

	s.logger.InfoContext(ctx, "repayment applied",
		"repayment_id", result.Repayment.ID, "loan_id", loanID, "user_id", userID,
		"amount", utils.FormatMoney(result.Repayment.Amount),
		"outstanding", utils.FormatMoney(result.Repayment.OutstandingAfter), "loan_closed", result.LoanClosed)

	payload := newRepaymentEvent(result.Repayment)
	publish(ctx, s.publisher, s.logger, events.RepaymentCompleted, payload)
	if result.LoanClosed {
		publish(ctx, s.publisher, s.logger, events.LoanClosed, newLoanEvent(result.Loan))
	}

	return result, nil
}

// replay rebuilds the stored result of an earlier call.
func (s *RepaymentService) replay(ctx context.Context, r repository.Repos, prior *domain.Repayment, loanID uuid.UUID, amount decimal.Decimal) (*domain.PaymentResult, error) {
	if prior.LoanID != loanID || !prior.Amount.Equal(amount) {
		s.logger.WarnContext(ctx, "idempotency key replayed with different parameters",
			"idempotency_key", prior.IdempotencyKey, "user_id", prior.UserID,
			"stored_loan_id", prior.LoanID, "requested_loan_id", loanID,
			"stored_amount", utils.FormatMoney(prior.Amount), "requested_amount", utils.FormatMoney(amount))
	} else {
		s.logger.WarnContext(ctx, "repayment replayed",
			"idempotency_key", prior.IdempotencyKey, "user_id", prior.UserID, "repayment_id", prior.ID)
	}

	tx, err := r.Transactions.GetByID(ctx, prior.TransactionID)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	loan, err := r.Loans.GetByID(ctx, prior.LoanID)
	if err != nil {
		return nil, wrapStoreError(err)
	}

	return &domain.PaymentResult{
		Transaction: tx,
		Repayment:   prior,
		Loan:        loan,
		LoanClosed:  prior.LoanClosed,
		Replayed:    true,
	}, nil
}

// ListForLoan returns the repayments of a loan owned by the caller.
func (s *RepaymentService) ListForLoan(ctx context.Context, caller domain.Identity, loanID uuid.UUID) ([]*domain.Repayment, error) {
	repos := s.uow.Repos()
	loan, err := repos.Loans.GetByID(ctx, loanID)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if !loan.IsOwnedBy(caller.UserID) {
		return nil, customError.WrapLoanForbidden(loanID.String())
	}

	repayments, err := repos.Repayments.ListByLoan(ctx, loanID)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	return repayments, nil
}

func newRepaymentEvent(rep *domain.Repayment) RepaymentEvent {
	return RepaymentEvent{
		RepaymentID:      rep.ID,
		LoanID:           rep.LoanID,
		UserID:           rep.UserID,
		TransactionID:    rep.TransactionID,
		Amount:           utils.FormatMoney(rep.Amount),
		OutstandingAfter: utils.FormatMoney(rep.OutstandingAfter),
		LoanClosed:       rep.LoanClosed,
	}
}
