package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/events"
	"github.com/segyhp/lending-engine/internal/repository"
	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/utils"
)

// ApprovalService is the admin gate between PENDING and ACTIVE or REJECTED.
type ApprovalService struct {
	uow       repository.UnitOfWork
	ledger    *LedgerService
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewApprovalService(uow repository.UnitOfWork, ledger *LedgerService, publisher events.Publisher, logger *slog.Logger) *ApprovalService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ApprovalService{
		uow:       uow,
		ledger:    ledger,
		publisher: publisher,
		logger:    logger.With("component", "approval"),
		now:       utcNow,
	}
}

// Decide approves or rejects a PENDING loan. On approval the status change
// and the DISBURSEMENT credit commit together or not at all.
func (s *ApprovalService) Decide(ctx context.Context, admin domain.Identity, loanID uuid.UUID, approved bool, reason *string) (*domain.Loan, error) {
	if !admin.IsAdmin() {
		return nil, customError.WrapAdminRequired()
	}

	var decided *domain.Loan
	err := s.uow.WithinTx(ctx, func(r repository.Repos) error {
		// 1. Lock the loan before the wallet
		loan, err := r.Loans.GetForUpdate(ctx, loanID)
		if err != nil {
			return err
		}

		now := s.now()
		if !approved {
			rejection := ""
			if reason != nil {
				rejection = *reason
			}
			if err := loan.Reject(admin.UserID, rejection, now); err != nil {
				return err
			}
			if err := r.Loans.Update(ctx, loan); err != nil {
				return err
			}
			decided = loan
			return nil
		}

		// 2. Activate and disburse
		if err := loan.Approve(admin.UserID, now); err != nil {
			return err
		}
		if err := r.Loans.Update(ctx, loan); err != nil {
			return err
		}

		// One DISBURSEMENT per loan is enforced by a unique index; the
		// PENDING check under the loan lock keeps it from being hit.
		if _, err := s.ledger.CreditTx(ctx, r, domain.LedgerEntry{
			UserID:      loan.UserID,
			Amount:      loan.PrincipalAmount,
			Source:      domain.TransactionSourceDisbursement,
			Description: "Loan disbursement",
			LoanID:      &loan.ID,
		}); err != nil {
			return err
		}

		decided = loan
		return nil
	})
	if err != nil {
		return nil, err
	}

	if approved {
		s.logger.InfoContext(ctx, "loan approved",
			"loan_id", decided.ID, "user_id", decided.UserID, "admin_id", admin.UserID,
			"disbursed", utils.FormatMoney(decided.PrincipalAmount))
		publish(ctx, s.publisher, s.logger, events.LoanApproved, newLoanEvent(decided))
	} else {
		s.logger.InfoContext(ctx, "loan rejected",
			"loan_id", decided.ID, "user_id", decided.UserID, "admin_id", admin.UserID,
			"reason", *decided.RejectionReason)
		publish(ctx, s.publisher, s.logger, events.LoanRejected, newLoanEvent(decided))
	}

	return decided, nil
}
