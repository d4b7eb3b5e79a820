package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/repository"
	"github.com/segyhp/lending-engine/pkg/utils"
)

const reconcilePageSize = 200

// Discrepancy kinds reported by the reconciler.
const (
	DiscrepancyWalletCache     = "wallet_cache_mismatch"
	DiscrepancyNegativeBalance = "negative_balance"
	DiscrepancyOutstanding     = "outstanding_mismatch"
	DiscrepancyDisbursement    = "disbursement_mismatch"
	DiscrepancyRepaymentLedger = "repayment_ledger_mismatch"
)

// Discrepancy is one failed audit check.
type Discrepancy struct {
	Kind     string
	UserID   uuid.UUID
	LoanID   *uuid.UUID
	Expected decimal.Decimal
	Actual   decimal.Decimal
}

// ReconcileReport summarizes one audit run.
type ReconcileReport struct {
	WalletsChecked int
	LoansChecked   int
	Discrepancies  []Discrepancy
}

// ReconcileService audits cached balances and loan amounts against the
// ledger. It only reads.
type ReconcileService struct {
	uow    repository.UnitOfWork
	logger *slog.Logger
}

func NewReconcileService(uow repository.UnitOfWork, logger *slog.Logger) *ReconcileService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcileService{uow: uow, logger: logger.With("component", "reconciler")}
}

// Run checks every wallet and every disbursed loan.
func (s *ReconcileService) Run(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{}

	if err := s.checkWallets(ctx, report); err != nil {
		return nil, wrapStoreError(err)
	}
	for _, status := range []domain.LoanStatus{domain.LoanStatusActive, domain.LoanStatusClosed} {
		if err := s.checkLoans(ctx, status, report); err != nil {
			return nil, wrapStoreError(err)
		}
	}

	for _, d := range report.Discrepancies {
		s.logger.ErrorContext(ctx, "reconciliation mismatch",
			"kind", d.Kind, "user_id", d.UserID, "loan_id", d.LoanID,
			"expected", utils.FormatMoney(d.Expected), "actual", utils.FormatMoney(d.Actual))
	}
	s.logger.InfoContext(ctx, "reconciliation finished",
		"wallets", report.WalletsChecked, "loans", report.LoansChecked, "discrepancies", len(report.Discrepancies))

	return report, nil
}

func (s *ReconcileService) checkWallets(ctx context.Context, report *ReconcileReport) error {
	repos := s.uow.Repos()
	after := uuid.Nil

	for {
		wallets, err := repos.Wallets.List(ctx, after, reconcilePageSize)
		if err != nil {
			return err
		}

		for _, w := range wallets {
			ledger, err := repos.Transactions.Balance(ctx, w.UserID)
			if err != nil {
				return err
			}
			report.WalletsChecked++

			if !ledger.Equal(w.Balance) {
				report.Discrepancies = append(report.Discrepancies, Discrepancy{
					Kind: DiscrepancyWalletCache, UserID: w.UserID, Expected: ledger, Actual: w.Balance,
				})
			}
			if ledger.IsNegative() {
				report.Discrepancies = append(report.Discrepancies, Discrepancy{
					Kind: DiscrepancyNegativeBalance, UserID: w.UserID, Expected: decimal.Zero, Actual: ledger,
				})
			}
		}

		if len(wallets) < reconcilePageSize {
			return nil
		}
		after = wallets[len(wallets)-1].UserID
	}
}

func (s *ReconcileService) checkLoans(ctx context.Context, status domain.LoanStatus, report *ReconcileReport) error {
	repos := s.uow.Repos()

	loans, err := repos.Loans.ListByStatus(ctx, status)
	if err != nil {
		return err
	}

	for _, loan := range loans {
		report.LoansChecked++
		loanID := loan.ID

		repaid, err := repos.Repayments.SumByLoan(ctx, loan.ID)
		if err != nil {
			return err
		}
		if expected := loan.TotalAmount.Sub(repaid); !expected.Equal(loan.OutstandingAmount) {
			report.Discrepancies = append(report.Discrepancies, Discrepancy{
				Kind: DiscrepancyOutstanding, UserID: loan.UserID, LoanID: &loanID,
				Expected: expected, Actual: loan.OutstandingAmount,
			})
		}

		disbursed, err := repos.Transactions.SumByLoan(ctx, loan.ID, domain.TransactionSourceDisbursement)
		if err != nil {
			return err
		}
		if !disbursed.Equal(loan.PrincipalAmount) {
			report.Discrepancies = append(report.Discrepancies, Discrepancy{
				Kind: DiscrepancyDisbursement, UserID: loan.UserID, LoanID: &loanID,
				Expected: loan.PrincipalAmount, Actual: disbursed,
			})
		}

		ledgerRepaid, err := repos.Transactions.SumByLoan(ctx, loan.ID, domain.TransactionSourceRepayment)
		if err != nil {
			return err
		}
		if !ledgerRepaid.Equal(repaid) {
			report.Discrepancies = append(report.Discrepancies, Discrepancy{
				Kind: DiscrepancyRepaymentLedger, UserID: loan.UserID, LoanID: &loanID,
				Expected: repaid, Actual: ledgerRepaid,
			})
		}
	}
	return nil
}
