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
	"github.com/segyhp/lending-engine/internal/repository"
	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/utils"
)

const (
	DefaultTransactionLimit = 100
	MaxTransactionLimit     = 500
)

var defaultMaxEntryAmount = decimal.NewFromInt(1_000_000_000)

// LedgerService owns the append-only wallet ledger. Balances are always
// derived from the ledger; the cached wallet balance only mirrors it.
type LedgerService struct {
	uow       repository.UnitOfWork
	maxAmount decimal.Decimal
	logger    *slog.Logger
	now       func() time.Time
}

// NewLedgerService caps single entries at policy.MaxEntryAmount.
func NewLedgerService(uow repository.UnitOfWork, policy config.BusinessConfig, logger *slog.Logger) *LedgerService {
	if logger == nil {
		logger = slog.Default()
	}
	maxAmount := policy.MaxEntryAmount
	if !maxAmount.IsPositive() {
		maxAmount = defaultMaxEntryAmount
	}
	return &LedgerService{
		uow:       uow,
		maxAmount: maxAmount,
		logger:    logger.With("component", "ledger"),
		now:       utcNow,
	}
}

// Credit appends a CREDIT entry in its own transaction.
func (s *LedgerService) Credit(ctx context.Context, entry domain.LedgerEntry) (*domain.Transaction, error) {
	return s.post(ctx, entry, domain.TransactionTypeCredit)
}

// Debit appends a DEBIT entry in its own transaction. It fails with
// InsufficientFunds when the balance would become negative.
func (s *LedgerService) Debit(ctx context.Context, entry domain.LedgerEntry) (*domain.Transaction, error) {
	return s.post(ctx, entry, domain.TransactionTypeDebit)
}

// Deposit credits the caller's wallet with external funds.
func (s *LedgerService) Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, idempotencyKey *string) (*domain.Transaction, error) {
	return s.Credit(ctx, domain.LedgerEntry{
		UserID:         userID,
		Amount:         amount,
		Source:         domain.TransactionSourceDeposit,
		Description:    "Wallet deposit",
		IdempotencyKey: idempotencyKey,
	})
}

// CreditTx appends a CREDIT entry inside the caller's transaction.
func (s *LedgerService) CreditTx(ctx context.Context, r repository.Repos, entry domain.LedgerEntry) (*domain.Transaction, error) {
	return s.apply(ctx, r, entry, domain.TransactionTypeCredit)
}

// DebitTx appends a DEBIT entry inside the caller's transaction.
func (s *LedgerService) DebitTx(ctx context.Context, r repository.Repos, entry domain.LedgerEntry) (*domain.Transaction, error) {
	return s.apply(ctx, r, entry, domain.TransactionTypeDebit)
}

func (s *LedgerService) post(ctx context.Context, entry domain.LedgerEntry, txType domain.TransactionType) (*domain.Transaction, error) {
	var result *domain.Transaction
	err := s.uow.WithinTx(ctx, func(r repository.Repos) error {
		tx, err := s.apply(ctx, r, entry, txType)
		if err != nil {
			return err
		}
		result = tx
		return nil
	})
	if err != nil {
		// A concurrent request with the same key committed first.
		if entry.IdempotencyKey != nil && repository.IsUniqueViolation(err) {
			winner, findErr := s.uow.Repos().Transactions.FindByIdempotencyKey(ctx, entry.UserID, *entry.IdempotencyKey)
			if findErr == nil && winner != nil {
				if winner.Type != txType || winner.Source != entry.Source {
					return nil, customError.WrapIdempotencyKeyReused(*entry.IdempotencyKey)
				}
				s.logger.WarnContext(ctx, "idempotent replay after concurrent insert",
					"user_id", entry.UserID, "idempotency_key", *entry.IdempotencyKey, "transaction_id", winner.ID)
				return winner, nil
			}
		}
		return nil, err
	}
	return result, nil
}

func (s *LedgerService) apply(ctx context.Context, r repository.Repos, entry domain.LedgerEntry, txType domain.TransactionType) (*domain.Transaction, error) {
	// 1. Validate the entry
	if !entry.Amount.IsPositive() || !utils.IsMoney(entry.Amount) {
		return nil, customError.WrapInvalidAmount("amount must be positive with at most 2 decimal places")
	}
	if entry.Amount.GreaterThan(s.maxAmount) {
		return nil, customError.WrapInvalidAmount(fmt.Sprintf("amount must not exceed %s", utils.FormatMoney(s.maxAmount)))
	}
	if !entry.Source.Valid() {
		return nil, customError.WrapInvalidInput("unknown transaction source")
	}
	if entry.IdempotencyKey != nil && *entry.IdempotencyKey == "" {
		entry.IdempotencyKey = nil
	}

	// 2. Lock the wallet; every later read is serialized behind it
	if _, err := r.Wallets.GetForUpdate(ctx, entry.UserID); err != nil {
		return nil, err
	}

	// 3. Replay a previously applied entry
	if entry.IdempotencyKey != nil {
		existing, err := r.Transactions.FindByIdempotencyKey(ctx, entry.UserID, *entry.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if existing.Type != txType || existing.Source != entry.Source {
				return nil, customError.WrapIdempotencyKeyReused(*entry.IdempotencyKey)
			}
			if !existing.Amount.Equal(entry.Amount) {
				s.logger.WarnContext(ctx, "idempotency key replayed with a different amount",
					"user_id", entry.UserID, "idempotency_key", *entry.IdempotencyKey,
					"stored_amount", utils.FormatMoney(existing.Amount), "requested_amount", utils.FormatMoney(entry.Amount))
			}
			return existing, nil
		}
	}

	// 4. Derive the balance from the ledger
	balance, err := r.Transactions.Balance(ctx, entry.UserID)
	if err != nil {
		return nil, err
	}

	newBalance := balance.Add(entry.Amount)
	if txType == domain.TransactionTypeDebit {
		if balance.LessThan(entry.Amount) {
			return nil, customError.WrapInsufficientFunds(utils.FormatMoney(balance), utils.FormatMoney(entry.Amount))
		}
		newBalance = balance.Sub(entry.Amount)
	}
	if !utils.FitsCents(newBalance) {
		return nil, customError.WrapInvalidAmount("resulting balance is out of range")
	}

	createdAt, err := s.nextTimestamp(ctx, r, entry.UserID)
	if err != nil {
		return nil, err
	}

	// 5. Append and refresh the cached balance
	tx := &domain.Transaction{
		ID:             uuid.New(),
		UserID:         entry.UserID,
		Type:           txType,
		Source:         entry.Source,
		Amount:         utils.RoundMoney(entry.Amount),
		LoanID:         entry.LoanID,
		Description:    entry.Description,
		IdempotencyKey: entry.IdempotencyKey,
		CreatedAt:      createdAt,
	}
	if err := r.Transactions.Create(ctx, tx); err != nil {
		return nil, err
	}
	if err := r.Wallets.UpdateBalance(ctx, entry.UserID, newBalance, createdAt); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "ledger entry appended",
		"transaction_id", tx.ID, "user_id", tx.UserID, "type", tx.Type, "source", tx.Source,
		"amount", utils.FormatMoney(tx.Amount), "balance", utils.FormatMoney(newBalance))

	return tx, nil
}

// nextTimestamp keeps created_at strictly increasing per user. It must run
// while the wallet row is locked.
func (s *LedgerService) nextTimestamp(ctx context.Context, r repository.Repos, userID uuid.UUID) (time.Time, error) {
	now := s.now().Truncate(time.Microsecond)
	last, ok, err := r.Transactions.LatestCreatedAt(ctx, userID)
	if err != nil {
		return time.Time{}, err
	}
	if ok && !now.After(last) {
		now = last.Add(time.Microsecond)
	}
	return now, nil
}

// GetBalance returns credits minus debits over the user's ledger.
func (s *LedgerService) GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	repos := s.uow.Repos()
	if _, err := repos.Wallets.Get(ctx, userID); err != nil {
		return decimal.Zero, wrapStoreError(err)
	}

	balance, err := repos.Transactions.Balance(ctx, userID)
	if err != nil {
		return decimal.Zero, wrapStoreError(err)
	}
	return balance, nil
}

// ListTransactions returns the user's entries most recent first. The limit
// defaults to DefaultTransactionLimit and is clamped to [1, MaxTransactionLimit].
func (s *LedgerService) ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Transaction, error) {
	repos := s.uow.Repos()
	if _, err := repos.Wallets.Get(ctx, userID); err != nil {
		return nil, wrapStoreError(err)
	}

	txs, err := repos.Transactions.ListByUser(ctx, userID, ClampLimit(limit))
	if err != nil {
		return nil, wrapStoreError(err)
	}
	return txs, nil
}

// ClampLimit applies the transaction listing bounds.
func ClampLimit(limit int) int {
	switch {
	case limit == 0:
		return DefaultTransactionLimit
	case limit < 1:
		return 1
	case limit > MaxTransactionLimit:
		return MaxTransactionLimit
	}
	return limit
}
