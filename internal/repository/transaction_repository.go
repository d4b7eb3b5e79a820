package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/utils"
)

type transactionRow struct {
	ID             uuid.UUID      `db:"id"`
	UserID         uuid.UUID      `db:"user_id"`
	Type           string         `db:"type"`
	Source         string         `db:"source"`
	AmountCents    int64          `db:"amount_cents"`
	LoanID         uuid.NullUUID  `db:"loan_id"`
	Description    string         `db:"description"`
	IdempotencyKey sql.NullString `db:"idempotency_key"`
	CreatedAt      time.Time      `db:"created_at"`
}

func (r transactionRow) toDomain() *domain.Transaction {
	tx := &domain.Transaction{
		ID:          r.ID,
		UserID:      r.UserID,
		Type:        domain.TransactionType(r.Type),
		Source:      domain.TransactionSource(r.Source),
		Amount:      utils.FromCents(r.AmountCents),
		Description: r.Description,
		CreatedAt:   utc(r.CreatedAt),
	}
	if r.LoanID.Valid {
		id := r.LoanID.UUID
		tx.LoanID = &id
	}
	if r.IdempotencyKey.Valid {
		key := r.IdempotencyKey.String
		tx.IdempotencyKey = &key
	}
	return tx
}

const transactionColumns = `id, user_id, type, source, amount_cents, loan_id, description, idempotency_key, created_at`

type transactionRepository struct {
	base
}

func NewTransactionRepository(q queryer, dialect Dialect) TransactionRepository {
	return &transactionRepository{base{q: q, dialect: dialect}}
}

func (r *transactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	query := r.rebind(`
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	var loanID uuid.NullUUID
	if tx.LoanID != nil {
		loanID = uuid.NullUUID{UUID: *tx.LoanID, Valid: true}
	}
	var key sql.NullString
	if tx.IdempotencyKey != nil {
		key = sql.NullString{String: *tx.IdempotencyKey, Valid: true}
	}

	amount, err := cents(tx.Amount)
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx, query,
		tx.ID,
		tx.UserID,
		string(tx.Type),
		string(tx.Source),
		amount,
		loanID,
		tx.Description,
		key,
		tx.CreatedAt.UTC(),
	)
	return err
}

func (r *transactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := r.rebind(`SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`)

	var row transactionRow
	if err := r.q.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapTransactionNotFound(id.String())
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *transactionRepository) FindByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*domain.Transaction, error) {
	query := r.rebind(`SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = ? AND idempotency_key = ?`)

	var row transactionRow
	if err := r.q.GetContext(ctx, &row, query, userID, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *transactionRepository) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	query := r.rebind(`
		SELECT COALESCE(SUM(CASE WHEN type = 'CREDIT' THEN amount_cents ELSE -amount_cents END), 0)
		FROM transactions
		WHERE user_id = ?
	`)

	var cents int64
	if err := r.q.GetContext(ctx, &cents, query, userID); err != nil {
		return decimal.Zero, err
	}
	return utils.FromCents(cents), nil
}

func (r *transactionRepository) LatestCreatedAt(ctx context.Context, userID uuid.UUID) (time.Time, bool, error) {
	query := r.rebind(`
		SELECT created_at FROM transactions
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT 1
	`)

	var latest time.Time
	if err := r.q.GetContext(ctx, &latest, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	return utc(latest), true, nil
}

func (r *transactionRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Transaction, error) {
	query := r.rebind(`
		SELECT ` + transactionColumns + ` FROM transactions
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`)

	var rows []transactionRow
	if err := r.q.SelectContext(ctx, &rows, query, userID, limit); err != nil {
		return nil, err
	}

	txs := make([]*domain.Transaction, 0, len(rows))
	for _, row := range rows {
		txs = append(txs, row.toDomain())
	}
	return txs, nil
}

func (r *transactionRepository) SumByLoan(ctx context.Context, loanID uuid.UUID, source domain.TransactionSource) (decimal.Decimal, error) {
	query := r.rebind(`
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM transactions
		WHERE loan_id = ? AND source = ?
	`)

	var cents int64
	if err := r.q.GetContext(ctx, &cents, query, loanID, string(source)); err != nil {
		return decimal.Zero, err
	}
	return utils.FromCents(cents), nil
}
