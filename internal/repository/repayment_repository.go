package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/pkg/utils"
)

type repaymentRow struct {
	ID                    uuid.UUID `db:"id"`
	LoanID                uuid.UUID `db:"loan_id"`
	UserID                uuid.UUID `db:"user_id"`
	TransactionID         uuid.UUID `db:"transaction_id"`
	AmountCents           int64     `db:"amount_cents"`
	IdempotencyKey        string    `db:"idempotency_key"`
	OutstandingAfterCents int64     `db:"outstanding_after_cents"`
	LoanClosed            bool      `db:"loan_closed"`
	CreatedAt             time.Time `db:"created_at"`
}

func (r repaymentRow) toDomain() *domain.Repayment {
	return &domain.Repayment{
		ID:               r.ID,
		LoanID:           r.LoanID,
		UserID:           r.UserID,
		TransactionID:    r.TransactionID,
		Amount:           utils.FromCents(r.AmountCents),
		IdempotencyKey:   r.IdempotencyKey,
		OutstandingAfter: utils.FromCents(r.OutstandingAfterCents),
		LoanClosed:       r.LoanClosed,
		CreatedAt:        utc(r.CreatedAt),
	}
}

const repaymentColumns = `id, loan_id, user_id, transaction_id, amount_cents, idempotency_key,
	outstanding_after_cents, loan_closed, created_at`

type repaymentRepository struct {
	base
}

func NewRepaymentRepository(q queryer, dialect Dialect) RepaymentRepository {
	return &repaymentRepository{base{q: q, dialect: dialect}}
}

func (r *repaymentRepository) Create(ctx context.Context, repayment *domain.Repayment) error {
	query := r.rebind(`
		INSERT INTO repayments (` + repaymentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	amount, err := cents(repayment.Amount)
	if err != nil {
		return err
	}
	outstanding, err := cents(repayment.OutstandingAfter)
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx, query,
		repayment.ID,
		repayment.LoanID,
		repayment.UserID,
		repayment.TransactionID,
		amount,
		repayment.IdempotencyKey,
		outstanding,
		repayment.LoanClosed,
		repayment.CreatedAt.UTC(),
	)
	return err
}

func (r *repaymentRepository) FindByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*domain.Repayment, error) {
	query := r.rebind(`SELECT ` + repaymentColumns + ` FROM repayments WHERE user_id = ? AND idempotency_key = ?`)

	var row repaymentRow
	if err := r.q.GetContext(ctx, &row, query, userID, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *repaymentRepository) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.Repayment, error) {
	query := r.rebind(`
		SELECT ` + repaymentColumns + ` FROM repayments
		WHERE loan_id = ?
		ORDER BY created_at ASC
	`)

	var rows []repaymentRow
	if err := r.q.SelectContext(ctx, &rows, query, loanID); err != nil {
		return nil, err
	}

	repayments := make([]*domain.Repayment, 0, len(rows))
	for _, row := range rows {
		repayments = append(repayments, row.toDomain())
	}
	return repayments, nil
}

func (r *repaymentRepository) SumByLoan(ctx context.Context, loanID uuid.UUID) (decimal.Decimal, error) {
	query := r.rebind(`SELECT COALESCE(SUM(amount_cents), 0) FROM repayments WHERE loan_id = ?`)

	var cents int64
	if err := r.q.GetContext(ctx, &cents, query, loanID); err != nil {
		return decimal.Zero, err
	}
	return utils.FromCents(cents), nil
}
