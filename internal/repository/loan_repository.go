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

type loanRow struct {
	ID               uuid.UUID       `db:"id"`
	UserID           uuid.UUID       `db:"user_id"`
	PrincipalCents   int64           `db:"principal_cents"`
	TenureMonths     int             `db:"tenure_months"`
	InterestRate     decimal.Decimal `db:"interest_rate"`
	EMICents         int64           `db:"emi_cents"`
	TotalCents       int64           `db:"total_cents"`
	OutstandingCents int64           `db:"outstanding_cents"`
	Status           string          `db:"status"`
	RejectionReason  sql.NullString  `db:"rejection_reason"`
	DecidedBy        uuid.NullUUID   `db:"decided_by"`
	DecidedAt        sql.NullTime    `db:"decided_at"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

func (r loanRow) toDomain() *domain.Loan {
	loan := &domain.Loan{
		ID:                r.ID,
		UserID:            r.UserID,
		PrincipalAmount:   utils.FromCents(r.PrincipalCents),
		TenureMonths:      r.TenureMonths,
		InterestRate:      r.InterestRate,
		EMIAmount:         utils.FromCents(r.EMICents),
		TotalAmount:       utils.FromCents(r.TotalCents),
		OutstandingAmount: utils.FromCents(r.OutstandingCents),
		Status:            domain.LoanStatus(r.Status),
		DecidedAt:         utcPtr(r.DecidedAt),
		CreatedAt:         utc(r.CreatedAt),
		UpdatedAt:         utc(r.UpdatedAt),
	}
	if r.RejectionReason.Valid {
		reason := r.RejectionReason.String
		loan.RejectionReason = &reason
	}
	if r.DecidedBy.Valid {
		admin := r.DecidedBy.UUID
		loan.DecidedBy = &admin
	}
	return loan
}

const loanColumns = `id, user_id, principal_cents, tenure_months, interest_rate, emi_cents, total_cents,
	outstanding_cents, status, rejection_reason, decided_by, decided_at, created_at, updated_at`

type loanRepository struct {
	base
}

func NewLoanRepository(q queryer, dialect Dialect) LoanRepository {
	return &loanRepository{base{q: q, dialect: dialect}}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := r.rebind(`
		INSERT INTO loans (` + loanColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	var amounts [4]int64
	for i, d := range []decimal.Decimal{loan.PrincipalAmount, loan.EMIAmount, loan.TotalAmount, loan.OutstandingAmount} {
		c, err := cents(d)
		if err != nil {
			return err
		}
		amounts[i] = c
	}

	reason, decidedBy, decidedAt := decisionArgs(loan)
	_, err := r.q.ExecContext(ctx, query,
		loan.ID,
		loan.UserID,
		amounts[0],
		loan.TenureMonths,
		loan.InterestRate.String(),
		amounts[1],
		amounts[2],
		amounts[3],
		string(loan.Status),
		reason,
		decidedBy,
		decidedAt,
		loan.CreatedAt.UTC(),
		loan.UpdatedAt.UTC(),
	)
	return err
}

func (r *loanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	return r.get(ctx, id, "")
}

func (r *loanRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	return r.get(ctx, id, r.forUpdate())
}

func (r *loanRepository) get(ctx context.Context, id uuid.UUID, lock string) (*domain.Loan, error) {
	query := r.rebind(`SELECT ` + loanColumns + ` FROM loans WHERE id = ?` + lock)

	var row loanRow
	if err := r.q.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(id.String())
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *loanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	query := r.rebind(`
		UPDATE loans
		SET outstanding_cents = ?, status = ?, rejection_reason = ?, decided_by = ?, decided_at = ?, updated_at = ?
		WHERE id = ?
	`)

	outstanding, err := cents(loan.OutstandingAmount)
	if err != nil {
		return err
	}

	reason, decidedBy, decidedAt := decisionArgs(loan)
	res, err := r.q.ExecContext(ctx, query,
		outstanding,
		string(loan.Status),
		reason,
		decidedBy,
		decidedAt,
		loan.UpdatedAt.UTC(),
		loan.ID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return customError.WrapLoanNotFound(loan.ID.String())
	}
	return nil
}

func (r *loanRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Loan, error) {
	query := r.rebind(`
		SELECT ` + loanColumns + ` FROM loans
		WHERE user_id = ?
		ORDER BY created_at DESC
	`)
	return r.list(ctx, query, userID)
}

func (r *loanRepository) ListByStatus(ctx context.Context, status domain.LoanStatus) ([]*domain.Loan, error) {
	query := r.rebind(`
		SELECT ` + loanColumns + ` FROM loans
		WHERE status = ?
		ORDER BY created_at ASC
	`)
	return r.list(ctx, query, string(status))
}

func (r *loanRepository) CountByUserAndStatus(ctx context.Context, userID uuid.UUID, status domain.LoanStatus) (int, error) {
	query := r.rebind(`SELECT COUNT(*) FROM loans WHERE user_id = ? AND status = ?`)

	var n int
	if err := r.q.GetContext(ctx, &n, query, userID, string(status)); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *loanRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Loan, error) {
	var rows []loanRow
	if err := r.q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	loans := make([]*domain.Loan, 0, len(rows))
	for _, row := range rows {
		loans = append(loans, row.toDomain())
	}
	return loans, nil
}

func decisionArgs(loan *domain.Loan) (sql.NullString, uuid.NullUUID, sql.NullTime) {
	var (
		reason    sql.NullString
		decidedBy uuid.NullUUID
		decidedAt sql.NullTime
	)
	if loan.RejectionReason != nil {
		reason = sql.NullString{String: *loan.RejectionReason, Valid: true}
	}
	if loan.DecidedBy != nil {
		decidedBy = uuid.NullUUID{UUID: *loan.DecidedBy, Valid: true}
	}
	if loan.DecidedAt != nil {
		decidedAt = sql.NullTime{Time: loan.DecidedAt.UTC(), Valid: true}
	}
	return reason, decidedBy, decidedAt
}
