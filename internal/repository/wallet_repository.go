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

type walletRow struct {
	UserID       uuid.UUID `db:"user_id"`
	BalanceCents int64     `db:"balance_cents"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r walletRow) toDomain() *domain.Wallet {
	return &domain.Wallet{
		UserID:    r.UserID,
		Balance:   utils.FromCents(r.BalanceCents),
		CreatedAt: utc(r.CreatedAt),
		UpdatedAt: utc(r.UpdatedAt),
	}
}

const walletColumns = `user_id, balance_cents, created_at, updated_at`

type walletRepository struct {
	base
}

func NewWalletRepository(q queryer, dialect Dialect) WalletRepository {
	return &walletRepository{base{q: q, dialect: dialect}}
}

func (r *walletRepository) Create(ctx context.Context, wallet *domain.Wallet) error {
	query := r.rebind(`
		INSERT INTO wallets (` + walletColumns + `)
		VALUES (?, ?, ?, ?)
	`)

	balance, err := cents(wallet.Balance)
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx, query,
		wallet.UserID,
		balance,
		wallet.CreatedAt.UTC(),
		wallet.UpdatedAt.UTC(),
	)
	return err
}

func (r *walletRepository) Get(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	return r.get(ctx, userID, "")
}

func (r *walletRepository) GetForUpdate(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	return r.get(ctx, userID, r.forUpdate())
}

func (r *walletRepository) get(ctx context.Context, userID uuid.UUID, lock string) (*domain.Wallet, error) {
	query := r.rebind(`SELECT ` + walletColumns + ` FROM wallets WHERE user_id = ?` + lock)

	var row walletRow
	if err := r.q.GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapWalletNotFound(userID.String())
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *walletRepository) UpdateBalance(ctx context.Context, userID uuid.UUID, balance decimal.Decimal, at time.Time) error {
	query := r.rebind(`UPDATE wallets SET balance_cents = ?, updated_at = ? WHERE user_id = ?`)

	balanceCents, err := cents(balance)
	if err != nil {
		return err
	}

	res, err := r.q.ExecContext(ctx, query, balanceCents, at.UTC(), userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return customError.WrapWalletNotFound(userID.String())
	}
	return nil
}

func (r *walletRepository) List(ctx context.Context, after uuid.UUID, limit int) ([]*domain.Wallet, error) {
	query := r.rebind(`
		SELECT ` + walletColumns + ` FROM wallets
		WHERE user_id > ?
		ORDER BY user_id
		LIMIT ?
	`)

	var rows []walletRow
	if err := r.q.SelectContext(ctx, &rows, query, after, limit); err != nil {
		return nil, err
	}

	wallets := make([]*domain.Wallet, 0, len(rows))
	for _, row := range rows {
		wallets = append(wallets, row.toDomain())
	}
	return wallets, nil
}
