package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"
)

type userRow struct {
	ID           uuid.UUID `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r userRow) toDomain() *domain.User {
	return &domain.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         domain.Role(r.Role),
		CreatedAt:    utc(r.CreatedAt),
	}
}

const userColumns = `id, name, email, password_hash, role, created_at`

type userRepository struct {
	base
}

func NewUserRepository(q queryer, dialect Dialect) UserRepository {
	return &userRepository{base{q: q, dialect: dialect}}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := r.rebind(`
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)
	`)

	_, err := r.q.ExecContext(ctx, query,
		user.ID,
		user.Name,
		strings.ToLower(user.Email),
		user.PasswordHash,
		string(user.Role),
		user.CreatedAt.UTC(),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return customError.WrapEmailTaken(user.Email)
		}
		return err
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := r.rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)

	var row userRow
	if err := r.q.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapUserNotFound(id.String())
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := r.rebind(`SELECT ` + userColumns + ` FROM users WHERE email = ?`)

	var row userRow
	if err := r.q.GetContext(ctx, &row, query, strings.ToLower(email)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapUserNotFound(email)
		}
		return nil, err
	}
	return row.toDomain(), nil
}
