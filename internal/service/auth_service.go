package service

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/lending-engine/internal/auth"
	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/repository"
	customError "github.com/segyhp/lending-engine/pkg/errors"
)

const minPasswordLength = 8

// AuthService registers users and turns credentials into bearer tokens.
type AuthService struct {
	uow    repository.UnitOfWork
	tokens *auth.TokenManager
	logger *slog.Logger
	now    func() time.Time
}

func NewAuthService(uow repository.UnitOfWork, tokens *auth.TokenManager, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		uow:    uow,
		tokens: tokens,
		logger: logger.With("component", "auth"),
		now:    utcNow,
	}
}

// CreateUser stores a user together with an empty wallet.
func (s *AuthService) CreateUser(ctx context.Context, name, email, password string, role domain.Role) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" {
		return nil, customError.WrapInvalidInput("name is required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, customError.WrapInvalidInput("email is not a valid address")
	}
	if len(password) < minPasswordLength {
		return nil, customError.WrapInvalidInput("password must be at least 8 characters")
	}
	if !role.Valid() {
		return nil, customError.WrapInvalidInput("role must be USER or ADMIN")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, customError.WrapInvalidInput("password cannot be hashed")
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
	}

	err = s.uow.WithinTx(ctx, func(r repository.Repos) error {
		if err := r.Users.Create(ctx, user); err != nil {
			return err
		}
		return r.Wallets.Create(ctx, &domain.Wallet{
			UserID:    user.ID,
			Balance:   decimal.Zero,
			CreatedAt: now,
			UpdatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user created", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Register creates a USER account and signs it in.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.TokenResponse, error) {
	user, err := s.CreateUser(ctx, name, email, password, domain.RoleUser)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Login verifies credentials. Unknown emails and wrong passwords fail the
// same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.TokenResponse, error) {
	user, err := s.uow.Repos().Users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if customError.KindOf(err) == customError.KindNotFound {
			return nil, customError.WrapInvalidCredentials()
		}
		return nil, wrapStoreError(err)
	}

	ok, err := auth.CheckPassword(user.PasswordHash, password)
	if err != nil {
		s.logger.ErrorContext(ctx, "stored password hash is unusable", "user_id", user.ID, "error", err)
		return nil, customError.WrapInvalidCredentials()
	}
	if !ok {
		return nil, customError.WrapInvalidCredentials()
	}

	return s.issue(user)
}

// Authenticate turns a bearer token into the caller identity.
func (s *AuthService) Authenticate(token string) (domain.Identity, error) {
	identity, err := s.tokens.Verify(token)
	if err != nil {
		return domain.Identity{}, customError.WrapAuthenticationRequired(err)
	}
	return identity, nil
}

// Me returns the caller's user record.
func (s *AuthService) Me(ctx context.Context, caller domain.Identity) (*domain.User, error) {
	user, err := s.uow.Repos().Users.GetByID(ctx, caller.UserID)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	return user, nil
}

func (s *AuthService) issue(user *domain.User) (*domain.TokenResponse, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, customError.WrapTokenIssue(err)
	}
	return &domain.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        user,
	}, nil
}
