package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/segyhp/lending-engine/internal/domain"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrInvalidRole  = errors.New("invalid role claim")
)

// Claims carries the caller identity inside a bearer token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 bearer tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token for the user.
func (m *TokenManager) Issue(user *domain.User) (string, error) {
	now := m.now()
	claims := Claims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify parses a token and returns the identity it carries.
func (m *TokenManager) Verify(tokenStr string) (domain.Identity, error) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return domain.Identity{}, errors.Join(ErrInvalidToken, err)
	}
	if !tkn.Valid {
		return domain.Identity{}, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return domain.Identity{}, errors.Join(ErrInvalidToken, err)
	}
	role := domain.Role(claims.Role)
	if !role.Valid() {
		return domain.Identity{}, ErrInvalidRole
	}

	return domain.Identity{UserID: userID, Role: role}, nil
}
