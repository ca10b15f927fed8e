package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/okamura/project-management-api/internal/models"
)

// TokenKind discriminates access tokens from refresh tokens. A token of one
// kind never verifies as the other.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

var (
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrWrongTokenKind = errors.New("token kind mismatch")
)

// Claims is the identity payload embedded in issued tokens.
type Claims struct {
	jwt.RegisteredClaims
	UserID string          `json:"uid"`
	Email  string          `json:"email"`
	Role   models.UserRole `json:"role"`
	Kind   TokenKind       `json:"kind"`
}

// TokenManager issues and verifies HMAC-signed access and refresh tokens.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenManager creates a TokenManager.
func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssueAccessToken issues a signed access token for the user.
func (m *TokenManager) IssueAccessToken(user *models.User) (string, error) {
	return m.issue(user, TokenKindAccess, m.accessTTL)
}

// IssueRefreshToken issues a signed refresh token for the user.
func (m *TokenManager) IssueRefreshToken(user *models.User) (string, error) {
	return m.issue(user, TokenKindRefresh, m.refreshTTL)
}

func (m *TokenManager) issue(user *models.User, kind TokenKind, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		Kind:   kind,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// VerifyToken parses and validates a token of the expected kind and returns
// its claims.
func (m *TokenManager) VerifyToken(tokenString string, kind TokenKind) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return m.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		default:
			return nil, ErrTokenInvalid
		}
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Kind != kind {
		return nil, ErrWrongTokenKind
	}

	return claims, nil
}
