package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// ErrInvalidToken is returned by Verify for any token that cannot be
// trusted: bad signature, malformed structure, wrong algorithm, expiry.
var ErrInvalidToken = errors.New("token is invalid or expired")

type Claims struct {
	UserID string `json:"user_id"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// Manager issues and verifies the two token kinds. Tokens are
// stateless; validity is solely signature + expiry, there is no
// server-side revocation.
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewManager(secret string, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssuePair signs a fresh access/refresh token pair for the user.
func (m *Manager) IssuePair(userID string) (access, refresh string, err error) {
	access, err = m.sign(userID, TypeAccess, m.accessTTL)
	if err != nil {
		return "", "", err
	}

	refresh, err = m.sign(userID, TypeRefresh, m.refreshTTL)
	if err != nil {
		return "", "", err
	}

	return access, refresh, nil
}

func (m *Manager) sign(userID, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Type:   tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(m.secret)
}

// Verify checks signature and expiry and returns the decoded claims.
// Any failure maps to ErrInvalidToken; callers branch on that, they
// never see library errors. Token type checking is the caller's job.
func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
