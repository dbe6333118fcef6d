package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MohammedShoaib07/campus-care/internal/domain/entity"
)

var errTokenMismatch = errors.New("token does not match session")

type sessionClaims struct {
	Role  string `json:"role"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token for session valid from issuedAt for the configured TTL.
func (m *TokenManager) Issue(session *entity.Session, issuedAt time.Time) (string, error) {
	claims := sessionClaims{
		Role:  session.Role.String(),
		Email: session.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  session.ID,
			IssuedAt: jwt.NewNumericDate(issuedAt),
		},
	}
	if m.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(issuedAt.Add(m.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify checks the signature and expiry of session.Token and that its
// claims describe session.
func (m *TokenManager) Verify(session *entity.Session) error {
	parsed, err := jwt.ParseWithClaims(session.Token, &sessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil {
		return err
	}

	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid {
		return jwt.ErrTokenInvalidClaims
	}
	if claims.Subject != session.ID || claims.Role != session.Role.String() || claims.Email != session.Email {
		return errTokenMismatch
	}
	return nil
}
