package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims is the session token payload: the user id and, when a TTL
// is configured, the standard time claims.
type SessionClaims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies stateless HS256 session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService returns a token service. A zero ttl issues tokens with no
// exp claim, so sessions last until the client discards the token.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *TokenService) Issue(userID uuid.UUID) (string, error) {
	claims := SessionClaims{UserID: userID.String()}
	if s.ttl > 0 {
		now := s.now()
		claims.IssuedAt = jwt.NewNumericDate(now)
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature of a raw token and returns the user it names.
func (s *TokenService) Verify(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, ErrMissingToken
	}
	token, err := jwt.ParseWithClaims(raw, &SessionClaims{}, s.Keyfunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return s.UserIDFromToken(token)
}

// Keyfunc resolves the signing key for HMAC tokens only.
func (s *TokenService) Keyfunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
	}
	return s.secret, nil
}

// UserIDFromToken extracts the user id from an already verified token.
func (s *TokenService) UserIDFromToken(token *jwt.Token) (uuid.UUID, error) {
	if token == nil || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	var sub string
	switch claims := token.Claims.(type) {
	case *SessionClaims:
		sub = claims.UserID
	case jwt.MapClaims:
		sub, _ = claims["id"].(string)
	}

	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad id claim", ErrInvalidToken)
	}
	return id, nil
}
