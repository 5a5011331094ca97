package config

import (
	"time"

	"backend-pameran/internal/models"
	"backend-pameran/internal/token"
)

// Sessions issues and validates bearer tokens. Lifetime comes from
// JWT_EXPIRES_IN; QR tokens use their own fixed lifetime.
type Sessions struct {
	codec *token.Codec
	ttl   time.Duration
}

func NewSessions(codec *token.Codec, ttl time.Duration) *Sessions {
	return &Sessions{codec: codec, ttl: ttl}
}

func (s *Sessions) GenerateToken(u models.User) (string, error) {
	claims := token.NewSessionClaims(u.ID, u.FullName, u.Email, u.Role, s.codec.Now(), s.ttl)
	return s.codec.Sign(claims)
}

func (s *Sessions) ValidateToken(tokenString string) (*token.SessionClaims, error) {
	claims := &token.SessionClaims{}
	if err := s.codec.Verify(tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}
