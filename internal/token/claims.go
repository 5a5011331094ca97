package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// AccessTTL is the fixed lifetime of a QR access token.
	AccessTTL = 300 * time.Second

	TypeAccess = "access"
)

// AccessClaims is the QR payload: proof that visitor UID holds a ticket
// for exhibition EID.
type AccessClaims struct {
	UID  int64  `json:"uid"`
	EID  int64  `json:"eid"`
	Type string `json:"type"`
	jwt.RegisteredClaims
}

func NewAccessClaims(visitorID, exhibitionID int64, now time.Time) *AccessClaims {
	return &AccessClaims{
		UID:  visitorID,
		EID:  exhibitionID,
		Type: TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTTL)),
		},
	}
}

// SessionClaims is carried by bearer tokens.
type SessionClaims struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func NewSessionClaims(userID int64, name, email, role string, now time.Time, ttl time.Duration) *SessionClaims {
	return &SessionClaims{
		UserID: userID,
		Name:   name,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}
