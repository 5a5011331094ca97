// Package token signs and verifies compact HS256 tokens
// (base64url(header).base64url(payload).base64url(signature)).
//
// Both the bearer session tokens and the short-lived QR access tokens go
// through the same Codec so there is exactly one secret and one algorithm.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

type Codec struct {
	secret []byte
	now    func() time.Time
}

type Option func(*Codec)

// WithClock replaces time.Now for both signing and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

func NewCodec(secret string, opts ...Option) *Codec {
	c := &Codec{
		secret: []byte(secret),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Now is the codec clock. Claim constructors take it so iat/exp agree with
// what Verify will compare against.
func (c *Codec) Now() time.Time {
	return c.now()
}

func (c *Codec) Sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Verify checks signature then expiry and decodes the payload into claims.
// It returns ErrTokenExpired only for tokens whose signature is valid.
// A token is still good during the second named by exp and fails once the
// clock is past it.
func (c *Codec) Verify(tokenString string, claims jwt.Claims) error {
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithLeeway(time.Second),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return errors.Join(ErrInvalidToken, err)
	}
	if !tok.Valid {
		return ErrInvalidToken
	}
	return nil
}
