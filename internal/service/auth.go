package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"backend-pameran/internal/apperror"
	"backend-pameran/internal/helper"
	"backend-pameran/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// CaptchaVerifier checks a login captcha response.
type CaptchaVerifier interface {
	Enabled() bool
	Verify(responseToken string) (bool, error)
}

type Auth struct {
	db       *sql.DB
	sessions TokenIssuer
	captcha  CaptchaVerifier
	log      *zerolog.Logger
}

func NewAuth(db *sql.DB, sessions TokenIssuer, captcha CaptchaVerifier, log *zerolog.Logger) *Auth {
	return &Auth{db: db, sessions: sessions, captcha: captcha, log: log}
}

var errBadCredentials = apperror.Unauthorized("invalid email or password")

// Login exchanges email and password for a session token. Accounts created
// through registration have no password and cannot log in this way.
func (a *Auth) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := helper.Validate(req); err != nil {
		return nil, err
	}

	if a.captcha != nil && a.captcha.Enabled() {
		if req.RecaptchaToken == "" {
			return nil, apperror.Validation("recaptcha_token is required").WithDetail("field", "recaptcha_token")
		}
		ok, err := a.captcha.Verify(req.RecaptchaToken)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.CodeInternal, "recaptcha verification failed")
		}
		if !ok {
			return nil, apperror.AccessDenied("suspicious activity detected")
		}
	}

	var user models.User
	err := a.db.QueryRowContext(ctx, `
		SELECT id, full_name, email, picture_url, password_hash, role
		FROM users WHERE email = ?
	`, req.Email).Scan(
		&user.ID,
		&user.FullName,
		&user.Email,
		&user.PictureURL,
		&user.PasswordHash,
		&user.Role,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, apperror.DB(err)
	}

	if !user.PasswordHash.Valid {
		return nil, errBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash.String), []byte(req.Password)); err != nil {
		return nil, errBadCredentials
	}

	tok, err := a.sessions.GenerateToken(user)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "failed to generate token")
	}

	a.log.Info().Int64("user_id", user.ID).Str("role", user.Role).Msg("login")

	return &models.LoginResponse{
		Token: tok,
		User:  models.ToUserResponse(user),
	}, nil
}
