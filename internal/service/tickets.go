package service

import (
	"context"
	"database/sql"

	"backend-pameran/internal/apperror"
	"backend-pameran/internal/helper"
	"backend-pameran/internal/models"
	"backend-pameran/internal/token"

	"github.com/rs/zerolog"
)

// Tickets mints QR access tokens for registered visitors. Minting is
// stateless: nothing is written and every call yields a fresh 5-minute token.
type Tickets struct {
	db    *sql.DB
	codec *token.Codec
	log   *zerolog.Logger
}

func NewTickets(db *sql.DB, codec *token.Codec, log *zerolog.Logger) *Tickets {
	return &Tickets{db: db, codec: codec, log: log}
}

func (t *Tickets) Issue(caller Caller, exhibitionID int64) (*models.QRTokenResponse, error) {
	if exhibitionID <= 0 {
		return nil, apperror.Validation("exhibition_id must be a positive integer").WithDetail("field", "exhibition_id")
	}
	if !caller.IsRegisteredFor(exhibitionID) {
		return nil, apperror.AccessDenied("no ticket for this exhibition")
	}

	signed, err := t.codec.Sign(token.NewAccessClaims(caller.UserID, exhibitionID, t.codec.Now()))
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "failed to sign QR token")
	}

	return &models.QRTokenResponse{
		QRToken:   signed,
		ExpiresIn: int(token.AccessTTL.Seconds()),
	}, nil
}

// IssueImage mints a token like Issue and renders it as a PNG QR code.
func (t *Tickets) IssueImage(caller Caller, exhibitionID int64, size int) ([]byte, *models.QRTokenResponse, error) {
	qr, err := t.Issue(caller, exhibitionID)
	if err != nil {
		return nil, nil, err
	}

	png, err := helper.GenerateQRCodePNG(qr.QRToken, size)
	if err != nil {
		return nil, nil, apperror.Wrap(err, apperror.CodeInternal, "failed to render QR code")
	}
	return png, qr, nil
}

// List returns the caller's registrations, newest first.
func (t *Tickets) List(ctx context.Context, caller Caller) ([]models.Ticket, error) {
	rows, err := t.db.QueryContext(ctx, `
		SELECT r.id, r.exhibition_id, e.code, e.title, e.status, r.registered_at
		FROM registrations r
		JOIN exhibitions e ON e.id = r.exhibition_id
		WHERE r.user_id = ?
		ORDER BY r.registered_at DESC
	`, caller.UserID)
	if err != nil {
		return nil, apperror.DB(err)
	}
	defer rows.Close()

	tickets := []models.Ticket{}
	for rows.Next() {
		var tk models.Ticket
		if err := rows.Scan(
			&tk.RegistrationID,
			&tk.ExhibitionID,
			&tk.ExhibitionCode,
			&tk.ExhibitionTitle,
			&tk.Status,
			&tk.RegisteredAt,
		); err != nil {
			return nil, apperror.DB(err)
		}
		tickets = append(tickets, tk)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.DB(err)
	}

	return tickets, nil
}
