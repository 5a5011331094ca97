package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"backend-pameran/internal/apperror"
	"backend-pameran/internal/helper"
	"backend-pameran/internal/models"
	"backend-pameran/internal/token"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// Publisher forwards recorded check-ins to downstream consumers.
type Publisher interface {
	PublishCheckin(ctx context.Context, ev models.CheckinEvent) error
}

// Broadcaster pushes recorded check-ins to live scanning dashboards.
type Broadcaster interface {
	BroadcastCheckin(ev models.CheckinEvent)
}

type Checkins struct {
	db        *sql.DB
	codec     *token.Codec
	publisher Publisher
	feed      Broadcaster
	log       *zerolog.Logger
	now       func() time.Time
}

func NewCheckins(db *sql.DB, codec *token.Codec, publisher Publisher, feed Broadcaster, log *zerolog.Logger) *Checkins {
	return &Checkins{
		db:        db,
		codec:     codec,
		publisher: publisher,
		feed:      feed,
		log:       log,
		now:       time.Now,
	}
}

// Verify consumes a scanned QR token and records the admission once per
// (visitor, exhibition, unit). Only an unusable token or a caller who may
// not scan for the exhibition is an error; a missing registration and a
// repeat scan are reported as unsuccessful results.
//
// unitID selects the scope: nil infers it from the staff's unit links,
// 0 means the exhibition gate, anything else must be one of the staff's
// units.
func (s *Checkins) Verify(ctx context.Context, staff Caller, scanned string, unitID *int64) (*models.CheckInResult, error) {
	claims := &token.AccessClaims{}
	if err := s.codec.Verify(scanned, claims); err != nil {
		return nil, apperror.InvalidQRToken(err)
	}
	if claims.Type != token.TypeAccess || claims.UID <= 0 || claims.EID <= 0 {
		return nil, apperror.InvalidQRToken(errors.New("not an access token"))
	}

	if !helper.IsStaff(staff.Role) {
		return nil, apperror.AccessDenied("only staff can verify tickets")
	}

	scope, err := s.resolveUnit(ctx, staff.UserID, claims.EID, unitID)
	if err != nil {
		return nil, err
	}

	var (
		result  *models.CheckInResult
		visitor models.CheckinVisitor
	)
	err = helper.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var picture sql.NullString
		err := tx.QueryRowContext(ctx, `
			SELECT u.id, u.full_name, u.picture_url
			FROM registrations r
			JOIN users u ON u.id = r.user_id
			WHERE r.exhibition_id = ? AND r.user_id = ?
		`, claims.EID, claims.UID).Scan(&visitor.UserID, &visitor.FullName, &picture)
		if errors.Is(err, sql.ErrNoRows) {
			result = &models.CheckInResult{
				Success: false,
				Message: "registration not found",
				Code:    models.CheckinCodeRegistrationNotFound,
				Status:  fiber.StatusNotFound,
			}
			return nil
		}
		if err != nil {
			return apperror.DB(err)
		}
		if picture.Valid {
			visitor.PictureURL = &picture.String
		}

		checkinAt := s.now().UTC().Truncate(time.Second)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO checkins (user_id, exhibition_id, unit_id, staff_user_id, checkin_at)
			VALUES (?, ?, ?, ?, ?)
		`, claims.UID, claims.EID, scope, staff.UserID, checkinAt)

		if helper.IsDuplicateKey(err) {
			// Locking read: the winning row may have been committed after
			// this transaction's snapshot was taken.
			if err := tx.QueryRowContext(ctx, `
				SELECT checkin_at FROM checkins
				WHERE user_id = ? AND exhibition_id = ? AND unit_id = ?
				LOCK IN SHARE MODE
			`, claims.UID, claims.EID, scope).Scan(&visitor.CheckinAt); err != nil {
				return apperror.DB(err)
			}
			result = &models.CheckInResult{
				Success: false,
				Message: "already checked in",
				Code:    models.CheckinCodeAlreadyCheckedIn,
				Visitor: &visitor,
				Status:  fiber.StatusConflict,
			}
			return nil
		}
		if err != nil {
			return apperror.DB(err)
		}

		visitor.CheckinAt = checkinAt
		result = &models.CheckInResult{
			Success: true,
			Message: "checked in",
			Visitor: &visitor,
			Status:  fiber.StatusOK,
		}
		return nil
	})
	if err != nil {
		if apperror.Is(err, apperror.CodeDatabase) {
			return nil, err
		}
		return nil, apperror.DB(err)
	}

	logEv := s.log.Info().
		Int64("visitor_id", claims.UID).
		Int64("exhibition_id", claims.EID).
		Int64("unit_id", scope).
		Int64("staff_user_id", staff.UserID)
	if !result.Success {
		logEv.Str("code", result.Code).Msg("check-in rejected")
		return result, nil
	}
	logEv.Msg("check-in recorded")

	s.announce(ctx, models.CheckinEvent{
		Type:         "checkin.recorded",
		ExhibitionID: claims.EID,
		UnitID:       unitPtr(scope),
		VisitorID:    visitor.UserID,
		FullName:     visitor.FullName,
		StaffUserID:  staff.UserID,
		CheckinAt:    visitor.CheckinAt,
	})

	return result, nil
}

// resolveUnit returns the unit_id key component for the check-in and
// rejects staff who have no unit in the exhibition.
func (s *Checkins) resolveUnit(ctx context.Context, staffID, exhibitionID int64, requested *int64) (int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT us.unit_id
		FROM unit_staff us
		JOIN units u ON u.id = us.unit_id
		WHERE us.staff_user_id = ? AND u.exhibition_id = ?
		ORDER BY us.unit_id
	`, staffID, exhibitionID)
	if err != nil {
		return 0, apperror.DB(err)
	}
	defer rows.Close()

	var units []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, apperror.DB(err)
		}
		units = append(units, id)
	}
	if err := rows.Err(); err != nil {
		return 0, apperror.DB(err)
	}

	if len(units) == 0 {
		return 0, apperror.AccessDenied("staff is not assigned to this exhibition")
	}

	switch {
	case requested != nil && *requested == models.NoUnit:
		return models.NoUnit, nil
	case requested != nil:
		if !slices.Contains(units, *requested) {
			return 0, apperror.AccessDenied(fmt.Sprintf("staff is not assigned to unit %d", *requested))
		}
		return *requested, nil
	case len(units) == 1:
		return units[0], nil
	default:
		return models.NoUnit, nil
	}
}

func (s *Checkins) announce(ctx context.Context, ev models.CheckinEvent) {
	if s.feed != nil {
		s.feed.BroadcastCheckin(ev)
	}
	if s.publisher != nil {
		if err := s.publisher.PublishCheckin(ctx, ev); err != nil {
			s.log.Warn().Err(err).Int64("visitor_id", ev.VisitorID).Msg("check-in publish failed")
		}
	}
}

func unitPtr(id int64) *int64 {
	if id == models.NoUnit {
		return nil
	}
	return &id
}
