package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"backend-pameran/internal/apperror"
	"backend-pameran/internal/helper"
	"backend-pameran/internal/models"

	"github.com/rs/zerolog"
)

// TokenIssuer mints a bearer token for a freshly registered identity.
type TokenIssuer interface {
	GenerateToken(u models.User) (string, error)
}

type Registrations struct {
	db         *sql.DB
	sessions   TokenIssuer
	membership *Membership
	log        *zerolog.Logger
	now        func() time.Time
}

func NewRegistrations(db *sql.DB, sessions TokenIssuer, membership *Membership, log *zerolog.Logger) *Registrations {
	return &Registrations{
		db:         db,
		sessions:   sessions,
		membership: membership,
		log:        log,
		now:        time.Now,
	}
}

func normalize(req *models.RegisterRequest) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	req.Role = strings.ToLower(strings.TrimSpace(req.Role))
	req.UnitCode = strings.TrimSpace(req.UnitCode)
	req.Gender = strings.TrimSpace(req.Gender)
	req.Birthdate = strings.TrimSpace(req.Birthdate)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Role == "" {
		req.Role = models.RequestRoleVisitor
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Register creates or updates the identity for req.Email, links it to the
// exhibition and, for staff, to the unit named by unit_code. All writes
// happen in one transaction.
func (s *Registrations) Register(ctx context.Context, req models.RegisterRequest) (*models.RegistrationResult, error) {
	normalize(&req)
	if err := helper.Validate(req); err != nil {
		return nil, err
	}

	var birthdate sql.NullTime
	if req.Birthdate != "" {
		t, err := time.Parse(time.DateOnly, req.Birthdate)
		if err != nil {
			return nil, apperror.Validation("birthdate must use format YYYY-MM-DD").WithDetail("field", "birthdate")
		}
		birthdate = sql.NullTime{Time: t, Valid: true}
	}

	user := models.User{
		FullName:  req.FullName,
		Email:     req.Email,
		Phone:     nullString(req.Phone),
		Gender:    nullString(req.Gender),
		Birthdate: birthdate,
	}
	result := &models.RegistrationResult{}
	var created bool

	err := helper.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var exists int64
		err := tx.QueryRowContext(ctx, "SELECT id FROM exhibitions WHERE id = ?", req.ExhibitionID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("exhibition")
		}
		if err != nil {
			return err
		}

		created, err = s.upsertUser(ctx, tx, &user, req.Role)
		if err != nil {
			return err
		}
		result.User = models.RegisteredUser{UserID: user.ID, Role: user.Role}

		regID, err := s.upsertRegistration(ctx, tx, req.ExhibitionID, user.ID)
		if err != nil {
			return err
		}
		result.Registration = models.RegistrationRef{RegistrationID: regID, ExhibitionID: req.ExhibitionID}

		if req.Role == models.RequestRoleStaff {
			link, err := s.linkStaff(ctx, tx, req.ExhibitionID, req.UnitCode, user.ID)
			if err != nil {
				return err
			}
			result.StaffLinked = link
		}
		return nil
	})
	if err != nil {
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		s.log.Error().Err(err).Str("email", req.Email).Int64("exhibition_id", req.ExhibitionID).Msg("registration failed")
		return nil, apperror.Wrap(err, apperror.CodeRegistration, "registration failed").WithDBCode(err)
	}

	s.membership.Invalidate(ctx, user.ID)

	// Knowing an email is not proof of owning it: a session is only handed
	// out for an identity this call created.
	if created && s.sessions != nil {
		tok, err := s.sessions.GenerateToken(user)
		if err != nil {
			s.log.Error().Err(err).Int64("user_id", user.ID).Msg("failed to issue access token after registration")
		} else {
			result.AccessToken = tok
		}
	}

	s.log.Info().
		Int64("user_id", user.ID).
		Int64("registration_id", result.Registration.RegistrationID).
		Int64("exhibition_id", req.ExhibitionID).
		Str("role", user.Role).
		Msg("registration stored")

	return result, nil
}

// upsertUser locks the row for u.Email, then inserts or merges. Merge
// overwrites the name, keeps stored optional fields the request left blank,
// and only ever promotes the role. It reports whether the row was inserted.
func (s *Registrations) upsertUser(ctx context.Context, tx *sql.Tx, u *models.User, requestedRole string) (bool, error) {
	var current string
	err := tx.QueryRowContext(ctx,
		"SELECT id, role FROM users WHERE email = ? FOR UPDATE",
		u.Email,
	).Scan(&u.ID, &current)

	if errors.Is(err, sql.ErrNoRows) {
		u.Role = models.PromoteRole(models.RoleUser, requestedRole)
		res, err := tx.ExecContext(ctx, `
			INSERT INTO users (full_name, email, phone, gender, birthdate, role)
			VALUES (?, ?, ?, ?, ?, ?)
		`, u.FullName, u.Email, u.Phone, u.Gender, u.Birthdate, u.Role)
		if err != nil {
			return false, err
		}
		u.ID, err = res.LastInsertId()
		return err == nil, err
	}
	if err != nil {
		return false, err
	}

	u.Role = models.PromoteRole(current, requestedRole)
	_, err = tx.ExecContext(ctx, `
		UPDATE users
		SET full_name = ?,
		    gender = COALESCE(?, gender),
		    birthdate = COALESCE(?, birthdate),
		    phone = COALESCE(?, phone),
		    role = ?
		WHERE id = ?
	`, u.FullName, u.Gender, u.Birthdate, u.Phone, u.Role, u.ID)
	return false, err
}

// upsertRegistration returns the id of the (exhibition, user) row, creating
// it if needed. A repeat registration leaves registered_at untouched.
func (s *Registrations) upsertRegistration(ctx context.Context, tx *sql.Tx, exhibitionID, userID int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO registrations (exhibition_id, user_id, registered_at)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id)
	`, exhibitionID, userID, s.now().UTC())
	if err != nil {
		return 0, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, apperror.RegistrationNotFound()
	}
	return id, nil
}

// linkStaff resolves unitCode inside the exhibition and adds the staff link.
// An existing link is kept and reported with Added=false. Links to other
// units are never removed.
func (s *Registrations) linkStaff(ctx context.Context, tx *sql.Tx, exhibitionID int64, unitCode string, userID int64) (*models.StaffLinkResponse, error) {
	var unitID int64
	err := tx.QueryRowContext(ctx,
		"SELECT id FROM units WHERE exhibition_id = ? AND unit_code = ?",
		exhibitionID, unitCode,
	).Scan(&unitID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.UnitNotFound(unitCode)
	}
	if err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx,
		"INSERT IGNORE INTO unit_staff (unit_id, staff_user_id) VALUES (?, ?)",
		unitID, userID,
	)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	return &models.StaffLinkResponse{UnitID: unitID, Added: affected == 1}, nil
}
