package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"backend-pameran/internal/apperror"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const profileTTL = 5 * time.Minute

// Caller is the authenticated identity of a request. Role and Exhibitions
// are read from the database at auth time, not trusted from the token.
type Caller struct {
	UserID      int64   `json:"user_id"`
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	Role        string  `json:"role"`
	Exhibitions []int64 `json:"exhibitions"`
}

func (c Caller) IsRegisteredFor(exhibitionID int64) bool {
	return slices.Contains(c.Exhibitions, exhibitionID)
}

type profile struct {
	Role        string  `json:"role"`
	Exhibitions []int64 `json:"exhibitions"`
}

// Membership resolves a user's current role and registered exhibitions,
// cached in Redis when a client is configured.
type Membership struct {
	db    *sql.DB
	cache *redis.Client
	log   *zerolog.Logger
}

func NewMembership(db *sql.DB, cache *redis.Client, log *zerolog.Logger) *Membership {
	return &Membership{db: db, cache: cache, log: log}
}

func profileKey(userID int64) string {
	return fmt.Sprintf("auth:profile:%d", userID)
}

// Resolve fills Role and Exhibitions on c.
func (m *Membership) Resolve(ctx context.Context, c *Caller) error {
	p, err := m.load(ctx, c.UserID)
	if err != nil {
		return err
	}
	c.Role = p.Role
	c.Exhibitions = p.Exhibitions
	return nil
}

func (m *Membership) load(ctx context.Context, userID int64) (*profile, error) {
	if p, ok := m.fromCache(ctx, userID); ok {
		return p, nil
	}

	p := &profile{}
	err := m.db.QueryRowContext(ctx, "SELECT role FROM users WHERE id = ?", userID).Scan(&p.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.Unauthorized("account no longer exists")
	}
	if err != nil {
		return nil, apperror.DB(err)
	}

	rows, err := m.db.QueryContext(ctx,
		"SELECT exhibition_id FROM registrations WHERE user_id = ? ORDER BY exhibition_id",
		userID,
	)
	if err != nil {
		return nil, apperror.DB(err)
	}
	defer rows.Close()

	p.Exhibitions = []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, apperror.DB(err)
		}
		p.Exhibitions = append(p.Exhibitions, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.DB(err)
	}

	m.toCache(ctx, userID, p)
	return p, nil
}

func (m *Membership) fromCache(ctx context.Context, userID int64) (*profile, bool) {
	if m.cache == nil {
		return nil, false
	}

	raw, err := m.cache.Get(ctx, profileKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			m.log.Warn().Err(err).Int64("user_id", userID).Msg("profile cache read failed")
		}
		return nil, false
	}

	var p profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false
	}
	return &p, true
}

func (m *Membership) toCache(ctx context.Context, userID int64, p *profile) {
	if m.cache == nil {
		return
	}
	raw, _ := json.Marshal(p)
	if err := m.cache.Set(ctx, profileKey(userID), raw, profileTTL).Err(); err != nil {
		m.log.Warn().Err(err).Int64("user_id", userID).Msg("profile cache write failed")
	}
}

// Invalidate drops the cached profile so the next request sees a new
// registration or role promotion.
func (m *Membership) Invalidate(ctx context.Context, userID int64) {
	if m == nil || m.cache == nil {
		return
	}
	if err := m.cache.Del(ctx, profileKey(userID)).Err(); err != nil {
		m.log.Warn().Err(err).Int64("user_id", userID).Msg("profile cache invalidate failed")
	}
}
