package middleware

import (
	"errors"
	"strings"

	"backend-pameran/internal/apperror"
	"backend-pameran/internal/config"
	"backend-pameran/internal/helper"
	"backend-pameran/internal/service"
	"backend-pameran/internal/token"

	"github.com/gofiber/fiber/v2"
)

const callerKey = "caller"

// JWTAuth validates the bearer token and stores the caller, with role and
// exhibitions read fresh from membership, in c.Locals. The websocket
// upgrade cannot send headers, so a "token" query parameter is accepted
// as well.
func JWTAuth(sessions *config.Sessions, membership *service.Membership) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, err := bearerToken(c)
		if err != nil {
			return err
		}

		claims, err := sessions.ValidateToken(raw)
		if err != nil {
			if errors.Is(err, token.ErrTokenExpired) {
				return apperror.New(apperror.CodeTokenExpired, "token expired")
			}
			return apperror.New(apperror.CodeInvalidToken, "invalid token")
		}

		caller := service.Caller{
			UserID: claims.UserID,
			Name:   claims.Name,
			Email:  claims.Email,
		}
		if err := membership.Resolve(c.UserContext(), &caller); err != nil {
			return err
		}

		c.Locals(callerKey, caller)
		c.Locals("user_id", caller.UserID)
		c.Locals("role", caller.Role)

		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		if q := c.Query("token"); q != "" {
			return q, nil
		}
		return "", apperror.Unauthorized("missing authorization header")
	}

	scheme, raw, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
		return "", apperror.Unauthorized("invalid authorization format")
	}
	return strings.TrimSpace(raw), nil
}

// RoleAuth must run after JWTAuth.
func RoleAuth(allowedRoles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("role").(string)
		if !helper.HasRole(role, allowedRoles...) {
			return apperror.AccessDenied("you do not have access to this resource")
		}
		return c.Next()
	}
}

// CallerFrom returns the caller stored by JWTAuth.
func CallerFrom(c *fiber.Ctx) service.Caller {
	caller, _ := c.Locals(callerKey).(service.Caller)
	return caller
}
