package models

import (
	"database/sql"
	"time"
)

const (
	RoleUser  = "user"
	RoleStaff = "staff"

	RequestRoleVisitor = "visitor"
	RequestRoleStaff   = "staff"
)

/*
|--------------------------------------------------------------------------
| DATABASE MODEL (INTERNAL)
|--------------------------------------------------------------------------
| One identity per email. Role only ever moves user -> staff.
*/
type User struct {
	ID           int64
	FullName     string
	Email        string
	Phone        sql.NullString
	Gender       sql.NullString
	Birthdate    sql.NullTime
	PictureURL   sql.NullString
	PasswordHash sql.NullString
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

/*
|--------------------------------------------------------------------------
| REQUEST
|--------------------------------------------------------------------------
*/
type LoginRequest struct {
	Email          string `json:"email" validate:"required"`
	Password       string `json:"password" validate:"required"`
	RecaptchaToken string `json:"recaptcha_token"`
}

/*
|--------------------------------------------------------------------------
| RESPONSE DTO
|--------------------------------------------------------------------------
*/
type UserResponse struct {
	ID         int64   `json:"user_id"`
	FullName   string  `json:"full_name"`
	Email      string  `json:"email"`
	Role       string  `json:"role"`
	PictureURL *string `json:"picture_url,omitempty"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

func ToUserResponse(u User) UserResponse {
	var picture *string
	if u.PictureURL.Valid {
		picture = &u.PictureURL.String
	}

	return UserResponse{
		ID:         u.ID,
		FullName:   u.FullName,
		Email:      u.Email,
		Role:       u.Role,
		PictureURL: picture,
	}
}

// PromoteRole returns the role to store when an identity with role current
// registers asking for requested. Staff is never demoted.
func PromoteRole(current, requested string) string {
	if current == RoleStaff || requested == RequestRoleStaff {
		return RoleStaff
	}
	return RoleUser
}
