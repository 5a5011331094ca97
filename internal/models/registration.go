package models

import "time"

type Registration struct {
	ID           int64
	ExhibitionID int64
	UserID       int64
	RegisteredAt time.Time
}

/*
|--------------------------------------------------------------------------
| REQUEST
|--------------------------------------------------------------------------
| Strings are trimmed before validation, so "required" also rejects blanks.
*/
type RegisterRequest struct {
	ExhibitionID int64  `json:"exhibition_id" validate:"gt=0"`
	FullName     string `json:"full_name" validate:"required,max=255"`
	Email        string `json:"email" validate:"required,max=255"`
	Role         string `json:"role" validate:"omitempty,oneof=visitor staff"`
	UnitCode     string `json:"unit_code" validate:"required_if=Role staff,max=50"`
	Gender       string `json:"gender" validate:"max=20"`
	Birthdate    string `json:"birthdate" validate:"omitempty,datetime=2006-01-02"`
	Phone        string `json:"phone" validate:"max=30"`
}

/*
|--------------------------------------------------------------------------
| RESPONSE DTO
|--------------------------------------------------------------------------
*/
type RegisteredUser struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

type RegistrationRef struct {
	RegistrationID int64 `json:"registration_id"`
	ExhibitionID   int64 `json:"exhibition_id"`
}

type RegistrationResult struct {
	User         RegisteredUser     `json:"user"`
	Registration RegistrationRef    `json:"registration"`
	StaffLinked  *StaffLinkResponse `json:"staff_linked,omitempty"`
	AccessToken  string             `json:"access_token,omitempty"`
}
