package models

import "time"

// NoUnit is stored in checkins.unit_id for exhibition-level admissions so
// the unique key (user_id, exhibition_id, unit_id) never contains NULL.
const NoUnit int64 = 0

const (
	CheckinCodeAlreadyCheckedIn     = "ALREADY_CHECKED_IN"
	CheckinCodeRegistrationNotFound = "REGISTRATION_NOT_FOUND"
)

type Checkin struct {
	ID           int64
	UserID       int64
	ExhibitionID int64
	UnitID       int64
	StaffUserID  int64
	CheckinAt    time.Time
}

type VerifyTicketRequest struct {
	Token  string `json:"token"`
	UnitID *int64 `json:"unit_id" validate:"omitempty,gte=0"`
}

type CheckinVisitor struct {
	UserID     int64     `json:"user_id"`
	FullName   string    `json:"full_name"`
	PictureURL *string   `json:"picture_url"`
	CheckinAt  time.Time `json:"checkin_at"`
}

// CheckInResult is the structured outcome of a scan. A duplicate scan is a
// result with Success=false, not an error.
type CheckInResult struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code,omitempty"`
	Visitor *CheckinVisitor `json:"visitor,omitempty"`

	Status int `json:"-"`
}

// CheckinEvent is what gets broadcast to scanning dashboards and published
// to the message bus after an admission is recorded.
type CheckinEvent struct {
	Type         string    `json:"type"`
	ExhibitionID int64     `json:"exhibition_id"`
	UnitID       *int64    `json:"unit_id,omitempty"`
	VisitorID    int64     `json:"visitor_id"`
	FullName     string    `json:"full_name"`
	StaffUserID  int64     `json:"staff_user_id"`
	CheckinAt    time.Time `json:"checkin_at"`
}
