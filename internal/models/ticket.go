package models

import "time"

type QRTokenResponse struct {
	QRToken   string `json:"qr_token"`
	ExpiresIn int    `json:"expires_in"`
}

// Ticket is one of the caller's registrations, shown so the client can pick
// which exhibition to mint a QR token for.
type Ticket struct {
	RegistrationID  int64     `json:"registration_id"`
	ExhibitionID    int64     `json:"exhibition_id"`
	ExhibitionCode  string    `json:"exhibition_code"`
	ExhibitionTitle string    `json:"exhibition_title"`
	Status          string    `json:"status"`
	RegisteredAt    time.Time `json:"registered_at"`
}
