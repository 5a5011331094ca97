package models

// StaffLinkResponse reports the unit a staff registration is linked to.
// Added is false when the link already existed.
type StaffLinkResponse struct {
	UnitID int64 `json:"unit_id"`
	Added  bool  `json:"added"`
}
