package models

import "time"

// GuestStatus defines the type for guest statuses.
type GuestStatus string

const (
	GuestStatusActive     GuestStatus = "active"
	GuestStatusCheckedOut GuestStatus = "checked_out"
)

// IsValidGuestStatus checks if the provided status string is a valid GuestStatus.
func IsValidGuestStatus(status string) bool {
	switch GuestStatus(status) {
	case GuestStatusActive, GuestStatusCheckedOut:
		return true
	default:
		return false
	}
}

// Guest represents a customer of the property.
// Status flips to checked_out (and the room link is released) at checkout.
type Guest struct {
	ID            int64       `json:"id" db:"id"`
	FullName      string      `json:"full_name" db:"full_name"`
	PhoneNumber   *string     `json:"phone_number,omitempty" db:"phone_number"`
	Status        GuestStatus `json:"status" db:"status"`
	LoyaltyPoints int         `json:"loyalty_points" db:"loyalty_points"`
	RoomID        *int64      `json:"room_id,omitempty" db:"room_id"`
	Notes         *string     `json:"notes,omitempty" db:"notes"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"`
	Room          *Room       `json:"room,omitempty"` // For joining with the assigned room
}

// GuestFilters defines the available filters for querying guests.
type GuestFilters struct {
	Status   *string
	Search   *string // Matches full_name or phone_number
	Page     int
	PageSize int
}
