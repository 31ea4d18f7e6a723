package models

import "time"

// Room represents an occupiable unit of the property (guest room, station).
type Room struct {
	ID             int64     `json:"id" db:"id"`
	Label          string    `json:"label" db:"label"`
	DailyRateCents int64     `json:"daily_rate_cents" db:"daily_rate_cents"`
	Occupied       bool      `json:"occupied" db:"occupied"`
	GuestID        *int64    `json:"guest_id,omitempty" db:"guest_id"`
	Notes          *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
	Guest          *Guest    `json:"guest,omitempty"` // For joining with the current occupant
}

// RoomFilters defines the available filters for querying rooms.
type RoomFilters struct {
	Occupied *bool
	Page     int
	PageSize int
}
