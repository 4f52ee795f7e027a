package types

import (
	"encoding/json"
	"time"
)

// Ride represents a single recorded cycling activity owned by a user.
type Ride struct {
	// ID is the unique identifier of the ride.
	ID int `json:"id" db:"id"`

	// UserID references the owning user. Only the owner may read,
	// modify, or delete the ride.
	UserID int `json:"user_id" db:"user_id"`

	// Title is a short human label for the ride.
	Title string `json:"title" db:"title"`

	// Distance is the ride distance in kilometers.
	Distance float64 `json:"distance" db:"distance"`

	// Duration is the elapsed riding time, formatted HH:MM:SS.
	Duration string `json:"duration" db:"duration"`

	// AvgSpeed is the average speed in km/h.
	AvgSpeed float64 `json:"avg_speed" db:"avg_speed"`

	// MaxSpeed is the peak speed in km/h.
	MaxSpeed float64 `json:"max_speed" db:"max_speed"`

	// StartTime is when the ride started.
	StartTime time.Time `json:"start_time" db:"start_time"`

	// Notes holds free-form rider notes.
	Notes string `json:"notes" db:"notes"`

	// RouteData is the opaque recorded track payload, stored as JSON.
	RouteData json.RawMessage `json:"route_data" db:"route_data"`

	// CreatedAt is the timestamp when the ride was stored.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the ride.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
