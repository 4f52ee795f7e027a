package types

import (
	"database/sql"
	"time"
)

// User represents an account in the system.
// It contains identity, credential, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Name is the user's display name. Guest accounts get a
	// generated Guest_<suffix> name until they are converted.
	Name string `json:"name" db:"name"`

	// Email is the user's unique email address.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password"`

	// ResetCode is the pending password-recovery code, if any.
	// Only meaningful while ResetCodeExpires is in the future.
	ResetCode sql.NullString `json:"-" db:"reset_code"`

	// ResetCodeExpires is the expiry of the pending recovery code.
	ResetCodeExpires sql.NullTime `json:"-" db:"reset_code_expires"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PublicUser is the representation of a user returned by the API.
type PublicUser struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Public strips credential and recovery fields from a user.
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email}
}
