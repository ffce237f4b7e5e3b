// Package models provides data models for the points ledger system.
package models

import "time"

// User represents a user identity created on first tracked interaction.
// The ID is the caller's external identifier; this subsystem never deletes
// user rows.
type User struct {
	ID         int64     `json:"id" db:"id"`
	Username   string    `json:"username,omitempty" db:"username"`
	FirstName  string    `json:"firstName,omitempty" db:"first_name"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	LastActive time.Time `json:"lastActive" db:"last_active"`
}
