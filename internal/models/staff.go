package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// StaffMember is a schedulable member of the anesthesia team.
type StaffMember struct {
	ID          string         `db:"id" json:"id"`
	FirstName   string         `db:"first_name" json:"first_name"`
	LastName    string         `db:"last_name" json:"last_name"`
	Role        StaffRole      `db:"role" json:"role"`
	IsActive    bool           `db:"is_active" json:"is_active"`
	Preferences types.JSONText `db:"preferences" json:"preferences,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// StaffPreferences is the decoded shape of StaffMember.Preferences.
type StaffPreferences struct {
	PreferredDays []string `json:"preferred_days,omitempty"` // calendar-day keys, 2006-01-02
}

// Surgeon is an operating surgeon referenced by room assignments.
type Surgeon struct {
	ID        string    `db:"id" json:"id"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Specialty string    `db:"specialty" json:"specialty"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
