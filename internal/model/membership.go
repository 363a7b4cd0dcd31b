package model

import (
	"time"
)

// Role is the authorization level a membership grants within a site.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Membership is the authorization edge between a user and a site.
// The (UserID, SiteID) pair is unique: at most one role per user per site.
type Membership struct {
	ID         int64     `db:"id" json:"id"`
	UserID     int64     `db:"user_id" json:"userId"`
	SiteID     int64     `db:"site_id" json:"siteId"`
	Role       Role      `db:"role" json:"role"`
	AssignedAt time.Time `db:"assigned_at" json:"assignedAt"`
}

// SiteMember is a membership joined with its user, as returned by
// site member listings.
type SiteMember struct {
	UserID     int64     `db:"user_id" json:"userId"`
	Username   string    `db:"username" json:"username"`
	Email      string    `db:"email" json:"email"`
	Role       Role      `db:"role" json:"role"`
	AssignedAt time.Time `db:"assigned_at" json:"assignedAt"`
}

// UserSite is a membership joined with its site, as returned when
// listing the sites a user may act within.
type UserSite struct {
	SiteID      int64   `db:"site_id" json:"siteId"`
	Name        string  `db:"name" json:"name"`
	Description *string `db:"description" json:"description,omitempty"`
	Role        Role    `db:"role" json:"role"`
}
