package model

import (
	"time"
)

// Site is the tenancy boundary. Every interaction belongs to exactly
// one site, and all data access is filtered by site membership.
type Site struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	IsActive    bool      `db:"is_active" json:"isActive"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// CreateSiteParams contains parameters for creating a site
type CreateSiteParams struct {
	Name        string
	Description *string
}

// UpdateSiteParams carries a partial site update. Nil fields are left
// untouched.
type UpdateSiteParams struct {
	Name        *string
	Description *string
	IsActive    *bool
}

// SiteStats summarizes usage of a single site
type SiteStats struct {
	SiteID           int64      `db:"site_id" json:"siteId"`
	MemberCount      int        `db:"member_count" json:"memberCount"`
	InteractionCount int        `db:"interaction_count" json:"interactionCount"`
	LastInteraction  *time.Time `db:"last_interaction" json:"lastInteraction,omitempty"`
}
