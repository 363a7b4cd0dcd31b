package model

import (
	"time"
)

// Interaction is the tenant record. SiteID is set once at creation
// from the active site context and never changes afterwards.
type Interaction struct {
	ID            int64      `db:"id" json:"id"`
	SiteID        int64      `db:"site_id" json:"siteId"`
	Title         string     `db:"title" json:"title"`
	Type          string     `db:"type" json:"type"`
	Lead          string     `db:"lead" json:"lead"`
	StartDatetime time.Time  `db:"start_datetime" json:"startDatetime"`
	EndDatetime   *time.Time `db:"end_datetime" json:"endDatetime,omitempty"`
	Timezone      string     `db:"timezone" json:"timezone"`
	Location      *string    `db:"location" json:"location,omitempty"`
	Description   *string    `db:"description" json:"description,omitempty"`
	Notes         *string    `db:"notes" json:"notes,omitempty"`
	CreatedBy     int64      `db:"created_by" json:"createdBy"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	UpdatedBy     *int64     `db:"updated_by" json:"updatedBy,omitempty"`
	UpdatedAt     *time.Time `db:"updated_at" json:"updatedAt,omitempty"`
}

// CreateInteractionParams contains the client-suppliable fields for a
// new interaction. Site and audit fields are stamped server-side.
type CreateInteractionParams struct {
	Title         string     `json:"title"`
	Type          string     `json:"type"`
	Lead          string     `json:"lead"`
	StartDatetime time.Time  `json:"startDatetime"`
	EndDatetime   *time.Time `json:"endDatetime"`
	Timezone      string     `json:"timezone"`
	Location      *string    `json:"location"`
	Description   *string    `json:"description"`
	Notes         *string    `json:"notes"`
}

// UpdateInteractionParams carries a partial update. Nil fields are left
// untouched; SiteID is not updatable.
type UpdateInteractionParams struct {
	Title         *string    `json:"title"`
	Type          *string    `json:"type"`
	Lead          *string    `json:"lead"`
	StartDatetime *time.Time `json:"startDatetime"`
	EndDatetime   *time.Time `json:"endDatetime"`
	Timezone      *string    `json:"timezone"`
	Location      *string    `json:"location"`
	Description   *string    `json:"description"`
	Notes         *string    `json:"notes"`
}

// InteractionFilters holds the optional search criteria. All provided
// filters compose with AND; Search expands to an OR across the text
// fields. The site filter is never part of this struct: allowed site
// ids are a separate, mandatory repository argument.
type InteractionFilters struct {
	Title       string
	Type        string
	Lead        string
	Location    string
	Description string
	Notes       string
	Search      string
	StartAfter  *time.Time
	StartBefore *time.Time
}
