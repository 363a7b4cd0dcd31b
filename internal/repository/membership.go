package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/interacthq/interaction-server-go/internal/database"
	"github.com/interacthq/interaction-server-go/internal/model"
)

// MembershipRepository handles the user-site authorization edges.
type MembershipRepository interface {
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) MembershipRepository
	// Upsert creates the membership or, when the (user, site) pair
	// already exists, updates its role in place.
	Upsert(ctx context.Context, userID, siteID int64, role model.Role) (*model.Membership, error)
	Find(ctx context.Context, userID, siteID int64) (*model.Membership, error)
	Delete(ctx context.Context, userID, siteID int64) (int64, error)
	SiteIDsForUser(ctx context.Context, userID int64) ([]int64, error)
	UserSites(ctx context.Context, userID int64, activeOnly bool) ([]model.UserSite, error)
	SiteMembers(ctx context.Context, siteID int64, limit, offset int) ([]model.SiteMember, error)
	CountSiteMembers(ctx context.Context, siteID int64) (int, error)
	CountAdmins(ctx context.Context, siteID int64) (int, error)
	// LockSite acquires row locks on all memberships of a site so a
	// last-admin check and the mutation it guards see a stable set.
	// Only meaningful inside a transaction.
	LockSite(ctx context.Context, siteID int64) error
}

type membershipRepo struct {
	db database.DBTX
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db database.DBTX) MembershipRepository {
	return &membershipRepo{db: db}
}

func (r *membershipRepo) WithTx(tx *sqlx.Tx) MembershipRepository {
	return &membershipRepo{db: tx}
}

func (r *membershipRepo) Upsert(ctx context.Context, userID, siteID int64, role model.Role) (*model.Membership, error) {
	var membership model.Membership
	err := r.db.GetContext(ctx, &membership, `
		INSERT INTO memberships (user_id, site_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, site_id) DO UPDATE SET role = EXCLUDED.role
		RETURNING *
	`, userID, siteID, role)
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

func (r *membershipRepo) Find(ctx context.Context, userID, siteID int64) (*model.Membership, error) {
	var membership model.Membership
	err := r.db.GetContext(ctx, &membership, `
		SELECT * FROM memberships WHERE user_id = $1 AND site_id = $2
	`, userID, siteID)
	return HandleNotFound(&membership, err)
}

func (r *membershipRepo) Delete(ctx context.Context, userID, siteID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM memberships WHERE user_id = $1 AND site_id = $2
	`, userID, siteID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *membershipRepo) SiteIDsForUser(ctx context.Context, userID int64) ([]int64, error) {
	siteIDs := []int64{}
	err := r.db.SelectContext(ctx, &siteIDs, `
		SELECT m.site_id FROM memberships m
		JOIN sites s ON s.id = m.site_id
		WHERE m.user_id = $1 AND s.is_active
		ORDER BY m.site_id
	`, userID)
	return siteIDs, err
}

func (r *membershipRepo) UserSites(ctx context.Context, userID int64, activeOnly bool) ([]model.UserSite, error) {
	sites := []model.UserSite{}
	query := `
		SELECT s.id AS site_id, s.name, s.description, m.role
		FROM memberships m
		JOIN sites s ON s.id = m.site_id
		WHERE m.user_id = $1
		ORDER BY s.name
	`
	if activeOnly {
		query = `
			SELECT s.id AS site_id, s.name, s.description, m.role
			FROM memberships m
			JOIN sites s ON s.id = m.site_id
			WHERE m.user_id = $1 AND s.is_active
			ORDER BY s.name
		`
	}
	err := r.db.SelectContext(ctx, &sites, query, userID)
	return sites, err
}

func (r *membershipRepo) SiteMembers(ctx context.Context, siteID int64, limit, offset int) ([]model.SiteMember, error) {
	members := []model.SiteMember{}
	err := r.db.SelectContext(ctx, &members, `
		SELECT u.id AS user_id, u.username, u.email, m.role, m.assigned_at
		FROM memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.site_id = $1
		ORDER BY u.username
		LIMIT $2 OFFSET $3
	`, siteID, limit, offset)
	return members, err
}

func (r *membershipRepo) CountSiteMembers(ctx context.Context, siteID int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM memberships WHERE site_id = $1
	`, siteID)
	return count, err
}

func (r *membershipRepo) CountAdmins(ctx context.Context, siteID int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM memberships WHERE site_id = $1 AND role = 'admin'
	`, siteID)
	return count, err
}

func (r *membershipRepo) LockSite(ctx context.Context, siteID int64) error {
	ids := []int64{}
	return r.db.SelectContext(ctx, &ids, `
		SELECT id FROM memberships WHERE site_id = $1 FOR UPDATE
	`, siteID)
}
