package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/interacthq/interaction-server-go/internal/database"
	"github.com/interacthq/interaction-server-go/internal/model"
)

// SiteRepository handles site catalog data operations
type SiteRepository interface {
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) SiteRepository
	Create(ctx context.Context, params model.CreateSiteParams) (*model.Site, error)
	FindByID(ctx context.Context, id int64) (*model.Site, error)
	FindByName(ctx context.Context, name string) (*model.Site, error)
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]model.Site, error)
	Count(ctx context.Context, activeOnly bool) (int, error)
	Update(ctx context.Context, id int64, params model.UpdateSiteParams) (*model.Site, error)
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context, id int64) (*model.SiteStats, error)
}

type siteRepo struct {
	db database.DBTX
}

// NewSiteRepository creates a new site repository
func NewSiteRepository(db database.DBTX) SiteRepository {
	return &siteRepo{db: db}
}

func (r *siteRepo) WithTx(tx *sqlx.Tx) SiteRepository {
	return &siteRepo{db: tx}
}

func (r *siteRepo) Create(ctx context.Context, params model.CreateSiteParams) (*model.Site, error) {
	var site model.Site
	err := r.db.GetContext(ctx, &site, `
		INSERT INTO sites (name, description)
		VALUES ($1, $2)
		RETURNING *
	`, params.Name, params.Description)
	if err != nil {
		return nil, err
	}
	return &site, nil
}

func (r *siteRepo) FindByID(ctx context.Context, id int64) (*model.Site, error) {
	var site model.Site
	err := r.db.GetContext(ctx, &site, `
		SELECT * FROM sites WHERE id = $1
	`, id)
	return HandleNotFound(&site, err)
}

func (r *siteRepo) FindByName(ctx context.Context, name string) (*model.Site, error) {
	var site model.Site
	err := r.db.GetContext(ctx, &site, `
		SELECT * FROM sites WHERE name = $1
	`, name)
	return HandleNotFound(&site, err)
}

func (r *siteRepo) List(ctx context.Context, activeOnly bool, limit, offset int) ([]model.Site, error) {
	sites := []model.Site{}
	query := `SELECT * FROM sites ORDER BY name LIMIT $1 OFFSET $2`
	if activeOnly {
		query = `SELECT * FROM sites WHERE is_active ORDER BY name LIMIT $1 OFFSET $2`
	}
	err := r.db.SelectContext(ctx, &sites, query, limit, offset)
	return sites, err
}

func (r *siteRepo) Count(ctx context.Context, activeOnly bool) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM sites`
	if activeOnly {
		query = `SELECT COUNT(*) FROM sites WHERE is_active`
	}
	err := r.db.GetContext(ctx, &count, query)
	return count, err
}

func (r *siteRepo) Update(ctx context.Context, id int64, params model.UpdateSiteParams) (*model.Site, error) {
	var site model.Site
	err := r.db.GetContext(ctx, &site, `
		UPDATE sites
		SET name = COALESCE($1, name),
		    description = COALESCE($2, description),
		    is_active = COALESCE($3, is_active)
		WHERE id = $4
		RETURNING *
	`, params.Name, params.Description, params.IsActive, id)
	return HandleNotFound(&site, err)
}

func (r *siteRepo) SetActive(ctx context.Context, id int64, active bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sites SET is_active = $1 WHERE id = $2
	`, active, id)
	return err
}

func (r *siteRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM sites WHERE id = $1
	`, id)
	return err
}

func (r *siteRepo) Stats(ctx context.Context, id int64) (*model.SiteStats, error) {
	var stats model.SiteStats
	err := r.db.GetContext(ctx, &stats, `
		SELECT s.id AS site_id,
		       (SELECT COUNT(*) FROM memberships m WHERE m.site_id = s.id) AS member_count,
		       (SELECT COUNT(*) FROM interactions i WHERE i.site_id = s.id) AS interaction_count,
		       (SELECT MAX(i.created_at) FROM interactions i WHERE i.site_id = s.id) AS last_interaction
		FROM sites s
		WHERE s.id = $1
	`, id)
	return HandleNotFound(&stats, err)
}
