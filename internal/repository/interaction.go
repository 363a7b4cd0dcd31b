package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/interacthq/interaction-server-go/internal/database"
	"github.com/interacthq/interaction-server-go/internal/model"
)

// InteractionRepository handles interaction data operations. Every
// method that touches existing rows takes the caller's allowed site
// ids and bakes them into the query predicate, so an out-of-scope
// record behaves exactly like a missing one.
type InteractionRepository interface {
	Create(ctx context.Context, params model.CreateInteractionParams, siteID, userID int64) (*model.Interaction, error)
	FindByID(ctx context.Context, id int64, allowedSiteIDs []int64) (*model.Interaction, error)
	Update(ctx context.Context, id int64, params model.UpdateInteractionParams, allowedSiteIDs []int64, userID int64) (*model.Interaction, error)
	Delete(ctx context.Context, id int64, allowedSiteIDs []int64) (int64, error)
	Search(ctx context.Context, allowedSiteIDs []int64, filters model.InteractionFilters, sortColumn, sortDirection string, limit, offset int) ([]model.Interaction, error)
	CountSearch(ctx context.Context, allowedSiteIDs []int64, filters model.InteractionFilters) (int, error)
	CountBySite(ctx context.Context, siteID int64) (int, error)
}

type interactionRepo struct {
	db database.DBTX
}

// NewInteractionRepository creates a new interaction repository
func NewInteractionRepository(db database.DBTX) InteractionRepository {
	return &interactionRepo{db: db}
}

func (r *interactionRepo) Create(ctx context.Context, params model.CreateInteractionParams, siteID, userID int64) (*model.Interaction, error) {
	var interaction model.Interaction
	err := r.db.GetContext(ctx, &interaction, `
		INSERT INTO interactions
			(site_id, title, type, lead, start_datetime, end_datetime, timezone,
			 location, description, notes, created_by, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11, NOW())
		RETURNING *
	`, siteID, params.Title, params.Type, params.Lead, params.StartDatetime,
		params.EndDatetime, params.Timezone, params.Location, params.Description,
		params.Notes, userID)
	if err != nil {
		return nil, err
	}
	return &interaction, nil
}

func (r *interactionRepo) FindByID(ctx context.Context, id int64, allowedSiteIDs []int64) (*model.Interaction, error) {
	query, args, err := psql.Select("*").
		From("interactions").
		Where(siteScope(allowedSiteIDs)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var interaction model.Interaction
	err = r.db.GetContext(ctx, &interaction, query, args...)
	return HandleNotFound(&interaction, err)
}

func (r *interactionRepo) Update(ctx context.Context, id int64, params model.UpdateInteractionParams, allowedSiteIDs []int64, userID int64) (*model.Interaction, error) {
	qb := psql.Update("interactions").
		Set("updated_by", userID).
		Set("updated_at", time.Now().UTC()).
		Where(siteScope(allowedSiteIDs)).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING *")

	if params.Title != nil {
		qb = qb.Set("title", *params.Title)
	}
	if params.Type != nil {
		qb = qb.Set("type", *params.Type)
	}
	if params.Lead != nil {
		qb = qb.Set("lead", *params.Lead)
	}
	if params.StartDatetime != nil {
		qb = qb.Set("start_datetime", *params.StartDatetime)
	}
	if params.EndDatetime != nil {
		qb = qb.Set("end_datetime", *params.EndDatetime)
	}
	if params.Timezone != nil {
		qb = qb.Set("timezone", *params.Timezone)
	}
	if params.Location != nil {
		qb = qb.Set("location", *params.Location)
	}
	if params.Description != nil {
		qb = qb.Set("description", *params.Description)
	}
	if params.Notes != nil {
		qb = qb.Set("notes", *params.Notes)
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, err
	}

	var interaction model.Interaction
	err = r.db.GetContext(ctx, &interaction, query, args...)
	return HandleNotFound(&interaction, err)
}

func (r *interactionRepo) Delete(ctx context.Context, id int64, allowedSiteIDs []int64) (int64, error) {
	query, args, err := psql.Delete("interactions").
		Where(siteScope(allowedSiteIDs)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return 0, err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *interactionRepo) Search(ctx context.Context, allowedSiteIDs []int64, filters model.InteractionFilters, sortColumn, sortDirection string, limit, offset int) ([]model.Interaction, error) {
	qb := applyFilters(psql.Select("*").From("interactions"), allowedSiteIDs, filters).
		OrderBy(sortColumn + " " + sortDirection).
		Limit(uint64(limit)).
		Offset(uint64(offset))

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, err
	}

	interactions := []model.Interaction{}
	err = r.db.SelectContext(ctx, &interactions, query, args...)
	return interactions, err
}

func (r *interactionRepo) CountSearch(ctx context.Context, allowedSiteIDs []int64, filters model.InteractionFilters) (int, error) {
	query, args, err := applyFilters(psql.Select("COUNT(*)").From("interactions"), allowedSiteIDs, filters).ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	err = r.db.GetContext(ctx, &count, query, args...)
	return count, err
}

func (r *interactionRepo) CountBySite(ctx context.Context, siteID int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM interactions WHERE site_id = $1
	`, siteID)
	return count, err
}

// applyFilters composes the query predicate: site scope first, then the
// client filters with AND semantics.
func applyFilters(qb sq.SelectBuilder, allowedSiteIDs []int64, f model.InteractionFilters) sq.SelectBuilder {
	qb = qb.Where(siteScope(allowedSiteIDs))

	if f.Title != "" {
		qb = qb.Where(sq.ILike{"title": contains(f.Title)})
	}
	if f.Type != "" {
		qb = qb.Where(sq.Eq{"type": f.Type})
	}
	if f.Lead != "" {
		qb = qb.Where(sq.ILike{"lead": contains(f.Lead)})
	}
	if f.Location != "" {
		qb = qb.Where(sq.ILike{"location": contains(f.Location)})
	}
	if f.Description != "" {
		qb = qb.Where(sq.ILike{"description": contains(f.Description)})
	}
	if f.Notes != "" {
		qb = qb.Where(sq.ILike{"notes": contains(f.Notes)})
	}
	if f.StartAfter != nil {
		qb = qb.Where(sq.GtOrEq{"start_datetime": *f.StartAfter})
	}
	if f.StartBefore != nil {
		qb = qb.Where(sq.LtOrEq{"start_datetime": *f.StartBefore})
	}
	if f.Search != "" {
		term := contains(f.Search)
		qb = qb.Where(sq.Or{
			sq.ILike{"title": term},
			sq.ILike{"lead": term},
			sq.ILike{"type": term},
			sq.ILike{"location": term},
			sq.ILike{"description": term},
			sq.ILike{"notes": term},
		})
	}

	return qb
}

func contains(term string) string {
	return "%" + term + "%"
}
