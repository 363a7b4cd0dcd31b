package service

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/interacthq/interaction-server-go/internal/audit"
	"github.com/interacthq/interaction-server-go/internal/database"
	apperrors "github.com/interacthq/interaction-server-go/internal/errors"
	"github.com/interacthq/interaction-server-go/internal/model"
	"github.com/interacthq/interaction-server-go/internal/repository"
)

// SiteInput carries the writable site fields.
type SiteInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type SiteService struct {
	db              database.TxRunner
	siteRepo        repository.SiteRepository
	membershipRepo  repository.MembershipRepository
	userRepo        repository.UserRepository
	interactionRepo repository.InteractionRepository
}

func NewSiteService(
	db database.TxRunner,
	siteRepo repository.SiteRepository,
	membershipRepo repository.MembershipRepository,
	userRepo repository.UserRepository,
	interactionRepo repository.InteractionRepository,
) *SiteService {
	return &SiteService{
		db:              db,
		siteRepo:        siteRepo,
		membershipRepo:  membershipRepo,
		userRepo:        userRepo,
		interactionRepo: interactionRepo,
	}
}

// CreateSite creates a site and makes the creator its first admin, in
// one transaction so a site can never exist without an admin.
func (s *SiteService) CreateSite(ctx context.Context, actor *model.User, input SiteInput) (*model.Site, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, apperrors.InvalidField("name", "Site name is required")
	}
	if len(input.Name) > 100 {
		return nil, apperrors.InvalidField("name", "Site name must be at most 100 characters")
	}

	if existing, err := s.siteRepo.FindByName(ctx, input.Name); err != nil {
		return nil, apperrors.Database(err)
	} else if existing != nil {
		return nil, apperrors.Conflict("A site with this name already exists")
	}

	var site *model.Site
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		site, err = s.siteRepo.WithTx(tx).Create(ctx, model.CreateSiteParams{
			Name:        input.Name,
			Description: input.Description,
		})
		if err != nil {
			return err
		}
		_, err = s.membershipRepo.WithTx(tx).Upsert(ctx, actor.ID, site.ID, model.RoleAdmin)
		return err
	})
	if err != nil {
		// The name pre-check races with concurrent creates; the loser
		// hits the unique constraint instead.
		if repository.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("A site with this name already exists")
		}
		return nil, apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{Type: audit.EventSiteCreate, UserID: actor.ID, SiteID: site.ID,
		Details: map[string]interface{}{"name": site.Name}})
	return site, nil
}

// GetSite returns a site the actor is a member of.
func (s *SiteService) GetSite(ctx context.Context, actor *model.User, siteID int64) (*model.Site, error) {
	if _, err := s.requireMember(ctx, actor, siteID); err != nil {
		return nil, err
	}
	site, err := s.siteRepo.FindByID(ctx, siteID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if site == nil {
		return nil, apperrors.NotFound("Site")
	}
	return site, nil
}

// ListSites returns the active site catalog, paginated.
func (s *SiteService) ListSites(ctx context.Context, page, pageSize int) (*model.Page[model.Site], error) {
	offset := (page - 1) * pageSize
	sites, err := s.siteRepo.List(ctx, true, pageSize, offset)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	total, err := s.siteRepo.Count(ctx, true)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	result := model.NewPage(sites, total, page, pageSize)
	return &result, nil
}

// UpdateSite applies a partial update. Only site admins may update.
func (s *SiteService) UpdateSite(ctx context.Context, actor *model.User, siteID int64, params model.UpdateSiteParams) (*model.Site, error) {
	if err := s.requireAdmin(ctx, actor, siteID); err != nil {
		return nil, err
	}

	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			return nil, apperrors.InvalidField("name", "Site name is required")
		}
		if len(name) > 100 {
			return nil, apperrors.InvalidField("name", "Site name must be at most 100 characters")
		}
		params.Name = &name

		if existing, err := s.siteRepo.FindByName(ctx, name); err != nil {
			return nil, apperrors.Database(err)
		} else if existing != nil && existing.ID != siteID {
			return nil, apperrors.Conflict("A site with this name already exists")
		}
	}

	site, err := s.siteRepo.Update(ctx, siteID, params)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("A site with this name already exists")
		}
		return nil, apperrors.Database(err)
	}
	if site == nil {
		return nil, apperrors.NotFound("Site")
	}
	return site, nil
}

// DeleteSite deactivates a site, or removes it entirely when hard is
// set. A hard delete is rejected while memberships or interactions
// still reference the site, so records can never be orphaned.
func (s *SiteService) DeleteSite(ctx context.Context, actor *model.User, siteID int64, hard bool) error {
	if err := s.requireAdmin(ctx, actor, siteID); err != nil {
		return err
	}

	if !hard {
		if err := s.siteRepo.SetActive(ctx, siteID, false); err != nil {
			return apperrors.Database(err)
		}
		audit.Log(ctx, audit.Event{Type: audit.EventSiteDelete, UserID: actor.ID, SiteID: siteID,
			Details: map[string]interface{}{"hard": false}})
		return nil
	}

	interactions, err := s.interactionRepo.CountBySite(ctx, siteID)
	if err != nil {
		return apperrors.Database(err)
	}
	members, err := s.membershipRepo.CountSiteMembers(ctx, siteID)
	if err != nil {
		return apperrors.Database(err)
	}
	if interactions > 0 || members > 0 {
		return apperrors.Conflict("Cannot delete a site that still has members or interactions")
	}

	if err := s.siteRepo.Delete(ctx, siteID); err != nil {
		return apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{Type: audit.EventSiteDelete, UserID: actor.ID, SiteID: siteID,
		Details: map[string]interface{}{"hard": true}})
	return nil
}

// SiteStats returns usage counters for a site the actor belongs to.
func (s *SiteService) SiteStats(ctx context.Context, actor *model.User, siteID int64) (*model.SiteStats, error) {
	if _, err := s.requireMember(ctx, actor, siteID); err != nil {
		return nil, err
	}
	stats, err := s.siteRepo.Stats(ctx, siteID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if stats == nil {
		return nil, apperrors.NotFound("Site")
	}
	return stats, nil
}

// SiteMembers lists the members of a site the actor belongs to.
func (s *SiteService) SiteMembers(ctx context.Context, actor *model.User, siteID int64, page, pageSize int) (*model.Page[model.SiteMember], error) {
	if _, err := s.requireMember(ctx, actor, siteID); err != nil {
		return nil, err
	}

	offset := (page - 1) * pageSize
	members, err := s.membershipRepo.SiteMembers(ctx, siteID, pageSize, offset)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	total, err := s.membershipRepo.CountSiteMembers(ctx, siteID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	result := model.NewPage(members, total, page, pageSize)
	return &result, nil
}

// AddMember grants a user access to a site, or updates their role if
// they are already a member. Demoting an existing admin goes through
// the same last-admin guard as ChangeRole.
func (s *SiteService) AddMember(ctx context.Context, actor *model.User, siteID int64, username string, role model.Role) (*model.Membership, error) {
	if err := s.requireAdmin(ctx, actor, siteID); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, apperrors.InvalidField("role", "Role must be 'admin' or 'user'")
	}

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if user == nil {
		return nil, apperrors.NotFound("User")
	}
	if !user.IsActive {
		return nil, apperrors.Conflict("Cannot add a deactivated user to a site")
	}

	existing, err := s.membershipRepo.Find(ctx, user.ID, siteID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if existing != nil && existing.Role == model.RoleAdmin && role == model.RoleUser {
		return s.ChangeRole(ctx, actor, siteID, user.ID, role)
	}

	membership, err := s.membershipRepo.Upsert(ctx, user.ID, siteID, role)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{Type: audit.EventMemberAdd, UserID: actor.ID, SiteID: siteID,
		Details: map[string]interface{}{"member_user_id": user.ID, "role": string(role)}})
	return membership, nil
}

// ChangeRole sets a member's role. The demotion of a site's only admin
// is rejected: the admin count is checked under a site row lock, in the
// same transaction as the update, so concurrent demotions cannot both
// pass the check.
func (s *SiteService) ChangeRole(ctx context.Context, actor *model.User, siteID, userID int64, role model.Role) (*model.Membership, error) {
	if err := s.requireAdmin(ctx, actor, siteID); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, apperrors.InvalidField("role", "Role must be 'admin' or 'user'")
	}

	var membership *model.Membership
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		repo := s.membershipRepo.WithTx(tx)

		if err := repo.LockSite(ctx, siteID); err != nil {
			return err
		}

		existing, err := repo.Find(ctx, userID, siteID)
		if err != nil {
			return err
		}
		if existing == nil {
			return apperrors.NotFound("Membership")
		}

		if existing.Role == model.RoleAdmin && role == model.RoleUser {
			admins, err := repo.CountAdmins(ctx, siteID)
			if err != nil {
				return err
			}
			if admins <= 1 {
				audit.Log(ctx, audit.Event{Type: audit.EventLastAdminViolation, UserID: actor.ID, SiteID: siteID,
					Details: map[string]interface{}{"action": "demote", "member_user_id": userID}})
				return apperrors.Conflict("Cannot demote the only admin of a site")
			}
		}

		membership, err = repo.Upsert(ctx, userID, siteID, role)
		return err
	})
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok {
			return nil, appErr
		}
		return nil, apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{Type: audit.EventMemberRoleChange, UserID: actor.ID, SiteID: siteID,
		Details: map[string]interface{}{"member_user_id": userID, "role": string(role)}})
	return membership, nil
}

// RemoveMember revokes a user's access to a site. Removing the site's
// only admin is rejected under the same row-lock discipline as
// ChangeRole.
func (s *SiteService) RemoveMember(ctx context.Context, actor *model.User, siteID, userID int64) error {
	if err := s.requireAdmin(ctx, actor, siteID); err != nil {
		return err
	}

	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		repo := s.membershipRepo.WithTx(tx)

		if err := repo.LockSite(ctx, siteID); err != nil {
			return err
		}

		existing, err := repo.Find(ctx, userID, siteID)
		if err != nil {
			return err
		}
		if existing == nil {
			return apperrors.NotFound("Membership")
		}

		if existing.Role == model.RoleAdmin {
			admins, err := repo.CountAdmins(ctx, siteID)
			if err != nil {
				return err
			}
			if admins <= 1 {
				audit.Log(ctx, audit.Event{Type: audit.EventLastAdminViolation, UserID: actor.ID, SiteID: siteID,
					Details: map[string]interface{}{"action": "remove", "member_user_id": userID}})
				return apperrors.Conflict("Cannot remove the only admin of a site")
			}
		}

		_, err = repo.Delete(ctx, userID, siteID)
		return err
	})
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok {
			return appErr
		}
		return apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{Type: audit.EventMemberRemove, UserID: actor.ID, SiteID: siteID,
		Details: map[string]interface{}{"member_user_id": userID}})
	return nil
}

// requireMember resolves the actor's membership in the site, masking
// sites outside the actor's scope as not found.
func (s *SiteService) requireMember(ctx context.Context, actor *model.User, siteID int64) (*model.Membership, error) {
	membership, err := s.membershipRepo.Find(ctx, actor.ID, siteID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if membership == nil {
		audit.Log(ctx, audit.Event{Type: audit.EventSiteAccessDenied, UserID: actor.ID, SiteID: siteID})
		return nil, apperrors.NotFound("Site")
	}
	return membership, nil
}

func (s *SiteService) requireAdmin(ctx context.Context, actor *model.User, siteID int64) error {
	membership, err := s.requireMember(ctx, actor, siteID)
	if err != nil {
		return err
	}
	if membership.Role != model.RoleAdmin {
		return apperrors.Forbidden("Admin role required for this operation")
	}
	return nil
}
