package service

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/interacthq/interaction-server-go/internal/database"
	"github.com/interacthq/interaction-server-go/internal/model"
	"github.com/interacthq/interaction-server-go/internal/repository"
)

// Mock user repository
type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, params model.CreateUserParams) (*model.User, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

// Mock site repository
type mockSiteRepo struct {
	mock.Mock
}

func (m *mockSiteRepo) WithTx(tx *sqlx.Tx) repository.SiteRepository {
	return m
}

func (m *mockSiteRepo) Create(ctx context.Context, params model.CreateSiteParams) (*model.Site, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Site), args.Error(1)
}

func (m *mockSiteRepo) FindByID(ctx context.Context, id int64) (*model.Site, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Site), args.Error(1)
}

func (m *mockSiteRepo) FindByName(ctx context.Context, name string) (*model.Site, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Site), args.Error(1)
}

func (m *mockSiteRepo) List(ctx context.Context, activeOnly bool, limit, offset int) ([]model.Site, error) {
	args := m.Called(ctx, activeOnly, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Site), args.Error(1)
}

func (m *mockSiteRepo) Count(ctx context.Context, activeOnly bool) (int, error) {
	args := m.Called(ctx, activeOnly)
	return args.Int(0), args.Error(1)
}

func (m *mockSiteRepo) Update(ctx context.Context, id int64, params model.UpdateSiteParams) (*model.Site, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Site), args.Error(1)
}

func (m *mockSiteRepo) SetActive(ctx context.Context, id int64, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *mockSiteRepo) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockSiteRepo) Stats(ctx context.Context, id int64) (*model.SiteStats, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SiteStats), args.Error(1)
}

// Mock membership repository
type mockMembershipRepo struct {
	mock.Mock
}

func (m *mockMembershipRepo) WithTx(tx *sqlx.Tx) repository.MembershipRepository {
	return m
}

func (m *mockMembershipRepo) Upsert(ctx context.Context, userID, siteID int64, role model.Role) (*model.Membership, error) {
	args := m.Called(ctx, userID, siteID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Membership), args.Error(1)
}

func (m *mockMembershipRepo) Find(ctx context.Context, userID, siteID int64) (*model.Membership, error) {
	args := m.Called(ctx, userID, siteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Membership), args.Error(1)
}

func (m *mockMembershipRepo) Delete(ctx context.Context, userID, siteID int64) (int64, error) {
	args := m.Called(ctx, userID, siteID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockMembershipRepo) SiteIDsForUser(ctx context.Context, userID int64) ([]int64, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *mockMembershipRepo) UserSites(ctx context.Context, userID int64, activeOnly bool) ([]model.UserSite, error) {
	args := m.Called(ctx, userID, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.UserSite), args.Error(1)
}

func (m *mockMembershipRepo) SiteMembers(ctx context.Context, siteID int64, limit, offset int) ([]model.SiteMember, error) {
	args := m.Called(ctx, siteID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SiteMember), args.Error(1)
}

func (m *mockMembershipRepo) CountSiteMembers(ctx context.Context, siteID int64) (int, error) {
	args := m.Called(ctx, siteID)
	return args.Int(0), args.Error(1)
}

func (m *mockMembershipRepo) CountAdmins(ctx context.Context, siteID int64) (int, error) {
	args := m.Called(ctx, siteID)
	return args.Int(0), args.Error(1)
}

func (m *mockMembershipRepo) LockSite(ctx context.Context, siteID int64) error {
	args := m.Called(ctx, siteID)
	return args.Error(0)
}

// Mock interaction repository
type mockInteractionRepo struct {
	mock.Mock
}

func (m *mockInteractionRepo) Create(ctx context.Context, params model.CreateInteractionParams, siteID, userID int64) (*model.Interaction, error) {
	args := m.Called(ctx, params, siteID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Interaction), args.Error(1)
}

func (m *mockInteractionRepo) FindByID(ctx context.Context, id int64, allowedSiteIDs []int64) (*model.Interaction, error) {
	args := m.Called(ctx, id, allowedSiteIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Interaction), args.Error(1)
}

func (m *mockInteractionRepo) Update(ctx context.Context, id int64, params model.UpdateInteractionParams, allowedSiteIDs []int64, userID int64) (*model.Interaction, error) {
	args := m.Called(ctx, id, params, allowedSiteIDs, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Interaction), args.Error(1)
}

func (m *mockInteractionRepo) Delete(ctx context.Context, id int64, allowedSiteIDs []int64) (int64, error) {
	args := m.Called(ctx, id, allowedSiteIDs)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockInteractionRepo) Search(ctx context.Context, allowedSiteIDs []int64, filters model.InteractionFilters, sortColumn, sortDirection string, limit, offset int) ([]model.Interaction, error) {
	args := m.Called(ctx, allowedSiteIDs, filters, sortColumn, sortDirection, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Interaction), args.Error(1)
}

func (m *mockInteractionRepo) CountSearch(ctx context.Context, allowedSiteIDs []int64, filters model.InteractionFilters) (int, error) {
	args := m.Called(ctx, allowedSiteIDs, filters)
	return args.Int(0), args.Error(1)
}

func (m *mockInteractionRepo) CountBySite(ctx context.Context, siteID int64) (int, error) {
	args := m.Called(ctx, siteID)
	return args.Int(0), args.Error(1)
}

// fakeTxRunner invokes the callback with a nil transaction. The mock
// repositories return themselves from WithTx, so transactional service
// logic runs against the same expectations as the rest of the test.
type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn database.TxFunc) error {
	return fn(nil)
}
