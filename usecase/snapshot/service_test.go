package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/qrmenu/backend/domain"
)

// MockSnapshotRepository is a mock implementation of SnapshotRepository for testing
type MockSnapshotRepository struct {
	mock.Mock
	nextVersion int
}

func (m *MockSnapshotRepository) Create(ctx context.Context, organizationID string, data domain.MenuSnapshotData, hash string) (*domain.MenuSnapshot, error) {
	args := m.Called(ctx, organizationID, data, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	snapshot := *args.Get(0).(*domain.MenuSnapshot)
	if snapshot.Version == 0 {
		m.nextVersion++
		snapshot.Version = m.nextVersion
	}
	snapshot.OrganizationID = organizationID
	snapshot.Data = data
	snapshot.Hash = hash
	return &snapshot, args.Error(1)
}

func (m *MockSnapshotRepository) GetByID(ctx context.Context, id string) (*domain.MenuSnapshot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MenuSnapshot), args.Error(1)
}

func (m *MockSnapshotRepository) GetCurrent(ctx context.Context, organizationID string) (*domain.MenuSnapshot, error) {
	args := m.Called(ctx, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MenuSnapshot), args.Error(1)
}

func (m *MockSnapshotRepository) GetByVersion(ctx context.Context, organizationID string, version int) (*domain.MenuSnapshot, error) {
	args := m.Called(ctx, organizationID, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MenuSnapshot), args.Error(1)
}

// MockCatalogRepository is a mock implementation of CatalogRepository for testing
type MockCatalogRepository struct {
	mock.Mock
}

func (m *MockCatalogRepository) GetOrganization(ctx context.Context, id string) (*domain.Organization, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Organization), args.Error(1)
}

func (m *MockCatalogRepository) GetOrganizationBySlug(ctx context.Context, slug string) (*domain.Organization, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Organization), args.Error(1)
}

func (m *MockCatalogRepository) ListActiveOrganizationIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockCatalogRepository) VisibleCategories(ctx context.Context, organizationID string) ([]domain.Category, error) {
	args := m.Called(ctx, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Category), args.Error(1)
}

func (m *MockCatalogRepository) VisibleProducts(ctx context.Context, organizationID string) ([]domain.Product, error) {
	args := m.Called(ctx, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *MockCatalogRepository) ProductIDsByOrganization(ctx context.Context, organizationID string) ([]string, error) {
	args := m.Called(ctx, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockPriceLookup is a mock implementation of PriceLookup for testing
type MockPriceLookup struct {
	mock.Mock
}

func (m *MockPriceLookup) CurrentPrices(ctx context.Context, productIDs []string) (map[string]domain.PriceLedgerEntry, error) {
	args := m.Called(ctx, productIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.PriceLedgerEntry), args.Error(1)
}

func stubCatalog(catalogRepo *MockCatalogRepository, prices *MockPriceLookup) {
	ctx := context.Background()
	catalogRepo.On("GetOrganization", ctx, "org-1").Return(&domain.Organization{
		ID:   "org-1",
		Name: "Trattoria Roma",
		Slug: "trattoria-roma",
	}, nil)
	catalogRepo.On("VisibleCategories", ctx, "org-1").Return([]domain.Category{
		{ID: "cat-1", Name: "Pasta", Slug: "pasta", SortOrder: 1},
	}, nil)
	catalogRepo.On("VisibleProducts", ctx, "org-1").Return([]domain.Product{
		{ID: "prod-1", Name: "Carbonara"},
		{ID: "prod-2", Name: "Tiramisu"},
	}, nil)
	prices.On("CurrentPrices", ctx, []string{"prod-1", "prod-2"}).Return(map[string]domain.PriceLedgerEntry{
		"prod-1": {ProductID: "prod-1", Price: decimal.RequireFromString("12.50"), Currency: "EUR"},
	}, nil)
}

func TestCreateSnapshot(t *testing.T) {
	ctx := context.Background()
	snapshotRepo := new(MockSnapshotRepository)
	catalogRepo := new(MockCatalogRepository)
	prices := new(MockPriceLookup)
	service := New(snapshotRepo, catalogRepo, prices, nil, nil)

	stubCatalog(catalogRepo, prices)
	snapshotRepo.On("Create", ctx, "org-1", mock.AnythingOfType("domain.MenuSnapshotData"), mock.AnythingOfType("string")).
		Return(&domain.MenuSnapshot{ID: "snap-1"}, nil)

	snapshot, err := service.CreateSnapshot(ctx, "org-1")
	require.NoError(t, err)

	assert.Equal(t, 1, snapshot.Version)
	assert.Equal(t, "org-1", snapshot.OrganizationID)
	assert.Equal(t, 2, snapshot.Data.Metadata.ProductCount)
	assert.Equal(t, 1, snapshot.Data.Metadata.CategoryCount)

	// The persisted hash is the canonical hash of the captured document.
	expected, err := snapshot.Data.ComputeHash()
	require.NoError(t, err)
	assert.Equal(t, expected, snapshot.Hash)

	// prod-2 has no ledger entry: captured unpriced, not dropped.
	require.Len(t, snapshot.Data.Products, 2)
	assert.True(t, snapshot.Data.Products[1].Price.IsZero())
	assert.Empty(t, snapshot.Data.Products[1].Currency)
	assert.True(t, snapshot.Data.Products[0].Price.Equal(decimal.RequireFromString("12.50")))
}

func TestCreateSnapshot_VersionsIncrement(t *testing.T) {
	ctx := context.Background()
	snapshotRepo := new(MockSnapshotRepository)
	catalogRepo := new(MockCatalogRepository)
	prices := new(MockPriceLookup)
	service := New(snapshotRepo, catalogRepo, prices, nil, nil)

	stubCatalog(catalogRepo, prices)
	snapshotRepo.On("Create", ctx, "org-1", mock.Anything, mock.Anything).
		Return(&domain.MenuSnapshot{}, nil)

	first, err := service.CreateSnapshot(ctx, "org-1")
	require.NoError(t, err)
	second, err := service.CreateSnapshot(ctx, "org-1")
	require.NoError(t, err)

	assert.Equal(t, 1, first.Version)
	assert.Equal(t, 2, second.Version)
}

func TestCreateSnapshot_MissingOrganizationID(t *testing.T) {
	service := New(new(MockSnapshotRepository), new(MockCatalogRepository), new(MockPriceLookup), nil, nil)

	_, err := service.CreateSnapshot(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrMissingIdentifier)
}

func TestCreateSnapshot_FailsClosedOnCatalogError(t *testing.T) {
	ctx := context.Background()
	snapshotRepo := new(MockSnapshotRepository)
	catalogRepo := new(MockCatalogRepository)
	service := New(snapshotRepo, catalogRepo, new(MockPriceLookup), nil, nil)

	catalogRepo.On("GetOrganization", ctx, "org-1").Return(nil, domain.ErrOrganizationNotFound)

	_, err := service.CreateSnapshot(ctx, "org-1")
	assert.ErrorIs(t, err, domain.ErrOrganizationNotFound)
	snapshotRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyHash_Valid(t *testing.T) {
	ctx := context.Background()
	snapshotRepo := new(MockSnapshotRepository)
	service := New(snapshotRepo, new(MockCatalogRepository), new(MockPriceLookup), nil, nil)

	data := domain.MenuSnapshotData{
		Organization: domain.SnapshotOrganization{ID: "org-1", Name: "Trattoria Roma"},
		Categories:   []domain.SnapshotCategory{},
		Products:     []domain.SnapshotProduct{},
	}
	hash, err := data.ComputeHash()
	require.NoError(t, err)

	snapshotRepo.On("GetByID", ctx, "snap-1").Return(&domain.MenuSnapshot{
		ID: "snap-1", OrganizationID: "org-1", Data: data, Hash: hash, Version: 1,
	}, nil)

	verification, err := service.VerifyHash(ctx, "snap-1")
	require.NoError(t, err)
	assert.True(t, verification.IsValid)
	assert.Equal(t, hash, verification.StoredHash)
	assert.Equal(t, hash, verification.ComputedHash)
	assert.False(t, verification.VerifiedAt.IsZero())
}

func TestVerifyHash_DetectsTampering(t *testing.T) {
	ctx := context.Background()
	snapshotRepo := new(MockSnapshotRepository)
	service := New(snapshotRepo, new(MockCatalogRepository), new(MockPriceLookup), nil, nil)

	data := domain.MenuSnapshotData{
		Organization: domain.SnapshotOrganization{ID: "org-1", Name: "Trattoria Roma"},
	}
	originalHash, err := data.ComputeHash()
	require.NoError(t, err)

	// Someone edited the stored document after the fact; the recorded hash
	// no longer matches.
	tampered := data
	tampered.Organization.Name = "Trattoria Milano"

	snapshotRepo.On("GetByID", ctx, "snap-1").Return(&domain.MenuSnapshot{
		ID: "snap-1", OrganizationID: "org-1", Data: tampered, Hash: originalHash, Version: 1,
	}, nil)

	verification, err := service.VerifyHash(ctx, "snap-1")
	require.NoError(t, err, "a mismatch is a finding, not an error")
	assert.False(t, verification.IsValid)
	assert.Equal(t, originalHash, verification.StoredHash)
	assert.NotEqual(t, verification.StoredHash, verification.ComputedHash)
}

func TestSnapshotByVersion_InvalidVersion(t *testing.T) {
	service := New(new(MockSnapshotRepository), new(MockCatalogRepository), new(MockPriceLookup), nil, nil)

	_, err := service.SnapshotByVersion(context.Background(), "org-1", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidVersion)

	_, err = service.SnapshotByVersion(context.Background(), "org-1", -3)
	assert.ErrorIs(t, err, domain.ErrInvalidVersion)
}

func TestCompareSnapshots(t *testing.T) {
	ctx := context.Background()
	snapshotRepo := new(MockSnapshotRepository)
	service := New(snapshotRepo, new(MockCatalogRepository), new(MockPriceLookup), nil, nil)

	v1 := domain.MenuSnapshotData{
		Products: []domain.SnapshotProduct{{ID: "prod-1", Name: "Carbonara"}},
	}
	v2 := domain.MenuSnapshotData{
		Products: []domain.SnapshotProduct{
			{ID: "prod-1", Name: "Carbonara"},
			{ID: "prod-2", Name: "Tiramisu"},
		},
	}

	snapshotRepo.On("GetByVersion", ctx, "org-1", 1).Return(&domain.MenuSnapshot{Version: 1, Data: v1}, nil)
	snapshotRepo.On("GetByVersion", ctx, "org-1", 2).Return(&domain.MenuSnapshot{Version: 2, Data: v2}, nil)

	diff, err := service.CompareSnapshots(ctx, "org-1", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "org-1", diff.OrganizationID)
	assert.Equal(t, 1, diff.FromVersion)
	assert.Equal(t, 2, diff.ToVersion)
	assert.Equal(t, []string{"prod-2"}, diff.AddedProducts)
	assert.Empty(t, diff.RemovedProducts)
}

func TestCompareSnapshots_InvalidVersions(t *testing.T) {
	service := New(new(MockSnapshotRepository), new(MockCatalogRepository), new(MockPriceLookup), nil, nil)

	_, err := service.CompareSnapshots(context.Background(), "org-1", 0, 2)
	assert.ErrorIs(t, err, domain.ErrInvalidVersion)

	_, err = service.CompareSnapshots(context.Background(), "org-1", 1, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidVersion)
}

func TestCompareSnapshots_MissingVersion(t *testing.T) {
	ctx := context.Background()
	snapshotRepo := new(MockSnapshotRepository)
	service := New(snapshotRepo, new(MockCatalogRepository), new(MockPriceLookup), nil, nil)

	snapshotRepo.On("GetByVersion", ctx, "org-1", 1).Return(nil, domain.ErrSnapshotNotFound)

	_, err := service.CompareSnapshots(ctx, "org-1", 1, 2)
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
}

func TestExportForCompliance_IncludesFailedVerification(t *testing.T) {
	ctx := context.Background()
	snapshotRepo := new(MockSnapshotRepository)
	service := New(snapshotRepo, new(MockCatalogRepository), new(MockPriceLookup), nil, nil)

	data := domain.MenuSnapshotData{
		Organization: domain.SnapshotOrganization{ID: "org-1", Name: "Trattoria Roma"},
	}
	snapshotRepo.On("GetByID", ctx, "snap-1").Return(&domain.MenuSnapshot{
		ID:             "snap-1",
		OrganizationID: "org-1",
		Data:           data,
		Hash:           "deadbeef", // does not match the document
		Version:        3,
	}, nil)

	export, err := service.ExportForCompliance(ctx, "snap-1")
	require.NoError(t, err)

	assert.Equal(t, "snap-1", export.Snapshot.ID)
	assert.Equal(t, data, export.MenuData)
	assert.False(t, export.Verification.Verified)
	assert.NotEqual(t, "deadbeef", export.Verification.Hash)
	assert.False(t, export.ExportedAt.IsZero())
}

func TestExportForCompliance_Verified(t *testing.T) {
	ctx := context.Background()
	snapshotRepo := new(MockSnapshotRepository)
	service := New(snapshotRepo, new(MockCatalogRepository), new(MockPriceLookup), nil, nil)

	data := domain.MenuSnapshotData{
		Organization: domain.SnapshotOrganization{ID: "org-1", Name: "Trattoria Roma"},
	}
	hash, err := data.ComputeHash()
	require.NoError(t, err)

	snapshotRepo.On("GetByID", ctx, "snap-1").Return(&domain.MenuSnapshot{
		ID: "snap-1", OrganizationID: "org-1", Data: data, Hash: hash, Version: 1,
	}, nil)

	export, err := service.ExportForCompliance(ctx, "snap-1")
	require.NoError(t, err)
	assert.True(t, export.Verification.Verified)
	assert.Equal(t, hash, export.Verification.Hash)
}

func TestCurrentSnapshotBySlug(t *testing.T) {
	ctx := context.Background()
	snapshotRepo := new(MockSnapshotRepository)
	catalogRepo := new(MockCatalogRepository)
	service := New(snapshotRepo, catalogRepo, new(MockPriceLookup), nil, nil)

	catalogRepo.On("GetOrganizationBySlug", ctx, "trattoria-roma").Return(&domain.Organization{
		ID: "org-1", Slug: "trattoria-roma", IsActive: true,
	}, nil)
	snapshotRepo.On("GetCurrent", ctx, "org-1").Return(&domain.MenuSnapshot{
		ID: "snap-9", OrganizationID: "org-1", Version: 9,
	}, nil)

	snapshot, err := service.CurrentSnapshotBySlug(ctx, "trattoria-roma")
	require.NoError(t, err)
	assert.Equal(t, 9, snapshot.Version)
}

func TestCurrentSnapshotBySlug_UnknownSlug(t *testing.T) {
	ctx := context.Background()
	catalogRepo := new(MockCatalogRepository)
	service := New(new(MockSnapshotRepository), catalogRepo, new(MockPriceLookup), nil, nil)

	catalogRepo.On("GetOrganizationBySlug", ctx, "gone").Return(nil, domain.ErrOrganizationNotFound)

	_, err := service.CurrentSnapshotBySlug(ctx, "gone")
	assert.ErrorIs(t, err, domain.ErrOrganizationNotFound)
}

func TestSnapshotMetadataUsesInjectedClock(t *testing.T) {
	ctx := context.Background()
	snapshotRepo := new(MockSnapshotRepository)
	catalogRepo := new(MockCatalogRepository)
	prices := new(MockPriceLookup)
	service := New(snapshotRepo, catalogRepo, prices, nil, nil)

	fixed := time.Date(2025, 7, 15, 3, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return fixed }

	stubCatalog(catalogRepo, prices)
	snapshotRepo.On("Create", ctx, "org-1", mock.Anything, mock.Anything).
		Return(&domain.MenuSnapshot{}, nil)

	snapshot, err := service.CreateSnapshot(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, fixed, snapshot.Data.Metadata.GeneratedAt)
}
