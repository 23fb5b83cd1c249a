package snapshot

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/qrmenu/backend/domain"
	"github.com/qrmenu/backend/repository"
)

// PriceLookup is the slice of the ledger service the snapshot assembler
// needs: one batched current-price resolution.
type PriceLookup interface {
	CurrentPrices(ctx context.Context, productIDs []string) (map[string]domain.PriceLedgerEntry, error)
}

// Service owns versioned, hashed, immutable captures of an organization's
// published menu.
type Service struct {
	snapshots repository.SnapshotRepository
	catalog   repository.CatalogRepository
	prices    PriceLookup
	cache     repository.SnapshotCache
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a snapshot service. cache may be nil; reads then always hit
// the store.
func New(
	snapshotRepo repository.SnapshotRepository,
	catalogRepo repository.CatalogRepository,
	prices PriceLookup,
	cache repository.SnapshotCache,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		snapshots: snapshotRepo,
		catalog:   catalogRepo,
		prices:    prices,
		cache:     cache,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// collectMenuData materializes the organization's published menu at this
// instant: profile, visible categories in menu order, visible products, and
// each product's current ledger price. Fails closed: any read error means
// no snapshot.
func (s *Service) collectMenuData(ctx context.Context, organizationID string) (*domain.MenuSnapshotData, error) {
	org, err := s.catalog.GetOrganization(ctx, organizationID)
	if err != nil {
		return nil, domain.StoreFailure("failed to load organization", err)
	}

	categories, err := s.catalog.VisibleCategories(ctx, organizationID)
	if err != nil {
		return nil, domain.StoreFailure("failed to load categories", err)
	}

	products, err := s.catalog.VisibleProducts(ctx, organizationID)
	if err != nil {
		return nil, domain.StoreFailure("failed to load products", err)
	}

	productIDs := make([]string, len(products))
	for i, p := range products {
		productIDs[i] = p.ID
	}
	currentPrices, err := s.prices.CurrentPrices(ctx, productIDs)
	if err != nil {
		return nil, domain.StoreFailure("failed to resolve current prices", err)
	}

	data := &domain.MenuSnapshotData{
		Organization: domain.SnapshotOrganization{
			ID:       org.ID,
			Name:     org.Name,
			Slug:     org.Slug,
			LogoURL:  org.LogoURL,
			Address:  org.Address,
			Settings: org.Settings,
		},
		Categories: make([]domain.SnapshotCategory, len(categories)),
		Products:   make([]domain.SnapshotProduct, len(products)),
	}

	for i, c := range categories {
		data.Categories[i] = domain.SnapshotCategory{
			ID:        c.ID,
			Name:      c.Name,
			Slug:      c.Slug,
			ParentID:  c.ParentID,
			SortOrder: c.SortOrder,
		}
	}

	for i, p := range products {
		item := domain.SnapshotProduct{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			CategoryID:  p.CategoryID,
			ImageURL:    p.ImageURL,
			Allergens:   p.Allergens,
			Nutrition:   p.Nutrition,
		}
		// A product that never had a price appears with a zero price and
		// no currency; the menu renderer treats that as "unpriced".
		if price, ok := currentPrices[p.ID]; ok {
			item.Price = price.Price
			item.Currency = price.Currency
		}
		data.Products[i] = item
	}

	data.Metadata = domain.SnapshotMetadata{
		GeneratedAt:   s.now(),
		CategoryCount: len(categories),
		ProductCount:  len(products),
	}

	return data, nil
}

// CreateSnapshot captures, hashes and persists the organization's menu at
// the next version (starting at 1). Concurrent publishes for the same
// organization can collide on the version; the store's unique constraint
// rejects the loser as domain.ErrVersionConflict and the caller retries.
func (s *Service) CreateSnapshot(ctx context.Context, organizationID string) (*domain.MenuSnapshot, error) {
	if strings.TrimSpace(organizationID) == "" {
		return nil, domain.ErrMissingIdentifier
	}

	data, err := s.collectMenuData(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	hash, err := data.ComputeHash()
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "failed to hash snapshot data", err)
	}

	snapshot, err := s.snapshots.Create(ctx, organizationID, *data, hash)
	if err != nil {
		return nil, domain.StoreFailure("failed to create snapshot", err)
	}

	if s.cache != nil {
		if err := s.cache.InvalidateCurrent(ctx, organizationID); err != nil {
			s.logger.Warn("failed to invalidate current snapshot cache", zap.Error(err))
		}
		if err := s.cache.Set(ctx, snapshot); err != nil {
			s.logger.Warn("failed to cache snapshot", zap.Error(err))
		}
	}

	s.logger.Info("menu snapshot created",
		zap.String("organization_id", organizationID),
		zap.Int("version", snapshot.Version),
		zap.String("hash", snapshot.Hash),
	)
	return snapshot, nil
}

// CurrentSnapshot returns the highest-version snapshot for an organization.
func (s *Service) CurrentSnapshot(ctx context.Context, organizationID string) (*domain.MenuSnapshot, error) {
	if strings.TrimSpace(organizationID) == "" {
		return nil, domain.ErrMissingIdentifier
	}

	if s.cache != nil {
		if cached, err := s.cache.GetCurrent(ctx, organizationID); err == nil && cached != nil {
			return cached, nil
		} else if err != nil {
			s.logger.Warn("snapshot cache read failed", zap.Error(err))
		}
	}

	snapshot, err := s.snapshots.GetCurrent(ctx, organizationID)
	if err != nil {
		return nil, domain.StoreFailure("failed to load current snapshot", err)
	}

	if s.cache != nil {
		if err := s.cache.SetCurrent(ctx, snapshot); err != nil {
			s.logger.Warn("failed to cache current snapshot", zap.Error(err))
		}
	}
	return snapshot, nil
}

// CurrentSnapshotBySlug resolves an active organization by its public slug
// and returns its current snapshot. Inactive or unknown slugs are NotFound.
func (s *Service) CurrentSnapshotBySlug(ctx context.Context, slug string) (*domain.MenuSnapshot, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, domain.ErrMissingIdentifier
	}
	org, err := s.catalog.GetOrganizationBySlug(ctx, slug)
	if err != nil {
		return nil, domain.StoreFailure("failed to resolve organization slug", err)
	}
	return s.CurrentSnapshot(ctx, org.ID)
}

// SnapshotByID returns one snapshot by its id.
func (s *Service) SnapshotByID(ctx context.Context, id string) (*domain.MenuSnapshot, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrMissingIdentifier
	}

	if s.cache != nil {
		if cached, err := s.cache.GetByID(ctx, id); err == nil && cached != nil {
			return cached, nil
		} else if err != nil {
			s.logger.Warn("snapshot cache read failed", zap.Error(err))
		}
	}

	snapshot, err := s.snapshots.GetByID(ctx, id)
	if err != nil {
		return nil, domain.StoreFailure("failed to load snapshot", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, snapshot); err != nil {
			s.logger.Warn("failed to cache snapshot", zap.Error(err))
		}
	}
	return snapshot, nil
}

// SnapshotByVersion returns one historical version of an organization's menu.
func (s *Service) SnapshotByVersion(ctx context.Context, organizationID string, version int) (*domain.MenuSnapshot, error) {
	if strings.TrimSpace(organizationID) == "" {
		return nil, domain.ErrMissingIdentifier
	}
	if version < 1 {
		return nil, domain.ErrInvalidVersion
	}

	snapshot, err := s.snapshots.GetByVersion(ctx, organizationID, version)
	if err != nil {
		return nil, domain.StoreFailure("failed to load snapshot version", err)
	}
	return snapshot, nil
}

// VerifyHash recomputes the hash of a stored snapshot document and reports
// whether it still matches the hash recorded at creation. A mismatch means
// the document was modified out of band; it is reported as data, never as
// an error. Always reads the store directly, bypassing the cache.
func (s *Service) VerifyHash(ctx context.Context, snapshotID string) (*domain.SnapshotVerification, error) {
	if strings.TrimSpace(snapshotID) == "" {
		return nil, domain.ErrMissingIdentifier
	}

	snapshot, err := s.snapshots.GetByID(ctx, snapshotID)
	if err != nil {
		return nil, domain.StoreFailure("failed to load snapshot", err)
	}

	computed, err := snapshot.Data.ComputeHash()
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "failed to recompute snapshot hash", err)
	}

	verification := &domain.SnapshotVerification{
		SnapshotID:   snapshot.ID,
		StoredHash:   snapshot.Hash,
		ComputedHash: computed,
		IsValid:      computed == snapshot.Hash,
		VerifiedAt:   s.now(),
	}

	if !verification.IsValid {
		s.logger.Warn("snapshot hash mismatch detected",
			zap.String("snapshot_id", snapshot.ID),
			zap.String("stored_hash", snapshot.Hash),
			zap.String("computed_hash", computed),
		)
	}
	return verification, nil
}

// CompareSnapshots reports the product and category ids added and removed
// between two versions of an organization's menu.
func (s *Service) CompareSnapshots(ctx context.Context, organizationID string, versionA, versionB int) (*domain.SnapshotDiff, error) {
	if strings.TrimSpace(organizationID) == "" {
		return nil, domain.ErrMissingIdentifier
	}
	if versionA < 1 || versionB < 1 {
		return nil, domain.ErrInvalidVersion
	}

	from, err := s.snapshots.GetByVersion(ctx, organizationID, versionA)
	if err != nil {
		return nil, domain.StoreFailure("failed to load base snapshot", err)
	}
	to, err := s.snapshots.GetByVersion(ctx, organizationID, versionB)
	if err != nil {
		return nil, domain.StoreFailure("failed to load target snapshot", err)
	}

	diff := domain.DiffSnapshotData(from.Data, to.Data)
	diff.OrganizationID = organizationID
	diff.FromVersion = versionA
	diff.ToVersion = versionB
	return &diff, nil
}

// ExportForCompliance bundles a snapshot with its document and a fresh
// integrity verification. A failed verification is a reportable finding,
// so the export succeeds either way.
func (s *Service) ExportForCompliance(ctx context.Context, snapshotID string) (*domain.SnapshotComplianceExport, error) {
	if strings.TrimSpace(snapshotID) == "" {
		return nil, domain.ErrMissingIdentifier
	}

	snapshot, err := s.snapshots.GetByID(ctx, snapshotID)
	if err != nil {
		return nil, domain.StoreFailure("failed to load snapshot", err)
	}

	verification, err := s.VerifyHash(ctx, snapshotID)
	if err != nil {
		return nil, err
	}

	return &domain.SnapshotComplianceExport{
		Snapshot: *snapshot,
		MenuData: snapshot.Data,
		Verification: domain.SnapshotExportVerification{
			Hash:       verification.ComputedHash,
			Verified:   verification.IsValid,
			VerifiedAt: verification.VerifiedAt,
		},
		ExportedAt: s.now(),
	}, nil
}
