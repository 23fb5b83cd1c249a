package repository

import (
	"context"

	"github.com/qrmenu/backend/domain"
)

// CatalogRepository reads menu catalog data owned by the CRUD layer. This
// core never writes through it.
type CatalogRepository interface {
	// GetOrganization returns domain.ErrOrganizationNotFound on a miss.
	GetOrganization(ctx context.Context, id string) (*domain.Organization, error)

	// GetOrganizationBySlug resolves an active organization only; inactive
	// or absent slugs yield domain.ErrOrganizationNotFound.
	GetOrganizationBySlug(ctx context.Context, slug string) (*domain.Organization, error)

	// ListActiveOrganizationIDs feeds the snapshot scheduler.
	ListActiveOrganizationIDs(ctx context.Context) ([]string, error)

	// VisibleCategories returns an organization's visible categories in
	// menu order (sort order, then name).
	VisibleCategories(ctx context.Context, organizationID string) ([]domain.Category, error)

	VisibleProducts(ctx context.Context, organizationID string) ([]domain.Product, error)

	// ProductIDsByOrganization returns every product id the organization
	// owns, visible or not; history queries cover the whole catalog.
	ProductIDsByOrganization(ctx context.Context, organizationID string) ([]string, error)
}
