package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qrmenu/backend/domain"
	"github.com/qrmenu/backend/repository"
)

type catalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a read-only view over the catalog tables
// owned by the menu CRUD layer.
func NewCatalogRepository(pool *pgxpool.Pool) repository.CatalogRepository {
	return &catalogRepository{pool: pool}
}

func (r *catalogRepository) GetOrganization(ctx context.Context, id string) (*domain.Organization, error) {
	const query = `
	SELECT id, name, slug, logo_url, address, settings, is_active, created_at, updated_at
	FROM organizations
	WHERE id = $1
	`
	return scanOrganization(r.pool.QueryRow(ctx, query, id))
}

func (r *catalogRepository) GetOrganizationBySlug(ctx context.Context, slug string) (*domain.Organization, error) {
	const query = `
	SELECT id, name, slug, logo_url, address, settings, is_active, created_at, updated_at
	FROM organizations
	WHERE slug = $1 AND is_active
	`
	return scanOrganization(r.pool.QueryRow(ctx, query, slug))
}

func (r *catalogRepository) ListActiveOrganizationIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT id FROM organizations WHERE is_active ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *catalogRepository) VisibleCategories(ctx context.Context, organizationID string) ([]domain.Category, error) {
	const query = `
	SELECT id, organization_id, name, slug, parent_id, sort_order, is_visible
	FROM categories
	WHERE organization_id = $1 AND is_visible
	ORDER BY sort_order, name
	`
	rows, err := r.pool.Query(ctx, query, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(
			&c.ID,
			&c.OrganizationID,
			&c.Name,
			&c.Slug,
			&c.ParentID,
			&c.SortOrder,
			&c.IsVisible,
		); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *catalogRepository) VisibleProducts(ctx context.Context, organizationID string) ([]domain.Product, error) {
	const query = `
	SELECT id, organization_id, category_id, name, description, image_url, allergens, nutrition, is_visible
	FROM products
	WHERE organization_id = $1 AND is_visible
	ORDER BY name
	`
	rows, err := r.pool.Query(ctx, query, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		var nutrition []byte
		if err := rows.Scan(
			&p.ID,
			&p.OrganizationID,
			&p.CategoryID,
			&p.Name,
			&p.Description,
			&p.ImageURL,
			&p.Allergens,
			&nutrition,
			&p.IsVisible,
		); err != nil {
			return nil, err
		}
		p.Nutrition = unmarshalMap(nutrition)
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *catalogRepository) ProductIDsByOrganization(ctx context.Context, organizationID string) ([]string, error) {
	const query = `SELECT id FROM products WHERE organization_id = $1`
	rows, err := r.pool.Query(ctx, query, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanOrganization(row pgx.Row) (*domain.Organization, error) {
	var org domain.Organization
	var settings []byte

	if err := row.Scan(
		&org.ID,
		&org.Name,
		&org.Slug,
		&org.LogoURL,
		&org.Address,
		&settings,
		&org.IsActive,
		&org.CreatedAt,
		&org.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrganizationNotFound
		}
		return nil, err
	}

	org.Settings = unmarshalMap(settings)
	return &org, nil
}
