package domain

import "time"

// Catalog entities are owned by the menu CRUD layer. This core only reads
// them when assembling snapshots and resolving an organization's products.

// Organization represents a tenant restaurant.
type Organization struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Slug      string         `json:"slug"`
	LogoURL   string         `json:"logo_url,omitempty"`
	Address   string         `json:"address,omitempty"`
	Settings  map[string]any `json:"settings,omitempty"`
	IsActive  bool           `json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Category is a menu section.
type Category struct {
	ID             string  `json:"id"`
	OrganizationID string  `json:"organization_id"`
	Name           string  `json:"name"`
	Slug           string  `json:"slug"`
	ParentID       *string `json:"parent_id,omitempty"`
	SortOrder      int     `json:"sort_order"`
	IsVisible      bool    `json:"is_visible"`
}

// Product is a menu item. Its price lives in the price ledger, not here.
type Product struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organization_id"`
	CategoryID     *string        `json:"category_id,omitempty"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	ImageURL       string         `json:"image_url,omitempty"`
	Allergens      []string       `json:"allergens,omitempty"`
	Nutrition      map[string]any `json:"nutrition,omitempty"`
	IsVisible      bool           `json:"is_visible"`
}
