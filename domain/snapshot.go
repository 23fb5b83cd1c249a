package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// MenuSnapshot is an immutable, versioned capture of an organization's
// published menu. Versions are gapless per organization, starting at 1.
type MenuSnapshot struct {
	ID             string           `json:"id"`
	OrganizationID string           `json:"organization_id"`
	Data           MenuSnapshotData `json:"snapshot_data"`
	Hash           string           `json:"hash"`
	Version        int              `json:"version"`
	CreatedAt      time.Time        `json:"created_at"`
}

// MenuSnapshotData is the document captured and hashed. Its canonical byte
// form is the JSON encoding of this struct: field order is fixed at compile
// time and encoding/json sorts map keys, so the encoding is deterministic
// across hosts and runs.
type MenuSnapshotData struct {
	Organization SnapshotOrganization `json:"organization"`
	Categories   []SnapshotCategory   `json:"categories"`
	Products     []SnapshotProduct    `json:"products"`
	Metadata     SnapshotMetadata     `json:"metadata"`
}

// SnapshotOrganization is the organization block inside a snapshot document.
type SnapshotOrganization struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Slug     string         `json:"slug"`
	LogoURL  string         `json:"logo_url"`
	Address  string         `json:"address"`
	Settings map[string]any `json:"settings"`
}

// SnapshotCategory is one visible category at capture time, in menu order.
type SnapshotCategory struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Slug      string  `json:"slug"`
	ParentID  *string `json:"parent_id"`
	SortOrder int     `json:"sort_order"`
}

// SnapshotProduct is one visible product with its price resolved from the
// ledger's current-value projection at capture time.
type SnapshotProduct struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	CategoryID  *string         `json:"category_id"`
	ImageURL    string          `json:"image_url"`
	Allergens   []string        `json:"allergens"`
	Nutrition   map[string]any  `json:"nutrition"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
}

// SnapshotMetadata records when the document was assembled and what it holds.
type SnapshotMetadata struct {
	GeneratedAt   time.Time `json:"generated_at"`
	CategoryCount int       `json:"category_count"`
	ProductCount  int       `json:"product_count"`
}

// CanonicalJSON returns the deterministic byte encoding used for hashing
// and storage.
func (d MenuSnapshotData) CanonicalJSON() ([]byte, error) {
	return json.Marshal(d)
}

// ComputeHash digests the canonical encoding with SHA-256 and returns the
// lowercase 64-character hex string. Pure computation: identical logical
// content always hashes identically.
func (d MenuSnapshotData) ComputeHash() (string, error) {
	raw, err := d.CanonicalJSON()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// SnapshotVerification reports whether a stored snapshot's document still
// matches its hash. A mismatch is a finding, not an error.
type SnapshotVerification struct {
	SnapshotID   string    `json:"snapshot_id"`
	StoredHash   string    `json:"stored_hash"`
	ComputedHash string    `json:"computed_hash"`
	IsValid      bool      `json:"is_valid"`
	VerifiedAt   time.Time `json:"verified_at"`
}

// SnapshotDiff lists the product and category ids that changed between two
// versions of an organization's menu.
type SnapshotDiff struct {
	OrganizationID    string   `json:"organization_id"`
	FromVersion       int      `json:"from_version"`
	ToVersion         int      `json:"to_version"`
	AddedProducts     []string `json:"added_products"`
	RemovedProducts   []string `json:"removed_products"`
	AddedCategories   []string `json:"added_categories"`
	RemovedCategories []string `json:"removed_categories"`
}

// DiffSnapshotData computes the id-set difference between two snapshot
// documents. No field-level diffing, only presence.
func DiffSnapshotData(from, to MenuSnapshotData) SnapshotDiff {
	fromProducts := make(map[string]struct{}, len(from.Products))
	for _, p := range from.Products {
		fromProducts[p.ID] = struct{}{}
	}
	toProducts := make(map[string]struct{}, len(to.Products))
	for _, p := range to.Products {
		toProducts[p.ID] = struct{}{}
	}

	fromCategories := make(map[string]struct{}, len(from.Categories))
	for _, c := range from.Categories {
		fromCategories[c.ID] = struct{}{}
	}
	toCategories := make(map[string]struct{}, len(to.Categories))
	for _, c := range to.Categories {
		toCategories[c.ID] = struct{}{}
	}

	diff := SnapshotDiff{
		AddedProducts:     []string{},
		RemovedProducts:   []string{},
		AddedCategories:   []string{},
		RemovedCategories: []string{},
	}

	for _, p := range to.Products {
		if _, ok := fromProducts[p.ID]; !ok {
			diff.AddedProducts = append(diff.AddedProducts, p.ID)
		}
	}
	for _, p := range from.Products {
		if _, ok := toProducts[p.ID]; !ok {
			diff.RemovedProducts = append(diff.RemovedProducts, p.ID)
		}
	}
	for _, c := range to.Categories {
		if _, ok := fromCategories[c.ID]; !ok {
			diff.AddedCategories = append(diff.AddedCategories, c.ID)
		}
	}
	for _, c := range from.Categories {
		if _, ok := toCategories[c.ID]; !ok {
			diff.RemovedCategories = append(diff.RemovedCategories, c.ID)
		}
	}

	return diff
}

// SnapshotExportVerification is the verification block embedded in a
// compliance export. Field names are part of the export contract.
type SnapshotExportVerification struct {
	Hash       string    `json:"hash"`
	Verified   bool      `json:"verified"`
	VerifiedAt time.Time `json:"verified_at"`
}

// SnapshotComplianceExport bundles a snapshot, its decoded document and an
// integrity check for a regulator. It is produced even when verification
// fails; detected tampering is exactly what the export exists to report.
type SnapshotComplianceExport struct {
	Snapshot     MenuSnapshot               `json:"snapshot"`
	MenuData     MenuSnapshotData           `json:"menu_data"`
	Verification SnapshotExportVerification `json:"verification"`
	ExportedAt   time.Time                  `json:"exported_at"`
}
