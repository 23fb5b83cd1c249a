package repository

import (
	"context"

	"github.com/qrmenu/backend/domain"
)

// SnapshotRepository persists menu snapshots. Append-only, same trigger-backed
// non-mutation contract as the price ledger.
type SnapshotRepository interface {
	// Create inserts a snapshot at the next free version for the
	// organization (starting at 1). A concurrent publish claiming the same
	// version surfaces as domain.ErrVersionConflict; retrying is the
	// caller's responsibility.
	Create(ctx context.Context, organizationID string, data domain.MenuSnapshotData, hash string) (*domain.MenuSnapshot, error)

	GetByID(ctx context.Context, id string) (*domain.MenuSnapshot, error)

	// GetCurrent returns the highest-version snapshot for the organization.
	GetCurrent(ctx context.Context, organizationID string) (*domain.MenuSnapshot, error)

	GetByVersion(ctx context.Context, organizationID string, version int) (*domain.MenuSnapshot, error)
}

// SnapshotCache is a read-through cache for immutable snapshots. Lookups
// return (nil, nil) on miss; callers fall back to the store. The ledger's
// current-price projection is never cached.
type SnapshotCache interface {
	GetByID(ctx context.Context, id string) (*domain.MenuSnapshot, error)
	Set(ctx context.Context, snapshot *domain.MenuSnapshot) error

	GetCurrent(ctx context.Context, organizationID string) (*domain.MenuSnapshot, error)
	SetCurrent(ctx context.Context, snapshot *domain.MenuSnapshot) error

	// InvalidateCurrent drops the cached current pointer after a publish.
	InvalidateCurrent(ctx context.Context, organizationID string) error
}
