package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qrmenu/backend/domain"
	"github.com/qrmenu/backend/repository"
)

type snapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository returns a Postgres-backed SnapshotRepository.
func NewSnapshotRepository(pool *pgxpool.Pool) repository.SnapshotRepository {
	return &snapshotRepository{pool: pool}
}

func (r *snapshotRepository) Create(ctx context.Context, organizationID string, data domain.MenuSnapshotData, hash string) (*domain.MenuSnapshot, error) {
	raw, err := data.CanonicalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode snapshot data: %w", err)
	}

	// Version assignment is read-then-insert in one statement. Two
	// concurrent publishes can still pick the same version; the unique
	// (organization_id, version) index rejects the loser, which surfaces
	// as ErrVersionConflict for the caller to retry.
	const query = `
	INSERT INTO menu_snapshots (id, organization_id, snapshot_data, hash, version)
	VALUES ($1, $2, $3, $4,
		(SELECT COALESCE(MAX(version), 0) + 1 FROM menu_snapshots WHERE organization_id = $2))
	RETURNING version, created_at
	`

	snapshot := &domain.MenuSnapshot{
		ID:             uuid.NewString(),
		OrganizationID: organizationID,
		Data:           data,
		Hash:           hash,
	}

	if err := r.pool.QueryRow(ctx, query,
		snapshot.ID,
		organizationID,
		raw,
		hash,
	).Scan(&snapshot.Version, &snapshot.CreatedAt); err != nil {
		return nil, mapPgError(err)
	}

	return snapshot, nil
}

func (r *snapshotRepository) GetByID(ctx context.Context, id string) (*domain.MenuSnapshot, error) {
	const query = `
	SELECT id, organization_id, snapshot_data, hash, version, created_at
	FROM menu_snapshots
	WHERE id = $1
	`
	return scanSnapshot(r.pool.QueryRow(ctx, query, id))
}

func (r *snapshotRepository) GetCurrent(ctx context.Context, organizationID string) (*domain.MenuSnapshot, error) {
	const query = `
	SELECT id, organization_id, snapshot_data, hash, version, created_at
	FROM menu_snapshots
	WHERE organization_id = $1
	ORDER BY version DESC
	LIMIT 1
	`
	return scanSnapshot(r.pool.QueryRow(ctx, query, organizationID))
}

func (r *snapshotRepository) GetByVersion(ctx context.Context, organizationID string, version int) (*domain.MenuSnapshot, error) {
	const query = `
	SELECT id, organization_id, snapshot_data, hash, version, created_at
	FROM menu_snapshots
	WHERE organization_id = $1 AND version = $2
	`
	return scanSnapshot(r.pool.QueryRow(ctx, query, organizationID, version))
}

func scanSnapshot(row pgx.Row) (*domain.MenuSnapshot, error) {
	var snapshot domain.MenuSnapshot
	var raw []byte

	if err := row.Scan(
		&snapshot.ID,
		&snapshot.OrganizationID,
		&raw,
		&snapshot.Hash,
		&snapshot.Version,
		&snapshot.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, err
	}

	// Decode into the typed document so verification re-canonicalizes it;
	// JSONB does not preserve the stored key order or whitespace.
	if err := json.Unmarshal(raw, &snapshot.Data); err != nil {
		return nil, fmt.Errorf("decode snapshot data: %w", err)
	}

	return &snapshot, nil
}
