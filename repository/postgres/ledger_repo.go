package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/qrmenu/backend/domain"
	"github.com/qrmenu/backend/repository"
)

type ledgerRepository struct {
	pool *pgxpool.Pool
}

// NewPriceLedgerRepository returns a Postgres-backed PriceLedgerRepository.
func NewPriceLedgerRepository(pool *pgxpool.Pool) repository.PriceLedgerRepository {
	return &ledgerRepository{pool: pool}
}

func (r *ledgerRepository) Append(ctx context.Context, entry *domain.PriceLedgerEntry) error {
	if entry == nil {
		return domain.ErrMissingIdentifier
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO price_ledger (id, product_id, price, currency, change_reason, changed_by)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING created_at
	`

	if err := r.pool.QueryRow(ctx, query,
		entry.ID,
		entry.ProductID,
		entry.Price.String(),
		entry.Currency,
		nullString(entry.ChangeReason),
		nullString(entry.ChangedBy),
	).Scan(&entry.CreatedAt); err != nil {
		return mapPgError(err)
	}

	return nil
}

func (r *ledgerRepository) CurrentPrice(ctx context.Context, productID string) (*domain.PriceLedgerEntry, error) {
	const query = `
	SELECT id, product_id, price::text, currency, change_reason, changed_by, created_at
	FROM current_prices
	WHERE product_id = $1
	`
	row := r.pool.QueryRow(ctx, query, productID)
	entry, err := scanLedgerEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPriceNotFound
		}
		return nil, err
	}
	return entry, nil
}

func (r *ledgerRepository) CurrentPrices(ctx context.Context, productIDs []string) (map[string]domain.PriceLedgerEntry, error) {
	prices := make(map[string]domain.PriceLedgerEntry, len(productIDs))
	if len(productIDs) == 0 {
		return prices, nil
	}

	const query = `
	SELECT id, product_id, price::text, currency, change_reason, changed_by, created_at
	FROM current_prices
	WHERE product_id = ANY($1)
	`
	rows, err := r.pool.Query(ctx, query, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		prices[entry.ProductID] = *entry
	}
	return prices, rows.Err()
}

func (r *ledgerRepository) History(ctx context.Context, filter repository.HistoryFilter) ([]domain.PriceLedgerEntry, int, error) {
	if len(filter.ProductIDs) == 0 {
		return []domain.PriceLedgerEntry{}, 0, nil
	}

	direction := "DESC"
	if filter.Ascending {
		direction = "ASC"
	}

	// seq breaks created_at ties in insertion order.
	query := fmt.Sprintf(`
	SELECT id, product_id, price::text, currency, change_reason, changed_by, created_at,
	       COUNT(*) OVER() AS total_count
	FROM price_ledger
	WHERE product_id = ANY($1)
	  AND ($2::timestamptz IS NULL OR created_at >= $2)
	  AND ($3::timestamptz IS NULL OR created_at <= $3)
	ORDER BY created_at %s, seq %s
	LIMIT NULLIF($4, 0) OFFSET $5
	`, direction, direction)

	rows, err := r.pool.Query(ctx, query,
		filter.ProductIDs,
		nullTimePtr(filter.StartDate),
		nullTimePtr(filter.EndDate),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := []domain.PriceLedgerEntry{}
	total := 0
	for rows.Next() {
		entry, count, err := scanLedgerEntryWithCount(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, *entry)
		total = count
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// An empty page past the end still needs the real total.
	if len(entries) == 0 && filter.Offset > 0 {
		total, err = r.countHistory(ctx, filter)
		if err != nil {
			return nil, 0, err
		}
	}
	return entries, total, nil
}

func (r *ledgerRepository) countHistory(ctx context.Context, filter repository.HistoryFilter) (int, error) {
	const query = `
	SELECT COUNT(*)
	FROM price_ledger
	WHERE product_id = ANY($1)
	  AND ($2::timestamptz IS NULL OR created_at >= $2)
	  AND ($3::timestamptz IS NULL OR created_at <= $3)
	`
	var total int
	err := r.pool.QueryRow(ctx, query,
		filter.ProductIDs,
		nullTimePtr(filter.StartDate),
		nullTimePtr(filter.EndDate),
	).Scan(&total)
	return total, err
}

func scanLedgerEntry(row interface {
	Scan(dest ...interface{}) error
}) (*domain.PriceLedgerEntry, error) {
	var entry domain.PriceLedgerEntry
	var priceText string

	if err := row.Scan(
		&entry.ID,
		&entry.ProductID,
		&priceText,
		&entry.Currency,
		&entry.ChangeReason,
		&entry.ChangedBy,
		&entry.CreatedAt,
	); err != nil {
		return nil, err
	}

	price, err := decimal.NewFromString(priceText)
	if err != nil {
		return nil, fmt.Errorf("parse stored price %q: %w", priceText, err)
	}
	entry.Price = price
	return &entry, nil
}

func scanLedgerEntryWithCount(rows pgx.Rows) (*domain.PriceLedgerEntry, int, error) {
	var entry domain.PriceLedgerEntry
	var priceText string
	var total int

	if err := rows.Scan(
		&entry.ID,
		&entry.ProductID,
		&priceText,
		&entry.Currency,
		&entry.ChangeReason,
		&entry.ChangedBy,
		&entry.CreatedAt,
		&total,
	); err != nil {
		return nil, 0, err
	}

	price, err := decimal.NewFromString(priceText)
	if err != nil {
		return nil, 0, fmt.Errorf("parse stored price %q: %w", priceText, err)
	}
	entry.Price = price
	return &entry, total, nil
}

func nullTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
