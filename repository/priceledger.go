package repository

import (
	"context"
	"time"

	"github.com/qrmenu/backend/domain"
)

// HistoryFilter selects and orders ledger entries. Date bounds are inclusive
// and applied before pagination. Limit <= 0 means no limit.
type HistoryFilter struct {
	ProductIDs []string
	StartDate  *time.Time
	EndDate    *time.Time
	Ascending  bool
	Limit      int
	Offset     int
}

// PriceLedgerRepository persists price-change facts. The contract is
// append-only: no update or delete exists here, and the store additionally
// rejects mutation of the backing table via a trigger this code relies on
// but does not implement.
type PriceLedgerRepository interface {
	// Append inserts exactly one entry and fills its ID and CreatedAt.
	Append(ctx context.Context, entry *domain.PriceLedgerEntry) error

	// CurrentPrice reads the newest entry for a product from the
	// current-value projection. Misses yield domain.ErrPriceNotFound.
	CurrentPrice(ctx context.Context, productID string) (*domain.PriceLedgerEntry, error)

	// CurrentPrices resolves many products in one round trip. Products
	// without a recorded price are omitted from the result.
	CurrentPrices(ctx context.Context, productIDs []string) (map[string]domain.PriceLedgerEntry, error)

	// History returns the selected page plus the total count across all
	// pages for the same filter.
	History(ctx context.Context, filter HistoryFilter) ([]domain.PriceLedgerEntry, int, error)
}
