package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is applied when an append does not name a currency.
const DefaultCurrency = "USD"

// PriceLedgerEntry is one immutable price-change fact for a product.
// Entries are only ever appended; they survive deletion of the owning
// product so the audit trail stays complete.
type PriceLedgerEntry struct {
	ID           string          `json:"id"`
	ProductID    string          `json:"product_id"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	ChangeReason *string         `json:"change_reason,omitempty"`
	ChangedBy    *string         `json:"changed_by,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// PriceHistoryPage is one slice of a product's ordered price history together
// with the total row count independent of the slice.
type PriceHistoryPage struct {
	Entries    []PriceLedgerEntry `json:"entries"`
	TotalCount int                `json:"total_count"`
	Limit      int                `json:"limit"`
	Offset     int                `json:"offset"`
}

// PriceStatistics summarizes a product's full price history.
type PriceStatistics struct {
	ProductID          string          `json:"product_id"`
	ChangeCount        int             `json:"change_count"`
	MinPrice           decimal.Decimal `json:"min_price"`
	MaxPrice           decimal.Decimal `json:"max_price"`
	AveragePrice       decimal.Decimal `json:"average_price"`
	FirstPrice         decimal.Decimal `json:"first_price"`
	CurrentPrice       decimal.Decimal `json:"current_price"`
	PriceChange        decimal.Decimal `json:"price_change"`
	PriceChangePercent decimal.Decimal `json:"price_change_percent"`
}

// ComputePriceStatistics derives statistics from a history ordered oldest
// first. Returns nil when the history is empty; "no statistics" is a valid
// state, not an error.
func ComputePriceStatistics(productID string, history []PriceLedgerEntry) *PriceStatistics {
	if len(history) == 0 {
		return nil
	}

	first := history[0].Price
	current := history[len(history)-1].Price
	min := first
	max := first
	sum := decimal.Zero

	for _, entry := range history {
		if entry.Price.LessThan(min) {
			min = entry.Price
		}
		if entry.Price.GreaterThan(max) {
			max = entry.Price
		}
		sum = sum.Add(entry.Price)
	}

	change := current.Sub(first)
	percent := decimal.Zero
	if !first.IsZero() {
		percent = change.Div(first).Mul(decimal.NewFromInt(100))
	}

	return &PriceStatistics{
		ProductID:          productID,
		ChangeCount:        len(history),
		MinPrice:           min,
		MaxPrice:           max,
		AveragePrice:       sum.Div(decimal.NewFromInt(int64(len(history)))),
		FirstPrice:         first,
		CurrentPrice:       current,
		PriceChange:        change,
		PriceChangePercent: percent,
	}
}

// DateRange bounds a compliance export period. Nil ends mean unbounded.
type DateRange struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// PriceComplianceRecord is the regulator-facing flattening of a ledger entry.
// Field names are part of the export contract.
type PriceComplianceRecord struct {
	ProductID    string          `json:"product_id"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	ChangeReason *string         `json:"change_reason"`
	ChangedBy    *string         `json:"changed_by"`
	CreatedAt    time.Time       `json:"created_at"`
}

// PriceComplianceExport is an organization's price history rendered for a
// regulator. An empty period exports successfully with zero entries.
type PriceComplianceExport struct {
	OrganizationID string                  `json:"organization_id"`
	DateRange      DateRange               `json:"date_range"`
	ExportedAt     time.Time               `json:"exported_at"`
	TotalEntries   int                     `json:"total_entries"`
	Entries        []PriceComplianceRecord `json:"entries"`
}
