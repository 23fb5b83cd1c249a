package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/qrmenu/backend/domain"
	"github.com/qrmenu/backend/internal/identity"
	"github.com/qrmenu/backend/repository"
)

// complianceExportLimit bounds a single export query. High enough for any
// realistic reporting period; regulators paginate by date range, not offset.
const complianceExportLimit = 10000

const defaultHistoryLimit = 50

// AppendInput carries one price-change fact to record.
type AppendInput struct {
	ProductID string
	Price     decimal.Decimal
	Reason    string
	Currency  string
}

// HistoryOptions selects a page of a price history.
type HistoryOptions struct {
	Limit     int
	Offset    int
	Ascending bool
	StartDate *time.Time
	EndDate   *time.Time
}

// Service owns the append-only price history ledger. There is deliberately
// no update or delete operation: every price change is a new append.
type Service struct {
	ledger  repository.PriceLedgerRepository
	catalog repository.CatalogRepository
	actors  identity.Resolver
	logger  *zap.Logger
}

// New creates a ledger service. The actor resolver is an injected
// capability so the service stays testable without a global session.
func New(
	ledgerRepo repository.PriceLedgerRepository,
	catalogRepo repository.CatalogRepository,
	actors identity.Resolver,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if actors == nil {
		actors = identity.ContextResolver()
	}
	return &Service{
		ledger:  ledgerRepo,
		catalog: catalogRepo,
		actors:  actors,
		logger:  logger,
	}
}

// AppendPriceEntry validates and records exactly one price-change fact.
// All validation happens before any I/O; a rejected append writes nothing.
func (s *Service) AppendPriceEntry(ctx context.Context, input AppendInput) (*domain.PriceLedgerEntry, error) {
	productID := strings.TrimSpace(input.ProductID)
	if productID == "" {
		return nil, domain.ErrMissingIdentifier
	}
	if input.Price.IsNegative() {
		return nil, domain.ErrInvalidPrice
	}

	currency := input.Currency
	if currency == "" {
		currency = domain.DefaultCurrency
	}

	// Anonymous appends are refused outright rather than recorded with a
	// blank changed_by.
	actor, ok := s.actors.CurrentActor(ctx)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}

	entry := &domain.PriceLedgerEntry{
		ProductID: productID,
		Price:     input.Price,
		Currency:  currency,
		ChangedBy: &actor,
	}
	if reason := strings.TrimSpace(input.Reason); reason != "" {
		entry.ChangeReason = &reason
	}

	if err := s.ledger.Append(ctx, entry); err != nil {
		return nil, domain.StoreFailure("failed to append price entry", err)
	}

	s.logger.Info("price entry appended",
		zap.String("product_id", productID),
		zap.String("price", entry.Price.String()),
		zap.String("changed_by", actor),
	)
	return entry, nil
}

// CurrentPrice reads the newest ledger entry for one product from the
// store's current-value projection.
func (s *Service) CurrentPrice(ctx context.Context, productID string) (*domain.PriceLedgerEntry, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, domain.ErrMissingIdentifier
	}
	entry, err := s.ledger.CurrentPrice(ctx, productID)
	if err != nil {
		return nil, domain.StoreFailure("failed to read current price", err)
	}
	return entry, nil
}

// CurrentPrices resolves many products in a single round trip. Products
// with no recorded price are omitted from the map.
func (s *Service) CurrentPrices(ctx context.Context, productIDs []string) (map[string]domain.PriceLedgerEntry, error) {
	prices, err := s.ledger.CurrentPrices(ctx, productIDs)
	if err != nil {
		return nil, domain.StoreFailure("failed to read current prices", err)
	}
	return prices, nil
}

// PriceHistory returns one ordered page of a product's history plus the
// total count independent of the page slice.
func (s *Service) PriceHistory(ctx context.Context, productID string, opts HistoryOptions) (*domain.PriceHistoryPage, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, domain.ErrMissingIdentifier
	}
	return s.history(ctx, []string{productID}, opts)
}

// OrganizationPriceHistory queries the ledger across every product the
// organization owns. Owning zero products is a valid state and yields an
// empty page.
func (s *Service) OrganizationPriceHistory(ctx context.Context, organizationID string, opts HistoryOptions) (*domain.PriceHistoryPage, error) {
	if strings.TrimSpace(organizationID) == "" {
		return nil, domain.ErrMissingIdentifier
	}

	productIDs, err := s.catalog.ProductIDsByOrganization(ctx, organizationID)
	if err != nil {
		return nil, domain.StoreFailure("failed to resolve organization products", err)
	}
	if len(productIDs) == 0 {
		return &domain.PriceHistoryPage{
			Entries: []domain.PriceLedgerEntry{},
			Limit:   normalizeLimit(opts.Limit),
			Offset:  opts.Offset,
		}, nil
	}

	return s.history(ctx, productIDs, opts)
}

func (s *Service) history(ctx context.Context, productIDs []string, opts HistoryOptions) (*domain.PriceHistoryPage, error) {
	limit := normalizeLimit(opts.Limit)
	entries, total, err := s.ledger.History(ctx, repository.HistoryFilter{
		ProductIDs: productIDs,
		StartDate:  opts.StartDate,
		EndDate:    opts.EndDate,
		Ascending:  opts.Ascending,
		Limit:      limit,
		Offset:     opts.Offset,
	})
	if err != nil {
		return nil, domain.StoreFailure("failed to query price history", err)
	}

	return &domain.PriceHistoryPage{
		Entries:    entries,
		TotalCount: total,
		Limit:      limit,
		Offset:     opts.Offset,
	}, nil
}

// PriceStatistics derives analytics from the full ascending history of one
// product. Empty history yields (nil, nil).
func (s *Service) PriceStatistics(ctx context.Context, productID string) (*domain.PriceStatistics, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, domain.ErrMissingIdentifier
	}

	entries, _, err := s.ledger.History(ctx, repository.HistoryFilter{
		ProductIDs: []string{productID},
		Ascending:  true,
	})
	if err != nil {
		return nil, domain.StoreFailure("failed to load price history", err)
	}

	return domain.ComputePriceStatistics(productID, entries), nil
}

// ExportForCompliance flattens an organization's price history for a
// regulator. An empty period is a valid, reportable state.
func (s *Service) ExportForCompliance(ctx context.Context, organizationID string, startDate, endDate *time.Time) (*domain.PriceComplianceExport, error) {
	page, err := s.OrganizationPriceHistory(ctx, organizationID, HistoryOptions{
		Limit:     complianceExportLimit,
		Ascending: true,
		StartDate: startDate,
		EndDate:   endDate,
	})
	if err != nil {
		return nil, err
	}

	records := make([]domain.PriceComplianceRecord, len(page.Entries))
	for i, entry := range page.Entries {
		records[i] = domain.PriceComplianceRecord{
			ProductID:    entry.ProductID,
			Price:        entry.Price,
			Currency:     entry.Currency,
			ChangeReason: entry.ChangeReason,
			ChangedBy:    entry.ChangedBy,
			CreatedAt:    entry.CreatedAt,
		}
	}

	export := &domain.PriceComplianceExport{
		OrganizationID: organizationID,
		DateRange:      domain.DateRange{Start: startDate, End: endDate},
		ExportedAt:     time.Now().UTC(),
		TotalEntries:   len(records),
		Entries:        records,
	}

	s.logger.Info("compliance export generated",
		zap.String("organization_id", organizationID),
		zap.Int("entries", len(records)),
	)
	return export, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	return limit
}
