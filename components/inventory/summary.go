package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// FallbackFetchLimit is the page size requested from each fallback endpoint.
const FallbackFetchLimit = 1000

// SummarySource is the slice of the gateway used by the summary aggregator.
type SummarySource interface {
	DashboardSummary(ctx context.Context) (DashboardSummary, error)
	ListProducts(ctx context.Context, limit int) ([]Item, error)
	LowStockItems(ctx context.Context) ([]Item, error)
	ListOrders(ctx context.Context, limit int) ([]Order, error)
}

// SummaryService produces the dashboard totals. It asks the summary endpoint
// first and aggregates from products, low-stock items and orders only when
// that endpoint is missing.
type SummaryService struct {
	source    SummarySource
	telemetry Telemetry
}

// NewSummaryService builds the aggregator.
func NewSummaryService(source SummarySource, telemetry Telemetry) *SummaryService {
	return &SummaryService{source: source, telemetry: normalizeTelemetry(telemetry)}
}

// Summary returns the server summary, or the aggregated fallback when the
// endpoint answers NotFound. Any other failure is returned unchanged.
func (s *SummaryService) Summary(ctx context.Context) (DashboardSummary, error) {
	if s.source == nil {
		return DashboardSummary{}, errors.New("inventory: summary service requires a source")
	}
	summary, err := s.source.DashboardSummary(ctx)
	if err == nil {
		return summary, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return DashboardSummary{}, err
	}
	s.telemetry.Record(ctx, "inventory.summary.fallback", map[string]any{"reason": err.Error()})
	return s.aggregate(ctx)
}

// aggregate fetches the three fallback sources concurrently. The first
// failure cancels the others and fails the whole aggregation.
func (s *SummaryService) aggregate(ctx context.Context) (DashboardSummary, error) {
	var (
		products []Item
		lowStock []Item
		orders   []Order
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = s.source.ListProducts(gctx, FallbackFetchLimit)
		return err
	})
	g.Go(func() error {
		var err error
		lowStock, err = s.source.LowStockItems(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		orders, err = s.source.ListOrders(gctx, FallbackFetchLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return DashboardSummary{}, fmt.Errorf("inventory: aggregate summary: %w", err)
	}
	return AggregateSummary(products, lowStock, orders), nil
}

// AggregateSummary computes the totals from already fetched collections.
// Variant quantities come from the inventory record and each variant is
// valued at its own price or, when unset, the product price. Revenue counts
// delivered and completed orders.
func AggregateSummary(products []Item, lowStock []Item, orders []Order) DashboardSummary {
	totalQuantity := 0
	totalValue := decimal.Zero
	for _, product := range products {
		if !product.HasVariants() {
			qty := product.FlatQuantity()
			totalQuantity += qty
			totalValue = totalValue.Add(decimal.NewFromFloat(product.UnitPrice()).Mul(decimal.NewFromInt(int64(qty))))
			continue
		}
		for _, variant := range product.Variants {
			qty := variant.Inventory.Quantity
			totalQuantity += qty
			price := decimal.NewFromFloat(product.VariantPrice(variant))
			totalValue = totalValue.Add(price.Mul(decimal.NewFromInt(int64(qty))))
		}
	}
	revenue := decimal.Zero
	for _, order := range orders {
		if order.CountsTowardRevenue() {
			revenue = revenue.Add(decimal.NewFromFloat(order.Total))
		}
	}
	return DashboardSummary{
		TotalItems:    len(products),
		LowStockCount: len(lowStock),
		TotalQuantity: totalQuantity,
		TotalValue:    totalValue.InexactFloat64(),
		TotalRevenue:  revenue.InexactFloat64(),
	}
}

// DashboardStore keeps the last summary and its request track.
type DashboardStore struct {
	service   *SummaryService
	telemetry Telemetry

	mu      sync.Mutex
	summary *DashboardSummary
	track   requestTrack
}

// NewDashboardStore wraps service with a status track.
func NewDashboardStore(service *SummaryService, telemetry Telemetry) *DashboardStore {
	return &DashboardStore{
		service:   service,
		telemetry: normalizeTelemetry(telemetry),
		track:     newRequestTrack(),
	}
}

// Fetch loads the summary. Results of superseded requests are discarded.
func (d *DashboardStore) Fetch(ctx context.Context) (DashboardSummary, error) {
	d.mu.Lock()
	gen := d.track.begin()
	d.mu.Unlock()

	summary, err := d.service.Summary(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.track.fail(gen, err)
		d.telemetry.Record(ctx, "inventory.summary.failed", map[string]any{"error": err})
		return DashboardSummary{}, err
	}
	if d.track.succeed(gen) {
		d.summary = &summary
	}
	return summary, nil
}

// Summary returns the last loaded summary.
func (d *DashboardStore) Summary() (DashboardSummary, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.summary == nil {
		return DashboardSummary{}, false
	}
	return *d.summary, true
}

// Status returns the fetch track.
func (d *DashboardStore) Status() TrackState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.track.state()
}

// ClearError acknowledges the last failure.
func (d *DashboardStore) ClearError() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.track.clearError()
}
