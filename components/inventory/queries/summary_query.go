package queries

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-inventory/components/inventory"
)

// SummaryInput requests the dashboard totals. Cached reuses the last
// successful summary when one is held.
type SummaryInput struct {
	Cached bool `json:"cached,omitempty"`
}

type summaryService interface {
	Fetch(ctx context.Context) (inventory.DashboardSummary, error)
	Summary() (inventory.DashboardSummary, bool)
}

// SummaryQuery reads the dashboard totals through the dashboard store.
type SummaryQuery struct {
	service summaryService
}

// NewSummaryQuery builds the query.
func NewSummaryQuery(service summaryService) *SummaryQuery {
	return &SummaryQuery{service: service}
}

var _ gocommand.Querier[SummaryInput, inventory.DashboardSummary] = (*SummaryQuery)(nil)

// Query returns the dashboard totals.
func (q *SummaryQuery) Query(ctx context.Context, in SummaryInput) (inventory.DashboardSummary, error) {
	if q.service == nil {
		return inventory.DashboardSummary{}, errors.New("summary query requires service")
	}
	if in.Cached {
		if summary, ok := q.service.Summary(); ok {
			return summary, nil
		}
	}
	return q.service.Fetch(ctx)
}
