package queries

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-inventory/components/inventory"
)

type itemsSource interface {
	Items() []inventory.Item
}

// LowStockInput requests low-stock alerts. Critical keeps only variants that
// are out of stock.
type LowStockInput struct {
	Critical bool `json:"critical,omitempty"`
}

// LowStockQuery flattens the catalog into low-stock alerts.
type LowStockQuery struct {
	source itemsSource
}

// NewLowStockQuery builds the query.
func NewLowStockQuery(source itemsSource) *LowStockQuery {
	return &LowStockQuery{source: source}
}

var _ gocommand.Querier[LowStockInput, []inventory.LowStockAlert] = (*LowStockQuery)(nil)

// Query returns the alerts in catalog order.
func (q *LowStockQuery) Query(_ context.Context, in LowStockInput) ([]inventory.LowStockAlert, error) {
	if q.source == nil {
		return nil, errors.New("low stock query requires source")
	}
	alerts := inventory.LowStockAlerts(q.source.Items())
	if !in.Critical {
		return alerts, nil
	}
	critical := alerts[:0]
	for _, alert := range alerts {
		if alert.Critical() {
			critical = append(critical, alert)
		}
	}
	return critical, nil
}

// CategoryReportInput requests the stock-by-category report.
type CategoryReportInput struct {
	IncludeChart bool `json:"includeChart,omitempty"`
}

// CategoryReport holds the totals and, on request, the rendered chart HTML.
type CategoryReport struct {
	Totals []inventory.CategoryTotal `json:"totals"`
	Chart  string                    `json:"chart,omitempty"`
}

type chartRenderer interface {
	Render(totals []inventory.CategoryTotal) (string, error)
}

// CategoryReportQuery sums stock per category.
type CategoryReportQuery struct {
	source itemsSource
	chart  chartRenderer
}

// NewCategoryReportQuery builds the query. A nil chart disables rendering.
func NewCategoryReportQuery(source itemsSource, chart chartRenderer) *CategoryReportQuery {
	return &CategoryReportQuery{source: source, chart: chart}
}

var _ gocommand.Querier[CategoryReportInput, CategoryReport] = (*CategoryReportQuery)(nil)

// Query builds the report.
func (q *CategoryReportQuery) Query(_ context.Context, in CategoryReportInput) (CategoryReport, error) {
	if q.source == nil {
		return CategoryReport{}, errors.New("category report query requires source")
	}
	report := CategoryReport{Totals: inventory.CategoryTotals(q.source.Items())}
	if in.IncludeChart && q.chart != nil {
		html, err := q.chart.Render(report.Totals)
		if err != nil {
			return CategoryReport{}, err
		}
		report.Chart = html
	}
	return report, nil
}
