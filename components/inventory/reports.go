package inventory

import (
	"bytes"
	"fmt"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// UncategorizedLabel groups items without a category.
const UncategorizedLabel = "Uncategorized"

// CategoryTotal is one row of the stock-by-category report.
type CategoryTotal struct {
	Category string `json:"category"`
	Quantity int    `json:"quantity"`
	Items    int    `json:"items"`
}

// CategoryTotals sums stock quantities per primary category, in order of
// first appearance.
func CategoryTotals(items []Item) []CategoryTotal {
	index := make(map[string]int)
	totals := []CategoryTotal{}
	for _, item := range items {
		name := item.Category.Primary
		if name == "" {
			name = UncategorizedLabel
		}
		pos, ok := index[name]
		if !ok {
			pos = len(totals)
			index[name] = pos
			totals = append(totals, CategoryTotal{Category: name})
		}
		totals[pos].Quantity += item.TotalQuantity()
		totals[pos].Items++
	}
	return totals
}

// ChartOptions customizes the rendered report chart.
type ChartOptions struct {
	Title    string
	Subtitle string
	Theme    string
	Width    string
	Height   string
}

// CategoryChart renders category totals as an ECharts bar chart.
type CategoryChart struct {
	opts  ChartOptions
	cache RenderCache
}

// NewCategoryChart builds a renderer. A nil cache renders every time.
func NewCategoryChart(options ChartOptions, cache RenderCache) *CategoryChart {
	if options.Title == "" {
		options.Title = "Stock by category"
	}
	if options.Theme == "" {
		options.Theme = types.ThemeWesteros
	}
	if options.Width == "" {
		options.Width = "900px"
	}
	if options.Height == "" {
		options.Height = "480px"
	}
	return &CategoryChart{opts: options, cache: cache}
}

// Render returns the chart HTML for totals.
func (c *CategoryChart) Render(totals []CategoryTotal) (string, error) {
	render := func() (string, error) { return c.render(totals) }
	if c.cache == nil {
		return render()
	}
	return c.cache.GetOrRender("category:"+hashKey(struct {
		Opts   ChartOptions
		Totals []CategoryTotal
	}{c.opts, totals}), render)
}

func (c *CategoryChart) render(totals []CategoryTotal) (string, error) {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: c.opts.Title, Subtitle: c.opts.Subtitle}),
		charts.WithInitializationOpts(opts.Initialization{Theme: c.opts.Theme, Width: c.opts.Width, Height: c.opts.Height}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	labels := make([]string, len(totals))
	data := make([]opts.BarData, len(totals))
	for i, total := range totals {
		labels[i] = total.Category
		data[i] = opts.BarData{Name: total.Category, Value: total.Quantity}
	}
	bar.SetXAxis(labels).AddSeries("Quantity", data)

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		return "", fmt.Errorf("inventory: render category chart: %w", err)
	}
	return buf.String(), nil
}
