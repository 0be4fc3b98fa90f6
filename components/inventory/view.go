package inventory

import "strings"

// DefaultPageSize is used when a view request carries no positive page size.
const DefaultPageSize = 10

// ViewRequest holds the view controls applied to a catalog snapshot.
type ViewRequest struct {
	Search   string         `json:"search,omitempty"`
	Filters  FilterCriteria `json:"filters"`
	Sort     SortConfig     `json:"sort"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize,omitempty"`
}

// ViewResult is one page of the derived view plus its totals.
type ViewResult struct {
	Items      []Item `json:"items"`
	TotalItems int    `json:"totalItems"`
	TotalPages int    `json:"totalPages"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
}

// Derive applies search, filters, a stable sort and pagination, in that
// order. It never mutates items. Pages are 1-based and an out of range page
// yields an empty slice; the page is not clamped.
func Derive(items []Item, req ViewRequest) ViewResult {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	matched := FilterItems(SearchItems(items, req.Search), req.Filters)
	SortItems(matched, req.Sort)
	return ViewResult{
		Items:      cloneItems(Paginate(matched, req.Page, pageSize)),
		TotalItems: len(matched),
		TotalPages: TotalPages(len(matched), pageSize),
		Page:       req.Page,
		PageSize:   pageSize,
	}
}

// SearchItems keeps items whose name or sku contains the query,
// case-insensitively. The query is matched as typed, surrounding spaces
// included; an empty query keeps everything. The result is a new slice.
func SearchItems(items []Item, query string) []Item {
	query = strings.ToLower(query)
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if query == "" ||
			strings.Contains(strings.ToLower(item.Name), query) ||
			strings.Contains(strings.ToLower(item.SKU), query) {
			out = append(out, item)
		}
	}
	return out
}

// Paginate returns the 1-based page of items.
func Paginate(items []Item, page, pageSize int) []Item {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page < 1 {
		return []Item{}
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []Item{}
	}
	end := min(start+pageSize, len(items))
	return items[start:end]
}

// TotalPages returns ceil(total / pageSize).
func TotalPages(total, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if total <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
