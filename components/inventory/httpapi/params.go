package httpapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-inventory/components/inventory"
)

// ParseViewRequest reads view controls from query parameters: search, page,
// pageSize, sort, order and the filter criteria names. Missing values fall
// back to page 1 and the default sort.
func ParseViewRequest(lookup func(string) string) (inventory.ViewRequest, error) {
	req := inventory.ViewRequest{
		Search: lookup("search"),
		Page:   1,
		Sort:   inventory.DefaultSort(),
	}
	var err error
	if req.Page, err = parseInt(lookup("page"), 1); err != nil {
		return inventory.ViewRequest{}, err
	}
	if req.PageSize, err = parseInt(lookup("pageSize"), 0); err != nil {
		return inventory.ViewRequest{}, err
	}
	if key := inventory.NormalizeSortKey(lookup("sort")); key != "" {
		req.Sort.Key = key
	}
	if req.Sort.Direction, err = inventory.ParseSortDirection(lookup("order")); err != nil {
		return inventory.ViewRequest{}, err
	}

	f := inventory.FilterCriteria{
		Category: strings.TrimSpace(lookup("category")),
		Gender:   strings.TrimSpace(lookup("gender")),
		AgeGroup: strings.TrimSpace(lookup("ageGroup")),
		Status:   inventory.VariantStatus(strings.TrimSpace(lookup("status"))),
	}
	if f.StockLevel, err = inventory.ParseStockLevel(strings.TrimSpace(lookup("stockLevel"))); err != nil {
		return inventory.ViewRequest{}, err
	}
	if raw := lookup("trackInventory"); raw != "" {
		track, err := parseBool(raw)
		if err != nil {
			return inventory.ViewRequest{}, err
		}
		f.TrackInventory = inventory.BoolPtr(track)
	}
	if f.LowStock, err = parseBool(lookup("lowStock")); err != nil {
		return inventory.ViewRequest{}, err
	}
	if f.OutOfStock, err = parseBool(lookup("outOfStock")); err != nil {
		return inventory.ViewRequest{}, err
	}
	req.Filters = f
	return req, nil
}

// ParseChangeLogFilter reads dateFrom, dateTo (YYYY-MM-DD), productId,
// changeType and user.
func ParseChangeLogFilter(lookup func(string) string) (inventory.ChangeLogFilter, error) {
	filter := inventory.ChangeLogFilter{
		ProductID:  strings.TrimSpace(lookup("productId")),
		ChangeType: inventory.ChangeType(strings.TrimSpace(lookup("changeType"))),
		User:       strings.TrimSpace(lookup("user")),
	}
	var err error
	if filter.From, err = parseDate(lookup("dateFrom")); err != nil {
		return inventory.ChangeLogFilter{}, err
	}
	if filter.To, err = parseDate(lookup("dateTo")); err != nil {
		return inventory.ChangeLogFilter{}, err
	}
	return filter, nil
}

func parseInt(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, inventory.NewValidationError("parse query", "invalid number "+strconv.Quote(raw), err)
	}
	return v, nil
}

func parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, inventory.NewValidationError("parse query", "invalid date "+strconv.Quote(raw), err)
	}
	return &t, nil
}
