package inventory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ShapeStrategy selects how response payloads are normalized. The canonical
// backend wraps lists in {products|items: [...]} and reports summary totals
// under canonical keys; the raw backend reports productCount,
// lowStockProducts and salesTotal. Auto detects per response.
type ShapeStrategy string

const (
	ShapeAuto      ShapeStrategy = "auto"
	ShapeCanonical ShapeStrategy = "canonical"
	ShapeRaw       ShapeStrategy = "raw"
)

// ParseShapeStrategy validates a strategy name; empty means auto.
func ParseShapeStrategy(raw string) (ShapeStrategy, error) {
	switch strategy := ShapeStrategy(strings.ToLower(strings.TrimSpace(raw))); strategy {
	case "":
		return ShapeAuto, nil
	case ShapeAuto, ShapeCanonical, ShapeRaw:
		return strategy, nil
	default:
		return "", NewValidationError("parse payload shape", fmt.Sprintf("unknown payload shape %q", raw), nil)
	}
}

type itemsEnvelope struct {
	Products    []Item `json:"products"`
	Items       []Item `json:"items"`
	Data        []Item `json:"data"`
	TotalItems  *int   `json:"totalItems"`
	TotalPages  *int   `json:"totalPages"`
	CurrentPage *int   `json:"currentPage"`
	Limit       *int   `json:"limit"`
}

// DecodeItems accepts {products: [...]}, {items: [...]}, {data: [...]} or a
// bare array, plus an optional pagination block.
func (s ShapeStrategy) DecodeItems(data []byte) (ItemPage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return ItemPage{Items: []Item{}}, nil
	}
	if data[0] == '[' {
		var items []Item
		if err := json.Unmarshal(data, &items); err != nil {
			return ItemPage{}, fmt.Errorf("inventory: decode item list: %w", err)
		}
		return ItemPage{Items: nonNilItems(items)}, nil
	}
	var env itemsEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ItemPage{}, fmt.Errorf("inventory: decode item list: %w", err)
	}
	page := ItemPage{}
	switch {
	case env.Products != nil:
		page.Items = env.Products
	case env.Items != nil:
		page.Items = env.Items
	default:
		page.Items = env.Data
	}
	page.Items = nonNilItems(page.Items)
	if env.TotalItems != nil || env.TotalPages != nil || env.CurrentPage != nil {
		p := &Pagination{Limit: DefaultPageSize}
		if env.TotalItems != nil {
			p.TotalItems = *env.TotalItems
		}
		if env.TotalPages != nil {
			p.TotalPages = *env.TotalPages
		}
		if env.CurrentPage != nil {
			p.CurrentPage = *env.CurrentPage
		}
		if env.Limit != nil && *env.Limit > 0 {
			p.Limit = *env.Limit
		}
		page.Pagination = p
	}
	return page, nil
}

// DecodeItem accepts a bare item or one wrapped in {item|product|data: {...}}.
func (s ShapeStrategy) DecodeItem(data []byte) (Item, error) {
	var env struct {
		Item    *Item `json:"item"`
		Product *Item `json:"product"`
		Data    *Item `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return Item{}, fmt.Errorf("inventory: decode item: %w", err)
	}
	switch {
	case env.Item != nil:
		return *env.Item, nil
	case env.Product != nil:
		return *env.Product, nil
	case env.Data != nil:
		return *env.Data, nil
	}
	var item Item
	if err := json.Unmarshal(data, &item); err != nil {
		return Item{}, fmt.Errorf("inventory: decode item: %w", err)
	}
	return item, nil
}

// DecodeOrders accepts {orders: [...]}, {data: [...]} or a bare array.
func (s ShapeStrategy) DecodeOrders(data []byte) ([]Order, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []Order{}, nil
	}
	var orders []Order
	if data[0] == '[' {
		if err := json.Unmarshal(data, &orders); err != nil {
			return nil, fmt.Errorf("inventory: decode orders: %w", err)
		}
		return orders, nil
	}
	var env struct {
		Orders []Order `json:"orders"`
		Data   []Order `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("inventory: decode orders: %w", err)
	}
	if env.Orders != nil {
		return env.Orders, nil
	}
	if env.Data != nil {
		return env.Data, nil
	}
	return []Order{}, nil
}

type rawSummary struct {
	ProductCount     *int              `json:"productCount"`
	LowStockProducts []json.RawMessage `json:"lowStockProducts"`
	LowStockCount    *int              `json:"lowStockCount"`
	SalesTotal       float64           `json:"salesTotal"`
	TotalQuantity    int               `json:"totalQuantity"`
	TotalValue       float64           `json:"totalValue"`
}

// DecodeSummary maps either summary shape onto DashboardSummary.
func (s ShapeStrategy) DecodeSummary(data []byte) (DashboardSummary, error) {
	strategy := s
	if strategy == "" || strategy == ShapeAuto {
		strategy = detectSummaryShape(data)
	}
	if strategy == ShapeRaw {
		var raw rawSummary
		if err := json.Unmarshal(data, &raw); err != nil {
			return DashboardSummary{}, fmt.Errorf("inventory: decode raw summary: %w", err)
		}
		return raw.toSummary(), nil
	}
	var env struct {
		DashboardSummary
		Summary *DashboardSummary `json:"summary"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return DashboardSummary{}, fmt.Errorf("inventory: decode summary: %w", err)
	}
	if env.Summary != nil {
		return *env.Summary, nil
	}
	return env.DashboardSummary, nil
}

func (r rawSummary) toSummary() DashboardSummary {
	out := DashboardSummary{
		TotalRevenue:  r.SalesTotal,
		TotalQuantity: r.TotalQuantity,
		TotalValue:    r.TotalValue,
	}
	if r.ProductCount != nil {
		out.TotalItems = *r.ProductCount
	}
	if r.LowStockCount != nil {
		out.LowStockCount = *r.LowStockCount
	} else {
		out.LowStockCount = len(r.LowStockProducts)
	}
	return out
}

func detectSummaryShape(data []byte) ShapeStrategy {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return ShapeCanonical
	}
	for _, key := range []string{"productCount", "lowStockProducts", "salesTotal"} {
		if _, ok := keys[key]; ok {
			return ShapeRaw
		}
	}
	return ShapeCanonical
}

func nonNilItems(items []Item) []Item {
	if items == nil {
		return []Item{}
	}
	return items
}
