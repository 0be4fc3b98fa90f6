package inventory

import (
	"cmp"
	"encoding/json"
	"slices"
	"strconv"
	"strings"

	"github.com/ettle/strcase"
)

// SortDirection orders a derived view.
type SortDirection string

const (
	SortAscending  SortDirection = "ascending"
	SortDescending SortDirection = "descending"
)

// SortConfig selects the sort key (a dotted path such as pricing.basePrice)
// and direction. An empty key leaves the order untouched.
type SortConfig struct {
	Key       string        `json:"key"`
	Direction SortDirection `json:"direction"`
}

// DefaultSort orders by name ascending.
func DefaultSort() SortConfig {
	return SortConfig{Key: "name", Direction: SortAscending}
}

// NormalizeSortKey turns a typed key such as pricing.base_price into the
// camelCase dotted path used by item payloads.
func NormalizeSortKey(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parts := strings.Split(raw, ".")
	for i, part := range parts {
		parts[i] = strcase.ToCamel(part)
	}
	return strings.Join(parts, ".")
}

// ParseSortDirection accepts the long and short direction names.
func ParseSortDirection(raw string) (SortDirection, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "asc", "ascending":
		return SortAscending, nil
	case "desc", "descending":
		return SortDescending, nil
	default:
		return "", NewValidationError("parse sort direction", "unknown sort direction "+strconv.Quote(raw), nil)
	}
}

type sortKind int

const (
	sortMissing sortKind = iota
	sortNumber
	sortString
)

type sortValue struct {
	kind sortKind
	num  float64
	str  string
}

// SortItems orders items in place by cfg. The sort is stable so ties keep
// their original relative order in both directions.
func SortItems(items []Item, cfg SortConfig) {
	key := strings.TrimSpace(cfg.Key)
	if key == "" || len(items) < 2 {
		return
	}
	path := strings.Split(key, ".")
	type keyed struct {
		item Item
		key  sortValue
	}
	entries := make([]keyed, len(items))
	for i, item := range items {
		entries[i] = keyed{item: item, key: resolveSortValue(item, path)}
	}
	slices.SortStableFunc(entries, func(a, b keyed) int {
		c := compareSortValues(a.key, b.key)
		if cfg.Direction == SortDescending {
			return -c
		}
		return c
	})
	for i := range entries {
		items[i] = entries[i].item
	}
}

// compareSortValues orders missing values first, numbers before strings,
// numbers numerically and strings case-insensitively.
func compareSortValues(a, b sortValue) int {
	if a.kind != b.kind {
		return cmp.Compare(a.kind, b.kind)
	}
	switch a.kind {
	case sortNumber:
		return cmp.Compare(a.num, b.num)
	case sortString:
		if c := strings.Compare(strings.ToLower(a.str), strings.ToLower(b.str)); c != 0 {
			return c
		}
		return strings.Compare(a.str, b.str)
	default:
		return 0
	}
}

func resolveSortValue(item Item, path []string) sortValue {
	if len(path) == 1 {
		switch path[0] {
		case "id":
			return stringSortValue(item.ID)
		case "name":
			return stringSortValue(item.Name)
		case "sku":
			return stringSortValue(item.SKU)
		case "brand":
			return stringSortValue(item.Brand)
		case "category":
			return stringSortValue(item.Category.Primary)
		case "price":
			return sortValue{kind: sortNumber, num: item.UnitPrice()}
		case "quantity":
			return sortValue{kind: sortNumber, num: float64(item.TotalQuantity())}
		}
	}
	if len(path) == 2 && path[0] == "category" {
		switch path[1] {
		case "primary":
			return stringSortValue(item.Category.Primary)
		case "secondary":
			return stringSortValue(item.Category.Secondary)
		}
	}
	return resolveGenericSortValue(item, path)
}

func stringSortValue(s string) sortValue {
	if s == "" {
		return sortValue{kind: sortMissing}
	}
	return sortValue{kind: sortString, str: s}
}

// resolveGenericSortValue walks the JSON form of the item, so any field the
// wire format exposes (including variants.0.inventory.quantity) can be used.
func resolveGenericSortValue(item Item, path []string) sortValue {
	data, err := json.Marshal(item)
	if err != nil {
		return sortValue{kind: sortMissing}
	}
	var node any
	if err := json.Unmarshal(data, &node); err != nil {
		return sortValue{kind: sortMissing}
	}
	for _, segment := range path {
		switch current := node.(type) {
		case map[string]any:
			next, ok := current[segment]
			if !ok {
				return sortValue{kind: sortMissing}
			}
			node = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(current) {
				return sortValue{kind: sortMissing}
			}
			node = current[idx]
		default:
			return sortValue{kind: sortMissing}
		}
	}
	switch v := node.(type) {
	case float64:
		return sortValue{kind: sortNumber, num: v}
	case bool:
		if v {
			return sortValue{kind: sortNumber, num: 1}
		}
		return sortValue{kind: sortNumber, num: 0}
	case string:
		return stringSortValue(v)
	default:
		return sortValue{kind: sortMissing}
	}
}
