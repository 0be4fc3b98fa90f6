package inventory

import "fmt"

// StockLevel buckets a variant quantity.
type StockLevel string

const (
	StockHigh   StockLevel = "high"
	StockMedium StockLevel = "medium"
	StockLow    StockLevel = "low"
	StockZero   StockLevel = "zero"
)

// ParseStockLevel validates a bucket name. The empty string means no filter.
func ParseStockLevel(raw string) (StockLevel, error) {
	switch level := StockLevel(raw); level {
	case "", StockHigh, StockMedium, StockLow, StockZero:
		return level, nil
	default:
		return "", NewValidationError("parse stock level", fmt.Sprintf("unknown stock level %q", raw), nil)
	}
}

// StockLevelFor returns the bucket of a quantity: high >50, medium 11..50,
// low 1..10, zero otherwise.
func StockLevelFor(quantity int) StockLevel {
	switch {
	case quantity > 50:
		return StockHigh
	case quantity >= 11:
		return StockMedium
	case quantity >= 1:
		return StockLow
	default:
		return StockZero
	}
}

// FilterCriteria narrows the catalog. Category, Gender and AgeGroup are
// item-level; the remaining fields are evaluated per variant and an item
// passes when at least one variant satisfies all of them.
type FilterCriteria struct {
	Category       string        `json:"category,omitempty"`
	Gender         string        `json:"gender,omitempty"`
	AgeGroup       string        `json:"ageGroup,omitempty"`
	Status         VariantStatus `json:"status,omitempty"`
	StockLevel     StockLevel    `json:"stockLevel,omitempty"`
	TrackInventory *bool         `json:"trackInventory,omitempty"`
	LowStock       bool          `json:"lowStock,omitempty"`
	OutOfStock     bool          `json:"outOfStock,omitempty"`
}

// ActiveCount reports how many criteria are set.
func (f FilterCriteria) ActiveCount() int {
	count := 0
	for _, set := range []bool{
		f.Category != "",
		f.Gender != "",
		f.AgeGroup != "",
		f.Status != "",
		f.StockLevel != "",
		f.TrackInventory != nil,
		f.LowStock,
		f.OutOfStock,
	} {
		if set {
			count++
		}
	}
	return count
}

// IsEmpty reports whether no criterion is set.
func (f FilterCriteria) IsEmpty() bool {
	return f.ActiveCount() == 0
}

func (f FilterCriteria) hasVariantCriteria() bool {
	return f.Status != "" || f.StockLevel != "" || f.TrackInventory != nil || f.LowStock || f.OutOfStock
}

// Matches reports whether the item passes every criterion. Items without
// variants never pass a variant-level criterion.
func (f FilterCriteria) Matches(item Item) bool {
	if f.Category != "" && item.Category.Primary != f.Category {
		return false
	}
	if f.Gender != "" && item.Gender != f.Gender {
		return false
	}
	if f.AgeGroup != "" && item.AgeGroup != f.AgeGroup {
		return false
	}
	if !f.hasVariantCriteria() {
		return true
	}
	for _, v := range item.Variants {
		if f.MatchesVariant(v) {
			return true
		}
	}
	return false
}

// MatchesVariant evaluates the variant-level criteria against one variant.
func (f FilterCriteria) MatchesVariant(v Variant) bool {
	if f.Status != "" && v.Status != f.Status {
		return false
	}
	if f.StockLevel != "" && StockLevelFor(v.Inventory.Quantity) != f.StockLevel {
		return false
	}
	if f.TrackInventory != nil && v.Inventory.TrackInventory != *f.TrackInventory {
		return false
	}
	if f.LowStock && !v.Inventory.IsLowStock() {
		return false
	}
	if f.OutOfStock && !(v.Inventory.Quantity <= 0 || v.Status == VariantOutOfStock) {
		return false
	}
	return true
}

// MatchingVariants returns the indexes of variants that satisfy the
// variant-level criteria.
func MatchingVariants(item Item, f FilterCriteria) []int {
	out := make([]int, 0, len(item.Variants))
	for i, v := range item.Variants {
		if f.MatchesVariant(v) {
			out = append(out, i)
		}
	}
	return out
}

// FilterItems returns the items that match f, preserving order.
func FilterItems(items []Item, f FilterCriteria) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if f.Matches(item) {
			out = append(out, item)
		}
	}
	return out
}

// BoolPtr is a helper for the tri-state TrackInventory criterion.
func BoolPtr(v bool) *bool {
	return &v
}
