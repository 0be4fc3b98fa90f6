package inventory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleItems() []Item {
	return []Item{
		{ID: "1", Name: "Blue Shirt", SKU: "BS-1", Price: 20, Category: FlatCategory("apparel"), Quantity: IntPtr(5)},
		{ID: "2", Name: "Jeans", SKU: "SHIRT-XL", Price: 10, Category: FlatCategory("apparel"), Quantity: IntPtr(3)},
		{ID: "3", Name: "Socks", SKU: "SO-1", Price: 10, Category: FlatCategory("accessories"), Quantity: IntPtr(8)},
	}
}

func itemNames(items []Item) []string {
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
	}
	return names
}

func variantItem(id string, quantity int) Item {
	return Item{
		ID:   id,
		Name: "Item " + id,
		SKU:  "SKU-" + id,
		Variants: []Variant{{
			SKU:       "SKU-" + id + "-A",
			Status:    VariantInStock,
			Inventory: Inventory{Quantity: quantity, LowStockThreshold: 10, TrackInventory: true},
		}},
	}
}

func TestDeriveSearchMatchesNameOrSKU(t *testing.T) {
	result := Derive(sampleItems(), ViewRequest{Search: "shirt", Page: 1})
	assert.Equal(t, []string{"Blue Shirt", "Jeans"}, itemNames(result.Items))
	assert.Equal(t, 2, result.TotalItems)
}

func TestDeriveSearchIsCaseInsensitive(t *testing.T) {
	upper := Derive(sampleItems(), ViewRequest{Search: "SHIRT", Page: 1})
	lower := Derive(sampleItems(), ViewRequest{Search: "shirt", Page: 1})
	assert.Equal(t, itemNames(lower.Items), itemNames(upper.Items))
}

func TestDeriveEmptySearchIsNoop(t *testing.T) {
	result := Derive(sampleItems(), ViewRequest{Search: "", Page: 1})
	assert.Equal(t, 3, result.TotalItems)
}

func TestDeriveSearchKeepsSurroundingSpaces(t *testing.T) {
	items := append(sampleItems(), Item{ID: "4", Name: "Wool Socks", SKU: "WS-1", Quantity: IntPtr(1)})

	spaced := Derive(items, ViewRequest{Search: " socks", Page: 1})
	assert.Equal(t, []string{"Wool Socks"}, itemNames(spaced.Items))

	blank := Derive(items, ViewRequest{Search: "   ", Page: 1})
	assert.Zero(t, blank.TotalItems)
}

func TestDeriveSortByPriceIsStable(t *testing.T) {
	items := []Item{
		{ID: "a", Name: "A", Price: 20},
		{ID: "b", Name: "B", Price: 10},
		{ID: "c", Name: "C", Price: 10},
	}
	asc := Derive(items, ViewRequest{Sort: SortConfig{Key: "price", Direction: SortAscending}, Page: 1})
	assert.Equal(t, []string{"B", "C", "A"}, itemNames(asc.Items))

	desc := Derive(items, ViewRequest{Sort: SortConfig{Key: "price", Direction: SortDescending}, Page: 1})
	assert.Equal(t, []string{"A", "B", "C"}, itemNames(desc.Items))
}

func TestDeriveSortByNestedPath(t *testing.T) {
	items := []Item{
		{ID: "a", Name: "A", Pricing: &Pricing{BasePrice: 30}},
		{ID: "b", Name: "B", Pricing: &Pricing{BasePrice: 5}},
		{ID: "c", Name: "C"},
	}
	result := Derive(items, ViewRequest{Sort: SortConfig{Key: "pricing.basePrice"}, Page: 1})
	assert.Equal(t, []string{"C", "B", "A"}, itemNames(result.Items))
}

func TestDeriveSortByVariantIndexPath(t *testing.T) {
	items := []Item{variantItem("1", 40), variantItem("2", 2), variantItem("3", 15)}
	result := Derive(items, ViewRequest{Sort: SortConfig{Key: "variants.0.inventory.quantity"}, Page: 1})
	assert.Equal(t, []string{"Item 2", "Item 3", "Item 1"}, itemNames(result.Items))
}

func TestDeriveFilterByStockLevel(t *testing.T) {
	items := []Item{variantItem("1", 5), variantItem("2", 15), variantItem("3", 0), variantItem("4", 10)}
	result := Derive(items, ViewRequest{Filters: FilterCriteria{StockLevel: StockLow}, Page: 1})
	assert.Equal(t, []string{"Item 1", "Item 4"}, itemNames(result.Items))
}

func TestDeriveVariantFiltersExcludeFlatItems(t *testing.T) {
	items := append(sampleItems(), variantItem("9", 0))
	result := Derive(items, ViewRequest{Filters: FilterCriteria{OutOfStock: true}, Page: 1})
	assert.Equal(t, []string{"Item 9"}, itemNames(result.Items))
}

func TestDeriveFilterByCategory(t *testing.T) {
	items := sampleItems()
	items = append(items, Item{ID: "4", Name: "Cap", SKU: "CAP", Category: StructuredCategory("accessories", "hats"), Quantity: IntPtr(1)})
	result := Derive(items, ViewRequest{Filters: FilterCriteria{Category: "accessories"}, Page: 1})
	assert.Equal(t, []string{"Socks", "Cap"}, itemNames(result.Items))
}

func TestDerivePagination(t *testing.T) {
	items := make([]Item, 23)
	for i := range items {
		items[i] = Item{ID: fmt.Sprint(i), Name: fmt.Sprintf("item-%02d", i), Quantity: IntPtr(i)}
	}
	req := ViewRequest{Sort: DefaultSort(), PageSize: 10}

	req.Page = 3
	page3 := Derive(items, req)
	assert.Equal(t, 3, page3.TotalPages)
	assert.Len(t, page3.Items, 3)
	assert.Equal(t, "item-20", page3.Items[0].Name)

	req.Page = 4
	page4 := Derive(items, req)
	assert.Empty(t, page4.Items)
	assert.NotNil(t, page4.Items)
	assert.Equal(t, 4, page4.Page)

	req.Page = 0
	assert.Empty(t, Derive(items, req).Items)
}

func TestDeriveDefaultsPageSize(t *testing.T) {
	items := make([]Item, 12)
	for i := range items {
		items[i] = Item{ID: fmt.Sprint(i), Name: fmt.Sprint(i)}
	}
	result := Derive(items, ViewRequest{Page: 1, PageSize: -3})
	assert.Equal(t, DefaultPageSize, result.PageSize)
	assert.Len(t, result.Items, 10)
	assert.Equal(t, 2, result.TotalPages)
}

func TestDeriveDoesNotMutateInput(t *testing.T) {
	items := sampleItems()
	before := itemNames(items)
	result := Derive(items, ViewRequest{Sort: SortConfig{Key: "name", Direction: SortDescending}, Page: 1})
	require.NotEmpty(t, result.Items)
	result.Items[0].Name = "changed"
	assert.Equal(t, before, itemNames(items))
}

func TestDeriveIsIdempotent(t *testing.T) {
	req := ViewRequest{Search: "s", Sort: SortConfig{Key: "price"}, Page: 1}
	first := Derive(sampleItems(), req)
	second := Derive(sampleItems(), req)
	assert.Equal(t, first, second)
}

func TestMatchingVariants(t *testing.T) {
	item := Item{ID: "p", Variants: []Variant{
		{Inventory: Inventory{Quantity: 0, TrackInventory: true, LowStockThreshold: 5}},
		{Inventory: Inventory{Quantity: 60}},
		{Status: VariantOutOfStock, Inventory: Inventory{Quantity: 4}},
	}}
	assert.Equal(t, []int{0, 2}, MatchingVariants(item, FilterCriteria{OutOfStock: true}))
	assert.Equal(t, []int{1}, MatchingVariants(item, FilterCriteria{StockLevel: StockHigh}))
	assert.Equal(t, []int{1, 2}, MatchingVariants(item, FilterCriteria{TrackInventory: BoolPtr(false)}))
}

func TestFilterActiveCount(t *testing.T) {
	f := FilterCriteria{Category: "apparel", TrackInventory: BoolPtr(false), LowStock: true}
	assert.Equal(t, 3, f.ActiveCount())
	assert.True(t, FilterCriteria{}.IsEmpty())
}

func TestStockLevelFor(t *testing.T) {
	cases := map[int]StockLevel{0: StockZero, 1: StockLow, 10: StockLow, 11: StockMedium, 50: StockMedium, 51: StockHigh}
	for quantity, want := range cases {
		assert.Equal(t, want, StockLevelFor(quantity), "quantity %d", quantity)
	}
}

func TestNormalizeSortKey(t *testing.T) {
	assert.Equal(t, "pricing.basePrice", NormalizeSortKey("pricing.base_price"))
	assert.Equal(t, "name", NormalizeSortKey(" name "))
	assert.Equal(t, "lowStockThreshold", NormalizeSortKey("low-stock-threshold"))
	assert.Equal(t, "", NormalizeSortKey(""))
}
