package gateway

import (
	"strings"
	"time"

	"github.com/goliatone/go-inventory/components/inventory"
)

// Demo account credentials accepted by DemoData.
const (
	DemoEmail    = "admin@example.com"
	DemoPassword = "admin123"
)

// DemoData returns a small apparel catalog for local demos. Summary is left
// unset so dashboards exercise the aggregated fallback.
func DemoData() MockData {
	stock := func(sku, size, color string, qty, reserved int) inventory.Variant {
		v := inventory.Variant{
			ID:         strings.ToLower(sku),
			SKU:        sku,
			Attributes: inventory.VariantAttributes{Size: size, Color: inventory.NamedColor(color)},
			Status:     inventory.VariantInStock,
			Inventory: inventory.Inventory{
				Quantity:          qty,
				Reserved:          reserved,
				LowStockThreshold: 5,
				TrackInventory:    true,
			},
		}
		if qty <= 0 {
			v.Status = inventory.VariantOutOfStock
		}
		v.Inventory.Recompute()
		return v
	}
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return MockData{
		Accounts: map[string]MockAccount{
			DemoEmail: {
				Password: DemoPassword,
				Identity: inventory.Identity{ID: "1", Email: DemoEmail, Name: "Store Admin", Role: "admin"},
			},
		},
		Items: []inventory.Item{
			{
				ID: "p-100", Name: "Classic Tee", SKU: "TEE-100", Brand: "Northwind",
				Category: inventory.StructuredCategory("Apparel", "Tops"), Gender: "unisex", AgeGroup: "adult",
				Pricing: &inventory.Pricing{BasePrice: 19.99, Currency: "USD"},
				Variants: []inventory.Variant{
					stock("TEE-100-S-BLK", "S", "black", 42, 2),
					stock("TEE-100-M-BLK", "M", "black", 3, 0),
					stock("TEE-100-L-WHT", "L", "white", 0, 0),
				},
			},
			{
				ID: "p-200", Name: "Trail Hoodie", SKU: "HOOD-200", Brand: "Northwind",
				Category: inventory.StructuredCategory("Apparel", "Outerwear"), Gender: "women", AgeGroup: "adult",
				Pricing: &inventory.Pricing{BasePrice: 59, SalePrice: 49, Currency: "USD"},
				Variants: []inventory.Variant{
					stock("HOOD-200-M-GRN", "M", "green", 18, 4),
					stock("HOOD-200-L-GRN", "L", "green", 64, 0),
				},
			},
			{
				ID: "p-300", Name: "Canvas Tote", SKU: "TOTE-300",
				Category: inventory.FlatCategory("Accessories"),
				Price:    24.5,
				Quantity: inventory.IntPtr(7),
			},
			{
				ID: "p-400", Name: "Kids Beanie", SKU: "BEAN-400", Brand: "Puffin",
				Category: inventory.StructuredCategory("Accessories", "Hats"), Gender: "unisex", AgeGroup: "kids",
				Pricing: &inventory.Pricing{BasePrice: 12},
				Variants: []inventory.Variant{
					stock("BEAN-400-OS-RED", "OS", "red", 5, 1),
				},
			},
		},
		Orders: []inventory.Order{
			{ID: "o-1", Status: "delivered", Total: 79.97},
			{ID: "o-2", Status: "completed", Total: 49},
			{ID: "o-3", Status: "pending", Total: 120},
		},
		Logs: []inventory.ChangeLogEntry{
			{
				ID: "log-1", Timestamp: at, ProductID: "p-100", ProductName: "Classic Tee",
				VariantIndex: 1, VariantDetails: "M / black", ChangeType: inventory.ChangeQuantityUpdate,
				Field: "quantity", OldValue: "12", NewValue: "3", User: DemoEmail, Reason: "weekend sales",
			},
		},
	}
}
