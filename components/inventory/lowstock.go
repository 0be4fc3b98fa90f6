package inventory

// LowStockAlert is one tracked variant at or below its threshold, with the
// context of its owning product.
type LowStockAlert struct {
	ProductID    string  `json:"productId"`
	ProductName  string  `json:"productName"`
	ProductSKU   string  `json:"productSku"`
	VariantIndex int     `json:"variantIndex"`
	Variant      Variant `json:"variant"`
}

// Shortfall returns how far the variant sits below its threshold.
func (a LowStockAlert) Shortfall() int {
	return a.Variant.Inventory.LowStockThreshold - a.Variant.Inventory.Quantity
}

// Critical reports an alert whose variant is out of stock.
func (a LowStockAlert) Critical() bool {
	return a.Variant.Inventory.Quantity <= 0
}

// LowStockAlerts flattens every tracked low-stock variant in catalog order.
func LowStockAlerts(items []Item) []LowStockAlert {
	alerts := []LowStockAlert{}
	for _, item := range items {
		for idx, variant := range item.Variants {
			if !variant.Inventory.IsLowStock() {
				continue
			}
			alerts = append(alerts, LowStockAlert{
				ProductID:    item.ID,
				ProductName:  item.Name,
				ProductSKU:   item.SKU,
				VariantIndex: idx,
				Variant:      variant,
			})
		}
	}
	return alerts
}
