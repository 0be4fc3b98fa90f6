package inventory

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

var itemCSVHeader = []string{
	"id", "name", "sku", "category", "price", "variant_sku", "size", "color",
	"status", "quantity", "reserved", "available", "low_stock_threshold", "track_inventory",
}

// WriteItemsCSV writes one row per variant, or one row for a flat item.
func WriteItemsCSV(w io.Writer, items []Item) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(itemCSVHeader); err != nil {
		return fmt.Errorf("inventory: write csv header: %w", err)
	}
	for _, item := range items {
		base := []string{item.ID, item.Name, item.SKU, item.Category.Primary}
		if !item.HasVariants() {
			qty := strconv.Itoa(item.FlatQuantity())
			row := append(base, formatMoney(item.UnitPrice()), "", "", "", item.Status, qty, "0", qty, "", "")
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("inventory: write csv row %s: %w", item.ID, err)
			}
			continue
		}
		for _, v := range item.Variants {
			row := append(append([]string(nil), base...),
				formatMoney(item.VariantPrice(v)),
				v.SKU,
				v.Attributes.Size,
				v.Attributes.Color.Name,
				string(v.Status),
				strconv.Itoa(v.Inventory.Quantity),
				strconv.Itoa(v.Inventory.Reserved),
				strconv.Itoa(v.Inventory.Available),
				strconv.Itoa(v.Inventory.LowStockThreshold),
				strconv.FormatBool(v.Inventory.TrackInventory),
			)
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("inventory: write csv row %s: %w", item.ID, err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

var changeLogCSVHeader = []string{
	"Timestamp", "Product", "Variant", "Change Type", "Field", "Old Value", "New Value", "User", "Reason",
}

// WriteChangeLogCSV writes change log entries in display order.
func WriteChangeLogCSV(w io.Writer, entries []ChangeLogEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(changeLogCSVHeader); err != nil {
		return fmt.Errorf("inventory: write csv header: %w", err)
	}
	for _, entry := range entries {
		row := []string{
			entry.Timestamp.Format(time.RFC3339),
			entry.ProductName,
			entry.VariantDetails,
			string(entry.ChangeType),
			entry.Field,
			string(entry.OldValue),
			string(entry.NewValue),
			entry.User,
			entry.Reason,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("inventory: write csv row %s: %w", entry.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
