package inventory

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Bulk-editable inventory fields.
const (
	FieldQuantity          = "quantity"
	FieldReserved          = "reserved"
	FieldLowStockThreshold = "lowStockThreshold"
)

// BulkChange sets one inventory field of one variant.
type BulkChange struct {
	ProductID    string `json:"productId"`
	VariantIndex int    `json:"variantIndex"`
	Field        string `json:"field"`
	NewValue     int    `json:"newValue"`
	CurrentValue *int   `json:"currentValue,omitempty"`
}

// BulkUpdateResult is the server answer to a bulk update.
type BulkUpdateResult struct {
	Updated int    `json:"updated"`
	Items   []Item `json:"items"`
}

// ValidateBulkChanges rejects unknown fields, negative values, negative
// variant indexes and missing product ids. Every problem is reported.
func ValidateBulkChanges(changes []BulkChange) error {
	if len(changes) == 0 {
		return NewValidationError("bulk update", "no changes to apply", nil)
	}
	var problems []error
	for i, change := range changes {
		if strings.TrimSpace(change.ProductID) == "" {
			problems = append(problems, fmt.Errorf("change %d: product id is required", i))
		}
		if change.VariantIndex < 0 {
			problems = append(problems, fmt.Errorf("change %d: variant index must not be negative", i))
		}
		switch change.Field {
		case FieldQuantity, FieldReserved, FieldLowStockThreshold:
		default:
			problems = append(problems, fmt.Errorf("change %d: unknown field %q", i, change.Field))
		}
		if change.NewValue < 0 {
			problems = append(problems, fmt.Errorf("change %d: value must not be negative", i))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	joined := errors.Join(problems...)
	return NewValidationError("bulk update", strings.ReplaceAll(joined.Error(), "\n", "; "), joined)
}

// PreviewBulkChanges fills CurrentValue from items and reports changes that
// address a missing product or variant.
func PreviewBulkChanges(items []Item, changes []BulkChange) ([]BulkChange, error) {
	byID := make(map[string]Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	out := make([]BulkChange, len(changes))
	var problems []error
	for i, change := range changes {
		out[i] = change
		item, ok := byID[change.ProductID]
		if !ok {
			problems = append(problems, fmt.Errorf("change %d: product %s not found", i, change.ProductID))
			continue
		}
		if change.VariantIndex < 0 || change.VariantIndex >= len(item.Variants) {
			problems = append(problems, fmt.Errorf("change %d: product %s has no variant %d", i, change.ProductID, change.VariantIndex))
			continue
		}
		current := inventoryField(item.Variants[change.VariantIndex].Inventory, change.Field)
		out[i].CurrentValue = &current
	}
	if len(problems) > 0 {
		joined := errors.Join(problems...)
		return out, NewValidationError("preview bulk update", strings.ReplaceAll(joined.Error(), "\n", "; "), joined)
	}
	return out, nil
}

// ApplyBulkChange writes change into item, keeping Available consistent.
func ApplyBulkChange(item *Item, change BulkChange) error {
	if change.VariantIndex < 0 || change.VariantIndex >= len(item.Variants) {
		return NewValidationError("apply bulk change", fmt.Sprintf("product %s has no variant %d", item.ID, change.VariantIndex), nil)
	}
	inv := &item.Variants[change.VariantIndex].Inventory
	switch change.Field {
	case FieldQuantity:
		inv.SetQuantity(change.NewValue)
	case FieldReserved:
		inv.SetReserved(change.NewValue)
	case FieldLowStockThreshold:
		inv.LowStockThreshold = change.NewValue
	default:
		return NewValidationError("apply bulk change", fmt.Sprintf("unknown field %q", change.Field), nil)
	}
	return nil
}

func inventoryField(inv Inventory, field string) int {
	switch field {
	case FieldQuantity:
		return inv.Quantity
	case FieldReserved:
		return inv.Reserved
	case FieldLowStockThreshold:
		return inv.LowStockThreshold
	default:
		return 0
	}
}

// ParseBulkChanges decodes and schema-validates a JSON change list.
func ParseBulkChanges(r io.Reader, validator *JSONSchemaValidator) ([]BulkChange, error) {
	var changes []BulkChange
	if err := json.NewDecoder(r).Decode(&changes); err != nil {
		return nil, NewValidationError("parse bulk changes", "changes file is not a JSON array of changes", err)
	}
	if validator != nil {
		if err := validator.ValidateBulkChanges(changes); err != nil {
			return nil, err
		}
	}
	return changes, nil
}

// ParseBulkUpload decodes a JSON array of products in template shape,
// validating each element before decoding it.
func ParseBulkUpload(r io.Reader, validator *JSONSchemaValidator) ([]Item, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, NewValidationError("parse bulk upload", "upload must be a JSON array of products", err)
	}
	if validator == nil {
		validator = NewJSONSchemaValidator()
	}
	items := make([]Item, 0, len(raw))
	for i, doc := range raw {
		if err := validator.ValidateRawItem(doc); err != nil {
			return nil, fmt.Errorf("inventory: product %d: %w", i, err)
		}
		var item Item
		if err := json.Unmarshal(doc, &item); err != nil {
			return nil, NewValidationError("parse bulk upload", fmt.Sprintf("product %d could not be decoded", i), err)
		}
		items = append(items, item)
	}
	return items, nil
}

// BulkTemplate returns the sample products written by WriteBulkTemplate.
func BulkTemplate() []Item {
	return []Item{{
		Name:        "Sample Product",
		SKU:         "SAMPLE-001",
		Description: "Product description",
		Brand:       "Brand Name",
		Category:    StructuredCategory("Clothing", "T-Shirts"),
		Gender:      "unisex",
		AgeGroup:    "adult",
		Status:      "active",
		Pricing:     &Pricing{BasePrice: 29.99, SalePrice: 24.99, Currency: "USD"},
		Variants: []Variant{
			{
				SKU:        "SAMPLE-001-RED-M",
				Attributes: VariantAttributes{Size: "M", Color: Color{Name: "Red", Hex: "#FF0000", structured: true}},
				Status:     VariantInStock,
				Inventory:  Inventory{Quantity: 100, Available: 100, LowStockThreshold: 10, TrackInventory: true},
			},
			{
				SKU:        "SAMPLE-001-BLUE-L",
				Attributes: VariantAttributes{Size: "L", Color: Color{Name: "Blue", Hex: "#0000FF", structured: true}},
				Status:     VariantInStock,
				Inventory:  Inventory{Quantity: 50, Reserved: 5, Available: 45, LowStockThreshold: 10, TrackInventory: true},
			},
		},
	}}
}

// WriteBulkTemplate writes the bulk upload template as indented JSON.
func WriteBulkTemplate(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(BulkTemplate()); err != nil {
		return fmt.Errorf("inventory: write bulk template: %w", err)
	}
	return nil
}
