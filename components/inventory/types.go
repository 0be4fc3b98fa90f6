package inventory

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// VariantStatus is the availability state of a single variant.
type VariantStatus string

const (
	VariantInStock      VariantStatus = "in_stock"
	VariantOutOfStock   VariantStatus = "out_of_stock"
	VariantDiscontinued VariantStatus = "discontinued"
)

// Category accepts both the flat string form and the {primary, secondary} object.
type Category struct {
	Primary    string
	Secondary  string
	structured bool
}

// FlatCategory builds a category that encodes as a plain string.
func FlatCategory(name string) Category {
	return Category{Primary: name}
}

// StructuredCategory builds a category that encodes as {primary, secondary}.
func StructuredCategory(primary, secondary string) Category {
	return Category{Primary: primary, Secondary: secondary, structured: true}
}

func (c Category) String() string {
	return c.Primary
}

// IsZero reports whether no category was provided.
func (c Category) IsZero() bool {
	return c.Primary == "" && c.Secondary == ""
}

type categoryObject struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary,omitempty"`
}

func (c Category) MarshalJSON() ([]byte, error) {
	if c.structured || c.Secondary != "" {
		return json.Marshal(categoryObject{Primary: c.Primary, Secondary: c.Secondary})
	}
	return json.Marshal(c.Primary)
}

func (c *Category) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = Category{}
		return nil
	}
	if data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*c = FlatCategory(name)
		return nil
	}
	var obj categoryObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("inventory: decode category: %w", err)
	}
	*c = StructuredCategory(obj.Primary, obj.Secondary)
	return nil
}

// Color accepts both a plain color name and the {name, hex, image} object.
type Color struct {
	Name       string
	Hex        string
	Image      string
	structured bool
}

// NamedColor builds a color that encodes as a plain string.
func NamedColor(name string) Color {
	return Color{Name: name}
}

func (c Color) String() string {
	return c.Name
}

// IsZero reports whether no color was provided.
func (c Color) IsZero() bool {
	return c.Name == "" && c.Hex == "" && c.Image == ""
}

type colorObject struct {
	Name  string `json:"name"`
	Hex   string `json:"hex,omitempty"`
	Image string `json:"image,omitempty"`
}

func (c Color) MarshalJSON() ([]byte, error) {
	if c.structured || c.Hex != "" || c.Image != "" {
		return json.Marshal(colorObject{Name: c.Name, Hex: c.Hex, Image: c.Image})
	}
	return json.Marshal(c.Name)
}

func (c *Color) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = Color{}
		return nil
	}
	if data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*c = NamedColor(name)
		return nil
	}
	var obj colorObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("inventory: decode color: %w", err)
	}
	*c = Color{Name: obj.Name, Hex: obj.Hex, Image: obj.Image, structured: true}
	return nil
}

// VariantAttributes describes what distinguishes one variant from its siblings.
type VariantAttributes struct {
	Size  string `json:"size,omitempty"`
	Color Color  `json:"color"`
}

// Inventory is the stock record of a variant.
// Available always equals Quantity minus Reserved.
type Inventory struct {
	Quantity          int  `json:"quantity"`
	Reserved          int  `json:"reserved"`
	Available         int  `json:"available"`
	LowStockThreshold int  `json:"lowStockThreshold"`
	TrackInventory    bool `json:"trackInventory"`
}

// SetQuantity updates the on-hand quantity and recomputes Available.
func (inv *Inventory) SetQuantity(quantity int) {
	inv.Quantity = quantity
	inv.Recompute()
}

// SetReserved updates the reserved quantity and recomputes Available.
func (inv *Inventory) SetReserved(reserved int) {
	inv.Reserved = reserved
	inv.Recompute()
}

// Recompute restores Available from Quantity and Reserved.
func (inv *Inventory) Recompute() {
	inv.Available = inv.Quantity - inv.Reserved
}

// IsLowStock reports whether a tracked variant is at or below its threshold.
func (inv Inventory) IsLowStock() bool {
	return inv.TrackInventory && inv.Quantity <= inv.LowStockThreshold
}

func (inv *Inventory) UnmarshalJSON(data []byte) error {
	type plain Inventory
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*inv = Inventory(decoded)
	inv.Recompute()
	return nil
}

// Variant is a sellable configuration of an item.
type Variant struct {
	ID         string            `json:"id,omitempty"`
	SKU        string            `json:"sku,omitempty"`
	Attributes VariantAttributes `json:"attributes"`
	Price      float64           `json:"price,omitempty"`
	Status     VariantStatus     `json:"status,omitempty"`
	Inventory  Inventory         `json:"inventory"`
}

type variantWire struct {
	ID         LogValue           `json:"id"`
	MongoID    LogValue           `json:"_id"`
	SKU        string             `json:"sku"`
	Attributes *VariantAttributes `json:"attributes"`
	Price      float64            `json:"price"`
	Status     VariantStatus      `json:"status"`
	Inventory  *Inventory         `json:"inventory"`
	Size       string             `json:"size"`
	Color      *Color             `json:"color"`
	Quantity   *int               `json:"quantity"`
}

// UnmarshalJSON folds legacy top-level size, color and quantity fields into
// attributes and inventory.
func (v *Variant) UnmarshalJSON(data []byte) error {
	var wire variantWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("inventory: decode variant: %w", err)
	}
	out := Variant{
		ID:     string(wire.ID),
		SKU:    wire.SKU,
		Price:  wire.Price,
		Status: wire.Status,
	}
	if out.ID == "" {
		out.ID = string(wire.MongoID)
	}
	if wire.Attributes != nil {
		out.Attributes = *wire.Attributes
	}
	if out.Attributes.Size == "" {
		out.Attributes.Size = wire.Size
	}
	if out.Attributes.Color.IsZero() && wire.Color != nil {
		out.Attributes.Color = *wire.Color
	}
	if wire.Inventory != nil {
		out.Inventory = *wire.Inventory
	} else if wire.Quantity != nil {
		out.Inventory.Quantity = *wire.Quantity
	}
	out.Inventory.Recompute()
	*v = out
	return nil
}

// Label renders the variant attributes for tables and logs.
func (v Variant) Label() string {
	switch {
	case v.Attributes.Size != "" && !v.Attributes.Color.IsZero():
		return v.Attributes.Size + " / " + v.Attributes.Color.Name
	case v.Attributes.Size != "":
		return v.Attributes.Size
	case !v.Attributes.Color.IsZero():
		return v.Attributes.Color.Name
	default:
		return v.SKU
	}
}

// Pricing is the structured price block used by variant-aware backends.
type Pricing struct {
	BasePrice float64 `json:"basePrice"`
	SalePrice float64 `json:"salePrice,omitempty"`
	Currency  string  `json:"currency,omitempty"`
}

// Item is a catalog entry with either a flat quantity or ordered variants.
type Item struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	SKU         string    `json:"sku"`
	Description string    `json:"description,omitempty"`
	Brand       string    `json:"brand,omitempty"`
	Category    Category  `json:"category"`
	Gender      string    `json:"gender,omitempty"`
	AgeGroup    string    `json:"ageGroup,omitempty"`
	Status      string    `json:"status,omitempty"`
	Price       float64   `json:"price,omitempty"`
	Pricing     *Pricing  `json:"pricing,omitempty"`
	Quantity    *int      `json:"quantity,omitempty"`
	Variants    []Variant `json:"variants,omitempty"`
}

// UnmarshalJSON accepts string or numeric ids under id or _id.
func (it *Item) UnmarshalJSON(data []byte) error {
	type plain Item
	var decoded struct {
		plain
		ID      LogValue `json:"id"`
		MongoID LogValue `json:"_id"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("inventory: decode item: %w", err)
	}
	*it = Item(decoded.plain)
	it.ID = string(decoded.ID)
	if it.ID == "" {
		it.ID = string(decoded.MongoID)
	}
	return nil
}

// HasVariants reports whether stock is tracked per variant.
func (it Item) HasVariants() bool {
	return len(it.Variants) > 0
}

// UnitPrice returns the flat price, falling back to pricing.basePrice.
func (it Item) UnitPrice() float64 {
	if it.Price != 0 {
		return it.Price
	}
	if it.Pricing != nil {
		return it.Pricing.BasePrice
	}
	return 0
}

// VariantPrice returns the variant price when set, otherwise the item price.
func (it Item) VariantPrice(v Variant) float64 {
	if v.Price != 0 {
		return v.Price
	}
	return it.UnitPrice()
}

// TotalQuantity sums variant quantities, or returns the flat quantity.
func (it Item) TotalQuantity() int {
	if it.HasVariants() {
		total := 0
		for _, v := range it.Variants {
			total += v.Inventory.Quantity
		}
		return total
	}
	if it.Quantity != nil {
		return *it.Quantity
	}
	return 0
}

// FlatQuantity returns the item-level quantity, zero when absent.
func (it Item) FlatQuantity() int {
	if it.Quantity == nil {
		return 0
	}
	return *it.Quantity
}

// Clone deep copies the item so callers cannot alias store state.
func (it Item) Clone() Item {
	out := it
	if it.Pricing != nil {
		pricing := *it.Pricing
		out.Pricing = &pricing
	}
	if it.Quantity != nil {
		q := *it.Quantity
		out.Quantity = &q
	}
	if it.Variants != nil {
		out.Variants = make([]Variant, len(it.Variants))
		copy(out.Variants, it.Variants)
	}
	return out
}

// IntPtr is a helper for building items with a flat quantity.
func IntPtr(v int) *int {
	return &v
}

func cloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}

// Identity is the authenticated user as reported by the server.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Session pairs an identity with its bearer token.
type Session struct {
	User  Identity `json:"user"`
	Token string   `json:"token"`
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Order is the subset of an order used for revenue totals.
type Order struct {
	ID     string  `json:"id"`
	Status string  `json:"status"`
	Total  float64 `json:"total"`
}

// CountsTowardRevenue reports whether the order is delivered or completed.
func (o Order) CountsTowardRevenue() bool {
	return o.Status == "delivered" || o.Status == "completed"
}

// DashboardSummary holds the headline totals shown on the dashboard.
type DashboardSummary struct {
	TotalItems    int     `json:"totalItems"`
	LowStockCount int     `json:"lowStockCount"`
	TotalQuantity int     `json:"totalQuantity"`
	TotalValue    float64 `json:"totalValue"`
	TotalRevenue  float64 `json:"totalRevenue"`
}

// Pagination mirrors the server supplied paging block of a list response.
type Pagination struct {
	TotalItems  int `json:"totalItems"`
	TotalPages  int `json:"totalPages"`
	CurrentPage int `json:"currentPage"`
	Limit       int `json:"limit"`
}

// ListQuery carries the optional server side list parameters.
type ListQuery struct {
	Search string
	Sort   string
	Page   int
	Limit  int
}

// ItemPage is a decoded list response.
type ItemPage struct {
	Items      []Item
	Pagination *Pagination
}

// UpdateKind selects between whole-item and variant-scoped updates.
type UpdateKind string

const (
	UpdateProduct UpdateKind = "product"
	UpdateVariant UpdateKind = "variant"
)

// UpdateRequest describes an update. Variant updates address
// /inventory/{productId}/{variantId} with the variant payload.
type UpdateRequest struct {
	Kind      UpdateKind `json:"kind"`
	Item      Item       `json:"item"`
	VariantID string     `json:"variantId,omitempty"`
	Variant   *Variant   `json:"variant,omitempty"`
}

// TargetID returns the product id addressed by the request.
func (r UpdateRequest) TargetID() string {
	return r.Item.ID
}
