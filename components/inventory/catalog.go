package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// CatalogGateway is the slice of the gateway used by the catalog store.
type CatalogGateway interface {
	ListItems(ctx context.Context, query ListQuery) (ItemPage, error)
	CreateItem(ctx context.Context, item Item) (Item, error)
	UpdateItem(ctx context.Context, req UpdateRequest) (Item, error)
	DeleteItem(ctx context.Context, id string) error
	BulkUpdate(ctx context.Context, changes []BulkChange) (BulkUpdateResult, error)
}

// ItemValidator checks create and update payloads before they are sent.
type ItemValidator interface {
	ValidateItem(item Item) error
}

// Operation names one catalog request track.
type Operation string

const (
	OpFetch  Operation = "fetch"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
	OpBulk   Operation = "bulk_update"
)

// CatalogEvent describes a change applied to the catalog collection.
type CatalogEvent struct {
	Kind       Operation `json:"kind"`
	ItemID     string    `json:"itemId,omitempty"`
	Version    uint64    `json:"version"`
	Count      int       `json:"count"`
	OccurredAt time.Time `json:"occurredAt"`
	Before     *Item     `json:"before,omitempty"`
	After      *Item     `json:"after,omitempty"`
}

// ChangeHook receives catalog events after they are applied.
type ChangeHook interface {
	CatalogChanged(ctx context.Context, event CatalogEvent) error
}

// ChangeHooks fans an event out to several hooks and joins their errors.
type ChangeHooks []ChangeHook

func (h ChangeHooks) CatalogChanged(ctx context.Context, event CatalogEvent) error {
	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.CatalogChanged(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CatalogOptions configures a CatalogStore.
type CatalogOptions struct {
	Gateway   CatalogGateway
	Validator ItemValidator
	Hook      ChangeHook
	Telemetry Telemetry
}

// CatalogSnapshot is a copy of the collection at a version.
type CatalogSnapshot struct {
	Items      []Item      `json:"items"`
	Version    uint64      `json:"version"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// CatalogStore exclusively owns the item collection. Each operation kind has
// its own request track; results from superseded fetches are dropped.
type CatalogStore struct {
	gateway   CatalogGateway
	validator ItemValidator
	hook      ChangeHook
	telemetry Telemetry

	mu         sync.RWMutex
	items      []Item
	version    uint64
	pagination *Pagination
	tracks     map[Operation]*requestTrack
}

// NewCatalogStore builds an empty catalog.
func NewCatalogStore(opts CatalogOptions) *CatalogStore {
	tracks := make(map[Operation]*requestTrack)
	for _, op := range []Operation{OpFetch, OpCreate, OpUpdate, OpDelete, OpBulk} {
		track := newRequestTrack()
		tracks[op] = &track
	}
	return &CatalogStore{
		gateway:   opts.Gateway,
		validator: opts.Validator,
		hook:      opts.Hook,
		telemetry: normalizeTelemetry(opts.Telemetry),
		items:     []Item{},
		tracks:    tracks,
	}
}

// Fetch replaces the collection with the server list.
func (s *CatalogStore) Fetch(ctx context.Context, query ListQuery) ([]Item, error) {
	if err := s.requireGateway(); err != nil {
		return nil, err
	}
	gen := s.begin(OpFetch)
	page, err := s.gateway.ListItems(ctx, query)

	s.mu.Lock()
	track := s.tracks[OpFetch]
	if err != nil {
		track.fail(gen, err)
		s.mu.Unlock()
		s.telemetry.Record(ctx, "inventory.catalog.fetch_failed", map[string]any{"error": err})
		return nil, err
	}
	if !track.succeed(gen) {
		s.mu.Unlock()
		s.telemetry.Record(ctx, "inventory.catalog.fetch_stale", map[string]any{"generation": gen})
		return cloneItems(page.Items), nil
	}
	s.items = cloneItems(page.Items)
	s.pagination = page.Pagination
	s.version++
	event := CatalogEvent{Kind: OpFetch, Version: s.version, Count: len(s.items)}
	s.mu.Unlock()

	s.emit(ctx, event)
	return cloneItems(page.Items), nil
}

// Create validates and sends item, then appends the server's copy.
func (s *CatalogStore) Create(ctx context.Context, item Item) (Item, error) {
	if err := s.requireGateway(); err != nil {
		return Item{}, err
	}
	gen := s.begin(OpCreate)
	if err := s.validate("create item", item); err != nil {
		s.fail(ctx, OpCreate, gen, err)
		return Item{}, err
	}
	created, err := s.gateway.CreateItem(ctx, item)
	if err != nil {
		s.fail(ctx, OpCreate, gen, err)
		return Item{}, err
	}

	s.mu.Lock()
	s.items = append(s.items, created.Clone())
	s.version++
	s.tracks[OpCreate].succeed(gen)
	after := created.Clone()
	event := CatalogEvent{Kind: OpCreate, ItemID: created.ID, Version: s.version, Count: len(s.items), After: &after}
	s.mu.Unlock()

	s.emit(ctx, event)
	return created, nil
}

// Update sends req and replaces the entry with the same id. If no entry
// matches, the collection is untouched and ErrItemNotInCatalog is returned
// alongside the server item.
func (s *CatalogStore) Update(ctx context.Context, req UpdateRequest) (Item, error) {
	if err := s.requireGateway(); err != nil {
		return Item{}, err
	}
	gen := s.begin(OpUpdate)
	if err := s.validateUpdate(req); err != nil {
		s.fail(ctx, OpUpdate, gen, err)
		return Item{}, err
	}
	updated, err := s.gateway.UpdateItem(ctx, req)
	if err != nil {
		s.fail(ctx, OpUpdate, gen, err)
		return Item{}, err
	}

	s.mu.Lock()
	idx := s.indexOf(updated.ID)
	if idx < 0 {
		s.tracks[OpUpdate].fail(gen, ErrItemNotInCatalog)
		s.mu.Unlock()
		s.telemetry.Record(ctx, "inventory.catalog.update_unmatched", map[string]any{"item_id": updated.ID})
		return updated, fmt.Errorf("inventory: update %s: %w", updated.ID, ErrItemNotInCatalog)
	}
	before := s.items[idx].Clone()
	s.items[idx] = updated.Clone()
	s.version++
	s.tracks[OpUpdate].succeed(gen)
	after := updated.Clone()
	event := CatalogEvent{Kind: OpUpdate, ItemID: updated.ID, Version: s.version, Count: len(s.items), Before: &before, After: &after}
	s.mu.Unlock()

	s.emit(ctx, event)
	return updated, nil
}

// Delete removes the item on the server and then locally.
func (s *CatalogStore) Delete(ctx context.Context, id string) error {
	if err := s.requireGateway(); err != nil {
		return err
	}
	gen := s.begin(OpDelete)
	if id == "" {
		err := NewValidationError("delete item", "item id is required", nil)
		s.fail(ctx, OpDelete, gen, err)
		return err
	}
	if err := s.gateway.DeleteItem(ctx, id); err != nil {
		s.fail(ctx, OpDelete, gen, err)
		return err
	}

	s.mu.Lock()
	var before *Item
	if idx := s.indexOf(id); idx >= 0 {
		removed := s.items[idx].Clone()
		before = &removed
		s.items = append(s.items[:idx:idx], s.items[idx+1:]...)
	}
	s.version++
	s.tracks[OpDelete].succeed(gen)
	event := CatalogEvent{Kind: OpDelete, ItemID: id, Version: s.version, Count: len(s.items), Before: before}
	s.mu.Unlock()

	s.emit(ctx, event)
	return nil
}

// BulkUpdate validates and sends the changes, then replaces every returned
// item that is present in the collection.
func (s *CatalogStore) BulkUpdate(ctx context.Context, changes []BulkChange) (BulkUpdateResult, error) {
	if err := s.requireGateway(); err != nil {
		return BulkUpdateResult{}, err
	}
	gen := s.begin(OpBulk)
	if err := ValidateBulkChanges(changes); err != nil {
		s.fail(ctx, OpBulk, gen, err)
		return BulkUpdateResult{}, err
	}
	result, err := s.gateway.BulkUpdate(ctx, changes)
	if err != nil {
		s.fail(ctx, OpBulk, gen, err)
		return BulkUpdateResult{}, err
	}

	s.mu.Lock()
	events := make([]CatalogEvent, 0, len(result.Items))
	for _, item := range result.Items {
		idx := s.indexOf(item.ID)
		if idx < 0 {
			continue
		}
		before := s.items[idx].Clone()
		after := item.Clone()
		s.items[idx] = item.Clone()
		s.version++
		events = append(events, CatalogEvent{Kind: OpBulk, ItemID: item.ID, Version: s.version, Count: len(s.items), Before: &before, After: &after})
	}
	s.tracks[OpBulk].succeed(gen)
	s.mu.Unlock()

	for _, event := range events {
		s.emit(ctx, event)
	}
	return result, nil
}

// Seed replaces the collection without a network call.
func (s *CatalogStore) Seed(items []Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = cloneItems(items)
	if s.items == nil {
		s.items = []Item{}
	}
	s.version++
}

// Snapshot returns a copy of the collection and its version.
func (s *CatalogStore) Snapshot() CatalogSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := CatalogSnapshot{Items: cloneItems(s.items), Version: s.version}
	if s.pagination != nil {
		p := *s.pagination
		snap.Pagination = &p
	}
	return snap
}

// Items returns a copy of the collection.
func (s *CatalogStore) Items() []Item {
	return s.Snapshot().Items
}

// Item returns the entry with id.
func (s *CatalogStore) Item(id string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.indexOf(id); idx >= 0 {
		return s.items[idx].Clone(), true
	}
	return Item{}, false
}

// Status returns the track for op.
func (s *CatalogStore) Status(op Operation) TrackState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	track, ok := s.tracks[op]
	if !ok {
		return TrackState{Status: StatusIdle}
	}
	return track.state()
}

// ClearError acknowledges the last failure on op.
func (s *CatalogStore) ClearError(op Operation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if track, ok := s.tracks[op]; ok {
		track.clearError()
	}
}

// TotalItems returns the number of items in the collection.
func (s *CatalogStore) TotalItems() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// LowStockCount counts low-stock variants, plus flat items at or below the
// default threshold of 10.
func (s *CatalogStore) LowStockCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, item := range s.items {
		if !item.HasVariants() {
			if item.Quantity != nil && *item.Quantity <= DefaultLowStockThreshold {
				count++
			}
			continue
		}
		for _, v := range item.Variants {
			if v.Inventory.IsLowStock() {
				count++
			}
		}
	}
	return count
}

// TotalValue sums quantity times price across the collection.
func (s *CatalogStore) TotalValue() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, item := range s.items {
		total = total.Add(stockValue(item))
	}
	return total.InexactFloat64()
}

// CategoryCount returns the number of distinct primary categories.
func (s *CatalogStore) CategoryCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, item := range s.items {
		if item.Category.Primary != "" {
			seen[item.Category.Primary] = struct{}{}
		}
	}
	return len(seen)
}

// DefaultLowStockThreshold applies to flat items, which carry no threshold.
const DefaultLowStockThreshold = 10

func stockValue(item Item) decimal.Decimal {
	if !item.HasVariants() {
		return decimal.NewFromFloat(item.UnitPrice()).Mul(decimal.NewFromInt(int64(item.FlatQuantity())))
	}
	total := decimal.Zero
	for _, v := range item.Variants {
		total = total.Add(decimal.NewFromFloat(item.VariantPrice(v)).Mul(decimal.NewFromInt(int64(v.Inventory.Quantity))))
	}
	return total
}

func (s *CatalogStore) begin(op Operation) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracks[op].begin()
}

func (s *CatalogStore) fail(ctx context.Context, op Operation, gen uint64, err error) {
	s.mu.Lock()
	s.tracks[op].fail(gen, err)
	s.mu.Unlock()
	s.telemetry.Record(ctx, "inventory.catalog."+string(op)+"_failed", map[string]any{"error": err})
}

func (s *CatalogStore) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *CatalogStore) requireGateway() error {
	if s.gateway == nil {
		return errors.New("inventory: catalog store requires a gateway")
	}
	return nil
}

func (s *CatalogStore) validate(op string, item Item) error {
	if s.validator == nil {
		return nil
	}
	if err := s.validator.ValidateItem(item); err != nil {
		var typed *Error
		if errors.As(err, &typed) {
			return err
		}
		return NewValidationError(op, err.Error(), err)
	}
	return nil
}

func (s *CatalogStore) validateUpdate(req UpdateRequest) error {
	switch req.Kind {
	case UpdateProduct, "":
		if req.Item.ID == "" {
			return NewValidationError("update item", "item id is required", nil)
		}
		return s.validate("update item", req.Item)
	case UpdateVariant:
		if req.Item.ID == "" || req.VariantID == "" || req.Variant == nil {
			return NewValidationError("update variant", "product id, variant id and variant payload are required", nil)
		}
		if req.Variant.Inventory.Quantity < 0 || req.Variant.Inventory.Reserved < 0 {
			return NewValidationError("update variant", "quantities must not be negative", nil)
		}
		return nil
	default:
		return NewValidationError("update item", fmt.Sprintf("unknown update kind %q", req.Kind), nil)
	}
}

func (s *CatalogStore) emit(ctx context.Context, event CatalogEvent) {
	event.OccurredAt = time.Now().UTC()
	if s.hook != nil {
		if err := s.hook.CatalogChanged(ctx, event); err != nil {
			s.telemetry.Record(ctx, "inventory.catalog.hook_failed", map[string]any{"kind": string(event.Kind), "error": err})
		}
	}
	s.telemetry.Record(ctx, "inventory.catalog."+string(event.Kind), map[string]any{
		"item_id": event.ItemID,
		"version": event.Version,
		"count":   event.Count,
	})
}
