package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCatalogGateway struct {
	mu        sync.Mutex
	pages     []ItemPage
	listErr   error
	listGate  map[int]chan struct{}
	listCalls int
	created   Item
	createErr error
	updated   Item
	updateErr error
	deleteErr error
	bulk      BulkUpdateResult
	bulkErr   error
	sent      []UpdateRequest
}

func (s *stubCatalogGateway) ListItems(ctx context.Context, _ ListQuery) (ItemPage, error) {
	s.mu.Lock()
	call := s.listCalls
	s.listCalls++
	gate := s.listGate[call]
	var page ItemPage
	if call < len(s.pages) {
		page = s.pages[call]
	}
	err := s.listErr
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return page, err
}

func (s *stubCatalogGateway) CreateItem(_ context.Context, item Item) (Item, error) {
	if s.createErr != nil {
		return Item{}, s.createErr
	}
	if s.created.ID != "" {
		return s.created, nil
	}
	item.ID = "new-id"
	return item, nil
}

func (s *stubCatalogGateway) UpdateItem(_ context.Context, req UpdateRequest) (Item, error) {
	s.mu.Lock()
	s.sent = append(s.sent, req)
	s.mu.Unlock()
	if s.updateErr != nil {
		return Item{}, s.updateErr
	}
	if s.updated.ID != "" {
		return s.updated, nil
	}
	return req.Item, nil
}

func (s *stubCatalogGateway) DeleteItem(context.Context, string) error {
	return s.deleteErr
}

func (s *stubCatalogGateway) BulkUpdate(context.Context, []BulkChange) (BulkUpdateResult, error) {
	return s.bulk, s.bulkErr
}

type recordingHook struct {
	mu     sync.Mutex
	events []CatalogEvent
}

func (h *recordingHook) CatalogChanged(_ context.Context, event CatalogEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return nil
}

func TestCatalogFetchReplacesCollection(t *testing.T) {
	gateway := &stubCatalogGateway{pages: []ItemPage{{Items: sampleItems(), Pagination: &Pagination{TotalItems: 3, Limit: 10}}}}
	hook := &recordingHook{}
	store := NewCatalogStore(CatalogOptions{Gateway: gateway, Hook: hook})

	items, err := store.Fetch(context.Background(), ListQuery{})
	require.NoError(t, err)
	assert.Len(t, items, 3)

	snap := store.Snapshot()
	assert.Len(t, snap.Items, 3)
	assert.EqualValues(t, 1, snap.Version)
	require.NotNil(t, snap.Pagination)
	assert.Equal(t, 3, snap.Pagination.TotalItems)
	assert.Equal(t, StatusSucceeded, store.Status(OpFetch).Status)
	require.Len(t, hook.events, 1)
	assert.Equal(t, OpFetch, hook.events[0].Kind)
}

func TestCatalogFetchDropsStaleResponse(t *testing.T) {
	slow := make(chan struct{})
	gateway := &stubCatalogGateway{
		pages: []ItemPage{
			{Items: []Item{{ID: "old", Name: "Old"}}},
			{Items: []Item{{ID: "new", Name: "New"}}},
		},
		listGate: map[int]chan struct{}{0: slow},
	}
	store := NewCatalogStore(CatalogOptions{Gateway: gateway})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = store.Fetch(context.Background(), ListQuery{})
	}()

	// wait until the first request is in flight
	require.Eventually(t, func() bool {
		gateway.mu.Lock()
		defer gateway.mu.Unlock()
		return gateway.listCalls == 1
	}, timeoutShort, tick)

	_, err := store.Fetch(context.Background(), ListQuery{})
	require.NoError(t, err)
	close(slow)
	<-done

	items := store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "new", items[0].ID)
	assert.Equal(t, StatusSucceeded, store.Status(OpFetch).Status)
}

func TestCatalogFetchFailureKeepsCollection(t *testing.T) {
	gateway := &stubCatalogGateway{pages: []ItemPage{{Items: sampleItems()}}}
	store := NewCatalogStore(CatalogOptions{Gateway: gateway})
	_, err := store.Fetch(context.Background(), ListQuery{})
	require.NoError(t, err)

	gateway.listErr = &Error{Kind: KindServer, Message: "db down"}
	_, err = store.Fetch(context.Background(), ListQuery{})
	require.Error(t, err)
	assert.Len(t, store.Items(), 3)
	status := store.Status(OpFetch)
	assert.Equal(t, StatusFailed, status.Status)
	assert.Equal(t, "db down", status.Message())

	store.ClearError(OpFetch)
	assert.Nil(t, store.Status(OpFetch).Err)
}

func TestCatalogCreateAppendsServerItem(t *testing.T) {
	store := NewCatalogStore(CatalogOptions{Gateway: &stubCatalogGateway{}, Validator: NewJSONSchemaValidator()})
	created, err := store.Create(context.Background(), Item{Name: "Cap", SKU: "CAP-1", Quantity: IntPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, "new-id", created.ID)
	assert.Equal(t, 1, store.TotalItems())
	assert.Equal(t, StatusSucceeded, store.Status(OpCreate).Status)
}

func TestCatalogCreateValidationNeverDispatches(t *testing.T) {
	gateway := &stubCatalogGateway{createErr: errors.New("must not be called")}
	store := NewCatalogStore(CatalogOptions{Gateway: gateway, Validator: NewJSONSchemaValidator()})
	_, err := store.Create(context.Background(), Item{Name: "No stock"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, StatusFailed, store.Status(OpCreate).Status)
	assert.Equal(t, 0, store.TotalItems())
}

func TestCatalogUpdateReplacesByID(t *testing.T) {
	gateway := &stubCatalogGateway{}
	hook := &recordingHook{}
	store := NewCatalogStore(CatalogOptions{Gateway: gateway, Hook: hook})
	store.Seed(sampleItems())

	changed := sampleItems()[1]
	changed.Quantity = IntPtr(30)
	_, err := store.Update(context.Background(), UpdateRequest{Kind: UpdateProduct, Item: changed})
	require.NoError(t, err)

	item, ok := store.Item("2")
	require.True(t, ok)
	assert.Equal(t, 30, item.TotalQuantity())
	require.Len(t, hook.events, 1)
	require.NotNil(t, hook.events[0].Before)
	assert.Equal(t, 3, hook.events[0].Before.TotalQuantity())
}

func TestCatalogUpdateUnmatchedIsExplicit(t *testing.T) {
	gateway := &stubCatalogGateway{updated: Item{ID: "ghost", Name: "Ghost", Quantity: IntPtr(1)}}
	store := NewCatalogStore(CatalogOptions{Gateway: gateway})
	store.Seed(sampleItems())
	before := store.Snapshot()

	_, err := store.Update(context.Background(), UpdateRequest{Kind: UpdateProduct, Item: Item{ID: "ghost"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrItemNotInCatalog))
	after := store.Snapshot()
	assert.Equal(t, before.Items, after.Items)
	assert.Equal(t, before.Version, after.Version)
}

func TestCatalogVariantUpdateRequiresIDs(t *testing.T) {
	gateway := &stubCatalogGateway{}
	store := NewCatalogStore(CatalogOptions{Gateway: gateway})
	_, err := store.Update(context.Background(), UpdateRequest{Kind: UpdateVariant, Item: Item{ID: "1"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Empty(t, gateway.sent)
}

func TestCatalogDeleteFailureLeavesCollection(t *testing.T) {
	gateway := &stubCatalogGateway{deleteErr: &Error{Kind: KindNotFound, Message: "gone"}}
	store := NewCatalogStore(CatalogOptions{Gateway: gateway})
	store.Seed(sampleItems())

	err := store.Delete(context.Background(), "1")
	require.Error(t, err)
	assert.Equal(t, 3, store.TotalItems())
	assert.Equal(t, StatusFailed, store.Status(OpDelete).Status)

	gateway.deleteErr = nil
	require.NoError(t, store.Delete(context.Background(), "1"))
	assert.Equal(t, 2, store.TotalItems())
	_, ok := store.Item("1")
	assert.False(t, ok)
}

func TestCatalogTracksAreIndependent(t *testing.T) {
	gateway := &stubCatalogGateway{deleteErr: ErrServer}
	store := NewCatalogStore(CatalogOptions{Gateway: gateway})
	store.Seed(sampleItems())
	_ = store.Delete(context.Background(), "1")

	assert.Equal(t, StatusFailed, store.Status(OpDelete).Status)
	assert.Equal(t, StatusIdle, store.Status(OpCreate).Status)
	assert.Equal(t, StatusIdle, store.Status(OpFetch).Status)
}

func TestCatalogBulkUpdateReplacesReturnedItems(t *testing.T) {
	updated := variantItem("1", 3)
	gateway := &stubCatalogGateway{bulk: BulkUpdateResult{Updated: 1, Items: []Item{updated}}}
	journal := NewChangeJournal(0)
	store := NewCatalogStore(CatalogOptions{Gateway: gateway, Hook: ChangeHooks{journal}})
	store.Seed([]Item{variantItem("1", 40)})

	ctx := ContextWithActor(context.Background(), "ops@example.com")
	_, err := store.BulkUpdate(ctx, []BulkChange{{ProductID: "1", VariantIndex: 0, Field: FieldQuantity, NewValue: 3}})
	require.NoError(t, err)

	item, _ := store.Item("1")
	assert.Equal(t, 3, item.TotalQuantity())
	entries := journal.Entries(ChangeLogFilter{})
	require.Len(t, entries, 1)
	assert.Equal(t, ChangeQuantityUpdate, entries[0].ChangeType)
	assert.Equal(t, LogValue("40"), entries[0].OldValue)
	assert.Equal(t, "ops@example.com", entries[0].User)
}

func TestCatalogSelectors(t *testing.T) {
	store := NewCatalogStore(CatalogOptions{Gateway: &stubCatalogGateway{}})
	store.Seed([]Item{
		{ID: "1", Category: FlatCategory("apparel"), Price: 2, Quantity: IntPtr(4)},
		{ID: "2", Category: StructuredCategory("apparel", "tops"), Price: 1, Variants: []Variant{
			{Inventory: Inventory{Quantity: 1, LowStockThreshold: 5, TrackInventory: true}},
			{Price: 3, Inventory: Inventory{Quantity: 20, LowStockThreshold: 5, TrackInventory: true}},
		}},
		{ID: "3", Category: FlatCategory("shoes"), Quantity: IntPtr(50)},
	})
	assert.Equal(t, 3, store.TotalItems())
	assert.Equal(t, 2, store.LowStockCount())
	assert.Equal(t, 69.0, store.TotalValue())
	assert.Equal(t, 2, store.CategoryCount())
}

const (
	timeoutShort = time.Second
	tick         = 5 * time.Millisecond
)
