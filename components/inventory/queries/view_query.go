package queries

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-inventory/components/inventory"
)

type snapshotSource interface {
	Snapshot() inventory.CatalogSnapshot
}

// InventoryViewQuery derives a page of the catalog from the current snapshot.
type InventoryViewQuery struct {
	source snapshotSource
	cache  *inventory.ViewCache
}

// NewInventoryViewQuery builds the query. A nil cache derives on every call.
func NewInventoryViewQuery(source snapshotSource, cache *inventory.ViewCache) *InventoryViewQuery {
	return &InventoryViewQuery{source: source, cache: cache}
}

var _ gocommand.Querier[inventory.ViewRequest, inventory.ViewResult] = (*InventoryViewQuery)(nil)

// Query returns the derived view for req.
func (q *InventoryViewQuery) Query(_ context.Context, req inventory.ViewRequest) (inventory.ViewResult, error) {
	if q.source == nil {
		return inventory.ViewResult{}, errors.New("inventory view query requires source")
	}
	snap := q.source.Snapshot()
	if q.cache == nil {
		return inventory.Derive(snap.Items, req), nil
	}
	return q.cache.Derive(snap.Version, snap.Items, req), nil
}

// ItemInput selects one catalog item.
type ItemInput struct {
	ID string `json:"id"`
}

type itemSource interface {
	Item(id string) (inventory.Item, bool)
}

type itemFetcher interface {
	GetItem(ctx context.Context, id string) (inventory.Item, error)
}

// ItemQuery returns an item from the local catalog, asking the server when
// it is not loaded.
type ItemQuery struct {
	local  itemSource
	remote itemFetcher
}

// NewItemQuery builds the query. Either source may be nil.
func NewItemQuery(local itemSource, remote itemFetcher) *ItemQuery {
	return &ItemQuery{local: local, remote: remote}
}

var _ gocommand.Querier[ItemInput, inventory.Item] = (*ItemQuery)(nil)

// Query resolves the item.
func (q *ItemQuery) Query(ctx context.Context, in ItemInput) (inventory.Item, error) {
	if in.ID == "" {
		return inventory.Item{}, inventory.NewValidationError("get item", "item id is required", nil)
	}
	if q.local != nil {
		if item, ok := q.local.Item(in.ID); ok {
			return item, nil
		}
	}
	if q.remote == nil {
		return inventory.Item{}, &inventory.Error{Kind: inventory.KindNotFound, Op: "get item", Message: "item " + in.ID + " not found"}
	}
	return q.remote.GetItem(ctx, in.ID)
}
