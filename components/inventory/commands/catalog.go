package commands

import (
	"context"
	"errors"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-inventory/components/inventory"
)

type catalogService interface {
	Fetch(ctx context.Context, query inventory.ListQuery) ([]inventory.Item, error)
	Create(ctx context.Context, item inventory.Item) (inventory.Item, error)
	Update(ctx context.Context, req inventory.UpdateRequest) (inventory.Item, error)
	Delete(ctx context.Context, id string) error
	BulkUpdate(ctx context.Context, changes []inventory.BulkChange) (inventory.BulkUpdateResult, error)
}

func withActor(ctx context.Context, actor string) context.Context {
	if actor = strings.TrimSpace(actor); actor != "" {
		return inventory.ContextWithActor(ctx, actor)
	}
	return ctx
}

// RefreshCatalogInput reloads the catalog from the server.
type RefreshCatalogInput struct {
	Query inventory.ListQuery `json:"query"`
}

// RefreshCatalogCommand replaces the local collection with the server list.
type RefreshCatalogCommand struct {
	service   catalogService
	telemetry Telemetry
}

// NewRefreshCatalogCommand creates the command.
func NewRefreshCatalogCommand(service catalogService, telemetry Telemetry) *RefreshCatalogCommand {
	return &RefreshCatalogCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[RefreshCatalogInput] = (*RefreshCatalogCommand)(nil)

// Execute fetches the catalog.
func (c *RefreshCatalogCommand) Execute(ctx context.Context, msg RefreshCatalogInput) error {
	if c.service == nil {
		return errors.New("refresh catalog command requires service")
	}
	items, err := c.service.Fetch(ctx, msg.Query)
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "inventory.command.refresh", map[string]any{
		"search": msg.Query.Search,
		"count":  len(items),
	})
	return nil
}

// CreateItemInput adds an item. Result, when set, receives the stored item.
type CreateItemInput struct {
	Item   inventory.Item  `json:"item"`
	Actor  string          `json:"actor,omitempty"`
	Result *inventory.Item `json:"-"`
}

// CreateItemCommand validates and creates an item.
type CreateItemCommand struct {
	service   catalogService
	telemetry Telemetry
}

// NewCreateItemCommand creates the command.
func NewCreateItemCommand(service catalogService, telemetry Telemetry) *CreateItemCommand {
	return &CreateItemCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[CreateItemInput] = (*CreateItemCommand)(nil)

// Execute creates the item.
func (c *CreateItemCommand) Execute(ctx context.Context, msg CreateItemInput) error {
	if c.service == nil {
		return errors.New("create item command requires service")
	}
	created, err := c.service.Create(withActor(ctx, msg.Actor), msg.Item)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = created
	}
	c.telemetry.Record(ctx, "inventory.command.create", map[string]any{
		"item_id": created.ID,
		"sku":     created.SKU,
		"actor":   msg.Actor,
	})
	return nil
}

// UpdateItemInput replaces an item or one variant.
type UpdateItemInput struct {
	Request inventory.UpdateRequest `json:"request"`
	Actor   string                  `json:"actor,omitempty"`
	Result  *inventory.Item         `json:"-"`
}

// UpdateItemCommand sends an update and applies the server copy.
type UpdateItemCommand struct {
	service   catalogService
	telemetry Telemetry
}

// NewUpdateItemCommand creates the command.
func NewUpdateItemCommand(service catalogService, telemetry Telemetry) *UpdateItemCommand {
	return &UpdateItemCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[UpdateItemInput] = (*UpdateItemCommand)(nil)

// Execute updates the item. An unmatched server item still fills Result.
func (c *UpdateItemCommand) Execute(ctx context.Context, msg UpdateItemInput) error {
	if c.service == nil {
		return errors.New("update item command requires service")
	}
	updated, err := c.service.Update(withActor(ctx, msg.Actor), msg.Request)
	if msg.Result != nil && updated.ID != "" {
		*msg.Result = updated
	}
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "inventory.command.update", map[string]any{
		"item_id": updated.ID,
		"kind":    string(msg.Request.Kind),
		"actor":   msg.Actor,
	})
	return nil
}

// DeleteItemInput removes an item by id.
type DeleteItemInput struct {
	ID    string `json:"id"`
	Actor string `json:"actor,omitempty"`
}

// DeleteItemCommand deletes an item.
type DeleteItemCommand struct {
	service   catalogService
	telemetry Telemetry
}

// NewDeleteItemCommand creates the command.
func NewDeleteItemCommand(service catalogService, telemetry Telemetry) *DeleteItemCommand {
	return &DeleteItemCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[DeleteItemInput] = (*DeleteItemCommand)(nil)

// Execute deletes the item.
func (c *DeleteItemCommand) Execute(ctx context.Context, msg DeleteItemInput) error {
	if c.service == nil {
		return errors.New("delete item command requires service")
	}
	if strings.TrimSpace(msg.ID) == "" {
		return inventory.NewValidationError("delete item", "item id is required", nil)
	}
	if err := c.service.Delete(withActor(ctx, msg.Actor), msg.ID); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "inventory.command.delete", map[string]any{
		"item_id": msg.ID,
		"actor":   msg.Actor,
	})
	return nil
}

// BulkUpdateInput applies stock changes across items.
type BulkUpdateInput struct {
	Changes []inventory.BulkChange      `json:"changes"`
	Actor   string                      `json:"actor,omitempty"`
	Result  *inventory.BulkUpdateResult `json:"-"`
}

// BulkUpdateCommand validates and sends a bulk change list.
type BulkUpdateCommand struct {
	service   catalogService
	telemetry Telemetry
}

// NewBulkUpdateCommand creates the command.
func NewBulkUpdateCommand(service catalogService, telemetry Telemetry) *BulkUpdateCommand {
	return &BulkUpdateCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[BulkUpdateInput] = (*BulkUpdateCommand)(nil)

// Execute sends the changes.
func (c *BulkUpdateCommand) Execute(ctx context.Context, msg BulkUpdateInput) error {
	if c.service == nil {
		return errors.New("bulk update command requires service")
	}
	result, err := c.service.BulkUpdate(withActor(ctx, msg.Actor), msg.Changes)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = result
	}
	c.telemetry.Record(ctx, "inventory.command.bulk_update", map[string]any{
		"changes": len(msg.Changes),
		"updated": result.Updated,
		"actor":   msg.Actor,
	})
	return nil
}
