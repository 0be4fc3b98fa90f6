package inventory

import "context"

// Gateway is the full remote API surface used by the stores, commands and
// queries.
type Gateway interface {
	AuthGateway
	CatalogGateway
	SummarySource
	GetItem(ctx context.Context, id string) (Item, error)
	ChangeLog(ctx context.Context, filter ChangeLogFilter) ([]ChangeLogEntry, error)
}
