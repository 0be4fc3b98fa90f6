package inventory

import (
	core "github.com/goliatone/go-inventory/components/inventory"
)

// Core types re-exported for consumers that only import the facade.
type (
	Item             = core.Item
	Variant          = core.Variant
	Inventory        = core.Inventory
	Identity         = core.Identity
	Credentials      = core.Credentials
	DashboardSummary = core.DashboardSummary
	ViewRequest      = core.ViewRequest
	ViewResult       = core.ViewResult
	FilterCriteria   = core.FilterCriteria
	SortConfig       = core.SortConfig
	UpdateRequest    = core.UpdateRequest
	BulkChange       = core.BulkChange
	ChangeLogEntry   = core.ChangeLogEntry
	ChangeLogFilter  = core.ChangeLogFilter
	LowStockAlert    = core.LowStockAlert
	CategoryTotal    = core.CategoryTotal
	Gateway          = core.Gateway
	KeyValueStore    = core.KeyValueStore
	TokenProvider    = core.TokenProvider
	Telemetry        = core.Telemetry
	Error            = core.Error
	ErrorKind        = core.ErrorKind
	Theme            = core.Theme
)

// Error sentinels re-exported for errors.Is checks.
var (
	ErrValidation      = core.ErrValidation
	ErrUnauthenticated = core.ErrUnauthenticated
	ErrNotFound        = core.ErrNotFound
	ErrServer          = core.ErrServer
	ErrTransport       = core.ErrTransport
)

// Derive proxies to the pure view engine.
func Derive(items []Item, req ViewRequest) ViewResult {
	return core.Derive(items, req)
}
