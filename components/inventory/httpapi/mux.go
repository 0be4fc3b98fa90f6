package httpapi

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-inventory/components/inventory"
)

// Mount registers the handlers on mux under base. Routes whose command or
// query is not set are skipped. A non-nil hook adds the websocket and SSE
// event streams.
func Mount(mux *http.ServeMux, base string, h *Handlers, hook *inventory.BroadcastHook) {
	base = "/" + strings.Trim(base, "/")
	if base == "/" {
		base = ""
	}
	route := func(method, path string, fn http.HandlerFunc) {
		mux.HandleFunc(method+" "+base+path, fn)
	}

	if h.View != nil {
		route(http.MethodGet, "/inventory", h.HandleListItems)
		route(http.MethodGet, "/inventory/export", h.HandleExportItems)
	}
	if h.Refresh != nil {
		route(http.MethodPost, "/inventory/refresh", h.HandleRefresh)
	}
	if h.LowStock != nil {
		route(http.MethodGet, "/inventory/low-stock", h.HandleLowStock)
	}
	if h.Bulk != nil {
		route(http.MethodPost, "/inventory/bulk-update", h.HandleBulkUpdate)
	}
	if h.ChangeLog != nil {
		route(http.MethodGet, "/inventory/logs", h.HandleChangeLog)
	}
	if h.Summary != nil {
		route(http.MethodGet, "/dashboard/summary", h.HandleSummary)
	}
	if h.Report != nil {
		route(http.MethodGet, "/reports/categories", h.HandleCategoryReport)
	}
	if h.Theme != nil {
		route(http.MethodPost, "/preferences/theme", h.HandleSetTheme)
	}
	if h.Create != nil {
		route(http.MethodPost, "/inventory", h.HandleCreateItem)
	}
	if h.Item != nil {
		route(http.MethodGet, "/inventory/{id}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetItem(w, r, r.PathValue("id"))
		})
	}
	if h.Update != nil {
		route(http.MethodPut, "/inventory/{id}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleUpdateItem(w, r, r.PathValue("id"))
		})
		route(http.MethodPut, "/inventory/{id}/{variantId}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleUpdateVariant(w, r, r.PathValue("id"), r.PathValue("variantId"))
		})
	}
	if h.Delete != nil {
		route(http.MethodDelete, "/inventory/{id}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleDeleteItem(w, r, r.PathValue("id"))
		})
	}
	if hook != nil {
		route(http.MethodGet, "/inventory/ws", hook.ServeWebSocket)
		route(http.MethodGet, "/inventory/events", hook.ServeSSE)
	}
}
