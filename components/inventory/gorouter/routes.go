package gorouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	router "github.com/goliatone/go-router"

	"github.com/goliatone/go-inventory/components/inventory"
	"github.com/goliatone/go-inventory/components/inventory/commands"
	"github.com/goliatone/go-inventory/components/inventory/httpapi"
	"github.com/goliatone/go-inventory/components/inventory/queries"
)

// RequestContext is the read side of router.Context used by the inventory
// handlers.
type RequestContext interface {
	Context() context.Context
	Param(name string, defaultValue ...string) string
	Query(name string, defaultValue ...string) string
	Header(key string) string
	Body() []byte
	Locals(key any, value ...any) any
}

// ActorResolver names the user a mutation is attributed to.
type ActorResolver func(RequestContext) string

// Config wires go-router with the inventory commands, queries and events.
type Config[T any] struct {
	Router        router.Router[T]
	API           *httpapi.Handlers
	Broadcast     *inventory.BroadcastHook
	ActorResolver ActorResolver
	BasePath      string
	Routes        RouteConfig
}

// RouteConfig customizes the relative paths used for inventory endpoints.
type RouteConfig struct {
	Items     string
	ItemID    string
	VariantID string
	Export    string
	Refresh   string
	LowStock  string
	Bulk      string
	Summary   string
	Report    string
	Logs      string
	Theme     string
	WebSocket string
}

type handler func(RequestContext) response

// response is what a handler answers: JSON payload, or raw bytes with a
// content type.
type response struct {
	status      int
	payload     any
	raw         []byte
	contentType string
}

func jsonResponse(status int, payload any) response {
	return response{status: status, payload: payload}
}

func errorResponse(err error) response {
	return jsonResponse(httpapi.StatusFor(err), httpapi.NewErrorBody(err))
}

func badRequest(err error) response {
	return jsonResponse(http.StatusBadRequest, map[string]string{"error": err.Error()})
}

func wrap(h handler) router.HandlerFunc {
	return router.WrapHandler(func(ctx router.Context) error {
		res := h(ctx)
		if res.raw != nil {
			ctx.SetHeader("Content-Type", res.contentType)
			return ctx.Send(res.raw)
		}
		return ctx.JSON(res.status, res.payload)
	})
}

// Register mounts inventory routes (JSON, CSV, chart HTML, WebSocket) on a
// go-router router. Routes whose command or query is not set are skipped.
// Static paths are mounted before the :id routes.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.API == nil {
		return errors.New("gorouter: api handlers are required")
	}
	routes := defaultRouteConfig(cfg.Routes)
	base := cfg.BasePath
	if base == "" {
		base = "/admin"
	}
	actor := cfg.ActorResolver
	if actor == nil {
		actor = defaultActorResolver
	}
	api := cfg.API
	group := cfg.Router.Group(base)

	if cfg.Broadcast != nil {
		registerWebSocket(group, cfg.Broadcast, routes.WebSocket)
	}
	if api.View != nil {
		group.Get(routes.Export, wrap(exportItems(api)))
		group.Get(routes.Items, wrap(listItems(api)))
	}
	if api.Refresh != nil {
		group.Post(routes.Refresh, wrap(refreshCatalog(api)))
	}
	if api.LowStock != nil {
		group.Get(routes.LowStock, wrap(lowStock(api)))
	}
	if api.Bulk != nil {
		group.Post(routes.Bulk, wrap(bulkUpdate(api, actor)))
	}
	if api.ChangeLog != nil {
		group.Get(routes.Logs, wrap(changeLog(api)))
	}
	if api.Summary != nil {
		group.Get(routes.Summary, wrap(summary(api)))
	}
	if api.Report != nil {
		group.Get(routes.Report, wrap(categoryReport(api)))
	}
	if api.Theme != nil {
		group.Post(routes.Theme, wrap(setTheme(api)))
	}
	if api.Create != nil {
		group.Post(routes.Items, wrap(createItem(api, actor)))
	}
	if api.Item != nil {
		group.Get(routes.ItemID, wrap(getItem(api)))
	}
	if api.Update != nil {
		group.Put(routes.ItemID, wrap(updateItem(api, actor)))
		group.Put(routes.VariantID, wrap(updateItem(api, actor)))
	}
	if api.Delete != nil {
		group.Delete(routes.ItemID, wrap(deleteItem(api, actor)))
	}
	return nil
}

func listItems(api *httpapi.Handlers) handler {
	return func(ctx RequestContext) response {
		req, err := httpapi.ParseViewRequest(queryLookup(ctx))
		if err != nil {
			return errorResponse(err)
		}
		result, err := api.View.Query(ctx.Context(), req)
		if err != nil {
			return errorResponse(err)
		}
		return jsonResponse(http.StatusOK, result)
	}
}

func exportItems(api *httpapi.Handlers) handler {
	return func(ctx RequestContext) response {
		req, err := httpapi.ParseViewRequest(queryLookup(ctx))
		if err != nil {
			return errorResponse(err)
		}
		req.Page, req.PageSize = 1, 1<<30
		result, err := api.View.Query(ctx.Context(), req)
		if err != nil {
			return errorResponse(err)
		}
		var buf bytes.Buffer
		if err := inventory.WriteItemsCSV(&buf, result.Items); err != nil {
			return errorResponse(err)
		}
		return response{status: http.StatusOK, raw: buf.Bytes(), contentType: "text/csv; charset=utf-8"}
	}
}

func refreshCatalog(api *httpapi.Handlers) handler {
	return func(ctx RequestContext) response {
		input := commands.RefreshCatalogInput{Query: inventory.ListQuery{Search: ctx.Query("search")}}
		if err := api.Refresh.Execute(ctx.Context(), input); err != nil {
			return errorResponse(err)
		}
		return jsonResponse(http.StatusOK, map[string]string{"status": "refreshed"})
	}
}

func getItem(api *httpapi.Handlers) handler {
	return func(ctx RequestContext) response {
		item, err := api.Item.Query(ctx.Context(), queries.ItemInput{ID: ctx.Param("id")})
		if err != nil {
			return errorResponse(err)
		}
		return jsonResponse(http.StatusOK, item)
	}
}

func createItem(api *httpapi.Handlers, actor ActorResolver) handler {
	return func(ctx RequestContext) response {
		var item inventory.Item
		if err := json.Unmarshal(ctx.Body(), &item); err != nil {
			return badRequest(err)
		}
		var created inventory.Item
		input := commands.CreateItemInput{Item: item, Actor: actor(ctx), Result: &created}
		if err := api.Create.Execute(ctx.Context(), input); err != nil {
			return errorResponse(err)
		}
		return jsonResponse(http.StatusCreated, created)
	}
}

// updateItem serves both the item and the variant path. On the variant path
// the body is the variant payload.
func updateItem(api *httpapi.Handlers, actor ActorResolver) handler {
	return func(ctx RequestContext) response {
		var req inventory.UpdateRequest
		if variantID := ctx.Param("variantId"); variantID != "" {
			var variant inventory.Variant
			if err := json.Unmarshal(ctx.Body(), &variant); err != nil {
				return badRequest(err)
			}
			req = inventory.UpdateRequest{Kind: inventory.UpdateVariant, VariantID: variantID, Variant: &variant}
		} else if err := json.Unmarshal(ctx.Body(), &req); err != nil {
			return badRequest(err)
		}
		if err := httpapi.BindUpdateTarget(&req, ctx.Param("id")); err != nil {
			return errorResponse(err)
		}
		var updated inventory.Item
		input := commands.UpdateItemInput{Request: req, Actor: actor(ctx), Result: &updated}
		if err := api.Update.Execute(ctx.Context(), input); err != nil {
			return errorResponse(err)
		}
		return jsonResponse(http.StatusOK, updated)
	}
}

func deleteItem(api *httpapi.Handlers, actor ActorResolver) handler {
	return func(ctx RequestContext) response {
		input := commands.DeleteItemInput{ID: ctx.Param("id"), Actor: actor(ctx)}
		if err := api.Delete.Execute(ctx.Context(), input); err != nil {
			return errorResponse(err)
		}
		return jsonResponse(http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func bulkUpdate(api *httpapi.Handlers, actor ActorResolver) handler {
	return func(ctx RequestContext) response {
		var payload httpapi.BulkPayload
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return badRequest(err)
		}
		var result inventory.BulkUpdateResult
		input := commands.BulkUpdateInput{Changes: payload.Updates, Actor: actor(ctx), Result: &result}
		if err := api.Bulk.Execute(ctx.Context(), input); err != nil {
			return errorResponse(err)
		}
		return jsonResponse(http.StatusOK, result)
	}
}

func lowStock(api *httpapi.Handlers) handler {
	return func(ctx RequestContext) response {
		input := queries.LowStockInput{Critical: ctx.Query("critical") == "true"}
		alerts, err := api.LowStock.Query(ctx.Context(), input)
		if err != nil {
			return errorResponse(err)
		}
		return jsonResponse(http.StatusOK, alerts)
	}
}

func summary(api *httpapi.Handlers) handler {
	return func(ctx RequestContext) response {
		input := queries.SummaryInput{Cached: ctx.Query("cached") == "true"}
		result, err := api.Summary.Query(ctx.Context(), input)
		if err != nil {
			return errorResponse(err)
		}
		return jsonResponse(http.StatusOK, result)
	}
}

func categoryReport(api *httpapi.Handlers) handler {
	return func(ctx RequestContext) response {
		html := ctx.Query("format") == "html"
		report, err := api.Report.Query(ctx.Context(), queries.CategoryReportInput{IncludeChart: html})
		if err != nil {
			return errorResponse(err)
		}
		if html {
			return response{status: http.StatusOK, raw: []byte(report.Chart), contentType: "text/html; charset=utf-8"}
		}
		return jsonResponse(http.StatusOK, report)
	}
}

func changeLog(api *httpapi.Handlers) handler {
	return func(ctx RequestContext) response {
		filter, err := httpapi.ParseChangeLogFilter(queryLookup(ctx))
		if err != nil {
			return errorResponse(err)
		}
		entries, err := api.ChangeLog.Query(ctx.Context(), filter)
		if err != nil {
			return errorResponse(err)
		}
		return jsonResponse(http.StatusOK, entries)
	}
}

func setTheme(api *httpapi.Handlers) handler {
	return func(ctx RequestContext) response {
		var payload httpapi.ThemePayload
		if body := ctx.Body(); len(body) > 0 {
			if err := json.Unmarshal(body, &payload); err != nil {
				return badRequest(err)
			}
		}
		var theme inventory.Theme
		if err := api.Theme.Execute(ctx.Context(), commands.SetThemeInput{Theme: payload.Theme, Result: &theme}); err != nil {
			return errorResponse(err)
		}
		return jsonResponse(http.StatusOK, map[string]inventory.Theme{"theme": theme})
	}
}

func registerWebSocket[T any](r router.Router[T], hook *inventory.BroadcastHook, path string) {
	cfg := router.DefaultWebSocketConfig()
	r.WebSocket(path, cfg, func(ws router.WebSocketContext) error {
		kinds, err := inventory.ParseEventKinds(ws.Query("kind"))
		if err != nil {
			return ws.CloseWithStatus(router.ClosePolicyViolation, inventory.MessageOf(err))
		}
		events, cancel := hook.Subscribe(kinds...)
		defer cancel()
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if err := ws.WriteJSON(event); err != nil {
					return err
				}
			case <-ws.Context().Done():
				return ws.Close()
			}
		}
	})
}

func defaultActorResolver(ctx RequestContext) string {
	if email, ok := ctx.Locals("user_email").(string); ok && email != "" {
		return email
	}
	return strings.TrimSpace(ctx.Header(httpapi.ActorHeader))
}

func queryLookup(ctx RequestContext) func(string) string {
	return func(name string) string { return ctx.Query(name) }
}

func defaultRouteConfig(routes RouteConfig) RouteConfig {
	if routes.Items == "" {
		routes.Items = "/inventory"
	}
	if routes.ItemID == "" {
		routes.ItemID = "/inventory/:id"
	}
	if routes.VariantID == "" {
		routes.VariantID = "/inventory/:id/:variantId"
	}
	if routes.Export == "" {
		routes.Export = "/inventory/export"
	}
	if routes.Refresh == "" {
		routes.Refresh = "/inventory/refresh"
	}
	if routes.LowStock == "" {
		routes.LowStock = "/inventory/low-stock"
	}
	if routes.Bulk == "" {
		routes.Bulk = "/inventory/bulk-update"
	}
	if routes.Summary == "" {
		routes.Summary = "/dashboard/summary"
	}
	if routes.Report == "" {
		routes.Report = "/reports/categories"
	}
	if routes.Logs == "" {
		routes.Logs = "/inventory/logs"
	}
	if routes.Theme == "" {
		routes.Theme = "/preferences/theme"
	}
	if routes.WebSocket == "" {
		routes.WebSocket = "/inventory/ws"
	}
	return routes
}
