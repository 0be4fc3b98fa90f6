package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-inventory/components/inventory"
	"github.com/goliatone/go-inventory/components/inventory/commands"
	"github.com/goliatone/go-inventory/components/inventory/queries"
)

// ActorHeader names the request header that attributes mutations to a user.
const ActorHeader = "X-Inventory-Actor"

// exportPageSize is large enough to hold any catalog in one page.
const exportPageSize = 1 << 30

// Handlers exposes HTTP endpoints backed by shared commands and queries.
type Handlers struct {
	Refresh gocommand.Commander[commands.RefreshCatalogInput]
	Create  gocommand.Commander[commands.CreateItemInput]
	Update  gocommand.Commander[commands.UpdateItemInput]
	Delete  gocommand.Commander[commands.DeleteItemInput]
	Bulk    gocommand.Commander[commands.BulkUpdateInput]
	Theme   gocommand.Commander[commands.SetThemeInput]

	View      gocommand.Querier[inventory.ViewRequest, inventory.ViewResult]
	Item      gocommand.Querier[queries.ItemInput, inventory.Item]
	Summary   gocommand.Querier[queries.SummaryInput, inventory.DashboardSummary]
	LowStock  gocommand.Querier[queries.LowStockInput, []inventory.LowStockAlert]
	Report    gocommand.Querier[queries.CategoryReportInput, queries.CategoryReport]
	ChangeLog gocommand.Querier[inventory.ChangeLogFilter, []inventory.ChangeLogEntry]

	// Actor resolves the user a mutation is attributed to. Defaults to ActorHeader.
	Actor func(*http.Request) string
}

func (h *Handlers) HandleListItems(w http.ResponseWriter, r *http.Request) {
	req, err := ParseViewRequest(r.URL.Query().Get)
	if err != nil {
		WriteError(w, err)
		return
	}
	result, err := h.View.Query(r.Context(), req)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) HandleExportItems(w http.ResponseWriter, r *http.Request) {
	req, err := ParseViewRequest(r.URL.Query().Get)
	if err != nil {
		WriteError(w, err)
		return
	}
	req.Page, req.PageSize = 1, exportPageSize
	result, err := h.View.Query(r.Context(), req)
	if err != nil {
		WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="inventory.csv"`)
	if err := inventory.WriteItemsCSV(w, result.Items); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handlers) HandleGetItem(w http.ResponseWriter, r *http.Request, id string) {
	item, err := h.Item.Query(r.Context(), queries.ItemInput{ID: id})
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	input := commands.RefreshCatalogInput{Query: inventory.ListQuery{Search: r.URL.Query().Get("search")}}
	if err := h.Refresh.Execute(r.Context(), input); err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

func (h *Handlers) HandleCreateItem(w http.ResponseWriter, r *http.Request) {
	var item inventory.Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var created inventory.Item
	input := commands.CreateItemInput{Item: item, Actor: h.actor(r), Result: &created}
	if err := h.Create.Execute(r.Context(), input); err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handlers) HandleUpdateItem(w http.ResponseWriter, r *http.Request, id string) {
	var req inventory.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := BindUpdateTarget(&req, id); err != nil {
		WriteError(w, err)
		return
	}
	var updated inventory.Item
	input := commands.UpdateItemInput{Request: req, Actor: h.actor(r), Result: &updated}
	if err := h.Update.Execute(r.Context(), input); err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// HandleUpdateVariant updates one variant; the body is the variant payload.
func (h *Handlers) HandleUpdateVariant(w http.ResponseWriter, r *http.Request, id, variantID string) {
	var variant inventory.Variant
	if err := json.NewDecoder(r.Body).Decode(&variant); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req := inventory.UpdateRequest{Kind: inventory.UpdateVariant, VariantID: variantID, Variant: &variant}
	if err := BindUpdateTarget(&req, id); err != nil {
		WriteError(w, err)
		return
	}
	var updated inventory.Item
	input := commands.UpdateItemInput{Request: req, Actor: h.actor(r), Result: &updated}
	if err := h.Update.Execute(r.Context(), input); err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handlers) HandleDeleteItem(w http.ResponseWriter, r *http.Request, id string) {
	input := commands.DeleteItemInput{ID: id, Actor: h.actor(r)}
	if err := h.Delete.Execute(r.Context(), input); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BulkPayload is the bulk update request body.
type BulkPayload struct {
	Updates []inventory.BulkChange `json:"updates"`
}

func (h *Handlers) HandleBulkUpdate(w http.ResponseWriter, r *http.Request) {
	var payload BulkPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var result inventory.BulkUpdateResult
	input := commands.BulkUpdateInput{Changes: payload.Updates, Actor: h.actor(r), Result: &result}
	if err := h.Bulk.Execute(r.Context(), input); err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) HandleLowStock(w http.ResponseWriter, r *http.Request) {
	critical, err := parseBool(r.URL.Query().Get("critical"))
	if err != nil {
		WriteError(w, err)
		return
	}
	alerts, err := h.LowStock.Query(r.Context(), queries.LowStockInput{Critical: critical})
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (h *Handlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	cached, err := parseBool(r.URL.Query().Get("cached"))
	if err != nil {
		WriteError(w, err)
		return
	}
	summary, err := h.Summary.Query(r.Context(), queries.SummaryInput{Cached: cached})
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// HandleCategoryReport answers JSON totals, or the chart page when format=html.
func (h *Handlers) HandleCategoryReport(w http.ResponseWriter, r *http.Request) {
	html := r.URL.Query().Get("format") == "html"
	report, err := h.Report.Query(r.Context(), queries.CategoryReportInput{IncludeChart: html})
	if err != nil {
		WriteError(w, err)
		return
	}
	if html {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(report.Chart))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handlers) HandleChangeLog(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseChangeLogFilter(r.URL.Query().Get)
	if err != nil {
		WriteError(w, err)
		return
	}
	entries, err := h.ChangeLog.Query(r.Context(), filter)
	if err != nil {
		WriteError(w, err)
		return
	}
	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		if err := inventory.WriteChangeLogCSV(w, entries); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// ThemePayload sets the theme. An empty theme toggles.
type ThemePayload struct {
	Theme inventory.Theme `json:"theme"`
}

func (h *Handlers) HandleSetTheme(w http.ResponseWriter, r *http.Request) {
	var payload ThemePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var theme inventory.Theme
	if err := h.Theme.Execute(r.Context(), commands.SetThemeInput{Theme: payload.Theme, Result: &theme}); err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]inventory.Theme{"theme": theme})
}

func (h *Handlers) actor(r *http.Request) string {
	if h.Actor != nil {
		return h.Actor(r)
	}
	return r.Header.Get(ActorHeader)
}

// BindUpdateTarget fills the item id from the path and rejects a body that
// addresses another item.
func BindUpdateTarget(req *inventory.UpdateRequest, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return inventory.NewValidationError("update item", "item id is required", nil)
	}
	switch req.Item.ID {
	case "":
		req.Item.ID = id
	case id:
	default:
		return inventory.NewValidationError("update item", "item id does not match the path", nil)
	}
	if req.Kind == "" {
		req.Kind = inventory.UpdateProduct
	}
	return nil
}

// StatusFor maps an error kind to the HTTP status answered to clients.
func StatusFor(err error) int {
	if errors.Is(err, inventory.ErrItemNotInCatalog) {
		return http.StatusConflict
	}
	switch inventory.KindOf(err) {
	case inventory.KindValidation:
		return http.StatusBadRequest
	case inventory.KindUnauthenticated:
		return http.StatusUnauthorized
	case inventory.KindNotFound:
		return http.StatusNotFound
	case inventory.KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error string              `json:"error"`
	Kind  inventory.ErrorKind `json:"kind,omitempty"`
}

// NewErrorBody describes err for clients.
func NewErrorBody(err error) ErrorBody {
	body := ErrorBody{Error: inventory.MessageOf(err)}
	var typed *inventory.Error
	if errors.As(err, &typed) {
		body.Kind = typed.Kind
	}
	return body
}

// WriteError answers err with its mapped status and the JSON envelope.
func WriteError(w http.ResponseWriter, err error) {
	writeJSON(w, StatusFor(err), NewErrorBody(err))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func parseBool(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, inventory.NewValidationError("parse query", "invalid boolean "+strconv.Quote(raw), err)
	}
	return v, nil
}
