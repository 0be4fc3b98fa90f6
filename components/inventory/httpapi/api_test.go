package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/goliatone/go-inventory/components/inventory"
	"github.com/goliatone/go-inventory/components/inventory/commands"
	"github.com/goliatone/go-inventory/components/inventory/queries"
)

type stubCommander[T any] struct {
	last  T
	calls int
	err   error
	fill  func(T)
}

func (s *stubCommander[T]) Execute(ctx context.Context, msg T) error {
	s.last = msg
	s.calls++
	if s.fill != nil {
		s.fill(msg)
	}
	return s.err
}

type stubQuerier[T, R any] struct {
	last   T
	calls  int
	result R
	err    error
}

func (s *stubQuerier[T, R]) Query(ctx context.Context, msg T) (R, error) {
	s.last = msg
	s.calls++
	return s.result, s.err
}

func TestHandleListItemsParsesControls(t *testing.T) {
	view := &stubQuerier[inventory.ViewRequest, inventory.ViewResult]{result: inventory.ViewResult{TotalItems: 1}}
	api := &Handlers{View: view}
	req := httptest.NewRequest(http.MethodGet, "/inventory?search=tee&page=2&sort=pricing.base_price&order=desc&lowStock=true", nil)
	rec := httptest.NewRecorder()
	api.HandleListItems(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := view.last
	if got.Search != "tee" || got.Page != 2 || !got.Filters.LowStock {
		t.Fatalf("unexpected request %#v", got)
	}
	if got.Sort.Key != "pricing.basePrice" || got.Sort.Direction != inventory.SortDescending {
		t.Fatalf("unexpected sort %#v", got.Sort)
	}
}

func TestHandleListItemsRejectsBadParams(t *testing.T) {
	view := &stubQuerier[inventory.ViewRequest, inventory.ViewResult]{}
	api := &Handlers{View: view}
	rec := httptest.NewRecorder()
	api.HandleListItems(rec, httptest.NewRequest(http.MethodGet, "/inventory?stockLevel=plenty", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if view.calls != 0 {
		t.Fatalf("expected query not to run")
	}
}

func TestHandleCreateItem(t *testing.T) {
	create := &stubCommander[commands.CreateItemInput]{fill: func(in commands.CreateItemInput) {
		*in.Result = inventory.Item{ID: "new", Name: in.Item.Name}
	}}
	api := &Handlers{Create: create}
	buf, _ := json.Marshal(inventory.Item{Name: "Cap", SKU: "CAP-1"})
	req := httptest.NewRequest(http.MethodPost, "/inventory", bytes.NewReader(buf))
	req.Header.Set(ActorHeader, "ann@example.com")
	rec := httptest.NewRecorder()
	api.HandleCreateItem(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if create.last.Actor != "ann@example.com" {
		t.Fatalf("expected actor propagation, got %q", create.last.Actor)
	}
	var item inventory.Item
	if err := json.Unmarshal(rec.Body.Bytes(), &item); err != nil || item.ID != "new" {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestHandleCreateItemMapsValidation(t *testing.T) {
	create := &stubCommander[commands.CreateItemInput]{err: inventory.NewValidationError("create item", "sku is required", nil)}
	api := &Handlers{Create: create}
	rec := httptest.NewRecorder()
	api.HandleCreateItem(rec, httptest.NewRequest(http.MethodPost, "/inventory", strings.NewReader(`{"name":"x"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error != "sku is required" || body.Kind != inventory.KindValidation {
		t.Fatalf("unexpected error body %#v", body)
	}
}

func TestHandleUpdateItemBindsPathID(t *testing.T) {
	update := &stubCommander[commands.UpdateItemInput]{}
	api := &Handlers{Update: update}
	req := httptest.NewRequest(http.MethodPut, "/inventory/7", strings.NewReader(`{"item":{"name":"Tee"}}`))
	rec := httptest.NewRecorder()
	api.HandleUpdateItem(rec, req, "7")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if update.last.Request.Item.ID != "7" || update.last.Request.Kind != inventory.UpdateProduct {
		t.Fatalf("unexpected request %#v", update.last.Request)
	}

	rec = httptest.NewRecorder()
	api.HandleUpdateItem(rec, httptest.NewRequest(http.MethodPut, "/inventory/7", strings.NewReader(`{"item":{"id":"8"}}`)), "7")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on mismatched id, got %d", rec.Code)
	}
}

func TestHandleUpdateItemUnmatchedIsConflict(t *testing.T) {
	update := &stubCommander[commands.UpdateItemInput]{err: inventory.ErrItemNotInCatalog}
	api := &Handlers{Update: update}
	rec := httptest.NewRecorder()
	api.HandleUpdateItem(rec, httptest.NewRequest(http.MethodPut, "/inventory/7", strings.NewReader(`{}`)), "7")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestHandleDeleteItem(t *testing.T) {
	del := &stubCommander[commands.DeleteItemInput]{}
	api := &Handlers{Delete: del}
	rec := httptest.NewRecorder()
	api.HandleDeleteItem(rec, httptest.NewRequest(http.MethodDelete, "/inventory/3", nil), "3")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if del.last.ID != "3" {
		t.Fatalf("expected id propagation")
	}
}

func TestHandleBulkUpdate(t *testing.T) {
	bulk := &stubCommander[commands.BulkUpdateInput]{}
	api := &Handlers{Bulk: bulk}
	body := `{"updates":[{"productId":"1","variantIndex":0,"field":"quantity","newValue":4}]}`
	rec := httptest.NewRecorder()
	api.HandleBulkUpdate(rec, httptest.NewRequest(http.MethodPost, "/inventory/bulk-update", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(bulk.last.Changes) != 1 || bulk.last.Changes[0].ProductID != "1" {
		t.Fatalf("unexpected changes %#v", bulk.last.Changes)
	}
}

func TestHandleSummaryUnauthenticated(t *testing.T) {
	summary := &stubQuerier[queries.SummaryInput, inventory.DashboardSummary]{err: inventory.ErrUnauthenticated}
	api := &Handlers{Summary: summary}
	rec := httptest.NewRecorder()
	api.HandleSummary(rec, httptest.NewRequest(http.MethodGet, "/dashboard/summary?cached=true", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !summary.last.Cached {
		t.Fatalf("expected cached flag")
	}
}

func TestHandleCategoryReportHTML(t *testing.T) {
	report := &stubQuerier[queries.CategoryReportInput, queries.CategoryReport]{result: queries.CategoryReport{Chart: "<html>chart</html>"}}
	api := &Handlers{Report: report}
	rec := httptest.NewRecorder()
	api.HandleCategoryReport(rec, httptest.NewRequest(http.MethodGet, "/reports/categories?format=html", nil))
	if !report.last.IncludeChart {
		t.Fatalf("expected chart request")
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("expected html, got %q", ct)
	}
	if rec.Body.String() != "<html>chart</html>" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestHandleChangeLogCSV(t *testing.T) {
	logs := &stubQuerier[inventory.ChangeLogFilter, []inventory.ChangeLogEntry]{result: []inventory.ChangeLogEntry{{ID: "a", ProductName: "Tee"}}}
	api := &Handlers{ChangeLog: logs}
	rec := httptest.NewRecorder()
	api.HandleChangeLog(rec, httptest.NewRequest(http.MethodGet, "/logs?format=csv&dateFrom=2024-03-01&user=ann", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if logs.last.From == nil || logs.last.User != "ann" {
		t.Fatalf("unexpected filter %#v", logs.last)
	}
	if !strings.Contains(rec.Body.String(), "Tee") {
		t.Fatalf("expected csv row, got %q", rec.Body.String())
	}
}

func TestHandleSetThemeToggleWithEmptyBody(t *testing.T) {
	theme := &stubCommander[commands.SetThemeInput]{fill: func(in commands.SetThemeInput) {
		*in.Result = inventory.ThemeDark
	}}
	api := &Handlers{Theme: theme}
	rec := httptest.NewRecorder()
	api.HandleSetTheme(rec, httptest.NewRequest(http.MethodPost, "/theme", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if theme.last.Theme != "" {
		t.Fatalf("expected toggle request")
	}
	if !strings.Contains(rec.Body.String(), `"dark"`) {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestHandleSetThemeExplicit(t *testing.T) {
	theme := &stubCommander[commands.SetThemeInput]{fill: func(in commands.SetThemeInput) {
		*in.Result = in.Theme
	}}
	api := &Handlers{Theme: theme}
	rec := httptest.NewRecorder()
	api.HandleSetTheme(rec, httptest.NewRequest(http.MethodPost, "/theme", strings.NewReader(`{"theme":"dark"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if theme.last.Theme != inventory.ThemeDark {
		t.Fatalf("expected dark, got %q", theme.last.Theme)
	}
	if !strings.Contains(rec.Body.String(), `"dark"`) {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		inventory.ErrValidation:       http.StatusBadRequest,
		inventory.ErrUnauthenticated:  http.StatusUnauthorized,
		inventory.ErrNotFound:         http.StatusNotFound,
		inventory.ErrTransport:        http.StatusBadGateway,
		inventory.ErrServer:           http.StatusInternalServerError,
		errors.New("boom"):            http.StatusInternalServerError,
		inventory.ErrItemNotInCatalog: http.StatusConflict,
	}
	for err, want := range cases {
		if got := StatusFor(err); got != want {
			t.Fatalf("%v: expected %d, got %d", err, want, got)
		}
	}
}

func TestParseChangeLogFilterRejectsBadDate(t *testing.T) {
	values := url.Values{"dateTo": {"03/01/2024"}}
	if _, err := ParseChangeLogFilter(values.Get); !errors.Is(err, inventory.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseViewRequestDefaults(t *testing.T) {
	req, err := ParseViewRequest(url.Values{}.Get)
	if err != nil {
		t.Fatalf("ParseViewRequest returned error: %v", err)
	}
	if req.Page != 1 || req.Sort != inventory.DefaultSort() || !req.Filters.IsEmpty() {
		t.Fatalf("unexpected defaults %#v", req)
	}
}

func TestMountRoutesStaticBeforeID(t *testing.T) {
	view := &stubQuerier[inventory.ViewRequest, inventory.ViewResult]{}
	item := &stubQuerier[queries.ItemInput, inventory.Item]{result: inventory.Item{ID: "abc"}}
	update := &stubCommander[commands.UpdateItemInput]{}
	mux := http.NewServeMux()
	Mount(mux, "/admin/", &Handlers{View: view, Item: item, Update: update}, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/inventory/export", nil))
	if rec.Code != http.StatusOK || view.calls != 1 || item.calls != 0 {
		t.Fatalf("expected export route, got %d view=%d item=%d", rec.Code, view.calls, item.calls)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/inventory/abc", nil))
	if rec.Code != http.StatusOK || item.last.ID != "abc" {
		t.Fatalf("expected item route, got %d %#v", rec.Code, item.last)
	}

	rec = httptest.NewRecorder()
	body := strings.NewReader(`{"inventory":{"quantity":2}}`)
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/admin/inventory/abc/v1", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	req := update.last.Request
	if req.Kind != inventory.UpdateVariant || req.VariantID != "v1" || req.Item.ID != "abc" {
		t.Fatalf("unexpected variant request %#v", req)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/inventory/abc", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected unmounted delete to be rejected, got %d", rec.Code)
	}
}
