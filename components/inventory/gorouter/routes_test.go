package gorouter

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/goliatone/go-inventory/components/inventory"
	"github.com/goliatone/go-inventory/components/inventory/commands"
	"github.com/goliatone/go-inventory/components/inventory/httpapi"
	"github.com/goliatone/go-inventory/components/inventory/queries"
)

func TestRegisterValidatesConfig(t *testing.T) {
	if err := Register(Config[struct{}]{}); err == nil {
		t.Fatalf("expected error when router is missing")
	}
}

func TestDefaultRouteConfigKeepsOverrides(t *testing.T) {
	routes := defaultRouteConfig(RouteConfig{Items: "/stock"})
	if routes.Items != "/stock" {
		t.Fatalf("expected override, got %q", routes.Items)
	}
	if routes.ItemID != "/inventory/:id" || routes.WebSocket != "/inventory/ws" {
		t.Fatalf("unexpected defaults %#v", routes)
	}
}

func TestListItemsHandler(t *testing.T) {
	view := &stubQuerier[inventory.ViewRequest, inventory.ViewResult]{result: inventory.ViewResult{TotalItems: 4}}
	ctx := newMockContext()
	ctx.query["search"] = "tee"
	ctx.query["sort"] = "base_price"

	res := listItems(&httpapi.Handlers{View: view})(ctx)
	if res.status != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.status)
	}
	if view.last.Search != "tee" || view.last.Sort.Key != "basePrice" {
		t.Fatalf("unexpected request %#v", view.last)
	}
}

func TestExportItemsHandlerAnswersCSV(t *testing.T) {
	view := &stubQuerier[inventory.ViewRequest, inventory.ViewResult]{result: inventory.ViewResult{
		Items: []inventory.Item{{ID: "1", Name: "Tee", SKU: "TEE-1", Quantity: inventory.IntPtr(3)}},
	}}
	res := exportItems(&httpapi.Handlers{View: view})(newMockContext())
	if !strings.HasPrefix(res.contentType, "text/csv") {
		t.Fatalf("expected csv, got %q", res.contentType)
	}
	if !strings.Contains(string(res.raw), "TEE-1") {
		t.Fatalf("expected row, got %q", res.raw)
	}
	if view.last.Page != 1 || view.last.PageSize < 1000 {
		t.Fatalf("expected a single page export, got %#v", view.last)
	}
}

func TestUpdateItemHandlerVariantPath(t *testing.T) {
	update := &stubCommander[commands.UpdateItemInput]{}
	ctx := newMockContext()
	ctx.params["id"] = "p1"
	ctx.params["variantId"] = "v2"
	ctx.body = []byte(`{"sku":"P1-M","inventory":{"quantity":4}}`)
	ctx.locals["user_email"] = "ann@example.com"

	res := updateItem(&httpapi.Handlers{Update: update}, defaultActorResolver)(ctx)
	if res.status != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.status)
	}
	req := update.last.Request
	if req.Kind != inventory.UpdateVariant || req.VariantID != "v2" || req.Item.ID != "p1" {
		t.Fatalf("unexpected request %#v", req)
	}
	if req.Variant == nil || req.Variant.Inventory.Available != 4 {
		t.Fatalf("expected decoded variant, got %#v", req.Variant)
	}
	if update.last.Actor != "ann@example.com" {
		t.Fatalf("expected actor from locals, got %q", update.last.Actor)
	}
}

func TestCreateItemHandlerBadBody(t *testing.T) {
	create := &stubCommander[commands.CreateItemInput]{}
	ctx := newMockContext()
	ctx.body = []byte(`{`)
	res := createItem(&httpapi.Handlers{Create: create}, defaultActorResolver)(ctx)
	if res.status != http.StatusBadRequest || create.calls != 0 {
		t.Fatalf("expected 400 without execution, got %d", res.status)
	}
}

func TestDeleteItemHandlerActorHeader(t *testing.T) {
	del := &stubCommander[commands.DeleteItemInput]{}
	ctx := newMockContext()
	ctx.params["id"] = "9"
	ctx.headers[httpapi.ActorHeader] = " ops "
	res := deleteItem(&httpapi.Handlers{Delete: del}, defaultActorResolver)(ctx)
	if res.status != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.status)
	}
	if del.last.ID != "9" || del.last.Actor != "ops" {
		t.Fatalf("unexpected input %#v", del.last)
	}
}

func TestSummaryHandlerMapsErrors(t *testing.T) {
	summaryQuery := &stubQuerier[queries.SummaryInput, inventory.DashboardSummary]{err: inventory.ErrUnauthenticated}
	res := summary(&httpapi.Handlers{Summary: summaryQuery})(newMockContext())
	if res.status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.status)
	}
	body, ok := res.payload.(httpapi.ErrorBody)
	if !ok || body.Kind != inventory.KindUnauthenticated {
		t.Fatalf("unexpected payload %#v", res.payload)
	}
}

func TestCategoryReportHandlerHTML(t *testing.T) {
	report := &stubQuerier[queries.CategoryReportInput, queries.CategoryReport]{result: queries.CategoryReport{Chart: "<div>chart</div>"}}
	ctx := newMockContext()
	ctx.query["format"] = "html"
	res := categoryReport(&httpapi.Handlers{Report: report})(ctx)
	if string(res.raw) != "<div>chart</div>" || !strings.HasPrefix(res.contentType, "text/html") {
		t.Fatalf("unexpected response %#v", res)
	}
}

func TestSetThemeHandlerEmptyBodyToggles(t *testing.T) {
	theme := &stubCommander[commands.SetThemeInput]{}
	res := setTheme(&httpapi.Handlers{Theme: theme})(newMockContext())
	if res.status != http.StatusOK || theme.calls != 1 || theme.last.Theme != "" {
		t.Fatalf("expected toggle, got %d %#v", res.status, theme.last)
	}
}

func TestSetThemeHandlerExplicitTheme(t *testing.T) {
	theme := &stubCommander[commands.SetThemeInput]{}
	ctx := newMockContext()
	ctx.body = []byte(`{"theme":"light"}`)
	res := setTheme(&httpapi.Handlers{Theme: theme})(ctx)
	if res.status != http.StatusOK || theme.last.Theme != inventory.ThemeLight {
		t.Fatalf("expected light, got %d %#v", res.status, theme.last)
	}
}

// --- Test helpers ---

type stubCommander[T any] struct {
	last  T
	calls int
	err   error
}

func (s *stubCommander[T]) Execute(ctx context.Context, msg T) error {
	s.last = msg
	s.calls++
	return s.err
}

type stubQuerier[T, R any] struct {
	last   T
	result R
	err    error
}

func (s *stubQuerier[T, R]) Query(ctx context.Context, msg T) (R, error) {
	s.last = msg
	return s.result, s.err
}

type mockContext struct {
	ctx     context.Context
	headers map[string]string
	query   map[string]string
	params  map[string]string
	locals  map[any]any
	body    []byte
}

var _ RequestContext = (*mockContext)(nil)

func newMockContext() *mockContext {
	return &mockContext{
		ctx:     context.Background(),
		headers: map[string]string{},
		query:   map[string]string{},
		params:  map[string]string{},
		locals:  map[any]any{},
	}
}

func (m *mockContext) Context() context.Context { return m.ctx }

func (m *mockContext) Body() []byte { return m.body }

func (m *mockContext) Header(key string) string { return m.headers[key] }

func (m *mockContext) Param(name string, defaultValue ...string) string {
	return lookupOr(m.params, name, defaultValue)
}

func (m *mockContext) Query(name string, defaultValue ...string) string {
	return lookupOr(m.query, name, defaultValue)
}

func (m *mockContext) Locals(key any, value ...any) any {
	if len(value) == 0 {
		return m.locals[key]
	}
	m.locals[key] = value[0]
	return value[0]
}

func lookupOr(values map[string]string, name string, defaults []string) string {
	if v, ok := values[name]; ok {
		return v
	}
	if len(defaults) > 0 {
		return defaults[0]
	}
	return ""
}
