package inventory

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	router "github.com/goliatone/go-router"

	core "github.com/goliatone/go-inventory/components/inventory"
	"github.com/goliatone/go-inventory/components/inventory/commands"
	"github.com/goliatone/go-inventory/components/inventory/gorouter"
	"github.com/goliatone/go-inventory/components/inventory/httpapi"
	"github.com/goliatone/go-inventory/components/inventory/queries"
)

// GatewayFactory builds the remote gateway around the session token source.
type GatewayFactory func(tokens core.TokenProvider) (core.Gateway, error)

// Config wires the stores, commands and queries of an inventory client.
type Config struct {
	Gateway      GatewayFactory
	Store        core.KeyValueStore
	Telemetry    core.Telemetry
	Chart        core.ChartOptions
	CacheTTL     time.Duration
	JournalLimit int
	// SkipValidation sends create and update payloads without the embedded
	// schema check.
	SkipValidation bool
}

// App holds one wired inventory client.
type App struct {
	Gateway     core.Gateway
	Vault       *core.SessionVault
	Session     *core.SessionStore
	Catalog     *core.CatalogStore
	Dashboard   *core.DashboardStore
	Preferences *core.PreferenceStore
	Journal     *core.ChangeJournal
	Broadcast   *core.BroadcastHook
	Chart       *core.CategoryChart

	Login  *commands.LoginCommand
	Logout *commands.LogoutCommand
	API    *httpapi.Handlers
}

// New builds the client. The gateway factory is required; a nil store keeps
// the session and theme in memory.
func New(cfg Config) (*App, error) {
	if cfg.Gateway == nil {
		return nil, errors.New("inventory: gateway factory is required")
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}
	store := cfg.Store
	if store == nil {
		store = core.NewMemoryKeyValueStore()
	}
	telemetry := cfg.Telemetry

	vault := core.NewSessionVault(store)
	gateway, err := cfg.Gateway(vault)
	if err != nil {
		return nil, fmt.Errorf("inventory: build gateway: %w", err)
	}
	if gateway == nil {
		return nil, errors.New("inventory: gateway factory returned nil")
	}

	journal := core.NewChangeJournal(cfg.JournalLimit)
	broadcast := core.NewBroadcastHook()
	catalogOpts := core.CatalogOptions{
		Gateway:   gateway,
		Hook:      core.ChangeHooks{journal, broadcast},
		Telemetry: telemetry,
	}
	if !cfg.SkipValidation {
		catalogOpts.Validator = core.NewJSONSchemaValidator()
	}

	app := &App{
		Gateway:     gateway,
		Vault:       vault,
		Session:     core.NewSessionStore(core.SessionOptions{Gateway: gateway, Vault: vault, Telemetry: telemetry}),
		Catalog:     core.NewCatalogStore(catalogOpts),
		Dashboard:   core.NewDashboardStore(core.NewSummaryService(gateway, telemetry), telemetry),
		Preferences: core.NewPreferenceStore(store),
		Journal:     journal,
		Broadcast:   broadcast,
		Chart:       core.NewCategoryChart(cfg.Chart, core.NewChartCache(cfg.CacheTTL)),
	}
	app.Login = commands.NewLoginCommand(app.Session, telemetry)
	app.Logout = commands.NewLogoutCommand(app.Session, telemetry)
	app.API = &httpapi.Handlers{
		Refresh: commands.NewRefreshCatalogCommand(app.Catalog, telemetry),
		Create:  commands.NewCreateItemCommand(app.Catalog, telemetry),
		Update:  commands.NewUpdateItemCommand(app.Catalog, telemetry),
		Delete:  commands.NewDeleteItemCommand(app.Catalog, telemetry),
		Bulk:    commands.NewBulkUpdateCommand(app.Catalog, telemetry),
		Theme:   commands.NewSetThemeCommand(app.Preferences, telemetry),

		View:      queries.NewInventoryViewQuery(app.Catalog, core.NewViewCache(cfg.CacheTTL)),
		Item:      queries.NewItemQuery(app.Catalog, gateway),
		Summary:   queries.NewSummaryQuery(app.Dashboard),
		LowStock:  queries.NewLowStockQuery(app.Catalog),
		Report:    queries.NewCategoryReportQuery(app.Catalog, app.Chart),
		ChangeLog: queries.NewChangeLogQuery(gateway, journal),
		Actor:     app.requestActor,
	}
	return app, nil
}

// Bootstrap restores the persisted session and loads preferences.
func (a *App) Bootstrap(ctx context.Context) error {
	if err := a.Session.Restore(ctx); err != nil {
		return fmt.Errorf("inventory: restore session: %w", err)
	}
	if _, err := a.Preferences.Load(ctx); err != nil {
		return fmt.Errorf("inventory: load preferences: %w", err)
	}
	return nil
}

// Actor returns the email of the signed-in user, if any.
func (a *App) Actor() string {
	if identity, ok := a.Session.Identity(); ok {
		return identity.Email
	}
	return ""
}

func (a *App) requestActor(r *http.Request) string {
	if actor := r.Header.Get(httpapi.ActorHeader); actor != "" {
		return actor
	}
	return a.Actor()
}

// Mux serves the API and event streams on a standard library mux under base.
func (a *App) Mux(base string) *http.ServeMux {
	mux := http.NewServeMux()
	httpapi.Mount(mux, base, a.API, a.Broadcast)
	return mux
}

// RegisterRoutes mounts the API on a go-router router. Mutations without an
// explicit actor are attributed to the signed-in user.
func RegisterRoutes[T any](a *App, r router.Router[T], base string) error {
	return gorouter.Register(gorouter.Config[T]{
		Router:    r,
		API:       a.API,
		Broadcast: a.Broadcast,
		BasePath:  base,
		ActorResolver: func(ctx gorouter.RequestContext) string {
			if email, ok := ctx.Locals("user_email").(string); ok && email != "" {
				return email
			}
			if actor := ctx.Header(httpapi.ActorHeader); actor != "" {
				return actor
			}
			return a.Actor()
		},
	})
}
