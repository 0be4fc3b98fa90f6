package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-inventory/components/inventory"
	"github.com/goliatone/go-inventory/components/inventory/commands"
	"github.com/goliatone/go-inventory/pkg/gateway"
	inventorypkg "github.com/goliatone/go-inventory/pkg/inventory"
)

const (
	exitFailure         = 1
	exitUsage           = 2
	exitUnauthenticated = 3
)

type globals struct {
	Config    string        `type:"path" env:"INVENTORY_CONFIG" help:"YAML config file (defaults to <user config dir>/inventoryctl/config.yaml)."`
	BaseURL   string        `name:"base-url" env:"INVENTORY_BASE_URL" help:"Admin API origin, e.g. https://shop.example.com."`
	APIPrefix string        `name:"api-prefix" env:"INVENTORY_API_PREFIX" help:"Path prefix of the admin API (default /api/admin)."`
	Shape     string        `env:"INVENTORY_SHAPE" help:"Payload shape: auto, canonical or raw."`
	Timeout   time.Duration `env:"INVENTORY_TIMEOUT" help:"Per request timeout."`
	State     string        `type:"path" env:"INVENTORY_STATE" help:"File holding the session and preferences."`
	Mock      bool          `env:"INVENTORY_MOCK" help:"Use the built-in demo catalog instead of a server."`
	LogLevel  string        `name:"log-level" env:"INVENTORY_LOG_LEVEL" help:"debug, info, warn or error."`
	LogFormat string        `name:"log-format" env:"INVENTORY_LOG_FORMAT" help:"console or json."`
	Output    string        `short:"o" enum:"table,json,yaml" default:"table" help:"Output format (table, json, yaml)."`
}

type cli struct {
	Globals globals `embed:""`

	Login  loginCmd  `cmd:"" help:"Sign in and persist the session."`
	Logout logoutCmd `cmd:"" help:"End the session."`
	Whoami whoamiCmd `cmd:"" help:"Show the signed-in user."`

	List     listCmd     `cmd:"" help:"List items with search, filters, sorting and paging."`
	Get      getCmd      `cmd:"" help:"Show one item."`
	Create   createCmd   `cmd:"" help:"Create an item from a JSON file."`
	Update   updateCmd   `cmd:"" help:"Update an item or one of its variants."`
	Delete   deleteCmd   `cmd:"" help:"Delete an item."`
	LowStock lowStockCmd `cmd:"" name:"low-stock" help:"List variants at or below their threshold."`

	Summary summaryCmd `cmd:"" help:"Show dashboard totals."`
	Report  reportCmd  `cmd:"" help:"Show stock totals per category."`
	Logs    logsCmd    `cmd:"" help:"Show the inventory change log."`
	Export  exportCmd  `cmd:"" help:"Export items or the change log as CSV."`

	Template   templateCmd   `cmd:"" help:"Write the bulk upload template."`
	BulkUpdate bulkUpdateCmd `cmd:"" name:"bulk-update" help:"Apply stock changes from a JSON file."`
	Import     importCmd     `cmd:"" help:"Create items from a bulk upload file."`

	Theme themeCmd `cmd:"" help:"Show, set or toggle the theme preference."`
	Serve serveCmd `cmd:"" help:"Serve the inventory API over HTTP."`
}

// runtime carries the wired client into each command's Run method.
type runtime struct {
	ctx    context.Context
	cfg    Config
	logger *zap.Logger
	app    *inventorypkg.App
	out    io.Writer
	in     io.Reader
	output string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var c cli
	parser, err := kong.New(&c,
		kong.Name("inventoryctl"),
		kong.Description("Command line client for the inventory admin API."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		fmt.Fprintf(stderr, "inventoryctl: %v\n", err)
		return exitUsage
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "inventoryctl: %v\n", err)
		return exitUsage
	}

	rt, err := newRuntime(ctx, c.Globals, stdin, stdout, stderr)
	if err != nil {
		return report(stderr, err)
	}
	defer func() { _ = rt.logger.Sync() }()

	if err := kctx.Run(rt); err != nil {
		return report(stderr, err)
	}
	return 0
}

func report(w io.Writer, err error) int {
	if errors.Is(err, inventory.ErrUnauthenticated) {
		fmt.Fprintln(w, "inventoryctl: session expired or missing, run `inventoryctl login`")
		return exitUnauthenticated
	}
	if msg := inventory.MessageOf(err); msg != "" {
		fmt.Fprintf(w, "inventoryctl: %s\n", msg)
	} else {
		fmt.Fprintf(w, "inventoryctl: %v\n", err)
	}
	return exitFailure
}

func newRuntime(ctx context.Context, g globals, stdin io.Reader, stdout, stderr io.Writer) (*runtime, error) {
	path := g.Config
	if path == "" {
		path = defaultConfigPath()
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, err
	}
	cfg.merge(g)
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return nil, err
	}
	telemetry := inventory.NewZapTelemetry(logger)

	store, err := inventory.NewFileKeyValueStore(cfg.StatePath)
	if err != nil {
		return nil, err
	}
	app, err := inventorypkg.New(inventorypkg.Config{
		Gateway:   gatewayFactory(cfg, telemetry),
		Store:     store,
		Telemetry: telemetry,
		Chart:     cfg.chartOptions(),
		CacheTTL:  cfg.CacheTTL,
	})
	if err != nil {
		return nil, err
	}
	if err := app.Bootstrap(ctx); err != nil {
		return nil, err
	}
	logger.Debug("client ready",
		zap.String("base_url", cfg.BaseURL),
		zap.String("api_prefix", cfg.APIPrefix),
		zap.Bool("mock", cfg.Mock),
		zap.String("state", cfg.StatePath),
	)
	return &runtime{
		ctx:    ctx,
		cfg:    cfg,
		logger: logger,
		app:    app,
		out:    stdout,
		in:     stdin,
		output: g.Output,
	}, nil
}

func gatewayFactory(cfg Config, telemetry inventory.Telemetry) inventorypkg.GatewayFactory {
	if cfg.Mock {
		return func(inventory.TokenProvider) (inventory.Gateway, error) {
			return gateway.NewMockGateway(gateway.DemoData(), nil), nil
		}
	}
	return func(tokens inventory.TokenProvider) (inventory.Gateway, error) {
		client, err := gateway.New(gateway.Config{
			BaseURL:   cfg.BaseURL,
			APIPrefix: cfg.APIPrefix,
			Shape:     inventory.ShapeStrategy(cfg.Shape),
			Timeout:   cfg.Timeout,
			Tokens:    tokens,
			Telemetry: telemetry,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// emit writes v as JSON or YAML, or calls table for the default layout.
func (rt *runtime) emit(v any, table func(io.Writer) error) error {
	switch rt.output {
	case "json":
		enc := json.NewEncoder(rt.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		// Round trip through JSON so custom marshalers and json tags apply.
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("inventoryctl: encode output: %w", err)
		}
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("inventoryctl: encode output: %w", err)
		}
		enc := yaml.NewEncoder(rt.out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(doc)
	default:
		return table(rt.out)
	}
}

// refresh loads the server catalog into the local store.
func (rt *runtime) refresh() error {
	return rt.app.API.Refresh.Execute(rt.ctx, commands.RefreshCatalogInput{})
}
