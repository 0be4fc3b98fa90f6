package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-inventory/components/inventory"
)

// DefaultAPIPrefix is the path every endpoint is mounted under.
const DefaultAPIPrefix = "/api/admin"

const tracerName = "github.com/goliatone/go-inventory/pkg/gateway"

// Config configures the HTTP gateway.
type Config struct {
	BaseURL    string
	APIPrefix  string
	Shape      inventory.ShapeStrategy
	Timeout    time.Duration
	HTTPClient *http.Client
	// Tokens supplies the bearer token and is told when the server rejects it.
	Tokens    inventory.TokenProvider
	Telemetry inventory.Telemetry
}

// Client talks to the inventory admin API over REST.
type Client struct {
	baseURL   string
	prefix    string
	shape     inventory.ShapeStrategy
	http      *resty.Client
	tokens    inventory.TokenProvider
	telemetry inventory.Telemetry
	tracer    trace.Tracer
}

var _ inventory.Gateway = (*Client)(nil)

// New builds a gateway client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("gateway: base url is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("gateway: invalid base url %q: %w", cfg.BaseURL, err)
	}
	prefix := cfg.APIPrefix
	if prefix == "" {
		prefix = DefaultAPIPrefix
	}
	prefix = "/" + strings.Trim(prefix, "/")
	if prefix == "/" {
		prefix = ""
	}
	shape := cfg.Shape
	if shape == "" {
		shape = inventory.ShapeAuto
	}
	var rc *resty.Client
	if cfg.HTTPClient != nil {
		rc = resty.NewWithClient(cfg.HTTPClient)
	} else {
		rc = resty.New()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rc.SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")

	telemetry := cfg.Telemetry
	if telemetry == nil {
		telemetry = noopTelemetry{}
	}
	return &Client{
		baseURL:   base,
		prefix:    prefix,
		shape:     shape,
		http:      rc,
		tokens:    cfg.Tokens,
		telemetry: telemetry,
		tracer:    otel.Tracer(tracerName),
	}, nil
}

type noopTelemetry struct{}

func (noopTelemetry) Record(context.Context, string, map[string]any) {}

// call describes one API request.
type call struct {
	op        string
	method    string
	path      string
	query     map[string]string
	body      any
	anonymous bool
}

// do executes c and returns the raw body of a 2xx response. Non-2xx answers
// become *inventory.Error values; a 401 invalidates the token that was sent.
func (c *Client) do(ctx context.Context, req call) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "inventory.gateway."+req.op, trace.WithAttributes(
		attribute.String("http.method", req.method),
		attribute.String("http.route", c.prefix+req.path),
	))
	defer span.End()

	r := c.http.R().SetContext(ctx)
	var sent string
	if !req.anonymous && c.tokens != nil {
		if sent = c.tokens.Token(); sent != "" {
			r.SetAuthToken(sent)
		}
	}
	if len(req.query) > 0 {
		r.SetQueryParams(req.query)
	}
	if req.body != nil {
		r.SetBody(req.body)
	}

	resp, err := r.Execute(req.method, c.baseURL+c.prefix+req.path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		c.telemetry.Record(ctx, "inventory.gateway.transport_failed", map[string]any{"op": req.op, "error": err})
		return nil, &inventory.Error{Kind: inventory.KindTransport, Op: req.op, Message: transportMessage(err), Err: err}
	}

	status := resp.StatusCode()
	span.SetAttributes(attribute.Int("http.status_code", status))
	if resp.IsSuccess() {
		return resp.Body(), nil
	}

	apiErr := statusError(req.op, status, resp.Body())
	span.RecordError(apiErr)
	span.SetStatus(codes.Error, apiErr.Message)
	if status == http.StatusUnauthorized && c.tokens != nil {
		if c.tokens.Invalidate(ctx, sent) {
			c.telemetry.Record(ctx, "inventory.gateway.session_invalidated", map[string]any{"op": req.op})
		}
	}
	c.telemetry.Record(ctx, "inventory.gateway.request_failed", map[string]any{"op": req.op, "status": status, "error": apiErr})
	return nil, apiErr
}

func transportMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	if errors.Is(err, context.Canceled) {
		return "request canceled"
	}
	return "server unreachable"
}

func statusError(op string, status int, body []byte) *inventory.Error {
	kind := inventory.KindServer
	switch status {
	case http.StatusUnauthorized:
		kind = inventory.KindUnauthenticated
	case http.StatusNotFound:
		kind = inventory.KindNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		kind = inventory.KindValidation
	}
	return &inventory.Error{Kind: kind, Op: op, Status: status, Message: serverMessage(status, body)}
}

func serverMessage(status int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	if text := http.StatusText(status); text != "" {
		return strings.ToLower(text)
	}
	return "request failed with status " + strconv.Itoa(status)
}

func decodeError(op string, err error) error {
	return &inventory.Error{Kind: inventory.KindServer, Op: op, Message: "unexpected response payload", Err: err}
}

// Login exchanges credentials for a session. The request carries no token.
func (c *Client) Login(ctx context.Context, creds inventory.Credentials) (inventory.Session, error) {
	body, err := c.do(ctx, call{op: "login", method: http.MethodPost, path: "/login", body: creds, anonymous: true})
	if err != nil {
		return inventory.Session{}, err
	}
	session, err := decodeSession(body)
	if err != nil {
		return inventory.Session{}, decodeError("login", err)
	}
	if session.Token == "" {
		return inventory.Session{}, &inventory.Error{Kind: inventory.KindServer, Op: "login", Message: "login response carried no token"}
	}
	return session, nil
}

// CurrentIdentity asks the server who the token belongs to.
func (c *Client) CurrentIdentity(ctx context.Context) (inventory.Identity, error) {
	body, err := c.do(ctx, call{op: "me", method: http.MethodGet, path: "/me"})
	if err != nil {
		return inventory.Identity{}, err
	}
	identity, err := decodeIdentity(body)
	if err != nil {
		return inventory.Identity{}, decodeError("me", err)
	}
	return identity, nil
}

// Logout ends the server session.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, call{op: "logout", method: http.MethodPost, path: "/logout"})
	return err
}

// ListItems returns one page of the catalog.
func (c *Client) ListItems(ctx context.Context, query inventory.ListQuery) (inventory.ItemPage, error) {
	params := map[string]string{}
	if s := strings.TrimSpace(query.Search); s != "" {
		params["search"] = s
	}
	if query.Sort != "" {
		params["sort"] = query.Sort
	}
	if query.Page > 0 {
		params["page"] = strconv.Itoa(query.Page)
	}
	if query.Limit > 0 {
		params["limit"] = strconv.Itoa(query.Limit)
	}
	body, err := c.do(ctx, call{op: "list_items", method: http.MethodGet, path: "/inventory", query: params})
	if err != nil {
		return inventory.ItemPage{}, err
	}
	page, err := c.shape.DecodeItems(body)
	if err != nil {
		return inventory.ItemPage{}, decodeError("list_items", err)
	}
	return page, nil
}

// GetItem fetches one item.
func (c *Client) GetItem(ctx context.Context, id string) (inventory.Item, error) {
	if id == "" {
		return inventory.Item{}, inventory.NewValidationError("get_item", "item id is required", nil)
	}
	body, err := c.do(ctx, call{op: "get_item", method: http.MethodGet, path: "/inventory/" + url.PathEscape(id)})
	if err != nil {
		return inventory.Item{}, err
	}
	return c.decodeItem("get_item", body)
}

// CreateItem posts a new item and returns the stored copy.
func (c *Client) CreateItem(ctx context.Context, item inventory.Item) (inventory.Item, error) {
	body, err := c.do(ctx, call{op: "create_item", method: http.MethodPost, path: "/inventory", body: item})
	if err != nil {
		return inventory.Item{}, err
	}
	return c.decodeItem("create_item", body)
}

// UpdateItem sends a whole-product or variant-scoped update.
func (c *Client) UpdateItem(ctx context.Context, req inventory.UpdateRequest) (inventory.Item, error) {
	if req.Item.ID == "" {
		return inventory.Item{}, inventory.NewValidationError("update_item", "item id is required", nil)
	}
	path := "/inventory/" + url.PathEscape(req.Item.ID)
	var payload any = req.Item
	op := "update_item"
	if req.Kind == inventory.UpdateVariant {
		if req.VariantID == "" || req.Variant == nil {
			return inventory.Item{}, inventory.NewValidationError("update_variant", "variant id and payload are required", nil)
		}
		path += "/" + url.PathEscape(req.VariantID)
		payload = req.Variant
		op = "update_variant"
	}
	body, err := c.do(ctx, call{op: op, method: http.MethodPut, path: path, body: payload})
	if err != nil {
		return inventory.Item{}, err
	}
	return c.decodeItem(op, body)
}

// DeleteItem removes an item.
func (c *Client) DeleteItem(ctx context.Context, id string) error {
	if id == "" {
		return inventory.NewValidationError("delete_item", "item id is required", nil)
	}
	_, err := c.do(ctx, call{op: "delete_item", method: http.MethodDelete, path: "/inventory/" + url.PathEscape(id)})
	return err
}

// BulkUpdate applies stock changes across items.
func (c *Client) BulkUpdate(ctx context.Context, changes []inventory.BulkChange) (inventory.BulkUpdateResult, error) {
	body, err := c.do(ctx, call{op: "bulk_update", method: http.MethodPost, path: "/inventory/bulk-update", body: map[string]any{"updates": changes}})
	if err != nil {
		return inventory.BulkUpdateResult{}, err
	}
	result, err := decodeBulkResult(body, c.shape)
	if err != nil {
		return inventory.BulkUpdateResult{}, decodeError("bulk_update", err)
	}
	return result, nil
}

// LowStockItems lists items the server flags as low on stock.
func (c *Client) LowStockItems(ctx context.Context) ([]inventory.Item, error) {
	body, err := c.do(ctx, call{op: "low_stock", method: http.MethodGet, path: "/inventory/low-stock"})
	if err != nil {
		return nil, err
	}
	page, err := c.shape.DecodeItems(body)
	if err != nil {
		return nil, decodeError("low_stock", err)
	}
	return page.Items, nil
}

// ChangeLog fetches stock change entries matching filter.
func (c *Client) ChangeLog(ctx context.Context, filter inventory.ChangeLogFilter) ([]inventory.ChangeLogEntry, error) {
	params := map[string]string{}
	if filter.From != nil {
		params["dateFrom"] = filter.From.Format(time.DateOnly)
	}
	if filter.To != nil {
		params["dateTo"] = filter.To.Format(time.DateOnly)
	}
	if filter.ProductID != "" {
		params["productId"] = filter.ProductID
	}
	if filter.ChangeType != "" {
		params["changeType"] = string(filter.ChangeType)
	}
	if filter.User != "" {
		params["user"] = filter.User
	}
	body, err := c.do(ctx, call{op: "change_log", method: http.MethodGet, path: "/inventory/logs", query: params})
	if err != nil {
		return nil, err
	}
	entries, err := decodeChangeLog(body)
	if err != nil {
		return nil, decodeError("change_log", err)
	}
	return inventory.FilterChangeLog(entries, filter), nil
}

// DashboardSummary fetches the server-computed totals.
func (c *Client) DashboardSummary(ctx context.Context) (inventory.DashboardSummary, error) {
	body, err := c.do(ctx, call{op: "dashboard", method: http.MethodGet, path: "/dashboard"})
	if err != nil {
		return inventory.DashboardSummary{}, err
	}
	summary, err := c.shape.DecodeSummary(body)
	if err != nil {
		return inventory.DashboardSummary{}, decodeError("dashboard", err)
	}
	return summary, nil
}

// ListProducts lists up to limit products for summary aggregation.
func (c *Client) ListProducts(ctx context.Context, limit int) ([]inventory.Item, error) {
	body, err := c.do(ctx, call{op: "list_products", method: http.MethodGet, path: "/products", query: limitQuery(limit)})
	if err != nil {
		return nil, err
	}
	page, err := c.shape.DecodeItems(body)
	if err != nil {
		return nil, decodeError("list_products", err)
	}
	return page.Items, nil
}

// ListOrders lists up to limit orders for summary aggregation.
func (c *Client) ListOrders(ctx context.Context, limit int) ([]inventory.Order, error) {
	body, err := c.do(ctx, call{op: "list_orders", method: http.MethodGet, path: "/orders", query: limitQuery(limit)})
	if err != nil {
		return nil, err
	}
	orders, err := c.shape.DecodeOrders(body)
	if err != nil {
		return nil, decodeError("list_orders", err)
	}
	return orders, nil
}

func limitQuery(limit int) map[string]string {
	if limit <= 0 {
		return nil
	}
	return map[string]string{"limit": strconv.Itoa(limit)}
}

func (c *Client) decodeItem(op string, body []byte) (inventory.Item, error) {
	item, err := c.shape.DecodeItem(body)
	if err != nil {
		return inventory.Item{}, decodeError(op, err)
	}
	return item, nil
}
