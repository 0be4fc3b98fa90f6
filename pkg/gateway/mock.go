package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-inventory/components/inventory"
)

// MockAccount is a login accepted by the mock gateway.
type MockAccount struct {
	Password string
	Identity inventory.Identity
}

// MockData seeds deterministic responses for tests or local demos. A nil
// Summary makes DashboardSummary answer NotFound so callers aggregate.
type MockData struct {
	Accounts map[string]MockAccount
	Items    []inventory.Item
	Orders   []inventory.Order
	Summary  *inventory.DashboardSummary
	Logs     []inventory.ChangeLogEntry
}

// MockGateway implements inventory.Gateway using in-memory fixtures.
type MockGateway struct {
	mu       sync.RWMutex
	data     MockData
	sessions map[string]inventory.Identity
	tokens   inventory.TokenProvider
	now      func() time.Time
}

var _ inventory.Gateway = (*MockGateway)(nil)

// NewMockGateway builds a mock gateway from the provided fixtures. When
// tokens is set, calls other than Login require a token it issued and a
// rejected token is invalidated the way the HTTP client does on a 401.
func NewMockGateway(data MockData, tokens inventory.TokenProvider) *MockGateway {
	seeded := MockData{
		Accounts: make(map[string]MockAccount, len(data.Accounts)),
		Items:    cloneItemList(data.Items),
		Orders:   append([]inventory.Order(nil), data.Orders...),
		Logs:     append([]inventory.ChangeLogEntry(nil), data.Logs...),
	}
	for email, account := range data.Accounts {
		seeded.Accounts[strings.ToLower(email)] = account
	}
	if data.Summary != nil {
		summary := *data.Summary
		seeded.Summary = &summary
	}
	return &MockGateway{
		data:     seeded,
		sessions: make(map[string]inventory.Identity),
		tokens:   tokens,
		now:      time.Now,
	}
}

func (m *MockGateway) authorize(ctx context.Context, op string) (inventory.Identity, error) {
	if m.tokens == nil {
		return inventory.Identity{}, nil
	}
	token := m.tokens.Token()
	m.mu.RLock()
	identity, ok := m.sessions[token]
	m.mu.RUnlock()
	if ok {
		return identity, nil
	}
	m.tokens.Invalidate(ctx, token)
	return inventory.Identity{}, &inventory.Error{Kind: inventory.KindUnauthenticated, Op: op, Status: 401, Message: "not authorized, token failed"}
}

func notFound(op, id string) error {
	return &inventory.Error{Kind: inventory.KindNotFound, Op: op, Status: 404, Message: fmt.Sprintf("item %s not found", id)}
}

// Login checks credentials against the configured accounts.
func (m *MockGateway) Login(_ context.Context, creds inventory.Credentials) (inventory.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.data.Accounts[strings.ToLower(strings.TrimSpace(creds.Email))]
	if !ok || account.Password != creds.Password {
		return inventory.Session{}, &inventory.Error{Kind: inventory.KindUnauthenticated, Op: "login", Status: 401, Message: "invalid email or password"}
	}
	token := uuid.NewString()
	m.sessions[token] = account.Identity
	return inventory.Session{User: account.Identity, Token: token}, nil
}

// CurrentIdentity returns the identity bound to the current token.
func (m *MockGateway) CurrentIdentity(ctx context.Context) (inventory.Identity, error) {
	return m.authorize(ctx, "me")
}

// Logout forgets the current token.
func (m *MockGateway) Logout(ctx context.Context) error {
	if _, err := m.authorize(ctx, "logout"); err != nil {
		return err
	}
	if m.tokens != nil {
		m.mu.Lock()
		delete(m.sessions, m.tokens.Token())
		m.mu.Unlock()
	}
	return nil
}

// ListItems applies the server-side search, sort and pagination.
func (m *MockGateway) ListItems(ctx context.Context, query inventory.ListQuery) (inventory.ItemPage, error) {
	if _, err := m.authorize(ctx, "list_items"); err != nil {
		return inventory.ItemPage{}, err
	}
	m.mu.RLock()
	items := inventory.SearchItems(cloneItemList(m.data.Items), query.Search)
	m.mu.RUnlock()

	if key := strings.TrimSpace(query.Sort); key != "" {
		cfg := inventory.SortConfig{Key: key, Direction: inventory.SortAscending}
		if strings.HasPrefix(key, "-") {
			cfg = inventory.SortConfig{Key: key[1:], Direction: inventory.SortDescending}
		}
		inventory.SortItems(items, cfg)
	}
	if query.Limit <= 0 && query.Page <= 0 {
		return inventory.ItemPage{Items: items}, nil
	}
	limit := query.Limit
	if limit <= 0 {
		limit = inventory.DefaultPageSize
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}
	return inventory.ItemPage{
		Items: inventory.Paginate(items, page, limit),
		Pagination: &inventory.Pagination{
			TotalItems:  len(items),
			TotalPages:  inventory.TotalPages(len(items), limit),
			CurrentPage: page,
			Limit:       limit,
		},
	}, nil
}

// GetItem returns one item.
func (m *MockGateway) GetItem(ctx context.Context, id string) (inventory.Item, error) {
	if _, err := m.authorize(ctx, "get_item"); err != nil {
		return inventory.Item{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx := m.indexOf(id)
	if idx < 0 {
		return inventory.Item{}, notFound("get_item", id)
	}
	return m.data.Items[idx].Clone(), nil
}

// CreateItem stores item under a fresh id.
func (m *MockGateway) CreateItem(ctx context.Context, item inventory.Item) (inventory.Item, error) {
	if _, err := m.authorize(ctx, "create_item"); err != nil {
		return inventory.Item{}, err
	}
	if strings.TrimSpace(item.Name) == "" {
		return inventory.Item{}, &inventory.Error{Kind: inventory.KindValidation, Op: "create_item", Status: 400, Message: "name is required"}
	}
	stored := item.Clone()
	stored.ID = uuid.NewString()
	for i := range stored.Variants {
		if stored.Variants[i].ID == "" {
			stored.Variants[i].ID = uuid.NewString()
		}
		stored.Variants[i].Inventory.Recompute()
	}
	m.mu.Lock()
	m.data.Items = append(m.data.Items, stored)
	m.mu.Unlock()
	return stored.Clone(), nil
}

// UpdateItem replaces an item or one of its variants.
func (m *MockGateway) UpdateItem(ctx context.Context, req inventory.UpdateRequest) (inventory.Item, error) {
	identity, err := m.authorize(ctx, "update_item")
	if err != nil {
		return inventory.Item{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexOf(req.Item.ID)
	if idx < 0 {
		return inventory.Item{}, notFound("update_item", req.Item.ID)
	}
	before := m.data.Items[idx].Clone()
	next := req.Item.Clone()
	if req.Kind == inventory.UpdateVariant {
		if req.Variant == nil {
			return inventory.Item{}, &inventory.Error{Kind: inventory.KindValidation, Op: "update_variant", Status: 400, Message: "variant payload is required"}
		}
		next = before.Clone()
		found := false
		for i := range next.Variants {
			if next.Variants[i].ID == req.VariantID {
				variant := *req.Variant
				variant.ID = req.VariantID
				variant.Inventory.Recompute()
				next.Variants[i] = variant
				found = true
				break
			}
		}
		if !found {
			return inventory.Item{}, &inventory.Error{Kind: inventory.KindNotFound, Op: "update_variant", Status: 404, Message: fmt.Sprintf("variant %s not found", req.VariantID)}
		}
	}
	m.data.Items[idx] = next
	m.recordLocked(before, next, identity.Email, "updated via api")
	return next.Clone(), nil
}

// DeleteItem removes an item.
func (m *MockGateway) DeleteItem(ctx context.Context, id string) error {
	if _, err := m.authorize(ctx, "delete_item"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexOf(id)
	if idx < 0 {
		return notFound("delete_item", id)
	}
	m.data.Items = append(m.data.Items[:idx:idx], m.data.Items[idx+1:]...)
	return nil
}

// BulkUpdate applies every change or none.
func (m *MockGateway) BulkUpdate(ctx context.Context, changes []inventory.BulkChange) (inventory.BulkUpdateResult, error) {
	identity, err := m.authorize(ctx, "bulk_update")
	if err != nil {
		return inventory.BulkUpdateResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	working := make(map[string]inventory.Item)
	order := []string{}
	for _, change := range changes {
		item, ok := working[change.ProductID]
		if !ok {
			idx := m.indexOf(change.ProductID)
			if idx < 0 {
				return inventory.BulkUpdateResult{}, notFound("bulk_update", change.ProductID)
			}
			item = m.data.Items[idx].Clone()
			order = append(order, change.ProductID)
		}
		if err := inventory.ApplyBulkChange(&item, change); err != nil {
			return inventory.BulkUpdateResult{}, err
		}
		working[change.ProductID] = item
	}

	result := inventory.BulkUpdateResult{Updated: len(changes), Items: make([]inventory.Item, 0, len(order))}
	for _, id := range order {
		idx := m.indexOf(id)
		before := m.data.Items[idx]
		after := working[id]
		m.data.Items[idx] = after
		m.recordLocked(before, after, identity.Email, "bulk update")
		result.Items = append(result.Items, after.Clone())
	}
	return result, nil
}

// LowStockItems returns items with a low-stock variant, or flat items at or
// below the default threshold.
func (m *MockGateway) LowStockItems(ctx context.Context) ([]inventory.Item, error) {
	if _, err := m.authorize(ctx, "low_stock"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []inventory.Item{}
	for _, item := range m.data.Items {
		if isLowStock(item) {
			out = append(out, item.Clone())
		}
	}
	return out, nil
}

func isLowStock(item inventory.Item) bool {
	if !item.HasVariants() {
		return item.Quantity != nil && *item.Quantity <= inventory.DefaultLowStockThreshold
	}
	for _, v := range item.Variants {
		if v.Inventory.IsLowStock() {
			return true
		}
	}
	return false
}

// ChangeLog returns recorded stock changes matching filter.
func (m *MockGateway) ChangeLog(ctx context.Context, filter inventory.ChangeLogFilter) ([]inventory.ChangeLogEntry, error) {
	if _, err := m.authorize(ctx, "change_log"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return inventory.FilterChangeLog(m.data.Logs, filter), nil
}

// DashboardSummary returns the configured summary or NotFound.
func (m *MockGateway) DashboardSummary(ctx context.Context) (inventory.DashboardSummary, error) {
	if _, err := m.authorize(ctx, "dashboard"); err != nil {
		return inventory.DashboardSummary{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.data.Summary == nil {
		return inventory.DashboardSummary{}, &inventory.Error{Kind: inventory.KindNotFound, Op: "dashboard", Status: 404, Message: "dashboard endpoint not available"}
	}
	return *m.data.Summary, nil
}

// ListProducts returns up to limit items.
func (m *MockGateway) ListProducts(ctx context.Context, limit int) ([]inventory.Item, error) {
	if _, err := m.authorize(ctx, "list_products"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := cloneItemList(m.data.Items)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// ListOrders returns up to limit orders.
func (m *MockGateway) ListOrders(ctx context.Context, limit int) ([]inventory.Order, error) {
	if _, err := m.authorize(ctx, "list_orders"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	orders := append([]inventory.Order{}, m.data.Orders...)
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (m *MockGateway) indexOf(id string) int {
	for i := range m.data.Items {
		if m.data.Items[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *MockGateway) recordLocked(before, after inventory.Item, user, reason string) {
	if user == "" {
		user = "system"
	}
	m.data.Logs = append(m.data.Logs, inventory.DiffItems(before, after, user, reason, m.now().UTC())...)
}

func cloneItemList(items []inventory.Item) []inventory.Item {
	out := make([]inventory.Item, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}
