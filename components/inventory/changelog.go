package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ChangeType classifies a stock change log entry.
type ChangeType string

const (
	ChangeQuantityUpdate  ChangeType = "quantity_update"
	ChangeReserve         ChangeType = "reserve"
	ChangeRelease         ChangeType = "release"
	ChangeThresholdUpdate ChangeType = "threshold_update"
	ChangeStatusChange    ChangeType = "status_change"
)

// ChangeLogEntry is one recorded stock change.
type ChangeLogEntry struct {
	ID             string     `json:"id"`
	Timestamp      time.Time  `json:"timestamp"`
	ProductID      string     `json:"productId"`
	ProductName    string     `json:"productName"`
	VariantIndex   int        `json:"variantIndex"`
	VariantDetails string     `json:"variantDetails,omitempty"`
	ChangeType     ChangeType `json:"changeType"`
	Field          string     `json:"field"`
	OldValue       LogValue   `json:"oldValue"`
	NewValue       LogValue   `json:"newValue"`
	User           string     `json:"user,omitempty"`
	Reason         string     `json:"reason,omitempty"`
}

// LogValue is a change log value. Servers send numbers, strings or booleans;
// all are kept in their textual form.
type LogValue string

func (v *LogValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*v = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = LogValue(s)
	default:
		*v = LogValue(data)
	}
	return nil
}

// ChangeLogFilter narrows change log entries. From and To are inclusive
// dates; To covers the whole day.
type ChangeLogFilter struct {
	From       *time.Time `json:"dateFrom,omitempty"`
	To         *time.Time `json:"dateTo,omitempty"`
	ProductID  string     `json:"productId,omitempty"`
	ChangeType ChangeType `json:"changeType,omitempty"`
	User       string     `json:"user,omitempty"`
}

// Matches reports whether entry passes the filter.
func (f ChangeLogFilter) Matches(entry ChangeLogEntry) bool {
	if f.From != nil && entry.Timestamp.Before(startOfDay(*f.From)) {
		return false
	}
	if f.To != nil && !entry.Timestamp.Before(startOfDay(*f.To).AddDate(0, 0, 1)) {
		return false
	}
	if f.ProductID != "" && entry.ProductID != f.ProductID {
		return false
	}
	if f.ChangeType != "" && entry.ChangeType != f.ChangeType {
		return false
	}
	if f.User != "" && entry.User != f.User {
		return false
	}
	return true
}

func itoa(n int) LogValue {
	return LogValue(strconv.Itoa(n))
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// FilterChangeLog returns matching entries, newest first.
func FilterChangeLog(entries []ChangeLogEntry, filter ChangeLogFilter) []ChangeLogEntry {
	out := make([]ChangeLogEntry, 0, len(entries))
	for _, entry := range entries {
		if filter.Matches(entry) {
			out = append(out, entry)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// DiffItems describes the stock changes between two versions of an item as
// change log entries.
func DiffItems(before, after Item, user, reason string, at time.Time) []ChangeLogEntry {
	entries := []ChangeLogEntry{}
	add := func(idx int, variant Variant, kind ChangeType, field string, oldValue, newValue LogValue) {
		entries = append(entries, ChangeLogEntry{
			ID:             uuid.NewString(),
			Timestamp:      at,
			ProductID:      after.ID,
			ProductName:    after.Name,
			VariantIndex:   idx,
			VariantDetails: variant.Label(),
			ChangeType:     kind,
			Field:          field,
			OldValue:       oldValue,
			NewValue:       newValue,
			User:           user,
			Reason:         reason,
		})
	}
	if !before.HasVariants() && !after.HasVariants() {
		if before.FlatQuantity() != after.FlatQuantity() {
			add(-1, Variant{}, ChangeQuantityUpdate, FieldQuantity, itoa(before.FlatQuantity()), itoa(after.FlatQuantity()))
		}
		return entries
	}
	for idx, next := range after.Variants {
		if idx >= len(before.Variants) {
			continue
		}
		prev := before.Variants[idx].Inventory
		cur := next.Inventory
		if prev.Quantity != cur.Quantity {
			add(idx, next, ChangeQuantityUpdate, FieldQuantity, itoa(prev.Quantity), itoa(cur.Quantity))
		}
		if prev.Reserved != cur.Reserved {
			kind := ChangeReserve
			if cur.Reserved < prev.Reserved {
				kind = ChangeRelease
			}
			add(idx, next, kind, FieldReserved, itoa(prev.Reserved), itoa(cur.Reserved))
		}
		if prev.LowStockThreshold != cur.LowStockThreshold {
			add(idx, next, ChangeThresholdUpdate, FieldLowStockThreshold, itoa(prev.LowStockThreshold), itoa(cur.LowStockThreshold))
		}
		if before.Variants[idx].Status != next.Status {
			add(idx, next, ChangeStatusChange, "status", LogValue(before.Variants[idx].Status), LogValue(next.Status))
		}
	}
	return entries
}

// ChangeJournal keeps a local change log of catalog updates made through
// this client. It is a ChangeHook.
type ChangeJournal struct {
	mu      sync.RWMutex
	entries []ChangeLogEntry
	limit   int
	now     func() time.Time
}

var _ ChangeHook = (*ChangeJournal)(nil)

// NewChangeJournal keeps at most limit entries; non-positive means 1000.
func NewChangeJournal(limit int) *ChangeJournal {
	if limit <= 0 {
		limit = 1000
	}
	return &ChangeJournal{limit: limit, now: time.Now}
}

// CatalogChanged records the diff carried by update events.
func (j *ChangeJournal) CatalogChanged(ctx context.Context, event CatalogEvent) error {
	if event.Before == nil || event.After == nil {
		return nil
	}
	at := event.OccurredAt
	if at.IsZero() {
		at = j.now().UTC()
	}
	reason := fmt.Sprintf("%s via client", event.Kind)
	entries := DiffItems(*event.Before, *event.After, ActorFromContext(ctx), reason, at)
	if len(entries) == 0 {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entries...)
	if over := len(j.entries) - j.limit; over > 0 {
		j.entries = append([]ChangeLogEntry(nil), j.entries[over:]...)
	}
	return nil
}

// Entries returns the journal filtered by filter, newest first.
func (j *ChangeJournal) Entries(filter ChangeLogFilter) []ChangeLogEntry {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return FilterChangeLog(j.entries, filter)
}

// MergeChangeLogs combines remote and local entries, dropping duplicate ids.
func MergeChangeLogs(remote, local []ChangeLogEntry) []ChangeLogEntry {
	seen := make(map[string]struct{}, len(remote)+len(local))
	out := make([]ChangeLogEntry, 0, len(remote)+len(local))
	for _, list := range [][]ChangeLogEntry{remote, local} {
		for _, entry := range list {
			if entry.ID != "" {
				if _, dup := seen[entry.ID]; dup {
					continue
				}
				seen[entry.ID] = struct{}{}
			}
			out = append(out, entry)
		}
	}
	sort.SliceStable(out, func(i, k int) bool {
		return out[i].Timestamp.After(out[k].Timestamp)
	})
	return out
}
