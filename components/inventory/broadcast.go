package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	subscriberBuffer = 8
	// maxMissedEvents is how many consecutive events a subscriber may miss
	// before it is dropped and must reconnect and refetch.
	maxMissedEvents = 32
)

type subscriber struct {
	ch     chan CatalogEvent
	kinds  map[Operation]bool
	missed int
}

func (s *subscriber) wants(kind Operation) bool {
	return len(s.kinds) == 0 || s.kinds[kind]
}

// BroadcastHook fans catalog events out to in-process subscribers, such as
// websocket and SSE clients of the web front. Subscribers may narrow the
// stream to some operations. A subscriber that stops draining is dropped.
type BroadcastHook struct {
	mu      sync.Mutex
	subs    map[int]*subscriber
	next    int
	dropped int
}

var _ ChangeHook = (*BroadcastHook)(nil)

// NewBroadcastHook creates a broadcast hook.
func NewBroadcastHook() *BroadcastHook {
	return &BroadcastHook{subs: make(map[int]*subscriber)}
}

// CatalogChanged delivers event to every interested subscriber without
// blocking. A full subscriber misses the event, and after maxMissedEvents in
// a row its channel is closed.
func (h *BroadcastHook) CatalogChanged(_ context.Context, event CatalogEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subs {
		if !sub.wants(event.Kind) {
			continue
		}
		select {
		case sub.ch <- event:
			sub.missed = 0
		default:
			sub.missed++
			if sub.missed >= maxMissedEvents {
				delete(h.subs, id)
				close(sub.ch)
				h.dropped++
			}
		}
	}
	return nil
}

// Subscribe returns a channel of catalog events and a cancel func. With kinds
// only those operations are delivered.
func (h *BroadcastHook) Subscribe(kinds ...Operation) (<-chan CatalogEvent, func()) {
	sub := &subscriber{ch: make(chan CatalogEvent, subscriberBuffer)}
	if len(kinds) > 0 {
		sub.kinds = make(map[Operation]bool, len(kinds))
		for _, kind := range kinds {
			sub.kinds[kind] = true
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	h.subs[id] = sub
	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if s, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(s.ch)
		}
	}
	return sub.ch, cancel
}

// Subscribers returns the number of active subscriptions.
func (h *BroadcastHook) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dropped returns how many subscribers were closed for falling behind.
func (h *BroadcastHook) Dropped() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// ParseEventKinds reads a comma separated list of operations, as passed in
// the kind query parameter of the event streams. Blank input selects all.
func ParseEventKinds(raw string) ([]Operation, error) {
	var kinds []Operation
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		switch kind := Operation(part); kind {
		case OpFetch, OpCreate, OpUpdate, OpDelete, OpBulk:
			kinds = append(kinds, kind)
		default:
			return nil, NewValidationError("event stream", fmt.Sprintf("unknown event kind %q", part), nil)
		}
	}
	return kinds, nil
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the request and streams catalog events as JSON.
// The kind query parameter narrows the stream.
func (h *BroadcastHook) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	kinds, err := ParseEventKinds(r.URL.Query().Get("kind"))
	if err != nil {
		http.Error(w, MessageOf(err), http.StatusBadRequest)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied
		return
	}
	defer conn.Close()

	events, cancel := h.Subscribe(kinds...)
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "subscriber fell behind"), time.Time{})
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}

// ServeSSE streams catalog events as Server-Sent Events. Each event carries
// the catalog version as its id. The kind query parameter narrows the stream.
func (h *BroadcastHook) ServeSSE(w http.ResponseWriter, r *http.Request) {
	kinds, err := ParseEventKinds(r.URL.Query().Get("kind"))
	if err != nil {
		http.Error(w, MessageOf(err), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	events, cancel := h.Subscribe(kinds...)
	defer cancel()

	encoder := json.NewEncoder(w)
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "id: %s\nevent: %s\ndata: ", strconv.FormatUint(event.Version, 10), event.Kind)
			if err := encoder.Encode(event); err != nil {
				return
			}
			w.Write([]byte("\n"))
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}
