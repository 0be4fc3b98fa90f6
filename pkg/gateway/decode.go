package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-inventory/components/inventory"
)

type identityWire struct {
	ID      inventory.LogValue `json:"id"`
	MongoID string             `json:"_id"`
	Email   string             `json:"email"`
	Name    string             `json:"name"`
	Role    string             `json:"role"`
}

func (w identityWire) identity() inventory.Identity {
	id := string(w.ID)
	if id == "" {
		id = w.MongoID
	}
	return inventory.Identity{ID: id, Email: w.Email, Name: w.Name, Role: w.Role}
}

func (w identityWire) empty() bool {
	return w.ID == "" && w.MongoID == "" && w.Email == ""
}

// decodeSession accepts {token, user|admin: {...}} or a flat object that
// carries the token next to the identity fields.
func decodeSession(body []byte) (inventory.Session, error) {
	var payload struct {
		identityWire
		Token string        `json:"token"`
		User  *identityWire `json:"user"`
		Admin *identityWire `json:"admin"`
		Data  *struct {
			Token string        `json:"token"`
			User  *identityWire `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return inventory.Session{}, fmt.Errorf("gateway: decode session: %w", err)
	}
	session := inventory.Session{Token: payload.Token}
	switch {
	case payload.User != nil:
		session.User = payload.User.identity()
	case payload.Admin != nil:
		session.User = payload.Admin.identity()
	case payload.Data != nil:
		if session.Token == "" {
			session.Token = payload.Data.Token
		}
		if payload.Data.User != nil {
			session.User = payload.Data.User.identity()
		}
	default:
		session.User = payload.identityWire.identity()
	}
	return session, nil
}

// decodeIdentity accepts a bare identity or one wrapped in user, admin or
// data.
func decodeIdentity(body []byte) (inventory.Identity, error) {
	var payload struct {
		identityWire
		User  *identityWire `json:"user"`
		Admin *identityWire `json:"admin"`
		Data  *identityWire `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return inventory.Identity{}, fmt.Errorf("gateway: decode identity: %w", err)
	}
	for _, candidate := range []*identityWire{payload.User, payload.Admin, payload.Data} {
		if candidate != nil && !candidate.empty() {
			return candidate.identity(), nil
		}
	}
	return payload.identityWire.identity(), nil
}

func decodeBulkResult(body []byte, shape inventory.ShapeStrategy) (inventory.BulkUpdateResult, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return inventory.BulkUpdateResult{Items: []inventory.Item{}}, nil
	}
	var counts struct {
		Updated  *int `json:"updated"`
		Modified *int `json:"modifiedCount"`
	}
	if body[0] == '{' {
		if err := json.Unmarshal(body, &counts); err != nil {
			return inventory.BulkUpdateResult{}, fmt.Errorf("gateway: decode bulk result: %w", err)
		}
	}
	page, err := shape.DecodeItems(body)
	if err != nil {
		return inventory.BulkUpdateResult{}, err
	}
	result := inventory.BulkUpdateResult{Items: page.Items, Updated: len(page.Items)}
	switch {
	case counts.Updated != nil:
		result.Updated = *counts.Updated
	case counts.Modified != nil:
		result.Updated = *counts.Modified
	}
	return result, nil
}

// changeLogWire tolerates numeric ids, which some servers emit.
type changeLogWire struct {
	inventory.ChangeLogEntry
	ID inventory.LogValue `json:"id"`
}

func decodeChangeLog(body []byte) ([]inventory.ChangeLogEntry, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return []inventory.ChangeLogEntry{}, nil
	}
	var wires []changeLogWire
	if body[0] == '[' {
		if err := json.Unmarshal(body, &wires); err != nil {
			return nil, fmt.Errorf("gateway: decode change log: %w", err)
		}
	} else {
		var env struct {
			Logs    []changeLogWire `json:"logs"`
			Entries []changeLogWire `json:"entries"`
			Data    []changeLogWire `json:"data"`
		}
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, fmt.Errorf("gateway: decode change log: %w", err)
		}
		switch {
		case env.Logs != nil:
			wires = env.Logs
		case env.Entries != nil:
			wires = env.Entries
		default:
			wires = env.Data
		}
	}
	entries := make([]inventory.ChangeLogEntry, len(wires))
	for i, wire := range wires {
		entry := wire.ChangeLogEntry
		entry.ID = string(wire.ID)
		entries[i] = entry
	}
	return entries, nil
}
