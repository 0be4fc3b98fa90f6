package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Theme is the persisted UI theme preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme validates a theme name.
func ParseTheme(raw string) (Theme, error) {
	switch theme := Theme(strings.ToLower(strings.TrimSpace(raw))); theme {
	case ThemeLight, ThemeDark:
		return theme, nil
	default:
		return "", NewValidationError("parse theme", fmt.Sprintf("unknown theme %q", raw), nil)
	}
}

// Preferences is the client-side preference document.
type Preferences struct {
	Theme Theme `json:"theme"`
}

// PreferenceStore persists preferences next to the session.
type PreferenceStore struct {
	kv KeyValueStore
}

// NewPreferenceStore builds a store over kv. A nil kv keeps state in memory.
func NewPreferenceStore(kv KeyValueStore) *PreferenceStore {
	if kv == nil {
		kv = NewMemoryKeyValueStore()
	}
	return &PreferenceStore{kv: kv}
}

// Load returns the stored preferences, defaulting to the light theme.
func (s *PreferenceStore) Load(ctx context.Context) (Preferences, error) {
	prefs := Preferences{Theme: ThemeLight}
	data, ok, err := s.kv.Get(ctx, ThemeKey)
	if err != nil {
		return prefs, fmt.Errorf("inventory: load theme: %w", err)
	}
	if !ok {
		return prefs, nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return prefs, fmt.Errorf("inventory: decode theme: %w", err)
	}
	if theme, err := ParseTheme(raw); err == nil {
		prefs.Theme = theme
	}
	return prefs, nil
}

// SetTheme persists theme.
func (s *PreferenceStore) SetTheme(ctx context.Context, theme Theme) error {
	if _, err := ParseTheme(string(theme)); err != nil {
		return err
	}
	data, err := json.Marshal(string(theme))
	if err != nil {
		return fmt.Errorf("inventory: encode theme: %w", err)
	}
	if err := s.kv.Set(ctx, ThemeKey, data); err != nil {
		return fmt.Errorf("inventory: persist theme: %w", err)
	}
	return nil
}

// ToggleTheme flips between light and dark and returns the new theme.
func (s *PreferenceStore) ToggleTheme(ctx context.Context) (Theme, error) {
	prefs, err := s.Load(ctx)
	if err != nil {
		return "", err
	}
	next := ThemeDark
	if prefs.Theme == ThemeDark {
		next = ThemeLight
	}
	if err := s.SetTheme(ctx, next); err != nil {
		return "", err
	}
	return next, nil
}
