package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// TokenProvider supplies the bearer token for outgoing requests and accepts
// invalidation when the server rejects it.
type TokenProvider interface {
	Token() string
	// Invalidate clears the persisted session only if token is still the
	// current one, and reports whether it did.
	Invalidate(ctx context.Context, token string) bool
}

// SessionVault owns the persisted session. It is the single source of the
// bearer token used by the gateway.
type SessionVault struct {
	mu        sync.Mutex
	kv        KeyValueStore
	session   *Session
	listeners []func(context.Context)
	telemetry Telemetry
}

var _ TokenProvider = (*SessionVault)(nil)

// NewSessionVault builds a vault over kv. A nil kv keeps state in memory.
func NewSessionVault(kv KeyValueStore) *SessionVault {
	if kv == nil {
		kv = NewMemoryKeyValueStore()
	}
	return &SessionVault{kv: kv, telemetry: noopTelemetry{}}
}

// UseTelemetry routes persistence failures that cannot be returned to the
// caller, such as a failed delete during Invalidate, to t.
func (v *SessionVault) UseTelemetry(t Telemetry) {
	v.mu.Lock()
	v.telemetry = normalizeTelemetry(t)
	v.mu.Unlock()
}

// Load restores the persisted session, if any.
func (v *SessionVault) Load(ctx context.Context) (Session, bool, error) {
	data, ok, err := v.kv.Get(ctx, SessionKey)
	if err != nil {
		return Session{}, false, fmt.Errorf("inventory: load session: %w", err)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if !ok {
		v.session = nil
		return Session{}, false, nil
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return Session{}, false, fmt.Errorf("inventory: decode session: %w", err)
	}
	if session.Token == "" {
		v.session = nil
		return Session{}, false, nil
	}
	v.session = &session
	return session, true, nil
}

// Save persists session and makes its token current.
func (v *SessionVault) Save(ctx context.Context, session Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("inventory: encode session: %w", err)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.kv.Set(ctx, SessionKey, data); err != nil {
		return fmt.Errorf("inventory: persist session: %w", err)
	}
	v.session = &session
	return nil
}

// Clear removes the session unconditionally.
func (v *SessionVault) Clear(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.session = nil
	if err := v.kv.Delete(ctx, SessionKey); err != nil {
		return fmt.Errorf("inventory: clear session: %w", err)
	}
	return nil
}

// Current returns the active session.
func (v *SessionVault) Current() (Session, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.session == nil {
		return Session{}, false
	}
	return *v.session, true
}

// Token returns the active bearer token or "".
func (v *SessionVault) Token() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.session == nil {
		return ""
	}
	return v.session.Token
}

// Invalidate is compare-and-clear: concurrent rejections of the same token
// clear the session once, and a rejection of an older token never clears a
// newer session.
func (v *SessionVault) Invalidate(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	v.mu.Lock()
	if v.session == nil || v.session.Token != token {
		v.mu.Unlock()
		return false
	}
	v.session = nil
	deleteErr := v.kv.Delete(ctx, SessionKey)
	listeners := append([]func(context.Context){}, v.listeners...)
	telemetry := v.telemetry
	v.mu.Unlock()

	if deleteErr != nil {
		telemetry.Record(ctx, "inventory.session.persist_failed", map[string]any{"op": "invalidate", "error": deleteErr})
	}

	for _, fn := range listeners {
		fn(ctx)
	}
	return true
}

// OnInvalidate registers fn to run after a successful Invalidate.
func (v *SessionVault) OnInvalidate(fn func(context.Context)) {
	if fn == nil {
		return
	}
	v.mu.Lock()
	v.listeners = append(v.listeners, fn)
	v.mu.Unlock()
}

// SessionState is the authentication state machine of the session store.
type SessionState string

const (
	SessionAnonymous      SessionState = "anonymous"
	SessionAuthenticating SessionState = "authenticating"
	SessionAuthenticated  SessionState = "authenticated"
)

// AuthGateway is the slice of the gateway used by the session store.
type AuthGateway interface {
	Login(ctx context.Context, creds Credentials) (Session, error)
	CurrentIdentity(ctx context.Context) (Identity, error)
	Logout(ctx context.Context) error
}

// SessionOptions configures a SessionStore.
type SessionOptions struct {
	Gateway   AuthGateway
	Vault     *SessionVault
	Telemetry Telemetry
}

// SessionStore tracks the current identity and the login lifecycle.
type SessionStore struct {
	gateway   AuthGateway
	vault     *SessionVault
	telemetry Telemetry

	mu       sync.Mutex
	state    SessionState
	identity *Identity
	login    requestTrack
	refresh  requestTrack
}

// NewSessionStore builds the store and subscribes it to vault invalidation.
func NewSessionStore(opts SessionOptions) *SessionStore {
	vault := opts.Vault
	if vault == nil {
		vault = NewSessionVault(nil)
	}
	s := &SessionStore{
		gateway:   opts.Gateway,
		vault:     vault,
		telemetry: normalizeTelemetry(opts.Telemetry),
		state:     SessionAnonymous,
		login:     newRequestTrack(),
		refresh:   newRequestTrack(),
	}
	if opts.Telemetry != nil {
		vault.UseTelemetry(opts.Telemetry)
	}
	vault.OnInvalidate(s.handleInvalidated)
	return s
}

// Vault returns the token vault backing the store.
func (s *SessionStore) Vault() *SessionVault {
	return s.vault
}

// Restore loads the persisted session at startup.
func (s *SessionStore) Restore(ctx context.Context) error {
	session, ok, err := s.vault.Load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !ok {
		s.state = SessionAnonymous
		s.identity = nil
		return nil
	}
	identity := session.User
	s.identity = &identity
	s.state = SessionAuthenticated
	return nil
}

// Login authenticates, persists the session and returns the identity.
func (s *SessionStore) Login(ctx context.Context, creds Credentials) (Identity, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		err := NewValidationError("login", "email and password are required", nil)
		s.mu.Lock()
		s.login.fail(s.login.begin(), err)
		s.mu.Unlock()
		return Identity{}, err
	}
	if s.gateway == nil {
		return Identity{}, fmt.Errorf("inventory: session store requires a gateway")
	}

	s.mu.Lock()
	gen := s.login.begin()
	previous := s.state
	s.state = SessionAuthenticating
	s.mu.Unlock()

	session, err := s.gateway.Login(ctx, creds)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.login.current(gen) {
		if err != nil {
			return Identity{}, err
		}
		return Identity{}, ErrLoginSuperseded
	}
	if err != nil {
		s.login.fail(gen, err)
		if previous == SessionAuthenticated && s.identity != nil {
			s.state = SessionAuthenticated
		} else {
			s.state = SessionAnonymous
		}
		s.telemetry.Record(ctx, "inventory.session.login_failed", map[string]any{"email": creds.Email, "error": err})
		return Identity{}, err
	}
	if err := s.vault.Save(ctx, session); err != nil {
		s.login.fail(gen, err)
		s.state = SessionAnonymous
		return Identity{}, err
	}
	identity := session.User
	s.identity = &identity
	s.state = SessionAuthenticated
	s.login.succeed(gen)
	// Identity reads issued under the previous token are stale now.
	s.refresh.reset()
	s.telemetry.Record(ctx, "inventory.session.login", map[string]any{"email": identity.Email})
	return identity, nil
}

// RefreshIdentity re-reads the current user from the server. A failure
// clears the identity. A result that arrives after a login or logout changed
// the session is discarded.
func (s *SessionStore) RefreshIdentity(ctx context.Context) (Identity, error) {
	if s.vault.Token() == "" {
		return Identity{}, &Error{Kind: KindUnauthenticated, Op: "current identity", Message: "not logged in"}
	}
	if s.gateway == nil {
		return Identity{}, fmt.Errorf("inventory: session store requires a gateway")
	}
	s.mu.Lock()
	gen := s.refresh.begin()
	s.mu.Unlock()

	identity, err := s.gateway.CurrentIdentity(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.refresh.current(gen) {
		return identity, err
	}
	if err != nil {
		s.refresh.fail(gen, err)
		if s.state != SessionAuthenticating {
			s.identity = nil
			s.state = SessionAnonymous
		}
		return Identity{}, err
	}
	s.refresh.succeed(gen)
	if s.state == SessionAuthenticating {
		// The pending login owns the next identity.
		return identity, nil
	}
	s.identity = &identity
	s.state = SessionAuthenticated
	if session, ok := s.vault.Current(); ok {
		session.User = identity
		if err := s.vault.Save(ctx, session); err != nil {
			s.telemetry.Record(ctx, "inventory.session.persist_failed", map[string]any{"op": "refresh identity", "error": err})
		}
	}
	return identity, nil
}

// Logout calls the server and always clears local state, returning the
// server error, if any, for display.
func (s *SessionStore) Logout(ctx context.Context) error {
	var callErr error
	if s.gateway != nil && s.vault.Token() != "" {
		callErr = s.gateway.Logout(ctx)
	}
	clearErr := s.vault.Clear(ctx)

	s.mu.Lock()
	s.identity = nil
	s.state = SessionAnonymous
	s.login.reset()
	s.refresh.reset()
	s.mu.Unlock()

	s.telemetry.Record(ctx, "inventory.session.logout", map[string]any{"remote_error": callErr != nil})
	if callErr != nil {
		return fmt.Errorf("inventory: logout: %w", callErr)
	}
	return clearErr
}

// State returns the authentication state.
func (s *SessionStore) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity returns the current identity.
func (s *SessionStore) Identity() (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return Identity{}, false
	}
	return *s.identity, true
}

// Status returns the login request track.
func (s *SessionStore) Status() TrackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.login.state()
}

// IdentityStatus returns the identity refresh track.
func (s *SessionStore) IdentityStatus() TrackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh.state()
}

// ClearError acknowledges the last failure on both tracks.
func (s *SessionStore) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.login.clearError()
	s.refresh.clearError()
}

func (s *SessionStore) handleInvalidated(ctx context.Context) {
	s.mu.Lock()
	s.identity = nil
	if s.state != SessionAuthenticating {
		s.state = SessionAnonymous
	}
	s.refresh.reset()
	s.mu.Unlock()
	s.telemetry.Record(ctx, "inventory.session.invalidated", nil)
}
