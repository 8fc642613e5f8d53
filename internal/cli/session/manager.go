// Package session owns the in-memory record of who is logged in.
// Tokens never pass through here except on their way into the store;
// the HTTP client reads them back from the store on every request.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/captionly-dev/captionly/internal/cli/api"
	"github.com/captionly-dev/captionly/internal/cli/kvstore"
)

// ErrMissingToken means the login response had neither access_token nor token
var ErrMissingToken = errors.New("login response did not include a token")

// AuthAPI is the part of api.AuthService the manager calls
type AuthAPI interface {
	Login(ctx context.Context, creds api.Credentials) (*api.LoginResponse, error)
	Register(ctx context.Context, reg api.Registration) (*api.RegisterResponse, error)
}

// ProfileAPI is the part of api.UserService the manager calls
type ProfileAPI interface {
	GetProfile(ctx context.Context) (*api.User, error)
}

// Manager is the single source of truth for the current identity
type Manager struct {
	auth    AuthAPI
	profile ProfileAPI
	store   kvstore.Store
	logger  zerolog.Logger

	mu      sync.RWMutex
	user    *api.User
	state   State
	loading bool

	hydrateOnce sync.Once

	subsMu  sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the logger used for swallowed failures
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// New creates a manager. The session starts loading until Hydrate has run.
func New(auth AuthAPI, profile ProfileAPI, store kvstore.Store, opts ...Option) *Manager {
	m := &Manager{
		auth:    auth,
		profile: profile,
		store:   store,
		logger:  zerolog.Nop(),
		loading: true,
		subs:    make(map[int]func(Snapshot)),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Snapshot returns a copy of the current session
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{IsLoading: m.loading, State: m.state}
	if m.user != nil {
		u := *m.user
		snap.User = &u
	}
	return snap
}

// Subscribe registers fn to be called after every change. The returned func unregisters it.
func (m *Manager) Subscribe(fn func(Snapshot)) func() {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()

	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn

	return func() {
		m.subsMu.Lock()
		defer m.subsMu.Unlock()
		delete(m.subs, id)
	}
}

// Hydrate restores the session from a persisted token. It runs once;
// later calls return the current snapshot. It never fails: any problem
// leaves the session unauthenticated.
func (m *Manager) Hydrate(ctx context.Context) Snapshot {
	m.hydrateOnce.Do(func() {
		m.hydrate(ctx)
	})
	return m.Snapshot()
}

func (m *Manager) hydrate(ctx context.Context) {
	m.setLoading(true)
	defer m.setLoading(false)

	token, err := m.store.Get(ctx, kvstore.KeyToken)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			m.logger.Warn().Err(err).Msg("Failed to read stored token")
		}
		return
	}
	if token == "" {
		return
	}

	user, err := m.profile.GetProfile(ctx)
	if err == nil && (user == nil || !user.Usable()) {
		err = errors.New("profile response has no usable identity")
	}
	if err != nil {
		m.logger.Info().Err(err).Msg("Stored session is no longer valid")
		if rmErr := m.store.Remove(ctx, kvstore.KeyToken); rmErr != nil {
			m.logger.Warn().Err(rmErr).Msg("Failed to remove stale token")
		}
		m.setUser(nil, Unauthenticated)
		return
	}

	m.setUser(user, Authenticated)
}

// Login authenticates and returns an error only when the credentials were
// rejected, the response carried no token, or the token could not be stored.
// A failing profile lookup falls back to the embedded user or a placeholder.
func (m *Manager) Login(ctx context.Context, creds api.Credentials) error {
	m.setLoading(true)
	defer m.setLoading(false)

	return m.login(ctx, creds)
}

func (m *Manager) login(ctx context.Context, creds api.Credentials) error {
	resp, err := m.auth.Login(ctx, creds)
	if err != nil {
		m.logger.Debug().Err(err).Str("identifier", creds.Identifier()).Msg("Login failed")
		return err
	}

	token, ok := resp.BearerToken()
	if !ok {
		return ErrMissingToken
	}

	if err := m.store.Set(ctx, kvstore.KeyToken, token); err != nil {
		return fmt.Errorf("failed to save authentication token: %w", err)
	}

	profile, err := m.profile.GetProfile(ctx)
	switch {
	case err == nil && profile != nil && profile.Usable():
		m.setUser(profile, Authenticated)
	case resp.User != nil && resp.User.Usable():
		m.logger.Warn().Err(err).Msg("Profile lookup failed, using user from login response")
		m.setUser(resp.User, Authenticated)
	default:
		m.logger.Warn().Err(err).Msg("Profile lookup failed, continuing with a placeholder identity")
		placeholder := placeholderUser(creds)
		m.setUser(&placeholder, AuthenticatedDegraded)
	}

	return nil
}

// Register creates the account and then logs in with the same username and password
func (m *Manager) Register(ctx context.Context, reg api.Registration) error {
	m.setLoading(true)
	defer m.setLoading(false)

	if _, err := m.auth.Register(ctx, reg); err != nil {
		return err
	}

	return m.login(ctx, api.Credentials{Username: reg.Username, Password: reg.Password})
}

// Logout forgets the token and the user. It is best effort and idempotent.
func (m *Manager) Logout(ctx context.Context) {
	m.setLoading(true)
	defer m.setLoading(false)

	if err := m.store.Remove(ctx, kvstore.KeyToken); err != nil {
		m.logger.Error().Err(err).Msg("Failed to remove stored token")
	}

	m.setUser(nil, Unauthenticated)
}

// UpdateUser merges patch into the current user. No-op when logged out.
func (m *Manager) UpdateUser(patch api.UserPatch) {
	m.mu.Lock()
	if m.user == nil {
		m.mu.Unlock()
		return
	}
	updated := m.user.Apply(patch)
	m.user = &updated
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
}

func (m *Manager) setLoading(loading bool) {
	m.mu.Lock()
	if m.loading == loading {
		m.mu.Unlock()
		return
	}
	m.loading = loading
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
}

func (m *Manager) setUser(user *api.User, state State) {
	m.mu.Lock()
	if user != nil {
		u := *user
		m.user = &u
	} else {
		m.user = nil
	}
	m.state = state
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
}

func (m *Manager) notify(snap Snapshot) {
	m.subsMu.Lock()
	fns := make([]func(Snapshot), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subsMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// placeholderUser builds the degraded identity used when no profile is available
func placeholderUser(creds api.Credentials) api.User {
	username := creds.Username
	if username == "" {
		username, _, _ = strings.Cut(creds.Email, "@")
	}

	return api.User{
		ID:       api.ID(PlaceholderIDPrefix + uuid.NewString()),
		Username: username,
		Email:    creds.Email,
		IsActive: true,
		Role:     api.RoleUser,
	}
}
