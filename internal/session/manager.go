// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jeranaias/rigchat/internal/gateway"
	"github.com/jeranaias/rigchat/internal/model"
)

// ErrNotLoggedIn is returned by operations that need a session.
var ErrNotLoggedIn = errors.New("not logged in")

// Authenticator is the account side of the chat service.
type Authenticator interface {
	Register(ctx context.Context, email, password string) (model.User, error)
	Login(ctx context.Context, email, password string) (model.User, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (model.User, error)
}

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Manager tracks who is logged in and for how long they have been idle.
type Manager struct {
	mu sync.Mutex

	auth   Authenticator
	logger zerolog.Logger
	now    func() time.Time

	// Session tracking
	user         *model.User
	sessionID    string
	startTime    time.Time
	lastActivity time.Time

	// Idle timeout; zero disables it
	timeout       time.Duration
	warningBefore time.Duration
	warningShown  bool

	// Callbacks
	subs      map[int]func(bool)
	nextSub   int
	onWarning func(remaining time.Duration)
}

// Config holds configuration for the session manager.
type Config struct {
	// IdleTimeout logs the user out after this much inactivity (0 = never)
	IdleTimeout time.Duration

	// WarningBefore is how long before the timeout to warn
	WarningBefore time.Duration
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		IdleTimeout:   30 * time.Minute,
		WarningBefore: 2 * time.Minute,
	}
}

// NewManager creates a logged-out session manager.
func NewManager(auth Authenticator, cfg Config) *Manager {
	return &Manager{
		auth:          auth,
		logger:        zerolog.Nop(),
		now:           time.Now,
		timeout:       cfg.IdleTimeout,
		warningBefore: cfg.WarningBefore,
		subs:          make(map[int]func(bool)),
	}
}

// WithLogger sets the logger for login and logout events.
func (m *Manager) WithLogger(l zerolog.Logger) *Manager {
	m.logger = l
	return m
}

// =============================================================================
// AUTHENTICATION
// =============================================================================

// Register validates the credentials locally and creates an account.
// It does not log in.
func (m *Manager) Register(ctx context.Context, email, password string) (model.User, error) {
	if err := model.ValidateEmail(email); err != nil {
		return model.User{}, err
	}
	if err := model.ValidatePassword(password); err != nil {
		return model.User{}, err
	}
	u, err := m.auth.Register(ctx, model.NormalizeEmail(email), password)
	if err != nil {
		return model.User{}, fmt.Errorf("register: %w", err)
	}
	m.logger.Info().Str("email", u.Email).Msg("account registered")
	return u, nil
}

// Login authenticates and starts a new session.
func (m *Manager) Login(ctx context.Context, email, password string) (model.User, error) {
	if err := model.ValidateEmail(email); err != nil {
		return model.User{}, err
	}
	u, err := m.auth.Login(ctx, model.NormalizeEmail(email), password)
	if err != nil {
		return model.User{}, fmt.Errorf("login: %w", err)
	}
	m.start(u)
	return u, nil
}

// Restore adopts a session the service already recognises. It reports
// false, without error, when there is none.
func (m *Manager) Restore(ctx context.Context) (bool, error) {
	u, err := m.auth.Me(ctx)
	if err != nil {
		if errors.Is(err, gateway.ErrUnauthorized) {
			return false, nil
		}
		return false, fmt.Errorf("restore session: %w", err)
	}
	m.start(u)
	return true, nil
}

// Logout ends the session. Local state is dropped even when the service
// cannot be reached; that error is still returned.
func (m *Manager) Logout(ctx context.Context) error {
	err := m.auth.Logout(ctx)
	m.end("logout")
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (m *Manager) start(u model.User) {
	now := m.now()
	m.mu.Lock()
	m.user = &u
	m.sessionID = generateSessionID(now)
	m.startTime = now
	m.lastActivity = now
	m.warningShown = false
	subs := m.subscribers()
	m.mu.Unlock()

	m.logger.Info().Str("email", u.Email).Msg("logged in")
	for _, fn := range subs {
		fn(true)
	}
}

// end clears the user and notifies subscribers if someone was logged in.
func (m *Manager) end(reason string) {
	m.mu.Lock()
	if m.user == nil {
		m.mu.Unlock()
		return
	}
	email := m.user.Email
	m.user = nil
	m.sessionID = ""
	subs := m.subscribers()
	m.mu.Unlock()

	m.logger.Info().Str("email", email).Str("reason", reason).Msg("logged out")
	for _, fn := range subs {
		fn(false)
	}
}

// subscribers snapshots the callbacks. Caller holds m.mu.
func (m *Manager) subscribers() []func(bool) {
	fns := make([]func(bool), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	return fns
}

// =============================================================================
// SESSION STATE
// =============================================================================

// Authenticated reports whether a user is logged in.
func (m *Manager) Authenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user != nil
}

// User returns the logged-in user.
func (m *Manager) User() (model.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return model.User{}, false
	}
	return *m.user, true
}

// SessionID returns the local identifier of the current login.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// Subscribe registers fn to be told about logins (true) and logouts (false).
// fn runs outside the manager's lock.
func (m *Manager) Subscribe(fn func(authenticated bool)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// =============================================================================
// ACTIVITY TRACKING
// =============================================================================

// RecordActivity updates the last activity timestamp.
func (m *Manager) RecordActivity() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActivity = m.now()
	m.warningShown = false
}

// IdleTime returns how long since last activity.
func (m *Manager) IdleTime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now().Sub(m.lastActivity)
}

// RemainingTime returns time until the idle timeout, or -1 when the
// timeout is disabled.
func (m *Manager) RemainingTime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timeout <= 0 {
		return -1
	}
	remaining := m.timeout - m.now().Sub(m.lastActivity)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// SetWarningCallback sets the function called once when the timeout nears.
func (m *Manager) SetWarningCallback(fn func(remaining time.Duration)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onWarning = fn
}

// SetTimeout updates the idle timeout.
func (m *Manager) SetTimeout(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = d
}

// idleState is the result of one idle-timer evaluation.
type idleState struct {
	authenticated bool
	expired       bool
	warn          bool
	remaining     time.Duration
	onWarning     func(time.Duration)
}

// evaluate inspects the idle timer and marks the warning as shown.
func (m *Manager) evaluate() idleState {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := idleState{authenticated: m.user != nil, onWarning: m.onWarning}
	if m.user == nil || m.timeout <= 0 {
		return st
	}

	idle := m.now().Sub(m.lastActivity)
	st.expired = idle >= m.timeout
	if !m.warningShown && !st.expired && idle >= m.timeout-m.warningBefore {
		st.warn = true
		st.remaining = m.timeout - idle
		m.warningShown = true
	}
	return st
}

func (m *Manager) expire(ctx context.Context) {
	if err := m.auth.Logout(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("remote logout after idle timeout failed")
	}
	m.end("idle timeout")
}

// Check evaluates the idle timer, firing the warning callback or logging
// out as needed. It returns false when no session is active afterwards.
func (m *Manager) Check(ctx context.Context) bool {
	st := m.evaluate()
	if st.warn && st.onWarning != nil {
		st.onWarning(st.remaining)
	}
	if st.expired {
		m.expire(ctx)
		return false
	}
	return st.authenticated
}

// =============================================================================
// BUBBLE TEA INTEGRATION
// =============================================================================

// TickMsg is sent periodically to check session state.
type TickMsg struct {
	Time time.Time
}

// TimeoutWarningMsg indicates the session is about to time out.
type TimeoutWarningMsg struct {
	Remaining time.Duration
}

// TimeoutMsg indicates the session timed out and was logged out.
type TimeoutMsg struct{}

// TickCmd returns a command that ticks periodically.
func TickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// HandleTick evaluates the idle timer and returns the resulting messages
// plus the next tick.
func (m *Manager) HandleTick(ctx context.Context) tea.Cmd {
	st := m.evaluate()
	cmds := []tea.Cmd{TickCmd()}

	if st.warn {
		if st.onWarning != nil {
			st.onWarning(st.remaining)
		}
		remaining := st.remaining
		cmds = append(cmds, func() tea.Msg {
			return TimeoutWarningMsg{Remaining: remaining}
		})
	}
	if st.expired {
		m.expire(ctx)
		cmds = append(cmds, func() tea.Msg {
			return TimeoutMsg{}
		})
	}
	return tea.Batch(cmds...)
}

// =============================================================================
// SESSION STATUS
// =============================================================================

// Status represents the current session status.
type Status struct {
	SessionID     string
	Email         string
	StartTime     time.Time
	Duration      time.Duration
	IdleTime      time.Duration
	RemainingTime time.Duration
	Authenticated bool
}

// GetStatus returns the current session status.
func (m *Manager) GetStatus() Status {
	remaining := m.RemainingTime()

	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	s := Status{
		SessionID:     m.sessionID,
		Authenticated: m.user != nil,
		RemainingTime: remaining,
	}
	if m.user != nil {
		s.Email = m.user.Email
		s.StartTime = m.startTime
		s.Duration = now.Sub(m.startTime)
		s.IdleTime = now.Sub(m.lastActivity)
	}
	return s
}

// generateSessionID creates a local session ID.
func generateSessionID(t time.Time) string {
	return "sess_" + t.Format("20060102_150405")
}
