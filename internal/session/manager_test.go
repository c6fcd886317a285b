// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/chatsync"
	"github.com/jeranaias/rigchat/internal/gateway"
	"github.com/jeranaias/rigchat/internal/gateway/gatewaytest"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/playback"
	"github.com/jeranaias/rigchat/internal/store"
)

const (
	email    = "ana@example.com"
	password = "Secret123!"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newManager(t *testing.T, cfg Config) (*Manager, *gatewaytest.Fake, *clock) {
	t.Helper()
	fake := gatewaytest.New()
	fake.AddUser(email, password)
	c := &clock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	m := NewManager(fake, cfg)
	m.now = c.now
	return m, fake, c
}

// =============================================================================
// CONFIG TESTS
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 30*time.Minute, cfg.IdleTimeout)
	assert.Equal(t, 2*time.Minute, cfg.WarningBefore)
}

// =============================================================================
// AUTHENTICATION TESTS
// =============================================================================

func TestLogin(t *testing.T) {
	m, _, _ := newManager(t, DefaultConfig())
	assert.False(t, m.Authenticated())

	var events []bool
	m.Subscribe(func(v bool) { events = append(events, v) })

	u, err := m.Login(context.Background(), " ANA@example.com ", password)
	require.NoError(t, err)
	assert.Equal(t, email, u.Email)
	assert.True(t, m.Authenticated())
	assert.True(t, strings.HasPrefix(m.SessionID(), "sess_"))

	got, ok := m.User()
	require.True(t, ok)
	assert.Equal(t, u, got)
	assert.Equal(t, []bool{true}, events)
}

func TestLogin_Rejected(t *testing.T) {
	m, _, _ := newManager(t, DefaultConfig())

	_, err := m.Login(context.Background(), email, "wrong")
	require.ErrorIs(t, err, gateway.ErrUnauthorized)
	assert.False(t, m.Authenticated())

	_, err = m.Login(context.Background(), "not-an-email", password)
	assert.ErrorIs(t, err, model.ErrEmailInvalid)
}

func TestRegister_ValidatesLocally(t *testing.T) {
	m, fake, _ := newManager(t, DefaultConfig())

	_, err := m.Register(context.Background(), "new@example.com", "weak")
	assert.ErrorIs(t, err, model.ErrPasswordTooShort)
	assert.Equal(t, 0, fake.Calls(gatewaytest.OpRegister))

	u, err := m.Register(context.Background(), "New@Example.com", "Strong123!")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", u.Email)
	assert.False(t, m.Authenticated(), "registering does not log in")

	_, err = m.Login(context.Background(), "new@example.com", "Strong123!")
	assert.NoError(t, err)
}

func TestRestore(t *testing.T) {
	m, fake, _ := newManager(t, DefaultConfig())
	ctx := context.Background()

	ok, err := m.Restore(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = fake.Login(ctx, email, password)
	require.NoError(t, err)

	ok, err = m.Restore(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, m.Authenticated())

	fake.FailWith(gatewaytest.OpMe, errors.New("dns"))
	_, err = m.Restore(ctx)
	assert.Error(t, err)
}

func TestLogout(t *testing.T) {
	m, fake, _ := newManager(t, DefaultConfig())
	ctx := context.Background()
	_, err := m.Login(ctx, email, password)
	require.NoError(t, err)

	var events []bool
	unsubscribe := m.Subscribe(func(v bool) { events = append(events, v) })

	require.NoError(t, m.Logout(ctx))
	assert.False(t, m.Authenticated())
	assert.Equal(t, []bool{false}, events)

	// A second logout notifies nobody.
	require.NoError(t, m.Logout(ctx))
	assert.Equal(t, []bool{false}, events)

	unsubscribe()
	_, err = m.Login(ctx, email, password)
	require.NoError(t, err)
	assert.Equal(t, []bool{false}, events)

	fake.FailWith(gatewaytest.OpLogout, errors.New("offline"))
	assert.Error(t, m.Logout(ctx))
	assert.False(t, m.Authenticated(), "local logout happens even when the service is unreachable")
}

// =============================================================================
// IDLE TIMEOUT TESTS
// =============================================================================

func TestCheck_WarnsThenLogsOut(t *testing.T) {
	m, _, c := newManager(t, Config{IdleTimeout: 10 * time.Minute, WarningBefore: 2 * time.Minute})
	ctx := context.Background()
	_, err := m.Login(ctx, email, password)
	require.NoError(t, err)

	var warnings []time.Duration
	m.SetWarningCallback(func(d time.Duration) { warnings = append(warnings, d) })

	c.advance(5 * time.Minute)
	assert.True(t, m.Check(ctx))
	assert.Empty(t, warnings)
	assert.Equal(t, 5*time.Minute, m.RemainingTime())

	c.advance(4 * time.Minute)
	assert.True(t, m.Check(ctx))
	assert.True(t, m.Check(ctx))
	assert.Equal(t, []time.Duration{time.Minute}, warnings, "warning fires once")

	c.advance(time.Minute)
	assert.False(t, m.Check(ctx))
	assert.False(t, m.Authenticated())
	assert.Equal(t, time.Duration(0), m.RemainingTime())
}

func TestRecordActivity_ResetsTimer(t *testing.T) {
	m, _, c := newManager(t, Config{IdleTimeout: 10 * time.Minute, WarningBefore: time.Minute})
	ctx := context.Background()
	_, err := m.Login(ctx, email, password)
	require.NoError(t, err)

	c.advance(9 * time.Minute)
	m.RecordActivity()
	assert.Equal(t, time.Duration(0), m.IdleTime())
	c.advance(9 * time.Minute)
	assert.True(t, m.Check(ctx))
}

func TestCheck_TimeoutDisabled(t *testing.T) {
	m, _, c := newManager(t, Config{})
	ctx := context.Background()
	assert.False(t, m.Check(ctx), "no session")

	_, err := m.Login(ctx, email, password)
	require.NoError(t, err)
	c.advance(1000 * time.Hour)
	assert.True(t, m.Check(ctx))
	assert.Equal(t, time.Duration(-1), m.RemainingTime())
}

func TestHandleTick_TimeoutProducesMessage(t *testing.T) {
	m, _, c := newManager(t, Config{IdleTimeout: time.Minute})
	ctx := context.Background()
	_, err := m.Login(ctx, email, password)
	require.NoError(t, err)

	c.advance(2 * time.Minute)
	cmd := m.HandleTick(ctx)
	require.NotNil(t, cmd)
	assert.False(t, m.Authenticated())
}

func TestGetStatus(t *testing.T) {
	m, _, c := newManager(t, Config{IdleTimeout: 10 * time.Minute})
	assert.False(t, m.GetStatus().Authenticated)

	_, err := m.Login(context.Background(), email, password)
	require.NoError(t, err)
	c.advance(3 * time.Minute)

	st := m.GetStatus()
	assert.True(t, st.Authenticated)
	assert.Equal(t, email, st.Email)
	assert.Equal(t, 3*time.Minute, st.Duration)
	assert.Equal(t, 7*time.Minute, st.RemainingTime)
}

// =============================================================================
// ENGINE INTEGRATION
// =============================================================================

func TestLogout_ClearsConversationState(t *testing.T) {
	m, fake, _ := newManager(t, DefaultConfig())
	ctx := context.Background()
	fake.SetReply(func(string) string { return strings.Repeat("word ", 50) })

	st := store.New()
	sched := playback.NewScheduler(st, playback.WithInterval(time.Hour))
	eng := chatsync.New(st, fake, sched, chatsync.WithIdentity(m))
	defer eng.Close()

	_, err := eng.SendMessage(ctx, "hi", model.ID{})
	assert.ErrorIs(t, err, chatsync.ErrNoIdentity)

	_, err = m.Login(ctx, email, password)
	require.NoError(t, err)
	_, err = eng.SendMessage(ctx, "hi", model.ID{})
	require.NoError(t, err)
	eng.Wait()
	require.Equal(t, 1, st.Len())
	require.Equal(t, 1, sched.Active())

	require.NoError(t, m.Logout(ctx))
	assert.Equal(t, 0, st.Len())
	require.Eventually(t, func() bool { return sched.Active() == 0 }, 5*time.Second, time.Millisecond)
}
