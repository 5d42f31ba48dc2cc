package session_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ManiGOo/feedapp-go/internal/client"
	"github.com/ManiGOo/feedapp-go/internal/credentials"
	"github.com/ManiGOo/feedapp-go/internal/models"
	"github.com/ManiGOo/feedapp-go/internal/session"
	"github.com/ManiGOo/feedapp-go/internal/testsrv"
	logctx "github.com/ManiGOo/feedapp-go/pkg/log"
)

// fakeIdentity — ручная заглушка IdentityClient.
type fakeIdentity struct {
	user  *models.User
	err   error
	calls int
}

func (f *fakeIdentity) Me(_ context.Context) (*models.User, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

func TestManager_StartsInitializing(t *testing.T) {
	t.Parallel()

	m := session.NewManager(credentials.NewMemoryStore(), &fakeIdentity{}, logctx.Discard())

	snap := m.Current()
	require.Equal(t, session.StateInitializing, snap.State)
	require.Nil(t, snap.Identity)
	require.True(t, snap.Loading())
}

func TestWaitReady_BlocksUntilResolved(t *testing.T) {
	t.Parallel()

	m := session.NewManager(credentials.NewMemoryStore(), &fakeIdentity{}, logctx.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, m.WaitReady(ctx), context.DeadlineExceeded)

	m.Init(context.Background())
	require.NoError(t, m.WaitReady(context.Background()))
}

func TestInit_NoToken_Anonymous(t *testing.T) {
	t.Parallel()

	api := &fakeIdentity{user: &models.User{ID: 1}}
	m := session.NewManager(credentials.NewMemoryStore(), api, logctx.Discard())

	m.Init(context.Background())

	require.Equal(t, session.StateAnonymous, m.Current().State)
	// без токена личность не запрашивается вовсе
	require.Zero(t, api.calls)
}

func TestInit_StoredToken_Authenticated(t *testing.T) {
	t.Parallel()

	store := credentials.NewMemoryStore()
	require.NoError(t, store.Save(credentials.Pair{AccessToken: "a", RefreshToken: "r"}))

	api := &fakeIdentity{user: &models.User{ID: 7, Username: "alice"}}
	m := session.NewManager(store, api, logctx.Discard())

	m.Init(context.Background())

	snap := m.Current()
	require.Equal(t, session.StateAuthenticated, snap.State)
	require.NotNil(t, snap.Identity)
	require.EqualValues(t, 7, snap.Identity.ID)
	require.Equal(t, 1, api.calls)
}

func TestInit_IdentityFails_ClearsAndAnonymous(t *testing.T) {
	t.Parallel()

	store := credentials.NewMemoryStore()
	require.NoError(t, store.Save(credentials.Pair{AccessToken: "a", RefreshToken: "r"}))

	api := &fakeIdentity{err: errors.New("boom")}
	m := session.NewManager(store, api, logctx.Discard())

	m.Init(context.Background())

	require.Equal(t, session.StateAnonymous, m.Current().State)

	_, ok, err := store.Read()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLogout_ClearsStoreSynchronously(t *testing.T) {
	t.Parallel()

	store := credentials.NewMemoryStore()
	require.NoError(t, store.Save(credentials.Pair{AccessToken: "a", RefreshToken: "r"}))

	m := session.NewManager(store, &fakeIdentity{}, logctx.Discard())
	m.SetAuthenticated(&models.User{ID: 1})

	m.Logout()

	require.Equal(t, session.StateAnonymous, m.Current().State)
	_, ok, err := store.Read()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInvalidate_TransitionsToAnonymous(t *testing.T) {
	t.Parallel()

	m := session.NewManager(credentials.NewMemoryStore(), &fakeIdentity{}, logctx.Discard())
	m.SetAuthenticated(&models.User{ID: 1})

	m.Invalidate()

	snap := m.Current()
	require.Equal(t, session.StateAnonymous, snap.State)
	require.Nil(t, snap.Identity)
}

func TestSubscribe_NotifyAndUnsubscribe(t *testing.T) {
	t.Parallel()

	m := session.NewManager(credentials.NewMemoryStore(), &fakeIdentity{}, logctx.Discard())

	var got []session.Snapshot
	unsub := m.Subscribe(func(s session.Snapshot) { got = append(got, s) })

	m.SetAuthenticated(&models.User{ID: 3})
	require.Len(t, got, 1)
	require.Equal(t, session.StateAuthenticated, got[0].State)

	unsub()
	m.Logout()
	require.Len(t, got, 1)
}

func TestRequireAuthenticated(t *testing.T) {
	t.Parallel()

	m := session.NewManager(credentials.NewMemoryStore(), &fakeIdentity{}, logctx.Discard())

	_, err := m.RequireAuthenticated()
	require.ErrorIs(t, err, session.ErrNotAuthenticated)

	m.SetAuthenticated(&models.User{ID: 5})

	u, err := m.RequireAuthenticated()
	require.NoError(t, err)
	require.EqualValues(t, 5, u.ID)
}

// Сквозные стартовые сценарии: менеджер поверх живого клиента и заглушки API.

func newStack(t *testing.T) (*testsrv.Server, credentials.Store, *client.Client, *session.Manager) {
	t.Helper()

	stub := testsrv.New()
	hs := httptest.NewServer(stub.Handler())
	t.Cleanup(hs.Close)

	store := credentials.NewMemoryStore()

	c, err := client.New(client.Options{
		BaseURL: hs.URL,
		Store:   store,
		Logger:  logctx.Discard(),
	})
	require.NoError(t, err)

	m := session.NewManager(store, c, logctx.Discard())
	c.SetOnSessionInvalid(m.Invalidate)

	return stub, store, c, m
}

// Протухший access при живом refresh: транспорт чинит сессию незаметно,
// старт заканчивается в Authenticated без участия менеджера.
func TestStartup_ExpiredAccess_SilentRecovery(t *testing.T) {
	t.Parallel()

	stub, store, _, m := newStack(t)
	u := stub.SeedUser("alice", "alice@example.com", "Secret1!")

	require.NoError(t, store.Save(credentials.Pair{
		AccessToken:  stub.IssueExpiredAccess(u.ID),
		RefreshToken: stub.IssueRefresh(u.ID),
	}))

	m.Init(context.Background())

	snap := m.Current()
	require.Equal(t, session.StateAuthenticated, snap.State)
	require.EqualValues(t, u.ID, snap.Identity.ID)
	require.EqualValues(t, 1, stub.RefreshCalls())
}

// Протухший access при негодном refresh: принудительный выход,
// хранилище очищено, состояние — Anonymous.
func TestStartup_InvalidRefresh_ForcedLogout(t *testing.T) {
	t.Parallel()

	stub, store, _, m := newStack(t)
	u := stub.SeedUser("alice", "alice@example.com", "Secret1!")

	require.NoError(t, store.Save(credentials.Pair{
		AccessToken:  stub.IssueExpiredAccess(u.ID),
		RefreshToken: "bogus",
	}))

	m.Init(context.Background())

	require.Equal(t, session.StateAnonymous, m.Current().State)

	_, ok, err := store.Read()
	require.NoError(t, err)
	require.False(t, ok)
}

// После logout защищённый вызов отклоняется локально, без сети.
func TestLogout_SubsequentCallRejectedLocally(t *testing.T) {
	t.Parallel()

	stub, store, c, m := newStack(t)
	u := stub.SeedUser("alice", "alice@example.com", "Secret1!")
	require.NoError(t, store.Save(stub.IssueTokens(u.ID)))

	m.Init(context.Background())
	require.Equal(t, session.StateAuthenticated, m.Current().State)

	before := stub.Requests()
	m.Logout()

	_, err := c.Me(context.Background())
	require.ErrorIs(t, err, client.ErrNoSession)
	require.Equal(t, before, stub.Requests())
}
