package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/geocoder89/akbidlab/internal/domain/user"
	"github.com/geocoder89/akbidlab/internal/identity"
	"github.com/geocoder89/akbidlab/internal/session"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu       sync.Mutex
	m        map[string][]byte
	setErr   error
	delErr   error
	delPanic bool
	deletes  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{m: make(map[string][]byte)}
}

func (s *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	if !ok {
		return nil, session.ErrNotFound
	}
	return v, nil
}

func (s *fakeStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.m[key] = value
	return nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	if s.delPanic {
		panic("store exploded")
	}
	if s.delErr != nil {
		return s.delErr
	}
	delete(s.m, key)
	return nil
}

func (s *fakeStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.m[key]
	return ok
}

type fakeIdentity struct {
	signIn      func(ctx context.Context, email, password string) (identity.AuthResult, error)
	signOut     func(ctx context.Context, token string) error
	current     func(ctx context.Context, token string) (user.User, error)
	signInCalls atomic.Int32
}

func (f *fakeIdentity) SignIn(ctx context.Context, email, password string) (identity.AuthResult, error) {
	f.signInCalls.Add(1)
	if f.signIn == nil {
		return identity.AuthResult{}, identity.ErrInvalidCredentials
	}
	return f.signIn(ctx, email, password)
}

func (f *fakeIdentity) SignOut(ctx context.Context, token string) error {
	if f.signOut == nil {
		return nil
	}
	return f.signOut(ctx, token)
}

func (f *fakeIdentity) GetCurrentUser(ctx context.Context, token string) (user.User, error) {
	if f.current == nil {
		return user.User{}, identity.ErrSessionNotFound
	}
	return f.current(ctx, token)
}

type fakeNavigator struct {
	target  string
	replace bool
	calls   int
}

func (n *fakeNavigator) Navigate(target string, replace bool) {
	n.target = target
	n.replace = replace
	n.calls++
}

func sampleUser(role user.Role) user.User {
	return user.User{
		ID:       "u-" + string(role),
		Email:    string(role) + "@akbid.com",
		Name:     "User " + string(role),
		Role:     role,
		IsActive: true,
	}
}

// signInAs accepts any password and resolves the test account by email.
func signInAs(accounts []identity.TestAccount) func(context.Context, string, string) (identity.AuthResult, error) {
	return func(_ context.Context, email, password string) (identity.AuthResult, error) {
		for _, a := range accounts {
			if a.Email == email && a.Password == password {
				u := user.User{ID: a.ID, Email: a.Email, Name: a.Name, Role: a.Role, IsActive: true}
				return identity.AuthResult{
					User:    u,
					Session: identity.Session{AccessToken: "tok-" + string(a.Role), UserID: a.ID},
				}, nil
			}
		}
		return identity.AuthResult{}, identity.ErrInvalidCredentials
	}
}

func newController(t *testing.T, store session.Store, id Identity, opts Options) *Controller {
	t.Helper()
	c := NewController("sid-1", store, id, opts)
	c.Initialize(context.Background())
	return c
}

func TestInitialize_NoEntry(t *testing.T) {
	ids := &fakeIdentity{}
	c := newController(t, newFakeStore(), ids, Options{})

	st := c.State()
	require.False(t, st.Loading)
	require.False(t, st.IsAuthenticated)
	require.Nil(t, st.User)
	require.Equal(t, Unauthenticated, Decide(st))
	require.Zero(t, ids.signInCalls.Load())
}

func TestInitialize_DiscardsMalformedEntries(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"whitespace":     "   ",
		"not json":       "{user",
		"json null":      "null",
		"array":          "[]",
		"missing id":     `{"name":"A","role":"admin"}`,
		"blank name":     `{"id":"1","name":"  ","role":"admin"}`,
		"unknown role":   `{"id":"1","name":"A","role":"root"}`,
		"missing role":   `{"id":"1","name":"A"}`,
		"wrong id type":  `{"id":7,"name":"A","role":"admin"}`,
		"truncated json": `{"id":"1","name":"A","role":"adm`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			store := newFakeStore()
			store.m[session.Key("sid-1")] = []byte(raw)

			c := newController(t, store, &fakeIdentity{}, Options{})

			st := c.State()
			require.False(t, st.IsAuthenticated)
			require.False(t, st.Loading)
			require.Nil(t, st.User)
			require.False(t, store.has(session.Key("sid-1")), "malformed entry must be removed")
		})
	}
}

func TestInitialize_RestoresValidEntryWithoutIdentityCall(t *testing.T) {
	store := newFakeStore()
	raw, err := session.Encode(sampleUser(user.RoleLaboran))
	require.NoError(t, err)
	store.m[session.Key("sid-1")] = raw

	ids := &fakeIdentity{}
	c := newController(t, store, ids, Options{})

	st := c.State()
	require.True(t, st.IsAuthenticated)
	require.Equal(t, Authenticated, Decide(st))
	require.Equal(t, user.RoleLaboran, st.Role())
	require.Zero(t, ids.signInCalls.Load())
	require.True(t, c.IsLaboran())
	require.False(t, c.IsAdmin())
}

func TestInitialize_RunsOnce(t *testing.T) {
	store := newFakeStore()
	c := newController(t, store, &fakeIdentity{}, Options{})

	raw, err := session.Encode(sampleUser(user.RoleAdmin))
	require.NoError(t, err)
	store.m[session.Key("sid-1")] = raw

	st := c.Initialize(context.Background())
	require.False(t, st.IsAuthenticated)
}

func TestLogin_EmptyCredentialsNeverReachIdentity(t *testing.T) {
	ids := &fakeIdentity{}
	c := newController(t, newFakeStore(), ids, Options{})

	for _, creds := range []Credentials{
		{},
		{Email: "a@akbid.com"},
		{Password: "secret"},
		{Email: "   ", Password: "secret"},
	} {
		_, err := c.Login(context.Background(), creds)
		require.ErrorIs(t, err, ErrValidation)
	}

	require.Zero(t, ids.signInCalls.Load())
	require.False(t, c.State().IsAuthenticated)
}

func TestLogin_FailureKeepsUserAndSetsMessage(t *testing.T) {
	ids := &fakeIdentity{}
	c := newController(t, newFakeStore(), ids, Options{})

	_, err := c.Login(context.Background(), Credentials{Email: "x@akbid.com", Password: "nope"})
	require.ErrorIs(t, err, identity.ErrInvalidCredentials)

	st := c.State()
	require.False(t, st.Loading)
	require.False(t, st.IsAuthenticated)
	require.Equal(t, "Email atau password salah", st.Error)
}

func TestLogin_SuccessPersistsSession(t *testing.T) {
	store := newFakeStore()
	ids := &fakeIdentity{signIn: signInAs(identity.TestAccounts())}
	c := newController(t, store, ids, Options{})

	u, err := c.Login(context.Background(), Credentials{Email: " dosen@akbid.com ", Password: "dosen123"})
	require.NoError(t, err)
	require.Equal(t, user.RoleDosen, u.Role)

	st := c.State()
	require.True(t, st.IsAuthenticated)
	require.False(t, st.Loading)
	require.Empty(t, st.Error)

	raw, err := store.Get(context.Background(), session.Key("sid-1"))
	require.NoError(t, err)
	stored, err := session.Decode(raw)
	require.NoError(t, err)
	require.Equal(t, u.ID, stored.ID)
}

func TestLogin_SessionWriteFailure(t *testing.T) {
	store := newFakeStore()
	store.setErr = errors.New("disk full")
	ids := &fakeIdentity{signIn: signInAs(identity.TestAccounts())}
	c := newController(t, store, ids, Options{})

	_, err := c.Login(context.Background(), Credentials{Email: "admin@akbid.com", Password: "admin123"})
	require.ErrorIs(t, err, ErrSessionWrite)
	require.False(t, c.State().IsAuthenticated)
	require.Equal(t, "Sesi tidak dapat disimpan", c.State().Error)
}

type tokenWriteFails struct {
	*fakeStore
}

func (s tokenWriteFails) Set(ctx context.Context, key string, value []byte) error {
	if key == session.TokenKey("sid-1") {
		return errors.New("token write failed")
	}
	return s.fakeStore.Set(ctx, key, value)
}

func TestLogin_TokenWriteFailureLeavesNoEntry(t *testing.T) {
	store := newFakeStore()
	ids := &fakeIdentity{signIn: signInAs(identity.TestAccounts())}
	c := newController(t, tokenWriteFails{store}, ids, Options{})

	_, err := c.Login(context.Background(), Credentials{Email: "admin@akbid.com", Password: "admin123"})
	require.ErrorIs(t, err, ErrSessionWrite)
	require.False(t, store.has(session.Key("sid-1")))

	require.False(t, c.Revalidate(context.Background()).IsAuthenticated)
}

func TestLogin_RejectsConcurrentAttempt(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	accounts := identity.TestAccounts()

	ids := &fakeIdentity{}
	ids.signIn = func(ctx context.Context, email, password string) (identity.AuthResult, error) {
		close(started)
		<-release
		return signInAs(accounts)(ctx, email, password)
	}
	c := newController(t, newFakeStore(), ids, Options{})

	done := make(chan error, 1)
	go func() {
		_, err := c.Login(context.Background(), Credentials{Email: "admin@akbid.com", Password: "admin123"})
		done <- err
	}()

	<-started
	require.True(t, c.State().Loading)
	require.Equal(t, Pending, Decide(c.State()))

	_, err := c.Login(context.Background(), Credentials{Email: "dosen@akbid.com", Password: "dosen123"})
	require.ErrorIs(t, err, ErrInFlight)

	close(release)
	require.NoError(t, <-done)
	require.Equal(t, user.RoleAdmin, c.State().Role())
	require.EqualValues(t, 1, ids.signInCalls.Load())
}

func TestLogin_SupersededByLogout(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	accounts := identity.TestAccounts()
	store := newFakeStore()

	var signedOut atomic.Int32
	ids := &fakeIdentity{
		signOut: func(context.Context, string) error {
			signedOut.Add(1)
			return nil
		},
	}
	ids.signIn = func(ctx context.Context, email, password string) (identity.AuthResult, error) {
		close(started)
		<-release
		return signInAs(accounts)(ctx, email, password)
	}
	c := newController(t, store, ids, Options{})

	done := make(chan error, 1)
	go func() {
		_, err := c.Login(context.Background(), Credentials{Email: "admin@akbid.com", Password: "admin123"})
		done <- err
	}()

	<-started
	c.Logout(context.Background(), &fakeNavigator{})
	close(release)

	require.ErrorIs(t, <-done, ErrSuperseded)

	st := c.State()
	require.False(t, st.IsAuthenticated)
	require.False(t, st.Loading)
	require.False(t, store.has(session.Key("sid-1")))
	require.EqualValues(t, 1, signedOut.Load())
}

func TestLogout_ClearsAndNavigates(t *testing.T) {
	store := newFakeStore()
	var gotToken string
	ids := &fakeIdentity{
		signIn: signInAs(identity.TestAccounts()),
		signOut: func(_ context.Context, token string) error {
			gotToken = token
			return nil
		},
	}
	c := newController(t, store, ids, Options{})

	_, err := c.Login(context.Background(), Credentials{Email: "laboran@akbid.com", Password: "laboran123"})
	require.NoError(t, err)

	nav := &fakeNavigator{}
	c.Logout(context.Background(), nav)

	require.Equal(t, "tok-laboran", gotToken)
	require.False(t, store.has(session.Key("sid-1")))
	require.False(t, c.State().IsAuthenticated)
	require.Equal(t, LoginPath, nav.target)
	require.True(t, nav.replace)
	require.Equal(t, 1, nav.calls)
}

func TestLogout_SurvivesCollaboratorFailures(t *testing.T) {
	tests := []struct {
		name    string
		store   func(*fakeStore)
		signOut func(context.Context, string) error
	}{
		{
			name:  "store delete errors",
			store: func(s *fakeStore) { s.delErr = errors.New("unavailable") },
		},
		{
			name:  "store delete panics",
			store: func(s *fakeStore) { s.delPanic = true },
		},
		{
			name:    "sign out errors",
			signOut: func(context.Context, string) error { return errors.New("backend down") },
		},
		{
			name:    "sign out panics",
			signOut: func(context.Context, string) error { panic("boom") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			ids := &fakeIdentity{signIn: signInAs(identity.TestAccounts()), signOut: tt.signOut}
			c := newController(t, store, ids, Options{})

			_, err := c.Login(context.Background(), Credentials{Email: "admin@akbid.com", Password: "admin123"})
			require.NoError(t, err)

			if tt.store != nil {
				tt.store(store)
			}

			nav := &fakeNavigator{}
			require.NotPanics(t, func() { c.Logout(context.Background(), nav) })

			require.False(t, c.State().IsAuthenticated)
			require.Nil(t, c.State().User)
			require.Equal(t, LoginPath, nav.target)
			require.True(t, nav.replace)
		})
	}
}

func TestRolePredicates(t *testing.T) {
	for _, role := range user.Roles {
		t.Run(string(role), func(t *testing.T) {
			store := newFakeStore()
			raw, err := session.Encode(sampleUser(role))
			require.NoError(t, err)
			store.m[session.Key("sid-1")] = raw

			c := newController(t, store, &fakeIdentity{}, Options{})

			require.True(t, c.HasRole(role), "hasRole must be reflexive")
			require.True(t, c.Authorize(role))

			if c.IsAdmin() || c.IsDevSuper() {
				require.True(t, c.IsDosen())
				require.True(t, c.IsLaboran())
				require.True(t, c.IsMahasiswa())
			}
			if c.IsDevSuper() {
				require.True(t, c.IsAdmin())
			}
		})
	}
}

func TestRolePredicates_Unauthenticated(t *testing.T) {
	c := newController(t, newFakeStore(), &fakeIdentity{}, Options{})

	require.False(t, c.HasRole(user.Roles...))
	require.False(t, c.IsAdmin())
	require.False(t, c.IsMahasiswa())
	require.False(t, c.IsDevSuper())
}

func TestRolePredicates_MahasiswaIsNotStaff(t *testing.T) {
	store := newFakeStore()
	raw, err := session.Encode(sampleUser(user.RoleMahasiswa))
	require.NoError(t, err)
	store.m[session.Key("sid-1")] = raw

	c := newController(t, store, &fakeIdentity{}, Options{})

	require.True(t, c.IsMahasiswa())
	require.False(t, c.IsAdmin())
	require.False(t, c.IsDosen())
	require.False(t, c.IsLaboran())
	require.False(t, c.IsDevSuper())
	require.False(t, c.Authorize(user.RoleAdmin, user.RoleDosen))
}

func TestDevQuickLogin_SwitchesRole(t *testing.T) {
	accounts := identity.TestAccounts()
	store := newFakeStore()
	ids := &fakeIdentity{signIn: signInAs(accounts)}
	c := newController(t, store, ids, Options{RoleSwitching: true, TestAccounts: accounts})

	_, err := c.DevQuickLogin(context.Background(), user.RoleMahasiswa)
	require.NoError(t, err)
	require.True(t, c.IsMahasiswa())
	require.False(t, c.IsAdmin())

	u, err := c.DevQuickLogin(context.Background(), user.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, user.RoleAdmin, u.Role)
	require.True(t, c.IsAdmin())

	raw, err := store.Get(context.Background(), session.Key("sid-1"))
	require.NoError(t, err)
	stored, err := session.Decode(raw)
	require.NoError(t, err)
	require.Equal(t, user.RoleAdmin, stored.Role)
}

func TestDevQuickLogin_Disabled(t *testing.T) {
	ids := &fakeIdentity{signIn: signInAs(identity.TestAccounts())}
	c := newController(t, newFakeStore(), ids, Options{TestAccounts: identity.TestAccounts()})

	_, err := c.DevQuickLogin(context.Background(), user.RoleAdmin)
	require.ErrorIs(t, err, ErrDevModeDisabled)
	require.Zero(t, ids.signInCalls.Load())
}

func TestDevQuickLogin_UnknownAccount(t *testing.T) {
	ids := &fakeIdentity{}
	c := newController(t, newFakeStore(), ids, Options{RoleSwitching: true})

	_, err := c.DevQuickLogin(context.Background(), user.RoleLaboran)
	require.ErrorIs(t, err, ErrUnknownTestAccount)
	require.Equal(t, "Test account tidak ditemukan", c.State().Error)
	require.Zero(t, ids.signInCalls.Load())
}

func TestSubscribe_ReceivesSnapshots(t *testing.T) {
	ids := &fakeIdentity{signIn: signInAs(identity.TestAccounts())}
	c := newController(t, newFakeStore(), ids, Options{})

	var mu sync.Mutex
	var got []State
	cancel := c.Subscribe(func(s State) {
		mu.Lock()
		got = append(got, s)
		mu.Unlock()
	})

	_, err := c.Login(context.Background(), Credentials{Email: "admin@akbid.com", Password: "admin123"})
	require.NoError(t, err)

	cancel()
	c.Logout(context.Background(), nil)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	require.True(t, got[0].Loading)
	require.True(t, got[1].IsAuthenticated)

	// snapshots are copies
	got[1].User.Role = user.RoleMahasiswa
	require.False(t, c.IsMahasiswa())
}

func TestRegistry_ReusesAndRestores(t *testing.T) {
	store := newFakeStore()
	ids := &fakeIdentity{signIn: signInAs(identity.TestAccounts())}
	reg := NewRegistry(store, ids, Options{}, time.Minute)
	ctx := context.Background()

	c1 := reg.Controller(ctx, "abc")
	require.Same(t, c1, reg.Controller(ctx, "abc"))
	require.Equal(t, 1, reg.Len())

	_, err := c1.Login(ctx, Credentials{Email: "dosen@akbid.com", Password: "dosen123"})
	require.NoError(t, err)

	reg.Forget("abc")
	_, ok := reg.Lookup("abc")
	require.False(t, ok)

	c2 := reg.Controller(ctx, "abc")
	require.NotSame(t, c1, c2)
	require.True(t, c2.State().IsAuthenticated)
	require.Equal(t, user.RoleDosen, c2.State().Role())

	other := reg.Controller(ctx, "xyz")
	require.False(t, other.State().IsAuthenticated)
}

func TestLogin_PersistsAccessToken(t *testing.T) {
	store := newFakeStore()
	ids := &fakeIdentity{signIn: signInAs(identity.TestAccounts())}
	c := newController(t, store, ids, Options{})

	_, err := c.Login(context.Background(), Credentials{Email: "admin@akbid.com", Password: "admin123"})
	require.NoError(t, err)

	raw, err := store.Get(context.Background(), session.TokenKey("sid-1"))
	require.NoError(t, err)
	require.Equal(t, "tok-admin", string(raw))
}

func TestLogout_AfterControllerRebuildSignsOutRemoteSession(t *testing.T) {
	store := newFakeStore()
	var gotToken string
	ids := &fakeIdentity{
		signIn: signInAs(identity.TestAccounts()),
		signOut: func(_ context.Context, token string) error {
			gotToken = token
			return nil
		},
	}
	reg := NewRegistry(store, ids, Options{}, time.Minute)
	ctx := context.Background()

	_, err := reg.Controller(ctx, "abc").Login(ctx, Credentials{Email: "dosen@akbid.com", Password: "dosen123"})
	require.NoError(t, err)

	reg.Forget("abc")
	rebuilt := reg.Controller(ctx, "abc")
	require.True(t, rebuilt.State().IsAuthenticated)

	rebuilt.Logout(ctx, nil)

	require.Equal(t, "tok-dosen", gotToken)
	require.False(t, store.has(session.Key("abc")))
	require.False(t, store.has(session.TokenKey("abc")))
}

func TestRegistry_PicksUpLogoutFromAnotherReplica(t *testing.T) {
	store := newFakeStore()
	ids := &fakeIdentity{signIn: signInAs(identity.TestAccounts())}
	ctx := context.Background()

	replicaA := NewRegistry(store, ids, Options{}, time.Minute)
	replicaB := NewRegistry(store, ids, Options{}, time.Minute)

	_, err := replicaA.Controller(ctx, "abc").Login(ctx, Credentials{Email: "admin@akbid.com", Password: "admin123"})
	require.NoError(t, err)

	onB := replicaB.Controller(ctx, "abc")
	require.True(t, onB.State().IsAuthenticated)

	replicaA.Controller(ctx, "abc").Logout(ctx, nil)

	st := replicaB.Controller(ctx, "abc").State()
	require.False(t, st.IsAuthenticated)
	require.Nil(t, st.User)
	require.False(t, onB.IsAdmin())
}

func TestRegistry_PicksUpRoleSwitchFromAnotherReplica(t *testing.T) {
	accounts := identity.TestAccounts()
	store := newFakeStore()
	ids := &fakeIdentity{signIn: signInAs(accounts)}
	opts := Options{RoleSwitching: true, TestAccounts: accounts}
	ctx := context.Background()

	replicaA := NewRegistry(store, ids, opts, time.Minute)
	replicaB := NewRegistry(store, ids, opts, time.Minute)

	_, err := replicaA.Controller(ctx, "abc").DevQuickLogin(ctx, user.RoleMahasiswa)
	require.NoError(t, err)
	require.True(t, replicaB.Controller(ctx, "abc").IsMahasiswa())

	_, err = replicaA.Controller(ctx, "abc").DevQuickLogin(ctx, user.RoleAdmin)
	require.NoError(t, err)

	onB := replicaB.Controller(ctx, "abc")
	require.True(t, onB.IsAdmin())

	var gotToken string
	ids.signOut = func(_ context.Context, token string) error {
		gotToken = token
		return nil
	}
	onB.Logout(ctx, nil)
	require.Equal(t, "tok-admin", gotToken)
}

func TestRevalidate_KeepsStateWhenStoreUnreadable(t *testing.T) {
	store := &flakyStore{fakeStore: newFakeStore()}
	ids := &fakeIdentity{signIn: signInAs(identity.TestAccounts())}
	c := newController(t, store, ids, Options{})

	_, err := c.Login(context.Background(), Credentials{Email: "laboran@akbid.com", Password: "laboran123"})
	require.NoError(t, err)

	store.getErr = errors.New("connection refused")
	st := c.Revalidate(context.Background())
	require.True(t, st.IsAuthenticated)
	require.True(t, c.IsLaboran())
}

type flakyStore struct {
	*fakeStore
	getErr error
}

func (s *flakyStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.fakeStore.Get(ctx, key)
}

func TestRegistry_RotateRetiresOldSessionID(t *testing.T) {
	store := newFakeStore()
	ids := &fakeIdentity{signIn: signInAs(identity.TestAccounts())}
	reg := NewRegistry(store, ids, Options{}, time.Minute)
	ctx := context.Background()

	planted := reg.Controller(ctx, "planted")
	_, err := planted.Login(ctx, Credentials{Email: "admin@akbid.com", Password: "admin123"})
	require.NoError(t, err)

	next, moved, err := reg.Rotate(ctx, "planted")
	require.NoError(t, err)
	require.NotEqual(t, "planted", next)
	require.Same(t, planted, moved)
	require.Equal(t, next, moved.SessionID())

	require.False(t, store.has(session.Key("planted")))
	require.False(t, store.has(session.TokenKey("planted")))
	require.True(t, store.has(session.Key(next)))
	require.True(t, store.has(session.TokenKey(next)))

	require.False(t, reg.Controller(ctx, "planted").State().IsAuthenticated)
	require.Same(t, moved, reg.Controller(ctx, next))
	require.True(t, moved.IsAdmin())

	_, _, err = reg.Rotate(ctx, "never-seen")
	require.ErrorIs(t, err, ErrUnknownSession)
}

func TestRegistry_SweepKeepsSubscribedControllers(t *testing.T) {
	reg := NewRegistry(newFakeStore(), &fakeIdentity{}, Options{}, 10*time.Millisecond)
	ctx := context.Background()

	watched := reg.Controller(ctx, "watched")
	cancel := watched.Subscribe(func(State) {})
	reg.Controller(ctx, "idle")

	time.Sleep(30 * time.Millisecond)

	require.Equal(t, 1, reg.Sweep())
	got, ok := reg.Lookup("watched")
	require.True(t, ok)
	require.Same(t, watched, got)

	cancel()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, 1, reg.Sweep())
	require.Zero(t, reg.Len())
}

func TestVerify_RefreshesProfile(t *testing.T) {
	store := newFakeStore()
	var gotToken string
	ids := &fakeIdentity{
		signIn: signInAs(identity.TestAccounts()),
		current: func(_ context.Context, token string) (user.User, error) {
			gotToken = token
			u := sampleUser(user.RoleDosen)
			u.Name = "Dosen Renamed"
			return u, nil
		},
	}
	c := newController(t, store, ids, Options{})

	_, err := c.Login(context.Background(), Credentials{Email: "dosen@akbid.com", Password: "dosen123"})
	require.NoError(t, err)

	u, err := c.Verify(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tok-dosen", gotToken)
	require.Equal(t, "Dosen Renamed", u.Name)
	require.Equal(t, "Dosen Renamed", c.State().User.Name)

	raw, err := store.Get(context.Background(), session.Key("sid-1"))
	require.NoError(t, err)
	stored, err := session.Decode(raw)
	require.NoError(t, err)
	require.Equal(t, "Dosen Renamed", stored.Name)
}

func TestVerify_RevokedSessionLogsOut(t *testing.T) {
	tests := []struct {
		name string
		err  error
		u    user.User
	}{
		{name: "remote session gone", err: identity.ErrSessionNotFound},
		{name: "token rejected", err: identity.ErrInvalidToken},
		{name: "user deleted", err: user.ErrNotFound},
		{name: "user deactivated", u: sampleUser(user.RoleAdmin)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			ids := &fakeIdentity{
				signIn: signInAs(identity.TestAccounts()),
				current: func(context.Context, string) (user.User, error) {
					u := tt.u
					u.IsActive = false
					return u, tt.err
				},
			}
			c := newController(t, store, ids, Options{})

			_, err := c.Login(context.Background(), Credentials{Email: "admin@akbid.com", Password: "admin123"})
			require.NoError(t, err)

			_, err = c.Verify(context.Background())
			require.ErrorIs(t, err, ErrSessionExpired)

			st := c.State()
			require.False(t, st.IsAuthenticated)
			require.Equal(t, Message(ErrSessionExpired), st.Error)
			require.False(t, store.has(session.Key("sid-1")))
			require.False(t, store.has(session.TokenKey("sid-1")))
		})
	}
}

func TestVerify_TransientErrorKeepsSession(t *testing.T) {
	store := newFakeStore()
	ids := &fakeIdentity{
		signIn: signInAs(identity.TestAccounts()),
		current: func(context.Context, string) (user.User, error) {
			return user.User{}, errors.New("db timeout")
		},
	}
	c := newController(t, store, ids, Options{})

	_, err := c.Login(context.Background(), Credentials{Email: "admin@akbid.com", Password: "admin123"})
	require.NoError(t, err)

	_, err = c.Verify(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrSessionExpired)
	require.True(t, c.State().IsAuthenticated)
	require.True(t, store.has(session.Key("sid-1")))
}

func TestVerify_Unauthenticated(t *testing.T) {
	c := newController(t, newFakeStore(), &fakeIdentity{}, Options{})

	_, err := c.Verify(context.Background())
	require.ErrorIs(t, err, ErrNotAuthenticated)
}
