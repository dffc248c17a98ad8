// Package auth owns the authentication state of one client session: it
// restores the session entry, performs login, role switch and logout, and
// answers role questions for the route guards and the navigation filter.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/geocoder89/akbidlab/internal/domain/user"
	"github.com/geocoder89/akbidlab/internal/identity"
	"github.com/geocoder89/akbidlab/internal/session"
)

// Identity is the part of the identity service the controller calls.
type Identity interface {
	SignIn(ctx context.Context, email, password string) (identity.AuthResult, error)
	SignOut(ctx context.Context, accessToken string) error
	GetCurrentUser(ctx context.Context, accessToken string) (user.User, error)
}

type Options struct {
	// RoleSwitching enables DevQuickLogin against TestAccounts.
	RoleSwitching bool
	TestAccounts  []identity.TestAccount
	Logger        *slog.Logger
	Recorder      Recorder
}

var (
	adminRoles     = user.Expand(user.RoleAdmin)
	dosenRoles     = user.Expand(user.RoleDosen)
	laboranRoles   = user.Expand(user.RoleLaboran)
	mahasiswaRoles = user.Expand(user.RoleMahasiswa)
	devSuperRoles  = user.Expand(user.RoleDevSuper)
)

type Controller struct {
	store     session.Store
	identity  Identity
	opts      Options
	log       *slog.Logger
	rec       Recorder

	initOnce sync.Once
	inflight atomic.Bool

	mu        sync.RWMutex
	sessionID string
	key       string
	tokenKey  string
	state     State
	token     string
	epoch     uint64

	subMu   sync.Mutex
	subs    map[uint64]func(State)
	nextSub uint64
}

func NewController(sessionID string, store session.Store, id Identity, opts Options) *Controller {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	var rec Recorder = noopRecorder{}
	if opts.Recorder != nil {
		rec = opts.Recorder
	}

	return &Controller{
		sessionID: sessionID,
		key:       session.Key(sessionID),
		tokenKey:  session.TokenKey(sessionID),
		store:     store,
		identity:  id,
		opts:      opts,
		log:       log,
		rec:       rec,
		state:     State{Loading: true},
		subs:      make(map[uint64]func(State)),
	}
}

func (c *Controller) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

func (c *Controller) keys() (key, tokenKey string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.key, c.tokenKey
}

// Initialize restores the session entry once per controller. It only reads
// the session store; the identity service is never consulted.
func (c *Controller) Initialize(ctx context.Context) State {
	c.initOnce.Do(func() { c.restore(ctx) })
	return c.State()
}

func (c *Controller) restore(ctx context.Context) {
	key, tokenKey := c.keys()
	result := "empty"

	raw, err := c.store.Get(ctx, key)
	switch {
	case errors.Is(err, session.ErrNotFound):
		c.log.DebugContext(ctx, "auth: no existing session")
	case err != nil:
		c.log.WarnContext(ctx, "auth: session read failed", "err", err)
		result = "read_error"
	default:
		u, err := session.Decode(raw)
		if err == nil {
			token := c.readToken(ctx, tokenKey)
			c.commit(func(s *State) {
				c.token = token
				*s = State{User: &u, IsAuthenticated: true}
			})
			c.log.InfoContext(ctx, "auth: session restored", "user_id", u.ID, "role", u.Role)
			c.rec.ObserveAuth("initialize", "restored")
			return
		}

		c.log.InfoContext(ctx, "auth: invalid session data, clearing", "err", err)
		c.clearStore(ctx, key, tokenKey)
		result = "discarded"
	}

	c.commit(func(s *State) { *s = State{} })
	c.rec.ObserveAuth("initialize", result)
}

// Revalidate re-reads the session entry of an already initialized controller
// so that a login or logout served by another replica sharing the store is
// picked up. Like Initialize it only reads the store.
func (c *Controller) Revalidate(ctx context.Context) State {
	if c.inflight.Load() {
		return c.State()
	}

	c.mu.RLock()
	epoch := c.epoch
	key, tokenKey := c.key, c.tokenKey
	loading := c.state.Loading
	var cur *user.User
	if c.state.User != nil {
		u := *c.state.User
		cur = &u
	}
	c.mu.RUnlock()

	if loading {
		return c.State()
	}

	var next *user.User
	raw, err := c.store.Get(ctx, key)
	switch {
	case errors.Is(err, session.ErrNotFound):
	case err != nil:
		c.log.WarnContext(ctx, "auth: session revalidation read failed", "err", err)
		return c.State()
	default:
		u, err := session.Decode(raw)
		if err != nil {
			c.log.InfoContext(ctx, "auth: invalid session data, clearing", "err", err)
			c.clearStore(ctx, key, tokenKey)
			break
		}
		next = &u
	}

	var token string
	if next != nil {
		token = c.readToken(ctx, tokenKey)
	}

	if sameIdentity(cur, next) {
		if next != nil && token != "" {
			c.mu.Lock()
			if c.epoch == epoch {
				c.token = token
			}
			c.mu.Unlock()
		}
		return c.State()
	}

	applied := false
	c.commit(func(s *State) {
		if c.epoch != epoch || s.Loading {
			return
		}
		applied = true
		c.token = token
		if next == nil {
			*s = State{}
			return
		}
		*s = State{User: next, IsAuthenticated: true}
	})

	if applied {
		if next == nil {
			c.log.InfoContext(ctx, "auth: session ended elsewhere")
			c.rec.ObserveAuth("revalidate", "logged_out")
		} else {
			c.log.InfoContext(ctx, "auth: session changed elsewhere", "user_id", next.ID, "role", next.Role)
			c.rec.ObserveAuth("revalidate", "changed")
		}
	}
	return c.State()
}

func sameIdentity(a, b *user.User) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID && a.Role == b.Role && a.Name == b.Name &&
		a.Email == b.Email && a.IsActive == b.IsActive
}

// Verify asks the identity service whether the remote session behind this
// client session is still live and refreshes the stored user record from
// the profile it returns. A revoked or expired remote session, or a profile
// that is gone or inactive, logs the client out.
func (c *Controller) Verify(ctx context.Context) (user.User, error) {
	c.mu.RLock()
	epoch := c.epoch
	token := c.token
	key, tokenKey := c.key, c.tokenKey
	authenticated := c.state.User != nil
	c.mu.RUnlock()

	if !authenticated {
		return user.User{}, ErrNotAuthenticated
	}
	if token == "" {
		token = c.readToken(ctx, tokenKey)
	}

	u, err := c.lookupCurrentUser(ctx, token)
	switch {
	case err == nil:
	case errors.Is(err, ErrSessionExpired):
		c.expire(ctx, epoch, key, tokenKey)
		c.log.InfoContext(ctx, "auth: remote session no longer valid", "err", err)
		c.rec.ObserveAuth("verify", "expired")
		return user.User{}, ErrSessionExpired
	default:
		c.log.WarnContext(ctx, "auth: verify failed", "err", err)
		c.rec.ObserveAuth("verify", "error")
		return user.User{}, err
	}

	raw, err := session.Encode(u)
	if err == nil {
		err = c.store.Set(ctx, key, raw)
	}
	if err != nil {
		c.rec.ObserveAuth("verify", "error")
		return user.User{}, fmt.Errorf("%w: %v", ErrSessionWrite, err)
	}

	c.commit(func(s *State) {
		if c.epoch != epoch || s.Loading {
			return
		}
		c.token = token
		s.User = &u
	})

	c.rec.ObserveAuth("verify", "valid")
	return u, nil
}

func (c *Controller) lookupCurrentUser(ctx context.Context, token string) (user.User, error) {
	if token == "" {
		return user.User{}, fmt.Errorf("%w: no access token", ErrSessionExpired)
	}

	u, err := c.identity.GetCurrentUser(ctx, token)
	switch {
	case errors.Is(err, identity.ErrSessionNotFound),
		errors.Is(err, identity.ErrInvalidToken),
		errors.Is(err, identity.ErrInactiveAccount),
		errors.Is(err, user.ErrNotFound):
		return user.User{}, fmt.Errorf("%w: %v", ErrSessionExpired, err)
	case err != nil:
		return user.User{}, err
	}
	if !u.IsActive {
		return user.User{}, fmt.Errorf("%w: %v", ErrSessionExpired, identity.ErrInactiveAccount)
	}
	return u, nil
}

// expire drops the local session after the remote one was found gone. A
// login or logout that landed since epoch was read wins.
func (c *Controller) expire(ctx context.Context, epoch uint64, key, tokenKey string) {
	applied := false
	c.commit(func(s *State) {
		if c.epoch != epoch {
			return
		}
		applied = true
		c.epoch++
		c.token = ""
		*s = State{Error: Message(ErrSessionExpired)}
	})
	if applied {
		c.clearStore(ctx, key, tokenKey)
	}
}

func (c *Controller) Login(ctx context.Context, creds Credentials) (user.User, error) {
	return c.login(ctx, "login", creds)
}

// DevQuickLogin signs in as the test account for role. The whole user record
// is replaced, which is how a role switch happens.
func (c *Controller) DevQuickLogin(ctx context.Context, role user.Role) (user.User, error) {
	if !c.opts.RoleSwitching {
		c.rec.ObserveAuth("role_switch", "disabled")
		return user.User{}, ErrDevModeDisabled
	}

	acc, ok := identity.FindTestAccount(c.opts.TestAccounts, role)
	if !ok {
		return user.User{}, c.fail(ctx, "role_switch", fmt.Errorf("%w: %s", ErrUnknownTestAccount, role))
	}

	return c.login(ctx, "role_switch", Credentials{Email: acc.Email, Password: acc.Password})
}

func (c *Controller) login(ctx context.Context, op string, creds Credentials) (user.User, error) {
	email := strings.TrimSpace(creds.Email)
	if email == "" || creds.Password == "" {
		c.rec.ObserveAuth(op, "invalid")
		return user.User{}, ErrValidation
	}

	if !c.inflight.CompareAndSwap(false, true) {
		c.rec.ObserveAuth(op, "in_flight")
		return user.User{}, ErrInFlight
	}
	defer c.inflight.Store(false)

	c.mu.RLock()
	epoch := c.epoch
	c.mu.RUnlock()

	c.commit(func(s *State) {
		s.Loading = true
		s.Error = ""
	})

	res, err := c.identity.SignIn(ctx, email, creds.Password)
	if err != nil {
		return user.User{}, c.fail(ctx, op, err)
	}

	key, tokenKey := c.keys()
	raw, err := session.Encode(res.User)
	if err == nil {
		err = c.store.Set(ctx, key, raw)
	}
	if err == nil && res.Session.AccessToken != "" {
		err = c.store.Set(ctx, tokenKey, []byte(res.Session.AccessToken))
	}
	if err != nil {
		// a half-written session must not be picked up by the next request
		c.clearStore(ctx, key, tokenKey)
		return user.User{}, c.fail(ctx, op, fmt.Errorf("%w: %v", ErrSessionWrite, err))
	}

	u := res.User
	superseded := false

	c.commit(func(s *State) {
		if c.epoch != epoch {
			superseded = true
			s.Loading = false
			return
		}
		c.epoch++
		c.token = res.Session.AccessToken
		*s = State{User: &u, IsAuthenticated: true}
	})

	if superseded {
		// a logout ran while the sign-in was in flight; it wins
		c.clearStore(ctx, key, tokenKey)
		c.bestEffort(ctx, "sign_out", func() error { return c.identity.SignOut(ctx, res.Session.AccessToken) })
		c.rec.ObserveAuth(op, "superseded")
		return user.User{}, ErrSuperseded
	}

	c.log.InfoContext(ctx, "auth: "+op+" completed", "user_id", u.ID, "role", u.Role)
	c.rec.ObserveAuth(op, "success")
	return u, nil
}

func (c *Controller) fail(ctx context.Context, op string, err error) error {
	msg := Message(err)
	c.commit(func(s *State) {
		s.Loading = false
		s.Error = msg
	})
	c.log.InfoContext(ctx, "auth: "+op+" failed", "err", err)
	c.rec.ObserveAuth(op, "failure")
	return err
}

// Logout clears the session entry and the in-memory state, then sends the
// client to the login entry point. Collaborator failures are logged and
// swallowed; the state reset and the navigation always happen.
func (c *Controller) Logout(ctx context.Context, nav Navigator) {
	defer func() {
		if nav != nil {
			nav.Navigate(LoginPath, true)
		}
	}()
	defer c.commit(func(s *State) { *s = State{} })

	c.mu.Lock()
	token := c.token
	key, tokenKey := c.key, c.tokenKey
	c.token = ""
	c.epoch++
	c.mu.Unlock()

	// the controller may have been rebuilt since login; the token is in the store
	if token == "" {
		c.bestEffort(ctx, "token_read", func() error {
			token = c.readToken(ctx, tokenKey)
			return nil
		})
	}

	c.clearStore(ctx, key, tokenKey)
	if token != "" {
		c.bestEffort(ctx, "sign_out", func() error { return c.identity.SignOut(ctx, token) })
	}

	c.log.InfoContext(ctx, "auth: logout completed")
	c.rec.ObserveAuth("logout", "success")
}

func (c *Controller) readToken(ctx context.Context, tokenKey string) string {
	raw, err := c.store.Get(ctx, tokenKey)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			c.log.WarnContext(ctx, "auth: token read failed", "err", err)
		}
		return ""
	}
	return strings.TrimSpace(string(raw))
}

func (c *Controller) clearStore(ctx context.Context, key, tokenKey string) {
	c.bestEffort(ctx, "store_clear", func() error { return c.store.Delete(ctx, key) })
	c.bestEffort(ctx, "token_clear", func() error { return c.store.Delete(ctx, tokenKey) })
}

// rebind moves the session entry and its token to sessionID and forgets the
// old keys, so an id known before login stops identifying the session.
func (c *Controller) rebind(ctx context.Context, sessionID string) error {
	c.mu.RLock()
	oldKey, oldTokenKey := c.key, c.tokenKey
	token := c.token
	var u *user.User
	if c.state.User != nil {
		cp := *c.state.User
		u = &cp
	}
	c.mu.RUnlock()

	key, tokenKey := session.Key(sessionID), session.TokenKey(sessionID)
	if u != nil {
		raw, err := session.Encode(*u)
		if err == nil {
			err = c.store.Set(ctx, key, raw)
		}
		if err == nil && token != "" {
			err = c.store.Set(ctx, tokenKey, []byte(token))
		}
		if err != nil {
			c.bestEffort(ctx, "store_clear", func() error { return c.store.Delete(ctx, key) })
			return fmt.Errorf("%w: %v", ErrSessionWrite, err)
		}
	}

	c.mu.Lock()
	c.sessionID = sessionID
	c.key, c.tokenKey = key, tokenKey
	c.mu.Unlock()

	c.clearStore(ctx, oldKey, oldTokenKey)
	return nil
}

func (c *Controller) bestEffort(ctx context.Context, step string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			c.log.ErrorContext(ctx, "auth: step panicked", "step", step, "panic", r)
		}
	}()

	if err := fn(); err != nil {
		c.log.WarnContext(ctx, "auth: step failed", "step", step, "err", err)
	}
}

// HasRole is a flat membership test against the user's own role.
func (c *Controller) HasRole(roles ...user.Role) bool {
	c.mu.RLock()
	u := c.state.User
	c.mu.RUnlock()

	if u == nil {
		return false
	}
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// Authorize is HasRole over the roles that imply any of allowed.
func (c *Controller) Authorize(allowed ...user.Role) bool {
	return c.HasRole(user.Expand(allowed...)...)
}

func (c *Controller) IsAdmin() bool     { return c.HasRole(adminRoles...) }
func (c *Controller) IsDosen() bool     { return c.HasRole(dosenRoles...) }
func (c *Controller) IsLaboran() bool   { return c.HasRole(laboranRoles...) }
func (c *Controller) IsMahasiswa() bool { return c.HasRole(mahasiswaRoles...) }
func (c *Controller) IsDevSuper() bool  { return c.HasRole(devSuperRoles...) }

func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.clone()
}

// Subscribe registers fn to receive a snapshot after every transition.
func (c *Controller) Subscribe(fn func(State)) (cancel func()) {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Controller) Subscribers() int {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	return len(c.subs)
}

// commit applies fn under the state lock and notifies subscribers afterwards.
func (c *Controller) commit(fn func(s *State)) {
	c.mu.Lock()
	fn(&c.state)
	c.state.IsAuthenticated = c.state.User != nil
	snap := c.state.clone()
	c.mu.Unlock()

	c.subMu.Lock()
	subs := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.subMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}
