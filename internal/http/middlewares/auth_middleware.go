package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/akbidlab/internal/actorctx"
	"github.com/geocoder89/akbidlab/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const SessionCookie = "akbid_sid"

// Keep this small interface so tests can hand in a registry of their own.
type ControllerSource interface {
	Controller(ctx context.Context, sessionID string) *auth.Controller
	Rotate(ctx context.Context, sessionID string) (string, *auth.Controller, error)
}

type GuardRecorder interface {
	ObserveGuard(guard, decision string)
}

type noopGuardRecorder struct{}

func (noopGuardRecorder) ObserveGuard(string, string) {}

type CookieOptions struct {
	Domain string
	Secure bool
}

type AuthMiddleware struct {
	controllers ControllerSource
	rec         GuardRecorder
	cookie      CookieOptions
}

func NewAuthMiddleware(controllers ControllerSource, rec GuardRecorder, cookie CookieOptions) *AuthMiddleware {
	if rec == nil {
		rec = noopGuardRecorder{}
	}
	return &AuthMiddleware{controllers: controllers, rec: rec, cookie: cookie}
}

// Session makes sure the client has a session id and attaches its
// initialized controller. The cookie has no Max-Age so it dies with the tab.
func (m *AuthMiddleware) Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(SessionCookie)
		if err != nil || uuid.Validate(sid) != nil {
			sid = uuid.NewString()
			m.setCookie(c, sid)
		}

		ctx := actorctx.WithSessionID(c.Request.Context(), sid)
		ctrl := m.controllers.Controller(ctx, sid)
		m.attach(c, ctx, sid, ctrl)
		c.Set(ctxSessions, m)

		c.Next()
	}
}

func (m *AuthMiddleware) setCookie(c *gin.Context, sid string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, sid, 0, "/", m.cookie.Domain, m.cookie.Secure, true)
}

func (m *AuthMiddleware) attach(c *gin.Context, ctx context.Context, sid string, ctrl *auth.Controller) {
	if u := ctrl.State().User; u != nil {
		ctx = actorctx.WithUserID(ctx, u.ID)
	}
	c.Request = c.Request.WithContext(ctx)
	c.Set(CtxSessionID, sid)
	c.Set(ctxController, ctrl)
}

var ErrNoSession = errors.New("session middleware not installed")

// RotateSession gives the request's session a new id and sends it to the
// client, so an id planted or observed before a privilege change stops
// working. Handlers call it after a successful login or role switch.
func RotateSession(c *gin.Context) error {
	v, ok := c.Get(ctxSessions)
	m, _ := v.(*AuthMiddleware)
	sid, hasSID := SessionIDFromContext(c)
	if !ok || m == nil || !hasSID {
		return ErrNoSession
	}

	next, ctrl, err := m.controllers.Rotate(c.Request.Context(), sid)
	if err != nil {
		return err
	}

	m.setCookie(c, next)
	m.attach(c, actorctx.WithSessionID(c.Request.Context(), next), next, ctrl)
	return nil
}

// RequireAuth is the authentication gate. Pending state answers 202 without
// redirecting; a logged-out client is sent to the login entry point.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctrl, ok := ControllerFromContext(c)
		if !ok {
			slog.Default().ErrorContext(c.Request.Context(), "auth gate without session middleware", "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{
					"code":    "internal_error",
					"message": "Session not initialized",
				},
			})
			return
		}

		decision := auth.Decide(ctrl.State())
		m.rec.ObserveGuard("auth", decision.String())

		switch decision {
		case auth.Pending:
			c.AbortWithStatusJSON(http.StatusAccepted, gin.H{"state": decision.String()})
		case auth.Unauthenticated:
			NewNavigator(c, http.StatusUnauthorized, "unauthenticated").Navigate(auth.LoginPath, true)
		default:
			c.Next()
		}
	}
}

// PublicOnly guards the login view: an authenticated client is sent to the
// dashboard, everyone else gets the view.
func (m *AuthMiddleware) PublicOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctrl, ok := ControllerFromContext(c)
		if !ok {
			c.Next()
			return
		}

		decision := auth.Decide(ctrl.State())
		m.rec.ObserveGuard("public_only", decision.String())

		switch decision {
		case auth.Pending:
			c.AbortWithStatusJSON(http.StatusAccepted, gin.H{"state": decision.String()})
		case auth.Authenticated:
			NewNavigator(c, http.StatusOK, "authenticated").Navigate(auth.DashboardPath, true)
		default:
			c.Next()
		}
	}
}

func ControllerFromContext(c *gin.Context) (*auth.Controller, bool) {
	v, ok := c.Get(ctxController)
	if !ok {
		return nil, false
	}
	ctrl, ok := v.(*auth.Controller)
	return ctrl, ok && ctrl != nil
}

func SessionIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxSessionID)
	if !ok {
		return "", false
	}
	sid, ok := v.(string)
	return sid, ok && sid != ""
}
