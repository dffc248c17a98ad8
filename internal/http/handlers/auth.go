package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/akbidlab/internal/auth"
	"github.com/geocoder89/akbidlab/internal/domain/user"
	"github.com/geocoder89/akbidlab/internal/http/middlewares"
	"github.com/geocoder89/akbidlab/internal/identity"
	"github.com/gin-gonic/gin"
)

type SignUper interface {
	SignUp(ctx context.Context, data user.SignUpData) (user.User, error)
}

type DevOptions struct {
	DevMode       bool
	RoleSwitching bool
	TestAccounts  []identity.TestAccount
}

type AuthHandler struct {
	signup SignUper
	dev    DevOptions
}

func NewAuthHandler(signup SignUper, dev DevOptions) *AuthHandler {
	return &AuthHandler{signup: signup, dev: dev}
}

type Permissions struct {
	IsAdmin     bool `json:"isAdmin"`
	IsDosen     bool `json:"isDosen"`
	IsLaboran   bool `json:"isLaboran"`
	IsMahasiswa bool `json:"isMahasiswa"`
	IsDevSuper  bool `json:"isDevSuper"`
}

// AuthView is what the client renders from: the state plus the derived
// predicates, so the SPA never recomputes role rules.
type AuthView struct {
	auth.State
	Permissions   Permissions `json:"permissions"`
	DevMode       bool        `json:"devMode"`
	RoleSwitching bool        `json:"roleSwitching"`
}

func (h *AuthHandler) view(ctrl *auth.Controller) AuthView {
	return AuthView{
		State: ctrl.State(),
		Permissions: Permissions{
			IsAdmin:     ctrl.IsAdmin(),
			IsDosen:     ctrl.IsDosen(),
			IsLaboran:   ctrl.IsLaboran(),
			IsMahasiswa: ctrl.IsMahasiswa(),
			IsDevSuper:  ctrl.IsDevSuper(),
		},
		DevMode:       h.dev.DevMode,
		RoleSwitching: h.dev.DevMode && h.dev.RoleSwitching,
	}
}

func controllerOrAbort(ctx *gin.Context) (*auth.Controller, bool) {
	ctrl, ok := middlewares.ControllerFromContext(ctx)
	if !ok {
		RespondInternal(ctx, "Session not initialized")
		return nil, false
	}
	return ctrl, true
}

// GET /api/auth/state
func (h *AuthHandler) State(ctx *gin.Context) {
	ctrl, ok := controllerOrAbort(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, h.view(ctrl))
}

// POST /api/auth/login
func (h *AuthHandler) Login(ctx *gin.Context) {
	ctrl, ok := controllerOrAbort(ctx)
	if !ok {
		return
	}

	// no binding tags: empty fields are the controller's call to reject
	var req auth.Credentials
	if !BindJSON(ctx, &req) {
		return
	}

	if _, err := ctrl.Login(ctx.Request.Context(), req); err != nil {
		h.respondAuthError(ctx, ctrl, err)
		return
	}
	if !rotateOrAbort(ctx, ctrl) {
		return
	}

	ctx.JSON(http.StatusOK, h.view(ctrl))
}

type switchRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// POST /api/auth/dev/switch
func (h *AuthHandler) DevSwitch(ctx *gin.Context) {
	ctrl, ok := controllerOrAbort(ctx)
	if !ok {
		return
	}

	var req switchRoleRequest
	if !BindJSON(ctx, &req) {
		return
	}

	role, err := user.ParseRole(req.Role)
	if err != nil {
		RespondBadRequest(ctx, "Unknown role", gin.H{"role": req.Role})
		return
	}

	if _, err := ctrl.DevQuickLogin(ctx.Request.Context(), role); err != nil {
		h.respondAuthError(ctx, ctrl, err)
		return
	}
	if !rotateOrAbort(ctx, ctrl) {
		return
	}

	ctx.JSON(http.StatusOK, h.view(ctrl))
}

// rotateOrAbort issues a new session id after a privilege change. If that
// fails the fresh login is dropped rather than left on the old id.
func rotateOrAbort(ctx *gin.Context, ctrl *auth.Controller) bool {
	if err := middlewares.RotateSession(ctx); err != nil {
		slog.Default().ErrorContext(ctx.Request.Context(), "session rotation failed", "err", err)
		ctrl.Logout(ctx.Request.Context(), nil)
		RespondInternal(ctx, auth.Message(auth.ErrSessionWrite))
		return false
	}
	return true
}

// GET /api/auth/me asks the identity service whether the remote session is
// still live and answers with the refreshed view.
func (h *AuthHandler) Me(ctx *gin.Context) {
	ctrl, ok := controllerOrAbort(ctx)
	if !ok {
		return
	}

	_, err := ctrl.Verify(ctx.Request.Context())
	switch {
	case err == nil:
		ctx.JSON(http.StatusOK, h.view(ctrl))
	case errors.Is(err, auth.ErrSessionExpired), errors.Is(err, auth.ErrNotAuthenticated):
		middlewares.NewNavigator(ctx, http.StatusUnauthorized, "session_expired").Navigate(auth.LoginPath, true)
	default:
		RespondError(ctx, http.StatusServiceUnavailable, "identity_unavailable", "Layanan autentikasi tidak tersedia", nil)
	}
}

func (h *AuthHandler) respondAuthError(ctx *gin.Context, ctrl *auth.Controller, err error) {
	details := gin.H{"state": ctrl.State()}
	msg := auth.Message(err)

	switch {
	case errors.Is(err, auth.ErrValidation):
		RespondBadRequest(ctx, msg, details)
	case errors.Is(err, identity.ErrInvalidCredentials), errors.Is(err, identity.ErrProfileNotFound):
		RespondUnAuthorized(ctx, "invalid_credentials", msg, details)
	case errors.Is(err, identity.ErrInactiveAccount):
		RespondError(ctx, http.StatusForbidden, "inactive_account", msg, details)
	case errors.Is(err, auth.ErrInFlight), errors.Is(err, auth.ErrSuperseded):
		RespondConflict(ctx, "login_in_progress", msg, details)
	case errors.Is(err, auth.ErrDevModeDisabled):
		RespondForbidden(ctx, "role_switching_disabled", msg)
	case errors.Is(err, auth.ErrUnknownTestAccount):
		RespondError(ctx, http.StatusNotFound, "test_account_not_found", msg, details)
	default:
		slog.Default().ErrorContext(ctx.Request.Context(), "auth request failed", "err", err)
		RespondError(ctx, http.StatusInternalServerError, "internal_error", msg, details)
	}
}

// POST /api/auth/logout always succeeds; the navigator writes the redirect.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	ctrl, ok := controllerOrAbort(ctx)
	if !ok {
		return
	}

	ctrl.Logout(ctx.Request.Context(), middlewares.NewNavigator(ctx, http.StatusOK, "logged_out"))
}

// POST /api/auth/signup. Anyone may register a mahasiswa account; other roles
// need an authenticated admin.
func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req user.SignUpData
	if !BindJSON(ctx, &req) {
		return
	}

	if req.Role != user.RoleMahasiswa {
		ctrl, ok := middlewares.ControllerFromContext(ctx)
		if !ok || !ctrl.IsAdmin() {
			RespondForbidden(ctx, "forbidden", "Only an administrator can create this role")
			return
		}
	}

	created, err := h.signup.SignUp(ctx.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrEmailTaken):
			RespondConflict(ctx, "email_taken", "Email sudah terdaftar", nil)
		case errors.Is(err, user.ErrInvalidUser):
			RespondBadRequest(ctx, "Invalid sign up data", gin.H{"reason": err.Error()})
		default:
			slog.Default().ErrorContext(ctx.Request.Context(), "sign up failed", "err", err)
			RespondInternal(ctx, "Could not create account")
		}
		return
	}

	ctx.JSON(http.StatusCreated, created)
}

// GET /api/auth/test-accounts lists the dev logins. Passwords are never sent;
// the client switches with /api/auth/dev/switch.
func (h *AuthHandler) TestAccounts(ctx *gin.Context) {
	if !h.dev.DevMode {
		RespondNotFound(ctx, "Not found")
		return
	}

	type accountView struct {
		identity.TestAccount
		DisplayRole string `json:"display_role"`
	}

	out := make([]accountView, 0, len(h.dev.TestAccounts))
	for _, a := range h.dev.TestAccounts {
		out = append(out, accountView{TestAccount: a, DisplayRole: a.Role.DisplayName()})
	}

	ctx.JSON(http.StatusOK, gin.H{"accounts": out, "roleSwitching": h.dev.RoleSwitching})
}

// GET /api/login is the public login view.
func (h *AuthHandler) LoginView(ctx *gin.Context) {
	resp := gin.H{
		"view":    "login",
		"title":   "Login",
		"devMode": h.dev.DevMode,
	}
	if ctrl, ok := middlewares.ControllerFromContext(ctx); ok {
		if msg := ctrl.State().Error; msg != "" {
			resp["error"] = msg
		}
	}
	ctx.JSON(http.StatusOK, resp)
}
