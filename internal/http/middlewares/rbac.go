package middlewares

import (
	"net/http"

	"github.com/geocoder89/akbidlab/internal/domain/user"
	"github.com/gin-gonic/gin"
)

const (
	deniedTitle   = "Akses Ditolak"
	deniedMessage = "Anda tidak memiliki akses ke halaman ini."
)

// DeniedView is rendered in place of a route the user may not see. The URL
// stays addressable; there is no redirect.
type DeniedView struct {
	State    string      `json:"state"`
	Role     user.Role   `json:"role"`
	Required []user.Role `json:"required"`
	Title    string      `json:"title"`
	Message  string      `json:"message"`
}

// RequireRole is the role gate. allowed lists the minimum roles; privileged
// roles pass through the implication table.
func (m *AuthMiddleware) RequireRole(allowed ...user.Role) gin.HandlerFunc {
	return m.RequireRoleOr(nil, allowed...)
}

// RequireRoleOr renders fallback instead of the standard denied view.
func (m *AuthMiddleware) RequireRoleOr(fallback gin.HandlerFunc, allowed ...user.Role) gin.HandlerFunc {
	required := append([]user.Role(nil), allowed...)

	return func(c *gin.Context) {
		ctrl, ok := ControllerFromContext(c)
		if !ok || !ctrl.State().IsAuthenticated {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Missing identity context",
				},
			})
			return
		}

		if ctrl.Authorize(required...) {
			m.rec.ObserveGuard("role", "granted")
			c.Next()
			return
		}

		m.rec.ObserveGuard("role", "denied")

		if fallback != nil {
			fallback(c)
			c.Abort()
			return
		}

		c.AbortWithStatusJSON(http.StatusForbidden, DeniedView{
			State:    "denied",
			Role:     ctrl.State().Role(),
			Required: required,
			Title:    deniedTitle,
			Message:  deniedMessage,
		})
	}
}
