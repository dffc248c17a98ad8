package handlers

import (
	"errors"

	"github.com/geocoder89/akbidlab/internal/navigation"
	"github.com/gin-gonic/gin"
)

type NavigationHandler struct {
	menus navigation.Menus
}

func NewNavigationHandler(menus navigation.Menus) *NavigationHandler {
	return &NavigationHandler{menus: menus}
}

// GET /api/navigation?menu=topbar|sidebar. The entries are recomputed from
// the current role on every call, so a role switch shows up immediately.
func (h *NavigationHandler) Menu(ctx *gin.Context) {
	ctrl, ok := controllerOrAbort(ctx)
	if !ok {
		return
	}

	name := ctx.DefaultQuery("menu", navigation.MenuSidebar)
	entries, err := h.menus.Menu(name)
	if err != nil {
		if errors.Is(err, navigation.ErrUnknownMenu) {
			RespondBadRequest(ctx, "Unknown menu", gin.H{"menu": name})
			return
		}
		RespondInternal(ctx, "Failed to load menu")
		return
	}

	visible := navigation.Filter(entries, ctrl.HasRole)

	respondRevalidated(ctx, gin.H{
		"menu":    name,
		"items":   visible,
		"summary": navigation.Summarize(ctrl.State().Role(), visible),
	})
}
