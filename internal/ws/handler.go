package ws

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/geocoder89/akbidlab/internal/http/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// ServeAuth upgrades to a websocket and streams the session's auth state,
// starting with the current snapshot.
func ServeAuth(h *Hub, allowedOrigins []string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	return func(ctx *gin.Context) {
		ctrl, ok := middlewares.ControllerFromContext(ctx)
		if !ok {
			ctx.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		sid, _ := middlewares.SessionIDFromContext(ctx)

		conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
		if err != nil {
			// the upgrader has already written the error response
			slog.Default().WarnContext(ctx.Request.Context(), "ws: upgrade failed", "err", err)
			return
		}

		c := NewClient(conn, sid, ctrl)

		initial, err := encode(ctrl.State())
		if err == nil {
			c.send <- initial
		}

		if !h.Register(c) {
			conn.Close()
			return
		}

		go c.writePump()
		go c.readPump(h)
	}
}

// originChecker accepts requests without an Origin, same-host requests and
// the configured SPA origins.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := set[origin]; ok {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}
