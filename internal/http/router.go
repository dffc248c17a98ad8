package http

import (
	"log/slog"
	"net/http"

	"github.com/geocoder89/akbidlab/internal/auth"
	"github.com/geocoder89/akbidlab/internal/domain/user"
	"github.com/geocoder89/akbidlab/internal/http/handlers"
	"github.com/geocoder89/akbidlab/internal/http/middlewares"
	"github.com/geocoder89/akbidlab/internal/navigation"
	"github.com/geocoder89/akbidlab/internal/ws"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type Deps struct {
	Log         *slog.Logger
	Env         string
	ServiceName string

	Controllers *auth.Registry
	SignUp      handlers.SignUper
	Catalog     handlers.CatalogReader
	Users       handlers.UserLister
	Menus       navigation.Menus
	Hub         *ws.Hub

	// Metrics is optional; without it /metrics is not mounted.
	Metrics interface {
		middlewares.GuardRecorder
		GinHandleMiddleware() gin.HandlerFunc
		Handler() http.Handler
	}
	Ready map[string]handlers.Pinger
	// Health overrides the handler built from Ready, so main can drain it.
	Health *handlers.HealthHandler

	Dev          handlers.DevOptions
	Cookie       middlewares.CookieOptions
	CORSOrigins  []string
	MaxBodyBytes int64
	Tracing      bool
}

func NewRouter(d Deps) *gin.Engine {
	if d.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(gin.Recovery())
	if d.Tracing {
		r.Use(otelgin.Middleware(d.ServiceName))
	}
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.CORSOrigins))

	var guards middlewares.GuardRecorder
	if d.Metrics != nil {
		r.Use(d.Metrics.GinHandleMiddleware())
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
		guards = d.Metrics
	}

	health := d.Health
	if health == nil {
		health = handlers.NewHealthHandler(d.Ready)
	}
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	mw := middlewares.NewAuthMiddleware(d.Controllers, guards, d.Cookie)
	authH := handlers.NewAuthHandler(d.SignUp, d.Dev)
	dash := handlers.NewDashboardHandler(d.Catalog, d.Users, d.Menus)
	nav := handlers.NewNavigationHandler(d.Menus)

	maxBody := d.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	api := r.Group("/api", mw.Session(), middlewares.MaxBodyBytes(maxBody), middlewares.RequireJSON())
	{
		api.GET("/login", mw.PublicOnly(), authH.LoginView)

		a := api.Group("/auth")
		a.GET("/state", authH.State)
		a.POST("/login", authH.Login)
		a.POST("/logout", authH.Logout)
		a.POST("/signup", authH.SignUp)
		a.GET("/test-accounts", authH.TestAccounts)
		a.POST("/dev/switch", authH.DevSwitch)

		protected := api.Group("", mw.RequireAuth())
		protected.GET("/auth/me", authH.Me)
		protected.GET("/navigation", nav.Menu)
		protected.GET("/dashboard", dash.Overview)
		protected.GET("/admin", mw.RequireRole(user.RoleAdmin), dash.Admin)
		protected.GET("/dosen", mw.RequireRole(user.RoleDosen), dash.Dosen)
		protected.GET("/laboran", mw.RequireRole(user.RoleLaboran), dash.Laboran)
		protected.GET("/mahasiswa", mw.RequireRole(user.RoleMahasiswa), dash.Mahasiswa)
	}

	if d.Hub != nil {
		r.GET("/ws/auth", mw.Session(), ws.ServeAuth(d.Hub, d.CORSOrigins))
	}

	r.NoRoute(func(ctx *gin.Context) {
		handlers.RespondNotFound(ctx, "Not found")
	})

	return r
}
