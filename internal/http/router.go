package http

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/octrolabs/userhub/internal/config"
	"github.com/octrolabs/userhub/internal/http/handlers"
	"github.com/octrolabs/userhub/internal/http/middlewares"
	"github.com/octrolabs/userhub/internal/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Deps carries the wired collaborators; main builds the real ones,
// tests substitute fakes behind the handlers' interfaces.
type Deps struct {
	Auth      *handlers.AuthHandler
	Users     *handlers.UsersHandler
	Groups    *handlers.GroupsHandler
	Processes *handlers.ProcessesHandler
	Sessions  middlewares.SessionResolver
	Prom      *observability.Prom
	Metrics   gin.HandlerFunc
	Pings     []func() error
}

func NewRouter(log *slog.Logger, cfg config.Config, deps Deps) *gin.Engine {
	cfgEnv := os.Getenv("APP_ENV")

	if cfgEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware([]string{cfg.FrontendURL}))
	r.Use(otelgin.Middleware("userhub"))

	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}

	// health + metrics
	h := handlers.NewHealthHandler(deps.Pings...)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if deps.Metrics != nil {
		r.GET("/metrics", deps.Metrics)
	}

	r.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"message": "Welcome to the User Management System API"})
	})

	authGuard := middlewares.NewAuthMiddleware(deps.Sessions, cfg.CookieName)

	// The login round-trip is unauthenticated by nature; rate limit it
	// by client IP.
	limiter := middlewares.NewRateLimiter(30, time.Minute)
	loginRL := limiter.RateLimiterMiddleware(middlewares.KeyByIP)

	auth := r.Group("/auth")
	auth.GET("/login", loginRL, deps.Auth.Login)
	auth.GET("/callback", loginRL, deps.Auth.Callback)
	auth.GET("/logout", deps.Auth.Logout)
	auth.GET("/me", authGuard.RequireAuth(), deps.Auth.Me)

	api := r.Group("/api")
	api.Use(authGuard.RequireAuth())
	api.Use(middlewares.RequireJSON())
	api.Use(middlewares.MaxBodyBytes(1 << 20))

	admin := authGuard.RequireAdmin()

	api.GET("/users", admin, deps.Users.ListUsers)
	api.PUT("/users/:id/role", admin, deps.Users.UpdateRole)

	api.GET("/groups", admin, deps.Groups.ListGroups)
	api.POST("/groups", admin, deps.Groups.CreateGroup)
	api.GET("/user/groups", deps.Groups.UserGroups)

	api.GET("/processes", admin, deps.Processes.ListProcesses)
	api.POST("/processes", admin, deps.Processes.CreateProcess)

	return r
}
