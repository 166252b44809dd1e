package http

import (
	"context"
	"log/slog"

	"github.com/geocoder89/usershub/internal/auth"
	"github.com/geocoder89/usershub/internal/config"
	"github.com/geocoder89/usershub/internal/domain/user"
	"github.com/geocoder89/usershub/internal/http/handlers"
	"github.com/geocoder89/usershub/internal/http/middlewares"
	"github.com/geocoder89/usershub/internal/observability"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const serviceName = "usershub"

// Deps is everything the router wires together. Optional pieces may be left nil.
type Deps struct {
	Log    *slog.Logger
	Config config.Config

	Users  handlers.UserService
	Auth   handlers.Authenticator
	Tokens *auth.Manager

	Revocations *auth.RevocationStore           // optional
	RateLimiter *middlewares.RateLimiter        // optional
	Prom        *observability.Prom             // optional
	Ping        func(ctx context.Context) error // optional readiness probe
}

func NewRouter(d Deps) *gin.Engine {
	if d.Config.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	log := d.Log
	if log == nil {
		log = slog.Default()
	}

	r := gin.New()

	// middleware

	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.ErrorContext(c.Request.Context(), "panic recovered", "panic", recovered)
		handlers.RespondInternal(c)
		c.Abort()
	}))
	r.Use(otelgin.Middleware(serviceName))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.Config.CORSAllowedOrigins))
	if d.Config.MaxBodyBytes > 0 {
		r.Use(middlewares.MaxBodyBytes(d.Config.MaxBodyBytes))
	}
	r.Use(middlewares.RequireJSON())

	// health
	h := handlers.NewHealthHandler(d.Ping)
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/readyz", h.Readyz)
	if d.Prom != nil {
		r.GET("/metrics", gin.WrapH(d.Prom.Handler()))
	}
	r.NoRoute(h.NotFound)

	// avoid handing a typed nil to the interface
	var revocations middlewares.RevocationChecker
	var revoker handlers.TokenRevoker
	if d.Revocations != nil {
		revocations = d.Revocations
		revoker = d.Revocations
	}

	var signIns handlers.SignInObserver
	if d.Prom != nil {
		signIns = d.Prom
	}

	authMW := middlewares.NewAuthMiddleware(d.Tokens, revocations)
	limit := rateLimit(d.RateLimiter)

	authHandler := handlers.NewAuthHandler(d.Auth, d.Tokens, handlers.AuthHandlerOptions{
		Revoker:      revoker,
		Metrics:      signIns,
		SecureCookie: d.Config.Env == "prod",
		Log:          log,
	})
	usersHandler := handlers.NewUsersHandler(d.Users, log)

	api := r.Group("/api")
	api.GET("", h.API)

	authRoutes := api.Group("/auth", limit)
	authRoutes.POST("/sign-up", authHandler.SignUp)
	authRoutes.POST("/sign-in", authHandler.SignIn)
	authRoutes.POST("/sign-out", authHandler.SignOut)

	users := api.Group("/users")
	users.GET("", authMW.RequireAuth(), limit, usersHandler.ListUsers)
	users.GET("/:id", authMW.RequireAuth(), limit, usersHandler.GetUserByID)
	users.PUT("/:id", authMW.RequireAuth(), limit, usersHandler.UpdateUser)
	users.DELETE("/:id", authMW.RequireAuth(), authMW.RequireRole(user.RoleAdmin), limit, usersHandler.DeleteUser)
	users.POST("", limit, usersHandler.CreateUser)

	return r
}

func rateLimit(rl *middlewares.RateLimiter) gin.HandlerFunc {
	if rl == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return rl.Middleware()
}
