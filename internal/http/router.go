package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/zeitwerk/timeclock/internal/auth"
	"github.com/zeitwerk/timeclock/internal/config"
	"github.com/zeitwerk/timeclock/internal/domain/user"
	"github.com/zeitwerk/timeclock/internal/http/handlers"
	"github.com/zeitwerk/timeclock/internal/http/middlewares"
	"github.com/zeitwerk/timeclock/internal/observability"
	"github.com/zeitwerk/timeclock/internal/repo/postgres"
)

func NewRouter(cfg config.Config, log *slog.Logger, pool *pgxpool.Pool, prom *observability.Prom, gatherer prometheus.Gatherer, loginLimiter middlewares.Limiter) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(log))
	r.Use(otelgin.Middleware("timeclock"))
	r.Use(middlewares.SecurityHeaders())
	if prom != nil {
		r.Use(prom.GinHandleMiddleware())
	}

	// health
	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	health := handlers.NewHealthHandler(ping)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	// wire up repositories
	auditsRepo := postgres.NewAuditLogsRepo(pool, prom)
	usersRepo := postgres.NewUsersRepo(pool, auditsRepo, prom)
	entriesRepo := postgres.NewTimeEntriesRepo(pool, auditsRepo, prom)

	sessions := auth.NewManager(cfg.SessionSecret, cfg.SessionTTL)
	sessionMw := middlewares.NewSessionMiddleware(sessions, usersRepo, cfg.IsProduction())

	authHandler := handlers.NewAuthHandler(usersRepo, auditsRepo, sessions, sessionMw, prom)
	entriesHandler := handlers.NewTimeEntriesHandler(entriesRepo, nil)
	adminHandler := handlers.NewAdminHandler(usersRepo, entriesRepo, auditsRepo)
	exportHandler := handlers.NewExportHandler(entriesRepo, auditsRepo, prom)

	r.GET("/", func(ctx *gin.Context) {
		ctx.Redirect(http.StatusFound, "/login/employee")
	})

	r.GET("/login/employee", authHandler.LoginView("employee"))
	r.GET("/login/admin", authHandler.LoginView("admin"))
	r.POST("/login/employee", middlewares.LoginRateLimit(loginLimiter), authHandler.EmployeeLogin)
	r.POST("/login/admin", middlewares.LoginRateLimit(loginLimiter), authHandler.AdminLogin)
	r.GET("/logout", sessionMw.OptionalUser(), authHandler.Logout)

	// employee routes
	r.GET("/dashboard", sessionMw.RequireUser(user.RoleEmployee), entriesHandler.Dashboard)
	r.GET("/start", sessionMw.RequireUser(user.RoleEmployee), entriesHandler.Start)
	r.GET("/stop", sessionMw.RequireUser(user.RoleEmployee), entriesHandler.Stop)
	r.POST("/manual_entry", sessionMw.RequireUser(user.RoleEmployee), entriesHandler.ManualEntry)

	// admin routes
	r.GET("/admin", sessionMw.RequireUser(user.RoleAdmin), adminHandler.Overview)
	r.POST("/create_user", sessionMw.RequireUser(user.RoleAdmin), adminHandler.CreateUser)
	r.GET("/toggle_user/:id", sessionMw.RequireUser(user.RoleAdmin), adminHandler.ToggleUser)
	r.GET("/export", sessionMw.RequireUser(user.RoleAdmin), exportHandler.Export)

	return r
}
