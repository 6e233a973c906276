package httpserver

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"taskhub/internal/handler"
)

type Router struct {
	Engine *gin.Engine
}

// NewRouter wires all routes. Three tiers: public (auth entry points,
// health, metrics), authenticated (everything else), and admin-only
// (project mutations, user administration).
func NewRouter(
	authHandler *handler.AuthHandler,
	dashboardHandler *handler.DashboardHandler,
	projectHandler *handler.ProjectHandler,
	taskHandler *handler.TaskHandler,
	userHandler *handler.UserHandler,
	sessions SessionResolver,
	logger *zap.Logger,
	db *pgxpool.Pool,
) *Router {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready"})
			return
		}
		c.JSON(200, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public
	r.POST("/auth/register", authHandler.Register)
	r.POST("/auth/login", authHandler.Login)

	// Authenticated
	auth := r.Group("/")
	auth.Use(RequireSession(sessions, logger))
	{
		auth.POST("/auth/logout", authHandler.Logout)
		auth.GET("/auth/me", authHandler.Me)
		auth.PUT("/auth/me", authHandler.UpdateMe)
		auth.PUT("/auth/me/password", authHandler.ChangePassword)

		auth.GET("/dashboard", dashboardHandler.Get)

		auth.GET("/projects", projectHandler.List)
		auth.GET("/projects/:id", projectHandler.Get)

		auth.GET("/tasks", taskHandler.List)
		auth.POST("/tasks", taskHandler.Create)
		auth.GET("/tasks/:id", taskHandler.Get)
		auth.PUT("/tasks/:id", taskHandler.Update)
		auth.DELETE("/tasks/:id", taskHandler.Delete)
		auth.PUT("/tasks/:id/status", taskHandler.UpdateStatus)
		auth.GET("/tasks/:id/logs", taskHandler.Logs)
	}

	// Admin only
	admin := r.Group("/")
	admin.Use(RequireSession(sessions, logger), RequireAdmin())
	{
		admin.POST("/projects", projectHandler.Create)
		admin.PUT("/projects/:id", projectHandler.Update)
		admin.DELETE("/projects/:id", projectHandler.Delete)

		admin.GET("/users", userHandler.List)
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(":" + port)
}
