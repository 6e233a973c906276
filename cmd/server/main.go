package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"taskhub/internal/config"
	"taskhub/internal/db"
	"taskhub/internal/handler"
	"taskhub/internal/httpserver"
	"taskhub/internal/repository"
	"taskhub/internal/service/auth"
	"taskhub/internal/service/project"
	"taskhub/internal/service/task"
	"taskhub/internal/session"
	"taskhub/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		panic(err)
	}

	log := logger.New()
	defer log.Sync()

	log.Info("Starting taskhub...",
		zap.String("http_port", cfg.Server.Port),
		zap.String("db_host", cfg.DB.Host),
		zap.String("redis_addr", cfg.Redis.Addr),
	)

	pool, err := db.NewPool(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer pool.Close()

	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Migrate(migrateCtx, pool, log); err != nil {
		cancel()
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	userRepo := repository.NewUserRepository(pool, log)
	projectRepo := repository.NewProjectRepository(pool, log)
	taskRepo := repository.NewTaskRepository(pool, log)
	taskLogRepo := repository.NewTaskLogRepository(pool, log)

	authSvc := auth.NewService(userRepo, log)
	projectSvc := project.NewService(projectRepo, userRepo, log)
	taskSvc := task.NewService(taskRepo, taskLogRepo, userRepo, projectRepo, log)

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := authSvc.EnsureAdmin(bootCtx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		bootCancel()
		log.Fatal("Failed to provision admin account", zap.Error(err))
	}
	bootCancel()

	sessions := session.NewStore(rdb, cfg.SessionTTL(), log)

	authHandler := handler.NewAuthHandler(authSvc, sessions, log)
	dashboardHandler := handler.NewDashboardHandler(taskSvc, projectSvc, log)
	projectHandler := handler.NewProjectHandler(projectSvc, log)
	taskHandler := handler.NewTaskHandler(taskSvc, log)
	userHandler := handler.NewUserHandler(authSvc, log)

	router := httpserver.NewRouter(
		authHandler,
		dashboardHandler,
		projectHandler,
		taskHandler,
		userHandler,
		sessions,
		log,
		pool,
	)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router.Engine,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}
	log.Info("Server stopped")
}
