package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/okamura/project-management-api/internal/auth"
	"github.com/okamura/project-management-api/internal/authz"
	"github.com/okamura/project-management-api/internal/config"
	"github.com/okamura/project-management-api/internal/database"
	"github.com/okamura/project-management-api/internal/handlers"
	"github.com/okamura/project-management-api/internal/logger"
	"github.com/okamura/project-management-api/internal/middleware"
	"github.com/okamura/project-management-api/internal/repository"
	"github.com/okamura/project-management-api/internal/services"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	zapLogger, err := logger.New(cfg.GinMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	// Run migrations
	if err := database.Migrate(db); err != nil {
		zapLogger.Fatal("failed to run migrations", zap.Error(err))
	}
	if err := database.AddIndexes(db, zapLogger); err != nil {
		zapLogger.Fatal("failed to add indexes", zap.Error(err))
	}

	// Wire repositories, authorization engine and services
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	engine := authz.NewEngine(projectRepo, userRepo)

	authService := services.NewAuthService(userRepo, tokens)
	userService := services.NewUserService(userRepo, engine)
	projectService := services.NewProjectService(projectRepo, userRepo, engine)
	taskService := services.NewTaskService(taskRepo, projectRepo, engine)
	dashboardService := services.NewDashboardService(taskRepo, projectRepo, userRepo)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, zapLogger)
	userHandler := handlers.NewUserHandler(userService, zapLogger)
	projectHandler := handlers.NewProjectHandler(projectService, zapLogger)
	taskHandler := handlers.NewTaskHandler(taskService, zapLogger)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService, zapLogger)

	// Initialize Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(zapLogger))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Project Management API is running",
		})
	})

	// API routes
	api := r.Group("/api")
	api.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	{
		// Auth routes (public except /me)
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh", authHandler.Refresh)
			authRoutes.GET("/me", middleware.RequireAuth(tokens), authHandler.Me)
		}

		// User routes (protected)
		users := api.Group("/users")
		users.Use(middleware.RequireAuth(tokens))
		{
			users.GET("", middleware.RequireAdmin(), userHandler.ListUsers)
			users.GET("/:id", userHandler.GetUser)
			users.PUT("/:id", userHandler.UpdateUser)
			users.PUT("/:id/password", userHandler.ChangePassword)
			users.DELETE("/:id", middleware.RequireAdmin(), userHandler.DeactivateUser)
		}

		// Project routes (protected)
		projects := api.Group("/projects")
		projects.Use(middleware.RequireAuth(tokens))
		{
			projects.POST("", projectHandler.CreateProject)
			projects.GET("", projectHandler.ListProjects)
			projects.GET("/:id", projectHandler.GetProject)
			projects.PUT("/:id", projectHandler.UpdateProject)
			projects.DELETE("/:id", projectHandler.DeleteProject)
			projects.POST("/:id/members", projectHandler.AddMember)
			projects.DELETE("/:id/members/:user_id", projectHandler.RemoveMember)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(middleware.RequireAuth(tokens))
		{
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("", taskHandler.ListTasks)
			tasks.PATCH("/bulk/status", taskHandler.BulkUpdateStatus)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.PUT("/:id", taskHandler.UpdateTask)
			tasks.DELETE("/:id", taskHandler.DeleteTask)
		}

		// Dashboard routes (protected)
		dashboard := api.Group("/dashboard")
		dashboard.Use(middleware.RequireAuth(tokens))
		{
			dashboard.GET("", dashboardHandler.GetDashboard)
			dashboard.GET("/admin", middleware.RequireAdmin(), dashboardHandler.GetAdminStats)
		}
	}

	// Start server with graceful shutdown
	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		zapLogger.Info("server starting", zap.String("addr", cfg.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("shutdown error", zap.Error(err))
	}
}
