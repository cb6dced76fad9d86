package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/edu-portal-api/api/swagger"
	"github.com/noah-isme/edu-portal-api/internal/handler"
	"github.com/noah-isme/edu-portal-api/internal/middleware"
	"github.com/noah-isme/edu-portal-api/internal/models"
	"github.com/noah-isme/edu-portal-api/internal/repository"
	"github.com/noah-isme/edu-portal-api/internal/service"
	"github.com/noah-isme/edu-portal-api/pkg/cache"
	"github.com/noah-isme/edu-portal-api/pkg/config"
	"github.com/noah-isme/edu-portal-api/pkg/database"
	"github.com/noah-isme/edu-portal-api/pkg/jobs"
	"github.com/noah-isme/edu-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/edu-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/edu-portal-api/pkg/middleware/requestid"
)

// @title Edu Portal API
// @version 1.0.0
// @description Administration portal with temporal status and activation ledgers
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	clientRepo := repository.NewClientRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	staffRepo := repository.NewStaffRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	statusRepo := repository.NewStatusRecordRepository(db)
	activationRepo := repository.NewActivationRepository(db)

	// Services.
	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled)
	}

	auditSvc := service.NewAuditTrailService(userRepo, jobs.QueueConfig{
		Workers:    cfg.Audit.Workers,
		BufferSize: cfg.Audit.BufferSize,
		MaxRetries: cfg.Audit.MaxRetries,
		RetryDelay: cfg.Audit.RetryDelay,
		Logger:     logr,
	}, logr)
	auditCtx, cancelAudit := context.WithCancel(context.Background())
	auditSvc.Start(auditCtx)
	defer func() {
		cancelAudit()
		auditSvc.Stop()
	}()

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "edu-portal-api",
	})
	userSvc := service.NewUserService(userRepo, nil, logr)
	clientSvc := service.NewClientService(clientRepo, nil, logr)
	studentSvc := service.NewStudentService(studentRepo, clientRepo, nil, logr)
	staffSvc := service.NewStaffService(staffRepo, nil, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, studentRepo, staffRepo, nil, logr)
	statusSvc := service.NewStatusService(statusRepo, cacheSvc, metricsSvc, auditSvc, nil, logr)
	activationSvc := service.NewActivationService(activationRepo, subjectRepo, metricsSvc, auditSvc, nil, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	clientHandler := handler.NewClientHandler(clientSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	staffHandler := handler.NewStaffHandler(staffSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	statusHandler := handler.NewStatusHandler(statusSvc)
	activationHandler := handler.NewActivationHandler(activationSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password", authHandler.ResetPassword)

		authed := auth.Group("", middleware.JWT(authSvc))
		authed.POST("/logout", authHandler.Logout)
		authed.POST("/change-password", authHandler.ChangePassword)
		authed.GET("/me", authHandler.Me)
	}

	protected := api.Group("", middleware.JWT(authSvc))

	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	staffRoles := middleware.RequireRoles(models.RoleAdmin, models.RoleSupervisor)
	readRoles := middleware.RequireRoles(models.RoleAdmin, models.RoleSupervisor, models.RoleTeacher)

	users := protected.Group("/users", adminOnly)
	{
		users.GET("", userHandler.List)
		users.GET("/:id", userHandler.Get)
		users.POST("", middleware.Audit(auditSvc, models.AuditActionUserCreate, "user"), userHandler.Create)
		users.PUT("/:id", middleware.Audit(auditSvc, models.AuditActionUserUpdate, "user"), userHandler.Update)
		users.DELETE("/:id", middleware.Audit(auditSvc, models.AuditActionUserDelete, "user"), userHandler.Delete)
	}

	clients := protected.Group("/clients")
	{
		clients.GET("", readRoles, clientHandler.List)
		clients.GET("/:id", readRoles, clientHandler.Get)
		clients.POST("", staffRoles, clientHandler.Create)
		clients.PUT("/:id", staffRoles, clientHandler.Update)
		clients.DELETE("/:id", adminOnly, clientHandler.Delete)

		clients.POST("/:id/status", staffRoles, statusHandler.ChangeClient)
		clients.GET("/:id/status", readRoles, statusHandler.OverviewClient)
		clients.GET("/:id/status/history", readRoles, statusHandler.HistoryClient)
	}

	students := protected.Group("/students")
	{
		students.GET("", readRoles, studentHandler.List)
		students.GET("/:id", readRoles, studentHandler.Get)
		students.POST("", staffRoles, studentHandler.Create)
		students.PUT("/:id", staffRoles, studentHandler.Update)
		students.DELETE("/:id", adminOnly, studentHandler.Delete)

		students.POST("/:id/status", staffRoles, statusHandler.ChangeStudent)
		students.GET("/:id/status", readRoles, statusHandler.OverviewStudent)
		students.GET("/:id/status/history", readRoles, statusHandler.HistoryStudent)

		students.PUT("/:id/subjects/:assignmentId/activation", staffRoles, activationHandler.Toggle)
		students.GET("/:id/subjects/:assignmentId/activation", readRoles, activationHandler.Get)
		students.GET("/:id/activations", readRoles, activationHandler.ListByStudent)
	}

	staff := protected.Group("/staff")
	{
		staff.GET("", readRoles, staffHandler.List)
		staff.GET("/:id", readRoles, staffHandler.Get)
		staff.POST("", staffRoles, staffHandler.Create)
		staff.PUT("/:id", staffRoles, staffHandler.Update)
		staff.DELETE("/:id", adminOnly, staffHandler.Delete)

		staff.POST("/:id/status", staffRoles, statusHandler.ChangeStaff)
		staff.GET("/:id/status", readRoles, statusHandler.OverviewStaff)
		staff.GET("/:id/status/history", readRoles, statusHandler.HistoryStaff)
	}

	subjects := protected.Group("/subjects")
	{
		subjects.GET("", readRoles, subjectHandler.List)
		subjects.GET("/:id", readRoles, subjectHandler.Get)
		subjects.POST("", staffRoles, subjectHandler.Create)
		subjects.PUT("/:id", staffRoles, subjectHandler.Update)
		subjects.DELETE("/:id", adminOnly, subjectHandler.Delete)
	}

	assignments := protected.Group("/subject-assignments")
	{
		assignments.GET("", readRoles, subjectHandler.ListAssignments)
		assignments.POST("", staffRoles, subjectHandler.Assign)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
