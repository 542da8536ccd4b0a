package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/ojt-labs/account-api/api/swagger"
	"github.com/ojt-labs/account-api/internal/cache"
	"github.com/ojt-labs/account-api/internal/handler"
	"github.com/ojt-labs/account-api/internal/middleware"
	"github.com/ojt-labs/account-api/internal/models"
	"github.com/ojt-labs/account-api/internal/repository"
	"github.com/ojt-labs/account-api/internal/service"
	"github.com/ojt-labs/account-api/pkg/config"
	"github.com/ojt-labs/account-api/pkg/database"
	"github.com/ojt-labs/account-api/pkg/logger"
	"github.com/ojt-labs/account-api/pkg/mailer"
	corsmiddleware "github.com/ojt-labs/account-api/pkg/middleware/cors"
	reqidmiddleware "github.com/ojt-labs/account-api/pkg/middleware/requestid"
)

// @title Account Management API
// @version 1.0.0
// @description Account directory, authentication and OTP password reset
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	sender, err := mailer.New(cfg.SMTP)
	if err != nil {
		logr.Sugar().Fatalw("failed to configure mailer", "error", err)
	}

	validate := validator.New()
	metrics := service.NewMetricsService()
	listCache := cache.NewAccountListCache(cfg.Cache.SlidingTTL, cfg.Cache.AbsoluteTTL, metrics, logr)

	accountRepo := repository.NewAccountRepository(db)

	directorySvc := service.NewDirectoryService(accountRepo, validate, logr, cfg.Directory.PageSize)
	securitySvc := service.NewSecurityService(accountRepo, validate, logr, cfg.JWT)
	otpSvc := service.NewOTPService(accountRepo, sender, cfg.OTP.TTL, logr)
	exportSvc := service.NewExportService(accountRepo, logr)

	accountHandler := handler.NewAccountHandler(directorySvc, exportSvc, listCache)
	authHandler := handler.NewAuthHandler(securitySvc, otpSvc)
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/students/sign-up", authHandler.SignUpStudent)
		auth.POST("/sign-in", authHandler.SignIn)
	}

	reset := api.Group("/auth", middleware.JWT(securitySvc))
	{
		reset.POST("/otp/send", authHandler.SendOTP)
		reset.POST("/otp/verify", authHandler.VerifyOTP)
		reset.POST("/password/reset", authHandler.ResetPassword)
	}

	accounts := api.Group("/accounts", middleware.JWT(securitySvc))
	{
		admin := accounts.Group("", middleware.RequireRoles(models.RoleAdmin))
		{
			admin.GET("", accountHandler.List)
			admin.GET("/configuration", accountHandler.ListConfigured)
			admin.GET("/role/:role", accountHandler.ListByRole)
			admin.GET("/search/by-id/:id", accountHandler.SearchByID)
			admin.GET("/search/by-email/:email", accountHandler.SearchByEmail)
			admin.GET("/export", accountHandler.Export)
			admin.POST("/teachers", accountHandler.CreateTeacher)
			admin.PUT("", accountHandler.Update)
			admin.DELETE("/by-id/:id", accountHandler.DeleteByID)
			admin.DELETE("/by-email/:email", accountHandler.DeleteByEmail)
		}

		staff := accounts.Group("", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher))
		{
			staff.GET("/students", accountHandler.ListStudents)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
