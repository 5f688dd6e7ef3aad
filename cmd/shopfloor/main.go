package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitfantasy/shopfloor/internal/config"
	"github.com/bitfantasy/shopfloor/internal/middleware"
	"github.com/bitfantasy/shopfloor/internal/shopfloor/entity"
	"github.com/bitfantasy/shopfloor/internal/shopfloor/handler"
	"github.com/bitfantasy/shopfloor/internal/shopfloor/repository"
	"github.com/bitfantasy/shopfloor/internal/shopfloor/service"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	// 加载 .env(不存在则忽略)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect database", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&entity.User{},
		&entity.Specification{},
		&entity.SpecItem{},
		&entity.WorkOrder{},
		&entity.AccessGrant{},
		&entity.Part{},
		&entity.Machine{},
		&entity.AuditEvent{},
		&entity.Attachment{},
	); err != nil {
		zapLogger.Fatal("Failed to migrate database", zap.Error(err))
	}
	zapLogger.Info("Database migration completed")

	rdb := initRedis(cfg.Redis)

	repos := repository.NewRepositories(db)
	services := service.NewServices(db, repos, rdb, cfg, zapLogger)
	handlers := handler.NewHandlers(services)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	registerRoutes(router, handlers, cfg)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		// 认证 (无需登录)
		auth := v1.Group("/auth")
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的接口
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)
			authorized.POST("/auth/logout", h.Auth.Logout)

			// 用户管理
			users := authorized.Group("/users")
			{
				users.GET("", h.User.List)
				users.GET("/:id", h.User.Get)
				users.POST("", middleware.RequirePermission(entity.PermManageUsers), h.User.Create)
			}

			// 规格单
			specs := authorized.Group("/specifications")
			{
				specs.GET("", h.Specification.List)
				specs.GET("/:id", h.Specification.Get)
				specs.GET("/:id/work-orders", h.WorkOrder.ListBySpecification)
				specs.GET("/:id/export", middleware.RequirePermission(entity.PermViewSpecifications), h.Specification.Export)

				manage := specs.Group("", middleware.RequirePermission(entity.PermManageSpecifications))
				{
					manage.POST("", h.Specification.Create)
					manage.PUT("/:id", h.Specification.Update)
					manage.DELETE("/:id", h.Specification.Delete)
					manage.POST("/:id/publish", h.Specification.Publish)
					manage.POST("/:id/items", h.Specification.CreateItem)
					manage.POST("/:id/work-orders/backfill", h.WorkOrder.Backfill)
				}
			}

			// 规格单明细
			items := authorized.Group("/spec-items", middleware.RequirePermission(entity.PermManageSpecifications))
			{
				items.DELETE("/:id", h.Specification.DeleteItem)
				items.PUT("/:id/progress", h.Specification.UpdateItemProgress)
			}

			// 工单
			workOrders := authorized.Group("/work-orders")
			{
				workOrders.GET("", h.WorkOrder.List)
				workOrders.GET("/:id", h.WorkOrder.Get)

				dispatch := workOrders.Group("", middleware.RequirePermission(entity.PermManageWorkOrders))
				{
					dispatch.POST("/:id/queue", h.WorkOrder.Queue)
					dispatch.POST("/:id/start", h.WorkOrder.Start)
					dispatch.POST("/:id/cancel", h.WorkOrder.Cancel)
				}

				report := workOrders.Group("", middleware.RequirePermission(entity.PermReportProgress))
				{
					report.POST("/:id/progress", h.WorkOrder.ReportProgress)
					report.POST("/:id/block", h.WorkOrder.Block)
					report.POST("/:id/complete", h.WorkOrder.Complete)
				}
			}

			// 授权。列表对所有登录用户开放,服务层按主体收窄到本人记录
			authorized.GET("/access-grants", h.Access.List)
			grants := authorized.Group("/access-grants", middleware.RequirePermission(entity.PermGrantSpecAccess))
			{
				grants.POST("", h.Access.Grant)
				grants.DELETE("/:id", h.Access.Revoke)
			}

			// 零件台账
			parts := authorized.Group("/parts")
			{
				parts.GET("", h.Directory.ListParts)
				parts.GET("/:id", h.Directory.GetPart)
				parts.POST("", middleware.RequirePermission(entity.PermManageSpecifications), h.Directory.CreatePart)
				parts.PUT("/:id", middleware.RequirePermission(entity.PermManageSpecifications), h.Directory.UpdatePart)
			}

			// 机床台账
			machines := authorized.Group("/machines")
			{
				machines.GET("", h.Directory.ListMachines)
				machines.GET("/:id/queue", h.WorkOrder.MachineQueue)
				machines.POST("", middleware.RequirePermission(entity.PermManageWorkOrders), h.Directory.CreateMachine)
			}

			// 附件
			attachments := authorized.Group("/attachments")
			{
				attachments.GET("", h.Upload.List)
				attachments.POST("", h.Upload.Upload)
				attachments.GET("/:id/download", h.Upload.Download)
				attachments.DELETE("/:id", middleware.RequirePermission(entity.PermDeleteData), h.Upload.Delete)
			}

			// 审计
			authorized.GET("/audit-events", middleware.RequirePermission(entity.PermViewAudit), h.Audit.List)
		}
	}
}
