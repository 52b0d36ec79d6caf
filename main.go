package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/satis-shop/satis-api/config"
	"github.com/satis-shop/satis-api/controllers"
	"github.com/satis-shop/satis-api/logging"
	"github.com/satis-shop/satis-api/metrics"
	"github.com/satis-shop/satis-api/middleware"
	"github.com/satis-shop/satis-api/models"
	"github.com/satis-shop/satis-api/payments"
	"github.com/satis-shop/satis-api/ratelimit"
	"github.com/satis-shop/satis-api/services"
	"go.uber.org/zap"
)

const serviceName = "satis-api"

// routerDeps is what setupRouter needs besides the package-level services
type routerDeps struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	limiter ratelimit.Limiter
	auth    gin.HandlerFunc
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.NewLogger(serviceName, cfg.GoEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting server", zap.String("env_file", cfg.EnvFile), zap.String("payment_provider", cfg.PaymentProvider))

	if err := config.ConnectDatabase(cfg.GetDatabaseURL(), logger); err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	db := config.GetDB()
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}
	logger.Info("database migration completed")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.Init()
	payments.InitRegistry(cfg)

	archive, err := services.NewCallbackArchive(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize callback archive", zap.Error(err))
	}
	if archive == nil {
		logger.Warn("AWS_S3_BUCKET not set, payment callbacks will not be archived")
	}

	standard, express, free := cfg.ShippingRates()
	notifier := services.NewNotificationService(services.NewMailer(cfg.Email, logger))
	services.InitOrderService(db, logger, m, notifier, archive, services.ShippingRates{
		Standard:      standard,
		Express:       express,
		FreeThreshold: free,
	})

	var limiter ratelimit.Limiter = ratelimit.NewMemoryLimiter()
	if cfg.RedisAddr != "" {
		redisLimiter, err := ratelimit.NewRedisLimiter(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		defer redisLimiter.Close()
		limiter = redisLimiter
	}

	auth, err := middleware.EnsureValidToken(cfg, logger)
	if err != nil {
		logger.Fatal("failed to set up JWT validation", zap.Error(err))
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := setupRouter(routerDeps{cfg: cfg, logger: logger, metrics: m, limiter: limiter, auth: auth})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
		return
	}
	logger.Info("http server stopped")
}

// setupRouter registers every route on a new engine
func setupRouter(d routerDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(d.logger, d.metrics))
	if len(d.cfg.CORSAllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     d.cfg.CORSAllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowHeaders:     []string{"Authorization", "Content-Type", middleware.HeaderRequestID},
			ExposeHeaders:    []string{middleware.HeaderRequestID},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/metrics", gin.WrapH(d.metrics.Handler()))

	callbackLimit := middleware.RateLimit(d.limiter, middleware.RateLimitRule{
		Route:  "payment_callback",
		Limit:  d.cfg.CallbackRateLimit,
		Window: time.Minute,
		Key:    middleware.ByIP,
	}, d.metrics)
	callbacks := router.Group("/payments/callback", callbackLimit)
	{
		callbacks.POST("/iyzico/", controllers.IyzicoCallback)
		callbacks.POST("/paytr/", controllers.PayTRCallback)
	}

	user := []gin.HandlerFunc{d.auth, middleware.LoadCurrentUser()}

	cancelLimit := middleware.RateLimit(d.limiter, middleware.RateLimitRule{
		Route:  "order_cancel",
		Limit:  d.cfg.CancelRateLimit,
		Window: time.Minute,
		Key:    middleware.ByUser,
	}, d.metrics)
	router.POST("/orders/:id/cancel/", append(user, cancelLimit, controllers.CancelOrder)...)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/database/status", databaseStatus)

		v1.POST("/users", d.auth, controllers.CreateUser)

		me := v1.Group("/users/me", user...)
		{
			me.GET("", controllers.GetMyProfile)
			me.PUT("", controllers.UpdateMyProfile)
			me.GET("/stock-alerts", controllers.ListMyStockAlerts)
		}

		orders := v1.Group("/orders", user...)
		{
			orders.POST("", controllers.CreateOrder)
			orders.GET("/:id", controllers.GetOrder)
			orders.POST("/:id/pay", controllers.PayOrder)
			orders.POST("/:id/ship", middleware.RequireStaff(), controllers.ShipOrder)
		}

		products := v1.Group("/products", user...)
		{
			products.POST("/:id/stock-alert", controllers.SubscribeStockAlert)
			products.DELETE("/:id/stock-alert", controllers.UnsubscribeStockAlert)
		}
	}

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Satış API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	tables, err := db.Migrator().GetTables()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
