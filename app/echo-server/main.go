package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpmetrics "beverageHub/app/echo-server/metrics"
	"beverageHub/app/echo-server/router"
	"beverageHub/business/category"
	"beverageHub/business/orders"
	"beverageHub/business/payments"
	"beverageHub/business/product"
	"beverageHub/business/seed"
	userService "beverageHub/business/user"
	"beverageHub/business/wallet"
	"beverageHub/internal/middleware"
	"beverageHub/internal/queue"
	"beverageHub/internal/repository/mpesa"
	"beverageHub/internal/repository/notification"
	psqlRepo "beverageHub/internal/repository/postgres"
	redisRepo "beverageHub/internal/repository/redis"
	"beverageHub/internal/rest"
	"beverageHub/pkg/config"
	"beverageHub/pkg/database"
	redisClient "beverageHub/pkg/database/redis"
	"beverageHub/pkg/logger"
	"beverageHub/pkg/metrics"
	"beverageHub/pkg/utils"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.App.Environment)
	logger.Info("Starting BeverageHub", "version", cfg.App.Version, "environment", cfg.App.Environment)

	db, err := database.InitPostgres(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	logger.Info("Database connected successfully")

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), time.Minute)
	if err := psqlRepo.Migrate(migrateCtx, db); err != nil {
		logger.Fatal("Failed to migrate database", "error", err)
	}
	cancelMigrate()

	appCtx, stopApp := context.WithCancel(context.Background())
	defer stopApp()

	watchdog := database.NewWatchdog(db, cfg.Database.HealthInterval)
	go watchdog.Run(appCtx)

	// Optional Redis: sessions, gateway token cache and rate limiting
	var (
		rdb            *redis.Client
		sessionRepo    userService.SessionRepository
		tokenCache     mpesa.TokenCache
		limiter        middleware.Limiter
		tokenValidator middleware.TokenValidator
	)
	if cfg.Redis.Enabled {
		rdb, err = redisClient.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, continuing without it", "error", err)
		} else {
			sessionRepo = redisRepo.NewTokenRepository(rdb)
			tokenCache = redisRepo.NewMpesaTokenCache(rdb)
			if cfg.RateLimit.Enabled {
				limiter = redisRepo.NewRateLimiter(rdb, cfg.RateLimit)
			}
			logger.Info("Redis connected successfully")
		}
	}

	var publisher payments.EventPublisher
	var amqpPublisher *queue.Publisher
	if cfg.RabbitMQ.URL != "" {
		amqpPublisher = queue.NewPublisher(cfg.RabbitMQ.URL)
		publisher = amqpPublisher
	}

	metrics.Init()
	httpmetrics.Init()

	// Init notification from mailjet
	mailjetEmail := notification.NewMailjetRepository(
		notification.MailjetConfig{
			MailjetBaseURL:           cfg.Mailjet.MailjetBaseUrl,
			MailjetBasicAuthUsername: cfg.Mailjet.MailjetBasicAuthUsername,
			MailjetBasicAuthPassword: cfg.Mailjet.MailjetBasicAuthPassword,
			MailjetSenderEmail:       cfg.Mailjet.MailjetSenderEmail,
			MailjetSenderName:        cfg.Mailjet.MailjetSenderName,
		},
	)

	mpesaClient := mpesa.NewClient(cfg.Mpesa, tokenCache)
	if !mpesaClient.IsConfigured() {
		logger.Warn("M-Pesa credentials missing, payment endpoints will answer 503")
	}

	// Init repo
	userRepo := psqlRepo.NewUserRepository(db)
	ordersRepo := psqlRepo.NewOrdersRepository(db)
	productsRepo := psqlRepo.NewProductRepository(db)
	walletRepo := psqlRepo.NewWalletRepository(db)
	categoryRepo := psqlRepo.NewCategoryRepository(db)

	// Init service
	userSvc := userService.NewUserService(userRepo, sessionRepo, utils.NewValidator(), mailjetEmail, cfg.JWT.SecretKey, cfg.JWT.TTL)
	productService := product.NewProductService(productsRepo)
	categoryService := category.NewCategoryService(categoryRepo)
	walletService := wallet.NewWalletService(walletRepo)
	paymentsService := payments.NewPaymentsService(ordersRepo, walletRepo, mpesaClient, publisher)
	ordersService := orders.NewOrdersService(ordersRepo, productsRepo, paymentsService)
	seedService := seed.NewSeedService(productsRepo, userRepo, cfg.Demo)

	if sessionRepo != nil {
		tokenValidator = userSvc
	}

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 30*time.Second)
	if err := seedService.SeedIfEmpty(seedCtx); err != nil {
		logger.Error("Failed to seed catalog", err)
	}
	cancelSeed()

	// Init handler
	userHandler := rest.NewUserHandler(userSvc)
	productHandler := rest.NewProductHandler(productService)
	categoryHandler := rest.NewCategoryHandler(categoryService)
	ordersHandler := rest.NewOrdersHandler(ordersService)
	walletHandler := rest.NewWalletHandler(walletService, paymentsService)
	checkoutHandler := rest.NewCheckoutHandler(paymentsService)
	webhookHandler := rest.NewMpesaWebhookHandler(paymentsService)
	healthHandler := rest.NewHealthHandler(cfg.App.Environment, watchdog, mpesaClient)
	seedHandler := rest.NewSeedHandler(seedService, cfg.IsProduction())

	// Init echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// HTTP error handler
	e.HTTPErrorHandler = middleware.NewErrorHandler(cfg.IsProduction())

	// Global middleware
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
	}))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	e.Use(echomiddleware.BodyLimit("1M"))
	e.Use(middleware.RequestLogger())
	e.Use(httpmetrics.Middleware())

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Auth middleware
	authRequired := middleware.AuthMiddlewareWithRedis(cfg.JWT.SecretKey, tokenValidator)
	adminOnly := middleware.AdminOnly()
	selfOrAdmin := middleware.SelfOrAdmin()
	rateLimit := middleware.RateLimit(limiter)

	// Setup routes
	api := e.Group("/api")
	router.SetupAuthRoutes(api, userHandler, authRequired)
	router.SetupUserRoutes(api, userHandler, authRequired, adminOnly, selfOrAdmin)
	router.SetupProductRoutes(api, productHandler, categoryHandler, authRequired, adminOnly)
	router.SetOrdersRoutes(api, ordersHandler, authRequired, adminOnly)
	router.SetWalletRoutes(api, walletHandler, authRequired, rateLimit)
	router.SetCheckoutRoutes(api, checkoutHandler, authRequired, rateLimit)
	router.SetWebhookRoutes(api, webhookHandler)
	router.SetOperationalRoutes(api, healthHandler, seedHandler)

	// Goroutine server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server starting", "address", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown server
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	stopApp()

	if amqpPublisher != nil {
		if err := amqpPublisher.Close(); err != nil {
			logger.Warn("Failed to close event publisher", "error", err)
		}
	}
	if err := redisClient.CloseRedisClient(rdb); err != nil {
		logger.Warn("Failed to close redis", "error", err)
	}
	if err := database.Close(db); err != nil {
		logger.Warn("Failed to close database", "error", err)
	}

	logger.Info("Server stopped")
}
