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

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"storefront-service/internal/config"
	"storefront-service/internal/events"
	"storefront-service/internal/handlers"
	"storefront-service/internal/mailer"
	"storefront-service/internal/middleware"
	"storefront-service/internal/repository"
	"storefront-service/internal/subscribers"

	gosharedmw "github.com/Tesseract-Nexus/go-shared/middleware"
	"github.com/Tesseract-Nexus/go-shared/secrets"
	"github.com/Tesseract-Nexus/go-shared/tracing"
)

// @title Storefront API
// @version 1.0.0
// @description Affiliate storefront catalog with AliExpress spreadsheet import

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey AdminSession
// @in cookie
// @name storefront_admin_session

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.IsProduction() {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Redis backs the catalog cache, magic link tokens and import status
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("WARNING: Failed to parse Redis URL: %v (using localhost)", err)
		redisOpts = &redis.Options{
			Addr: "localhost:6379",
		}
	}
	redisOpts.Password = secrets.GetRedisPassword()
	redisClient := redis.NewClient(redisOpts)

	cacheClient := redisClient
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("WARNING: Failed to connect to Redis: %v (caching will be disabled)", err)
		cacheClient = nil
	} else {
		log.Println("✓ Redis connected successfully")
	}
	cancel()

	// Repositories
	catalogRepo := repository.NewCatalogRepository(db, cacheClient)
	usersRepo := repository.NewUsersRepository(db)
	favoritesRepo := repository.NewFavoritesRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	// Event publishing is optional
	var eventsPublisher *events.Publisher
	if cfg.NATSURL != "" {
		eventsPublisher, err = events.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			log.Printf("WARNING: Failed to initialize events publisher: %v (continuing without event publishing)", err)
			eventsPublisher = nil
		} else {
			log.Println("✓ Events publisher initialized (NATS connected)")
		}
	} else {
		log.Println("NATS_URL not set, skipping event publishing initialization")
	}
	defer func() {
		if eventsPublisher != nil {
			eventsPublisher.Close()
		}
	}()

	// Other replicas' writes evict this replica's in-process cache
	var catalogSubscriber *subscribers.CatalogSubscriber
	if cfg.NATSURL != "" && cacheClient != nil {
		replicaID, _ := os.Hostname()
		catalogSubscriber, err = subscribers.NewCatalogSubscriber(cfg.NATSURL, replicaID, catalogRepo, logger)
		if err != nil {
			log.Printf("WARNING: Failed to create catalog subscriber: %v", err)
			catalogSubscriber = nil
		} else if err := catalogSubscriber.Start(context.Background()); err != nil {
			log.Printf("WARNING: Failed to start catalog subscriber: %v", err)
			catalogSubscriber = nil
		} else {
			log.Println("✓ Catalog subscriber started")
		}
	}

	var mail mailer.Mailer
	if cfg.SendGridAPIKey != "" {
		mail = mailer.NewSendGridMailer(cfg.SendGridAPIKey, cfg.MailFrom, logger)
		log.Println("✓ SendGrid mailer initialized")
	} else {
		mail = mailer.NewLogMailer(logger)
		log.Println("SENDGRID_API_KEY not set, magic links will be logged")
	}

	// Handlers
	importSessions := handlers.NewImportSessions(catalogRepo, cacheClient, logger)
	productsHandler := handlers.NewProductsHandler(catalogRepo, eventsPublisher, cfg.DefaultPageSize, cfg.MaxPageSize, logger)
	categoriesHandler := handlers.NewCategoriesHandler(catalogRepo, logger)
	importHandler := handlers.NewImportHandler(importSessions, catalogRepo, eventsPublisher, cfg.MaxImportFileMB, logger)
	settingsHandler := handlers.NewSettingsHandler(settingsRepo, logger)
	favoritesHandler := handlers.NewFavoritesHandler(favoritesRepo, logger)
	authHandler := handlers.NewAuthHandler(usersRepo, handlers.NewRedisTokenStore(redisClient), mail, cfg, logger)

	// Initialize OpenTelemetry tracing
	var tracerProvider *tracing.TracerProvider
	if cfg.IsProduction() {
		tracerProvider, err = tracing.InitTracer(tracing.ProductionConfig("storefront-service"))
	} else {
		tracerProvider, err = tracing.InitTracer(tracing.DefaultConfig("storefront-service"))
	}
	if err != nil {
		log.Printf("WARNING: Failed to initialize tracing: %v (continuing without tracing)", err)
	} else {
		log.Println("✓ OpenTelemetry tracing initialized")
	}

	metrics := gosharedmw.InitGlobalMetrics("storefront", "storefront_service")
	log.Println("✓ Prometheus metrics initialized")

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(metrics.Middleware())
	router.Use(tracing.GinMiddleware("storefront-service"))
	router.Use(gosharedmw.CompressionMiddleware())
	router.Use(middleware.CORS(cfg.SiteURL))
	router.MaxMultipartMemory = int64(cfg.MaxImportFileMB) << 20

	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.ReadinessCheck(db, cacheClient))
	router.GET("/metrics", gosharedmw.Handler())

	api := router.Group("/api/v1")
	authLimit := middleware.AuthRateLimit()
	adminGuard := middleware.RequireAdmin(cfg.JWTSecret, cfg.AdminSessionCookie)
	customerGuard := middleware.RequireCustomer(cfg.JWTSecret, cfg.CustomerSessionCookie)

	// Public storefront
	storefront := api.Group("/storefront")
	storefront.Use(middleware.Country(cfg.CountryCookie, cfg.DefaultCountry))
	{
		storefront.GET("/products", productsHandler.GetProducts)
		storefront.GET("/products/:id", productsHandler.GetProduct)
		storefront.GET("/categories", categoriesHandler.GetCategories)
		storefront.GET("/categories/:slug", categoriesHandler.GetCategoryBySlug)
		storefront.GET("/settings/:key", settingsHandler.GetSetting)
		storefront.GET("/country", authHandler.GetCountry)
		storefront.PUT("/country", middleware.OptionalCustomer(cfg.JWTSecret, cfg.CustomerSessionCookie), authHandler.SetCountry)
	}

	// Customer sign-in
	auth := api.Group("/auth")
	{
		auth.POST("/magic-link", authLimit, authHandler.RequestMagicLink)
		auth.GET("/verify", authHandler.VerifyMagicLink)
		auth.POST("/logout", authHandler.CustomerLogout)
	}

	favorites := api.Group("/favorites")
	favorites.Use(customerGuard)
	{
		favorites.GET("", favoritesHandler.ListFavorites)
		favorites.POST("/:productId", favoritesHandler.AddFavorite)
		favorites.DELETE("/:productId", favoritesHandler.RemoveFavorite)
	}

	// Admin
	api.POST("/admin/login", authLimit, authHandler.AdminLogin)
	api.POST("/admin/logout", authHandler.AdminLogout)

	admin := api.Group("/admin")
	admin.Use(adminGuard)
	{
		products := admin.Group("/products")
		{
			products.GET("", productsHandler.ListAllProducts)
			products.POST("", productsHandler.CreateProduct)
			products.POST("/update-categories", importHandler.UpdateCategories)
			products.GET("/:id", productsHandler.GetAdminProduct)
			products.PATCH("/:id", productsHandler.UpdateProduct)
			products.DELETE("/:id", productsHandler.DeleteProduct)
		}

		categories := admin.Group("/categories")
		{
			categories.POST("", categoriesHandler.CreateCategory)
			categories.PUT("/:id", categoriesHandler.UpdateCategory)
			categories.DELETE("/:id", categoriesHandler.DeleteCategory)
			categories.POST("/:id/move", categoriesHandler.MoveCategory)
		}

		settings := admin.Group("/settings")
		{
			settings.GET("", settingsHandler.ListSettings)
			settings.PUT("/:key", settingsHandler.PutSetting)
		}

		imports := admin.Group("/import")
		{
			imports.GET("/template", importHandler.GetImportTemplate)
			imports.POST("/sessions", importHandler.CreateSession)
			imports.GET("/sessions/:id", importHandler.GetSession)
			imports.DELETE("/sessions/:id", importHandler.DeleteSession)
			imports.DELETE("/sessions/:id/rows/:index", importHandler.RemoveRow)
			imports.PUT("/sessions/:id/category", importHandler.SetCategory)
			imports.POST("/sessions/:id/import", importHandler.StartImport)
			imports.POST("/sessions/:id/cancel", importHandler.CancelImport)
			imports.POST("/sessions/:id/retrofit", importHandler.RetrofitSession)
		}
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Storefront service starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-quit
	log.Println("Shutting down storefront-service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}

	if catalogSubscriber != nil {
		catalogSubscriber.Stop()
	}

	// Running imports stop before their next row
	importSessions.Shutdown(shutdownCtx)
	log.Println("✓ Import sessions stopped")

	if tracerProvider != nil {
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down tracer provider: %v", err)
		} else {
			log.Println("✓ Tracer provider shut down")
		}
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}

	log.Println("Storefront service stopped")
}
