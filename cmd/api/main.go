package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"offerhub-catalogue-api/internal/cache"
	"offerhub-catalogue-api/internal/config"
	"offerhub-catalogue-api/internal/handler"
	"offerhub-catalogue-api/internal/middleware"
	"offerhub-catalogue-api/internal/repository"
	"offerhub-catalogue-api/internal/router"
	"offerhub-catalogue-api/internal/service"
	"offerhub-catalogue-api/internal/upstream"

	"github.com/redis/go-redis/v9"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting OfferHub Catalogue API...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	// Initialize catalogue repository based on config
	var repo repository.CatalogueRepository
	switch cfg.CatalogueDB.Type {
	case "mysql":
		mysqlRepo, err := repository.NewMySQLCatalogueRepository(cfg.CatalogueDB.MySQLDSN())
		if err != nil {
			log.Fatalf("Failed to initialize MySQL: %v", err)
		}
		repo = mysqlRepo
		log.Println("MySQL catalogue repository initialized")
	default: // sqlite
		sqliteRepo, err := repository.NewSQLiteCatalogueRepository(cfg.CatalogueDB.Path)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite: %v", err)
		}
		repo = sqliteRepo
		log.Println("SQLite catalogue repository initialized")
	}
	defer repo.Close()

	readyChecks := []handler.ReadyCheck{
		{Name: "database", Check: repo.Ping},
	}

	// Initialize the access-token cache: Redis when reachable, in-memory
	// fallback otherwise.
	var tokenCache cache.Cache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.RedisAddress(),
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
	})

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Printf("Warning: Redis connection failed, using in-memory token cache: %v", err)
		memCache := cache.NewMemoryCache()
		defer memCache.Close()
		tokenCache = memCache
	} else {
		log.Println("Redis token cache initialized")
		tokenCache = cache.NewRedisCache(redisClient)
		defer redisClient.Close()
		readyChecks = append(readyChecks, handler.ReadyCheck{
			Name: "cache",
			Check: func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		})
	}
	cancelPing()

	// Initialize the upstream offers client with its credential store
	credStore := upstream.NewCredentialStore(
		repo,
		cfg.Upstream.BaseURL,
		cfg.Upstream.RefreshToken,
		&http.Client{Timeout: cfg.Upstream.Timeout},
	)
	offersClient := upstream.NewClient(upstream.Config{
		BaseURL: cfg.Upstream.BaseURL,
		Timeout: cfg.Upstream.Timeout,
	}, credStore)

	// Initialize services
	catalogueService := service.NewCatalogueService(repo, repo, offersClient)
	userService := service.NewUserService(repo, tokenCache)
	syncService := service.NewSyncService(repo, repo, offersClient)

	// Start the periodic offers reconciliation
	var scheduler *service.SyncScheduler
	if cfg.Sync.Enabled {
		scheduler = service.NewSyncScheduler(syncService, service.SyncConfig{
			Interval: cfg.Sync.Interval,
		})
		scheduler.Start()
		// Converge offers right away instead of waiting for the first tick.
		go scheduler.RunNow()
	}

	// Initialize handlers
	healthHandler := handler.New(cfg.App.Version, readyChecks...)
	productHandler := handler.NewProductHandler(catalogueService)
	authHandler := handler.NewAuthHandler(userService)

	// Create auth middleware with injected dependencies
	authMiddleware := middleware.NewAuthMiddleware(middleware.AuthConfig{
		Users: userService,
	})

	// Create router
	r := router.New(router.Config{
		Handler:        healthHandler,
		ProductHandler: productHandler,
		AuthHandler:    authHandler,
		AuthMiddleware: authMiddleware,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	if scheduler != nil {
		scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
