package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"Feedsync/internal/api/middleware"
	"Feedsync/internal/api/routes"
	"Feedsync/internal/core/credentials"
	"Feedsync/internal/core/feeds"
	"Feedsync/internal/core/feedsync"
	"Feedsync/internal/db/migrations"
	postgresRepo "Feedsync/internal/db/postgres"
	sqliteRepo "Feedsync/internal/db/sqlite"
	"Feedsync/internal/remote"
)

func main() {
	ctx := context.Background()

	// Cache database: a local SQLite file unless postgres is asked for
	driver := os.Getenv("FEEDSYNC_DB_DRIVER")
	if driver == "" {
		driver = string(migrations.SQLite)
	}
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = "feedsync.db"
	}

	db, backend, err := openCache(ctx, driver, dbURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	log.Printf("Connected to %s feed cache", backend)

	if err := migrations.Up(ctx, db, backend); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	log.Println("Migrations completed successfully")

	// SQLite reads get their own pool so live queries never queue behind a merge
	var reader *sql.DB
	if backend == migrations.SQLite {
		reader, err = sqliteRepo.OpenReader(ctx, dbURL)
		if err != nil {
			log.Fatal("Failed to open cache reader:", err)
		}
		defer reader.Close()
	}

	logger := slog.Default()

	caches := make(map[feeds.Kind]feeds.CacheStore, len(feeds.Kinds))
	configs := make(map[feeds.Kind]feeds.MediatorConfig, len(feeds.Kinds))
	for _, kind := range feeds.Kinds {
		if backend == migrations.Postgres {
			caches[kind] = postgresRepo.NewFeedCacheRepository(db, kind, logger)
		} else {
			caches[kind] = sqliteRepo.NewFeedCacheRepository(db, reader, kind, logger)
		}
		configs[kind] = feeds.ConfigFromEnv(kind)
	}

	remoteConfig := remote.ConfigFromEnv()
	client, err := remote.NewClient(remoteConfig, logger)
	if err != nil {
		log.Fatal("Failed to create remote client:", err)
	}

	// A bearer header on the request wins over the configured static credential
	var fallback credentials.Provider
	if token := os.Getenv("FEEDSYNC_ACCESS_TOKEN"); token != "" {
		memberID, _ := strconv.ParseInt(os.Getenv("FEEDSYNC_MEMBER_ID"), 10, 64)
		fallback = credentials.NewStatic(token, memberID)
	}
	creds := credentials.NewContextProvider(fallback)

	engine, err := feedsync.New(client, creds, caches, configs, logger)
	if err != nil {
		log.Fatal("Failed to create feed engine:", err)
	}

	// Warm-up failures are not fatal: the cache still serves what it has
	go func() {
		warmCtx, cancel := context.WithTimeout(ctx, 2*remoteConfig.Timeout)
		defer cancel()
		if err := engine.WarmUp(warmCtx); err != nil {
			log.Printf("Feed warm-up failed: %v", err)
		}
	}()

	r := chi.NewRouter()

	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)

	// Rate limiting: 20 requests per second per IP, bursts of 40
	rateLimiter, err := middleware.NewRateLimiter(20, 40, 10000)
	if err != nil {
		log.Fatal("Failed to create rate limiter:", err)
	}
	r.Use(rateLimiter.Middleware)

	auth := middleware.NewBearerAuth(fallback, true)

	routes.RegisterFeedRoutes(r, engine, auth)
	routes.RegisterReactionRoutes(r, engine, auth)
	routes.RegisterModerationRoutes(r, engine.Moderation(), auth)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Printf("Failed to write health response: %v", err)
		}
	})

	port := os.Getenv("FEEDSYNC_PORT")
	if port == "" {
		port = "8090"
	}

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Printf("Feedsync starting on port %s\n", port)
	fmt.Printf("Remote feed service: %s\n", remoteConfig.BaseURL)
	log.Fatal(server.ListenAndServe())
}

func openCache(ctx context.Context, driver, dsn string) (*sql.DB, migrations.Backend, error) {
	switch migrations.Backend(driver) {
	case migrations.Postgres:
		db, err := postgresRepo.Open(ctx, dsn)
		return db, migrations.Postgres, err
	case migrations.SQLite:
		db, err := sqliteRepo.Open(ctx, dsn)
		return db, migrations.SQLite, err
	default:
		return nil, "", fmt.Errorf("unknown FEEDSYNC_DB_DRIVER %q (want %s or %s)", driver, migrations.SQLite, migrations.Postgres)
	}
}
