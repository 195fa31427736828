package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/xwurfel/gallerykit/internal/cloud"
	"github.com/xwurfel/gallerykit/internal/config"
	"github.com/xwurfel/gallerykit/internal/database"
	"github.com/xwurfel/gallerykit/internal/gallery"
	"github.com/xwurfel/gallerykit/internal/media"
	"github.com/xwurfel/gallerykit/internal/source"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file in development
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found")
		}
	}

	// Load configuration
	cfg := config.Load()

	// Local media source: an indexed catalog when configured, a directory
	// walk otherwise
	var local source.Repository
	if cfg.Index.Enabled {
		db, err := database.NewPostgresConnection(cfg.Index)
		if err != nil {
			log.Fatal("Failed to connect to PostgreSQL:", err)
		}
		defer db.Close()
		local = source.NewIndexSource(db)
		log.Println("Using indexed media catalog")
	} else {
		local = source.NewLocalSource(cfg.Media.Root)
		log.Printf("Using local media root: %s", cfg.Media.Root)
	}

	// Cloud sources
	sources := make(map[cloud.Provider]source.Repository)
	if len(cfg.Cloud.Providers) > 0 {
		minioClient, err := database.NewMinIOConnection(cfg.MinIO)
		if err != nil {
			log.Fatal("Failed to connect to MinIO:", err)
		}

		var sessions *cloud.SessionStore
		if cfg.Redis.Enabled {
			redisClient, err := database.NewRedisConnection(cfg.Redis)
			if err != nil {
				log.Fatal("Failed to connect to Redis:", err)
			}
			defer redisClient.Close()
			sessions = cloud.NewSessionStore(redisClient)
		}

		for _, p := range cfg.Cloud.Providers {
			var auth cloud.Authenticator
			if p == cloud.ProviderMinIO {
				auth = cloud.NewStaticAuthenticator(p, cfg.MinIO.AccessKeyID, cfg.MinIO.SecretAccessKey)
			} else {
				auth = cloud.NewTokenAuthenticator(p, cfg.Cloud.JWTSecret, sessions)
			}
			sources[p] = source.NewObjectSource(p, minioClient, cfg.MinIO.Bucket, auth)
			log.Printf("Registered cloud source: %s", p.Label())
		}
	}

	repo, err := source.BuildComposite(local, sources, cfg.Cloud.Providers)
	if err != nil {
		log.Fatal("Failed to build media repository:", err)
	}

	// Gallery configuration
	builder := gallery.NewBuilder().
		SelectionMode(gallery.SelectionMode(cfg.Gallery.SelectionMode)).
		MaxSelectionCount(cfg.Gallery.MaxSelection).
		GridColumns(cfg.Gallery.GridColumns).
		GroupByAlbum(cfg.Gallery.GroupByAlbum).
		DefaultOpenAlbum(cfg.Gallery.DefaultOpenAlbum)
	if len(cfg.Cloud.Providers) > 0 {
		builder.EnableCloud(cfg.Cloud.Providers...)
	}
	galleryCfg := builder.Build()

	callbacks := gallery.Callbacks{
		OnMediaSelected: func(items []media.Item) {
			log.Printf("Selection confirmed: %d item(s)", len(items))
		},
		OnMediaClicked: func(item media.Item) {
			log.Printf("Media clicked: %s", item.ID)
		},
		OnBackPressed: func() {
			log.Println("Back pressed at top level")
		},
	}

	controller := gallery.NewController(repo, galleryCfg, callbacks)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	controller.Start(ctx)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "GalleryKit",
		ServerHeader: "GalleryKit",
		ErrorHandler: customErrorHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CORSOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		if !repo.HasPermission() {
			return c.Status(503).JSON(fiber.Map{
				"status": "unhealthy",
				"error":  "Media sources unavailable",
			})
		}
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": cfg.App.Version,
			"uptime":  time.Since(startTime).String(),
		})
	})

	handler := gallery.NewHandler(controller, repo, galleryCfg)
	handler.RegisterRoutes(app)

	// Start server with graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%s", cfg.App.Port)
		log.Printf("Server starting on %s", addr)
		log.Printf("Environment: %s", cfg.App.Env)

		if err := app.Listen(addr); err != nil {
			log.Fatal("Server failed to start:", err)
		}
	}()

	<-ctx.Done()

	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}
	log.Println("Server stopped")
}

var startTime = time.Now()

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	if os.Getenv("APP_ENV") != "production" {
		log.Printf("Error: %v", err)
	}

	return c.Status(code).JSON(fiber.Map{
		"error": message,
		"code":  code,
	})
}
