package app

import (
	"context"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"tree-backend/internal/handlers"
	"tree-backend/internal/services"
	"tree-backend/internal/shortid"
	"tree-backend/internal/store"
	"tree-backend/internal/upload"
	"tree-backend/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// New builds the Fiber app with all routes wired to the given service.
// Separate from Run so tests can drive it with app.Test.
func New(svc *services.TreeService, uploadDir string) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit: 50 * 1024 * 1024,
	})

	// Middleware
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	// Uploaded photos are served as-is; everything else under / is the site.
	app.Static("/uploads", uploadDir)
	app.Static("/", utils.GetEnv("PUBLIC_DIR", "./public"))

	// Routes
	api := app.Group("/api")
	api.Get("/profile/:username", handlers.GetProfileHandler(svc))
	api.Post("/profile", handlers.UpdateProfileHandler(svc))
	api.Post("/profile/delete-photo", handlers.DeletePhotoHandler(svc))

	// Short link resolution
	app.Get("/u/:shortId", handlers.ResolveShortLinkHandler(svc))

	// Health Check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	return app
}

func Run() {
	// Load Env
	if err := utils.LoadEnv(); err != nil {
		log.Println("No .env file, using process environment")
	}

	// Ensure upload dir exists
	uploadDir := utils.GetEnv("UPLOAD_DIR", "uploads")
	if err := os.MkdirAll(filepath.Join(uploadDir, "photos"), 0755); err != nil {
		log.Printf("Warning: failed to create upload dir: %v", err)
	}

	// Store backend: Postgres when DATABASE_URL is set, JSON file otherwise.
	var st store.Store
	if connString := utils.GetEnv("DATABASE_URL", ""); connString != "" {
		pg, err := store.NewPostgres(context.Background(), connString)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pg.Close()
		log.Println("Using PostgreSQL store")
		st = pg
	} else {
		st = store.NewFile(utils.GetEnv("DB_FILE", "db.json"))
	}

	saver := upload.NewSaver(uploadDir, utils.GetEnvInt("THUMB_MAX", 256))
	ids := shortid.New(rand.NewSource(time.Now().UnixNano()))
	svc := services.NewTreeService(st, ids, saver)

	app := New(svc, uploadDir)

	// Start Server
	port := utils.GetEnv("PORT", "3000")
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Panic(err)
		}
	}()

	// Graceful Shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	<-c // Block until signal
	log.Println("Gracefully shutting down...")
	_ = app.Shutdown()
	log.Println("Server shutdown complete")
}
