package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"
	"github.com/vibechat/vibechat-backend/internal/cache"
	"github.com/vibechat/vibechat-backend/internal/feed"
	"github.com/vibechat/vibechat-backend/internal/handlers"
	"github.com/vibechat/vibechat-backend/internal/middleware"
	"github.com/vibechat/vibechat-backend/internal/repository"
	"github.com/vibechat/vibechat-backend/internal/service"
	"github.com/vibechat/vibechat-backend/internal/storage"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	if os.Getenv("JWT_SECRET") == "" {
		log.Fatal("JWT_SECRET is required")
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName: "Vibechat Backend",
		// Support attachment uploads up to 5MB + overhead.
		BodyLimit: 8 * 1024 * 1024, // 8MB
	})

	// Middleware
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     os.Getenv("ALLOWED_ORIGINS"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	// Initialize database connection
	db, err := repository.InitDB()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize Redis cache
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if parsedDB, err := strconv.Atoi(dbStr); err == nil {
			redisDB = parsedDB
		}
	}

	redisCache := cache.NewRedisCache(redisAddr, redisPassword, redisDB)
	if err := redisCache.Ping(); err != nil {
		log.Printf("WARNING: Redis connection failed: %v. Running without cache.", err)
		redisCache = nil
	} else {
		log.Println("Redis cache connected successfully")
	}
	feedCache := cache.NewFeedCache(redisCache)

	// Initialize repositories
	messageRepo := repository.NewMessageRepository(db)
	roomRepo := repository.NewRoomRepository(db)

	// The feed observes every log change and fans fresh windows out to
	// subscribers; services report their mutations to it.
	messageFeed := feed.New(messageRepo, feedCache)

	// Initialize S3/MinIO storage (best-effort; feature endpoints return 503 if missing)
	var s3Store *storage.S3Storage
	if cfg, err := storage.LoadS3ConfigFromEnv(); err != nil {
		log.Printf("WARNING: S3 storage not configured: %v", err)
	} else if st, err := storage.NewS3Storage(cfg); err != nil {
		log.Printf("WARNING: Failed to initialize S3 storage: %v", err)
	} else {
		s3Store = st
		log.Printf("S3 storage initialized successfully (bucket=%s)", cfg.Bucket)
	}

	// Initialize services
	messageService := service.NewMessageService(messageRepo, messageFeed)
	likeService := service.NewLikeService(messageRepo, messageFeed)
	adminService := service.NewAdminService(roomRepo)
	roomService := service.NewRoomService(roomRepo)
	var objects service.ObjectRemover
	if s3Store != nil {
		objects = s3Store
	}
	deletionService := service.NewDeletionService(messageRepo, objects, messageFeed)

	// Initialize handlers
	messageHandler := handlers.NewMessageHandler(messageService, likeService, deletionService, messageFeed)
	roomHandler := handlers.NewRoomHandler(roomService, adminService)
	mediaHandler := handlers.NewMediaHandler(s3Store)
	wsHandler := handlers.NewWebSocketHandler(messageFeed)

	// Protected routes
	api := app.Group("/api", middleware.AuthRequired())
	api.Get("/rooms/:id", roomHandler.GetRoom)
	api.Post("/rooms/:id/admins/:user_id", roomHandler.ToggleAdmin)
	api.Get("/rooms/:id/messages", messageHandler.GetWindow)
	api.Post("/rooms/:id/messages", messageHandler.SendMessage)
	api.Delete("/rooms/:room_id/messages/:id", messageHandler.DeleteMessage)
	api.Post("/messages/:id/like", messageHandler.ToggleLike)
	api.Post(
		"/rooms/:id/attachments",
		limiter.New(limiter.Config{
			Max:        30,
			Expiration: time.Minute,
		}),
		mediaHandler.UploadAttachment,
	)
	api.Get("/media/*", mediaHandler.GetAttachment)

	// WebSocket route (websocket upgrade needs special handling)
	app.Use(
		"/ws",
		middleware.AuthRequired(),
		func(c *fiber.Ctx) error {
			// Upgrade to WebSocket
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		},
	)
	app.Get("/ws", websocket.New(wsHandler.HandleWebSocket))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "Vibechat is running",
		})
	})

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s...", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
