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
	"github.com/sethshivam11/social-media-backend/internal/cache"
	"github.com/sethshivam11/social-media-backend/internal/events"
	"github.com/sethshivam11/social-media-backend/internal/handlers"
	"github.com/sethshivam11/social-media-backend/internal/httpx"
	"github.com/sethshivam11/social-media-backend/internal/middleware"
	"github.com/sethshivam11/social-media-backend/internal/push"
	"github.com/sethshivam11/social-media-backend/internal/repository"
	"github.com/sethshivam11/social-media-backend/internal/service"
	"github.com/sethshivam11/social-media-backend/internal/storage"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName: "Social Media Backend",
		// Support message attachments up to 25MB + overhead.
		BodyLimit: 32 * 1024 * 1024, // 32MB
	})

	// Middleware
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     os.Getenv("ALLOWED_ORIGINS"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-SM-CSRF",
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

	messageCache := cache.NewMessageCache(redisCache)
	presenceCache := cache.NewPresenceCache(redisCache)

	// Initialize repositories
	chatRepo := repository.NewChatRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	preferenceRepo := repository.NewPreferenceRepository(db)

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
	var objectRemover service.ObjectRemover
	if s3Store != nil {
		objectRemover = s3Store
	}

	// Initialize external push delivery (best-effort)
	var pushSender push.Sender
	if cfg, err := push.LoadConfigFromEnv(); err != nil {
		log.Printf("WARNING: push delivery not configured: %v", err)
	} else {
		pushSender = push.NewHTTPSender(cfg)
		log.Println("Push delivery configured")
	}

	// Initialize Kafka event publisher (best-effort)
	var publisher *events.Publisher
	if cfg, err := events.LoadConfigFromEnv(); err != nil {
		log.Printf("WARNING: event publisher not configured: %v", err)
	} else {
		publisher = events.NewPublisher(cfg)
		defer publisher.Close()
		log.Printf("Event publisher configured (topic=%s)", cfg.Topic)
	}

	// Initialize services
	notifyService := service.NewNotifyService(notificationRepo, preferenceRepo, nil, pushSender, publisher)
	chatService := service.NewChatService(chatRepo, messageRepo, notifyService, objectRemover)
	messageService := service.NewMessageService(messageRepo, chatRepo, notifyService, objectRemover, messageCache)

	// Initialize handlers; the hub doubles as the fan-out's live gateway.
	wsHandler := handlers.NewWebSocketHandler(chatService, presenceCache)
	notifyService.SetGateway(wsHandler.GetHub())

	chatHandler := handlers.NewChatHandler(chatService, s3Store)
	messageHandler := handlers.NewMessageHandler(messageService, s3Store)
	notificationHandler := handlers.NewNotificationHandler(notifyService)
	mediaHandler := handlers.NewMediaHandler(s3Store, chatService)

	api := app.Group("/api", middleware.OriginAllowed())

	// Protected routes
	protected := api.Group("/", middleware.AuthRequired(), middleware.CSRFRequired())

	// Chat routes
	protected.Post("/chats", chatHandler.CreateDirectChat)
	protected.Post("/chats/group", chatHandler.CreateGroupChat)
	protected.Get("/chats", chatHandler.GetMyChats)
	protected.Get("/chats/:id", chatHandler.GetChat)
	protected.Put("/chats/:id", chatHandler.UpdateChat)
	protected.Delete("/chats/:id", chatHandler.DeleteChat)
	protected.Post("/chats/:id/members", chatHandler.AddMembers)
	protected.Delete("/chats/:id/members", chatHandler.RemoveMembers)
	protected.Post("/chats/:id/leave", chatHandler.LeaveChat)
	protected.Post("/chats/:id/admins/:userID", chatHandler.PromoteAdmin)
	protected.Delete("/chats/:id/admins/:userID", chatHandler.DemoteAdmin)

	// Message routes
	protected.Get("/chats/:id/messages", messageHandler.GetMessages)
	protected.Post(
		"/chats/:id/messages",
		limiter.New(limiter.Config{
			Max:        60,
			Expiration: time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				if uid, err := httpx.LocalUint(c, "userID"); err == nil {
					return "send:" + strconv.FormatUint(uint64(uid), 10)
				}
				return c.IP()
			},
		}),
		messageHandler.SendMessage,
	)
	protected.Put("/messages/:id", messageHandler.EditMessage)
	protected.Delete("/messages/:id", messageHandler.DeleteMessage)
	protected.Put("/messages/:id/reactions", messageHandler.React)
	protected.Delete("/messages/:id/reactions", messageHandler.Unreact)
	protected.Post("/posts/:id/share", messageHandler.SharePost)

	// Notification routes
	protected.Get("/notifications", notificationHandler.GetNotifications)
	protected.Post("/notifications/read", notificationHandler.MarkRead)
	protected.Get("/notifications/preferences", notificationHandler.GetPreferences)
	protected.Put("/notifications/preferences", notificationHandler.UpdatePreferences)
	protected.Post("/notifications/tokens", notificationHandler.RegisterToken)
	protected.Delete("/notifications/tokens", notificationHandler.UnregisterToken)

	// Media routes
	protected.Get("/media/*", mediaHandler.GetMedia)

	// WebSocket route (websocket upgrade needs special handling)
	app.Use(
		"/ws",
		middleware.OriginAllowed(),
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
			"message": "Social media backend is running",
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
