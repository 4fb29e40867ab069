package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/guardianplus/backend/config"
	"github.com/guardianplus/backend/internal/auth"
	"github.com/guardianplus/backend/internal/cache"
	"github.com/guardianplus/backend/internal/classifier"
	"github.com/guardianplus/backend/internal/database"
	"github.com/guardianplus/backend/internal/guardian"
	"github.com/guardianplus/backend/internal/handlers"
	"github.com/guardianplus/backend/internal/middleware"
	"github.com/guardianplus/backend/internal/moderator"
	"github.com/guardianplus/backend/internal/repository"
	"github.com/guardianplus/backend/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.NewPostgresDB(cfg.GetDSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	log.Println("Running database migrations...")
	if err := database.RunMigrations(db.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations completed successfully")

	// Connect to Redis
	redis, err := cache.NewRedisClient(cfg.GetRedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	// Initialize services
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpiryHours)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	chRepo := repository.NewChannelRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	modRepo := repository.NewModerationRepository(db)

	// Guardian pipeline
	policyStore, err := guardian.NewPolicyStore(guardian.Policy{
		Enabled:                cfg.Moderation.Enabled,
		ToxicityThreshold:      cfg.Moderation.ToxicityThreshold,
		SpamThreshold:          cfg.Moderation.SpamThreshold,
		AutoRestrictViolations: cfg.Moderation.AutoRestrictViolations,
		RestrictionSeconds:     cfg.Moderation.RestrictionSeconds,
	})
	if err != nil {
		log.Fatalf("Invalid moderation policy: %v", err)
	}

	transport := moderator.NewTransport(redis, msgRepo)
	restrictor := moderator.NewRestrictor(redis, modRepo)
	audit := moderator.NewAuditLogger(modRepo, transport, policyStore)
	words := moderator.NewWordList(modRepo)

	tox := classifier.New(cfg.Classifier.BaseURL, cfg.Classifier.APIKey, cfg.Classifier.Model, cfg.Classifier.Timeout)
	mutes := guardian.NewMuteScheduler(restrictor, audit)
	engine := guardian.NewEngine(policyStore, guardian.NewSpamTracker(), guardian.NewLedger(), mutes,
		tox, transport, audit, words)

	// Ensure the bot system user exists
	if _, err := userRepo.EnsureSystemUser("guardian-bot@guardianplus.local", cfg.Moderation.BotDisplayName); err != nil {
		log.Printf("Warning: failed to ensure bot user: %v", err)
	}

	// Start moderation bot
	bot := moderator.NewBot(redis, engine, chRepo, cfg.Moderation.BotDisplayName)
	go bot.Run()

	// Initialize WebSocket hub
	hub := websocket.NewHub(redis, chRepo)
	go hub.Run()
	wsHandler := websocket.NewHandler(hub, jwtService, msgRepo, chRepo, modRepo, redis, cfg.CORS.AllowedOrigins)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userRepo, jwtService)
	msgHandler := handlers.NewMessageHandler(msgRepo, chRepo, modRepo, redis)
	channelHandler := handlers.NewChannelHandler(chRepo, userRepo, modRepo, bot, transport)
	moderationHandler := handlers.NewModerationHandler(policyStore, engine, modRepo)

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter(cfg.API.RateLimitMessagesPerSec)
	rateLimiter.Cleanup()

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Middleware
	router.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Public routes
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	// WebSocket endpoint
	router.GET("/ws", wsHandler.HandleWebSocket)

	// Protected routes
	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(jwtService))
	{
		// User routes
		api.GET("/me", authHandler.GetMe)
		api.GET("/online-users", wsHandler.GetOnlineUsers)

		// Channel routes
		api.POST("/channels", channelHandler.CreateChannel)
		api.GET("/channels/:id", channelHandler.GetChannel)
		api.POST("/channels/:id/join", channelHandler.JoinChannel)
		api.DELETE("/channels/:id/leave", channelHandler.LeaveChannel)
		api.GET("/channels/:id/banned-words", channelHandler.GetBannedWords)

		// Message routes
		api.GET("/messages", msgHandler.GetMessages)
		api.POST("/messages", middleware.RateLimitMiddleware(rateLimiter), msgHandler.SendMessage)
	}

	// Administrative moderation surface
	admin := router.Group("/api/v1/moderation")
	admin.Use(middleware.AuthMiddleware(jwtService), middleware.AdminMiddleware())
	{
		admin.GET("/config", moderationHandler.GetConfig)
		admin.PUT("/config", moderationHandler.UpdateConfig)
		admin.POST("/toggle", moderationHandler.Toggle)

		admin.GET("/violations", moderationHandler.GetViolations)
		admin.GET("/violations/:user_id", moderationHandler.GetUserViolations)
		admin.DELETE("/violations/:user_id", moderationHandler.ResetUserViolations)
		admin.DELETE("/restrictions/:user_id", moderationHandler.ClearRestriction)
		admin.GET("/logs", moderationHandler.GetLogs)

		admin.POST("/channels/:id/banned-words", channelHandler.AddBannedWord)
		admin.DELETE("/channels/:id/banned-words/:word", channelHandler.RemoveBannedWord)
	}

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Starting Guardian server on %s (env: %s)", addr, cfg.Server.Env)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
