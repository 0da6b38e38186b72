package main

import (
	"context"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	jww "github.com/spf13/jwalterweatherman"

	"github.com/campusgigs/campusgigs-backend/internal/assistant"
	"github.com/campusgigs/campusgigs-backend/internal/auth"
	"github.com/campusgigs/campusgigs-backend/internal/config"
	"github.com/campusgigs/campusgigs-backend/internal/database"
	"github.com/campusgigs/campusgigs-backend/internal/handlers"
	"github.com/campusgigs/campusgigs-backend/internal/middleware"
	"github.com/campusgigs/campusgigs-backend/internal/models"
	"github.com/campusgigs/campusgigs-backend/internal/services"
	"github.com/campusgigs/campusgigs-backend/internal/ws"
)

func main() {
	jww.SetStdoutThreshold(jww.LevelInfo)

	// A .env file is optional; real deployments set the environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		jww.WARN.Printf("could not load .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		jww.FATAL.Fatalf("configuration error: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		jww.FATAL.Fatalf("database error: %v", err)
	}

	// Redis backs the chat rate limiter; without it the limiter fails open.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}
	limiter := middleware.NewRedisLimiter(redisClient)

	tokens := auth.NewTokenProvider(cfg.JWTSecret, cfg.JWTTTL)

	applicationService := services.NewApplicationService(db)
	chatService := services.NewChatService(db)
	jobService := services.NewJobService(db)
	directoryService := services.NewDirectoryService(db)

	chatAssistant, err := assistant.New(context.Background(), cfg.GoogleAIKey, cfg.AssistantModel)
	if err != nil {
		jww.FATAL.Fatalf("assistant error: %v", err)
	}

	hub := ws.NewHub()

	// When the assistant is enabled, it exists as a regular employer-side
	// user: seekers open a conversation with it and the responder answers
	// messages addressed to it.
	var responder *ws.AssistantResponder
	if chatAssistant != nil {
		assistantUser, err := directoryService.EnsureUser(context.Background(),
			assistant.UserEmail, assistant.UserName, models.RoleEmployer)
		if err != nil {
			jww.FATAL.Fatalf("assistant user error: %v", err)
		}
		responder = ws.NewAssistantResponder(hub, chatService, chatAssistant,
			auth.Identity{UserID: assistantUser.ID, Role: assistantUser.Role})
	}

	authHandler := handlers.NewAuthHandler(directoryService, tokens)
	applicationHandler := handlers.NewApplicationHandler(applicationService, directoryService)
	chatHandler := handlers.NewChatHandler(chatService, responder)
	jobHandler := handlers.NewJobHandler(jobService, directoryService)
	assistantHandler := handlers.NewAssistantHandler(chatAssistant)
	wsHandler := handlers.NewWSHandler(hub, chatService, responder, tokens)

	r := gin.Default()
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	api := r.Group("/api/v1")
	{
		api.GET("/health", handlers.HealthCheck)
		api.POST("/auth/token", authHandler.Token)
		api.GET("/job-posts", jobHandler.ListJobPosts)
		api.GET("/job-posts/:id", jobHandler.GetJobPost)

		authed := api.Group("")
		authed.Use(auth.Middleware(tokens))
		{
			authed.PUT("/profile", jobHandler.UpsertProfile)
			authed.POST("/companies", jobHandler.CreateCompany)
			authed.POST("/job-posts", jobHandler.CreateJobPost)
			authed.GET("/job-posts/:id/applications", applicationHandler.ListByJobPost)

			authed.POST("/applications", applicationHandler.Apply)
			authed.GET("/applications", applicationHandler.ListMine)
			authed.GET("/applications/:id", applicationHandler.Get)
			authed.GET("/applications/:id/history", applicationHandler.History)
			authed.PATCH("/applications/:id/status", applicationHandler.UpdateStatus)
			authed.POST("/applications/:id/withdraw", applicationHandler.Withdraw)

			authed.POST("/conversations", chatHandler.OpenConversation)
			authed.GET("/conversations", chatHandler.List)
			authed.GET("/conversations/:id/messages", chatHandler.Messages)
			authed.POST("/conversations/:id/read", chatHandler.MarkAsRead)
			authed.POST("/messages",
				middleware.RateLimit(limiter, "chat_send", cfg.ChatRateLimit, cfg.ChatRateWindow),
				chatHandler.Send)

			authed.POST("/assistant/ask", assistantHandler.Ask)
		}

		// Websocket auth happens inside the handler (token in query).
		api.GET("/ws", wsHandler.Connect)
	}

	jww.INFO.Printf("server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		jww.FATAL.Fatalf("server failed: %v", err)
	}
}
