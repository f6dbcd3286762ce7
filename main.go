package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"servicematch-server/config"
	"servicematch-server/database"
	"servicematch-server/jobs"
	"servicematch-server/middleware"
	"servicematch-server/models"
	"servicematch-server/routes"
	"servicematch-server/services"
	ws "servicematch-server/websocket"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load configuration
	config.Load()

	// Initialize database (runs migrations)
	if err := database.Initialize(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}

	// Seed reference data
	SeedCategories()

	// Set Gin mode
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false

	// Security middleware stack
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.InputValidationMiddleware())
	router.Use(middleware.RateLimitMiddleware())
	router.Use(middleware.AuditLogMiddleware())

	// CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:3000", "http://localhost:8081"}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		corsConfig.AllowOrigins = append(corsConfig.AllowOrigins, origins)
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "User-Agent", "X-Device-ID", "X-Requested-With"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "ServiceMatch server is running",
			"time":    time.Now().UTC(),
		})
	})

	// Realtime hub
	hub := ws.NewHub()
	go hub.Run()

	// Service layer
	notifier := services.NewNotificationService(database.DB, hub)
	matchService := services.NewMatchService(database.DB, notifier)
	swipeService := services.NewSwipeService(database.DB, matchService)
	negotiationService := services.NewNegotiationService(database.DB, matchService, notifier)
	bookingService := services.NewBookingService(database.DB, matchService, notifier)

	// API routes
	api := router.Group("/api/v1")
	{
		// Auth routes with strict rate limiting
		authRoutes := api.Group("/auth")
		authRoutes.Use(middleware.AuthRateLimitMiddleware())
		routes.RegisterAuthRoutes(authRoutes)

		// Public browsing
		routes.RegisterCategoryRoutes(api)
		routes.RegisterListingRoutes(api)

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			routes.RegisterProfileRoutes(protected)
			routes.RegisterProviderListingRoutes(protected)
			routes.RegisterSwipeRoutes(protected, swipeService)
			routes.RegisterMatchRoutes(protected, matchService, negotiationService)
			routes.RegisterBookingRoutes(protected, bookingService)
			routes.RegisterRatingRoutes(protected)
			routes.RegisterNotificationRoutes(protected)
			routes.RegisterMediaRoutes(protected)

			// Admin surface
			adminRoutes := protected.Group("/admin")
			adminRoutes.Use(middleware.RequireRole(models.RoleAdmin))
			routes.RegisterAdminRoutes(adminRoutes)
		}

		// WebSocket endpoint authenticates via query token
		wsGroup := api.Group("")
		wsGroup.Use(middleware.WebSocketAuthMiddleware())
		routes.RegisterWebSocketRoute(wsGroup, hub, matchService)
	}

	// Background jobs
	bookingJob := jobs.NewBookingJob()
	bookingJob.Start()
	defer bookingJob.Stop()

	// Daily refresh token cleanup
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		jwtService := services.NewJWTService()
		for range ticker.C {
			if err := jwtService.CleanupExpiredTokens(); err != nil {
				log.Printf("❌ Token cleanup failed: %v", err)
			}
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := router.Run("0.0.0.0:" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
