package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/festalaurea/booking-backend/internal/config"
	"github.com/festalaurea/booking-backend/internal/database"
	"github.com/festalaurea/booking-backend/internal/handlers"
	"github.com/festalaurea/booking-backend/internal/metrics"
	"github.com/festalaurea/booking-backend/internal/middleware"
	"github.com/festalaurea/booking-backend/internal/models"
	"github.com/festalaurea/booking-backend/internal/services"
	"github.com/festalaurea/booking-backend/pkg/jwt"
	"github.com/festalaurea/booking-backend/pkg/mailer"
	"github.com/festalaurea/booking-backend/pkg/validator"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting FestaLaurea Booking Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Register Prometheus metrics
	metrics.Register()

	// Initialize repositories
	userRepository := database.NewUserRepository(db)
	venueRepository := database.NewVenueRepository(db)
	bookingRepository := database.NewBookingRepository(db)
	reviewRepository := database.NewReviewRepository(db)
	paymentEventRepository := database.NewPaymentEventRepository(db)
	analyticsRepository := database.NewAnalyticsRepository(db)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	emailValidator := validator.NewEmailValidator(cfg.Security.AllowedEmailDomains)

	var outboundMailer mailer.Mailer
	if cfg.SMTP.Mode == "production" {
		logger.Info("Initializing SMTP mailer in production mode...")
		outboundMailer = mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			FromName: cfg.SMTP.FromName,
		}, logger)
	} else {
		logger.Info("Mailer in development mode (emails will be logged, not sent)")
		outboundMailer = mailer.NewDevMailer(logger)
	}

	authService := services.NewAuthService(userRepository, venueRepository, jwtService, emailValidator, outboundMailer, cfg.Security.BcryptCost, logger)
	venueService := services.NewVenueService(venueRepository, logger)
	bookingService := services.NewBookingService(bookingRepository, venueRepository, userRepository, outboundMailer, logger)
	reviewService := services.NewReviewService(reviewRepository, venueRepository, userRepository, outboundMailer, logger)
	stripeService := services.NewStripeService(cfg.Stripe, bookingRepository, paymentEventRepository, logger)
	analyticsService := services.NewAnalyticsService(analyticsRepository, logger)
	rateLimitService := services.NewRateLimitService(db)

	// Initialize and start cron service
	cronService := services.NewCronService(bookingService, analyticsService, rateLimitService)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}
	logger.Info("✓ Cron service started - booking completion sweep enabled")

	logger.Info("Services initialized")

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, rateLimitService)
	venueHandler := handlers.NewVenueHandler(venueService)
	bookingHandler := handlers.NewBookingHandler(bookingService, cronService)
	reviewHandler := handlers.NewReviewHandler(reviewService)
	paymentHandler := handlers.NewPaymentHandler(stripeService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(requestLogger(logger))
	}
	router.Use(instrument())

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Known path with the wrong method answers 405, not 404
	router.HandleMethodNotAllowed = true
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"success": false,
			"error":   "Method not allowed",
		})
	})
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "Route not found",
		})
	})

	// Health check and metrics endpoints
	router.GET("/health", healthCheckHandler(db))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)

			protected := auth.Group("")
			protected.Use(middleware.AuthMiddleware(jwtService))
			{
				protected.POST("/logout", authHandler.Logout)
				protected.GET("/profile", authHandler.GetProfile)
				protected.PUT("/profile", authHandler.UpdateProfile)
			}
		}

		// Venue routes
		venues := v1.Group("/venues")
		{
			// Public catalogue
			venues.GET("", venueHandler.List)
			venues.GET("/:id/reviews", reviewHandler.VenueReviews)
			venues.GET("/:id/availability", bookingHandler.VenueAvailability)

			// Protected routes
			venuesProtected := venues.Group("")
			venuesProtected.Use(middleware.AuthMiddleware(jwtService))
			{
				venuesProtected.GET("/mine", venueHandler.Mine)
				venuesProtected.POST("", venueHandler.Create)
				venuesProtected.GET("/:id/reviews/eligibility", reviewHandler.Eligibility)
				venuesProtected.GET("/:id/bookings", bookingHandler.VenueBookings)

				owned := venuesProtected.Group("")
				owned.Use(middleware.RequireVenueOwnership(venueRepository))
				{
					owned.PUT("/:id", venueHandler.Update)
					owned.DELETE("/:id", venueHandler.Delete)
				}

				venuesProtected.PATCH("/:id/featured",
					middleware.RequireType(models.UserTypeAdmin), venueHandler.SetFeatured)
				venuesProtected.PATCH("/:id/active",
					middleware.RequireType(models.UserTypeAdmin), venueHandler.SetActive)
			}

			// Single venue lookup by id or slug goes last so the static
			// routes above win.
			venues.GET("/:id", venueHandler.Get)
		}

		// Booking routes (all protected)
		bookings := v1.Group("/bookings")
		bookings.Use(middleware.AuthMiddleware(jwtService))
		{
			bookings.POST("", bookingHandler.Create)
			bookings.GET("/mine", bookingHandler.Mine)
			bookings.GET("/upcoming", bookingHandler.Upcoming)
			bookings.GET("/stats", bookingHandler.OwnerStats)
			bookings.GET("/code/:code", bookingHandler.GetByCode)
			bookings.GET("/:id", bookingHandler.Get)
			bookings.PATCH("/:id/status", bookingHandler.UpdateStatus)
			bookings.POST("/:id/cancel", bookingHandler.Cancel)
			bookings.GET("/:id/payment", paymentHandler.Status)
		}

		// Review routes (all protected)
		reviews := v1.Group("/reviews")
		reviews.Use(middleware.AuthMiddleware(jwtService))
		{
			reviews.POST("", reviewHandler.Create)
			reviews.GET("/mine", reviewHandler.Mine)
			reviews.PUT("/:id", reviewHandler.Update)
			reviews.DELETE("/:id", reviewHandler.Delete)
			reviews.POST("/:id/helpful", reviewHandler.MarkHelpful)
		}

		// Payment routes
		payments := v1.Group("/payments")
		{
			// Webhook is unauthenticated: the signature check is the auth
			payments.POST("/webhook", paymentHandler.Webhook)

			paymentsProtected := payments.Group("")
			paymentsProtected.Use(middleware.AuthMiddleware(jwtService))
			{
				paymentsProtected.POST("/intent", paymentHandler.CreateIntent)
				paymentsProtected.POST("/refund", paymentHandler.Refund)
			}
		}

		// Analytics tracking (anonymous or authenticated)
		analytics := v1.Group("/analytics")
		{
			analytics.POST("/track", middleware.OptionalAuthMiddleware(jwtService), analyticsHandler.Track)
			analytics.GET("/popular-venues", analyticsHandler.PopularVenues)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(jwtService), middleware.RequireType(models.UserTypeAdmin))
		{
			admin.GET("/analytics", analyticsHandler.Stats)
			admin.GET("/jobs", bookingHandler.JobStatus)
			admin.POST("/jobs/complete-bookings", bookingHandler.RunAutoComplete)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	logger.Info("Stopping cron service...")
	cronService.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		if userCtx, exists := middleware.GetUserContext(c); exists {
			fields["user_id"] = userCtx.UserID
			fields["user_type"] = userCtx.Type
		}

		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
		} else {
			status := c.Writer.Status()
			if status >= 500 {
				entry.Error("Request completed with server error")
			} else if status >= 400 {
				entry.Warn("Request completed with client error")
			} else {
				entry.Info("Request completed successfully")
			}
		}
	}
}

// instrument records Prometheus counters and latency per route. The
// route template is used as the label, not the raw path, to keep
// cardinality bounded.
func instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveHTTP(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start).Seconds(),
		)
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		dbStatus := "healthy"
		if err := db.Ping(); err != nil {
			dbStatus = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": dbStatus,
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  dbStatus,
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
