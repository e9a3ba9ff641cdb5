package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"smartattendance/internal/attendance"
	"smartattendance/internal/auth"
	"smartattendance/internal/biometric"
	"smartattendance/internal/cloudinary"
	"smartattendance/internal/config"
	"smartattendance/internal/enrollment"
	"smartattendance/internal/faceclient"
	"smartattendance/internal/handler"
	"smartattendance/internal/httpmiddleware"
	"smartattendance/internal/logging"
	"smartattendance/internal/queue"
	"smartattendance/internal/session"
	"smartattendance/internal/store"
	"smartattendance/internal/users"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	logger := logging.New(cfg.Env, "api")

	db, err := store.NewDB(cfg.DatabaseURL)
	if db == nil {
		return err
	}
	if err != nil {
		log.Printf("warning: db not reachable: %v", err)
	}
	defer db.Close()

	if cfg.AutoMigrate {
		if err := store.Migrate(ctx, db.Client); err != nil {
			log.Printf("warning: migrations not applied: %v", err)
		}
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	hours, err := attendance.ParseOfficeHours(cfg.OfficeOpen, cfg.OfficeClose, cfg.OfficeTZ)
	if err != nil {
		return fmt.Errorf("office hours: %w", err)
	}

	q, err := queue.Open(cfg.QueueBackend, redisClient.Client, cfg.AMQPURL, cfg.QueueName)
	if err != nil {
		log.Printf("warning: enrollment queue unavailable: %v", err)
		q = nil
	}
	defer queue.Close(q)

	people := users.NewService(users.NewRepository(db.Client), logger)
	templates := biometric.NewRepository(db.Client)
	records := attendance.NewRepository(db.Client)
	face := faceclient.New(cfg.FaceServiceURL, cfg.FaceSkip)

	// With the in-memory queue there is no separate worker process.
	if q != nil && cfg.QueueBackend == "memory" {
		proc := enrollment.NewProcessor(people, face, templates, logger)
		go func() {
			if err := proc.Run(ctx, q); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("enrollment processor stopped: %v", err)
			}
		}()
	}

	var uploader handler.Uploader
	if cfg.CloudinaryEnabled() {
		uploader = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		log.Println("Cloudinary configured:", cfg.CloudinaryCloudName)
	} else {
		log.Println("Cloudinary not configured (CLOUDINARY_CLOUD_NAME / API_KEY / API_SECRET not set)")
	}

	var limiter httpmiddleware.Limiter = httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	if cfg.RateLimitStore == "redis" {
		limiter = httpmiddleware.NewRedisWindow(redisClient.Client, cfg.RateLimitPerMin)
	}

	cookies := auth.CookieOptions{SameSite: http.SameSiteLaxMode}
	if cfg.IsProduction() {
		cookies = auth.CookieOptions{Secure: true, SameSite: http.SameSiteNoneMode}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestID())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", httpmiddleware.RequestIDHeader},
		ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.Metrics())
	r.Use(httpmiddleware.RateLimit(limiter, logger))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Healthy(c.Request.Context())
		faceHealthy := face.Health(c.Request.Context()) == nil
		status, text := http.StatusOK, "ok"
		if !redisHealthy || !dbHealthy {
			status, text = http.StatusServiceUnavailable, "degraded"
		}
		c.JSON(status, gin.H{"status": text, "redis": redisHealthy, "db": dbHealthy, "face_service": faceHealthy})
	})

	handler.New(handler.Deps{
		People:     people,
		Matcher:    biometric.NewMatcher(templates, cfg.MatchThreshold, logger),
		Templates:  templates,
		Engine:     attendance.NewEngine(records, hours),
		Records:    records,
		Tokens:     auth.NewIssuer(cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL),
		Cookies:    cookies,
		Sessions:   session.NewKeys(redisClient.Client, cfg.SessionKeyTTL),
		Uploader:   uploader,
		Queue:      q,
		Production: cfg.IsProduction(),
		Log:        logger,
	}).Register(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}
