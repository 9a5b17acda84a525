package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yeti47/annotator/server/annotation-server/handlers"
	"github.com/yeti47/annotator/server/annotation-server/middleware"
	"github.com/yeti47/annotator/server/core/annotation"
	"github.com/yeti47/annotator/server/core/ccc/db"
	"github.com/yeti47/annotator/server/core/ccc/logging"
	"github.com/yeti47/annotator/server/core/config"
	"github.com/yeti47/annotator/server/core/detection"
	"github.com/yeti47/annotator/server/core/metrics"
	"github.com/yeti47/annotator/server/core/videos"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON configuration file")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		log.Fatalf("Invalid environment override: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logging.CreateLogger(logging.LogLevel(cfg.LogLevel), cfg.LogPath, "annotation-server")
	logger.Info("Starting annotation server", "port", cfg.ServerPort)

	workspace, err := videos.NewWorkspace(cfg.UploadsDir, cfg.OutputsDir)
	if err != nil {
		log.Fatalf("Failed to prepare directories: %v", err)
	}
	if removed, err := workspace.ClearUploads(); err != nil {
		logger.Warn("Failed to clear leftover uploads", "error", err)
	} else if removed > 0 {
		logger.Info("Removed leftover uploads", "count", removed)
	}

	database, err := db.OpenSQLite(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	catalog, err := videos.NewSQLiteCatalog(database)
	if err != nil {
		log.Fatalf("Failed to create output catalog: %v", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewPrometheusRecorder(registry)

	// A missing model leaves the server up in degraded mode
	var pipeline videos.FramePipeline
	detector, err := detection.LoadYOLODetector(logger, cfg.Detection)
	if err != nil {
		logger.Error("Failed to load detection model, uploads will be rejected", "error", err, "path", cfg.Detection.ModelPath)
	} else {
		defer detector.Close()
		pipeline = annotation.NewPipeline(logger, detector)
	}

	codec := videos.CodecFor(videos.CurrentHostClass())
	if cfg.CodecOverride != "" {
		codec = videos.CodecTag(cfg.CodecOverride)
	}
	if _, err := videos.FourCC(codec); err != nil {
		log.Fatalf("Invalid output codec: %v", err)
	}
	logger.Info("Output codec selected", "codec", string(codec), "host", videos.CurrentHostClass().String())

	encoders := videos.NewFFmpegEncoderProvider(logger)

	var transcoder videos.OutputTranscoder
	if cfg.WebCompatible.Enabled {
		transcoder = videos.NewFFmpegTranscoder(logger, encoders, cfg.WebCompatible.VideoCodec, cfg.WebCompatible.VideoBitrate)
	}

	service := videos.NewAnnotationService(logger, workspace, pipeline, catalog, transcoder, recorder, videos.ServiceOptions{
		Codec:        codec,
		SniffUploads: cfg.SniffUploads,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper := videos.NewRetentionSweeper(logger, catalog, workspace, recorder, time.Duration(cfg.Retention.MaxAge), time.Duration(cfg.Retention.SweepInterval))
	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		sweeper.Run(ctx)
	}()

	readinessMiddleware := middleware.NewReadinessMiddleware(logger, service)
	videoHandler := handlers.NewVideoHandler(logger, service, cfg.OutputDelivery)
	outputHandler := handlers.NewOutputHandler(logger, workspace, catalog, cfg.OutputDelivery)
	diagnosticsHandler := handlers.NewDiagnosticsHandler(service, encoders)

	router := initializeGin(cfg)
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	setupRoutes(router, readinessMiddleware, videoHandler, outputHandler, diagnosticsHandler, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// no write timeout: annotating a long video can take minutes
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	<-sweeperDone

	logger.Info("Server stopped")
}

func corsConfig(origins []string) cors.Config {
	return cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		// browsers ignore a "*" header wildcard on credentialed requests, so headers are listed
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept", "Authorization", "Range", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Disposition", "Content-Length", "Content-Range", "ETag", "X-Output-Filename", "X-Original-Filename", "X-Frame-Count", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

// setupRoutes configures the HTTP routes
func setupRoutes(router *gin.Engine, readiness *middleware.ReadinessMiddleware, videoHandler *handlers.VideoHandler, outputHandler *handlers.OutputHandler, diagnosticsHandler *handlers.DiagnosticsHandler, metricsHandler http.Handler) {
	router.POST("/upload_video/", readiness.RequireModel(), videoHandler.UploadVideo)

	router.GET("/outputs/:filename", outputHandler.GetOutput)
	router.GET("/outputs/:filename/thumbnail", outputHandler.GetThumbnail)

	router.GET("/health", diagnosticsHandler.Health)
	router.GET("/check_codecs", diagnosticsHandler.CheckCodecs)
	router.GET("/metrics", gin.WrapH(metricsHandler))
}
