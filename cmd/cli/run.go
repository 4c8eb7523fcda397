package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	gormtracing "gorm.io/plugin/opentelemetry/tracing"

	"wakeel/internal/config"
	"wakeel/internal/handlers"
	"wakeel/internal/metrics"
	"wakeel/internal/middleware"
	"wakeel/internal/models"
	"wakeel/internal/observability"
	"wakeel/internal/providers"
	"wakeel/internal/services"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the assistant server",
	Long:  `Run the assistant server`,
	Run:   run,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func run(cmd *cobra.Command, args []string) {
	cfg := config.Load()

	if err := config.InitLogger(cfg); err != nil {
		logrus.Fatalf("Failed to initialize logger: %v", err)
	}
	appLogger := logrus.StandardLogger()

	if shutdown, err := observability.SetupTracing(context.Background(), cfg); err == nil {
		defer func() { _ = shutdown(context.Background()) }()
	} else {
		appLogger.Warnf("init tracing: %v", err)
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		cfg.Database.Host, cfg.Database.User, cfg.Database.Password, cfg.Database.Name, cfg.Database.Port)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		appLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if cfg.Monitoring.Tracing.Enabled {
		_ = db.Use(gormtracing.NewPlugin())
	}

	if err := db.AutoMigrate(
		&models.CallSession{}, &models.Turn{}, &models.CallSummary{},
		&models.MessageRecord{}, &models.UserPolicy{},
	); err != nil {
		appLogger.Fatalf("Failed to migrate database: %v", err)
	}

	dispatcher := services.NewDispatcher(appLogger, 256)
	dispatcher.Start()

	events := services.NewEventHub()
	go events.Run()

	generator := providers.NewOpenRouterClient(cfg.AI.OpenRouter, appLogger)
	transcriber := providers.NewRestyTranscriber(cfg.Transcription, appLogger)
	synthesizer := providers.NewRestySynthesizer(cfg.Synthesis, appLogger)

	assembler := services.NewContextAssembler(db, appLogger)
	engine := services.NewReplyEngine(generator, appLogger)
	analyzer := services.NewAnalyzer(db, generator, appLogger)

	callService := services.NewCallService(db, appLogger, services.CallServiceOptions{
		Assembler:   assembler,
		Engine:      engine,
		Transcriber: transcriber,
		Synthesizer: synthesizer,
		Analyzer:    analyzer,
		Dispatcher:  dispatcher,
		Events:      events,
		Assistant:   cfg.Assistant,
		Language:    cfg.Transcription.Language,
		Voice:       cfg.Synthesis.DefaultVoice,
	})
	messageService := services.NewMessageService(db, appLogger, services.MessageServiceOptions{
		Assembler:   assembler,
		Engine:      engine,
		Transcriber: transcriber,
		Dispatcher:  dispatcher,
		Assistant:   cfg.Assistant,
		Language:    cfg.Transcription.Language,
	})
	settingsService := services.NewSettingsService(db, appLogger)
	reportService := services.NewReportService(db, appLogger)
	trainingService := services.NewTrainingService(appLogger)

	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, db, events, callService, messageService, settingsService, reportService, trainingService, appLogger)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.Infof("Starting server on %s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.Errorf("Server forced to shutdown: %v", err)
	}
	// Drain pending turn saves and summaries before exit.
	if err := dispatcher.Stop(ctx); err != nil {
		appLogger.Errorf("Dispatcher drain interrupted: %v", err)
	}

	appLogger.Info("Server exited")
}

func setupRouter(
	cfg *config.Config,
	db *gorm.DB,
	events *services.EventHub,
	callService *services.CallService,
	messageService *services.MessageService,
	settingsService *services.SettingsService,
	reportService *services.ReportService,
	trainingService *services.TrainingService,
	appLogger *logrus.Logger,
) *gin.Engine {
	router := gin.New()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddlewareWithConfig(cfg))
	router.Use(middleware.RateLimit(cfg))
	if cfg.Monitoring.Tracing.Enabled {
		router.Use(otelgin.Middleware(cfg.Monitoring.Tracing.ServiceName))
	}

	healthHandler := handlers.NewHealthHandler(db, events, appLogger)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	if cfg.Monitoring.Enabled {
		path := cfg.Monitoring.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, func(c *gin.Context) {
			c.JSON(http.StatusOK, metrics.Snapshot())
		})
	}

	api := router.Group("/api/v1")
	{
		api.GET("/ws", events.HandleWebSocket)

		callHandler := handlers.NewCallHandler(callService, appLogger)
		api.POST("/calls/handle-incoming", callHandler.HandleIncoming)
		api.POST("/calls/end-call", callHandler.EndCall)
		api.GET("/calls/summary/:call_id", callHandler.GetSummary)
		api.GET("/calls/history", callHandler.GetHistory)

		messageHandler := handlers.NewMessageHandler(messageService, appLogger)
		api.POST("/messages/handle", messageHandler.Handle)

		settingsHandler := handlers.NewSettingsHandler(settingsService, appLogger)
		api.GET("/settings/:user_id", settingsHandler.Get)
		api.POST("/settings/:user_id", settingsHandler.Replace)
		api.PATCH("/settings/:user_id", settingsHandler.Patch)

		reportHandler := handlers.NewReportHandler(reportService, appLogger)
		api.GET("/reports/daily/:user_id", reportHandler.Daily)
		api.GET("/reports/weekly/:user_id", reportHandler.Weekly)
		api.GET("/reports/stats/:user_id", reportHandler.Stats)

		trainingHandler := handlers.NewTrainingHandler(trainingService, appLogger)
		api.POST("/voice/train", trainingHandler.Train)
		api.POST("/voice/upload-sample", trainingHandler.UploadSample)
		api.GET("/voice/status/:user_id", trainingHandler.Status)
		api.GET("/voice/voices", trainingHandler.Voices)
	}

	return router
}

func corsMiddlewareWithConfig(cfg *config.Config) gin.HandlerFunc {
	allowedOrigins := "*"
	allowedMethods := "GET, POST, PATCH, DELETE, OPTIONS"
	allowedHeaders := "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization"
	if cfg != nil && cfg.Security.CORS.Enabled {
		if len(cfg.Security.CORS.AllowedOrigins) > 0 {
			allowedOrigins = strings.Join(cfg.Security.CORS.AllowedOrigins, ", ")
		}
		if len(cfg.Security.CORS.AllowedMethods) > 0 {
			allowedMethods = strings.Join(cfg.Security.CORS.AllowedMethods, ", ")
		}
		if len(cfg.Security.CORS.AllowedHeaders) > 0 {
			allowedHeaders = strings.Join(cfg.Security.CORS.AllowedHeaders, ", ")
		}
	}
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", allowedOrigins)
		c.Header("Access-Control-Allow-Methods", allowedMethods)
		c.Header("Access-Control-Allow-Headers", allowedHeaders)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
