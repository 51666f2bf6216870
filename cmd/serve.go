package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phamanhtuan-coder/homeconnect-api-ws/api"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/config"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/cache"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/database"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/messaging"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/notify"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/repository"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/service"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/telemetry"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/ws"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Serve command flags
	disableNewRelic bool
	serverPort      int
	gracefulTimeout int
	notifyWorkers   int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Starts the HomeConnect API server: device WebSocket sessions,
command dispatch, telemetry logging, alerting and statistics.

The server respects the configuration in config.yaml or specified via the --config flag.
It will gracefully shut down on receiving SIGINT or SIGTERM signals.`,
	Run: func(cmd *cobra.Command, args []string) {
		startServer()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Serve-specific flags
	serveCmd.Flags().BoolVar(&disableNewRelic, "disable-newrelic", false, "Disable New Relic monitoring")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "Server port (overrides config file)")
	serveCmd.Flags().IntVar(&gracefulTimeout, "graceful-timeout", 30, "Graceful shutdown timeout in seconds")
	serveCmd.Flags().IntVar(&notifyWorkers, "notify-workers", 4, "Notification delivery workers")
}

// startServer initializes and starts the API server
func startServer() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override config with command line flags if provided
	if serverPort > 0 {
		cfg.Server.Port = serverPort
	}

	log.WithFields(logrus.Fields{
		"port":             cfg.Server.Port,
		"newrelic_enabled": cfg.NewRelic.Enabled && !disableNewRelic,
	}).Info("Initializing service components...")

	// Initialize database with retry logic
	var db database.DB
	maxRetries := 5
	retryInterval := time.Second

	for i := 0; i < maxRetries; i++ {
		log.WithField("attempt", i+1).Info("Connecting to database...")
		db, err = database.Connect(cfg.Database)
		if err == nil {
			break
		}

		log.WithFields(logrus.Fields{
			"error":         err.Error(),
			"retry_attempt": i + 1,
			"max_retries":   maxRetries,
		}).Error("Failed to connect to database, retrying...")

		if i < maxRetries-1 {
			time.Sleep(retryInterval)
			// Exponential backoff
			retryInterval *= 2
		}
	}

	if err != nil {
		log.Fatalf("Failed to connect to database after %d attempts: %v", maxRetries, err)
	}

	log.Info("Successfully connected to database")
	defer func() {
		log.Info("Closing database connection...")
		if err := db.Close(); err != nil {
			log.WithField("error", err.Error()).Error("Error closing database connection")
		}
	}()

	// Initialize Redis cache client
	log.Info("Connecting to Redis...")
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() {
		log.Info("Closing Redis connection...")
		if err := redisClient.Close(); err != nil {
			log.WithField("error", err.Error()).Error("Error closing Redis connection")
		}
	}()

	// Initialize messaging client
	log.Info("Connecting to message broker...")
	msgClient, err := messaging.NewServiceBusClient(cfg.ServiceBus, "homeconnect-notifications")
	if err != nil {
		log.Fatalf("Failed to connect to message broker: %v", err)
	}
	defer func() {
		log.Info("Closing messaging connection...")
		if err := msgClient.Close(); err != nil {
			log.WithField("error", err.Error()).Error("Error closing messaging connection")
		}
	}()

	// Initialize New Relic if enabled
	var nrApp *newrelic.Application
	if !disableNewRelic {
		log.Info("Initializing New Relic monitoring...")
		nrApp, err = telemetry.InitNewRelic(cfg.NewRelic)
		if err != nil {
			log.Warnf("Failed to initialize New Relic: %v", err)
		} else if nrApp != nil {
			log.Info("New Relic monitoring initialized successfully")
		}
	}

	// Create repositories
	log.Info("Initializing repositories...")
	repo := repository.NewRepository(db)

	// Notification fan-out
	notifier := notify.NewNotifier(msgClient, log, notifyWorkers)

	// Create services
	log.Info("Initializing service layer...")
	svc, err := service.NewService(service.ServiceConfig{
		Repository: repo,
		Cache:      redisClient,
		Logger:     log,
	})
	if err != nil {
		log.Fatalf("Failed to initialize service: %v", err)
	}

	alertSvc := service.NewAlertService(repo, notifier, cfg.Alerts.GasThreshold, cfg.Alerts.TempThreshold, log)
	statsSvc := service.NewStatisticsService(repo, cfg.Power.Ratings, log)

	// WebSocket hub and session registry
	registry := ws.NewRegistry()
	hub := ws.NewHub(registry, repo, redisClient, alertSvc, log, cfg.WebSocket.OriginPatterns)

	// Create and initialize the server
	log.Info("Initializing API server...")
	server := api.NewServer(cfg, log, nrApp, svc, statsSvc, alertSvc, hub, repo)

	// Set up graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Start the server in a goroutine
	go func() {
		log.WithFields(logrus.Fields{
			"port": cfg.Server.Port,
		}).Info("Starting server...")

		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	sig := <-stop
	log.Infof("Received signal %s, shutting down gracefully...", sig.String())

	// Create a timeout context for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(gracefulTimeout)*time.Second)
	defer cancel()

	// Shutdown HTTP server first so no new sessions or requests arrive
	log.Info("Shutting down HTTP server...")
	if err := server.Shutdown(ctx); err != nil {
		log.Warnf("Server shutdown error: %v", err)
	}

	// Drain queued notifications
	notifier.Shutdown()

	log.Info("Server shutdown complete")
}
