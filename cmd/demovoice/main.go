package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"demovoice-server/pkg/config"
	http_server "demovoice-server/pkg/http"
	"demovoice-server/pkg/messaging"
	"demovoice-server/pkg/metrics"
	"demovoice-server/pkg/narration"
	"demovoice-server/pkg/pipeline"
	"demovoice-server/pkg/speech"
)

var (
	logger     = logrus.New()
	appConfig  *config.Config
	amqpClient *messaging.AMQPClient
	httpServer *http_server.Server
	wsHub      *http_server.ProgressHub

	// Context for graceful shutdown
	rootCtx    context.Context
	rootCancel context.CancelFunc
)

func main() {
	// Basic logger setup, refined once the config is loaded
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	logger.SetOutput(os.Stdout)

	rootCtx, rootCancel = context.WithCancel(context.Background())
	defer rootCancel()

	if err := initialize(); err != nil {
		logger.WithError(err).Fatal("Failed to initialize application")
	}

	httpServer.Start()
	logger.Info("HTTP server started")

	// Graceful shutdown handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logger.WithField("signal", sig.String()).Info("Received shutdown signal, cleaning up...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	// Cancel the root context to signal shutdown to all goroutines
	rootCancel()

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Error shutting down HTTP server")
		} else {
			logger.Info("HTTP server shut down successfully")
		}
	}

	if amqpClient != nil {
		amqpClient.Disconnect()
	}

	logger.Info("Shutdown complete")
}

func initialize() error {
	cfg, err := config.Load(logger)
	if err != nil {
		return err
	}
	appConfig = cfg

	setupLogging(cfg.Logging)

	metrics.StartMetrics(logger, cfg.HTTP.EnableMetrics)

	// Script generation
	textGen := narration.NewGeminiGenerator(logger, cfg.Generation.APIKey, cfg.Generation.Model, cfg.Generation.Timeout)
	generator := narration.NewGenerator(logger, textGen)

	// Speech synthesis
	speechClient := speech.NewClient(logger, cfg.Speech)
	synthesizer := speech.NewSynthesizer(logger, speechClient, cfg.Speech)

	// Optional AMQP result forwarding
	var publisher pipeline.ResultPublisher
	if cfg.Messaging.Enabled() {
		amqpClient = messaging.NewAMQPClient(logger, messaging.AMQPConfig{
			URL:       cfg.Messaging.URL,
			QueueName: cfg.Messaging.QueueName,
		})
		if err := amqpClient.Connect(); err != nil {
			logger.WithError(err).Warn("AMQP connection failed, continuing without result forwarding")
		}
		publisher = amqpClient
	} else {
		logger.Info("AMQP result forwarding disabled")
	}

	proc := pipeline.New(logger, generator, synthesizer, publisher, cfg.Recording.OutputDir, cfg.Speech.VoiceModel)

	wsHub = http_server.NewProgressHub(logger)
	go wsHub.Run(rootCtx)
	proc.SetNotifier(wsHub)

	httpServer = http_server.NewServer(logger, &http_server.Config{
		Port:          cfg.HTTP.Port,
		EnableMetrics: cfg.HTTP.EnableMetrics,
		ReadTimeout:   cfg.HTTP.ReadTimeout,
		WriteTimeout:  cfg.HTTP.WriteTimeout,
	}, proc, wsHub)

	logger.WithFields(logrus.Fields{
		"port":       cfg.HTTP.Port,
		"model":      cfg.Generation.Model,
		"voice":      cfg.Speech.VoiceModel,
		"output_dir": cfg.Recording.OutputDir,
	}).Info("Application initialized")

	return nil
}

func setupLogging(cfg config.LoggingConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.WithField("level", cfg.Level).Warn("Invalid log level, defaulting to info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
}
