package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sonna-ai/sonna/internal/behavior"
	"github.com/sonna-ai/sonna/internal/config"
	"github.com/sonna-ai/sonna/internal/database"
	"github.com/sonna-ai/sonna/internal/logger"
	"github.com/sonna-ai/sonna/internal/queue"
	"github.com/sonna-ai/sonna/internal/workers"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
	)

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database")

	bus, err := connectBus(cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries", zap.Error(err))
	}
	defer func() {
		if err := bus.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_rabbitmq")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Behavior learning: consume lifecycle events into per-user stats
	statsRepo := database.NewBehaviorStatsRepository(db)
	adapter := behavior.NewAdapter(statsRepo)
	consumer := behavior.NewConsumer(bus, adapter, cfg.RabbitMQPrefetch, zapLogger)
	go func() {
		if err := consumer.Run(ctx); err != nil && err != context.Canceled {
			zapLogger.Error("behavior_consumer_stopped_with_error", zap.Error(err))
		}
	}()

	// DLQ garbage collection: hourly sweep, 24 hour retention
	dlqGC := queue.NewGarbageCollector(bus, 1*time.Hour, 24*time.Hour, zapLogger)
	go func() {
		if err := dlqGC.Start(ctx); err != nil && err != context.Canceled {
			zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
		}
	}()

	// Retention: drop terminal reminders after 30 days
	reminderRepo := database.NewReminderRepository(db)
	janitor := workers.NewJanitor(reminderRepo, workers.DefaultSweepInterval, workers.DefaultRetention, zapLogger)
	go func() {
		if err := janitor.Start(ctx); err != nil && err != context.Canceled {
			zapLogger.Error("retention_janitor_stopped_with_error", zap.Error(err))
		}
	}()

	zapLogger.Info("worker_running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("worker_shutting_down")
	cancel()

	// Give in-flight handlers a moment to ack
	time.Sleep(2 * time.Second)
	zapLogger.Info("worker_exited")
}

// connectBus dials RabbitMQ with exponential backoff
func connectBus(amqpURL string, zapLogger *zap.Logger) (*queue.RabbitMQBus, error) {
	const maxRetries = 10
	const initialDelay = 2 * time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		bus, err := queue.NewRabbitMQBus(amqpURL)
		if err == nil {
			return bus, nil
		}

		lastErr = err
		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}
	return nil, lastErr
}
