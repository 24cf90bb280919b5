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

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"

	"github.com/sonna-ai/sonna/internal/auth"
	"github.com/sonna-ai/sonna/internal/behavior"
	"github.com/sonna-ai/sonna/internal/config"
	"github.com/sonna-ai/sonna/internal/database"
	"github.com/sonna-ai/sonna/internal/dispatch"
	"github.com/sonna-ai/sonna/internal/handlers"
	"github.com/sonna-ai/sonna/internal/logger"
	"github.com/sonna-ai/sonna/internal/middleware"
	"github.com/sonna-ai/sonna/internal/models"
	"github.com/sonna-ai/sonna/internal/notify"
	"github.com/sonna-ai/sonna/internal/queue"
	"github.com/sonna-ai/sonna/internal/scheduler"
	"github.com/sonna-ai/sonna/internal/services/intent"
	"github.com/sonna-ai/sonna/internal/telemetry"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("notify_channel", cfg.NotifyChannel),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// OpenTelemetry
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), "sonna-api", cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	// Database
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

	// Redis for rate limiting
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("invalid_redis_url", zap.Error(err))
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	// RabbitMQ for lifecycle events and push delivery. Retry with backoff to
	// ride out broker startup delays.
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

	// Repositories
	reminderRepo := database.NewReminderRepository(db)
	userRepo := database.NewUserRepository(db)
	statsRepo := database.NewBehaviorStatsRepository(db)
	policyRepo := database.NewPolicyConfigRepository(db)
	corsConfigRepo := database.NewCorsConfigRepository(db)
	ratelimitConfigRepo := database.NewRatelimitConfigRepository(db)

	policy := loadPolicy(policyRepo, cfg, zapLogger)

	// Scheduling engine
	adapter := behavior.NewAdapter(statsRepo)
	core := scheduler.New(reminderRepo, bus, adapter, scheduler.Config{
		Policy: policy,
		Logger: zapLogger,
	})

	recoverCtx, recoverCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	if err := core.Recover(recoverCtx); err != nil {
		recoverCancel()
		zapLogger.Fatal("failed_to_recover_scheduler_state", zap.Error(err))
	}
	recoverCancel()

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	go func() {
		if err := core.Run(runCtx); err != nil && err != context.Canceled {
			zapLogger.Error("scheduler_stopped_with_error", zap.Error(err))
		}
	}()

	// Dispatch workers
	notifier, err := buildNotifier(cfg)
	if err != nil {
		zapLogger.Fatal("failed_to_create_notification_gateway", zap.Error(err))
	}
	pool := dispatch.NewPool(core, notifier, policy, zapLogger)
	go func() {
		if err := pool.Run(runCtx); err != nil && err != context.Canceled {
			zapLogger.Error("dispatch_pool_stopped_with_error", zap.Error(err))
		}
	}()

	// Intent provider; the heuristic parser is the fallback when no API key
	// is configured
	provider := buildIntentProvider(cfg, zapLogger)

	// Auth
	if cfg.JWKSURL == "" || cfg.JWTIssuer == "" {
		zapLogger.Fatal("JWKS_URL_and_JWT_ISSUER_are_required")
	}
	verifier := auth.NewVerifier(auth.NewJWKSCache(cfg.JWKSURL), cfg.JWTIssuer)

	// Handlers
	healthChecker := handlers.NewHealthChecker(db, bus)
	reminderHandler := handlers.NewReminderHandler(reminderRepo, core)
	assistantHandler := handlers.NewAssistantHandler(provider, reminderRepo, core, zapLogger)

	// Router and middleware. gorilla/mux runs middleware in registration
	// order, so the outermost concerns come first.
	r := mux.NewRouter()

	if cfg.OTELEnabled {
		r.Use(otelmux.Middleware("sonna-api"))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))

	corsReloader := middleware.NewCORSReloader(corsConfigRepo, cfg.FrontendURL, zapLogger, 1*time.Minute)
	r.Use(corsReloader.Middleware())

	rateLimitReloader := middleware.NewRateLimitReloader(redisClient, ratelimitConfigRepo, "5-S", zapLogger, 1*time.Minute)
	if rateLimitReloader == nil {
		zapLogger.Fatal("failed_to_create_rate_limit_reloader")
	}
	rateLimitMW := rateLimitReloader.Middleware()

	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(middleware.DefaultRequestTimeout))
	r.Use(middleware.Recover(zapLogger))
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	// Public routes
	r.HandleFunc("/health", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/ready", healthChecker.ReadyCheck).Methods("GET")
	r.HandleFunc("/version", versionInfo).Methods("GET")

	// API v1 routes (protected)
	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	authMW := middleware.Auth(verifier, userRepo, zapLogger)

	remindersRouter := apiRouter.PathPrefix("/reminders").Subrouter()
	remindersRouter.Use(authMW)
	remindersRouter.Use(rateLimitMW)
	reminderHandler.RegisterRoutes(remindersRouter)

	assistantRouter := apiRouter.PathPrefix("/assistant").Subrouter()
	assistantRouter.Use(authMW)
	assistantRouter.Use(rateLimitMW)
	assistantHandler.RegisterRoutes(assistantRouter)

	// Preflight catch-all; CORS middleware has already set the headers
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	go corsReloader.Start(runCtx)
	go rateLimitReloader.Start(runCtx)

	// DLQ garbage collector: hourly sweep, 24 hour retention
	dlqGC := queue.NewGarbageCollector(bus, 1*time.Hour, 24*time.Hour, zapLogger)
	go func() {
		if err := dlqGC.Start(runCtx); err != nil && err != context.Canceled {
			zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	runCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
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

// loadPolicy prefers the stored policy over the environment defaults
func loadPolicy(repo *database.PolicyConfigRepository, cfg *config.Config, zapLogger *zap.Logger) models.SchedulerPolicy {
	policy := *models.DefaultSchedulerPolicy()
	policy.SnoozeDuration = cfg.SnoozeDuration
	policy.AckTimeout = cfg.AckTimeout
	policy.MaxSnoozes = cfg.MaxSnoozes
	policy.GraceWindow = cfg.GraceWindow
	policy.MaxDispatchRetries = cfg.MaxDispatchRetries
	policy.Workers = cfg.DispatchWorkers

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stored, err := repo.Get(ctx)
	if err != nil {
		zapLogger.Warn("failed_to_load_stored_policy_using_defaults", zap.Error(err))
	} else if stored != nil {
		policy = *stored
		zapLogger.Info("loaded_stored_scheduler_policy")
	}

	if err := policy.Validate(); err != nil {
		zapLogger.Fatal("invalid_scheduler_policy", zap.Error(err))
	}
	return policy
}

// buildNotifier creates the push gateway for the configured channel
func buildNotifier(cfg *config.Config) (notify.Notifier, error) {
	switch cfg.NotifyChannel {
	case "http":
		return notify.NewHTTPGateway(notify.HTTPGatewayConfig{
			GatewayURL:   cfg.PushGatewayURL,
			TokenURL:     cfg.PushTokenURL,
			ClientID:     cfg.PushClientID,
			ClientSecret: cfg.PushClientSecret,
		}), nil
	case "amqp":
		return notify.NewAMQPGateway(cfg.RabbitMQURL)
	}
	return nil, fmt.Errorf("unknown notify channel %q", cfg.NotifyChannel)
}

// buildIntentProvider creates the LLM-backed intent parser, falling back to
// the heuristic parser when no API key is configured
func buildIntentProvider(cfg *config.Config, zapLogger *zap.Logger) intent.Provider {
	if cfg.OpenAIKey == "" {
		zapLogger.Info("no_openai_key_using_heuristic_intent_parser")
		return intent.NewHeuristicProvider()
	}

	model := cfg.AIModel
	if model == "" {
		model = intent.DefaultOpenAIModel
	}
	zapLogger.Info("using_openai_intent_parser", zap.String("model", model))
	return intent.NewOpenAIProviderWithLogger(cfg.OpenAIKey, cfg.AIBaseURL, model, zapLogger, cfg.ServerDebugMode)
}

func versionInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, `{"version":"1.0.0","timestamp":"%s"}`, time.Now().UTC().Format(time.RFC3339))
}
