package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/todo-assistant/api/openapi"
	"github.com/benvon/todo-assistant/internal/config"
	"github.com/benvon/todo-assistant/internal/database"
	"github.com/benvon/todo-assistant/internal/handlers"
	"github.com/benvon/todo-assistant/internal/logger"
	"github.com/benvon/todo-assistant/internal/middleware"
	"github.com/benvon/todo-assistant/internal/queue"
	"github.com/benvon/todo-assistant/internal/services/ai"
	"github.com/benvon/todo-assistant/internal/services/conversation"
	"github.com/benvon/todo-assistant/internal/services/enrichment"
	"github.com/benvon/todo-assistant/internal/services/messaging"
	"github.com/benvon/todo-assistant/internal/services/session"
	"github.com/benvon/todo-assistant/internal/services/todo"
	"github.com/benvon/todo-assistant/internal/services/workflow"
	"github.com/benvon/todo-assistant/internal/telemetry"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	shutdownTimeout  = 30 * time.Second
	redisPingTimeout = 3 * time.Second

	dlqGCInterval  = time.Hour
	dlqGCRetention = 24 * time.Hour
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
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
	defer func() { _ = logger.Sync(zapLogger) }()
	zapLogger = logger.ForService(zapLogger, "server")

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.Strings("allowed_origins", cfg.AllowedOrigins()),
		zap.String("ai_provider", cfg.AIProvider),
		zap.Bool("workflow_enabled", cfg.WorkflowWebhookURL != ""),
		zap.Bool("queue_enabled", cfg.QueueEnabled()),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	tracing := false
	if cfg.OTELEnabled {
		tp, err := telemetry.InitTracer(context.Background(), telemetry.ServerServiceName, cfg.OTELEndpoint)
		if err != nil {
			zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		} else {
			tracing = true
			zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := telemetry.Shutdown(ctx, tp); err != nil {
					zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
				}
			}()
		}
	}

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

	if cfg.AutoMigrate {
		if err := db.Migrate(context.Background()); err != nil {
			zapLogger.Fatal("failed_to_apply_schema", zap.Error(err))
		}
		zapLogger.Info("schema_applied")
	}

	redisClient := connectRedis(cfg.RedisURL, zapLogger)
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
			}
		}()
	}

	var states session.StateStore = session.NewMemoryStateStore()
	if redisClient != nil {
		states = session.NewRedisStateStore(redisClient, cfg.SessionTTL)
	}

	limiterStore, err := middleware.NewRateLimitStore(redisClient)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limit_store", zap.Error(err))
	}
	rateLimitMW, err := middleware.RateLimit(limiterStore, cfg.RateLimit, zapLogger)
	if err != nil {
		zapLogger.Fatal("invalid_rate_limit", zap.String("rate", cfg.RateLimit), zap.Error(err))
	}

	var jobQueue *queue.RabbitMQQueue
	if cfg.QueueEnabled() {
		jobQueue = connectQueue(cfg.RabbitMQURL, zapLogger)
		defer func() {
			if err := jobQueue.Close(); err != nil {
				zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
			}
		}()
	}

	// Repositories and services
	todoRepo := database.NewTodoRepository(db)
	userRepo := database.NewUserRepository(db)

	tokens, err := session.NewTokenIssuer(cfg.SessionKey)
	if err != nil {
		zapLogger.Fatal("failed_to_create_token_issuer", zap.Error(err))
	}
	if cfg.SessionKey == "" {
		zapLogger.Warn("session_secret_not_configured_sessions_reset_on_restart")
	}
	sessions := session.NewManager(userRepo, tokens, zapLogger)

	workflowClient := workflow.NewClient(cfg.WorkflowWebhookURL, cfg.WorkflowWebhookSecret, zapLogger)
	descriptions := todo.NewService(todoRepo, zapLogger)

	// A nil *RabbitMQQueue must not become a non-nil queue.JobQueue
	var jobs queue.JobQueue
	if jobQueue != nil {
		jobs = jobQueue
	}
	runner := enrichment.NewRunner(workflowClient, descriptions, zapLogger)
	dispatcher := enrichment.NewDispatcher(workflowClient.Enabled(), jobs, runner, enrichment.DefaultTimeout, zapLogger)

	var todoOpts []todo.Option
	if dispatcher != nil {
		todoOpts = append(todoOpts, todo.WithEnricher(dispatcher))
	} else {
		zapLogger.Info("todo_enrichment_disabled", zap.Bool("queue_enabled", jobQueue != nil))
	}
	todos := todo.NewService(todoRepo, zapLogger, todoOpts...)

	enhancer := ai.NewEnhancer(createAIProvider(cfg, zapLogger, debugMode), zapLogger)
	flow := conversation.NewFlow(states, enhancer, todos, zapLogger)

	sender := createSender(cfg, zapLogger)
	assistant := messaging.NewAssistant(sessions, todos, sender, zapLogger)

	// Handlers
	authHandler := handlers.NewAuthHandler(sessions, zapLogger)
	todoHandler := handlers.NewTodoHandler(todos, zapLogger)
	chatHandler := handlers.NewChatHandler(flow, zapLogger)
	descriptionHandler := handlers.NewAIDescriptionHandler(descriptions, cfg.AIDescriptionAPIKey, zapLogger)
	whatsappHandler := handlers.NewWhatsAppHandler(assistant, cfg.WhatsAppVerifyToken, zapLogger)
	openAPIHandler, err := handlers.NewOpenAPIHandler(openapi.Spec)
	if err != nil {
		zapLogger.Fatal("failed_to_load_openapi_document", zap.Error(err))
	}

	healthChecker := handlers.NewHealthChecker(db.PingContext)
	if redisClient != nil {
		healthChecker.WithCheck("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	if jobQueue != nil {
		healthChecker.WithCheck("rabbitmq", jobQueue.HealthCheck)
	}

	r := mux.NewRouter()

	// Middleware runs in registration order, first registered outermost
	if tracing {
		r.Use(telemetry.Middleware(telemetry.ServerServiceName))
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(middleware.Logging(zapLogger))
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(middleware.DefaultRequestTimeout))

	// Public routes
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods(http.MethodGet)
	openAPIHandler.RegisterRoutes(r)
	descriptionHandler.RegisterRoutes(r)

	webhookRouter := r.PathPrefix("/api/whatsapp").Subrouter()
	webhookRouter.Use(rateLimitMW)
	whatsappHandler.RegisterRoutes(webhookRouter)

	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	authMW := middleware.Auth(sessions, zapLogger)

	loginRouter := apiRouter.PathPrefix("/auth").Subrouter()
	loginRouter.Use(rateLimitMW)
	authHandler.RegisterPublicRoutes(loginRouter)

	meRouter := apiRouter.PathPrefix("/auth").Subrouter()
	meRouter.Use(authMW)
	authHandler.RegisterRoutes(meRouter)

	todosRouter := apiRouter.PathPrefix("/todos").Subrouter()
	todosRouter.Use(authMW)
	todoHandler.RegisterRoutes(todosRouter)

	chatRouter := apiRouter.PathPrefix("/chat").Subrouter()
	chatRouter.Use(authMW)
	chatRouter.Use(rateLimitMW)
	chatHandler.RegisterRoutes(chatRouter)

	// Preflight requests are answered by the CORS middleware; this route
	// only makes sure the router matches them.
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   middleware.DefaultRequestTimeout + 5*time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	if jobQueue != nil {
		gc := queue.NewGarbageCollector(jobQueue, dlqGCInterval, dlqGCRetention, zapLogger)
		go func() {
			if err := gc.Start(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
			}
		}()
	}

	go func() {
		zapLogger.Info("server_listening", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	bgCancel()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}
	// In-flight enrichment, including queue publishes, finishes before the
	// deferred queue close runs.
	if dispatcher != nil {
		dispatcher.Wait()
	}

	zapLogger.Info("server_exited")
}

// connectRedis returns nil when Redis is unreachable; callers then fall
// back to in-process stores, which only suit a single instance.
func connectRedis(redisURL string, log *zap.Logger) *redis.Client {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn("invalid_redis_url_using_memory_stores", zap.Error(err))
		return nil
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis_unreachable_using_memory_stores", zap.Error(err))
		_ = client.Close()
		return nil
	}
	log.Info("connected_to_redis")
	return client
}

// connectQueue retries with exponential backoff to ride out broker startup
func connectQueue(amqpURL string, log *zap.Logger) *queue.RabbitMQQueue {
	const (
		maxRetries   = 10
		initialDelay = 2 * time.Second
		maxDelay     = 30 * time.Second
	)

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		q, err := queue.NewRabbitMQQueue(amqpURL)
		if err == nil {
			log.Info("connected_to_rabbitmq")
			return q
		}
		lastErr = err

		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > maxDelay {
			delay = maxDelay
		}
		log.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Duration("retry_delay", delay),
			zap.Error(err),
		)
		time.Sleep(delay)
	}

	log.Fatal("failed_to_connect_to_rabbitmq_after_retries",
		zap.Int("max_retries", maxRetries),
		zap.Error(lastErr),
	)
	return nil
}

// createAIProvider returns nil when AI is not configured, which makes the
// enhancer answer from the fallback table.
func createAIProvider(cfg *config.Config, log *zap.Logger, debugMode bool) ai.Provider {
	if cfg.OpenAIKey == "" {
		log.Warn("ai_provider_not_configured_using_fallback")
		return nil
	}
	provider, err := ai.DefaultRegistry().GetProvider(cfg.AIProvider, ai.ProviderConfig{
		APIKey:    cfg.OpenAIKey,
		Model:     cfg.AIModel,
		BaseURL:   cfg.AIBaseURL,
		Logger:    log,
		DebugMode: debugMode,
	})
	if err != nil {
		log.Warn("failed_to_create_ai_provider_using_fallback", zap.Error(err))
		return nil
	}
	return provider
}

func createSender(cfg *config.Config, log *zap.Logger) messaging.Sender {
	if cfg.WhatsAppAccessToken == "" || cfg.WhatsAppPhoneNumberID == "" {
		return messaging.NewLogSender(log)
	}
	sender, err := messaging.NewCloudSender(messaging.CloudConfig{
		AccessToken:   cfg.WhatsAppAccessToken,
		PhoneNumberID: cfg.WhatsAppPhoneNumberID,
		APIVersion:    cfg.WhatsAppAPIVersion,
	}, log)
	if err != nil {
		log.Warn("failed_to_create_whatsapp_sender", zap.Error(err))
		return messaging.NewLogSender(log)
	}
	return sender
}
