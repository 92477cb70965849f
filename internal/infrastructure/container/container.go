// Package container provides dependency injection using Uber FX
// This implements the Dependency Inversion Principle from SOLID
package container

import (
	"context"
	"fmt"
	"time"

	"github.com/alchemorsel/nutricore/internal/application/bus"
	appchat "github.com/alchemorsel/nutricore/internal/application/chat"
	appmeal "github.com/alchemorsel/nutricore/internal/application/meal"
	"github.com/alchemorsel/nutricore/internal/application/notification"
	"github.com/alchemorsel/nutricore/internal/application/nutrition"
	"github.com/alchemorsel/nutricore/internal/application/suggestion"
	"github.com/alchemorsel/nutricore/internal/application/user"
	"github.com/alchemorsel/nutricore/internal/domain/meal"
	"github.com/alchemorsel/nutricore/internal/infrastructure/ai/openai"
	"github.com/alchemorsel/nutricore/internal/infrastructure/clock"
	"github.com/alchemorsel/nutricore/internal/infrastructure/config"
	gormRepo "github.com/alchemorsel/nutricore/internal/infrastructure/persistence/gorm"
	"github.com/alchemorsel/nutricore/internal/infrastructure/persistence/migrations"
	"github.com/alchemorsel/nutricore/internal/infrastructure/persistence/postgres"
	redisRepo "github.com/alchemorsel/nutricore/internal/infrastructure/persistence/redis"
	"github.com/alchemorsel/nutricore/internal/infrastructure/idgen"
	"github.com/alchemorsel/nutricore/internal/infrastructure/push"
	"github.com/alchemorsel/nutricore/internal/infrastructure/storage"
	"github.com/alchemorsel/nutricore/internal/infrastructure/tracing"
	"github.com/alchemorsel/nutricore/internal/infrastructure/ws"
	"github.com/alchemorsel/nutricore/internal/ports/outbound"
	"github.com/alchemorsel/nutricore/pkg/healthcheck"
	"github.com/alchemorsel/nutricore/pkg/logger"
	otelTrace "go.opentelemetry.io/otel/trace"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module provides all dependency injection modules for the full application.
var Module = fx.Options(
	ConfigModule,
	LoggerModule,
	DatabaseModule,
	RedisModule,
	HealthCheckModule,
	RepositoryModule,
	AdapterModule,
	TracingModule,
	BusModule,
	ServiceModule,
	LifecycleModule,
)

// ConfigModule provides configuration
var ConfigModule = fx.Provide(
	func() (*config.Config, error) {
		return config.Load("")
	},
)

// LoggerModule provides logging
var LoggerModule = fx.Provide(
	func(cfg *config.Config) (*zap.Logger, error) {
		return logger.New(logger.Config{
			Level:       cfg.App.LogLevel,
			Format:      cfg.App.LogFormat,
			Development: cfg.App.Debug,
		})
	},
	func(log *zap.Logger) *zap.SugaredLogger {
		return log.Sugar()
	},
)

// DatabaseModule provides the Postgres connection, migrated to the current domain's model set.
var DatabaseModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
		connectionManager, err := postgres.NewConnectionManager(cfg, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL connection manager: %w", err)
		}

		db := connectionManager.GetDB()

		if cfg.Database.RunMigrations {
			sqlDB, err := db.DB()
			if err != nil {
				return nil, fmt.Errorf("failed to obtain *sql.DB for migrations: %w", err)
			}
			migrator, err := migrations.New(sqlDB, log)
			if err != nil {
				return nil, fmt.Errorf("failed to create migrator: %w", err)
			}
			if err := migrator.Up(); err != nil {
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}

		if cfg.Database.AutoMigrate {
			if err := db.AutoMigrate(
				&gormRepo.UserModel{},
				&gormRepo.NotificationPrefsModel{},
				&gormRepo.FcmTokenModel{},
				&gormRepo.MealModel{},
				&gormRepo.ChatThreadModel{},
				&gormRepo.IngredientEmbeddingModel{},
				&gormRepo.UsdaEmbeddingModel{},
			); err != nil {
				log.Warn("Failed to auto-migrate database", zap.Error(err))
			}
		}

		log.Info("Connected to PostgreSQL database",
			zap.String("host", cfg.Database.Host),
			zap.Int("port", cfg.Database.Port),
			zap.String("database", cfg.Database.Database),
		)

		return db, nil
	},

	func(cfg *config.Config, log *zap.Logger) (*postgres.ConnectionManager, error) {
		return postgres.NewConnectionManager(cfg, log)
	},
)

// RedisModule provides the shared go-redis client the cache and suggestion-session adapters sit
// on top of.
var RedisModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) (redis.UniversalClient, error) {
		client := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.Database,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn("Redis connection failed at startup; cache/session operations will error until it recovers", zap.Error(err))
		}
		return client, nil
	},

	func(client redis.UniversalClient, log *zap.Logger) outbound.CacheRepository {
		return redisRepo.NewCacheRepository(client, log)
	},

	func(client redis.UniversalClient, log *zap.Logger) outbound.SuggestionSessionStore {
		return redisRepo.NewSuggestionSessionStore(client, log)
	},
)

// HealthCheckModule provides health check functionality
var HealthCheckModule = fx.Provide(
	func(cfg *config.Config) *healthcheck.HealthMetrics {
		if cfg.Monitoring.HealthCheck.EnableMetrics {
			return healthcheck.NewHealthMetricsWithConfig(healthcheck.MetricsConfig{
				Namespace: cfg.Monitoring.HealthCheck.Metrics.Namespace,
				Subsystem: cfg.Monitoring.HealthCheck.Metrics.Subsystem,
				Enabled:   cfg.Monitoring.HealthCheck.Metrics.Enabled,
			})
		}
		return healthcheck.NewHealthMetrics()
	},

	func(cfg *config.Config, log *zap.Logger, metrics *healthcheck.HealthMetrics) *healthcheck.EnterpriseHealthCheck {
		hc := healthcheck.NewEnterpriseHealthCheckWithMetrics(cfg.App.Version, log, metrics)
		hc.HealthCheck.SetCacheTTL(cfg.Monitoring.HealthCheck.CacheTTL)
		return hc
	},

	fx.Annotate(
		func(cfg *config.Config) healthcheck.Checker {
			return healthcheck.NewCustomChecker("system", func(ctx context.Context) (healthcheck.Status, string, interface{}) {
				return healthcheck.StatusHealthy, "System operational", map[string]interface{}{
					"service":     cfg.App.Name,
					"version":     cfg.App.Version,
					"environment": cfg.App.Environment,
				}
			})
		},
		fx.ResultTags(`group:"healthcheckers"`),
	),

	fx.Annotate(
		func(db *gorm.DB) healthcheck.Checker {
			return healthcheck.NewCustomChecker("database", func(ctx context.Context) (healthcheck.Status, string, interface{}) {
				sqlDB, err := db.DB()
				if err != nil {
					return healthcheck.StatusUnhealthy, err.Error(), nil
				}
				if err := sqlDB.PingContext(ctx); err != nil {
					return healthcheck.StatusUnhealthy, err.Error(), nil
				}
				stats := sqlDB.Stats()
				return healthcheck.StatusHealthy, "Database operational", map[string]interface{}{
					"open_connections": stats.OpenConnections,
					"in_use":           stats.InUse,
					"idle":             stats.Idle,
				}
			})
		},
		fx.ResultTags(`group:"healthcheckers"`),
	),

	fx.Annotate(
		func(checkers []healthcheck.Checker) HealthCheckerGroup {
			return HealthCheckerGroup{Checkers: checkers}
		},
		fx.ParamTags(`group:"healthcheckers"`),
	),
)

// RepositoryModule provides the gorm-backed repository adapters.
var RepositoryModule = fx.Provide(
	func(db *gorm.DB) outbound.UserRepository { return gormRepo.NewUserRepository(db) },
	func(db *gorm.DB) outbound.MealRepository { return gormRepo.NewMealRepository(db) },
	func(db *gorm.DB) outbound.ChatThreadRepository { return gormRepo.NewChatThreadRepository(db) },
)

// AdapterModule provides the provider/infrastructure adapters that sit behind the outbound ports:
// the OpenAI-compatible chat/vision/embedding client, the brute-force vector nutrition index, the
// local image store, the FCM push client, the websocket connection hub, and the trivial
// clock/id-generator adapters.
var AdapterModule = fx.Provide(
	func(cfg *config.Config, images outbound.ImageStore, log *zap.Logger) *openai.Client {
		return openai.NewClient(cfg.AI, images, log)
	},
	func(c *openai.Client) outbound.ChatModel { return c },
	func(c *openai.Client) outbound.VisionModel { return c },
	func(c *openai.Client) gormRepo.Embedder { return c },

	func(db *gorm.DB, embedder gormRepo.Embedder) outbound.NutritionIndex {
		return gormRepo.NewNutritionIndex(db, embedder)
	},

	func(cfg *config.Config) (outbound.ImageStore, error) {
		return storage.NewLocalImageStore(cfg.Storage)
	},

	func() outbound.Clock { return clock.New() },
	func() outbound.IDGenerator { return idgen.New() },

	func(log *zap.Logger) outbound.ChatConnectionHub { return ws.NewConnectionHub(log) },

	func(cfg *config.Config) (push.TokenSource, error) {
		if cfg.Push.FCMCredentialsPath == "" {
			return nil, fmt.Errorf("push.fcm_credentials_path is required to mint FCM access tokens")
		}
		return push.NewServiceAccountTokenSource(cfg.Push.FCMCredentialsPath)
	},

	func(cfg *config.Config, tokens push.TokenSource, log *zap.Logger) outbound.PushSender {
		return push.NewClient(cfg.Push, tokens, log)
	},
)

// TracingModule wires the OTLP trace provider the bus uses for its Send/Ask/dispatch spans.
// cfg.Monitoring.EnableTracing == false (the default) yields a Provider backed by otel's no-op
// tracer, so the bus always has a tracer to call without a nil check either way.
var TracingModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) (*tracing.Provider, error) {
		tcfg := tracing.Config{
			ServiceName:    cfg.App.Name,
			ServiceVersion: cfg.App.Version,
			Environment:    cfg.App.Environment,
			SamplingRatio:  cfg.Monitoring.SamplingRate,
		}
		if cfg.Monitoring.EnableTracing {
			tcfg.Endpoint = cfg.Monitoring.OTLPTraceEndpoint
		}
		return tracing.NewProvider(context.Background(), tcfg, log)
	},
	func(p *tracing.Provider) otelTrace.Tracer { return p.Tracer() },
)

// BusModule wires the command/query/event registry, the gorm unit-of-work factory, the
// background meal-analysis pipeline subscription, and the running event Bus.
var BusModule = fx.Provide(
	func(db *gorm.DB) bus.UnitOfWorkFactory { return gormRepo.NewUnitOfWorkFactory(db) },

	func(
		uowFactory bus.UnitOfWorkFactory,
		mealRepo outbound.MealRepository,
		vision outbound.VisionModel,
		nutritionIndex outbound.NutritionIndex,
		clk outbound.Clock,
		tracer otelTrace.Tracer,
		cfg *config.Config,
		log *zap.Logger,
	) *bus.Bus {
		registry := bus.NewRegistry()

		lookup := nutrition.NewLookup(nutritionIndex, log)

		b := bus.New(registry, uowFactory, log, tracer, bus.Config{
			Workers:   cfg.Notification.WorkerCount,
			QueueSize: cfg.Notification.QueueCapacity,
		})

		pipeline := appmeal.NewAnalysisPipeline(mealRepo, vision, lookup, b, clk, log)
		registry.Subscribe(meal.ImageUploaded{}, pipeline.OnMealImageUploaded)
		registry.Freeze()

		return b
	},

	func(b *bus.Bus) outbound.EventPublisher { return b },
)

// ServiceModule provides the application-layer services behind their inbound ports.
var ServiceModule = fx.Provide(
	appmeal.NewService,
	user.NewService,
	suggestion.NewService,
	appchat.NewService,

	func(
		users outbound.UserRepository,
		pushSender outbound.PushSender,
		cache outbound.CacheRepository,
		clk outbound.Clock,
		log *zap.Logger,
	) *notification.Dispatcher {
		return notification.NewDispatcher(users, pushSender, cache, clk, log)
	},
)

// LifecycleModule provides lifecycle hooks
var LifecycleModule = fx.Invoke(
	RegisterLifecycleHooks,
	InitializeHealthChecks,
)

// RegisterLifecycleHooks starts/stops the background notification dispatcher and closes the
// database connection on shutdown. The HTTP surface is registered separately by cmd/* entry
// points once the corresponding handlers exist.
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	cfg *config.Config,
	log *zap.Logger,
	db *gorm.DB,
	dispatcher *notification.Dispatcher,
	tracerProvider *tracing.Provider,
) {
	var cancel context.CancelFunc

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting application",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
			)

			var runCtx context.Context
			runCtx, cancel = context.WithCancel(context.Background())
			go func() {
				if err := dispatcher.Run(runCtx); err != nil && err != context.Canceled {
					log.Error("notification dispatcher stopped", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down application")

			if cancel != nil {
				cancel()
			}

			sqlDB, err := db.DB()
			if err == nil {
				if err := sqlDB.Close(); err != nil {
					log.Error("Failed to close database connection", zap.Error(err))
				}
			}

			if err := tracerProvider.Shutdown(ctx); err != nil {
				log.Error("Failed to shut down tracer provider", zap.Error(err))
			}

			_ = log.Sync()
			return nil
		},
	})
}

// HealthCheckerGroup represents the collected health checkers from the value group
type HealthCheckerGroup struct {
	Checkers []healthcheck.Checker `group:"healthcheckers"`
}

// InitializeHealthChecks registers all health checks with the enterprise health check instance
func InitializeHealthChecks(
	cfg *config.Config,
	log *zap.Logger,
	hc *healthcheck.EnterpriseHealthCheck,
	group HealthCheckerGroup,
) {
	log.Info("Initializing enterprise health checks")

	checkerMap := make(map[string]healthcheck.Checker)

	for _, checker := range group.Checkers {
		testCtx := context.Background()
		testCheck := checker.Check(testCtx)
		checkerName := testCheck.Name

		checkerMap[checkerName] = checker

		if cfg.Monitoring.HealthCheck.EnableCircuitBreaker {
			circuitConfig := healthcheck.CircuitBreakerConfig{
				FailureThreshold: cfg.Monitoring.HealthCheck.CircuitBreaker.FailureThreshold,
				SuccessThreshold: cfg.Monitoring.HealthCheck.CircuitBreaker.SuccessThreshold,
				Timeout:          cfg.Monitoring.HealthCheck.CircuitBreaker.Timeout,
				MaxRequests:      cfg.Monitoring.HealthCheck.CircuitBreaker.MaxRequests,
			}
			hc.RegisterWithCircuitBreaker(checkerName, checker, circuitConfig)
		} else {
			hc.Register(checkerName, checker)
		}

		log.Info("Registered health checker", zap.String("name", checkerName))
	}

	if cfg.Monitoring.HealthCheck.EnableDependencies {
		if dbChecker, exists := checkerMap["database"]; exists {
			dbDep := healthcheck.DatabaseDependency("database", true, dbChecker)
			hc.RegisterDependency(dbDep)
		}
		log.Info("Registered health check dependencies")
	}

	log.Info("Enterprise health checks initialized successfully",
		zap.Int("checkers_count", len(group.Checkers)),
		zap.Bool("circuit_breaker", cfg.Monitoring.HealthCheck.EnableCircuitBreaker),
		zap.Bool("dependencies", cfg.Monitoring.HealthCheck.EnableDependencies),
		zap.Bool("metrics", cfg.Monitoring.HealthCheck.EnableMetrics),
	)
}
