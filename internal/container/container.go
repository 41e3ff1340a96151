package container

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jaevor/go-nanoid"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/shortlink/internal/analytics"
	analyticsstore "github.com/serroba/shortlink/internal/analytics/store"
	"github.com/serroba/shortlink/internal/handlers"
	"github.com/serroba/shortlink/internal/health"
	"github.com/serroba/shortlink/internal/messaging"
	"github.com/serroba/shortlink/internal/middleware"
	"github.com/serroba/shortlink/internal/migrations"
	"github.com/serroba/shortlink/internal/ratelimit"
	"github.com/serroba/shortlink/internal/shortener"
	"github.com/serroba/shortlink/internal/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"

	// EnvPrefix matches the prefix humacli uses for its environment variables.
	EnvPrefix = "SERVICE"

	requestIDLength = 21
	eventIDLength   = 21

	// seconds browsers may cache a preflight answer
	corsMaxAge = 86400
)

// Options configures both binaries. The server reads them through humacli
// flags, the consumer through environment variables.
type Options struct {
	Port             int           `default:"8888"              envconfig:"PORT"               help:"Port to listen on"                                   short:"p"`
	BaseURL          string        `default:""                  envconfig:"BASE_URL"           help:"Public base URL of short links (default http://localhost:<port>)"`
	RedisAddr        string        `default:"localhost:6379"    envconfig:"REDIS_ADDR"         help:"Redis server address"                                short:"r"`
	DatabaseURL      string        `default:""                  envconfig:"DATABASE_URL"       help:"PostgreSQL URL, empty keeps links in memory"         short:"d"`
	CacheBackend     string        `default:"redis"             envconfig:"CACHE_BACKEND"      help:"Link cache backend: redis or memory"`
	CacheTTL         time.Duration `default:"1h"                envconfig:"CACHE_TTL"          help:"How long resolved links stay cached"`
	CacheTimeout     time.Duration `default:"50ms"              envconfig:"CACHE_TIMEOUT"      help:"Upper bound on a single cache call"`
	CacheSizeMB      int           `default:"64"                envconfig:"CACHE_SIZE_MB"      help:"Size of the in-process cache in MB"`
	RateLimitEnabled bool          `default:"true"              envconfig:"RATE_LIMIT_ENABLED" help:"Enable per-client rate limiting"`
	LogFormat        string        `default:"console"           envconfig:"LOG_FORMAT"         help:"Log format: console or json"`
	LogLevel         string        `default:"info"              envconfig:"LOG_LEVEL"          help:"Log level: debug, info, warn or error"`
	ConsumerGroup    string        `default:"analytics"         envconfig:"CONSUMER_GROUP"     help:"Redis stream consumer group"`
	Migrate          bool          `default:"true"              envconfig:"MIGRATE"            help:"Apply database migrations on start"`
	CORSOrigins      string        `default:"*"                 envconfig:"CORS_ORIGINS"       help:"Comma-separated origins allowed to call the API, * for any"`
	TrustProxy       bool          `default:"false"             envconfig:"TRUST_PROXY"        help:"Take the client IP from X-Forwarded-For and X-Real-IP"`
}

// PublicBaseURL returns the base URL short links are built on.
func (o *Options) PublicBaseURL() string {
	if o.BaseURL != "" {
		return strings.TrimRight(o.BaseURL, "/")
	}

	return fmt.Sprintf("http://localhost:%d", o.Port)
}

// AllowedOrigins splits CORSOrigins into its entries. An empty list, like "*",
// allows any origin.
func (o *Options) AllowedOrigins() []string {
	var origins []string

	for _, origin := range strings.Split(o.CORSOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}

	return origins
}

// LoadConsumerOptions reads Options from an optional .env file and SERVICE_* variables.
func LoadConsumerOptions(envFiles ...string) (*Options, error) {
	// a missing .env file is fine
	_ = godotenv.Load(envFiles...)

	var opts Options
	if err := envconfig.Process(EnvPrefix, &opts); err != nil {
		return nil, fmt.Errorf("load options: %w", err)
	}

	return &opts, nil
}

// LoggerPackage provides the application logger.
func LoggerPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*zap.Logger, error) {
		opts := do.MustInvoke[*Options](i)

		return NewLogger(opts.LogFormat, opts.LogLevel)
	})
}

// NewLogger builds a zap logger. Format "json" selects the production encoder.
func NewLogger(format, level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	cfg := zap.NewDevelopmentConfig()
	if format == "json" {
		cfg = zap.NewProductionConfig()
	}

	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

// RedisPackage provides the shared redis client.
func RedisPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*redis.Client, error) {
		opts := do.MustInvoke[*Options](i)

		return redis.NewClient(&redis.Options{
			Addr: opts.RedisAddr,
		}), nil
	})
}

// PostgresPackage provides the connection pool, applying migrations first
// when enabled. Only register it when a database URL is configured.
func PostgresPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*pgxpool.Pool, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.Migrate {
			if err := migrate(opts.DatabaseURL, logger); err != nil {
				return nil, err
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		pool, err := pgxpool.New(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("create postgres pool: %w", err)
		}

		if err := pool.Ping(ctx); err != nil {
			pool.Close()

			return nil, fmt.Errorf("ping postgres: %w", err)
		}

		return pool, nil
	})
}

func migrate(databaseURL string, logger *zap.Logger) error {
	migrator, err := migrations.New(databaseURL, logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := migrator.Close(); err != nil {
			logger.Warn("close migrator", zap.Error(err))
		}
	}()

	return migrator.Up()
}

// RepositoryPackage provides the link store: PostgreSQL when a database URL
// is configured, memory otherwise.
func RepositoryPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (shortener.Store, error) {
		opts := do.MustInvoke[*Options](i)
		if opts.DatabaseURL == "" {
			do.MustInvoke[*zap.Logger](i).Warn("no database configured, links are kept in memory")

			return store.NewMemoryStore(), nil
		}

		return store.NewPostgresStore(do.MustInvoke[*pgxpool.Pool](i)), nil
	})
}

// CachePackage provides the link cache selected by the cache backend option.
func CachePackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (shortener.Cache, error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.CacheBackend {
		case CacheBackendRedis:
			return store.NewRedisCache(do.MustInvoke[*redis.Client](i)), nil
		case CacheBackendMemory:
			if opts.CacheSizeMB <= 0 {
				return nil, fmt.Errorf("cache-size-mb must be positive for the memory cache backend, got %d", opts.CacheSizeMB)
			}

			return store.NewLocalCache(opts.CacheSizeMB)
		default:
			return nil, fmt.Errorf("unknown cache backend %q", opts.CacheBackend)
		}
	})
}

// ServicePackage provides the shortener service.
func ServicePackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*shortener.Service, error) {
		opts := do.MustInvoke[*Options](i)

		return shortener.NewService(
			do.MustInvoke[shortener.Store](i),
			do.MustInvoke[shortener.Cache](i),
			shortener.Config{CacheTTL: opts.CacheTTL, CacheTimeout: opts.CacheTimeout},
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
}

// RateLimitPackage provides the policy limiter. Counters live in redis
// unless the memory cache backend is selected.
func RateLimitPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (ratelimit.Store, error) {
		if do.MustInvoke[*Options](i).CacheBackend == CacheBackendMemory {
			return newSweepingRateLimitStore(rateLimitSweepInterval, rateLimitMaxWindow), nil
		}

		return store.NewRateLimitRedisStore(do.MustInvoke[*redis.Client](i))
	})

	do.Provide(i, func(i *do.Injector) (*ratelimit.PolicyLimiter, error) {
		return ratelimit.NewPolicyLimiter(do.MustInvoke[ratelimit.Store](i), ratelimit.DefaultPolicy()), nil
	})
}

// PublisherGroupPackage provides the redis stream publisher and the typed
// analytics publisher built on it.
func PublisherGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		publisher, err := messaging.NewRedisPublisher(
			do.MustInvoke[*redis.Client](i),
			do.MustInvoke[*zap.Logger](i),
		)
		if err != nil {
			return nil, fmt.Errorf("create publisher: %w", err)
		}

		return messaging.NewPublisherGroup(publisher), nil
	})

	do.Provide(i, func(i *do.Injector) (*analytics.Publisher, error) {
		group := do.MustInvoke[*messaging.PublisherGroup](i)

		return analytics.NewPublisher(group.Publisher()), nil
	})
}

// AnalyticsStorePackage provides the analytics store and stats reader:
// PostgreSQL when a database URL is configured, the logging store otherwise.
func AnalyticsStorePackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (analytics.Store, error) {
		if do.MustInvoke[*Options](i).DatabaseURL == "" {
			return analyticsstore.NewNoop(do.MustInvoke[*zap.Logger](i)), nil
		}

		return store.NewClickStore(do.MustInvoke[*pgxpool.Pool](i)), nil
	})

	do.Provide(i, func(i *do.Injector) (analytics.Reader, error) {
		reader, ok := do.MustInvoke[analytics.Store](i).(analytics.Reader)
		if !ok {
			return nil, fmt.Errorf("analytics store cannot serve stats")
		}

		return reader, nil
	})
}

// ConsumerGroupPackage provides the analytics consumer group.
func ConsumerGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		subscriber, err := messaging.NewRedisSubscriber(
			do.MustInvoke[*redis.Client](i),
			opts.ConsumerGroup,
			logger,
		)
		if err != nil {
			return nil, fmt.Errorf("create subscriber: %w", err)
		}

		group := messaging.NewConsumerGroup(subscriber, logger)
		analytics.RegisterConsumers(group, subscriber, do.MustInvoke[analytics.Store](i), logger)

		return group, nil
	})
}

// HTTPPackage provides the router and the huma API with every route and
// middleware registered. CORS runs on the router so preflight requests are
// answered before routing.
func HTTPPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*chi.Mux, error) {
		opts := do.MustInvoke[*Options](i)

		router := chi.NewMux()
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins(),
			AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
			ExposedHeaders: []string{
				"Location",
				"Retry-After",
				middleware.RequestIDHeader,
				middleware.RateLimitLimitHeader,
				middleware.RateLimitRemainingHeader,
			},
			MaxAge: corsMaxAge,
		}))

		return router, nil
	})

	do.Provide(i, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		router := do.MustInvoke[*chi.Mux](i)

		api := humachi.New(router, huma.DefaultConfig("URL Shortener", "1.0.0"))

		requestID, err := nanoid.Standard(requestIDLength)
		if err != nil {
			return nil, err
		}

		eventID, err := nanoid.Standard(eventIDLength)
		if err != nil {
			return nil, err
		}

		api.UseMiddleware(middleware.RequestMeta(api, requestID, opts.TrustProxy))
		api.UseMiddleware(middleware.AccessLog(logger))

		if opts.RateLimitEnabled {
			api.UseMiddleware(middleware.PolicyRateLimiter(
				api,
				do.MustInvoke[*ratelimit.PolicyLimiter](i),
				ratelimit.NewOperationScopeResolver(),
				logger,
			))
		}

		urlHandler := handlers.NewURLHandler(
			do.MustInvoke[*shortener.Service](i),
			do.MustInvoke[analytics.Reader](i),
			do.MustInvoke[*analytics.Publisher](i),
			eventID,
			opts.PublicBaseURL(),
			logger,
		)
		handlers.RegisterRoutes(api, urlHandler)

		deps := []health.Dependency{
			{Name: "redis", Checker: health.NewRedisChecker(do.MustInvoke[*redis.Client](i))},
		}
		if opts.DatabaseURL != "" {
			deps = append(deps, health.Dependency{Name: "postgres", Checker: do.MustInvoke[*pgxpool.Pool](i)})
		}

		health.RegisterRoutes(api, health.NewHandler(health.DefaultTimeout, deps...))

		return api, nil
	})
}
