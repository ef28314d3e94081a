package bootstrap

import (
	"context"
	"fmt"

	"referral_server/adapter/in/http"
	"referral_server/adapter/out/memory"
	"referral_server/adapter/out/mongodb"
	"referral_server/adapter/out/persistence"
	"referral_server/config"
	"referral_server/core/port/out"
	"referral_server/core/service/auth"
	"referral_server/core/service/profile"
	"referral_server/core/service/referral"
	"referral_server/infra/database"
	"referral_server/pkg/logger"
	"referral_server/pkg/metrics"
	"referral_server/pkg/resilience"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type Dependencies struct {
	Config  *config.Config
	Metrics *metrics.Metrics

	DB      *pgxpool.Pool
	SQLDB   *sqlx.DB
	Redis   *redis.Client
	MongoDB *mongo.Client

	// Repositories
	Users       out.UserRepository
	Referrals   out.ReferralRepository
	Revocations out.TokenRevocationStore

	HealthChecks map[string]http.HealthCheck

	// Services
	Tokens          *auth.TokenService
	AuthService     *auth.Service
	ProfileService  *profile.Service
	ReferralService *referral.Service
}

// NewDependencies connects the configured stores and builds the services.
// The returned cleanup closes every connection that was opened.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{
		Config:       cfg,
		Metrics:      metrics.New(),
		HealthChecks: make(map[string]http.HealthCheck),
	}

	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	var err error
	switch cfg.StoreDriver {
	case config.DriverMongo:
		cleanups, err = deps.connectMongo(ctx, cleanups)
	case config.DriverPostgres:
		cleanups, err = deps.connectPostgres(ctx, cleanups)
	case config.DriverMemory:
		logger.Warn("Using in-memory stores; data is lost on restart")
		deps.Users = memory.NewUserStore()
		deps.Referrals = memory.NewReferralStore()
		deps.Revocations = memory.NewRevocationStore()
	default:
		err = fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	cleanups = deps.connectRedis(ctx, cleanups)

	deps.Tokens = auth.NewTokenService(cfg.JWTSecret, cfg.JWTTTL, auth.WithIssuer(cfg.JWTIssuer))
	deps.AuthService = auth.NewService(
		deps.Users,
		auth.NewPasswordHasher(cfg.BcryptCost),
		deps.Tokens,
		deps.Revocations,
		cfg.WriteTimeout,
	)
	deps.ProfileService = profile.NewService(deps.Users, cfg.WriteTimeout)
	deps.ReferralService = referral.NewService(deps.Referrals, deps.Users, cfg.WriteTimeout)

	return deps, cleanup, nil
}

func (d *Dependencies) connectMongo(ctx context.Context, cleanups []func()) ([]func(), error) {
	client, err := mongodb.NewClient(ctx, d.Config.MongoDBURL)
	if err != nil {
		return cleanups, err
	}
	d.MongoDB = client
	cleanups = append(cleanups, func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.WithError(err).Warn("MongoDB disconnect failed")
		}
	})

	db := client.Database(d.Config.MongoDBName)
	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		return cleanups, err
	}

	d.Users = mongodb.NewUserAdapter(db)
	d.Referrals = mongodb.NewReferralAdapter(db)
	d.HealthChecks["mongodb"] = func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	}
	logger.Info("MongoDB connected (database: %s)", d.Config.MongoDBName)
	return cleanups, nil
}

func (d *Dependencies) connectPostgres(ctx context.Context, cleanups []func()) ([]func(), error) {
	pool, err := database.NewPostgres(ctx, d.Config.DatabaseURL, nil)
	if err != nil {
		return cleanups, fmt.Errorf("postgres: %w", err)
	}
	d.DB = pool
	cleanups = append(cleanups, pool.Close)

	if err := database.EnsureSchema(ctx, pool); err != nil {
		return cleanups, err
	}

	sqlDB, err := database.NewSQLX(ctx, d.Config.DatabaseURL)
	if err != nil {
		return cleanups, fmt.Errorf("sqlx: %w", err)
	}
	d.SQLDB = sqlDB
	cleanups = append(cleanups, func() { sqlDB.Close() })

	d.Users = persistence.NewUserAdapter(sqlDB)
	d.Referrals = persistence.NewReferralAdapter(sqlDB)
	d.HealthChecks["postgres"] = pool.Ping
	logger.Info("PostgreSQL connected")
	return cleanups, nil
}

// connectRedis wires the shared revocation store. Redis is optional: without
// it logout is a no-op for the database drivers.
func (d *Dependencies) connectRedis(ctx context.Context, cleanups []func()) []func() {
	if d.Config.RedisURL == "" {
		if d.Revocations == nil {
			logger.Info("REDIS_URL not set, token revocation disabled")
		}
		return cleanups
	}

	client, err := database.NewRedis(ctx, d.Config.RedisURL, nil)
	if err != nil {
		logger.WithError(err).Warn("Redis connection failed, token revocation disabled")
		return cleanups
	}
	d.Redis = client
	cleanups = append(cleanups, func() { client.Close() })

	breakerCfg := resilience.DefaultBreakerConfig("redis-revocations")
	breakerCfg.OnOpenChange = d.Metrics.BreakerOpen
	d.Revocations = persistence.NewRedisRevocationStore(client, resilience.NewBreaker(breakerCfg))
	d.HealthChecks["redis"] = func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
	logger.Info("Redis connected, token revocation enabled")
	return cleanups
}
