package app

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/go-redis/redis_rate/v10"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/playvault/backend/internal/cache"
	"github.com/playvault/backend/internal/config"
	"github.com/playvault/backend/internal/database"
	"github.com/playvault/backend/internal/fulfillment"
	"github.com/playvault/backend/internal/gamification"
	"github.com/playvault/backend/internal/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
)

// NewContainer registers every shared dependency lazily. Redis-backed
// services resolve to nil when REDIS_URL is unset and their consumers
// degrade to uncached, unlimited and unlocked operation.
func NewContainer(cfg *config.Config) *do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)

	do.Provide(injector, func(i *do.Injector) (*sql.DB, error) {
		return database.Connect(cfg.Database)
	})

	do.Provide(injector, func(i *do.Injector) (redis.UniversalClient, error) {
		client, err := cache.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		if client == nil {
			log.Println("[app] REDIS_URL not set, running without cache, rate limit or locks")
		}
		return client, nil
	})

	do.Provide(injector, func(i *do.Injector) (cache.Cache, error) {
		client, err := do.Invoke[redis.UniversalClient](i)
		if err != nil || client == nil {
			return nil, err
		}
		// the leaderboard has the shortest item TTL
		return cache.NewRedisCache(client, gamification.LeaderboardCacheTTL), nil
	})

	do.Provide(injector, func(i *do.Injector) (middleware.Limiter, error) {
		client, err := do.Invoke[redis.UniversalClient](i)
		if err != nil || client == nil {
			return nil, err
		}
		return redis_rate.NewLimiter(client), nil
	})

	do.Provide(injector, func(i *do.Injector) (*redsync.Redsync, error) {
		client, err := do.Invoke[redis.UniversalClient](i)
		if err != nil || client == nil {
			return nil, err
		}
		return redsync.New(goredis.NewPool(client)), nil
	})

	do.Provide(injector, func(i *do.Injector) (*gamification.Service, error) {
		db, err := do.Invoke[*sql.DB](i)
		if err != nil {
			return nil, err
		}
		c, err := do.Invoke[cache.Cache](i)
		if err != nil {
			return nil, err
		}
		return gamification.NewService(gamification.NewStore(db), c), nil
	})

	do.Provide(injector, func(i *do.Injector) (*fulfillment.Service, error) {
		db, err := do.Invoke[*sql.DB](i)
		if err != nil {
			return nil, err
		}

		var uploader fulfillment.Uploader
		s3Uploader, err := fulfillment.NewS3Uploader(context.Background(), cfg.Export)
		switch {
		case errors.Is(err, fulfillment.ErrExportDisabled):
		case err != nil:
			return nil, err
		default:
			uploader = s3Uploader
		}
		return fulfillment.NewService(fulfillment.NewStore(db), uploader), nil
	})

	do.Provide(injector, func(i *do.Injector) (*gamification.Handler, error) {
		svc, err := do.Invoke[*gamification.Service](i)
		if err != nil {
			return nil, err
		}
		return gamification.NewHandler(svc), nil
	})

	do.Provide(injector, func(i *do.Injector) (*fulfillment.Handler, error) {
		svc, err := do.Invoke[*fulfillment.Service](i)
		if err != nil {
			return nil, err
		}
		return fulfillment.NewHandler(svc), nil
	})

	return injector
}
