// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/campuslink/internal/app/system/changebus"
	"github.com/dalemusser/campuslink/internal/app/system/docstore/memstore"
	"github.com/dalemusser/campuslink/internal/app/system/docstore/mongostore"
	"github.com/dalemusser/campuslink/internal/app/system/indexes"
	"github.com/dalemusser/campuslink/internal/app/system/timeouts"
	"github.com/dalemusser/campuslink/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// changeChannelPrefix namespaces the Redis pub/sub channels of the change bus.
const changeChannelPrefix = "campuslink:changes:"

// ConnectDB opens the configured document store and change bus.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	if appCfg.StoreBackend == BackendMemory {
		if appCfg.ChangeBus != BusNone {
			logger.Info("change bus ignored for the memory store backend", zap.String("change_bus", appCfg.ChangeBus))
		}
		logger.Info("using in-memory document store")
		return DBDeps{Docs: memstore.New(memstore.WithLogger(logger))}, nil
	}

	var deps DBDeps

	bus, rdb, err := connectBus(ctx, appCfg, logger)
	if err != nil {
		return DBDeps{}, err
	}
	deps.Bus = bus
	deps.Redis = rdb

	connectCtx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(appCfg.MongoURI))
	if err != nil {
		closeBus(deps.Bus, logger)
		return DBDeps{}, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		closeBus(deps.Bus, logger)
		return DBDeps{}, fmt.Errorf("ping mongo: %w", err)
	}
	logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))

	deps.MongoClient = client
	deps.MongoDatabase = client.Database(appCfg.MongoDatabase)

	opts := []mongostore.Option{
		mongostore.WithLogger(logger),
		mongostore.WithPollInterval(appCfg.LivePollInterval),
	}
	if deps.Bus != nil {
		opts = append(opts, mongostore.WithBus(deps.Bus))
	}
	deps.Docs = mongostore.New(deps.MongoDatabase, opts...)

	return deps, nil
}

func connectBus(ctx context.Context, appCfg AppConfig, logger *zap.Logger) (changebus.Bus, *redis.Client, error) {
	switch appCfg.ChangeBus {
	case BusLocal:
		logger.Info("using in-process change bus")
		return changebus.NewLocal(), nil, nil
	case BusRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     appCfg.RedisAddr,
			Password: appCfg.RedisPassword,
			DB:       appCfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, timeouts.Ping())
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("ping redis at %s: %w", appCfg.RedisAddr, err)
		}
		logger.Info("using redis change bus", zap.String("addr", appCfg.RedisAddr))
		return changebus.NewRedis(rdb, changeChannelPrefix, logger), rdb, nil
	default:
		return nil, nil, nil
	}
}

func closeBus(bus changebus.Bus, logger *zap.Logger) {
	if bus == nil {
		return
	}
	if err := bus.Close(); err != nil {
		logger.Warn("change bus close failed", zap.Error(err))
	}
}

// EnsureSchema creates the collections with their validators, then the
// indexes the social core queries rely on. The memory backend has no schema.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.MongoDatabase == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()
	if err := validators.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("ensure collections failed", zap.Error(err))
		return err
	}
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("ensure indexes failed", zap.Error(err))
		return err
	}
	logger.Info("schema ensured")
	return nil
}
