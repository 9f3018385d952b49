// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/campuslink/internal/app/system/docstore/mongostore"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for CampusLink.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, change_bus, etc.
//   - Environment variables: CAMPUSLINK_MONGO_URI, CAMPUSLINK_CHANGE_BUS, etc.
//   - Command-line flags: --mongo_uri, --change_bus, etc.
var appConfigKeys = []config.AppKey{
	{Name: "store_backend", Default: BackendMongo, Desc: "Document store backend: 'mongo' or 'memory'"},
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "campuslink", Desc: "MongoDB database name"},

	// Live query invalidation
	{Name: "change_bus", Default: BusNone, Desc: "Change bus for live queries: 'none', 'local' or 'redis'"},
	{Name: "redis_addr", Default: "localhost:6379", Desc: "Redis address (host:port)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},
	{Name: "live_poll_interval", Default: "2s", Desc: "Live query refresh interval when change streams are unavailable"},

	// HTTP shell
	{Name: "jwt_secret", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "HMAC secret for bearer tokens (must be strong in production)"},
	{Name: "allow_any_origin", Default: false, Desc: "Accept websocket upgrades from any origin"},
	{Name: "send_rate_per_minute", Default: 30, Desc: "Chat messages a user may send per minute (0 disables the limit)"},
	{Name: "notify_on_message", Default: true, Desc: "Emit a notification to the recipient of each chat message"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges flags > env > files > defaults,
// reading WAFFLE_* for core settings and CAMPUSLINK_* for the keys above.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "CAMPUSLINK", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		StoreBackend:  strings.ToLower(strings.TrimSpace(appValues.String("store_backend"))),
		MongoURI:      appValues.String("mongo_uri"),
		MongoDatabase: appValues.String("mongo_database"),

		ChangeBus:        strings.ToLower(strings.TrimSpace(appValues.String("change_bus"))),
		RedisAddr:        appValues.String("redis_addr"),
		RedisPassword:    appValues.String("redis_password"),
		RedisDB:          appValues.Int("redis_db"),
		LivePollInterval: appValues.Duration("live_poll_interval", mongostore.DefaultPollInterval),

		JWTSecret:         appValues.String("jwt_secret"),
		AllowAnyOrigin:    appValues.Bool("allow_any_origin"),
		SendRatePerMinute: appValues.Int("send_rate_per_minute"),
		NotifyOnMessage:   appValues.Bool("notify_on_message"),
	}
	if appCfg.ChangeBus == "" {
		appCfg.ChangeBus = BusNone
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// The Mongo URI is only checked when Mongo backs the store, so the memory
// backend can run without any database settings.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	switch appCfg.StoreBackend {
	case BackendMongo:
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
		if appCfg.MongoDatabase == "" {
			return fmt.Errorf("mongo_database is required when store_backend is %q", BackendMongo)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown store_backend %q (want %q or %q)", appCfg.StoreBackend, BackendMongo, BackendMemory)
	}

	switch appCfg.ChangeBus {
	case BusNone, BusLocal:
	case BusRedis:
		if appCfg.RedisAddr == "" {
			return fmt.Errorf("change_bus %q requires redis_addr", BusRedis)
		}
	default:
		return fmt.Errorf("unknown change_bus %q (want %q, %q or %q)", appCfg.ChangeBus, BusNone, BusLocal, BusRedis)
	}

	if appCfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if appCfg.SendRatePerMinute < 0 {
		return fmt.Errorf("send_rate_per_minute must not be negative")
	}
	if appCfg.LivePollInterval < 100*time.Millisecond {
		return fmt.Errorf("live_poll_interval must be at least 100ms")
	}

	if coreCfg != nil && coreCfg.Env == "prod" && appCfg.StoreBackend == BackendMemory {
		logger.Warn("memory store backend in prod: data is lost on restart")
	}
	return nil
}
