// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// Store backends.
const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

// Change bus kinds.
const (
	BusNone  = "none"
	BusLocal = "local"
	BusRedis = "redis"
)

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig covers ports, TLS, logging and CORS. AppConfig covers
// what CampusLink itself needs: which document store backs the social core,
// how live queries learn about writes from other instances, and the knobs
// of the HTTP shell.
type AppConfig struct {
	// Document store
	StoreBackend  string // "mongo" or "memory"
	MongoURI      string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase string // Database name within MongoDB

	// Live query invalidation
	ChangeBus        string        // "none", "local" or "redis"
	RedisAddr        string        // host:port of the Redis server
	RedisPassword    string        // blank for no auth
	RedisDB          int           // Redis logical database
	LivePollInterval time.Duration // refresh interval when no change source exists

	// HTTP shell
	JWTSecret         string // HMAC secret for bearer tokens
	AllowAnyOrigin    bool   // accept cross-origin websocket upgrades
	SendRatePerMinute int    // per-user message sends allowed per minute (0 disables)

	// NotifyOnMessage emits a "message" notification to the recipient of
	// every chat message.
	NotifyOnMessage bool
}
