// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"net/http"

	chatsfeature "github.com/dalemusser/campuslink/internal/app/features/chats"
	errorsfeature "github.com/dalemusser/campuslink/internal/app/features/errors"
	healthfeature "github.com/dalemusser/campuslink/internal/app/features/health"
	livefeedfeature "github.com/dalemusser/campuslink/internal/app/features/livefeed"
	networkfeature "github.com/dalemusser/campuslink/internal/app/features/network"
	notificationsfeature "github.com/dalemusser/campuslink/internal/app/features/notifications"
	userinfofeature "github.com/dalemusser/campuslink/internal/app/features/userinfo"
	connectionstore "github.com/dalemusser/campuslink/internal/app/store/connections"
	conversationstore "github.com/dalemusser/campuslink/internal/app/store/conversations"
	messagestore "github.com/dalemusser/campuslink/internal/app/store/messages"
	notificationstore "github.com/dalemusser/campuslink/internal/app/store/notifications"
	"github.com/dalemusser/campuslink/internal/app/store/queries/unreadqueries"
	userstore "github.com/dalemusser/campuslink/internal/app/store/users"
	"github.com/dalemusser/campuslink/internal/app/system/auth"
	"github.com/dalemusser/campuslink/internal/app/system/metrics"
	"github.com/dalemusser/campuslink/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Services bundles the social core components built over one document
// store. The HTTP features and the live gateway share a single instance.
type Services struct {
	Users         *userstore.Store
	Notifications *notificationstore.Store
	Connections   *connectionstore.Store
	Threads       *conversationstore.Store
	Messages      *messagestore.Store
	Badges        *unreadqueries.Aggregator
}

// NewServices wires the core components over deps.Docs. Connection
// requests and acceptances always fan out notifications; chat messages do
// so when NotifyOnMessage is set.
func NewServices(appCfg AppConfig, deps DBDeps, logger *zap.Logger) *Services {
	users := userstore.New(deps.Docs)
	notes := notificationstore.New(deps.Docs, logger)
	conns := connectionstore.New(deps.Docs, users, logger).WithFanout(notes)
	threads := conversationstore.New(deps.Docs, users, logger)
	msgs := messagestore.New(deps.Docs, threads, users, logger)
	if appCfg.NotifyOnMessage {
		msgs = msgs.WithFanout(notes)
	}

	return &Services{
		Users:         users,
		Notifications: notes,
		Connections:   conns,
		Threads:       threads,
		Messages:      msgs,
		Badges:        unreadqueries.New(threads, notes),
	}
}

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	verifier, err := auth.NewVerifier(appCfg.JWTSecret, logger)
	if err != nil {
		logger.Error("token verifier init failed", zap.Error(err))
		return nil, err
	}
	return NewRouter(appCfg, deps, NewServices(appCfg, deps, logger), verifier, logger), nil
}

// NewRouter mounts every feature router over svc.
func NewRouter(appCfg AppConfig, deps DBDeps, svc *Services, verifier *auth.Verifier, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(metrics.Middleware)
	// Loads the bearer token's user into context when one is present.
	r.Use(verifier.LoadUser)

	errorsHandler := errorsfeature.NewHandler()
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(appCfg.StoreBackend, backendPing(deps), logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", metrics.Handler())

	userinfofeature.MountRoutes(r, userinfofeature.NewHandler(svc.Users, logger))

	networkHandler := networkfeature.NewHandler(svc.Connections, logger)
	r.Mount("/api/network", networkfeature.Routes(networkHandler))

	chatsHandler := chatsfeature.NewHandler(svc.Threads, svc.Messages, ratelimit.PerMinute(appCfg.SendRatePerMinute), logger)
	r.Mount("/api/chats", chatsfeature.Routes(chatsHandler))

	notesHandler := notificationsfeature.NewHandler(svc.Notifications, logger)
	r.Mount("/api/notifications", notificationsfeature.Routes(notesHandler))

	liveHandler := livefeedfeature.NewHandler(svc.Threads, svc.Messages, svc.Notifications, svc.Badges, svc.Connections, appCfg.AllowAnyOrigin, logger)
	r.Mount("/live", livefeedfeature.Routes(liveHandler))

	return r
}

// backendPing checks Mongo and Redis when they are in use. It returns nil
// for the memory backend.
func backendPing(deps DBDeps) healthfeature.PingFunc {
	if deps.MongoClient == nil && deps.Redis == nil {
		return nil
	}
	return func(ctx context.Context) error {
		if deps.MongoClient != nil {
			if err := deps.MongoClient.Ping(ctx, readpref.Primary()); err != nil {
				return err
			}
		}
		if deps.Redis != nil {
			if err := deps.Redis.Ping(ctx).Err(); err != nil {
				return err
			}
		}
		return nil
	}
}
