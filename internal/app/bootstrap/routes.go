// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	chattokenfeature "github.com/dalemusser/lingohub/internal/app/features/chattoken"
	errorsfeature "github.com/dalemusser/lingohub/internal/app/features/errors"
	friendsfeature "github.com/dalemusser/lingohub/internal/app/features/friends"
	groupchatsfeature "github.com/dalemusser/lingohub/internal/app/features/groupchats"
	healthfeature "github.com/dalemusser/lingohub/internal/app/features/health"
	"github.com/dalemusser/lingohub/internal/app/services/groupmembership"
	"github.com/dalemusser/lingohub/internal/app/services/socialgraph"
	"github.com/dalemusser/lingohub/internal/app/system/auth"
	"github.com/dalemusser/lingohub/internal/app/system/metrics"
	"github.com/dalemusser/lingohub/internal/app/system/realtime"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler for LingoHub.
//
// WAFFLE calls this after configuration, DB connections, schema setup and
// Startup have completed. Every API route is JSON and sits behind
// RequireSignedIn; /health and /metrics are public.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	run, err := currentRuntime(appCfg, deps, logger)
	if err != nil {
		return nil, err
	}
	return newRouter(deps, appCfg, run, sessionMgr, logger), nil
}

func newRouter(deps DBDeps, appCfg AppConfig, run *runtime, sessionMgr *auth.SessionManager, logger *zap.Logger) chi.Router {
	db := deps.MongoDatabase

	social := socialgraph.New(socialgraph.Deps{
		DB:       db,
		Notifier: run.notifier,
		Limiter:  run.limiter,
		Audit:    run.audit,
		Log:      logger,
	})
	groups := groupmembership.New(groupmembership.Deps{
		DB:         db,
		Mirror:     run.mirror,
		Notifier:   run.notifier,
		Audit:      run.audit,
		MaxMembers: appCfg.GroupMaxMembers,
		Log:        logger,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Loads SessionUser into context if signed in.
	r.Use(sessionMgr.LoadSessionUser)

	errorsHandler := errorsfeature.NewHandler()
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, run.presence, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", metrics.Handler())

	friendsHandler := friendsfeature.NewHandler(social, logger)
	r.Mount("/api/users", friendsfeature.Routes(friendsHandler, sessionMgr))

	groupsHandler := groupchatsfeature.NewHandler(groups, logger)
	r.Mount("/api/groups", groupchatsfeature.Routes(groupsHandler, sessionMgr))

	tokenHandler := chattokenfeature.NewHandler(db, run.mirror, logger)
	r.Mount("/api/chat", chattokenfeature.Routes(tokenHandler, sessionMgr))

	// Push channel; the socket registers the caller's presence.
	hub := realtime.NewHub(run.presence, realtime.Config{AllowedOrigins: appCfg.WSAllowedOrigins}, logger)
	r.With(sessionMgr.RequireSignedIn).Get("/ws", hub.ServeHTTP)

	return r
}
