// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"
	"sync"

	"github.com/dalemusser/lingohub/internal/app/store/audit"
	"github.com/dalemusser/lingohub/internal/app/system/auditlog"
	"github.com/dalemusser/lingohub/internal/app/system/chanmirror"
	"github.com/dalemusser/lingohub/internal/app/system/notify"
	"github.com/dalemusser/lingohub/internal/app/system/presence"
	"github.com/dalemusser/lingohub/internal/app/system/ratelimit"
	"github.com/dalemusser/lingohub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// runtime holds the process-wide components built once in Startup and
// consumed by BuildHandler and Shutdown.
type runtime struct {
	presence *presence.Memory
	notifier *notify.Dispatcher
	mirror   chanmirror.Mirror
	limiter  *ratelimit.Limiter
	audit    *auditlog.Logger
}

var (
	rtMu sync.Mutex
	rt   *runtime
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	r, err := newRuntime(appCfg, deps, logger)
	if err != nil {
		return err
	}
	rtMu.Lock()
	rt = r
	rtMu.Unlock()
	return nil
}

func newRuntime(appCfg AppConfig, deps DBDeps, logger *zap.Logger) (*runtime, error) {
	timeouts.Configure(timeouts.Config{Mirror: appCfg.MirrorTimeout})

	mirror, err := newMirror(appCfg, logger)
	if err != nil {
		return nil, err
	}

	reg := presence.NewMemory()
	return &runtime{
		presence: reg,
		notifier: notify.NewDispatcher(reg, logger),
		mirror:   mirror,
		limiter:  ratelimit.New(appCfg.FriendRequestLimit, appCfg.FriendRequestWindow),
		audit: auditlog.New(audit.New(deps.MongoDatabase), logger, auditlog.Config{
			Social: appCfg.AuditLogSocial,
			Group:  appCfg.AuditLogGroup,
		}),
	}, nil
}

// newMirror picks the Stream mirror when credentials are present and the
// no-op mirror otherwise.
func newMirror(appCfg AppConfig, logger *zap.Logger) (chanmirror.Mirror, error) {
	if appCfg.StreamAPIKey == "" {
		logger.Info("chat mirror disabled (no stream_api_key)")
		return chanmirror.Nop{}, nil
	}
	s, err := chanmirror.NewStream(chanmirror.StreamConfig{
		APIKey:      appCfg.StreamAPIKey,
		APISecret:   appCfg.StreamAPISecret,
		ChannelType: appCfg.StreamChannelType,
		TokenTTL:    appCfg.StreamTokenTTL,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("chat mirror: %w", err)
	}
	logger.Info("chat mirror enabled", zap.String("channel_type", appCfg.StreamChannelType))
	return s, nil
}

// currentRuntime returns the Startup runtime, building one when the
// handler is assembled without Startup (tests).
func currentRuntime(appCfg AppConfig, deps DBDeps, logger *zap.Logger) (*runtime, error) {
	rtMu.Lock()
	defer rtMu.Unlock()
	if rt != nil {
		return rt, nil
	}
	r, err := newRuntime(appCfg, deps, logger)
	if err != nil {
		return nil, err
	}
	rt = r
	return rt, nil
}
