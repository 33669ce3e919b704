// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/lingohub/internal/app/system/auditlog"
	"github.com/dalemusser/lingohub/internal/app/system/chanmirror"
	"github.com/dalemusser/lingohub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for LingoHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, stream_api_key, etc.
//   - Environment variables: LINGOHUB_MONGO_URI, LINGOHUB_STREAM_API_KEY, etc.
//   - Command-line flags: --mongo_uri, --stream_api_key, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "lingohub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must match the account service)"},
	{Name: "session_name", Default: "lingohub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "168h", Desc: "Session cookie lifetime"},

	// Stream Chat
	{Name: "stream_api_key", Default: "", Desc: "Stream Chat API key (blank disables the channel mirror)"},
	{Name: "stream_api_secret", Default: "", Desc: "Stream Chat API secret"},
	{Name: "stream_channel_type", Default: chanmirror.DefaultChannelType, Desc: "Stream channel type for group chats"},
	{Name: "stream_token_ttl", Default: "0s", Desc: "Chat token lifetime (0 issues tokens without expiry)"},
	{Name: "mirror_timeout", Default: "5s", Desc: "Deadline for one chat provider call"},

	// Social rules
	{Name: "group_max_members", Default: models.DefaultGroupMaxMembers, Desc: "Member cap for new group chats"},
	{Name: "friend_request_limit", Default: 20, Desc: "Friend requests a user may send per window (0 disables)"},
	{Name: "friend_request_window", Default: "1h", Desc: "Friend request rate window"},

	{Name: "ws_allowed_origins", Default: "", Desc: "Comma-separated origins allowed to open /ws (blank allows any)"},

	// Audit logging settings
	{Name: "audit_log_social", Default: "all", Desc: "Friend/friendship event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_group", Default: "all", Desc: "Group chat event logging: 'all' (db+log), 'db', 'log', or 'off'"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges .env files, config files,
// LINGOHUB_* environment variables and flags with precedence
// flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "LINGOHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 7*24*time.Hour),

		StreamAPIKey:      appValues.String("stream_api_key"),
		StreamAPISecret:   appValues.String("stream_api_secret"),
		StreamChannelType: appValues.String("stream_channel_type"),
		StreamTokenTTL:    appValues.Duration("stream_token_ttl", 0),
		MirrorTimeout:     appValues.Duration("mirror_timeout", 5*time.Second),

		GroupMaxMembers: appValues.Int("group_max_members"),

		FriendRequestLimit:  appValues.Int("friend_request_limit"),
		FriendRequestWindow: appValues.Duration("friend_request_window", time.Hour),

		WSAllowedOrigins: splitList(appValues.String("ws_allowed_origins")),

		AuditLogSocial: appValues.String("audit_log_social"),
		AuditLogGroup:  appValues.String("audit_log_group"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig rejects configs that would fail later at connect time
// or leave the mirror half configured.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.StreamAPIKey != "" && appCfg.StreamAPISecret == "" {
		return fmt.Errorf("stream_api_key is set but stream_api_secret is empty")
	}
	if appCfg.GroupMaxMembers < 2 {
		return fmt.Errorf("group_max_members must be at least 2, got %d", appCfg.GroupMaxMembers)
	}
	for _, mode := range []struct{ key, val string }{
		{"audit_log_social", appCfg.AuditLogSocial},
		{"audit_log_group", appCfg.AuditLogGroup},
	} {
		switch mode.val {
		case auditlog.DestAll, auditlog.DestDB, auditlog.DestLog, auditlog.DestOff:
		default:
			return fmt.Errorf("%s must be one of all, db, log, off; got %q", mode.key, mode.val)
		}
	}
	if coreCfg != nil && coreCfg.Env == "prod" && appCfg.StreamAPIKey == "" {
		logger.Warn("stream_api_key is empty; group chats will not be mirrored")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
