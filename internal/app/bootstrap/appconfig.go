// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds LingoHub-specific configuration. WAFFLE's CoreConfig
// covers ports, TLS, logging and CORS; everything the social core needs
// lives here and is passed to every lifecycle hook.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session cookie shared with the account service
	SessionKey    string
	SessionName   string
	SessionDomain string
	SessionMaxAge time.Duration

	// Stream Chat mirror. An empty API key selects the no-op mirror.
	StreamAPIKey      string
	StreamAPISecret   string
	StreamChannelType string
	StreamTokenTTL    time.Duration
	MirrorTimeout     time.Duration

	// Group chats
	GroupMaxMembers int

	// Friend request send rate per user
	FriendRequestLimit  int
	FriendRequestWindow time.Duration

	// WebSocket origins allowed to open /ws; empty allows any
	WSAllowedOrigins []string

	// Audit logging: "all" (db+log), "db", "log", or "off"
	AuditLogSocial string
	AuditLogGroup  string
}
