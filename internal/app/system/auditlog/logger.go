// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"strconv"

	"github.com/dalemusser/lingohub/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations accepted by each Config field.
const (
	DestAll = "all" // MongoDB + zap
	DestDB  = "db"  // MongoDB only
	DestLog = "log" // zap only
	DestOff = "off"
)

// Config holds audit logging configuration.
type Config struct {
	// Social controls friend request and friendship events.
	Social string
	// Group controls group chat lifecycle and membership events.
	Group string
}

// Logger writes audit events to MongoDB (via audit.Store) and zap.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.GroupID != nil {
		fields = append(fields, zap.String("group_id", event.GroupID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event according to the category's destination.
// A nil Logger is a no-op.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var dest string
	switch event.Category {
	case audit.CategorySocial:
		dest = l.config.Social
	case audit.CategoryGroup:
		dest = l.config.Group
	default:
		dest = DestAll
	}
	if dest == "" {
		dest = DestAll
	}
	if dest == DestOff {
		return
	}

	if dest == DestAll || dest == DestLog {
		l.logToZap(event)
	}
	if dest == DestAll || dest == DestDB {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType))
		}
	}
}

func (l *Logger) social(ctx context.Context, eventType string, actor, other primitive.ObjectID, details map[string]string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategorySocial,
		EventType: eventType,
		ActorID:   &actor,
		UserID:    &other,
		Success:   true,
		Details:   details,
	})
}

func (l *Logger) group(ctx context.Context, eventType string, actor, groupID primitive.ObjectID, target *primitive.ObjectID, details map[string]string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryGroup,
		EventType: eventType,
		ActorID:   &actor,
		UserID:    target,
		GroupID:   &groupID,
		Success:   true,
		Details:   details,
	})
}

// --- Social Events ---

func (l *Logger) FriendRequestSent(ctx context.Context, sender, recipient, requestID primitive.ObjectID) {
	l.social(ctx, audit.EventFriendRequestSent, sender, recipient, map[string]string{"request_id": requestID.Hex()})
}

func (l *Logger) FriendRequestAccepted(ctx context.Context, recipient, sender, requestID primitive.ObjectID) {
	l.social(ctx, audit.EventFriendRequestAccepted, recipient, sender, map[string]string{"request_id": requestID.Hex()})
}

func (l *Logger) FriendRequestRejected(ctx context.Context, recipient, sender, requestID primitive.ObjectID) {
	l.social(ctx, audit.EventFriendRequestRejected, recipient, sender, map[string]string{"request_id": requestID.Hex()})
}

func (l *Logger) FriendRequestCanceled(ctx context.Context, sender, recipient, requestID primitive.ObjectID) {
	l.social(ctx, audit.EventFriendRequestCanceled, sender, recipient, map[string]string{"request_id": requestID.Hex()})
}

func (l *Logger) Unfriended(ctx context.Context, actor, friend primitive.ObjectID) {
	l.social(ctx, audit.EventUnfriended, actor, friend, nil)
}

// --- Group Events ---

func (l *Logger) GroupCreated(ctx context.Context, creator, groupID primitive.ObjectID, name string, memberCount int) {
	l.group(ctx, audit.EventGroupCreated, creator, groupID, nil, map[string]string{
		"name":    name,
		"members": strconv.Itoa(memberCount),
	})
}

func (l *Logger) GroupUpdated(ctx context.Context, actor, groupID primitive.ObjectID) {
	l.group(ctx, audit.EventGroupUpdated, actor, groupID, nil, nil)
}

func (l *Logger) GroupDeleted(ctx context.Context, actor, groupID primitive.ObjectID, name string) {
	l.group(ctx, audit.EventGroupDeleted, actor, groupID, nil, map[string]string{"name": name})
}

func (l *Logger) GroupMembersAdded(ctx context.Context, actor, groupID primitive.ObjectID, added []primitive.ObjectID) {
	l.group(ctx, audit.EventGroupMembersAdded, actor, groupID, nil, map[string]string{
		"added": strconv.Itoa(len(added)),
	})
}

// GroupLeft records a member leaving. deleted is true when the leave
// removed the group; newCreator is set when ownership moved.
func (l *Logger) GroupLeft(ctx context.Context, actor, groupID primitive.ObjectID, deleted bool, newCreator *primitive.ObjectID) {
	l.group(ctx, audit.EventGroupLeft, actor, groupID, nil, map[string]string{
		"group_deleted": strconv.FormatBool(deleted),
	})
	if newCreator != nil {
		l.group(ctx, audit.EventGroupCreatorChange, actor, groupID, newCreator, nil)
	}
}

func (l *Logger) GroupMemberKicked(ctx context.Context, actor, groupID, target primitive.ObjectID) {
	l.group(ctx, audit.EventGroupMemberKicked, actor, groupID, &target, nil)
}

// MirrorFailed records a required external call that aborted an operation.
func (l *Logger) MirrorFailed(ctx context.Context, eventType string, actor primitive.ObjectID, groupID *primitive.ObjectID, op string, err error) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryGroup,
		EventType:     eventType,
		ActorID:       &actor,
		GroupID:       groupID,
		Success:       false,
		FailureReason: err.Error(),
		Details:       map[string]string{"mirror_op": op},
	})
}
