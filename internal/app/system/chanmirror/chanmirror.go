// internal/app/system/chanmirror/chanmirror.go
// Package chanmirror keeps the external chat provider's channel state in
// step with the group chat records stored locally. Every call returns a
// Result so the caller decides whether a failure is fatal or swallowed.
package chanmirror

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/lingohub/internal/app/system/metrics"
	"github.com/dalemusser/lingohub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Operation names, used for logs and metrics labels.
const (
	OpCreateChannel = "create_channel"
	OpAddMembers    = "add_members"
	OpRemoveMember  = "remove_member"
	OpUpdateChannel = "update_channel"
	OpDeleteChannel = "delete_channel"
	OpSystemMessage = "system_message"
	OpUpsertUser    = "upsert_user"
)

// SystemUserID authors system messages posted into mirrored channels.
const SystemUserID = "system"

// ChannelInfo is the descriptive data attached to a mirrored channel.
type ChannelInfo struct {
	Name        string
	Description string
	Image       string
}

// ChannelUpdate carries only the fields that changed. Nil means untouched.
type ChannelUpdate struct {
	Name        *string
	Description *string
}

// Empty reports whether the update changes nothing.
func (u ChannelUpdate) Empty() bool { return u.Name == nil && u.Description == nil }

// Mirror is the external channel provider.
type Mirror interface {
	CreateChannel(ctx context.Context, channelID string, creator primitive.ObjectID, members []primitive.ObjectID, info ChannelInfo) Result
	AddMembers(ctx context.Context, channelID string, members []primitive.ObjectID) Result
	RemoveMember(ctx context.Context, channelID string, member primitive.ObjectID) Result
	UpdateChannel(ctx context.Context, channelID string, update ChannelUpdate) Result
	DeleteChannel(ctx context.Context, channelID string) Result
	PostSystemMessage(ctx context.Context, channelID, text string) Result
	UpsertUser(ctx context.Context, user models.UserSummary) Result

	// UserToken issues a client token for userID.
	UserToken(userID primitive.ObjectID) (string, error)
}

// Result is the outcome of one mirror call.
type Result struct {
	Op        string
	ChannelID string
	Err       error
}

// OK reports whether the call succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Swallow logs a failed best-effort call and reports whether it failed.
func (r Result) Swallow(log *zap.Logger) bool {
	if r.Err == nil {
		return false
	}
	log.Warn("channel mirror call failed; continuing",
		zap.String("op", r.Op),
		zap.String("channel_id", r.ChannelID),
		zap.Error(r.Err))
	metrics.MirrorFailure(r.Op, metrics.Swallowed)
	return true
}

// Fatal logs a failed required call and reports whether it failed.
func (r Result) Fatal(log *zap.Logger) bool {
	if r.Err == nil {
		return false
	}
	log.Error("channel mirror call failed",
		zap.String("op", r.Op),
		zap.String("channel_id", r.ChannelID),
		zap.Error(r.Err))
	metrics.MirrorFailure(r.Op, metrics.Fatal)
	return true
}

// NewChannelID returns a fresh provider channel identifier of the form
// group-<unix millis>-<9 random chars>.
func NewChannelID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return "group-" + strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + suffix
}

// AddedMessage is posted once per newly added member.
func AddedMessage(name string) string { return name + " has been added to the group" }

// LeftMessage is posted when a member leaves.
func LeftMessage(name string) string { return name + " has left the group" }

// KickedMessage is posted when a member is removed by an admin.
func KickedMessage(target, actor string) string {
	return target + " was kicked from the group by " + actor
}
