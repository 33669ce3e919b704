// internal/app/system/chanmirror/nop.go
package chanmirror

import (
	"context"
	"errors"

	"github.com/dalemusser/lingohub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotConfigured is returned by Nop.UserToken.
var ErrNotConfigured = errors.New("chat provider not configured")

// Nop accepts every call without talking to a provider. Used when no
// provider credentials are configured.
type Nop struct{}

func (Nop) CreateChannel(_ context.Context, channelID string, _ primitive.ObjectID, _ []primitive.ObjectID, _ ChannelInfo) Result {
	return Result{Op: OpCreateChannel, ChannelID: channelID}
}

func (Nop) AddMembers(_ context.Context, channelID string, _ []primitive.ObjectID) Result {
	return Result{Op: OpAddMembers, ChannelID: channelID}
}

func (Nop) RemoveMember(_ context.Context, channelID string, _ primitive.ObjectID) Result {
	return Result{Op: OpRemoveMember, ChannelID: channelID}
}

func (Nop) UpdateChannel(_ context.Context, channelID string, _ ChannelUpdate) Result {
	return Result{Op: OpUpdateChannel, ChannelID: channelID}
}

func (Nop) DeleteChannel(_ context.Context, channelID string) Result {
	return Result{Op: OpDeleteChannel, ChannelID: channelID}
}

func (Nop) PostSystemMessage(_ context.Context, channelID, _ string) Result {
	return Result{Op: OpSystemMessage, ChannelID: channelID}
}

func (Nop) UpsertUser(context.Context, models.UserSummary) Result {
	return Result{Op: OpUpsertUser}
}

func (Nop) UserToken(primitive.ObjectID) (string, error) {
	return "", ErrNotConfigured
}
