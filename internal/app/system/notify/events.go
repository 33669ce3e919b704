// internal/app/system/notify/events.go
package notify

import (
	"time"

	"github.com/dalemusser/lingohub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event names pushed to clients.
const (
	EventFriendRequest         = "friendRequest"
	EventFriendRequestAccepted = "friendRequestAccepted"
	EventFriendRequestCanceled = "friendRequestCanceled"
	EventUnfriended            = "unfriended"
	EventGroupChatInvite       = "groupChatInvite"
	EventAddedToGroup          = "addedToGroup"
	EventKickedFromGroup       = "kickedFromGroup"
	EventGroupDeleted          = "groupDeleted"
)

// Envelope is the frame written to the push connection.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type FriendRequestPayload struct {
	RequestID primitive.ObjectID `json:"requestId"`
	Sender    models.UserSummary `json:"sender"`
	Timestamp time.Time          `json:"timestamp"`
}

type FriendRequestAcceptedPayload struct {
	RequestID primitive.ObjectID `json:"requestId"`
	Recipient models.UserSummary `json:"recipient"`
	Timestamp time.Time          `json:"timestamp"`
}

type FriendRequestCanceledPayload struct {
	RequestID primitive.ObjectID `json:"requestId"`
	Sender    models.UserSummary `json:"sender"`
	Timestamp time.Time          `json:"timestamp"`
}

// UnfriendedPayload names the other party of the removed friendship.
type UnfriendedPayload struct {
	UserID    primitive.ObjectID `json:"userId"`
	User      models.UserSummary `json:"user"`
	Timestamp time.Time          `json:"timestamp"`
}

type GroupChatInvitePayload struct {
	GroupID   primitive.ObjectID `json:"groupId"`
	GroupName string             `json:"groupName"`
	Creator   models.UserSummary `json:"creator"`
	Timestamp time.Time          `json:"timestamp"`
}

type AddedToGroupPayload struct {
	GroupID   primitive.ObjectID `json:"groupId"`
	GroupName string             `json:"groupName"`
	AddedBy   models.UserSummary `json:"addedBy"`
	Timestamp time.Time          `json:"timestamp"`
}

type KickedFromGroupPayload struct {
	GroupID   primitive.ObjectID `json:"groupId"`
	GroupName string             `json:"groupName"`
	KickedBy  models.UserSummary `json:"kickedBy"`
	Timestamp time.Time          `json:"timestamp"`
}

type GroupDeletedPayload struct {
	GroupID   primitive.ObjectID `json:"groupId"`
	GroupName string             `json:"groupName"`
	DeletedBy models.UserSummary `json:"deletedBy"`
	Timestamp time.Time          `json:"timestamp"`
}
