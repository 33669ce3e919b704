// internal/domain/models/groupchat.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group chat limits and defaults.
const (
	GroupNameMaxLen        = 50
	GroupDescriptionMaxLen = 200
	DefaultGroupMaxMembers = 50
	DefaultGroupAvatar     = "/groupchat.png"
)

// GroupChat is a multi-user chat mirrored by one provider channel.
//
// NOTE:
//   - Members keeps join order (creator first). $addToSet appends, so the
//     first element after a removal is the earliest-joined remaining member.
//   - Admins is a subset of Members.
//   - ChannelID is assigned at creation and never changes.
type GroupChat struct {
	ID          primitive.ObjectID   `bson:"_id" json:"_id"`
	Name        string               `bson:"name" json:"name"`
	Description string               `bson:"description" json:"description"`
	Avatar      string               `bson:"avatar" json:"avatar"`
	Creator     primitive.ObjectID   `bson:"creator" json:"creator"`
	Members     []primitive.ObjectID `bson:"members" json:"members"`
	Admins      []primitive.ObjectID `bson:"admins" json:"admins"`
	ChannelID   string               `bson:"channel_id" json:"streamChannelId"`
	MaxMembers  int                  `bson:"max_members" json:"maxMembers"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// IsMember reports whether id is in the member set.
func (g GroupChat) IsMember(id primitive.ObjectID) bool { return containsID(g.Members, id) }

// IsAdmin reports whether id is in the admin set.
func (g GroupChat) IsAdmin(id primitive.ObjectID) bool { return containsID(g.Admins, id) }

// IsCreator reports whether id is the current creator.
func (g GroupChat) IsCreator(id primitive.ObjectID) bool { return g.Creator == id }

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
