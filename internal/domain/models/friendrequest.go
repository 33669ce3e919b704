// internal/domain/models/friendrequest.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Friend request statuses. Rejected and canceled requests are deleted,
// so there is no status for them.
const (
	FriendRequestPending  = "pending"
	FriendRequestAccepted = "accepted"
)

// FriendRequest is one sender → recipient request.
//
// PairKey is the same for both directions of a pair; a unique partial index
// on pair_key (status = pending) keeps at most one pending request per pair.
type FriendRequest struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Sender    primitive.ObjectID `bson:"sender" json:"sender"`
	Recipient primitive.ObjectID `bson:"recipient" json:"recipient"`
	Status    string             `bson:"status" json:"status"`
	PairKey   string             `bson:"pair_key" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// IsPending reports whether the request still awaits the recipient.
func (fr FriendRequest) IsPending() bool { return fr.Status == FriendRequestPending }

// PairKey returns the order-independent key for the pair (a, b).
func PairKey(a, b primitive.ObjectID) string {
	ah, bh := a.Hex(), b.Hex()
	if ah > bh {
		ah, bh = bh, ah
	}
	return ah + ":" + bh
}
