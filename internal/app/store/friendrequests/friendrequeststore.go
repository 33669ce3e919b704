// internal/app/store/friendrequests/friendrequeststore.go
package friendrequeststore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/lingohub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicatePending is returned by Create when the pair already has a
// pending request in either direction.
var ErrDuplicatePending = errors.New("a pending friend request already exists for this pair")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("friend_requests")}
}

// Create inserts a pending request. The unique partial index on pair_key
// decides races between concurrent senders.
func (s *Store) Create(ctx context.Context, sender, recipient primitive.ObjectID) (models.FriendRequest, error) {
	now := time.Now().UTC()
	fr := models.FriendRequest{
		ID:        primitive.NewObjectID(),
		Sender:    sender,
		Recipient: recipient,
		Status:    models.FriendRequestPending,
		PairKey:   models.PairKey(sender, recipient),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, fr); err != nil {
		if wafflemongo.IsDup(err) {
			return models.FriendRequest{}, ErrDuplicatePending
		}
		return models.FriendRequest{}, err
	}
	return fr, nil
}

// GetByID loads a request. Returns mongo.ErrNoDocuments if absent.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.FriendRequest, error) {
	var fr models.FriendRequest
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&fr); err != nil {
		return nil, err
	}
	return &fr, nil
}

// FindPendingBetween returns the pending request between a and b in
// either direction. Returns mongo.ErrNoDocuments if there is none.
func (s *Store) FindPendingBetween(ctx context.Context, a, b primitive.ObjectID) (*models.FriendRequest, error) {
	var fr models.FriendRequest
	err := s.c.FindOne(ctx, bson.M{
		"pair_key": models.PairKey(a, b),
		"status":   models.FriendRequestPending,
	}).Decode(&fr)
	if err != nil {
		return nil, err
	}
	return &fr, nil
}

// Accept moves a pending request addressed to recipient to accepted and
// returns the updated request. Returns mongo.ErrNoDocuments when no
// pending request with that id is addressed to recipient.
func (s *Store) Accept(ctx context.Context, id, recipient primitive.ObjectID) (*models.FriendRequest, error) {
	var fr models.FriendRequest
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "recipient": recipient, "status": models.FriendRequestPending},
		bson.M{"$set": bson.M{
			"status":     models.FriendRequestAccepted,
			"updated_at": time.Now().UTC(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&fr)
	if err != nil {
		return nil, err
	}
	return &fr, nil
}

// DeletePendingForRecipient removes a pending request addressed to
// recipient. Returns mongo.ErrNoDocuments when nothing matched.
func (s *Store) DeletePendingForRecipient(ctx context.Context, id, recipient primitive.ObjectID) (*models.FriendRequest, error) {
	return s.deletePending(ctx, bson.M{"_id": id, "recipient": recipient})
}

// DeletePendingForSender removes a pending request sent by sender.
// Returns mongo.ErrNoDocuments when nothing matched.
func (s *Store) DeletePendingForSender(ctx context.Context, id, sender primitive.ObjectID) (*models.FriendRequest, error) {
	return s.deletePending(ctx, bson.M{"_id": id, "sender": sender})
}

func (s *Store) deletePending(ctx context.Context, filter bson.M) (*models.FriendRequest, error) {
	filter["status"] = models.FriendRequestPending
	var fr models.FriendRequest
	if err := s.c.FindOneAndDelete(ctx, filter).Decode(&fr); err != nil {
		return nil, err
	}
	return &fr, nil
}

// DeleteBetween removes every request between a and b regardless of
// direction or status.
func (s *Store) DeleteBetween(ctx context.Context, a, b primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"pair_key": models.PairKey(a, b)})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListIncomingPending returns pending requests addressed to user, newest first.
func (s *Store) ListIncomingPending(ctx context.Context, user primitive.ObjectID) ([]models.FriendRequest, error) {
	return s.list(ctx, bson.M{"recipient": user, "status": models.FriendRequestPending})
}

// ListOutgoingPending returns pending requests sent by user, newest first.
func (s *Store) ListOutgoingPending(ctx context.Context, user primitive.ObjectID) ([]models.FriendRequest, error) {
	return s.list(ctx, bson.M{"sender": user, "status": models.FriendRequestPending})
}

// ListAcceptedBySender returns requests user sent that were accepted.
func (s *Store) ListAcceptedBySender(ctx context.Context, user primitive.ObjectID) ([]models.FriendRequest, error) {
	return s.list(ctx, bson.M{"sender": user, "status": models.FriendRequestAccepted})
}

// CountPendingBetween counts pending requests for the pair. Used by tests
// and the invariant check.
func (s *Store) CountPendingBetween(ctx context.Context, a, b primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"pair_key": models.PairKey(a, b),
		"status":   models.FriendRequestPending,
	})
}

func (s *Store) list(ctx context.Context, filter bson.M) ([]models.FriendRequest, error) {
	cur, err := s.c.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.FriendRequest{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
