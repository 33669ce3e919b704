// internal/app/store/groupchats/groupchatstore.go
package groupchatstore

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

// Guard failures. When a guarded update matches nothing the store re-reads
// the group to say which guard failed; a missing group is reported as
// mongo.ErrNoDocuments.
var (
	ErrNotAdmin            = errors.New("actor is not an admin of this group")
	ErrNotMember           = errors.New("user is not a member of this group")
	ErrNotCreator          = errors.New("actor is not the creator of this group")
	ErrCapExceeded         = errors.New("group member cap exceeded")
	ErrCannotRemoveCreator = errors.New("the creator cannot be removed")
	ErrDuplicateChannel    = errors.New("channel id already in use")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("group_chats")}
}

// Create inserts g. Members and Admins must already be deduplicated with
// the creator first.
func (s *Store) Create(ctx context.Context, g models.GroupChat) (models.GroupChat, error) {
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	if g.MaxMembers <= 0 {
		g.MaxMembers = models.DefaultGroupMaxMembers
	}
	now := time.Now().UTC()
	g.CreatedAt, g.UpdatedAt = now, now

	if _, err := s.c.InsertOne(ctx, g); err != nil {
		if wafflemongo.IsDup(err) {
			return models.GroupChat{}, ErrDuplicateChannel
		}
		return models.GroupChat{}, err
	}
	return g, nil
}

// GetByID loads a group. Returns mongo.ErrNoDocuments if absent.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.GroupChat, error) {
	var g models.GroupChat
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Delete removes a group unconditionally. Used to compensate a failed create.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// ListByMember returns the groups user belongs to, most recently updated first.
func (s *Store) ListByMember(ctx context.Context, user primitive.ObjectID) ([]models.GroupChat, error) {
	cur, err := s.c.Find(ctx, bson.M{"members": user},
		options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.GroupChat{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddMembers appends ids to the member set when actor is an admin and the
// resulting set fits max_members. It returns the ids that were not already
// members; an empty result means nothing changed.
func (s *Store) AddMembers(ctx context.Context, groupID, actor primitive.ObjectID, ids []primitive.ObjectID) ([]primitive.ObjectID, *models.GroupChat, error) {
	filter := bson.M{
		"_id":    groupID,
		"admins": actor,
		"$expr": bson.M{"$lte": bson.A{
			bson.M{"$size": bson.M{"$setUnion": bson.A{"$members", ids}}},
			bson.M{"$ifNull": bson.A{"$max_members", models.DefaultGroupMaxMembers}},
		}},
	}
	update := bson.M{
		"$addToSet": bson.M{"members": bson.M{"$each": ids}},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	}

	var before models.GroupChat
	err := s.c.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.Before)).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil, s.diagnose(ctx, groupID, func(g *models.GroupChat) error {
			if !g.IsAdmin(actor) {
				return ErrNotAdmin
			}
			return ErrCapExceeded
		})
	}
	if err != nil {
		return nil, nil, err
	}

	added := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if !before.IsMember(id) {
			added = append(added, id)
		}
	}
	after := before
	after.Members = append(append([]primitive.ObjectID{}, before.Members...), added...)
	return added, &after, nil
}

// RemoveMember pulls target from members and admins when actor is an
// admin, target is a member and target is not the creator.
func (s *Store) RemoveMember(ctx context.Context, groupID, actor, target primitive.ObjectID) (*models.GroupChat, error) {
	filter := bson.M{
		"_id":     groupID,
		"admins":  actor,
		"members": target,
		"creator": bson.M{"$ne": target},
	}
	update := bson.M{
		"$pull": bson.M{"members": target, "admins": target},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}

	var after models.GroupChat
	err := s.c.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&after)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, s.diagnose(ctx, groupID, func(g *models.GroupChat) error {
			switch {
			case !g.IsAdmin(actor):
				return ErrNotAdmin
			case g.IsCreator(target):
				return ErrCannotRemoveCreator
			default:
				return ErrNotMember
			}
		})
	}
	if err != nil {
		return nil, err
	}
	return &after, nil
}

// LeaveOutcome describes what Leave did.
type LeaveOutcome struct {
	// Before is the group as it was before the leave.
	Before models.GroupChat
	// Deleted is true when the leaver was the last member.
	Deleted bool
	// NewCreator is set when the leaver was the creator and the group survived.
	NewCreator *primitive.ObjectID
}

// Leave removes user from the group. A sole member's leave deletes the
// group. A creator's leave hands ownership to the earliest-joined
// remaining member, who also becomes an admin.
func (s *Store) Leave(ctx context.Context, groupID, user primitive.ObjectID) (LeaveOutcome, error) {
	// Sole member: delete outright.
	var sole models.GroupChat
	err := s.c.FindOneAndDelete(ctx, bson.M{
		"_id":     groupID,
		"members": bson.M{"$size": 1, "$all": bson.A{user}},
	}).Decode(&sole)
	if err == nil {
		return LeaveOutcome{Before: sole, Deleted: true}, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return LeaveOutcome{}, err
	}

	notUser := func(field string) bson.M {
		return bson.M{"$filter": bson.M{
			"input": "$" + field,
			"cond":  bson.M{"$ne": bson.A{"$$this", user}},
		}}
	}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"members": notUser("members"),
			"admins":  notUser("admins"),
		}}},
		{{Key: "$set", Value: bson.M{
			"creator": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$creator", user}},
				bson.M{"$arrayElemAt": bson.A{"$members", 0}},
				"$creator",
			}},
		}}},
		{{Key: "$set", Value: bson.M{
			"admins": bson.M{"$cond": bson.A{
				bson.M{"$in": bson.A{"$creator", "$admins"}},
				"$admins",
				bson.M{"$concatArrays": bson.A{"$admins", bson.A{"$creator"}}},
			}},
			"updated_at": time.Now().UTC(),
		}}},
	}

	var before models.GroupChat
	err = s.c.FindOneAndUpdate(ctx, bson.M{"_id": groupID, "members": user}, pipeline,
		options.FindOneAndUpdate().SetReturnDocument(options.Before)).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return LeaveOutcome{}, s.diagnose(ctx, groupID, func(*models.GroupChat) error { return ErrNotMember })
	}
	if err != nil {
		return LeaveOutcome{}, err
	}

	out := LeaveOutcome{Before: before}
	remaining := withoutID(before.Members, user)
	if len(remaining) == 0 {
		// Others left between the two steps; drop the now empty group.
		if _, err := s.c.DeleteOne(ctx, bson.M{"_id": groupID, "members": bson.M{"$size": 0}}); err != nil {
			return LeaveOutcome{}, err
		}
		out.Deleted = true
		return out, nil
	}
	if before.Creator == user {
		heir := remaining[0]
		out.NewCreator = &heir
	}
	return out, nil
}

// UpdateInfo applies set to the group when actor is an admin.
func (s *Store) UpdateInfo(ctx context.Context, groupID, actor primitive.ObjectID, set bson.M) (*models.GroupChat, error) {
	fields := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range set {
		fields[k] = v
	}

	var after models.GroupChat
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": groupID, "admins": actor},
		bson.M{"$set": fields},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&after)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, s.diagnose(ctx, groupID, func(*models.GroupChat) error { return ErrNotAdmin })
	}
	if err != nil {
		return nil, err
	}
	return &after, nil
}

// DeleteByCreator removes the group when actor is its current creator and
// returns the deleted record.
func (s *Store) DeleteByCreator(ctx context.Context, groupID, actor primitive.ObjectID) (*models.GroupChat, error) {
	var g models.GroupChat
	err := s.c.FindOneAndDelete(ctx, bson.M{"_id": groupID, "creator": actor}).Decode(&g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, s.diagnose(ctx, groupID, func(*models.GroupChat) error { return ErrNotCreator })
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// diagnose explains why a guarded update matched nothing.
func (s *Store) diagnose(ctx context.Context, groupID primitive.ObjectID, why func(*models.GroupChat) error) error {
	g, err := s.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	return why(g)
}

func withoutID(ids []primitive.ObjectID, drop primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}
