// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"regexp"
	"time"

	"github.com/dalemusser/lingohub/internal/app/system/normalize"
	"github.com/dalemusser/lingohub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// summaryProjection limits reads to the public profile card.
var summaryProjection = bson.M{
	"_id":               1,
	"full_name":         1,
	"profile_pic":       1,
	"native_language":   1,
	"learning_language": 1,
}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// Create inserts a profile. Friends always starts as an empty array so
// later $addToSet / $pull updates have a target.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.FullName = normalize.Name(u.FullName)
	u.FullNameCI = text.Fold(u.FullName)
	if u.Friends == nil {
		u.Friends = []primitive.ObjectID{}
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// GetByID loads a user. Returns mongo.ErrNoDocuments if absent.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetSummary loads the public card for id. Returns mongo.ErrNoDocuments if absent.
func (s *Store) GetSummary(ctx context.Context, id primitive.ObjectID) (models.UserSummary, error) {
	var u models.UserSummary
	err := s.c.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(summaryProjection)).Decode(&u)
	return u, err
}

// GetSummaries loads public cards for ids, ordered by name. Unknown ids
// are silently skipped.
func (s *Store) GetSummaries(ctx context.Context, ids []primitive.ObjectID) ([]models.UserSummary, error) {
	if len(ids) == 0 {
		return []models.UserSummary{}, nil
	}
	return s.findSummaries(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find())
}

// CountExisting returns how many of ids name existing users.
func (s *Store) CountExisting(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return s.c.CountDocuments(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

// AreFriends reports whether either user lists the other. A one-sided
// edge left by a failed non-transactional update still counts.
func (s *Store) AreFriends(ctx context.Context, a, b primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"$or": bson.A{
		bson.M{"_id": a, "friends": b},
		bson.M{"_id": b, "friends": a},
	}}, options.Count().SetLimit(1))
	return n > 0, err
}

// AddFriendship links a and b in both directions. Returns
// mongo.ErrNoDocuments if either user is gone. Run inside a transaction
// so the edge set stays symmetric.
func (s *Store) AddFriendship(ctx context.Context, a, b primitive.ObjectID) error {
	return s.updateEdges(ctx, a, b, "$addToSet")
}

// RemoveFriendship unlinks a and b in both directions. Missing edges are
// not an error.
func (s *Store) RemoveFriendship(ctx context.Context, a, b primitive.ObjectID) error {
	return s.updateEdges(ctx, a, b, "$pull")
}

func (s *Store) updateEdges(ctx context.Context, a, b primitive.ObjectID, op string) error {
	now := time.Now().UTC()
	for _, pair := range [2][2]primitive.ObjectID{{a, b}, {b, a}} {
		res, err := s.c.UpdateOne(ctx,
			bson.M{"_id": pair[0]},
			bson.M{
				op:     bson.M{"friends": pair[1]},
				"$set": bson.M{"updated_at": now},
			})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return mongo.ErrNoDocuments
		}
	}
	return nil
}

// ListFriends returns the public cards of id's friends.
func (s *Store) ListFriends(ctx context.Context, id primitive.ObjectID) ([]models.UserSummary, error) {
	var u struct {
		Friends []primitive.ObjectID `bson:"friends"`
	}
	err := s.c.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{"friends": 1})).Decode(&u)
	if err != nil {
		return nil, err
	}
	return s.GetSummaries(ctx, u.Friends)
}

// Recommended returns onboarded users other than id who are not in
// exclude, ordered by name.
func (s *Store) Recommended(ctx context.Context, id primitive.ObjectID, exclude []primitive.ObjectID, limit int64) ([]models.UserSummary, error) {
	nin := append([]primitive.ObjectID{id}, exclude...)
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return s.findSummaries(ctx, bson.M{
		"_id":          bson.M{"$nin": nin},
		"is_onboarded": true,
	}, opts)
}

// SearchAmong returns the cards of ids whose folded name contains query,
// plus the total number of matches before limit is applied. An empty
// query matches every id.
func (s *Store) SearchAmong(ctx context.Context, ids []primitive.ObjectID, query string, limit int64) ([]models.UserSummary, int64, error) {
	if len(ids) == 0 {
		return []models.UserSummary{}, 0, nil
	}
	filter := bson.M{"_id": bson.M{"$in": ids}}
	if q := normalize.Query(query); q != "" {
		filter["full_name_ci"] = bson.M{"$regex": regexp.QuoteMeta(q)}
	}

	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(limit)
	}
	out, err := s.findSummaries(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Store) findSummaries(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.UserSummary, error) {
	opts.SetProjection(summaryProjection).
		SetSort(bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}})

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.UserSummary{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
