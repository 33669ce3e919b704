package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/lingohub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Calling it again on the returned request adds to the same route context.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	if rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context); ok && rctx != nil {
		rctx.URLParams.Add(key, value)
		return r
	}
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts an onboarded user with the given display name.
func (f *Fixtures) CreateUser(ctx context.Context, name string) models.User {
	f.t.Helper()
	return f.CreateUserWith(ctx, models.User{FullName: name, IsOnboarded: true})
}

// CreateUserWith inserts u, filling in the id, folded name and timestamps.
func (f *Fixtures) CreateUserWith(ctx context.Context, u models.User) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.FullNameCI = text.Fold(u.FullName)
	if u.ProfilePic == "" {
		u.ProfilePic = "https://avatar.iran.liara.run/public/1.png"
	}
	if u.NativeLanguage == "" {
		u.NativeLanguage = "english"
	}
	if u.LearningLanguage == "" {
		u.LearningLanguage = "spanish"
	}
	if u.Friends == nil {
		u.Friends = []primitive.ObjectID{}
	}
	u.CreatedAt, u.UpdatedAt = now, now

	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// MakeFriends links a and b directly, without a request.
func (f *Fixtures) MakeFriends(ctx context.Context, a, b primitive.ObjectID) {
	f.t.Helper()

	users := f.db.Collection("users")
	for _, pair := range [][2]primitive.ObjectID{{a, b}, {b, a}} {
		_, err := users.UpdateOne(ctx, bson.M{"_id": pair[0]},
			bson.M{"$addToSet": bson.M{"friends": pair[1]}})
		if err != nil {
			f.t.Fatalf("failed to link friends: %v", err)
		}
	}
}

// CreateGroupChat inserts a group owned by creator whose members are the
// creator followed by members.
func (f *Fixtures) CreateGroupChat(ctx context.Context, name string, creator primitive.ObjectID, members ...primitive.ObjectID) models.GroupChat {
	f.t.Helper()

	now := time.Now().UTC()
	g := models.GroupChat{
		ID:         primitive.NewObjectID(),
		Name:       name,
		Avatar:     models.DefaultGroupAvatar,
		Creator:    creator,
		Members:    append([]primitive.ObjectID{creator}, members...),
		Admins:     []primitive.ObjectID{creator},
		ChannelID:  "group-test-" + primitive.NewObjectID().Hex(),
		MaxMembers: models.DefaultGroupMaxMembers,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection("group_chats").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("failed to create test group chat: %v", err)
	}
	return g
}

// LoadGroupChat reads a group back, failing the test if it is missing.
func (f *Fixtures) LoadGroupChat(ctx context.Context, id primitive.ObjectID) models.GroupChat {
	f.t.Helper()

	var g models.GroupChat
	if err := f.db.Collection("group_chats").FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		f.t.Fatalf("failed to load group chat %s: %v", id.Hex(), err)
	}
	return g
}

// LoadUser reads a user back, failing the test if it is missing.
func (f *Fixtures) LoadUser(ctx context.Context, id primitive.ObjectID) models.User {
	f.t.Helper()

	var u models.User
	if err := f.db.Collection("users").FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		f.t.Fatalf("failed to load user %s: %v", id.Hex(), err)
	}
	return u
}
