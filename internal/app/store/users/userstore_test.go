package userstore_test

import (
	"errors"
	"testing"

	userstore "github.com/dalemusser/lingohub/internal/app/store/users"
	"github.com/dalemusser/lingohub/internal/domain/models"
	"github.com/dalemusser/lingohub/internal/testutil"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func createUser(t *testing.T, store *userstore.Store, name string, onboarded bool) models.User {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, err := store.Create(ctx, models.User{FullName: name, IsOnboarded: onboarded})
	if err != nil {
		t.Fatalf("Create(%q) failed: %v", name, err)
	}
	return u
}

func TestStore_Create_NormalizesAndInitializesFriends(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := createUser(t, store, "  Zoë   Adams ", true)

	got, err := store.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.FullName != "Zoë Adams" {
		t.Errorf("FullName: got %q, want %q", got.FullName, "Zoë Adams")
	}
	if got.FullNameCI != text.Fold("Zoë Adams") {
		t.Errorf("FullNameCI: got %q, want %q", got.FullNameCI, text.Fold("Zoë Adams"))
	}
	if got.Friends == nil || len(got.Friends) != 0 {
		t.Errorf("Friends: got %v, want empty array", got.Friends)
	}
}

func TestStore_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.GetByID(ctx, primitive.NewObjectID())
	if !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("expected mongo.ErrNoDocuments, got %v", err)
	}
}

func TestStore_Friendship_Symmetric(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := createUser(t, store, "Ana", true)
	b := createUser(t, store, "Ben", true)

	if err := store.AddFriendship(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("AddFriendship failed: %v", err)
	}
	// idempotent
	if err := store.AddFriendship(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("second AddFriendship failed: %v", err)
	}

	for _, pair := range [][2]primitive.ObjectID{{a.ID, b.ID}, {b.ID, a.ID}} {
		ok, err := store.AreFriends(ctx, pair[0], pair[1])
		if err != nil {
			t.Fatalf("AreFriends failed: %v", err)
		}
		if !ok {
			t.Errorf("expected %s to list %s", pair[0].Hex(), pair[1].Hex())
		}
	}

	friends, err := store.ListFriends(ctx, a.ID)
	if err != nil {
		t.Fatalf("ListFriends failed: %v", err)
	}
	if len(friends) != 1 || friends[0].ID != b.ID {
		t.Errorf("ListFriends(a) = %+v, want [Ben]", friends)
	}

	if err := store.RemoveFriendship(ctx, b.ID, a.ID); err != nil {
		t.Fatalf("RemoveFriendship failed: %v", err)
	}
	if ok, _ := store.AreFriends(ctx, a.ID, b.ID); ok {
		t.Error("expected friendship removed from a")
	}
	if ok, _ := store.AreFriends(ctx, b.ID, a.ID); ok {
		t.Error("expected friendship removed from b")
	}
}

func TestStore_AreFriends_OneSided(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := createUser(t, store, "Ana", true)
	b := createUser(t, store, "Ben", true)
	c := createUser(t, store, "Cleo", true)
	if _, err := db.Collection("users").UpdateOne(ctx, bson.M{"_id": b.ID},
		bson.M{"$addToSet": bson.M{"friends": a.ID}}); err != nil {
		t.Fatalf("seed edge: %v", err)
	}

	for _, pair := range [][2]primitive.ObjectID{{a.ID, b.ID}, {b.ID, a.ID}} {
		if ok, err := store.AreFriends(ctx, pair[0], pair[1]); err != nil || !ok {
			t.Errorf("AreFriends(%s, %s) = %v, %v; want true", pair[0].Hex(), pair[1].Hex(), ok, err)
		}
	}
	if ok, _ := store.AreFriends(ctx, a.ID, c.ID); ok {
		t.Error("unrelated users reported as friends")
	}
}

func TestStore_AddFriendship_MissingUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := createUser(t, store, "Ana", true)
	err := store.AddFriendship(ctx, a.ID, primitive.NewObjectID())
	if !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("expected mongo.ErrNoDocuments, got %v", err)
	}
}

func TestStore_Recommended(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	me := createUser(t, store, "Me", true)
	friend := createUser(t, store, "Friend", true)
	stranger := createUser(t, store, "Stranger", true)
	createUser(t, store, "Not Onboarded", false)

	got, err := store.Recommended(ctx, me.ID, []primitive.ObjectID{friend.ID}, 10)
	if err != nil {
		t.Fatalf("Recommended failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != stranger.ID {
		t.Errorf("Recommended = %+v, want only Stranger", got)
	}
}

func TestStore_SearchAmong(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := createUser(t, store, "Jose Garcia", true)
	b := createUser(t, store, "Josephine Baker", true)
	c := createUser(t, store, "Mark Twain", true)
	outsider := createUser(t, store, "Joseph Outsider", true)
	ids := []primitive.ObjectID{a.ID, b.ID, c.ID}

	tests := []struct {
		query string
		want  int64
	}{
		{"", 3},
		{"JOSE", 2}, // case-folded: Jose and Josephine
		{"TWAIN", 1},
		{"x(", 0}, // regex metacharacters are literal
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, total, err := store.SearchAmong(ctx, ids, tt.query, 10)
			if err != nil {
				t.Fatalf("SearchAmong failed: %v", err)
			}
			if total != tt.want || int64(len(got)) != tt.want {
				t.Errorf("SearchAmong(%q) = %d results (total %d), want %d", tt.query, len(got), total, tt.want)
			}
			for _, s := range got {
				if s.ID == outsider.ID {
					t.Error("search leaked a user outside ids")
				}
			}
		})
	}

	got, total, err := store.SearchAmong(ctx, ids, "", 1)
	if err != nil {
		t.Fatalf("SearchAmong with limit failed: %v", err)
	}
	if len(got) != 1 || total != 3 {
		t.Errorf("limit 1: got %d results, total %d; want 1 and 3", len(got), total)
	}
}

func TestStore_GetSummaries_SkipsUnknown(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := createUser(t, store, "Ana", true)
	got, err := store.GetSummaries(ctx, []primitive.ObjectID{a.ID, primitive.NewObjectID()})
	if err != nil {
		t.Fatalf("GetSummaries failed: %v", err)
	}
	if len(got) != 1 || got[0].FullName != "Ana" {
		t.Errorf("GetSummaries = %+v", got)
	}

	n, err := store.CountExisting(ctx, []primitive.ObjectID{a.ID, primitive.NewObjectID()})
	if err != nil {
		t.Fatalf("CountExisting failed: %v", err)
	}
	if n != 1 {
		t.Errorf("CountExisting = %d, want 1", n)
	}
}
