package chattoken_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/lingohub/internal/app/features/chattoken"
	"github.com/dalemusser/lingohub/internal/app/system/chanmirror"
	"github.com/dalemusser/lingohub/internal/domain/models"
	"github.com/dalemusser/lingohub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestServeToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateUser(ctx, "Ana")
	m := testutil.NewFakeMirror()
	h := chattoken.NewHandler(db, m, zap.NewNop())

	rec := testutil.NewRecorder()
	h.ServeToken(rec, testutil.NewAuthenticatedRequest("GET", "/api/chat/token", u))
	rec.AssertStatus(t, http.StatusOK)

	var body struct {
		Token string `json:"token"`
	}
	rec.DecodeJSON(t, &body)
	if body.Token != "token-"+u.ID.Hex() {
		t.Errorf("token = %q", body.Token)
	}
	upserts := m.CallsFor(chanmirror.OpUpsertUser)
	if len(upserts) != 1 || upserts[0].Text != "Ana" {
		t.Errorf("upserts = %+v", upserts)
	}
}

func TestServeToken_Errors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := fx.CreateUser(ctx, "Ana")

	t.Run("unknown user", func(t *testing.T) {
		h := chattoken.NewHandler(db, testutil.NewFakeMirror(), zap.NewNop())
		rec := testutil.NewRecorder()
		h.ServeToken(rec, testutil.NewAuthenticatedRequest("GET", "/", models.User{ID: primitive.NewObjectID()}))
		rec.AssertStatus(t, http.StatusNotFound)
	})

	t.Run("provider unavailable", func(t *testing.T) {
		h := chattoken.NewHandler(db, chanmirror.Nop{}, zap.NewNop())
		rec := testutil.NewRecorder()
		h.ServeToken(rec, testutil.NewAuthenticatedRequest("GET", "/", u))
		rec.AssertStatus(t, http.StatusBadGateway)
	})

	t.Run("no session", func(t *testing.T) {
		h := chattoken.NewHandler(db, testutil.NewFakeMirror(), zap.NewNop())
		rec := testutil.NewRecorder()
		h.ServeToken(rec, testutil.NewRequest("GET", "/"))
		rec.AssertStatus(t, http.StatusUnauthorized)
	})
}
