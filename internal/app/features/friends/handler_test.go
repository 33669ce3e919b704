package friends_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/lingohub/internal/app/features/friends"
	"github.com/dalemusser/lingohub/internal/app/services/socialgraph"
	"github.com/dalemusser/lingohub/internal/app/store/audit"
	"github.com/dalemusser/lingohub/internal/app/system/apperr"
	"github.com/dalemusser/lingohub/internal/app/system/auditlog"
	"github.com/dalemusser/lingohub/internal/app/system/indexes"
	"github.com/dalemusser/lingohub/internal/domain/models"
	"github.com/dalemusser/lingohub/internal/testutil"
	"go.uber.org/zap"
)

func newHandler(t *testing.T) (*friends.Handler, *testutil.Fixtures, *testutil.RecordingNotifier) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	n := &testutil.RecordingNotifier{}
	svc := socialgraph.New(socialgraph.Deps{
		DB:       db,
		Notifier: n,
		Audit:    auditlog.New(audit.New(db), zap.NewNop(), auditlog.Config{Social: auditlog.DestDB}),
		Log:      zap.NewNop(),
	})
	return friends.NewHandler(svc, zap.NewNop()), testutil.NewFixtures(t, db), n
}

func TestHandleSend(t *testing.T) {
	h, fx, _ := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fx.CreateUser(ctx, "Alice")
	b := fx.CreateUser(ctx, "Bob")

	req := testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("POST", "/api/users/friend-request/"+b.ID.Hex(), a), "id", b.ID.Hex())
	rec := testutil.NewRecorder()
	h.HandleSend(rec, req)
	rec.AssertStatus(t, http.StatusCreated)

	var fr models.FriendRequest
	rec.DecodeJSON(t, &fr)
	if fr.Status != models.FriendRequestPending || fr.Recipient != b.ID {
		t.Errorf("body = %+v", fr)
	}

	// Reverse direction is a duplicate attributed as incoming.
	req = testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("POST", "/", b), "id", a.ID.Hex())
	rec = testutil.NewRecorder()
	h.HandleSend(rec, req)
	rec.AssertStatus(t, http.StatusConflict)

	var resp apperr.Response
	rec.DecodeJSON(t, &resp)
	if resp.Code != apperr.CodeDuplicatePending || resp.Direction != apperr.DirectionIncoming || resp.RequestID != fr.ID.Hex() {
		t.Errorf("duplicate body = %+v", resp)
	}
}

func TestHandleSend_Errors(t *testing.T) {
	h, fx, _ := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	a := fx.CreateUser(ctx, "Alice")

	tests := []struct {
		name   string
		req    *http.Request
		status int
		code   string
	}{
		{
			name:   "no session",
			req:    testutil.WithChiURLParam(testutil.NewRequest("POST", "/"), "id", a.ID.Hex()),
			status: http.StatusUnauthorized,
			code:   apperr.CodeUnauthorized,
		},
		{
			name:   "bad id",
			req:    testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("POST", "/", a), "id", "nope"),
			status: http.StatusBadRequest,
			code:   apperr.CodeInvalidID,
		},
		{
			name:   "self",
			req:    testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("POST", "/", a), "id", a.ID.Hex()),
			status: http.StatusBadRequest,
			code:   apperr.CodeSelfRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			h.HandleSend(rec, tt.req)
			rec.AssertStatus(t, tt.status)
			var resp apperr.Response
			rec.DecodeJSON(t, &resp)
			if resp.Code != tt.code {
				t.Errorf("code = %q, want %q", resp.Code, tt.code)
			}
		})
	}
}

func TestAcceptThenList(t *testing.T) {
	h, fx, _ := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fx.CreateUser(ctx, "Alice")
	b := fx.CreateUser(ctx, "Bob")

	rec := testutil.NewRecorder()
	h.HandleSend(rec, testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("POST", "/", a), "id", b.ID.Hex()))
	rec.AssertStatus(t, http.StatusCreated)
	var fr models.FriendRequest
	rec.DecodeJSON(t, &fr)

	rec = testutil.NewRecorder()
	h.ServeFriendRequests(rec, testutil.NewAuthenticatedRequest("GET", "/api/users/friend-requests", b))
	rec.AssertStatus(t, http.StatusOK)
	var lists socialgraph.RequestLists
	rec.DecodeJSON(t, &lists)
	if len(lists.Incoming) != 1 || lists.Incoming[0].Sender.FullName != "Alice" {
		t.Fatalf("incoming = %+v", lists.Incoming)
	}

	rec = testutil.NewRecorder()
	h.HandleAccept(rec, testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("PUT", "/", b), "id", fr.ID.Hex()))
	rec.AssertStatus(t, http.StatusOK)

	rec = testutil.NewRecorder()
	h.HandleAccept(rec, testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("PUT", "/", b), "id", fr.ID.Hex()))
	rec.AssertStatus(t, http.StatusNotFound)

	rec = testutil.NewRecorder()
	h.ServeFriends(rec, testutil.NewAuthenticatedRequest("GET", "/api/users/friends", a))
	rec.AssertStatus(t, http.StatusOK)
	var list []models.UserSummary
	rec.DecodeJSON(t, &list)
	if len(list) != 1 || list[0].ID != b.ID {
		t.Errorf("friends = %+v", list)
	}

	rec = testutil.NewRecorder()
	h.HandleRemove(rec, testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("DELETE", "/", a), "id", b.ID.Hex()))
	rec.AssertStatus(t, http.StatusOK)

	rec = testutil.NewRecorder()
	h.ServeFriends(rec, testutil.NewAuthenticatedRequest("GET", "/api/users/friends", b))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "[]")
}

func TestRejectAndCancel(t *testing.T) {
	h, fx, n := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fx.CreateUser(ctx, "Alice")
	b := fx.CreateUser(ctx, "Bob")
	c := fx.CreateUser(ctx, "Cara")

	send := func(from models.User, to models.User) models.FriendRequest {
		rec := testutil.NewRecorder()
		h.HandleSend(rec, testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("POST", "/", from), "id", to.ID.Hex()))
		rec.AssertStatus(t, http.StatusCreated)
		var fr models.FriendRequest
		rec.DecodeJSON(t, &fr)
		return fr
	}
	toB := send(a, b)
	toC := send(a, c)

	rec := testutil.NewRecorder()
	h.ServeOutgoing(rec, testutil.NewAuthenticatedRequest("GET", "/", a))
	rec.AssertStatus(t, http.StatusOK)
	var out []socialgraph.RequestView
	rec.DecodeJSON(t, &out)
	if len(out) != 2 {
		t.Fatalf("outgoing = %+v", out)
	}

	rec = testutil.NewRecorder()
	h.HandleReject(rec, testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("DELETE", "/", a), "id", toB.ID.Hex()))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	h.HandleReject(rec, testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("DELETE", "/", b), "id", toB.ID.Hex()))
	rec.AssertStatus(t, http.StatusOK)

	rec = testutil.NewRecorder()
	h.HandleCancel(rec, testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("DELETE", "/", a), "id", toC.ID.Hex()))
	rec.AssertStatus(t, http.StatusOK)

	if ev := n.Events(c.ID); len(ev) != 2 {
		t.Errorf("c events = %v", ev)
	}
}

func TestServeActivity(t *testing.T) {
	h, fx, _ := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fx.CreateUser(ctx, "Alice")
	b := fx.CreateUser(ctx, "Bob")
	if _, err := h.Svc.SendFriendRequest(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("SendFriendRequest failed: %v", err)
	}

	rec := testutil.NewRecorder()
	h.ServeActivity(rec, testutil.NewAuthenticatedRequest("GET", "/api/users/activity?page=oops", b))
	rec.AssertStatus(t, http.StatusOK)
	var page audit.Page
	rec.DecodeJSON(t, &page)
	if page.Page != 1 || page.Total != 1 || len(page.Events) != 1 {
		t.Fatalf("page = %+v", page)
	}
	rec.AssertContains(t, `"eventType":"friend_request_sent"`)

	rec = testutil.NewRecorder()
	h.ServeActivity(rec, testutil.NewRequest("GET", "/api/users/activity"))
	rec.AssertStatus(t, http.StatusUnauthorized)
}
