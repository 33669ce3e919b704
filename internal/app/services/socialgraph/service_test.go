package socialgraph_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/lingohub/internal/app/services/socialgraph"
	"github.com/dalemusser/lingohub/internal/app/store/audit"
	"github.com/dalemusser/lingohub/internal/app/system/apperr"
	"github.com/dalemusser/lingohub/internal/app/system/auditlog"
	"github.com/dalemusser/lingohub/internal/app/system/indexes"
	"github.com/dalemusser/lingohub/internal/app/system/notify"
	"github.com/dalemusser/lingohub/internal/app/system/ratelimit"
	"github.com/dalemusser/lingohub/internal/domain/models"
	"github.com/dalemusser/lingohub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type env struct {
	svc      *socialgraph.Service
	fx       *testutil.Fixtures
	notifier *testutil.RecordingNotifier
	db       *mongo.Database
}

func setup(t *testing.T, limiter *ratelimit.Limiter) env {
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
		Limiter:  limiter,
		Audit:    auditlog.New(audit.New(db), zap.NewNop(), auditlog.Config{Social: auditlog.DestDB}),
		Log:      zap.NewNop(),
	})
	return env{svc: svc, fx: testutil.NewFixtures(t, db), notifier: n, db: db}
}

func wantErr(t *testing.T, err error, kind apperr.Kind, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s/%s error, got nil", kind, code)
	}
	if got := apperr.KindOf(err); got != kind {
		t.Fatalf("kind: got %q, want %q (%v)", got, kind, err)
	}
	if code != "" && apperr.CodeOf(err) != code {
		t.Fatalf("code: got %q, want %q", apperr.CodeOf(err), code)
	}
}

func TestSendFriendRequest(t *testing.T) {
	e := setup(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := e.fx.CreateUser(ctx, "Alice Walker")
	b := e.fx.CreateUser(ctx, "Bob Stone")

	fr, err := e.svc.SendFriendRequest(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("SendFriendRequest failed: %v", err)
	}
	if fr.Status != models.FriendRequestPending || fr.Sender != a.ID || fr.Recipient != b.ID {
		t.Errorf("unexpected request: %+v", fr)
	}

	got := e.notifier.For(b.ID)
	if len(got) != 1 || got[0].Event != notify.EventFriendRequest {
		t.Fatalf("recipient notifications = %+v", got)
	}
	p, ok := got[0].Payload.(notify.FriendRequestPayload)
	if !ok || p.Sender.ID != a.ID || p.Sender.FullName != "Alice Walker" || p.RequestID != fr.ID {
		t.Errorf("payload = %+v", got[0].Payload)
	}
	if len(e.notifier.For(a.ID)) != 0 {
		t.Error("sender should not be notified")
	}
}

func TestSendFriendRequest_Rejections(t *testing.T) {
	e := setup(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := e.fx.CreateUser(ctx, "Alice")
	b := e.fx.CreateUser(ctx, "Bob")
	e.fx.MakeFriends(ctx, a.ID, b.ID)

	t.Run("self", func(t *testing.T) {
		_, err := e.svc.SendFriendRequest(ctx, a.ID, a.ID)
		wantErr(t, err, apperr.KindValidation, apperr.CodeSelfRequest)
	})
	t.Run("missing recipient", func(t *testing.T) {
		_, err := e.svc.SendFriendRequest(ctx, a.ID, primitive.NewObjectID())
		wantErr(t, err, apperr.KindNotFound, "")
	})
	t.Run("already friends", func(t *testing.T) {
		_, err := e.svc.SendFriendRequest(ctx, a.ID, b.ID)
		wantErr(t, err, apperr.KindConflict, apperr.CodeAlreadyFriends)
	})
	if len(e.notifier.All()) != 0 {
		t.Errorf("no notification expected, got %+v", e.notifier.All())
	}
}

func TestSendFriendRequest_OneSidedEdgeCountsAsFriends(t *testing.T) {
	e := setup(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := e.fx.CreateUser(ctx, "Alice")
	b := e.fx.CreateUser(ctx, "Bob")
	// Only a lists b, as after a half-applied friendship update.
	if _, err := e.db.Collection("users").UpdateOne(ctx, bson.M{"_id": a.ID},
		bson.M{"$addToSet": bson.M{"friends": b.ID}}); err != nil {
		t.Fatalf("seed edge: %v", err)
	}

	for _, pair := range [][2]primitive.ObjectID{{a.ID, b.ID}, {b.ID, a.ID}} {
		_, err := e.svc.SendFriendRequest(ctx, pair[0], pair[1])
		wantErr(t, err, apperr.KindConflict, apperr.CodeAlreadyFriends)
	}
	n, err := e.db.Collection("friend_requests").CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("no request should be stored, got %d", n)
	}
}

func TestSendFriendRequest_DuplicateAttributesDirection(t *testing.T) {
	e := setup(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := e.fx.CreateUser(ctx, "Alice")
	b := e.fx.CreateUser(ctx, "Bob")

	fr, err := e.svc.SendFriendRequest(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("SendFriendRequest failed: %v", err)
	}

	tests := []struct {
		name     string
		from, to primitive.ObjectID
		dir      apperr.Direction
	}{
		{"same direction", a.ID, b.ID, apperr.DirectionOutgoing},
		{"reverse direction", b.ID, a.ID, apperr.DirectionIncoming},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.SendFriendRequest(ctx, tt.from, tt.to)
			wantErr(t, err, apperr.KindConflict, apperr.CodeDuplicatePending)
			ae, _ := apperr.As(err)
			if ae.Direction != tt.dir {
				t.Errorf("direction: got %q, want %q", ae.Direction, tt.dir)
			}
			if ae.RequestID != fr.ID {
				t.Errorf("request id: got %s, want %s", ae.RequestID.Hex(), fr.ID.Hex())
			}
		})
	}
}

func TestSendFriendRequest_ConcurrentOpposingLeavesOnePending(t *testing.T) {
	e := setup(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := e.fx.CreateUser(ctx, "Alice")
	b := e.fx.CreateUser(ctx, "Bob")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, pair := range [][2]primitive.ObjectID{{a.ID, b.ID}, {b.ID, a.ID}} {
		wg.Add(1)
		go func(i int, from, to primitive.ObjectID) {
			defer wg.Done()
			_, errs[i] = e.svc.SendFriendRequest(ctx, from, to)
		}(i, pair[0], pair[1])
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		wantErr(t, err, apperr.KindConflict, apperr.CodeDuplicatePending)
	}
	if ok != 1 {
		t.Fatalf("expected exactly one success, got %d (%v)", ok, errs)
	}
	n, err := e.db.Collection("friend_requests").CountDocuments(ctx, bson.M{"status": models.FriendRequestPending})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("pending requests = %d, want 1", n)
	}
}

func TestSendFriendRequest_RateLimited(t *testing.T) {
	limiter := ratelimit.New(2, time.Minute)
	defer limiter.Stop()
	e := setup(t, limiter)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := e.fx.CreateUser(ctx, "Alice")
	for i := 0; i < 2; i++ {
		other := e.fx.CreateUser(ctx, "Friend")
		if _, err := e.svc.SendFriendRequest(ctx, a.ID, other.ID); err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
	}
	third := e.fx.CreateUser(ctx, "Third")
	_, err := e.svc.SendFriendRequest(ctx, a.ID, third.ID)
	wantErr(t, err, apperr.KindTooManyRequests, apperr.CodeRateLimited)

	// Rejected sends before the limiter do not use up the budget.
	b := e.fx.CreateUser(ctx, "Bob")
	limiter.Reset(b.ID.Hex())
	_, _ = e.svc.SendFriendRequest(ctx, b.ID, b.ID)
	if got := limiter.Remaining(b.ID.Hex()); got != 2 {
		t.Errorf("remaining after self request = %d, want 2", got)
	}
}

func TestAcceptFriendRequest(t *testing.T) {
	e := setup(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := e.fx.CreateUser(ctx, "Alice")
	b := e.fx.CreateUser(ctx, "Bob")
	c := e.fx.CreateUser(ctx, "Carol")

	fr, err := e.svc.SendFriendRequest(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("SendFriendRequest failed: %v", err)
	}

	_, err = e.svc.AcceptFriendRequest(ctx, c.ID, fr.ID)
	wantErr(t, err, apperr.KindForbidden, "")
	_, err = e.svc.AcceptFriendRequest(ctx, a.ID, fr.ID)
	wantErr(t, err, apperr.KindForbidden, "")
	_, err = e.svc.AcceptFriendRequest(ctx, b.ID, primitive.NewObjectID())
	wantErr(t, err, apperr.KindNotFound, "")

	accepted, err := e.svc.AcceptFriendRequest(ctx, b.ID, fr.ID)
	if err != nil {
		t.Fatalf("AcceptFriendRequest failed: %v", err)
	}
	if accepted.Status != models.FriendRequestAccepted {
		t.Errorf("status = %q", accepted.Status)
	}

	ua, ub := e.fx.LoadUser(ctx, a.ID), e.fx.LoadUser(ctx, b.ID)
	if !ua.HasFriend(b.ID) || !ub.HasFriend(a.ID) {
		t.Errorf("friendship not symmetric: a=%v b=%v", ua.Friends, ub.Friends)
	}

	_, err = e.svc.AcceptFriendRequest(ctx, b.ID, fr.ID)
	wantErr(t, err, apperr.KindNotFound, "")

	got := e.notifier.For(a.ID)
	if len(got) != 1 || got[0].Event != notify.EventFriendRequestAccepted {
		t.Fatalf("sender notifications = %+v", got)
	}
	p := got[0].Payload.(notify.FriendRequestAcceptedPayload)
	if p.Recipient.ID != b.ID || p.Recipient.NativeLanguage == "" {
		t.Errorf("payload recipient = %+v", p.Recipient)
	}
}

func TestRejectFriendRequest(t *testing.T) {
	e := setup(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := e.fx.CreateUser(ctx, "Alice")
	b := e.fx.CreateUser(ctx, "Bob")
	fr, err := e.svc.SendFriendRequest(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("SendFriendRequest failed: %v", err)
	}

	wantErr(t, e.svc.RejectFriendRequest(ctx, a.ID, fr.ID), apperr.KindForbidden, "")

	if err := e.svc.RejectFriendRequest(ctx, b.ID, fr.ID); err != nil {
		t.Fatalf("RejectFriendRequest failed: %v", err)
	}
	wantErr(t, e.svc.RejectFriendRequest(ctx, b.ID, fr.ID), apperr.KindNotFound, "")

	if got := e.notifier.For(a.ID); len(got) != 0 {
		t.Errorf("sender should not be notified of a reject, got %+v", got)
	}
	// A fresh request is allowed once the old one is gone.
	if _, err := e.svc.SendFriendRequest(ctx, a.ID, b.ID); err != nil {
		t.Errorf("resend after reject failed: %v", err)
	}
}

func TestCancelFriendRequest(t *testing.T) {
	e := setup(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := e.fx.CreateUser(ctx, "Alice")
	b := e.fx.CreateUser(ctx, "Bob")
	fr, err := e.svc.SendFriendRequest(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("SendFriendRequest failed: %v", err)
	}

	wantErr(t, e.svc.CancelFriendRequest(ctx, b.ID, fr.ID), apperr.KindForbidden, "")

	if err := e.svc.CancelFriendRequest(ctx, a.ID, fr.ID); err != nil {
		t.Fatalf("CancelFriendRequest failed: %v", err)
	}
	wantErr(t, e.svc.CancelFriendRequest(ctx, a.ID, fr.ID), apperr.KindNotFound, "")

	events := e.notifier.Events(b.ID)
	if len(events) != 2 || events[1] != notify.EventFriendRequestCanceled {
		t.Errorf("recipient events = %v", events)
	}
}

func TestRemoveFriend_NoResidue(t *testing.T) {
	e := setup(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := e.fx.CreateUser(ctx, "Alice")
	b := e.fx.CreateUser(ctx, "Bob")

	fr, err := e.svc.SendFriendRequest(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("SendFriendRequest failed: %v", err)
	}
	if _, err := e.svc.AcceptFriendRequest(ctx, b.ID, fr.ID); err != nil {
		t.Fatalf("AcceptFriendRequest failed: %v", err)
	}

	wantErr(t, e.svc.RemoveFriend(ctx, a.ID, primitive.NewObjectID()), apperr.KindNotFound, "")

	if err := e.svc.RemoveFriend(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("RemoveFriend failed: %v", err)
	}

	ua, ub := e.fx.LoadUser(ctx, a.ID), e.fx.LoadUser(ctx, b.ID)
	if ua.HasFriend(b.ID) || ub.HasFriend(a.ID) {
		t.Errorf("friendship survived: a=%v b=%v", ua.Friends, ub.Friends)
	}
	n, _ := e.db.Collection("friend_requests").CountDocuments(ctx, bson.M{})
	if n != 0 {
		t.Errorf("requests left between the pair: %d", n)
	}

	for _, pair := range [][2]primitive.ObjectID{{a.ID, b.ID}, {b.ID, a.ID}} {
		got := e.notifier.For(pair[0])
		last := got[len(got)-1]
		if last.Event != notify.EventUnfriended {
			t.Fatalf("last event for %s = %q", pair[0].Hex(), last.Event)
		}
		if p := last.Payload.(notify.UnfriendedPayload); p.UserID != pair[1] {
			t.Errorf("unfriended payload names %s, want %s", p.UserID.Hex(), pair[1].Hex())
		}
	}

	if _, err := e.svc.SendFriendRequest(ctx, b.ID, a.ID); err != nil {
		t.Errorf("new request after unfriend failed: %v", err)
	}
}

func TestRemoveFriend_DeletesPendingBetween(t *testing.T) {
	e := setup(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := e.fx.CreateUser(ctx, "Alice")
	b := e.fx.CreateUser(ctx, "Bob")
	if _, err := e.svc.SendFriendRequest(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("SendFriendRequest failed: %v", err)
	}

	if err := e.svc.RemoveFriend(ctx, b.ID, a.ID); err != nil {
		t.Fatalf("RemoveFriend failed: %v", err)
	}
	n, _ := e.db.Collection("friend_requests").CountDocuments(ctx, bson.M{})
	if n != 0 {
		t.Errorf("pending request survived unfriend")
	}
}

func TestQueries(t *testing.T) {
	e := setup(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	me := e.fx.CreateUser(ctx, "Me")
	friend := e.fx.CreateUser(ctx, "Friend")
	asker := e.fx.CreateUser(ctx, "Asker")
	target := e.fx.CreateUser(ctx, "Target")
	acceptor := e.fx.CreateUser(ctx, "Acceptor")
	e.fx.CreateUserWith(ctx, models.User{FullName: "Not Onboarded"})
	e.fx.MakeFriends(ctx, me.ID, friend.ID)

	mustSend := func(from, to primitive.ObjectID) models.FriendRequest {
		fr, err := e.svc.SendFriendRequest(ctx, from, to)
		if err != nil {
			t.Fatalf("SendFriendRequest failed: %v", err)
		}
		return *fr
	}
	mustSend(asker.ID, me.ID)
	mustSend(me.ID, target.ID)
	fr := mustSend(me.ID, acceptor.ID)
	if _, err := e.svc.AcceptFriendRequest(ctx, acceptor.ID, fr.ID); err != nil {
		t.Fatalf("AcceptFriendRequest failed: %v", err)
	}

	friends, err := e.svc.ListFriends(ctx, me.ID)
	if err != nil {
		t.Fatalf("ListFriends failed: %v", err)
	}
	if len(friends) != 2 {
		t.Errorf("friends = %d, want 2", len(friends))
	}

	rec, err := e.svc.RecommendedUsers(ctx, me.ID)
	if err != nil {
		t.Fatalf("RecommendedUsers failed: %v", err)
	}
	names := map[string]bool{}
	for _, u := range rec {
		names[u.FullName] = true
	}
	if names["Me"] || names["Friend"] || names["Acceptor"] || names["Not Onboarded"] {
		t.Errorf("recommendations include excluded users: %v", names)
	}
	if !names["Asker"] || !names["Target"] {
		t.Errorf("recommendations missing candidates: %v", names)
	}

	lists, err := e.svc.FriendRequests(ctx, me.ID)
	if err != nil {
		t.Fatalf("FriendRequests failed: %v", err)
	}
	if len(lists.Incoming) != 1 || lists.Incoming[0].Sender == nil || lists.Incoming[0].Sender.ID != asker.ID {
		t.Errorf("incoming = %+v", lists.Incoming)
	}
	if len(lists.Accepted) != 1 || lists.Accepted[0].Recipient == nil || lists.Accepted[0].Recipient.ID != acceptor.ID {
		t.Errorf("accepted = %+v", lists.Accepted)
	}

	out, err := e.svc.OutgoingRequests(ctx, me.ID)
	if err != nil {
		t.Fatalf("OutgoingRequests failed: %v", err)
	}
	if len(out) != 1 || out[0].Recipient.ID != target.ID {
		t.Errorf("outgoing = %+v", out)
	}
}

func TestMyActivity(t *testing.T) {
	e := setup(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := e.fx.CreateUser(ctx, "Alice")
	b := e.fx.CreateUser(ctx, "Bob")
	c := e.fx.CreateUser(ctx, "Carol")

	fr, err := e.svc.SendFriendRequest(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("SendFriendRequest failed: %v", err)
	}
	if _, err := e.svc.AcceptFriendRequest(ctx, b.ID, fr.ID); err != nil {
		t.Fatalf("AcceptFriendRequest failed: %v", err)
	}
	if _, err := e.svc.SendFriendRequest(ctx, c.ID, b.ID); err != nil {
		t.Fatalf("SendFriendRequest failed: %v", err)
	}

	mine, err := e.svc.MyActivity(ctx, a.ID, 1)
	if err != nil {
		t.Fatalf("MyActivity failed: %v", err)
	}
	if mine.Total != 2 || len(mine.Events) != 2 {
		t.Fatalf("alice activity = %+v", mine)
	}
	if mine.Events[0].EventType != audit.EventFriendRequestAccepted || mine.Events[1].EventType != audit.EventFriendRequestSent {
		t.Errorf("events = %q, %q", mine.Events[0].EventType, mine.Events[1].EventType)
	}

	bobs, err := e.svc.MyActivity(ctx, b.ID, 1)
	if err != nil {
		t.Fatalf("MyActivity failed: %v", err)
	}
	if bobs.Total != 3 {
		t.Errorf("bob total = %d, want 3", bobs.Total)
	}

	empty, err := e.svc.MyActivity(ctx, a.ID, 2)
	if err != nil {
		t.Fatalf("MyActivity page 2 failed: %v", err)
	}
	if len(empty.Events) != 0 || empty.Events == nil || empty.Page != 2 {
		t.Errorf("page 2 = %+v", empty)
	}
}

func TestAcceptFriendRequest_ConcurrentAcceptOnce(t *testing.T) {
	e := setup(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := e.fx.CreateUser(ctx, "Alice")
	b := e.fx.CreateUser(ctx, "Bob")
	fr, err := e.svc.SendFriendRequest(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("SendFriendRequest failed: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.svc.AcceptFriendRequest(ctx, b.ID, fr.ID)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		}
	}
	if ok != 1 {
		t.Errorf("successful accepts = %d, want 1 (%v)", ok, errs)
	}
	if n := len(e.notifier.For(a.ID)); n != 1 {
		t.Errorf("sender notified %d times, want 1", n)
	}
}
