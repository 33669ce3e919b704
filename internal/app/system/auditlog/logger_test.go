package auditlog_test

import (
	"errors"
	"testing"

	"github.com/dalemusser/lingohub/internal/app/store/audit"
	"github.com/dalemusser/lingohub/internal/app/system/auditlog"
	"github.com/dalemusser/lingohub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestLogger_NilLogger(t *testing.T) {
	var logger *auditlog.Logger
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// must not panic
	logger.Log(ctx, audit.Event{EventType: "test"})
	logger.FriendRequestSent(ctx, primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID())
	logger.GroupLeft(ctx, primitive.NewObjectID(), primitive.NewObjectID(), true, nil)
}

func TestLogger_Destinations(t *testing.T) {
	tests := []struct {
		dest   string
		stored int
	}{
		{auditlog.DestOff, 0},
		{auditlog.DestLog, 0},
		{auditlog.DestDB, 1},
		{auditlog.DestAll, 1},
	}

	for _, tt := range tests {
		t.Run(tt.dest, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			store := audit.New(db)
			ctx, cancel := testutil.TestContext()
			defer cancel()

			logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Social: tt.dest, Group: tt.dest})
			actor := primitive.NewObjectID()
			logger.Unfriended(ctx, actor, primitive.NewObjectID())

			page, err := store.GetByUser(ctx, actor, 1)
			if err != nil {
				t.Fatalf("GetByUser failed: %v", err)
			}
			events := page.Events
			if len(events) != tt.stored {
				t.Errorf("stored %d events, want %d", len(events), tt.stored)
			}
		})
	}
}

func TestLogger_FriendRequestAccepted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Social: auditlog.DestDB})
	recipient, sender, reqID := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	logger.FriendRequestAccepted(ctx, recipient, sender, reqID)

	page, err := store.GetByUser(ctx, sender, 1)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	events := page.Events
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.EventType != audit.EventFriendRequestAccepted {
		t.Errorf("EventType: got %q, want %q", e.EventType, audit.EventFriendRequestAccepted)
	}
	if e.ActorID == nil || *e.ActorID != recipient {
		t.Errorf("ActorID: got %v, want %v", e.ActorID, recipient)
	}
	if e.Details["request_id"] != reqID.Hex() {
		t.Errorf("request_id detail: got %q", e.Details["request_id"])
	}
}

func TestLogger_GroupLeft_RecordsCreatorChange(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Group: auditlog.DestDB})
	actor, groupID, heir := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	logger.GroupLeft(ctx, actor, groupID, false, &heir)

	page, err := store.GetByGroup(ctx, groupID, 1)
	if err != nil {
		t.Fatalf("GetByGroup failed: %v", err)
	}
	events := page.Events
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	var sawChange bool
	for _, e := range events {
		if e.EventType == audit.EventGroupCreatorChange && e.UserID != nil && *e.UserID == heir {
			sawChange = true
		}
	}
	if !sawChange {
		t.Error("expected a creator change event naming the new creator")
	}
}

func TestLogger_MirrorFailed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Group: auditlog.DestDB})
	actor := primitive.NewObjectID()
	logger.MirrorFailed(ctx, audit.EventGroupCreated, actor, nil, "create_channel", errors.New("provider down"))

	page, err := store.GetByUser(ctx, actor, 1)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	events := page.Events
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Success {
		t.Error("expected Success to be false")
	}
	if events[0].FailureReason != "provider down" {
		t.Errorf("FailureReason: got %q", events[0].FailureReason)
	}
}
