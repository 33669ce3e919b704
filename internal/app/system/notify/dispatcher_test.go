package notify_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/dalemusser/lingohub/internal/app/system/notify"
	"github.com/dalemusser/lingohub/internal/app/system/presence"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type recordConn struct {
	id  string
	err error

	mu     sync.Mutex
	events []string
}

func (c *recordConn) ID() string { return c.id }

func (c *recordConn) Send(event string, _ any) error {
	if c.err != nil {
		return c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func TestDispatcher_DeliversToOnlineUser(t *testing.T) {
	reg := presence.NewMemory()
	d := notify.NewDispatcher(reg, zap.NewNop())
	user := primitive.NewObjectID()
	conn := &recordConn{id: "c1"}
	reg.Register(user.Hex(), conn)

	if ok := d.Notify(user, notify.EventFriendRequest, notify.FriendRequestPayload{}); !ok {
		t.Fatal("expected delivery to succeed")
	}
	if len(conn.events) != 1 || conn.events[0] != notify.EventFriendRequest {
		t.Errorf("events = %v, want [%s]", conn.events, notify.EventFriendRequest)
	}
}

func TestDispatcher_OfflineIsSilent(t *testing.T) {
	d := notify.NewDispatcher(presence.NewMemory(), zap.NewNop())

	if ok := d.Notify(primitive.NewObjectID(), notify.EventUnfriended, nil); ok {
		t.Error("expected offline notify to report false")
	}
}

func TestDispatcher_SendFailureSwallowed(t *testing.T) {
	reg := presence.NewMemory()
	d := notify.NewDispatcher(reg, zap.NewNop())
	user := primitive.NewObjectID()
	reg.Register(user.Hex(), &recordConn{id: "c1", err: errors.New("queue full")})

	if ok := d.Notify(user, notify.EventGroupDeleted, nil); ok {
		t.Error("expected failed send to report false")
	}
}

func TestNotifyAll_SkipsActor(t *testing.T) {
	reg := presence.NewMemory()
	d := notify.NewDispatcher(reg, zap.NewNop())

	actor, b, c := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	conns := map[primitive.ObjectID]*recordConn{
		actor: {id: "a"},
		b:     {id: "b"},
		c:     {id: "c"},
	}
	for id, conn := range conns {
		reg.Register(id.Hex(), conn)
	}

	notify.NotifyAll(d, []primitive.ObjectID{actor, b, c}, actor, notify.EventGroupDeleted, nil)

	if n := len(conns[actor].events); n != 0 {
		t.Errorf("actor got %d events, want 0", n)
	}
	for _, id := range []primitive.ObjectID{b, c} {
		if n := len(conns[id].events); n != 1 {
			t.Errorf("member %s got %d events, want 1", id.Hex(), n)
		}
	}
}
