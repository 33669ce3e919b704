package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/dalemusser/lingohub/internal/app/system/chanmirror"
	"github.com/dalemusser/lingohub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrInjected is returned by fakes configured to fail.
var ErrInjected = errors.New("injected failure")

// Notification is one call recorded by RecordingNotifier.
type Notification struct {
	UserID  primitive.ObjectID
	Event   string
	Payload any
}

// RecordingNotifier records every notification and reports them delivered.
type RecordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (n *RecordingNotifier) Notify(userID primitive.ObjectID, event string, payload any) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, Notification{UserID: userID, Event: event, Payload: payload})
	return true
}

// All returns a copy of everything recorded so far.
func (n *RecordingNotifier) All() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.sent...)
}

// For returns the notifications sent to userID.
func (n *RecordingNotifier) For(userID primitive.ObjectID) []Notification {
	var out []Notification
	for _, x := range n.All() {
		if x.UserID == userID {
			out = append(out, x)
		}
	}
	return out
}

// Events returns the event names sent to userID, in order.
func (n *RecordingNotifier) Events(userID primitive.ObjectID) []string {
	var out []string
	for _, x := range n.For(userID) {
		out = append(out, x.Event)
	}
	return out
}

// MirrorCall is one call recorded by FakeMirror.
type MirrorCall struct {
	Op        string
	ChannelID string
	Members   []primitive.ObjectID
	Text      string
	Update    chanmirror.ChannelUpdate
}

// FakeMirror records channel operations. Ops listed in Fail return
// ErrInjected.
type FakeMirror struct {
	mu    sync.Mutex
	calls []MirrorCall
	Fail  map[string]bool

	// OnCall, when set, runs before each op is recorded.
	OnCall func(op string)
}

// NewFakeMirror returns a FakeMirror that fails the given ops.
func NewFakeMirror(failOps ...string) *FakeMirror {
	m := &FakeMirror{Fail: map[string]bool{}}
	for _, op := range failOps {
		m.Fail[op] = true
	}
	return m
}

func (m *FakeMirror) record(c MirrorCall) chanmirror.Result {
	if m.OnCall != nil {
		m.OnCall(c.Op)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
	res := chanmirror.Result{Op: c.Op, ChannelID: c.ChannelID}
	if m.Fail[c.Op] {
		res.Err = ErrInjected
	}
	return res
}

func (m *FakeMirror) CreateChannel(_ context.Context, channelID string, _ primitive.ObjectID, members []primitive.ObjectID, info chanmirror.ChannelInfo) chanmirror.Result {
	return m.record(MirrorCall{Op: chanmirror.OpCreateChannel, ChannelID: channelID, Members: members, Text: info.Name})
}

func (m *FakeMirror) AddMembers(_ context.Context, channelID string, members []primitive.ObjectID) chanmirror.Result {
	return m.record(MirrorCall{Op: chanmirror.OpAddMembers, ChannelID: channelID, Members: members})
}

func (m *FakeMirror) RemoveMember(_ context.Context, channelID string, member primitive.ObjectID) chanmirror.Result {
	return m.record(MirrorCall{Op: chanmirror.OpRemoveMember, ChannelID: channelID, Members: []primitive.ObjectID{member}})
}

func (m *FakeMirror) UpdateChannel(_ context.Context, channelID string, update chanmirror.ChannelUpdate) chanmirror.Result {
	return m.record(MirrorCall{Op: chanmirror.OpUpdateChannel, ChannelID: channelID, Update: update})
}

func (m *FakeMirror) DeleteChannel(_ context.Context, channelID string) chanmirror.Result {
	return m.record(MirrorCall{Op: chanmirror.OpDeleteChannel, ChannelID: channelID})
}

func (m *FakeMirror) PostSystemMessage(_ context.Context, channelID, text string) chanmirror.Result {
	return m.record(MirrorCall{Op: chanmirror.OpSystemMessage, ChannelID: channelID, Text: text})
}

func (m *FakeMirror) UpsertUser(_ context.Context, u models.UserSummary) chanmirror.Result {
	return m.record(MirrorCall{Op: chanmirror.OpUpsertUser, Members: []primitive.ObjectID{u.ID}, Text: u.FullName})
}

func (m *FakeMirror) UserToken(userID primitive.ObjectID) (string, error) {
	if m.Fail["token"] {
		return "", ErrInjected
	}
	return "token-" + userID.Hex(), nil
}

// Calls returns a copy of every recorded call.
func (m *FakeMirror) Calls() []MirrorCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MirrorCall(nil), m.calls...)
}

// CallsFor returns the recorded calls for op.
func (m *FakeMirror) CallsFor(op string) []MirrorCall {
	var out []MirrorCall
	for _, c := range m.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Texts returns the system messages posted, in order.
func (m *FakeMirror) Texts() []string {
	var out []string
	for _, c := range m.CallsFor(chanmirror.OpSystemMessage) {
		out = append(out, c.Text)
	}
	return out
}
