// internal/app/system/notify/dispatcher.go
// Package notify delivers named events to users who are online. Delivery
// is at most once: offline users are skipped and are expected to refetch
// state when they reconnect.
package notify

import (
	"github.com/dalemusser/lingohub/internal/app/system/metrics"
	"github.com/dalemusser/lingohub/internal/app/system/presence"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Notifier is what services depend on.
type Notifier interface {
	// Notify pushes payload tagged event to userID and reports whether a
	// live connection accepted it. Failures never reach the caller.
	Notify(userID primitive.ObjectID, event string, payload any) bool
}

// Dispatcher is the presence-backed Notifier.
type Dispatcher struct {
	reg presence.Registry
	log *zap.Logger
}

// NewDispatcher returns a Dispatcher over reg.
func NewDispatcher(reg presence.Registry, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{reg: reg, log: logger}
}

func (d *Dispatcher) Notify(userID primitive.ObjectID, event string, payload any) bool {
	conn, ok := d.reg.Lookup(userID.Hex())
	if !ok {
		d.log.Debug("user offline; notification dropped",
			zap.String("user_id", userID.Hex()),
			zap.String("event", event))
		metrics.Notification(event, metrics.Offline)
		return false
	}

	if err := conn.Send(event, payload); err != nil {
		d.log.Warn("notification send failed",
			zap.String("user_id", userID.Hex()),
			zap.String("event", event),
			zap.String("conn_id", conn.ID()),
			zap.Error(err))
		metrics.Notification(event, metrics.Failed)
		return false
	}

	d.log.Debug("notification delivered",
		zap.String("user_id", userID.Hex()),
		zap.String("event", event))
	metrics.Notification(event, metrics.Delivered)
	return true
}

// NotifyAll sends the same event to every id in userIDs except skip.
func NotifyAll(n Notifier, userIDs []primitive.ObjectID, skip primitive.ObjectID, event string, payload any) {
	for _, id := range userIDs {
		if id == skip {
			continue
		}
		n.Notify(id, event, payload)
	}
}
