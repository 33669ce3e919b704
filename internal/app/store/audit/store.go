// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategorySocial = "social" // friend requests and friendships
	CategoryGroup  = "group"  // group chat lifecycle and membership
)

// Social event types
const (
	EventFriendRequestSent     = "friend_request_sent"
	EventFriendRequestAccepted = "friend_request_accepted"
	EventFriendRequestRejected = "friend_request_rejected"
	EventFriendRequestCanceled = "friend_request_canceled"
	EventUnfriended            = "unfriended"
)

// Group event types
const (
	EventGroupCreated       = "group_created"
	EventGroupUpdated       = "group_updated"
	EventGroupDeleted       = "group_deleted"
	EventGroupMembersAdded  = "group_members_added"
	EventGroupLeft          = "group_left"
	EventGroupMemberKicked  = "group_member_kicked"
	EventGroupCreatorChange = "group_creator_changed"
)

// Event represents an audit event.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`

	Category  string `bson:"category" json:"category"`
	EventType string `bson:"event_type" json:"eventType"`

	ActorID *primitive.ObjectID `bson:"actor_id,omitempty" json:"actorId,omitempty"` // who performed the action
	UserID  *primitive.ObjectID `bson:"user_id,omitempty" json:"userId,omitempty"`   // the other user affected, if any
	GroupID *primitive.ObjectID `bson:"group_id,omitempty" json:"groupId,omitempty"`

	Success       bool   `bson:"success" json:"success"`
	FailureReason string `bson:"failure_reason,omitempty" json:"failureReason,omitempty"`

	Details map[string]string `bson:"details,omitempty" json:"details,omitempty"`
}

// QueryFilter defines filters for querying audit events.
type QueryFilter struct {
	UserID  *primitive.ObjectID // matches actor_id or user_id
	GroupID *primitive.ObjectID
	Limit   int64
	Offset  int64
}

// PageSize is the number of events on one activity page.
const PageSize = 50

// Page is one newest-first slice of events.
type Page struct {
	Events  []Event `json:"events"`
	Total   int64   `json:"total"`
	Page    int     `json:"page"`
	HasNext bool    `json:"hasNext"`
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

func (f QueryFilter) query() bson.M {
	q := bson.M{}
	if f.UserID != nil {
		q["$or"] = []bson.M{{"actor_id": *f.UserID}, {"user_id": *f.UserID}}
	}
	if f.GroupID != nil {
		q["group_id"] = *f.GroupID
	}
	return q
}

// Query retrieves audit events matching filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)

	cur, err := s.c.Find(ctx, filter.query(), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	events := []Event{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Count returns the number of events matching filter.
func (s *Store) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	return s.c.CountDocuments(ctx, filter.query())
}

// GetByUser returns page (1-based) of events where the user acted or was
// affected.
func (s *Store) GetByUser(ctx context.Context, userID primitive.ObjectID, page int) (Page, error) {
	return s.page(ctx, QueryFilter{UserID: &userID}, page)
}

// GetByGroup returns page (1-based) of events for a group chat.
func (s *Store) GetByGroup(ctx context.Context, groupID primitive.ObjectID, page int) (Page, error) {
	return s.page(ctx, QueryFilter{GroupID: &groupID}, page)
}

func (s *Store) page(ctx context.Context, filter QueryFilter, page int) (Page, error) {
	if page < 1 {
		page = 1
	}
	filter.Limit = PageSize
	filter.Offset = int64((page - 1) * PageSize)

	total, err := s.Count(ctx, filter)
	if err != nil {
		return Page{}, err
	}
	events, err := s.Query(ctx, filter)
	if err != nil {
		return Page{}, err
	}
	return Page{
		Events:  events,
		Total:   total,
		Page:    page,
		HasNext: int64(page*PageSize) < total,
	}, nil
}
