// internal/app/services/socialgraph/service.go
// Package socialgraph runs the friend request lifecycle and keeps the
// friendship edge set symmetric.
package socialgraph

import (
	"context"
	"errors"
	"time"

	auditstore "github.com/dalemusser/lingohub/internal/app/store/audit"
	friendrequeststore "github.com/dalemusser/lingohub/internal/app/store/friendrequests"
	userstore "github.com/dalemusser/lingohub/internal/app/store/users"
	"github.com/dalemusser/lingohub/internal/app/system/apperr"
	"github.com/dalemusser/lingohub/internal/app/system/auditlog"
	"github.com/dalemusser/lingohub/internal/app/system/notify"
	"github.com/dalemusser/lingohub/internal/app/system/ratelimit"
	"github.com/dalemusser/lingohub/internal/app/system/txn"
	"github.com/dalemusser/lingohub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Service implements the social graph operations. Every method takes the
// authenticated caller as me.
type Service struct {
	db       *mongo.Database
	users    *userstore.Store
	requests *friendrequeststore.Store
	notifier notify.Notifier
	limiter  *ratelimit.Limiter
	audit    *auditlog.Logger
	events   *auditstore.Store
	log      *zap.Logger
}

// Deps wires a Service. Limiter and Audit may be nil.
type Deps struct {
	DB       *mongo.Database
	Notifier notify.Notifier
	Limiter  *ratelimit.Limiter
	Audit    *auditlog.Logger
	Log      *zap.Logger
}

func New(d Deps) *Service {
	return &Service{
		db:       d.DB,
		users:    userstore.New(d.DB),
		requests: friendrequeststore.New(d.DB),
		notifier: d.Notifier,
		limiter:  d.Limiter,
		audit:    d.Audit,
		events:   auditstore.New(d.DB),
		log:      d.Log,
	}
}

// SendFriendRequest creates a pending request from me to recipient and
// pushes friendRequest to the recipient.
func (s *Service) SendFriendRequest(ctx context.Context, me, recipient primitive.ObjectID) (*models.FriendRequest, error) {
	if me == recipient {
		return nil, apperr.Validation(apperr.CodeSelfRequest, "You can't send friend request to yourself")
	}

	if _, err := s.users.GetSummary(ctx, recipient); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("Recipient not found")
		}
		return nil, s.internal("load recipient", err)
	}

	friends, err := s.users.AreFriends(ctx, me, recipient)
	if err != nil {
		return nil, s.internal("check friendship", err)
	}
	if friends {
		return nil, apperr.Conflict(apperr.CodeAlreadyFriends, "You are already friends with this user")
	}

	if existing, err := s.requests.FindPendingBetween(ctx, me, recipient); err == nil {
		return nil, duplicate(me, existing)
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, s.internal("find pending request", err)
	}

	if !s.limiter.Allow(me.Hex()) {
		return nil, apperr.New(apperr.KindTooManyRequests, apperr.CodeRateLimited,
			"Too many friend requests. Please wait before sending more.")
	}

	fr, err := s.requests.Create(ctx, me, recipient)
	if errors.Is(err, friendrequeststore.ErrDuplicatePending) {
		// lost a race with another sender; attribute from the winner
		existing, ferr := s.requests.FindPendingBetween(ctx, me, recipient)
		if ferr != nil {
			return nil, apperr.Conflict(apperr.CodeDuplicatePending, "A friend request between you already exists")
		}
		return nil, duplicate(me, existing)
	}
	if err != nil {
		return nil, s.internal("create request", err)
	}

	s.audit.FriendRequestSent(ctx, me, recipient, fr.ID)

	if sender, err := s.users.GetSummary(ctx, me); err == nil {
		s.notifier.Notify(recipient, notify.EventFriendRequest, notify.FriendRequestPayload{
			RequestID: fr.ID,
			Sender:    sender,
			Timestamp: time.Now().UTC(),
		})
	} else {
		s.log.Warn("friend request sent but sender profile unavailable", zap.Error(err))
	}
	return &fr, nil
}

// AcceptFriendRequest accepts a pending request addressed to me and links
// both users. The sender receives friendRequestAccepted.
func (s *Service) AcceptFriendRequest(ctx context.Context, me, requestID primitive.ObjectID) (*models.FriendRequest, error) {
	fr, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if fr.Recipient != me {
		return nil, apperr.Forbidden("You are not authorized to accept this request")
	}
	if !fr.IsPending() {
		return nil, apperr.NotFound("Friend request not found")
	}

	var accepted *models.FriendRequest
	err = txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		var err error
		accepted, err = s.requests.Accept(ctx, requestID, me)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperr.NotFound("Friend request not found")
		}
		if err != nil {
			return err
		}
		if err := s.users.AddFriendship(ctx, fr.Sender, me); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return apperr.NotFound("User not found")
			}
			return err
		}
		return nil
	})
	if err != nil {
		if _, ok := apperr.As(err); ok {
			return nil, err
		}
		return nil, s.internal("accept request", err)
	}

	s.audit.FriendRequestAccepted(ctx, me, fr.Sender, fr.ID)

	if recipient, err := s.users.GetSummary(ctx, me); err == nil {
		s.notifier.Notify(fr.Sender, notify.EventFriendRequestAccepted, notify.FriendRequestAcceptedPayload{
			RequestID: fr.ID,
			Recipient: recipient,
			Timestamp: time.Now().UTC(),
		})
	}
	return accepted, nil
}

// RejectFriendRequest deletes a pending request addressed to me. The
// sender is not notified.
func (s *Service) RejectFriendRequest(ctx context.Context, me, requestID primitive.ObjectID) error {
	fr, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if fr.Recipient != me {
		return apperr.Forbidden("You are not authorized to reject this request")
	}
	if !fr.IsPending() {
		return apperr.NotFound("Friend request not found")
	}

	if _, err := s.requests.DeletePendingForRecipient(ctx, requestID, me); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperr.NotFound("Friend request not found")
		}
		return s.internal("reject request", err)
	}

	s.audit.FriendRequestRejected(ctx, me, fr.Sender, fr.ID)
	return nil
}

// CancelFriendRequest withdraws a pending request me sent. The recipient
// receives friendRequestCanceled.
func (s *Service) CancelFriendRequest(ctx context.Context, me, requestID primitive.ObjectID) error {
	fr, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if fr.Sender != me {
		return apperr.Forbidden("You can only cancel your own friend requests")
	}
	if !fr.IsPending() {
		return apperr.NotFound("Friend request not found")
	}

	if _, err := s.requests.DeletePendingForSender(ctx, requestID, me); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperr.NotFound("Friend request not found")
		}
		return s.internal("cancel request", err)
	}

	s.audit.FriendRequestCanceled(ctx, me, fr.Recipient, fr.ID)

	if sender, err := s.users.GetSummary(ctx, me); err == nil {
		s.notifier.Notify(fr.Recipient, notify.EventFriendRequestCanceled, notify.FriendRequestCanceledPayload{
			RequestID: fr.ID,
			Sender:    sender,
			Timestamp: time.Now().UTC(),
		})
	}
	return nil
}

// RemoveFriend drops the friendship between me and friend along with
// every request between them. Both users receive unfriended naming the
// other party.
func (s *Service) RemoveFriend(ctx context.Context, me, friend primitive.ObjectID) error {
	friendCard, err := s.users.GetSummary(ctx, friend)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperr.NotFound("User not found")
		}
		return s.internal("load friend", err)
	}
	myCard, err := s.users.GetSummary(ctx, me)
	if err != nil {
		return s.internal("load caller", err)
	}

	err = txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		if err := s.users.RemoveFriendship(ctx, me, friend); err != nil {
			return err
		}
		_, err := s.requests.DeleteBetween(ctx, me, friend)
		return err
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperr.NotFound("User not found")
		}
		return s.internal("remove friend", err)
	}

	s.audit.Unfriended(ctx, me, friend)

	now := time.Now().UTC()
	s.notifier.Notify(friend, notify.EventUnfriended, notify.UnfriendedPayload{UserID: me, User: myCard, Timestamp: now})
	s.notifier.Notify(me, notify.EventUnfriended, notify.UnfriendedPayload{UserID: friend, User: friendCard, Timestamp: now})
	return nil
}

func (s *Service) loadRequest(ctx context.Context, id primitive.ObjectID) (*models.FriendRequest, error) {
	fr, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("Friend request not found")
		}
		return nil, s.internal("load request", err)
	}
	return fr, nil
}

func (s *Service) internal(op string, err error) error {
	s.log.Error("socialgraph: "+op+" failed", zap.Error(err))
	return apperr.Internal(err)
}

// duplicate attributes an existing pending request from me's side.
func duplicate(me primitive.ObjectID, existing *models.FriendRequest) error {
	dir := apperr.DirectionIncoming
	if existing.Sender == me {
		dir = apperr.DirectionOutgoing
	}
	return apperr.DuplicatePending(existing.ID, dir)
}
