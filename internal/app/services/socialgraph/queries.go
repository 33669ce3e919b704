// internal/app/services/socialgraph/queries.go
package socialgraph

import (
	"context"
	"errors"

	auditstore "github.com/dalemusser/lingohub/internal/app/store/audit"
	"github.com/dalemusser/lingohub/internal/app/system/apperr"
	"github.com/dalemusser/lingohub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// RecommendedLimit caps RecommendedUsers.
const RecommendedLimit = 50

// RequestView is a friend request with the other party's card attached.
type RequestView struct {
	ID        primitive.ObjectID  `json:"_id"`
	Status    string              `json:"status"`
	Sender    *models.UserSummary `json:"sender,omitempty"`
	Recipient *models.UserSummary `json:"recipient,omitempty"`
	CreatedAt string              `json:"createdAt"`
}

// RequestLists is the body of FriendRequests.
type RequestLists struct {
	Incoming []RequestView `json:"incomingReqs"`
	Accepted []RequestView `json:"acceptedReqs"`
}

// ListFriends returns me's friends.
func (s *Service) ListFriends(ctx context.Context, me primitive.ObjectID) ([]models.UserSummary, error) {
	out, err := s.users.ListFriends(ctx, me)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, s.internal("list friends", err)
	}
	return out, nil
}

// RecommendedUsers returns onboarded users who are neither me nor my friends.
func (s *Service) RecommendedUsers(ctx context.Context, me primitive.ObjectID) ([]models.UserSummary, error) {
	u, err := s.users.GetByID(ctx, me)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, s.internal("load caller", err)
	}
	out, err := s.users.Recommended(ctx, me, u.Friends, RecommendedLimit)
	if err != nil {
		return nil, s.internal("recommend users", err)
	}
	return out, nil
}

// FriendRequests returns pending requests addressed to me and requests I
// sent that were accepted.
func (s *Service) FriendRequests(ctx context.Context, me primitive.ObjectID) (RequestLists, error) {
	incoming, err := s.requests.ListIncomingPending(ctx, me)
	if err != nil {
		return RequestLists{}, s.internal("list incoming", err)
	}
	accepted, err := s.requests.ListAcceptedBySender(ctx, me)
	if err != nil {
		return RequestLists{}, s.internal("list accepted", err)
	}

	ids := make([]primitive.ObjectID, 0, len(incoming)+len(accepted))
	for _, fr := range incoming {
		ids = append(ids, fr.Sender)
	}
	for _, fr := range accepted {
		ids = append(ids, fr.Recipient)
	}
	cards, err := s.cards(ctx, ids)
	if err != nil {
		return RequestLists{}, err
	}

	out := RequestLists{Incoming: []RequestView{}, Accepted: []RequestView{}}
	for _, fr := range incoming {
		if c, ok := cards[fr.Sender]; ok {
			out.Incoming = append(out.Incoming, view(fr, &c, nil))
		}
	}
	for _, fr := range accepted {
		if c, ok := cards[fr.Recipient]; ok {
			out.Accepted = append(out.Accepted, view(fr, nil, &c))
		}
	}
	return out, nil
}

// OutgoingRequests returns pending requests me sent.
func (s *Service) OutgoingRequests(ctx context.Context, me primitive.ObjectID) ([]RequestView, error) {
	outgoing, err := s.requests.ListOutgoingPending(ctx, me)
	if err != nil {
		return nil, s.internal("list outgoing", err)
	}
	ids := make([]primitive.ObjectID, 0, len(outgoing))
	for _, fr := range outgoing {
		ids = append(ids, fr.Recipient)
	}
	cards, err := s.cards(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := []RequestView{}
	for _, fr := range outgoing {
		if c, ok := cards[fr.Recipient]; ok {
			out = append(out, view(fr, nil, &c))
		}
	}
	return out, nil
}

// MyActivity returns one page of the social and group events me took part
// in, newest first.
func (s *Service) MyActivity(ctx context.Context, me primitive.ObjectID, page int) (auditstore.Page, error) {
	out, err := s.events.GetByUser(ctx, me, page)
	if err != nil {
		return auditstore.Page{}, s.internal("load activity", err)
	}
	return out, nil
}

func (s *Service) cards(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error) {
	list, err := s.users.GetSummaries(ctx, ids)
	if err != nil {
		return nil, s.internal("load profiles", err)
	}
	out := make(map[primitive.ObjectID]models.UserSummary, len(list))
	for _, c := range list {
		out[c.ID] = c
	}
	return out, nil
}

func view(fr models.FriendRequest, sender, recipient *models.UserSummary) RequestView {
	return RequestView{
		ID:        fr.ID,
		Status:    fr.Status,
		Sender:    sender,
		Recipient: recipient,
		CreatedAt: fr.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}
