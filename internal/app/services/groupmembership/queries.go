// internal/app/services/groupmembership/queries.go
package groupmembership

import (
	"context"

	"github.com/dalemusser/lingohub/internal/app/policy/grouppolicy"
	auditstore "github.com/dalemusser/lingohub/internal/app/store/audit"
	"github.com/dalemusser/lingohub/internal/app/system/apperr"
	"github.com/dalemusser/lingohub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GetGroup returns a group me belongs to, with member cards in join order.
func (s *Service) GetGroup(ctx context.Context, me, groupID primitive.ObjectID) (*GroupDetail, error) {
	g, err := s.load(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !grouppolicy.CanView(g, me) {
		return nil, apperr.Forbidden("You are not a member of this group")
	}

	cards, err := s.users.GetSummaries(ctx, g.Members)
	if err != nil {
		return nil, s.internal("load members", err)
	}
	return &GroupDetail{GroupChat: *g, MemberProfiles: inMemberOrder(g.Members, cards)}, nil
}

// ListMyGroups returns me's groups, most recently updated first.
func (s *Service) ListMyGroups(ctx context.Context, me primitive.ObjectID) ([]models.GroupChat, error) {
	out, err := s.groups.ListByMember(ctx, me)
	if err != nil {
		return nil, s.internal("list groups", err)
	}
	return out, nil
}

// SearchMembers matches query against member names, case-insensitively.
// An empty query returns every member in join order.
func (s *Service) SearchMembers(ctx context.Context, me, groupID primitive.ObjectID, query string) (SearchResult, error) {
	g, err := s.load(ctx, groupID)
	if err != nil {
		return SearchResult{}, err
	}
	if !grouppolicy.CanView(g, me) {
		return SearchResult{}, apperr.Forbidden("You are not a member of this group")
	}

	cards, total, err := s.users.SearchAmong(ctx, g.Members, query, 0)
	if err != nil {
		return SearchResult{}, s.internal("search members", err)
	}
	return SearchResult{Members: inMemberOrder(g.Members, cards), Total: total}, nil
}

// GroupActivity returns one page of the group's audit trail. Admins only.
func (s *Service) GroupActivity(ctx context.Context, me, groupID primitive.ObjectID, page int) (auditstore.Page, error) {
	g, err := s.load(ctx, groupID)
	if err != nil {
		return auditstore.Page{}, err
	}
	if !grouppolicy.CanView(g, me) {
		return auditstore.Page{}, apperr.Forbidden("You are not a member of this group")
	}
	if !grouppolicy.CanManage(g, me) {
		return auditstore.Page{}, apperr.Forbidden("Only admins can view group activity")
	}

	out, err := s.events.GetByGroup(ctx, groupID, page)
	if err != nil {
		return auditstore.Page{}, s.internal("load activity", err)
	}
	return out, nil
}

func inMemberOrder(members []primitive.ObjectID, cards []models.UserSummary) []models.UserSummary {
	byID := make(map[primitive.ObjectID]models.UserSummary, len(cards))
	for _, c := range cards {
		byID[c.ID] = c
	}
	out := make([]models.UserSummary, 0, len(cards))
	for _, id := range members {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out
}
