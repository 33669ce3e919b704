// internal/app/services/groupmembership/service.go
// Package groupmembership runs the group chat lifecycle: create, add,
// leave, kick, update and delete. The local record is authoritative; the
// chat provider channel is mirrored after each change.
package groupmembership

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/dalemusser/lingohub/internal/app/policy/grouppolicy"
	auditstore "github.com/dalemusser/lingohub/internal/app/store/audit"
	groupchatstore "github.com/dalemusser/lingohub/internal/app/store/groupchats"
	userstore "github.com/dalemusser/lingohub/internal/app/store/users"
	"github.com/dalemusser/lingohub/internal/app/system/apperr"
	"github.com/dalemusser/lingohub/internal/app/system/auditlog"
	"github.com/dalemusser/lingohub/internal/app/system/chanmirror"
	"github.com/dalemusser/lingohub/internal/app/system/normalize"
	"github.com/dalemusser/lingohub/internal/app/system/notify"
	"github.com/dalemusser/lingohub/internal/app/system/timeouts"
	"github.com/dalemusser/lingohub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// OptString is a field that may be absent from a partial update.
type OptString struct {
	Value string
	Set   bool
}

// Some returns a present OptString.
func Some(v string) OptString { return OptString{Value: v, Set: true} }

type CreateInput struct {
	Name        string
	Description string
	MemberIDs   []primitive.ObjectID
}

type UpdateInput struct {
	Name        OptString
	Description OptString
}

// LeaveResult reports what a leave did to the group.
type LeaveResult struct {
	GroupDeleted bool                `json:"groupDeleted"`
	NewCreator   *primitive.ObjectID `json:"newCreator,omitempty"`
}

// SearchResult is the body of SearchMembers.
type SearchResult struct {
	Members []models.UserSummary `json:"members"`
	Total   int64                `json:"total"`
}

// GroupDetail is a group with its members' public cards.
type GroupDetail struct {
	models.GroupChat
	MemberProfiles []models.UserSummary `json:"memberProfiles"`
}

type Service struct {
	users      *userstore.Store
	groups     *groupchatstore.Store
	mirror     chanmirror.Mirror
	notifier   notify.Notifier
	audit      *auditlog.Logger
	events     *auditstore.Store
	maxMembers int
	log        *zap.Logger
}

// Deps wires a Service. MaxMembers defaults to models.DefaultGroupMaxMembers.
type Deps struct {
	DB         *mongo.Database
	Mirror     chanmirror.Mirror
	Notifier   notify.Notifier
	Audit      *auditlog.Logger
	MaxMembers int
	Log        *zap.Logger
}

func New(d Deps) *Service {
	limit := d.MaxMembers
	if limit <= 0 {
		limit = models.DefaultGroupMaxMembers
	}
	return &Service{
		users:      userstore.New(d.DB),
		groups:     groupchatstore.New(d.DB),
		mirror:     d.Mirror,
		notifier:   d.Notifier,
		audit:      d.Audit,
		events:     auditstore.New(d.DB),
		maxMembers: limit,
		log:        d.Log,
	}
}

// CreateGroup creates a group owned by me. The provider channel must be
// created too; if it cannot be, the record is removed again.
func (s *Service) CreateGroup(ctx context.Context, me primitive.ObjectID, in CreateInput) (*models.GroupChat, error) {
	name, err := cleanName(in.Name)
	if err != nil {
		return nil, err
	}
	desc, err := cleanDescription(in.Description)
	if err != nil {
		return nil, err
	}

	invitees := normalize.UniqueIDs(in.MemberIDs, me)
	if 1+len(invitees) > s.maxMembers {
		return nil, capExceeded(s.maxMembers)
	}

	creator, err := s.users.GetSummary(ctx, me)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, s.internal("load creator", err)
	}
	if err := s.requireUsers(ctx, invitees); err != nil {
		return nil, err
	}

	g, err := s.groups.Create(ctx, models.GroupChat{
		Name:        name,
		Description: desc,
		Avatar:      models.DefaultGroupAvatar,
		Creator:     me,
		Members:     append([]primitive.ObjectID{me}, invitees...),
		Admins:      []primitive.ObjectID{me},
		ChannelID:   chanmirror.NewChannelID(),
		MaxMembers:  s.maxMembers,
	})
	if err != nil {
		return nil, s.internal("create group", err)
	}

	res := s.mirror.CreateChannel(ctx, g.ChannelID, me, g.Members, chanmirror.ChannelInfo{
		Name:        g.Name,
		Description: g.Description,
		Image:       g.Avatar,
	})
	if res.Fatal(s.log) {
		// The caller's context may already be cancelled; the record must
		// still go.
		cctx, cancel := timeouts.WithTimeout(context.WithoutCancel(ctx), timeouts.Short(), s.log, "groups.compensate")
		defer cancel()
		if err := s.groups.Delete(cctx, g.ID); err != nil {
			s.log.Error("failed to remove group after channel create failed",
				zap.String("group_id", g.ID.Hex()), zap.Error(err))
		}
		s.audit.MirrorFailed(cctx, "group_created", me, &g.ID, res.Op, res.Err)
		return nil, apperr.Wrap(res.Err, apperr.KindExternalService, apperr.CodeMirrorFailed,
			"Failed to create chat channel")
	}

	s.audit.GroupCreated(ctx, me, g.ID, g.Name, len(g.Members))

	payload := notify.GroupChatInvitePayload{
		GroupID:   g.ID,
		GroupName: g.Name,
		Creator:   creator,
		Timestamp: time.Now().UTC(),
	}
	notify.NotifyAll(s.notifier, g.Members, me, notify.EventGroupChatInvite, payload)
	return &g, nil
}

// AddMembers adds ids to the group. Only ids that were not already members
// are mirrored and notified.
func (s *Service) AddMembers(ctx context.Context, me, groupID primitive.ObjectID, ids []primitive.ObjectID) (*models.GroupChat, error) {
	g, err := s.load(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !grouppolicy.CanManage(g, me) {
		return nil, apperr.Forbidden("Only admins can add members")
	}

	fresh := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range normalize.UniqueIDs(ids) {
		if !g.IsMember(id) {
			fresh = append(fresh, id)
		}
	}
	if len(fresh) == 0 {
		return nil, noNewMembers()
	}
	if len(g.Members)+len(fresh) > groupCap(g) {
		return nil, capExceeded(groupCap(g))
	}
	if err := s.requireUsers(ctx, fresh); err != nil {
		return nil, err
	}

	added, after, err := s.groups.AddMembers(ctx, groupID, me, fresh)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, apperr.NotFound("Group not found")
	case errors.Is(err, groupchatstore.ErrNotAdmin):
		return nil, apperr.Forbidden("Only admins can add members")
	case errors.Is(err, groupchatstore.ErrCapExceeded):
		return nil, capExceeded(groupCap(g))
	case err != nil:
		return nil, s.internal("add members", err)
	}
	if len(added) == 0 {
		return nil, noNewMembers()
	}

	s.audit.GroupMembersAdded(ctx, me, groupID, added)

	if res := s.mirror.AddMembers(ctx, after.ChannelID, added); res.Swallow(s.log) {
		s.audit.MirrorFailed(ctx, "group_members_added", me, &groupID, res.Op, res.Err)
	} else {
		cards, err := s.users.GetSummaries(ctx, added)
		if err != nil {
			s.log.Warn("could not load added members for system messages", zap.Error(err))
		}
		for _, c := range cards {
			s.mirror.PostSystemMessage(ctx, after.ChannelID, chanmirror.AddedMessage(c.FullName)).Swallow(s.log)
		}
	}

	if actor, err := s.users.GetSummary(ctx, me); err == nil {
		payload := notify.AddedToGroupPayload{
			GroupID:   groupID,
			GroupName: after.Name,
			AddedBy:   actor,
			Timestamp: time.Now().UTC(),
		}
		notify.NotifyAll(s.notifier, added, me, notify.EventAddedToGroup, payload)
	}
	return after, nil
}

// LeaveGroup removes me from the group. The last member leaving deletes
// it; a leaving creator hands the group to the earliest-joined member.
func (s *Service) LeaveGroup(ctx context.Context, me, groupID primitive.ObjectID) (LeaveResult, error) {
	g, err := s.load(ctx, groupID)
	if err != nil {
		return LeaveResult{}, err
	}
	if !g.IsMember(me) {
		return LeaveResult{}, notAMember("You are not a member of this group")
	}

	out, err := s.groups.Leave(ctx, groupID, me)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return LeaveResult{}, apperr.NotFound("Group not found")
	case errors.Is(err, groupchatstore.ErrNotMember):
		return LeaveResult{}, notAMember("You are not a member of this group")
	case err != nil:
		return LeaveResult{}, s.internal("leave group", err)
	}

	s.audit.GroupLeft(ctx, me, groupID, out.Deleted, out.NewCreator)

	channelID := out.Before.ChannelID
	if out.Deleted {
		if res := s.mirror.DeleteChannel(ctx, channelID); res.Swallow(s.log) {
			s.audit.MirrorFailed(ctx, "group_left", me, &groupID, res.Op, res.Err)
		}
		return LeaveResult{GroupDeleted: true}, nil
	}

	if res := s.mirror.RemoveMember(ctx, channelID, me); res.Swallow(s.log) {
		s.audit.MirrorFailed(ctx, "group_left", me, &groupID, res.Op, res.Err)
	}
	if card, err := s.users.GetSummary(ctx, me); err == nil {
		s.mirror.PostSystemMessage(ctx, channelID, chanmirror.LeftMessage(card.FullName)).Swallow(s.log)
	}
	return LeaveResult{NewCreator: out.NewCreator}, nil
}

// KickMember removes target from the group on an admin's behalf.
func (s *Service) KickMember(ctx context.Context, me, groupID, target primitive.ObjectID) error {
	g, err := s.load(ctx, groupID)
	if err != nil {
		return err
	}

	denial := grouppolicy.CheckKick(g, me, target)
	switch denial {
	case grouppolicy.KickNotAdmin:
		return apperr.Forbidden("Only admins can kick members")
	case grouppolicy.KickSelf:
		return apperr.Validation(apperr.CodeSelfKick, "You cannot kick yourself. Use leave instead.")
	case grouppolicy.KickCreator:
		return apperr.New(apperr.KindForbidden, apperr.CodeCannotKickCreator, "Cannot kick the group creator")
	}

	targetCard, err := s.users.GetSummary(ctx, target)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperr.NotFound("User not found")
		}
		return s.internal("load target", err)
	}
	if denial == grouppolicy.KickNotMember {
		return notAMember("User is not a member of this group")
	}

	after, err := s.groups.RemoveMember(ctx, groupID, me, target)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperr.NotFound("Group not found")
	case errors.Is(err, groupchatstore.ErrNotAdmin):
		return apperr.Forbidden("Only admins can kick members")
	case errors.Is(err, groupchatstore.ErrCannotRemoveCreator):
		return apperr.New(apperr.KindForbidden, apperr.CodeCannotKickCreator, "Cannot kick the group creator")
	case errors.Is(err, groupchatstore.ErrNotMember):
		return notAMember("User is not a member of this group")
	case err != nil:
		return s.internal("kick member", err)
	}

	s.audit.GroupMemberKicked(ctx, me, groupID, target)

	if res := s.mirror.RemoveMember(ctx, after.ChannelID, target); res.Swallow(s.log) {
		s.audit.MirrorFailed(ctx, "group_member_kicked", me, &groupID, res.Op, res.Err)
	}

	// The kick is committed; a missing actor profile only degrades the
	// message and payload.
	actorCard, err := s.users.GetSummary(ctx, me)
	if err != nil {
		s.log.Warn("actor profile unavailable after kick",
			zap.String("group_id", groupID.Hex()), zap.Error(err))
		actorCard = models.UserSummary{ID: me}
	}
	actorName := actorCard.FullName
	if actorName == "" {
		actorName = "an admin"
	}
	s.mirror.PostSystemMessage(ctx, after.ChannelID,
		chanmirror.KickedMessage(targetCard.FullName, actorName)).Swallow(s.log)

	s.notifier.Notify(target, notify.EventKickedFromGroup, notify.KickedFromGroupPayload{
		GroupID:   groupID,
		GroupName: after.Name,
		KickedBy:  actorCard,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// UpdateGroupInfo changes the fields present in in. An explicit empty
// description clears it; an explicit empty name is rejected.
func (s *Service) UpdateGroupInfo(ctx context.Context, me, groupID primitive.ObjectID, in UpdateInput) (*models.GroupChat, error) {
	g, err := s.load(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !grouppolicy.CanManage(g, me) {
		return nil, apperr.Forbidden("Only admins can update group info")
	}

	set := bson.M{}
	var update chanmirror.ChannelUpdate
	if in.Name.Set {
		name, err := cleanName(in.Name.Value)
		if err != nil {
			return nil, err
		}
		set["name"] = name
		update.Name = &name
	}
	if in.Description.Set {
		desc, err := cleanDescription(in.Description.Value)
		if err != nil {
			return nil, err
		}
		set["description"] = desc
		update.Description = &desc
	}
	if update.Empty() {
		return g, nil
	}

	after, err := s.groups.UpdateInfo(ctx, groupID, me, set)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, apperr.NotFound("Group not found")
	case errors.Is(err, groupchatstore.ErrNotAdmin):
		return nil, apperr.Forbidden("Only admins can update group info")
	case err != nil:
		return nil, s.internal("update group", err)
	}

	s.audit.GroupUpdated(ctx, me, groupID)

	if res := s.mirror.UpdateChannel(ctx, after.ChannelID, update); res.Swallow(s.log) {
		s.audit.MirrorFailed(ctx, "group_updated", me, &groupID, res.Op, res.Err)
	}
	return after, nil
}

// DeleteGroup removes the group. Only the current creator may do this.
func (s *Service) DeleteGroup(ctx context.Context, me, groupID primitive.ObjectID) error {
	g, err := s.load(ctx, groupID)
	if err != nil {
		return err
	}
	if !grouppolicy.CanDelete(g, me) {
		return apperr.Forbidden("Only the group creator can delete the group")
	}

	deleted, err := s.groups.DeleteByCreator(ctx, groupID, me)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperr.NotFound("Group not found")
	case errors.Is(err, groupchatstore.ErrNotCreator):
		return apperr.Forbidden("Only the group creator can delete the group")
	case err != nil:
		return s.internal("delete group", err)
	}

	s.audit.GroupDeleted(ctx, me, groupID, deleted.Name)

	if res := s.mirror.DeleteChannel(ctx, deleted.ChannelID); res.Swallow(s.log) {
		s.audit.MirrorFailed(ctx, "group_deleted", me, &groupID, res.Op, res.Err)
	}

	if actor, err := s.users.GetSummary(ctx, me); err == nil {
		payload := notify.GroupDeletedPayload{
			GroupID:   groupID,
			GroupName: deleted.Name,
			DeletedBy: actor,
			Timestamp: time.Now().UTC(),
		}
		notify.NotifyAll(s.notifier, deleted.Members, me, notify.EventGroupDeleted, payload)
	}
	return nil
}

func (s *Service) load(ctx context.Context, groupID primitive.ObjectID) (*models.GroupChat, error) {
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("Group not found")
		}
		return nil, s.internal("load group", err)
	}
	return g, nil
}

// requireUsers fails with NotFound unless every id names an existing user.
func (s *Service) requireUsers(ctx context.Context, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	n, err := s.users.CountExisting(ctx, ids)
	if err != nil {
		return s.internal("count users", err)
	}
	if n != int64(len(ids)) {
		return apperr.NotFound("One or more users not found")
	}
	return nil
}

func (s *Service) internal(op string, err error) error {
	s.log.Error("groupmembership: "+op+" failed", zap.Error(err))
	return apperr.Internal(err)
}

func cleanName(raw string) (string, error) {
	name := normalize.Name(normalize.PlainText(raw))
	if name == "" {
		return "", apperr.Validation(apperr.CodeInvalidName, "Group name is required")
	}
	if normalize.Len(name) > models.GroupNameMaxLen {
		return "", apperr.Validation(apperr.CodeInvalidName, "Group name must be 50 characters or less")
	}
	return name, nil
}

func cleanDescription(raw string) (string, error) {
	desc := normalize.PlainText(raw)
	if normalize.Len(desc) > models.GroupDescriptionMaxLen {
		return "", apperr.Validation(apperr.CodeInvalidDescription, "Description must be 200 characters or less")
	}
	return desc, nil
}

func groupCap(g *models.GroupChat) int {
	if g.MaxMembers > 0 {
		return g.MaxMembers
	}
	return models.DefaultGroupMaxMembers
}

func capExceeded(limit int) error {
	return apperr.Conflict(apperr.CodeMembershipCapExceeded,
		"Group cannot have more than "+strconv.Itoa(limit)+" members")
}

func noNewMembers() error {
	return apperr.Conflict(apperr.CodeNoNewMembers, "All users are already members")
}

func notAMember(msg string) error {
	return apperr.Validation(apperr.CodeNotAMember, msg)
}
