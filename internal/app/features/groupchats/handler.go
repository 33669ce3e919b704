// internal/app/features/groupchats/handler.go
package groupchats

import (
	"net/http"

	uierrors "github.com/dalemusser/lingohub/internal/app/features/errors"
	"github.com/dalemusser/lingohub/internal/app/services/groupmembership"
	"github.com/dalemusser/lingohub/internal/app/system/inputval"
	"github.com/dalemusser/lingohub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the /api/groups endpoints.
type Handler struct {
	Svc *groupmembership.Service
	Log *zap.Logger
}

func NewHandler(svc *groupmembership.Service, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Log: logger}
}

type createRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	MemberIDs   []string `json:"memberIds" validate:"omitempty,dive,objectid"`
}

type addMembersRequest struct {
	MemberIDs []string `json:"memberIds" validate:"required,min=1,dive,objectid"`
}

// updateRequest uses pointers so an absent field differs from "".
type updateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type message struct {
	Message string `json:"message"`
}

type leaveResponse struct {
	Message string `json:"message"`
	groupmembership.LeaveResult
}

// HandleCreate handles POST /api/groups/create.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	me, err := inputval.Principal(r)
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	var body createRequest
	if err := inputval.DecodeJSON(r, &body); err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	ids, err := inputval.ObjectIDs(body.MemberIDs, "member")
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "groups.create")
	defer cancel()

	g, err := h.Svc.CreateGroup(ctx, me, groupmembership.CreateInput{
		Name:        body.Name,
		Description: body.Description,
		MemberIDs:   ids,
	})
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusCreated, g)
}

// ServeMyGroups handles GET /api/groups/my-groups.
func (h *Handler) ServeMyGroups(w http.ResponseWriter, r *http.Request) {
	me, err := inputval.Principal(r)
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "groups.mine")
	defer cancel()

	groups, err := h.Svc.ListMyGroups(ctx, me)
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, groups)
}

// ServeGroup handles GET /api/groups/{groupId}.
func (h *Handler) ServeGroup(w http.ResponseWriter, r *http.Request) {
	me, groupID, ok := h.principalAndGroup(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "groups.get")
	defer cancel()

	g, err := h.Svc.GetGroup(ctx, me, groupID)
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, g)
}

// HandleAddMembers handles POST /api/groups/{groupId}/add-members.
func (h *Handler) HandleAddMembers(w http.ResponseWriter, r *http.Request) {
	me, groupID, ok := h.principalAndGroup(w, r)
	if !ok {
		return
	}
	var body addMembersRequest
	if err := inputval.DecodeJSON(r, &body); err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	ids, err := inputval.ObjectIDs(body.MemberIDs, "member")
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "groups.add_members")
	defer cancel()

	g, err := h.Svc.AddMembers(ctx, me, groupID, ids)
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, g)
}

// HandleLeave handles POST /api/groups/{groupId}/leave.
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	me, groupID, ok := h.principalAndGroup(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "groups.leave")
	defer cancel()

	res, err := h.Svc.LeaveGroup(ctx, me, groupID)
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	msg := "Left group successfully"
	if res.GroupDeleted {
		msg = "Group deleted as you were the last member"
	}
	uierrors.WriteJSON(w, http.StatusOK, leaveResponse{Message: msg, LeaveResult: res})
}

// HandleKick handles POST /api/groups/{groupId}/kick/{memberId}.
func (h *Handler) HandleKick(w http.ResponseWriter, r *http.Request) {
	me, groupID, ok := h.principalAndGroup(w, r)
	if !ok {
		return
	}
	target, err := inputval.PathID(r, "memberId", "member")
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "groups.kick")
	defer cancel()

	if err := h.Svc.KickMember(ctx, me, groupID, target); err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, message{"Member kicked successfully"})
}

// HandleUpdate handles PUT /api/groups/{groupId}/update.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	me, groupID, ok := h.principalAndGroup(w, r)
	if !ok {
		return
	}
	var body updateRequest
	if err := inputval.DecodeJSON(r, &body); err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}

	var in groupmembership.UpdateInput
	if body.Name != nil {
		in.Name = groupmembership.Some(*body.Name)
	}
	if body.Description != nil {
		in.Description = groupmembership.Some(*body.Description)
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "groups.update")
	defer cancel()

	g, err := h.Svc.UpdateGroupInfo(ctx, me, groupID, in)
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, g)
}

// HandleDelete handles DELETE /api/groups/{groupId}/delete.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	me, groupID, ok := h.principalAndGroup(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "groups.delete")
	defer cancel()

	if err := h.Svc.DeleteGroup(ctx, me, groupID); err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, message{"Group deleted successfully"})
}

// ServeSearchMembers handles GET /api/groups/{groupId}/members/search?query=.
func (h *Handler) ServeSearchMembers(w http.ResponseWriter, r *http.Request) {
	me, groupID, ok := h.principalAndGroup(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "groups.search_members")
	defer cancel()

	res, err := h.Svc.SearchMembers(ctx, me, groupID, query.Get(r, "query"))
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, res)
}

// ServeActivity handles GET /api/groups/{groupId}/activity?page=.
func (h *Handler) ServeActivity(w http.ResponseWriter, r *http.Request) {
	me, groupID, ok := h.principalAndGroup(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "groups.activity")
	defer cancel()

	page, err := h.Svc.GroupActivity(ctx, me, groupID, inputval.Page(r))
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) principalAndGroup(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, primitive.ObjectID, bool) {
	me, err := inputval.Principal(r)
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	groupID, err := inputval.PathID(r, "groupId", "group")
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	return me, groupID, true
}
