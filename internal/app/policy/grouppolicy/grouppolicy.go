// internal/app/policy/grouppolicy/grouppolicy.go
// Package grouppolicy answers who may do what inside a group chat.
//
// Rules:
//   - Any member may view the group, search its members and leave.
//   - Admins may add members, kick members and edit the name/description.
//   - Only the current creator may delete the group.
//   - Nobody may kick themselves or the creator.
package grouppolicy

import (
	"github.com/dalemusser/lingohub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is a user's standing in one group.
type Role string

const (
	RoleNone    Role = ""
	RoleMember  Role = "member"
	RoleAdmin   Role = "admin"
	RoleCreator Role = "creator"
)

// RoleOf returns the strongest role user holds in g.
func RoleOf(g *models.GroupChat, user primitive.ObjectID) Role {
	switch {
	case g == nil || !g.IsMember(user):
		return RoleNone
	case g.IsCreator(user):
		return RoleCreator
	case g.IsAdmin(user):
		return RoleAdmin
	default:
		return RoleMember
	}
}

// CanView reports whether user may read g and search its members.
func CanView(g *models.GroupChat, user primitive.ObjectID) bool {
	return RoleOf(g, user) != RoleNone
}

// CanManage reports whether user may add members, kick and edit info.
// The creator is always an admin, but the check reads the admin set so a
// record that drifted still answers from stored state.
func CanManage(g *models.GroupChat, user primitive.ObjectID) bool {
	return g != nil && g.IsAdmin(user)
}

// CanDelete reports whether user may delete g.
func CanDelete(g *models.GroupChat, user primitive.ObjectID) bool {
	return g != nil && g.IsCreator(user)
}

// KickDenial explains why a kick is not allowed.
type KickDenial int

const (
	KickAllowed KickDenial = iota
	KickNotAdmin
	KickSelf
	KickCreator
	KickNotMember
)

// CheckKick evaluates actor removing target from g, in the order the
// checks are reported to callers.
func CheckKick(g *models.GroupChat, actor, target primitive.ObjectID) KickDenial {
	switch {
	case !CanManage(g, actor):
		return KickNotAdmin
	case actor == target:
		return KickSelf
	case g.IsCreator(target):
		return KickCreator
	case !g.IsMember(target):
		return KickNotMember
	default:
		return KickAllowed
	}
}
