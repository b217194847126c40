// internal/app/policy/access/access.go
//
// Package access is the single authorization decision point. Every mutating
// or reading entry point builds a Resource describing what it touches and
// asks CanPerform; the handler never re-implements role or ownership checks.
//
// Rules, first match wins:
//
//  1. admin may do anything.
//  2. The resource's owner (created_by / uploaded_by) may update or delete it.
//  3. A teacher in the owning group's creators (or its created_by) may create,
//     update, delete, and manage members within that group. Deleting the group
//     itself stays with its owner (rule 2).
//  4. Reading or contributing to a group requires a membership row.
//  5. User administration requires teacher or admin, and teachers cannot
//     target admin accounts.
//  6. Everything else is denied.
package access

import (
	"github.com/dalemusser/learnportal/internal/app/system/apperr"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Action is what the actor wants to do.
type Action string

const (
	Read          Action = "read"
	Contribute    Action = "contribute" // member-level create: posts, replies
	Create        Action = "create"     // group-authority create: announcements, files
	Update        Action = "update"
	Delete        Action = "delete"
	ManageMembers Action = "manage_members"

	// User administration.
	ListUsers      Action = "list_users"
	CreateUser     Action = "create_user"
	ApproveUser    Action = "approve_user"
	DeactivateUser Action = "deactivate_user"
	ActivateUser   Action = "activate_user"
	DeleteUser     Action = "delete_user"

	// Catalog administration (courses, classes).
	ManageCatalog Action = "manage_catalog"

	// Creating a new group.
	CreateGroup Action = "create_group"
)

// Kind is the type of resource.
type Kind string

const (
	KindGroup        Kind = "group"
	KindMembership   Kind = "membership"
	KindAnnouncement Kind = "announcement"
	KindPost         Kind = "post"
	KindReply        Kind = "reply"
	KindFile         Kind = "file"
	KindUser         Kind = "user"
	KindCatalog      Kind = "catalog"
)

// Actor is the caller as the policy sees it.
type Actor struct {
	ID   primitive.ObjectID
	Role string
}

// Group holds the facts about a resource's owning group that rules 3 and 4 need.
type Group struct {
	ID            primitive.ObjectID
	CreatedBy     primitive.ObjectID
	Creators      []primitive.ObjectID
	ActorIsMember bool
}

// HasAuthority reports whether id is the group's primary creator or a creator.
func (g *Group) HasAuthority(id primitive.ObjectID) bool {
	if g == nil || id.IsZero() {
		return false
	}
	if g.CreatedBy == id {
		return true
	}
	for _, c := range g.Creators {
		if c == id {
			return true
		}
	}
	return false
}

// Resource describes the target of an action.
type Resource struct {
	Kind Kind

	// OwnerID is created_by for content, uploaded_by for files, created_by
	// for groups. Zero when the resource has no owner or does not exist yet.
	OwnerID primitive.ObjectID

	// Group is the owning group; nil for resources outside any group.
	Group *Group

	// TargetRole is the system role of the user being acted on (KindUser),
	// or the role being requested when creating a user.
	TargetRole string
}

// Decision is the outcome of CanPerform.
type Decision struct {
	Allowed bool
	Reason  apperr.Kind
	Message string
}

// Err returns nil when allowed, otherwise the denial as an *apperr.Error.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return apperr.New(d.Reason, d.Message)
}

func allow() Decision { return Decision{Allowed: true} }

func deny(k apperr.Kind, msg string) Decision {
	return Decision{Reason: k, Message: msg}
}

func isUserAction(a Action) bool {
	switch a {
	case ListUsers, CreateUser, ApproveUser, DeactivateUser, ActivateUser, DeleteUser:
		return true
	}
	return false
}

// CanPerform decides whether actor may perform action on res.
func CanPerform(actor Actor, action Action, res Resource) Decision {
	if actor.ID.IsZero() {
		return deny(apperr.KindUnauthenticated, "sign in required")
	}

	// 1. admin
	if actor.Role == models.RoleAdmin {
		return allow()
	}

	// 2. ownership
	if !res.OwnerID.IsZero() && res.OwnerID == actor.ID && (action == Update || action == Delete) {
		return allow()
	}

	// 3. group authority
	if actor.Role == models.RoleTeacher && res.Group.HasAuthority(actor.ID) {
		switch action {
		case Create, Contribute, Update, ManageMembers:
			return allow()
		case Delete:
			if res.Kind != KindGroup {
				return allow()
			}
		case Read:
			return allow()
		}
	}

	// 4. membership for reads and member contributions
	if (action == Read || action == Contribute) && res.Group != nil {
		if res.Group.ActorIsMember {
			return allow()
		}
		return deny(apperr.KindNotGroupMember, "not a member of this group")
	}

	// 5. role gate for user administration
	if isUserAction(action) {
		if actor.Role != models.RoleTeacher {
			return deny(apperr.KindInsufficientPermission, "admin or teacher role required")
		}
		if res.TargetRole == models.RoleAdmin {
			if action == CreateUser {
				return deny(apperr.KindInsufficientPermission, "only an admin can create an admin")
			}
			return deny(apperr.KindCannotModifyAdmin, "teachers cannot modify admin accounts")
		}
		return allow()
	}

	if action == CreateGroup && actor.Role == models.RoleTeacher {
		return allow()
	}

	// 6. default
	if res.Group != nil {
		if res.Kind == KindGroup && action == Delete {
			return deny(apperr.KindInsufficientPermission, "only the primary creator or an admin can delete a group")
		}
		return deny(apperr.KindInsufficientPermission, "insufficient group authority")
	}
	return deny(apperr.KindInsufficientPermission, "insufficient permissions")
}

// Require is CanPerform returning an error.
func Require(actor Actor, action Action, res Resource) error {
	return CanPerform(actor, action, res).Err()
}
