// internal/app/policy/access/invariants.go
package access

import (
	"github.com/dalemusser/learnportal/internal/app/system/apperr"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CheckGroupRole enforces that a creator membership goes only to a teacher
// or admin, and that roleInGroup is a known value.
func CheckGroupRole(roleInGroup, userRole string) error {
	switch roleInGroup {
	case models.GroupRoleMember:
		return nil
	case models.GroupRoleCreator:
		if userRole == models.RoleTeacher || userRole == models.RoleAdmin {
			return nil
		}
		return apperr.New(apperr.KindInvalidGroupRole, "only teachers or admins can be group creators")
	}
	return apperr.Validation("role_in_group must be member or creator")
}

// CheckMemberRemoval rejects removing (or demoting) the group's primary creator.
func CheckMemberRemoval(g *Group, userID primitive.ObjectID) error {
	if g != nil && g.CreatedBy == userID {
		return apperr.New(apperr.KindCannotRemovePrimaryCreator, "the primary group creator cannot be removed")
	}
	return nil
}

// CheckParentGroup enforces that a reply lives in its parent's group.
func CheckParentGroup(replyGroup, parentGroup primitive.ObjectID) error {
	if replyGroup != parentGroup {
		return apperr.New(apperr.KindParentGroupMismatch, "Group ID does not match parent group")
	}
	return nil
}
