package access_test

import (
	"testing"

	"github.com/dalemusser/learnportal/internal/app/policy/access"
	"github.com/dalemusser/learnportal/internal/app/system/apperr"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	adminID   = primitive.NewObjectID()
	ownerID   = primitive.NewObjectID() // group created_by, teacher
	coCreator = primitive.NewObjectID() // in creators, teacher
	outsider  = primitive.NewObjectID() // teacher with no authority
	studentID = primitive.NewObjectID()
)

func group(actorIsMember bool) *access.Group {
	return &access.Group{
		ID:            primitive.NewObjectID(),
		CreatedBy:     ownerID,
		Creators:      []primitive.ObjectID{ownerID, coCreator},
		ActorIsMember: actorIsMember,
	}
}

func TestCanPerform(t *testing.T) {
	admin := access.Actor{ID: adminID, Role: models.RoleAdmin}
	owner := access.Actor{ID: ownerID, Role: models.RoleTeacher}
	co := access.Actor{ID: coCreator, Role: models.RoleTeacher}
	other := access.Actor{ID: outsider, Role: models.RoleTeacher}
	student := access.Actor{ID: studentID, Role: models.RoleStudent}

	tests := []struct {
		name   string
		actor  access.Actor
		action access.Action
		res    access.Resource
		allow  bool
		reason apperr.Kind
	}{
		{"admin deletes any group", admin, access.Delete, access.Resource{Kind: access.KindGroup, OwnerID: ownerID, Group: group(false)}, true, 0},
		{"admin reads without membership", admin, access.Read, access.Resource{Kind: access.KindGroup, Group: group(false)}, true, 0},
		{"co-creator creates announcement", co, access.Create, access.Resource{Kind: access.KindAnnouncement, Group: group(true)}, true, 0},
		{"outsider teacher creates announcement", other, access.Create, access.Resource{Kind: access.KindAnnouncement, Group: group(true)}, false, apperr.KindInsufficientPermission},
		{"co-creator deletes a student's post", co, access.Delete, access.Resource{Kind: access.KindPost, OwnerID: studentID, Group: group(true)}, true, 0},
		{"co-creator cannot delete the group", co, access.Delete, access.Resource{Kind: access.KindGroup, OwnerID: ownerID, Group: group(true)}, false, apperr.KindInsufficientPermission},
		{"primary creator deletes the group", owner, access.Delete, access.Resource{Kind: access.KindGroup, OwnerID: ownerID, Group: group(true)}, true, 0},
		{"co-creator edits the group", co, access.Update, access.Resource{Kind: access.KindGroup, OwnerID: ownerID, Group: group(true)}, true, 0},
		{"co-creator manages members", co, access.ManageMembers, access.Resource{Kind: access.KindMembership, Group: group(true)}, true, 0},
		{"student manages members", student, access.ManageMembers, access.Resource{Kind: access.KindMembership, Group: group(true)}, false, apperr.KindInsufficientPermission},
		{"student creator-listed still lacks teacher role", access.Actor{ID: coCreator, Role: models.RoleStudent}, access.Create, access.Resource{Kind: access.KindAnnouncement, Group: group(true)}, false, apperr.KindInsufficientPermission},
		{"student owner updates own reply", student, access.Update, access.Resource{Kind: access.KindReply, OwnerID: studentID, Group: group(true)}, true, 0},
		{"student updates someone else's post", student, access.Update, access.Resource{Kind: access.KindPost, OwnerID: outsider, Group: group(true)}, false, apperr.KindInsufficientPermission},
		{"member reads", student, access.Read, access.Resource{Kind: access.KindPost, Group: group(true)}, true, 0},
		{"non-member reads", student, access.Read, access.Resource{Kind: access.KindPost, Group: group(false)}, false, apperr.KindNotGroupMember},
		{"member contributes a post", student, access.Contribute, access.Resource{Kind: access.KindPost, Group: group(true)}, true, 0},
		{"non-member contributes", other, access.Contribute, access.Resource{Kind: access.KindPost, Group: group(false)}, false, apperr.KindNotGroupMember},
		{"uploader deletes own file", student, access.Delete, access.Resource{Kind: access.KindFile, OwnerID: studentID, Group: group(false)}, true, 0},
		{"teacher deactivates student", other, access.DeactivateUser, access.Resource{Kind: access.KindUser, TargetRole: models.RoleStudent}, true, 0},
		{"teacher deactivates admin", other, access.DeactivateUser, access.Resource{Kind: access.KindUser, TargetRole: models.RoleAdmin}, false, apperr.KindCannotModifyAdmin},
		{"teacher deletes admin", other, access.DeleteUser, access.Resource{Kind: access.KindUser, TargetRole: models.RoleAdmin}, false, apperr.KindCannotModifyAdmin},
		{"teacher creates admin", other, access.CreateUser, access.Resource{Kind: access.KindUser, TargetRole: models.RoleAdmin}, false, apperr.KindInsufficientPermission},
		{"teacher creates student", other, access.CreateUser, access.Resource{Kind: access.KindUser, TargetRole: models.RoleStudent}, true, 0},
		{"admin creates admin", admin, access.CreateUser, access.Resource{Kind: access.KindUser, TargetRole: models.RoleAdmin}, true, 0},
		{"student lists users", student, access.ListUsers, access.Resource{Kind: access.KindUser}, false, apperr.KindInsufficientPermission},
		{"teacher manages catalog", other, access.ManageCatalog, access.Resource{Kind: access.KindCatalog}, false, apperr.KindInsufficientPermission},
		{"teacher creates group", other, access.CreateGroup, access.Resource{Kind: access.KindGroup}, true, 0},
		{"student creates group", student, access.CreateGroup, access.Resource{Kind: access.KindGroup}, false, apperr.KindInsufficientPermission},
		{"anonymous actor", access.Actor{}, access.Read, access.Resource{Kind: access.KindGroup, Group: group(true)}, false, apperr.KindUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := access.CanPerform(tt.actor, tt.action, tt.res)
			assert.Equal(t, tt.allow, d.Allowed)
			if !tt.allow {
				assert.Equal(t, tt.reason, d.Reason)
				assert.Error(t, d.Err())
			} else {
				assert.NoError(t, d.Err())
			}
		})
	}
}

func TestCanPerform_InsufficientGroupAuthorityMessage(t *testing.T) {
	d := access.CanPerform(
		access.Actor{ID: outsider, Role: models.RoleTeacher},
		access.Create,
		access.Resource{Kind: access.KindAnnouncement, Group: group(true)},
	)
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Message, "insufficient group authority")
}

func TestCheckGroupRole(t *testing.T) {
	assert.NoError(t, access.CheckGroupRole(models.GroupRoleMember, models.RoleStudent))
	assert.NoError(t, access.CheckGroupRole(models.GroupRoleCreator, models.RoleTeacher))
	assert.NoError(t, access.CheckGroupRole(models.GroupRoleCreator, models.RoleAdmin))
	assert.True(t, apperr.Is(access.CheckGroupRole(models.GroupRoleCreator, models.RoleStudent), apperr.KindInvalidGroupRole))
	assert.True(t, apperr.Is(access.CheckGroupRole("owner", models.RoleTeacher), apperr.KindValidationFailed))
}

func TestCheckMemberRemoval(t *testing.T) {
	g := group(true)
	assert.True(t, apperr.Is(access.CheckMemberRemoval(g, ownerID), apperr.KindCannotRemovePrimaryCreator))
	assert.NoError(t, access.CheckMemberRemoval(g, coCreator))
}

func TestCheckParentGroup(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	assert.NoError(t, access.CheckParentGroup(a, a))
	err := access.CheckParentGroup(a, b)
	assert.True(t, apperr.Is(err, apperr.KindParentGroupMismatch))
}
