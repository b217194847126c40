package cascade_test

import (
	"testing"

	"github.com/dalemusser/learnportal/internal/app/system/apperr"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestApproveUsers_Partitions(t *testing.T) {
	v, ctx := setup(t)
	admin := v.fx.CreateAdmin(ctx, "Admin", "admin@example.com")
	pending := v.fx.CreatePendingStudent(ctx, "Pending", "pending@example.com")
	approved := v.fx.CreateStudent(ctx, "Approved", "approved@example.com")

	rep, err := v.e.ApproveUsers(ctx, []primitive.ObjectID{admin.ID, pending.ID, approved.ID, pending.ID})
	require.NoError(t, err)

	assert.Equal(t, int64(1), rep.ApprovedCount)
	require.Len(t, rep.ApprovedUsers, 1)
	assert.Equal(t, pending.ID, rep.ApprovedUsers[0].ID)
	assert.Equal(t, []primitive.ObjectID{admin.ID}, rep.Skipped.Admins)
	require.Len(t, rep.Skipped.AlreadyApproved, 1)
	assert.Equal(t, approved.ID, rep.Skipped.AlreadyApproved[0].UserID)
	assert.Equal(t, 2, rep.Skipped.Count)

	assert.Equal(t, int64(1), v.fx.Count(ctx, "users",
		bson.M{"_id": pending.ID, "approval_status": models.ApprovalApproved}))
}

func TestApproveUsers_MissingIDs(t *testing.T) {
	v, ctx := setup(t)
	pending := v.fx.CreatePendingStudent(ctx, "Pending", "pending@example.com")

	_, err := v.e.ApproveUsers(ctx, []primitive.ObjectID{pending.ID, primitive.NewObjectID()})
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "USERS_NOT_FOUND", ae.Code)
	assert.Equal(t, int64(1), v.fx.Count(ctx, "users",
		bson.M{"_id": pending.ID, "approval_status": models.ApprovalPending}))
}

func TestApproveUsers_NothingApprovable(t *testing.T) {
	v, ctx := setup(t)
	admin := v.fx.CreateAdmin(ctx, "Admin", "admin@example.com")

	_, err := v.e.ApproveUsers(ctx, []primitive.ObjectID{admin.ID})
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "NO_APPROVABLE_USERS", ae.Code)

	_, err = v.e.ApproveUsers(ctx, nil)
	ae, ok = apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "EMPTY_ARRAY", ae.Code)
}
