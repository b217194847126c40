// internal/app/store/cascade/approve.go
package cascade

import (
	"context"

	"github.com/dalemusser/learnportal/internal/app/system/apperr"
	"github.com/dalemusser/learnportal/internal/app/system/txn"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ApprovedUser is the summary returned for each user approved in a batch.
type ApprovedUser struct {
	ID    primitive.ObjectID `json:"_id"`
	Name  string             `json:"name"`
	Email string             `json:"email"`
	Role  string             `json:"role"`
}

// SkippedUser names a user left out of a batch and its current state.
type SkippedUser struct {
	UserID        primitive.ObjectID `json:"userId"`
	CurrentStatus string             `json:"currentStatus"`
}

// Skipped groups the users that were not approved, by reason.
type Skipped struct {
	Count           int                  `json:"count"`
	AlreadyApproved []SkippedUser        `json:"alreadyApproved"`
	Admins          []primitive.ObjectID `json:"admins"`
	InvalidRoles    []primitive.ObjectID `json:"invalidRoles"`
}

// ApprovalReport is the outcome of ApproveUsers.
type ApprovalReport struct {
	ApprovedCount int64          `json:"approvedCount"`
	ApprovedUsers []ApprovedUser `json:"approvedUsers"`
	Skipped       Skipped        `json:"skipped"`
}

// ApproveUsers partitions ids into admins, already approved, invalid roles
// and approvable users, then approves the approvable subset in one
// transaction. Unknown ids fail the whole batch with USERS_NOT_FOUND; a batch
// with nothing to approve fails with NO_APPROVABLE_USERS.
func (e *Enforcer) ApproveUsers(ctx context.Context, ids []primitive.ObjectID) (ApprovalReport, error) {
	ids = dedupIDs(ids)
	if len(ids) == 0 {
		return ApprovalReport{}, apperr.Validation("userIds must not be empty").WithCode("EMPTY_ARRAY")
	}

	cur, err := e.coll("users").Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return ApprovalReport{}, err
	}
	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return ApprovalReport{}, err
	}

	found := make(map[primitive.ObjectID]models.User, len(users))
	for _, u := range users {
		found[u.ID] = u
	}
	var missing []primitive.ObjectID
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return ApprovalReport{}, apperr.New(apperr.KindNotFound, "some users were not found").
			WithCode("USERS_NOT_FOUND").
			WithDetails(map[string]any{"missingIds": missing})
	}

	rep := ApprovalReport{
		ApprovedUsers: []ApprovedUser{},
		Skipped: Skipped{
			AlreadyApproved: []SkippedUser{},
			Admins:          []primitive.ObjectID{},
			InvalidRoles:    []primitive.ObjectID{},
		},
	}
	var approvable []primitive.ObjectID
	for _, id := range ids {
		u := found[id]
		switch {
		case u.Role == models.RoleAdmin:
			rep.Skipped.Admins = append(rep.Skipped.Admins, u.ID)
		case u.Role != models.RoleStudent && u.Role != models.RoleTeacher:
			rep.Skipped.InvalidRoles = append(rep.Skipped.InvalidRoles, u.ID)
		case u.ApprovalStatus == models.ApprovalApproved:
			rep.Skipped.AlreadyApproved = append(rep.Skipped.AlreadyApproved,
				SkippedUser{UserID: u.ID, CurrentStatus: u.ApprovalStatus})
		default:
			approvable = append(approvable, u.ID)
			rep.ApprovedUsers = append(rep.ApprovedUsers,
				ApprovedUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role})
		}
	}
	rep.Skipped.Count = len(rep.Skipped.AlreadyApproved) + len(rep.Skipped.Admins) + len(rep.Skipped.InvalidRoles)

	if len(approvable) == 0 {
		return ApprovalReport{}, apperr.Validation("no users in the batch can be approved").
			WithCode("NO_APPROVABLE_USERS").
			WithDetails(rep.Skipped)
	}

	err = txn.Run(ctx, e.db, e.logger, func(ctx context.Context) error {
		res, err := e.users.ApproveMany(ctx, approvable)
		if err != nil {
			return err
		}
		rep.ApprovedCount = res
		return nil
	})
	if err != nil {
		return ApprovalReport{}, err
	}
	e.logger.Info("bulk approval",
		zap.Int64("approved", rep.ApprovedCount),
		zap.Int("skipped", rep.Skipped.Count))
	return rep, nil
}

func dedupIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
