// internal/app/features/systemusers/list.go
package systemusers

import (
	"context"
	"net/http"

	"github.com/dalemusser/learnportal/internal/app/policy/access"
	"github.com/dalemusser/learnportal/internal/app/policy/grouppolicy"
	userstore "github.com/dalemusser/learnportal/internal/app/store/users"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/learnportal/internal/app/system/respond"
	"github.com/dalemusser/learnportal/internal/app/system/timeouts"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// userRow is one entry of the admin user list.
type userRow struct {
	models.User
	Student *models.Student `json:"student,omitempty"`
	Teacher *models.Teacher `json:"teacher,omitempty"`
}

// ServeList handles GET /api/admin/users.
//
// Filters: role, status, approvalStatus, search (name prefix). Paginated
// with page/limit.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	actor, _ := grouppolicy.Actor(r)
	if err := access.Require(actor, access.ListUsers, access.Resource{Kind: access.KindUser}); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	page, limit := respond.Page(r, 20, 100)
	f := userstore.ListFilter{
		Role:           query.Get(r, "role"),
		Status:         query.Get(r, "status"),
		ApprovalStatus: query.Get(r, "approvalStatus"),
		Search:         query.Search(r, "search"),
	}
	users, total, err := h.Users.List(ctx, f, respond.Skip(page, limit), int64(limit))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ids := make([]primitive.ObjectID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	students, err := h.Profiles.StudentsByUser(ctx, ids)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	teachers, err := h.Profiles.TeachersByUser(ctx, ids)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	rows := make([]userRow, 0, len(users))
	for _, u := range users {
		row := userRow{User: u}
		if s, ok := students[u.ID]; ok {
			row.Student = &s
		}
		if t, ok := teachers[u.ID]; ok {
			row.Teacher = &t
		}
		rows = append(rows, row)
	}
	respond.OK(w, respond.NewPaged(rows, total, page, limit))
}
