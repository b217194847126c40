// internal/app/features/catalog/classes.go
package catalog

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/learnportal/internal/app/system/apperr"
	"github.com/dalemusser/learnportal/internal/app/system/htmlsanitize"
	"github.com/dalemusser/learnportal/internal/app/system/normalize"
	"github.com/dalemusser/learnportal/internal/app/system/respond"
	"github.com/dalemusser/learnportal/internal/app/system/timeouts"
	"github.com/dalemusser/learnportal/internal/app/system/txn"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type classRequest struct {
	Name        *string    `json:"name" validate:"omitempty,min=1,max=120"`
	CourseID    *string    `json:"courseId"`
	TeacherID   *string    `json:"teacherId"`
	StudentIDs  []string   `json:"studentIds" validate:"max=500"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	Location    *string    `json:"location" validate:"omitempty,max=200"`
	MeetingLink *string    `json:"meetingLink" validate:"omitempty,url,max=500"`
	Status      *string    `json:"status"`
}

// apply copies the request onto c and parses its ids.
func (req classRequest) apply(c *models.Class) error {
	if req.Name != nil {
		c.Name = htmlsanitize.Plain(*req.Name)
	}
	if req.CourseID != nil {
		id, err := respond.ParseID(*req.CourseID, "course")
		if err != nil {
			return apperr.Validation("courseId is invalid")
		}
		c.CourseID = id
	}
	if req.TeacherID != nil {
		id, err := respond.ParseID(*req.TeacherID, "teacher")
		if err != nil {
			return apperr.Validation("Invalid, unapproved, or inactive teacher")
		}
		c.TeacherID = id
	}
	if req.StudentIDs != nil {
		ids := make([]primitive.ObjectID, 0, len(req.StudentIDs))
		seen := map[primitive.ObjectID]bool{}
		for _, s := range req.StudentIDs {
			id, err := primitive.ObjectIDFromHex(s)
			if err != nil {
				return apperr.Validation("One or more students are invalid, unapproved, or inactive")
			}
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		c.StudentIDs = ids
	}
	if req.StartDate != nil {
		c.StartDate = req.StartDate.UTC()
	}
	if req.EndDate != nil {
		end := req.EndDate.UTC()
		c.EndDate = &end
	}
	if req.Location != nil {
		c.Location = htmlsanitize.Plain(*req.Location)
	}
	if req.MeetingLink != nil {
		c.MeetingLink = *req.MeetingLink
	}
	if req.Status != nil {
		c.Status = normalize.Status(*req.Status)
	}

	switch {
	case c.Name == "":
		return apperr.Validation("name is required")
	case c.CourseID.IsZero():
		return apperr.Validation("courseId is required")
	case c.TeacherID.IsZero():
		return apperr.Validation("teacherId is required")
	case c.StartDate.IsZero():
		return apperr.Validation("startDate is required")
	case c.EndDate != nil && c.EndDate.Before(c.StartDate):
		return apperr.Validation("endDate must not be before startDate")
	case c.Status != "" && !models.ValidClassStatus(c.Status):
		return apperr.Validation("status must be upcoming, active or completed")
	}
	return nil
}

// eligible reports whether u can be placed in a class in role.
func eligible(u models.User, role string) bool {
	return u.Role == role && u.IsActive() && u.IsApproved()
}

// checkRoster verifies the course exists and that the teacher and every
// student are approved, active accounts of the right role.
func (h *Handler) checkRoster(ctx context.Context, c models.Class) error {
	if _, err := h.Courses.GetByID(ctx, c.CourseID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperr.Validation("course does not exist")
		}
		return err
	}
	teacher, err := h.Users.GetByID(ctx, c.TeacherID)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}
	if err != nil || !eligible(teacher, models.RoleTeacher) {
		return apperr.Validation("Invalid, unapproved, or inactive teacher").WithCode("INVALID_TEACHER")
	}
	students, err := h.Users.FindByIDs(ctx, c.StudentIDs)
	if err != nil {
		return err
	}
	ok := 0
	for _, s := range students {
		if eligible(s, models.RoleStudent) {
			ok++
		}
	}
	if ok != len(c.StudentIDs) {
		return apperr.Validation("One or more students are invalid, unapproved, or inactive").WithCode("INVALID_STUDENTS")
	}
	return nil
}

// HandleCreateClass handles POST /api/admin/classes.
func (h *Handler) HandleCreateClass(w http.ResponseWriter, r *http.Request) {
	var req classRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var c models.Class
	if err := req.apply(&c); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.checkRoster(ctx, c); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	var created models.Class
	err := txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		var err error
		created, err = h.Classes.Create(ctx, c)
		if err != nil {
			return err
		}
		return h.Profiles.LinkClass(ctx, created.ID, created.TeacherID, created.StudentIDs)
	})
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	h.Log.Info("class created", zap.String("class_id", created.ID.Hex()), zap.Int("students", len(created.StudentIDs)))
	respond.Created(w, map[string]any{"message": "Class created", "class": created})
}

// HandleUpdateClass handles PATCH /api/admin/classes/{id}. Teacher and
// student profile links follow the new roster in the same transaction.
func (h *Handler) HandleUpdateClass(w http.ResponseWriter, r *http.Request) {
	id, err := respond.PathID(r, "id", "class")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var req classRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	old, err := h.Classes.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		respond.Error(w, r, h.Log, apperr.NotFound("class"))
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	c := old
	c.StudentIDs = append([]primitive.ObjectID(nil), old.StudentIDs...)
	if err := req.apply(&c); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := h.checkRoster(ctx, c); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	var droppedTeachers []primitive.ObjectID
	if old.TeacherID != c.TeacherID {
		droppedTeachers = append(droppedTeachers, old.TeacherID)
	}
	droppedStudents := missingFrom(old.StudentIDs, c.StudentIDs)

	var updated models.Class
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		var err error
		updated, err = h.Classes.Replace(ctx, c)
		if err != nil {
			return err
		}
		if err := h.Profiles.UnlinkClassFrom(ctx, c.ID, droppedTeachers, droppedStudents); err != nil {
			return err
		}
		return h.Profiles.LinkClass(ctx, c.ID, c.TeacherID, c.StudentIDs)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		respond.Error(w, r, h.Log, apperr.NotFound("class"))
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, map[string]any{"message": "Class updated", "class": updated})
}

// missingFrom returns the ids of a that are not in b.
func missingFrom(a, b []primitive.ObjectID) []primitive.ObjectID {
	keep := make(map[primitive.ObjectID]bool, len(b))
	for _, id := range b {
		keep[id] = true
	}
	var out []primitive.ObjectID
	for _, id := range a {
		if !keep[id] {
			out = append(out, id)
		}
	}
	return out
}

type classRow struct {
	models.Class
	CourseCode   string `json:"courseCode"`
	StudentCount int    `json:"studentCount"`
}

// ServeClasses handles GET /api/admin/classes.
func (h *Handler) ServeClasses(w http.ResponseWriter, r *http.Request) {
	status := normalize.Status(query.Get(r, "status"))
	if status != "" && !models.ValidClassStatus(status) {
		respond.Error(w, r, h.Log, apperr.Validation("status must be upcoming, active or completed"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	page, limit := respond.Page(r, 20, 100)
	classes, total, err := h.Classes.List(ctx, status, respond.Skip(page, limit), int64(limit))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	courseIDs := make([]primitive.ObjectID, 0, len(classes))
	for _, c := range classes {
		courseIDs = append(courseIDs, c.CourseID)
	}
	codes, err := h.Courses.Codes(ctx, courseIDs)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	rows := make([]classRow, 0, len(classes))
	for _, c := range classes {
		rows = append(rows, classRow{Class: c, CourseCode: codes[c.CourseID], StudentCount: len(c.StudentIDs)})
	}
	respond.OK(w, respond.NewPaged(rows, total, page, limit))
}

// HandleDeleteClass handles DELETE /api/admin/classes/{id}.
func (h *Handler) HandleDeleteClass(w http.ResponseWriter, r *http.Request) {
	id, err := respond.PathID(r, "id", "class")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	res, err := h.Cascade.DeleteClass(ctx, id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	h.Log.Info("class deleted", zap.String("class_id", id.Hex()))
	respond.OK(w, map[string]any{"message": "Class deleted", "removed": res})
}
