// internal/app/features/catalog/courses.go
package catalog

import (
	"context"
	"errors"
	"net/http"
	"time"

	coursestore "github.com/dalemusser/learnportal/internal/app/store/courses"
	"github.com/dalemusser/learnportal/internal/app/system/apperr"
	"github.com/dalemusser/learnportal/internal/app/system/htmlsanitize"
	"github.com/dalemusser/learnportal/internal/app/system/normalize"
	"github.com/dalemusser/learnportal/internal/app/system/respond"
	"github.com/dalemusser/learnportal/internal/app/system/timeouts"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type courseRequest struct {
	Name          *string  `json:"name" validate:"omitempty,min=1,max=120"`
	Code          *string  `json:"code" validate:"omitempty,max=20"`
	Description   *string  `json:"description" validate:"omitempty,max=2000"`
	Type          *string  `json:"type" validate:"omitempty,max=40"`
	Prerequisites []string `json:"prerequisites" validate:"max=50"`
}

// prerequisiteIDs parses and checks the prerequisite list. self is excluded
// from being its own prerequisite.
func (h *Handler) prerequisiteIDs(ctx context.Context, raw []string, self primitive.ObjectID) ([]primitive.ObjectID, error) {
	if raw == nil {
		return nil, nil
	}
	ids := make([]primitive.ObjectID, 0, len(raw))
	seen := map[primitive.ObjectID]bool{}
	for _, s := range raw {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil || id == self {
			return nil, apperr.Validation("One or more prerequisites are invalid").WithCode("INVALID_PREREQUISITES")
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	n, err := h.Courses.CountExisting(ctx, ids)
	if err != nil {
		return nil, err
	}
	if n != int64(len(ids)) {
		return nil, apperr.Validation("One or more prerequisites are invalid").WithCode("INVALID_PREREQUISITES")
	}
	return ids, nil
}

func validCode(code *string) error {
	if code != nil && !normalize.ValidCourseCode(normalize.CourseCode(*code)) {
		return apperr.Validation("code must be 2-20 letters, digits or dashes")
	}
	return nil
}

func sanitized(p *string) *string {
	if p == nil {
		return nil
	}
	s := htmlsanitize.Plain(*p)
	return &s
}

// HandleCreateCourse handles POST /api/admin/courses.
func (h *Handler) HandleCreateCourse(w http.ResponseWriter, r *http.Request) {
	var req courseRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if req.Name == nil || req.Code == nil || req.Type == nil {
		respond.Error(w, r, h.Log, apperr.Validation("name, code and type are required"))
		return
	}
	if err := validCode(req.Code); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	prereqs, err := h.prerequisiteIDs(ctx, req.Prerequisites, primitive.NilObjectID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	c := models.Course{
		Name:          htmlsanitize.Plain(*req.Name),
		Code:          *req.Code,
		Type:          *req.Type,
		Prerequisites: prereqs,
	}
	if req.Description != nil {
		c.Description = htmlsanitize.Plain(*req.Description)
	}
	created, err := h.Courses.Create(ctx, c)
	if errors.Is(err, coursestore.ErrDuplicateCode) {
		respond.Error(w, r, h.Log, apperr.Duplicate("Course code already exists"))
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	h.Log.Info("course created", zap.String("course_id", created.ID.Hex()), zap.String("code", created.Code))
	respond.Created(w, map[string]any{
		"message": "Course created",
		"course":  map[string]any{"_id": created.ID, "code": created.Code, "type": created.Type},
	})
}

// HandleUpdateCourse handles PATCH /api/admin/courses/{id}.
func (h *Handler) HandleUpdateCourse(w http.ResponseWriter, r *http.Request) {
	id, err := respond.PathID(r, "id", "course")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var req courseRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := validCode(req.Code); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	prereqs, err := h.prerequisiteIDs(ctx, req.Prerequisites, id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	c, err := h.Courses.Update(ctx, id, coursestore.Update{
		Name:          sanitized(req.Name),
		Code:          req.Code,
		Description:   sanitized(req.Description),
		Type:          req.Type,
		Prerequisites: prereqs,
	})
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		respond.Error(w, r, h.Log, apperr.NotFound("course"))
		return
	case errors.Is(err, coursestore.ErrDuplicateCode):
		respond.Error(w, r, h.Log, apperr.Duplicate("Course code already exists"))
		return
	case err != nil:
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, map[string]any{"message": "Course updated", "course": c})
}

type prerequisiteRef struct {
	ID   primitive.ObjectID `json:"_id"`
	Code string             `json:"code"`
	Name string             `json:"name"`
}

// ServeCourse handles GET /api/admin/courses/{id}.
func (h *Handler) ServeCourse(w http.ResponseWriter, r *http.Request) {
	id, err := respond.PathID(r, "id", "course")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, err := h.Courses.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		respond.Error(w, r, h.Log, apperr.NotFound("course"))
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	prereqs, err := h.Courses.FindByIDs(ctx, c.Prerequisites)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	refs := make([]prerequisiteRef, 0, len(prereqs))
	for _, p := range prereqs {
		refs = append(refs, prerequisiteRef{ID: p.ID, Code: p.Code, Name: p.Name})
	}
	classCount, err := h.Classes.CountByCourse(ctx, c.ID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	respond.OK(w, map[string]any{
		"success": true,
		"data": map[string]any{
			"_id":           c.ID,
			"name":          c.Name,
			"code":          c.Code,
			"description":   c.Description,
			"type":          c.Type,
			"prerequisites": refs,
			"metadata": map[string]any{
				"classCount":  classCount,
				"lastUpdated": c.UpdatedAt.Format(time.RFC3339),
			},
		},
	})
}

// ServeCourses handles GET /api/admin/courses.
func (h *Handler) ServeCourses(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	page, limit := respond.Page(r, 20, 100)
	courses, total, err := h.Courses.List(ctx, coursestore.ListFilter{
		Type:   query.Get(r, "type"),
		Search: query.Search(r, "search"),
	}, respond.Skip(page, limit), int64(limit))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, respond.NewPaged(courses, total, page, limit))
}

// HandleDeleteCourse handles DELETE /api/admin/courses/{id}. Classes of the
// course go with it.
func (h *Handler) HandleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	id, err := respond.PathID(r, "id", "course")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	res, err := h.Cascade.DeleteCourse(ctx, id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	h.Log.Info("course deleted", zap.String("course_id", id.Hex()), zap.Any("removed", res))
	respond.OK(w, map[string]any{"message": "Course deleted", "removed": res})
}
