// internal/app/features/systemusers/create.go
package systemusers

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/learnportal/internal/app/policy/access"
	"github.com/dalemusser/learnportal/internal/app/policy/grouppolicy"
	profilestore "github.com/dalemusser/learnportal/internal/app/store/profiles"
	userstore "github.com/dalemusser/learnportal/internal/app/store/users"
	"github.com/dalemusser/learnportal/internal/app/system/apperr"
	"github.com/dalemusser/learnportal/internal/app/system/authutil"
	"github.com/dalemusser/learnportal/internal/app/system/htmlsanitize"
	"github.com/dalemusser/learnportal/internal/app/system/normalize"
	"github.com/dalemusser/learnportal/internal/app/system/respond"
	"github.com/dalemusser/learnportal/internal/app/system/timeouts"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"go.uber.org/zap"
)

type createRequest struct {
	Name          string   `json:"name" validate:"required,max=100"`
	Email         string   `json:"email" validate:"required,email,max=254"`
	Password      string   `json:"password" validate:"required"`
	Role          string   `json:"role" validate:"required,oneof=student teacher admin"`
	Phone         string   `json:"phone" validate:"max=30"`
	SkillLevel    string   `json:"skillLevel" validate:"omitempty,oneof=beginner intermediate advanced"`
	Expertise     []string `json:"expertise" validate:"max=20,dive,max=60"`
	Qualification string   `json:"qualification" validate:"max=200"`
}

// HandleCreate provisions an approved account.
// POST /api/admin/users and POST /api/auth/users
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	role := normalize.Role(req.Role)

	actor, _ := grouppolicy.Actor(r)
	if err := access.Require(actor, access.CreateUser, access.Resource{Kind: access.KindUser, TargetRole: role}); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := authutil.ValidatePassword(req.Password); err != nil {
		respond.Error(w, r, h.Log, apperr.Validation(err.Error()))
		return
	}
	hash, err := authutil.HashPassword(req.Password)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	createdBy := actor.ID
	u, err := userstore.CreateAccount(ctx, h.DB, h.Log, models.User{
		Name:           htmlsanitize.Plain(req.Name),
		Email:          req.Email,
		PasswordHash:   hash,
		Role:           role,
		Status:         models.StatusActive,
		ApprovalStatus: models.ApprovalApproved,
		Phone:          normalize.Name(req.Phone),
		CreatedBy:      &createdBy,
	}, profilestore.Details{
		SkillLevel:    req.SkillLevel,
		Expertise:     req.Expertise,
		Qualification: htmlsanitize.Plain(req.Qualification),
	})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		respond.Error(w, r, h.Log, apperr.Duplicate("email already exists"))
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	h.Log.Info("user provisioned",
		zap.String("user_id", u.ID.Hex()),
		zap.String("role", u.Role),
		zap.String("created_by", actor.ID.Hex()))
	respond.Created(w, map[string]any{
		"success": true,
		"message": "User created",
		"user": map[string]any{
			"_id":    u.ID,
			"name":   u.Name,
			"email":  u.Email,
			"role":   u.Role,
			"status": u.Status,
		},
	})
}
