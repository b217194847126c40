// internal/app/features/login/register.go
package login

import (
	"context"
	"errors"
	"net/http"

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

type registerRequest struct {
	Name          string   `json:"name" validate:"required,max=100"`
	Email         string   `json:"email" validate:"required,email,max=254"`
	Password      string   `json:"password" validate:"required"`
	Role          string   `json:"role" validate:"required"`
	Phone         string   `json:"phone" validate:"max=30"`
	SkillLevel    string   `json:"skillLevel" validate:"omitempty,oneof=beginner intermediate advanced"`
	Expertise     []string `json:"expertise" validate:"max=20,dive,max=60"`
	Qualification string   `json:"qualification" validate:"max=200"`
}

// HandleRegister creates a pending student or teacher account.
// POST /api/auth/register
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	role := normalize.Role(req.Role)
	switch role {
	case models.RoleStudent, models.RoleTeacher:
	case models.RoleAdmin:
		respond.Error(w, r, h.Log, apperr.Forbidden("admin registration is not allowed"))
		return
	default:
		respond.Error(w, r, h.Log, apperr.Validation("role must be student or teacher"))
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

	u, err := userstore.CreateAccount(ctx, h.DB, h.Log, models.User{
		Name:           htmlsanitize.Plain(req.Name),
		Email:          req.Email,
		PasswordHash:   hash,
		Role:           role,
		Status:         models.StatusActive,
		ApprovalStatus: models.ApprovalPending,
		Phone:          normalize.Name(req.Phone),
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

	h.Log.Info("user registered", zap.String("user_id", u.ID.Hex()), zap.String("role", u.Role))
	respond.Created(w, map[string]any{
		"message": "User registered, awaiting approval",
		"user":    u,
	})
}
