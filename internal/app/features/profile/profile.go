// internal/app/features/profile/profile.go
package profile

import (
	"context"
	"errors"
	"net/http"

	userstore "github.com/dalemusser/learnportal/internal/app/store/users"
	"github.com/dalemusser/learnportal/internal/app/system/apperr"
	"github.com/dalemusser/learnportal/internal/app/system/auth"
	"github.com/dalemusser/learnportal/internal/app/system/authutil"
	"github.com/dalemusser/learnportal/internal/app/system/htmlsanitize"
	"github.com/dalemusser/learnportal/internal/app/system/respond"
	"github.com/dalemusser/learnportal/internal/app/system/timeouts"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func (h *Handler) currentUser(ctx context.Context, r *http.Request) (models.User, error) {
	p, ok := auth.CurrentUser(r)
	if !ok {
		return models.User{}, apperr.Unauthenticated("sign in required")
	}
	u, err := h.Users.GetByID(ctx, p.ID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, apperr.NotFound("user")
	}
	return u, err
}

// ServeProfile handles GET /api/profile.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.currentUser(ctx, r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	details, err := h.Profiles.ForUser(ctx, u.ID, u.Role)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, map[string]any{"user": u, "profile": details})
}

type updateRequest struct {
	Name  string `json:"name" validate:"max=100"`
	Email string `json:"email" validate:"omitempty,email,max=254"`
}

// HandleUpdate handles PATCH /api/profile. At least one of name or email
// is required.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	name := htmlsanitize.Plain(req.Name)
	if name == "" && req.Email == "" {
		respond.Error(w, r, h.Log, apperr.Validation("name or email is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.currentUser(ctx, r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if req.Email != "" {
		taken, err := h.Users.EmailExistsForOther(ctx, req.Email, u.ID)
		if err != nil {
			respond.Error(w, r, h.Log, err)
			return
		}
		if taken {
			respond.Error(w, r, h.Log, apperr.Duplicate("email already in use"))
			return
		}
	}

	updated, err := h.Users.UpdateProfile(ctx, u.ID, userstore.ProfileUpdate{Name: name, Email: req.Email})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		respond.Error(w, r, h.Log, apperr.Duplicate("email already in use"))
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, map[string]any{"message": "Profile updated", "user": updated})
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

// HandleChangePassword handles POST /api/profile/password.
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.currentUser(ctx, r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if !authutil.CheckPassword(u.PasswordHash, req.CurrentPassword) {
		respond.Error(w, r, h.Log, apperr.Validation("current password is incorrect").WithCode("INVALID_CURRENT_PASSWORD"))
		return
	}
	if err := authutil.ValidatePassword(req.NewPassword); err != nil {
		respond.Error(w, r, h.Log, apperr.Validation(err.Error()))
		return
	}
	hash, err := authutil.HashPassword(req.NewPassword)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := h.Users.SetPasswordHash(ctx, u.ID, hash); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	h.Log.Info("password changed", zap.String("user_id", u.ID.Hex()))
	respond.OK(w, map[string]string{"message": "Password updated"})
}
