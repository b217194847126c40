// internal/app/features/login/login.go
package login

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/learnportal/internal/app/system/apperr"
	"github.com/dalemusser/learnportal/internal/app/system/auth"
	"github.com/dalemusser/learnportal/internal/app/system/authutil"
	"github.com/dalemusser/learnportal/internal/app/system/respond"
	"github.com/dalemusser/learnportal/internal/app/system/timeouts"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	Role      string      `json:"role"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      models.User `json:"user"`
}

func invalidCredentials() error {
	return apperr.New(apperr.KindValidationFailed, "Invalid credentials").WithCode("INVALID_CREDENTIALS")
}

// HandleLogin verifies credentials and issues a bearer token.
// POST /api/auth/login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	if h.Limiter != nil {
		if ok, reason := h.Limiter.Check(r, req.Email); !ok {
			respond.Error(w, r, h.Log, apperr.New(apperr.KindRateLimited, reason))
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		respond.Error(w, r, h.Log, invalidCredentials())
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if !authutil.CheckPassword(u.PasswordHash, req.Password) {
		h.Log.Debug("login rejected: bad password", zap.String("user_id", u.ID.Hex()))
		respond.Error(w, r, h.Log, invalidCredentials())
		return
	}
	if !u.IsActive() {
		respond.Error(w, r, h.Log, apperr.AccountInactive())
		return
	}
	if !u.IsApproved() {
		respond.Error(w, r, h.Log, apperr.AccountPending())
		return
	}

	token, exp, err := h.Tokens.Issue(u.ID, u.Role)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if h.Limiter != nil {
		h.Limiter.ResetEmail(req.Email)
	}
	h.Log.Info("user logged in", zap.String("user_id", u.ID.Hex()))
	respond.OK(w, loginResponse{Token: token, Role: u.Role, ExpiresAt: exp, User: u})
}

// ServeMe returns the signed-in user and their role profile.
// GET /api/auth/me
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, r, h.Log, apperr.Unauthenticated("sign in required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, p.ID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		respond.Error(w, r, h.Log, apperr.NotFound("user"))
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	profile, err := h.Profiles.ForUser(ctx, u.ID, u.Role)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, map[string]any{"user": u, "profile": profile})
}
