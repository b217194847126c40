// internal/app/system/auth/manager.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/learnportal/internal/app/system/apperr"
	"github.com/dalemusser/learnportal/internal/app/system/respond"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// UserFinder loads a user by id. A missing user is mongo.ErrNoDocuments.
type UserFinder interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
}

// Manager issues bearer tokens and resolves them to principals.
type Manager struct {
	secret []byte
	ttl    time.Duration
	users  UserFinder
	logger *zap.Logger
	now    func() time.Time
}

// NewManager validates the secret and builds a Manager.
func NewManager(secret string, ttl time.Duration, users UserFinder, logger *zap.Logger) (*Manager, error) {
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("jwt secret must be at least %d characters", MinSecretLen)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		users:  users,
		logger: logger,
		now:    time.Now,
	}, nil
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return "", false
	}
	parts := strings.Fields(h)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// Resolve maps a request's bearer token to a principal.
//
//   - missing or malformed header: Unauthenticated
//   - bad signature, expired, or unknown user: InvalidToken
//   - user found but not active: AccountInactive
func (m *Manager) Resolve(r *http.Request) (*Principal, error) {
	tokenStr, ok := bearerToken(r)
	if !ok {
		return nil, apperr.Unauthenticated("authorization token not provided")
	}
	claims, err := m.Parse(tokenStr)
	if err != nil {
		return nil, apperr.InvalidToken(err)
	}
	uid, err := claims.UserID()
	if err != nil {
		return nil, apperr.InvalidToken(err)
	}

	u, err := m.users.GetByID(r.Context(), uid)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.InvalidToken(errors.New("user no longer exists"))
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive() {
		return nil, apperr.AccountInactive()
	}
	return &Principal{
		ID:     u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Role:   u.Role,
		Status: u.Status,
	}, nil
}

// RequireSignedIn resolves the bearer token and rejects the request when it
// cannot be resolved.
func (m *Manager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		p, err := m.Resolve(r)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindInvalidToken {
				m.logger.Debug("token rejected", zap.String("path", r.URL.Path), zap.Error(err))
			}
			respond.Error(w, r, m.logger, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// RequireRole allows only principals whose role is in allowed.
// It must run after RequireSignedIn.
func RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := CurrentUser(r)
			if !ok {
				respond.Error(w, r, nil, apperr.Unauthenticated("sign in required"))
				return
			}
			if _, ok := set[p.Role]; !ok {
				respond.Error(w, r, nil, apperr.Forbidden("your role cannot perform this action"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func init() {
	respond.SetActorFunc(func(r *http.Request) string {
		if p, ok := CurrentUser(r); ok {
			return p.ID.Hex()
		}
		return ""
	})
}
