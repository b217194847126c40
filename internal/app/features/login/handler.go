// internal/app/features/login/handler.go
package login

import (
	profilestore "github.com/dalemusser/learnportal/internal/app/store/profiles"
	userstore "github.com/dalemusser/learnportal/internal/app/store/users"
	"github.com/dalemusser/learnportal/internal/app/system/auth"
	"github.com/dalemusser/learnportal/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves registration, login and the signed-in user's identity.
type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	Users    *userstore.Store
	Profiles *profilestore.Store
	Tokens   *auth.Manager
	Limiter  *ratelimit.LoginLimiter
}

func NewHandler(db *mongo.Database, tokens *auth.Manager, limiter *ratelimit.LoginLimiter, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Log:      logger,
		Users:    userstore.New(db),
		Profiles: profilestore.New(db),
		Tokens:   tokens,
		Limiter:  limiter,
	}
}
