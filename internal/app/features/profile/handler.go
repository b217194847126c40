// internal/app/features/profile/handler.go
package profile

import (
	profilestore "github.com/dalemusser/learnportal/internal/app/store/profiles"
	userstore "github.com/dalemusser/learnportal/internal/app/store/users"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Users    *userstore.Store
	Profiles *profilestore.Store
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    userstore.New(db),
		Profiles: profilestore.New(db),
		Log:      logger,
	}
}
