// internal/app/features/catalog/handler.go
//
// Package catalog serves the admin-managed course catalog and the classes
// scheduled from it.
package catalog

import (
	"net/http"

	"github.com/dalemusser/learnportal/internal/app/policy/access"
	"github.com/dalemusser/learnportal/internal/app/policy/grouppolicy"
	"github.com/dalemusser/learnportal/internal/app/store/cascade"
	classstore "github.com/dalemusser/learnportal/internal/app/store/classes"
	coursestore "github.com/dalemusser/learnportal/internal/app/store/courses"
	profilestore "github.com/dalemusser/learnportal/internal/app/store/profiles"
	userstore "github.com/dalemusser/learnportal/internal/app/store/users"
	"github.com/dalemusser/learnportal/internal/app/system/apperr"
	"github.com/dalemusser/learnportal/internal/app/system/respond"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	Courses  *coursestore.Store
	Classes  *classstore.Store
	Users    *userstore.Store
	Profiles *profilestore.Store
	Cascade  *cascade.Enforcer
}

func NewHandler(db *mongo.Database, enforcer *cascade.Enforcer, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Log:      logger,
		Courses:  coursestore.New(db),
		Classes:  classstore.New(db),
		Users:    userstore.New(db),
		Profiles: profilestore.New(db),
		Cascade:  enforcer,
	}
}

// requireCatalog lets through callers the access policy allows to manage
// the catalog. It runs after RequireSignedIn.
func (h *Handler) requireCatalog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := grouppolicy.Actor(r)
		if !ok {
			respond.Error(w, r, h.Log, apperr.Unauthenticated("authorization token not provided"))
			return
		}
		if err := access.Require(actor, access.ManageCatalog, access.Resource{Kind: access.KindCatalog}); err != nil {
			respond.Error(w, r, h.Log, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
