// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	announcementsfeature "github.com/dalemusser/learnportal/internal/app/features/announcements"
	catalogfeature "github.com/dalemusser/learnportal/internal/app/features/catalog"
	discussionsfeature "github.com/dalemusser/learnportal/internal/app/features/discussions"
	errorsfeature "github.com/dalemusser/learnportal/internal/app/features/errors"
	filesfeature "github.com/dalemusser/learnportal/internal/app/features/files"
	groupsfeature "github.com/dalemusser/learnportal/internal/app/features/groups"
	healthfeature "github.com/dalemusser/learnportal/internal/app/features/health"
	loginfeature "github.com/dalemusser/learnportal/internal/app/features/login"
	profilefeature "github.com/dalemusser/learnportal/internal/app/features/profile"
	"github.com/dalemusser/learnportal/internal/app/features/shared/attachments"
	systemusersfeature "github.com/dalemusser/learnportal/internal/app/features/systemusers"
	"github.com/dalemusser/learnportal/internal/app/store/cascade"
	filemeta "github.com/dalemusser/learnportal/internal/app/store/files"
	userstore "github.com/dalemusser/learnportal/internal/app/store/users"
	"github.com/dalemusser/learnportal/internal/app/system/auth"
	"github.com/dalemusser/learnportal/internal/app/system/downloadlink"
	"github.com/dalemusser/learnportal/internal/app/system/metrics"
	"github.com/dalemusser/learnportal/internal/app/system/ratelimit"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. LearnPortal builds the token manager,
// the instrumented storage backend and the cascade enforcer once, then
// mounts every feature router under /api.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	tokens, err := auth.NewManager(appCfg.JWTSecret, appCfg.JWTTTL, userstore.New(db), logger)
	if err != nil {
		logger.Error("token manager init failed", zap.Error(err))
		return nil, err
	}
	links, err := downloadlink.New(appCfg.DownloadKey, appCfg.DownloadTTL)
	if err != nil {
		logger.Error("download link signer init failed", zap.Error(err))
		return nil, err
	}

	m := metrics.New()
	storage := deps.Storage
	if storage != nil {
		storage = m.InstrumentBackend(storage)
	}
	enforcer := cascade.New(db, storage, logger, m)
	attach := attachments.New(storage, filemeta.New(db), int64(appCfg.StorageMaxUploadMB)<<20, logger)
	limiter := ratelimit.NewLoginLimiter(appCfg.LoginRatePerMinute)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   appCfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(m.Middleware)

	errorsHandler := errorsfeature.NewHandler()
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	// Operations
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", m.Handler())

	// Authentication; account provisioning shares the /api/auth prefix.
	sysUsersHandler := systemusersfeature.NewHandler(db, enforcer, logger)
	loginHandler := loginfeature.NewHandler(db, tokens, limiter, logger)
	authRouter := loginfeature.Routes(loginHandler)
	authRouter.With(tokens.RequireSignedIn, auth.RequireRole(models.RoleAdmin, models.RoleTeacher)).
		Post("/users", sysUsersHandler.HandleCreate)
	r.Mount("/api/auth", authRouter)

	profileHandler := profilefeature.NewHandler(db, logger)
	r.Mount("/api/profile", profilefeature.Routes(profileHandler, tokens))

	// Administration
	r.Mount("/api/admin/users", systemusersfeature.Routes(sysUsersHandler, tokens))
	catalogHandler := catalogfeature.NewHandler(db, enforcer, logger)
	r.Mount("/api/admin", catalogfeature.Routes(catalogHandler, tokens))

	// Groups and group content
	groupsHandler := groupsfeature.NewHandler(db, enforcer, logger)
	r.Mount("/api/groups", groupsfeature.Routes(groupsHandler, tokens))

	announcementsHandler := announcementsfeature.NewHandler(db, attach, enforcer, logger)
	r.Route("/api/announcements", func(r chi.Router) {
		r.Use(tokens.RequireSignedIn)
		announcementsHandler.MountRoutes(r)
	})

	discussionsHandler := discussionsfeature.NewHandler(db, attach, enforcer, logger)
	r.Mount("/api/discussions", discussionsfeature.Routes(discussionsHandler, tokens))

	filesHandler := filesfeature.NewHandler(db, attach, links, enforcer, logger)
	r.Mount("/api/files", filesfeature.Routes(filesHandler, tokens))

	logger.Info("routes mounted", zap.String("env", coreCfg.Env))
	return r, nil
}
