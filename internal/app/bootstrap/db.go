// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	profilestore "github.com/dalemusser/learnportal/internal/app/store/profiles"
	userstore "github.com/dalemusser/learnportal/internal/app/store/users"
	"github.com/dalemusser/learnportal/internal/app/system/authutil"
	"github.com/dalemusser/learnportal/internal/app/system/indexes"
	"github.com/dalemusser/learnportal/internal/app/system/timeouts"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ConnectDB opens the MongoDB client, verifies it with a ping and builds
// the configured file storage backend.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("mongo ping: %w", err)
	}
	logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))

	storage, err := buildStorage(ctx, appCfg, logger)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, err
	}

	return DBDeps{
		MongoClient:   client,
		MongoDatabase: client.Database(appCfg.MongoDatabase),
		Storage:       storage,
	}, nil
}

// EnsureSchema creates indexes and the bootstrap admin.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase, logger); err != nil {
		return err
	}
	if appCfg.BootstrapAdminEmail == "" {
		return nil
	}
	return ensureBootstrapAdmin(ctx, deps, appCfg.BootstrapAdminEmail, appCfg.BootstrapAdminPassword, logger)
}

// ensureBootstrapAdmin promotes the user with email to an active, approved
// admin, creating the account when it does not exist yet. Creation needs a
// password; without one the step is skipped with a warning.
func ensureBootstrapAdmin(ctx context.Context, deps DBDeps, email, password string, logger *zap.Logger) error {
	db := deps.MongoDatabase
	users := userstore.New(db)

	u, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if u.Role == models.RoleAdmin && u.Status == models.StatusActive && u.ApprovalStatus == models.ApprovalApproved {
			return nil
		}
		if err := users.PromoteAdmin(ctx, u.ID); err != nil {
			return fmt.Errorf("promote bootstrap admin: %w", err)
		}
		logger.Info("promoted bootstrap admin", zap.String("user_id", u.ID.Hex()), zap.String("previous_role", u.Role))
		return nil
	case !errors.Is(err, mongo.ErrNoDocuments):
		return err
	}

	if password == "" {
		logger.Warn("bootstrap admin not found and no password configured; skipping", zap.String("email", email))
		return nil
	}
	hash, err := authutil.HashPassword(password)
	if err != nil {
		return fmt.Errorf("bootstrap admin password: %w", err)
	}
	created, err := userstore.CreateAccount(ctx, db, logger, models.User{
		Name:           "Administrator",
		Email:          email,
		PasswordHash:   hash,
		Role:           models.RoleAdmin,
		Status:         models.StatusActive,
		ApprovalStatus: models.ApprovalApproved,
	}, profilestore.Details{})
	if err != nil {
		return fmt.Errorf("create bootstrap admin: %w", err)
	}
	logger.Info("created bootstrap admin", zap.String("user_id", created.ID.Hex()))
	return nil
}
