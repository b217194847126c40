// internal/app/store/users/account.go
package userstore

import (
	"context"

	profilestore "github.com/dalemusser/learnportal/internal/app/store/profiles"
	"github.com/dalemusser/learnportal/internal/app/system/txn"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// CreateAccount inserts u and its student or teacher profile in one
// transaction.
func CreateAccount(ctx context.Context, db *mongo.Database, logger *zap.Logger, u models.User, d profilestore.Details) (models.User, error) {
	users := New(db)
	profiles := profilestore.New(db)

	var created models.User
	err := txn.Run(ctx, db, logger, func(ctx context.Context) error {
		var err error
		created, err = users.Create(ctx, u)
		if err != nil {
			return err
		}
		return profiles.CreateFor(ctx, created, d)
	})
	if err != nil {
		return models.User{}, err
	}
	return created, nil
}
