// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/learnportal/internal/app/system/filestore"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database and back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Storage is the configured file backend before instrumentation.
	Storage filestore.Backend
}
