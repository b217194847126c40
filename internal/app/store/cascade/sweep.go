// internal/app/store/cascade/sweep.go
package cascade

import (
	"context"
	"errors"

	"github.com/dalemusser/learnportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// sweep tracks files that may have lost their last reference and the
// stored objects to remove once the transaction commits.
type sweep struct {
	candidates []primitive.ObjectID
	removed    []models.File
}

// sweepFiles deletes the metadata of every candidate file with no remaining
// reference and queues its object for removal.
func (e *Enforcer) sweepFiles(ctx context.Context, sw *sweep, res Result) error {
	seen := make(map[primitive.ObjectID]struct{}, len(sw.candidates))
	for _, id := range sw.candidates {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		refs, err := e.files.References(ctx, id)
		if err != nil {
			return err
		}
		if refs > 0 {
			continue
		}
		var f models.File
		err = e.coll("files").FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&f)
		if err != nil {
			if isNoDocs(err) {
				continue
			}
			return err
		}
		res.add("file", 1)
		sw.removed = append(sw.removed, f)
	}
	return nil
}

// removeObjects deletes stored objects after commit. Failures are logged;
// the metadata is already gone.
func (e *Enforcer) removeObjects(ctx context.Context, files []models.File) {
	for _, f := range files {
		if e.storage == nil || f.StorageID == "" {
			continue
		}
		if f.Backend != e.storage.Name() {
			e.logger.Warn("file stored on inactive backend; object left in place",
				zap.String("file_id", f.ID.Hex()),
				zap.String("backend", f.Backend))
			continue
		}
		if err := e.storage.Remove(ctx, f.StorageID); err != nil {
			e.logger.Warn("failed to remove stored object",
				zap.String("file_id", f.ID.Hex()),
				zap.String("storage_id", f.StorageID),
				zap.Error(err))
		}
	}
}

func isNoDocs(err error) bool { return errors.Is(err, mongo.ErrNoDocuments) }
