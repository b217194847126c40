// internal/app/store/files/filemeta.go
//
// Package filemeta stores file metadata records. The bytes live in a
// filestore backend.
package filemeta

import (
	"context"
	"time"

	"github.com/dalemusser/learnportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collections whose attachments arrays reference files.
var ReferencingCollections = []string{"announcements", "discussion_posts", "discussion_replies"}

type Store struct {
	db *mongo.Database
	c  *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{db: db, c: db.Collection("files")}
}

// Create inserts f.
func (s *Store) Create(ctx context.Context, f models.File) (models.File, error) {
	if f.ID.IsZero() {
		f.ID = primitive.NewObjectID()
	}
	f.CreatedAt = time.Now().UTC()
	if _, err := s.c.InsertOne(ctx, f); err != nil {
		return models.File{}, err
	}
	return f, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.File, error) {
	var f models.File
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&f)
	return f, err
}

// FindByIDs returns the files in ids that belong to groupID.
func (s *Store) FindByIDs(ctx context.Context, groupID primitive.ObjectID, ids []primitive.ObjectID) ([]models.File, error) {
	out := []models.File{}
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}, "group_id": groupID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByGroup returns a group's files newest first.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.File, error) {
	cur, err := s.c.Find(ctx, bson.M{"group_id": groupID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.File{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// References counts the announcements, posts and replies whose attachments
// include id.
func (s *Store) References(ctx context.Context, id primitive.ObjectID) (int64, error) {
	var total int64
	for _, name := range ReferencingCollections {
		n, err := s.db.Collection(name).CountDocuments(ctx, bson.M{"attachments": id})
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// Delete removes the metadata record.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
