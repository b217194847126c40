// internal/app/store/announcements/announcementstore.go
package announcementstore

import (
	"context"
	"time"

	"github.com/dalemusser/learnportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("announcements")}
}

// Create inserts a. Priority defaults to medium.
func (s *Store) Create(ctx context.Context, a models.Announcement) (models.Announcement, error) {
	now := time.Now().UTC()
	a.ID = primitive.NewObjectID()
	if a.Priority == "" {
		a.Priority = models.PriorityMedium
	}
	if a.Attachments == nil {
		a.Attachments = []primitive.ObjectID{}
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		return models.Announcement{}, err
	}
	return a, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Announcement, error) {
	var a models.Announcement
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	return a, err
}

// List returns announcements pinned first then newest first. A nil groupIDs
// slice means every group.
func (s *Store) List(ctx context.Context, groupIDs []primitive.ObjectID, skip, limit int64) ([]models.Announcement, int64, error) {
	filter := bson.M{}
	if groupIDs != nil {
		filter["group_id"] = bson.M{"$in": groupIDs}
	}
	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "pinned", Value: -1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(skip).SetLimit(limit)
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	out := []models.Announcement{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Update holds optional changes. Nil fields are left alone.
type Update struct {
	Title          *string
	Content        *string
	Priority       *string
	Pinned         *bool
	AddAttachments []primitive.ObjectID
}

// Update applies upd and returns the updated announcement.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (models.Announcement, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Title != nil {
		set["title"] = *upd.Title
	}
	if upd.Content != nil {
		set["content"] = *upd.Content
	}
	if upd.Priority != nil {
		set["priority"] = *upd.Priority
	}
	if upd.Pinned != nil {
		set["pinned"] = *upd.Pinned
	}
	change := bson.M{"$set": set}
	if len(upd.AddAttachments) > 0 {
		change["$push"] = bson.M{"attachments": bson.M{"$each": upd.AddAttachments}}
	}
	var a models.Announcement
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, change,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&a)
	return a, err
}
