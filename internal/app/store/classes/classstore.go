// internal/app/store/classes/classstore.go
package classstore

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
	return &Store{c: db.Collection("classes")}
}

// Create inserts c. Status defaults to upcoming.
func (s *Store) Create(ctx context.Context, c models.Class) (models.Class, error) {
	now := time.Now().UTC()
	c.ID = primitive.NewObjectID()
	if c.Status == "" {
		c.Status = models.ClassUpcoming
	}
	if c.StudentIDs == nil {
		c.StudentIDs = []primitive.ObjectID{}
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		return models.Class{}, err
	}
	return c, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Class, error) {
	var c models.Class
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	return c, err
}

// List returns classes by start date, optionally filtered by status.
func (s *Store) List(ctx context.Context, status string, skip, limit int64) ([]models.Class, int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := s.c.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "start_date", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(skip).SetLimit(limit))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	out := []models.Class{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// CountByCourse returns how many classes run courseID.
func (s *Store) CountByCourse(ctx context.Context, courseID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"course_id": courseID})
}

// Replace writes every mutable field of c.
func (s *Store) Replace(ctx context.Context, c models.Class) (models.Class, error) {
	c.UpdatedAt = time.Now().UTC()
	if c.StudentIDs == nil {
		c.StudentIDs = []primitive.ObjectID{}
	}
	set := bson.M{
		"name":         c.Name,
		"course_id":    c.CourseID,
		"teacher_id":   c.TeacherID,
		"student_ids":  c.StudentIDs,
		"start_date":   c.StartDate,
		"location":     c.Location,
		"meeting_link": c.MeetingLink,
		"status":       c.Status,
		"updated_at":   c.UpdatedAt,
	}
	change := bson.M{"$set": set}
	if c.EndDate != nil {
		set["end_date"] = *c.EndDate
	} else {
		change["$unset"] = bson.M{"end_date": ""}
	}
	res, err := s.c.UpdateByID(ctx, c.ID, change)
	if err != nil {
		return models.Class{}, err
	}
	if res.MatchedCount == 0 {
		return models.Class{}, mongo.ErrNoDocuments
	}
	return c, nil
}
