// internal/app/store/courses/coursestore.go
package coursestore

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/dalemusser/learnportal/internal/app/system/normalize"
	"github.com/dalemusser/learnportal/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("courses")}
}

// ErrDuplicateCode is returned when another course already has the code.
var ErrDuplicateCode = errors.New("a course with this code already exists")

// Create normalizes the code and type and inserts c.
func (s *Store) Create(ctx context.Context, c models.Course) (models.Course, error) {
	now := time.Now().UTC()
	c.ID = primitive.NewObjectID()
	c.Code = normalize.CourseCode(c.Code)
	c.Type = normalize.CourseType(c.Type)
	c.Name = normalize.Name(c.Name)
	c.NameCI = text.Fold(c.Name)
	if c.Prerequisites == nil {
		c.Prerequisites = []primitive.ObjectID{}
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Course{}, ErrDuplicateCode
		}
		return models.Course{}, err
	}
	return c, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Course, error) {
	var c models.Course
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	return c, err
}

// CountExisting returns how many of ids are courses.
func (s *Store) CountExisting(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return s.c.CountDocuments(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

// FindByIDs returns the listed courses sorted by code.
func (s *Store) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Course, error) {
	out := []models.Course{}
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetSort(bson.D{{Key: "code", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Codes returns the codes of the given courses keyed by id.
func (s *Store) Codes(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	out := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"code": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var row struct {
			ID   primitive.ObjectID `bson:"_id"`
			Code string             `bson:"code"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.ID] = row.Code
	}
	return out, cur.Err()
}

// ListFilter narrows List. Empty fields do not filter.
type ListFilter struct {
	Type   string
	Search string // matches code prefix or folded name substring
}

// List returns courses sorted by code, and the total matching count.
func (s *Store) List(ctx context.Context, f ListFilter, skip, limit int64) ([]models.Course, int64, error) {
	filter := bson.M{}
	if f.Type != "" {
		filter["type"] = normalize.CourseType(f.Type)
	}
	if q := normalize.QueryParam(f.Search); q != "" {
		filter["$or"] = bson.A{
			bson.M{"code": bson.M{"$regex": "^" + regexp.QuoteMeta(normalize.CourseCode(q))}},
			bson.M{"name_ci": bson.M{"$regex": regexp.QuoteMeta(text.Fold(q))}},
		}
	}
	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := s.c.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "code", Value: 1}}).SetSkip(skip).SetLimit(limit))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	out := []models.Course{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Update holds optional changes. Nil fields are left alone.
type Update struct {
	Name          *string
	Code          *string
	Description   *string
	Type          *string
	Prerequisites []primitive.ObjectID // nil leaves unchanged
}

// Update applies upd and returns the updated course.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (models.Course, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Name != nil {
		n := normalize.Name(*upd.Name)
		set["name"] = n
		set["name_ci"] = text.Fold(n)
	}
	if upd.Code != nil {
		set["code"] = normalize.CourseCode(*upd.Code)
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Type != nil {
		set["type"] = normalize.CourseType(*upd.Type)
	}
	if upd.Prerequisites != nil {
		set["prerequisites"] = upd.Prerequisites
	}
	var c models.Course
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&c)
	if err != nil && wafflemongo.IsDup(err) {
		return models.Course{}, ErrDuplicateCode
	}
	return c, err
}
