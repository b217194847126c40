// internal/app/store/profiles/profilestore.go
//
// Package profilestore manages the student and teacher records that sit
// beside every student or teacher account.
package profilestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/learnportal/internal/app/system/authutil"
	"github.com/dalemusser/learnportal/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	students *mongo.Collection
	teachers *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		students: db.Collection("students"),
		teachers: db.Collection("teachers"),
	}
}

// codeAttempts bounds retries when a generated profile code collides.
const codeAttempts = 5

// Details carries the optional role-specific fields supplied at signup.
type Details struct {
	SkillLevel    string
	Expertise     []string
	Qualification string
}

// CreateFor inserts the profile matching u's role. Admins have none.
func (s *Store) CreateFor(ctx context.Context, u models.User, d Details) error {
	now := time.Now().UTC()
	switch u.Role {
	case models.RoleStudent:
		level := d.SkillLevel
		if level == "" {
			level = "beginner"
		}
		return s.insertWithCode(ctx, func() any {
			return models.Student{
				ID:             primitive.NewObjectID(),
				UserID:         u.ID,
				StudentCode:    authutil.ProfileCode("STU", 6),
				SkillLevel:     level,
				EnrollmentDate: now,
				ClassIDs:       []primitive.ObjectID{},
				CreatedAt:      now,
			}
		}, s.students)
	case models.RoleTeacher:
		exp := d.Expertise
		if exp == nil {
			exp = []string{}
		}
		return s.insertWithCode(ctx, func() any {
			return models.Teacher{
				ID:            primitive.NewObjectID(),
				UserID:        u.ID,
				TeacherCode:   authutil.ProfileCode("TCH", 6),
				Expertise:     exp,
				Qualification: d.Qualification,
				ClassIDs:      []primitive.ObjectID{},
				CreatedAt:     now,
			}
		}, s.teachers)
	}
	return nil
}

func (s *Store) insertWithCode(ctx context.Context, build func() any, c *mongo.Collection) error {
	var err error
	for i := 0; i < codeAttempts; i++ {
		if _, err = c.InsertOne(ctx, build()); err == nil || !wafflemongo.IsDup(err) {
			return err
		}
	}
	return err
}

// Student returns the student record for userID.
func (s *Store) Student(ctx context.Context, userID primitive.ObjectID) (models.Student, error) {
	var st models.Student
	err := s.students.FindOne(ctx, bson.M{"user_id": userID}).Decode(&st)
	return st, err
}

// Teacher returns the teacher record for userID.
func (s *Store) Teacher(ctx context.Context, userID primitive.ObjectID) (models.Teacher, error) {
	var t models.Teacher
	err := s.teachers.FindOne(ctx, bson.M{"user_id": userID}).Decode(&t)
	return t, err
}

// ForUser returns the profile matching role, or nil when there is none.
func (s *Store) ForUser(ctx context.Context, userID primitive.ObjectID, role string) (any, error) {
	var (
		v   any
		err error
	)
	switch role {
	case models.RoleStudent:
		v, err = s.Student(ctx, userID)
	case models.RoleTeacher:
		v, err = s.Teacher(ctx, userID)
	default:
		return nil, nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	return v, err
}

// StudentsByUser returns student records keyed by user id.
func (s *Store) StudentsByUser(ctx context.Context, userIDs []primitive.ObjectID) (map[primitive.ObjectID]models.Student, error) {
	out := make(map[primitive.ObjectID]models.Student)
	if len(userIDs) == 0 {
		return out, nil
	}
	cur, err := s.students.Find(ctx, bson.M{"user_id": bson.M{"$in": userIDs}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var st models.Student
		if err := cur.Decode(&st); err != nil {
			return nil, err
		}
		out[st.UserID] = st
	}
	return out, cur.Err()
}

// TeachersByUser returns teacher records keyed by user id.
func (s *Store) TeachersByUser(ctx context.Context, userIDs []primitive.ObjectID) (map[primitive.ObjectID]models.Teacher, error) {
	out := make(map[primitive.ObjectID]models.Teacher)
	if len(userIDs) == 0 {
		return out, nil
	}
	cur, err := s.teachers.Find(ctx, bson.M{"user_id": bson.M{"$in": userIDs}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var t models.Teacher
		if err := cur.Decode(&t); err != nil {
			return nil, err
		}
		out[t.UserID] = t
	}
	return out, cur.Err()
}

// LinkClass adds classID to the teacher's and students' class_ids.
func (s *Store) LinkClass(ctx context.Context, classID, teacherID primitive.ObjectID, studentIDs []primitive.ObjectID) error {
	if _, err := s.teachers.UpdateOne(ctx, bson.M{"user_id": teacherID},
		bson.M{"$addToSet": bson.M{"class_ids": classID}}); err != nil {
		return err
	}
	if len(studentIDs) == 0 {
		return nil
	}
	_, err := s.students.UpdateMany(ctx, bson.M{"user_id": bson.M{"$in": studentIDs}},
		bson.M{"$addToSet": bson.M{"class_ids": classID}})
	return err
}

// UnlinkClass pulls classID from every teacher and student record.
func (s *Store) UnlinkClass(ctx context.Context, classIDs ...primitive.ObjectID) error {
	if len(classIDs) == 0 {
		return nil
	}
	pull := bson.M{"$pull": bson.M{"class_ids": bson.M{"$in": classIDs}}}
	filter := bson.M{"class_ids": bson.M{"$in": classIDs}}
	if _, err := s.teachers.UpdateMany(ctx, filter, pull); err != nil {
		return err
	}
	_, err := s.students.UpdateMany(ctx, filter, pull)
	return err
}

// UnlinkClassFrom pulls classID from the listed users' profiles only.
func (s *Store) UnlinkClassFrom(ctx context.Context, classID primitive.ObjectID, teacherIDs, studentIDs []primitive.ObjectID) error {
	pull := bson.M{"$pull": bson.M{"class_ids": classID}}
	if len(teacherIDs) > 0 {
		if _, err := s.teachers.UpdateMany(ctx, bson.M{"user_id": bson.M{"$in": teacherIDs}}, pull); err != nil {
			return err
		}
	}
	if len(studentIDs) > 0 {
		if _, err := s.students.UpdateMany(ctx, bson.M{"user_id": bson.M{"$in": studentIDs}}, pull); err != nil {
			return err
		}
	}
	return nil
}

// DeleteForUser removes any student or teacher record for userID.
func (s *Store) DeleteForUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	r1, err := s.students.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	r2, err := s.teachers.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return r1.DeletedCount + r2.DeletedCount, nil
}
