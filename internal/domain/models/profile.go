// internal/domain/models/profile.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Student is the role record created alongside every student account.
type Student struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	UserID         primitive.ObjectID   `bson:"user_id" json:"user_id"`
	StudentCode    string               `bson:"student_code" json:"student_code"`
	SkillLevel     string               `bson:"skill_level" json:"skill_level"` // beginner | intermediate | advanced
	EnrollmentDate time.Time            `bson:"enrollment_date" json:"enrollment_date"`
	ClassIDs       []primitive.ObjectID `bson:"class_ids" json:"class_ids"`
	CreatedAt      time.Time            `bson:"created_at" json:"created_at"`
}

// Teacher is the role record created alongside every teacher account.
type Teacher struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID   `bson:"user_id" json:"user_id"`
	TeacherCode   string               `bson:"teacher_code" json:"teacher_code"`
	Expertise     []string             `bson:"expertise" json:"expertise"`
	Qualification string               `bson:"qualification,omitempty" json:"qualification,omitempty"`
	ClassIDs      []primitive.ObjectID `bson:"class_ids" json:"class_ids"`
	CreatedAt     time.Time            `bson:"created_at" json:"created_at"`
}
