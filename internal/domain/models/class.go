// internal/domain/models/class.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Class status values. Any value may be set at any time.
const (
	ClassUpcoming  = "upcoming"
	ClassActive    = "active"
	ClassCompleted = "completed"
)

// ValidClassStatus reports whether s is a known class status.
func ValidClassStatus(s string) bool {
	switch s {
	case ClassUpcoming, ClassActive, ClassCompleted:
		return true
	}
	return false
}

// Class is a scheduled run of a course with one teacher and a roster.
type Class struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name        string               `bson:"name" json:"name"`
	CourseID    primitive.ObjectID   `bson:"course_id" json:"course_id"`
	TeacherID   primitive.ObjectID   `bson:"teacher_id" json:"teacher_id"`
	StudentIDs  []primitive.ObjectID `bson:"student_ids" json:"student_ids"`
	StartDate   time.Time            `bson:"start_date" json:"start_date"`
	EndDate     *time.Time           `bson:"end_date,omitempty" json:"end_date,omitempty"`
	Location    string               `bson:"location,omitempty" json:"location,omitempty"`
	MeetingLink string               `bson:"meeting_link,omitempty" json:"meeting_link,omitempty"`
	Status      string               `bson:"status" json:"status"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
