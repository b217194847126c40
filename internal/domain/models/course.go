// internal/domain/models/course.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Course is a catalog entry. Code is unique and stored upper-case.
type Course struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name          string               `bson:"name" json:"name"`
	NameCI        string               `bson:"name_ci" json:"-"`
	Code          string               `bson:"code" json:"code"`
	Description   string               `bson:"description,omitempty" json:"description,omitempty"`
	Type          string               `bson:"type" json:"type"`
	Prerequisites []primitive.ObjectID `bson:"prerequisites" json:"prerequisites"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
