// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group is a collaboration space holding members, announcements,
// discussions and files.
//
// NOTE:
//   - CreatedBy is the primary owner and never changes.
//   - Creators always contains CreatedBy and mirrors the "creator"
//     rows in group_memberships.
type Group struct {
	ID          primitive.ObjectID   `bson:"_id" json:"id"`
	Name        string               `bson:"name" json:"name"`
	NameCI      string               `bson:"name_ci" json:"-"`
	Description string               `bson:"description" json:"description"`
	CreatedBy   primitive.ObjectID   `bson:"created_by" json:"created_by"`
	Creators    []primitive.ObjectID `bson:"creators" json:"creators"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// HasAuthority reports whether userID is the primary creator or one of the creators.
func (g *Group) HasAuthority(userID primitive.ObjectID) bool {
	if userID.IsZero() {
		return false
	}
	if g.CreatedBy == userID {
		return true
	}
	for _, c := range g.Creators {
		if c == userID {
			return true
		}
	}
	return false
}
