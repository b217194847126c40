// internal/domain/models/groupmembership.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles inside a group.
const (
	GroupRoleMember  = "member"
	GroupRoleCreator = "creator"
)

// GroupMembership is the authoritative join between users and groups.
// Exactly one document per (user_id, group_id).
type GroupMembership struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GroupID     primitive.ObjectID `bson:"group_id" json:"group_id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	RoleInGroup string             `bson:"role_in_group" json:"role_in_group"` // "member" | "creator"
	JoinedAt    time.Time          `bson:"joined_at" json:"joined_at"`
}
