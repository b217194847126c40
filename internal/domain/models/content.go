// internal/domain/models/content.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Announcement priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Announcement belongs to exactly one group.
type Announcement struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	GroupID     primitive.ObjectID   `bson:"group_id" json:"group_id"`
	CreatedBy   primitive.ObjectID   `bson:"created_by" json:"created_by"`
	Title       string               `bson:"title" json:"title"`
	Content     string               `bson:"content" json:"content"`
	Priority    string               `bson:"priority" json:"priority"`
	Pinned      bool                 `bson:"pinned" json:"pinned"`
	Attachments []primitive.ObjectID `bson:"attachments" json:"attachments"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// DiscussionPost is a thread starter inside a group.
type DiscussionPost struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	GroupID     primitive.ObjectID   `bson:"group_id" json:"group_id"`
	CreatedBy   primitive.ObjectID   `bson:"created_by" json:"created_by"`
	Content     string               `bson:"content" json:"content"`
	Attachments []primitive.ObjectID `bson:"attachments" json:"attachments"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// DiscussionReply answers a post or an announcement of the same group.
type DiscussionReply struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	GroupID     primitive.ObjectID   `bson:"group_id" json:"group_id"`
	CreatedBy   primitive.ObjectID   `bson:"created_by" json:"created_by"`
	Parent      ParentRef            `bson:"parent" json:"parent"`
	Content     string               `bson:"content" json:"content"`
	Attachments []primitive.ObjectID `bson:"attachments" json:"attachments"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
