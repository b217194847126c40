// internal/domain/models/parent.go
package models

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ParentKind tags what a reply answers.
type ParentKind string

const (
	ParentPost         ParentKind = "post"
	ParentAnnouncement ParentKind = "announcement"
)

// ParseParentKind accepts the tag values plus the legacy model names
// ("DiscussionPost", "Announcement") older clients still send.
func ParseParentKind(s string) (ParentKind, error) {
	switch s {
	case "post", "DiscussionPost":
		return ParentPost, nil
	case "announcement", "Announcement":
		return ParentAnnouncement, nil
	}
	return "", fmt.Errorf("unknown parent type %q", s)
}

// ParentRef is the tagged reference from a reply to its parent document.
type ParentRef struct {
	Kind ParentKind         `bson:"kind" json:"kind"`
	ID   primitive.ObjectID `bson:"id" json:"id"`
}
