// internal/domain/models/file.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// File is the metadata record of an uploaded object. The object itself lives
// in a storage backend ("local", "drive" or "s3") under StorageID.
type File struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Filename     string             `bson:"filename" json:"filename"`
	ContentType  string             `bson:"content_type" json:"content_type"`
	Size         int64              `bson:"size" json:"size"`
	Backend      string             `bson:"backend" json:"backend"`
	StorageID    string             `bson:"storage_id" json:"-"`
	ViewLink     string             `bson:"view_link,omitempty" json:"view_link,omitempty"`
	DownloadLink string             `bson:"download_link,omitempty" json:"download_link,omitempty"`
	UploadedBy   primitive.ObjectID `bson:"uploaded_by" json:"uploaded_by"`
	GroupID      primitive.ObjectID `bson:"group_id" json:"group_id"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
}
