// internal/app/system/filestore/filestore.go
//
// Package filestore stores uploaded attachments in one of three backends:
// the local filesystem, Google Drive, or S3. File metadata lives in Mongo;
// only the backend-specific id is kept there.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Backend names.
const (
	BackendLocal = "local"
	BackendDrive = "drive"
	BackendS3    = "s3"
)

var (
	// ErrNotFound is returned by Open when the object does not exist.
	ErrNotFound = errors.New("filestore: object not found")
	// ErrNotSupported is returned when a backend cannot perform an operation.
	ErrNotSupported = errors.New("filestore: operation not supported by backend")
)

// Upload is one file to store.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Stored describes where an upload ended up.
type Stored struct {
	ID           string // backend object id or key
	ViewLink     string // drive only
	DownloadLink string // drive only
	Size         int64
}

// Backend is a file storage provider.
type Backend interface {
	Name() string
	Store(ctx context.Context, up Upload) (Stored, error)
	// Remove deletes the object. Removing a missing object is not an error.
	Remove(ctx context.Context, id string) error
	Open(ctx context.Context, id string) (io.ReadCloser, error)
}

// objectKey builds uploads/YYYY/MM/<uuid8>-<sanitized name>.
func objectKey(now time.Time, name string) string {
	dateDir := fmt.Sprintf("uploads/%04d/%02d", now.Year(), now.Month())
	return path.Join(dateDir, fmt.Sprintf("%s-%s", uuid.New().String()[:8], SanitizeFilename(name)))
}

// SanitizeFilename keeps the base name and replaces anything outside
// [A-Za-z0-9._-] with '_'. Long names are cut to 100 bytes, keeping a short
// extension.
func SanitizeFilename(filename string) string {
	filename = filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if filename == "." || filename == "/" {
		filename = ""
	}

	result := make([]byte, 0, len(filename))
	for i := 0; i < len(filename); i++ {
		c := filename[i]
		if isAllowedFilenameChar(c) {
			result = append(result, c)
		} else {
			result = append(result, '_')
		}
	}

	if len(result) == 0 {
		return "file"
	}
	if len(result) > 100 {
		ext := filepath.Ext(string(result))
		if len(ext) > 0 && len(ext) < 10 {
			result = append(result[:100-len(ext)], ext...)
		} else {
			result = result[:100]
		}
	}
	return string(result)
}

func isAllowedFilenameChar(c byte) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.'
}
