// internal/app/system/filestore/drive.go
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Drive stores objects in a Google Drive folder using a service account.
// Each uploaded file is shared "anyone with the link can view" so the
// returned view and download links work for every group member.
type Drive struct {
	svc      *drive.Service
	folderID string
}

// NewDrive builds a Drive backend from a service-account JSON key file.
func NewDrive(ctx context.Context, credentialsFile, folderID string) (*Drive, error) {
	if credentialsFile == "" {
		return nil, errors.New("filestore: drive credentials file is required")
	}
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("filestore: read drive credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("filestore: parse drive credentials: %w", err)
	}
	svc, err := drive.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("filestore: drive service: %w", err)
	}
	return &Drive{svc: svc, folderID: folderID}, nil
}

func (d *Drive) Name() string { return BackendDrive }

func (d *Drive) Store(ctx context.Context, up Upload) (Stored, error) {
	meta := &drive.File{Name: SanitizeFilename(up.Name), MimeType: up.ContentType}
	if d.folderID != "" {
		meta.Parents = []string{d.folderID}
	}
	created, err := d.svc.Files.Create(meta).
		Media(up.Body, googleapi.ContentType(up.ContentType)).
		Fields("id", "size").
		Context(ctx).
		Do()
	if err != nil {
		return Stored{}, fmt.Errorf("filestore: drive create: %w", err)
	}

	perm := &drive.Permission{Type: "anyone", Role: "reader"}
	if _, err := d.svc.Permissions.Create(created.Id, perm).Context(ctx).Do(); err != nil {
		_ = d.Remove(context.WithoutCancel(ctx), created.Id)
		return Stored{}, fmt.Errorf("filestore: drive share: %w", err)
	}

	links, err := d.svc.Files.Get(created.Id).Fields("webViewLink", "webContentLink").Context(ctx).Do()
	if err != nil {
		_ = d.Remove(context.WithoutCancel(ctx), created.Id)
		return Stored{}, fmt.Errorf("filestore: drive links: %w", err)
	}

	size := created.Size
	if size == 0 {
		size = up.Size
	}
	return Stored{
		ID:           created.Id,
		ViewLink:     links.WebViewLink,
		DownloadLink: links.WebContentLink,
		Size:         size,
	}, nil
}

func (d *Drive) Remove(ctx context.Context, id string) error {
	err := d.svc.Files.Delete(id).Context(ctx).Do()
	if isDriveNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("filestore: drive delete %s: %w", id, err)
	}
	return nil
}

// Open is not supported: Drive content is served from the file's
// DownloadLink, which the upload made public.
func (d *Drive) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	return nil, ErrNotSupported
}

func isDriveNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}
