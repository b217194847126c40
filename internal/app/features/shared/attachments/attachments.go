// internal/app/features/shared/attachments/attachments.go
//
// Package attachments reads create and update requests that may carry files,
// either as multipart uploads or as ids of files already in the group, and
// stores new uploads before the owning document is written.
package attachments

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	filemeta "github.com/dalemusser/learnportal/internal/app/store/files"
	"github.com/dalemusser/learnportal/internal/app/system/apperr"
	"github.com/dalemusser/learnportal/internal/app/system/filestore"
	"github.com/dalemusser/learnportal/internal/app/system/respond"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"github.com/go-viper/mapstructure/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MaxFiles is the most attachments one request may carry.
const MaxFiles = 5

// FormFields are the multipart fields that may carry uploads. Announcement
// clients send "attachments"; discussion clients send "files".
var FormFields = []string{"attachments", "files"}

// DefaultMaxFileBytes is used when the configured limit is not positive.
const DefaultMaxFileBytes = 20 << 20

// Service stores uploads and resolves attachment references.
type Service struct {
	Storage      filestore.Backend
	Files        *filemeta.Store
	MaxFileBytes int64
	Log          *zap.Logger
}

func New(storage filestore.Backend, files *filemeta.Store, maxFileBytes int64, logger *zap.Logger) *Service {
	if maxFileBytes <= 0 {
		maxFileBytes = DefaultMaxFileBytes
	}
	return &Service{Storage: storage, Files: files, MaxFileBytes: maxFileBytes, Log: logger}
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data")
}

// Decode reads the request body into dst. JSON bodies go through
// respond.Decode. Multipart form values are decoded by their json tag names,
// and the uploads under FormFields are returned after their count, size and
// type are checked. A file part under any other field is rejected.
func (s *Service) Decode(r *http.Request, dst any) ([]*multipart.FileHeader, error) {
	if !isMultipart(r) {
		return nil, respond.Decode(r, dst)
	}

	r.Body = http.MaxBytesReader(nil, r.Body, s.MaxFileBytes*MaxFiles+1<<20)
	if err := r.ParseMultipartForm(s.MaxFileBytes); err != nil {
		return nil, apperr.Validation("malformed multipart body")
	}
	values := make(map[string]any, len(r.MultipartForm.Value))
	for k, v := range r.MultipartForm.Value {
		if len(v) == 1 {
			values[k] = v[0]
		} else {
			values[k] = v
		}
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           dst,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(values); err != nil {
		return nil, apperr.Validation("invalid form fields").WithDetails(err.Error())
	}
	if err := respond.Validate(dst); err != nil {
		return nil, err
	}

	files, err := collectUploads(r.MultipartForm)
	if err != nil {
		return nil, err
	}
	if len(files) > MaxFiles {
		return nil, apperr.Validation(fmt.Sprintf("at most %d files may be attached", MaxFiles)).WithCode("TOO_MANY_FILES")
	}
	for _, fh := range files {
		if fh.Size > s.MaxFileBytes {
			return nil, apperr.Validation(fmt.Sprintf("%s exceeds the %d MB limit", fh.Filename, s.MaxFileBytes>>20)).
				WithCode("FILE_TOO_LARGE")
		}
		if _, ok := filestore.ResolveContentType(fh.Filename, fh.Header.Get("Content-Type")); !ok {
			return nil, apperr.Validation("Invalid file type: " + fh.Filename).WithCode("INVALID_FILE_TYPE")
		}
	}
	return files, nil
}

func collectUploads(form *multipart.Form) ([]*multipart.FileHeader, error) {
	accepted := make(map[string]bool, len(FormFields))
	for _, f := range FormFields {
		accepted[f] = true
	}
	for field := range form.File {
		if !accepted[field] {
			return nil, apperr.Validation(fmt.Sprintf("files must be sent as %q or %q, not %q", FormFields[0], FormFields[1], field)).
				WithCode("UNEXPECTED_FILE_FIELD")
		}
	}
	var files []*multipart.FileHeader
	for _, f := range FormFields {
		files = append(files, form.File[f]...)
	}
	return files, nil
}

// Batch is the attachment list of one document. New uploads are already in
// storage; their metadata is written by Insert inside the caller's
// transaction.
type Batch struct {
	s       *Service
	IDs     []primitive.ObjectID
	pending []models.File
}

// Uploaded returns the metadata of the files stored for this batch.
func (b *Batch) Uploaded() []models.File { return b.pending }

// Prepare checks that every referenced id is a file of groupID, then stores
// each upload. A storage failure removes what was already stored and is
// returned as UploadFailed.
func (s *Service) Prepare(ctx context.Context, uploader, groupID primitive.ObjectID, refs []string, uploads []*multipart.FileHeader) (*Batch, error) {
	b := &Batch{s: s}
	if len(refs)+len(uploads) > MaxFiles {
		return nil, apperr.Validation(fmt.Sprintf("at most %d files may be attached", MaxFiles)).WithCode("TOO_MANY_FILES")
	}

	if len(refs) > 0 {
		ids := make([]primitive.ObjectID, 0, len(refs))
		seen := map[primitive.ObjectID]bool{}
		for _, ref := range refs {
			id, err := primitive.ObjectIDFromHex(ref)
			if err != nil {
				return nil, apperr.Validation("attachment ids are invalid").WithCode("INVALID_ATTACHMENTS")
			}
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		found, err := s.Files.FindByIDs(ctx, groupID, ids)
		if err != nil {
			return nil, err
		}
		if len(found) != len(ids) {
			return nil, apperr.Validation("attachments must be files of this group").WithCode("INVALID_ATTACHMENTS")
		}
		b.IDs = append(b.IDs, ids...)
	}

	if len(uploads) == 0 {
		return b, nil
	}
	if s.Storage == nil {
		return nil, apperr.UploadFailed(fmt.Errorf("no storage backend configured"))
	}
	for _, fh := range uploads {
		f, err := s.store(ctx, uploader, groupID, fh)
		if err != nil {
			b.Discard(ctx)
			return nil, apperr.UploadFailed(err)
		}
		b.pending = append(b.pending, f)
		b.IDs = append(b.IDs, f.ID)
	}
	return b, nil
}

func (s *Service) store(ctx context.Context, uploader, groupID primitive.ObjectID, fh *multipart.FileHeader) (models.File, error) {
	ct, _ := filestore.ResolveContentType(fh.Filename, fh.Header.Get("Content-Type"))
	src, err := fh.Open()
	if err != nil {
		return models.File{}, err
	}
	defer src.Close()

	st, err := s.Storage.Store(ctx, filestore.Upload{
		Name:        fh.Filename,
		ContentType: ct,
		Size:        fh.Size,
		Body:        src,
	})
	if err != nil {
		return models.File{}, err
	}
	size := st.Size
	if size == 0 {
		size = fh.Size
	}
	return models.File{
		ID:           primitive.NewObjectID(),
		Filename:     filestore.SanitizeFilename(fh.Filename),
		ContentType:  ct,
		Size:         size,
		Backend:      s.Storage.Name(),
		StorageID:    st.ID,
		ViewLink:     st.ViewLink,
		DownloadLink: st.DownloadLink,
		UploadedBy:   uploader,
		GroupID:      groupID,
	}, nil
}

// Insert writes the metadata of the stored uploads. Call it with the
// transaction context that creates the owning document.
func (b *Batch) Insert(ctx context.Context) error {
	for _, f := range b.pending {
		if _, err := b.s.Files.Create(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

// Discard removes the stored uploads after the owning create failed.
func (b *Batch) Discard(ctx context.Context) {
	if b == nil || b.s.Storage == nil {
		return
	}
	for _, f := range b.pending {
		if err := b.s.Storage.Remove(ctx, f.StorageID); err != nil {
			b.s.Log.Warn("discard upload failed",
				zap.String("backend", f.Backend),
				zap.String("storage_id", f.StorageID),
				zap.Error(err))
		}
	}
	b.pending = nil
}
