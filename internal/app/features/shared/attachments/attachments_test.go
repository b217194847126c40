package attachments_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/dalemusser/learnportal/internal/app/features/shared/attachments"
	filemeta "github.com/dalemusser/learnportal/internal/app/store/files"
	"github.com/dalemusser/learnportal/internal/app/system/apperr"
	"github.com/dalemusser/learnportal/internal/app/system/filestore"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"github.com/dalemusser/learnportal/internal/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type part struct {
	name, contentType, body string
}

func multipartRequest(t *testing.T, fields map[string]string, files ...part) *http.Request {
	t.Helper()
	return multipartRequestAs(t, "attachments", fields, files...)
}

func multipartRequestAs(t *testing.T, field string, fields map[string]string, files ...part) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+f.name+`"`)
		h.Set("Content-Type", f.contentType)
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, _ = io.WriteString(w, f.body)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

type postForm struct {
	Content string `json:"content" validate:"required"`
	Pinned  *bool  `json:"pinned"`
}

func newService(t *testing.T) (*attachments.Service, *filestore.Local) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	local, err := filestore.NewLocal(afero.NewMemMapFs(), "/data")
	require.NoError(t, err)
	return attachments.New(local, filemeta.New(db), 1<<20, zap.NewNop()), local
}

func TestDecode_MultipartFieldsAndFiles(t *testing.T) {
	s, _ := newService(t)

	var form postForm
	files, err := s.Decode(multipartRequest(t,
		map[string]string{"content": "hello", "pinned": "true"},
		part{"notes.pdf", "application/pdf", "%PDF"}), &form)
	require.NoError(t, err)
	assert.Equal(t, "hello", form.Content)
	require.NotNil(t, form.Pinned)
	assert.True(t, *form.Pinned)
	assert.Len(t, files, 1)
}

func TestDecode_FilesField(t *testing.T) {
	s, _ := newService(t)

	var form postForm
	files, err := s.Decode(multipartRequestAs(t, "files",
		map[string]string{"content": "hello"},
		part{"notes.pdf", "application/pdf", "%PDF"}), &form)
	require.NoError(t, err)
	assert.Equal(t, "hello", form.Content)
	require.Len(t, files, 1)
	assert.Equal(t, "notes.pdf", files[0].Filename)
}

func TestDecode_RejectsUnknownFileField(t *testing.T) {
	s, _ := newService(t)

	var form postForm
	files, err := s.Decode(multipartRequestAs(t, "upload",
		map[string]string{"content": "hello"},
		part{"notes.pdf", "application/pdf", "%PDF"}), &form)
	assert.Nil(t, files)
	require.True(t, apperr.Is(err, apperr.KindValidationFailed))
	ae, _ := apperr.As(err)
	assert.Equal(t, "UNEXPECTED_FILE_FIELD", ae.Code)
}

func TestDecode_RejectsBadTypeAndTooMany(t *testing.T) {
	s, _ := newService(t)

	var form postForm
	_, err := s.Decode(multipartRequest(t, map[string]string{"content": "x"},
		part{"virus.exe", "application/octet-stream", "MZ"}), &form)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "INVALID_FILE_TYPE", ae.Code)

	six := make([]part, 6)
	for i := range six {
		six[i] = part{"a.txt", "text/plain", "a"}
	}
	_, err = s.Decode(multipartRequest(t, map[string]string{"content": "x"}, six...), &form)
	ae, ok = apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "TOO_MANY_FILES", ae.Code)
}

func TestDecode_JSON(t *testing.T) {
	s, _ := newService(t)

	var form postForm
	files, err := s.Decode(testutil.NewRequest(http.MethodPost, "/", map[string]any{"content": "hi"}), &form)
	require.NoError(t, err)
	assert.Nil(t, files)
	assert.Equal(t, "hi", form.Content)
}

func TestPrepare_StoresAndInserts(t *testing.T) {
	s, local := newService(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	req := multipartRequest(t, map[string]string{"content": "x"}, part{"notes.pdf", "application/pdf", "%PDF"})
	var form postForm
	uploads, err := s.Decode(req, &form)
	require.NoError(t, err)

	uploader, group := primitive.NewObjectID(), primitive.NewObjectID()
	b, err := s.Prepare(ctx, uploader, group, nil, uploads)
	require.NoError(t, err)
	require.Len(t, b.IDs, 1)
	require.NoError(t, b.Insert(ctx))

	f, err := s.Files.GetByID(ctx, b.IDs[0])
	require.NoError(t, err)
	assert.Equal(t, group, f.GroupID)
	assert.Equal(t, filestore.BackendLocal, f.Backend)

	rc, err := local.Open(ctx, f.StorageID)
	require.NoError(t, err)
	rc.Close()
}

func TestPrepare_RejectsFilesFromOtherGroup(t *testing.T) {
	s, _ := newService(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	other, err := s.Files.Create(ctx, testFile(primitive.NewObjectID()))
	require.NoError(t, err)

	_, err = s.Prepare(ctx, primitive.NewObjectID(), primitive.NewObjectID(), []string{other.ID.Hex()}, nil)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "INVALID_ATTACHMENTS", ae.Code)
}

func testFile(groupID primitive.ObjectID) models.File {
	return models.File{
		Filename: "notes.pdf", ContentType: "application/pdf", Size: 4,
		Backend: filestore.BackendLocal, StorageID: "uploads/x", GroupID: groupID,
		UploadedBy: primitive.NewObjectID(),
	}
}

type failingBackend struct{ filestore.Backend }

func (failingBackend) Name() string { return "broken" }
func (failingBackend) Store(context.Context, filestore.Upload) (filestore.Stored, error) {
	return filestore.Stored{}, errors.New("bucket unavailable")
}

func TestPrepare_UploadFailure(t *testing.T) {
	s, _ := newService(t)
	s.Storage = failingBackend{}
	ctx, cancel := testutil.TestContext()
	defer cancel()

	var form postForm
	uploads, err := s.Decode(multipartRequest(t, map[string]string{"content": "x"},
		part{"notes.pdf", "application/pdf", "%PDF"}), &form)
	require.NoError(t, err)

	_, err = s.Prepare(ctx, primitive.NewObjectID(), primitive.NewObjectID(), nil, uploads)
	assert.True(t, apperr.Is(err, apperr.KindUploadFailed))
}

func TestBatch_DiscardRemovesObjects(t *testing.T) {
	s, local := newService(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	var form postForm
	uploads, err := s.Decode(multipartRequest(t, map[string]string{"content": "x"},
		part{"a.txt", "text/plain", "a"}), &form)
	require.NoError(t, err)
	b, err := s.Prepare(ctx, primitive.NewObjectID(), primitive.NewObjectID(), nil, uploads)
	require.NoError(t, err)
	storageID := b.Uploaded()[0].StorageID

	b.Discard(ctx)

	_, err = local.Open(ctx, storageID)
	assert.Error(t, err)
	_, err = s.Files.GetByID(ctx, b.IDs[0])
	assert.Error(t, err, "metadata is only written by Insert")
}
