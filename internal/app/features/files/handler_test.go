package files_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/learnportal/internal/app/features/files"
	"github.com/dalemusser/learnportal/internal/app/features/shared/attachments"
	"github.com/dalemusser/learnportal/internal/app/store/cascade"
	filemeta "github.com/dalemusser/learnportal/internal/app/store/files"
	"github.com/dalemusser/learnportal/internal/app/system/auth"
	"github.com/dalemusser/learnportal/internal/app/system/downloadlink"
	"github.com/dalemusser/learnportal/internal/app/system/filestore"
	"github.com/dalemusser/learnportal/internal/domain/models"
	"github.com/dalemusser/learnportal/internal/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

type env struct {
	h       *files.Handler
	fx      *testutil.Fixtures
	storage *filestore.Local
	owner   models.User
	student models.User
	group   models.Group
}

func setup(t *testing.T) *env {
	t.Helper()
	return setupWith(t, nil)
}

// setupWith builds the handler on backend, or on an in-memory local backend
// when backend is nil.
func setupWith(t *testing.T, backend filestore.Backend) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	local, err := filestore.NewLocal(afero.NewMemMapFs(), "/data")
	require.NoError(t, err)
	if backend == nil {
		backend = local
	}
	links, err := downloadlink.New(strings.Repeat("k", 32), time.Minute)
	require.NoError(t, err)
	attach := attachments.New(backend, filemeta.New(db), 1<<20, zap.NewNop())
	h := files.NewHandler(db, attach, links, cascade.New(db, backend, zap.NewNop(), nil), zap.NewNop())

	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	owner := fx.CreateTeacher(ctx, "Owner", "owner@example.com")
	student := fx.CreateStudent(ctx, "Stu", "s@example.com")
	g := fx.CreateGroup(ctx, "Alpha", owner.ID)
	fx.AddMembership(ctx, g.ID, student.ID, models.GroupRoleMember)
	return &env{h: h, fx: fx, storage: local, owner: owner, student: student, group: g}
}

func uploadRequest(t *testing.T, groupID string, u models.User, names ...string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("groupId", groupID))
	for _, name := range names {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", `form-data; name="attachments"; filename="`+name+`"`)
		hdr.Set("Content-Type", "application/pdf")
		pw, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, _ = io.WriteString(pw, "%PDF-1.4")
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return auth.WithTestUser(req, testutil.PrincipalFor(u))
}

// stored writes data through the backend and records its metadata.
func (v *env) stored(t *testing.T, uploader models.User) models.File {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	st, err := v.storage.Store(ctx, filestore.Upload{Name: "notes.pdf", Body: strings.NewReader("data")})
	require.NoError(t, err)
	return v.fx.CreateFile(ctx, v.group.ID, uploader.ID, st.ID)
}

func TestHandleUpload_GroupAuthorityOnly(t *testing.T) {
	v := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rec := httptest.NewRecorder()
	v.h.HandleUpload(rec, uploadRequest(t, v.group.ID.Hex(), v.student, "a.pdf"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, int64(0), v.fx.Count(ctx, "files", bson.M{}))

	rec = httptest.NewRecorder()
	v.h.HandleUpload(rec, uploadRequest(t, v.group.ID.Hex(), v.owner, "a.pdf", "b.pdf"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, int64(2), v.fx.Count(ctx, "files", bson.M{"group_id": v.group.ID, "uploaded_by": v.owner.ID}))

	rec = httptest.NewRecorder()
	v.h.HandleUpload(rec, uploadRequest(t, v.group.ID.Hex(), v.owner))
	assert.Equal(t, "NO_FILES", testutil.ErrorCode(rec))
}

func TestServeList_MembersOnly(t *testing.T) {
	v := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	outsider := v.fx.CreateStudent(ctx, "Out", "out@example.com")
	v.stored(t, v.owner)

	rec := httptest.NewRecorder()
	v.h.ServeList(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/?groupId="+v.group.ID.Hex(), nil, v.student))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Count int `json:"count"`
	}
	testutil.DecodeJSON(t, rec, &body)
	assert.Equal(t, 1, body.Count)

	rec = httptest.NewRecorder()
	v.h.ServeList(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/?groupId="+v.group.ID.Hex(), nil, outsider))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLinkAndDownload(t *testing.T) {
	v := setup(t)
	f := v.stored(t, v.owner)

	rec := httptest.NewRecorder()
	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/", nil, v.student)
	v.h.ServeLink(rec, testutil.WithChiURLParams(req, "id", f.ID.Hex()))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var link struct {
		URL string `json:"url"`
	}
	testutil.DecodeJSON(t, rec, &link)
	u, err := url.Parse(link.URL)
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	v.h.ServeDownload(rec, httptest.NewRequest(http.MethodGet, "/download?"+u.RawQuery, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "data", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "notes.pdf")
}

// driveStub reports itself as the Drive backend but would stream content if
// asked, so a 200 means the handler skipped the redirect.
type driveStub struct{ filestore.Backend }

func (driveStub) Name() string { return filestore.BackendDrive }
func (driveStub) Open(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("streamed")), nil
}

func TestServeDownload_DriveRedirects(t *testing.T) {
	v := setupWith(t, driveStub{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	f, err := v.h.Files.Create(ctx, models.File{
		Filename:     "slides.pdf",
		ContentType:  "application/pdf",
		Size:         8,
		Backend:      filestore.BackendDrive,
		StorageID:    "drive-file-1",
		DownloadLink: "https://drive.google.com/uc?id=drive-file-1&export=download",
		UploadedBy:   v.owner.ID,
		GroupID:      v.group.ID,
	})
	require.NoError(t, err)
	token, err := v.h.Links.Sign(f.ID, v.student.ID)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	v.h.ServeDownload(rec, httptest.NewRequest(http.MethodGet, "/download?token="+url.QueryEscape(token), nil))
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	assert.Equal(t, f.DownloadLink, rec.Header().Get("Location"))
}

func TestServeDownload_BadToken(t *testing.T) {
	v := setup(t)

	rec := httptest.NewRecorder()
	v.h.ServeDownload(rec, httptest.NewRequest(http.MethodGet, "/download?token=forged", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleDelete_RefusesAttachedFile(t *testing.T) {
	v := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	attached := v.stored(t, v.owner)
	loose := v.stored(t, v.owner)
	v.fx.CreateAnnouncement(ctx, v.group.ID, v.owner.ID, "Slides", false, attached.ID)

	del := func(actor models.User, f models.File) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := testutil.NewAuthenticatedRequest(http.MethodDelete, "/", nil, actor)
		v.h.HandleDelete(rec, testutil.WithChiURLParams(req, "id", f.ID.Hex()))
		return rec
	}

	assert.Equal(t, http.StatusConflict, del(v.owner, attached).Code)
	assert.Equal(t, http.StatusForbidden, del(v.student, loose).Code)

	rec := del(v.owner, loose)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(0), v.fx.Count(ctx, "files", bson.M{"_id": loose.ID}))
}
