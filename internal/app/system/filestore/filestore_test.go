package filestore_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/dalemusser/learnportal/internal/app/system/filestore"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T) (*filestore.Local, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	l, err := filestore.NewLocal(fs, "/data")
	require.NoError(t, err)
	return l, fs
}

func TestLocal_StoreOpenRemove(t *testing.T) {
	l, fs := newLocal(t)
	ctx := context.Background()

	st, err := l.Store(ctx, filestore.Upload{
		Name:        "../../etc/lab 1.pdf",
		ContentType: "application/pdf",
		Body:        strings.NewReader("%PDF-1.7"),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(st.ID, "uploads/"), st.ID)
	assert.True(t, strings.HasSuffix(st.ID, "-lab_1.pdf"), st.ID)
	assert.Equal(t, int64(8), st.Size)

	exists, err := afero.Exists(fs, "/data/"+st.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	rc, err := l.Open(ctx, st.ID)
	require.NoError(t, err)
	b, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "%PDF-1.7", string(b))

	require.NoError(t, l.Remove(ctx, st.ID))
	_, err = l.Open(ctx, st.ID)
	assert.ErrorIs(t, err, filestore.ErrNotFound)

	// removing twice is fine
	assert.NoError(t, l.Remove(ctx, st.ID))
}

func TestLocal_RejectsKeysOutsideUploads(t *testing.T) {
	l, _ := newLocal(t)
	_, err := l.Open(context.Background(), "../secrets.txt")
	assert.Error(t, err)
	assert.Error(t, l.Remove(context.Background(), "config.toml"))
}

func TestLocal_UniqueKeys(t *testing.T) {
	l, _ := newLocal(t)
	ctx := context.Background()
	a, err := l.Store(ctx, filestore.Upload{Name: "a.zip", Body: strings.NewReader("1")})
	require.NoError(t, err)
	b, err := l.Store(ctx, filestore.Upload{Name: "a.zip", Body: strings.NewReader("2")})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestLocal_CanceledContext(t *testing.T) {
	l, _ := newLocal(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Store(ctx, filestore.Upload{Name: "a.pdf", Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct{ in, want string }{
		{"report.pdf", "report.pdf"},
		{"my file (1).py", "my_file__1_.py"},
		{"C:\\Users\\x\\model.stl", "model.stl"},
		{"", "file"},
		{strings.Repeat("a", 150) + ".zip", strings.Repeat("a", 96) + ".zip"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, filestore.SanitizeFilename(tt.in), tt.in)
	}
}

func TestResolveContentType(t *testing.T) {
	tests := []struct {
		name, file, declared, want string
		ok                         bool
	}{
		{"pdf", "a.pdf", "application/pdf", "application/pdf", true},
		{"python as octet-stream", "bot.py", "application/octet-stream", "text/x-python", true},
		{"stl with params", "arm.stl", "model/stl; charset=binary", "model/stl", true},
		{"zip windows type", "kit.zip", "application/x-zip-compressed", "application/x-zip-compressed", true},
		{"executable", "run.exe", "application/x-msdownload", "", false},
		{"pdf ext with html type", "a.pdf", "text/html", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := filestore.ResolveContentType(tt.file, tt.declared)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDrive_OpenNotSupported(t *testing.T) {
	var d filestore.Drive
	rc, err := d.Open(context.Background(), "any")
	assert.Nil(t, rc)
	assert.ErrorIs(t, err, filestore.ErrNotSupported)
}
