// internal/app/system/filestore/local.go
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Local stores objects on a filesystem rooted at a directory. Production uses
// afero.NewOsFs; tests use afero.NewMemMapFs.
type Local struct {
	fs  afero.Fs
	now func() time.Time
}

// NewLocal returns a Local backend rooted at root on fsys.
func NewLocal(fsys afero.Fs, root string) (*Local, error) {
	if root == "" {
		return nil, errors.New("filestore: local root path is required")
	}
	if err := fsys.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: create root: %w", err)
	}
	return &Local{fs: afero.NewBasePathFs(fsys, root), now: time.Now}, nil
}

func (l *Local) Name() string { return BackendLocal }

func (l *Local) Store(ctx context.Context, up Upload) (Stored, error) {
	if err := ctx.Err(); err != nil {
		return Stored{}, err
	}
	key := objectKey(l.now().UTC(), up.Name)
	if err := l.fs.MkdirAll(path.Dir(key), 0o755); err != nil {
		return Stored{}, fmt.Errorf("filestore: mkdir: %w", err)
	}
	f, err := l.fs.OpenFile(key, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return Stored{}, fmt.Errorf("filestore: create %s: %w", key, err)
	}
	n, err := io.Copy(f, up.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = l.fs.Remove(key)
		return Stored{}, fmt.Errorf("filestore: write %s: %w", key, err)
	}
	return Stored{ID: key, Size: n}, nil
}

func (l *Local) Remove(ctx context.Context, id string) error {
	key, err := cleanKey(id)
	if err != nil {
		return err
	}
	if err := l.fs.Remove(key); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("filestore: remove %s: %w", key, err)
	}
	return nil
}

func (l *Local) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	key, err := cleanKey(id)
	if err != nil {
		return nil, err
	}
	f, err := l.fs.Open(key)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// cleanKey rejects keys that try to escape the uploads tree.
func cleanKey(id string) (string, error) {
	key := path.Clean("/" + id)[1:]
	if key == "" || !strings.HasPrefix(key, "uploads/") {
		return "", fmt.Errorf("filestore: invalid key %q", id)
	}
	return key, nil
}
