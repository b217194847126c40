// internal/app/system/metrics/backend.go
package metrics

import (
	"context"
	"io"

	"github.com/dalemusser/learnportal/internal/app/system/filestore"
)

// instrumented wraps a filestore.Backend and counts its operations.
type instrumented struct {
	filestore.Backend
	m *Metrics
}

// InstrumentBackend returns b with storage operation counting.
func (m *Metrics) InstrumentBackend(b filestore.Backend) filestore.Backend {
	if m == nil {
		return b
	}
	return &instrumented{Backend: b, m: m}
}

func (i *instrumented) Store(ctx context.Context, up filestore.Upload) (filestore.Stored, error) {
	st, err := i.Backend.Store(ctx, up)
	i.m.StorageOp(i.Name(), "store", err)
	return st, err
}

func (i *instrumented) Remove(ctx context.Context, id string) error {
	err := i.Backend.Remove(ctx, id)
	i.m.StorageOp(i.Name(), "remove", err)
	return err
}

func (i *instrumented) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	rc, err := i.Backend.Open(ctx, id)
	i.m.StorageOp(i.Name(), "open", err)
	return rc, err
}
