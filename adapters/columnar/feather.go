package columnar

import (
	"context"
	"os"

	"tabio/domain/table"
	"tabio/internal"
	"tabio/internal/errors"

	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// FeatherCodec stores tables as LZ4-compressed Arrow IPC files (Feather v2)
type FeatherCodec struct {
	mem    memory.Allocator
	logger *internal.Logger
}

// NewFeatherCodec creates a Feather codec
func NewFeatherCodec(logger *internal.Logger) *FeatherCodec {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &FeatherCodec{mem: memory.NewGoAllocator(), logger: logger}
}

// Name identifies the format
func (c *FeatherCodec) Name() string { return "feather" }

// Save writes t as one record batch; row positions are implicit
func (c *FeatherCodec) Save(ctx context.Context, t *table.Table, path string) error {
	rec, err := ToRecord(c.mem, t)
	if err != nil {
		return errors.EncodeError(c.Name(), path, err)
	}
	defer rec.Release()

	f, err := os.Create(path)
	if err != nil {
		return errors.IOError(path, err)
	}
	defer f.Close()

	w, err := ipc.NewFileWriter(f, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(c.mem), ipc.WithLZ4())
	if err != nil {
		return errors.EncodeError(c.Name(), path, err)
	}
	if t.NumRows() > 0 {
		if err := w.Write(rec); err != nil {
			w.Close()
			return errors.EncodeError(c.Name(), path, err)
		}
	}
	if err := w.Close(); err != nil {
		return errors.EncodeError(c.Name(), path, err)
	}
	if err := f.Close(); err != nil {
		return errors.IOError(path, err)
	}

	c.logger.Debug("[FeatherCodec] wrote %s (%d columns, %d rows)", path, t.NumCols(), t.NumRows())
	return nil
}

// Load reads every record batch of the file at path
func (c *FeatherCodec) Load(ctx context.Context, path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.IOError(path, err)
	}
	defer f.Close()

	r, err := ipc.NewFileReader(f, ipc.WithAllocator(c.mem))
	if err != nil {
		return nil, errors.DecodeError(c.Name(), path, err)
	}
	defer r.Close()

	buffers := newBuffers(r.Schema())
	for i := 0; i < r.NumRecords(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := r.RecordAt(i)
		if err != nil {
			return nil, errors.DecodeError(c.Name(), path, err)
		}
		for j, b := range buffers {
			b.appendArray(rec.Column(j))
		}
		rec.Release()
	}

	t, err := buildTable(buffers)
	if err != nil {
		return nil, errors.DecodeError(c.Name(), path, err)
	}
	return t, nil
}
