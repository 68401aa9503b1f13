package columnar

import (
	"context"
	"os"

	"tabio/domain/table"
	"tabio/internal"
	"tabio/internal/errors"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// rowGroupRows bounds the rows written per Parquet row group
const rowGroupRows = 64 * 1024

// ParquetCodec stores tables as Snappy-compressed Parquet files
type ParquetCodec struct {
	mem    memory.Allocator
	logger *internal.Logger
}

// NewParquetCodec creates a Parquet codec
func NewParquetCodec(logger *internal.Logger) *ParquetCodec {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &ParquetCodec{mem: memory.NewGoAllocator(), logger: logger}
}

// Name identifies the format
func (c *ParquetCodec) Name() string { return "parquet" }

// Save writes t with its Arrow schema embedded in the file metadata
func (c *ParquetCodec) Save(ctx context.Context, t *table.Table, path string) error {
	rec, err := ToRecord(c.mem, t)
	if err != nil {
		return errors.EncodeError(c.Name(), path, err)
	}
	defer rec.Release()

	tbl := array.NewTableFromRecords(rec.Schema(), []arrow.Record{rec})
	defer tbl.Release()

	f, err := os.Create(path)
	if err != nil {
		return errors.IOError(path, err)
	}
	defer f.Close()

	props := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Snappy),
		parquet.WithAllocator(c.mem),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())
	if err := pqarrow.WriteTable(tbl, f, rowGroupRows, props, arrowProps); err != nil {
		return errors.EncodeError(c.Name(), path, err)
	}

	c.logger.Debug("[ParquetCodec] wrote %s (%d columns, %d rows)", path, t.NumCols(), t.NumRows())
	return nil
}

// Load reads every row group of the file at path
func (c *ParquetCodec) Load(ctx context.Context, path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.IOError(path, err)
	}
	defer f.Close()

	tbl, err := pqarrow.ReadTable(ctx, f, parquet.NewReaderProperties(c.mem), pqarrow.ArrowReadProperties{}, c.mem)
	if err != nil {
		return nil, errors.DecodeError(c.Name(), path, err)
	}
	defer tbl.Release()

	buffers := newBuffers(tbl.Schema())
	for i, b := range buffers {
		for _, chunk := range tbl.Column(i).Data().Chunks() {
			b.appendArray(chunk)
		}
	}

	t, err := buildTable(buffers)
	if err != nil {
		return nil, errors.DecodeError(c.Name(), path, err)
	}
	return t, nil
}
