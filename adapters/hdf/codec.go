// Package hdf stores a table as one HDF5 group with a dataset per column,
// optionally framed with zstd.
package hdf

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"tabio/domain/table"
	"tabio/internal"
	"tabio/internal/config"
	"tabio/internal/errors"
	"tabio/internal/scratch"

	"github.com/klauspost/compress/zstd"
)

const (
	groupName  = "df"
	schemaName = "schema"
	zstdSuffix = ".zstd"
)

// schema is stored next to the column datasets so names and kinds survive
type schema struct {
	Columns []string `json:"columns"`
	Kinds   []string `json:"kinds"`
	Rows    int      `json:"rows"`
}

func schemaOf(t *table.Table) schema {
	s := schema{Columns: t.Names(), Kinds: make([]string, t.NumCols()), Rows: t.NumRows()}
	for i, col := range t.Columns() {
		s.Kinds[i] = col.Kind.String()
	}
	return s
}

func (s schema) encode() ([]byte, error) {
	return json.Marshal(s)
}

func decodeSchema(data []byte) (schema, error) {
	var s schema
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("invalid schema: %w", err)
	}
	if len(s.Columns) != len(s.Kinds) {
		return s, fmt.Errorf("schema has %d columns but %d kinds", len(s.Columns), len(s.Kinds))
	}
	return s, nil
}

// Codec reads and writes .h5/.hdf/.hdf5 files and their .zstd framed form
type Codec struct {
	level   int
	storage *scratch.Storage
	logger  *internal.Logger
}

// NewCodec creates an HDF5 codec
func NewCodec(cfg config.HDF5Config, storage *scratch.Storage, logger *internal.Logger) *Codec {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &Codec{level: cfg.CompressionLevel, storage: storage, logger: logger}
}

// Name identifies the format
func (c *Codec) Name() string { return "hdf5" }

// Save writes t to path; a .zstd path holds the zstd-compressed HDF5 file
func (c *Codec) Save(ctx context.Context, t *table.Table, path string) error {
	if !strings.HasSuffix(path, zstdSuffix) {
		return c.save(t, path)
	}

	tmp, err := c.storage.Create("hdf", ".h5")
	if err != nil {
		return err
	}
	defer tmp.Release()
	tmp.Close()

	if err := c.save(t, tmp.Path()); err != nil {
		return err
	}
	if err := compressFile(tmp.Path(), path); err != nil {
		return errors.EncodeError(c.Name(), path, err)
	}
	return nil
}

// Load reads the table stored at path
func (c *Codec) Load(ctx context.Context, path string) (*table.Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.IOError(path, err)
	}
	if !strings.HasSuffix(path, zstdSuffix) {
		return c.load(path)
	}

	tmp, err := c.storage.Create("hdf", ".h5")
	if err != nil {
		return nil, err
	}
	defer tmp.Release()

	if err := decompressTo(path, tmp); err != nil {
		return nil, errors.DecodeError(c.Name(), path, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, errors.IOError(tmp.Path(), err)
	}
	return c.load(tmp.Path())
}

func (c *Codec) save(t *table.Table, path string) error {
	if err := writeFile(path, t, c.level); err != nil {
		return err
	}
	c.logger.Debug("[HDFCodec] wrote %s (%d columns, %d rows)", path, t.NumCols(), t.NumRows())
	return nil
}

func (c *Codec) load(path string) (*table.Table, error) {
	t, err := readFile(path)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("[HDFCodec] read %s (%d columns, %d rows)", path, t.NumCols(), t.NumRows())
	return t, nil
}

// compressFile writes src to dst as a single zstd frame at best compression
func compressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	enc, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return err
	}
	if _, err := io.Copy(enc, in); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return out.Close()
}

// decompressTo expands the zstd stream at src into w
func decompressTo(src string, w io.Writer) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	dec, err := zstd.NewReader(in)
	if err != nil {
		return err
	}
	defer dec.Close()

	_, err = io.Copy(w, dec)
	return err
}
