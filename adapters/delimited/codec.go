// Package delimited reads and writes comma- and tab-separated text, plain or
// as a single-member zip archive.
package delimited

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tabio/adapters/datareadiness/coercer"
	"tabio/domain/table"
	"tabio/internal"
	"tabio/internal/errors"
	"tabio/internal/header"

	"github.com/klauspost/compress/zip"
)

const utf8BOM = "\ufeff"

// Codec handles .csv, .csv.zip, .tsv and .tsv.zip
type Codec struct {
	coercer *coercer.TypeCoercer
	locator *header.Locator
	logger  *internal.Logger
}

// NewCodec creates a delimited text codec
func NewCodec(c *coercer.TypeCoercer, locator *header.Locator, logger *internal.Logger) *Codec {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &Codec{coercer: c, locator: locator, logger: logger}
}

// Name identifies the format
func (c *Codec) Name() string { return "csv" }

// Delimiter returns tab for .tsv paths and comma otherwise
func Delimiter(path string) rune {
	if strings.HasSuffix(path, ".tsv") || strings.HasSuffix(path, ".tsv.zip") {
		return '\t'
	}
	return ','
}

// IsZipped reports whether path names a zip-compressed file
func IsZipped(path string) bool {
	return strings.HasSuffix(path, ".zip")
}

// MemberName is the archive entry name used for a zipped file at path
func MemberName(path string) string {
	return filepath.Base(strings.TrimSuffix(path, ".zip"))
}

// Load reads the file, infers column kinds and locates the header
func (c *Codec) Load(ctx context.Context, path string) (*table.Table, error) {
	startTime := time.Now()
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.IOError(path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if IsZipped(path) {
		rc, err := openSingleMember(f)
		if err != nil {
			return nil, errors.DecodeError(c.Name(), path, err)
		}
		defer rc.Close()
		r = rc
	}

	t, err := c.Decode(r, Delimiter(path))
	if err != nil {
		return nil, errors.DecodeError(c.Name(), path, err)
	}
	t = c.locator.Locate(t)

	c.logger.Debug("[DelimitedCodec] %s read in %.2fms (%d columns, %d rows)",
		path, float64(time.Since(startTime).Nanoseconds())/1e6, t.NumCols(), t.NumRows())
	return t, nil
}

func openSingleMember(f *os.File) (io.ReadCloser, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open zip archive: %w", err)
	}
	if len(zr.File) != 1 {
		return nil, fmt.Errorf("zip archive must contain exactly one file, found %d", len(zr.File))
	}
	return zr.File[0].Open()
}

// Decode parses delimited text whose first record is the header
func (c *Codec) Decode(r io.Reader, comma rune) (*table.Table, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.Comma = comma
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse records: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no columns to parse from file")
	}

	raw := records[0]
	if len(raw) > 0 {
		raw[0] = strings.TrimPrefix(raw[0], utf8BOM)
	}
	names := header.Normalize(raw)
	width := len(names)

	cells := make([][]string, width)
	for i := range cells {
		cells[i] = make([]string, len(records)-1)
	}
	for r, record := range records[1:] {
		if len(record) > width {
			return nil, fmt.Errorf("expected %d fields in line %d, saw %d", width, r+2, len(record))
		}
		for i, cell := range record {
			cells[i][r] = cell
		}
	}

	cols := make([]*table.Column, width)
	for i, name := range names {
		cols[i] = c.coercer.ColumnFromStrings(name, cells[i])
	}
	return table.New(cols...)
}

// Save writes a header row then one record per row, UTF-8, no index column
func (c *Codec) Save(ctx context.Context, t *table.Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.IOError(path, err)
	}
	defer f.Close()

	if IsZipped(path) {
		zw := zip.NewWriter(f)
		entry, err := zw.CreateHeader(&zip.FileHeader{
			Name:     MemberName(path),
			Method:   zip.Deflate,
			Modified: time.Now(),
		})
		if err != nil {
			return errors.EncodeError(c.Name(), path, err)
		}
		if err := Encode(entry, t, Delimiter(path)); err != nil {
			return errors.EncodeError(c.Name(), path, err)
		}
		if err := zw.Close(); err != nil {
			return errors.EncodeError(c.Name(), path, err)
		}
	} else if err := Encode(f, t, Delimiter(path)); err != nil {
		return errors.EncodeError(c.Name(), path, err)
	}

	if err := f.Close(); err != nil {
		return errors.IOError(path, err)
	}
	c.logger.Debug("[DelimitedCodec] wrote %s (%d columns, %d rows)", path, t.NumCols(), t.NumRows())
	return nil
}

// Encode writes t as delimited text to w
func Encode(w io.Writer, t *table.Table, comma rune) error {
	bw := bufio.NewWriter(w)
	writer := csv.NewWriter(bw)
	writer.Comma = comma

	if err := writer.Write(t.Names()); err != nil {
		return err
	}
	record := make([]string, t.NumCols())
	for r := 0; r < t.NumRows(); r++ {
		for i, col := range t.Columns() {
			record[i] = table.FormatValue(col.Values[r])
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return bw.Flush()
}
