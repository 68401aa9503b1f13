// Package pickle stores a table as a Python pickle of a column-major dict,
// optionally inside a single-member zip archive.
package pickle

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tabio/domain/table"
	"tabio/internal"
	"tabio/internal/errors"

	"github.com/klauspost/compress/zip"
	ogorek "github.com/kisielk/og-rek"
)

// timeLayout keeps nanoseconds and the zone offset of stored timestamps
const timeLayout = time.RFC3339Nano

// Codec handles .pkl, .pickle and their .zip variants
type Codec struct {
	logger *internal.Logger
}

// NewCodec creates a pickle codec
func NewCodec(logger *internal.Logger) *Codec {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &Codec{logger: logger}
}

// Name identifies the format
func (c *Codec) Name() string { return "pickle" }

// Save pickles t as {"columns": [...], "kinds": [...], "data": [[...], ...]}
func (c *Codec) Save(ctx context.Context, t *table.Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.IOError(path, err)
	}
	defer f.Close()

	if strings.HasSuffix(path, ".zip") {
		zw := zip.NewWriter(f)
		entry, err := zw.CreateHeader(&zip.FileHeader{
			Name:     filepath.Base(strings.TrimSuffix(path, ".zip")),
			Method:   zip.Deflate,
			Modified: time.Now(),
		})
		if err != nil {
			return errors.EncodeError(c.Name(), path, err)
		}
		if err := Encode(entry, t); err != nil {
			return errors.EncodeError(c.Name(), path, err)
		}
		if err := zw.Close(); err != nil {
			return errors.EncodeError(c.Name(), path, err)
		}
	} else {
		bw := bufio.NewWriter(f)
		if err := Encode(bw, t); err != nil {
			return errors.EncodeError(c.Name(), path, err)
		}
		if err := bw.Flush(); err != nil {
			return errors.IOError(path, err)
		}
	}

	if err := f.Close(); err != nil {
		return errors.IOError(path, err)
	}
	c.logger.Debug("[PickleCodec] wrote %s (%d columns, %d rows)", path, t.NumCols(), t.NumRows())
	return nil
}

// Load unpickles the table at path
func (c *Codec) Load(ctx context.Context, path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.IOError(path, err)
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	if strings.HasSuffix(path, ".zip") {
		info, err := f.Stat()
		if err != nil {
			return nil, errors.IOError(path, err)
		}
		zr, err := zip.NewReader(f, info.Size())
		if err != nil {
			return nil, errors.DecodeError(c.Name(), path, err)
		}
		if len(zr.File) != 1 {
			return nil, errors.DecodeError(c.Name(), path,
				fmt.Errorf("zip archive must contain exactly one file, found %d", len(zr.File)))
		}
		rc, err := zr.File[0].Open()
		if err != nil {
			return nil, errors.DecodeError(c.Name(), path, err)
		}
		defer rc.Close()
		r = rc
	}

	t, err := Decode(r)
	if err != nil {
		return nil, errors.DecodeError(c.Name(), path, err)
	}
	return t, nil
}

// Encode writes the pickle of t to w
func Encode(w io.Writer, t *table.Table) error {
	columns := make([]interface{}, t.NumCols())
	kinds := make([]interface{}, t.NumCols())
	data := make([]interface{}, t.NumCols())
	for i, col := range t.Columns() {
		columns[i] = col.Name
		kinds[i] = col.Kind.String()
		values := make([]interface{}, len(col.Values))
		for r, v := range col.Values {
			values[r] = encodeValue(v)
		}
		data[i] = values
	}

	frame := map[interface{}]interface{}{
		"columns": columns,
		"kinds":   kinds,
		"data":    data,
	}
	return ogorek.NewEncoder(w).Encode(frame)
}

func encodeValue(v any) interface{} {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(x) {
			return nil
		}
		return x
	case time.Time:
		return x.Format(timeLayout)
	case int64, bool, string:
		return x
	default:
		return table.FormatValue(x)
	}
}

// Decode reads one pickled table from r
func Decode(r io.Reader) (*table.Table, error) {
	obj, err := ogorek.NewDecoder(r).Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to unpickle: %w", err)
	}
	frame, ok := obj.(map[interface{}]interface{})
	if !ok {
		return nil, fmt.Errorf("expected a dict, found %T", obj)
	}

	columns, err := list(frame["columns"], "columns")
	if err != nil {
		return nil, err
	}
	kinds, err := list(frame["kinds"], "kinds")
	if err != nil {
		return nil, err
	}
	data, err := list(frame["data"], "data")
	if err != nil {
		return nil, err
	}
	if len(kinds) != len(columns) || len(data) != len(columns) {
		return nil, fmt.Errorf("found %d columns, %d kinds and %d data lists", len(columns), len(kinds), len(data))
	}

	cols := make([]*table.Column, len(columns))
	for i := range columns {
		name, ok := columns[i].(string)
		if !ok {
			return nil, fmt.Errorf("column %d name is %T", i, columns[i])
		}
		kindName, ok := kinds[i].(string)
		if !ok {
			return nil, fmt.Errorf("column %q kind is %T", name, kinds[i])
		}
		kind, err := table.ParseKind(kindName)
		if err != nil {
			return nil, err
		}
		raw, err := list(data[i], name)
		if err != nil {
			return nil, err
		}
		values := make([]any, len(raw))
		for r, v := range raw {
			if values[r], err = decodeValue(kind, v); err != nil {
				return nil, fmt.Errorf("column %q row %d: %w", name, r, err)
			}
		}
		cols[i] = table.NewColumn(name, kind, values)
	}
	return table.New(cols...)
}

func list(v interface{}, what string) ([]interface{}, error) {
	switch x := v.(type) {
	case []interface{}:
		return x, nil
	case ogorek.Tuple:
		return []interface{}(x), nil
	default:
		return nil, fmt.Errorf("%s: expected a list, found %T", what, v)
	}
}

func decodeValue(kind table.Kind, v interface{}) (any, error) {
	switch x := v.(type) {
	case nil, ogorek.None:
		return nil, nil
	case *big.Int:
		if !x.IsInt64() {
			return nil, fmt.Errorf("integer %s overflows int64", x)
		}
		v = x.Int64()
	}

	switch kind {
	case table.KindFloat:
		if n, ok := v.(int64); ok {
			return float64(n), nil
		}
	case table.KindTime:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected a timestamp string, found %T", v)
		}
		return time.Parse(timeLayout, s)
	}
	return v, nil
}
