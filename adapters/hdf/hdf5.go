//go:build hdf5

package hdf

import (
	"fmt"
	"math"
	"time"

	"tabio/domain/table"
	"tabio/internal/errors"

	"gonum.org/v1/hdf5"
)

// Available reports whether this build can read and write HDF5 files
const Available = true

// chunkRows caps the chunk length of each column dataset
const chunkRows = 64 * 1024

func writeFile(path string, t *table.Table, level int) error {
	f, err := hdf5.CreateFile(path, hdf5.F_ACC_TRUNC)
	if err != nil {
		return errors.IOError(path, err)
	}
	defer f.Close()

	g, err := f.CreateGroup(groupName)
	if err != nil {
		return errors.EncodeError("hdf5", path, err)
	}
	defer g.Close()

	meta, err := schemaOf(t).encode()
	if err != nil {
		return errors.EncodeError("hdf5", path, err)
	}
	if err := writeDataset(g, schemaName, hdf5.T_NATIVE_UINT8, meta, level); err != nil {
		return errors.EncodeError("hdf5", path, fmt.Errorf("schema: %w", err))
	}

	for i, col := range t.Columns() {
		if err := writeColumn(g, i, col, level); err != nil {
			return errors.EncodeError("hdf5", path, fmt.Errorf("column %q: %w", col.Name, err))
		}
	}
	return nil
}

// writeColumn stores the values of column i under c<i>, a validity mask
// under c<i>_valid and, for text, end offsets under c<i>_offsets
func writeColumn(g *hdf5.Group, i int, col *table.Column, level int) error {
	n := col.Len()
	valid := make([]uint8, n)
	for r, v := range col.Values {
		if v != nil {
			valid[r] = 1
		}
	}
	name := fmt.Sprintf("c%d", i)
	if err := writeDataset(g, name+"_valid", hdf5.T_NATIVE_UINT8, valid, level); err != nil {
		return err
	}

	switch col.Kind {
	case table.KindInt:
		data := make([]int64, n)
		for r, v := range col.Values {
			if x, ok := v.(int64); ok {
				data[r] = x
			}
		}
		return writeDataset(g, name, hdf5.T_NATIVE_INT64, data, level)
	case table.KindFloat:
		data := make([]float64, n)
		for r, v := range col.Values {
			data[r] = math.NaN()
			switch x := v.(type) {
			case float64:
				data[r] = x
			case int64:
				data[r] = float64(x)
			}
		}
		return writeDataset(g, name, hdf5.T_NATIVE_DOUBLE, data, level)
	case table.KindBool:
		data := make([]uint8, n)
		for r, v := range col.Values {
			if x, ok := v.(bool); ok && x {
				data[r] = 1
			}
		}
		return writeDataset(g, name, hdf5.T_NATIVE_UINT8, data, level)
	case table.KindTime:
		data := make([]int64, n)
		for r, v := range col.Values {
			if x, ok := v.(time.Time); ok {
				data[r] = x.UnixNano()
			}
		}
		return writeDataset(g, name, hdf5.T_NATIVE_INT64, data, level)
	default:
		var text []uint8
		ends := make([]int64, n)
		for r, v := range col.Values {
			if v != nil {
				if s, ok := v.(string); ok {
					text = append(text, s...)
				} else {
					text = append(text, table.FormatValue(v)...)
				}
			}
			ends[r] = int64(len(text))
		}
		if err := writeDataset(g, name+"_offsets", hdf5.T_NATIVE_INT64, ends, level); err != nil {
			return err
		}
		return writeDataset(g, name, hdf5.T_NATIVE_UINT8, text, level)
	}
}

// writeDataset creates a one-dimensional dataset holding data, a slice of
// int64, float64 or uint8. Non-empty datasets are chunked and deflated.
func writeDataset(g *hdf5.Group, name string, dtype *hdf5.Datatype, data interface{}, level int) error {
	n := sliceLen(data)
	space, err := hdf5.CreateSimpleDataspace([]uint{uint(n)}, nil)
	if err != nil {
		return err
	}
	defer space.Close()

	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return err
	}
	defer plist.Close()
	if n > 0 {
		if err := plist.SetChunk([]uint{uint(min(n, chunkRows))}); err != nil {
			return err
		}
		if err := plist.SetDeflate(level); err != nil {
			return err
		}
	}

	ds, err := g.CreateDatasetWith(name, dtype, space, plist)
	if err != nil {
		return err
	}
	defer ds.Close()

	if n == 0 {
		return nil
	}
	switch d := data.(type) {
	case []int64:
		return ds.Write(&d)
	case []float64:
		return ds.Write(&d)
	case []uint8:
		return ds.Write(&d)
	default:
		return fmt.Errorf("unsupported dataset element %T", data)
	}
}

func sliceLen(data interface{}) int {
	switch d := data.(type) {
	case []int64:
		return len(d)
	case []float64:
		return len(d)
	case []uint8:
		return len(d)
	default:
		return 0
	}
}

func readFile(path string) (*table.Table, error) {
	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, errors.IOError(path, err)
	}
	defer f.Close()

	g, err := f.OpenGroup(groupName)
	if err != nil {
		return nil, errors.DecodeError("hdf5", path, fmt.Errorf("group %s: %w", groupName, err))
	}
	defer g.Close()

	var meta []uint8
	if err := readDataset(g, schemaName, &meta); err != nil {
		return nil, errors.DecodeError("hdf5", path, fmt.Errorf("schema: %w", err))
	}
	s, err := decodeSchema(meta)
	if err != nil {
		return nil, errors.DecodeError("hdf5", path, err)
	}

	cols := make([]*table.Column, len(s.Columns))
	for i, name := range s.Columns {
		kind, err := table.ParseKind(s.Kinds[i])
		if err != nil {
			return nil, errors.DecodeError("hdf5", path, err)
		}
		col, err := readColumn(g, i, name, kind, s.Rows)
		if err != nil {
			return nil, errors.DecodeError("hdf5", path, fmt.Errorf("column %q: %w", name, err))
		}
		cols[i] = col
	}

	t, err := table.New(cols...)
	if err != nil {
		return nil, errors.DecodeError("hdf5", path, err)
	}
	return t, nil
}

func readColumn(g *hdf5.Group, i int, name string, kind table.Kind, rows int) (*table.Column, error) {
	key := fmt.Sprintf("c%d", i)
	var valid []uint8
	if err := readDataset(g, key+"_valid", &valid); err != nil {
		return nil, err
	}
	if len(valid) != rows {
		return nil, fmt.Errorf("expected %d rows, found %d", rows, len(valid))
	}

	values := make([]any, rows)
	switch kind {
	case table.KindInt, table.KindTime:
		var data []int64
		if err := readDataset(g, key, &data); err != nil {
			return nil, err
		}
		for r := range values {
			if valid[r] == 0 {
				continue
			}
			if kind == table.KindTime {
				values[r] = time.Unix(0, data[r]).UTC()
			} else {
				values[r] = data[r]
			}
		}
	case table.KindFloat:
		var data []float64
		if err := readDataset(g, key, &data); err != nil {
			return nil, err
		}
		for r := range values {
			if valid[r] != 0 && !math.IsNaN(data[r]) {
				values[r] = data[r]
			}
		}
	case table.KindBool:
		var data []uint8
		if err := readDataset(g, key, &data); err != nil {
			return nil, err
		}
		for r := range values {
			if valid[r] != 0 {
				values[r] = data[r] != 0
			}
		}
	default:
		var text []uint8
		var ends []int64
		if err := readDataset(g, key, &text); err != nil {
			return nil, err
		}
		if err := readDataset(g, key+"_offsets", &ends); err != nil {
			return nil, err
		}
		start := int64(0)
		for r := range values {
			if valid[r] != 0 {
				values[r] = string(text[start:ends[r]])
			}
			start = ends[r]
		}
		if kind == table.KindObject {
			kind = table.KindString
		}
	}
	return table.NewColumn(name, kind, values), nil
}

// readDataset fills dst, a pointer to an int64, float64 or uint8 slice
func readDataset(g *hdf5.Group, name string, dst interface{}) error {
	ds, err := g.OpenDataset(name)
	if err != nil {
		return err
	}
	defer ds.Close()

	space := ds.Space()
	defer space.Close()
	dims, _, err := space.SimpleExtentDims()
	if err != nil {
		return err
	}
	n := 0
	if len(dims) > 0 {
		n = int(dims[0])
	}

	switch d := dst.(type) {
	case *[]int64:
		*d = make([]int64, n)
	case *[]float64:
		*d = make([]float64, n)
	case *[]uint8:
		*d = make([]uint8, n)
	default:
		return fmt.Errorf("unsupported dataset element %T", dst)
	}
	if n == 0 {
		return nil
	}
	return ds.Read(dst)
}
