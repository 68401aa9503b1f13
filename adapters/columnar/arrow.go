// Package columnar converts tables to and from Arrow records for the
// Parquet and Feather file formats.
package columnar

import (
	"fmt"
	"math"
	"time"

	"tabio/domain/table"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

var timestampType = &arrow.TimestampType{Unit: arrow.Nanosecond, TimeZone: "UTC"}

// arrowType maps a column kind to the Arrow type it is stored as. Object
// columns are stored as their text rendering.
func arrowType(kind table.Kind) arrow.DataType {
	switch kind {
	case table.KindInt:
		return arrow.PrimitiveTypes.Int64
	case table.KindFloat:
		return arrow.PrimitiveTypes.Float64
	case table.KindBool:
		return arrow.FixedWidthTypes.Boolean
	case table.KindTime:
		return timestampType
	default:
		return arrow.BinaryTypes.String
	}
}

// kindOf maps an Arrow type back to a column kind
func kindOf(dt arrow.DataType) table.Kind {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return table.KindInt
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
		return table.KindFloat
	case arrow.BOOL:
		return table.KindBool
	case arrow.TIMESTAMP, arrow.DATE32, arrow.DATE64:
		return table.KindTime
	default:
		return table.KindString
	}
}

// Schema builds the Arrow schema for t; every field is nullable
func Schema(t *table.Table) *arrow.Schema {
	fields := make([]arrow.Field, t.NumCols())
	for i, col := range t.Columns() {
		fields[i] = arrow.Field{Name: col.Name, Type: arrowType(col.Kind), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// ToRecord copies t into a single Arrow record. The caller releases it.
func ToRecord(mem memory.Allocator, t *table.Table) (arrow.Record, error) {
	schema := Schema(t)
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for i, col := range t.Columns() {
		if err := appendColumn(b.Field(i), col); err != nil {
			return nil, fmt.Errorf("column %q: %w", col.Name, err)
		}
	}
	return b.NewRecord(), nil
}

func appendColumn(fb array.Builder, col *table.Column) error {
	fb.Reserve(len(col.Values))
	for _, v := range col.Values {
		if v == nil {
			fb.AppendNull()
			continue
		}
		switch b := fb.(type) {
		case *array.Int64Builder:
			n, ok := v.(int64)
			if !ok {
				return fmt.Errorf("unexpected %T in int column", v)
			}
			b.Append(n)
		case *array.Float64Builder:
			switch x := v.(type) {
			case float64:
				if math.IsNaN(x) {
					b.AppendNull()
				} else {
					b.Append(x)
				}
			case int64:
				b.Append(float64(x))
			default:
				return fmt.Errorf("unexpected %T in float column", v)
			}
		case *array.BooleanBuilder:
			x, ok := v.(bool)
			if !ok {
				return fmt.Errorf("unexpected %T in bool column", v)
			}
			b.Append(x)
		case *array.TimestampBuilder:
			x, ok := v.(time.Time)
			if !ok {
				return fmt.Errorf("unexpected %T in time column", v)
			}
			b.Append(arrow.Timestamp(x.UnixNano()))
		case *array.StringBuilder:
			if s, ok := v.(string); ok {
				b.Append(s)
			} else {
				b.Append(table.FormatValue(v))
			}
		default:
			return fmt.Errorf("no builder for %T", fb)
		}
	}
	return nil
}

// columnBuffer accumulates values of one field across record batches
type columnBuffer struct {
	field  arrow.Field
	values []any
}

func newBuffers(schema *arrow.Schema) []*columnBuffer {
	buffers := make([]*columnBuffer, schema.NumFields())
	for i, f := range schema.Fields() {
		buffers[i] = &columnBuffer{field: f, values: []any{}}
	}
	return buffers
}

func (c *columnBuffer) appendArray(arr arrow.Array) {
	for i := 0; i < arr.Len(); i++ {
		if arr.IsNull(i) {
			c.values = append(c.values, nil)
			continue
		}
		c.values = append(c.values, valueAt(arr, i))
	}
}

func (c *columnBuffer) column() *table.Column {
	return table.NewColumn(c.field.Name, kindOf(c.field.Type), c.values)
}

// valueAt reads element i of arr as a table value
func valueAt(arr arrow.Array, i int) any {
	switch a := arr.(type) {
	case *array.Int8:
		return int64(a.Value(i))
	case *array.Int16:
		return int64(a.Value(i))
	case *array.Int32:
		return int64(a.Value(i))
	case *array.Int64:
		return a.Value(i)
	case *array.Uint8:
		return int64(a.Value(i))
	case *array.Uint16:
		return int64(a.Value(i))
	case *array.Uint32:
		return int64(a.Value(i))
	case *array.Uint64:
		return int64(a.Value(i))
	case *array.Float16:
		return float64(a.Value(i).Float32())
	case *array.Float32:
		return float64(a.Value(i))
	case *array.Float64:
		if v := a.Value(i); !math.IsNaN(v) {
			return v
		}
		return nil
	case *array.Boolean:
		return a.Value(i)
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return a.Value(i).ToTime(unit).UTC()
	case *array.Date32:
		return a.Value(i).ToTime().UTC()
	case *array.Date64:
		return a.Value(i).ToTime().UTC()
	default:
		return arr.ValueStr(i)
	}
}

func buildTable(buffers []*columnBuffer) (*table.Table, error) {
	cols := make([]*table.Column, len(buffers))
	for i, b := range buffers {
		cols[i] = b.column()
	}
	return table.New(cols...)
}
