package excel

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"tabio/domain/table"
	"tabio/internal"
	"tabio/internal/config"
	"tabio/internal/errors"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"
)

const sheetName = "Sheet1"

// DataWriter writes tables to single-sheet workbooks, splitting large
// tables into numbered part files
type DataWriter struct {
	config config.ExcelConfig
	logger *internal.Logger
}

// NewDataWriter creates a workbook writer
func NewDataWriter(cfg config.ExcelConfig, logger *internal.Logger) *DataWriter {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &DataWriter{config: cfg, logger: logger}
}

// PartPath names part n (from 1) of a chunked export: <stem>_part<n><ext>
func PartPath(path string, n int) string {
	ext := extension(path)
	return fmt.Sprintf("%s_part%d%s", strings.TrimSuffix(path, ext), n, ext)
}

// WriteData saves t to path, or to PartPath(path, 1..k) when the row count
// reaches the chunk threshold for the extension. It returns the files written.
func (w *DataWriter) WriteData(ctx context.Context, t *table.Table, path string) ([]string, error) {
	policy := policyFor(w.config, path)
	parts := policy.Parts(t.NumRows())
	if parts == 1 {
		if err := w.writeSheet(t, path); err != nil {
			return nil, err
		}
		return []string{path}, nil
	}

	startTime := time.Now()
	w.logger.Info("[DataWriter] splitting %d rows into %d parts for %s", t.NumRows(), parts, path)

	chunks := t.Split(parts)
	paths := make([]string, parts)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.config.ExportWorkers)
	for i, chunk := range chunks {
		paths[i] = PartPath(path, i+1)
		partPath := paths[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return w.writeSheet(chunk, partPath)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	w.logger.Info("[DataWriter] wrote %d parts in %.2fms", parts, float64(time.Since(startTime).Nanoseconds())/1e6)
	return paths, nil
}

// writeSheet streams t into Sheet1 of a new workbook at path
func (w *DataWriter) writeSheet(t *table.Table, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return errors.EncodeError("excel", path, err)
	}
	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: dateTimeFormat})
	if err != nil {
		return errors.EncodeError("excel", path, err)
	}

	names := t.Names()
	head := make([]interface{}, len(names))
	for i, name := range names {
		head[i] = name
	}
	if err := sw.SetRow("A1", head); err != nil {
		return errors.EncodeError("excel", path, err)
	}

	row := make([]interface{}, t.NumCols())
	for r := 0; r < t.NumRows(); r++ {
		for i, col := range t.Columns() {
			row[i] = cellValue(col.Values[r], dateStyle)
		}
		ref, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return errors.EncodeError("excel", path, err)
		}
		if err := sw.SetRow(ref, row); err != nil {
			return errors.EncodeError("excel", path, fmt.Errorf("row %d: %w", r, err))
		}
	}
	if err := sw.Flush(); err != nil {
		return errors.EncodeError("excel", path, err)
	}

	// SaveAs rejects the .xls extension, so the file is written directly
	out, err := os.Create(path)
	if err != nil {
		return errors.IOError(path, err)
	}
	if err := f.Write(out); err != nil {
		out.Close()
		return errors.EncodeError("excel", path, err)
	}
	if err := out.Close(); err != nil {
		return errors.IOError(path, err)
	}

	w.logger.Debug("[DataWriter] wrote %s (%d columns, %d rows)", path, t.NumCols(), t.NumRows())
	return nil
}

func cellValue(v any, dateStyle int) interface{} {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return x
	case time.Time:
		return excelize.Cell{StyleID: dateStyle, Value: x}
	case int64, bool, string:
		return x
	default:
		return table.FormatValue(x)
	}
}
