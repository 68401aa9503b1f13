package excel

import (
	"bytes"
	"context"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"tabio/adapters/datareadiness/coercer"
	"tabio/adapters/delimited"
	"tabio/domain/table"
	"tabio/internal"
	"tabio/internal/config"
	"tabio/internal/errors"
	"tabio/internal/header"
	"tabio/internal/scratch"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// DataReader reads the first sheet of an .xlsx or .xls workbook
type DataReader struct {
	config  config.ExcelConfig
	coercer *coercer.TypeCoercer
	locator *header.Locator
	text    *delimited.Codec
	storage *scratch.Storage
	logger  *internal.Logger
}

// NewDataReader creates a reader. Workbooks at or above the configured size
// are streamed to a scratch CSV file and read back through text.
func NewDataReader(cfg config.ExcelConfig, c *coercer.TypeCoercer, locator *header.Locator,
	text *delimited.Codec, storage *scratch.Storage, logger *internal.Logger) *DataReader {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &DataReader{config: cfg, coercer: c, locator: locator, text: text, storage: storage, logger: logger}
}

// ReadData loads the first sheet; the first row is the header
func (r *DataReader) ReadData(ctx context.Context, path string) (*table.Table, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.IOError(path, err)
	}
	legacy, err := isLegacyWorkbook(path)
	if err != nil {
		return nil, errors.IOError(path, err)
	}

	if info.Size() >= r.config.LargeFileBytes {
		r.logger.Info("[DataReader] %s is %d bytes, reading first sheet through CSV", path, info.Size())
		return r.readViaText(ctx, path, legacy)
	}

	startTime := time.Now()
	var t *table.Table
	if legacy {
		t, err = r.readLegacy(path)
	} else {
		t, err = r.readWorkbook(path)
	}
	if err != nil {
		return nil, errors.DecodeError("excel", path, err)
	}
	t = r.locator.Locate(t)

	r.logger.Debug("[DataReader] %s read in %.2fms (%d columns, %d rows)",
		path, float64(time.Since(startTime).Nanoseconds())/1e6, t.NumCols(), t.NumRows())
	return t, nil
}

// isLegacyWorkbook sniffs the compound document signature used by BIFF files
func isLegacyWorkbook(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, len(oleMagic))
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, err
	}
	return n == len(oleMagic) && bytes.Equal(head, oleMagic), nil
}

// readWorkbook reads an OOXML workbook, using native cell types of the first
// non-empty data cell in each column to restore text, booleans and timestamps
func (r *DataReader) readWorkbook(path string) (*table.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet, rawValues)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return table.MustNew(), nil
	}

	names, cells := transpose(rows)
	cols := make([]*table.Column, len(names))
	for i, name := range names {
		switch r.probe(f, sheet, i, cells[i]) {
		case hintText:
			cols[i] = r.textColumn(name, cells[i])
		case hintBool:
			cols[i] = r.boolColumn(name, cells[i])
		case hintDate:
			cols[i] = r.dateColumn(name, cells[i])
		default:
			cols[i] = r.coercer.ColumnFromStrings(name, cells[i])
		}
	}
	return table.New(cols...)
}

// readLegacy reads a BIFF workbook; its cells carry no usable type hints
func (r *DataReader) readLegacy(path string) (*table.Table, error) {
	var rows [][]string
	err := visitLegacyRows(path, func(cells []string) error {
		rows = append(rows, append([]string(nil), cells...))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return table.MustNew(), nil
	}

	names, cells := transpose(rows)
	cols := make([]*table.Column, len(names))
	for i, name := range names {
		cols[i] = r.coercer.ColumnFromStrings(name, cells[i])
	}
	return table.New(cols...)
}

// transpose turns sheet rows into a normalised header plus one cell slice
// per column. Short rows are padded; the width is the widest row.
func transpose(rows [][]string) ([]string, [][]string) {
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}

	raw := make([]string, width)
	copy(raw, rows[0])
	names := header.Normalize(raw)

	cells := make([][]string, width)
	for i := range cells {
		cells[i] = make([]string, len(rows)-1)
	}
	for r, row := range rows[1:] {
		for i, cell := range row {
			cells[i][r] = cell
		}
	}
	return names, cells
}

// probe inspects the first non-empty data cell of column col
func (r *DataReader) probe(f *excelize.File, sheet string, col int, cells []string) cellHint {
	for row, cell := range cells {
		if cell == "" {
			continue
		}
		ref, err := excelize.CoordinatesToCellName(col+1, row+2)
		if err != nil {
			return hintNone
		}
		cellType, err := f.GetCellType(sheet, ref)
		if err != nil {
			return hintNone
		}
		switch cellType {
		case excelize.CellTypeSharedString, excelize.CellTypeInlineString:
			return hintText
		case excelize.CellTypeBool:
			return hintBool
		case excelize.CellTypeDate:
			return hintDate
		case excelize.CellTypeNumber, excelize.CellTypeUnset:
			if isDateStyled(f, sheet, ref) {
				return hintDate
			}
		}
		return hintNone
	}
	return hintNone
}

func isDateStyled(f *excelize.File, sheet, ref string) bool {
	idx, err := f.GetCellStyle(sheet, ref)
	if err != nil || idx == 0 {
		return false
	}
	style, err := f.GetStyle(idx)
	if err != nil || style == nil {
		return false
	}
	if dateFormats[style.NumFmt] {
		return true
	}
	if style.CustomNumFmt != nil {
		layout := strings.ToLower(*style.CustomNumFmt)
		return strings.Contains(layout, "yy") || strings.Contains(layout, "dd") || strings.Contains(layout, "hh")
	}
	return false
}

// textColumn keeps string cells verbatim so codes like "02134" stay text
func (r *DataReader) textColumn(name string, cells []string) *table.Column {
	values := make([]any, len(cells))
	for i, cell := range cells {
		if !r.coercer.IsMissing(cell) {
			values[i] = cell
		}
	}
	return table.NewColumn(name, table.KindString, values)
}

func (r *DataReader) boolColumn(name string, cells []string) *table.Column {
	values := make([]any, len(cells))
	for i, cell := range cells {
		switch strings.ToUpper(cell) {
		case "1", "TRUE":
			values[i] = true
		case "0", "FALSE":
			values[i] = false
		case "":
		default:
			return r.coercer.ColumnFromStrings(name, cells)
		}
	}
	return table.NewColumn(name, table.KindBool, values)
}

func (r *DataReader) dateColumn(name string, cells []string) *table.Column {
	values := make([]any, len(cells))
	for i, cell := range cells {
		if cell == "" {
			continue
		}
		serial, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return r.coercer.ColumnFromStrings(name, cells)
		}
		ts, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return r.coercer.ColumnFromStrings(name, cells)
		}
		values[i] = ts.Round(time.Millisecond)
	}
	return table.NewColumn(name, table.KindTime, values)
}

// readViaText streams the first sheet into a scratch CSV file and loads it
// with the delimited codec. The scratch file is removed on every path.
func (r *DataReader) readViaText(ctx context.Context, path string, legacy bool) (*table.Table, error) {
	tmp, err := r.storage.Create("excel", ".csv")
	if err != nil {
		return nil, err
	}
	defer tmp.Release()

	if legacy {
		err = spool(tmp, func(visit rowVisitor) error { return visitLegacyRows(path, visit) })
	} else {
		err = spool(tmp, func(visit rowVisitor) error { return visitWorkbookRows(path, true, visit) })
		if stderrors.Is(err, errStaleDimension) {
			r.logger.Warn("[DataReader] %s: %v, rescanning rows for the width", path, err)
			err = spool(tmp, func(visit rowVisitor) error { return visitWorkbookRows(path, false, visit) })
		}
	}
	if err != nil {
		return nil, errors.DecodeError("excel", path, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, errors.IOError(tmp.Path(), err)
	}

	return r.text.Load(ctx, tmp.Path())
}

// spool replaces the contents of tmp with the CSV rows produced by source
func spool(tmp *scratch.File, source func(rowVisitor) error) error {
	if err := tmp.Truncate(0); err != nil {
		return err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return err
	}

	w := csv.NewWriter(tmp)
	if err := source(func(cells []string) error { return w.Write(cells) }); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// visitWorkbookRows streams every row of the first sheet, padded to the sheet
// width. With trustDimension the width comes from the declared dimension and
// a wider row fails with errStaleDimension; otherwise the rows are prescanned.
func visitWorkbookRows(path string, trustDimension bool, visit rowVisitor) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	width, err := sheetWidth(f, sheet, trustDimension)
	if err != nil {
		return err
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", sheet, err)
	}
	defer rows.Close()

	padded := make([]string, width)
	for n := 1; rows.Next(); n++ {
		cells, err := rows.Columns(rawValues)
		if err != nil {
			return err
		}
		if len(cells) > width {
			return fmt.Errorf("%w: row %d has %d cells, dimension allows %d", errStaleDimension, n, len(cells), width)
		}
		clear(padded)
		copy(padded, cells)
		if err := visit(padded); err != nil {
			return err
		}
	}
	return rows.Error()
}

// sheetWidth reads the declared dimension when trusted, scanning the rows
// when it is absent or not trusted
func sheetWidth(f *excelize.File, sheet string, trustDimension bool) (int, error) {
	if trustDimension {
		if dim, err := f.GetSheetDimension(sheet); err == nil && dim != "" {
			bounds := strings.Split(dim, ":")
			if col, _, err := excelize.CellNameToCoordinates(bounds[len(bounds)-1]); err == nil {
				return col, nil
			}
		}
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", sheet, err)
	}
	defer rows.Close()

	width := 0
	for rows.Next() {
		cells, err := rows.Columns(rawValues)
		if err != nil {
			return 0, err
		}
		width = max(width, len(cells))
	}
	return width, rows.Error()
}

// visitLegacyRows walks the first sheet of a BIFF workbook. The BIFF
// library reports malformed records by panicking, which surfaces as an
// internal error.
func visitLegacyRows(path string, visit rowVisitor) (err error) {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	defer func() {
		if p := recover(); p != nil {
			err = errors.InternalError(fmt.Sprintf("xls reader failed on %s: %v", path, p))
		}
	}()

	wb, err := xls.OpenReader(f, "utf-8")
	if err != nil {
		return fmt.Errorf("failed to open xls workbook: %w", err)
	}
	if wb == nil {
		return fmt.Errorf("no workbook stream in %s", path)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil
	}

	width := 0
	for i := 0; i <= int(sheet.MaxRow); i++ {
		if row := legacyRow(sheet, i); row != nil {
			width = max(width, row.LastCol())
		}
	}

	cells := make([]string, width)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		clear(cells)
		if row := legacyRow(sheet, i); row != nil {
			for c := row.FirstCol(); c < row.LastCol() && c < width; c++ {
				cells[c] = row.Col(c)
			}
		}
		if err := visit(cells); err != nil {
			return err
		}
	}
	return nil
}

// legacyRow returns row i, or nil when the sheet holds no record for it.
// WorkSheet.Row dereferences the missing row and panics.
func legacyRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}
