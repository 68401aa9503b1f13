package excel

import (
	"errors"

	"github.com/xuri/excelize/v2"
)

// oleMagic opens every BIFF (legacy .xls) workbook
var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// cellHint is the native kind of the first non-empty data cell in a column
type cellHint int

const (
	hintNone cellHint = iota
	hintText
	hintBool
	hintDate
)

// dateFormats are the built-in number formats that render a date or time
var dateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true, 22: true,
	45: true, 46: true, 47: true,
}

// dateTimeFormat is applied to timestamp cells on save
const dateTimeFormat = 22

// rowVisitor receives the raw cells of each sheet row in order
type rowVisitor func(cells []string) error

var rawValues = excelize.Options{RawCellValue: true}

// errStaleDimension marks a sheet whose rows are wider than its declared dimension
var errStaleDimension = errors.New("sheet dimension is narrower than its rows")
