package excel

import (
	"strings"

	"tabio/internal/config"
)

// Legacy .xls output keeps the old sheet size limits even though the
// workbook content itself is written as OOXML.
const (
	extXLSX = ".xlsx"
	extXLS  = ".xls"
)

// chunkPolicy is the row count at which a save is split, and the part size
type chunkPolicy struct {
	Threshold int
	Rows      int
}

// policyFor picks the chunking limits for the output extension
func policyFor(cfg config.ExcelConfig, path string) chunkPolicy {
	if strings.HasSuffix(path, extXLS) {
		return chunkPolicy{Threshold: cfg.XLSChunkThreshold, Rows: cfg.XLSChunkRows}
	}
	return chunkPolicy{Threshold: cfg.XLSXChunkThreshold, Rows: cfg.XLSXChunkRows}
}

// Parts returns how many files n rows are written to; one means no split
func (p chunkPolicy) Parts(n int) int {
	if n < p.Threshold || p.Rows <= 0 {
		return 1
	}
	return (n + p.Rows - 1) / p.Rows
}

// extension returns the Excel extension that path ends with
func extension(path string) string {
	if strings.HasSuffix(path, extXLS) {
		return extXLS
	}
	if strings.HasSuffix(path, extXLSX) {
		return extXLSX
	}
	return ""
}
