package iodata

import "strings"

// Format names the codec family a suffix dispatches to
type Format string

const (
	FormatHDF5    Format = "hdf5"
	FormatSQLite  Format = "sqlite"
	FormatPickle  Format = "pickle"
	FormatParquet Format = "parquet"
	FormatFeather Format = "feather"
	FormatCSV     Format = "csv"
	FormatExcel   Format = "excel"
)

// entry is one recognised filename suffix, without the leading dot
type entry struct {
	Suffix string
	Format Format
}

// registry lists every recognised suffix in declaration order
var registry = []entry{
	{"h5", FormatHDF5},
	{"hdf", FormatHDF5},
	{"hdf5", FormatHDF5},
	{"zstd", FormatHDF5},
	{"db", FormatSQLite},
	{"sql", FormatSQLite},
	{"sqlite", FormatSQLite},
	{"pkl", FormatPickle},
	{"pkl.zip", FormatPickle},
	{"pickle", FormatPickle},
	{"pickle.zip", FormatPickle},
	{"parquet", FormatParquet},
	{"feather", FormatFeather},
	{"csv", FormatCSV},
	{"csv.zip", FormatCSV},
	{"tsv", FormatCSV},
	{"tsv.zip", FormatCSV},
	{"xlsx", FormatExcel},
	{"xls", FormatExcel},
}

// Suffixes returns the recognised suffixes in declaration order
func Suffixes() []string {
	out := make([]string, len(registry))
	for i, e := range registry {
		out[i] = e.Suffix
	}
	return out
}

// Lookup finds the longest recognised suffix of path. A suffix only matches
// right after a dot, so "report.csv.zip" resolves to "csv.zip" and
// "notes.zip" to nothing. Matching is case-sensitive.
func Lookup(path string) (suffix string, format Format, ok bool) {
	for _, e := range registry {
		if len(e.Suffix) <= len(suffix) {
			continue
		}
		if strings.HasSuffix(path, "."+e.Suffix) {
			suffix, format, ok = e.Suffix, e.Format, true
		}
	}
	return suffix, format, ok
}
