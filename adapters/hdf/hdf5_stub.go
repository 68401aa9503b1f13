//go:build !hdf5

package hdf

import (
	"fmt"

	"tabio/domain/core"
	"tabio/domain/table"
	"tabio/internal/errors"
)

// Available reports whether this build can read and write HDF5 files
const Available = false

var errNoLibrary = fmt.Errorf("%w: rebuild with -tags hdf5", core.ErrFormatUnavailable)

func writeFile(path string, t *table.Table, level int) error {
	return errors.FormatUnavailable("hdf5", errNoLibrary)
}

func readFile(path string) (*table.Table, error) {
	return nil, errors.FormatUnavailable("hdf5", errNoLibrary)
}
