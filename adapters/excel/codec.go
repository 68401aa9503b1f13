// Package excel reads and writes single-sheet workbooks in the .xlsx and
// legacy .xls formats.
package excel

import (
	"context"

	"tabio/adapters/datareadiness/coercer"
	"tabio/adapters/delimited"
	"tabio/domain/table"
	"tabio/internal"
	"tabio/internal/config"
	"tabio/internal/header"
	"tabio/internal/scratch"
)

// Codec pairs the workbook reader and writer behind the codec port
type Codec struct {
	reader *DataReader
	writer *DataWriter
}

// NewCodec wires a reader and writer sharing one configuration
func NewCodec(cfg config.ExcelConfig, c *coercer.TypeCoercer, locator *header.Locator,
	text *delimited.Codec, storage *scratch.Storage, logger *internal.Logger) *Codec {
	return &Codec{
		reader: NewDataReader(cfg, c, locator, text, storage, logger),
		writer: NewDataWriter(cfg, logger),
	}
}

// Name identifies the format
func (c *Codec) Name() string { return "excel" }

// Load reads the first sheet of the workbook at path
func (c *Codec) Load(ctx context.Context, path string) (*table.Table, error) {
	return c.reader.ReadData(ctx, path)
}

// Save writes t, chunked into part files when it is large
func (c *Codec) Save(ctx context.Context, t *table.Table, path string) error {
	_, err := c.writer.WriteData(ctx, t, path)
	return err
}
