// Package iodata loads and saves tables, picking the file format from the
// path's extension.
package iodata

import (
	"context"
	"sync"
	"time"

	"tabio/adapters/columnar"
	"tabio/adapters/datareadiness/coercer"
	"tabio/adapters/delimited"
	"tabio/adapters/excel"
	"tabio/adapters/hdf"
	"tabio/adapters/pickle"
	"tabio/adapters/sqlite"
	"tabio/domain/core"
	"tabio/domain/table"
	"tabio/internal"
	"tabio/internal/config"
	"tabio/internal/errors"
	"tabio/internal/header"
	"tabio/internal/scratch"
	"tabio/ports"
)

// Dispatcher routes LoadData and SaveData to the codec for a path
type Dispatcher struct {
	codecs map[Format]ports.CodecPort
	strict bool
	logger *internal.Logger
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithStrict makes unrecognised extensions fail with ErrUnsupportedFormat
// instead of being skipped
func WithStrict(strict bool) Option {
	return func(d *Dispatcher) { d.strict = strict }
}

// WithCodec replaces the codec used for a format
func WithCodec(format Format, codec ports.CodecPort) Option {
	return func(d *Dispatcher) { d.codecs[format] = codec }
}

// New wires every codec from cfg. A nil cfg uses config.Default().
func New(cfg *config.Config, logger *internal.Logger, opts ...Option) *Dispatcher {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = internal.NewNopLogger()
	}

	typeCoercer := coercer.NewTypeCoercer(coercer.DefaultCoercionConfig())
	locator := header.NewLocator(typeCoercer, logger)
	storage := scratch.NewStorage(cfg.Paths.TempDir)
	text := delimited.NewCodec(typeCoercer, locator, logger)

	d := &Dispatcher{
		codecs: map[Format]ports.CodecPort{
			FormatHDF5:    hdf.NewCodec(cfg.HDF5, storage, logger),
			FormatSQLite:  sqlite.NewRepository(cfg.SQLite, logger),
			FormatPickle:  pickle.NewCodec(logger),
			FormatParquet: columnar.NewParquetCodec(logger),
			FormatFeather: columnar.NewFeatherCodec(logger),
			FormatCSV:     text,
			FormatExcel:   excel.NewCodec(cfg.Excel, typeCoercer, locator, text, storage, logger),
		},
		strict: cfg.Strict,
		logger: logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// LoadData reads the table stored at path. For an unrecognised extension it
// returns a nil table and a nil error unless the dispatcher is strict.
func (d *Dispatcher) LoadData(ctx context.Context, path string) (*table.Table, error) {
	codec, err := d.resolve(path)
	if codec == nil {
		return nil, err
	}

	startTime := time.Now()
	t, err := codec.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	d.logger.Info("[IOData] loaded %s as %s in %.2fms (%d columns, %d rows)",
		path, codec.Name(), float64(time.Since(startTime).Nanoseconds())/1e6, t.NumCols(), t.NumRows())
	return t, nil
}

// SaveData writes t to path. For an unrecognised extension nothing is
// written and nil is returned unless the dispatcher is strict.
func (d *Dispatcher) SaveData(ctx context.Context, t *table.Table, path string) error {
	if t == nil {
		return errors.InvalidInput("cannot save a nil table")
	}
	codec, err := d.resolve(path)
	if codec == nil {
		return err
	}

	startTime := time.Now()
	if err := codec.Save(ctx, t, path); err != nil {
		return err
	}
	d.logger.Info("[IOData] saved %s as %s in %.2fms (%d columns, %d rows)",
		path, codec.Name(), float64(time.Since(startTime).Nanoseconds())/1e6, t.NumCols(), t.NumRows())
	return nil
}

func (d *Dispatcher) resolve(path string) (ports.CodecPort, error) {
	_, format, ok := Lookup(path)
	if !ok {
		if d.strict {
			return nil, errors.UnsupportedFormat(core.NewUnsupportedFormatError(path))
		}
		d.logger.Warn("[IOData] no format registered for %s, skipping", path)
		return nil, nil
	}
	return d.codecs[format], nil
}

var (
	defaultOnce       sync.Once
	defaultDispatcher *Dispatcher
)

// Default returns the dispatcher built from the environment configuration.
// An invalid environment falls back to the built-in defaults.
func Default() *Dispatcher {
	defaultOnce.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			internal.DefaultLogger.Warn("[IOData] %v, using defaults", err)
			cfg = config.Default()
		}
		defaultDispatcher = New(cfg, internal.DefaultLogger)
	})
	return defaultDispatcher
}

// LoadData reads path with the default dispatcher
func LoadData(ctx context.Context, path string) (*table.Table, error) {
	return Default().LoadData(ctx, path)
}

// SaveData writes t to path with the default dispatcher
func SaveData(ctx context.Context, t *table.Table, path string) error {
	return Default().SaveData(ctx, t, path)
}
