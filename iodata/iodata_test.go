package iodata

import (
	"context"
	stderrors "errors"
	"os"
	"testing"

	"tabio/adapters/hdf"
	"tabio/domain/core"
	"tabio/domain/table"
	"tabio/internal/errors"
	"tabio/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		path   string
		suffix string
		format Format
		ok     bool
	}{
		{"data.csv", "csv", FormatCSV, true},
		{"/tmp/data.csv.zip", "csv.zip", FormatCSV, true},
		{"data.tsv.zip", "tsv.zip", FormatCSV, true},
		{"frame.pkl.zip", "pkl.zip", FormatPickle, true},
		{"frame.pickle", "pickle", FormatPickle, true},
		{"frame.hdf5.zstd", "zstd", FormatHDF5, true},
		{"frame.hdf5", "hdf5", FormatHDF5, true},
		{"frame.sqlite", "sqlite", FormatSQLite, true},
		{"frame.sql", "sql", FormatSQLite, true},
		{"book.xlsx", "xlsx", FormatExcel, true},
		{"book.xls", "xls", FormatExcel, true},
		{"frame.feather", "feather", FormatFeather, true},
		{"frame.parquet", "parquet", FormatParquet, true},
		{"notes.zip", "", "", false},
		{"DATA.CSV", "", "", false},
		{"datacsv", "", "", false},
		{"data.xyz", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			suffix, format, ok := Lookup(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.suffix, suffix)
			assert.Equal(t, tt.format, format)
		})
	}
}

func TestSuffixesKeepDeclarationOrder(t *testing.T) {
	assert.Equal(t, []string{
		"h5", "hdf", "hdf5", "zstd", "db", "sql", "sqlite", "pkl", "pkl.zip", "pickle", "pickle.zip",
		"parquet", "feather", "csv", "csv.zip", "tsv", "tsv.zip", "xlsx", "xls",
	}, Suffixes())
}

func newTestDispatcher(kit *testkit.TestKit, opts ...Option) *Dispatcher {
	return New(kit.Config(), kit.Logger(), opts...)
}

func TestUnknownExtensionIsSkipped(t *testing.T) {
	kit := testkit.NewTestKit(t)
	d := newTestDispatcher(kit)
	path := kit.Path("data.xyz")

	got, err := d.LoadData(context.Background(), path)
	assert.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, d.SaveData(context.Background(), testkit.SampleTable(), path))
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "nothing is written")
}

func TestStrictRejectsUnknownExtension(t *testing.T) {
	kit := testkit.NewTestKit(t)
	d := newTestDispatcher(kit, WithStrict(true))

	_, err := d.LoadData(context.Background(), kit.Path("data.xyz"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeUnsupportedFormat))
	assert.True(t, stderrors.Is(err, core.ErrUnsupportedFormat))

	err = d.SaveData(context.Background(), testkit.SampleTable(), kit.Path("data.xyz"))
	assert.True(t, errors.HasCode(err, errors.CodeUnsupportedFormat))
}

func TestSaveRejectsNilTable(t *testing.T) {
	kit := testkit.NewTestKit(t)

	err := newTestDispatcher(kit).SaveData(context.Background(), nil, kit.Path("a.csv"))
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))
}

func TestDispatchUsesRegisteredCodec(t *testing.T) {
	kit := testkit.NewTestKit(t)
	memory := testkit.NewMemoryCodec("memory")
	d := newTestDispatcher(kit, WithCodec(FormatFeather, memory))

	require.NoError(t, d.SaveData(context.Background(), testkit.SampleTable(), "x.feather"))
	got, err := d.LoadData(context.Background(), "x.feather")
	require.NoError(t, err)

	assert.Equal(t, 1, memory.Saves())
	assert.True(t, table.Equal(testkit.SampleTable(), got))
}

func TestRoundTripPerFormat(t *testing.T) {
	names := []string{
		"frame.csv", "frame.csv.zip", "frame.tsv", "frame.tsv.zip",
		"frame.db", "frame.sql", "frame.sqlite",
		"frame.pkl", "frame.pkl.zip", "frame.pickle", "frame.pickle.zip",
		"frame.parquet", "frame.feather", "frame.xlsx", "frame.xls",
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			kit := testkit.NewTestKit(t)
			d := newTestDispatcher(kit)
			path := kit.Path(name)

			require.NoError(t, d.SaveData(context.Background(), testkit.SampleTable(), path))
			got, err := d.LoadData(context.Background(), path)
			require.NoError(t, err)
			require.NotNil(t, got)

			assert.Equal(t, testkit.SampleTable().Names(), got.Names())
			assert.True(t, table.Equal(testkit.SampleTable(), got), "round trip changed the table")
		})
	}
}

func TestHDFFollowsBuild(t *testing.T) {
	kit := testkit.NewTestKit(t)
	d := newTestDispatcher(kit)
	path := kit.Path("frame.h5")

	err := d.SaveData(context.Background(), testkit.SampleTable(), path)
	if !hdf.Available {
		assert.True(t, errors.HasCode(err, errors.CodeFormatUnavailable))
		return
	}
	require.NoError(t, err)
	got, err := d.LoadData(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, table.Equal(testkit.SampleTable(), got))
}

func TestConvertAcrossFormats(t *testing.T) {
	kit := testkit.NewTestKit(t)
	d := newTestDispatcher(kit)
	orders := testkit.Orders(200)

	require.NoError(t, d.SaveData(context.Background(), orders, kit.Path("orders.parquet")))
	fromParquet, err := d.LoadData(context.Background(), kit.Path("orders.parquet"))
	require.NoError(t, err)

	require.NoError(t, d.SaveData(context.Background(), fromParquet, kit.Path("orders.db")))
	fromSQLite, err := d.LoadData(context.Background(), kit.Path("orders.db"))
	require.NoError(t, err)

	assert.Equal(t, orders.Fingerprint(), fromSQLite.Fingerprint())
}
