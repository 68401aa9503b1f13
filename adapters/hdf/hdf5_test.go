//go:build hdf5

package hdf

import (
	"context"
	"os"
	"testing"

	"tabio/domain/table"
	"tabio/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	for _, name := range []string{"frame.h5", "frame.hdf", "frame.hdf5", "frame.zstd"} {
		t.Run(name, func(t *testing.T) {
			kit := testkit.NewTestKit(t)
			codec := NewCodec(kit.Config().HDF5, kit.Storage(), kit.Logger())
			path := kit.Path(name)

			require.NoError(t, codec.Save(context.Background(), testkit.TimedTable(), path))
			got, err := codec.Load(context.Background(), path)
			require.NoError(t, err)

			assert.True(t, table.Equal(testkit.TimedTable(), got), "round trip changed the table")
		})
	}
}

func TestZstdLeavesNoScratchFiles(t *testing.T) {
	kit := testkit.NewTestKit(t)
	codec := NewCodec(kit.Config().HDF5, kit.Storage(), kit.Logger())
	path := kit.Path("orders.zstd")

	require.NoError(t, codec.Save(context.Background(), testkit.Orders(300), path))
	_, err := codec.Load(context.Background(), path)
	require.NoError(t, err)

	entries, err := os.ReadDir(kit.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestEmptyColumns(t *testing.T) {
	kit := testkit.NewTestKit(t)
	codec := NewCodec(kit.Config().HDF5, kit.Storage(), kit.Logger())
	path := kit.Path("empty.h5")
	src := table.MustNew(table.NewColumn("name", table.KindString, []any{}))

	require.NoError(t, codec.Save(context.Background(), src, path))
	got, err := codec.Load(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, table.Equal(src, got))
}
