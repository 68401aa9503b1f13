package pickle

import (
	"bytes"
	"context"
	"os"
	"testing"

	"tabio/domain/table"
	"tabio/internal/errors"
	"tabio/internal/testkit"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	for _, name := range []string{"frame.pkl", "frame.pickle", "frame.pkl.zip", "frame.pickle.zip"} {
		t.Run(name, func(t *testing.T) {
			kit := testkit.NewTestKit(t)
			codec := NewCodec(kit.Logger())
			path := kit.Path(name)

			require.NoError(t, codec.Save(context.Background(), testkit.TimedTable(), path))
			got, err := codec.Load(context.Background(), path)
			require.NoError(t, err)

			assert.True(t, table.Equal(testkit.TimedTable(), got), "round trip changed the table")
		})
	}
}

func TestZipMemberName(t *testing.T) {
	kit := testkit.NewTestKit(t)
	path := kit.Path("orders.pkl.zip")

	require.NoError(t, NewCodec(kit.Logger()).Save(context.Background(), testkit.Orders(10), path))

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	require.Len(t, zr.File, 1)
	assert.Equal(t, "orders.pkl", zr.File[0].Name)
}

func TestDecodeRejectsOtherObjects(t *testing.T) {
	// protocol 2 pickle of the list [1]
	_, err := Decode(bytes.NewReader([]byte("\x80\x02]q\x00K\x01a.")))
	require.Error(t, err)
}

func TestLoadGarbage(t *testing.T) {
	kit := testkit.NewTestKit(t)
	path := kit.Path("junk.pkl")
	require.NoError(t, os.WriteFile(path, []byte("not a pickle"), 0o644))

	_, err := NewCodec(kit.Logger()).Load(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeDecode))
}
