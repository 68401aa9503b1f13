package hdf

import (
	"bytes"
	"os"
	"testing"

	"tabio/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZstdFramingRoundTrip(t *testing.T) {
	kit := testkit.NewTestKit(t)
	src := kit.Path("plain.bin")
	framed := kit.Path("plain.zstd")
	payload := bytes.Repeat([]byte("column data "), 4096)
	require.NoError(t, os.WriteFile(src, payload, 0o644))

	require.NoError(t, compressFile(src, framed))
	info, err := os.Stat(framed)
	require.NoError(t, err)
	assert.Less(t, info.Size(), int64(len(payload)))

	var out bytes.Buffer
	require.NoError(t, decompressTo(framed, &out))
	assert.Equal(t, payload, out.Bytes())
}

func TestSchemaRoundTrip(t *testing.T) {
	s := schemaOf(testkit.TimedTable())
	data, err := s.encode()
	require.NoError(t, err)

	got, err := decodeSchema(data)
	require.NoError(t, err)
	assert.Equal(t, s, got)
	assert.Equal(t, 3, got.Rows)
}

func TestDecodeSchemaRejectsMismatch(t *testing.T) {
	_, err := decodeSchema([]byte(`{"columns":["a","b"],"kinds":["int"],"rows":0}`))
	assert.Error(t, err)
}
