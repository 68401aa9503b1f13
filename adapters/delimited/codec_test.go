package delimited

import (
	"context"
	"os"
	"strings"
	"testing"

	"tabio/domain/table"
	"tabio/internal/errors"
	"tabio/internal/testkit"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(kit *testkit.TestKit) *Codec {
	return NewCodec(kit.Coercer(), kit.Locator(), kit.Logger())
}

func TestRoundTrip(t *testing.T) {
	for _, name := range []string{"out.csv", "out.tsv", "out.csv.zip", "out.tsv.zip"} {
		t.Run(name, func(t *testing.T) {
			kit := testkit.NewTestKit(t)
			codec := newTestCodec(kit)
			path := kit.Path(name)

			require.NoError(t, codec.Save(context.Background(), testkit.SampleTable(), path))
			got, err := codec.Load(context.Background(), path)
			require.NoError(t, err)

			assert.True(t, table.Equal(testkit.SampleTable(), got), "round trip changed the table")
		})
	}
}

func TestSaveWritesPlainText(t *testing.T) {
	kit := testkit.NewTestKit(t)
	path := kit.Path("plain.tsv")

	require.NoError(t, newTestCodec(kit).Save(context.Background(), testkit.SampleTable(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "id\tscore\tname\tactive", lines[0])
	assert.Equal(t, "1\t1.5\tada\tTrue", lines[1])
	assert.Equal(t, "2\t\tgrace\tFalse", lines[2])
	assert.Equal(t, "3\t3.0\t\tTrue", lines[3])
}

func TestZipHoldsSingleNamedMember(t *testing.T) {
	kit := testkit.NewTestKit(t)
	path := kit.Path("orders.csv.zip")

	require.NoError(t, newTestCodec(kit).Save(context.Background(), testkit.Orders(20), path))

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	require.Len(t, zr.File, 1)
	assert.Equal(t, "orders.csv", zr.File[0].Name)
}

func TestLoadLocatesOffsetHeader(t *testing.T) {
	kit := testkit.NewTestKit(t)
	path := kit.Path("report.csv")
	content := "Sales report,,\n,,\nregion,units,price\nnorth,10,1.5\nsouth,12,2\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := newTestCodec(kit).Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []string{"region", "units", "price"}, got.Names())
	require.Equal(t, 2, got.NumRows())
	assert.Equal(t, []any{10.0, 12.0}, got.Column(1).Values)
	assert.Equal(t, []any{1.5, 2.0}, got.Column(2).Values)
}

func TestLoadStripsByteOrderMark(t *testing.T) {
	kit := testkit.NewTestKit(t)
	path := kit.Path("bom.csv")
	require.NoError(t, os.WriteFile(path, []byte("\ufeffa,b\n1,x\n"), 0o644))

	got, err := newTestCodec(kit).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got.Names())
}

func TestLoadRejectsLongRows(t *testing.T) {
	kit := testkit.NewTestKit(t)
	path := kit.Path("ragged.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2,3\n"), 0o644))

	_, err := newTestCodec(kit).Load(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeDecode))
}

func TestLoadPadsShortRows(t *testing.T) {
	kit := testkit.NewTestKit(t)
	path := kit.Path("short.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1\n2,y\n"), 0o644))

	got, err := newTestCodec(kit).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []any{nil, "y"}, got.Column(1).Values)
}

func TestLoadMissingFile(t *testing.T) {
	kit := testkit.NewTestKit(t)

	_, err := newTestCodec(kit).Load(context.Background(), kit.Path("absent.csv"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeIO))
}

func TestDelimiter(t *testing.T) {
	assert.Equal(t, '\t', Delimiter("a.tsv"))
	assert.Equal(t, '\t', Delimiter("a.tsv.zip"))
	assert.Equal(t, ',', Delimiter("a.csv.zip"))
	assert.Equal(t, "a.csv", MemberName("/tmp/x/a.csv.zip"))
}
