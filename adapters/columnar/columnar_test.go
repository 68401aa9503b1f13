package columnar

import (
	"context"
	"testing"
	"time"

	"tabio/domain/table"
	"tabio/internal/errors"
	"tabio/internal/testkit"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type codec interface {
	Name() string
	Load(ctx context.Context, path string) (*table.Table, error)
	Save(ctx context.Context, t *table.Table, path string) error
}

func codecs(kit *testkit.TestKit) map[string]codec {
	return map[string]codec{
		"frame.parquet": NewParquetCodec(kit.Logger()),
		"frame.feather": NewFeatherCodec(kit.Logger()),
	}
}

func TestRoundTrip(t *testing.T) {
	kit := testkit.NewTestKit(t)
	for name, c := range codecs(kit) {
		t.Run(c.Name(), func(t *testing.T) {
			path := kit.Path(name)

			require.NoError(t, c.Save(context.Background(), testkit.TimedTable(), path))
			got, err := c.Load(context.Background(), path)
			require.NoError(t, err)

			assert.True(t, table.Equal(testkit.TimedTable(), got), "round trip changed the table")
		})
	}
}

func TestRoundTripOrders(t *testing.T) {
	kit := testkit.NewTestKit(t)
	orders := testkit.Orders(500)
	for name, c := range codecs(kit) {
		t.Run(c.Name(), func(t *testing.T) {
			path := kit.Path("orders_" + name)

			require.NoError(t, c.Save(context.Background(), orders, path))
			got, err := c.Load(context.Background(), path)
			require.NoError(t, err)

			assert.Equal(t, orders.Fingerprint(), got.Fingerprint())
		})
	}
}

func TestEmptyTableKeepsSchema(t *testing.T) {
	kit := testkit.NewTestKit(t)
	src := table.MustNew(
		table.NewColumn("id", table.KindInt, []any{}),
		table.NewColumn("at", table.KindTime, []any{}),
	)
	for name, c := range codecs(kit) {
		t.Run(c.Name(), func(t *testing.T) {
			path := kit.Path("empty_" + name)

			require.NoError(t, c.Save(context.Background(), src, path))
			got, err := c.Load(context.Background(), path)
			require.NoError(t, err)

			assert.Equal(t, 0, got.NumRows())
			assert.Equal(t, []string{"id", "at"}, got.Names())
			assert.Equal(t, table.KindTime, got.Column(1).Kind)
		})
	}
}

func TestObjectColumnsAreStoredAsText(t *testing.T) {
	src := table.MustNew(table.NewColumn("mixed", table.KindObject, []any{int64(1), "a", nil}))

	rec, err := ToRecord(memory.NewGoAllocator(), src)
	require.NoError(t, err)
	defer rec.Release()

	assert.Equal(t, arrow.BinaryTypes.String, rec.Schema().Field(0).Type)
	assert.Equal(t, int64(1), int64(rec.Column(0).NullN()))
}

func TestTimestampsKeepNanoseconds(t *testing.T) {
	kit := testkit.NewTestKit(t)
	at := time.Date(2024, 2, 29, 23, 59, 59, 123456789, time.UTC)
	src := table.MustNew(table.NewColumn("at", table.KindTime, []any{at}))

	c := NewParquetCodec(kit.Logger())
	path := kit.Path("nanos.parquet")
	require.NoError(t, c.Save(context.Background(), src, path))

	got, err := c.Load(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, at.Equal(got.Column(0).Values[0].(time.Time)))
}

func TestLoadMissingFile(t *testing.T) {
	kit := testkit.NewTestKit(t)
	for _, c := range codecs(kit) {
		_, err := c.Load(context.Background(), kit.Path("absent"))
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.CodeIO), c.Name())
	}
}
