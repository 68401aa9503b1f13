package sqlite

import (
	"context"
	"os"
	"testing"

	"tabio/domain/table"
	"tabio/internal/config"
	"tabio/internal/errors"
	"tabio/internal/testkit"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(kit *testkit.TestKit) *Repository {
	return NewRepository(kit.Config().SQLite, kit.Logger())
}

func TestRoundTrip(t *testing.T) {
	kit := testkit.NewTestKit(t)
	repo := newTestRepository(kit)
	path := kit.Path("frame.db")

	require.NoError(t, repo.Save(context.Background(), testkit.TimedTable(), path))
	got, err := repo.Load(context.Background(), path)
	require.NoError(t, err)

	assert.True(t, table.Equal(testkit.TimedTable(), got), "round trip changed the table")
}

func TestSaveTwiceKeepsOneCopy(t *testing.T) {
	kit := testkit.NewTestKit(t)
	repo := newTestRepository(kit)
	path := kit.Path("frame.sqlite")

	require.NoError(t, repo.Save(context.Background(), testkit.SampleTable(), path))
	require.NoError(t, repo.Save(context.Background(), testkit.SampleTable(), path))

	db, err := sqlx.Open(driverName, path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM "db"`))
	assert.Equal(t, 3, count)
}

func TestConfiguredTableName(t *testing.T) {
	kit := testkit.NewTestKit(t)
	repo := NewRepository(config.SQLiteConfig{Table: "orders"}, kit.Logger())
	path := kit.Path("orders.sql")

	require.NoError(t, repo.Save(context.Background(), testkit.Orders(25), path))
	got, err := repo.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 25, got.NumRows())
	assert.Equal(t, testkit.OrderColumns, got.Names())

	_, err = newTestRepository(kit).Load(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeDecode))
}

func TestAllMissingColumnUsesDeclaredType(t *testing.T) {
	kit := testkit.NewTestKit(t)
	repo := newTestRepository(kit)
	path := kit.Path("sparse.db")

	src := table.MustNew(
		table.NewColumn("id", table.KindInt, []any{int64(1), int64(2)}),
		table.NewColumn("note", table.KindString, []any{nil, nil}),
	)
	require.NoError(t, repo.Save(context.Background(), src, path))

	got, err := repo.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, table.KindString, got.Column(1).Kind)
	assert.Equal(t, []any{nil, nil}, got.Column(1).Values)
}

func TestEmptyTableKeepsColumns(t *testing.T) {
	kit := testkit.NewTestKit(t)
	repo := newTestRepository(kit)
	path := kit.Path("empty.db")

	src := table.MustNew(table.NewColumn("id", table.KindInt, []any{}))
	require.NoError(t, repo.Save(context.Background(), src, path))

	got, err := repo.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, got.Names())
	assert.Equal(t, 0, got.NumRows())
	assert.Equal(t, table.KindInt, got.Column(0).Kind)
}

func TestLoadMissingFile(t *testing.T) {
	kit := testkit.NewTestKit(t)

	_, err := newTestRepository(kit).Load(context.Background(), kit.Path("absent.db"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeIO))

	_, statErr := os.Stat(kit.Path("absent.db"))
	assert.True(t, os.IsNotExist(statErr), "loading must not create the file")
}
