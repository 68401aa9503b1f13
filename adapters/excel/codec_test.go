package excel

import (
	"context"
	"os"
	"testing"

	"tabio/adapters/delimited"
	"tabio/domain/table"
	"tabio/internal/config"
	"tabio/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newTestCodec(kit *testkit.TestKit) *Codec {
	text := delimited.NewCodec(kit.Coercer(), kit.Locator(), kit.Logger())
	return NewCodec(kit.Config().Excel, kit.Coercer(), kit.Locator(), text, kit.Storage(), kit.Logger())
}

func TestRoundTripRestoresKinds(t *testing.T) {
	for _, name := range []string{"timed.xlsx", "timed.xls"} {
		t.Run(name, func(t *testing.T) {
			kit := testkit.NewTestKit(t)
			codec := newTestCodec(kit)
			path := kit.Path(name)

			require.NoError(t, codec.Save(context.Background(), testkit.TimedTable(), path))
			got, err := codec.Load(context.Background(), path)
			require.NoError(t, err)

			want := testkit.TimedTable()
			assert.Equal(t, want.Names(), got.Names())
			for i := range want.Columns() {
				assert.Equal(t, want.Column(i).Kind, got.Column(i).Kind, want.Column(i).Name)
			}
			assert.True(t, table.Equal(want, got), "round trip changed the table")
		})
	}
}

func TestLegacyExtensionHoldsWorkbookContent(t *testing.T) {
	kit := testkit.NewTestKit(t)
	path := kit.Path("legacy.xls")

	require.NoError(t, newTestCodec(kit).Save(context.Background(), testkit.SampleTable(), path))

	legacy, err := isLegacyWorkbook(path)
	require.NoError(t, err)
	assert.False(t, legacy)
	_, err = os.Stat(kit.Path("legacy_part1.xls"))
	assert.True(t, os.IsNotExist(err))
}

func TestChunkedExport(t *testing.T) {
	kit := testkit.NewTestKit(t)
	kit.Config().Excel.XLSXChunkThreshold = 10
	kit.Config().Excel.XLSXChunkRows = 8
	codec := newTestCodec(kit)
	path := kit.Path("orders.xlsx")
	orders := testkit.Orders(15)

	paths, err := codec.writer.WriteData(context.Background(), orders, path)
	require.NoError(t, err)
	assert.Equal(t, []string{kit.Path("orders_part1.xlsx"), kit.Path("orders_part2.xlsx")}, paths)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "the unsplit file is not written")

	var parts []*table.Table
	for _, p := range paths {
		part, err := codec.Load(context.Background(), p)
		require.NoError(t, err)
		parts = append(parts, part)
	}
	assert.Equal(t, 8, parts[0].NumRows())
	assert.Equal(t, 7, parts[1].NumRows())

	joined, err := table.Concat(parts...)
	require.NoError(t, err)
	ids, _ := joined.ColumnByName("order_id")
	want, _ := orders.ColumnByName("order_id")
	assert.Equal(t, want.Values, ids.Values)
}

func TestChunkThresholdIsInclusive(t *testing.T) {
	policy := policyFor(config.Default().Excel, "x.xlsx")
	assert.Equal(t, 1, policy.Parts(999_999))
	assert.Equal(t, 2, policy.Parts(1_000_000))
	assert.Equal(t, 2, policy.Parts(1_500_000))
	assert.Equal(t, 3, policy.Parts(1_500_001))

	legacy := policyFor(config.Default().Excel, "x.xls")
	assert.Equal(t, 1, legacy.Parts(64_999))
	assert.Equal(t, 2, legacy.Parts(65_000))
}

func TestChunkedExportAtFullScale(t *testing.T) {
	if testing.Short() {
		t.Skip("writes 1.5M rows")
	}
	kit := testkit.NewTestKit(t)
	path := kit.Path("big.xlsx")

	paths, err := newTestCodec(kit).writer.WriteData(context.Background(), testkit.SequenceTable("n", 1_500_000), path)
	require.NoError(t, err)
	assert.Equal(t, []string{kit.Path("big_part1.xlsx"), kit.Path("big_part2.xlsx")}, paths)

	f, err := excelize.OpenFile(paths[1])
	require.NoError(t, err)
	defer f.Close()
	first, err := f.GetCellValue(sheetName, "A2")
	require.NoError(t, err)
	assert.Equal(t, "750000", first)
}

func TestLargeWorkbookGoesThroughText(t *testing.T) {
	kit := testkit.NewTestKit(t)
	kit.Config().Excel.LargeFileBytes = 1
	codec := newTestCodec(kit)
	path := kit.Path("large.xlsx")

	src := table.MustNew(
		table.NewColumn("id", table.KindInt, []any{int64(1), int64(2)}),
		table.NewColumn("price", table.KindFloat, []any{2.5, nil}),
		table.NewColumn("sku", table.KindString, []any{"a-1", "b-2"}),
	)
	require.NoError(t, codec.Save(context.Background(), src, path))

	got, err := codec.Load(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, table.Equal(src, got))

	leftovers, err := os.ReadDir(kit.Dir())
	require.NoError(t, err)
	assert.Len(t, leftovers, 1, "scratch CSV is removed")
}

func TestLoadLocatesOffsetHeader(t *testing.T) {
	kit := testkit.NewTestKit(t)
	path := kit.Path("report.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow(sheetName, "A1", &[]interface{}{"Quarterly report"}))
	require.NoError(t, f.SetSheetRow(sheetName, "A3", &[]interface{}{"region", "units", "price"}))
	require.NoError(t, f.SetSheetRow(sheetName, "A4", &[]interface{}{"north", 10, 1.5}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	got, err := newTestCodec(kit).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "units", "price"}, got.Names())
	assert.Equal(t, []any{10.0}, got.Column(1).Values)
	assert.Equal(t, []any{1.5}, got.Column(2).Values)
}

func TestPartPath(t *testing.T) {
	assert.Equal(t, "/out/data_part1.xlsx", PartPath("/out/data.xlsx", 1))
	assert.Equal(t, "/out/data_part12.xls", PartPath("/out/data.xls", 12))
}

func TestTextCellsKeepTheirText(t *testing.T) {
	for _, name := range []string{"codes.xlsx", "codes.xls"} {
		t.Run(name, func(t *testing.T) {
			kit := testkit.NewTestKit(t)
			codec := newTestCodec(kit)
			path := kit.Path(name)

			src := table.MustNew(
				table.NewColumn("zip", table.KindString, []any{"02134", nil, "10001"}),
				table.NewColumn("flag", table.KindString, []any{"TRUE", "false", nil}),
				table.NewColumn("qty", table.KindInt, []any{int64(1), int64(2), int64(3)}),
			)
			require.NoError(t, codec.Save(context.Background(), src, path))

			got, err := codec.Load(context.Background(), path)
			require.NoError(t, err)
			assert.Equal(t, table.KindString, got.Column(0).Kind)
			assert.Equal(t, []any{"02134", nil, "10001"}, got.Column(0).Values)
			assert.Equal(t, table.KindString, got.Column(1).Kind)
			assert.Equal(t, table.KindInt, got.Column(2).Kind)
			assert.True(t, table.Equal(src, got), "round trip changed the table")
		})
	}
}

func TestStaleDimensionKeepsEveryColumn(t *testing.T) {
	kit := testkit.NewTestKit(t)
	path := kit.Path("stale.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow(sheetName, "A1", &[]interface{}{"a", "b", "c"}))
	require.NoError(t, f.SetSheetRow(sheetName, "A2", &[]interface{}{1, "x", 2.5}))
	require.NoError(t, f.SetSheetDimension(sheetName, "A1"))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	small, err := newTestCodec(kit).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, small.Names())

	kit.Config().Excel.LargeFileBytes = 1
	large, err := newTestCodec(kit).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, large.Names())
	assert.Equal(t, []any{"x"}, large.Column(1).Values)
	assert.Equal(t, []any{2.5}, large.Column(2).Values)
}

func TestLoadBIFFWorkbook(t *testing.T) {
	const fixture = "testdata/table.xls"

	legacy, err := isLegacyWorkbook(fixture)
	require.NoError(t, err)
	require.True(t, legacy)

	for _, largeFileBytes := range []int64{100_000_000, 1} {
		kit := testkit.NewTestKit(t)
		kit.Config().Excel.LargeFileBytes = largeFileBytes

		got, err := newTestCodec(kit).Load(context.Background(), fixture)
		require.NoError(t, err, "large file bytes %d", largeFileBytes)

		assert.Equal(t, []string{"Code", "Name", "Description"}, got.Names())
		require.Equal(t, 11, got.NumRows())
		for i := range got.Columns() {
			assert.Equal(t, table.KindString, got.Column(i).Kind)
		}
		row, err := got.Row(0)
		require.NoError(t, err)
		assert.Equal(t, []any{"code1", "name1", "description1"}, row)
		last, err := got.Row(10)
		require.NoError(t, err)
		assert.Equal(t, []any{"code11", "name11", "description11"}, last)

		leftovers, err := os.ReadDir(kit.Dir())
		require.NoError(t, err)
		assert.Empty(t, leftovers, "scratch CSV is removed")
	}
}
