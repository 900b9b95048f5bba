package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultOpts = NormalizeOptions{SKUThreshold: DefaultSKUThreshold}

func TestNormalize_renamesAndShadows(t *testing.T) {
	tbl := Normalize(
		[]string{" ID ", "Product", "Price", "Description"},
		[][]string{{" PEN456 ", " Pen ", "1.5", "Blue INK pen"}},
		defaultOpts,
	)
	assert.Equal(t, []string{"sku", "name", "price", "description"}, tbl.Columns)
	require.Equal(t, 1, tbl.Len())
	r := tbl.Records[0]
	assert.Equal(t, "PEN456", tbl.Value(r, "sku"))
	assert.Equal(t, "Pen", tbl.Value(r, "name"))
	assert.Equal(t, "pen456", r.skuLC)
	assert.Equal(t, "pen", r.nameLC)
	assert.Equal(t, "blue ink pen", r.descLC)
}

func TestNormalize_splitsSingleColumn(t *testing.T) {
	tbl := Normalize(
		[]string{"data"},
		[][]string{{"PEN456, Pen, 1.5"}, {"NB100;Notebook"}},
		defaultOpts,
	)
	assert.Equal(t, []string{"sku", "name", "col2"}, tbl.Columns)
	assert.Equal(t, []string{"NB100", "Notebook", ""}, tbl.Records[1].Cells)
}

func TestNormalize_skuHeuristicThreshold(t *testing.T) {
	header := []string{"code", "label"}
	rows := [][]string{{"PEN456", "Pen"}, {"x", "Cup"}, {"y", "Mug"}}

	tbl := Normalize(header, rows, defaultOpts)
	assert.True(t, tbl.Has("sku"), "1/3 of cells exceeds 0.3")

	tbl = Normalize(header, rows, NormalizeOptions{SKUThreshold: 0.5})
	assert.False(t, tbl.Has("sku"))
	assert.Equal(t, []string{"code", "label"}, tbl.Columns)
}

func TestNormalize_keepsRowsThatFailHeuristics(t *testing.T) {
	tbl := Normalize([]string{"a", "b"}, [][]string{{"1"}, {"2", "3", "4"}}, defaultOpts)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, []string{"1", ""}, tbl.Records[0].Cells)
	assert.Equal(t, []string{"2", "3"}, tbl.Records[1].Cells)
}

func TestTable_projectWithoutCanonicalColumns(t *testing.T) {
	tbl := Normalize([]string{"foo", "bar"}, [][]string{{"1", "2"}}, defaultOpts)
	rows := tbl.project(tbl.Records)
	require.Len(t, rows, 1)
	assert.Equal(t, "1", rows[0]["foo"])
	assert.Equal(t, "2", rows[0]["bar"])
}

func TestTable_projectCanonicalOnly(t *testing.T) {
	tbl := Normalize(
		[]string{"sku", "name", "price", "currency", "stock", "warehouse"},
		[][]string{{"PEN456", "Pen", "1.5", "USD", "10", "north"}},
		defaultOpts,
	)
	rows := tbl.project(tbl.Records)
	require.Len(t, rows, 1)
	_, hasWarehouse := rows[0]["warehouse"]
	assert.False(t, hasWarehouse)
	assert.Len(t, rows[0], 5)
}
