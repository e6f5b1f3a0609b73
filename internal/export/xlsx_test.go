package export

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sommarioni/sommarioni/pkg/types"
)

func TestBytes_TablesBecomeSheets(t *testing.T) {
	sheets := []Sheet{
		FromTable(types.Table{Name: "by_owner", Rows: []types.AggregateRow{
			{Name: "Demanio", Value: 300},
			{Name: "Scuola Grande", Value: 120.5},
		}}, "surface"),
		FromQualityCounts("institutions", []types.QualityCount{{Name: "Demanio", Quality: "CASA", Count: 4}}),
	}
	data, err := Bytes(sheets)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"by_owner", "institutions"}, f.GetSheetList())

	rows, err := f.GetRows("by_owner")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"name", "surface"}, {"Demanio", "300"}, {"Scuola Grande", "120.5"}}, rows)

	rows, err = f.GetRows("institutions")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"name", "quality", "count"}, {"Demanio", "CASA", "4"}}, rows)
}

func TestSheetNames_SanitisedAndUnique(t *testing.T) {
	long := strings.Repeat("x", 40)
	sheets := []Sheet{{Name: "a/b"}, {Name: "A/B"}, {Name: long}, {Name: long}, {Name: ""}}
	f, err := Build(sheets)
	require.NoError(t, err)
	defer f.Close()

	names := f.GetSheetList()
	require.Len(t, names, 5)
	assert.Equal(t, "a_b", names[0])
	assert.Equal(t, "A_B~2", names[1])
	assert.Len(t, names[2], 31)
	assert.Len(t, names[3], 31)
	assert.NotEqual(t, names[2], names[3])
	assert.Equal(t, "Sheet5", names[4])
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.xlsx")
	require.NoError(t, WriteFile(path, []Sheet{FromTable(types.Table{Name: "by_group"}, "surface")}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("by_group")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"name", "surface"}}, rows)
}

func TestBuild_NoSheets(t *testing.T) {
	f, err := Build(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sheet1"}, f.GetSheetList())
}
