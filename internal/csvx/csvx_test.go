package csvx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadHeader(t *testing.T) {
	path := writeCSV(t, "name,age,salary\nalice,30,70000\n")

	columns, err := ReadHeader(path, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "age", "salary"}, columns)
}

func TestReadHeaderWithSkip(t *testing.T) {
	path := writeCSV(t, "junk line one\njunk line two\nname,age\nalice,30\n")

	columns, err := ReadHeader(path, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "age"}, columns)
}

func TestReadHeaderTrimsWhitespace(t *testing.T) {
	path := writeCSV(t, "name , age ,salary\n")

	columns, err := ReadHeader(path, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "age", "salary"}, columns)
}

func TestReadHeaderSkipPastEnd(t *testing.T) {
	path := writeCSV(t, "only,one,line\n")

	_, err := ReadHeader(path, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file ends before header")
}

func TestReadHeaderMissingFile(t *testing.T) {
	_, err := ReadHeader(filepath.Join(t.TempDir(), "nope.csv"), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot open")
}

func TestReadPreview(t *testing.T) {
	path := writeCSV(t, "name,age\nalice,30\nbob,25\ncarol,41\n")

	p, err := ReadPreview(path, 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "age"}, p.Columns)
	assert.Equal(t, 3, p.TotalRows)
	require.Len(t, p.Rows, 2)
	assert.Equal(t, map[string]string{"name": "alice", "age": "30"}, p.Rows[0])
	assert.Equal(t, map[string]string{"name": "bob", "age": "25"}, p.Rows[1])
}

func TestReadPreviewFillsMissingCells(t *testing.T) {
	path := writeCSV(t, "name,age,city\nalice,,nyc\nbob,25\n")

	p, err := ReadPreview(path, 10)
	require.NoError(t, err)

	require.Len(t, p.Rows, 2)
	assert.Equal(t, "NaN", p.Rows[0]["age"])
	assert.Equal(t, "nyc", p.Rows[0]["city"])
	// Short records leave trailing columns missing.
	assert.Equal(t, "NaN", p.Rows[1]["city"])
}

func TestReadPreviewEmptyDataFile(t *testing.T) {
	path := writeCSV(t, "name,age\n")

	p, err := ReadPreview(path, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, p.TotalRows)
	assert.Empty(t, p.Rows)
}

func TestReadPreviewCountsAllRows(t *testing.T) {
	content := "id\n"
	for i := 0; i < 200; i++ {
		content += "1\n"
	}
	path := writeCSV(t, content)

	p, err := ReadPreview(path, 5)
	require.NoError(t, err)
	assert.Len(t, p.Rows, 5)
	assert.Equal(t, 200, p.TotalRows)
}
