package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileFullPipeline(t *testing.T) {
	source := `
load "t.csv"
skip 2
trim
clean missing drop
fillna age 0
select name, age, salary
filter salary > 70000
sort by salary desc
save "out.csv"
`
	res, err := Compile(source, Options{})
	require.NoError(t, err)

	assert.NotEmpty(t, res.Tokens)
	require.NotNil(t, res.Program)
	assert.Len(t, res.Program.Commands, 9)
	require.NotNil(t, res.Report)
	assert.True(t, res.Report.Valid())
	assert.Contains(t, res.Code, "import pandas as pd")
	assert.Contains(t, res.Code, "skiprows=2")
	assert.Contains(t, res.Code, "df.to_csv('out.csv', index=False)")
}

func TestCompileLexErrorAborts(t *testing.T) {
	res, err := Compile(`load "unterminated`, Options{})
	require.Error(t, err)
	assert.Nil(t, res.Program)
	assert.Empty(t, res.Code)
}

func TestCompileParseErrorAborts(t *testing.T) {
	res, err := Compile("load \"t.csv\"\nskip nope\n", Options{})
	require.Error(t, err)
	assert.NotEmpty(t, res.Tokens)
	assert.Nil(t, res.Program)
	assert.Empty(t, res.Code)
}

func TestCompileSemanticFailureCarriesReport(t *testing.T) {
	res, err := Compile("trim\nsave \"out.csv\"\n", Options{})
	require.ErrorIs(t, err, ErrSemantic)

	require.NotNil(t, res.Report)
	assert.False(t, res.Report.Valid())
	assert.Contains(t, res.Report.Errors, "program must contain a 'load' command")
	// No code is generated for invalid programs.
	assert.Empty(t, res.Code)
}

func TestCompileWarningsDoNotBlock(t *testing.T) {
	res, err := Compile("load \"t.csv\"\ntrim\n", Options{})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Report.Warnings)
	assert.NotEmpty(t, res.Code)
}

func TestCompileWithCustomHeaderReader(t *testing.T) {
	headers := func(path string, skip int) ([]string, error) {
		return []string{"name", "age"}, nil
	}

	_, err := Compile("load \"t.csv\"\nselect name, salary\nsave \"o.csv\"\n",
		Options{CheckColumns: true, Headers: headers})
	require.ErrorIs(t, err, ErrSemantic)

	res, err := Compile("load \"t.csv\"\nselect name, age\nsave \"o.csv\"\n",
		Options{CheckColumns: true, Headers: headers})
	require.NoError(t, err)
	assert.Contains(t, res.Code, "df = df[['name', 'age']]")
}

func TestCompileFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.dtl")
	require.NoError(t, os.WriteFile(path, []byte("load \"t.csv\"\nsave \"o.csv\"\n"), 0o644))

	res, err := CompileFile(path, Options{})
	require.NoError(t, err)
	assert.Contains(t, res.Code, "pd.read_csv('t.csv'")

	_, err = CompileFile(filepath.Join(dir, "missing.dtl"), Options{})
	require.Error(t, err)
}
