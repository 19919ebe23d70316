package codegen

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yasurirashmika/dtlc/internal/lexer"
	"github.com/yasurirashmika/dtlc/internal/parser"
)

func generate(t *testing.T, source string) string {
	t.Helper()
	tokens, err := lexer.New(source).Tokenize()
	require.NoError(t, err)
	prog, err := parser.New(tokens).Parse()
	require.NoError(t, err)
	return Generate(prog)
}

const header = "import pandas as pd\nimport numpy as np\nimport warnings\nwarnings.filterwarnings('ignore')\n"

func TestGenerateLoadAndSave(t *testing.T) {
	code := generate(t, "load \"data.csv\"\nsave \"out.csv\"")
	want := header + `
# Load data from CSV
df = pd.read_csv('data.csv', on_bad_lines='skip', engine='python')
print(f'Loaded {len(df)} rows')

# Save results to CSV
df.to_csv('out.csv', index=False)
print(f'Data saved to out.csv')
`
	assert.Equal(t, want, code)
}

func TestGenerateSkipFoldsIntoLoad(t *testing.T) {
	code := generate(t, "load \"data.csv\"\nskip 2\nsave \"out.csv\"")

	assert.Contains(t, code,
		"df = pd.read_csv('data.csv', skiprows=2, on_bad_lines='skip', engine='python')")
	assert.Contains(t, code, "print(f'Loaded {len(df)} rows (skipped first 2 header rows)')")
	assert.Contains(t, code, "# Skip handled in load (skiprows=2)")
	// No separate row-dropping statement is emitted for the skip.
	assert.NotContains(t, code, "df.iloc")
	assert.NotContains(t, code, "df[2:]")
}

func TestGenerateSkipNotAdjacentToLoad(t *testing.T) {
	// A skip separated from the load is not folded into read_csv.
	code := generate(t, "load \"data.csv\"\ntrim\nskip 2\nsave \"out.csv\"")
	assert.Contains(t, code,
		"df = pd.read_csv('data.csv', on_bad_lines='skip', engine='python')")
	assert.Contains(t, code, "# Skip handled in load (skiprows=0)")
}

func TestGenerateCleanStrategies(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"clean missing drop", "df = df.dropna()"},
		{"clean missing ffill", "df = df.ffill()"},
		{"clean missing bfill", "df = df.bfill()"},
		{"clean duplicates", "df = df.drop_duplicates()"},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			code := generate(t, "load \"d.csv\"\n"+tt.source)
			assert.Contains(t, code, tt.want)
		})
	}
}

func TestGenerateFillNaGuardsColumn(t *testing.T) {
	code := generate(t, "load \"d.csv\"\nfillna age 0")

	assert.Contains(t, code, "if 'age' in df.columns:")
	assert.Contains(t, code, "    df['age'] = df['age'].fillna(0)")
	assert.Contains(t, code, "else:")
	assert.Contains(t, code, `    print(f"Warning: Column 'age' not found in dataframe")`)
}

func TestGenerateFillNaValueRendering(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"integer stays bare", "fillna age 0", ".fillna(0)"},
		{"float stays bare", "fillna score 1.5", ".fillna(1.5)"},
		{"string single-quoted", `fillna city "Unknown"`, ".fillna('Unknown')"},
		{"quoted number fills as number", `fillna zip "12345"`, "df['zip'] = df['zip'].fillna(12345)"},
		{"quoted float fills as number", `fillna rate "0.5"`, ".fillna(0.5)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := generate(t, "load \"d.csv\"\n"+tt.source)
			assert.Contains(t, code, tt.want)
		})
	}
}

func TestGenerateFillNaWithNaNLiteral(t *testing.T) {
	code := generate(t, "load \"d.csv\"\nfillna age NaN")
	assert.Contains(t, code, "    df['age'] = np.nan")
	assert.NotContains(t, code, "'NaN'")
}

func TestGenerateRenameGuardsColumn(t *testing.T) {
	code := generate(t, "load \"d.csv\"\nrename amt to amount")

	assert.Contains(t, code, "if 'amt' in df.columns:")
	assert.Contains(t, code, "    df = df.rename(columns={'amt': 'amount'})")
	assert.Contains(t, code, `    print(f"Warning: Column 'amt' not found")`)
}

func TestGenerateFilterValues(t *testing.T) {
	code := generate(t, "load \"d.csv\"\nfilter salary >= 70000")
	assert.Contains(t, code, "df = df[df['salary'] >= 70000]")

	code = generate(t, "load \"d.csv\"\nfilter city == \"New York\"")
	assert.Contains(t, code, "df = df[df['city'] == 'New York']")

	code = generate(t, "load \"d.csv\"\nfilter status != NaN")
	assert.Contains(t, code, "df = df[df['status'] != np.nan]")

	// Unlike fillna, a quoted number in a comparison stays a string.
	code = generate(t, "load \"d.csv\"\nfilter zip == \"12345\"")
	assert.Contains(t, code, "df = df[df['zip'] == '12345']")
}

func TestGenerateSelect(t *testing.T) {
	code := generate(t, "load \"d.csv\"\nselect name, age, salary")
	assert.Contains(t, code, "df = df[['name', 'age', 'salary']]")
}

func TestGenerateSort(t *testing.T) {
	code := generate(t, "load \"d.csv\"\nsort by salary desc")
	assert.Contains(t, code, "df = df.sort_values(by='salary', ascending=False)")
	assert.Contains(t, code, "df = df.reset_index(drop=True)")

	code = generate(t, "load \"d.csv\"\nsort by name")
	assert.Contains(t, code, "df = df.sort_values(by='name', ascending=True)")
}

func TestGenerateGroupBy(t *testing.T) {
	code := generate(t, "load \"d.csv\"\ngroup by region avg sales")

	assert.Contains(t, code, "df = df.groupby('region')['sales'].mean().reset_index()")
	assert.Contains(t, code, "df.columns = ['region', 'sales_mean']")

	code = generate(t, "load \"d.csv\"\ngroup by region count id")
	assert.Contains(t, code, "df.columns = ['region', 'id_count']")
}

func TestGenerateIsDeterministic(t *testing.T) {
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
	first := generate(t, source)
	second := generate(t, source)
	assert.Equal(t, first, second)
	assert.True(t, strings.HasPrefix(first, "import pandas as pd\n"))
}

func TestGeneratorReuse(t *testing.T) {
	tokens, err := lexer.New("load \"d.csv\"\nsave \"o.csv\"").Tokenize()
	require.NoError(t, err)
	prog, err := parser.New(tokens).Parse()
	require.NoError(t, err)

	g := New(prog)
	assert.Equal(t, g.Generate(), g.Generate())
}

func TestWriteFileCreatesDirectories(t *testing.T) {
	tokens, err := lexer.New("load \"d.csv\"\nsave \"o.csv\"").Tokenize()
	require.NoError(t, err)
	prog, err := parser.New(tokens).Parse()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "out", "script.py")
	code, err := New(prog).WriteFile(path)
	require.NoError(t, err)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, code, string(written))
}
