// Package codegen turns a DTL program into a standalone pandas script.
//
// Generation is pure and deterministic: the same program always yields the
// same script, byte for byte. Each command emits a comment, the pandas
// statements, and a progress print so the script narrates its own run.
package codegen

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/yasurirashmika/dtlc/internal/ast"
)

// pandas spellings of the DTL aggregate functions.
var aggFuncs = map[string]string{
	"sum":   "sum",
	"avg":   "mean",
	"count": "count",
	"max":   "max",
	"min":   "min",
}

// Generator emits Python code for one program.
type Generator struct {
	prog     *ast.Program
	lines    []string
	skipRows int
}

// New creates a generator for the given program.
func New(prog *ast.Program) *Generator {
	return &Generator{prog: prog}
}

// Generate returns the complete Python script.
func (g *Generator) Generate() string {
	g.lines = g.lines[:0]
	g.emitImports()
	g.skipRows = foldedSkipRows(g.prog)
	for _, cmd := range g.prog.Commands {
		g.emitCommand(cmd)
	}
	return strings.Join(g.lines, "\n")
}

// WriteFile generates the script and writes it to path, creating parent
// directories as needed.
func (g *Generator) WriteFile(path string) (string, error) {
	code := g.Generate()
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		return "", fmt.Errorf("write generated code: %w", err)
	}
	return code, nil
}

// Generate is a convenience wrapper for one-shot generation.
func Generate(prog *ast.Program) string {
	return New(prog).Generate()
}

// foldedSkipRows returns the row count of a skip command that immediately
// follows the first load. That skip is folded into read_csv's skiprows
// parameter instead of dropping rows after the fact, so the skipped lines
// never confuse type inference.
func foldedSkipRows(prog *ast.Program) int {
	for i, cmd := range prog.Commands {
		if _, ok := cmd.(*ast.Load); !ok {
			continue
		}
		if i+1 < len(prog.Commands) {
			if skip, ok := prog.Commands[i+1].(*ast.Skip); ok {
				return skip.Rows
			}
		}
		break
	}
	return 0
}

func (g *Generator) emit(format string, args ...any) {
	g.lines = append(g.lines, fmt.Sprintf(format, args...))
}

func (g *Generator) emitImports() {
	g.emit("import pandas as pd")
	g.emit("import numpy as np")
	g.emit("import warnings")
	g.emit("warnings.filterwarnings('ignore')")
	g.emit("")
}

func (g *Generator) emitCommand(cmd ast.Command) {
	switch n := cmd.(type) {
	case *ast.Load:
		g.emitLoad(n)
	case *ast.Skip:
		g.emit("# Skip handled in load (skiprows=%d)", g.skipRows)
		g.emit("")
	case *ast.Trim:
		g.emitTrim()
	case *ast.Clean:
		g.emitClean(n)
	case *ast.Rename:
		g.emitRename(n)
	case *ast.Filter:
		g.emitFilter(n)
	case *ast.Select:
		g.emitSelect(n)
	case *ast.Sort:
		g.emitSort(n)
	case *ast.GroupBy:
		g.emitGroupBy(n)
	case *ast.Save:
		g.emitSave(n)
	}
}

func (g *Generator) emitLoad(n *ast.Load) {
	g.emit("# Load data from CSV")
	if g.skipRows > 0 {
		g.emit("df = pd.read_csv('%s', skiprows=%d, on_bad_lines='skip', engine='python')",
			n.Filename, g.skipRows)
		g.emit("print(f'Loaded {len(df)} rows (skipped first %d header rows)')", g.skipRows)
	} else {
		g.emit("df = pd.read_csv('%s', on_bad_lines='skip', engine='python')", n.Filename)
		g.emit("print(f'Loaded {len(df)} rows')")
	}
	g.emit("")
}

func (g *Generator) emitTrim() {
	g.emit("# Trim whitespace from all string columns")
	g.emit("for col in df.select_dtypes(include=['object', 'string']).columns:")
	g.emit("    if df[col].dtype == 'object':")
	g.emit("        df[col] = df[col].astype(str).str.strip()")
	g.emit("print('Trimmed whitespace from string columns')")
	g.emit("")
}

func (g *Generator) emitClean(n *ast.Clean) {
	switch n.Kind {
	case ast.CleanMissing:
		switch n.Strategy {
		case ast.StrategyDrop:
			g.emit("# Drop rows with any missing values")
			g.emit("df = df.dropna()")
		case ast.StrategyForwardFill:
			g.emit("# Forward fill missing values")
			g.emit("df = df.ffill()")
		case ast.StrategyBackwardFill:
			g.emit("# Backward fill missing values")
			g.emit("df = df.bfill()")
		}
		g.emit("print(f'After cleaning: {len(df)} rows')")
	case ast.CleanDuplicates:
		g.emit("# Remove duplicate rows")
		g.emit("df = df.drop_duplicates()")
		g.emit("print(f'After removing duplicates: {len(df)} rows')")
	case ast.CleanFillNa:
		g.emitFillNa(n)
	}
	g.emit("")
}

// emitFillNa guards the fill with a runtime column check: the script warns
// rather than crashing when the column is absent.
func (g *Generator) emitFillNa(n *ast.Clean) {
	column := unquote(n.Column)
	g.emit("# Fill missing values in '%s'", column)
	g.emit("if '%s' in df.columns:", column)
	if n.Value == ast.MissingValue {
		g.emit("    df['%s'] = np.nan", column)
	} else {
		g.emit("    df['%s'] = df['%s'].fillna(%s)", column, column, fillValue(n.Value))
	}
	g.emit("else:")
	g.emit("    print(f\"Warning: Column '%s' not found in dataframe\")", column)
}

func (g *Generator) emitRename(n *ast.Rename) {
	old, new := unquote(n.OldName), unquote(n.NewName)
	g.emit("# Rename column '%s' to '%s'", old, new)
	g.emit("if '%s' in df.columns:", old)
	g.emit("    df = df.rename(columns={'%s': '%s'})", old, new)
	g.emit("else:")
	g.emit("    print(f\"Warning: Column '%s' not found\")", old)
	g.emit("")
}

func (g *Generator) emitFilter(n *ast.Filter) {
	column := unquote(n.Column)
	value := pythonValue(n.Value)
	g.emit("# Filter: %s %s %s", column, n.Operator, value)
	g.emit("df = df[df['%s'] %s %s]", column, n.Operator, value)
	g.emit("print(f'After filter: {len(df)} rows')")
	g.emit("")
}

func (g *Generator) emitSelect(n *ast.Select) {
	quoted := make([]string, len(n.Columns))
	for i, col := range n.Columns {
		quoted[i] = "'" + unquote(col) + "'"
	}
	g.emit("# Select columns")
	g.emit("df = df[[%s]]", strings.Join(quoted, ", "))
	g.emit("print(f'Selected {len(df.columns)} columns')")
	g.emit("")
}

func (g *Generator) emitSort(n *ast.Sort) {
	column := unquote(n.Column)
	ascending := "True"
	if n.Order == ast.OrderDesc {
		ascending = "False"
	}
	g.emit("# Sort by %s (%s)", column, n.Order)
	g.emit("df = df.sort_values(by='%s', ascending=%s)", column, ascending)
	g.emit("df = df.reset_index(drop=True)")
	g.emit("print(f'Sorted by %s')", column)
	g.emit("")
}

func (g *Generator) emitGroupBy(n *ast.GroupBy) {
	byCol := unquote(n.ByColumn)
	aggCol := unquote(n.AggColumn)
	pyFunc, ok := aggFuncs[n.AggFunc]
	if !ok {
		pyFunc = "sum"
	}
	g.emit("# Group by %s and %s %s", byCol, n.AggFunc, aggCol)
	g.emit("df = df.groupby('%s')['%s'].%s().reset_index()", byCol, aggCol, pyFunc)
	g.emit("df.columns = ['%s', '%s_%s']", byCol, aggCol, pyFunc)
	g.emit("print(f'Grouped by %s')", byCol)
	g.emit("")
}

func (g *Generator) emitSave(n *ast.Save) {
	g.emit("# Save results to CSV")
	g.emit("df.to_csv('%s', index=False)", n.Filename)
	g.emit("print(f'Data saved to %s')", n.Filename)
	g.emit("")
}

// fillValue renders a fillna value. Quotes are stripped before the numeric
// parse, so a quoted number fills as a number rather than a string.
func fillValue(v string) string {
	stripped := unquote(v)
	if _, err := strconv.ParseFloat(stripped, 64); err == nil {
		return stripped
	}
	return "'" + stripped + "'"
}

// pythonValue renders a comparison value as a Python literal. Bare numbers
// pass through unquoted; quoted strings are re-quoted with single quotes.
func pythonValue(v string) string {
	if v == ast.MissingValue {
		return "np.nan"
	}
	stripped := unquote(v)
	if stripped == v {
		if _, err := strconv.ParseFloat(v, 64); err == nil {
			return v
		}
	}
	return "'" + stripped + "'"
}

func unquote(s string) string {
	s = strings.Trim(s, `"`)
	return strings.Trim(s, "'")
}
