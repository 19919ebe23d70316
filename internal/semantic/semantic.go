// Package semantic validates DTL programs before code generation.
//
// The analyzer runs one forward pass over the command list, threading a
// simulated table state (loaded/saved flags plus the known and selected
// column sets) and accumulating diagnostics. Unlike the lexer and parser it
// never fails fast: the full program is always analyzed so the caller gets
// the complete report.
package semantic

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yasurirashmika/dtlc/internal/ast"
	"github.com/yasurirashmika/dtlc/internal/csvx"
)

// Options control which validations touch the file system.
type Options struct {
	// CheckFiles verifies that loaded files and save directories exist.
	CheckFiles bool
	// CheckColumns reads file headers and validates column references.
	CheckColumns bool
}

// Report holds the accumulated diagnostics of one analysis pass.
type Report struct {
	Errors   []string
	Warnings []string
}

// Valid reports whether compilation may proceed. Warnings never block.
func (r *Report) Valid() bool {
	return len(r.Errors) == 0
}

func (r *Report) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// HeaderReader reads the column names of a tabular file, skipping the given
// number of rows before the header.
type HeaderReader func(path string, skip int) ([]string, error)

// Analyzer validates programs. One Analyzer may be reused; each Analyze call
// threads its own state, so repeated analysis of the same program yields
// identical reports.
type Analyzer struct {
	opts    Options
	headers HeaderReader
}

// New creates an analyzer that reads headers from disk.
func New(opts Options) *Analyzer {
	return &Analyzer{opts: opts, headers: csvx.ReadHeader}
}

// NewWithHeaderReader creates an analyzer with a custom header reader.
func NewWithHeaderReader(opts Options, headers HeaderReader) *Analyzer {
	return &Analyzer{opts: opts, headers: headers}
}

// tableState is the simulated state of the running table, threaded forward
// across the command sequence. A nil column set means "unknown".
type tableState struct {
	loaded   bool
	saved    bool
	known    map[string]bool
	selected map[string]bool
}

// available returns the narrower of the selected and known column sets.
func (s *tableState) available() map[string]bool {
	if s.selected != nil {
		return s.selected
	}
	return s.known
}

// Analyze performs semantic analysis and returns the accumulated report.
// The program is never mutated.
func (a *Analyzer) Analyze(prog *ast.Program) *Report {
	report := &Report{}

	if len(prog.Commands) == 0 {
		report.errorf("empty program: no commands found")
		return report
	}

	a.checkFilterAfterSelect(prog, report)

	state := &tableState{}
	for i, cmd := range prog.Commands {
		a.analyzeCommand(cmd, i, prog, state, report)
	}

	if !state.loaded {
		report.errorf("program must contain a 'load' command")
	}
	if !state.saved {
		report.warnf("program has no 'save' command - results will not be saved")
	}
	return report
}

// checkFilterAfterSelect warns about filters referencing columns dropped by
// an earlier select. This is a warning, not an error: header inference may
// be disabled, and the ordering is legal even when it is probably a mistake.
func (a *Analyzer) checkFilterAfterSelect(prog *ast.Program, report *Report) {
	lastSelect := -1
	var selected map[string]bool

	for i, cmd := range prog.Commands {
		switch n := cmd.(type) {
		case *ast.Select:
			lastSelect = i
			selected = toSet(n.Columns)
		case *ast.Filter:
			if lastSelect >= 0 && !selected[n.Column] {
				report.warnf(
					"command at position %d: filter on %q may fail because 'select' at position %d does not include it; filter before selecting, or add %q to the select",
					i+1, n.Column, lastSelect+1, n.Column)
			}
		}
	}
}

func (a *Analyzer) analyzeCommand(cmd ast.Command, index int, prog *ast.Program, state *tableState, report *Report) {
	switch n := cmd.(type) {
	case *ast.Load:
		a.analyzeLoad(n, index, prog, state, report)
	case *ast.Skip:
		requireLoaded(state, index, "skip", report)
	case *ast.Trim:
		requireLoaded(state, index, "trim", report)
	case *ast.Clean:
		a.analyzeClean(n, index, state, report)
	case *ast.Rename:
		a.analyzeRename(n, index, state, report)
	case *ast.Filter:
		a.analyzeFilter(n, index, state, report)
	case *ast.Select:
		a.analyzeSelect(n, index, state, report)
	case *ast.Sort:
		a.analyzeSort(n, index, state, report)
	case *ast.Save:
		a.analyzeSave(n, index, state, report)
	case *ast.GroupBy:
		a.analyzeGroupBy(n, index, state, report)
	}
}

func (a *Analyzer) analyzeLoad(n *ast.Load, index int, prog *ast.Program, state *tableState, report *Report) {
	if index != 0 {
		report.warnf("'load' should be the first command (found at position %d)", index+1)
	}
	state.loaded = true

	if a.opts.CheckFiles {
		if _, err := os.Stat(n.Filename); err != nil {
			report.errorf("file not found: %s", n.Filename)
			return
		}
	}

	if a.opts.CheckColumns {
		skip := foldableSkip(prog, index)
		columns, err := a.headers(n.Filename, skip)
		if err != nil {
			// A file we cannot read headers from blocks compilation.
			report.errorf("cannot read headers from %s: %v", n.Filename, err)
			return
		}
		state.known = toSet(columns)
		state.selected = nil
	}
}

// foldableSkip returns the row count of the first Skip after the load at
// loadIndex, looking past only Trim and Clean commands. Any other command
// changes the table structurally, so header inference stops there.
func foldableSkip(prog *ast.Program, loadIndex int) int {
	for i := loadIndex + 1; i < len(prog.Commands); i++ {
		switch cmd := prog.Commands[i].(type) {
		case *ast.Skip:
			return cmd.Rows
		case *ast.Trim, *ast.Clean:
			continue
		default:
			return 0
		}
	}
	return 0
}

func (a *Analyzer) analyzeClean(n *ast.Clean, index int, state *tableState, report *Report) {
	requireLoaded(state, index, "clean", report)

	switch n.Kind {
	case ast.CleanMissing:
		switch n.Strategy {
		case ast.StrategyDrop, ast.StrategyForwardFill, ast.StrategyBackwardFill:
		default:
			report.errorf("invalid strategy %q for 'clean missing'", n.Strategy)
		}
	case ast.CleanDuplicates:
		// Always valid.
	case ast.CleanFillNa:
		// The column may be created implicitly at run time, so this is a
		// warning; the generated code carries its own existence guard.
		if a.opts.CheckColumns && state.known != nil && !state.known[n.Column] {
			report.warnf("'fillna' on column %q - column may not exist at this point", n.Column)
		}
	}
}

func (a *Analyzer) analyzeRename(n *ast.Rename, index int, state *tableState, report *Report) {
	requireLoaded(state, index, "rename", report)

	if a.opts.CheckColumns && state.known != nil {
		if !state.known[n.OldName] {
			report.errorf("cannot rename %q - column does not exist", n.OldName)
			return
		}
		delete(state.known, n.OldName)
		state.known[n.NewName] = true
	}
}

func (a *Analyzer) analyzeFilter(n *ast.Filter, index int, state *tableState, report *Report) {
	if !requireLoaded(state, index, "filter", report) {
		return
	}

	if cols := state.available(); a.opts.CheckColumns && cols != nil && !cols[n.Column] {
		report.errorf("column %q not available at filter position %d (available: %s)",
			n.Column, index+1, formatColumns(cols))
	}

	switch n.Operator {
	case ">", "<", ">=", "<=", "==", "!=":
	default:
		report.errorf("invalid operator %q", n.Operator)
	}
}

func (a *Analyzer) analyzeSelect(n *ast.Select, index int, state *tableState, report *Report) {
	requireLoaded(state, index, "select", report)

	if a.opts.CheckColumns && state.known != nil {
		for _, col := range n.Columns {
			if !state.known[col] {
				report.errorf("column %q does not exist in loaded data", col)
			}
		}
	}

	// Narrowing persists for all later commands until the next select.
	state.selected = toSet(n.Columns)
}

func (a *Analyzer) analyzeSort(n *ast.Sort, index int, state *tableState, report *Report) {
	requireLoaded(state, index, "sort", report)

	if cols := state.available(); a.opts.CheckColumns && cols != nil && !cols[n.Column] {
		report.errorf("cannot sort by %q - column not available (available: %s)",
			n.Column, formatColumns(cols))
	}

	if n.Order != ast.OrderAsc && n.Order != ast.OrderDesc {
		report.errorf("invalid sort order %q - must be 'asc' or 'desc'", n.Order)
	}
}

func (a *Analyzer) analyzeSave(n *ast.Save, index int, state *tableState, report *Report) {
	requireLoaded(state, index, "save", report)
	state.saved = true

	// The directory may be creatable at run time, so this stays a warning.
	if a.opts.CheckFiles {
		if dir := filepath.Dir(n.Filename); dir != "." && dir != "" {
			if _, err := os.Stat(dir); err != nil {
				report.warnf("output directory may not exist: %s", dir)
			}
		}
	}
}

func (a *Analyzer) analyzeGroupBy(n *ast.GroupBy, index int, state *tableState, report *Report) {
	requireLoaded(state, index, "group", report)

	if cols := state.available(); a.opts.CheckColumns && cols != nil {
		if !cols[n.ByColumn] {
			report.errorf("cannot group by %q - column not available", n.ByColumn)
		}
		if !cols[n.AggColumn] {
			report.errorf("cannot aggregate %q - column not available", n.AggColumn)
		}
	}

	switch n.AggFunc {
	case "sum", "avg", "count", "max", "min":
	default:
		report.errorf("invalid aggregate function %q", n.AggFunc)
	}
}

func requireLoaded(state *tableState, index int, name string, report *Report) bool {
	if !state.loaded {
		report.errorf("'%s' at position %d used before 'load'", name, index+1)
		return false
	}
	return true
}

func toSet(columns []string) map[string]bool {
	set := make(map[string]bool, len(columns))
	for _, c := range columns {
		set[c] = true
	}
	return set
}

func formatColumns(set map[string]bool) string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
