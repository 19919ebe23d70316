// Package compiler drives the full pipeline: lexing, parsing, semantic
// analysis, and code generation.
package compiler

import (
	"errors"
	"fmt"
	"os"

	"github.com/yasurirashmika/dtlc/internal/ast"
	"github.com/yasurirashmika/dtlc/internal/codegen"
	"github.com/yasurirashmika/dtlc/internal/lexer"
	"github.com/yasurirashmika/dtlc/internal/parser"
	"github.com/yasurirashmika/dtlc/internal/semantic"
)

// ErrSemantic marks a compilation stopped by semantic errors. The Result
// still carries the full report so callers can show every diagnostic.
var ErrSemantic = errors.New("semantic analysis failed")

// Options configure one compilation.
type Options struct {
	// CheckFiles validates that loaded files exist on disk.
	CheckFiles bool
	// CheckColumns reads CSV headers and validates column references.
	CheckColumns bool
	// Headers overrides how column headers are read. Nil means read from
	// disk.
	Headers semantic.HeaderReader
}

// Result is the output of one compilation. Fields are populated as far as
// the pipeline got: a parse error leaves Program nil, a semantic failure
// leaves Code empty but Report set.
type Result struct {
	Tokens  []lexer.Token
	Program *ast.Program
	Report  *semantic.Report
	Code    string
}

// Compile runs the pipeline over DTL source text. Lexical and parse errors
// abort immediately; semantic errors return ErrSemantic with the report
// attached to the result.
func Compile(source string, opts Options) (*Result, error) {
	res := &Result{}

	tokens, err := lexer.New(source).Tokenize()
	if err != nil {
		return res, err
	}
	res.Tokens = tokens

	prog, err := parser.New(tokens).Parse()
	if err != nil {
		return res, err
	}
	res.Program = prog

	analyzer := newAnalyzer(opts)
	res.Report = analyzer.Analyze(prog)
	if !res.Report.Valid() {
		return res, ErrSemantic
	}

	res.Code = codegen.Generate(prog)
	return res, nil
}

// CompileFile reads a DTL script from disk and compiles it.
func CompileFile(path string, opts Options) (*Result, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return Compile(string(source), opts)
}

func newAnalyzer(opts Options) *semantic.Analyzer {
	semOpts := semantic.Options{CheckFiles: opts.CheckFiles, CheckColumns: opts.CheckColumns}
	if opts.Headers != nil {
		return semantic.NewWithHeaderReader(semOpts, opts.Headers)
	}
	return semantic.New(semOpts)
}
