// Package parser builds DTL abstract syntax trees from token sequences.
//
// It is a recursive-descent parser with one handler per command. Each
// handler consumes exactly the tokens of its command's fixed grammar; the
// first syntax error aborts parsing with no recovery.
package parser

import (
	"fmt"
	"strconv"

	"github.com/yasurirashmika/dtlc/internal/ast"
	"github.com/yasurirashmika/dtlc/internal/lexer"
)

// Error represents a syntax error with its 1-based source line.
type Error struct {
	Line int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Parser consumes a token sequence and produces a Program.
type Parser struct {
	tokens []lexer.Token
	pos    int
}

// New creates a parser over the given tokens. The sequence must be
// terminated by an EOF token, as produced by the lexer.
func New(tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse returns the program in encounter order, or the first syntax error.
func (p *Parser) Parse() (*ast.Program, error) {
	prog := &ast.Program{}
	for p.peek().Kind != lexer.KindEOF {
		cmd, err := p.parseCommand()
		if err != nil {
			return nil, err
		}
		prog.Commands = append(prog.Commands, cmd)
	}
	return prog, nil
}

func (p *Parser) parseCommand() (ast.Command, error) {
	tok := p.peek()
	switch tok.Kind {
	case lexer.KindLoad:
		return p.parseLoad()
	case lexer.KindSkip:
		return p.parseSkip()
	case lexer.KindTrim:
		return p.parseTrim()
	case lexer.KindClean:
		return p.parseClean()
	case lexer.KindFillNa:
		return p.parseFillNa()
	case lexer.KindRename:
		return p.parseRename()
	case lexer.KindFilter:
		return p.parseFilter()
	case lexer.KindSelect:
		return p.parseSelect()
	case lexer.KindSort:
		return p.parseSort()
	case lexer.KindSave:
		return p.parseSave()
	case lexer.KindGroup:
		return p.parseGroup()
	default:
		return nil, p.errorf(tok, "unexpected token %s", tok.Kind)
	}
}

func (p *Parser) parseLoad() (ast.Command, error) {
	p.advance() // load
	name, err := p.expect(lexer.KindString, "expected filename string after 'load'")
	if err != nil {
		return nil, err
	}
	return &ast.Load{Filename: name.Value}, nil
}

func (p *Parser) parseSkip() (ast.Command, error) {
	tok := p.advance() // skip
	num, err := p.expect(lexer.KindNumber, "expected number after 'skip'")
	if err != nil {
		return nil, err
	}
	rows, err := strconv.Atoi(num.Value)
	if err != nil || rows < 0 {
		return nil, p.errorf(tok, "'skip' requires a non-negative integer, got %q", num.Value)
	}
	return &ast.Skip{Rows: rows}, nil
}

func (p *Parser) parseTrim() (ast.Command, error) {
	p.advance() // trim
	return &ast.Trim{}, nil
}

// parseClean handles: clean missing {drop|ffill|bfill} | clean duplicates
func (p *Parser) parseClean() (ast.Command, error) {
	p.advance() // clean

	switch tok := p.peek(); tok.Kind {
	case lexer.KindMissing:
		p.advance()
		strategy := p.peek()
		switch strategy.Kind {
		case lexer.KindDrop, lexer.KindFFill, lexer.KindBFill:
			p.advance()
			return &ast.Clean{Kind: ast.CleanMissing, Strategy: lowerValue(strategy)}, nil
		default:
			return nil, p.errorf(strategy, "expected drop, ffill or bfill after 'clean missing'")
		}
	case lexer.KindDuplicates:
		p.advance()
		return &ast.Clean{Kind: ast.CleanDuplicates, Strategy: ast.StrategyDrop}, nil
	default:
		return nil, p.errorf(tok, "expected 'missing' or 'duplicates' after 'clean'")
	}
}

// parseFillNa handles: fillna COLUMN VALUE, where VALUE is a number, the
// NaN literal, a string, or a bare identifier (re-quoted as a string).
func (p *Parser) parseFillNa() (ast.Command, error) {
	p.advance() // fillna
	column, err := p.expect(lexer.KindIdent, "expected column name after 'fillna'")
	if err != nil {
		return nil, err
	}

	var value string
	switch tok := p.peek(); tok.Kind {
	case lexer.KindNumber:
		value = tok.Value
	case lexer.KindNaN:
		value = ast.MissingValue
	case lexer.KindString, lexer.KindIdent:
		value = quote(tok.Value)
	default:
		return nil, p.errorf(tok, "expected fill value after column name")
	}
	p.advance()

	return &ast.Clean{Kind: ast.CleanFillNa, Column: column.Value, Value: value}, nil
}

func (p *Parser) parseRename() (ast.Command, error) {
	p.advance() // rename
	oldName, err := p.expect(lexer.KindIdent, "expected old column name after 'rename'")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.KindTo, "expected 'to' after old column name"); err != nil {
		return nil, err
	}
	newName, err := p.expect(lexer.KindIdent, "expected new column name after 'to'")
	if err != nil {
		return nil, err
	}
	return &ast.Rename{OldName: oldName.Value, NewName: newName.Value}, nil
}

func (p *Parser) parseFilter() (ast.Command, error) {
	p.advance() // filter
	column, err := p.expect(lexer.KindIdent, "expected column name after 'filter'")
	if err != nil {
		return nil, err
	}

	op := p.peek()
	if !isComparison(op.Kind) {
		return nil, p.errorf(op, "expected comparison operator after column name")
	}
	p.advance()

	var value string
	switch tok := p.peek(); tok.Kind {
	case lexer.KindNumber:
		value = tok.Value
	case lexer.KindNaN:
		value = ast.MissingValue
	case lexer.KindString, lexer.KindIdent:
		value = quote(tok.Value)
	default:
		return nil, p.errorf(tok, "expected comparison value after operator")
	}
	p.advance()

	return &ast.Filter{Column: column.Value, Operator: op.Value, Value: value}, nil
}

func (p *Parser) parseSelect() (ast.Command, error) {
	p.advance() // select
	first, err := p.expect(lexer.KindIdent, "expected column name after 'select'")
	if err != nil {
		return nil, err
	}
	columns := []string{first.Value}
	for p.peek().Kind == lexer.KindComma {
		p.advance()
		col, err := p.expect(lexer.KindIdent, "expected column name after ','")
		if err != nil {
			return nil, err
		}
		columns = append(columns, col.Value)
	}
	return &ast.Select{Columns: columns}, nil
}

// parseSort handles: sort by COLUMN [asc|desc], defaulting to ascending.
func (p *Parser) parseSort() (ast.Command, error) {
	p.advance() // sort
	if _, err := p.expect(lexer.KindBy, "expected 'by' after 'sort'"); err != nil {
		return nil, err
	}
	column, err := p.expect(lexer.KindIdent, "expected column name after 'sort by'")
	if err != nil {
		return nil, err
	}

	order := ast.OrderAsc
	if tok := p.peek(); tok.Kind == lexer.KindAsc || tok.Kind == lexer.KindDesc {
		order = lowerValue(tok)
		p.advance()
	}
	return &ast.Sort{Column: column.Value, Order: order}, nil
}

func (p *Parser) parseSave() (ast.Command, error) {
	p.advance() // save
	name, err := p.expect(lexer.KindString, "expected filename string after 'save'")
	if err != nil {
		return nil, err
	}
	return &ast.Save{Filename: name.Value}, nil
}

// parseGroup handles: group by COLUMN {sum|avg|count|max|min} COLUMN
func (p *Parser) parseGroup() (ast.Command, error) {
	p.advance() // group
	if _, err := p.expect(lexer.KindBy, "expected 'by' after 'group'"); err != nil {
		return nil, err
	}
	byColumn, err := p.expect(lexer.KindIdent, "expected grouping column after 'group by'")
	if err != nil {
		return nil, err
	}

	fn := p.peek()
	if !isAggregate(fn.Kind) {
		return nil, p.errorf(fn, "expected aggregate function (sum, avg, count, max, min)")
	}
	p.advance()

	aggColumn, err := p.expect(lexer.KindIdent, "expected aggregate column after function")
	if err != nil {
		return nil, err
	}
	return &ast.GroupBy{
		ByColumn:  byColumn.Value,
		AggColumn: aggColumn.Value,
		AggFunc:   lowerValue(fn),
	}, nil
}

// Helpers

func (p *Parser) peek() lexer.Token {
	if p.pos >= len(p.tokens) {
		return lexer.Token{Kind: lexer.KindEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) advance() lexer.Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(kind lexer.Kind, msg string) (lexer.Token, error) {
	tok := p.peek()
	if tok.Kind != kind {
		return lexer.Token{}, p.errorf(tok, "%s (found %s)", msg, tok.Kind)
	}
	return p.advance(), nil
}

func (p *Parser) errorf(tok lexer.Token, format string, args ...any) error {
	return &Error{Line: tok.Line, Msg: fmt.Sprintf(format, args...)}
}

func isComparison(k lexer.Kind) bool {
	switch k {
	case lexer.KindGT, lexer.KindLT, lexer.KindGTE, lexer.KindLTE, lexer.KindEQ, lexer.KindNEQ:
		return true
	}
	return false
}

func isAggregate(k lexer.Kind) bool {
	switch k {
	case lexer.KindSum, lexer.KindAvg, lexer.KindCount, lexer.KindMax, lexer.KindMin:
		return true
	}
	return false
}

func lowerValue(tok lexer.Token) string {
	// Keywords match case-insensitively; the canonical form is lowercase.
	b := []byte(tok.Value)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func quote(s string) string {
	return `"` + s + `"`
}
