// Package ast defines the abstract syntax tree for DTL programs.
//
// A program is a flat ordered list of command nodes; order is semantically
// meaningful because every command operates on the one implicit running
// table. The Command interface is sealed so the set of node kinds stays
// closed and switches over it stay exhaustive.
package ast

import (
	"fmt"
	"strings"
)

// MissingValue is the canonical value recorded for the NaN literal.
// The code generator maps it to the engine's missing-value sentinel.
const MissingValue = "NaN"

// Command is the interface implemented by all DTL command nodes.
type Command interface {
	fmt.Stringer
	command() // marker method to keep the union closed
}

// Program is an ordered sequence of commands in encounter order.
type Program struct {
	Commands []Command
}

// Load reads a delimited file into the running table.
type Load struct {
	Filename string
}

// Save writes the running table to a delimited file.
type Save struct {
	Filename string
}

// Skip elides the first Rows rows; when it directly follows Load, the code
// generator folds it into the read itself.
type Skip struct {
	Rows int
}

// Trim strips surrounding whitespace from all string columns.
type Trim struct{}

// CleanKind identifies the cleaning operation of a Clean node.
type CleanKind int

// CleanKind constants.
const (
	CleanMissing CleanKind = iota
	CleanDuplicates
	CleanFillNa
)

func (k CleanKind) String() string {
	switch k {
	case CleanMissing:
		return "missing"
	case CleanDuplicates:
		return "duplicates"
	case CleanFillNa:
		return "fillna"
	default:
		return "unknown"
	}
}

// Missing-value strategies for Clean{CleanMissing}.
const (
	StrategyDrop         = "drop"
	StrategyForwardFill  = "ffill"
	StrategyBackwardFill = "bfill"
)

// Clean performs a data-cleaning operation. Strategy is set for CleanMissing,
// Column and Value for CleanFillNa.
type Clean struct {
	Kind     CleanKind
	Strategy string
	Column   string
	Value    string
}

// Filter keeps only rows where Column Operator Value holds. String values
// carry one layer of quotes; the code generator unquotes them once.
type Filter struct {
	Column   string
	Operator string
	Value    string
}

// Select narrows the table to exactly the named columns, in order.
type Select struct {
	Columns []string
}

// Sort orders. Valid orders for Sort.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Sort orders rows by Column.
type Sort struct {
	Column string
	Order  string
}

// Rename replaces the column name OldName with NewName.
type Rename struct {
	OldName string
	NewName string
}

// GroupBy groups rows by ByColumn and aggregates AggColumn with AggFunc
// (one of sum, avg, count, max, min).
type GroupBy struct {
	ByColumn  string
	AggColumn string
	AggFunc   string
}

func (*Load) command()    {}
func (*Save) command()    {}
func (*Skip) command()    {}
func (*Trim) command()    {}
func (*Clean) command()   {}
func (*Filter) command()  {}
func (*Select) command()  {}
func (*Sort) command()    {}
func (*Rename) command()  {}
func (*GroupBy) command() {}

func (n *Load) String() string { return fmt.Sprintf("Load(%q)", n.Filename) }
func (n *Save) String() string { return fmt.Sprintf("Save(%q)", n.Filename) }
func (n *Skip) String() string { return fmt.Sprintf("Skip(%d)", n.Rows) }
func (n *Trim) String() string { return "Trim()" }

func (n *Clean) String() string {
	switch n.Kind {
	case CleanFillNa:
		return fmt.Sprintf("Clean(fillna, %s=%s)", n.Column, n.Value)
	case CleanMissing:
		return fmt.Sprintf("Clean(missing, %s)", n.Strategy)
	default:
		return "Clean(duplicates)"
	}
}

func (n *Filter) String() string {
	return fmt.Sprintf("Filter(%s %s %s)", n.Column, n.Operator, n.Value)
}

func (n *Select) String() string {
	return fmt.Sprintf("Select(%s)", strings.Join(n.Columns, ", "))
}

func (n *Sort) String() string   { return fmt.Sprintf("Sort(%s, %s)", n.Column, n.Order) }
func (n *Rename) String() string { return fmt.Sprintf("Rename(%s -> %s)", n.OldName, n.NewName) }

func (n *GroupBy) String() string {
	return fmt.Sprintf("GroupBy(%s, %s(%s))", n.ByColumn, n.AggFunc, n.AggColumn)
}
