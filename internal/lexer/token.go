package lexer

// Kind identifies the type of a token.
type Kind int

// Kind constants for DTL token types.
const (
	// Command keywords
	KindLoad Kind = iota
	KindFilter
	KindSelect
	KindSort
	KindBy
	KindSave
	KindGroup
	KindClean
	KindFillNa
	KindSkip
	KindTrim
	KindRename

	// Cleaning keywords
	KindMissing
	KindDuplicates
	KindDrop
	KindFFill
	KindBFill
	KindTo

	// Order keywords
	KindAsc
	KindDesc

	// Aggregate functions
	KindSum
	KindAvg
	KindCount
	KindMax
	KindMin

	// Literals
	KindString
	KindNumber
	KindNaN // the missing-value literal, distinct from ordinary numbers
	KindIdent

	// Comparison operators
	KindGT
	KindLT
	KindGTE
	KindLTE
	KindEQ
	KindNEQ

	// Punctuation and end of input
	KindComma
	KindEOF
)

var kindNames = map[Kind]string{
	KindLoad:       "LOAD",
	KindFilter:     "FILTER",
	KindSelect:     "SELECT",
	KindSort:       "SORT",
	KindBy:         "BY",
	KindSave:       "SAVE",
	KindGroup:      "GROUP",
	KindClean:      "CLEAN",
	KindFillNa:     "FILLNA",
	KindSkip:       "SKIP",
	KindTrim:       "TRIM",
	KindRename:     "RENAME",
	KindMissing:    "MISSING",
	KindDuplicates: "DUPLICATES",
	KindDrop:       "DROP",
	KindFFill:      "FFILL",
	KindBFill:      "BFILL",
	KindTo:         "TO",
	KindAsc:        "ASC",
	KindDesc:       "DESC",
	KindSum:        "SUM",
	KindAvg:        "AVG",
	KindCount:      "COUNT",
	KindMax:        "MAX",
	KindMin:        "MIN",
	KindString:     "STRING",
	KindNumber:     "NUMBER",
	KindNaN:        "NAN",
	KindIdent:      "IDENTIFIER",
	KindGT:         "GT",
	KindLT:         "LT",
	KindGTE:        "GTE",
	KindLTE:        "LTE",
	KindEQ:         "EQ",
	KindNEQ:        "NEQ",
	KindComma:      "COMMA",
	KindEOF:        "EOF",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// Keywords maps canonical (lowercase) keyword text to its token kind.
// It is the single keyword table: the lexer consults it to classify words
// and the parser dispatches on the kinds it produces.
var Keywords = map[string]Kind{
	"load":       KindLoad,
	"filter":     KindFilter,
	"select":     KindSelect,
	"sort":       KindSort,
	"by":         KindBy,
	"save":       KindSave,
	"group":      KindGroup,
	"clean":      KindClean,
	"fillna":     KindFillNa,
	"skip":       KindSkip,
	"trim":       KindTrim,
	"rename":     KindRename,
	"missing":    KindMissing,
	"duplicates": KindDuplicates,
	"drop":       KindDrop,
	"ffill":      KindFFill,
	"bfill":      KindBFill,
	"to":         KindTo,
	"asc":        KindAsc,
	"desc":       KindDesc,
	"sum":        KindSum,
	"avg":        KindAvg,
	"count":      KindCount,
	"max":        KindMax,
	"min":        KindMin,
}

// operators maps operator text to its token kind. Two-character operators
// must be matched before their single-character prefixes.
var operators = map[string]Kind{
	">=": KindGTE,
	"<=": KindLTE,
	"==": KindEQ,
	"!=": KindNEQ,
	">":  KindGT,
	"<":  KindLT,
}

// Token represents a lexical token with its 1-based source line.
type Token struct {
	Kind  Kind
	Value string
	Line  int
}

func (t Token) String() string {
	return t.Kind.String() + "(" + t.Value + ")"
}
