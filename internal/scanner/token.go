package scanner

// Type enumerates the token kinds the scanner contract in spec.md §4.2
// and §6 requires: structural punctuation, comparison/equality operators,
// literals, keywords, plus Error and EOF.
type Type int

const (
	// Single-character punctuation.
	LeftParen Type = iota
	RightParen
	LeftBrace
	RightBrace
	Comma
	Dot
	Minus
	Plus
	Semicolon
	Slash
	Star

	// One or two character operators.
	Bang
	BangEqual
	Equal
	EqualEqual
	Greater
	GreaterEqual
	Less
	LessEqual

	// Literals.
	Identifier
	String
	Number

	// Keywords.
	And
	Class
	Else
	False
	For
	Fun
	If
	Nil
	Or
	Print
	Return
	Super
	This
	True
	Var
	While

	Error
	EOF
)

var keywords = map[string]Type{
	"and":    And,
	"class":  Class,
	"else":   Else,
	"false":  False,
	"for":    For,
	"fun":    Fun,
	"if":     If,
	"nil":    Nil,
	"or":     Or,
	"print":  Print,
	"return": Return,
	"super":  Super,
	"this":   This,
	"true":   True,
	"var":    Var,
	"while":  While,
}

// Token carries the token's kind, its lexeme (as a slice of the source
// held for the life of the scan, never copied), and the source line it
// started on.
type Token struct {
	Type   Type
	Lexeme string
	Line   int
}
