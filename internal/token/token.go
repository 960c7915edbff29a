package token

type TokenType string

const (
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"

	IDENT = "IDENT"
	INT   = "INT"

	COMMA     = ","
	SEMICOLON = ";"
	COLON     = ":"
	ASSIGN    = "="

	// '-' and '>' are lexed separately; the lexer cannot know whether the
	// syntax wants them individually or combined, so the parser assembles
	// ARROW and PATHSEP where the grammar expects them.
	MINUS = "-"
	GT    = ">"
	ARROW = "->"

	PATHSEP = "::"

	LBRACE = "{"
	RBRACE = "}"
	LPAREN = "("
	RPAREN = ")"

	MODULE   = "MODULE"
	CLASS    = "CLASS"
	LET      = "LET"
	FUNCTION = "FUNCTION"
	CONSTANT = "CONSTANT"
	MUTABLE  = "MUTABLE"
)

type Token struct {
	Type    TokenType
	Lexeme  string // the exact source text
	Literal string
	Line    int
	Column  int
}

var keywords = map[string]TokenType{
	"module":   MODULE,
	"class":    CLASS,
	"let":      LET,
	"function": FUNCTION,
	"constant": CONSTANT,
	"mutable":  MUTABLE,
}

// LookupIdent returns the keyword type for ident, or IDENT if it is not a
// keyword.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}
