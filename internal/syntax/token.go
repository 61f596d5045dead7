package syntax

type TokenType string

const (
	ILLEGAL  TokenType = "ILLEGAL"
	EOF      TokenType = "EOF"
	IDENT    TokenType = "IDENT"
	LIFETIME TokenType = "LIFETIME" // 'a, 'static
	INT      TokenType = "INT"
	INFER    TokenType = "INFER" // ?3

	LT        TokenType = "<"
	GT        TokenType = ">"
	LPAREN    TokenType = "("
	RPAREN    TokenType = ")"
	LBRACKET  TokenType = "["
	RBRACKET  TokenType = "]"
	COMMA     TokenType = ","
	SEMICOLON TokenType = ";"
	COLON     TokenType = ":"
	PATHSEP   TokenType = "::"
	AMP       TokenType = "&"
	ARROW     TokenType = "->"
	EQ        TokenType = "=="
	MINUS     TokenType = "-"

	AS     TokenType = "AS"
	FOR    TokenType = "FOR"
	FN     TokenType = "FN"
	WF     TokenType = "WF"
	RELATE TokenType = "RELATE"
	CONST  TokenType = "CONST"
)

var keywords = map[string]TokenType{
	"as":     AS,
	"for":    FOR,
	"fn":     FN,
	"wf":     WF,
	"relate": RELATE,
	"const":  CONST,
}

// LookupIdent returns the keyword type for ident, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}
