package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, source string) []Token {
	t.Helper()
	s := New(source)
	var toks []Token
	for {
		tok := s.ScanToken()
		toks = append(toks, tok)
		if tok.Type == EOF {
			break
		}
	}
	return toks
}

func TestScanSimpleExpression(t *testing.T) {
	toks := scanAll(t, "1 + 2 * 3;")
	types := make([]Type, len(toks))
	for i, tok := range toks {
		types[i] = tok.Type
	}
	assert.Equal(t, []Type{Number, Plus, Number, Star, Number, Semicolon, EOF}, types)
}

func TestScanKeywordsAndIdentifiers(t *testing.T) {
	toks := scanAll(t, "var x = true;")
	require.Len(t, toks, 6)
	assert.Equal(t, Var, toks[0].Type)
	assert.Equal(t, Identifier, toks[1].Type)
	assert.Equal(t, "x", toks[1].Lexeme)
	assert.Equal(t, Equal, toks[2].Type)
	assert.Equal(t, True, toks[3].Type)
	assert.Equal(t, Semicolon, toks[4].Type)
}

func TestScanString(t *testing.T) {
	toks := scanAll(t, `"foobar"`)
	require.Equal(t, String, toks[0].Type)
	assert.Equal(t, `"foobar"`, toks[0].Lexeme)
}

func TestScanMultilineString(t *testing.T) {
	toks := scanAll(t, "\"a\nb\"\n1")
	require.Equal(t, String, toks[0].Type)
	assert.Equal(t, Number, toks[1].Type)
	assert.Equal(t, 3, toks[1].Line)
}

func TestUnterminatedString(t *testing.T) {
	toks := scanAll(t, `"unterminated`)
	assert.Equal(t, Error, toks[0].Type)
}

func TestLineCommentSkipped(t *testing.T) {
	toks := scanAll(t, "// comment\n1")
	assert.Equal(t, Number, toks[0].Type)
	assert.Equal(t, 2, toks[0].Line)
}

func TestNestedBlockComment(t *testing.T) {
	toks := scanAll(t, "/* outer /* inner */ still comment */ 1")
	assert.Equal(t, Number, toks[0].Type)
}

func TestUnterminatedBlockCommentIsErrorToken(t *testing.T) {
	toks := scanAll(t, "/* never closed")
	assert.Equal(t, Error, toks[0].Type)
	assert.Equal(t, "Unterminated block comment.", toks[0].Lexeme)
}

func TestTwoCharOperators(t *testing.T) {
	toks := scanAll(t, "!= == >= <=")
	types := make([]Type, 0, 4)
	for _, tok := range toks {
		if tok.Type != EOF {
			types = append(types, tok.Type)
		}
	}
	assert.Equal(t, []Type{BangEqual, EqualEqual, GreaterEqual, LessEqual}, types)
}

func TestNumberWithFraction(t *testing.T) {
	toks := scanAll(t, "3.14")
	assert.Equal(t, Number, toks[0].Type)
	assert.Equal(t, "3.14", toks[0].Lexeme)
}
