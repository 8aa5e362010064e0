package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/dynexpr/internal/token"
)

func allTokens(t *testing.T, input string) []token.Token {
	t.Helper()
	l := New(input)
	var toks []token.Token
	for {
		tok, err := l.NextToken()
		require.Nil(t, err, "unexpected lexer error at %d", tok.Pos)
		toks = append(toks, tok)
		if tok.Kind == token.END {
			return toks
		}
	}
}

func TestNextToken_Identifiers(t *testing.T) {
	toks := allTokens(t, "Name it @0 $ ^Len ~")
	kinds := make([]token.Kind, len(toks))
	texts := make([]string, len(toks))
	for i, tok := range toks {
		kinds[i] = tok.Kind
		texts[i] = tok.Text
	}
	assert.Equal(t, []string{"Name", "it", "@0", "$", "^Len", "~", ""}, texts)
	for _, k := range kinds[:len(kinds)-1] {
		assert.Equal(t, token.IDENT, k)
	}
	assert.Equal(t, token.END, kinds[len(kinds)-1])
}

func TestNextToken_Punctuation_MaximalMunch(t *testing.T) {
	toks := allTokens(t, "<= < <> == = && &")
	kinds := []token.Kind{}
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal(t, []token.Kind{
		token.LESS_EQ, token.LESS, token.NOT_EQ_ALT, token.EQ_EQ,
		token.EQUAL, token.AND_AND, token.AMP, token.END,
	}, kinds)
}

func TestNextToken_StringLiteral_DoubledQuoteEscape(t *testing.T) {
	toks := allTokens(t, `"it''s fine"`)
	require.Len(t, toks, 2)
	assert.Equal(t, token.STRING, toks[0].Kind)
	assert.Equal(t, "it's fine", toks[0].Text)
}

func TestNextToken_StringLiteral_Unterminated(t *testing.T) {
	l := New(`"no closing quote`)
	_, err := l.NextToken()
	require.NotNil(t, err)
	assert.Contains(t, err.Message, "unterminated string literal")
}

func TestNextToken_CharLiteral_MustBeOneRune(t *testing.T) {
	l := New(`'ab'`)
	_, err := l.NextToken()
	require.NotNil(t, err)
	assert.Contains(t, err.Message, "exactly one character")
}

func TestNextToken_NumberLiterals(t *testing.T) {
	toks := allTokens(t, "42 3.14 2.5e10 10UB 5L")
	var kinds []token.Kind
	var texts []string
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
		texts = append(texts, tok.Text)
	}
	assert.Equal(t, []token.Kind{token.INT, token.REAL, token.REAL, token.INT, token.INT, token.END}, kinds)
	assert.Equal(t, []string{"42", "3.14", "2.5e10", "10UB", "5L", ""}, texts)
}

func TestNextToken_IllegalCharacter(t *testing.T) {
	l := New("#")
	tok, err := l.NextToken()
	require.NotNil(t, err)
	assert.Equal(t, token.ILLEGAL, tok.Kind)
	assert.Contains(t, err.Message, "illegal character")
}

func TestWithNumericSuffixes_ExtendsSuffixSet(t *testing.T) {
	l := New("10Q", WithNumericSuffixes("Q"))
	tok, err := l.NextToken()
	require.Nil(t, err)
	assert.Equal(t, "10Q", tok.Text)
}
