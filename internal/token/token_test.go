package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindString_KnownAndUnknown(t *testing.T) {
	assert.Equal(t, "IDENT", IDENT.String())
	assert.Equal(t, "<=", LESS_EQ.String())
	assert.Equal(t, "UNKNOWN", Kind(999).String())
}

func TestTokenString_IsItsText(t *testing.T) {
	tok := Token{Kind: IDENT, Text: "Name", Pos: 3}
	assert.Equal(t, "Name", tok.String())
	assert.Equal(t, Position(3), tok.Pos)
}
