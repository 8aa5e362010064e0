package errs

import (
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/stretchr/testify/assert"

	"github.com/cwbudde/dynexpr/internal/token"
)

func TestParseError_Error_IsFormat(t *testing.T) {
	e := New(token.Position(4), "unexpected token", "1 + + 2")
	assert.Equal(t, e.Format(), e.Error())
}

func TestParseError_Format_CaretAtPosition(t *testing.T) {
	e := New(token.Position(4), "unexpected token", "1 + + 2")
	snaps.MatchSnapshot(t, "caret_mid_expression", e.Format())
}

func TestParseError_Format_NoSource(t *testing.T) {
	e := New(token.Position(0), "expression text must not be empty", "")
	snaps.MatchSnapshot(t, "no_source_context", e.Format())
}

func TestParseError_Format_PositionPastEndOfSource(t *testing.T) {
	e := New(token.Position(100), "unexpected end of input", "1 +")
	snaps.MatchSnapshot(t, "caret_clamped_to_source_length", e.Format())
}

func TestArgumentError_Error(t *testing.T) {
	e := &ArgumentError{Message: "expression text must not be empty"}
	assert.Equal(t, "expression text must not be empty", e.Error())
}
