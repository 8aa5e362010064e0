// Package errs provides the single parser error kind: every failure
// surfaces as a ParseError carrying a message and the character
// position where the faulty token began.
package errs

import (
	"fmt"
	"strings"

	"github.com/cwbudde/dynexpr/internal/token"
)

// ParseError is the one error kind the parser ever returns. There is
// no hierarchy of error types (lex/parse/name/type/literal are
// categories of message, not distinct Go types): callers match on
// *ParseError and read Pos for source-context reporting.
type ParseError struct {
	Message string
	Source  string
	Pos     token.Position
}

// New creates a ParseError. source is the original expression text,
// kept only for Format's caret rendering; it may be empty.
func New(pos token.Position, message, source string) *ParseError {
	return &ParseError{Message: message, Source: source, Pos: pos}
}

func (e *ParseError) Error() string { return e.Format() }

// Format renders the error with a single line of source context and a
// caret pointing at Pos, in the teacher's internal/errors style,
// simplified to the single-line case (an expression has no
// surrounding file or multiple lines).
func (e *ParseError) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "parse error at position %d: %s\n", e.Pos, e.Message)

	if e.Source != "" {
		b.WriteString(e.Source)
		b.WriteString("\n")
		col := int(e.Pos)
		if col > len(e.Source) {
			col = len(e.Source)
		}
		if col < 0 {
			col = 0
		}
		b.WriteString(strings.Repeat(" ", col))
		b.WriteString("^")
	}

	return b.String()
}

// ArgumentError is the façade-boundary error for a nil/empty source
// argument, distinct from ParseError because it never carries a
// meaningful position: the source never started being tokenized.
type ArgumentError struct {
	Message string
}

func (e *ArgumentError) Error() string { return e.Message }
