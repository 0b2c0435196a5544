// Package parse implements the shift/reduce interpreter: it drives a
// constructed slr.Table over a token stream, invoking the grammar's
// reduction callbacks, and produces either a root semantic value or a
// structured syntax error (spec.md §4.6, §4.7).
package parse

import "github.com/tmclaugh/slrgen/span"

// Token is one lexeme fed to the interpreter. Kind must match a grammar
// entity id in [0, NumTokens); Value is the semantic value the grammar's
// reduction callbacks receive for a terminal parameter bound to this token
// (the token's Kind is not passed to callbacks). Start/Length locate the token in the
// original buffer so rule callbacks can be given an accurate Location.
type Token struct {
	Kind   int
	Value  any
	Start  span.Position
	Length int
}

func (t Token) span() span.Span { return span.Span{Start: t.Start, Length: t.Length} }
