// Package grammar elaborates a declarative set of grammar rules (ranked
// result types, terminal/non-terminal/list parameters, optional parameters)
// into a normalized rule set: 2^k variants per optional-parameter rule, two
// synthesized rules per distinct list shape, and fixed-point first/follow
// (starting/reducing token) sets for every rule. This corresponds to
// spec.md §4.4.
package grammar

import (
	"github.com/tmclaugh/slrgen"
	"github.com/tmclaugh/slrgen/span"
)

// NoRank marks a NonTermSpec/ListSpec with no explicit rank cap: the
// effective cap is the maximum rank observed for that result type.
const NoRank = -1

// NoToken marks a ListSpec with no separator/terminator token.
const NoToken = -1

// ParamKind distinguishes the three parameter shapes a rule may declare.
type ParamKind int

const (
	ParamTerminal ParamKind = iota
	ParamNonTerminal
	ParamList
)

// TermSpec declares a terminal parameter: it accepts any of Tokens (each
// expanded to include its public descendants during elaboration).
type TermSpec struct {
	Tokens   []int
	Optional bool
}

// NonTermSpec declares a non-terminal parameter: it accepts any rule
// producing (Type, rank) for rank in [0, effective MaxRank].
type NonTermSpec struct {
	Type     int
	MaxRank  int
	Optional bool
}

// ListSpec declares a list-of-non-terminal parameter: an ordered sequence
// of ElemType values, at least Min of them, optionally separated by
// Separator and/or closed by Terminator.
type ListSpec struct {
	ElemType   int
	Min        int
	Separator  int
	Terminator int
	MaxRank    int
}

// Param is one parameter of a declared rule.
type Param struct {
	Kind    ParamKind
	Term    *TermSpec
	NonTerm *NonTermSpec
	List    *ListSpec
}

// Callback is a reduction callback: loc is the span covering every token
// consumed by the matched rule, args holds one value per declared
// parameter in order (a neutral default for a parameter the matched
// variant did not provide), and the return value is the rule's semantic
// value.
type Callback func(loc span.Span, args []any) (any, error)

// Declared is one user-declared grammar rule, prior to elaboration.
type Declared struct {
	Method     Callback
	ResultType int
	Rank       int
	ContextTag *int
	Params     []Param
}

// Fatal elaboration error codes (spec.md §4.4).
const (
	UnknownNonTerminalError = slrgen.GrammarErrors + iota
	UnknownListElementError
	UnsupportedParamError
)
