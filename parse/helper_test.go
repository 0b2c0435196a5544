package parse

import (
	"github.com/tmclaugh/slrgen/grammar"
	"github.com/tmclaugh/slrgen/slr"
	"github.com/tmclaugh/slrgen/span"
)

// Shared grammar fixtures for interpreter/error/context tests: a small
// ranked-sum grammar (number + number, left-recursive) and a list grammar
// parameterized by min, both built through the real grammar.Elaborate ->
// slr.Build pipeline rather than hand-rolled tables.

const (
	sumNum = iota
	sumPlus
	sumEOS
	sumNumTokens
)

const sumValueType = 0

// buildSumGrammar returns an Interpreter for: atom -> num (rank 0);
// sum -> sum '+' num (rank 1, left recursive). locs, if non-nil, receives
// one entry per sum-rule reduction's Location.
func buildSumGrammar(locs *[]span.Span) *Interpreter {
	atom := grammar.Declared{
		ResultType: sumValueType,
		Rank:       0,
		Params:     []grammar.Param{{Kind: grammar.ParamTerminal, Term: &grammar.TermSpec{Tokens: []int{sumNum}}}},
		Method: func(loc span.Span, args []any) (any, error) {
			return args[0], nil
		},
	}
	sum := grammar.Declared{
		ResultType: sumValueType,
		Rank:       1,
		Params: []grammar.Param{
			{Kind: grammar.ParamNonTerminal, NonTerm: &grammar.NonTermSpec{Type: sumValueType, MaxRank: 1}},
			{Kind: grammar.ParamTerminal, Term: &grammar.TermSpec{Tokens: []int{sumPlus}}},
			{Kind: grammar.ParamNonTerminal, NonTerm: &grammar.NonTermSpec{Type: sumValueType, MaxRank: 0}},
		},
		Method: func(loc span.Span, args []any) (any, error) {
			if locs != nil {
				*locs = append(*locs, loc)
			}
			return args[0].(float64) + args[2].(float64), nil
		},
	}

	rs, err := grammar.Elaborate(sumNumTokens, sumEOS, func(int) []int { return nil }, []grammar.Declared{atom, sum}, sumValueType)
	if err != nil {
		panic(err)
	}
	tbl, err := slr.Build(rs)
	if err != nil {
		panic(err)
	}
	return New(tbl)
}

// buildSumGrammarSpy is buildSumGrammar's grammar, instrumented to set
// *called when the sum rule's Method runs (used to assert Evaluate never
// invokes it).
func buildSumGrammarSpy(called *bool) *Interpreter {
	atom := grammar.Declared{
		ResultType: sumValueType,
		Rank:       0,
		Params:     []grammar.Param{{Kind: grammar.ParamTerminal, Term: &grammar.TermSpec{Tokens: []int{sumNum}}}},
		Method: func(loc span.Span, args []any) (any, error) {
			return args[0], nil
		},
	}
	sum := grammar.Declared{
		ResultType: sumValueType,
		Rank:       1,
		Params: []grammar.Param{
			{Kind: grammar.ParamNonTerminal, NonTerm: &grammar.NonTermSpec{Type: sumValueType, MaxRank: 1}},
			{Kind: grammar.ParamTerminal, Term: &grammar.TermSpec{Tokens: []int{sumPlus}}},
			{Kind: grammar.ParamNonTerminal, NonTerm: &grammar.NonTermSpec{Type: sumValueType, MaxRank: 0}},
		},
		Method: func(loc span.Span, args []any) (any, error) {
			*called = true
			return args[0].(float64) + args[2].(float64), nil
		},
	}

	rs, err := grammar.Elaborate(sumNumTokens, sumEOS, func(int) []int { return nil }, []grammar.Declared{atom, sum}, sumValueType)
	if err != nil {
		panic(err)
	}
	tbl, err := slr.Build(rs)
	if err != nil {
		panic(err)
	}
	return New(tbl)
}

const (
	listNum = iota
	listComma
	listEOS
	listNumTokens
)

const (
	listElemType = 10
	listRootType = 20
)

// buildListGrammar returns an Interpreter for a comma-separated list of
// numbers with the given minimum element count.
func buildListGrammar(min int) *Interpreter {
	elem := grammar.Declared{
		ResultType: listElemType,
		Params:     []grammar.Param{{Kind: grammar.ParamTerminal, Term: &grammar.TermSpec{Tokens: []int{listNum}}}},
		Method: func(loc span.Span, args []any) (any, error) {
			return args[0], nil
		},
	}
	root := grammar.Declared{
		ResultType: listRootType,
		Params: []grammar.Param{
			{Kind: grammar.ParamList, List: &grammar.ListSpec{ElemType: listElemType, Min: min, Separator: listComma, Terminator: grammar.NoToken, MaxRank: grammar.NoRank}},
		},
		Method: func(loc span.Span, args []any) (any, error) {
			return args[0], nil
		},
	}

	rs, err := grammar.Elaborate(listNumTokens, listEOS, func(int) []int { return nil }, []grammar.Declared{elem, root}, listRootType)
	if err != nil {
		panic(err)
	}
	tbl, err := slr.Build(rs)
	if err != nil {
		panic(err)
	}
	return New(tbl)
}

const listTerm = listComma + 10

// buildTerminatedListGrammar returns an Interpreter for a list of numbers
// each followed by a terminator token (no separator), with the given
// minimum element count.
func buildTerminatedListGrammar(min int) *Interpreter {
	elem := grammar.Declared{
		ResultType: listElemType,
		Params:     []grammar.Param{{Kind: grammar.ParamTerminal, Term: &grammar.TermSpec{Tokens: []int{listNum}}}},
		Method: func(loc span.Span, args []any) (any, error) {
			return args[0], nil
		},
	}
	root := grammar.Declared{
		ResultType: listRootType,
		Params: []grammar.Param{
			{Kind: grammar.ParamList, List: &grammar.ListSpec{ElemType: listElemType, Min: min, Separator: grammar.NoToken, Terminator: listTerm, MaxRank: grammar.NoRank}},
		},
		Method: func(loc span.Span, args []any) (any, error) {
			return args[0], nil
		},
	}

	rs, err := grammar.Elaborate(listTerm+1, listEOS, func(int) []int { return nil }, []grammar.Declared{elem, root}, listRootType)
	if err != nil {
		panic(err)
	}
	tbl, err := slr.Build(rs)
	if err != nil {
		panic(err)
	}
	return New(tbl)
}

func numTok(kind int, value float64, offset int) Token {
	return Token{Kind: kind, Value: value, Start: span.Position{Offset: offset, Line: 1, Col: offset + 1}, Length: 1}
}

func plainTok(kind, offset, length int) Token {
	return Token{Kind: kind, Start: span.Position{Offset: offset, Line: 1, Col: offset + 1}, Length: length}
}
