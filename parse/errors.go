package parse

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tmclaugh/slrgen"
	"github.com/tmclaugh/slrgen/span"
)

// posAdapter bridges span.Position (LineNum/ColNum, to avoid shadowing its
// own Line/Col fields) to slrgen.SourcePos (Line/Col methods).
type posAdapter struct{ p span.Position }

func (a posAdapter) SourceName() string { return a.p.SourceName() }
func (a posAdapter) Line() int          { return a.p.LineNum() }
func (a posAdapter) Col() int           { return a.p.ColNum() }

// TokenNamer renders a token kind id into the name used in syntax-error
// messages, and optionally folds one expected kind into another so near-
// duplicate expectations (e.g. a keyword and the identifier it refines)
// don't both appear in the expected set.
type TokenNamer interface {
	Name(kind int) string
	IsFolded(dominant, dominated int) bool
}

// DefaultNamer renders bare kind ids and folds nothing; callers that want
// readable messages supply their own TokenNamer (see Interpreter.Namer).
type DefaultNamer struct{}

func (DefaultNamer) Name(kind int) string     { return fmt.Sprintf("token %d", kind) }
func (DefaultNamer) IsFolded(a, b int) bool { return false }

// SyntaxError is returned by Interpreter.Parse on the first (state, token)
// with no action (spec.md §4.7). Expected is the simulated acceptable-token
// set, in ascending kind order.
// slrErr is a local alias for slrgen.Error, embedded below under a name
// that doesn't collide with its own promoted Error() method (embedding
// *slrgen.Error directly would name the field "Error", shadowing the
// method of the same name).
type slrErr = slrgen.Error

type SyntaxError struct {
	*slrErr
	Found    int
	Expected []int
}

func grammarInternalError(ruleID, fromState int) error {
	return slrgen.FormatError(slrgen.SyntaxErrors, "internal error: no goto for rule %d from state %d", ruleID, fromState)
}

// syntaxError builds the structured error for a (state, token) with no
// action, simulating reductions to compute the acceptable-token set.
func (ip *Interpreter) syntaxError(stack []frame, tokens []Token, pos int) error {
	states := make([]int, len(stack))
	for i, f := range stack {
		states[i] = f.state
	}
	expected := ip.acceptableTokens(states)

	namer := ip.Namer
	if namer == nil {
		namer = DefaultNamer{}
	}

	found := tokens[pos]
	msg := formatSyntaxError(namer, found.Kind, expected)

	base := slrgen.FormatErrorPos(posAdapter{found.Start}, slrgen.SyntaxErrors, "%s", msg)
	return &SyntaxError{slrErr: base, Found: found.Kind, Expected: expected}
}

// acceptableTokens computes every token kind that could be accepted from
// the current state, including via simulated reductions, per spec.md §4.7.
func (ip *Interpreter) acceptableTokens(states []int) []int {
	rs := ip.tbl.RS
	visited := make(map[int]bool)
	seen := make(map[int]bool)
	var order []int

	var rec func(state int, stack []int)
	rec = func(state int, stack []int) {
		if visited[state] {
			return
		}
		visited[state] = true

		for t := 0; t < rs.NumTokens; t++ {
			a := ip.tbl.Actions[state*ip.tbl.EntityCount+t]
			switch {
			case a > 0:
				if !seen[t] {
					seen[t] = true
					order = append(order, t)
				}
			case a < 0:
				ruleID := int(-a) - 1
				n := len(rs.Rules[ruleID].Steps)
				if n > len(stack) {
					continue
				}
				poppedDepth := len(stack) - n
				if poppedDepth == 0 {
					continue
				}
				newTop := stack[poppedDepth-1]
				a2 := ip.tbl.Actions[newTop*ip.tbl.EntityCount+rs.EntityID(ruleID)]
				if a2 > 0 {
					nextState := int(a2) - 1
					if !visited[nextState] {
						nextStack := append(append([]int{}, stack[:poppedDepth]...), nextState)
						rec(nextState, nextStack)
					}
				}
			}
		}
	}

	rec(states[len(states)-1], states)
	sort.Ints(order)
	return order
}

func formatSyntaxError(namer TokenNamer, found int, expected []int) string {
	names := make([]string, 0, len(expected))
	seen := make(map[string]bool)
	for _, e := range expected {
		folded := false
		for _, other := range expected {
			if other != e && namer.IsFolded(other, e) {
				folded = true
				break
			}
		}
		if folded {
			continue
		}
		name := namer.Name(e)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	foundName := namer.Name(found)
	switch len(names) {
	case 0:
		return "Syntax error, unexpected " + foundName + "."
	case 1:
		return "Syntax error, found " + foundName + " but expected " + names[0] + "."
	default:
		return "Syntax error, found " + foundName + " but expected " +
			strings.Join(names[:len(names)-1], ", ") + " or " + names[len(names)-1] + "."
	}
}
