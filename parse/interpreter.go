package parse

import (
	"github.com/tmclaugh/slrgen/grammar"
	"github.com/tmclaugh/slrgen/slr"
	"github.com/tmclaugh/slrgen/span"
)

// frame is one parallel entry of the interpreter's stacks: the automaton
// state reached, the index of the first token this stack entry spans, and
// its semantic value (nil for a plain shift the grammar never reads).
type frame struct {
	state int
	start int
	value any
}

// Interpreter drives a constructed SLR(1) automaton over a token stream.
type Interpreter struct {
	tbl *slr.Table

	// Namer renders token kinds in syntax-error messages. Defaults to
	// DefaultNamer (bare kind ids) when nil.
	Namer TokenNamer
}

// New wraps a constructed automaton for repeated parsing.
func New(tbl *slr.Table) *Interpreter {
	return &Interpreter{tbl: tbl}
}

// Parse consumes tokens, which must be terminated by the grammar's
// EndOfStream kind, and returns the root semantic value. A syntax error is
// returned as *SyntaxError (see its Found/Expected fields); a reduction
// callback's own error is returned unwrapped.
func (ip *Interpreter) Parse(tokens []Token) (any, error) {
	rs := ip.tbl.RS
	stack := []frame{{state: 0}}
	pos := 0

	for {
		top := stack[len(stack)-1]
		tok := tokens[pos]

		if tok.Kind == rs.EndOfStream && ip.tbl.Accept[top.state] {
			return top.value, nil
		}

		action := ip.tbl.Actions[top.state*ip.tbl.EntityCount+tok.Kind]
		switch {
		case action == 0:
			return nil, ip.syntaxError(stack, tokens, pos)
		case action > 0:
			stack = append(stack, frame{state: int(action) - 1, start: pos, value: tok.Value})
			pos++
		default:
			ruleID := int(-action) - 1
			next, err := ip.reduce(stack, rs, ruleID, tokens, pos)
			if err != nil {
				return nil, err
			}
			stack = next
		}
	}
}

func (ip *Interpreter) reduce(stack []frame, rs *grammar.RuleSet, ruleID int, tokens []Token, pos int) ([]frame, error) {
	r := rs.Rules[ruleID]
	n := len(r.Steps)

	popped := make([]any, n)
	startIdx := pos
	for i := n - 1; i >= 0; i-- {
		top := stack[len(stack)-1]
		popped[i] = top.value
		startIdx = top.start
		stack = stack[:len(stack)-1]
	}

	var value any
	var err error
	switch {
	case r.IsListEnd:
		value = []any{popped[0]}
	case r.IsListLoop:
		sub, _ := popped[r.ListSubStepIndex].([]any)
		elems := make([]any, 0, len(sub)+1)
		for i, v := range popped {
			if i == r.ListSubStepIndex || r.Steps[i].IsTerminal {
				continue
			}
			elems = append(elems, v)
		}
		value = append(elems, sub...)
	default:
		args := make([]any, len(r.OriginalParams))
		for i, pi := range r.StepToParam {
			args[pi] = popped[i]
		}
		for i, ok := range r.Provided {
			if !ok {
				args[i] = neutralValue(r.OriginalParams[i])
			}
		}
		value, err = r.Method(ruleLocation(tokens, startIdx, pos), args)
		if err != nil {
			return nil, err
		}
	}

	fromState := stack[len(stack)-1].state
	gotoAction := ip.tbl.Actions[fromState*ip.tbl.EntityCount+rs.EntityID(ruleID)]
	if gotoAction <= 0 {
		return nil, grammarInternalError(ruleID, fromState)
	}
	stack = append(stack, frame{state: int(gotoAction) - 1, start: startIdx, value: value})
	return stack, nil
}

// ruleLocation computes the span covering every token consumed by a rule
// whose first step's start-token index is startIdx, given that pos is the
// index of the lookahead token just past the last one consumed.
func ruleLocation(tokens []Token, startIdx, pos int) span.Span {
	first := tokens[startIdx]
	if pos == 0 {
		return first.span()
	}
	last := tokens[pos-1]
	if last.Start.Offset+last.Length < first.Start.Offset {
		return first.span()
	}
	return span.Merge(first.span(), last.span())
}

func neutralValue(p grammar.Param) any {
	if p.Kind == grammar.ParamList {
		return []any{}
	}
	return nil
}
