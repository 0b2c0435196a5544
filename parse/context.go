package parse

import "github.com/tmclaugh/slrgen/grammar"

// Context is the result of Interpreter.Evaluate: a snapshot of parser
// state for editor tooling, without running any reduction callback.
type Context struct {
	// Tags is the stack of context tags belonging to states above the
	// cursor, innermost last.
	Tags []int

	// StateTags is the context-tag list collected for the state reached
	// (slr.Table.Context for that state).
	StateTags []int

	// Shiftable maps every terminal the reached state could shift next to
	// the resulting state's own collected context tags.
	Shiftable map[int][]int

	// LastToken is the index (into the tokens slice passed to Evaluate) of
	// the last token actually processed before stopping.
	LastToken int

	// SyntaxError is true if evaluation stopped because no action existed
	// for (state, token) rather than because it reached offsetLimit.
	SyntaxError bool
}

// Evaluate runs the interpreter in "no-reduction" mode: reductions are
// still performed (they are required to reach the correct state), but no
// rule Method callback is invoked — every reduced semantic value is nil.
// Evaluation stops at the first token starting at or after offsetLimit, or
// at the first syntax error, whichever comes first. This supports editor
// tooling that needs to know "what could come next" without a complete,
// valid program (spec.md §6, SPEC_FULL.md §4.8).
func (ip *Interpreter) Evaluate(tokens []Token, offsetLimit int) (*Context, error) {
	rs := ip.tbl.RS
	stack := []frame{{state: 0}}
	pos := 0
	lastToken := -1

	for {
		top := stack[len(stack)-1]
		if pos >= len(tokens) {
			break
		}
		tok := tokens[pos]
		if tok.Start.Offset >= offsetLimit {
			break
		}

		if tok.Kind == rs.EndOfStream && ip.tbl.Accept[top.state] {
			lastToken = pos
			break
		}

		action := ip.tbl.Actions[top.state*ip.tbl.EntityCount+tok.Kind]
		switch {
		case action == 0:
			return ip.buildContext(stack, lastToken, true), nil
		case action > 0:
			stack = append(stack, frame{state: int(action) - 1, start: pos})
			pos++
			lastToken = pos - 1
		default:
			ruleID := int(-action) - 1
			next, err := ip.reduceNoValue(stack, rs, ruleID)
			if err != nil {
				return nil, err
			}
			stack = next
		}
	}

	return ip.buildContext(stack, lastToken, false), nil
}

// reduceNoValue performs the stack mechanics of a reduce without invoking
// the rule's Method callback.
func (ip *Interpreter) reduceNoValue(stack []frame, rs *grammar.RuleSet, ruleID int) ([]frame, error) {
	r := rs.Rules[ruleID]
	n := len(r.Steps)
	startIdx := 0
	for i := n - 1; i >= 0; i-- {
		startIdx = stack[len(stack)-1].start
		stack = stack[:len(stack)-1]
	}

	fromState := stack[len(stack)-1].state
	gotoAction := ip.tbl.Actions[fromState*ip.tbl.EntityCount+rs.EntityID(ruleID)]
	if gotoAction <= 0 {
		return nil, grammarInternalError(ruleID, fromState)
	}
	stack = append(stack, frame{state: int(gotoAction) - 1, start: startIdx})
	return stack, nil
}

func (ip *Interpreter) buildContext(stack []frame, lastToken int, syntaxErr bool) *Context {
	state := stack[len(stack)-1].state

	var tags []int
	seen := make(map[int]bool)
	for _, f := range stack {
		for _, tag := range ip.tbl.Context[f.state] {
			if !seen[*tag] {
				seen[*tag] = true
				tags = append(tags, *tag)
			}
		}
	}

	shiftable := make(map[int][]int)
	for t := 0; t < ip.tbl.RS.NumTokens; t++ {
		a := ip.tbl.Actions[state*ip.tbl.EntityCount+t]
		if a <= 0 {
			continue
		}
		next := int(a) - 1
		var nextTags []int
		for _, tag := range ip.tbl.Context[next] {
			nextTags = append(nextTags, *tag)
		}
		shiftable[t] = nextTags
	}

	var stateTags []int
	for _, tag := range ip.tbl.Context[state] {
		stateTags = append(stateTags, *tag)
	}

	return &Context{
		Tags:        tags,
		StateTags:   stateTags,
		Shiftable:   shiftable,
		LastToken:   lastToken,
		SyntaxError: syntaxErr,
	}
}
