package grammar

import (
	"testing"

	"github.com/tmclaugh/slrgen/span"
)

func noopMethod(loc span.Span, args []any) (any, error) { return nil, nil }

const (
	tElem = iota
	tSep
	tEOS
	listNumTokens
)

const (
	elemType = 10
	rootType = 20
)

func elemRule() Declared {
	return Declared{
		ResultType: elemType,
		Params: []Param{
			{Kind: ParamTerminal, Term: &TermSpec{Tokens: []int{tElem}}},
		},
		Method: noopMethod,
	}
}

func listRootRule(min int) Declared {
	return Declared{
		ResultType: rootType,
		Params: []Param{
			{Kind: ParamList, List: &ListSpec{ElemType: elemType, Min: min, Separator: tSep, Terminator: NoToken, MaxRank: NoRank}},
		},
		Method: noopMethod,
	}
}

func TestElaborateListMinTwo(t *testing.T) {
	rs, err := Elaborate(listNumTokens, tEOS, func(int) []int { return nil }, []Declared{elemRule(), listRootRule(2)}, rootType)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var loop, end *Rule
	var root *Rule
	for _, r := range rs.Rules {
		switch {
		case r.IsListEnd:
			end = r
		case r.IsListLoop:
			loop = r
		case r.ResultType == rootType:
			root = r
		}
	}
	if end == nil || loop == nil || root == nil {
		t.Fatalf("expected end/loop/root rules, got end=%v loop=%v root=%v", end, loop, root)
	}

	if len(root.Steps) != 1 || len(root.Steps[0].Sources) != 1 || root.Steps[0].Sources[0] != rs.EntityID(loop.ID) {
		t.Fatalf("min=2 root should reference LIST_LOOP only, got %+v", root.Steps)
	}
	if loop.ListSubStepIndex < 0 || loop.Steps[loop.ListSubStepIndex].IsTerminal {
		t.Fatalf("loop.ListSubStepIndex should point at the non-terminal sub-list step, got %d", loop.ListSubStepIndex)
	}
	wantSub := []int{rs.EntityID(end.ID), rs.EntityID(loop.ID)}
	gotSub := loop.Steps[loop.ListSubStepIndex].Sources
	if len(gotSub) != 2 || gotSub[0] != wantSub[0] || gotSub[1] != wantSub[1] {
		t.Fatalf("loop sub-list sources = %v, want %v", gotSub, wantSub)
	}
}

func TestElaborateListMinOne(t *testing.T) {
	rs, err := Elaborate(listNumTokens, tEOS, func(int) []int { return nil }, []Declared{elemRule(), listRootRule(1)}, rootType)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var end, loop, root *Rule
	for _, r := range rs.Rules {
		switch {
		case r.IsListEnd:
			end = r
		case r.IsListLoop:
			loop = r
		case r.ResultType == rootType:
			root = r
		}
	}
	if len(root.Steps[0].Sources) != 2 {
		t.Fatalf("min=1 root should reference {LIST_END, LIST_LOOP}, got %v", root.Steps[0].Sources)
	}
	want := map[int]bool{rs.EntityID(end.ID): true, rs.EntityID(loop.ID): true}
	for _, s := range root.Steps[0].Sources {
		if !want[s] {
			t.Fatalf("unexpected source %d in min=1 root steps", s)
		}
	}
}

func TestElaborateListMinThreeUnrolls(t *testing.T) {
	rs, err := Elaborate(listNumTokens, tEOS, func(int) []int { return nil }, []Declared{elemRule(), listRootRule(3)}, rootType)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var root *Rule
	var initCandidates []*Rule
	for _, r := range rs.Rules {
		switch {
		case r.IsListLoop:
			initCandidates = append(initCandidates, r)
		case r.ResultType == rootType:
			root = r
		}
	}
	if len(initCandidates) < 2 {
		t.Fatalf("expected both LIST_LOOP and a synthesized INIT rule, got %d list-loop rules", len(initCandidates))
	}
	// root references the INIT rule (neither the LIST_END nor plain LIST_LOOP IDs).
	if len(root.Steps[0].Sources) != 1 {
		t.Fatalf("min=3 root should reference exactly one (INIT) rule, got %v", root.Steps[0].Sources)
	}
	initID := root.Steps[0].Sources[0] - rs.NumTokens
	init := rs.Rules[initID]
	if !init.IsListLoop {
		t.Fatalf("expected root to reference a list-loop-shaped INIT rule")
	}
	// min=3 unrolls (min-2)=1 leading (element [separator]) pair before the
	// tail reference: element, separator, sub-list-reference.
	if len(init.Steps) != 3 {
		t.Fatalf("expected INIT to unroll to 3 steps (elem, sep, tail), got %d", len(init.Steps))
	}
	if init.ListSubStepIndex != 2 {
		t.Fatalf("expected ListSubStepIndex=2, got %d", init.ListSubStepIndex)
	}
	if !init.Steps[1].IsTerminal {
		t.Fatalf("expected step 1 (separator) to be terminal")
	}
}

func TestElaborateListTerminatorOnlyLoopShape(t *testing.T) {
	const (
		tTElem = iota
		tTerm
		tTEOS
		tNumTokens
	)
	elem := Declared{
		ResultType: elemType,
		Params:     []Param{{Kind: ParamTerminal, Term: &TermSpec{Tokens: []int{tTElem}}}},
		Method:     noopMethod,
	}
	root := Declared{
		ResultType: rootType,
		Params: []Param{
			{Kind: ParamList, List: &ListSpec{ElemType: elemType, Min: 1, Separator: NoToken, Terminator: tTerm, MaxRank: NoRank}},
		},
		Method: noopMethod,
	}

	rs, err := Elaborate(tNumTokens, tTEOS, func(int) []int { return nil }, []Declared{elem, root}, rootType)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var end, loop *Rule
	for _, r := range rs.Rules {
		switch {
		case r.IsListEnd:
			end = r
		case r.IsListLoop:
			loop = r
		}
	}
	if end == nil || loop == nil {
		t.Fatalf("expected end/loop rules, got end=%v loop=%v", end, loop)
	}

	// LIST_END: T E (element, then terminator).
	if len(end.Steps) != 2 || !end.Steps[1].IsTerminal || end.Steps[1].Sources[0] != tTerm {
		t.Fatalf("terminator-only LIST_END should be (elem, terminator), got %+v", end.Steps)
	}

	// LIST_LOOP: T E LIST (element, terminator, tail), not T LIST.
	if len(loop.Steps) != 3 {
		t.Fatalf("terminator-only LIST_LOOP should have 3 steps (elem, terminator, tail), got %d: %+v", len(loop.Steps), loop.Steps)
	}
	if !loop.Steps[1].IsTerminal || loop.Steps[1].Sources[0] != tTerm {
		t.Fatalf("LIST_LOOP step 1 should be the terminator token, got %+v", loop.Steps[1])
	}
	if loop.ListSubStepIndex != 2 {
		t.Fatalf("expected ListSubStepIndex=2, got %d", loop.ListSubStepIndex)
	}
}

func TestElaborateListMinZeroIsOptional(t *testing.T) {
	rs, err := Elaborate(listNumTokens, tEOS, func(int) []int { return nil }, []Declared{elemRule(), listRootRule(0)}, rootType)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var rootVariants []*Rule
	for _, r := range rs.Rules {
		if r.ResultType == rootType {
			rootVariants = append(rootVariants, r)
		}
	}
	if len(rootVariants) != 2 {
		t.Fatalf("min=0 list param should be optional, producing 2 rule variants, got %d", len(rootVariants))
	}
	sawEmpty, sawProvided := false, false
	for _, r := range rootVariants {
		if len(r.Steps) == 0 {
			sawEmpty = true
			if len(r.Provided) != 1 || r.Provided[0] {
				t.Fatalf("empty variant should have Provided=[false]")
			}
		} else {
			sawProvided = true
		}
	}
	if !sawEmpty || !sawProvided {
		t.Fatalf("expected one empty and one provided variant, got empty=%v provided=%v", sawEmpty, sawProvided)
	}
}

func TestElaborateOptionalParamExpansion(t *testing.T) {
	const (
		tA = iota
		tB
		tEOS2
		numTok
	)
	d := Declared{
		ResultType: 0,
		Params: []Param{
			{Kind: ParamTerminal, Term: &TermSpec{Tokens: []int{tA}, Optional: true}},
			{Kind: ParamTerminal, Term: &TermSpec{Tokens: []int{tB}, Optional: true}},
		},
		Method: noopMethod,
	}
	rs, err := Elaborate(numTok, tEOS2, func(int) []int { return nil }, []Declared{d}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var variants []*Rule
	for _, r := range rs.Rules {
		if !r.IsStart {
			variants = append(variants, r)
		}
	}
	if len(variants) != 4 {
		t.Fatalf("2 optional params should expand to 4 rules, got %d", len(variants))
	}

	seen := map[[2]bool]bool{}
	for _, r := range variants {
		if len(r.Provided) != 2 {
			t.Fatalf("expected 2 Provided entries, got %d", len(r.Provided))
		}
		key := [2]bool{r.Provided[0], r.Provided[1]}
		seen[key] = true

		if len(r.Steps) != len(r.StepToParam) {
			t.Fatalf("Steps/StepToParam length mismatch: %d vs %d", len(r.Steps), len(r.StepToParam))
		}
		wantSteps := 0
		if r.Provided[0] {
			wantSteps++
		}
		if r.Provided[1] {
			wantSteps++
		}
		if len(r.Steps) != wantSteps {
			t.Fatalf("Provided=%v should produce %d steps, got %d", r.Provided, wantSteps, len(r.Steps))
		}
		for i, pi := range r.StepToParam {
			if !r.Provided[pi] {
				t.Fatalf("StepToParam[%d]=%d points at an unprovided param", i, pi)
			}
		}
	}
	for _, combo := range [][2]bool{{false, false}, {false, true}, {true, false}, {true, true}} {
		if !seen[combo] {
			t.Fatalf("missing expected variant for Provided=%v", combo)
		}
	}
}

func TestElaborateRankedTypeCap(t *testing.T) {
	const (
		tNum = iota
		tPlus
		tEOS3
		numTok
	)
	const valType = 0

	atom := Declared{
		ResultType: valType,
		Rank:       0,
		Params:     []Param{{Kind: ParamTerminal, Term: &TermSpec{Tokens: []int{tNum}}}},
		Method:     noopMethod,
	}
	sum := Declared{
		ResultType: valType,
		Rank:       1,
		Params: []Param{
			{Kind: ParamNonTerminal, NonTerm: &NonTermSpec{Type: valType, MaxRank: 1}},
			{Kind: ParamTerminal, Term: &TermSpec{Tokens: []int{tPlus}}},
			{Kind: ParamNonTerminal, NonTerm: &NonTermSpec{Type: valType, MaxRank: 0}},
		},
		Method: noopMethod,
	}

	rs, err := Elaborate(numTok, tEOS3, func(int) []int { return nil }, []Declared{atom, sum}, valType)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rs.MaxRank[valType] != 1 {
		t.Fatalf("MaxRank[valType] = %d, want 1", rs.MaxRank[valType])
	}
	if len(rs.InitialRules) != 1 {
		t.Fatalf("expected exactly one synthesized start rule, got %d", len(rs.InitialRules))
	}
	if !rs.Rules[rs.InitialRules[0]].IsStart {
		t.Fatal("the sole InitialRules entry should be the synthesized start rule")
	}

	var sumRule *Rule
	for _, r := range rs.Rules {
		if !r.IsStart && r.Rank == 1 {
			sumRule = r
		}
	}
	// The rank<=1 non-terminal step must accept both the rank-0 atom rule
	// and the rank-1 sum rule itself (left recursion).
	gotLeft := sumRule.Steps[0].Sources
	if len(gotLeft) != 2 {
		t.Fatalf("rank<=1 step should accept 2 alternative rules, got %v", gotLeft)
	}
	// The rank<=0 non-terminal step must accept only the atom rule.
	gotRight := sumRule.Steps[2].Sources
	if len(gotRight) != 1 {
		t.Fatalf("rank<=0 step should accept exactly 1 alternative rule, got %v", gotRight)
	}
}

func TestElaborateFirstFollowFixedPoint(t *testing.T) {
	const (
		tNum = iota
		tPlus
		tEOS4
		numTok
	)
	const valType = 0

	atom := Declared{
		ResultType: valType,
		Rank:       0,
		Params:     []Param{{Kind: ParamTerminal, Term: &TermSpec{Tokens: []int{tNum}}}},
		Method:     noopMethod,
	}
	sum := Declared{
		ResultType: valType,
		Rank:       1,
		Params: []Param{
			{Kind: ParamNonTerminal, NonTerm: &NonTermSpec{Type: valType, MaxRank: 1}},
			{Kind: ParamTerminal, Term: &TermSpec{Tokens: []int{tPlus}}},
			{Kind: ParamNonTerminal, NonTerm: &NonTermSpec{Type: valType, MaxRank: 0}},
		},
		Method: noopMethod,
	}

	rs, err := Elaborate(numTok, tEOS4, func(int) []int { return nil }, []Declared{atom, sum}, valType)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var atomRule, sumRule *Rule
	for _, r := range rs.Rules {
		if r.IsStart {
			continue
		}
		if r.Rank == 0 {
			atomRule = r
		} else {
			sumRule = r
		}
	}

	if !atomRule.StartingTokens.Contains(tNum) {
		t.Fatal("atom rule should start with tNum")
	}
	if !sumRule.StartingTokens.Contains(tNum) {
		t.Fatal("sum rule should start with tNum (via its left-recursive/atom alternative)")
	}

	// atom's follow set: tPlus (from the sum rule's second step) and EOS
	// (atom is also a legal complete parse on its own, rank 0 <= MaxRank,
	// so it's one of the synthesized start rule's alternatives).
	if !atomRule.ReducingTokens.Contains(tPlus) {
		t.Fatal("atom rule should be followed by tPlus")
	}
	if !atomRule.ReducingTokens.Contains(tEOS4) {
		t.Fatal("atom rule should be followed by EndOfStream (reachable from the start rule)")
	}
	if !sumRule.ReducingTokens.Contains(tEOS4) {
		t.Fatal("sum rule should be followed by EndOfStream (reachable from the start rule)")
	}
}

func TestElaborateUnknownNonTerminalError(t *testing.T) {
	d := Declared{
		ResultType: 0,
		Params: []Param{
			{Kind: ParamNonTerminal, NonTerm: &NonTermSpec{Type: 999, MaxRank: NoRank}},
		},
		Method: noopMethod,
	}
	_, err := Elaborate(1, 0, func(int) []int { return nil }, []Declared{d}, 0)
	if err == nil {
		t.Fatal("expected UnknownNonTerminalError")
	}
}

func TestElaborateUnknownListElementError(t *testing.T) {
	d := Declared{
		ResultType: 0,
		Params: []Param{
			{Kind: ParamList, List: &ListSpec{ElemType: 999, Min: 1, Separator: NoToken, Terminator: NoToken, MaxRank: NoRank}},
		},
		Method: noopMethod,
	}
	_, err := Elaborate(1, 0, func(int) []int { return nil }, []Declared{d}, 0)
	if err == nil {
		t.Fatal("expected UnknownListElementError")
	}
}

func TestElaborateUnsupportedParamError(t *testing.T) {
	d := Declared{
		ResultType: 0,
		Params: []Param{
			{Kind: ParamKind(99)},
		},
		Method: noopMethod,
	}
	_, err := Elaborate(1, 0, func(int) []int { return nil }, []Declared{d}, 0)
	if err == nil {
		t.Fatal("expected UnsupportedParamError")
	}
}
