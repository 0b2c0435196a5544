package grammar

import (
	"sort"

	"github.com/tmclaugh/slrgen"
	"github.com/tmclaugh/slrgen/internal/bitset"
	"github.com/tmclaugh/slrgen/span"
)

// RankedType identifies a semantic type at a given precedence rank.
type RankedType struct {
	Type int
	Rank int
}

// Step is one symbol position of an elaborated rule: either a terminal
// (Sources is a token kind id set, already expanded with public
// descendants) or a non-terminal (Sources is the set of rule ids that may
// reduce into this position).
type Step struct {
	Sources    []int
	IsTerminal bool
	Tag        *int
}

// Rule is one elaborated production. Ordinary rules carry Method and
// ResultType/Rank; list rules (IsListEnd/IsListLoop) carry ElementType
// instead and have no Method: the interpreter reduces them by assembling
// the element values into a []any slice.
type Rule struct {
	ID         int
	Method     Callback
	ResultType int
	Rank       int
	ContextTag *int

	// Steps holds one entry per PROVIDED parameter, in declaration order.
	// StepToParam[i] is the index into OriginalParams that Steps[i] binds.
	Steps          []Step
	StepToParam    []int
	OriginalParams []Param
	Provided       []bool

	StartingTokens *bitset.Set
	ReducingTokens *bitset.Set

	IsListEnd   bool
	IsListLoop  bool
	ElementType int

	// IsStart marks the single synthesized augmented start rule
	// (START -> rootValue) that Elaborate adds as the sole entry of
	// InitialRules. Its Method is a plain pass-through of its one child's
	// value; it exists so the automaton has exactly one accepting
	// completion, reached only after the genuine root-type rule has
	// already reduced (and its own Method has already run).
	IsStart bool

	// ListSubStepIndex is the index, within Steps, of the step that
	// references the recursive tail list ({LIST_END, LIST_LOOP}), or -1
	// if this rule has none (every IsListEnd rule, and every ordinary
	// Method rule). Every other non-terminal step of a list rule is an
	// element step, in left-to-right order.
	ListSubStepIndex int
}

// RuleSet is the fully elaborated grammar.
type RuleSet struct {
	NumTokens   int
	EndOfStream int
	Rules       []*Rule
	RankedRules map[RankedType][]int
	MaxRank     map[int]int
	RootType    int

	// InitialRules holds exactly one rule id: the synthesized augmented
	// start rule (see Rule.IsStart). Its own reduce is the only one that
	// may accept on EndOfStream, which guarantees the automaton accepts
	// only after the real root-type rule has reduced and its Method has
	// run.
	InitialRules []int
}

// EntityID maps a rule id to its entity id in the combined
// token/rule entity space (tokens occupy [0, NumTokens)).
func (rs *RuleSet) EntityID(ruleID int) int { return rs.NumTokens + ruleID }

// IsTerminalEntity reports whether id names a token kind rather than a rule.
func (rs *RuleSet) IsTerminalEntity(id int) bool { return id < rs.NumTokens }

type pendingNonTerm struct {
	ruleID    int
	stepIndex int
	ntType    int
	maxRank   int
}

type listShape struct {
	elemType, separator, terminator, maxRank int
}

// Elaborate normalizes declared rules into a RuleSet. expandPublic maps a
// token kind id to the ids of its public lexer sub-tokens (spec.md §4.4's
// "public descendant" expansion); pass a function returning nil if no
// lexer forest is in play. eos is the EndOfStream token kind id, used to
// seed reducing-token (follow) sets.
func Elaborate(numTokens int, eos int, expandPublic func(int) []int, declared []Declared, rootType int) (*RuleSet, error) {
	rs := &RuleSet{
		NumTokens:   numTokens,
		EndOfStream: eos,
		RankedRules: make(map[RankedType][]int),
		MaxRank:     make(map[int]int),
		RootType:    rootType,
	}

	produced := make(map[int]bool)
	for _, d := range declared {
		produced[d.ResultType] = true
		if d.Rank > rs.MaxRank[d.ResultType] {
			rs.MaxRank[d.ResultType] = d.Rank
		}
	}

	if err := validateDeclared(declared, produced); err != nil {
		return nil, err
	}

	shapes := make(map[listShape][2]int) // -> {endID, loopID}
	var pending []pendingNonTerm

	addRule := func(r *Rule) int {
		r.ID = len(rs.Rules)
		rs.Rules = append(rs.Rules, r)
		if !r.IsListEnd && !r.IsListLoop && !r.IsStart {
			rt := RankedType{r.ResultType, r.Rank}
			rs.RankedRules[rt] = append(rs.RankedRules[rt], r.ID)
		}
		return r.ID
	}

	var ensureListShape func(shape listShape) (endID, loopID int)
	ensureListShape = func(shape listShape) (int, int) {
		if ids, ok := shapes[shape]; ok {
			return ids[0], ids[1]
		}
		// Reserve ids first so LIST_LOOP can self-reference.
		end := &Rule{IsListEnd: true, ElementType: shape.elemType, ListSubStepIndex: -1}
		loop := &Rule{IsListLoop: true, ElementType: shape.elemType}
		endID := addRule(end)
		loopID := addRule(loop)
		shapes[shape] = [2]int{endID, loopID}

		elemMax := shape.maxRank
		if elemMax == NoRank {
			elemMax = rs.MaxRank[shape.elemType]
		}

		// LIST_END: T alone, or T followed by the terminator.
		end.Steps = append(end.Steps, Step{})
		pending = append(pending, pendingNonTerm{endID, 0, shape.elemType, elemMax})
		if shape.terminator != NoToken {
			end.Steps = append(end.Steps, Step{Sources: expandTokens(shape.terminator, expandPublic), IsTerminal: true})
		}

		// LIST_LOOP: T LIST, T S LIST, or T E LIST, where LIST is
		// {LIST_END, LIST_LOOP}. A separator is consumed between elements;
		// a terminator is consumed after each element instead (the two are
		// mutually exclusive per shape).
		loop.Steps = append(loop.Steps, Step{})
		pending = append(pending, pendingNonTerm{loopID, 0, shape.elemType, elemMax})
		switch {
		case shape.separator != NoToken:
			loop.Steps = append(loop.Steps, Step{Sources: expandTokens(shape.separator, expandPublic), IsTerminal: true})
		case shape.terminator != NoToken:
			loop.Steps = append(loop.Steps, Step{Sources: expandTokens(shape.terminator, expandPublic), IsTerminal: true})
		}
		loop.ListSubStepIndex = len(loop.Steps)
		loop.Steps = append(loop.Steps, Step{Sources: []int{rs.EntityID(endID), rs.EntityID(loopID)}})

		return endID, loopID
	}

	for di, d := range declared {
		optIdx := optionalParamIndexes(d.Params)
		k := len(optIdx)
		variants := 1 << uint(k)
		for v := 0; v < variants; v++ {
			provided := make([]bool, len(d.Params))
			for i := range d.Params {
				provided[i] = true
			}
			for bit, idx := range optIdx {
				provided[idx] = (v>>uint(bit))&1 == 1
			}

			r := &Rule{
				Method:           d.Method,
				ResultType:       d.ResultType,
				Rank:             d.Rank,
				ContextTag:       d.ContextTag,
				OriginalParams:   d.Params,
				Provided:         provided,
				ListSubStepIndex: -1,
			}
			ruleID := addRule(r)

			for pi, p := range d.Params {
				if !provided[pi] {
					continue
				}
				stepIdx := len(r.Steps)
				switch p.Kind {
				case ParamTerminal:
					var toks []int
					for _, tk := range p.Term.Tokens {
						toks = append(toks, expandTokens(tk, expandPublic)...)
					}
					r.Steps = append(r.Steps, Step{Sources: dedupSorted(toks), IsTerminal: true})
				case ParamNonTerminal:
					maxRank := p.NonTerm.MaxRank
					if maxRank == NoRank {
						maxRank = rs.MaxRank[p.NonTerm.Type]
					}
					r.Steps = append(r.Steps, Step{})
					pending = append(pending, pendingNonTerm{ruleID, stepIdx, p.NonTerm.Type, maxRank})
				case ParamList:
					shape := listShape{p.List.ElemType, p.List.Separator, p.List.Terminator, p.List.MaxRank}
					endID, loopID := ensureListShape(shape)

					min := p.List.Min
					var sources []int
					switch {
					case min <= 1:
						sources = []int{rs.EntityID(endID), rs.EntityID(loopID)}
					case min == 2:
						sources = []int{rs.EntityID(loopID)}
					default:
						initID := buildListInit(rs, addRule, &pending, expandPublic, shape, endID, loopID, min)
						sources = []int{rs.EntityID(initID)}
					}
					r.Steps = append(r.Steps, Step{Sources: sources})
				}
				r.StepToParam = append(r.StepToParam, pi)
			}
		}
		_ = di
	}

	// Augment the grammar with a single synthetic start rule referencing
	// every rank of the root type, so the automaton has exactly one
	// accepting completion (reached only after the real root-type rule has
	// reduced and invoked its own Method) instead of treating every
	// rank-0..maxRank root rule as independently "initial".
	start := &Rule{
		Method: func(loc span.Span, args []any) (any, error) { return args[0], nil },
		OriginalParams: []Param{
			{Kind: ParamNonTerminal, NonTerm: &NonTermSpec{Type: rootType, MaxRank: rs.MaxRank[rootType]}},
		},
		StepToParam:      []int{0},
		Provided:         []bool{true},
		ListSubStepIndex: -1,
		IsStart:          true,
	}
	start.Steps = append(start.Steps, Step{})
	startID := addRule(start)
	pending = append(pending, pendingNonTerm{startID, 0, rootType, rs.MaxRank[rootType]})
	rs.InitialRules = []int{startID}

	for _, p := range pending {
		rt := rs.Rules[p.ruleID]
		var sources []int
		for rank := 0; rank <= p.maxRank; rank++ {
			sources = append(sources, mapEntities(rs, rs.RankedRules[RankedType{p.ntType, rank}])...)
		}
		rt.Steps[p.stepIndex].Sources = dedupSorted(sources)
	}

	computeFirstFollow(rs)

	return rs, nil
}

// buildListInit synthesizes a one-off rule unrolling (min-2) leading
// (element [separator]) pairs before referencing LIST_LOOP, guaranteeing
// at least min elements overall. Not hash-cached: spec.md leaves list
// rules shared across declared rules only for the min<=2 cases.
func buildListInit(rs *RuleSet, addRule func(*Rule) int, pending *[]pendingNonTerm, expandPublic func(int) []int, shape listShape, endID, loopID, min int) int {
	init := &Rule{IsListLoop: true, ElementType: shape.elemType}
	initID := addRule(init)

	elemMax := shape.maxRank
	if elemMax == NoRank {
		elemMax = rs.MaxRank[shape.elemType]
	}

	for i := 0; i < min-2; i++ {
		stepIdx := len(init.Steps)
		init.Steps = append(init.Steps, Step{})
		*pending = append(*pending, pendingNonTerm{initID, stepIdx, shape.elemType, elemMax})
		switch {
		case shape.separator != NoToken:
			init.Steps = append(init.Steps, Step{Sources: expandTokens(shape.separator, expandPublic), IsTerminal: true})
		case shape.terminator != NoToken:
			init.Steps = append(init.Steps, Step{Sources: expandTokens(shape.terminator, expandPublic), IsTerminal: true})
		}
	}
	init.ListSubStepIndex = len(init.Steps)
	init.Steps = append(init.Steps, Step{Sources: []int{rs.EntityID(loopID)}})
	return initID
}

func mapEntities(rs *RuleSet, ruleIDs []int) []int {
	out := make([]int, len(ruleIDs))
	for i, id := range ruleIDs {
		out[i] = rs.EntityID(id)
	}
	return out
}

func expandTokens(tok int, expandPublic func(int) []int) []int {
	out := []int{tok}
	if expandPublic != nil {
		out = append(out, expandPublic(tok)...)
	}
	return dedupSorted(out)
}

func dedupSorted(in []int) []int {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[int]bool, len(in))
	var out []int
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}

func optionalParamIndexes(params []Param) []int {
	var idx []int
	for i, p := range params {
		switch p.Kind {
		case ParamTerminal:
			if p.Term.Optional {
				idx = append(idx, i)
			}
		case ParamNonTerminal:
			if p.NonTerm.Optional {
				idx = append(idx, i)
			}
		case ParamList:
			if p.List.Min == 0 {
				idx = append(idx, i)
			}
		}
	}
	return idx
}

func validateDeclared(declared []Declared, produced map[int]bool) error {
	for _, d := range declared {
		for _, p := range d.Params {
			switch p.Kind {
			case ParamTerminal:
				// Token ids are validated by the caller's token set; nothing
				// to check here beyond shape.
			case ParamNonTerminal:
				if !produced[p.NonTerm.Type] {
					return slrgen.FormatError(UnknownNonTerminalError, "rule for type %d references unknown non-terminal type %d", d.ResultType, p.NonTerm.Type)
				}
			case ParamList:
				if !produced[p.List.ElemType] {
					return slrgen.FormatError(UnknownListElementError, "rule for type %d references list of unknown element type %d", d.ResultType, p.List.ElemType)
				}
			default:
				return slrgen.FormatError(UnsupportedParamError, "rule for type %d has a parameter that is neither terminal, non-terminal, nor list", d.ResultType)
			}
		}
	}
	return nil
}

// computeFirstFollow fills StartingTokens and ReducingTokens for every rule
// by fixed-point iteration, per spec.md §4.4's first/follow construction.
func computeFirstFollow(rs *RuleSet) {
	for _, r := range rs.Rules {
		r.StartingTokens = bitset.New()
		r.ReducingTokens = bitset.New()
		if len(r.Steps) > 0 && r.Steps[0].IsTerminal {
			r.StartingTokens.Add(r.Steps[0].Sources...)
		}
	}

	changed := true
	for changed {
		changed = false
		for _, r := range rs.Rules {
			if len(r.Steps) == 0 || r.Steps[0].IsTerminal {
				continue
			}
			for _, srcID := range r.Steps[0].Sources {
				src := rs.Rules[srcID-rs.NumTokens]
				if r.StartingTokens.UnionWith(src.StartingTokens) {
					changed = true
				}
			}
		}
	}

	// Only the synthesized start rule is directly followed by EndOfStream;
	// every other rule's follow set is seeded empty and gains EndOfStream
	// purely by propagation below, once the start rule's own reference
	// step pulls it down into the genuine root-type rules.
	for _, rid := range rs.InitialRules {
		rs.Rules[rid].ReducingTokens.Add(rs.EndOfStream)
	}

	changed = true
	for changed {
		changed = false
		for _, r := range rs.Rules {
			for i := 0; i < len(r.Steps)-1; i++ {
				if r.Steps[i].IsTerminal {
					continue
				}
				next := r.Steps[i+1]
				var follow *bitset.Set
				if next.IsTerminal {
					follow = bitset.New(next.Sources...)
				} else {
					follow = bitset.New()
					for _, srcID := range next.Sources {
						follow.UnionWith(rs.Rules[srcID-rs.NumTokens].StartingTokens)
					}
				}
				for _, srcID := range r.Steps[i].Sources {
					if rs.Rules[srcID-rs.NumTokens].ReducingTokens.UnionWith(follow) {
						changed = true
					}
				}
			}
			if n := len(r.Steps); n > 0 && !r.Steps[n-1].IsTerminal {
				for _, srcID := range r.Steps[n-1].Sources {
					if rs.Rules[srcID-rs.NumTokens].ReducingTokens.UnionWith(r.ReducingTokens) {
						changed = true
					}
				}
			}
		}
	}
}
