// Package slr constructs an SLR(1) shift/reduce automaton from an
// elaborated grammar.RuleSet: canonical LR(0) item-set construction,
// goto/shift/reduce actions restricted by follow sets, and the conflict
// resolution discipline of spec.md §4.5/§9 (prefer shift; reduce/reduce on
// the same rule is idempotent; reduce/reduce on different rules fails
// construction).
package slr

import (
	"encoding/binary"
	"sort"

	"github.com/tmclaugh/slrgen"
	"github.com/tmclaugh/slrgen/grammar"
	"github.com/tmclaugh/slrgen/internal/bmap"
)

type item struct {
	rule int
	dot  int
}

type itemSet []item

func (s itemSet) key() []byte {
	buf := make([]byte, 0, len(s)*8)
	for _, it := range s {
		var b [8]byte
		binary.LittleEndian.PutUint32(b[0:4], uint32(it.rule))
		binary.LittleEndian.PutUint32(b[4:8], uint32(it.dot))
		buf = append(buf, b[:]...)
	}
	return buf
}

// Table is the constructed SLR(1) automaton: a dense action table indexed
// by (state, entity), where entity spans both token kind ids
// [0, NumTokens) and rule ids [NumTokens, NumTokens+len(Rules)).
type Table struct {
	RS          *grammar.RuleSet
	NumStates   int
	EntityCount int

	// Actions[state*EntityCount+entity]:
	//   0       no action (syntax error on this entity in this state)
	//   n > 0   shift/goto to state n-1
	//   n < 0   reduce using rule -(n+1)
	Actions []int16

	// Accept[state] is true if, on EndOfStream lookahead, this state
	// accepts the input rather than reducing or erroring.
	Accept []bool

	// Context[state] collects the distinct step-or-rule context tags of
	// every item in this state at its dot position: the step tag if the
	// dot sits before a tagged step, else the rule's own tag if the item
	// is complete (spec.md §4.5, §4.8).
	Context [][]*int
}

func closure(rs *grammar.RuleSet, items itemSet) itemSet {
	seen := make(map[item]bool, len(items))
	work := make([]item, 0, len(items))
	for _, it := range items {
		if !seen[it] {
			seen[it] = true
			work = append(work, it)
		}
	}
	for i := 0; i < len(work); i++ {
		it := work[i]
		r := rs.Rules[it.rule]
		if it.dot >= len(r.Steps) {
			continue
		}
		step := r.Steps[it.dot]
		if step.IsTerminal {
			continue
		}
		for _, entity := range step.Sources {
			sub := item{rule: entity - rs.NumTokens, dot: 0}
			if !seen[sub] {
				seen[sub] = true
				work = append(work, sub)
			}
		}
	}
	sort.Slice(work, func(i, j int) bool {
		if work[i].rule != work[j].rule {
			return work[i].rule < work[j].rule
		}
		return work[i].dot < work[j].dot
	})
	return work
}

// distinctEntities returns every entity that appears at the dot position
// of some non-complete item in the set, in ascending order.
func distinctEntities(rs *grammar.RuleSet, items itemSet) []int {
	seen := make(map[int]bool)
	var out []int
	for _, it := range items {
		r := rs.Rules[it.rule]
		if it.dot >= len(r.Steps) {
			continue
		}
		for _, e := range r.Steps[it.dot].Sources {
			if !seen[e] {
				seen[e] = true
				out = append(out, e)
			}
		}
	}
	sort.Ints(out)
	return out
}

func gotoSet(rs *grammar.RuleSet, items itemSet, entity int) itemSet {
	var advanced []item
	for _, it := range items {
		r := rs.Rules[it.rule]
		if it.dot >= len(r.Steps) {
			continue
		}
		idx := sort.SearchInts(r.Steps[it.dot].Sources, entity)
		if idx < len(r.Steps[it.dot].Sources) && r.Steps[it.dot].Sources[idx] == entity {
			advanced = append(advanced, item{rule: it.rule, dot: it.dot + 1})
		}
	}
	if len(advanced) == 0 {
		return nil
	}
	return closure(rs, advanced)
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func appendTagUnique(tags []*int, tag *int) []*int {
	for _, t := range tags {
		if *t == *tag {
			return tags
		}
	}
	return append(tags, tag)
}

// Build constructs the SLR(1) automaton for rs.
func Build(rs *grammar.RuleSet) (*Table, error) {
	entityCount := rs.NumTokens + len(rs.Rules)

	var initItems itemSet
	for _, rid := range rs.InitialRules {
		initItems = append(initItems, item{rule: rid, dot: 0})
	}
	start := closure(rs, initItems)

	index := bmap.New[int](64)
	var states []itemSet
	var queue []int

	addState := func(items itemSet) int {
		key := items.key()
		if id, ok := index.Get(key); ok {
			return id
		}
		id := len(states)
		states = append(states, items)
		index.Set(key, id)
		queue = append(queue, id)
		return id
	}

	addState(start)

	var actions []int16
	var accept []bool
	var contexts [][]*int

	growTo := func(n int) {
		for len(accept) < n {
			actions = append(actions, make([]int16, entityCount)...)
			accept = append(accept, false)
			contexts = append(contexts, nil)
		}
	}

	setAction := func(stateID, entity, value int) error {
		slot := stateID*entityCount + entity
		if actions[slot] == 0 {
			actions[slot] = int16(value)
			return nil
		}
		if actions[slot] == int16(value) {
			return nil
		}
		if actions[slot] > 0 {
			// Existing shift wins over any reduce (spec.md §9).
			return nil
		}
		if value > 0 {
			// New shift overrides an existing reduce.
			actions[slot] = int16(value)
			return nil
		}
		existingRule := int(-actions[slot]) - 1
		newRule := int(-value) - 1
		return slrgen.FormatError(ReduceReduceConflictError,
			"reduce/reduce conflict in state %d on entity %d between rule %d and rule %d",
			stateID, entity, existingRule, newRule)
	}

	for qi := 0; qi < len(queue); qi++ {
		if len(states) > MaxStates {
			return nil, slrgen.FormatError(TooManyStatesError, "automaton exceeds %d states", MaxStates)
		}
		stateID := queue[qi]
		items := states[stateID]
		growTo(stateID + 1)

		for _, e := range distinctEntities(rs, items) {
			next := gotoSet(rs, items, e)
			if len(next) == 0 {
				continue
			}
			nextID := addState(next)
			growTo(nextID + 1)
			if err := setAction(stateID, e, nextID+1); err != nil {
				return nil, err
			}
		}

		for _, it := range items {
			r := rs.Rules[it.rule]

			var tag *int
			if it.dot < len(r.Steps) {
				tag = r.Steps[it.dot].Tag
			} else {
				tag = r.ContextTag
			}
			if tag != nil {
				contexts[stateID] = appendTagUnique(contexts[stateID], tag)
			}

			if it.dot != len(r.Steps) {
				continue
			}
			isInitial := containsInt(rs.InitialRules, it.rule)
			for _, tok := range r.ReducingTokens.ToSlice() {
				if isInitial && tok == rs.EndOfStream {
					accept[stateID] = true
					continue
				}
				if err := setAction(stateID, tok, -(it.rule + 1)); err != nil {
					return nil, err
				}
			}
		}
	}

	return &Table{
		RS:          rs,
		NumStates:   len(states),
		EntityCount: entityCount,
		Actions:     actions,
		Accept:      accept,
		Context:     contexts,
	}, nil
}
