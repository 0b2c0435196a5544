package slr

import "github.com/tmclaugh/slrgen"

// Fatal automaton-construction error codes (spec.md §4.5). Shift/reduce
// conflicts are not fatal: the shift silently wins (spec.md §9).
const (
	ReduceReduceConflictError = slrgen.AutomatonErrors + iota
	TooManyStatesError
)

// MaxStates is the largest automaton this package will build; spec.md §4.5
// treats exceeding it as a fatal construction error rather than silently
// truncating the table.
const MaxStates = 32767
