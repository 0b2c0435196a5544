// Package token declares token kinds and their compiled matchers: a token
// kind is a member of a closed enumeration, optionally bound to a regular
// expression or a literal set, with infix flags and an optional "from"
// relation to a parent kind (sub-token refinement).
package token

import "github.com/tmclaugh/slrgen"

// Role distinguishes the handful of kinds the lexer treats specially.
// All other kinds are Normal (user-declared).
type Role int

const (
	// Normal is any user-declared token kind with no special lexer role.
	Normal Role = iota

	// EndOfStream is emitted exactly once, with length 0, after the last
	// real token. Exactly one kind may carry this role.
	EndOfStream

	// Error is emitted for a single unmatched character (length 1).
	// Exactly one kind may carry this role.
	Error

	// EndOfLine is emitted (length 0) at logical line boundaries whenever
	// a kind with this role is declared. At most one kind may carry this
	// role.
	EndOfLine

	// Indent is emitted (length 0) when a new, deeper indentation level
	// is opened. At most one kind may carry this role.
	Indent

	// Dedent is emitted (length 0) when an indentation level is closed.
	// At most one kind may carry this role.
	Dedent
)

// NoParent marks a Kind with no "from" parent (a lexer rule-tree root).
const NoParent = -1

// Kind is a compact token kind: an integer id in [0, K), a display name,
// its lexer role, an optional compiled Match spec, infix flags, and an
// optional from(parent, public) relation.
type Kind struct {
	ID   int
	Name string
	Role Role

	// Match is nil for EndOfStream/Error/EndOfLine/Indent/Dedent roles,
	// which are synthesized by the lexer rather than matched.
	Match *Matcher

	// CanBePrefix / CanBePostfix default to true; when false they suppress
	// an adjacent (EndOfLine, Indent) pair per spec.md §4.3 step 7.
	CanBePrefix  bool
	CanBePostfix bool

	// Parent is NoParent for a rule-tree root, else the ID of the kind
	// this kind refines (matched only against text the parent already
	// matched).
	Parent int

	// Public marks the from-edge to Parent as public: the parser
	// implicitly accepts this kind wherever Parent is accepted, provided
	// every edge on the chain back to a root is also public.
	Public bool
}

// NewKind declares a root token kind (no "from" parent) with a match spec
// and both infix flags defaulted to true.
func NewKind(id int, name string, role Role, match *Matcher) *Kind {
	return &Kind{ID: id, Name: name, Role: role, Match: match, CanBePrefix: true, CanBePostfix: true, Parent: NoParent}
}

// From declares k as a sub-token (rule-tree child) of parent, matched only
// against the text parent already recognized. public controls whether the
// parser implicitly accepts k wherever parent is accepted.
func (k *Kind) From(parent *Kind, public bool) *Kind {
	k.Parent = parent.ID
	k.Public = public
	return k
}

// NoInfix marks k as neither a valid prefix nor a valid postfix position;
// callers needing one-sided control should set the fields directly.
func (k *Kind) NoInfix() *Kind {
	k.CanBePrefix = false
	k.CanBePostfix = false
	return k
}

// Error codes used while validating a set of declared kinds.
const (
	MissingEndOfStreamError = slrgen.LexicalErrors + iota
	MissingErrorKindError
	DuplicateRoleError
	UnknownParentError
	CycleError
)

// Validate checks the role-cardinality invariants of spec.md §3:
// exactly one EndOfStream, exactly one Error, and at most one each of
// EndOfLine/Indent/Dedent. It also checks that every Parent id names a
// declared kind. It does not check the "from" forest for cycles; see
// lexer.BuildForest for that.
func Validate(kinds []*Kind) error {
	var eos, errKind, eol, indent, dedent int
	for _, k := range kinds {
		switch k.Role {
		case EndOfStream:
			eos++
		case Error:
			errKind++
		case EndOfLine:
			eol++
		case Indent:
			indent++
		case Dedent:
			dedent++
		}
	}

	if eos != 1 {
		return slrgen.FormatError(MissingEndOfStreamError, "expected exactly one EndOfStream kind, found %d", eos)
	}
	if errKind != 1 {
		return slrgen.FormatError(MissingErrorKindError, "expected exactly one Error kind, found %d", errKind)
	}
	if eol > 1 {
		return slrgen.FormatError(DuplicateRoleError, "expected at most one EndOfLine kind, found %d", eol)
	}
	if indent > 1 {
		return slrgen.FormatError(DuplicateRoleError, "expected at most one Indent kind, found %d", indent)
	}
	if dedent > 1 {
		return slrgen.FormatError(DuplicateRoleError, "expected at most one Dedent kind, found %d", dedent)
	}

	byID := make(map[int]*Kind, len(kinds))
	for _, k := range kinds {
		byID[k.ID] = k
	}
	for _, k := range kinds {
		if k.Parent == NoParent {
			continue
		}
		if _, ok := byID[k.Parent]; !ok {
			return slrgen.FormatError(UnknownParentError, "kind %q has unknown parent id %d", k.Name, k.Parent)
		}
	}

	return nil
}
