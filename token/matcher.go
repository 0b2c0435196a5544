package token

import (
	"regexp"
	"sort"
	"strings"
)

// Matcher is a compiled token definition: either a regular expression or an
// ordered set of literal strings, anchored at the lexer's current cursor.
type Matcher struct {
	re             *regexp.Regexp
	literals       []string // literal-set alternatives, ordered by descending length
	caseSensitive  bool
	maxLength      int // -1 means unbounded (regex with no computable bound)
	firstChars     [256]bool
	hasFirstFilter bool
}

// NewRegexMatcher compiles pattern (anchored at the start of the match
// attempt) into a Matcher. firstChars, if non-empty, is used as a
// fast-reject filter on the first byte; pass "" to disable the filter.
func NewRegexMatcher(pattern string, caseSensitive bool, firstChars string) (*Matcher, error) {
	p := pattern
	if !caseSensitive {
		p = "(?i:" + p + ")"
	}
	re, err := regexp.Compile("\\A(?:" + p + ")")
	if err != nil {
		return nil, err
	}

	m := &Matcher{re: re, caseSensitive: caseSensitive, maxLength: -1}
	m.setFirstChars(firstChars)
	return m, nil
}

// NewLiteralMatcher builds a Matcher from a fixed set of literal
// alternatives. Alternatives are reordered by descending length so the
// longest literal always wins a tie at the same start position.
func NewLiteralMatcher(literals []string, caseSensitive bool) *Matcher {
	lits := make([]string, len(literals))
	copy(lits, literals)
	sort.SliceStable(lits, func(i, j int) bool { return len(lits[i]) > len(lits[j]) })

	m := &Matcher{literals: lits, caseSensitive: caseSensitive}
	maxLen := 0
	var firstChars strings.Builder
	seen := make(map[byte]bool)
	for _, l := range lits {
		if len(l) > maxLen {
			maxLen = len(l)
		}
		if len(l) == 0 {
			continue
		}
		c := l[0]
		addFirstChar(seen, &firstChars, c, caseSensitive)
	}
	m.maxLength = maxLen
	m.setFirstChars(firstChars.String())
	return m
}

// NewSelfLiteralMatcher builds a case-insensitive single-literal matcher
// from a kind's own name, per spec.md §6's "self-named literal" surface.
func NewSelfLiteralMatcher(name string) *Matcher {
	return NewLiteralMatcher([]string{name}, false)
}

func addFirstChar(seen map[byte]bool, b *strings.Builder, c byte, caseSensitive bool) {
	if !seen[c] {
		seen[c] = true
		b.WriteByte(c)
	}
	if !caseSensitive {
		var alt byte
		if c >= 'a' && c <= 'z' {
			alt = c - ('a' - 'A')
		} else if c >= 'A' && c <= 'Z' {
			alt = c + ('a' - 'A')
		}
		if alt != 0 && !seen[alt] {
			seen[alt] = true
			b.WriteByte(alt)
		}
	}
}

func (m *Matcher) setFirstChars(chars string) {
	if chars == "" {
		m.hasFirstFilter = false
		return
	}
	m.hasFirstFilter = true
	for i := 0; i < len(chars); i++ {
		m.firstChars[chars[i]] = true
	}
}

// MaximumLength returns an upper bound on this matcher's match length, or
// -1 if unbounded (a regex with no statically computable bound).
func (m *Matcher) MaximumLength() int {
	return m.maxLength
}

// StartsWith reports whether c could begin a match for this matcher. A
// matcher with no configured first-character filter always returns true
// (no fast-reject is possible).
func (m *Matcher) StartsWith(c byte) bool {
	if !m.hasFirstFilter {
		return true
	}
	return m.firstChars[c]
}

// MatchLength returns the length of the match anchored at buffer[start:],
// or 0 if nothing matches. A literal set reports its longest matching
// literal; a regex reports the leftmost-first match of Go's regexp package,
// which for an alternation is not necessarily the longest one.
func (m *Matcher) MatchLength(buffer []byte, start int) int {
	if start >= len(buffer) {
		return 0
	}
	if m.hasFirstFilter && !m.StartsWith(buffer[start]) {
		return 0
	}

	if m.re != nil {
		loc := m.re.FindIndex(buffer[start:])
		if loc == nil || loc[0] != 0 {
			return 0
		}
		return loc[1]
	}

	remaining := buffer[start:]
	for _, lit := range m.literals {
		if len(lit) > len(remaining) {
			continue
		}
		chunk := remaining[:len(lit)]
		if m.caseSensitive {
			if string(chunk) == lit {
				return len(lit)
			}
		} else if strings.EqualFold(string(chunk), lit) {
			return len(lit)
		}
	}
	return 0
}
