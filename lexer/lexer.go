// Package lexer implements the longest-match tokenizer: it consumes a rule
// forest (see RuleNode/Forest) and a source buffer and emits a stream of
// (kind, start, length) tokens, with support for sub-tokens, comments,
// indentation-sensitive whitespace, and escaped newlines.
package lexer

import (
	"github.com/tmclaugh/slrgen/span"
	"github.com/tmclaugh/slrgen/token"
)

// Token is one lexeme: its kind id, starting position, and byte length.
type Token struct {
	Kind   int
	Start  span.Position
	Length int
}

// Result is the output of a lexer run: the source buffer, the emitted
// tokens in source order, the ascending byte offsets of every '\n', and
// whether any Error token was emitted.
type Result struct {
	Buffer         []byte
	Tokens         []Token
	NewlineOffsets []int
	HasErrors      bool
}

// Options configures lexer-wide behavior not carried by individual kinds.
type Options struct {
	// Comments, if non-nil, matches comment text to be skipped.
	Comments *token.Matcher

	// EscapeNewlines, if true, treats a backslash immediately followed by
	// a newline as a line continuation rather than two separate tokens.
	EscapeNewlines bool
}

// Lexer is an immutable, reusable tokenizer for one rule forest.
type Lexer struct {
	forest  *Forest
	kinds   map[int]*token.Kind
	opts    Options
	eos     int
	errKind int
	eol     int
	indent  int
	dedent  int
}

const unset = -1

// New builds a Lexer from a set of declared kinds (already validated via
// token.Validate) and a rule forest built from the same kinds.
func New(kinds []*token.Kind, forest *Forest, opts Options) *Lexer {
	lx := &Lexer{
		forest: forest,
		kinds:  make(map[int]*token.Kind, len(kinds)),
		opts:   opts,
		eos:    unset, errKind: unset, eol: unset, indent: unset, dedent: unset,
	}
	for _, k := range kinds {
		lx.kinds[k.ID] = k
		switch k.Role {
		case token.EndOfStream:
			lx.eos = k.ID
		case token.Error:
			lx.errKind = k.ID
		case token.EndOfLine:
			lx.eol = k.ID
		case token.Indent:
			lx.indent = k.ID
		case token.Dedent:
			lx.dedent = k.ID
		}
	}
	return lx
}

func isSkippable(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r'
}

// Run tokenizes buffer. If truncated is true, the stream is not closed with
// a trailing EndOfLine/Dedent drain/EndOfStream: the caller has declared
// the input incomplete (spec.md §4.3 "End of input").
func (lx *Lexer) Run(buffer []byte, truncated bool) *Result {
	newlineOffsets := scanNewlines(buffer)
	res := &Result{Buffer: buffer, NewlineOffsets: newlineOffsets}

	end := len(buffer)
	for end > 0 && isSkippable(buffer[end-1]) {
		end--
	}

	var indentStack []int
	if lx.indent != unset {
		indentStack = []int{0}
	}

	start := 0
	lastCannotBePostfix := false
	backslashPos := -1
	skipEscapeCheck := false

	posAt := func(offset int) span.Position {
		line, col := span.LineCol(newlineOffsets, offset)
		return span.Position{Offset: offset, Line: line, Col: col}
	}

	for start < end {
		c := buffer[start]

		if isSkippable(c) {
			start++
			continue
		}

		if c == '\n' {
			if backslashPos >= 0 {
				backslashPos = -1
				start++
				continue
			}
			start = lx.handleNewline(buffer, start, end, &res.Tokens, &indentStack, posAt)
			if lastCannotBePostfix {
				lx.stripTrailingEolIndent(&res.Tokens, &indentStack)
				lastCannotBePostfix = false
			}
			continue
		}

		if lx.opts.Comments != nil {
			if n := lx.opts.Comments.MatchLength(buffer[:end], start); n > 0 {
				start += n
				continue
			}
		}

		if backslashPos >= 0 {
			start = backslashPos
			backslashPos = -1
			skipEscapeCheck = true
			continue
		}
		if !skipEscapeCheck && lx.opts.EscapeNewlines && c == '\\' {
			backslashPos = start
			start++
			continue
		}
		skipEscapeCheck = false

		root, length := lx.matchRoot(buffer, start, end)
		if length == 0 {
			res.Tokens = append(res.Tokens, Token{lx.errKind, posAt(start), 1})
			res.HasErrors = true
			lastCannotBePostfix = false
			start++
			continue
		}

		kindID := lx.refine(root, buffer, start, length)
		kind := lx.kinds[kindID]

		if !kind.CanBePrefix {
			lx.stripTrailingEolIndent(&res.Tokens, &indentStack)
		}
		lastCannotBePostfix = !kind.CanBePostfix

		res.Tokens = append(res.Tokens, Token{kindID, posAt(start), length})
		start += length
	}

	if !truncated {
		lx.closeStream(&res.Tokens, &indentStack, posAt(end))
	}

	return res
}

func scanNewlines(buffer []byte) []int {
	var offsets []int
	for i, c := range buffer {
		if c == '\n' {
			offsets = append(offsets, i)
		}
	}
	return offsets
}

// matchRoot selects the root rule with the longest match at start, first
// declared wins ties.
func (lx *Lexer) matchRoot(buffer []byte, start, end int) (*RuleNode, int) {
	var best *RuleNode
	bestLen := 0
	for _, root := range lx.forest.Roots {
		if root.Kind.Match == nil {
			continue
		}
		if !root.Kind.Match.StartsWith(buffer[start]) {
			continue
		}
		n := root.Kind.Match.MatchLength(buffer[:end], start)
		if n > bestLen {
			bestLen = n
			best = root
		}
	}
	return best, bestLen
}

// refine walks root's children, selecting the unique child matching exactly
// `length` characters, until no child matches; the most-refined kind wins.
func (lx *Lexer) refine(root *RuleNode, buffer []byte, start, length int) int {
	current := root
	for {
		var next *RuleNode
		for _, child := range current.Children {
			if child.Kind.Match != nil && child.Kind.Match.MatchLength(buffer, start) == length {
				next = child
				break
			}
		}
		if next == nil {
			return current.Kind.ID
		}
		current = next
	}
}

// handleNewline emits an EndOfLine token (if configured and warranted),
// then, if indentation is tracked, scans ahead to the next non-blank,
// non-comment line and emits Indent/Dedent tokens to reconcile the
// indentation stack. Returns the new cursor position.
func (lx *Lexer) handleNewline(buffer []byte, start, end int, tokens *[]Token, indentStack *[]int, posAt func(int) span.Position) int {
	if lx.eol != unset && len(*tokens) > 0 {
		last := (*tokens)[len(*tokens)-1]
		lastKind := lx.kinds[last.Kind]
		if lastKind.Role != token.Indent && lastKind.Role != token.Dedent {
			*tokens = append(*tokens, Token{lx.eol, posAt(start), 0})
		}
	}
	start++

	if lx.indent == unset {
		return start
	}

	width := 0
scan:
	for start < end {
		c := buffer[start]
		switch c {
		case ' ':
			width++
			start++
		case '\t':
			width += 2
			start++
		case '\r':
			start++
		case '\n':
			width = 0
			start++
		default:
			if lx.opts.Comments != nil {
				if n := lx.opts.Comments.MatchLength(buffer[:end], start); n > 0 {
					start += n
					continue scan
				}
			}
			break scan
		}
	}

	top := (*indentStack)[len(*indentStack)-1]
	if top > width {
		for len(*indentStack) > 0 && (*indentStack)[len(*indentStack)-1] > width {
			*indentStack = (*indentStack)[:len(*indentStack)-1]
			*tokens = append(*tokens, Token{lx.dedent, posAt(start), 0})
		}
	} else if top < width {
		*indentStack = append(*indentStack, width)
		*tokens = append(*tokens, Token{lx.indent, posAt(start), 0})
	}

	return start
}

// stripTrailingEolIndent removes a trailing (EndOfLine, Indent) pair just
// emitted, per spec.md §4.3 step 7/2: a non-postfix token (or the token
// preceding it) suppresses the indent increase it would otherwise trigger.
func (lx *Lexer) stripTrailingEolIndent(tokens *[]Token, indentStack *[]int) {
	ts := *tokens
	n := len(ts)
	if n >= 2 && lx.indent != unset && ts[n-1].Kind == lx.indent && lx.eol != unset && ts[n-2].Kind == lx.eol {
		*indentStack = (*indentStack)[:len(*indentStack)-1]
		*tokens = ts[:n-2]
	}
}

// closeStream emits the final EndOfLine (if warranted), drains the indent
// stack, and emits EndOfStream, per spec.md §4.3 "End of input".
func (lx *Lexer) closeStream(tokens *[]Token, indentStack *[]int, pos span.Position) {
	if len(*tokens) > 0 {
		if lx.eol != unset {
			last := (*tokens)[len(*tokens)-1]
			lastKind := lx.kinds[last.Kind]
			if lastKind.Role != token.EndOfLine && lastKind.Role != token.Dedent {
				*tokens = append(*tokens, Token{lx.eol, pos, 0})
			}
		}

		for len(*indentStack) > 1 {
			*indentStack = (*indentStack)[:len(*indentStack)-1]
			*tokens = append(*tokens, Token{lx.dedent, pos, 0})
		}
	}

	*tokens = append(*tokens, Token{lx.eos, pos, 0})
}
