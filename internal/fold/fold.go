// Package fold implements the folded-buffer reconciler: the fold table,
// the folded-to-expanded offset map, selection folding, marked-range
// bookkeeping and the segment compiler that turns a marked buffer into a
// renderer template.
//
// A folded buffer contains zero or more opaque placeholder tokens, each
// standing for a piece of real text held in the fold table. Tokens map to
// table entries by left-to-right ordinal. All offsets are UTF-16 code
// units.
package fold

import (
	"errors"
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/FHSS-Web-Team/citation-lab/internal/u16"
)

// Token is the placeholder standing in for one folded piece. It is three
// code units wide and atomic: offsets strictly inside it are not separately
// addressable.
const Token = "[*]"

// tokenWidth is the token's width in UTF-16 code units.
const tokenWidth = 3

var (
	// ErrEmptySelection reports a zero-width fold selection.
	ErrEmptySelection = errors.New("selection spans zero characters")
	// ErrUnbalancedSelection reports a fold selection that is not a
	// balanced bracket-and-brace span.
	ErrUnbalancedSelection = errors.New("selection is not a balanced span")
)

// Range is a half-open [Start, End) interval over the current folded
// buffer, in UTF-16 code units.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// State is one buffer's folded text plus its fold table.
type State struct {
	buffer string
	pieces []string
}

// NewState creates a fold state over unfolded text.
func NewState(text string) *State {
	return &State{buffer: text}
}

// Buffer returns the current folded text.
func (s *State) Buffer() string { return s.buffer }

// SetBuffer replaces the folded text wholesale. The caller is responsible
// for keeping existing placeholder tokens intact across the edit.
func (s *State) SetBuffer(text string) { s.buffer = text }

// Pieces returns a copy of the fold table.
func (s *State) Pieces() []string {
	out := make([]string, len(s.pieces))
	copy(out, s.pieces)
	return out
}

// PieceAt returns the expanded text behind placeholder ordinal n, for
// hover previews.
func (s *State) PieceAt(n int) (string, bool) {
	if n < 0 || n >= len(s.pieces) {
		return "", false
	}
	return s.pieces[n], true
}

// Expand produces the fully expanded text and the monotonic offset map:
// index i of the map gives the expanded offset of folded offset i, for
// 0 <= i <= len(folded). Offsets interior to a placeholder token map to the
// start of its expanded piece. A token past the end of the fold table is
// kept verbatim (fail open).
func (s *State) Expand() (string, []int) {
	folded := utf16.Encode([]rune(s.buffer))
	token := utf16.Encode([]rune(Token))

	var expanded []uint16
	m := make([]int, len(folded)+1)

	ordinal := 0
	for i := 0; i < len(folded); {
		if hasTokenAt(folded, token, i) && ordinal < len(s.pieces) {
			start := len(expanded)
			m[i], m[i+1], m[i+2] = start, start, start
			expanded = append(expanded, utf16.Encode([]rune(s.pieces[ordinal]))...)
			ordinal++
			i += tokenWidth
			continue
		}
		if hasTokenAt(folded, token, i) {
			ordinal++ // orphan token: counted but copied verbatim
		}
		m[i] = len(expanded)
		expanded = append(expanded, folded[i])
		i++
	}
	m[len(folded)] = len(expanded)

	return string(utf16.Decode(expanded)), m
}

// FoldSelection collapses the folded-buffer span [start, end) into one new
// placeholder token. The span must be non-empty and a balanced
// bracket-and-brace span; placeholders already inside the span are expanded
// into the new piece and their table entries are replaced by it.
func (s *State) FoldSelection(start, end int) error {
	bufLen := u16.Len(s.buffer)
	if start < 0 {
		start = 0
	}
	if end > bufLen {
		end = bufLen
	}
	if start >= end {
		return ErrEmptySelection
	}

	span := u16.Slice(s.buffer, start, end)
	if !balanced(span) {
		return ErrUnbalancedSelection
	}

	prefix := u16.Slice(s.buffer, 0, start)
	suffix := u16.Slice(s.buffer, end, bufLen)

	before := strings.Count(prefix, Token)
	within := strings.Count(span, Token)

	// Expand the span's own placeholders into the combined piece.
	segs := strings.Split(span, Token)
	var pb strings.Builder
	for j, seg := range segs {
		pb.WriteString(seg)
		if j < len(segs)-1 {
			if before+j < len(s.pieces) {
				pb.WriteString(s.pieces[before+j])
			} else {
				pb.WriteString(Token)
			}
		}
	}
	piece := pb.String()

	// Splice the combined piece over the consumed entries.
	consumedEnd := before + within
	if consumedEnd > len(s.pieces) {
		consumedEnd = len(s.pieces)
	}
	next := make([]string, 0, len(s.pieces)-within+1)
	next = append(next, s.pieces[:min(before, len(s.pieces))]...)
	next = append(next, piece)
	next = append(next, s.pieces[consumedEnd:]...)
	s.pieces = next

	s.buffer = prefix + Token + suffix
	return nil
}

// UnfoldAll replaces every placeholder with its table entry in ordinal
// order and clears the fold table.
func (s *State) UnfoldAll() {
	expanded, _ := s.Expand()
	s.buffer = expanded
	s.pieces = nil
}

// MergeRanges canonicalizes an interval set: sorted, empty ranges dropped,
// overlapping or adjacent ranges coalesced.
func MergeRanges(ranges []Range) []Range {
	var live []Range
	for _, r := range ranges {
		if r.End > r.Start {
			live = append(live, r)
		}
	}
	sort.Slice(live, func(i, j int) bool {
		if live[i].Start != live[j].Start {
			return live[i].Start < live[j].Start
		}
		return live[i].End < live[j].End
	})

	var merged []Range
	for _, r := range live {
		if n := len(merged); n > 0 && r.Start <= merged[n-1].End {
			if r.End > merged[n-1].End {
				merged[n-1].End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// Run is one maximal classified span of the expanded text.
type Run struct {
	Text       string
	Expression bool
}

// Runs expands the buffer and classifies every character as inside or
// outside the (translated) marked ranges, coalescing into maximal runs.
// Marks are given in folded-buffer coordinates; a mark end past every
// known boundary defaults to the expanded length.
func (s *State) Runs(marks []Range) []Run {
	expanded, m := s.Expand()
	units := utf16.Encode([]rune(expanded))
	if len(units) == 0 {
		return nil
	}

	translated := make([]Range, 0, len(marks))
	for _, r := range MergeRanges(marks) {
		t := Range{Start: translate(m, r.Start, len(units)), End: translate(m, r.End, len(units))}
		if t.End > t.Start {
			translated = append(translated, t)
		}
	}

	inside := func(off int) bool {
		for _, r := range translated {
			if off >= r.Start && off < r.End {
				return true
			}
		}
		return false
	}

	var runs []Run
	runStart := 0
	runInside := inside(0)
	for off := 1; off < len(units); off++ {
		if inside(off) != runInside {
			runs = append(runs, Run{
				Text:       string(utf16.Decode(units[runStart:off])),
				Expression: runInside,
			})
			runStart = off
			runInside = !runInside
		}
	}
	runs = append(runs, Run{
		Text:       string(utf16.Decode(units[runStart:])),
		Expression: runInside,
	})

	return runs
}

// Compile turns the state plus its marked expression ranges (folded-buffer
// coordinates) into the renderer template: marked spans become argument
// placeholders, everything else becomes brace-wrapped literal runs. An
// entirely empty expanded text compiles to the empty string.
func (s *State) Compile(marks []Range) string {
	runs := s.Runs(marks)
	if len(runs) == 0 {
		return ""
	}

	parts := make([]string, len(runs))
	for i, run := range runs {
		if run.Expression {
			parts[i] = "[%s]"
			continue
		}
		parts[i] = "{" + neutralize(run.Text) + "}"
	}

	return "[" + strings.Join(parts, "+") + "]"
}

// translate maps a folded offset through the expand map, clamping past-end
// offsets to the expanded length.
func translate(m []int, off, expandedLen int) int {
	if off < 0 {
		return 0
	}
	if off >= len(m) {
		return expandedLen
	}
	return m[off]
}

// neutralize makes literal text safe for the segment compiler's brace
// wrapping by substituting the closing brace with its fullwidth lookalike.
// This is deliberately narrower than the addend model's backslash escaping;
// the two encodings serve different renderers and must not be mixed.
func neutralize(text string) string {
	return strings.ReplaceAll(text, "}", "｝")
}

// balanced reports whether span is a balanced bracket-and-brace span:
// nesting depth for both [] and {} never goes negative and returns to
// zero, with backslash-escaped characters ignored.
func balanced(span string) bool {
	brackets, braces := 0, 0
	escaped := false
	for _, r := range span {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = true
		case '[':
			brackets++
		case ']':
			brackets--
			if brackets < 0 {
				return false
			}
		case '{':
			braces++
		case '}':
			braces--
			if braces < 0 {
				return false
			}
		}
	}
	return brackets == 0 && braces == 0 && !escaped
}

// hasTokenAt reports whether the placeholder token starts at unit offset i.
func hasTokenAt(units, token []uint16, i int) bool {
	if i+len(token) > len(units) {
		return false
	}
	for j := range token {
		if units[i+j] != token[j] {
			return false
		}
	}
	return true
}
