// Package doc models the flat text buffer as an ordered list of typed
// segment runs.
//
// A Doc covers the whole buffer contiguously. Two invariants hold after
// every operation: no two adjacent segments share a type (runs are maximal),
// and the concatenation of segment texts equals the buffer's plain text.
// Offsets are UTF-16 code units, matching editor selection APIs.
package doc

import (
	"strings"

	"github.com/FHSS-Web-Team/citation-lab/internal/u16"
)

// SegmentType classifies a run of buffer text.
type SegmentType string

const (
	// Literal text is emitted verbatim (escaped) by the compiler.
	Literal SegmentType = "literal"
	// Expression text compiles to an argument placeholder.
	Expression SegmentType = "expression"
)

// Segment is one maximal same-type run.
type Segment struct {
	Type SegmentType
	Text string
}

// Doc is the ordered segment list for one buffer.
type Doc struct {
	segments []Segment
}

// New creates a Doc covering text as a single literal segment. The segment
// may be empty immediately after initialization; normalization removes it
// as soon as any operation runs.
func New(text string) *Doc {
	return &Doc{segments: []Segment{{Type: Literal, Text: text}}}
}

// Segments returns a copy of the current segment list.
func (d *Doc) Segments() []Segment {
	out := make([]Segment, len(d.segments))
	copy(out, d.segments)
	return out
}

// PlainText returns the concatenation of all segment texts.
func (d *Doc) PlainText() string {
	var sb strings.Builder
	for _, s := range d.segments {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// Len returns the buffer length in UTF-16 code units.
func (d *Doc) Len() int {
	n := 0
	for _, s := range d.segments {
		n += u16.Len(s.Text)
	}
	return n
}

// Locate resolves an absolute offset to a segment index and within-segment
// offset by accumulating segment lengths left to right. An offset past the
// end clamps to the end of the last segment.
func (d *Doc) Locate(offset int) (segIndex, within int) {
	// Normalization drops empty segments, so a doc built over "" has none
	// to locate into once any operation runs.
	if len(d.segments) == 0 {
		return 0, 0
	}
	if offset < 0 {
		offset = 0
	}
	for i, s := range d.segments {
		n := u16.Len(s.Text)
		if offset <= n {
			// An offset exactly at a boundary resolves to the end of
			// this segment rather than the start of the next; both
			// make the subsequent split a no-op.
			return i, offset
		}
		offset -= n
	}
	last := len(d.segments) - 1
	return last, u16.Len(d.segments[last].Text)
}

// SplitAt divides the segment at segIndex into two same-typed segments at
// the within-segment offset. A split point already at a segment boundary is
// a no-op. The Doc is renormalized afterwards.
func (d *Doc) SplitAt(segIndex, within int) {
	if segIndex < 0 || segIndex >= len(d.segments) {
		return
	}
	seg := d.segments[segIndex]
	if within <= 0 || within >= u16.Len(seg.Text) {
		d.normalize()
		return
	}

	left, right := u16.Cut(seg.Text, within)
	next := make([]Segment, 0, len(d.segments)+1)
	next = append(next, d.segments[:segIndex]...)
	next = append(next, Segment{Type: seg.Type, Text: left}, Segment{Type: seg.Type, Text: right})
	next = append(next, d.segments[segIndex+1:]...)
	d.segments = next

	d.normalize()
}

// MarkRange retypes every segment lying within the half-open range
// [start, end) to newType, splitting at both boundaries first. The end
// boundary is split before the start boundary so the start location is
// computed against an already-stable prefix; the start is then re-located
// against the post-split segment list. Out-of-range and empty ranges are
// no-ops.
func (d *Doc) MarkRange(start, end int, newType SegmentType) {
	if end > d.Len() {
		end = d.Len()
	}
	if start < 0 {
		start = 0
	}
	if start >= end {
		return
	}

	// Split at the end boundary first: splitting the start first would
	// shift every index at or after it, invalidating the end location.
	endSeg, endWithin := d.Locate(end)
	d.splitNoNormalize(endSeg, endWithin)

	startSeg, startWithin := d.Locate(start)
	d.splitNoNormalize(startSeg, startWithin)

	// Retype every segment fully contained in [start, end).
	offset := 0
	for i := range d.segments {
		n := u16.Len(d.segments[i].Text)
		if offset >= start && offset+n <= end {
			d.segments[i].Type = newType
		}
		offset += n
	}

	d.normalize()
}

// splitNoNormalize is SplitAt without the trailing normalization pass, for
// use between the two boundary splits of MarkRange: normalizing in between
// could merge the freshly cut halves straight back together.
func (d *Doc) splitNoNormalize(segIndex, within int) {
	if segIndex < 0 || segIndex >= len(d.segments) {
		return
	}
	seg := d.segments[segIndex]
	if within <= 0 || within >= u16.Len(seg.Text) {
		return
	}

	left, right := u16.Cut(seg.Text, within)
	next := make([]Segment, 0, len(d.segments)+1)
	next = append(next, d.segments[:segIndex]...)
	next = append(next, Segment{Type: seg.Type, Text: left}, Segment{Type: seg.Type, Text: right})
	next = append(next, d.segments[segIndex+1:]...)
	d.segments = next
}

// normalize restores the maximal-run invariant: empty segments are dropped
// and adjacent segments of equal type are merged.
func (d *Doc) normalize() {
	next := make([]Segment, 0, len(d.segments))
	for _, s := range d.segments {
		if s.Text == "" {
			continue
		}
		if len(next) > 0 && next[len(next)-1].Type == s.Type {
			next[len(next)-1].Text += s.Text
			continue
		}
		next = append(next, s)
	}
	d.segments = next
}
