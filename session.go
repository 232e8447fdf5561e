package citationlab

import (
	"fmt"

	"github.com/FHSS-Web-Team/citation-lab/internal/addend"
	"github.com/FHSS-Web-Team/citation-lab/internal/builder"
	"github.com/FHSS-Web-Team/citation-lab/internal/doc"
	"github.com/FHSS-Web-Team/citation-lab/internal/fold"
	"github.com/FHSS-Web-Team/citation-lab/internal/preview"
	"github.com/FHSS-Web-Team/citation-lab/internal/session"
	"github.com/FHSS-Web-Team/citation-lab/internal/u16"
)

// SegmentType classifies a run of buffer text in the editing surface.
type SegmentType string

const (
	// SegmentLiteral text compiles to an escaped literal run.
	SegmentLiteral SegmentType = "literal"
	// SegmentExpression text compiles to an argument placeholder.
	SegmentExpression SegmentType = "expression"
)

// Segment is one maximal same-type run of the expanded buffer, for the
// surface's highlighting layer.
type Segment struct {
	Type SegmentType `json:"type"`
	Text string      `json:"text"`
}

// Renderer is the external formatter contract. A nil value marks an
// absent argument; whether absence drops the enclosing bracket group is
// entirely the renderer's business.
type Renderer interface {
	Format(template string, values []*string) (string, error)
}

// PreviewRow is one line of the preview matrix.
type PreviewRow struct {
	Present  []bool `json:"present"`
	Output   string `json:"output"`
	Advisory bool   `json:"advisory,omitempty"`
}

// PreviewConfig bounds preview generation.
type PreviewConfig struct {
	// SubsetCap is the hard bound on enumerated argument subsets.
	SubsetCap int
	// SampleBudget switches over-cap behavior from a single advisory
	// row to random sampling without replacement.
	SampleBudget int
	// Seed fixes the sampling order; zero means nondeterministic.
	Seed int64
}

// EditSession reconciles a flat, possibly-folded text buffer with segment
// and fold structure for one open template. It is single-owner: exactly
// one caller drives it at a time.
type EditSession struct {
	id    string
	fold  *fold.State
	marks []fold.Range
	wb    *Workbench
	rec   *session.Session
	sb    *builder.Builder
}

// NewEditSession opens a standalone session over initial buffer text,
// outside any workbench.
func NewEditSession(text string) *EditSession {
	return &EditSession{fold: fold.NewState(text)}
}

// ID returns the session's identifier; empty for standalone sessions.
func (s *EditSession) ID() string { return s.id }

// Text returns the current folded buffer text.
func (s *EditSession) Text() string { return s.fold.Buffer() }

// SetText replaces the buffer wholesale, clearing folds and marks.
func (s *EditSession) SetText(text string) {
	s.fold = fold.NewState(text)
	s.marks = nil
	s.touch()
}

// ReplaceRange splices text over the folded-buffer span [start, end).
// Marks after the edit shift by the length delta; marks overlapping the
// edited span are dropped. The caller must not cut a fold placeholder in
// half; the balanced-span rule on Fold guards the usual path.
func (s *EditSession) ReplaceRange(start, end int, text string) error {
	buf := s.fold.Buffer()
	bufLen := u16.Len(buf)
	if start < 0 || end < start || end > bufLen {
		return fmt.Errorf("%w: replace range [%d, %d) of %d", ErrIndexOutOfBounds, start, end, bufLen)
	}

	s.fold.SetBuffer(u16.Slice(buf, 0, start) + text + u16.Slice(buf, end, bufLen))

	delta := u16.Len(text) - (end - start)
	var kept []fold.Range
	for _, r := range s.marks {
		switch {
		case r.End <= start:
			kept = append(kept, r)
		case r.Start >= end:
			kept = append(kept, fold.Range{Start: r.Start + delta, End: r.End + delta})
		}
	}
	s.marks = kept
	s.touch()
	return nil
}

// MarkExpression marks the folded-buffer span [start, end) as expression
// text. The selection must be non-empty and must cover at least one
// character not already marked; the resulting interval set is kept
// canonical by merging.
func (s *EditSession) MarkExpression(start, end int) error {
	bufLen := u16.Len(s.fold.Buffer())
	if start < 0 {
		start = 0
	}
	if end > bufLen {
		end = bufLen
	}
	if start >= end {
		s.reject()
		return ErrEmptySelection
	}
	if covered(s.marks, start, end) {
		s.reject()
		return fmt.Errorf("%w: span [%d, %d) is already marked", ErrNoLiteralOverlap, start, end)
	}

	s.marks = fold.MergeRanges(append(s.marks, fold.Range{Start: start, End: end}))
	s.touch()
	return nil
}

// ClearMarks drops every marked range.
func (s *EditSession) ClearMarks() {
	s.marks = nil
	s.touch()
}

// Marks returns the canonical marked interval set as start/end pairs.
func (s *EditSession) Marks() [][2]int {
	out := make([][2]int, len(s.marks))
	for i, r := range s.marks {
		out[i] = [2]int{r.Start, r.End}
	}
	return out
}

// Fold collapses the selected span into one opaque placeholder token,
// preserving the ability to re-expand it losslessly.
func (s *EditSession) Fold(start, end int) error {
	// A mark overlapping the folded span would be left pointing at
	// stale coordinates; translate the surviving ones.
	before := u16.Len(s.fold.Buffer())
	if err := s.fold.FoldSelection(start, end); err != nil {
		s.reject()
		return mapFoldErr(err)
	}
	delta := u16.Len(s.fold.Buffer()) - before

	var kept []fold.Range
	for _, r := range s.marks {
		switch {
		case r.End <= start:
			kept = append(kept, r)
		case r.Start >= end:
			kept = append(kept, fold.Range{Start: r.Start + delta, End: r.End + delta})
		}
	}
	s.marks = kept

	if s.wb != nil && s.wb.metrics != nil {
		s.wb.metrics.IncrementFold()
	}
	s.touch()
	return nil
}

// UnfoldAll expands every placeholder back to its real text and clears
// the fold table. Marks are re-anchored through the offset map so a span
// marked around a placeholder stays on the same characters.
func (s *EditSession) UnfoldAll() {
	_, m := s.fold.Expand()
	expandedLen := 0
	if len(m) > 0 {
		expandedLen = m[len(m)-1]
	}

	remapped := make([]fold.Range, 0, len(s.marks))
	for _, r := range s.marks {
		nr := fold.Range{
			Start: translateOffset(m, r.Start, expandedLen),
			End:   translateOffset(m, r.End, expandedLen),
		}
		if nr.End > nr.Start {
			remapped = append(remapped, nr)
		}
	}

	s.fold.UnfoldAll()
	s.marks = fold.MergeRanges(remapped)

	if s.wb != nil && s.wb.metrics != nil {
		s.wb.metrics.IncrementUnfold()
	}
	s.touch()
}

// PieceAt returns the expanded text behind placeholder ordinal n, for
// hover previews over folded regions.
func (s *EditSession) PieceAt(n int) (string, bool) {
	return s.fold.PieceAt(n)
}

// Segments returns the expanded buffer as maximal typed runs for the
// highlighting layer.
func (s *EditSession) Segments() []Segment {
	expanded, m := s.fold.Expand()
	d := doc.New(expanded)

	expandedLen := d.Len()
	for _, r := range fold.MergeRanges(s.marks) {
		d.MarkRange(
			translateOffset(m, r.Start, expandedLen),
			translateOffset(m, r.End, expandedLen),
			doc.Expression,
		)
	}

	segs := d.Segments()
	out := make([]Segment, len(segs))
	for i, seg := range segs {
		out[i] = Segment{Type: SegmentType(seg.Type), Text: seg.Text}
	}
	return out
}

// Arguments returns the expanded text of each marked expression span, in
// order. These are the argument names offered to the preview matrix.
func (s *EditSession) Arguments() []string {
	var names []string
	for _, run := range s.fold.Runs(s.marks) {
		if run.Expression {
			names = append(names, run.Text)
		}
	}
	return names
}

// Compile produces the renderer template for the current buffer: marked
// spans become placeholders, everything else literal runs, folds expanded
// first. An empty buffer compiles to the empty string.
func (s *EditSession) Compile() string {
	if s.wb != nil && s.wb.metrics != nil {
		s.wb.metrics.IncrementCompile()
	}
	return s.fold.Compile(s.marks)
}

// Commit materializes the current buffer into the session's part builder
// as literal and variable parts, recording undo history, and returns the
// part-tree view over it.
func (s *EditSession) Commit() *Template {
	var parts []addend.Addend
	for _, run := range s.fold.Runs(s.marks) {
		if run.Expression {
			parts = append(parts, addend.NewVariable(run.Text))
		} else {
			parts = append(parts, addend.NewLiteral(run.Text))
		}
	}

	b := s.builder()
	b.ReplaceParts(parts, &builder.ReplaceOptions{RecordHistory: true})
	s.touch()
	return &Template{b: b}
}

// Wrap groups the closed index range [start, end] of the committed part
// sequence into one expression. Commit first; the range addresses parts,
// not buffer offsets.
func (s *EditSession) Wrap(start, end int) error {
	if err := s.builder().WrapExpression(start, end); err != nil {
		s.reject()
		return mapBuilderErr(err)
	}
	s.touch()
	return nil
}

// Undo restores the part builder's previous committed sequence, reporting
// whether a snapshot was available. The text buffer is not touched; the
// buffer is the working copy, commits are the durable history.
func (s *EditSession) Undo() bool {
	if !s.builder().Undo() {
		s.reject()
		return false
	}
	if s.wb != nil && s.wb.metrics != nil {
		s.wb.metrics.IncrementUndo()
	}
	s.touch()
	return true
}

// builder returns the session's part builder, creating one for standalone
// sessions on first use.
func (s *EditSession) builder() *builder.Builder {
	if s.rec != nil {
		return s.rec.Builder
	}
	if s.sb == nil {
		s.sb = builder.New()
	}
	return s.sb
}

// Preview renders the argument-subset preview matrix against an external
// renderer. With nil values, sample values are synthesized from the
// argument names. Renderer errors appear as inline row text.
func (s *EditSession) Preview(r Renderer, values []string, cfg *PreviewConfig) []PreviewRow {
	names := s.Arguments()
	if values == nil {
		values = preview.SampleValues(names)
	}

	var pcfg *preview.Config
	if cfg != nil {
		pcfg = &preview.Config{
			SubsetCap:    cfg.SubsetCap,
			SampleBudget: cfg.SampleBudget,
			Seed:         cfg.Seed,
		}
	}

	rows := preview.Matrix(
		preview.RendererFunc(r.Format),
		s.Compile(),
		values,
		pcfg,
	)

	out := make([]PreviewRow, len(rows))
	for i, row := range rows {
		out[i] = PreviewRow(row)
	}
	return out
}

// Preview renders the argument-subset preview matrix for a parsed
// template. With nil values, sample values are synthesized from the
// variable names.
func (t *Template) Preview(r Renderer, values []string, cfg *PreviewConfig) []PreviewRow {
	if values == nil {
		values = preview.SampleValues(t.Variables())
	}

	var pcfg *preview.Config
	if cfg != nil {
		pcfg = &preview.Config{
			SubsetCap:    cfg.SubsetCap,
			SampleBudget: cfg.SampleBudget,
			Seed:         cfg.Seed,
		}
	}

	rows := preview.Matrix(preview.RendererFunc(r.Format), t.Compile(), values, pcfg)
	out := make([]PreviewRow, len(rows))
	for i, row := range rows {
		out[i] = PreviewRow(row)
	}
	return out
}

// touch reports a state-changing edit to the owning workbench and writes
// session state back to its registry record.
func (s *EditSession) touch() {
	if s.rec != nil {
		s.rec.Fold = s.fold
		s.rec.Marks = s.marks
	}
	if s.wb == nil {
		return
	}
	if s.wb.metrics != nil {
		s.wb.metrics.IncrementEditApplied()
	}
	s.wb.accountSession(s)
}

// reject reports a refused edit to the owning workbench.
func (s *EditSession) reject() {
	if s.wb != nil && s.wb.metrics != nil {
		s.wb.metrics.IncrementEditRejected()
	}
}

// covered reports whether [start, end) lies entirely inside the existing
// marked set, leaving no literal character for the new mark to claim.
func covered(marks []fold.Range, start, end int) bool {
	for _, r := range fold.MergeRanges(marks) {
		if start >= r.Start && end <= r.End {
			return true
		}
	}
	return false
}

// translateOffset maps a folded offset through the expand map, clamping
// past-end offsets to the expanded length.
func translateOffset(m []int, off, expandedLen int) int {
	if off < 0 {
		return 0
	}
	if off >= len(m) {
		return expandedLen
	}
	return m[off]
}
