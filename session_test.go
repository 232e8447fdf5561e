package citationlab

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestMarkAndCompile(t *testing.T) {
	sess := NewEditSession("Smith, 2020")

	if err := sess.MarkExpression(0, 5); err != nil {
		t.Fatalf("MarkExpression(0, 5) failed: %v", err)
	}
	if err := sess.MarkExpression(7, 11); err != nil {
		t.Fatalf("MarkExpression(7, 11) failed: %v", err)
	}

	if got := sess.Compile(); got != "[[%s]+{, }+[%s]]" {
		t.Errorf("Compile() = %q", got)
	}

	args := sess.Arguments()
	if len(args) != 2 || args[0] != "Smith" || args[1] != "2020" {
		t.Errorf("Arguments() = %v, want [Smith 2020]", args)
	}
}

func TestMarkMergesOverlaps(t *testing.T) {
	sess := NewEditSession("abcdef")

	if err := sess.MarkExpression(0, 3); err != nil {
		t.Fatal(err)
	}
	if err := sess.MarkExpression(2, 5); err != nil {
		t.Fatal(err)
	}

	marks := sess.Marks()
	if len(marks) != 1 || marks[0] != [2]int{0, 5} {
		t.Errorf("Marks() = %v, want [[0 5]]", marks)
	}
}

func TestMarkValidation(t *testing.T) {
	sess := NewEditSession("abcdef")
	if err := sess.MarkExpression(0, 4); err != nil {
		t.Fatal(err)
	}

	if err := sess.MarkExpression(3, 3); !errors.Is(err, ErrEmptySelection) {
		t.Errorf("empty selection: got %v, want ErrEmptySelection", err)
	}
	if err := sess.MarkExpression(1, 3); !errors.Is(err, ErrNoLiteralOverlap) {
		t.Errorf("covered selection: got %v, want ErrNoLiteralOverlap", err)
	}
	// Partial overlap still claims new literal text.
	if err := sess.MarkExpression(2, 6); err != nil {
		t.Errorf("partially covered selection rejected: %v", err)
	}
}

func TestSegments(t *testing.T) {
	sess := NewEditSession("Smith, 2020")
	if err := sess.MarkExpression(0, 5); err != nil {
		t.Fatal(err)
	}
	if err := sess.MarkExpression(7, 11); err != nil {
		t.Fatal(err)
	}

	want := []Segment{
		{Type: SegmentExpression, Text: "Smith"},
		{Type: SegmentLiteral, Text: ", "},
		{Type: SegmentExpression, Text: "2020"},
	}
	got := sess.Segments()
	if len(got) != len(want) {
		t.Fatalf("Segments() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("segment %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestFoldAndUnfold(t *testing.T) {
	sess := NewEditSession("Smith, 2020")
	if err := sess.MarkExpression(7, 11); err != nil {
		t.Fatal(err)
	}

	if err := sess.Fold(0, 5); err != nil {
		t.Fatalf("Fold(0, 5) failed: %v", err)
	}
	if got := sess.Text(); got != "[*], 2020" {
		t.Fatalf("Text() = %q after fold", got)
	}

	// The mark rode the fold's length delta.
	marks := sess.Marks()
	if len(marks) != 1 || marks[0] != [2]int{5, 9} {
		t.Fatalf("Marks() = %v after fold, want [[5 9]]", marks)
	}

	if piece, ok := sess.PieceAt(0); !ok || piece != "Smith" {
		t.Errorf("PieceAt(0) = %q, %v", piece, ok)
	}

	// Folding hides nothing from the compiler.
	if got := sess.Compile(); got != "[{Smith, }+[%s]]" {
		t.Errorf("Compile() = %q with fold in place", got)
	}

	sess.UnfoldAll()
	if got := sess.Text(); got != "Smith, 2020" {
		t.Fatalf("Text() = %q after unfold", got)
	}
	marks = sess.Marks()
	if len(marks) != 1 || marks[0] != [2]int{7, 11} {
		t.Errorf("Marks() = %v after unfold, want [[7 11]]", marks)
	}
}

func TestFoldValidation(t *testing.T) {
	sess := NewEditSession("a{b and more")

	if err := sess.Fold(2, 2); !errors.Is(err, ErrEmptySelection) {
		t.Errorf("empty fold: got %v, want ErrEmptySelection", err)
	}
	if err := sess.Fold(0, 3); !errors.Is(err, ErrUnbalancedSelection) {
		t.Errorf("unbalanced fold: got %v, want ErrUnbalancedSelection", err)
	}
	if got := sess.Text(); got != "a{b and more" {
		t.Errorf("failed fold mutated buffer: %q", got)
	}
}

func TestReplaceRange(t *testing.T) {
	sess := NewEditSession("abcdef")
	if err := sess.MarkExpression(0, 2); err != nil {
		t.Fatal(err)
	}
	if err := sess.MarkExpression(4, 6); err != nil {
		t.Fatal(err)
	}

	if err := sess.ReplaceRange(2, 4, "XYZ"); err != nil {
		t.Fatalf("ReplaceRange failed: %v", err)
	}
	if got := sess.Text(); got != "abXYZef" {
		t.Fatalf("Text() = %q", got)
	}

	marks := sess.Marks()
	if len(marks) != 2 {
		t.Fatalf("Marks() = %v, want two", marks)
	}
	if marks[0] != [2]int{0, 2} {
		t.Errorf("mark before edit moved: %v", marks[0])
	}
	if marks[1] != [2]int{5, 7} {
		t.Errorf("mark after edit = %v, want [5 7]", marks[1])
	}

	// A mark overlapping the edited span is dropped.
	if err := sess.ReplaceRange(1, 3, ""); err != nil {
		t.Fatal(err)
	}
	marks = sess.Marks()
	if len(marks) != 1 || marks[0] != [2]int{3, 5} {
		t.Errorf("Marks() = %v after overlapping edit, want [[3 5]]", marks)
	}

	if err := sess.ReplaceRange(0, 100, "x"); !errors.Is(err, ErrIndexOutOfBounds) {
		t.Errorf("out-of-bounds replace: got %v, want ErrIndexOutOfBounds", err)
	}
}

func TestCompileNeutralizesBrace(t *testing.T) {
	sess := NewEditSession("a}b")
	if got := sess.Compile(); got != "[{a｝b}]" {
		t.Errorf("Compile() = %q", got)
	}
}

func TestCompileEmpty(t *testing.T) {
	sess := NewEditSession("")
	if got := sess.Compile(); got != "" {
		t.Errorf("Compile() = %q for empty buffer, want \"\"", got)
	}
}

func TestCommit(t *testing.T) {
	sess := NewEditSession("Smith, 2020")
	if err := sess.MarkExpression(0, 5); err != nil {
		t.Fatal(err)
	}
	if err := sess.MarkExpression(7, 11); err != nil {
		t.Fatal(err)
	}

	tmpl := sess.Commit()
	if got := tmpl.Compile(); got != "[[%s]+{, }+[%s]]" {
		t.Errorf("committed Compile() = %q", got)
	}
	if got := tmpl.Source(); got != "[Smith], [2020]" {
		t.Errorf("committed Source() = %q", got)
	}

	parts := tmpl.Parts()
	if len(parts) != 3 || parts[0].Type != PartVariable || parts[1].Type != PartLiteral {
		t.Errorf("committed Parts() = %+v", parts)
	}

	// Recommit after an edit, then undo back to the first sequence.
	sess.ClearMarks()
	tmpl = sess.Commit()
	if tmpl.Len() != 1 {
		t.Fatalf("Len() = %d after literal-only commit, want 1", tmpl.Len())
	}
	if !tmpl.Undo() {
		t.Fatal("Undo() = false after two commits")
	}
	if tmpl.Len() != 3 {
		t.Errorf("Len() = %d after undo, want 3", tmpl.Len())
	}
}

func TestWrapCommittedParts(t *testing.T) {
	sess := NewEditSession("Smith (2020)")
	if err := sess.MarkExpression(0, 5); err != nil {
		t.Fatal(err)
	}
	if err := sess.MarkExpression(7, 11); err != nil {
		t.Fatal(err)
	}

	tmpl := sess.Commit()
	// Parts: [Smith] " (" [2020] ")"; group the parenthesized year.
	if err := sess.Wrap(1, 3); err != nil {
		t.Fatalf("Wrap(1, 3) failed: %v", err)
	}
	if got := tmpl.Compile(); got != "[[%s]+[{ (}+[%s]+{)}]]" {
		t.Errorf("Compile() = %q after wrap", got)
	}

	if err := sess.Wrap(3, 1); !errors.Is(err, ErrRangeInverted) {
		t.Errorf("inverted wrap: got %v, want ErrRangeInverted", err)
	}
	if err := sess.Wrap(0, 9); !errors.Is(err, ErrIndexOutOfBounds) {
		t.Errorf("out-of-bounds wrap: got %v, want ErrIndexOutOfBounds", err)
	}
}

type echoRenderer struct{}

func (echoRenderer) Format(template string, values []*string) (string, error) {
	var present []string
	for _, v := range values {
		if v != nil {
			present = append(present, *v)
		}
	}
	return fmt.Sprintf("%d:%s", len(present), strings.Join(present, "|")), nil
}

func TestPreview(t *testing.T) {
	sess := NewEditSession("Smith, 2020")
	if err := sess.MarkExpression(0, 5); err != nil {
		t.Fatal(err)
	}
	if err := sess.MarkExpression(7, 11); err != nil {
		t.Fatal(err)
	}

	rows := sess.Preview(echoRenderer{}, []string{"smith", "2020"}, nil)
	if len(rows) != 3 {
		t.Fatalf("Preview returned %d rows, want 3 for two arguments", len(rows))
	}
	for i, row := range rows {
		if row.Advisory {
			t.Errorf("row %d unexpectedly advisory", i)
		}
		any := false
		for _, p := range row.Present {
			any = any || p
		}
		if !any {
			t.Errorf("row %d has no present argument", i)
		}
		if row.Output == "" {
			t.Errorf("row %d has empty output", i)
		}
	}
}

func TestPreviewSampledValues(t *testing.T) {
	sess := NewEditSession("Author")
	if err := sess.MarkExpression(0, 6); err != nil {
		t.Fatal(err)
	}

	rows := sess.Preview(echoRenderer{}, nil, nil)
	if len(rows) != 1 {
		t.Fatalf("Preview returned %d rows, want 1", len(rows))
	}
	if !strings.HasPrefix(rows[0].Output, "1:") || rows[0].Output == "1:" {
		t.Errorf("sampled preview output = %q, want a synthesized value", rows[0].Output)
	}
}

func TestSetTextResets(t *testing.T) {
	sess := NewEditSession("abc")
	if err := sess.MarkExpression(0, 2); err != nil {
		t.Fatal(err)
	}
	if err := sess.Fold(0, 2); err != nil {
		t.Fatal(err)
	}

	sess.SetText("fresh")
	if got := sess.Text(); got != "fresh" {
		t.Errorf("Text() = %q", got)
	}
	if len(sess.Marks()) != 0 {
		t.Errorf("Marks() = %v after SetText, want none", sess.Marks())
	}
	if _, ok := sess.PieceAt(0); ok {
		t.Error("fold table survived SetText")
	}
}
