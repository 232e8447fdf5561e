package fold

import (
	"errors"
	"reflect"
	"testing"
)

func TestExpandNoPlaceholders(t *testing.T) {
	s := NewState("plain text")
	expanded, m := s.Expand()

	if expanded != "plain text" {
		t.Errorf("Expand() = %q, want %q", expanded, "plain text")
	}
	for i := 0; i <= len("plain text"); i++ {
		if m[i] != i {
			t.Errorf("map[%d] = %d, want identity", i, m[i])
		}
	}
}

func TestFoldSelectionAndExpand(t *testing.T) {
	s := NewState("Smith, 2024, Provo")
	if err := s.FoldSelection(7, 11); err != nil { // "2024"
		t.Fatalf("FoldSelection: %v", err)
	}

	if s.Buffer() != "Smith, [*], Provo" {
		t.Errorf("Buffer() = %q, want %q", s.Buffer(), "Smith, [*], Provo")
	}
	if !reflect.DeepEqual(s.Pieces(), []string{"2024"}) {
		t.Errorf("Pieces() = %v, want [2024]", s.Pieces())
	}

	expanded, m := s.Expand()
	if expanded != "Smith, 2024, Provo" {
		t.Errorf("Expand() = %q, want original text", expanded)
	}

	// Offsets before the token are identity; the token maps to the piece
	// start; offsets after it are shifted by the width difference.
	if m[7] != 7 {
		t.Errorf("map[7] = %d, want 7", m[7])
	}
	if m[8] != 7 || m[9] != 7 {
		t.Errorf("interior offsets map to (%d, %d), want piece start 7", m[8], m[9])
	}
	if m[10] != 11 {
		t.Errorf("map[10] = %d, want 11 (after the expanded piece)", m[10])
	}
	if m[len([]rune(s.Buffer()))] != len("Smith, 2024, Provo") {
		t.Errorf("final map entry = %d, want expanded length", m[len([]rune(s.Buffer()))])
	}
}

func TestFoldUnfoldInverse(t *testing.T) {
	const text = "Author: Smith (ed.), 2024, pp. 10-20"
	s := NewState(text)

	if err := s.FoldSelection(8, 19); err != nil { // "Smith (ed.)"
		t.Fatalf("first fold: %v", err)
	}
	if err := s.FoldSelection(0, 6); err != nil { // "Author"
		t.Fatalf("second fold: %v", err)
	}

	s.UnfoldAll()
	if s.Buffer() != text {
		t.Errorf("UnfoldAll() = %q, want original %q", s.Buffer(), text)
	}
	if len(s.Pieces()) != 0 {
		t.Errorf("fold table not cleared: %v", s.Pieces())
	}
}

func TestFoldSelectionContainingPlaceholder(t *testing.T) {
	s := NewState("a BBB c DDD e")
	if err := s.FoldSelection(2, 5); err != nil { // "BBB" -> [*]
		t.Fatalf("fold BBB: %v", err)
	}
	if err := s.FoldSelection(8, 11); err != nil { // "DDD" -> [*]
		t.Fatalf("fold DDD: %v", err)
	}
	if s.Buffer() != "a [*] c [*] e" {
		t.Fatalf("Buffer() = %q", s.Buffer())
	}

	// Fold a span containing the first placeholder: its entry must be
	// expanded into the new combined piece and spliced out of the table.
	if err := s.FoldSelection(0, 7); err != nil { // "a [*] c"
		t.Fatalf("combined fold: %v", err)
	}
	if s.Buffer() != "[*] [*] e" {
		t.Fatalf("Buffer() = %q, want %q", s.Buffer(), "[*] [*] e")
	}
	if !reflect.DeepEqual(s.Pieces(), []string{"a BBB c", "DDD"}) {
		t.Fatalf("Pieces() = %v, want [a BBB c, DDD]", s.Pieces())
	}

	s.UnfoldAll()
	if s.Buffer() != "a BBB c DDD e" {
		t.Errorf("UnfoldAll() = %q, want original", s.Buffer())
	}
}

func TestFoldSelectionValidation(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		start, end int
		wantErr    error
	}{
		{"empty span", "abc", 1, 1, ErrEmptySelection},
		{"inverted span", "abc", 2, 1, ErrEmptySelection},
		{"unbalanced open bracket", "a [b c", 0, 4, ErrUnbalancedSelection},
		{"unbalanced close brace", "a} b", 0, 3, ErrUnbalancedSelection},
		{"cuts a placeholder", "x[*]y", 0, 2, ErrUnbalancedSelection},
		{"balanced nesting", "a [b {c}] d", 0, 11, nil},
		{"escaped brackets ignored", `a \[ b`, 0, 6, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState(tt.text)
			err := s.FoldSelection(tt.start, tt.end)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("FoldSelection = %v, want success", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("FoldSelection = %v, want %v", err, tt.wantErr)
			}
			if s.Buffer() != tt.text {
				t.Error("failed fold mutated the buffer")
			}
		})
	}
}

func TestPieceAt(t *testing.T) {
	s := NewState("hello world")
	if err := s.FoldSelection(0, 5); err != nil {
		t.Fatalf("FoldSelection: %v", err)
	}

	piece, ok := s.PieceAt(0)
	if !ok || piece != "hello" {
		t.Errorf("PieceAt(0) = (%q, %v), want (hello, true)", piece, ok)
	}
	if _, ok := s.PieceAt(1); ok {
		t.Error("PieceAt(1) = true for missing ordinal")
	}
	if _, ok := s.PieceAt(-1); ok {
		t.Error("PieceAt(-1) = true")
	}
}

func TestMergeRanges(t *testing.T) {
	tests := []struct {
		name  string
		input []Range
		want  []Range
	}{
		{"disjoint stay apart", []Range{{0, 2}, {5, 7}}, []Range{{0, 2}, {5, 7}}},
		{"overlapping coalesce", []Range{{0, 4}, {2, 6}}, []Range{{0, 6}}},
		{"adjacent coalesce", []Range{{0, 3}, {3, 5}}, []Range{{0, 5}}},
		{"unsorted input", []Range{{5, 7}, {0, 2}}, []Range{{0, 2}, {5, 7}}},
		{"contained absorbed", []Range{{0, 10}, {2, 4}}, []Range{{0, 10}}},
		{"empty dropped", []Range{{3, 3}, {1, 2}}, []Range{{1, 2}}},
		{"nil in nil out", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MergeRanges(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MergeRanges(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCompileUnmarked(t *testing.T) {
	s := NewState("Smith 2024")
	if got := s.Compile(nil); got != "[{Smith 2024}]" {
		t.Errorf("Compile = %q, want %q", got, "[{Smith 2024}]")
	}
}

func TestCompileMarkedRanges(t *testing.T) {
	s := NewState("Smith, 2024")
	marks := []Range{{Start: 7, End: 11}} // "2024"

	if got := s.Compile(marks); got != "[{Smith, }+[%s]]" {
		t.Errorf("Compile = %q, want %q", got, "[{Smith, }+[%s]]")
	}
}

func TestCompileTranslatesMarksAcrossFolds(t *testing.T) {
	s := NewState("Smith, 2024, Provo")
	if err := s.FoldSelection(0, 5); err != nil { // "Smith" -> [*]
		t.Fatalf("FoldSelection: %v", err)
	}
	// Folded buffer: "[*], 2024, Provo"; mark "2024" at folded 5..9.
	got := s.Compile([]Range{{Start: 5, End: 9}})

	if got != "[{Smith, }+[%s]+{, Provo}]" {
		t.Errorf("Compile = %q, want %q", got, "[{Smith, }+[%s]+{, Provo}]")
	}
}

func TestCompileMarkPastAllBoundaries(t *testing.T) {
	s := NewState("abc")
	// End beyond the buffer defaults to the expanded length.
	if got := s.Compile([]Range{{Start: 1, End: 99}}); got != "[{a}+[%s]]" {
		t.Errorf("Compile = %q, want %q", got, "[{a}+[%s]]")
	}
}

func TestCompileEmptyText(t *testing.T) {
	s := NewState("")
	if got := s.Compile(nil); got != "" {
		t.Errorf("Compile of empty text = %q, want empty string", got)
	}
}

func TestCompileNeutralizesClosingBrace(t *testing.T) {
	s := NewState("a}b")
	got := s.Compile(nil)

	if got != "[{a｝b}]" {
		t.Errorf("Compile = %q, want closing brace substituted", got)
	}
}

func TestCompileWholeBufferMarked(t *testing.T) {
	s := NewState("Year")
	if got := s.Compile([]Range{{Start: 0, End: 4}}); got != "[[%s]]" {
		t.Errorf("Compile = %q, want %q", got, "[[%s]]")
	}
}
