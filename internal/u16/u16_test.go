package u16

import "testing"

func TestLen(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"abc", 3},
		{"héllo", 5},
		{"日本", 2},
		{"a\U0001F600b", 4}, // emoji is a surrogate pair
	}

	for _, tt := range tests {
		if got := Len(tt.input); got != tt.want {
			t.Errorf("Len(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestCut(t *testing.T) {
	tests := []struct {
		input    string
		off      int
		left     string
		right    string
	}{
		{"hello", 0, "", "hello"},
		{"hello", 2, "he", "llo"},
		{"hello", 5, "hello", ""},
		{"hello", 99, "hello", ""},
		{"hello", -1, "", "hello"},
		{"a\U0001F600b", 3, "a\U0001F600", "b"},
		// Offset inside the surrogate pair rounds down to the pair start.
		{"a\U0001F600b", 2, "a", "\U0001F600b"},
	}

	for _, tt := range tests {
		left, right := Cut(tt.input, tt.off)
		if left != tt.left || right != tt.right {
			t.Errorf("Cut(%q, %d) = (%q, %q), want (%q, %q)",
				tt.input, tt.off, left, right, tt.left, tt.right)
		}
	}
}

func TestSlice(t *testing.T) {
	tests := []struct {
		input      string
		start, end int
		want       string
	}{
		{"hello world", 0, 5, "hello"},
		{"hello world", 6, 11, "world"},
		{"hello", 3, 3, ""},
		{"hello", 4, 2, ""},
		{"hello", 2, 99, "llo"},
	}

	for _, tt := range tests {
		if got := Slice(tt.input, tt.start, tt.end); got != tt.want {
			t.Errorf("Slice(%q, %d, %d) = %q, want %q",
				tt.input, tt.start, tt.end, got, tt.want)
		}
	}
}
