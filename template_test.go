package citationlab

import (
	"errors"
	"testing"
)

func TestParseCompile(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		compiled string
		vars     []string
	}{
		{
			name:     "author year",
			source:   "[Author], [Year]",
			compiled: "[[%s]+{,}+{ }+[%s]]",
			vars:     []string{"Author", "Year"},
		},
		{
			name:     "single variable",
			source:   "[Title]",
			compiled: "[[%s]]",
			vars:     []string{"Title"},
		},
		{
			name:     "empty",
			source:   "",
			compiled: "",
			vars:     nil,
		},
		{
			name:     "unterminated bracket degrades to literal",
			source:   "before [never closed",
			compiled: `[{before \[never closed}]`,
			vars:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := Parse(tt.source)
			if got := tmpl.Compile(); got != tt.compiled {
				t.Errorf("Compile() = %q, want %q", got, tt.compiled)
			}
			gotVars := tmpl.Variables()
			if len(gotVars) != len(tt.vars) {
				t.Fatalf("Variables() = %v, want %v", gotVars, tt.vars)
			}
			for i := range tt.vars {
				if gotVars[i] != tt.vars[i] {
					t.Errorf("Variables()[%d] = %q, want %q", i, gotVars[i], tt.vars[i])
				}
			}
		})
	}
}

func TestSourceRoundTrip(t *testing.T) {
	source := "[Author], [Year]: [Title]"
	tmpl := Parse(source)

	if got := tmpl.Source(); got != source {
		t.Fatalf("Source() = %q, want %q", got, source)
	}

	again := Parse(tmpl.Source())
	if again.Compile() != tmpl.Compile() {
		t.Errorf("reparse changed compiled form: %q vs %q", again.Compile(), tmpl.Compile())
	}
}

func TestWrapExpression(t *testing.T) {
	tmpl := NewTemplate()
	tmpl.AddLiteral("(")
	tmpl.AddVariable("Year")
	tmpl.AddLiteral(")")

	if err := tmpl.WrapExpression(0, 2); err != nil {
		t.Fatalf("WrapExpression(0, 2) failed: %v", err)
	}
	if tmpl.Len() != 1 {
		t.Errorf("Len() = %d after wrap, want 1", tmpl.Len())
	}
	if got := tmpl.Compile(); got != "[[{(}+[%s]+{)}]]" {
		t.Errorf("Compile() = %q", got)
	}
}

func TestWrapExpressionValidation(t *testing.T) {
	tmpl := NewTemplate()
	tmpl.AddVariable("A")
	tmpl.AddVariable("B")
	before := tmpl.Compile()

	if err := tmpl.WrapExpression(1, 0); !errors.Is(err, ErrRangeInverted) {
		t.Errorf("inverted range: got %v, want ErrRangeInverted", err)
	}
	if err := tmpl.WrapExpression(0, 5); !errors.Is(err, ErrIndexOutOfBounds) {
		t.Errorf("out of bounds: got %v, want ErrIndexOutOfBounds", err)
	}
	if err := tmpl.WrapExpression(-1, 1); !errors.Is(err, ErrIndexOutOfBounds) {
		t.Errorf("negative index: got %v, want ErrIndexOutOfBounds", err)
	}
	if got := tmpl.Compile(); got != before {
		t.Errorf("failed wrap mutated template: %q -> %q", before, got)
	}
}

func TestUndo(t *testing.T) {
	tmpl := NewTemplate()
	tmpl.AddLiteral("a")
	tmpl.AddVariable("B")

	if !tmpl.Undo() {
		t.Fatal("Undo() = false with history available")
	}
	if tmpl.Len() != 1 {
		t.Errorf("Len() = %d after undo, want 1", tmpl.Len())
	}
	if !tmpl.Undo() {
		t.Fatal("second Undo() = false")
	}
	if tmpl.Len() != 0 {
		t.Errorf("Len() = %d after second undo, want 0", tmpl.Len())
	}
	if tmpl.Undo() {
		t.Error("Undo() = true on empty history")
	}
}

func TestLoadSourceHistory(t *testing.T) {
	tmpl := Parse("[Author]")
	tmpl.LoadSource("[Author], [Year]", false)

	if len(tmpl.Variables()) != 2 {
		t.Fatalf("Variables() = %v, want two entries", tmpl.Variables())
	}
	if !tmpl.Undo() {
		t.Fatal("Undo() = false after recorded load")
	}
	if len(tmpl.Variables()) != 1 {
		t.Errorf("Variables() = %v after undo, want one entry", tmpl.Variables())
	}

	tmpl.LoadSource("[Title]", true)
	if tmpl.Undo() {
		t.Error("Undo() = true after history reset")
	}
}

func TestOnChange(t *testing.T) {
	tmpl := NewTemplate()

	var states []TemplateState
	tmpl.OnChange(func(s TemplateState) { states = append(states, s) })

	tmpl.AddVariable("Author")
	tmpl.AddLiteral(", ")

	if len(states) != 2 {
		t.Fatalf("observer called %d times, want 2", len(states))
	}
	if states[1].Compiled != "[[%s]+{, }]" {
		t.Errorf("last observed compiled = %q", states[1].Compiled)
	}
	if states[1].Source != "[Author], " {
		t.Errorf("last observed source = %q", states[1].Source)
	}
}

func TestReplaceParts(t *testing.T) {
	tmpl := Parse("[Author]")
	err := tmpl.ReplaceParts([]Part{
		{Type: PartVariable, Display: "Author"},
		{Type: PartExpression, Children: []Part{
			{Type: PartLiteral, Display: " ("},
			{Type: PartVariable, Display: "Year"},
			{Type: PartLiteral, Display: ")"},
		}},
	})
	if err != nil {
		t.Fatalf("ReplaceParts failed: %v", err)
	}

	if got := tmpl.Compile(); got != "[[%s]+[{ (}+[%s]+{)}]]" {
		t.Errorf("Compile() = %q", got)
	}
	if !tmpl.Undo() {
		t.Fatal("Undo() = false after replace")
	}
	if got := tmpl.Compile(); got != "[[%s]]" {
		t.Errorf("Compile() = %q after undo", got)
	}
}

func TestReplacePartsRejectsEmptyExpression(t *testing.T) {
	tmpl := Parse("[Author]")

	err := tmpl.ReplaceParts([]Part{
		{Type: PartLiteral, Display: "Smith"},
		{Type: PartExpression},
	})
	if !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("ReplaceParts accepted a childless expression: err = %v", err)
	}
	if got := tmpl.Compile(); got != "[[%s]]" {
		t.Errorf("Compile() = %q, rejected replace mutated the sequence", got)
	}

	// Same check one level down.
	err = tmpl.ReplaceParts([]Part{
		{Type: PartExpression, Children: []Part{
			{Type: PartVariable, Display: "Year"},
			{Type: PartExpression},
		}},
	})
	if !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("nested childless expression accepted: err = %v", err)
	}
}

func TestParts(t *testing.T) {
	tmpl := Parse("[Author] (ignored), x")
	parts := tmpl.Parts()

	if len(parts) == 0 {
		t.Fatal("Parts() returned nothing")
	}
	if parts[0].Type != PartVariable || parts[0].Display != "Author" {
		t.Errorf("parts[0] = %+v, want Author variable", parts[0])
	}
}
