// Package addend implements the typed template part tree.
//
// A citation template is an ordered sequence of addends. Each addend carries
// two derived string forms: the display form shown in the authoring surface,
// and the compiled form consumed by the downstream renderer. Addends are
// immutable after construction; structural change means replacing a node,
// never editing it in place.
package addend

import "strings"

// Placeholder is the compiled token standing in for one runtime value.
const Placeholder = "[%s]"

// Addend is one node of the template tree: a Literal, a Variable, or an
// Expression. The set of variants is closed; the unexported marker keeps
// outside packages from adding implementations.
type Addend interface {
	// Display returns the human-readable form shown in the editor.
	Display() string
	// Compiled returns the serialized form consumed by the renderer.
	Compiled() string
	// Variables returns the contributed variable names in order,
	// duplicates preserved.
	Variables() []string

	isAddend()
}

// Literal wraps raw text.
type Literal struct {
	text string
}

// NewLiteral creates a literal addend around raw text.
func NewLiteral(text string) *Literal {
	return &Literal{text: text}
}

func (l *Literal) Display() string { return l.text }

// Compiled wraps the text in braces, with any brace or bracket characters
// inside backslash-escaped so the compiled grammar stays unambiguous.
func (l *Literal) Compiled() string { return "{" + Escape(l.text) + "}" }

func (l *Literal) Variables() []string { return nil }

func (l *Literal) isAddend() {}

// Variable wraps a placeholder name. The name exists only for the authoring
// surface and variable enumeration; the compiled form is always Placeholder.
type Variable struct {
	name string
}

// NewVariable creates a variable addend with the given name.
func NewVariable(name string) *Variable {
	return &Variable{name: name}
}

func (v *Variable) Display() string { return v.name }

func (v *Variable) Compiled() string { return Placeholder }

func (v *Variable) Variables() []string { return []string{v.name} }

func (v *Variable) isAddend() {}

// Name returns the variable's name.
func (v *Variable) Name() string { return v.name }

// Expression groups an ordered, non-empty list of child addends so a
// downstream renderer can drop the whole group when one of its variables is
// absent. Callers that form the child range must reject empty slices before
// constructing one.
type Expression struct {
	children []Addend
}

// NewExpression creates an expression over the given children. The slice is
// copied, so the caller keeps no alias into the expression.
func NewExpression(children []Addend) *Expression {
	kids := make([]Addend, len(children))
	copy(kids, children)
	return &Expression{children: kids}
}

func (e *Expression) Display() string {
	var sb strings.Builder
	for _, c := range e.children {
		sb.WriteString(c.Display())
	}
	return sb.String()
}

func (e *Expression) Compiled() string {
	parts := make([]string, len(e.children))
	for i, c := range e.children {
		parts[i] = c.Compiled()
	}
	return "[" + strings.Join(parts, "+") + "]"
}

func (e *Expression) Variables() []string {
	var names []string
	for _, c := range e.children {
		names = append(names, c.Variables()...)
	}
	return names
}

func (e *Expression) isAddend() {}

// Children returns a copy of the child list.
func (e *Expression) Children() []Addend {
	kids := make([]Addend, len(e.children))
	copy(kids, e.children)
	return kids
}

// Escape backslash-escapes the brace and bracket characters that carry
// meaning in the compiled grammar.
func Escape(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch r {
		case '{', '}', '[', ']':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Unescape is the exact inverse of Escape: it removes one backslash before
// each escaped brace or bracket. A trailing lone backslash is kept as-is.
func Unescape(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '\\' && i+1 < len(runes) {
			switch runes[i+1] {
			case '{', '}', '[', ']':
				i++
			}
		}
		sb.WriteRune(runes[i])
	}
	return sb.String()
}

// Compile serializes a whole part sequence into the renderer form: the parts
// joined by "+" inside one outer bracket group. An empty sequence compiles to
// the empty string.
func Compile(parts []Addend) string {
	if len(parts) == 0 {
		return ""
	}
	compiled := make([]string, len(parts))
	for i, p := range parts {
		compiled[i] = p.Compiled()
	}
	return "[" + strings.Join(compiled, "+") + "]"
}

// Join serializes a part sequence into its authoring form: literal text raw,
// variables as their bracketed name, expressions recursively flattened. This
// is the form the tokenizer parses back; see token.Parse.
func Join(parts []Addend) string {
	var sb strings.Builder
	for _, p := range parts {
		switch a := p.(type) {
		case *Literal:
			sb.WriteString(a.Display())
		case *Variable:
			sb.WriteString("[" + a.Name() + "]")
		case *Expression:
			sb.WriteString(Join(a.Children()))
		}
	}
	return sb.String()
}

// Flatten returns the concatenated display text of a part sequence.
func Flatten(parts []Addend) string {
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(p.Display())
	}
	return sb.String()
}

// VariableNames flattens Variables across a part sequence, in order, with
// duplicates preserved.
func VariableNames(parts []Addend) []string {
	var names []string
	for _, p := range parts {
		names = append(names, p.Variables()...)
	}
	return names
}
