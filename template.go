// Package citationlab is a structural compiler for citation templates.
//
// A template is a tree of typed parts: literal text, single-value
// variables, and expression groups a downstream renderer can drop as a
// unit when a value is absent. The package compiles the tree to the
// renderer's string form, parses stored templates back into parts, and
// reconciles character offsets from a flat, possibly-folded text buffer
// onto the tree as the user selects, converts, folds and unfolds spans.
//
// The renderer itself is an external collaborator: Compile produces its
// input, but the null-dropping semantics live entirely on the other side
// of the preview.Renderer contract.
package citationlab

import (
	"errors"
	"fmt"

	"github.com/FHSS-Web-Team/citation-lab/internal/addend"
	"github.com/FHSS-Web-Team/citation-lab/internal/builder"
	"github.com/FHSS-Web-Team/citation-lab/internal/token"
)

// PartType identifies a template part variant.
type PartType string

const (
	// PartLiteral is raw text.
	PartLiteral PartType = "literal"
	// PartVariable is a single-value placeholder.
	PartVariable PartType = "variable"
	// PartExpression groups parts for conditional rendering.
	PartExpression PartType = "expression"
)

// Part is the read-only public view of one template part.
type Part struct {
	Type     PartType `json:"type"`
	Display  string   `json:"display"`
	Children []Part   `json:"children,omitempty"`
}

// TemplateState is the snapshot handed to change observers.
type TemplateState struct {
	Source    string   `json:"source"`
	Compiled  string   `json:"compiled"`
	Variables []string `json:"variables"`
}

// Template owns one template's part sequence and undo history. It is not
// safe for concurrent use; each open template needs its own instance.
type Template struct {
	b         *builder.Builder
	observers []func(TemplateState)
}

// TemplateOption configures a Template.
type TemplateOption func(*Template)

// WithMaxHistory bounds the undo snapshot stack.
func WithMaxHistory(n int) TemplateOption {
	return func(t *Template) {
		t.b = builder.NewWithMaxHistory(n)
	}
}

// NewTemplate creates an empty template.
func NewTemplate(opts ...TemplateOption) *Template {
	t := &Template{b: builder.New()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Parse loads a stored template string into a fresh template. Bracketed
// spans become variables, everything else becomes punctuation-split
// literal runs; an unterminated bracket degrades to literal text rather
// than failing.
func Parse(source string, opts ...TemplateOption) *Template {
	t := NewTemplate(opts...)
	t.b.ReplaceParts(token.Parse(source), &builder.ReplaceOptions{ResetHistory: true})
	return t
}

// OnChange registers an observer invoked after every state-changing
// mutation.
func (t *Template) OnChange(fn func(TemplateState)) {
	t.observers = append(t.observers, fn)
}

func (t *Template) notify() {
	if len(t.observers) == 0 {
		return
	}
	state := t.State()
	for _, fn := range t.observers {
		fn(state)
	}
}

// State returns the current observable snapshot.
func (t *Template) State() TemplateState {
	return TemplateState{
		Source:    t.Source(),
		Compiled:  t.Compile(),
		Variables: t.Variables(),
	}
}

// AddLiteral appends a literal part.
func (t *Template) AddLiteral(text string) {
	t.b.AddLiteral(text)
	t.notify()
}

// AddVariable appends a variable part.
func (t *Template) AddVariable(name string) {
	t.b.AddVariable(name)
	t.notify()
}

// WrapExpression groups the closed part index range [start, end] into one
// expression. Validation failures leave the template untouched.
func (t *Template) WrapExpression(start, end int) error {
	if err := t.b.WrapExpression(start, end); err != nil {
		return mapBuilderErr(err)
	}
	t.notify()
	return nil
}

// ReplaceParts atomically replaces the whole part sequence from the
// public view form, recording history. Expression children nest. An
// expression part with no children is rejected and the sequence is left
// unchanged; an empty group has no compiled form.
func (t *Template) ReplaceParts(parts []Part) error {
	next := make([]addend.Addend, len(parts))
	for i, p := range parts {
		a, err := toAddend(p)
		if err != nil {
			return err
		}
		next[i] = a
	}
	t.b.ReplaceParts(next, nil)
	t.notify()
	return nil
}

// LoadSource replaces the part sequence by parsing source. With
// resetHistory the undo stack is cleared, otherwise the old sequence is
// pushed first.
func (t *Template) LoadSource(source string, resetHistory bool) {
	opts := &builder.ReplaceOptions{RecordHistory: true, ResetHistory: resetHistory}
	t.b.ReplaceParts(token.Parse(source), opts)
	t.notify()
}

// Undo restores the previous part sequence, reporting whether a snapshot
// was available.
func (t *Template) Undo() bool {
	if !t.b.Undo() {
		return false
	}
	t.notify()
	return true
}

// Len returns the number of top-level parts.
func (t *Template) Len() int { return t.b.Len() }

// Variables returns the variable names in order, duplicates preserved.
func (t *Template) Variables() []string { return t.b.Variables() }

// Compile returns the renderer form of the whole template: parts joined
// with "+" in one outer bracket group, empty template compiling to "".
func (t *Template) Compile() string { return addend.Compile(t.b.Parts()) }

// Source returns the authoring form: literal text raw, variables as their
// bracketed names. Parsing it back preserves display text.
func (t *Template) Source() string { return addend.Join(t.b.Parts()) }

// Display returns the concatenated display text.
func (t *Template) Display() string { return addend.Flatten(t.b.Parts()) }

// Parts returns the public view of the current part sequence.
func (t *Template) Parts() []Part {
	parts := t.b.Parts()
	out := make([]Part, len(parts))
	for i, p := range parts {
		out[i] = toPart(p)
	}
	return out
}

func toPart(a addend.Addend) Part {
	switch v := a.(type) {
	case *addend.Variable:
		return Part{Type: PartVariable, Display: v.Display()}
	case *addend.Expression:
		kids := v.Children()
		children := make([]Part, len(kids))
		for i, k := range kids {
			children[i] = toPart(k)
		}
		return Part{Type: PartExpression, Display: v.Display(), Children: children}
	default:
		return Part{Type: PartLiteral, Display: a.Display()}
	}
}

func toAddend(p Part) (addend.Addend, error) {
	switch p.Type {
	case PartVariable:
		return addend.NewVariable(p.Display), nil
	case PartExpression:
		if len(p.Children) == 0 {
			return nil, fmt.Errorf("%w: expression part has no children", ErrEmptySelection)
		}
		children := make([]addend.Addend, len(p.Children))
		for i, c := range p.Children {
			child, err := toAddend(c)
			if err != nil {
				return nil, err
			}
			children[i] = child
		}
		return addend.NewExpression(children), nil
	default:
		return addend.NewLiteral(p.Display), nil
	}
}

// mapBuilderErr rewraps builder sentinels as the package-level taxonomy so
// callers only ever match against citationlab errors.
func mapBuilderErr(err error) error {
	switch {
	case errors.Is(err, builder.ErrRangeInverted):
		return fmt.Errorf("%w: %v", ErrRangeInverted, err)
	case errors.Is(err, builder.ErrIndexOutOfBounds):
		return fmt.Errorf("%w: %v", ErrIndexOutOfBounds, err)
	default:
		return err
	}
}
