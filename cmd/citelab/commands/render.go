package commands

import (
	"fmt"
	"strings"
)

// PlainRenderer is a reference formatter for the compiled template form.
// It substitutes present values into placeholders and drops a bracket
// group entirely when every placeholder inside it is absent, so optional
// punctuation wrapped with its variable disappears with it.
type PlainRenderer struct{}

// Format renders template against values, nil marking an absent value.
func (PlainRenderer) Format(template string, values []*string) (string, error) {
	if template == "" {
		return "", nil
	}

	root, rest, err := parseGroup(template)
	if err != nil {
		return "", err
	}
	if rest != "" {
		return "", fmt.Errorf("trailing input after template: %q", rest)
	}

	cursor := 0
	out, _, _, err := render(root, values, &cursor)
	if err != nil {
		return "", err
	}
	if cursor != len(values) {
		return "", fmt.Errorf("template has %d placeholders, got %d values", cursor, len(values))
	}
	return out, nil
}

type nodeKind int

const (
	nodeLiteral nodeKind = iota
	nodePlaceholder
	nodeGroup
)

type node struct {
	kind     nodeKind
	text     string
	children []*node
}

// parseGroup consumes one "[...]" group from the head of s, returning the
// unconsumed tail.
func parseGroup(s string) (*node, string, error) {
	if !strings.HasPrefix(s, "[") {
		return nil, "", fmt.Errorf("expected '[' at %q", s)
	}
	s = s[1:]

	group := &node{kind: nodeGroup}
	for {
		if s == "" {
			return nil, "", fmt.Errorf("unterminated group")
		}

		var child *node
		var err error
		switch {
		case strings.HasPrefix(s, "[%s]"):
			child, s = &node{kind: nodePlaceholder}, s[len("[%s]"):]
		case strings.HasPrefix(s, "["):
			child, s, err = parseGroup(s)
			if err != nil {
				return nil, "", err
			}
		case strings.HasPrefix(s, "{"):
			child, s, err = parseLiteral(s)
			if err != nil {
				return nil, "", err
			}
		default:
			return nil, "", fmt.Errorf("unexpected input at %q", s)
		}
		group.children = append(group.children, child)

		if strings.HasPrefix(s, "+") {
			s = s[1:]
			continue
		}
		if strings.HasPrefix(s, "]") {
			return group, s[1:], nil
		}
		return nil, "", fmt.Errorf("expected '+' or ']' at %q", s)
	}
}

// parseLiteral consumes one "{...}" literal, resolving backslash escapes.
func parseLiteral(s string) (*node, string, error) {
	s = s[1:]

	var text strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 >= len(s) {
				return nil, "", fmt.Errorf("dangling escape in literal")
			}
			i++
			text.WriteByte(s[i])
		case '}':
			return &node{kind: nodeLiteral, text: text.String()}, s[i+1:], nil
		default:
			text.WriteByte(s[i])
		}
	}
	return nil, "", fmt.Errorf("unterminated literal")
}

// render walks the tree substituting values in placeholder order. It
// reports how many placeholders the subtree holds and how many of those
// were present; a group holding only absent placeholders renders as "".
func render(n *node, values []*string, cursor *int) (string, int, int, error) {
	switch n.kind {
	case nodeLiteral:
		return n.text, 0, 0, nil

	case nodePlaceholder:
		if *cursor >= len(values) {
			return "", 0, 0, fmt.Errorf("template has more placeholders than values")
		}
		v := values[*cursor]
		*cursor++
		if v == nil {
			return "", 0, 1, nil
		}
		return *v, 1, 1, nil

	default:
		var out strings.Builder
		present, total := 0, 0
		for _, child := range n.children {
			text, p, tot, err := render(child, values, cursor)
			if err != nil {
				return "", 0, 0, err
			}
			out.WriteString(text)
			present += p
			total += tot
		}
		if total > 0 && present == 0 {
			return "", present, total, nil
		}
		return out.String(), present, total, nil
	}
}
