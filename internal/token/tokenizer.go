// Package token parses a stored template string back into a flat addend list.
//
// The scanner works in one left-to-right pass: balanced bracket spans become
// variables, everything else becomes literal runs split at a fixed
// punctuation set. It deliberately reconstructs a flat Variable/Literal
// sequence only; a compiled Expression group and a bracketed argument share
// the same bracket syntax and are both treated as the latter here.
package token

import (
	"strings"

	"github.com/FHSS-Web-Team/citation-lab/internal/addend"
)

// punctuation is the set of characters that always form their own
// one-character literal run. The fine-grained splitting lets structural
// edits later operate at punctuation-aligned boundaries without the caller
// re-splitting literals.
var punctuation = map[rune]bool{
	',': true,
	':': true,
	';': true,
	'#': true,
	'(': true,
	')': true,
	'"': true,
}

// Parse tokenizes a template string into an ordered addend sequence.
//
// Bracketed spans are captured with nested-depth tracking and emitted as one
// variable each; an unterminated bracket fails open, turning the remainder
// into literal text rather than erroring. Empty or whitespace-only input
// yields an empty sequence.
func Parse(source string) []addend.Addend {
	if strings.TrimSpace(source) == "" {
		return nil
	}

	runes := []rune(normalize(source))

	var parts []addend.Addend
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, splitLiteral(lit.String())...)
			lit.Reset()
		}
	}

	for i := 0; i < len(runes); {
		if runes[i] != '[' {
			lit.WriteRune(runes[i])
			i++
			continue
		}

		end := matchBracket(runes, i)
		if end < 0 {
			// No matching close bracket before end of input: the
			// remainder starting at '[' is literal text.
			lit.WriteString(string(runes[i:]))
			break
		}

		flush()
		inner := string(runes[i+1 : end])
		parts = append(parts, addend.NewVariable(cleanName(inner)))
		i = end + 1
	}
	flush()

	return parts
}

// normalize flattens newlines to spaces so runs never span lines.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\r", " ")
}

// matchBracket returns the index of the ']' closing the '[' at open,
// tracking nested bracket depth, or -1 if the span never closes.
func matchBracket(runes []rune, open int) int {
	depth := 0
	for i := open; i < len(runes); i++ {
		switch runes[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// cleanName strips parenthesized annotation sub-spans from a captured
// bracket body and trims the remainder. Annotations disambiguate arguments
// in the authoring surface without leaking into the variable name.
func cleanName(inner string) string {
	var sb strings.Builder
	depth := 0
	for _, r := range inner {
		switch {
		case r == '(':
			depth++
		case r == ')' && depth > 0:
			depth--
		case depth == 0:
			sb.WriteRune(r)
		}
	}
	return strings.TrimSpace(sb.String())
}

// splitLiteral breaks literal text into runs: each punctuation character is
// its own one-character token, text between punctuation (interior spaces and
// periods included) stays one run.
func splitLiteral(text string) []addend.Addend {
	var parts []addend.Addend
	var run strings.Builder

	for _, r := range text {
		if punctuation[r] {
			if run.Len() > 0 {
				parts = append(parts, addend.NewLiteral(run.String()))
				run.Reset()
			}
			parts = append(parts, addend.NewLiteral(string(r)))
			continue
		}
		run.WriteRune(r)
	}
	if run.Len() > 0 {
		parts = append(parts, addend.NewLiteral(run.String()))
	}

	return parts
}
