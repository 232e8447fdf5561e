// Package u16 provides UTF-16 code-unit offset arithmetic over Go strings.
//
// Selection offsets arrive from text-editor surfaces in UTF-16 code units
// (the granularity of DOM and editor selection APIs), while Go strings are
// UTF-8. These helpers convert between the two index spaces without ever
// materializing a UTF-16 buffer for the whole document.
package u16

import "unicode/utf16"

// Len returns the length of s in UTF-16 code units.
func Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// Cut splits s at the UTF-16 code-unit offset off and returns both halves.
// Offsets past the end clamp to the end. An offset that lands between the
// two code units of a surrogate pair is rounded down to the pair's start,
// so the split never produces invalid text.
func Cut(s string, off int) (string, string) {
	if off <= 0 {
		return "", s
	}
	n := 0
	for i, r := range s {
		if n >= off {
			return s[:i], s[i:]
		}
		n += utf16.RuneLen(r)
	}
	return s, ""
}

// Slice returns the substring of s covering the UTF-16 code-unit range
// [start, end), with both offsets clamped to the string.
func Slice(s string, start, end int) string {
	if end <= start {
		return ""
	}
	_, tail := Cut(s, start)
	head, _ := Cut(tail, end-start)
	return head
}
