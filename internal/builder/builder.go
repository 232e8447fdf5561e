// Package builder owns the mutable top-level part sequence of one template
// and its undo history.
//
// History is a stack of full prior sequences. Snapshots are compared by
// per-index identity of the addend pointers, never by value: replacing a
// part with a freshly constructed but value-equal addend is a real change
// and pushes history. Only true no-ops (the reference-identical sequence)
// leave the stack alone.
package builder

import (
	"errors"
	"fmt"

	"github.com/FHSS-Web-Team/citation-lab/internal/addend"
)

// DefaultMaxHistory bounds the snapshot stack; the oldest snapshot is
// dropped once the bound is reached.
const DefaultMaxHistory = 100

var (
	// ErrRangeInverted reports endIndex < startIndex.
	ErrRangeInverted = errors.New("end index precedes start index")
	// ErrIndexOutOfBounds reports an index outside [0, len-1].
	ErrIndexOutOfBounds = errors.New("index out of bounds")
)

// ReplaceOptions controls how ReplaceParts treats history.
type ReplaceOptions struct {
	// RecordHistory pushes the old sequence before replacing. Default true.
	RecordHistory bool
	// ResetHistory clears history instead of pushing. Default false.
	ResetHistory bool
}

// DefaultReplaceOptions returns the options ReplaceParts assumes when the
// caller passes nil.
func DefaultReplaceOptions() *ReplaceOptions {
	return &ReplaceOptions{RecordHistory: true}
}

// Builder holds the ordered part sequence and its snapshot history.
type Builder struct {
	parts      []addend.Addend
	history    [][]addend.Addend
	maxHistory int
}

// New creates an empty builder with the default history bound.
func New() *Builder {
	return &Builder{maxHistory: DefaultMaxHistory}
}

// NewWithMaxHistory creates an empty builder with an explicit history bound.
// A bound below one falls back to the default.
func NewWithMaxHistory(maxHistory int) *Builder {
	if maxHistory < 1 {
		maxHistory = DefaultMaxHistory
	}
	return &Builder{maxHistory: maxHistory}
}

// Parts returns a defensive copy of the current sequence.
func (b *Builder) Parts() []addend.Addend {
	out := make([]addend.Addend, len(b.parts))
	copy(out, b.parts)
	return out
}

// Len returns the number of top-level parts.
func (b *Builder) Len() int { return len(b.parts) }

// HistoryLen returns the number of undo snapshots held.
func (b *Builder) HistoryLen() int { return len(b.history) }

// AddLiteral appends a literal part and records history.
func (b *Builder) AddLiteral(text string) {
	b.push()
	b.parts = append(b.parts, addend.NewLiteral(text))
}

// AddVariable appends a variable part and records history.
func (b *Builder) AddVariable(name string) {
	b.push()
	b.parts = append(b.parts, addend.NewVariable(name))
}

// ReplaceParts atomically replaces the whole sequence. With nil options the
// old sequence is pushed onto history first; a reference-identical new
// sequence is a no-op and never grows history.
func (b *Builder) ReplaceParts(parts []addend.Addend, opts *ReplaceOptions) {
	if opts == nil {
		opts = DefaultReplaceOptions()
	}

	same := sameSequence(b.parts, parts)

	if opts.ResetHistory {
		b.history = nil
		if same {
			return
		}
	} else if same {
		return
	} else if opts.RecordHistory {
		b.push()
	}

	b.parts = make([]addend.Addend, len(parts))
	copy(b.parts, parts)
}

// WrapExpression replaces the closed index range [startIndex, endIndex] of
// the sequence with a single expression whose children are exactly that
// slice. Validation failures leave the sequence and history untouched.
func (b *Builder) WrapExpression(startIndex, endIndex int) error {
	if endIndex < startIndex {
		return fmt.Errorf("%w: start %d, end %d", ErrRangeInverted, startIndex, endIndex)
	}
	if startIndex < 0 || startIndex >= len(b.parts) {
		return fmt.Errorf("%w: start %d of %d parts", ErrIndexOutOfBounds, startIndex, len(b.parts))
	}
	if endIndex < 0 || endIndex >= len(b.parts) {
		return fmt.Errorf("%w: end %d of %d parts", ErrIndexOutOfBounds, endIndex, len(b.parts))
	}

	b.push()

	expr := addend.NewExpression(b.parts[startIndex : endIndex+1])
	next := make([]addend.Addend, 0, len(b.parts)-(endIndex-startIndex))
	next = append(next, b.parts[:startIndex]...)
	next = append(next, expr)
	next = append(next, b.parts[endIndex+1:]...)
	b.parts = next

	return nil
}

// Undo pops the most recent snapshot and makes it current. It reports
// whether a snapshot was available; on empty history the state is left
// unchanged.
func (b *Builder) Undo() bool {
	if len(b.history) == 0 {
		return false
	}
	b.parts = b.history[len(b.history)-1]
	b.history = b.history[:len(b.history)-1]
	return true
}

// Variables flattens variable names across the current sequence, in order,
// duplicates preserved.
func (b *Builder) Variables() []string {
	return addend.VariableNames(b.parts)
}

// SnapshotBytes estimates the memory carried by the current sequence plus
// history, for budget accounting.
func (b *Builder) SnapshotBytes() int64 {
	total := sequenceBytes(b.parts)
	for _, snap := range b.history {
		total += sequenceBytes(snap)
	}
	return total
}

// push records the current sequence as an undo snapshot, dropping the
// oldest snapshot past the bound. The stored slice is the live one; every
// mutation path installs a freshly built slice, so snapshots never alias
// future states.
func (b *Builder) push() {
	snap := b.parts
	b.history = append(b.history, snap)
	if len(b.history) > b.maxHistory {
		b.history = b.history[1:]
	}
}

// sameSequence reports length equality plus per-index reference identity.
func sameSequence(a, b []addend.Addend) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sequenceBytes(parts []addend.Addend) int64 {
	var total int64 = 24 // slice header
	for _, p := range parts {
		total += 16 + int64(len(p.Display()))
	}
	return total
}
