package citationlab

import (
	"errors"
	"fmt"

	"github.com/FHSS-Web-Team/citation-lab/internal/fold"
)

// Validation failures: raised synchronously, state left unchanged. The
// caller surfaces them to the user and must not retry automatically.
var (
	// ErrNotInteger reports a structural index that arrived as a
	// non-integer number.
	ErrNotInteger = errors.New("index is not an integer")
	// ErrRangeInverted reports an end index preceding its start index.
	ErrRangeInverted = errors.New("end index precedes start index")
	// ErrIndexOutOfBounds reports an index outside the part sequence.
	ErrIndexOutOfBounds = errors.New("index out of bounds")
)

// Selection failures: reported as a no-op with a user-facing message;
// session state is never corrupted.
var (
	// ErrEmptySelection reports a selection spanning zero characters.
	ErrEmptySelection = errors.New("selection spans zero characters")
	// ErrNoLiteralOverlap reports a selection that overlaps no literal
	// text.
	ErrNoLiteralOverlap = errors.New("selection overlaps no literal text")
	// ErrUnbalancedSelection reports a fold selection that is not a
	// balanced bracket-and-brace span.
	ErrUnbalancedSelection = errors.New("selection is not a balanced span")
)

// ErrPreviewCapExceeded reports that a preview enumerated down to its
// advisory row because the argument subsets exceed the configured cap. It
// is advisory: the rows carry the message, the sentinel gives hosts a
// stable code to key on.
var ErrPreviewCapExceeded = errors.New("argument combinations exceed the preview cap")

// ErrSessionClosed reports an operation against a closed workbench or a
// session it has already released.
var ErrSessionClosed = errors.New("session is closed")

// mapFoldErr rewrites fold-layer sentinels onto their public
// counterparts so callers match with errors.Is against this package only.
func mapFoldErr(err error) error {
	switch {
	case errors.Is(err, fold.ErrEmptySelection):
		return ErrEmptySelection
	case errors.Is(err, fold.ErrUnbalancedSelection):
		return fmt.Errorf("%w: %v", ErrUnbalancedSelection, err)
	default:
		return err
	}
}
