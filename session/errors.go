package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mrjoshuak/go-exredit/exr"
)

var (
	// ErrExists is returned by Save when the target exists and overwrite
	// was not requested.
	ErrExists = errors.New("session: file exists")
	// ErrNoPath is returned by Save without a path on a document that was
	// never saved.
	ErrNoPath = errors.New("session: document has no path")
	// ErrUntyped is returned when a new attribute is set without a type.
	ErrUntyped = errors.New("session: new attributes need a type")
	// ErrNoAttribute is returned when removing an attribute that is not set.
	ErrNoAttribute = errors.New("session: no such attribute")
)

// EditErrorKind classifies a rejected edit.
type EditErrorKind int

const (
	EditOutOfBounds EditErrorKind = iota
	EditTypeMismatch
	EditIncompleteState
	EditNotFound
	EditConflict
)

func (k EditErrorKind) String() string {
	switch k {
	case EditOutOfBounds:
		return "out of bounds"
	case EditTypeMismatch:
		return "type mismatch"
	case EditIncompleteState:
		return "incomplete state"
	case EditNotFound:
		return "not found"
	case EditConflict:
		return "conflict"
	}
	return fmt.Sprintf("EditErrorKind(%d)", int(k))
}

// EditError reports a rejected edit. The document is unchanged when an
// edit fails.
type EditError struct {
	Kind      EditErrorKind
	Part      int
	Channel   string
	Attribute string
	Err       error
}

func (e *EditError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "edit part %d", e.Part)
	if e.Channel != "" {
		fmt.Fprintf(&b, " channel %q", e.Channel)
	}
	if e.Attribute != "" {
		fmt.Fprintf(&b, " attribute %q", e.Attribute)
	}
	fmt.Fprintf(&b, ": %s", e.Kind)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *EditError) Unwrap() error { return e.Err }

// editKinds maps core errors to edit error kinds, first match wins.
var editKinds = []struct {
	err  error
	kind EditErrorKind
}{
	{exr.ErrOutOfBounds, EditOutOfBounds},
	{exr.ErrTypeMismatch, EditTypeMismatch},
	{exr.ErrAttributeShape, EditTypeMismatch},
	{exr.ErrUnparseable, EditTypeMismatch},
	{ErrUntyped, EditTypeMismatch},
	{exr.ErrNoSuchPart, EditNotFound},
	{exr.ErrNoSuchChannel, EditNotFound},
	{ErrNoAttribute, EditNotFound},
	{exr.ErrDuplicatePart, EditConflict},
	{exr.ErrDuplicateChannel, EditConflict},
	{exr.ErrReadOnlyAttr, EditConflict},
	{exr.ErrRequiredAttr, EditConflict},
	{exr.ErrBadSampling, EditConflict},
	{exr.ErrUnsupportedLayout, EditConflict},
}

// classify wraps err in an EditError when it is an edit rejection.
// Decode failures of lazily loaded parts are returned unchanged.
func classify(err error, part int, channel, attr string) error {
	if err == nil {
		return nil
	}
	var de *exr.DecodeError
	var ce *exr.CodecError
	if errors.As(err, &de) || errors.As(err, &ce) {
		return err
	}
	for _, k := range editKinds {
		if errors.Is(err, k.err) {
			return &EditError{Kind: k.kind, Part: part, Channel: channel, Attribute: attr, Err: err}
		}
	}
	return err
}
