package exr

import (
	"errors"
	"fmt"
)

// Sentinel errors. Typed errors below report them through errors.Is.
var (
	ErrBadMagic                 = errors.New("exr: not an OpenEXR file")
	ErrUnsupportedVersion       = errors.New("exr: unsupported version or feature flags")
	ErrMalformedHeader          = errors.New("exr: malformed header")
	ErrMissingRequiredAttribute = errors.New("exr: missing required attribute")
	ErrCodecFailure             = errors.New("exr: codec failure")
	ErrIOFailure                = errors.New("exr: i/o failure")
	ErrSizeMismatch             = errors.New("exr: decompressed size mismatch")
	ErrUnsupportedCompression   = errors.New("exr: no codec registered for compression")
	ErrUnsupportedLayout        = errors.New("exr: part layout not decodable")
	ErrUnparseable              = errors.New("exr: cannot parse value")
	ErrOutOfBounds              = errors.New("exr: coordinates outside data window")
	ErrNoSuchChannel            = errors.New("exr: no such channel")
	ErrDuplicateChannel         = errors.New("exr: duplicate channel name")
	ErrDuplicatePart            = errors.New("exr: duplicate part name")
	ErrNoSuchPart               = errors.New("exr: no such part")
	ErrBadSampling              = errors.New("exr: invalid channel sampling")
	ErrNotLoaded                = errors.New("exr: part pixels not loaded")
	ErrTypeMismatch             = errors.New("exr: value does not match the attribute type")
)

// DecodeErrorKind classifies a DecodeError.
type DecodeErrorKind int

const (
	DecodeBadMagic DecodeErrorKind = iota
	DecodeUnsupportedVersion
	DecodeMalformedHeader
	DecodeUnknownRequiredAttribute
	DecodeCodecFailure
)

var decodeKinds = [...]struct {
	name string
	err  error
}{
	DecodeBadMagic:                 {"bad magic", ErrBadMagic},
	DecodeUnsupportedVersion:       {"unsupported version", ErrUnsupportedVersion},
	DecodeMalformedHeader:          {"malformed header", ErrMalformedHeader},
	DecodeUnknownRequiredAttribute: {"missing required attribute", ErrMissingRequiredAttribute},
	DecodeCodecFailure:             {"codec failure", ErrCodecFailure},
}

func (k DecodeErrorKind) String() string {
	if int(k) < len(decodeKinds) {
		return decodeKinds[k].name
	}
	return fmt.Sprintf("DecodeErrorKind(%d)", int(k))
}

// DecodeError reports a failure to read a file. Part is -1 when the
// failure is not tied to a part.
type DecodeError struct {
	Kind      DecodeErrorKind
	Part      int
	Attribute string
	Err       error
}

func (e *DecodeError) Error() string {
	msg := "exr: decode: " + e.Kind.String()
	if e.Part >= 0 {
		msg += fmt.Sprintf(" (part %d)", e.Part)
	}
	if e.Attribute != "" {
		msg += fmt.Sprintf(" attribute %q", e.Attribute)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is matches the sentinel of the error kind.
func (e *DecodeError) Is(target error) bool {
	return int(e.Kind) < len(decodeKinds) && target == decodeKinds[e.Kind].err
}

func decodeErr(kind DecodeErrorKind, part int, err error) *DecodeError {
	return &DecodeError{Kind: kind, Part: part, Err: err}
}

// EncodeErrorKind classifies an EncodeError.
type EncodeErrorKind int

const (
	EncodeCodecFailure EncodeErrorKind = iota
	EncodeIOFailure
)

func (k EncodeErrorKind) String() string {
	switch k {
	case EncodeCodecFailure:
		return "codec failure"
	case EncodeIOFailure:
		return "i/o failure"
	}
	return fmt.Sprintf("EncodeErrorKind(%d)", int(k))
}

// EncodeError reports a failed save. Part is -1 for file level failures.
type EncodeError struct {
	Kind EncodeErrorKind
	Part int
	Err  error
}

func (e *EncodeError) Error() string {
	msg := "exr: encode: " + e.Kind.String()
	if e.Part >= 0 {
		msg += fmt.Sprintf(" (part %d)", e.Part)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *EncodeError) Unwrap() error { return e.Err }

func (e *EncodeError) Is(target error) bool {
	switch e.Kind {
	case EncodeCodecFailure:
		return target == ErrCodecFailure
	case EncodeIOFailure:
		return target == ErrIOFailure
	}
	return false
}

// CodecErrorKind classifies a CodecError.
type CodecErrorKind int

const (
	CodecSizeMismatch CodecErrorKind = iota
	CodecUnsupported
	CodecFailed
)

func (k CodecErrorKind) String() string {
	switch k {
	case CodecSizeMismatch:
		return "size mismatch"
	case CodecUnsupported:
		return "unsupported"
	case CodecFailed:
		return "failed"
	}
	return fmt.Sprintf("CodecErrorKind(%d)", int(k))
}

// CodecError is returned by the registry. Expected and Actual are set for
// size mismatches.
type CodecError struct {
	Kind     CodecErrorKind
	Scheme   Compression
	Expected int
	Actual   int
	Err      error
}

func (e *CodecError) Error() string {
	switch e.Kind {
	case CodecSizeMismatch:
		return fmt.Sprintf("exr: %s: decompressed %d bytes, want %d", e.Scheme, e.Actual, e.Expected)
	case CodecUnsupported:
		return fmt.Sprintf("exr: compression %s is not supported", e.Scheme)
	}
	if e.Err != nil {
		return fmt.Sprintf("exr: %s: %v", e.Scheme, e.Err)
	}
	return fmt.Sprintf("exr: %s: codec %s", e.Scheme, e.Kind)
}

func (e *CodecError) Unwrap() error { return e.Err }

func (e *CodecError) Is(target error) bool {
	switch e.Kind {
	case CodecSizeMismatch:
		return target == ErrSizeMismatch
	case CodecUnsupported:
		return target == ErrUnsupportedCompression
	}
	return target == ErrCodecFailure
}

// MemoryLimitExceededError is returned when header fields would require
// more pixel memory than ReadOptions.MaxPixelBytes allows.
type MemoryLimitExceededError struct {
	Requested int64
	Limit     int64
}

func (e *MemoryLimitExceededError) Error() string {
	return fmt.Sprintf("exr: part needs %d bytes of pixel memory, limit is %d", e.Requested, e.Limit)
}
