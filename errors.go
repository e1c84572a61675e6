package adblockcore

import "errors"

// Sentinel errors, compared with errors.Is per SPEC_FULL.md's Error
// handling section — the teacher's own pattern of package-level
// errors.New values rather than ad hoc fmt.Errorf strings.
var (
	// ErrInvalidSyntax is returned by operations that reject a malformed
	// argument outright (e.g. a tag name containing a comma).
	ErrInvalidSyntax = errors.New("adblockcore: invalid syntax")

	// ErrUnsupportedOption is never returned by Parse itself (an unknown
	// option silently drops the one rule, per spec.md §7), but is exposed
	// for callers that want to treat unsupported options as fatal.
	ErrUnsupportedOption = errors.New("adblockcore: unsupported filter option")

	// ErrLineTooLong marks a line discarded for exceeding MaxLineLength.
	ErrLineTooLong = errors.New("adblockcore: line exceeds max length")

	// ErrMalformedBuffer is the message Engine.Deserialize logs, wrapping the
	// underlying error, when the input bytes cannot be parsed as a
	// previously Serialize-d buffer; Deserialize itself returns false.
	ErrMalformedBuffer = errors.New("adblockcore: malformed serialized buffer")

	// ErrUnknownTag is returned by Engine.RequireTag when the tag is not
	// currently enabled.
	ErrUnknownTag = errors.New("adblockcore: unknown tag")
)
