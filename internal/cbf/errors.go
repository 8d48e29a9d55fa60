package cbf

import (
	"errors"
	"fmt"
)

// Decode errors. Everything except ErrNoImage aborts the current image.
var (
	ErrNoImage                  = errors.New("no image found")
	ErrUnsupportedByteOrder     = errors.New("unsupported byte order")
	ErrUnsupportedContentType   = errors.New("unsupported content type")
	ErrUnsupportedEncoding      = errors.New("unsupported encoding")
	ErrUnsupportedCompression   = errors.New("unsupported compression")
	ErrUnsupportedPixelFormat   = errors.New("unsupported pixel format")
	ErrUnrecognisedBinaryHeader = errors.New("unrecognised binary header")
	ErrMissingDimension         = errors.New("missing dimension")
	ErrDigestMismatch           = errors.New("payload digest mismatch")

	// ErrMissingField and ErrInvalidField classify a *FieldError with errors.Is.
	ErrMissingField = errors.New("missing header field")
	ErrInvalidField = errors.New("invalid header field value")
)

// SyntaxError reports a header block that cannot be tokenized.
type SyntaxError struct {
	Msg   string
	Input string
}

func (e *SyntaxError) Error() string {
	in := e.Input
	if len(in) > 40 {
		in = in[:40] + "..."
	}
	return fmt.Sprintf("header syntax error: %s at %q", e.Msg, in)
}

// FieldError reports a required header field that is absent, or any field
// whose value cannot be converted.
type FieldError struct {
	Field   string
	Value   string
	Missing bool
}

func (e *FieldError) Error() string {
	if e.Missing {
		return fmt.Sprintf("missing header field %q", e.Field)
	}
	return fmt.Sprintf("invalid value %q for header field %q", e.Value, e.Field)
}

// Is lets callers match with errors.Is(err, ErrMissingField) or ErrInvalidField.
func (e *FieldError) Is(target error) bool {
	switch target {
	case ErrMissingField:
		return e.Missing
	case ErrInvalidField:
		return !e.Missing
	}
	return false
}

func missingField(name string) error {
	return &FieldError{Field: name, Missing: true}
}

func invalidField(name, value string) error {
	return &FieldError{Field: name, Value: value}
}
