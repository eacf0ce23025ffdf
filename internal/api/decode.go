package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ParseError is returned for any malformed payload: bad JSON, wrong types,
// unknown fields or failed validation.
type ParseError struct {
	// Path is the dotted JSON path of the offending field, if known.
	Path   string
	Reason string
	// Offset is the byte offset of a syntax error, or -1.
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("parse error")
	if e.Path != "" {
		b.WriteString(" at ")
		b.WriteString(e.Path)
	}
	if e.Offset >= 0 {
		fmt.Fprintf(&b, " (offset %d)", e.Offset)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// FieldError builds a validation ParseError for path.
func FieldError(path, format string, args ...any) *ParseError {
	return &ParseError{Path: path, Reason: fmt.Sprintf(format, args...), Offset: -1}
}

// Validator is implemented by payloads that check their own invariants
// after decoding.
type Validator interface {
	Validate() error
}

type decodeOptions struct {
	allowUnknown bool
}

type DecodeOption func(*decodeOptions)

// AllowUnknownFields tolerates keys not present in the target type. Used
// for third-party responses that carry far more than we read.
func AllowUnknownFields() DecodeOption {
	return func(o *decodeOptions) { o.allowUnknown = true }
}

// Decode reads exactly one JSON value from r into v. Unknown fields,
// trailing data and type mismatches fail with *ParseError, and v.Validate()
// runs when v implements Validator.
func Decode(r io.Reader, v any, opts ...DecodeOption) error {
	var o decodeOptions
	for _, opt := range opts {
		opt(&o)
	}

	dec := json.NewDecoder(r)
	if !o.allowUnknown {
		dec.DisallowUnknownFields()
	}

	if err := dec.Decode(v); err != nil {
		return toParseError(err)
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return &ParseError{Reason: "unexpected data after JSON value", Offset: dec.InputOffset()}
	}

	if val, ok := v.(Validator); ok {
		if err := val.Validate(); err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				return pe
			}
			return &ParseError{Reason: err.Error(), Offset: -1, Err: err}
		}
	}
	return nil
}

// DecodeBytes is Decode over a byte slice.
func DecodeBytes(b []byte, v any, opts ...DecodeOption) error {
	return Decode(bytes.NewReader(b), v, opts...)
}

func toParseError(err error) *ParseError {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	switch {
	case errors.Is(err, io.EOF):
		return &ParseError{Reason: "empty body", Offset: 0, Err: err}
	case errors.Is(err, io.ErrUnexpectedEOF):
		return &ParseError{Reason: "unexpected end of JSON", Offset: -1, Err: err}
	case errors.As(err, &syntaxErr):
		return &ParseError{Reason: syntaxErr.Error(), Offset: syntaxErr.Offset, Err: err}
	case errors.As(err, &typeErr):
		return &ParseError{
			Path:   typeErr.Field,
			Reason: fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value),
			Offset: typeErr.Offset,
			Err:    err,
		}
	}

	if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		return &ParseError{Path: strings.Trim(field, `"`), Reason: "unknown field", Offset: -1, Err: err}
	}

	var pe *ParseError
	if errors.As(err, &pe) {
		return pe
	}
	return &ParseError{Reason: err.Error(), Offset: -1, Err: err}
}
