// Package patch provides an optional-field type for partial updates.
//
// A Field is either Unset (leave the target alone) or Set to a value. For
// pointer types a Set(nil) clears the target, which a bare nullable parameter
// cannot express.
package patch

import (
	"encoding/json"
)

type Field[T any] struct {
	set   bool
	value T
}

// Set returns a field that will overwrite the target with v.
func Set[T any](v T) Field[T] {
	return Field[T]{set: true, value: v}
}

// Unset returns a field that leaves the target unchanged.
func Unset[T any]() Field[T] {
	return Field[T]{}
}

// Null is Set(nil) for pointer fields.
func Null[T any]() Field[*T] {
	return Field[*T]{set: true}
}

func (f Field[T]) IsSet() bool {
	return f.set
}

// Get returns the value and whether it was set.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.set
}

// Apply writes the value into dst when set and reports whether it did.
func (f Field[T]) Apply(dst *T) bool {
	if !f.set {
		return false
	}
	*dst = f.value
	return true
}

// IsZero makes `json:",omitzero"` drop unset fields.
func (f Field[T]) IsZero() bool {
	return !f.set
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.value)
}

// UnmarshalJSON is only invoked for keys present in the document, so any
// call marks the field as set. A JSON null decodes into the zero value.
func (f *Field[T]) UnmarshalJSON(b []byte) error {
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	f.value = v
	f.set = true
	return nil
}
