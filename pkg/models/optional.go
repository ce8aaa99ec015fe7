package models

import (
	"github.com/goccy/go-json"
)

// Optional is a field that is either absent or set to a value.
// A JSON field that is present (including null) is set; an omitted field stays absent.
type Optional[T any] struct {
	value T
	set   bool
}

// Some returns an Optional set to v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// IsSet reports whether a value was supplied.
func (o Optional[T]) IsSet() bool { return o.set }

// Value returns the value and whether it was supplied.
func (o Optional[T]) Value() (T, bool) { return o.value, o.set }

// Or returns the value when set, fallback otherwise.
func (o Optional[T]) Or(fallback T) T {
	if o.set {
		return o.value
	}
	return fallback
}

// UnmarshalJSON marks the field as set.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.set = true
	if string(data) == "null" {
		var zero T
		o.value = zero
		return nil
	}
	return json.Unmarshal(data, &o.value)
}

// MarshalJSON writes the value, or null when absent.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.set {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}
