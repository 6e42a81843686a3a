// Package optional implements optional values, which we use for
// aggregate fields that may legitimately be absent (e.g., the pooled
// mean of a group without any poolable record). Using an explicit
// option type rather than a sentinel NaN or a nullable pointer keeps
// "no data" distinct from "data that happens to be zero".
package optional

import "github.com/nanolab/scanpipe/internal/runtimex"

// Value is an optional value. The zero value is None.
type Value[T any] struct {
	indirect *T
}

// None constructs an empty [Value].
func None[T any]() Value[T] {
	return Value[T]{nil}
}

// Some constructs a [Value] containing the given value.
func Some[T any](value T) Value[T] {
	return Value[T]{&value}
}

// IsNone returns whether the [Value] is empty.
func (v Value[T]) IsNone() bool {
	return v.indirect == nil
}

// IsSome returns whether the [Value] contains a value.
func (v Value[T]) IsSome() bool {
	return !v.IsNone()
}

// Unwrap returns the contained value and panics when the [Value] is empty.
func (v Value[T]) Unwrap() T {
	runtimex.Assert(v.IsSome(), "optional: unwrapping a None value")
	return *v.indirect
}

// UnwrapOr returns the contained value or the given fallback.
func (v Value[T]) UnwrapOr(fallback T) T {
	if v.IsNone() {
		return fallback
	}
	return *v.indirect
}
