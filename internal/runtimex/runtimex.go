// Package runtimex contains runtime extensions for dealing with
// conditions that can only occur because of programmer error. We panic
// in these cases rather than returning an error, because an invariant
// of the engine has been violated and continuing would produce wrong
// statistics silently.
package runtimex

import "fmt"

// Assert calls panic with the given message when the assertion is false.
func Assert(assertion bool, message string) {
	if !assertion {
		panic(message)
	}
}

// PanicOnError calls panic if err is not nil. The message helps to
// understand which operation failed.
func PanicOnError(err error, message string) {
	if err != nil {
		panic(fmt.Errorf("%s: %w", message, err))
	}
}

// Try panics when err is not nil and otherwise returns value.
func Try[T any](value T, err error) T {
	PanicOnError(err, "Try")
	return value
}
