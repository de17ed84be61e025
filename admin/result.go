package admin

import (
	"encoding/json"

	"github.com/xraph/reseller"
)

// Result is the uniform envelope returned to the outer tier. The payload
// is only reachable through Get, so a failed result can never be read as
// data.
type Result[T any] struct {
	success  bool
	data     T
	message  string
	kind     reseller.Kind
	warnings []string
}

// OK wraps data in a successful result. Warnings mark a partial success.
func OK[T any](data T, warnings ...error) Result[T] {
	r := Result[T]{success: true, data: data}
	for _, w := range warnings {
		if w != nil {
			r.warnings = append(r.warnings, w.Error())
		}
	}
	if len(r.warnings) > 0 {
		r.message = "completed with warnings"
	}
	return r
}

// Fail wraps err in a failed result classified by reseller.KindOf.
func Fail[T any](err error) Result[T] {
	return Result[T]{
		message: err.Error(),
		kind:    reseller.KindOf(err),
	}
}

// Get returns the payload and whether the operation succeeded.
func (r Result[T]) Get() (T, bool) {
	if !r.success {
		var zero T
		return zero, false
	}
	return r.data, true
}

// Success reports whether the operation succeeded.
func (r Result[T]) Success() bool { return r.success }

// Message is the failure text, or a note on a partial success.
func (r Result[T]) Message() string { return r.message }

// Kind classifies a failure. It is empty on success.
func (r Result[T]) Kind() reseller.Kind { return r.kind }

// Warnings lists the sub-steps that failed after the primary write.
func (r Result[T]) Warnings() []string { return r.warnings }

type envelope struct {
	Success  bool          `json:"success"`
	Data     any           `json:"data,omitempty"`
	Message  string        `json:"message,omitempty"`
	Kind     reseller.Kind `json:"kind,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
}

// MarshalJSON renders {success, data?, message?}.
func (r Result[T]) MarshalJSON() ([]byte, error) {
	env := envelope{
		Success:  r.success,
		Message:  r.message,
		Kind:     r.kind,
		Warnings: r.warnings,
	}
	if r.success {
		env.Data = r.data
	}
	return json.Marshal(env)
}
