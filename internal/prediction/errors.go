package prediction

import (
	"errors"
	"fmt"
)

// Kind classifies why a prediction did not produce a result.
type Kind string

const (
	KindValidation Kind = "validation"
	KindTransport  Kind = "transport"
	KindTimeout    Kind = "timeout"
	KindServer     Kind = "server"
	KindContract   Kind = "contract"
)

// Fixed user-facing messages.
const (
	MsgTransport = "Unable to complete prediction request. Please retry."
	MsgTimeout   = "Request timed out. Please retry."
	MsgContract  = "Response missing numeric predicted_rul"
)

// Error is returned by every failing operation of this package. Message is
// safe to show to an operator as is.
type Error struct {
	Kind       Kind
	Message    string
	Field      string // validation only
	StatusCode int    // server only
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the kind of err, or "" when err did not come from here.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

func validationError(f Field) *Error {
	return &Error{
		Kind:    KindValidation,
		Field:   f.Name,
		Message: fmt.Sprintf("Provide a numeric value for %s.", f.Label),
	}
}

func transportError(err error) *Error {
	return &Error{Kind: KindTransport, Message: MsgTransport, Err: err}
}

func timeoutError(err error) *Error {
	return &Error{Kind: KindTimeout, Message: MsgTimeout, Err: err}
}

func contractError(err error) *Error {
	return &Error{Kind: KindContract, Message: MsgContract, Err: err}
}
