package provider

import (
	"errors"
	"fmt"
)

// Kind classifies a provider failure.
type Kind int

const (
	// KindTransport covers network errors, timeouts and non-2xx responses.
	KindTransport Kind = iota + 1
	// KindParse means the body was not in the expected shape.
	KindParse
	// KindValidation means the body parsed but did not carry a usable table.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindParse:
		return "parse"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error is the failure a Provider reports.
type Error struct {
	Kind     Kind
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func Transport(name string, err error) error {
	return &Error{Kind: KindTransport, Provider: name, Err: err}
}

func Parse(name string, err error) error {
	return &Error{Kind: KindParse, Provider: name, Err: err}
}

func Validation(name string, err error) error {
	return &Error{Kind: KindValidation, Provider: name, Err: err}
}

// KindOf reports the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}
