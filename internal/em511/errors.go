package em511

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a driver failure. ErrorKind values implement error so
// they can be matched with errors.Is against any error returned by this
// package.
type ErrorKind uint8

// Error kinds.
const (
	// ErrUnknownRegister reports a register name missing from the catalog.
	ErrUnknownRegister ErrorKind = iota + 1

	// ErrReadOnlyRegister reports a write attempt on a read-only register.
	ErrReadOnlyRegister

	// ErrOutOfRange reports a decoded or to-be-written value outside the
	// register's bounds.
	ErrOutOfRange

	// ErrOverflowSentinel reports the meter's in-band "EEE" overflow marker.
	ErrOverflowSentinel

	// ErrMalformedResponse reports an unexpected number of response words.
	ErrMalformedResponse

	// ErrTransport reports a failed read or write at the transport.
	ErrTransport
)

// errorKindStrings maps known error kinds to a textual representation.
var errorKindStrings = map[ErrorKind]string{
	ErrUnknownRegister:   "unknown register",
	ErrReadOnlyRegister:  "register is read-only",
	ErrOutOfRange:        "value out of range",
	ErrOverflowSentinel:  "input overflow EEE",
	ErrMalformedResponse: "unexpected register count",
	ErrTransport:         "transport failure",
}

// Error returns a textual representation of the error kind.
func (k ErrorKind) Error() string {
	s, ok := errorKindStrings[k]
	if !ok {
		s = fmt.Sprintf("unknown error kind %d", k)
	}
	return s
}

// RegisterError describes a failed operation on a single register or fixed
// command address. Every field except Kind is diagnostic payload.
type RegisterError struct {
	// Op is the failed operation: "read", "write", "decode" or a command name.
	Op string

	// Unit is the unit identifier of the addressed meter. Zero for pure
	// decoding.
	Unit UnitID

	// Register is the catalog name or the command name.
	Register string

	// Address is the register address. Unused for ErrUnknownRegister.
	Address uint16

	// Kind classifies the failure.
	Kind ErrorKind

	// Value is the offending decoded or requested value, if any.
	Value string

	// Words are the raw response words, if any.
	Words []uint16

	// Min and Max are the violated bounds for ErrOutOfRange.
	Min, Max int64

	// Err is the underlying transport error for ErrTransport.
	Err error
}

// Error renders the failure with all available payload.
func (e *RegisterError) Error() string {
	var b strings.Builder
	b.WriteString("em511: ")
	b.WriteString(e.Op)
	b.WriteString(" ")
	b.WriteString(e.Register)
	if e.Kind != ErrUnknownRegister {
		fmt.Fprintf(&b, " (unit %d, address 0x%04X)", e.Unit, e.Address)
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	switch e.Kind {
	case ErrOverflowSentinel:
		fmt.Fprintf(&b, " for %d-bit register", 16*len(e.Words))
	case ErrMalformedResponse:
		fmt.Fprintf(&b, ": got %d words %#04x", len(e.Words), e.Words)
	case ErrOutOfRange:
		fmt.Fprintf(&b, ": %s, must be between %d and %d", e.Value, e.Min, e.Max)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the error kind and the underlying cause.
func (e *RegisterError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
