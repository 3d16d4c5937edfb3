package driver

import "fmt"

// outcomeKind discriminates SendOutcome's variants. Unexported: callers
// must use the named predicates below rather than matching on the kind
// directly, since Timeout/Framing carry protocol-level meaning that is
// easy to get backwards (Timeout means "no device", Framing means
// "multiple devices").
type outcomeKind int

const (
	kindOK outcomeKind = iota
	kindAnswer
	kindTimeout
	kindFraming
	kindDriverError
)

// SendOutcome is the result of a single send_frame submission.
type SendOutcome struct {
	kind   outcomeKind
	answer uint8
	err    error
}

// OK reports a command with no expected answer completed.
func OK() SendOutcome { return SendOutcome{kind: kindOK} }

// Answer reports a backward frame was received with the given byte value.
func Answer(b uint8) SendOutcome { return SendOutcome{kind: kindAnswer, answer: b} }

// Timeout reports no backward frame arrived within the reply window. At
// the protocol level this means "no device answered".
func Timeout() SendOutcome { return SendOutcome{kind: kindTimeout} }

// Framing reports a collision or malformed backward frame. At the
// protocol level this means "more than one device answered".
func Framing() SendOutcome { return SendOutcome{kind: kindFraming} }

// DriverError reports a true transport/driver failure, the only outcome
// that should propagate as an error to a caller.
func DriverError(cause error) SendOutcome { return SendOutcome{kind: kindDriverError, err: cause} }

// IsOK reports whether the outcome was a plain completion with no answer.
func (o SendOutcome) IsOK() bool { return o.kind == kindOK }

// Answered reports whether a backward frame was received, returning its
// value.
func (o SendOutcome) Answered() (uint8, bool) {
	return o.answer, o.kind == kindAnswer
}

// NoDevice reports whether the outcome means "no device answered" —
// the Timeout variant, named for its protocol meaning rather than its
// wire meaning.
func (o SendOutcome) NoDevice() bool { return o.kind == kindTimeout }

// MultipleDevices reports whether the outcome means "more than one
// device answered" — the Framing variant.
func (o SendOutcome) MultipleDevices() bool { return o.kind == kindFraming }

// Err returns the driver failure, if any. Only a DriverError outcome is a
// true failure; Timeout and Framing are protocol-level results, not
// errors.
func (o SendOutcome) Err() error {
	if o.kind == kindDriverError {
		return o.err
	}
	return nil
}

func (o SendOutcome) String() string {
	switch o.kind {
	case kindOK:
		return "OK"
	case kindAnswer:
		return fmt.Sprintf("Answer(%#02x)", o.answer)
	case kindTimeout:
		return "Timeout"
	case kindFraming:
		return "Framing"
	default:
		return fmt.Sprintf("DriverError(%v)", o.err)
	}
}
