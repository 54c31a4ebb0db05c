package lnwallet

import "fmt"

// FailureType classifies a SigningError the way the host-side protocol
// expects to see it reported back across the wire.
type FailureType uint8

const (
	// FailureDataError marks structurally invalid data supplied by the
	// host: an unrecognized script type, a missing mandatory amount, an
	// address that doesn't decode, a segwit input offered on a coin that
	// doesn't support segwit.
	FailureDataError FailureType = iota

	// FailureProcessError marks a consistency violation between two
	// passes over the same data: a hash mismatch at the phase 4 commit
	// point, a previous-transaction hash mismatch, an input amount that
	// grew between phases.
	FailureProcessError

	// FailureActionCancelled marks a user-declined confirmation prompt.
	FailureActionCancelled

	// FailureNotEnoughFunds marks a negative fee on a coin that does not
	// permit reward transactions.
	FailureNotEnoughFunds
)

// String implements fmt.Stringer.
func (f FailureType) String() string {
	switch f {
	case FailureDataError:
		return "DataError"
	case FailureProcessError:
		return "ProcessError"
	case FailureActionCancelled:
		return "ActionCancelled"
	case FailureNotEnoughFunds:
		return "NotEnoughFunds"
	default:
		return "UnknownFailure"
	}
}

// SigningError is the single error type the Signer surfaces. Every failure
// path in the seven-phase protocol terminates the session by returning one
// of these; there is no partial commit and no retry, the host must restart
// the protocol from SignTx.
type SigningError struct {
	Type    FailureType
	Message string
}

// Error implements the error interface.
func (e *SigningError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// newSigningError builds a SigningError with a formatted message, mirroring
// the fmt.Errorf convention used throughout this package.
func newSigningError(t FailureType, format string, args ...interface{}) *SigningError {
	return &SigningError{
		Type:    t,
		Message: fmt.Sprintf(format, args...),
	}
}

func dataError(format string, args ...interface{}) *SigningError {
	return newSigningError(FailureDataError, format, args...)
}

func processError(format string, args ...interface{}) *SigningError {
	return newSigningError(FailureProcessError, format, args...)
}

func notEnoughFundsError(format string, args ...interface{}) *SigningError {
	return newSigningError(FailureNotEnoughFunds, format, args...)
}

// actionCancelledError is returned whenever the host's Confirmer rejects a
// prompt; phase 3 treats this as an immediate session abort.
func actionCancelledError(format string, args ...interface{}) *SigningError {
	return newSigningError(FailureActionCancelled, format, args...)
}
