package apperr

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// Error taxonomy surfaced to the UI layer. Callers branch with errors.Is.
var (
	// Transport
	ErrNetwork  = errors.New("network error")
	ErrTimeout  = errors.New("request timed out")
	ErrProtocol = errors.New("protocol error")
	ErrRemote   = errors.New("remote error")

	// Session
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownTenant      = errors.New("unknown tenant")
	ErrNoSession          = errors.New("no active session")

	// Mutations
	ErrDuplicate   = errors.New("duplicate record")
	ErrBusy        = errors.New("mutation already in flight")
	ErrForbidden   = errors.New("not permitted for role")
	ErrUnsupported = errors.New("unsupported operation")

	// Local state
	ErrIO            = errors.New("storage error")
	ErrSync          = errors.New("sync failed")
	ErrTenantChanged = errors.New("tenant changed during request")

	ErrInvalidInput = errors.New("invalid input")
)

const maxRawLength = 256

// RemoteError is an application-level failure reported by the backend
// inside an otherwise successful transport response.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return ErrRemote.Error()
	}
	return fmt.Sprintf("%s: %s", ErrRemote, e.Message)
}

func (e *RemoteError) Is(target error) bool {
	return target == ErrRemote
}

// ProtocolError means the response body could not be parsed. Raw holds the
// first bytes of the body for diagnostics.
type ProtocolError struct {
	Status int
	Raw    string
}

// NewProtocolError truncates raw to a loggable length.
func NewProtocolError(status int, raw string) *ProtocolError {
	if len(raw) > maxRawLength {
		cut := maxRawLength
		for cut > 0 && !utf8.RuneStart(raw[cut]) {
			cut--
		}
		raw = raw[:cut] + "..."
	}
	return &ProtocolError{Status: status, Raw: raw}
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: status %d, body %q", ErrProtocol, e.Status, e.Raw)
}

func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol
}

// TimeoutError is a NetworkError raised when the gateway aborts a call.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s after %s", ErrTimeout, e.After)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout || target == ErrNetwork
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// IsTransient reports whether err came from the network path (transport,
// parsing or backend failure) rather than from local validation.
func IsTransient(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrProtocol) || errors.Is(err, ErrRemote)
}
