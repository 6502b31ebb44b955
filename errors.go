package mvfst

import (
	"github.com/Harvey-Liu/mvfst/internal/qerr"
)

// Type aliases re-exported at the root, mirroring quic-go's errors.go
// pattern of aliasing internal/qerr types for the public API.
type (
	LocalErrorCode = qerr.LocalErrorCode
	QuicError = qerr.QuicError
	WireTransportErrorCode = qerr.WireTransportErrorCode
	ApplicationErrorCode = qerr.ApplicationErrorCode
)

const (
	NoError = qerr.NoError
	InvalidOperation = qerr.InvalidOperation
	ConnectionClosed = qerr.ConnectionClosed
	StreamNotExists = qerr.StreamNotExists
	StreamClosed = qerr.StreamClosed
	InvalidWriteCallback = qerr.InvalidWriteCallback
	CallbackAlreadyInstalled = qerr.CallbackAlreadyInstalled
	InvalidWriteData = qerr.InvalidWriteData
	AppError = qerr.AppError
	TransportErrorCode = qerr.TransportErrorCode
	InternalErrorCode = qerr.InternalErrorCode
	PacerNotAvailable = qerr.PacerNotAvailable
	KnobFrameUnsupported = qerr.KnobFrameUnsupported
	RtxPoliciesLimitExceeded = qerr.RtxPoliciesLimitExceeded
	IdleTimeout = qerr.IdleTimeout
	ShuttingDown = qerr.ShuttingDown
	ConnectionReset = qerr.ConnectionReset
	ConnectionAbandoned = qerr.ConnectionAbandoned
)

// localError wraps a LocalErrorCode as an error value, for functions that
// return a plain error rather than a value+bool.
type localError struct{ code LocalErrorCode }

func (e *localError) Error() string { return e.code.String() }

func newLocalError(code LocalErrorCode) error { return &localError{code: code} }

// AsLocalErrorCode extracts the LocalErrorCode from an error produced by
// this package, if any.
func AsLocalErrorCode(err error) (LocalErrorCode, bool) {
	le, ok := err.(*localError)
	if !ok {
		return 0, false
	}
	return le.code, true
}

func quicErrorIdleTimeout() *QuicError {
	return &qerr.QuicError{Code: qerr.IdleTimeout, WireCode: qerr.WireNoError, Message: "idle timeout"}
}

func invalidMigrationError() *QuicError {
	return &qerr.QuicError{Code: qerr.TransportErrorCode, WireCode: qerr.WireInvalidMigration, Message: "invalid migration"}
}

func quicErrorPeerClosed() *QuicError {
	return qerr.NewNoError("Peer closed")
}

// classifyCollaboratorError maps a raw collaborator failure into a
// QuicError: a TransportCollaboratorError becomes TRANSPORT_ERROR, an
// InternalCollaboratorError becomes INTERNAL_ERROR, an
// AppCollaboratorError preserves its application code, and anything else
// becomes INTERNAL_ERROR. The sanitized message is what closeImpl and the
// wire ultimately see; the raw err.Error() is kept separately as the
// unsanitized local-only message.
func classifyCollaboratorError(err error, sanitizedContext string) *QuicError {
	switch e := err.(type) {
	case *TransportCollaboratorError:
		return qerr.NewTransportError(e.WireCode, sanitizedContext)
	case *InternalCollaboratorError:
		return qerr.NewInternalError(sanitizedContext)
	case *AppCollaboratorError:
		return qerr.NewApplicationError(e.Code, sanitizedContext)
	default:
		return qerr.NewInternalError(sanitizedContext)
	}
}

// TransportCollaboratorError, InternalCollaboratorError and
// AppCollaboratorError are a small typed hierarchy collaborators can
// return instead of an opaque error: a result sum type carrying a
// sanitized and an unsanitized message.
type TransportCollaboratorError struct {
	WireCode WireTransportErrorCode
	UnsanitizedWhat string
}

func (e *TransportCollaboratorError) Error() string { return e.UnsanitizedWhat }

type InternalCollaboratorError struct{ UnsanitizedWhat string }

func (e *InternalCollaboratorError) Error() string { return e.UnsanitizedWhat }

type AppCollaboratorError struct {
	Code ApplicationErrorCode
	UnsanitizedWhat string
}

func (e *AppCollaboratorError) Error() string { return e.UnsanitizedWhat }
