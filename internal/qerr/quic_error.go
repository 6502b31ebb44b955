package qerr

// maxSanitizedMessageLen bounds any message that may echo untrusted input
// before it is stored or placed on the wire. One conservative MSS.
const maxSanitizedMessageLen = 1200

// QuicError is the classified, sanitized close reason the connection core
// hands to closeImpl, its wire representation, and observers. It never
// carries untrusted text verbatim -- see Sanitize.
type QuicError struct {
	// Code classifies the failure. Exactly one of Wire/App/Local is
	// meaningful depending on which frame or callback this error routes
	// through.
	Code LocalErrorCode
	// WireCode is set when this error must be reflected in a
	// CONNECTION_CLOSE frame carrying a transport error code.
	WireCode WireTransportErrorCode
	// AppCode is set when this error must be reflected in a
	// CONNECTION_CLOSE frame carrying an application error code.
	AppCode ApplicationErrorCode
	IsAppError bool
	Message string // sanitized; safe to log, store, or put on the wire
}

func (e *QuicError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code.String()
}

// NewTransportError builds a QuicError for a collaborator failure mapped to
// TRANSPORT_ERROR.
func NewTransportError(wireCode WireTransportErrorCode, sanitizedMessage string) *QuicError {
	return &QuicError{Code: TransportErrorCode, WireCode: wireCode, Message: Sanitize(sanitizedMessage)}
}

// NewInternalError builds a QuicError for an unexpected internal failure.
func NewInternalError(sanitizedMessage string) *QuicError {
	return &QuicError{Code: InternalErrorCode, WireCode: WireInternalError, Message: Sanitize(sanitizedMessage)}
}

// NewApplicationError builds a QuicError for an application-supplied close
// reason (e.g. resetStream, application-level close()).
func NewApplicationError(code ApplicationErrorCode, sanitizedMessage string) *QuicError {
	return &QuicError{Code: AppError, AppCode: code, IsAppError: true, Message: Sanitize(sanitizedMessage)}
}

// NewNoError builds the "graceful, no error" close reason.
func NewNoError(message string) *QuicError {
	return &QuicError{Code: NoError, WireCode: WireNoError, Message: Sanitize(message)}
}

// Sanitize truncates a message that may contain untrusted content before it
// is allowed into localConnectionError or onto the wire. It never expands
// or otherwise transforms safe messages.
func Sanitize(message string) string {
	if len(message) <= maxSanitizedMessageLen {
		return message
	}
	return message[:maxSanitizedMessageLen]
}
