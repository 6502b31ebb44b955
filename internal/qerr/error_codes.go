// Package qerr defines the closed set of local error codes the connection
// core can return to the application, and the QuicError wrapper that
// carries a sanitized wire-safe message alongside an unsanitized
// local-only one. Grounded on quic-go's internal/qerr package.
package qerr

import "fmt"

// LocalErrorCode enumerates every failure the application-facing API can
// report.
type LocalErrorCode uint16

const (
	NoError LocalErrorCode = iota
	InvalidOperation
	ConnectionClosed
	StreamNotExists
	StreamClosed
	InvalidWriteCallback
	CallbackAlreadyInstalled
	InvalidWriteData
	AppError
	TransportErrorCode
	InternalErrorCode
	PacerNotAvailable
	KnobFrameUnsupported
	RtxPoliciesLimitExceeded
	IdleTimeout
	ShuttingDown
	ConnectionReset
	ConnectionAbandoned
)

func (c LocalErrorCode) String() string {
	switch c {
	case NoError:
		return "NO_ERROR"
	case InvalidOperation:
		return "INVALID_OPERATION"
	case ConnectionClosed:
		return "CONNECTION_CLOSED"
	case StreamNotExists:
		return "STREAM_NOT_EXISTS"
	case StreamClosed:
		return "STREAM_CLOSED"
	case InvalidWriteCallback:
		return "INVALID_WRITE_CALLBACK"
	case CallbackAlreadyInstalled:
		return "CALLBACK_ALREADY_INSTALLED"
	case InvalidWriteData:
		return "INVALID_WRITE_DATA"
	case AppError:
		return "APP_ERROR"
	case TransportErrorCode:
		return "TRANSPORT_ERROR"
	case InternalErrorCode:
		return "INTERNAL_ERROR"
	case PacerNotAvailable:
		return "PACER_NOT_AVAILABLE"
	case KnobFrameUnsupported:
		return "KNOB_FRAME_UNSUPPORTED"
	case RtxPoliciesLimitExceeded:
		return "RTX_POLICIES_LIMIT_EXCEEDED"
	case IdleTimeout:
		return "IDLE_TIMEOUT"
	case ShuttingDown:
		return "SHUTTING_DOWN"
	case ConnectionReset:
		return "CONNECTION_RESET"
	case ConnectionAbandoned:
		return "CONNECTION_ABANDONED"
	default:
		return fmt.Sprintf("unknown local error code: %d", uint16(c))
	}
}

func (c LocalErrorCode) Error() string { return c.String() }

// WireTransportErrorCode is the wire-visible QUIC transport error code space
// (RFC 9000 §20.1), used when the local error must be reflected in a
// CONNECTION_CLOSE frame.
type WireTransportErrorCode uint64

const (
	WireNoError WireTransportErrorCode = iota
	WireInternalError
	WireConnectionRefused
	WireFlowControlError
	WireStreamLimitError
	WireStreamStateError
	WireFinalSizeError
	WireFrameEncodingError
	WireTransportParameterError
	WireConnectionIDLimitError
	WireProtocolViolation
	WireInvalidToken
	WireApplicationError
	WireCryptoBufferExceeded
	WireInvalidMigration WireTransportErrorCode = 0x20
)

func (c WireTransportErrorCode) String() string {
	switch c {
	case WireNoError:
		return "NO_ERROR"
	case WireInternalError:
		return "INTERNAL_ERROR"
	case WireConnectionRefused:
		return "CONNECTION_REFUSED"
	case WireFlowControlError:
		return "FLOW_CONTROL_ERROR"
	case WireStreamLimitError:
		return "STREAM_LIMIT_ERROR"
	case WireStreamStateError:
		return "STREAM_STATE_ERROR"
	case WireFinalSizeError:
		return "FINAL_SIZE_ERROR"
	case WireFrameEncodingError:
		return "FRAME_ENCODING_ERROR"
	case WireTransportParameterError:
		return "TRANSPORT_PARAMETER_ERROR"
	case WireConnectionIDLimitError:
		return "CONNECTION_ID_LIMIT_ERROR"
	case WireProtocolViolation:
		return "PROTOCOL_VIOLATION"
	case WireInvalidToken:
		return "INVALID_TOKEN"
	case WireApplicationError:
		return "APPLICATION_ERROR"
	case WireCryptoBufferExceeded:
		return "CRYPTO_BUFFER_EXCEEDED"
	case WireInvalidMigration:
		return "INVALID_MIGRATION"
	default:
		return fmt.Sprintf("unknown transport error code: %#x", uint64(c))
	}
}

// ApplicationErrorCode is an application-supplied 62-bit error code carried
// on RESET_STREAM / STOP_SENDING / application CONNECTION_CLOSE frames.
type ApplicationErrorCode uint64
