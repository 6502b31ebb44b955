package mvfst

import (
	"errors"
	"time"

	"github.com/Harvey-Liu/mvfst/internal/congestion"
	"github.com/Harvey-Liu/mvfst/internal/protocol"
)

// TransportSettings configures a Connection, grounded on quic-go's Config
// (config.go) and populated the same way: a caller-supplied struct is
// merged over defaults by PopulateTransportSettings, never silently
// defaulted inline at point of use.
type TransportSettings struct {
	// IdleTimeout is the local idle timeout advertised to the peer.
	IdleTimeout time.Duration
	// KeepAliveEnabled turns on the keepalive timer (85% of the
	// negotiated idle timeout).
	KeepAliveEnabled bool

	// MinCwndInMss is the pacer's minimum congestion window for
	// non-BBR-family controllers.
	MinCwndInMss protocol.ByteCount
	// CongestionControllerType selects the algorithm; BBR without pacing
	// enabled is downgraded to Cubic.
	CongestionControllerType congestion.Type
	IsConnectionPaced bool
	MaxPacingRateBytesPerSec uint64

	// BackpressureHeadroomFactor, when > 0, additionally caps
	// maxWritableOnConn by factor*cwnd - buffered.
	BackpressureHeadroomFactor float64

	// ConnFlowControlWindow / StreamFlowControlWindow are the initial
	// receive windows advertised at connection and per-stream level.
	ConnFlowControlWindow protocol.ByteCount
	StreamFlowControlWindow protocol.ByteCount

	TotalBufferSpaceAvailable protocol.ByteCount

	MaxReadDatagramBufferSize int
	MaxWriteDatagramBufferSize int

	// UdpSendPacketLen bounds datagram-frame size and app-limited
	// detection thresholds.
	UdpSendPacketLen protocol.ByteCount

	AckDelayExponent uint8
	AckTimerFactor float64
	UseAckFrequency bool
	MaxAckDelay time.Duration

	DrainFactor int

	ShouldDrain bool

	ScheduleTimerForExcessWrites bool
	ProcessCallbacksPerPacket bool
	OrderedReadCallbacks bool
	RemoveStreamAfterEomCallbackUnset bool
	UseConnectionEndWithErrorCallback bool
	UseSockWritableEvents bool

	UseL4sEcn bool
	UseECN bool

	ActiveConnectionIDLimit uint64

	KnobFrameSupported bool

	MaxBackgroundPriority uint8
	BackgroundPriorityFactor float64

	// AckRxTimestampsEnabled negotiates the ACK_RECEIVE_TIMESTAMPS
	// transport parameter.
	AckRxTimestampsEnabled bool

	// PacingTickInterval floors the write looper's pacing delay, so the
	// pacer is never re-consulted more often than this even when it would
	// otherwise allow an immediate write.
	PacingTickInterval time.Duration
}

// DefaultTransportSettings mirror quic-go's populateConfig defaults, ported
// to this module's field names.
func DefaultTransportSettings() TransportSettings {
	return TransportSettings{
		IdleTimeout: 30 * time.Second,
		KeepAliveEnabled: false,
		MinCwndInMss: 2,
		CongestionControllerType: congestion.Cubic,
		IsConnectionPaced: true,
		ConnFlowControlWindow: 15 << 20,
		StreamFlowControlWindow: 6 << 20,
		TotalBufferSpaceAvailable: 64 << 20,
		MaxReadDatagramBufferSize: 10,
		MaxWriteDatagramBufferSize: 10,
		UdpSendPacketLen: 1252,
		AckDelayExponent: 3,
		AckTimerFactor: 0.25,
		MaxAckDelay: protocol.MaxAckDelayInclGranularity,
		DrainFactor: 3,
		ShouldDrain: true,
		ScheduleTimerForExcessWrites: true,
		ProcessCallbacksPerPacket: false,
		OrderedReadCallbacks: false,
		RemoveStreamAfterEomCallbackUnset: true,
		UseConnectionEndWithErrorCallback: false,
		UseSockWritableEvents: false,
		ActiveConnectionIDLimit: 4,
		KnobFrameSupported: false,
	}
}

// PopulateTransportSettings fills zero-valued fields of s with defaults,
// the way quic-go's populateConfig merges a caller Config over defaults.
func PopulateTransportSettings(s *TransportSettings) *TransportSettings {
	d := DefaultTransportSettings()
	if s == nil {
		return &d
	}
	out := *s
	if out.IdleTimeout == 0 {
		out.IdleTimeout = d.IdleTimeout
	}
	if out.MinCwndInMss == 0 {
		out.MinCwndInMss = d.MinCwndInMss
	}
	if out.ConnFlowControlWindow == 0 {
		out.ConnFlowControlWindow = d.ConnFlowControlWindow
	}
	if out.StreamFlowControlWindow == 0 {
		out.StreamFlowControlWindow = d.StreamFlowControlWindow
	}
	if out.TotalBufferSpaceAvailable == 0 {
		out.TotalBufferSpaceAvailable = d.TotalBufferSpaceAvailable
	}
	if out.UdpSendPacketLen == 0 {
		out.UdpSendPacketLen = d.UdpSendPacketLen
	}
	if out.MaxAckDelay == 0 {
		out.MaxAckDelay = d.MaxAckDelay
	}
	if out.AckTimerFactor == 0 {
		out.AckTimerFactor = d.AckTimerFactor
	}
	if out.DrainFactor == 0 {
		out.DrainFactor = d.DrainFactor
	}
	if out.MaxReadDatagramBufferSize == 0 {
		out.MaxReadDatagramBufferSize = d.MaxReadDatagramBufferSize
	}
	if out.MaxWriteDatagramBufferSize == 0 {
		out.MaxWriteDatagramBufferSize = d.MaxWriteDatagramBufferSize
	}
	if out.ActiveConnectionIDLimit == 0 {
		out.ActiveConnectionIDLimit = d.ActiveConnectionIDLimit
	}
	return &out
}

// ValidateTransportSettings rejects internally inconsistent settings before
// they reach a Connection.
func ValidateTransportSettings(s *TransportSettings) error {
	if s == nil {
		return nil
	}
	if s.IdleTimeout < 0 {
		return errors.New("mvfst: negative IdleTimeout")
	}
	if s.ConnFlowControlWindow < 0 || s.StreamFlowControlWindow < 0 {
		return errors.New("mvfst: negative flow control window")
	}
	if s.BackpressureHeadroomFactor < 0 {
		return errors.New("mvfst: negative BackpressureHeadroomFactor")
	}
	return nil
}
