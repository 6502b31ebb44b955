package mvfst

import (
	"net"
	"time"

	"github.com/Harvey-Liu/mvfst/internal/protocol"
	"github.com/Harvey-Liu/mvfst/internal/qerr"
)

// Socket is the UDP-socket collaborator, exclusively owned by the
// connection.
type Socket interface {
	WriteTo(b []byte, addr net.Addr) (int, error)
	LocalAddr() net.Addr
	SetTOS(dscp, ecn uint8) error
	Close() error
}

// CmsgSupplier lets a PacketProcessor attach ancillary socket control
// messages to the next outgoing datagram.
type CmsgSupplier interface {
	Cmsgs() [][]byte
}

// PacketProcessor observes decoded packets and can attach cmsgs to writes;
// the EcnL4sTracker installed on successful L4S validation is one instance.
type PacketProcessor interface {
	OnPacketReceived(ecn protocol.ECN)
	PreWrite() CmsgSupplier
}

// FrameScheduler is the collaborator that turns buffered stream/control
// data into packets and hands them to the Socket.
type FrameScheduler interface {
	// WriteData performs one write pass, returning bytes/packets written
	// and whether more data remains ready to send.
	WriteData() (WriteResult, error)
}

// WriteResult reports what one writeData pass accomplished, consumed by
// writeSocketData.
type WriteResult struct {
	BytesWritten protocol.ByteCount
	PacketsWritten int
	AckElicitingPacketsWritten int
	OutstandingCount int
	HasMoreDataToWrite bool
}

// PacketDecoder is the collaborator that turns a NetworkData blob into
// per-packet state updates.
type PacketDecoder interface {
	// OnReadData processes one already-demultiplexed packet, mutating
	// connection state as a side effect (ack states, loss detection).
	// It returns whether the ack-state version changed, i.e. a new packet
	// was actually processed and accounted for.
	OnReadData(peer net.Addr, packet []byte, ecn protocol.ECN, rcvTime time.Time) (ackStateChanged bool, err error)
}

// LossDetector is the loss-detection-math collaborator. The core only
// needs to ask it to run its alarm and to learn the next timer deadline.
type LossDetector interface {
	OnLossDetectionAlarm() error
	NextLossTimeout() time.Time
}

// QLogSink is the qlog collaborator.
type QLogSink interface {
	EmitCloseSummary(bytesSent, bytesReceived int64, cancelCode uint64, isAppError bool)
	EmitECNTransition(from, to string)
}

// Observer receives connection lifecycle and traffic events, generalized
// to one method per event kind so an endpoint with no observers pays
// near-zero cost.
type Observer interface {
	OnCloseStarted()
	OnPacketsReceived(count int, bytes int)
	OnAcksProcessed(count int)
	OnPacketsWritten(bytes int, packets int)
	OnStartWritingFromAppLimited()
	OnAppRateLimited()
	OnStreamClosed(id protocol.StreamID)
	OnKnobReceived(space uint64, id uint64, blob []byte)
	OnByteEventRegistered(id protocol.StreamID, offset protocol.ByteCount, t ByteEventType)
}

// ReadCallback is invoked when a stream becomes readable, closed with an
// error, or delivers EOF.
type ReadCallback interface {
	OnStreamReadAvailable(id protocol.StreamID)
	OnStreamReadError(id protocol.StreamID, err error)
}

// PeekVisitor previews readable bytes without consuming them.
type PeekVisitor func(offset protocol.ByteCount, data []byte)

// PeekCallback is invoked when a stream becomes peekable.
type PeekCallback interface {
	OnStreamPeekAvailable(id protocol.StreamID)
	OnStreamPeekError(id protocol.StreamID, err error)
}

// ByteEventType distinguishes ACK ("delivered") from TX ("transmitted")
// byte events.
type ByteEventType uint8

const (
	ByteEventACK ByteEventType = iota
	ByteEventTX
)

func (t ByteEventType) String() string {
	if t == ByteEventACK {
		return "ACK"
	}
	return "TX"
}

// ByteEvent is delivered to a registered byte-event callback once its
// offset is reached.
type ByteEvent struct {
	StreamID protocol.StreamID
	Offset protocol.ByteCount
	Type ByteEventType
	SRTT time.Duration
}

// ByteEventCallback receives ACK/TX byte events or cancellation. Every
// registered callback receives exactly one of the two methods over its
// lifetime.
type ByteEventCallback interface {
	OnByteEvent(ev ByteEvent)
	OnByteEventCanceled(streamID protocol.StreamID, offset protocol.ByteCount, t ByteEventType)
}

// WriteCallback is notified when a stream or the connection has writable
// budget again.
type WriteCallback interface {
	OnStreamWriteReady(id protocol.StreamID, maxToWrite protocol.ByteCount)
	OnConnectionWriteReady(maxToWrite protocol.ByteCount)
	OnStreamWriteError(id protocol.StreamID, err error)
	OnConnectionWriteError(err error)
}

// PingCallback is notified of ping receipt, ack, and timeout.
type PingCallback interface {
	OnPing()
	OnPingAcknowledged()
	OnPingTimeout()
}

// DatagramCallback is notified when a datagram is available to read.
type DatagramCallback interface {
	OnDatagramsAvailable()
}

// ConnectionSetupCallback fires once, the first time the connection
// becomes usable.
type ConnectionSetupCallback interface {
	OnTransportReady()
	OnConnectionSetupError(err error)
}

// ConnectionEndCallback fires exactly once at close, in one of two shapes
// depending on TransportSettings.UseConnectionEndWithErrorCallback.
type ConnectionEndCallback interface {
	OnConnectionEnd()
	OnConnectionEndWithError(err *qerr.QuicError)
}

// FlowControlUpdateCallback is notified when a stream's flow-control
// windows change.
type FlowControlUpdateCallback interface {
	OnFlowControlUpdate(id protocol.StreamID)
}

// StopSendingCallback is notified when the peer's STOP_SENDING resolves
// locally.
type StopSendingCallback interface {
	OnStopSending(id protocol.StreamID, err qerr.ApplicationErrorCode)
}

// StreamsAvailableCallback is notified when the peer raises the local
// stream-id limit.
type StreamsAvailableCallback interface {
	OnBidirectionalStreamsAvailable(numStreamsAvailable protocol.StreamNum)
	OnUnidirectionalStreamsAvailable(numStreamsAvailable protocol.StreamNum)
}

// KnobCallback receives application-visible knob frames.
type KnobCallback interface {
	OnKnob(knobSpace uint64, knobID uint64, blob []byte)
	OnTransportKnobs(blob []byte)
}

// ThrottlingSignalProvider supplies an external throttle signal (e.g. from
// OS-level bandwidth shaping) that the pacer additionally respects on top
// of the congestion-controller-derived bandwidth estimate.
type ThrottlingSignalProvider interface {
	ThrottledBytesPerSecond() (bps uint64, ok bool)
}
