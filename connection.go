package mvfst

import (
	"net"
	"time"

	"github.com/Harvey-Liu/mvfst/internal/congestion"
	"github.com/Harvey-Liu/mvfst/internal/pacing"
	"github.com/Harvey-Liu/mvfst/internal/protocol"
	"github.com/Harvey-Liu/mvfst/internal/streams"
	"github.com/Harvey-Liu/mvfst/internal/utils"
)

// CloseState is the connection's lifecycle state: monotone
// along Open -> GracefulClosing -> Closed, or Open -> Closed directly.
type CloseState uint8

const (
	Open CloseState = iota
	GracefulClosing
	Closed
)

func (s CloseState) String() string {
	switch s {
	case Open:
		return "Open"
	case GracefulClosing:
		return "GracefulClosing"
	case Closed:
		return "Closed"
	default:
		return "unknown"
	}
}

// rttStats is the small set of RTT statistics the timer policies in
// timers.go consume; the actual sampling algorithm belongs to the
// loss-detection collaborator, so this struct mostly stores the values
// that collaborator reports back; UpdateSample additionally folds a raw
// sample into srtt/rttvar.
type rttStats struct {
	SRTT time.Duration
	RTTVar time.Duration
	MinRTT time.Duration
	InitialRTT time.Duration
	PTOCount int
}

func (r *rttStats) SetInitialRTT(d time.Duration) {
	r.InitialRTT = d
	if r.SRTT == 0 {
		r.SRTT = d
	}
}

// UpdateSample feeds an RTT sample into srtt/rttvar using the RFC 6298
// exponential moving average, which is the only piece of "loss detection
// math" the core itself needs (everything else is the collaborator's job).
func (r *rttStats) UpdateSample(sample time.Duration) {
	if r.SRTT == 0 {
		r.SRTT = sample
		r.RTTVar = sample / 2
	} else {
		delta := r.SRTT - sample
		if delta < 0 {
			delta = -delta
		}
		r.RTTVar = (3*r.RTTVar + delta) / 4
		r.SRTT = (7*r.SRTT + sample) / 8
	}
	if r.MinRTT == 0 || sample < r.MinRTT {
		r.MinRTT = sample
	}
}

// ackState is the per-packet-number-space ack bookkeeping the ack timer
// policy and byte-event dispatch consult after every network read.
type ackState struct {
	version uint64 // bumped whenever a new packet is processed
	largestAckedSent protocol.PacketNumber
	needsToSendAckImmediately bool
}

// outstandings tracks per-space outstanding-packet accounting: how many
// packets (and probes, and bytes) are in flight awaiting ack or loss.
type outstandings struct {
	packetCounts [protocol.NumPacketNumberSpaces]int
	numProbePackets [protocol.NumPacketNumberSpaces]int
	inflightBytes protocol.ByteCount
}

func (o *outstandings) Empty() bool {
	for _, c := range o.packetCounts {
		if c > 0 {
			return false
		}
	}
	return true
}

func (o *outstandings) Reset() { *o = outstandings{} }

// pendingEvents batches deferred effects raised by the application or
// ingress pipeline that the write pipeline must service.
type pendingEvents struct {
	SendPing bool
	Knobs []pendingKnob
	Resets []protocol.StreamID
	CancelPingTimeout bool
	SchedulePathValidationTimeout bool
	CloseTransport bool
	ScheduleAckTimeout bool
}

type pendingKnob struct {
	Space uint64
	ID uint64
	Blob []byte
}

// flowControlState is the connection-level flow control bookkeeping;
// per-stream flow control lives on streams.Stream.
type flowControlState struct {
	WindowSize protocol.ByteCount
	PeerAdvertisedMaxOffset protocol.ByteCount
	SumCurWriteOffset protocol.ByteCount
	SumMaxObservedOffset protocol.ByteCount
	SumCurStreamBufferLen protocol.ByteCount
	AdvertisedMaxOffset protocol.ByteCount
}

// ECNState is the ECN/L4S validator's state machine.
type ECNState uint8

const (
	ECNNotAttempted ECNState = iota
	ECNAttemptingECN
	ECNAttemptingL4S
	ECNValidatedECN
	ECNValidatedL4S
	ECNFailedValidation
)

func (s ECNState) String() string {
	switch s {
	case ECNNotAttempted:
		return "NotAttempted"
	case ECNAttemptingECN:
		return "AttemptingECN"
	case ECNAttemptingL4S:
		return "AttemptingL4S"
	case ECNValidatedECN:
		return "ValidatedECN"
	case ECNValidatedL4S:
		return "ValidatedL4S"
	case ECNFailedValidation:
		return "FailedValidation"
	default:
		return "unknown"
	}
}

// datagramState holds the connection's unreliable-datagram read/write
// buffers and their configured size limits.
type datagramState struct {
	readBuffer [][]byte
	writeBuffer [][]byte
	maxReadBufferSize int
	maxWriteBufferSize int
	maxReadFrameSize protocol.ByteCount
	maxWriteFrameSize protocol.ByteCount
}

// ecnPacketCounts accumulates the echoed-ECN counters the validator in
// ecn.go consumes.
type ecnPacketCounts struct {
	totalAckElicitingSent int
	ect0Echoed int
	ect1Echoed int
	ceEchoed int
}

// Connection is the canonical mutable record of a QUIC connection: the
// type this whole module exists to define.
type Connection struct {
	perspective protocol.Perspective

	localAddr net.Addr
	peerAddr net.Addr
	origPeerAddr net.Addr

	localConnectionID []byte
	peerChosenConnectionID []byte
	serverChosenConnectionID []byte

	version uint32
	originalVersion uint32

	closeState CloseState
	closeStartedNotified bool
	localConnectionError *QuicError
	peerConnectionError *QuicError

	settings TransportSettings

	rttStats rttStats
	ackStates [protocol.NumPacketNumberSpaces]ackState
	outstandings outstandings
	pendingEvents pendingEvents
	flowControl flowControlState
	datagrams datagramState
	ecnState ECNState
	ecnCounts ecnPacketCounts
	socketTOSDscp uint8
	socketTOSECN protocol.ECN

	streamMgr *streams.Manager

	readLooper *Looper
	peekLooper *Looper
	writeLooper *Looper

	timers TimerSet

	byteEvents byteEventRegistry
	callbacks callbackRegistry

	congestionController congestion.Controller
	congestionFactory congestion.Factory
	pacer *pacing.TokenlessPacer

	packetProcessors []PacketProcessor

	socket Socket
	eventLoop EventLoop
	decoder PacketDecoder
	scheduler FrameScheduler
	lossDetector LossDetector
	qlog QLogSink
	observers []Observer
	logger utils.Logger

	peerIdleTimeout time.Duration
	ackFrequencyNegotiated bool
	knobsAdvertised bool
	outstandingPathValidation bool

	transportReadyNotified bool
	setupCallback ConnectionSetupCallback
	endCallback ConnectionEndCallback
	pingCallback PingCallback
	datagramCallback DatagramCallback
	knobCallback KnobCallback

	receivedNewPacketBeforeWrite bool
	writeCount int64
	totalBytesRecvd int64
	totalBytesSent int64

	loopDetectorRead LoopDetector
	loopDetectorWrite LoopDetector

	backgroundMode struct {
		enabled bool
		maxPriority uint8
		factor float64
	}

	// exceptionCloseWhat holds the unsanitized text of the error that
	// triggered closeImpl, delivered only to local observers/logs, never
	// to the wire.
	exceptionCloseWhat string

	detachable bool
	attached bool

	// appProtocol is the negotiated ALPN protocol, set by the handshake
	// collaborator once negotiation completes; handshake itself is out of
	// scope for this connection-level core.
	appProtocol string

	throttlingProvider ThrottlingSignalProvider
}

// NewConnection constructs an Open connection wired to its external
// collaborators. Every collaborator parameter may be nil in tests that
// don't exercise the corresponding path; production callers supply all of
// them, mirroring quic-go's newConnection wiring in connection.go.
func NewConnection(perspective protocol.Perspective, settings *TransportSettings, socket Socket, eventLoop EventLoop, logger utils.Logger) *Connection {
	if logger == nil {
		logger = utils.DefaultLogger
	}
	s := PopulateTransportSettings(settings)
	c := &Connection{
		perspective: perspective,
		closeState: Open,
		settings: *s,
		streamMgr: streams.NewManager(perspective),
		socket: socket,
		eventLoop: eventLoop,
		logger: logger,
		congestionFactory: congestion.DefaultFactory,
		detachable: perspective == protocol.PerspectiveClient,
		attached: eventLoop != nil,
	}
	c.rttStats.SetInitialRTT(100 * time.Millisecond)
	c.flowControl = flowControlState{
		WindowSize: s.ConnFlowControlWindow,
		AdvertisedMaxOffset: s.ConnFlowControlWindow,
	}
	c.datagrams = datagramState{
		maxReadBufferSize: s.MaxReadDatagramBufferSize,
		maxWriteBufferSize: s.MaxWriteDatagramBufferSize,
		maxReadFrameSize: s.UdpSendPacketLen,
		maxWriteFrameSize: s.UdpSendPacketLen,
	}
	c.byteEvents = newByteEventRegistry()
	c.callbacks = newCallbackRegistry()
	c.timers = *newTimerSet()
	c.readLooper = NewLooper("read", eventLoop, c.runReadLoop)
	c.peekLooper = NewLooper("peek", eventLoop, c.runPeekLoop)
	c.writeLooper = NewLooper("write", eventLoop, c.runWriteLoop)

	if eventLoop != nil {
		c.writeLooper.SetPacingFn(c.writePacingDelay, func(d time.Duration, fn func()) (cancel func()) {
			return eventLoop.RunAfter(d, fn)
		})
	}

	ct := pacing.ValidateControllerType(s.CongestionControllerType, s.IsConnectionPaced)
	c.settings.CongestionControllerType = ct
	c.congestionController = c.congestionFactory.New(ct, s.UdpSendPacketLen)
	if s.IsConnectionPaced {
		c.pacer = pacing.New(ct, s.MinCwndInMss, s.UdpSendPacketLen, c.bandwidthEstimate)
	}
	return c
}

// bandwidthEstimate derives the pacer's bandwidth source from the
// congestion window and smoothed RTT, then clamps it against
// MaxPacingRateBytesPerSec and, when installed, the throttling signal
// provider's currently reported limit.
func (c *Connection) bandwidthEstimate() uint64 {
	var bw uint64
	if c.rttStats.SRTT <= 0 {
		bw = uint64(c.settings.UdpSendPacketLen) * 100
	} else {
		cwnd := c.congestionController.GetCongestionWindow()
		bw = uint64(float64(cwnd) / c.rttStats.SRTT.Seconds())
	}
	if c.settings.MaxPacingRateBytesPerSec > 0 && bw > c.settings.MaxPacingRateBytesPerSec {
		bw = c.settings.MaxPacingRateBytesPerSec
	}
	if c.throttlingProvider != nil {
		if limited, ok := c.throttlingProvider.ThrottledBytesPerSecond(); ok && limited < bw {
			bw = limited
		}
	}
	return bw
}

// AttachCollaborators wires the external collaborators the constructor
// leaves nil-able for tests; production call sites invoke this once,
// immediately after NewConnection.
func (c *Connection) AttachCollaborators(decoder PacketDecoder, scheduler FrameScheduler, lossDetector LossDetector, qlog QLogSink) {
	c.decoder = decoder
	c.scheduler = scheduler
	c.lossDetector = lossDetector
	c.qlog = qlog
}

// SetAppProtocol records the negotiated ALPN application protocol.
func (c *Connection) SetAppProtocol(proto string) { c.appProtocol = proto }

// AddObserver registers an Observer by appending it to the list every
// observer fan-out ranges over.
func (c *Connection) AddObserver(o Observer) { c.observers = append(c.observers, o) }

// AddPacketProcessor registers a PacketProcessor.
func (c *Connection) AddPacketProcessor(pp PacketProcessor) {
	c.packetProcessors = append(c.packetProcessors, pp)
}

// SetConnectionSetupCallback installs the once-only transport-ready
// callback.
func (c *Connection) SetConnectionSetupCallback(cb ConnectionSetupCallback) { c.setupCallback = cb }

// SetConnectionEndCallback installs the once-only close callback.
func (c *Connection) SetConnectionEndCallback(cb ConnectionEndCallback) { c.endCallback = cb }

// SetPingCallback installs the ping callback (External Interfaces,
// setPingCallback).
func (c *Connection) SetPingCallback(cb PingCallback) { c.pingCallback = cb }

// SetDatagramCallback installs the datagram-availability callback.
func (c *Connection) SetDatagramCallback(cb DatagramCallback) { c.datagramCallback = cb }

// notifyTransportReady fires the setup callback exactly once, the first
// time the connection becomes usable.
func (c *Connection) notifyTransportReady() {
	if c.transportReadyNotified || c.setupCallback == nil {
		return
	}
	c.transportReadyNotified = true
	c.setupCallback.OnTransportReady()
}

// good reports whether the connection is open and free of a local
// error, the underlying introspection primitive behind Good().
func (c *Connection) good() bool {
	return c.closeState == Open && c.localConnectionError == nil
}
