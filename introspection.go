package mvfst

import (
	"net"

	"github.com/Harvey-Liu/mvfst/internal/metrics"
	"github.com/Harvey-Liu/mvfst/internal/protocol"
)

// Good reports whether the connection is open and free of a local error.
func (c *Connection) Good() bool { return c.good() }

// ReplaySafe reports whether it is safe to send 0-RTT-replay-sensitive
// application data: the handshake must have progressed far enough that a
// duplicate Initial cannot cause the same data to be applied twice.
func (c *Connection) ReplaySafe() bool {
	return c.good() && c.version != 0 && c.ackStates[protocol.PacketNumberSpaceHandshake].version > 0
}

// TransportInfo is the point-in-time snapshot returned by GetTransportInfo.
type TransportInfo struct {
	SRTT int64 // nanoseconds
	RTTVar int64
	MinRTT int64
	Mss int64
	CongestionWindow int64
	BytesInFlight int64
	TotalBytesSent int64
	TotalBytesReceived int64
	WritableBytes int64
	PtoCount int
	EcnState string
}

func (c *Connection) GetTransportInfo() TransportInfo {
	info := TransportInfo{
		SRTT: c.rttStats.SRTT.Nanoseconds(),
		RTTVar: c.rttStats.RTTVar.Nanoseconds(),
		MinRTT: c.rttStats.MinRTT.Nanoseconds(),
		Mss: int64(c.settings.UdpSendPacketLen),
		TotalBytesSent: c.totalBytesSent,
		TotalBytesReceived: c.totalBytesRecvd,
		WritableBytes: int64(c.maxWritableOnConn()),
		PtoCount: c.rttStats.PTOCount,
		EcnState: c.ecnState.String(),
	}
	if c.congestionController != nil {
		info.CongestionWindow = int64(c.congestionController.GetCongestionWindow())
		info.BytesInFlight = int64(c.congestionController.BytesInFlight())
	}
	return info
}

// StreamTransportInfo is per-stream introspection.
type StreamTransportInfo struct {
	CurrentReadOffset int64
	CurrentWriteOffset int64
	BytesBuffered int64
	HolbBlockedDuration int64
	HolbCount int64
}

func (c *Connection) GetStreamTransportInfo(id protocol.StreamID) (StreamTransportInfo, error) {
	st, ok := c.streamMgr.GetStream(id)
	if !ok {
		return StreamTransportInfo{}, newLocalError(StreamNotExists)
	}
	return StreamTransportInfo{
		CurrentReadOffset: int64(st.CurrentReadOffset),
		CurrentWriteOffset: int64(st.CurrentWriteOffset),
		BytesBuffered: int64(st.WriteBuffer.Len()),
		HolbBlockedDuration: st.HolbBlockedDuration,
		HolbCount: st.HolbCount,
	}, nil
}

// GetOpenableBidirectionalStreams / GetOpenableUnidirectionalStreams expose
// streams.Manager's limit accounting.
func (c *Connection) GetOpenableBidirectionalStreams() protocol.StreamNum { return c.streamMgr.OpenableBidi() }
func (c *Connection) GetOpenableUnidirectionalStreams() protocol.StreamNum { return c.streamMgr.OpenableUni() }

// ConnectionsStats aggregates fields useful for operational dashboards,
// scoped to a single Connection rather than a whole worker; fleet-wide
// aggregation is a caller concern.
type ConnectionsStats struct {
	CloseState string
	NumOpenStreams int
	TotalBytesSent int64
	TotalBytesRecvd int64
	WriteCount int64
	EcnState string
	CongestionType string
}

func (c *Connection) GetConnectionsStats() ConnectionsStats {
	s := ConnectionsStats{
		CloseState: c.closeState.String(),
		NumOpenStreams: c.streamMgr.Count(),
		TotalBytesSent: c.totalBytesSent,
		TotalBytesRecvd: c.totalBytesRecvd,
		WriteCount: c.writeCount,
		EcnState: c.ecnState.String(),
	}
	if c.congestionController != nil {
		s.CongestionType = c.congestionController.Type().String()
	}
	return s
}

// Error returns the connection's local error, nil while Open.
func (c *Connection) Error() *QuicError { return c.localConnectionError }

// GetAppProtocol reports the negotiated ALPN application protocol, empty
// until SetAppProtocol has been called by the handshake collaborator.
func (c *Connection) GetAppProtocol() string { return c.appProtocol }

// GetDatagramSizeLimit reports the maximum unreliable-datagram frame size
// this connection can currently write.
func (c *Connection) GetDatagramSizeLimit() protocol.ByteCount { return c.datagrams.maxWriteFrameSize }

// GetConnectionBufferAvailable exposes the connection's send-buffer
// headroom against TransportSettings.TotalBufferSpaceAvailable.
func (c *Connection) GetConnectionBufferAvailable() protocol.ByteCount {
	return c.getConnectionBufferAvailable()
}

// GetPeerAddress / GetOriginalPeerAddress / GetLocalAddress report the
// connection's addressing triple; OriginalPeerAddress is the address the
// handshake first observed, before any path migration.
func (c *Connection) GetPeerAddress() net.Addr { return c.peerAddr }
func (c *Connection) GetOriginalPeerAddress() net.Addr { return c.origPeerAddr }
func (c *Connection) GetLocalAddress() net.Addr { return c.localAddr }

// GetClientConnectionId / GetServerConnectionId report the client's and the
// server's connection ID respectively: the local ID when this endpoint has
// that role, otherwise the ID recorded for the peer.
func (c *Connection) GetClientConnectionId() []byte {
	if c.perspective == protocol.PerspectiveClient {
		return c.localConnectionID
	}
	return c.peerChosenConnectionID
}

func (c *Connection) GetServerConnectionId() []byte {
	if c.perspective == protocol.PerspectiveServer {
		return c.localConnectionID
	}
	return c.serverChosenConnectionID
}

// GetClientChosenDestConnectionId reports the destination connection ID the
// client chose for its first Initial packet.
func (c *Connection) GetClientChosenDestConnectionId() []byte { return c.peerChosenConnectionID }

// metricsObserver adapts internal/metrics.ConnectionTracer to the
// Observer interface, so AddObserver(NewMetricsObserver()) is enough to
// wire Prometheus metrics into the fan-out.
type metricsObserver struct {
	tracer *metrics.ConnectionTracer
}

// NewMetricsObserver wires a Prometheus-backed Observer.
func NewMetricsObserver() Observer {
	return &metricsObserver{tracer: metrics.NewConnectionTracer()}
}

func (m *metricsObserver) OnCloseStarted() { m.tracer.ConnectionClosed("unknown") }
func (m *metricsObserver) OnPacketsReceived(count, bytes int) { m.tracer.PacketsReceived(bytes) }
func (m *metricsObserver) OnAcksProcessed(count int) {}
func (m *metricsObserver) OnPacketsWritten(bytes, packets int) { m.tracer.PacketsWritten(bytes) }
func (m *metricsObserver) OnStartWritingFromAppLimited() {}
func (m *metricsObserver) OnAppRateLimited() {}
func (m *metricsObserver) OnStreamClosed(id protocol.StreamID) {}
func (m *metricsObserver) OnKnobReceived(space, id uint64, blob []byte) {}
func (m *metricsObserver) OnByteEventRegistered(id protocol.StreamID, offset protocol.ByteCount, t ByteEventType) {}
