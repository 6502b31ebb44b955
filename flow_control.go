package mvfst

import (
	"github.com/Harvey-Liu/mvfst/internal/protocol"
	"github.com/Harvey-Liu/mvfst/internal/streams"
)

// maxWritableOnConn implements connection-level writable
// budget: min(peer-advertised connection window headroom,
// getConnectionBufferAvailable()), optionally capped further by
// BackpressureHeadroomFactor * cwnd - bytes already buffered for send.
func (c *Connection) maxWritableOnConn() protocol.ByteCount {
	headroom := c.flowControl.PeerAdvertisedMaxOffset - c.flowControl.SumCurWriteOffset
	if headroom < 0 {
		headroom = 0
	}
	if bufAvail := c.getConnectionBufferAvailable(); bufAvail < headroom {
		headroom = bufAvail
	}
	if c.settings.BackpressureHeadroomFactor <= 0 || c.congestionController == nil {
		return headroom
	}
	cwnd := c.congestionController.GetCongestionWindow()
	buffered := c.flowControl.SumCurStreamBufferLen
	budget := protocol.ByteCount(float64(cwnd)*c.settings.BackpressureHeadroomFactor) - buffered
	if budget < 0 {
		budget = 0
	}
	if budget < headroom {
		return budget
	}
	return headroom
}

// getConnectionBufferAvailable reports how much more send-buffered data the
// connection will accept before hitting TotalBufferSpaceAvailable.
func (c *Connection) getConnectionBufferAvailable() protocol.ByteCount {
	avail := c.settings.TotalBufferSpaceAvailable - c.flowControl.SumCurStreamBufferLen
	if avail < 0 {
		return 0
	}
	return avail
}

// maxWritableOnStream is the per-stream analogue: the minimum of the
// stream's own send-window headroom and the connection-level budget above.
func (c *Connection) maxWritableOnStream(st *streams.Stream) protocol.ByteCount {
	streamBudget := st.FlowControl.SendWindowSize()
	connBudget := c.maxWritableOnConn()
	if streamBudget < connBudget {
		return streamBudget
	}
	return connBudget
}

// SetConnectionFlowControlWindow raises the connection-level receive window;
// windows never shrink.
func (c *Connection) SetConnectionFlowControlWindow(size protocol.ByteCount) {
	if size < c.flowControl.WindowSize {
		return
	}
	c.flowControl.WindowSize = size
	if size > c.flowControl.AdvertisedMaxOffset {
		c.flowControl.AdvertisedMaxOffset = size
	}
}

// SetStreamFlowControlWindow raises one stream's receive window.
func (c *Connection) SetStreamFlowControlWindow(id protocol.StreamID, size protocol.ByteCount) error {
	st, ok := c.streamMgr.GetStream(id)
	if !ok {
		return newLocalError(StreamNotExists)
	}
	st.FlowControl.SetWindowSize(size)
	return nil
}

// ConnectionFlowControl reports the connection-level send/receive window
// state exposed to introspection.
type ConnectionFlowControl struct {
	SendWindowAvailable protocol.ByteCount
	ReceiveWindowAvailable protocol.ByteCount
}

func (c *Connection) GetConnectionFlowControl() ConnectionFlowControl {
	return ConnectionFlowControl{
		SendWindowAvailable: c.maxWritableOnConn(),
		ReceiveWindowAvailable: c.flowControl.AdvertisedMaxOffset - c.flowControl.SumMaxObservedOffset,
	}
}

// StreamFlowControl is the per-stream analogue of ConnectionFlowControl.
type StreamFlowControl struct {
	SendWindowAvailable protocol.ByteCount
	ReceiveWindowAvailable protocol.ByteCount
}

func (c *Connection) GetStreamFlowControl(id protocol.StreamID) (StreamFlowControl, error) {
	st, ok := c.streamMgr.GetStream(id)
	if !ok {
		return StreamFlowControl{}, newLocalError(StreamNotExists)
	}
	return StreamFlowControl{
		SendWindowAvailable: st.FlowControl.SendWindowSize(),
		ReceiveWindowAvailable: st.FlowControl.AdvertisedMaxOffset() - st.CurrentReadOffset,
	}, nil
}

// GetMaxWritableOnStream exposes maxWritableOnStream for callers deciding
// how much to hand to writeChain without blocking.
func (c *Connection) GetMaxWritableOnStream(id protocol.StreamID) (protocol.ByteCount, error) {
	st, ok := c.streamMgr.GetStream(id)
	if !ok {
		return 0, newLocalError(StreamNotExists)
	}
	return c.maxWritableOnStream(st), nil
}
