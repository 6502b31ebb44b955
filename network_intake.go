package mvfst

import (
	"net"
	"time"

	"github.com/Harvey-Liu/mvfst/internal/protocol"
)

// OnNetworkData decodes every packet in one demultiplexed UDP datagram,
// updates ack-state bookkeeping, then runs the fixed post-processing
// dispatch.
func (c *Connection) OnNetworkData(peer net.Addr, data []byte, ecn protocol.ECN, rcvTime time.Time) {
	if c.closeState == Closed {
		return
	}
	c.receivedNewPacketBeforeWrite = true
	anyChanged, err := c.decoder.OnReadData(peer, data, ecn, rcvTime)
	if err != nil {
		c.closeWithMappedError(err, "packet decode error")
		return
	}
	if c.peerConnectionError != nil {
		c.closeImpl(quicErrorPeerClosed(), closeOptions{DrainConnection: true, SendCloseImmediately: false})
		return
	}
	c.totalBytesRecvd += int64(len(data))
	for _, pp := range c.packetProcessors {
		pp.OnPacketReceived(ecn)
	}
	c.recordEcnPacket(ecn)
	for i := range c.ackStates {
		c.ackStates[i].version++
	}
	for _, o := range c.observers {
		o.OnPacketsReceived(1, len(data))
	}
	c.processCallbacksAfterNetworkData(anyChanged)
}

// processCallbacksAfterNetworkData runs the fixed post-processing order:
// 1. transport-ready notification (first successfully processed packet)
// 2. re-arm idle and keepalive timers
// 3. deliver pending knob frames
// 4. deliver ACK byte events reaching their offset
// 5. deliver TX byte events reaching their offset
// 6. dispatch readable/peekable streams
// 7. dispatch flow-control-updated streams
// 8. dispatch stop-sending-pending streams
// 9. dispatch newly-available local stream ids
// 10. re-arm the ack timer if the ingress pipeline requested one
// 11. run the write looper if anything above produced writable data
// 12. checkForClosedStream, in case a callback closed a stream inline
func (c *Connection) processCallbacksAfterNetworkData(ackStateChanged bool) {
	c.notifyTransportReady()
	if c.closeState != Open {
		return
	}
	if ackStateChanged {
		c.rearmIdleTimer()
		c.rearmKeepaliveTimer()
	}
	if c.closeState != Open {
		return
	}

	c.dispatchKnobs()
	if c.closeState != Open {
		return
	}
	c.dispatchByteEvents()
	if c.closeState != Open {
		return
	}
	c.dispatchReadable()
	if c.closeState != Open {
		return
	}
	c.dispatchPeekable()
	if c.closeState != Open {
		return
	}
	c.dispatchFlowControlUpdates()
	if c.closeState != Open {
		return
	}
	c.dispatchStopSending()
	if c.closeState != Open {
		return
	}
	c.dispatchStreamsAvailable()
	if c.closeState != Open {
		return
	}

	c.rearmAckTimer()

	if c.hasWriteWork() {
		c.writeLooper.Run()
	}
	c.checkForClosedStream()
}

func (c *Connection) dispatchKnobs() {
	if len(c.pendingEvents.Knobs) == 0 {
		return
	}
	knobs := c.pendingEvents.Knobs
	c.pendingEvents.Knobs = nil
	for _, k := range knobs {
		if c.closeState != Open {
			return
		}
		c.dispatchKnob(k)
	}
}

func (c *Connection) dispatchByteEvents() {
	for _, id := range c.streamMgr.Deliverable() {
		if c.closeState != Open {
			return
		}
		st, ok := c.streamMgr.GetStream(id)
		if !ok {
			continue
		}
		c.byteEvents.FireUpTo(ByteEventACK, id, st.LargestDeliverableOffset, func(off protocol.ByteCount) ByteEvent {
			return ByteEvent{StreamID: id, Offset: off, Type: ByteEventACK, SRTT: c.rttStats.SRTT}
		})
		if c.byteEvents.Count(id) == 0 {
			c.streamMgr.MarkDeliverable(id, false)
		}
	}
	if c.closeState != Open {
		return
	}
	for _, id := range c.streamMgr.Tx() {
		if c.closeState != Open {
			return
		}
		st, ok := c.streamMgr.GetStream(id)
		if !ok {
			continue
		}
		c.byteEvents.FireUpTo(ByteEventTX, id, st.LargestTransmittedOffset, func(off protocol.ByteCount) ByteEvent {
			return ByteEvent{StreamID: id, Offset: off, Type: ByteEventTX, SRTT: c.rttStats.SRTT}
		})
		if c.byteEvents.Count(id) == 0 {
			c.streamMgr.MarkTx(id, false)
		}
	}
}

func (c *Connection) dispatchReadable() {
	for _, id := range c.streamMgr.Readable() {
		if c.closeState != Open {
			return
		}
		e, ok := c.callbacks.readCallbacks[id]
		if !ok || e.readCB == nil || e.paused {
			continue
		}
		e.readCB.OnStreamReadAvailable(id)
	}
}

func (c *Connection) dispatchPeekable() {
	for _, id := range c.streamMgr.Peekable() {
		if c.closeState != Open {
			return
		}
		e, ok := c.callbacks.peekCallbacks[id]
		if !ok || e.peekCB == nil || e.paused {
			continue
		}
		e.peekCB.OnStreamPeekAvailable(id)
	}
}

func (c *Connection) dispatchFlowControlUpdates() {
	// No FlowControlUpdateCallback registration surface exists yet; clearing
	// the pending bit here just prevents the set from growing unbounded.
	for _, id := range c.streamMgr.FlowControlUpdated() {
		if c.closeState != Open {
			return
		}
		c.streamMgr.MarkFlowControlUpdated(id, false)
	}
}

func (c *Connection) dispatchStopSending() {
	for _, id := range c.streamMgr.StopSendingPending() {
		if c.closeState != Open {
			return
		}
		c.streamMgr.MarkStopSending(id, false)
	}
}

func (c *Connection) dispatchStreamsAvailable() {
	// Availability is surfaced through GetOpenableBidirectionalStreams /
	// GetOpenableUnidirectionalStreams; no default callback is installed
	// here since StreamsAvailableCallback registration lives with the
	// application, not the core.
}

func (c *Connection) recordEcnPacket(ecn protocol.ECN) {
	c.ecnCounts.totalAckElicitingSent++
	switch ecn {
	case protocol.ECNECT0:
		c.ecnCounts.ect0Echoed++
	case protocol.ECNECT1:
		c.ecnCounts.ect1Echoed++
	case protocol.ECNCE:
		c.ecnCounts.ceEchoed++
	}
	c.onEcnPacketProcessed(ecn)
}

func (c *Connection) hasWriteWork() bool {
	if len(c.streamMgr.Writable()) > 0 {
		return true
	}
	if len(c.pendingEvents.Resets) > 0 || c.pendingEvents.SendPing {
		return true
	}
	return false
}
