package mvfst

import (
	"github.com/Harvey-Liu/mvfst/internal/flowcontrol"
	"github.com/Harvey-Liu/mvfst/internal/protocol"
	"github.com/Harvey-Liu/mvfst/internal/streams"
)

// onStreamWindowUpdate closes over the connection to send a
// MAX_STREAM_DATA update through the frame scheduler once a stream's
// receive window is extended.
func (c *Connection) onStreamWindowUpdate(id protocol.StreamID) flowcontrol.WindowUpdateFn {
	return func(newOffset protocol.ByteCount) {
		c.streamMgr.MarkFlowControlUpdated(id, true)
		c.writeLooper.Run()
	}
}

// CreateBidirectionalStream opens a new local bidirectional stream.
func (c *Connection) CreateBidirectionalStream() (protocol.StreamID, error) {
	if c.closeState != Open {
		return 0, newLocalError(ConnectionClosed)
	}
	st, ok := c.streamMgr.OpenBidirectionalStream(c.settings.StreamFlowControlWindow, 0, nil)
	if !ok {
		return 0, newLocalError(InvalidOperation)
	}
	st.FlowControl = flowcontrol.New(c.settings.StreamFlowControlWindow, 0, c.onStreamWindowUpdate(st.ID))
	return st.ID, nil
}

// CreateUnidirectionalStream opens a new local unidirectional stream.
func (c *Connection) CreateUnidirectionalStream() (protocol.StreamID, error) {
	if c.closeState != Open {
		return 0, newLocalError(ConnectionClosed)
	}
	st, ok := c.streamMgr.OpenUnidirectionalStream(c.settings.StreamFlowControlWindow, 0, nil)
	if !ok {
		return 0, newLocalError(InvalidOperation)
	}
	st.FlowControl = flowcontrol.New(c.settings.StreamFlowControlWindow, 0, c.onStreamWindowUpdate(st.ID))
	return st.ID, nil
}

// CreateBidirectionalStreamInGroup / CreateUnidirectionalStreamInGroup are
// the group-tagging variants of stream creation.
func (c *Connection) CreateBidirectionalStreamInGroup(group protocol.GroupID) (protocol.StreamID, error) {
	id, err := c.CreateBidirectionalStream()
	if err != nil {
		return 0, err
	}
	if st, ok := c.streamMgr.GetStream(id); ok {
		st.GroupID = group
		st.HasGroup = true
	}
	return id, nil
}

func (c *Connection) CreateUnidirectionalStreamInGroup(group protocol.GroupID) (protocol.StreamID, error) {
	id, err := c.CreateUnidirectionalStream()
	if err != nil {
		return 0, err
	}
	if st, ok := c.streamMgr.GetStream(id); ok {
		st.GroupID = group
		st.HasGroup = true
	}
	return id, nil
}

// GroupID reports the group a stream was opened in, if any.
func (c *Connection) GroupID(id protocol.StreamID) (protocol.GroupID, bool) {
	st, ok := c.streamMgr.GetStream(id)
	if !ok || !st.HasGroup {
		return 0, false
	}
	return st.GroupID, true
}

// Read pops up to len(buf) bytes from the stream's read buffer starting
// at CurrentReadOffset, reporting EOF once FinalReadOffset is reached and
// fully consumed.
func (c *Connection) Read(id protocol.StreamID, buf []byte) (n int, eof bool, err error) {
	st, ok := c.streamMgr.GetStream(id)
	if !ok {
		return 0, false, newLocalError(StreamNotExists)
	}
	if !st.CanRead() {
		return 0, false, newLocalError(StreamClosed)
	}
	n = copy(buf, st.ReadBuffer)
	st.ReadBuffer = st.ReadBuffer[n:]
	st.CurrentReadOffset += protocol.ByteCount(n)
	if len(st.ReadBuffer) == 0 {
		c.streamMgr.MarkReadable(id, false)
	}
	eof = st.EOM()
	if eof {
		st.RecvState = streams.RecvStateDataRead
		if c.settings.RemoveStreamAfterEomCallbackUnset {
			if e, ok := c.callbacks.readCallbacks[id]; !ok || e.readCB == nil {
				c.streamMgr.MarkClosed(id)
			}
		}
	}
	return n, eof, nil
}

// Peek visits buffered bytes without consuming them.
func (c *Connection) Peek(id protocol.StreamID, visitor PeekVisitor) error {
	st, ok := c.streamMgr.GetStream(id)
	if !ok {
		return newLocalError(StreamNotExists)
	}
	if !st.CanRead() {
		return newLocalError(StreamClosed)
	}
	if len(st.ReadBuffer) > 0 {
		visitor(st.CurrentReadOffset, st.ReadBuffer)
	}
	return nil
}

// Consume advances the read offset by n bytes without copying them out,
// the "peek then consume" half of the peek/consume pair. offset must equal
// the stream's current read offset, guarding against a caller consuming
// against a view of the buffer that Read/Consume has since moved past.
func (c *Connection) Consume(id protocol.StreamID, offset protocol.ByteCount, n protocol.ByteCount) error {
	st, ok := c.streamMgr.GetStream(id)
	if !ok {
		return newLocalError(StreamNotExists)
	}
	if offset != st.CurrentReadOffset {
		return newLocalError(InvalidOperation)
	}
	if n > protocol.ByteCount(len(st.ReadBuffer)) {
		return newLocalError(InvalidOperation)
	}
	st.ReadBuffer = st.ReadBuffer[n:]
	st.CurrentReadOffset += n
	if len(st.ReadBuffer) == 0 {
		c.streamMgr.MarkPeekable(id, false)
	}
	return nil
}

// WriteChain enqueues data (and optionally FIN) on the stream's write
// buffer, subject to flow control and the caller-visible backpressure
// signal. When cb is non-nil, an ACK byte-event callback is registered at
// the offset of the last byte this call enqueues, giving the caller a
// delivery notification for exactly the bytes just written.
func (c *Connection) WriteChain(id protocol.StreamID, data []byte, eof bool, cb ByteEventCallback) error {
	if c.closeState != Open {
		return newLocalError(ConnectionClosed)
	}
	st, ok := c.streamMgr.GetStream(id)
	if !ok {
		return newLocalError(StreamNotExists)
	}
	if id.InitiatedBy() != c.perspective && id.IsUniDirectional() {
		return newLocalError(InvalidOperation)
	}
	if !st.CanWrite() {
		return newLocalError(InvalidWriteData)
	}
	lastByteOffset := st.LargestWriteOffsetSeen + protocol.ByteCount(len(data)) - 1
	st.WriteBuffer.Data = append(st.WriteBuffer.Data, data...)
	st.LargestWriteOffsetSeen += protocol.ByteCount(len(data))
	c.flowControl.SumCurStreamBufferLen += protocol.ByteCount(len(data))
	if eof {
		off := st.CurrentWriteOffset + st.WriteBuffer.Len()
		st.FinalWriteOffset = &off
		st.SendState = streams.SendStateDataSent
	}
	if c.congestionController != nil && c.congestionController.IsAppLimited() && c.pacer != nil {
		c.pacer.Reset()
	}
	if cb != nil && len(data) > 0 {
		if err := c.registerByteEventCallback(ByteEventACK, id, lastByteOffset, cb); err != nil {
			return err
		}
	}
	c.streamMgr.MarkWritable(id, true)
	c.writeLooper.Run()
	return nil
}

// ShutdownWrite half-closes the send side once already-buffered data
// drains: unlike ResetStream, no RESET_STREAM is generated, so bytes
// enqueued before this call are still delivered.
func (c *Connection) ShutdownWrite(id protocol.StreamID) error {
	st, ok := c.streamMgr.GetStream(id)
	if !ok {
		return newLocalError(StreamNotExists)
	}
	if !st.CanWrite() {
		return newLocalError(InvalidOperation)
	}
	if st.FinalWriteOffset == nil {
		off := st.CurrentWriteOffset + st.WriteBuffer.Len()
		st.FinalWriteOffset = &off
	}
	st.SendState = streams.SendStateDataSent
	c.writeLooper.Run()
	return nil
}

// SetControlStream marks id as a control stream: background-mode priority
// demotion (see priority.go's effectivePriority) never applies to it.
func (c *Connection) SetControlStream(id protocol.StreamID) error {
	st, ok := c.streamMgr.GetStream(id)
	if !ok {
		return newLocalError(StreamNotExists)
	}
	st.IsControl = true
	return nil
}

// ResetStream abandons the stream's send side with an application error
// code.
func (c *Connection) ResetStream(id protocol.StreamID, errCode ApplicationErrorCode) error {
	st, ok := c.streamMgr.GetStream(id)
	if !ok {
		return newLocalError(StreamNotExists)
	}
	if st.SendState == streams.SendStateClosed || st.SendState == streams.SendStateResetSent {
		return newLocalError(InvalidOperation)
	}
	st.SendState = streams.SendStateResetSent
	st.WriteBuffer.Data = nil
	st.StreamWriteError = &qerrApplicationErrorWrapper{code: errCode}
	c.pendingEvents.Resets = append(c.pendingEvents.Resets, id)
	c.cancelByteEventCallbacksForStream(ByteEventACK, id, nil)
	c.cancelByteEventCallbacksForStream(ByteEventTX, id, nil)
	c.writeLooper.Run()
	return nil
}

// stopSending requests the peer abandon its send side. Invoked either
// directly or via SetReadCallback's null-with-error-code path.
func (c *Connection) stopSending(id protocol.StreamID, errCode ApplicationErrorCode) error {
	st, ok := c.streamMgr.GetStream(id)
	if !ok {
		return newLocalError(StreamNotExists)
	}
	if !st.CanRead() {
		return newLocalError(InvalidOperation)
	}
	c.streamMgr.MarkStopSending(id, true)
	c.writeLooper.Run()
	return nil
}

// StopSending exposes stopSending on the public API.
func (c *Connection) StopSending(id protocol.StreamID, errCode ApplicationErrorCode) error {
	return c.stopSending(id, errCode)
}

// SetStreamPriority / GetStreamPriority read and write a stream's
// scheduling priority.
func (c *Connection) SetStreamPriority(id protocol.StreamID, p Priority) error {
	st, ok := c.streamMgr.GetStream(id)
	if !ok {
		return newLocalError(StreamNotExists)
	}
	st.Priority = streams.Priority{Level: p.Level, Incremental: p.Incremental}
	return nil
}

func (c *Connection) GetStreamPriority(id protocol.StreamID) (Priority, error) {
	st, ok := c.streamMgr.GetStream(id)
	if !ok {
		return Priority{}, newLocalError(StreamNotExists)
	}
	return Priority{Level: st.Priority.Level, Incremental: st.Priority.Incremental}, nil
}

// qerrApplicationErrorWrapper adapts an ApplicationErrorCode into the error
// interface for StreamWriteError/StreamReadError storage.
type qerrApplicationErrorWrapper struct{ code ApplicationErrorCode }

func (e *qerrApplicationErrorWrapper) Error() string { return "application error" }
