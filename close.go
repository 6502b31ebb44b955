package mvfst

import "github.com/Harvey-Liu/mvfst/internal/qerr"

// closeOptions parameterizes closeImpl's (drainConnection,
// sendCloseImmediately) flag pair.
type closeOptions struct {
	DrainConnection bool
	SendCloseImmediately bool
}

// Close initiates a graceful application-requested close: no new streams,
// existing streams finish, then the connection drains.
func (c *Connection) Close(err *QuicError) {
	if err == nil {
		err = quicErrorNoError()
	}
	c.closeGracefully(err)
}

// CloseNow initiates an immediate, non-draining close.
func (c *Connection) CloseNow(err *QuicError) {
	if err == nil {
		err = quicErrorNoError()
	}
	c.closeNow(err)
}

func quicErrorNoError() *QuicError {
	return &QuicError{Code: NoError, Message: "no error"}
}

// closeGracefully takes the graceful path: if streams remain open,
// transition to GracefulClosing and defer the real close until
// checkForClosedStream observes the last stream finish; otherwise close now.
func (c *Connection) closeGracefully(err *QuicError) {
	if c.closeState != Open {
		return
	}
	if c.streamMgr.Count() == 0 {
		c.closeImpl(err, closeOptions{DrainConnection: true, SendCloseImmediately: false})
		return
	}
	c.closeState = GracefulClosing
	c.localConnectionError = err
	c.notifyCloseStarted()
}

// notifyCloseStarted fires OnCloseStarted on every observer exactly once per
// connection, whichever of closeGracefully/closeImpl reaches it first.
func (c *Connection) notifyCloseStarted() {
	if c.closeStartedNotified {
		return
	}
	c.closeStartedNotified = true
	for _, o := range c.observers {
		o.OnCloseStarted()
	}
}

// closeNow takes the immediate close path.
func (c *Connection) closeNow(err *QuicError) {
	c.closeImpl(err, closeOptions{DrainConnection: false, SendCloseImmediately: true})
}

// closeWithMappedError classifies a raw collaborator error and routes it
// through closeImpl, used by the timer and network-intake paths.
func (c *Connection) closeWithMappedError(err error, context string) {
	mapped := classifyCollaboratorError(err, context)
	c.exceptionCloseWhat = err.Error()
	c.closeImpl(mapped, closeOptions{DrainConnection: true, SendCloseImmediately: true})
}

// closeImpl performs the ordered close sequence:
// 1. notify observers that close has started (once, whichever caller wins)
// 2. mark Closed, record the local error
// 3. stop the read/peek/write loopers
// 4. cancel all timers except drain (or all, if not draining)
// 5. cancel all app callbacks (read/peek, write, byte-event)
// 6. reset outstandings and the congestion controller
// 7. notify the connection-end callback
// 8. emit the qlog close summary
// 9. send CONNECTION_CLOSE and arm the drain timer, unless the classified
//    close reason is a reset or an abandonment; an invalid migration also
//    skips the drain since the peer address is no longer trustworthy
// 10. otherwise close the socket immediately
func (c *Connection) closeImpl(err *QuicError, opts closeOptions) {
	if c.closeState == Closed {
		return
	}
	c.notifyCloseStarted()

	wasGracefullyClosing := c.closeState == GracefulClosing
	c.closeState = Closed
	if c.localConnectionError == nil || !wasGracefullyClosing {
		c.localConnectionError = err
	}

	c.readLooper.Stop()
	c.peekLooper.Stop()
	c.writeLooper.Stop()

	if opts.DrainConnection {
		c.timers.CancelAllExceptDrain()
	} else {
		c.timers.CancelAll()
	}

	c.cancelAllAppCallbacks(err)

	c.outstandings.Reset()
	if c.congestionFactory != nil {
		c.congestionController = c.congestionFactory.New(c.settings.CongestionControllerType, c.settings.UdpSendPacketLen)
	}

	if c.endCallback != nil {
		if c.settings.UseConnectionEndWithErrorCallback {
			c.endCallback.OnConnectionEndWithError(err)
		} else {
			c.endCallback.OnConnectionEnd()
		}
	}

	if c.qlog != nil {
		c.qlog.EmitCloseSummary(c.totalBytesSent, c.totalBytesRecvd, uint64(err.Code), err.IsAppError)
	}

	isReset := err.Code == qerr.ConnectionReset
	isAbandon := err.Code == qerr.ConnectionAbandoned
	isInvalidMigration := err.WireCode == qerr.WireInvalidMigration

	if opts.SendCloseImmediately && !isReset && !isAbandon && c.scheduler != nil {
		c.scheduler.WriteData()
	}

	if opts.DrainConnection && c.settings.ShouldDrain && !isReset && !isAbandon && !isInvalidMigration {
		c.armDrainTimer()
	} else {
		if c.socket != nil {
			c.socket.Close()
		}
	}
}

// drainTimeoutExpired fires when the drain timer elapses: the connection may finally release its socket.
func (c *Connection) drainTimeoutExpired() {
	if c.socket != nil {
		c.socket.Close()
	}
}

// checkForClosedStream reaps streams the collaborator has marked closed
// once each has zero pending byte events and is safe to delete; if the
// connection was GracefulClosing and no streams remain, finish the close.
func (c *Connection) checkForClosedStream() {
	for _, id := range c.streamMgr.Closed() {
		if c.byteEvents.Count(id) > 0 {
			continue
		}
		if _, ok := c.callbacks.readCallbacks[id]; ok && !c.settings.RemoveStreamAfterEomCallbackUnset {
			continue
		}
		c.streamMgr.DeleteStream(id)
		for _, o := range c.observers {
			o.OnStreamClosed(id)
		}
	}
	if c.closeState == GracefulClosing && c.streamMgr.Count() == 0 {
		c.closeImpl(c.localConnectionError, closeOptions{DrainConnection: true, SendCloseImmediately: false})
	}
}
