package mvfst

import "time"

// runReadLoop is the read looper's work function: it exists only to give
// the looper machinery a stable per-turn hook, since read delivery itself
// happens synchronously inside processCallbacksAfterNetworkData. A stale
// invocation (no ack-state change since it was scheduled) is reported to
// the read loop detector, if any.
func (c *Connection) runReadLoop() {
	if c.loopDetectorRead != nil && !c.receivedNewPacketBeforeWrite {
		c.loopDetectorRead.OnStaleRead()
	}
}

// runPeekLoop is the peek looper's work function; peek delivery happens
// inside processCallbacksAfterNetworkData, and unlike runReadLoop it
// reports nothing to a loop detector, so it does nothing.
func (c *Connection) runPeekLoop() {}

// runWriteLoop is the write looper's work function: it performs one write
// pass and reports an empty pass to the write loop detector.
func (c *Connection) runWriteLoop() {
	c.pacedWriteDataToSocket()
}

// writePacingDelay is the write looper's PacingFn, consulting the pacer
// only when connection pacing is enabled and flooring the result at
// PacingTickInterval so the pacer is never re-consulted more often than
// that even when it would otherwise allow an immediate write.
func (c *Connection) writePacingDelay() time.Duration {
	if c.pacer == nil || !c.settings.IsConnectionPaced {
		return 0
	}
	d := c.pacer.GetTimeUntilNextWrite(time.Now())
	if c.settings.PacingTickInterval > d {
		return c.settings.PacingTickInterval
	}
	return d
}

// pacedWriteDataToSocket performs one write pass, feeds the pacer, and
// reschedules if more data remains ready once the next pacing slot opens.
func (c *Connection) pacedWriteDataToSocket() {
	if c.closeState == Closed {
		return
	}
	result, wrote := c.writeSocketData()
	if !wrote {
		if c.loopDetectorWrite != nil {
			c.loopDetectorWrite.OnEmptyLoop()
		}
		return
	}
	if result.HasMoreDataToWrite {
		c.writeLooper.Run()
	}
	c.maybeForceIdleTimeout()
}

// writeSocketData asks the frame scheduler for one pass, accounts
// bytes/packets, detects app-limited transitions, and feeds the pacer's
// token bucket.
func (c *Connection) writeSocketData() (WriteResult, bool) {
	if c.scheduler == nil {
		return WriteResult{}, false
	}
	wasAppLimited := c.congestionController != nil && c.congestionController.IsAppLimited()

	result, err := c.scheduler.WriteData()
	if err != nil {
		c.closeWithMappedError(err, "write data error")
		return result, false
	}
	if result.PacketsWritten == 0 {
		c.maybeGoAppLimited()
		return result, false
	}

	c.totalBytesSent += int64(result.BytesWritten)
	c.writeCount++
	c.receivedNewPacketBeforeWrite = false

	if c.pacer != nil {
		c.pacer.OnPacketSent(time.Now(), result.BytesWritten)
	}
	for _, o := range c.observers {
		o.OnPacketsWritten(int(result.BytesWritten), result.PacketsWritten)
		if wasAppLimited {
			o.OnStartWritingFromAppLimited()
		}
	}
	c.rearmLossTimer(c.nextLossTimeout())
	c.dispatchWritable(result)
	return result, true
}

// maybeGoAppLimited reports app-limited status to the congestion controller
// once a write pass produces nothing to send.
func (c *Connection) maybeGoAppLimited() {
	if c.congestionController == nil {
		return
	}
	if !c.congestionController.IsAppLimited() {
		c.congestionController.OnAppLimited(true)
		for _, o := range c.observers {
			o.OnAppRateLimited()
		}
	}
}

func (c *Connection) nextLossTimeout() time.Duration {
	if c.lossDetector == nil {
		return 0
	}
	deadline := c.lossDetector.NextLossTimeout()
	if deadline.IsZero() {
		return 0
	}
	return time.Until(deadline)
}

// dispatchWritable notifies connection- and stream-level write callbacks
// once a write pass frees up budget.
func (c *Connection) dispatchWritable(result WriteResult) {
	if c.callbacks.connWriteCallback != nil {
		if budget := c.maxWritableOnConn(); budget > 0 {
			cb := c.callbacks.connWriteCallback
			c.callbacks.connWriteCallback = nil
			cb.OnConnectionWriteReady(budget)
		}
	}
	for _, id := range c.streamMgr.Writable() {
		st, ok := c.streamMgr.GetStream(id)
		if !ok {
			continue
		}
		budget := c.maxWritableOnStream(st)
		if budget <= 0 {
			continue
		}
		c.streamMgr.MarkWritable(id, false)
		if cb, ok := c.callbacks.streamWriteCallbacks[id]; ok {
			delete(c.callbacks.streamWriteCallbacks, id)
			cb.OnStreamWriteReady(id, budget)
		}
	}
}
