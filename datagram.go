package mvfst

import "github.com/Harvey-Liu/mvfst/internal/protocol"

// WriteDatagram buffers an unreliable datagram for the next write pass,
// subject to MaxWriteDatagramBufferSize and MaxWriteFrameSize.
func (c *Connection) WriteDatagram(data []byte) error {
	if c.closeState != Open {
		return newLocalError(ConnectionClosed)
	}
	if protocol.ByteCount(len(data)) > c.datagrams.maxWriteFrameSize {
		return newLocalError(InvalidWriteData)
	}
	if len(c.datagrams.writeBuffer) >= c.datagrams.maxWriteBufferSize {
		// Drop-oldest: an unreliable frame that misses one write pass is
		// worthless anyway.
		c.datagrams.writeBuffer = c.datagrams.writeBuffer[1:]
	}
	c.datagrams.writeBuffer = append(c.datagrams.writeBuffer, data)
	c.writeLooper.Run()
	return nil
}

// popWriteDatagrams drains the write buffer for the frame scheduler to
// encode into the next packet; the scheduler owns actually bounding how
// many fit in a datagram.
func (c *Connection) popWriteDatagrams() [][]byte {
	buf := c.datagrams.writeBuffer
	c.datagrams.writeBuffer = nil
	return buf
}

// onDatagramReceived buffers up to MaxReadDatagramBufferSize datagrams
// (drop-oldest on overflow) and notifies the application.
func (c *Connection) onDatagramReceived(data []byte) {
	if len(c.datagrams.readBuffer) >= c.datagrams.maxReadBufferSize {
		c.datagrams.readBuffer = c.datagrams.readBuffer[1:]
	}
	c.datagrams.readBuffer = append(c.datagrams.readBuffer, data)
	if c.datagramCallback != nil {
		c.datagramCallback.OnDatagramsAvailable()
	}
}

// ReadDatagrams drains and returns every buffered datagram.
func (c *Connection) ReadDatagrams() [][]byte {
	buf := c.datagrams.readBuffer
	c.datagrams.readBuffer = nil
	return buf
}

// ReadDatagramBufs is an alias exposed for callers that prefer the
// buffer-oriented name.
func (c *Connection) ReadDatagramBufs() [][]byte { return c.ReadDatagrams() }
